// Package store описывает хранилище ядра. Реализации: postgres и memory.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/orlandoalexander/educatch/internal/model"
)

var ErrNoSession = errors.New("session key is missing in context")

// Store выполняет функцию в одной транзакции: всё или ничего
type Store interface {
	InTx(ctx context.Context, fn func(ctx context.Context, repo Repo) error) error
}

// Provider отдаёт хранилище для запроса. Выбирается один раз при старте.
type Provider interface {
	Store(ctx context.Context) (Store, error)
}

// Static провайдер с одним общим хранилищем
type Static struct {
	S Store
}

func (p Static) Store(context.Context) (Store, error) {
	return p.S, nil
}

// Repo операции внутри транзакции. Получение отсутствующей записи возвращает nil, nil.
type Repo interface {
	LessonRepo
	OccurrenceRepo
	InvoiceRepo
	ReportRepo
	ReferenceRepo
}

type LessonRepo interface {
	CreateLesson(ctx context.Context, lesson *model.Lesson) error
	GetLesson(ctx context.Context, id int64) (*model.Lesson, error)
	ListLessons(ctx context.Context, filter model.LessonFilter) ([]*model.Lesson, error)
	// UpdateLesson переписывает фиксированный набор колонок, включая правило и extended_until
	UpdateLesson(ctx context.Context, lesson *model.Lesson) error
	// AdvanceExtendedUntil только увеличивает extended_until
	AdvanceExtendedUntil(ctx context.Context, lessonID int64, until time.Time) error
	// DeleteLesson удаляет серию вместе с занятиями, исключениями и отчётами
	DeleteLesson(ctx context.Context, id int64) error
}

type OccurrenceRepo interface {
	// InsertOccurrences идемпотентна по (lesson_id, start_time); возвращает число вставленных
	InsertOccurrences(ctx context.Context, occurrences []*model.Occurrence) (int, error)
	InsertOccurrence(ctx context.Context, occurrence *model.Occurrence) error
	GetOccurrence(ctx context.Context, id int64) (*model.Occurrence, error)
	ListLessonOccurrences(ctx context.Context, lessonID int64) ([]*model.Occurrence, error)
	UpdateOccurrence(ctx context.Context, occurrence *model.Occurrence) error
	// DeleteOccurrences удаляет занятия вместе с исключениями и отчётами
	DeleteOccurrences(ctx context.Context, ids []int64) error
	ListOccurrenceRows(ctx context.Context, filter model.RowFilter) ([]model.OccurrenceRow, error)

	GetException(ctx context.Context, occurrenceID int64) (*model.Exception, error)
	SaveException(ctx context.Context, exception *model.Exception) error
}

type InvoiceRepo interface {
	// EnsureInvoice создаёт счёт (tutor, week), если его нет, и возвращает существующий
	EnsureInvoice(ctx context.Context, tutorID int64, week time.Time, status model.InvoiceStatus) (*model.Invoice, error)
	GetInvoice(ctx context.Context, id int64) (*model.Invoice, error)
	ListInvoices(ctx context.Context, filter model.InvoiceFilter) ([]*model.Invoice, error)
	UpdateInvoiceStatus(ctx context.Context, ids []int64, status model.InvoiceStatus) error
	DeleteInvoices(ctx context.Context, ids []int64) error
	InvoiceUsage(ctx context.Context, tutorID *int64) ([]model.InvoiceUsage, error)
	// ClearExceptionInvoices обнуляет invoice_id исключений, указывающих на эти счета
	ClearExceptionInvoices(ctx context.Context, invoiceIDs []int64) error
}

type ReportRepo interface {
	// EnsureReports создаёт пустой отчёт каждому занятию без отчёта
	EnsureReports(ctx context.Context) (int, error)
	GetReport(ctx context.Context, id int64) (*model.Report, error)
	GetReportByOccurrence(ctx context.Context, occurrenceID int64) (*model.Report, error)
	MoveReport(ctx context.Context, reportID, occurrenceID int64) error
	UpdateReport(ctx context.Context, report *model.Report) error
	ListAnswers(ctx context.Context, reportID int64) ([]model.ReportAnswer, error)
	SaveAnswer(ctx context.Context, answer model.ReportAnswer) error
	DeleteAnswer(ctx context.Context, reportID, questionID int64) error
	ListQuestions(ctx context.Context) ([]model.ReportQuestion, error)
}

type ReferenceRepo interface {
	GetTutor(ctx context.Context, id int64) (*model.Tutor, error)
	GetStudent(ctx context.Context, id int64) (*model.Student, error)
	GetSubject(ctx context.Context, id int64) (*model.Subject, error)
	GetLocation(ctx context.Context, id int64) (*model.Location, error)
}
