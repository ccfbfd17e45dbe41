// Package memory хранилище в памяти для демо-сессий и тестов.
// Транзакция работает над копией состояния и подменяет его только при успехе.
package memory

import (
	"context"
	"maps"
	"sync"

	"github.com/orlandoalexander/educatch/internal/model"
	"github.com/orlandoalexander/educatch/internal/store"
)

type answerKey struct {
	reportID   int64
	questionID int64
}

type sequences struct {
	lesson, occurrence, exception, invoice, report int64
}

type state struct {
	lessons     map[int64]model.Lesson
	occurrences map[int64]model.Occurrence
	exceptions  map[int64]model.Exception // по occurrence id
	invoices    map[int64]model.Invoice
	reports     map[int64]model.Report
	answers     map[answerKey]model.ReportAnswer
	questions   []model.ReportQuestion

	tutors    map[int64]model.Tutor
	students  map[int64]model.Student
	subjects  map[int64]model.Subject
	locations map[int64]model.Location

	seq sequences
}

func newState() *state {
	return &state{
		lessons:     make(map[int64]model.Lesson),
		occurrences: make(map[int64]model.Occurrence),
		exceptions:  make(map[int64]model.Exception),
		invoices:    make(map[int64]model.Invoice),
		reports:     make(map[int64]model.Report),
		answers:     make(map[answerKey]model.ReportAnswer),
		tutors:      make(map[int64]model.Tutor),
		students:    make(map[int64]model.Student),
		subjects:    make(map[int64]model.Subject),
		locations:   make(map[int64]model.Location),
	}
}

// clone значения в картах не разделяют изменяемых указателей: репозиторий копирует их на входе и выходе
func (s *state) clone() *state {
	return &state{
		lessons:     maps.Clone(s.lessons),
		occurrences: maps.Clone(s.occurrences),
		exceptions:  maps.Clone(s.exceptions),
		invoices:    maps.Clone(s.invoices),
		reports:     maps.Clone(s.reports),
		answers:     maps.Clone(s.answers),
		questions:   append([]model.ReportQuestion(nil), s.questions...),
		tutors:      s.tutors,
		students:    s.students,
		subjects:    s.subjects,
		locations:   s.locations,
		seq:         s.seq,
	}
}

type Store struct {
	mu sync.Mutex
	st *state
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{st: newState()}
}

func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, repo store.Repo) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	work := s.st.clone()
	if err := fn(ctx, &repo{st: work}); err != nil {
		return err
	}
	s.st = work
	return nil
}

// AddTutor и прочие наполняют справочники вне транзакций
func (s *Store) AddTutor(t model.Tutor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.tutors[t.ID] = t
}

func (s *Store) AddStudent(st model.Student) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.students[st.ID] = st
}

func (s *Store) AddSubject(sub model.Subject) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.subjects[sub.ID] = sub
}

func (s *Store) AddLocation(l model.Location) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.locations[l.ID] = l
}

func (s *Store) AddQuestion(q model.ReportQuestion) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.questions = append(s.st.questions, q)
}

type repo struct {
	st *state
}

var _ store.Repo = (*repo)(nil)

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneLesson(l model.Lesson) model.Lesson {
	l.Rule = clonePtr(l.Rule)
	if l.Rule != nil {
		l.Rule.Until = clonePtr(l.Rule.Until)
	}
	l.ExtendedUntil = clonePtr(l.ExtendedUntil)
	return l
}

func cloneOccurrence(o model.Occurrence) model.Occurrence {
	o.ActualStart = clonePtr(o.ActualStart)
	o.ActualEnd = clonePtr(o.ActualEnd)
	o.InvoiceID = clonePtr(o.InvoiceID)
	return o
}

func cloneException(e model.Exception) model.Exception {
	e.Title = clonePtr(e.Title)
	e.Description = clonePtr(e.Description)
	e.TutorID = clonePtr(e.TutorID)
	e.StudentID = clonePtr(e.StudentID)
	e.SubjectID = clonePtr(e.SubjectID)
	e.LocationID = clonePtr(e.LocationID)
	e.StartTime = clonePtr(e.StartTime)
	e.EndTime = clonePtr(e.EndTime)
	e.InvoiceID = clonePtr(e.InvoiceID)
	return e
}

func idSet(ids []int64) map[int64]struct{} {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
