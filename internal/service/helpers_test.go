package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/orlandoalexander/educatch/internal/model"
	"github.com/orlandoalexander/educatch/internal/recurrence"
	"github.com/orlandoalexander/educatch/internal/store"
	"github.com/orlandoalexander/educatch/internal/store/memory"
)

var ctx = context.Background()

func date(y int, m time.Month, d, h, mi int) time.Time {
	return time.Date(y, m, d, h, mi, 0, 0, time.UTC)
}

func ptr[T any](v T) *T {
	return &v
}

type fixture struct {
	t     *testing.T
	store *memory.Store
	now   time.Time
	svc   *Services
}

func newFixture(t *testing.T, now time.Time) *fixture {
	f := &fixture{t: t, store: memory.New(), now: now}

	f.store.AddTutor(model.Tutor{ID: 1, Name: "Alex", Rate: decimal.RequireFromString("30.00")})
	f.store.AddTutor(model.Tutor{ID: 2, Name: "Priya", Rate: decimal.RequireFromString("28.00")})
	f.store.AddStudent(model.Student{ID: 1, Name: "Sam"})
	f.store.AddStudent(model.Student{ID: 2, Name: "Jordan"})
	f.store.AddSubject(model.Subject{ID: 1, Name: "Maths"})
	f.store.AddLocation(model.Location{ID: 1, Name: "Library"})
	f.store.AddQuestion(model.ReportQuestion{ID: 1, Title: "Covered", Type: model.QuestionText, Order: 1})
	f.store.AddQuestion(model.ReportQuestion{ID: 2, Title: "Engagement", Type: model.QuestionOption, Options: []string{"High", "Low"}, Order: 2})
	f.store.AddQuestion(model.ReportQuestion{ID: 4, Title: "Score", Type: model.QuestionNumber, Order: 4})
	f.store.AddQuestion(model.ReportQuestion{ID: 5, Title: "Private", Type: model.QuestionText, Hidden: true, Order: 5})
	f.store.AddQuestion(model.ReportQuestion{ID: 6, Title: "Safeguarding", Type: model.QuestionBoolean, Order: 6})

	f.svc = New(store.Static{S: f.store}, Config{Clock: func() time.Time { return f.now }}, zap.NewNop())
	return f
}

// tx выполняет fn с компонентами ядра поверх одной транзакции
func (f *fixture) tx(fn func(u *unit)) {
	f.t.Helper()
	require.NoError(f.t, f.store.InTx(ctx, func(ctx context.Context, repo store.Repo) error {
		fn(f.svc.Lessons.unit(repo))
		return nil
	}))
}

func (f *fixture) lesson(start time.Time, d time.Duration, rule string) *model.Lesson {
	f.t.Helper()
	l, err := f.svc.Lessons.CreateLesson(ctx, CreateLessonInput{
		Title:      "Maths",
		StartTime:  start,
		EndTime:    start.Add(d),
		TutorID:    1,
		StudentID:  1,
		SubjectID:  1,
		LocationID: 1,
		Rule:       recurrence.MustParse(rule),
	})
	require.NoError(f.t, err)
	return l
}

func (f *fixture) occurrences(lessonID int64) []*model.Occurrence {
	f.t.Helper()
	var out []*model.Occurrence
	f.tx(func(u *unit) {
		var err error
		out, err = u.repo.ListLessonOccurrences(ctx, lessonID)
		require.NoError(f.t, err)
	})
	return out
}

func (f *fixture) getLesson(id int64) *model.Lesson {
	f.t.Helper()
	var out *model.Lesson
	f.tx(func(u *unit) {
		var err error
		out, err = u.repo.GetLesson(ctx, id)
		require.NoError(f.t, err)
	})
	return out
}

func (f *fixture) invoice(id int64) *model.Invoice {
	f.t.Helper()
	var out *model.Invoice
	f.tx(func(u *unit) {
		var err error
		out, err = u.repo.GetInvoice(ctx, id)
		require.NoError(f.t, err)
	})
	return out
}

func (f *fixture) reportOf(occurrenceID int64) *model.Report {
	f.t.Helper()
	d, err := f.svc.Reports.LessonReport(ctx, occurrenceID)
	require.NoError(f.t, err)
	return &d.Report
}

func (f *fixture) submit(reportIDs ...int64) {
	f.t.Helper()
	require.NoError(f.t, f.svc.Reports.UpdateReports(ctx, model.ReportUpdate{
		ReportIDs: reportIDs,
		Status:    ptr(model.ReportSubmitted),
	}))
}

func starts(occs []*model.Occurrence) []time.Time {
	out := make([]time.Time, 0, len(occs))
	for _, o := range occs {
		out = append(out, o.StartTime)
	}
	return out
}
