package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/orlandoalexander/educatch/internal/model"
	"github.com/orlandoalexander/educatch/internal/recurrence"
)

// materializerWithoutLookAhead материализатор, который не заглядывает дальше through
func materializerWithoutLookAhead(u *unit) *Materializer {
	return NewMaterializer(u.repo, u.ledger, u.reports, 0, zap.NewNop())
}

func weeklyLesson(f *fixture, u *unit, start time.Time, rule string) *model.Lesson {
	l := &model.Lesson{
		Title: "Maths", StartTime: start, EndTime: start.Add(time.Hour),
		TutorID: 1, StudentID: 1, SubjectID: 1, LocationID: 1,
		Rule: recurrence.MustParse(rule),
	}
	require.NoError(f.t, u.repo.CreateLesson(ctx, l))
	return l
}

func TestEnsureMaterializesThroughDate(t *testing.T) {
	f := newFixture(t, date(2024, 1, 1, 8, 0))

	f.tx(func(u *unit) {
		m := materializerWithoutLookAhead(u)
		l := weeklyLesson(f, u, date(2024, 1, 1, 10, 0), "FREQ=WEEKLY;INTERVAL=1")

		n, err := m.Ensure(ctx, l, date(2024, 3, 1, 0, 0))
		require.NoError(t, err)
		assert.Equal(t, 9, n)
		require.NotNil(t, l.ExtendedUntil)
		assert.Equal(t, date(2024, 3, 1, 0, 0), *l.ExtendedUntil)

		occs, err := u.repo.ListLessonOccurrences(ctx, l.ID)
		require.NoError(t, err)
		require.Len(t, occs, 9)
		assert.Equal(t, date(2024, 1, 1, 10, 0), occs[0].StartTime)
		assert.Equal(t, date(2024, 2, 26, 10, 0), occs[8].StartTime)

		for _, o := range occs {
			require.NotNil(t, o.InvoiceID)
			inv, err := u.repo.GetInvoice(ctx, *o.InvoiceID)
			require.NoError(t, err)
			assert.Equal(t, WeekOf(o.StartTime), inv.Week)

			rep, err := u.repo.GetReportByOccurrence(ctx, o.ID)
			require.NoError(t, err)
			require.NotNil(t, rep)
			assert.Equal(t, model.ReportEmpty, rep.Status)
		}
	})
}

func TestEnsureResumesWithoutGapsOrDuplicates(t *testing.T) {
	f := newFixture(t, date(2024, 1, 1, 8, 0))

	f.tx(func(u *unit) {
		m := materializerWithoutLookAhead(u)
		l := weeklyLesson(f, u, date(2024, 1, 1, 10, 0), "FREQ=WEEKLY")

		_, err := m.Ensure(ctx, l, date(2024, 3, 1, 0, 0))
		require.NoError(t, err)

		n, err := m.Ensure(ctx, l, date(2024, 3, 15, 0, 0))
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		n, err = m.Ensure(ctx, l, date(2024, 3, 10, 0, 0))
		require.NoError(t, err)
		assert.Zero(t, n)

		occs, err := u.repo.ListLessonOccurrences(ctx, l.ID)
		require.NoError(t, err)
		require.Len(t, occs, 11)
		for i := 1; i < len(occs); i++ {
			assert.Equal(t, 7*24*time.Hour, occs[i].StartTime.Sub(occs[i-1].StartTime))
		}
	})
}

func TestEnsureStopsAtUntil(t *testing.T) {
	f := newFixture(t, date(2024, 1, 1, 8, 0))

	f.tx(func(u *unit) {
		l := weeklyLesson(f, u, date(2024, 1, 1, 10, 0), "FREQ=WEEKLY;UNTIL=20240115T100000Z")

		n, err := u.materializer.Ensure(ctx, l, date(2024, 1, 1, 0, 0))
		require.NoError(t, err)
		assert.Equal(t, 3, n)
		assert.Equal(t, date(2024, 1, 15, 0, 0), *l.ExtendedUntil)
		assert.False(t, l.Open())

		n, err = u.materializer.Ensure(ctx, l, date(2025, 1, 1, 0, 0))
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

func TestEnsureSingleLessonOnce(t *testing.T) {
	f := newFixture(t, date(2024, 1, 1, 8, 0))

	f.tx(func(u *unit) {
		l := weeklyLesson(f, u, date(2024, 1, 3, 10, 0), "")

		n, err := u.materializer.Ensure(ctx, l, date(2024, 6, 1, 0, 0))
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		assert.Equal(t, date(2024, 1, 3, 0, 0), *l.ExtendedUntil)

		n, err = u.materializer.Ensure(ctx, l, date(2024, 12, 1, 0, 0))
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

func TestEnsureRepairsMissingReports(t *testing.T) {
	f := newFixture(t, date(2024, 1, 1, 8, 0))

	f.tx(func(u *unit) {
		l := weeklyLesson(f, u, date(2024, 1, 1, 10, 0), "FREQ=WEEKLY")
		orphan := &model.Occurrence{LessonID: l.ID, StartTime: date(2023, 12, 25, 10, 0), EndTime: date(2023, 12, 25, 11, 0)}
		require.NoError(t, u.repo.InsertOccurrence(ctx, orphan))

		_, err := materializerWithoutLookAhead(u).Ensure(ctx, l, date(2024, 1, 8, 0, 0))
		require.NoError(t, err)

		rep, err := u.repo.GetReportByOccurrence(ctx, orphan.ID)
		require.NoError(t, err)
		assert.NotNil(t, rep)
	})
}
