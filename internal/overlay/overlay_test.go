package overlay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/orlandoalexander/educatch/internal/model"
)

func ptr[T any](v T) *T { return &v }

func baseRow() model.OccurrenceRow {
	start := time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC)
	return model.OccurrenceRow{
		Lesson: model.Lesson{
			ID: 1, Title: "Maths", Description: "GCSE",
			StartTime: start.AddDate(0, 0, -7), EndTime: start.AddDate(0, 0, -7).Add(time.Hour),
			TutorID: 10, StudentID: 20, SubjectID: 30, LocationID: 40,
		},
		Occurrence: model.Occurrence{
			ID: 100, LessonID: 1, StartTime: start, EndTime: start.Add(time.Hour), InvoiceID: ptr(int64(7)),
		},
		ReportID:     ptr(int64(500)),
		ReportStatus: model.ReportEmpty,
	}
}

func TestApplyWithoutException(t *testing.T) {
	row := baseRow()
	eff := Apply(row)

	assert.Equal(t, int64(100), eff.OccurrenceID)
	assert.Equal(t, "Maths", eff.Title)
	assert.Equal(t, int64(10), eff.TutorID)
	assert.Equal(t, row.Occurrence.StartTime, eff.StartTime)
	assert.Equal(t, int64(7), *eff.InvoiceID)
	assert.False(t, eff.Overridden)
	assert.False(t, eff.Cancelled)
}

func TestApplyCoalescesFields(t *testing.T) {
	row := baseRow()
	newStart := row.Occurrence.StartTime.Add(2 * time.Hour)
	row.Exception = &model.Exception{
		OccurrenceID: 100,
		TutorID:      ptr(int64(11)),
		StartTime:    &newStart,
		InvoiceID:    ptr(int64(8)),
	}

	eff := Apply(row)

	assert.True(t, eff.Overridden)
	assert.Equal(t, int64(11), eff.TutorID)
	assert.Equal(t, int64(20), eff.StudentID)
	assert.Equal(t, newStart, eff.StartTime)
	assert.Equal(t, row.Occurrence.EndTime, eff.EndTime)
	assert.Equal(t, int64(8), *eff.InvoiceID)
	assert.Equal(t, "Maths", eff.Title)

	// исходные строки не меняются
	assert.Equal(t, int64(10), row.Lesson.TutorID)
	assert.Equal(t, int64(7), *row.Occurrence.InvoiceID)
}

func TestVisibleDropsCancelled(t *testing.T) {
	kept := baseRow()
	cancelled := baseRow()
	cancelled.Occurrence.ID = 101
	cancelled.Exception = &model.Exception{OccurrenceID: 101, Kind: model.ExceptionCancel}

	got := Visible([]model.OccurrenceRow{kept, cancelled})

	assert.Len(t, got, 1)
	assert.Equal(t, int64(100), got[0].OccurrenceID)
}

func TestMatch(t *testing.T) {
	eff := Apply(baseRow())
	from := eff.StartTime.Add(-time.Hour)
	to := eff.StartTime

	assert.True(t, Match(eff, model.RowFilter{TutorID: ptr(int64(10))}))
	assert.False(t, Match(eff, model.RowFilter{TutorID: ptr(int64(99))}))
	assert.True(t, Match(eff, model.RowFilter{TutorID: ptr(int64(99)), StudentID: ptr(int64(20))}))
	assert.True(t, Match(eff, model.RowFilter{InvoiceID: ptr(int64(7))}))
	assert.False(t, Match(eff, model.RowFilter{InvoiceID: ptr(int64(8))}))
	assert.False(t, Match(eff, model.RowFilter{From: &from, To: &to}), "abutting window")
	assert.True(t, Match(eff, model.RowFilter{OccurrenceIDs: []int64{5, 100}}))

	eff.Cancelled = true
	assert.False(t, Match(eff, model.RowFilter{}))
	assert.True(t, Match(eff, model.RowFilter{IncludeCancelled: true}))
}

func TestOverlaps(t *testing.T) {
	at := func(h, m int) time.Time { return time.Date(2024, 1, 8, h, m, 0, 0, time.UTC) }
	eff := model.Effective{StartTime: at(9, 30), EndTime: at(10, 30)}

	assert.True(t, Overlaps(eff, at(9, 0), at(10, 0)))
	assert.False(t, Overlaps(eff, at(8, 30), at(9, 30)))
	assert.False(t, Overlaps(eff, at(10, 30), at(11, 0)))
}
