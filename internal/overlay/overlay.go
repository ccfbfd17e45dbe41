// Package overlay накладывает исключения на занятия при чтении.
// Хранимые строки никогда не изменяются.
package overlay

import (
	"time"

	"github.com/orlandoalexander/educatch/internal/model"
)

// Apply возвращает эффективное занятие: для каждого поля побеждает значение исключения
func Apply(row model.OccurrenceRow) model.Effective {
	l, o := row.Lesson, row.Occurrence

	eff := model.Effective{
		OccurrenceID:   o.ID,
		LessonID:       o.LessonID,
		Title:          l.Title,
		Description:    l.Description,
		TutorID:        l.TutorID,
		StudentID:      l.StudentID,
		SubjectID:      l.SubjectID,
		LocationID:     l.LocationID,
		StartTime:      o.StartTime,
		EndTime:        o.EndTime,
		ActualStart:    o.ActualStart,
		ActualEnd:      o.ActualEnd,
		Attendance:     o.Attendance,
		AttendanceCode: o.AttendanceCode,
		InvoiceID:      o.InvoiceID,
		Rule:           l.Rule,
		ReportID:       row.ReportID,
		ReportStatus:   row.ReportStatus,
	}

	e := row.Exception
	if e == nil {
		return eff
	}

	eff.Overridden = true
	eff.Title = coalesce(e.Title, eff.Title)
	eff.Description = coalesce(e.Description, eff.Description)
	eff.TutorID = coalesce(e.TutorID, eff.TutorID)
	eff.StudentID = coalesce(e.StudentID, eff.StudentID)
	eff.SubjectID = coalesce(e.SubjectID, eff.SubjectID)
	eff.LocationID = coalesce(e.LocationID, eff.LocationID)
	eff.StartTime = coalesce(e.StartTime, eff.StartTime)
	eff.EndTime = coalesce(e.EndTime, eff.EndTime)
	if e.InvoiceID != nil {
		eff.InvoiceID = e.InvoiceID
	}
	eff.Cancelled = e.Kind == model.ExceptionCancel
	return eff
}

// Visible применяет Apply ко всем строкам и отбрасывает отменённые
func Visible(rows []model.OccurrenceRow) []model.Effective {
	out := make([]model.Effective, 0, len(rows))
	for _, row := range rows {
		eff := Apply(row)
		if eff.Cancelled {
			continue
		}
		out = append(out, eff)
	}
	return out
}

// Match проверяет эффективное занятие по фильтру
func Match(eff model.Effective, f model.RowFilter) bool {
	if eff.Cancelled && !f.IncludeCancelled {
		return false
	}

	switch {
	case f.TutorID != nil && f.StudentID != nil:
		if eff.TutorID != *f.TutorID && eff.StudentID != *f.StudentID {
			return false
		}
	case f.TutorID != nil:
		if eff.TutorID != *f.TutorID {
			return false
		}
	case f.StudentID != nil:
		if eff.StudentID != *f.StudentID {
			return false
		}
	}

	if f.InvoiceID != nil && (eff.InvoiceID == nil || *eff.InvoiceID != *f.InvoiceID) {
		return false
	}
	if f.LessonID != nil && eff.LessonID != *f.LessonID {
		return false
	}
	if len(f.OccurrenceIDs) > 0 && !contains(f.OccurrenceIDs, eff.OccurrenceID) {
		return false
	}
	if f.From != nil && !eff.EndTime.After(*f.From) {
		return false
	}
	if f.To != nil && !eff.StartTime.Before(*f.To) {
		return false
	}
	return true
}

// Overlaps строгое пересечение: соприкасающиеся окна не пересекаются
func Overlaps(eff model.Effective, start, end time.Time) bool {
	return eff.StartTime.Before(end) && eff.EndTime.After(start)
}

func coalesce[T any](override *T, base T) T {
	if override != nil {
		return *override
	}
	return base
}

func contains(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
