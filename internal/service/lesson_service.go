package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/orlandoalexander/educatch/internal/model"
	"github.com/orlandoalexander/educatch/internal/overlay"
	"github.com/orlandoalexander/educatch/internal/recurrence"
)

// LessonService серии, занятия и их исключения
type LessonService struct {
	*engine
}

type OccurrenceQuery struct {
	TutorID   *int64
	StudentID *int64
	// AsOf до какой даты гарантировать материализацию; по умолчанию To или сейчас
	AsOf *time.Time
	From *time.Time
	To   *time.Time
}

type OccurrenceList struct {
	Occurrences []model.Effective `json:"occurrences"`
	// ExtendedUntil наименьшая граница среди открытых серий выборки
	ExtendedUntil *time.Time `json:"extended_until,omitempty"`
}

// ListOccurrences досоздаёт занятия открытых серий и отдаёт видимые с учётом исключений
func (s *LessonService) ListOccurrences(ctx context.Context, q OccurrenceQuery) (*OccurrenceList, error) {
	asOf := s.now()
	switch {
	case q.AsOf != nil:
		asOf = *q.AsOf
	case q.To != nil:
		asOf = later(asOf, *q.To)
	}

	var out OccurrenceList
	err := s.run(ctx, func(ctx context.Context, u *unit) error {
		lessons, err := u.repo.ListLessons(ctx, model.LessonFilter{TutorID: q.TutorID, StudentID: q.StudentID, OpenOnly: true})
		if err != nil {
			return fmt.Errorf("list lessons: %w", err)
		}
		for _, l := range lessons {
			if _, err := u.materializer.Ensure(ctx, l, asOf); err != nil {
				return err
			}
			if l.Open() && l.ExtendedUntil != nil {
				if out.ExtendedUntil == nil || l.ExtendedUntil.Before(*out.ExtendedUntil) {
					eu := *l.ExtendedUntil
					out.ExtendedUntil = &eu
				}
			}
		}

		rows, err := u.repo.ListOccurrenceRows(ctx, model.RowFilter{
			TutorID:   q.TutorID,
			StudentID: q.StudentID,
			From:      q.From,
			To:        q.To,
		})
		if err != nil {
			return fmt.Errorf("list occurrences: %w", err)
		}
		out.Occurrences = overlay.Visible(rows)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

type ClashQuery struct {
	TutorID             *int64    `json:"tutor_id" validate:"required_without=StudentID"`
	StudentID           *int64    `json:"student_id" validate:"required_without=TutorID"`
	Start               time.Time `json:"start" validate:"required"`
	End                 time.Time `json:"end" validate:"required,gtfield=Start"`
	ExcludeOccurrenceID *int64    `json:"exclude_occurrence_id,omitempty"`
}

type ClashResult struct {
	Clash       bool              `json:"clash"`
	Count       int               `json:"count"`
	Occurrences []model.Effective `json:"occurrences,omitempty"`
}

// Err ErrConflict при пересечении; запись он не блокирует
func (r *ClashResult) Err() error {
	if !r.Clash {
		return nil
	}
	return fmt.Errorf("%w: %d overlapping occurrences", ErrConflict, r.Count)
}

// CheckClash ищет занятия тьютора или ученика, строго пересекающие окно
func (s *LessonService) CheckClash(ctx context.Context, q ClashQuery) (*ClashResult, error) {
	if err := validateInput(q); err != nil {
		return nil, err
	}

	res := &ClashResult{}
	err := s.run(ctx, func(ctx context.Context, u *unit) error {
		lessons, err := u.repo.ListLessons(ctx, model.LessonFilter{TutorID: q.TutorID, StudentID: q.StudentID, OpenOnly: true})
		if err != nil {
			return fmt.Errorf("list lessons: %w", err)
		}
		for _, l := range lessons {
			if _, err := u.materializer.Ensure(ctx, l, q.End); err != nil {
				return err
			}
		}

		from := recurrence.Day(q.Start).AddDate(0, 0, -1)
		to := q.End.Add(24 * time.Hour)
		rows, err := u.repo.ListOccurrenceRows(ctx, model.RowFilter{
			TutorID:   q.TutorID,
			StudentID: q.StudentID,
			From:      &from,
			To:        &to,
		})
		if err != nil {
			return fmt.Errorf("list occurrences: %w", err)
		}
		for _, eff := range overlay.Visible(rows) {
			if q.ExcludeOccurrenceID != nil && eff.OccurrenceID == *q.ExcludeOccurrenceID {
				continue
			}
			if overlay.Overlaps(eff, q.Start, q.End) {
				res.Occurrences = append(res.Occurrences, eff)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	res.Count = len(res.Occurrences)
	res.Clash = res.Count > 0
	return res, nil
}

type CreateLessonInput struct {
	Title       string           `json:"title" validate:"required,max=200"`
	Description string           `json:"description" validate:"max=2000"`
	StartTime   time.Time        `json:"start_time" validate:"required"`
	EndTime     time.Time        `json:"end_time" validate:"required,gtfield=StartTime"`
	TutorID     int64            `json:"tutor_id" validate:"required,gt=0"`
	StudentID   int64            `json:"student_id" validate:"required,gt=0"`
	SubjectID   int64            `json:"subject_id" validate:"required,gt=0"`
	LocationID  int64            `json:"location_id" validate:"required,gt=0"`
	Rule        *recurrence.Rule `json:"rule,omitempty"`
}

// CreateLesson создаёт серию и сразу материализует её от первого занятия
func (s *LessonService) CreateLesson(ctx context.Context, in CreateLessonInput) (*model.Lesson, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if in.Rule != nil && !in.Rule.Known() {
		return nil, validationf("unsupported frequency %q", in.Rule.Frequency)
	}

	lesson := &model.Lesson{
		Title:       in.Title,
		Description: in.Description,
		StartTime:   in.StartTime.UTC(),
		EndTime:     in.EndTime.UTC(),
		TutorID:     in.TutorID,
		StudentID:   in.StudentID,
		SubjectID:   in.SubjectID,
		LocationID:  in.LocationID,
		CreatedAt:   s.now(),
	}
	if in.Rule != nil {
		lesson.Rule = in.Rule.WithUntil(in.Rule.Until)
	}

	err := s.run(ctx, func(ctx context.Context, u *unit) error {
		r := refs{tutorID: &in.TutorID, studentID: &in.StudentID, subjectID: &in.SubjectID, locationID: &in.LocationID}
		if err := r.check(ctx, u.repo); err != nil {
			return err
		}
		if err := u.repo.CreateLesson(ctx, lesson); err != nil {
			return fmt.Errorf("create lesson: %w", err)
		}
		_, err := u.materializer.Ensure(ctx, lesson, later(s.now(), lesson.StartTime))
		return err
	})
	if err != nil {
		s.logger.Error("Failed to create lesson", zap.Error(err))
		return nil, err
	}

	s.logger.Info("Lesson created",
		zap.Int64("lesson_id", lesson.ID),
		zap.Int64("tutor_id", lesson.TutorID),
		zap.Int64("student_id", lesson.StudentID),
		zap.String("rule", lesson.Rule.String()),
	)
	return lesson, nil
}

type ExceptionInput struct {
	LessonID     int64                `json:"lesson_id" validate:"gte=0"`
	OccurrenceID int64                `json:"occurrence_id" validate:"required,gt=0"`
	Patch        model.ExceptionPatch `json:"patch"`
}

// SaveException записывает переопределение одного занятия. При смене тьютора или даты
// занятие получает счёт новой недели, старый счёт открывается заново.
func (s *LessonService) SaveException(ctx context.Context, in ExceptionInput) (*model.Effective, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	var out model.Effective
	err := s.run(ctx, func(ctx context.Context, u *unit) error {
		before, err := s.effective(ctx, u, in.OccurrenceID)
		if err != nil {
			return err
		}
		if in.LessonID != 0 && before.Lesson.ID != in.LessonID {
			return consistencyf("occurrence %d belongs to lesson %d, not %d", in.OccurrenceID, before.Lesson.ID, in.LessonID)
		}
		p := in.Patch
		r := refs{tutorID: p.TutorID, studentID: p.StudentID, subjectID: p.SubjectID, locationID: p.LocationID}
		if err := r.check(ctx, u.repo); err != nil {
			return err
		}

		old := overlay.Apply(before)
		exc := &model.Exception{OccurrenceID: in.OccurrenceID}
		if before.Exception != nil {
			copied := *before.Exception
			exc = &copied
		}
		p.Apply(exc)

		after := before
		after.Exception = exc
		next := overlay.Apply(after)
		if !next.EndTime.After(next.StartTime) {
			return validationf("end time must be after start time")
		}

		// счёт отменённого занятия мог удалить пересчёт: при возврате занятие снова получает счёт
		moved := next.TutorID != old.TutorID || !WeekOf(next.StartTime).Equal(WeekOf(old.StartTime))
		if moved || (!next.Cancelled && next.InvoiceID == nil) {
			invoiceID, err := u.ledger.Assign(ctx, next.TutorID, next.StartTime)
			if err != nil {
				return err
			}
			exc.InvoiceID = &invoiceID
			next.InvoiceID = &invoiceID
		}

		if err := u.repo.SaveException(ctx, exc); err != nil {
			return fmt.Errorf("save exception: %w", err)
		}
		if err := u.ledger.Reopen(ctx, old.InvoiceID, exc.InvoiceID); err != nil {
			return err
		}
		out = next
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Exception saved",
		zap.Int64("occurrence_id", in.OccurrenceID),
		zap.Bool("cancelled", out.Cancelled),
	)
	return &out, nil
}

// effective строка занятия вместе с серией и исключением
func (s *LessonService) effective(ctx context.Context, u *unit, occurrenceID int64) (model.OccurrenceRow, error) {
	rows, err := u.repo.ListOccurrenceRows(ctx, model.RowFilter{OccurrenceIDs: []int64{occurrenceID}, IncludeCancelled: true})
	if err != nil {
		return model.OccurrenceRow{}, fmt.Errorf("get occurrence row: %w", err)
	}
	if len(rows) == 0 {
		return model.OccurrenceRow{}, notFound("occurrence", occurrenceID)
	}
	return rows[0], nil
}

// EditLesson правка серии от выбранного занятия
func (s *LessonService) EditLesson(ctx context.Context, in EditLessonInput) (*EditResult, error) {
	var res *EditResult
	err := s.run(ctx, func(ctx context.Context, u *unit) error {
		var err error
		res, err = u.editor.Edit(ctx, in)
		return err
	})
	if err != nil {
		if !errors.Is(err, ErrValidation) && !errors.Is(err, ErrNotFound) {
			s.logger.Error("Failed to edit lesson",
				zap.Int64("lesson_id", in.LessonID),
				zap.Int64("occurrence_id", in.OccurrenceID),
				zap.Error(err),
			)
		}
		return nil, err
	}
	return res, nil
}

// UpdateOccurrence фактическое время и посещаемость
func (s *LessonService) UpdateOccurrence(ctx context.Context, id int64, p model.OccurrencePatch) (*model.Occurrence, error) {
	if err := validateInput(p); err != nil {
		return nil, err
	}

	var occ *model.Occurrence
	err := s.run(ctx, func(ctx context.Context, u *unit) error {
		var err error
		occ, err = u.repo.GetOccurrence(ctx, id)
		if err != nil {
			return fmt.Errorf("get occurrence: %w", err)
		}
		if occ == nil {
			return notFound("occurrence", id)
		}

		if p.ActualStart != nil {
			t := p.ActualStart.UTC()
			occ.ActualStart = &t
		}
		if p.ActualEnd != nil {
			t := p.ActualEnd.UTC()
			occ.ActualEnd = &t
		}
		if occ.ActualStart != nil && occ.ActualEnd != nil && !occ.ActualEnd.After(*occ.ActualStart) {
			return validationf("actual end must be after actual start")
		}
		if p.Attendance != nil {
			occ.Attendance = *p.Attendance
		}
		if p.AttendanceCode != nil {
			occ.AttendanceCode = *p.AttendanceCode
		}

		if err := u.repo.UpdateOccurrence(ctx, occ); err != nil {
			return fmt.Errorf("update occurrence: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return occ, nil
}

// Timetable занятия с именами участников для выгрузки
func (s *LessonService) Timetable(ctx context.Context, q OccurrenceQuery) ([]model.TimetableEntry, error) {
	list, err := s.ListOccurrences(ctx, q)
	if err != nil {
		return nil, err
	}

	out := make([]model.TimetableEntry, 0, len(list.Occurrences))
	err = s.run(ctx, func(ctx context.Context, u *unit) error {
		names := newNameCache(u.repo)
		for _, eff := range list.Occurrences {
			entry := model.TimetableEntry{Occurrence: eff}
			var err error
			if entry.Tutor, err = names.tutor(ctx, eff.TutorID); err != nil {
				return err
			}
			if entry.Student, err = names.student(ctx, eff.StudentID); err != nil {
				return err
			}
			if entry.Subject, err = names.subject(ctx, eff.SubjectID); err != nil {
				return err
			}
			if entry.Location, err = names.location(ctx, eff.LocationID); err != nil {
				return err
			}
			out = append(out, entry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
