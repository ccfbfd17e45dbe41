package service

import (
	"context"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/orlandoalexander/educatch/internal/model"
	"github.com/orlandoalexander/educatch/internal/overlay"
	"github.com/orlandoalexander/educatch/internal/recurrence"
	"github.com/orlandoalexander/educatch/internal/store"
)

type EditScope string

const (
	ScopeModify EditScope = "MODIFY"
	ScopeDelete EditScope = "DELETE"
)

type EditLessonInput struct {
	LessonID     int64             `json:"lesson_id" validate:"required,gt=0"`
	OccurrenceID int64             `json:"occurrence_id" validate:"required,gt=0"`
	Scope        EditScope         `json:"scope" validate:"required,oneof=MODIFY DELETE"`
	Patch        model.LessonPatch `json:"patch"`
}

// EditResult что сделала правка. LessonID серия, которой теперь принадлежит занятие.
type EditResult struct {
	LessonID     int64 `json:"lesson_id"`
	OccurrenceID int64 `json:"occurrence_id"`
	Forked       bool  `json:"forked"`
	Truncated    bool  `json:"truncated"`
	Deleted      bool  `json:"deleted"`
	Cancelled    bool  `json:"cancelled"`
}

// SeriesEditor правка серии от выбранного занятия: на месте, обрезка или разделение
type SeriesEditor struct {
	repo         store.Repo
	ledger       *Ledger
	reports      *ReportFactory
	materializer *Materializer
	now          Clock
	logger       *zap.Logger
}

func NewSeriesEditor(repo store.Repo, ledger *Ledger, reports *ReportFactory, materializer *Materializer, now Clock, logger *zap.Logger) *SeriesEditor {
	return &SeriesEditor{
		repo:         repo,
		ledger:       ledger,
		reports:      reports,
		materializer: materializer,
		now:          now,
		logger:       logger,
	}
}

func (s *SeriesEditor) Edit(ctx context.Context, in EditLessonInput) (*EditResult, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	lesson, occ, err := s.load(ctx, in.LessonID, in.OccurrenceID)
	if err != nil {
		return nil, err
	}

	if in.Scope == ScopeDelete {
		return s.remove(ctx, lesson, occ)
	}

	p := &in.Patch
	start, end, err := s.checkPatch(ctx, occ, p)
	if err != nil {
		return nil, err
	}

	switch {
	case !recurs(lesson):
		return s.modifySingle(ctx, lesson, occ, p, start, end)
	case structural(lesson, occ, p, start):
		return s.fork(ctx, lesson, occ, p, start, end)
	default:
		return s.tweak(ctx, lesson, occ, p, start, end)
	}
}

func (s *SeriesEditor) load(ctx context.Context, lessonID, occurrenceID int64) (*model.Lesson, *model.Occurrence, error) {
	lesson, err := s.repo.GetLesson(ctx, lessonID)
	if err != nil {
		return nil, nil, fmt.Errorf("get lesson: %w", err)
	}
	if lesson == nil {
		return nil, nil, notFound("lesson", lessonID)
	}
	occ, err := s.repo.GetOccurrence(ctx, occurrenceID)
	if err != nil {
		return nil, nil, fmt.Errorf("get occurrence: %w", err)
	}
	if occ == nil {
		return nil, nil, notFound("occurrence", occurrenceID)
	}
	if occ.LessonID != lesson.ID {
		return nil, nil, consistencyf("occurrence %d belongs to lesson %d, not %d", occ.ID, occ.LessonID, lesson.ID)
	}
	return lesson, occ, nil
}

// checkPatch проверяет патч и считает новое время занятия.
// Если задан только новый старт, длительность сохраняется.
func (s *SeriesEditor) checkPatch(ctx context.Context, occ *model.Occurrence, p *model.LessonPatch) (time.Time, time.Time, error) {
	var zero time.Time
	if p.Rule != nil && p.RemoveRule {
		return zero, zero, validationf("rule and remove_rule are mutually exclusive")
	}
	if p.Rule != nil && !p.Rule.Known() {
		return zero, zero, validationf("unsupported frequency %q", p.Rule.Frequency)
	}

	start := occ.StartTime
	if p.StartTime != nil {
		start = p.StartTime.UTC()
	}
	end := start.Add(occ.EndTime.Sub(occ.StartTime))
	if p.EndTime != nil {
		end = p.EndTime.UTC()
	}
	if !end.After(start) {
		return zero, zero, validationf("end time must be after start time")
	}

	err := refs{tutorID: p.TutorID, studentID: p.StudentID, subjectID: p.SubjectID, locationID: p.LocationID}.check(ctx, s.repo)
	return start, end, err
}

func recurs(l *model.Lesson) bool {
	return l.Rule != nil && l.Rule.Known()
}

// structural смена участников, частоты или интервала, либо перенос на другой день
func structural(l *model.Lesson, occ *model.Occurrence, p *model.LessonPatch, start time.Time) bool {
	if p.Participants(l) {
		return true
	}
	if p.Rule != nil && !p.Rule.SameShape(l.Rule) {
		return true
	}
	return !recurrence.Day(start).Equal(recurrence.Day(occ.StartTime))
}

func (s *SeriesEditor) remove(ctx context.Context, lesson *model.Lesson, occ *model.Occurrence) (*EditResult, error) {
	res := &EditResult{LessonID: lesson.ID, OccurrenceID: occ.ID}

	if !recurs(lesson) {
		exc, err := s.repo.GetException(ctx, occ.ID)
		if err != nil {
			return nil, fmt.Errorf("get exception: %w", err)
		}
		if exc == nil {
			exc = &model.Exception{OccurrenceID: occ.ID}
		}
		exc.Kind = model.ExceptionCancel
		if err := s.repo.SaveException(ctx, exc); err != nil {
			return nil, fmt.Errorf("save exception: %w", err)
		}
		if err := s.ledger.Reopen(ctx, occ.InvoiceID, exc.InvoiceID); err != nil {
			return nil, err
		}
		res.Cancelled = true
		s.logger.Info("Occurrence cancelled", zap.Int64("lesson_id", lesson.ID), zap.Int64("occurrence_id", occ.ID))
		return res, nil
	}

	prev, err := s.previous(ctx, lesson.ID, occ)
	if err != nil {
		return nil, err
	}

	if prev == nil {
		invoices, err := s.cut(ctx, lesson.ID, time.Time{})
		if err != nil {
			return nil, err
		}
		if err := s.repo.DeleteLesson(ctx, lesson.ID); err != nil {
			return nil, fmt.Errorf("delete lesson: %w", err)
		}
		if err := s.ledger.Reopen(ctx, invoices...); err != nil {
			return nil, err
		}
		res.LessonID = 0
		res.Deleted = true
		s.logger.Info("Lesson deleted", zap.Int64("lesson_id", lesson.ID))
		return res, nil
	}

	invoices, err := s.truncate(ctx, lesson, prev, occ.StartTime)
	if err != nil {
		return nil, err
	}
	if err := s.ledger.Reopen(ctx, invoices...); err != nil {
		return nil, err
	}
	res.Truncated = true
	s.logger.Info("Lesson truncated",
		zap.Int64("lesson_id", lesson.ID),
		zap.Time("until", prev.StartTime),
	)
	return res, nil
}

// previous занятие серии непосредственно перед occ по базовому времени
func (s *SeriesEditor) previous(ctx context.Context, lessonID int64, occ *model.Occurrence) (*model.Occurrence, error) {
	all, err := s.repo.ListLessonOccurrences(ctx, lessonID)
	if err != nil {
		return nil, fmt.Errorf("list lesson occurrences: %w", err)
	}

	var prev *model.Occurrence
	found := false
	for _, o := range all {
		if o.ID == occ.ID {
			found = true
			continue
		}
		if o.StartTime.Before(occ.StartTime) {
			prev = o
		}
	}
	if !found {
		return nil, consistencyf("occurrence %d is not materialized under lesson %d", occ.ID, lessonID)
	}
	return prev, nil
}

// cut удаляет занятия серии с базовым стартом не раньше from вместе с исключениями и отчётами.
// Возвращает счета удалённых занятий.
func (s *SeriesEditor) cut(ctx context.Context, lessonID int64, from time.Time, keep ...int64) ([]*int64, error) {
	rows, err := s.repo.ListOccurrenceRows(ctx, model.RowFilter{LessonID: &lessonID, IncludeCancelled: true})
	if err != nil {
		return nil, fmt.Errorf("list lesson rows: %w", err)
	}

	var ids []int64
	var invoices []*int64
	for _, row := range rows {
		if row.Occurrence.StartTime.Before(from) || slices.Contains(keep, row.Occurrence.ID) {
			continue
		}
		ids = append(ids, row.Occurrence.ID)
		invoices = append(invoices, row.Occurrence.InvoiceID, overlay.Apply(row).InvoiceID)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	if err := s.repo.DeleteOccurrences(ctx, ids); err != nil {
		return nil, fmt.Errorf("delete occurrences: %w", err)
	}
	return invoices, nil
}

// truncate заканчивает серию на prev: UNTIL и extended_until становятся датой prev
func (s *SeriesEditor) truncate(ctx context.Context, lesson *model.Lesson, prev *model.Occurrence, from time.Time) ([]*int64, error) {
	invoices, err := s.cut(ctx, lesson.ID, from)
	if err != nil {
		return nil, err
	}

	until := prev.StartTime
	lesson.Rule = lesson.Rule.WithUntil(&until)
	eu := recurrence.Day(until)
	lesson.ExtendedUntil = &eu
	if err := s.repo.UpdateLesson(ctx, lesson); err != nil {
		return nil, fmt.Errorf("update lesson: %w", err)
	}
	return invoices, nil
}

func (s *SeriesEditor) modifySingle(ctx context.Context, lesson *model.Lesson, occ *model.Occurrence, p *model.LessonPatch, start, end time.Time) (*EditResult, error) {
	oldInvoice := occ.InvoiceID

	merged := p.Apply(*lesson)
	merged.StartTime, merged.EndTime = start, end
	eu := recurrence.Day(start)
	merged.ExtendedUntil = &eu
	if p.Rule != nil {
		r := *p.Rule
		merged.Rule = &r
	}

	if merged.TutorID != lesson.TutorID || !start.Equal(occ.StartTime) {
		invoiceID, err := s.ledger.Assign(ctx, merged.TutorID, start)
		if err != nil {
			return nil, err
		}
		occ.InvoiceID = &invoiceID
	}
	occ.StartTime, occ.EndTime = start, end

	if err := s.repo.UpdateLesson(ctx, &merged); err != nil {
		return nil, fmt.Errorf("update lesson: %w", err)
	}
	if err := s.repo.UpdateOccurrence(ctx, occ); err != nil {
		return nil, fmt.Errorf("update occurrence: %w", err)
	}

	if recurs(&merged) {
		if _, err := s.materializer.Ensure(ctx, &merged, later(s.now(), start.AddDate(0, 0, 1))); err != nil {
			return nil, err
		}
	}

	if err := s.ledger.Reopen(ctx, oldInvoice, occ.InvoiceID); err != nil {
		return nil, err
	}
	s.logger.Info("Lesson updated", zap.Int64("lesson_id", lesson.ID), zap.Bool("recurring", recurs(&merged)))
	return &EditResult{LessonID: lesson.ID, OccurrenceID: occ.ID}, nil
}

// nextRule правило серии после патча
func nextRule(l *model.Lesson, p *model.LessonPatch) *recurrence.Rule {
	switch {
	case p.RemoveRule:
		return nil
	case p.Rule != nil:
		return p.Rule.WithUntil(p.Rule.Until)
	case l.Rule != nil:
		return l.Rule.WithUntil(l.Rule.Until)
	}
	return nil
}

func (s *SeriesEditor) fork(ctx context.Context, lesson *model.Lesson, occ *model.Occurrence, p *model.LessonPatch, start, end time.Time) (*EditResult, error) {
	prev, err := s.previous(ctx, lesson.ID, occ)
	if err != nil {
		return nil, err
	}
	if prev == nil {
		return s.reanchor(ctx, lesson, occ, p, start, end)
	}

	merged := p.Apply(*lesson)
	merged.ID = 0
	merged.StartTime, merged.EndTime = start, end
	merged.Rule = nextRule(lesson, p)
	merged.ExtendedUntil = nil
	merged.CreatedAt = s.now()
	if err := s.repo.CreateLesson(ctx, &merged); err != nil {
		return nil, fmt.Errorf("create lesson: %w", err)
	}

	invoiceID, err := s.ledger.Assign(ctx, merged.TutorID, start)
	if err != nil {
		return nil, err
	}
	first := &model.Occurrence{
		LessonID:       merged.ID,
		StartTime:      start,
		EndTime:        end,
		ActualStart:    occ.ActualStart,
		ActualEnd:      occ.ActualEnd,
		Attendance:     occ.Attendance,
		AttendanceCode: occ.AttendanceCode,
		InvoiceID:      &invoiceID,
	}
	if err := s.repo.InsertOccurrence(ctx, first); err != nil {
		return nil, fmt.Errorf("insert first occurrence: %w", err)
	}

	reportID, err := s.reports.Carry(ctx, occ.ID, first.ID)
	if err != nil {
		return nil, err
	}

	invoices, err := s.truncate(ctx, lesson, prev, occ.StartTime)
	if err != nil {
		return nil, err
	}

	eu := recurrence.Day(start)
	if err := s.repo.AdvanceExtendedUntil(ctx, merged.ID, eu); err != nil {
		return nil, fmt.Errorf("advance extended_until: %w", err)
	}
	merged.ExtendedUntil = &eu
	if recurs(&merged) {
		if _, err := s.materializer.Ensure(ctx, &merged, later(s.now(), start.AddDate(0, 0, 1))); err != nil {
			return nil, err
		}
	}

	if err := s.ledger.Reopen(ctx, append(invoices, &invoiceID)...); err != nil {
		return nil, err
	}

	s.logger.Info("Lesson forked",
		zap.Int64("lesson_id", lesson.ID),
		zap.Int64("new_lesson_id", merged.ID),
		zap.Int64("occurrence_id", first.ID),
		zap.Int64("report_id", reportID),
	)
	return &EditResult{LessonID: merged.ID, OccurrenceID: first.ID, Forked: true, Truncated: true}, nil
}

// reanchor структурная правка первого занятия: серия переписывается на месте,
// занятие сохраняет id и отчёт
func (s *SeriesEditor) reanchor(ctx context.Context, lesson *model.Lesson, occ *model.Occurrence, p *model.LessonPatch, start, end time.Time) (*EditResult, error) {
	invoices, err := s.cut(ctx, lesson.ID, time.Time{}, occ.ID)
	if err != nil {
		return nil, err
	}
	invoices = append(invoices, occ.InvoiceID)

	merged := p.Apply(*lesson)
	merged.StartTime, merged.EndTime = start, end
	merged.Rule = nextRule(lesson, p)
	eu := recurrence.Day(start)
	merged.ExtendedUntil = &eu

	invoiceID, err := s.ledger.Assign(ctx, merged.TutorID, start)
	if err != nil {
		return nil, err
	}
	occ.StartTime, occ.EndTime = start, end
	occ.InvoiceID = &invoiceID

	if err := s.repo.UpdateOccurrence(ctx, occ); err != nil {
		return nil, fmt.Errorf("update occurrence: %w", err)
	}
	if err := s.repo.UpdateLesson(ctx, &merged); err != nil {
		return nil, fmt.Errorf("update lesson: %w", err)
	}
	if recurs(&merged) {
		if _, err := s.materializer.Ensure(ctx, &merged, later(s.now(), start.AddDate(0, 0, 1))); err != nil {
			return nil, err
		}
	}

	if err := s.ledger.Reopen(ctx, append(invoices, &invoiceID)...); err != nil {
		return nil, err
	}
	s.logger.Info("Lesson re-anchored", zap.Int64("lesson_id", lesson.ID), zap.Int64("occurrence_id", occ.ID))
	return &EditResult{LessonID: lesson.ID, OccurrenceID: occ.ID}, nil
}

// tweak правка без смены участников и формы правила: время дня, граница UNTIL, название
func (s *SeriesEditor) tweak(ctx context.Context, lesson *model.Lesson, occ *model.Occurrence, p *model.LessonPatch, start, end time.Time) (*EditResult, error) {
	var invoices []*int64
	res := &EditResult{LessonID: lesson.ID, OccurrenceID: occ.ID}

	updated := p.Apply(*lesson)

	delta := start.Sub(occ.StartTime)
	duration := end.Sub(start)
	if delta != 0 || duration != occ.EndTime.Sub(occ.StartTime) {
		all, err := s.repo.ListLessonOccurrences(ctx, lesson.ID)
		if err != nil {
			return nil, fmt.Errorf("list lesson occurrences: %w", err)
		}
		for _, o := range all {
			if o.StartTime.Before(occ.StartTime) {
				continue
			}
			o.StartTime = o.StartTime.Add(delta)
			o.EndTime = o.StartTime.Add(duration)
			if err := s.repo.UpdateOccurrence(ctx, o); err != nil {
				return nil, fmt.Errorf("shift occurrence: %w", err)
			}
			invoices = append(invoices, o.InvoiceID)
		}
		updated.StartTime = lesson.StartTime.Add(delta)
		updated.EndTime = updated.StartTime.Add(duration)
	}

	oldUntil := lesson.Rule.Until
	rule := nextRule(lesson, p)
	if p.RemoveRule {
		// серия заканчивается на этом занятии
		rule = lesson.Rule.WithUntil(&start)
	}
	updated.Rule = rule

	if until := rule.Until; until != nil {
		limit := recurrence.Day(*until).AddDate(0, 0, 1)
		cut, err := s.cut(ctx, lesson.ID, limit)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, cut...)
		res.Truncated = len(cut) > 0

		if updated.ExtendedUntil != nil && updated.ExtendedUntil.After(recurrence.Day(*until)) {
			eu := recurrence.Day(*until)
			updated.ExtendedUntil = &eu
		}
	}

	if err := s.repo.UpdateLesson(ctx, &updated); err != nil {
		return nil, fmt.Errorf("update lesson: %w", err)
	}

	grew := oldUntil != nil && (rule.Until == nil || rule.Until.After(*oldUntil))
	if grew {
		through := s.now()
		if updated.ExtendedUntil != nil {
			through = later(through, updated.ExtendedUntil.AddDate(0, 0, 1))
		}
		if _, err := s.materializer.Ensure(ctx, &updated, through); err != nil {
			return nil, err
		}
	}

	if err := s.ledger.Reopen(ctx, invoices...); err != nil {
		return nil, err
	}
	s.logger.Info("Lesson tweaked",
		zap.Int64("lesson_id", lesson.ID),
		zap.Duration("shift", delta),
		zap.Bool("extended", grew),
		zap.Bool("truncated", res.Truncated),
	)
	return res, nil
}

func later(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}
