package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/orlandoalexander/educatch/internal/model"
	"github.com/orlandoalexander/educatch/internal/recurrence"
	"github.com/orlandoalexander/educatch/internal/store"
)

// Materializer лениво превращает правило серии в строки занятий
type Materializer struct {
	repo      store.Repo
	ledger    *Ledger
	reports   *ReportFactory
	lookAhead time.Duration
	logger    *zap.Logger
}

func NewMaterializer(repo store.Repo, ledger *Ledger, reports *ReportFactory, lookAhead time.Duration, logger *zap.Logger) *Materializer {
	return &Materializer{
		repo:      repo,
		ledger:    ledger,
		reports:   reports,
		lookAhead: lookAhead,
		logger:    logger,
	}
}

// Ensure гарантирует, что у серии созданы занятия по дату through.
// Открытая серия продлевается на lookAhead вперёд, граница UNTIL правила сильнее.
// Возвращает число вставленных занятий; lesson.ExtendedUntil обновляется на месте.
func (m *Materializer) Ensure(ctx context.Context, lesson *model.Lesson, through time.Time) (int, error) {
	if lesson.Rule == nil || !lesson.Rule.Known() {
		return m.ensureSingle(ctx, lesson)
	}

	through = recurrence.Day(through)
	if lesson.ExtendedUntil != nil && !lesson.ExtendedUntil.Before(through) {
		return 0, nil
	}

	bound := recurrence.Day(through.Add(m.lookAhead))
	if until := lesson.Rule.Until; until != nil && recurrence.Day(*until).Before(bound) {
		bound = recurrence.Day(*until)
	}
	if lesson.ExtendedUntil != nil && !lesson.ExtendedUntil.Before(bound) {
		return 0, nil
	}

	anchor := recurrence.Window{Start: lesson.StartTime, End: lesson.EndTime}
	windows := recurrence.Collect(recurrence.Expand(anchor, lesson.Rule, lesson.ExtendedUntil, bound))

	// проход упёрся в лимит: продолжим со следующего вызова
	if len(windows) >= recurrence.MaxWindowsPerPass {
		bound = recurrence.Day(windows[len(windows)-1].Start)
	}

	inserted := 0
	if len(windows) > 0 {
		invoices, err := m.ledger.AssignRange(ctx, lesson.TutorID, windows[0].Start, windows[len(windows)-1].Start)
		if err != nil {
			return 0, err
		}

		batch := make([]*model.Occurrence, 0, len(windows))
		for _, w := range windows {
			invoiceID := invoices[WeekOf(w.Start)]
			batch = append(batch, &model.Occurrence{
				LessonID:  lesson.ID,
				StartTime: w.Start,
				EndTime:   w.End,
				InvoiceID: &invoiceID,
			})
		}

		inserted, err = m.repo.InsertOccurrences(ctx, batch)
		if err != nil {
			return 0, fmt.Errorf("insert occurrences: %w", err)
		}
	}

	if _, err := m.reports.EnsureReports(ctx); err != nil {
		return 0, err
	}
	if err := m.advance(ctx, lesson, bound); err != nil {
		return 0, err
	}

	m.logger.Debug("Lesson materialized",
		zap.Int64("lesson_id", lesson.ID),
		zap.Int("inserted", inserted),
		zap.Time("extended_until", bound),
	)
	return inserted, nil
}

// ensureSingle одиночное занятие создаётся один раз
func (m *Materializer) ensureSingle(ctx context.Context, lesson *model.Lesson) (int, error) {
	if lesson.ExtendedUntil != nil {
		return 0, nil
	}

	invoiceID, err := m.ledger.Assign(ctx, lesson.TutorID, lesson.StartTime)
	if err != nil {
		return 0, err
	}
	inserted, err := m.repo.InsertOccurrences(ctx, []*model.Occurrence{{
		LessonID:  lesson.ID,
		StartTime: lesson.StartTime,
		EndTime:   lesson.EndTime,
		InvoiceID: &invoiceID,
	}})
	if err != nil {
		return 0, fmt.Errorf("insert occurrence: %w", err)
	}

	if _, err := m.reports.EnsureReports(ctx); err != nil {
		return 0, err
	}
	if err := m.advance(ctx, lesson, recurrence.Day(lesson.StartTime)); err != nil {
		return 0, err
	}
	return inserted, nil
}

func (m *Materializer) advance(ctx context.Context, lesson *model.Lesson, until time.Time) error {
	if err := m.repo.AdvanceExtendedUntil(ctx, lesson.ID, until); err != nil {
		return fmt.Errorf("advance extended_until: %w", err)
	}
	if lesson.ExtendedUntil == nil || until.After(*lesson.ExtendedUntil) {
		lesson.ExtendedUntil = &until
	}
	return nil
}
