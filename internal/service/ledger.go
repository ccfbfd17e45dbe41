package service

import (
	"context"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/orlandoalexander/educatch/internal/model"
	"github.com/orlandoalexander/educatch/internal/recurrence"
	"github.com/orlandoalexander/educatch/internal/store"
)

// WeekOf понедельник недели, в которую попадает t (UTC)
func WeekOf(t time.Time) time.Time {
	d := recurrence.Day(t)
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}

// Ledger недельные счета тьюторов: выдача счёта по дате и пересчёт статусов
type Ledger struct {
	repo   store.InvoiceRepo
	now    Clock
	logger *zap.Logger
}

func NewLedger(repo store.InvoiceRepo, now Clock, logger *zap.Logger) *Ledger {
	return &Ledger{repo: repo, now: now, logger: logger}
}

func (l *Ledger) initialStatus(week time.Time) model.InvoiceStatus {
	if week.Before(WeekOf(l.now())) {
		return model.InvoiceIncomplete
	}
	return model.InvoiceUpcoming
}

// Assign возвращает счёт тьютора за неделю даты, создавая его при необходимости
func (l *Ledger) Assign(ctx context.Context, tutorID int64, at time.Time) (int64, error) {
	week := WeekOf(at)
	inv, err := l.repo.EnsureInvoice(ctx, tutorID, week, l.initialStatus(week))
	if err != nil {
		return 0, fmt.Errorf("assign invoice: %w", err)
	}
	return inv.ID, nil
}

// AssignRange то же для всех недель диапазона за один проход; ключ - понедельник недели
func (l *Ledger) AssignRange(ctx context.Context, tutorID int64, from, to time.Time) (map[time.Time]int64, error) {
	first, last := WeekOf(from), WeekOf(to)
	if last.Before(first) {
		first, last = last, first
	}

	existing, err := l.repo.ListInvoices(ctx, model.InvoiceFilter{TutorID: &tutorID, FromWeek: &first, ToWeek: &last})
	if err != nil {
		return nil, fmt.Errorf("list tutor invoices: %w", err)
	}

	out := make(map[time.Time]int64, len(existing))
	for _, inv := range existing {
		out[WeekOf(inv.Week)] = inv.ID
	}

	for week := first; !week.After(last); week = week.AddDate(0, 0, 7) {
		if _, ok := out[week]; ok {
			continue
		}
		inv, err := l.repo.EnsureInvoice(ctx, tutorID, week, l.initialStatus(week))
		if err != nil {
			return nil, fmt.Errorf("assign invoice range: %w", err)
		}
		out[week] = inv.ID
	}
	return out, nil
}

// Reopen возвращает отправленные счета в работу после правки их занятий
func (l *Ledger) Reopen(ctx context.Context, ids ...*int64) error {
	var unique []int64
	for _, id := range ids {
		if id != nil && !slices.Contains(unique, *id) {
			unique = append(unique, *id)
		}
	}
	if len(unique) == 0 {
		return nil
	}

	invoices, err := l.repo.ListInvoices(ctx, model.InvoiceFilter{IDs: unique})
	if err != nil {
		return fmt.Errorf("list invoices to reopen: %w", err)
	}

	var reopen []int64
	for _, inv := range invoices {
		if inv.Status == model.InvoiceSubmitted {
			reopen = append(reopen, inv.ID)
		}
	}
	if len(reopen) == 0 {
		return nil
	}

	if err := l.repo.UpdateInvoiceStatus(ctx, reopen, model.InvoiceIncomplete); err != nil {
		return fmt.Errorf("reopen invoices: %w", err)
	}
	l.logger.Info("Invoices reopened", zap.Int64s("invoice_ids", reopen))
	return nil
}

// SweepResult сколько счетов затронул проход
type SweepResult struct {
	Deleted  int
	Started  int
	Ready    int
	Reverted int
}

func (r SweepResult) Changed() bool {
	return r.Deleted+r.Started+r.Ready+r.Reverted > 0
}

// Sweep пересчитывает статусы по текущим занятиям и отчётам.
// Пишет только изменившиеся строки, поэтому повторный проход ничего не меняет.
// paid и submitted ставит только пользователь.
func (l *Ledger) Sweep(ctx context.Context) (SweepResult, error) {
	var res SweepResult

	usage, err := l.repo.InvoiceUsage(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("load invoice usage: %w", err)
	}

	current := WeekOf(l.now())
	var empty []int64
	moves := make(map[model.InvoiceStatus][]int64)

	for _, u := range usage {
		inv := u.Invoice
		if u.Live == 0 {
			empty = append(empty, inv.ID)
			continue
		}

		status := inv.Status
		if status == model.InvoiceUpcoming && WeekOf(inv.Week).Before(current) {
			status = model.InvoiceIncomplete
			res.Started++
		}
		switch {
		case status == model.InvoiceIncomplete && u.Pending == 0:
			status = model.InvoiceReady
			res.Ready++
		case status == model.InvoiceReady && u.Pending > 0:
			status = model.InvoiceIncomplete
			res.Reverted++
		}

		if status != inv.Status {
			moves[status] = append(moves[status], inv.ID)
		}
	}

	if len(empty) > 0 {
		if err := l.repo.ClearExceptionInvoices(ctx, empty); err != nil {
			return res, err
		}
		if err := l.repo.DeleteInvoices(ctx, empty); err != nil {
			return res, err
		}
		res.Deleted = len(empty)
	}

	for _, status := range []model.InvoiceStatus{model.InvoiceIncomplete, model.InvoiceReady} {
		if ids := moves[status]; len(ids) > 0 {
			if err := l.repo.UpdateInvoiceStatus(ctx, ids, status); err != nil {
				return res, err
			}
		}
	}

	if res.Changed() {
		l.logger.Info("Invoice sweep",
			zap.Int("deleted", res.Deleted),
			zap.Int("started", res.Started),
			zap.Int("ready", res.Ready),
			zap.Int("reverted", res.Reverted),
		)
	}
	return res, nil
}
