package service

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/orlandoalexander/educatch/internal/model"
	"github.com/orlandoalexander/educatch/internal/overlay"
)

// InvoiceService недельные счета тьюторов
type InvoiceService struct {
	*engine
}

type InvoiceQuery struct {
	TutorID  *int64
	FromWeek *time.Time
	ToWeek   *time.Time
}

// ListInvoices пересчитывает статусы и отдаёт счета
func (s *InvoiceService) ListInvoices(ctx context.Context, q InvoiceQuery) ([]*model.Invoice, error) {
	var out []*model.Invoice
	err := s.run(ctx, func(ctx context.Context, u *unit) error {
		if _, err := u.ledger.Sweep(ctx); err != nil {
			return err
		}
		filter := model.InvoiceFilter{TutorID: q.TutorID}
		if q.FromWeek != nil {
			w := WeekOf(*q.FromWeek)
			filter.FromWeek = &w
		}
		if q.ToWeek != nil {
			w := WeekOf(*q.ToWeek)
			filter.ToWeek = &w
		}
		var err error
		out, err = u.repo.ListInvoices(ctx, filter)
		if err != nil {
			return fmt.Errorf("list invoices: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// allowedFrom из каких статусов пользователь может перевести счёт
var allowedFrom = map[model.InvoiceStatus][]model.InvoiceStatus{
	model.InvoiceSubmitted: {model.InvoiceReady, model.InvoiceSubmitted},
	model.InvoicePaid:      {model.InvoiceSubmitted, model.InvoicePaid},
	model.InvoiceReady:     {model.InvoiceSubmitted, model.InvoicePaid, model.InvoiceReady},
}

// UpdateInvoices отправка, оплата или отзыв счетов. Остальные статусы ставит только пересчёт.
func (s *InvoiceService) UpdateInvoices(ctx context.Context, p model.InvoicePatch) ([]*model.Invoice, error) {
	if err := validateInput(p); err != nil {
		return nil, err
	}

	var out []*model.Invoice
	err := s.run(ctx, func(ctx context.Context, u *unit) error {
		if _, err := u.ledger.Sweep(ctx); err != nil {
			return err
		}

		invoices, err := u.repo.ListInvoices(ctx, model.InvoiceFilter{IDs: p.IDs})
		if err != nil {
			return fmt.Errorf("list invoices: %w", err)
		}
		found := make(map[int64]*model.Invoice, len(invoices))
		for _, inv := range invoices {
			found[inv.ID] = inv
		}

		var change []int64
		for _, id := range p.IDs {
			inv, ok := found[id]
			if !ok {
				return notFound("invoice", id)
			}
			if !slices.Contains(allowedFrom[p.Status], inv.Status) {
				return validationf("invoice %d cannot move from %s to %s", id, inv.Status, p.Status)
			}
			if inv.Status != p.Status && !slices.Contains(change, id) {
				change = append(change, id)
			}
		}

		if len(change) > 0 {
			if err := u.repo.UpdateInvoiceStatus(ctx, change, p.Status); err != nil {
				return fmt.Errorf("update invoice status: %w", err)
			}
		}
		// отозванный счёт мог стать неполным
		if _, err := u.ledger.Sweep(ctx); err != nil {
			return err
		}

		out, err = u.repo.ListInvoices(ctx, model.InvoiceFilter{IDs: p.IDs})
		if err != nil {
			return fmt.Errorf("list invoices: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Invoices updated", zap.Int64s("invoice_ids", p.IDs), zap.String("status", string(p.Status)))
	return out, nil
}

// Sweep пересчёт статусов всех счетов текущего хранилища
func (s *InvoiceService) Sweep(ctx context.Context) (SweepResult, error) {
	var res SweepResult
	err := s.run(ctx, func(ctx context.Context, u *unit) error {
		var err error
		res, err = u.ledger.Sweep(ctx)
		return err
	})
	return res, err
}

// InvoiceLine занятия одного ученика в счёте
type InvoiceLine struct {
	StudentID    int64              `json:"student_id"`
	Student      string             `json:"student"`
	Occurrences  []model.Effective  `json:"occurrences"`
	Hours        decimal.Decimal    `json:"hours"`
	ReportStatus model.ReportStatus `json:"report_status"`
	Amount       decimal.Decimal    `json:"amount"`
}

type InvoiceSummary struct {
	Invoice model.Invoice   `json:"invoice"`
	Tutor   string          `json:"tutor"`
	Rate    decimal.Decimal `json:"rate"`
	Lines   []InvoiceLine   `json:"lines"`
	Hours   decimal.Decimal `json:"hours"`
	Amount  decimal.Decimal `json:"amount"`
}

// InvoiceLessons занятия счёта по ученикам с часами и суммой по ставке тьютора
func (s *InvoiceService) InvoiceLessons(ctx context.Context, invoiceID int64) (*InvoiceSummary, error) {
	var out InvoiceSummary
	err := s.run(ctx, func(ctx context.Context, u *unit) error {
		if _, err := u.ledger.Sweep(ctx); err != nil {
			return err
		}
		inv, err := u.repo.GetInvoice(ctx, invoiceID)
		if err != nil {
			return fmt.Errorf("get invoice: %w", err)
		}
		if inv == nil {
			return notFound("invoice", invoiceID)
		}
		tutor, err := u.repo.GetTutor(ctx, inv.TutorID)
		if err != nil {
			return fmt.Errorf("get tutor: %w", err)
		}
		if tutor == nil {
			return notFound("tutor", inv.TutorID)
		}

		rows, err := u.repo.ListOccurrenceRows(ctx, model.RowFilter{InvoiceID: &invoiceID})
		if err != nil {
			return fmt.Errorf("list invoice occurrences: %w", err)
		}

		out = InvoiceSummary{Invoice: *inv, Tutor: tutor.Name, Rate: tutor.Rate, Hours: decimal.Zero, Amount: decimal.Zero}
		byStudent := make(map[int64]*InvoiceLine)
		statuses := make(map[int64][]model.ReportStatus)
		names := newNameCache(u.repo)

		for _, eff := range overlay.Visible(rows) {
			if eff.TutorID != inv.TutorID {
				continue
			}
			line, ok := byStudent[eff.StudentID]
			if !ok {
				name, err := names.student(ctx, eff.StudentID)
				if err != nil {
					return err
				}
				line = &InvoiceLine{StudentID: eff.StudentID, Student: name, Hours: decimal.Zero}
				byStudent[eff.StudentID] = line
			}
			line.Occurrences = append(line.Occurrences, eff)
			line.Hours = line.Hours.Add(hours(eff))
			statuses[eff.StudentID] = append(statuses[eff.StudentID], eff.ReportStatus)
		}

		for id, line := range byStudent {
			line.ReportStatus = aggregateStatus(statuses[id])
			line.Amount = line.Hours.Mul(tutor.Rate).Round(2)
			out.Hours = out.Hours.Add(line.Hours)
			out.Amount = out.Amount.Add(line.Amount)
			out.Lines = append(out.Lines, *line)
		}
		slices.SortFunc(out.Lines, func(a, b InvoiceLine) int { return cmp.Compare(a.StudentID, b.StudentID) })
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// hours длительность занятия в часах; фактическое время важнее планового
func hours(eff model.Effective) decimal.Decimal {
	start, end := eff.StartTime, eff.EndTime
	if eff.ActualStart != nil && eff.ActualEnd != nil {
		start, end = *eff.ActualStart, *eff.ActualEnd
	}
	minutes := decimal.NewFromInt(int64(end.Sub(start) / time.Minute))
	return minutes.Div(decimal.NewFromInt(60)).Round(2)
}

// aggregateStatus общий статус группы отчётов
func aggregateStatus(statuses []model.ReportStatus) model.ReportStatus {
	if len(statuses) == 0 {
		return model.ReportEmpty
	}
	submitted, empty := 0, 0
	for _, st := range statuses {
		switch st {
		case model.ReportSubmitted:
			submitted++
		case model.ReportEmpty, "":
			empty++
		}
	}
	switch {
	case submitted == len(statuses):
		return model.ReportSubmitted
	case empty == len(statuses):
		return model.ReportEmpty
	}
	return model.ReportIncomplete
}
