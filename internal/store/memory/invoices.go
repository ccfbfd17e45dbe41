package memory

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/orlandoalexander/educatch/internal/model"
	"github.com/orlandoalexander/educatch/internal/overlay"
)

func (r *repo) EnsureInvoice(_ context.Context, tutorID int64, week time.Time, status model.InvoiceStatus) (*model.Invoice, error) {
	for _, inv := range r.st.invoices {
		if inv.TutorID == tutorID && inv.Week.Equal(week) {
			return &inv, nil
		}
	}
	r.st.seq.invoice++
	inv := model.Invoice{ID: r.st.seq.invoice, Week: week, TutorID: tutorID, Status: status}
	r.st.invoices[inv.ID] = inv
	return &inv, nil
}

func (r *repo) GetInvoice(_ context.Context, id int64) (*model.Invoice, error) {
	inv, ok := r.st.invoices[id]
	if !ok {
		return nil, nil
	}
	return &inv, nil
}

func (r *repo) ListInvoices(_ context.Context, filter model.InvoiceFilter) ([]*model.Invoice, error) {
	ids := idSet(filter.IDs)
	var out []*model.Invoice
	for _, inv := range r.st.invoices {
		if filter.TutorID != nil && inv.TutorID != *filter.TutorID {
			continue
		}
		if len(ids) > 0 {
			if _, ok := ids[inv.ID]; !ok {
				continue
			}
		}
		if filter.FromWeek != nil && inv.Week.Before(*filter.FromWeek) {
			continue
		}
		if filter.ToWeek != nil && inv.Week.After(*filter.ToWeek) {
			continue
		}
		c := inv
		out = append(out, &c)
	}
	slices.SortFunc(out, func(a, b *model.Invoice) int {
		if c := a.Week.Compare(b.Week); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (r *repo) UpdateInvoiceStatus(_ context.Context, ids []int64, status model.InvoiceStatus) error {
	for _, id := range ids {
		if inv, ok := r.st.invoices[id]; ok {
			inv.Status = status
			r.st.invoices[id] = inv
		}
	}
	return nil
}

func (r *repo) DeleteInvoices(_ context.Context, ids []int64) error {
	set := idSet(ids)
	for id := range set {
		delete(r.st.invoices, id)
	}
	// как ON DELETE SET NULL
	for id, o := range r.st.occurrences {
		if o.InvoiceID == nil {
			continue
		}
		if _, ok := set[*o.InvoiceID]; ok {
			o.InvoiceID = nil
			r.st.occurrences[id] = o
		}
	}
	return nil
}

func (r *repo) InvoiceUsage(_ context.Context, tutorID *int64) ([]model.InvoiceUsage, error) {
	usage := make(map[int64]*model.InvoiceUsage)
	for _, inv := range r.st.invoices {
		if tutorID != nil && inv.TutorID != *tutorID {
			continue
		}
		usage[inv.ID] = &model.InvoiceUsage{Invoice: inv}
	}

	reports := r.reportsByOccurrence()
	for _, o := range r.st.occurrences {
		eff := overlay.Apply(r.row(o, reports))
		if eff.Cancelled || eff.InvoiceID == nil {
			continue
		}
		u, ok := usage[*eff.InvoiceID]
		if !ok || u.Invoice.TutorID != eff.TutorID {
			continue
		}
		u.Live++
		if eff.ReportStatus != model.ReportSubmitted {
			u.Pending++
		}
	}

	out := make([]model.InvoiceUsage, 0, len(usage))
	for _, u := range usage {
		out = append(out, *u)
	}
	slices.SortFunc(out, func(a, b model.InvoiceUsage) int { return cmp.Compare(a.Invoice.ID, b.Invoice.ID) })
	return out, nil
}

func (r *repo) ClearExceptionInvoices(_ context.Context, invoiceIDs []int64) error {
	set := idSet(invoiceIDs)
	for id, e := range r.st.exceptions {
		if e.InvoiceID == nil {
			continue
		}
		if _, ok := set[*e.InvoiceID]; ok {
			e.InvoiceID = nil
			r.st.exceptions[id] = e
		}
	}
	return nil
}
