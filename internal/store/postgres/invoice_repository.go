package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/orlandoalexander/educatch/internal/model"
)

type InvoiceRepository struct {
	db DBTX
}

func NewInvoiceRepository(db DBTX) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

// EnsureInvoice идемпотентна по (tutor_id, week): при гонке побеждает первая вставка
func (r *InvoiceRepository) EnsureInvoice(ctx context.Context, tutorID int64, week time.Time, status model.InvoiceStatus) (*model.Invoice, error) {
	_, err := r.db.Exec(ctx, `
		INSERT INTO invoices (tutor_id, week, status)
		VALUES ($1, $2, $3)
		ON CONFLICT (tutor_id, week) DO NOTHING
	`, tutorID, week, status)
	if err != nil {
		return nil, fmt.Errorf("insert invoice: %w", err)
	}

	var inv model.Invoice
	err = r.db.QueryRow(ctx, `
		SELECT id, week, tutor_id, status FROM invoices WHERE tutor_id = $1 AND week = $2
	`, tutorID, week).Scan(&inv.ID, &inv.Week, &inv.TutorID, &inv.Status)
	if err != nil {
		return nil, fmt.Errorf("select invoice: %w", err)
	}
	return &inv, nil
}

func (r *InvoiceRepository) GetInvoice(ctx context.Context, id int64) (*model.Invoice, error) {
	var inv model.Invoice
	err := r.db.QueryRow(ctx, `SELECT id, week, tutor_id, status FROM invoices WHERE id = $1`, id).
		Scan(&inv.ID, &inv.Week, &inv.TutorID, &inv.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get invoice by id: %w", err)
	}
	return &inv, nil
}

func (r *InvoiceRepository) ListInvoices(ctx context.Context, f model.InvoiceFilter) ([]*model.Invoice, error) {
	var w where
	if f.TutorID != nil {
		w.add("tutor_id = ?", *f.TutorID)
	}
	if len(f.IDs) > 0 {
		w.add("id = ANY(?)", f.IDs)
	}
	if f.FromWeek != nil {
		w.add("week >= ?", *f.FromWeek)
	}
	if f.ToWeek != nil {
		w.add("week <= ?", *f.ToWeek)
	}

	rows, err := r.db.Query(ctx, `SELECT id, week, tutor_id, status FROM invoices `+w.String()+` ORDER BY week, id`, w.args...)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()

	var out []*model.Invoice
	for rows.Next() {
		var inv model.Invoice
		if err := rows.Scan(&inv.ID, &inv.Week, &inv.TutorID, &inv.Status); err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		out = append(out, &inv)
	}
	return out, rows.Err()
}

func (r *InvoiceRepository) UpdateInvoiceStatus(ctx context.Context, ids []int64, status model.InvoiceStatus) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := r.db.Exec(ctx, `UPDATE invoices SET status = $2 WHERE id = ANY($1)`, ids, status); err != nil {
		return fmt.Errorf("update invoice status: %w", err)
	}
	return nil
}

// DeleteInvoices ссылки из занятий обнуляются через ON DELETE SET NULL
func (r *InvoiceRepository) DeleteInvoices(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := r.db.Exec(ctx, `DELETE FROM invoices WHERE id = ANY($1)`, ids); err != nil {
		return fmt.Errorf("delete invoices: %w", err)
	}
	return nil
}

func (r *InvoiceRepository) InvoiceUsage(ctx context.Context, tutorID *int64) ([]model.InvoiceUsage, error) {
	query := `
		SELECT i.id, i.week, i.tutor_id, i.status,
		       COUNT(x.occurrence_id),
		       COUNT(x.occurrence_id) FILTER (WHERE x.report_status IS DISTINCT FROM 'submitted')
		FROM invoices i
		LEFT JOIN (
			SELECT o.id AS occurrence_id,
			       COALESCE(e.invoice_id, o.invoice_id) AS invoice_id,
			       COALESCE(e.tutor_id, l.tutor_id) AS tutor_id,
			       r.status AS report_status
			FROM lesson_occurrences o
			JOIN lessons l ON l.id = o.lesson_id
			LEFT JOIN lesson_exceptions e ON e.occurrence_id = o.id
			LEFT JOIN reports r ON r.occurrence_id = o.id
			WHERE e.kind IS DISTINCT FROM 'CANCEL'
		) x ON x.invoice_id = i.id AND x.tutor_id = i.tutor_id
		WHERE $1::bigint IS NULL OR i.tutor_id = $1
		GROUP BY i.id
		ORDER BY i.id
	`

	rows, err := r.db.Query(ctx, query, tutorID)
	if err != nil {
		return nil, fmt.Errorf("invoice usage: %w", err)
	}
	defer rows.Close()

	var out []model.InvoiceUsage
	for rows.Next() {
		var u model.InvoiceUsage
		inv := &u.Invoice
		if err := rows.Scan(&inv.ID, &inv.Week, &inv.TutorID, &inv.Status, &u.Live, &u.Pending); err != nil {
			return nil, fmt.Errorf("scan invoice usage: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *InvoiceRepository) ClearExceptionInvoices(ctx context.Context, invoiceIDs []int64) error {
	if len(invoiceIDs) == 0 {
		return nil
	}
	_, err := r.db.Exec(ctx, `UPDATE lesson_exceptions SET invoice_id = NULL WHERE invoice_id = ANY($1)`, invoiceIDs)
	if err != nil {
		return fmt.Errorf("clear exception invoices: %w", err)
	}
	return nil
}
