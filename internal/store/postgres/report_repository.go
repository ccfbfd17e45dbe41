package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/orlandoalexander/educatch/internal/model"
)

type ReportRepository struct {
	db DBTX
}

func NewReportRepository(db DBTX) *ReportRepository {
	return &ReportRepository{db: db}
}

// EnsureReports чинит в том числе занятия, оставшиеся без отчёта после прошлых сбоев
func (r *ReportRepository) EnsureReports(ctx context.Context) (int, error) {
	query := `
		INSERT INTO reports (occurrence_id, status)
		SELECT o.id, 'empty'
		FROM lesson_occurrences o
		LEFT JOIN reports r ON r.occurrence_id = o.id
		WHERE r.id IS NULL
		ORDER BY o.id
		ON CONFLICT (occurrence_id) DO NOTHING
	`

	tag, err := r.db.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("ensure reports: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *ReportRepository) getReport(ctx context.Context, column string, id int64) (*model.Report, error) {
	var rep model.Report
	err := r.db.QueryRow(ctx,
		`SELECT id, occurrence_id, status, safeguarding_concern FROM reports WHERE `+column+` = $1`, id,
	).Scan(&rep.ID, &rep.OccurrenceID, &rep.Status, &rep.SafeguardingConcern)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get report by %s: %w", column, err)
	}
	return &rep, nil
}

func (r *ReportRepository) GetReport(ctx context.Context, id int64) (*model.Report, error) {
	return r.getReport(ctx, "id", id)
}

func (r *ReportRepository) GetReportByOccurrence(ctx context.Context, occurrenceID int64) (*model.Report, error) {
	return r.getReport(ctx, "occurrence_id", occurrenceID)
}

func (r *ReportRepository) MoveReport(ctx context.Context, reportID, occurrenceID int64) error {
	tag, err := r.db.Exec(ctx, `UPDATE reports SET occurrence_id = $2 WHERE id = $1`, reportID, occurrenceID)
	if err != nil {
		return fmt.Errorf("move report: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("move report %d: %w", reportID, pgx.ErrNoRows)
	}
	return nil
}

func (r *ReportRepository) UpdateReport(ctx context.Context, rep *model.Report) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE reports SET status = $2, safeguarding_concern = $3 WHERE id = $1`,
		rep.ID, rep.Status, rep.SafeguardingConcern,
	)
	if err != nil {
		return fmt.Errorf("update report: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update report %d: %w", rep.ID, pgx.ErrNoRows)
	}
	return nil
}

func (r *ReportRepository) ListAnswers(ctx context.Context, reportID int64) ([]model.ReportAnswer, error) {
	rows, err := r.db.Query(ctx,
		`SELECT report_id, question_id, value FROM report_answers WHERE report_id = $1 ORDER BY question_id`, reportID)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	defer rows.Close()

	var out []model.ReportAnswer
	for rows.Next() {
		var a model.ReportAnswer
		if err := rows.Scan(&a.ReportID, &a.QuestionID, &a.Value); err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *ReportRepository) SaveAnswer(ctx context.Context, a model.ReportAnswer) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO report_answers (report_id, question_id, value)
		VALUES ($1, $2, $3)
		ON CONFLICT (report_id, question_id) DO UPDATE SET value = EXCLUDED.value
	`, a.ReportID, a.QuestionID, a.Value)
	if err != nil {
		return fmt.Errorf("save answer: %w", err)
	}
	return nil
}

func (r *ReportRepository) DeleteAnswer(ctx context.Context, reportID, questionID int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM report_answers WHERE report_id = $1 AND question_id = $2`, reportID, questionID)
	if err != nil {
		return fmt.Errorf("delete answer: %w", err)
	}
	return nil
}

func (r *ReportRepository) ListQuestions(ctx context.Context) ([]model.ReportQuestion, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, title, type, options, hidden, sort_order FROM report_questions ORDER BY sort_order, id`)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	var out []model.ReportQuestion
	for rows.Next() {
		var q model.ReportQuestion
		if err := rows.Scan(&q.ID, &q.Title, &q.Type, &q.Options, &q.Hidden, &q.Order); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}
