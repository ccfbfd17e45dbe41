package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/orlandoalexander/educatch/internal/model"
)

type OccurrenceRepository struct {
	db DBTX
}

func NewOccurrenceRepository(db DBTX) *OccurrenceRepository {
	return &OccurrenceRepository{db: db}
}

const occurrenceColumns = `o.id, o.lesson_id, o.start_time, o.end_time, o.actual_start, o.actual_end,
	o.attendance, o.attendance_code, o.invoice_id`

type occurrenceScan struct {
	occ        model.Occurrence
	attendance *string
	code       *string
}

func (s *occurrenceScan) targets() []any {
	o := &s.occ
	return []any{&o.ID, &o.LessonID, &o.StartTime, &o.EndTime, &o.ActualStart, &o.ActualEnd,
		&s.attendance, &s.code, &o.InvoiceID}
}

func (s *occurrenceScan) finish() *model.Occurrence {
	s.occ.Attendance = model.AttendanceStatus(deref(s.attendance))
	s.occ.AttendanceCode = deref(s.code)
	s.occ.StartTime = s.occ.StartTime.UTC()
	s.occ.EndTime = s.occ.EndTime.UTC()
	return &s.occ
}

// InsertOccurrences вставляет пачку одним запросом; дубликаты по (lesson_id, start_time) пропускаются
func (r *OccurrenceRepository) InsertOccurrences(ctx context.Context, occurrences []*model.Occurrence) (int, error) {
	if len(occurrences) == 0 {
		return 0, nil
	}

	lessonIDs := make([]int64, len(occurrences))
	starts := make([]time.Time, len(occurrences))
	ends := make([]time.Time, len(occurrences))
	invoiceIDs := make([]*int64, len(occurrences))
	for i, o := range occurrences {
		lessonIDs[i] = o.LessonID
		starts[i] = o.StartTime
		ends[i] = o.EndTime
		invoiceIDs[i] = o.InvoiceID
	}

	query := `
		INSERT INTO lesson_occurrences (lesson_id, start_time, end_time, invoice_id)
		SELECT * FROM unnest($1::bigint[], $2::timestamptz[], $3::timestamptz[], $4::bigint[])
		ON CONFLICT (lesson_id, start_time) DO NOTHING
	`

	tag, err := r.db.Exec(ctx, query, lessonIDs, starts, ends, invoiceIDs)
	if err != nil {
		return 0, fmt.Errorf("insert occurrences: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *OccurrenceRepository) InsertOccurrence(ctx context.Context, o *model.Occurrence) error {
	query := `
		INSERT INTO lesson_occurrences (lesson_id, start_time, end_time, actual_start, actual_end,
		                                attendance, attendance_code, invoice_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	err := r.db.QueryRow(ctx, query,
		o.LessonID,
		o.StartTime,
		o.EndTime,
		o.ActualStart,
		o.ActualEnd,
		nullString(string(o.Attendance)),
		nullString(o.AttendanceCode),
		o.InvoiceID,
	).Scan(&o.ID)
	if err != nil {
		return fmt.Errorf("insert occurrence: %w", err)
	}
	return nil
}

func (r *OccurrenceRepository) GetOccurrence(ctx context.Context, id int64) (*model.Occurrence, error) {
	query := `SELECT ` + occurrenceColumns + ` FROM lesson_occurrences o WHERE o.id = $1`

	var s occurrenceScan
	if err := r.db.QueryRow(ctx, query, id).Scan(s.targets()...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get occurrence by id: %w", err)
	}
	return s.finish(), nil
}

func (r *OccurrenceRepository) ListLessonOccurrences(ctx context.Context, lessonID int64) ([]*model.Occurrence, error) {
	query := `SELECT ` + occurrenceColumns + ` FROM lesson_occurrences o WHERE o.lesson_id = $1 ORDER BY o.start_time`

	rows, err := r.db.Query(ctx, query, lessonID)
	if err != nil {
		return nil, fmt.Errorf("list lesson occurrences: %w", err)
	}
	defer rows.Close()

	var out []*model.Occurrence
	for rows.Next() {
		var s occurrenceScan
		if err := rows.Scan(s.targets()...); err != nil {
			return nil, fmt.Errorf("scan occurrence: %w", err)
		}
		out = append(out, s.finish())
	}
	return out, rows.Err()
}

func (r *OccurrenceRepository) UpdateOccurrence(ctx context.Context, o *model.Occurrence) error {
	query := `
		UPDATE lesson_occurrences
		SET lesson_id = $2, start_time = $3, end_time = $4, actual_start = $5, actual_end = $6,
		    attendance = $7, attendance_code = $8, invoice_id = $9
		WHERE id = $1
	`

	tag, err := r.db.Exec(ctx, query,
		o.ID,
		o.LessonID,
		o.StartTime,
		o.EndTime,
		o.ActualStart,
		o.ActualEnd,
		nullString(string(o.Attendance)),
		nullString(o.AttendanceCode),
		o.InvoiceID,
	)
	if err != nil {
		return fmt.Errorf("update occurrence: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update occurrence %d: %w", o.ID, pgx.ErrNoRows)
	}
	return nil
}

// DeleteOccurrences исключения, отчёты и ответы удаляются каскадом
func (r *OccurrenceRepository) DeleteOccurrences(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := r.db.Exec(ctx, `DELETE FROM lesson_occurrences WHERE id = ANY($1)`, ids); err != nil {
		return fmt.Errorf("delete occurrences: %w", err)
	}
	return nil
}

// ListOccurrenceRows фильтрует по эффективным значениям: COALESCE(исключение, база)
func (r *OccurrenceRepository) ListOccurrenceRows(ctx context.Context, f model.RowFilter) ([]model.OccurrenceRow, error) {
	var w where
	if !f.IncludeCancelled {
		w.add("e.kind IS DISTINCT FROM 'CANCEL'")
	}
	switch {
	case f.TutorID != nil && f.StudentID != nil:
		w.add("(COALESCE(e.tutor_id, l.tutor_id) = ? OR COALESCE(e.student_id, l.student_id) = ?)", *f.TutorID, *f.StudentID)
	case f.TutorID != nil:
		w.add("COALESCE(e.tutor_id, l.tutor_id) = ?", *f.TutorID)
	case f.StudentID != nil:
		w.add("COALESCE(e.student_id, l.student_id) = ?", *f.StudentID)
	}
	if f.InvoiceID != nil {
		w.add("COALESCE(e.invoice_id, o.invoice_id) = ?", *f.InvoiceID)
	}
	if f.LessonID != nil {
		w.add("o.lesson_id = ?", *f.LessonID)
	}
	if len(f.OccurrenceIDs) > 0 {
		w.add("o.id = ANY(?)", f.OccurrenceIDs)
	}
	if f.From != nil {
		w.add("COALESCE(e.end_time, o.end_time) > ?", *f.From)
	}
	if f.To != nil {
		w.add("COALESCE(e.start_time, o.start_time) < ?", *f.To)
	}

	query := `
		SELECT ` + lessonColumns + `, ` + occurrenceColumns + `,
		       e.id, e.title, e.description, e.tutor_id, e.student_id, e.subject_id, e.location_id,
		       e.start_time, e.end_time, e.invoice_id, e.kind,
		       r.id, r.status
		FROM lesson_occurrences o
		JOIN lessons l ON l.id = o.lesson_id
		LEFT JOIN lesson_exceptions e ON e.occurrence_id = o.id
		LEFT JOIN reports r ON r.occurrence_id = o.id
		` + w.String() + `
		ORDER BY COALESCE(e.start_time, o.start_time), o.id
	`

	rows, err := r.db.Query(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("list occurrence rows: %w", err)
	}
	defer rows.Close()

	var out []model.OccurrenceRow
	for rows.Next() {
		var (
			ls           lessonScan
			oc           occurrenceScan
			exc          model.Exception
			excID        *int64
			kind         *string
			reportStatus *string
			row          model.OccurrenceRow
		)

		targets := append(ls.targets(), oc.targets()...)
		targets = append(targets,
			&excID, &exc.Title, &exc.Description, &exc.TutorID, &exc.StudentID, &exc.SubjectID, &exc.LocationID,
			&exc.StartTime, &exc.EndTime, &exc.InvoiceID, &kind,
			&row.ReportID, &reportStatus,
		)
		if err := rows.Scan(targets...); err != nil {
			return nil, fmt.Errorf("scan occurrence row: %w", err)
		}

		lesson, err := ls.finish()
		if err != nil {
			return nil, err
		}
		row.Lesson = *lesson
		row.Occurrence = *oc.finish()
		if excID != nil {
			exc.ID = *excID
			exc.OccurrenceID = row.Occurrence.ID
			exc.Kind = model.ExceptionKind(deref(kind))
			row.Exception = &exc
		}
		row.ReportStatus = model.ReportStatus(deref(reportStatus))
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *OccurrenceRepository) GetException(ctx context.Context, occurrenceID int64) (*model.Exception, error) {
	query := `
		SELECT id, occurrence_id, title, description, tutor_id, student_id, subject_id, location_id,
		       start_time, end_time, invoice_id, kind
		FROM lesson_exceptions
		WHERE occurrence_id = $1
	`

	var (
		e    model.Exception
		kind *string
	)
	err := r.db.QueryRow(ctx, query, occurrenceID).Scan(
		&e.ID, &e.OccurrenceID, &e.Title, &e.Description, &e.TutorID, &e.StudentID, &e.SubjectID, &e.LocationID,
		&e.StartTime, &e.EndTime, &e.InvoiceID, &kind,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get exception: %w", err)
	}
	e.Kind = model.ExceptionKind(deref(kind))
	return &e, nil
}

// SaveException upsert по occurrence_id; пишется вся строка целиком
func (r *OccurrenceRepository) SaveException(ctx context.Context, e *model.Exception) error {
	query := `
		INSERT INTO lesson_exceptions (occurrence_id, title, description, tutor_id, student_id, subject_id,
		                               location_id, start_time, end_time, invoice_id, kind)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (occurrence_id) DO UPDATE
		SET title = EXCLUDED.title, description = EXCLUDED.description,
		    tutor_id = EXCLUDED.tutor_id, student_id = EXCLUDED.student_id,
		    subject_id = EXCLUDED.subject_id, location_id = EXCLUDED.location_id,
		    start_time = EXCLUDED.start_time, end_time = EXCLUDED.end_time,
		    invoice_id = EXCLUDED.invoice_id, kind = EXCLUDED.kind
		RETURNING id
	`

	err := r.db.QueryRow(ctx, query,
		e.OccurrenceID, e.Title, e.Description, e.TutorID, e.StudentID, e.SubjectID,
		e.LocationID, e.StartTime, e.EndTime, e.InvoiceID, nullString(string(e.Kind)),
	).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("save exception: %w", err)
	}
	return nil
}
