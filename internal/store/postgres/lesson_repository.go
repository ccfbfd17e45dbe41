package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/orlandoalexander/educatch/internal/model"
	"github.com/orlandoalexander/educatch/internal/recurrence"
)

type LessonRepository struct {
	db DBTX
}

func NewLessonRepository(db DBTX) *LessonRepository {
	return &LessonRepository{db: db}
}

const lessonColumns = `l.id, l.title, l.description, l.start_time, l.end_time,
	l.tutor_id, l.student_id, l.subject_id, l.location_id, l.rrule, l.extended_until, l.created_at`

// lessonScan собирает указатели под lessonColumns; rule разбирается после Scan
type lessonScan struct {
	lesson model.Lesson
	rule   *string
}

func (s *lessonScan) targets() []any {
	l := &s.lesson
	return []any{
		&l.ID, &l.Title, &l.Description, &l.StartTime, &l.EndTime,
		&l.TutorID, &l.StudentID, &l.SubjectID, &l.LocationID, &s.rule, &l.ExtendedUntil, &l.CreatedAt,
	}
}

func (s *lessonScan) finish() (*model.Lesson, error) {
	rule, err := recurrence.Parse(deref(s.rule))
	if err != nil {
		return nil, fmt.Errorf("lesson %d: %w", s.lesson.ID, err)
	}
	s.lesson.Rule = rule
	s.lesson.StartTime = s.lesson.StartTime.UTC()
	s.lesson.EndTime = s.lesson.EndTime.UTC()
	return &s.lesson, nil
}

// CreateLesson создаёт серию
func (r *LessonRepository) CreateLesson(ctx context.Context, lesson *model.Lesson) error {
	query := `
		INSERT INTO lessons (title, description, start_time, end_time, tutor_id, student_id,
		                     subject_id, location_id, rrule, extended_until)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at
	`

	err := r.db.QueryRow(ctx, query,
		lesson.Title,
		lesson.Description,
		lesson.StartTime,
		lesson.EndTime,
		lesson.TutorID,
		lesson.StudentID,
		lesson.SubjectID,
		lesson.LocationID,
		nullString(lesson.Rule.String()),
		lesson.ExtendedUntil,
	).Scan(&lesson.ID, &lesson.CreatedAt)
	if err != nil {
		return fmt.Errorf("create lesson: %w", err)
	}
	return nil
}

func (r *LessonRepository) GetLesson(ctx context.Context, id int64) (*model.Lesson, error) {
	query := `SELECT ` + lessonColumns + ` FROM lessons l WHERE l.id = $1`

	var s lessonScan
	err := r.db.QueryRow(ctx, query, id).Scan(s.targets()...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get lesson by id: %w", err)
	}
	return s.finish()
}

func (r *LessonRepository) ListLessons(ctx context.Context, filter model.LessonFilter) ([]*model.Lesson, error) {
	var w where
	switch {
	case filter.TutorID != nil && filter.StudentID != nil:
		w.add("(l.tutor_id = ? OR l.student_id = ?)", *filter.TutorID, *filter.StudentID)
	case filter.TutorID != nil:
		w.add("l.tutor_id = ?", *filter.TutorID)
	case filter.StudentID != nil:
		w.add("l.student_id = ?", *filter.StudentID)
	}
	if filter.OpenOnly {
		w.add("(l.extended_until IS NULL OR l.rrule IS NOT NULL)")
	}

	query := `SELECT ` + lessonColumns + ` FROM lessons l ` + w.String() + ` ORDER BY l.id`

	rows, err := r.db.Query(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("list lessons: %w", err)
	}
	defer rows.Close()

	var lessons []*model.Lesson
	for rows.Next() {
		var s lessonScan
		if err := rows.Scan(s.targets()...); err != nil {
			return nil, fmt.Errorf("scan lesson: %w", err)
		}
		l, err := s.finish()
		if err != nil {
			return nil, err
		}
		lessons = append(lessons, l)
	}
	return lessons, rows.Err()
}

func (r *LessonRepository) UpdateLesson(ctx context.Context, lesson *model.Lesson) error {
	query := `
		UPDATE lessons
		SET title = $2, description = $3, start_time = $4, end_time = $5,
		    tutor_id = $6, student_id = $7, subject_id = $8, location_id = $9,
		    rrule = $10, extended_until = $11
		WHERE id = $1
	`

	tag, err := r.db.Exec(ctx, query,
		lesson.ID,
		lesson.Title,
		lesson.Description,
		lesson.StartTime,
		lesson.EndTime,
		lesson.TutorID,
		lesson.StudentID,
		lesson.SubjectID,
		lesson.LocationID,
		nullString(lesson.Rule.String()),
		lesson.ExtendedUntil,
	)
	if err != nil {
		return fmt.Errorf("update lesson: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update lesson %d: %w", lesson.ID, pgx.ErrNoRows)
	}
	return nil
}

func (r *LessonRepository) AdvanceExtendedUntil(ctx context.Context, lessonID int64, until time.Time) error {
	query := `
		UPDATE lessons
		SET extended_until = GREATEST(COALESCE(extended_until, $2::date), $2::date)
		WHERE id = $1
	`

	if _, err := r.db.Exec(ctx, query, lessonID, until); err != nil {
		return fmt.Errorf("advance extended_until: %w", err)
	}
	return nil
}

// DeleteLesson каскадом удаляет занятия, исключения, отчёты и ответы
func (r *LessonRepository) DeleteLesson(ctx context.Context, id int64) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM lessons WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete lesson: %w", err)
	}
	return nil
}
