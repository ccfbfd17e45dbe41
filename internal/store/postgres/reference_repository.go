package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/orlandoalexander/educatch/internal/model"
)

// ReferenceRepository только чтение справочников
type ReferenceRepository struct {
	db DBTX
}

func NewReferenceRepository(db DBTX) *ReferenceRepository {
	return &ReferenceRepository{db: db}
}

func (r *ReferenceRepository) GetTutor(ctx context.Context, id int64) (*model.Tutor, error) {
	var (
		t    model.Tutor
		rate string
	)
	err := r.db.QueryRow(ctx, `SELECT id, name, email, color, rate::text FROM tutors WHERE id = $1`, id).
		Scan(&t.ID, &t.Name, &t.Email, &t.Color, &rate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get tutor by id: %w", err)
	}
	if t.Rate, err = decimal.NewFromString(rate); err != nil {
		return nil, fmt.Errorf("parse tutor rate: %w", err)
	}
	return &t, nil
}

func (r *ReferenceRepository) GetStudent(ctx context.Context, id int64) (*model.Student, error) {
	var s model.Student
	err := r.db.QueryRow(ctx, `SELECT id, name, color FROM students WHERE id = $1`, id).Scan(&s.ID, &s.Name, &s.Color)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get student by id: %w", err)
	}
	return &s, nil
}

func (r *ReferenceRepository) GetSubject(ctx context.Context, id int64) (*model.Subject, error) {
	var s model.Subject
	err := r.db.QueryRow(ctx, `SELECT id, name FROM subjects WHERE id = $1`, id).Scan(&s.ID, &s.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get subject by id: %w", err)
	}
	return &s, nil
}

func (r *ReferenceRepository) GetLocation(ctx context.Context, id int64) (*model.Location, error) {
	var l model.Location
	err := r.db.QueryRow(ctx, `SELECT id, name, address FROM locations WHERE id = $1`, id).Scan(&l.ID, &l.Name, &l.Address)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get location by id: %w", err)
	}
	return &l, nil
}
