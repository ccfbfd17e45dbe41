package service

import (
	"context"
	"fmt"

	"github.com/orlandoalexander/educatch/internal/store"
)

// refs ссылки на справочники, которые нужно проверить; nil пропускается
type refs struct {
	tutorID    *int64
	studentID  *int64
	subjectID  *int64
	locationID *int64
}

func (r refs) check(ctx context.Context, repo store.ReferenceRepo) error {
	if r.tutorID != nil {
		t, err := repo.GetTutor(ctx, *r.tutorID)
		if err != nil {
			return fmt.Errorf("get tutor: %w", err)
		}
		if t == nil {
			return notFound("tutor", *r.tutorID)
		}
	}
	if r.studentID != nil {
		s, err := repo.GetStudent(ctx, *r.studentID)
		if err != nil {
			return fmt.Errorf("get student: %w", err)
		}
		if s == nil {
			return notFound("student", *r.studentID)
		}
	}
	if r.subjectID != nil {
		s, err := repo.GetSubject(ctx, *r.subjectID)
		if err != nil {
			return fmt.Errorf("get subject: %w", err)
		}
		if s == nil {
			return notFound("subject", *r.subjectID)
		}
	}
	if r.locationID != nil {
		l, err := repo.GetLocation(ctx, *r.locationID)
		if err != nil {
			return fmt.Errorf("get location: %w", err)
		}
		if l == nil {
			return notFound("location", *r.locationID)
		}
	}
	return nil
}

// nameCache имена из справочников для одной выгрузки
type nameCache struct {
	repo      store.ReferenceRepo
	tutors    map[int64]string
	students  map[int64]string
	subjects  map[int64]string
	locations map[int64]string
}

func newNameCache(repo store.ReferenceRepo) *nameCache {
	return &nameCache{
		repo:      repo,
		tutors:    make(map[int64]string),
		students:  make(map[int64]string),
		subjects:  make(map[int64]string),
		locations: make(map[int64]string),
	}
}

func cached(cache map[int64]string, id int64, load func() (string, error)) (string, error) {
	if name, ok := cache[id]; ok {
		return name, nil
	}
	name, err := load()
	if err != nil {
		return "", err
	}
	cache[id] = name
	return name, nil
}

func (c *nameCache) tutor(ctx context.Context, id int64) (string, error) {
	return cached(c.tutors, id, func() (string, error) {
		t, err := c.repo.GetTutor(ctx, id)
		if err != nil || t == nil {
			return "", err
		}
		return t.Name, nil
	})
}

func (c *nameCache) student(ctx context.Context, id int64) (string, error) {
	return cached(c.students, id, func() (string, error) {
		s, err := c.repo.GetStudent(ctx, id)
		if err != nil || s == nil {
			return "", err
		}
		return s.Name, nil
	})
}

func (c *nameCache) subject(ctx context.Context, id int64) (string, error) {
	return cached(c.subjects, id, func() (string, error) {
		s, err := c.repo.GetSubject(ctx, id)
		if err != nil || s == nil {
			return "", err
		}
		return s.Name, nil
	})
}

func (c *nameCache) location(ctx context.Context, id int64) (string, error) {
	return cached(c.locations, id, func() (string, error) {
		l, err := c.repo.GetLocation(ctx, id)
		if err != nil || l == nil {
			return "", err
		}
		return l.Name, nil
	})
}
