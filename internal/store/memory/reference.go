package memory

import (
	"context"

	"github.com/orlandoalexander/educatch/internal/model"
)

func (r *repo) GetTutor(_ context.Context, id int64) (*model.Tutor, error) {
	return lookup(r.st.tutors, id), nil
}

func (r *repo) GetStudent(_ context.Context, id int64) (*model.Student, error) {
	return lookup(r.st.students, id), nil
}

func (r *repo) GetSubject(_ context.Context, id int64) (*model.Subject, error) {
	return lookup(r.st.subjects, id), nil
}

func (r *repo) GetLocation(_ context.Context, id int64) (*model.Location, error) {
	return lookup(r.st.locations, id), nil
}

func lookup[T any](m map[int64]T, id int64) *T {
	v, ok := m[id]
	if !ok {
		return nil
	}
	return &v
}
