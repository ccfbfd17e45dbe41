package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/orlandoalexander/educatch/internal/model"
)

func (r *repo) CreateLesson(_ context.Context, lesson *model.Lesson) error {
	r.st.seq.lesson++
	lesson.ID = r.st.seq.lesson
	if lesson.CreatedAt.IsZero() {
		lesson.CreatedAt = time.Now().UTC()
	}
	r.st.lessons[lesson.ID] = cloneLesson(*lesson)
	return nil
}

func (r *repo) GetLesson(_ context.Context, id int64) (*model.Lesson, error) {
	l, ok := r.st.lessons[id]
	if !ok {
		return nil, nil
	}
	l = cloneLesson(l)
	return &l, nil
}

func (r *repo) ListLessons(_ context.Context, filter model.LessonFilter) ([]*model.Lesson, error) {
	var out []*model.Lesson
	for _, l := range r.st.lessons {
		if filter.TutorID != nil && filter.StudentID != nil {
			if l.TutorID != *filter.TutorID && l.StudentID != *filter.StudentID {
				continue
			}
		} else if filter.TutorID != nil && l.TutorID != *filter.TutorID {
			continue
		} else if filter.StudentID != nil && l.StudentID != *filter.StudentID {
			continue
		}
		if filter.OpenOnly && l.ExtendedUntil != nil && l.Rule == nil {
			continue
		}
		c := cloneLesson(l)
		out = append(out, &c)
	}
	slices.SortFunc(out, func(a, b *model.Lesson) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (r *repo) UpdateLesson(_ context.Context, lesson *model.Lesson) error {
	if _, ok := r.st.lessons[lesson.ID]; !ok {
		return fmt.Errorf("update lesson %d: no rows", lesson.ID)
	}
	r.st.lessons[lesson.ID] = cloneLesson(*lesson)
	return nil
}

func (r *repo) AdvanceExtendedUntil(_ context.Context, lessonID int64, until time.Time) error {
	l, ok := r.st.lessons[lessonID]
	if !ok {
		return fmt.Errorf("advance extended_until %d: no rows", lessonID)
	}
	if l.ExtendedUntil == nil || until.After(*l.ExtendedUntil) {
		u := until
		l.ExtendedUntil = &u
		r.st.lessons[lessonID] = l
	}
	return nil
}

func (r *repo) DeleteLesson(ctx context.Context, id int64) error {
	var ids []int64
	for _, o := range r.st.occurrences {
		if o.LessonID == id {
			ids = append(ids, o.ID)
		}
	}
	if err := r.DeleteOccurrences(ctx, ids); err != nil {
		return err
	}
	delete(r.st.lessons, id)
	return nil
}
