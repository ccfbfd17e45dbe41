package model

import (
	"time"

	"github.com/orlandoalexander/educatch/internal/recurrence"
)

// Lesson якорь серии: шаблон времени, участники и правило повторения
type Lesson struct {
	ID          int64            `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	StartTime   time.Time        `json:"start_time"`
	EndTime     time.Time        `json:"end_time"`
	TutorID     int64            `json:"tutor_id"`
	StudentID   int64            `json:"student_id"`
	SubjectID   int64            `json:"subject_id"`
	LocationID  int64            `json:"location_id"`
	Rule        *recurrence.Rule `json:"rule,omitempty"`
	// ExtendedUntil последняя дата, по которую созданы занятия; nil - ещё ничего не создано
	ExtendedUntil *time.Time `json:"extended_until,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

func (l *Lesson) Recurring() bool {
	return l.Rule != nil
}

func (l *Lesson) Duration() time.Duration {
	return l.EndTime.Sub(l.StartTime)
}

// Open true если серия ещё может расти
func (l *Lesson) Open() bool {
	if l.ExtendedUntil == nil {
		return true
	}
	if l.Rule == nil || !l.Rule.Known() {
		return false
	}
	if l.Rule.Until == nil {
		return true
	}
	return l.ExtendedUntil.Before(recurrence.Day(*l.Rule.Until))
}

// LessonFilter выборка серий по базовым участникам
type LessonFilter struct {
	TutorID   *int64
	StudentID *int64
	// OpenOnly оставляет только серии, которые ещё могут потребовать материализации
	OpenOnly bool
}

// LessonPatch явный набор изменяемых полей серии
type LessonPatch struct {
	Title       *string          `json:"title,omitempty" validate:"omitempty,max=200"`
	Description *string          `json:"description,omitempty" validate:"omitempty,max=2000"`
	TutorID     *int64           `json:"tutor_id,omitempty" validate:"omitempty,gt=0"`
	StudentID   *int64           `json:"student_id,omitempty" validate:"omitempty,gt=0"`
	SubjectID   *int64           `json:"subject_id,omitempty" validate:"omitempty,gt=0"`
	LocationID  *int64           `json:"location_id,omitempty" validate:"omitempty,gt=0"`
	StartTime   *time.Time       `json:"start_time,omitempty"`
	EndTime     *time.Time       `json:"end_time,omitempty"`
	Rule        *recurrence.Rule `json:"rule,omitempty"`
	RemoveRule  bool             `json:"remove_rule,omitempty"`
}

// Participants true если патч меняет кого-то из участников, предмет или место
func (p *LessonPatch) Participants(l *Lesson) bool {
	return changed(p.TutorID, l.TutorID) ||
		changed(p.StudentID, l.StudentID) ||
		changed(p.SubjectID, l.SubjectID) ||
		changed(p.LocationID, l.LocationID)
}

// Apply применяет к копии серии все поля, кроме времени и правила
func (p *LessonPatch) Apply(l Lesson) Lesson {
	if p.Title != nil {
		l.Title = *p.Title
	}
	if p.Description != nil {
		l.Description = *p.Description
	}
	if p.TutorID != nil {
		l.TutorID = *p.TutorID
	}
	if p.StudentID != nil {
		l.StudentID = *p.StudentID
	}
	if p.SubjectID != nil {
		l.SubjectID = *p.SubjectID
	}
	if p.LocationID != nil {
		l.LocationID = *p.LocationID
	}
	return l
}

func changed[T comparable](p *T, current T) bool {
	return p != nil && *p != current
}
