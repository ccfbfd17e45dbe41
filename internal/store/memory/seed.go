package memory

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/orlandoalexander/educatch/internal/model"
	"github.com/orlandoalexander/educatch/internal/recurrence"
)

//go:embed seed/demo.yaml
var defaultSeed []byte

// Seed начальные данные демо-сессии
type Seed struct {
	Tutors    []model.Tutor          `yaml:"tutors"`
	Students  []model.Student        `yaml:"students"`
	Subjects  []model.Subject        `yaml:"subjects"`
	Locations []model.Location       `yaml:"locations"`
	Questions []model.ReportQuestion `yaml:"questions"`
	Lessons   []SeedLesson           `yaml:"lessons"`
}

// SeedLesson серия, привязанная к понедельнику текущей недели
type SeedLesson struct {
	Title       string           `yaml:"title"`
	Description string           `yaml:"description"`
	OffsetDays  int              `yaml:"offset_days"`
	At          string           `yaml:"at"`
	Duration    time.Duration    `yaml:"duration"`
	TutorID     int64            `yaml:"tutor_id"`
	StudentID   int64            `yaml:"student_id"`
	SubjectID   int64            `yaml:"subject_id"`
	LocationID  int64            `yaml:"location_id"`
	Rule        *recurrence.Rule `yaml:"rule"`
}

// LoadSeed читает сид из файла; пустой путь означает встроенный
func LoadSeed(path string) (*Seed, error) {
	if path == "" {
		return ParseSeed(defaultSeed)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed: %w", err)
	}
	return ParseSeed(data)
}

func ParseSeed(data []byte) (*Seed, error) {
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}
	for i, l := range seed.Lessons {
		if _, err := clock(l.At); err != nil {
			return nil, fmt.Errorf("seed lesson %d: %w", i, err)
		}
		if l.Duration <= 0 {
			return nil, fmt.Errorf("seed lesson %d: duration must be positive", i)
		}
	}
	return &seed, nil
}

// NewFromSeed создаёт хранилище с данными сида. Занятия серий не создаются:
// они появятся при первом чтении.
func NewFromSeed(seed *Seed, now time.Time) *Store {
	s := New()
	if seed == nil {
		return s
	}

	for _, t := range seed.Tutors {
		s.st.tutors[t.ID] = t
	}
	for _, st := range seed.Students {
		s.st.students[st.ID] = st
	}
	for _, sub := range seed.Subjects {
		s.st.subjects[sub.ID] = sub
	}
	for _, loc := range seed.Locations {
		s.st.locations[loc.ID] = loc
	}
	s.st.questions = append(s.st.questions, seed.Questions...)

	monday := recurrence.Day(now)
	for monday.Weekday() != time.Monday {
		monday = monday.AddDate(0, 0, -1)
	}

	for _, l := range seed.Lessons {
		offset, _ := clock(l.At)
		start := monday.AddDate(0, 0, l.OffsetDays).Add(offset)
		s.st.seq.lesson++
		s.st.lessons[s.st.seq.lesson] = cloneLesson(model.Lesson{
			ID:          s.st.seq.lesson,
			Title:       l.Title,
			Description: l.Description,
			StartTime:   start,
			EndTime:     start.Add(l.Duration),
			TutorID:     l.TutorID,
			StudentID:   l.StudentID,
			SubjectID:   l.SubjectID,
			LocationID:  l.LocationID,
			Rule:        l.Rule,
			CreatedAt:   now,
		})
	}
	return s
}

// clock переводит "16:30" в смещение от полуночи
func clock(at string) (time.Duration, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(at))
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: %w", at, err)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}
