package recurrence

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"
)

// Frequency шаг повторения серии
type Frequency string

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
)

var ErrInvalidRule = errors.New("invalid recurrence rule")

// Rule структурированное правило повторения: частота, интервал и необязательная граница UNTIL
type Rule struct {
	Frequency Frequency  `json:"frequency" yaml:"frequency" validate:"required"`
	Interval  int        `json:"interval" yaml:"interval" validate:"gte=0"`
	Until     *time.Time `json:"until,omitempty" yaml:"until,omitempty"`
}

// Known сообщает, умеет ли экспандер шагать с такой частотой
func (r *Rule) Known() bool {
	switch r.Frequency {
	case Daily, Weekly, Monthly:
		return true
	}
	return false
}

// Step возвращает интервал, подставляя 1 для нулевого значения
func (r *Rule) Step() int {
	if r.Interval < 1 {
		return 1
	}
	return r.Interval
}

// SameShape true если у правил одинаковые частота и интервал
func (r *Rule) SameShape(other *Rule) bool {
	if r == nil || other == nil {
		return r == other
	}
	return r.Frequency == other.Frequency && r.Step() == other.Step()
}

// WithUntil возвращает копию правила с новой границей
func (r Rule) WithUntil(until *time.Time) *Rule {
	if until != nil {
		u := until.UTC()
		until = &u
	}
	r.Until = until
	return &r
}

// Parse разбирает строку вида FREQ=WEEKLY;INTERVAL=1;UNTIL=20240301T000000Z.
// Пустая строка означает отсутствие правила.
func Parse(s string) (*Rule, error) {
	s = normalize(s)
	if s == "" {
		return nil, nil
	}
	if !strings.Contains(s, "FREQ=") {
		return nil, fmt.Errorf("%w: FREQ is missing in %q", ErrInvalidRule, s)
	}

	opt, err := rrule.StrToROption(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRule, err)
	}
	if opt.Interval < 0 {
		return nil, fmt.Errorf("%w: negative interval", ErrInvalidRule)
	}

	rule := &Rule{
		Frequency: Frequency(strings.ToLower(opt.Freq.String())),
		Interval:  opt.Interval,
	}
	if rule.Interval == 0 {
		rule.Interval = 1
	}
	if !opt.Until.IsZero() {
		until := opt.Until.UTC()
		rule.Until = &until
	}
	return rule, nil
}

// MustParse для тестов и сидов
func MustParse(s string) *Rule {
	r, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return r
}

// String сериализует правило обратно в RRULE без DTSTART
func (r *Rule) String() string {
	if r == nil {
		return ""
	}
	opt := rrule.ROption{
		Freq:     frequencyOf(r.Frequency),
		Interval: r.Step(),
	}
	if r.Until != nil {
		opt.Until = r.Until.UTC()
	}
	return opt.RRuleString()
}

// MarshalText / UnmarshalText позволяют хранить правило строкой в YAML и JSON
func (r Rule) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Rule) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	if parsed == nil {
		return fmt.Errorf("%w: empty rule", ErrInvalidRule)
	}
	*r = *parsed
	return nil
}

func frequencyOf(f Frequency) rrule.Frequency {
	for _, candidate := range []rrule.Frequency{
		rrule.YEARLY, rrule.MONTHLY, rrule.WEEKLY, rrule.DAILY,
		rrule.HOURLY, rrule.MINUTELY, rrule.SECONDLY,
	} {
		if strings.EqualFold(candidate.String(), string(f)) {
			return candidate
		}
	}
	return rrule.YEARLY
}

// legacy UNTIL встречается в ISO формате
var untilLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func normalize(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "RRULE:"), "rrule:")
	if s == "" {
		return ""
	}

	parts := strings.Split(s, ";")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			continue
		}
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			out = append(out, strings.ToUpper(part))
			continue
		}
		key = strings.ToUpper(strings.TrimSpace(key))
		value = strings.TrimSpace(value)
		if key == "UNTIL" {
			value = normalizeUntil(value)
		} else {
			value = strings.ToUpper(value)
		}
		out = append(out, key+"="+value)
	}
	return strings.Join(out, ";")
}

func normalizeUntil(value string) string {
	for _, layout := range untilLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC().Format("20060102T150405Z")
		}
	}
	return strings.ToUpper(value)
}
