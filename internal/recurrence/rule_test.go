package recurrence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	until := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		input string
		want  *Rule
	}{
		{"empty", "", nil},
		{"weekly", "FREQ=WEEKLY;INTERVAL=1", &Rule{Frequency: Weekly, Interval: 1}},
		{"default interval", "FREQ=DAILY", &Rule{Frequency: Daily, Interval: 1}},
		{"prefix and case", "RRULE:freq=monthly;interval=2", &Rule{Frequency: Monthly, Interval: 2}},
		{"until", "FREQ=WEEKLY;INTERVAL=1;UNTIL=20240301T000000Z", &Rule{Frequency: Weekly, Interval: 1, Until: &until}},
		{"iso until", "FREQ=WEEKLY;INTERVAL=1;UNTIL=2024-03-01T00:00:00", &Rule{Frequency: Weekly, Interval: 1, Until: &until}},
		{"date until", "FREQ=WEEKLY;UNTIL=2024-03-01", &Rule{Frequency: Weekly, Interval: 1, Until: &until}},
		{"yearly is kept", "FREQ=YEARLY", &Rule{Frequency: "yearly", Interval: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseRejects(t *testing.T) {
	for _, input := range []string{"INTERVAL=2", "FREQ=SOMETIMES", "FREQ=WEEKLY;BOGUS=1"} {
		_, err := Parse(input)
		assert.ErrorIs(t, err, ErrInvalidRule, input)
	}
}

func TestStringRoundTrip(t *testing.T) {
	until := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	rules := []*Rule{
		{Frequency: Weekly, Interval: 1},
		{Frequency: Daily, Interval: 3},
		{Frequency: Monthly, Interval: 1, Until: &until},
	}

	for _, r := range rules {
		s := r.String()
		assert.Contains(t, s, "FREQ=")
		assert.NotContains(t, s, "DTSTART")

		parsed, err := Parse(s)
		require.NoError(t, err)
		assert.Equal(t, r, parsed)
	}

	assert.Contains(t, rules[2].String(), "UNTIL=20240630T000000Z")
	assert.Equal(t, "", (*Rule)(nil).String())
}

func TestSameShape(t *testing.T) {
	weekly := &Rule{Frequency: Weekly, Interval: 1}
	weeklyZero := &Rule{Frequency: Weekly}
	biweekly := &Rule{Frequency: Weekly, Interval: 2}

	assert.True(t, weekly.SameShape(weeklyZero))
	assert.False(t, weekly.SameShape(biweekly))
	assert.False(t, weekly.SameShape(nil))
	assert.True(t, (*Rule)(nil).SameShape(nil))
}

func TestUnmarshalText(t *testing.T) {
	var r Rule
	require.NoError(t, r.UnmarshalText([]byte("FREQ=DAILY;INTERVAL=2")))
	assert.Equal(t, Rule{Frequency: Daily, Interval: 2}, r)

	assert.Error(t, r.UnmarshalText([]byte("")))
}
