package formatting

import (
	"fmt"
	"time"
)

// FormatDate дата с коротким днём недели
func FormatDate(t time.Time) string {
	return t.Format("Mon 02.01")
}

// FormatTimeRange диапазон времени
func FormatTimeRange(start, end time.Time) string {
	return fmt.Sprintf("%s-%s", start.Format("15:04"), end.Format("15:04"))
}

// FormatWeek неделя счёта по понедельнику
func FormatWeek(monday time.Time) string {
	sunday := monday.AddDate(0, 0, 6)
	if monday.Month() == sunday.Month() {
		return fmt.Sprintf("%d-%d %s", monday.Day(), sunday.Day(), monday.Format("Jan 2006"))
	}
	return fmt.Sprintf("%s - %s", monday.Format("2 Jan"), sunday.Format("2 Jan 2006"))
}
