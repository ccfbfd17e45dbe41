package formatting

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/orlandoalexander/educatch/internal/model"
	"github.com/orlandoalexander/educatch/internal/service"
)

func TestFormatWeek(t *testing.T) {
	assert.Equal(t, "13-19 May 2024", FormatWeek(time.Date(2024, 5, 13, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "29 Apr - 5 May 2024", FormatWeek(time.Date(2024, 4, 29, 0, 0, 0, 0, time.UTC)))
}

func TestFormatLesson(t *testing.T) {
	start := time.Date(2024, 5, 13, 16, 0, 0, 0, time.UTC)
	entry := model.TimetableEntry{
		Occurrence: model.Effective{
			StartTime:    start,
			EndTime:      start.Add(time.Hour),
			ReportStatus: model.ReportSubmitted,
		},
		Student:  "Sam",
		Subject:  "Maths",
		Location: "Library",
	}
	assert.Equal(t, "✔️ Mon 13.05 16:00-17:00 Maths · Sam (Library)", FormatLesson(entry))

	entry.Occurrence.Cancelled = true
	entry.Location = ""
	assert.Equal(t, "🚫 Mon 13.05 16:00-17:00 Maths · Sam - cancelled", FormatLesson(entry))
}

func TestStatusDisplayFallback(t *testing.T) {
	assert.Equal(t, "❓ Unknown", InvoiceStatusDisplay("void").String())
	assert.Equal(t, "🟢 Ready to submit", InvoiceStatusDisplay(model.InvoiceReady).String())
}

func TestFormatInvoiceSummary(t *testing.T) {
	s := &service.InvoiceSummary{
		Invoice: model.Invoice{ID: 7, Week: time.Date(2024, 5, 13, 0, 0, 0, 0, time.UTC), Status: model.InvoiceReady},
		Rate:    decimal.RequireFromString("30"),
		Lines: []service.InvoiceLine{
			{Student: "Sam", Hours: decimal.RequireFromString("1.5"), Amount: decimal.RequireFromString("45")},
		},
		Hours:  decimal.RequireFromString("1.5"),
		Amount: decimal.RequireFromString("45"),
	}

	text := FormatInvoiceSummary(s)
	assert.Contains(t, text, "Invoice #7 · 13-19 May 2024")
	assert.Contains(t, text, "Sam: 1.50 h, £45.00")
	assert.Contains(t, text, "Total: 1.50 h at £30.00/h = £45.00")
}

func TestAttendanceDisplay(t *testing.T) {
	assert.Equal(t, "🙅 Absent (Illness)", AttendanceDisplay(model.AttendanceAbsent, "I"))
	assert.Equal(t, "🙋 Present", AttendanceDisplay(model.AttendancePresent, ""))
	assert.Empty(t, AttendanceDisplay("", "L"))
}
