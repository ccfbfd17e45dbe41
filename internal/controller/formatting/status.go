package formatting

import (
	"fmt"

	"github.com/orlandoalexander/educatch/internal/model"
)

// StatusDisplay emoji и подпись статуса
type StatusDisplay struct {
	Emoji string
	Text  string
}

func (d StatusDisplay) String() string {
	return d.Emoji + " " + d.Text
}

var unknown = StatusDisplay{"❓", "Unknown"}

// InvoiceStatusDisplay отображение статуса счёта
func InvoiceStatusDisplay(status model.InvoiceStatus) StatusDisplay {
	displays := map[model.InvoiceStatus]StatusDisplay{
		model.InvoiceUpcoming:   {"🗓", "Upcoming"},
		model.InvoiceIncomplete: {"✏️", "Reports missing"},
		model.InvoiceReady:      {"🟢", "Ready to submit"},
		model.InvoiceSubmitted:  {"📨", "Submitted"},
		model.InvoicePaid:       {"✅", "Paid"},
	}

	if display, ok := displays[status]; ok {
		return display
	}
	return unknown
}

// ReportStatusDisplay отображение статуса отчёта
func ReportStatusDisplay(status model.ReportStatus) StatusDisplay {
	displays := map[model.ReportStatus]StatusDisplay{
		model.ReportEmpty:      {"⚪️", "No report"},
		model.ReportIncomplete: {"🟡", "Draft"},
		model.ReportSubmitted:  {"✔️", "Reported"},
	}

	if display, ok := displays[status]; ok {
		return display
	}
	return unknown
}

// AttendanceDisplay посещаемость с расшифровкой кода
func AttendanceDisplay(status model.AttendanceStatus, code string) string {
	displays := map[model.AttendanceStatus]StatusDisplay{
		model.AttendancePresent:   {"🙋", "Present"},
		model.AttendanceAbsent:    {"🙅", "Absent"},
		model.AttendanceDisrupted: {"⚡️", "Disrupted"},
	}

	display, ok := displays[status]
	if !ok {
		return ""
	}
	if reason, ok := model.AttendanceCodes[code]; ok {
		return fmt.Sprintf("%s (%s)", display, reason)
	}
	return display.String()
}
