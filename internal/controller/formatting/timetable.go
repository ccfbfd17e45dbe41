package formatting

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/orlandoalexander/educatch/internal/model"
	"github.com/orlandoalexander/educatch/internal/service"
)

// FormatMoney сумма в фунтах
func FormatMoney(amount decimal.Decimal) string {
	return "£" + amount.StringFixed(2)
}

// FormatLesson одна строка расписания
func FormatLesson(e model.TimetableEntry) string {
	o := e.Occurrence
	line := fmt.Sprintf("%s %s %s · %s",
		FormatDate(o.StartTime), FormatTimeRange(o.StartTime, o.EndTime), e.Subject, e.Student)
	if e.Location != "" {
		line += " (" + e.Location + ")"
	}
	if o.Cancelled {
		return "🚫 " + line + " - cancelled"
	}
	if att := AttendanceDisplay(o.Attendance, o.AttendanceCode); att != "" {
		line += " · " + att
	}
	return ReportStatusDisplay(o.ReportStatus).Emoji + " " + line
}

// FormatTimetable расписание, сгруппированное по дням
func FormatTimetable(entries []model.TimetableEntry) string {
	if len(entries) == 0 {
		return "📭 No lessons in the next 7 days."
	}

	var b strings.Builder
	b.WriteString("📅 Your lessons:\n")
	for _, e := range entries {
		b.WriteString("\n")
		b.WriteString(FormatLesson(e))
	}
	return b.String()
}

// FormatInvoices список счетов тьютора
func FormatInvoices(invoices []*model.Invoice) string {
	if len(invoices) == 0 {
		return "📭 No invoices yet."
	}

	var b strings.Builder
	b.WriteString("🧾 Your invoices:\n")
	for _, inv := range invoices {
		fmt.Fprintf(&b, "\n#%d · %s · %s", inv.ID, FormatWeek(inv.Week), InvoiceStatusDisplay(inv.Status))
	}
	return b.String()
}

// FormatInvoiceSummary итог по счёту с разбивкой по ученикам
func FormatInvoiceSummary(s *service.InvoiceSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🧾 Invoice #%d · %s\n%s\n",
		s.Invoice.ID, FormatWeek(s.Invoice.Week), InvoiceStatusDisplay(s.Invoice.Status))
	for _, line := range s.Lines {
		fmt.Fprintf(&b, "\n%s: %s h, %s", line.Student, line.Hours.StringFixed(2), FormatMoney(line.Amount))
	}
	fmt.Fprintf(&b, "\n\nTotal: %s h at %s/h = %s",
		s.Hours.StringFixed(2), FormatMoney(s.Rate), FormatMoney(s.Amount))
	return b.String()
}
