package model

import "time"

type InvoiceStatus string

const (
	InvoiceUpcoming   InvoiceStatus = "upcoming"
	InvoiceIncomplete InvoiceStatus = "incomplete"
	InvoiceReady      InvoiceStatus = "ready"
	InvoiceSubmitted  InvoiceStatus = "submitted"
	InvoicePaid       InvoiceStatus = "paid"
)

// Invoice недельный счёт тьютора; Week всегда понедельник
type Invoice struct {
	ID      int64         `json:"id"`
	Week    time.Time     `json:"week"`
	TutorID int64         `json:"tutor_id"`
	Status  InvoiceStatus `json:"status"`
}

// InvoiceUsage счёт и число ссылающихся на него живых занятий
type InvoiceUsage struct {
	Invoice Invoice
	// Live неотменённые занятия, у которых эффективный счёт и тьютор совпадают со счётом
	Live int
	// Pending из них те, чей отчёт ещё не отправлен
	Pending int
}

type InvoiceFilter struct {
	TutorID  *int64
	IDs      []int64
	FromWeek *time.Time
	ToWeek   *time.Time
}

// InvoicePatch изменение статуса пользователем
type InvoicePatch struct {
	IDs    []int64       `json:"ids" validate:"required,min=1,dive,gt=0"`
	Status InvoiceStatus `json:"status" validate:"required,oneof=ready submitted paid"`
}
