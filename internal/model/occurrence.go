package model

import (
	"time"

	"github.com/orlandoalexander/educatch/internal/recurrence"
)

type AttendanceStatus string

const (
	AttendancePresent   AttendanceStatus = "present"
	AttendanceAbsent    AttendanceStatus = "absent"
	AttendanceDisrupted AttendanceStatus = "disrupted"
)

// AttendanceCodes коды посещаемости и их расшифровка
var AttendanceCodes = map[string]string{
	"L": "Late",
	"D": "Left early",
	"O": "Unauthorised absence",
	"I": "Illness",
	"M": "Medical appointment",
	"C": "Authorised absence",
	"N": "No reason yet provided",
	"T": "Not on timetable",
}

// Occurrence конкретное занятие серии
type Occurrence struct {
	ID             int64            `json:"id"`
	LessonID       int64            `json:"lesson_id"`
	StartTime      time.Time        `json:"start_time"`
	EndTime        time.Time        `json:"end_time"`
	ActualStart    *time.Time       `json:"actual_start,omitempty"`
	ActualEnd      *time.Time       `json:"actual_end,omitempty"`
	Attendance     AttendanceStatus `json:"attendance,omitempty"`
	AttendanceCode string           `json:"attendance_code,omitempty"`
	InvoiceID      *int64           `json:"invoice_id,omitempty"`
}

// OccurrencePatch фактическое время и посещаемость
type OccurrencePatch struct {
	ActualStart    *time.Time        `json:"actual_start,omitempty"`
	ActualEnd      *time.Time        `json:"actual_end,omitempty"`
	Attendance     *AttendanceStatus `json:"attendance,omitempty" validate:"omitempty,oneof=present absent disrupted"`
	AttendanceCode *string           `json:"attendance_code,omitempty" validate:"omitempty,oneof=L D O I M C N T"`
}

type ExceptionKind string

const ExceptionCancel ExceptionKind = "CANCEL"

// Exception переопределение полей одного занятия; nil поле наследуется
type Exception struct {
	ID           int64         `json:"id"`
	OccurrenceID int64         `json:"occurrence_id"`
	Title        *string       `json:"title,omitempty"`
	Description  *string       `json:"description,omitempty"`
	TutorID      *int64        `json:"tutor_id,omitempty"`
	StudentID    *int64        `json:"student_id,omitempty"`
	SubjectID    *int64        `json:"subject_id,omitempty"`
	LocationID   *int64        `json:"location_id,omitempty"`
	StartTime    *time.Time    `json:"start_time,omitempty"`
	EndTime      *time.Time    `json:"end_time,omitempty"`
	InvoiceID    *int64        `json:"invoice_id,omitempty"`
	Kind         ExceptionKind `json:"kind,omitempty"`
}

// ExceptionPatch поля, которые пользователь может переопределить для одного занятия
type ExceptionPatch struct {
	Title       *string    `json:"title,omitempty" validate:"omitempty,max=200"`
	Description *string    `json:"description,omitempty" validate:"omitempty,max=2000"`
	TutorID     *int64     `json:"tutor_id,omitempty" validate:"omitempty,gt=0"`
	StudentID   *int64     `json:"student_id,omitempty" validate:"omitempty,gt=0"`
	SubjectID   *int64     `json:"subject_id,omitempty" validate:"omitempty,gt=0"`
	LocationID  *int64     `json:"location_id,omitempty" validate:"omitempty,gt=0"`
	StartTime   *time.Time `json:"start_time,omitempty"`
	EndTime     *time.Time `json:"end_time,omitempty"`
	Cancel      *bool      `json:"cancel,omitempty"`
}

// Apply переносит заданные поля патча в исключение
func (p *ExceptionPatch) Apply(e *Exception) {
	if p.Title != nil {
		e.Title = p.Title
	}
	if p.Description != nil {
		e.Description = p.Description
	}
	if p.TutorID != nil {
		e.TutorID = p.TutorID
	}
	if p.StudentID != nil {
		e.StudentID = p.StudentID
	}
	if p.SubjectID != nil {
		e.SubjectID = p.SubjectID
	}
	if p.LocationID != nil {
		e.LocationID = p.LocationID
	}
	if p.StartTime != nil {
		e.StartTime = p.StartTime
	}
	if p.EndTime != nil {
		e.EndTime = p.EndTime
	}
	if p.Cancel != nil {
		if *p.Cancel {
			e.Kind = ExceptionCancel
		} else {
			e.Kind = ""
		}
	}
}

// OccurrenceRow занятие вместе с серией, исключением и отчётом, как его отдаёт хранилище
type OccurrenceRow struct {
	Lesson       Lesson
	Occurrence   Occurrence
	Exception    *Exception
	ReportID     *int64
	ReportStatus ReportStatus
}

// Effective занятие после наложения исключения
type Effective struct {
	OccurrenceID   int64            `json:"occurrence_id"`
	LessonID       int64            `json:"lesson_id"`
	Title          string           `json:"title"`
	Description    string           `json:"description"`
	TutorID        int64            `json:"tutor_id"`
	StudentID      int64            `json:"student_id"`
	SubjectID      int64            `json:"subject_id"`
	LocationID     int64            `json:"location_id"`
	StartTime      time.Time        `json:"start_time"`
	EndTime        time.Time        `json:"end_time"`
	ActualStart    *time.Time       `json:"actual_start,omitempty"`
	ActualEnd      *time.Time       `json:"actual_end,omitempty"`
	Attendance     AttendanceStatus `json:"attendance,omitempty"`
	AttendanceCode string           `json:"attendance_code,omitempty"`
	InvoiceID      *int64           `json:"invoice_id,omitempty"`
	Rule           *recurrence.Rule `json:"rule,omitempty"`
	ReportID       *int64           `json:"report_id,omitempty"`
	ReportStatus   ReportStatus     `json:"report_status,omitempty"`
	Overridden     bool             `json:"overridden"`
	Cancelled      bool             `json:"cancelled"`
}

// RowFilter условия выборки занятий; проверяются по эффективным значениям.
// TutorID и StudentID вместе означают "тьютор ИЛИ ученик".
type RowFilter struct {
	TutorID          *int64
	StudentID        *int64
	InvoiceID        *int64
	LessonID         *int64
	OccurrenceIDs    []int64
	From             *time.Time
	To               *time.Time
	IncludeCancelled bool
}

// TimetableEntry занятие с именами для выгрузки
type TimetableEntry struct {
	Occurrence Effective
	Tutor      string
	Student    string
	Subject    string
	Location   string
}
