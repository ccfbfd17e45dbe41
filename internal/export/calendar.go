// Package export выгружает расписание в iCalendar
package export

import (
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"github.com/orlandoalexander/educatch/internal/model"
)

const productID = "-//educatch//timetable//EN"

// uidSpace пространство имён для стабильных UID: повторная выгрузка обновляет события, а не дублирует
var uidSpace = uuid.MustParse("6f1c2a8e-3b7d-4e0a-9c51-2d8f4b6a7e13")

// EventUID стабильный UID занятия
func EventUID(occurrenceID int64) string {
	return uuid.NewSHA1(uidSpace, []byte(fmt.Sprintf("occurrence:%d", occurrenceID))).String() + "@educatch"
}

// Calendar собирает VCALENDAR из занятий; отменённые выгружаются со статусом CANCELLED
func Calendar(entries []model.TimetableEntry, stamp time.Time) string {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(productID)

	for _, e := range entries {
		occ := e.Occurrence
		ev := cal.AddEvent(EventUID(occ.OccurrenceID))
		ev.SetDtStampTime(stamp.UTC())
		ev.SetStartAt(occ.StartTime.UTC())
		ev.SetEndAt(occ.EndTime.UTC())
		ev.SetSummary(summary(e))
		if e.Location != "" {
			ev.SetLocation(e.Location)
		}
		if desc := description(e); desc != "" {
			ev.SetDescription(desc)
		}
		if occ.Cancelled {
			ev.SetStatus(ics.ObjectStatusCancelled)
		}
	}
	return cal.Serialize()
}

func summary(e model.TimetableEntry) string {
	if e.Student == "" {
		return e.Occurrence.Title
	}
	return e.Occurrence.Title + " with " + e.Student
}

func description(e model.TimetableEntry) string {
	var lines []string
	if e.Subject != "" {
		lines = append(lines, "Subject: "+e.Subject)
	}
	if e.Tutor != "" {
		lines = append(lines, "Tutor: "+e.Tutor)
	}
	if e.Occurrence.Description != "" {
		lines = append(lines, e.Occurrence.Description)
	}
	return strings.Join(lines, "\n")
}
