// Команда timetable выгружает расписание тьютора или ученика в iCalendar
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/orlandoalexander/educatch/internal/app"
	"github.com/orlandoalexander/educatch/internal/config"
	"github.com/orlandoalexander/educatch/internal/export"
	"github.com/orlandoalexander/educatch/internal/service"
	"github.com/orlandoalexander/educatch/internal/session"
)

func main() {
	tutorID := flag.Int64("tutor", 0, "tutor id")
	studentID := flag.Int64("student", 0, "student id")
	days := flag.Int("days", 28, "days ahead, starting from the current week")
	out := flag.String("out", "", "output file, stdout if empty")
	flag.Parse()

	if *tutorID == 0 && *studentID == 0 {
		log.Fatal("either -tutor or -student is required")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// логгер пишет в stdout, поэтому при выводе календаря туда же он отключён
	logger := zap.NewNop()
	if *out != "" {
		logger = app.NewLogger(cfg.Environment, cfg.LogLevel)
	}
	defer logger.Sync()

	ctx := context.Background()
	storage, err := app.OpenStorage(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}
	defer storage.Close()
	if storage.Sessions != nil {
		ctx = session.WithKey(ctx, session.NewKey())
	}

	services := service.New(storage.Provider, service.Config{
		LookAhead:              cfg.LookAhead,
		SafeguardingQuestionID: cfg.SafeguardingQuestionID,
	}, logger)

	now := time.Now().UTC()
	from := service.WeekOf(now)
	to := from.AddDate(0, 0, *days)
	q := service.OccurrenceQuery{From: &from, To: &to}
	if *tutorID != 0 {
		q.TutorID = tutorID
	}
	if *studentID != 0 {
		q.StudentID = studentID
	}

	entries, err := services.Lessons.Timetable(ctx, q)
	if err != nil {
		log.Fatalf("Failed to build timetable: %v", err)
	}
	body := export.Calendar(entries, now)

	if *out == "" {
		fmt.Print(body)
		return
	}
	if err := os.WriteFile(*out, []byte(body), 0o644); err != nil {
		log.Fatalf("Failed to write %s: %v", *out, err)
	}
	log.Printf("Wrote %d lessons to %s", len(entries), *out)
}
