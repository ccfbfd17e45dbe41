package service

import (
	"context"
	"fmt"

	"github.com/orlandoalexander/educatch/internal/store"
)

// ReportFactory гарантирует ровно один отчёт на занятие
type ReportFactory struct {
	repo store.Repo
}

func NewReportFactory(repo store.Repo) *ReportFactory {
	return &ReportFactory{repo: repo}
}

// EnsureReports создаёт пустые отчёты всем занятиям без отчёта, не только новым
func (f *ReportFactory) EnsureReports(ctx context.Context) (int, error) {
	n, err := f.repo.EnsureReports(ctx)
	if err != nil {
		return 0, fmt.Errorf("ensure reports: %w", err)
	}
	return n, nil
}

// Carry переносит отчёт вместе с ответами на другое занятие. Используется только при разделении серии.
func (f *ReportFactory) Carry(ctx context.Context, fromOccurrenceID, toOccurrenceID int64) (int64, error) {
	rep, err := f.repo.GetReportByOccurrence(ctx, fromOccurrenceID)
	if err != nil {
		return 0, fmt.Errorf("get report to carry: %w", err)
	}
	if rep == nil {
		return 0, consistencyf("occurrence %d has no report to carry", fromOccurrenceID)
	}

	target, err := f.repo.GetOccurrence(ctx, toOccurrenceID)
	if err != nil {
		return 0, fmt.Errorf("get carry target: %w", err)
	}
	if target == nil {
		return 0, consistencyf("carry target occurrence %d is missing", toOccurrenceID)
	}
	existing, err := f.repo.GetReportByOccurrence(ctx, toOccurrenceID)
	if err != nil {
		return 0, fmt.Errorf("get target report: %w", err)
	}
	if existing != nil {
		return 0, consistencyf("carry target occurrence %d already has report %d", toOccurrenceID, existing.ID)
	}

	if err := f.repo.MoveReport(ctx, rep.ID, toOccurrenceID); err != nil {
		return 0, err
	}
	return rep.ID, nil
}
