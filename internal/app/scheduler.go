package app

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/orlandoalexander/educatch/internal/service"
	"github.com/orlandoalexander/educatch/internal/session"
)

// Scheduler фоновые задачи: пересчёт счетов и уборка демо-сессий
type Scheduler struct {
	cron   *cron.Cron
	logger *zap.Logger
}

// NewScheduler sessions может быть nil; тогда вместо уборки сессий
// по расписанию sweepSpec пересчитываются счета общего хранилища
func NewScheduler(invoices *service.InvoiceService, sessions *session.Manager, sweepSpec, janitorSpec string, ttl time.Duration, logger *zap.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger))),
		logger: logger,
	}

	if sessions != nil {
		if _, err := s.cron.AddFunc(janitorSpec, func() { s.disposeIdle(sessions, ttl) }); err != nil {
			return nil, fmt.Errorf("add janitor job: %w", err)
		}
		return s, nil
	}

	if _, err := s.cron.AddFunc(sweepSpec, func() { s.sweep(invoices) }); err != nil {
		return nil, fmt.Errorf("add sweep job: %w", err)
	}
	return s, nil
}

// Start запускает фоновые задачи
func (s *Scheduler) Start() {
	s.logger.Info("Starting background scheduler", zap.Int("jobs", len(s.cron.Entries())))
	s.cron.Start()
}

// Stop ждёт завершения выполняющихся задач
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping background scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) sweep(invoices *service.InvoiceService) {
	ctx, cancel := context.WithTimeout(context.Background(), 4*time.Minute)
	defer cancel()

	res, err := invoices.Sweep(ctx)
	if err != nil {
		s.logger.Error("Failed to sweep invoices", zap.Error(err))
		return
	}
	s.logger.Info("Invoice sweep completed", zap.Int("deleted", res.Deleted), zap.Int("ready", res.Ready))
}

func (s *Scheduler) disposeIdle(sessions *session.Manager, ttl time.Duration) {
	n := sessions.DisposeIdle(ttl)
	s.logger.Debug("Demo janitor run", zap.Int("disposed", n), zap.Int("active", sessions.Len()))
}
