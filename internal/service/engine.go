package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/orlandoalexander/educatch/internal/store"
)

// DefaultLookAhead насколько вперёд продлевается открытая серия за один проход
const DefaultLookAhead = 180 * 24 * time.Hour

// DefaultSafeguardingQuestionID ответ на этот вопрос дублируется в флаг отчёта
const DefaultSafeguardingQuestionID = 6

type Clock func() time.Time

type Config struct {
	LookAhead              time.Duration
	SafeguardingQuestionID int64
	Clock                  Clock
}

func (c Config) withDefaults() Config {
	if c.LookAhead <= 0 {
		c.LookAhead = DefaultLookAhead
	}
	if c.SafeguardingQuestionID == 0 {
		c.SafeguardingQuestionID = DefaultSafeguardingQuestionID
	}
	if c.Clock == nil {
		c.Clock = func() time.Time { return time.Now().UTC() }
	}
	return c
}

// Services фасады ядра
type Services struct {
	Lessons  *LessonService
	Invoices *InvoiceService
	Reports  *ReportService
}

func New(provider store.Provider, cfg Config, logger *zap.Logger) *Services {
	e := &engine{provider: provider, cfg: cfg.withDefaults(), logger: logger}
	return &Services{
		Lessons:  &LessonService{engine: e},
		Invoices: &InvoiceService{engine: e},
		Reports:  &ReportService{engine: e},
	}
}

type engine struct {
	provider store.Provider
	cfg      Config
	logger   *zap.Logger
}

func (e *engine) now() time.Time {
	return e.cfg.Clock()
}

// unit компоненты ядра, собранные поверх одной транзакции
type unit struct {
	repo         store.Repo
	ledger       *Ledger
	reports      *ReportFactory
	materializer *Materializer
	editor       *SeriesEditor
}

func (e *engine) unit(repo store.Repo) *unit {
	ledger := NewLedger(repo, e.cfg.Clock, e.logger)
	reports := NewReportFactory(repo)
	materializer := NewMaterializer(repo, ledger, reports, e.cfg.LookAhead, e.logger)
	return &unit{
		repo:         repo,
		ledger:       ledger,
		reports:      reports,
		materializer: materializer,
		editor:       NewSeriesEditor(repo, ledger, reports, materializer, e.cfg.Clock, e.logger),
	}
}

// run выполняет fn в одной транзакции хранилища текущего запроса
func (e *engine) run(ctx context.Context, fn func(ctx context.Context, u *unit) error) error {
	st, err := e.provider.Store(ctx)
	if err != nil {
		return fmt.Errorf("resolve store: %w", err)
	}
	return st.InTx(ctx, func(ctx context.Context, repo store.Repo) error {
		return fn(ctx, e.unit(repo))
	})
}
