// Package postgres реализация хранилища поверх pgx
package postgres

import (
	"context"
	"embed"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/orlandoalexander/educatch/internal/store"
)

// Migrations схема для goose
//
//go:embed migrations/*.sql
var Migrations embed.FS

// DBTX общий интерфейс пула и транзакции
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

var _ store.Store = (*Store)(nil)

func NewStore(pool *pgxpool.Pool, logger *zap.Logger) *Store {
	return &Store{pool: pool, logger: logger}
}

// InTx открывает транзакцию на весь запрос; любая ошибка откатывает её
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, repo store.Repo) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, newRepo(tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		s.logger.Error("Failed to commit transaction", zap.Error(err))
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

type repo struct {
	*LessonRepository
	*OccurrenceRepository
	*InvoiceRepository
	*ReportRepository
	*ReferenceRepository
}

var _ store.Repo = (*repo)(nil)

func newRepo(db DBTX) *repo {
	return &repo{
		LessonRepository:     NewLessonRepository(db),
		OccurrenceRepository: NewOccurrenceRepository(db),
		InvoiceRepository:    NewInvoiceRepository(db),
		ReportRepository:     NewReportRepository(db),
		ReferenceRepository:  NewReferenceRepository(db),
	}
}

// where собирает WHERE с позиционными параметрами; ? заменяется на $n
type where struct {
	conds []string
	args  []any
}

func (w *where) add(cond string, args ...any) {
	var b strings.Builder
	next := 0
	for _, ch := range cond {
		if ch == '?' && next < len(args) {
			w.args = append(w.args, args[next])
			next++
			fmt.Fprintf(&b, "$%d", len(w.args))
			continue
		}
		b.WriteRune(ch)
	}
	w.conds = append(w.conds, b.String())
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(w.conds, " AND ")
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
