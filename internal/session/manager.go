// Package session держит демо-хранилища в памяти, по одному на сессию
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/orlandoalexander/educatch/internal/store"
	"github.com/orlandoalexander/educatch/internal/store/memory"
)

type ctxKey struct{}

// WithKey кладёт ключ сессии в контекст запроса
func WithKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, ctxKey{}, key)
}

// KeyFrom достаёт ключ сессии из контекста
func KeyFrom(ctx context.Context) (string, bool) {
	key, ok := ctx.Value(ctxKey{}).(string)
	return key, ok && key != ""
}

// NewKey случайный ключ для новой сессии
func NewKey() string {
	return uuid.NewString()
}

type entry struct {
	store    *memory.Store
	lastSeen time.Time
}

// Manager создаёт хранилище сессии при первом обращении и удаляет простаивающие
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*entry
	seed     *memory.Seed
	now      func() time.Time
	logger   *zap.Logger
}

// NewManager seed может быть nil: тогда сессии начинаются с пустого хранилища
func NewManager(seed *memory.Seed, logger *zap.Logger) *Manager {
	return &Manager{
		sessions: make(map[string]*entry),
		seed:     seed,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   logger,
	}
}

// WithClock подменяет часы; для тестов
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

var _ store.Provider = (*Manager)(nil)

// Store хранилище сессии из контекста
func (m *Manager) Store(ctx context.Context) (store.Store, error) {
	key, ok := KeyFrom(ctx)
	if !ok {
		return nil, store.ErrNoSession
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	e, exists := m.sessions[key]
	if !exists {
		e = &entry{store: memory.NewFromSeed(m.seed, now)}
		m.sessions[key] = e
		m.logger.Info("Demo session created", zap.String("session", key))
	}
	e.lastSeen = now
	return e.store, nil
}

// Reset возвращает сессию к исходному сиду
func (m *Manager) Reset(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.sessions[key] = &entry{store: memory.NewFromSeed(m.seed, now), lastSeen: now}
	m.logger.Info("Demo session reset", zap.String("session", key))
}

// Dispose удаляет сессию
func (m *Manager) Dispose(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, key)
}

// DisposeIdle удаляет сессии, к которым не обращались дольше ttl; возвращает их число
func (m *Manager) DisposeIdle(ttl time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-ttl)
	disposed := 0
	for key, e := range m.sessions {
		if e.lastSeen.Before(cutoff) {
			delete(m.sessions, key)
			disposed++
		}
	}
	if disposed > 0 {
		m.logger.Info("Idle demo sessions disposed", zap.Int("count", disposed), zap.Int("active", len(m.sessions)))
	}
	return disposed
}

// Len число живых сессий
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.sessions)
}
