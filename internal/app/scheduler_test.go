package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/orlandoalexander/educatch/internal/session"
)

func TestSchedulerRejectsBadSpec(t *testing.T) {
	sessions := session.NewManager(nil, zap.NewNop())
	_, err := NewScheduler(nil, sessions, "", "every now and then", time.Hour, zap.NewNop())
	assert.Error(t, err)
}

func TestJanitorDisposesIdleSessions(t *testing.T) {
	now := time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)
	sessions := session.NewManager(nil, zap.NewNop()).WithClock(func() time.Time { return now })

	_, err := sessions.Store(session.WithKey(context.Background(), "idle"))
	require.NoError(t, err)

	s, err := NewScheduler(nil, sessions, "", "*/15 * * * *", time.Hour, zap.NewNop())
	require.NoError(t, err)
	require.Len(t, s.cron.Entries(), 1)

	now = now.Add(2 * time.Hour)
	s.disposeIdle(sessions, time.Hour)
	assert.Zero(t, sessions.Len())
}
