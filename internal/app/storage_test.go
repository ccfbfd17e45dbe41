package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/orlandoalexander/educatch/internal/config"
	"github.com/orlandoalexander/educatch/internal/session"
	"github.com/orlandoalexander/educatch/internal/store"
)

func TestOpenStorageDemo(t *testing.T) {
	cfg := &config.Config{Storage: config.StorageMemory}

	storage, err := OpenStorage(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer storage.Close()
	require.NotNil(t, storage.Sessions)

	_, err = storage.Provider.Store(context.Background())
	assert.ErrorIs(t, err, store.ErrNoSession)

	s, err := storage.Provider.Store(session.WithKey(context.Background(), "demo"))
	require.NoError(t, err)
	assert.NotNil(t, s)
}

func TestOpenStorageMissingSeed(t *testing.T) {
	cfg := &config.Config{Storage: config.StorageMemory, DemoSeedPath: "does/not/exist.yaml"}

	_, err := OpenStorage(context.Background(), cfg, zap.NewNop())
	assert.Error(t, err)
}
