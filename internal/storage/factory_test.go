package storage_test

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/philanthrohub/directory/internal/config"
	"github.com/philanthrohub/directory/internal/storage"
)

type mockStorage struct{}

func (m *mockStorage) Upload(_ context.Context, _ string, _ io.Reader, _ string) (*storage.UploadResult, error) {
	return nil, nil
}
func (m *mockStorage) Download(_ context.Context, _ string) (io.ReadCloser, error) { return nil, nil }
func (m *mockStorage) Exists(_ context.Context, _ string) (bool, error)           { return false, nil }

func TestRegister_AddsFactory(t *testing.T) {
	storage.Register("test-backend", func(_ *config.StorageConfig) (storage.Storage, error) {
		return &mockStorage{}, nil
	})

	s, err := storage.NewStorage(&config.StorageConfig{Backend: "test-backend"})
	require.NoError(t, err)
	assert.NotNil(t, s)
	assert.Contains(t, storage.Backends(), "test-backend")
}

func TestNewStorage_UnknownBackend(t *testing.T) {
	_, err := storage.NewStorage(&config.StorageConfig{Backend: "completely-unknown-backend"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported storage backend")
}

func TestNewStorage_PassesSection(t *testing.T) {
	var got *config.StorageConfig
	storage.Register("capture-backend", func(cfg *config.StorageConfig) (storage.Storage, error) {
		got = cfg
		return &mockStorage{}, nil
	})

	cfg := &config.StorageConfig{Backend: "capture-backend", Local: config.LocalStorageConfig{BasePath: "/data"}}
	_, err := storage.NewStorage(cfg)
	require.NoError(t, err)
	assert.Same(t, cfg, got)
}
