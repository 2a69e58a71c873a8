package app

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"casefile/internal/config"
	editingSvc "casefile/internal/domain/services/editing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_MemoryBackends(t *testing.T) {
	cfg := &config.Config{
		StoreBackend: "memory",
		BlobBackend:  "memory",
		LockTTL:      config.DefaultLockTTL,
	}
	services, err := Setup(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	defer services.Close()

	doc, first, err := services.Versions.CreateDocument(context.Background(), &editingSvc.CreateDocumentRequest{
		Name:    "Brief",
		Content: "draft",
		UserID:  "alice",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, first.VersionNumber)

	lock, err := services.Locks.Acquire(context.Background(), &editingSvc.AcquireLockRequest{
		DocumentID: doc.ID,
		HolderID:   "alice",
		HolderName: "Alice",
		SessionID:  "s1",
	})
	require.NoError(t, err)
	assert.Equal(t, "s1", lock.SessionID)
}

func TestSetup_UnknownBackends(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	_, err := Setup(context.Background(), &config.Config{StoreBackend: "sqlite", BlobBackend: "memory"}, logger)
	assert.ErrorContains(t, err, "store backend")

	_, err = Setup(context.Background(), &config.Config{StoreBackend: "memory", BlobBackend: "ftp"}, logger)
	assert.ErrorContains(t, err, "blob backend")
}
