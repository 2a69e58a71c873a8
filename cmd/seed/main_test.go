package main

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"casefile/internal/app"
	"casefile/internal/config"
	models "casefile/internal/domain/models/editing"
	editingSvc "casefile/internal/domain/services/editing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFixtures_Default(t *testing.T) {
	fixtures, err := parseFixtures(defaultFixtures)
	require.NoError(t, err)
	require.Len(t, fixtures.Documents, 2)
	assert.Len(t, fixtures.Documents[0].Versions, 3)
	assert.Equal(t, "Sent to client", fixtures.Documents[0].Versions[1].Label)
	assert.Equal(t, models.ChangeMerge, fixtures.Documents[1].Versions[1].ChangeType)
}

func TestParseFixtures_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"not yaml", "documents: [::"},
		{"empty", "documents: []"},
		{"missing author", "documents:\n  - name: Brief\n    versions:\n      - content: x\n"},
		{"no versions", "documents:\n  - name: Brief\n    author: a\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseFixtures([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestSeedDocument_ReplaysHistory(t *testing.T) {
	ctx := context.Background()
	services, err := app.Setup(ctx, &config.Config{
		StoreBackend: "memory",
		BlobBackend:  "memory",
		LockTTL:      config.DefaultLockTTL,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	defer services.Close()

	fixtures, err := parseFixtures(defaultFixtures)
	require.NoError(t, err)

	doc, err := seedDocument(ctx, services, fixtures.Documents[0])
	require.NoError(t, err)
	assert.Equal(t, 3, doc.CurrentVersionNumber)
	assert.Nil(t, doc.ActiveLock, "seed releases its lock")

	versions, err := services.Versions.ListVersions(ctx, doc.ID, &editingSvc.ListVersionsOptions{})
	require.NoError(t, err)
	require.Len(t, versions, 3)
	require.NotNil(t, versions[1].Label)
	assert.Equal(t, "Sent to client", *versions[1].Label)
	assert.Equal(t, models.ChangeEdit, versions[0].ChangeType)
}
