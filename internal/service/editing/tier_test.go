package editing

import (
	"context"
	"errors"
	"testing"
	"time"

	"casefile/internal/domain"
	models "casefile/internal/domain/models/editing"
	editingSvc "casefile/internal/domain/services/editing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// archiveFirstVersion creates a document with two versions and archives v1
func archiveFirstVersion(t *testing.T, env *testEnv) (*models.Document, *models.Version) {
	t.Helper()
	ctx := context.Background()
	doc := env.createDocument(t, "privileged memo")
	env.acquire(t, doc.ID, "alice", "s1")
	_, err := env.save(doc.ID, "s1", "alice", "redacted memo")
	require.NoError(t, err)

	v1, err := env.tiers.SetTier(ctx, doc.ID, 1, models.TierArchive)
	require.NoError(t, err)
	require.True(t, v1.Archived)
	env.blobs.Archive(v1.ContentRef)
	return doc, v1
}

func TestArchivedContent_IsGated(t *testing.T) {
	env := newTestEnv(t)
	doc, v1 := archiveFirstVersion(t, env)
	ctx := context.Background()

	_, err := env.versions.GetVersionContent(ctx, doc.ID, v1.ID)
	require.Error(t, err)
	var archived *domain.ArchivedContentUnavailableError
	require.True(t, errors.As(err, &archived))
	assert.False(t, archived.RehydrationPending)
	assert.Equal(t, 1, archived.VersionNumber)
	assert.ErrorIs(t, err, domain.ErrArchivedContentUnavailable)

	availability, err := env.tiers.Availability(ctx, doc.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, models.NotRequested, availability.Kind)

	_, err = env.versions.CompareVersions(ctx, doc.ID, 1, 2)
	assert.ErrorIs(t, err, domain.ErrArchivedContentUnavailable)

	_, err = env.versions.RestoreVersion(ctx, &editingSvc.RestoreVersionRequest{
		DocumentID: doc.ID, SessionID: "s1", UserID: "alice", TargetVersionID: v1.ID,
	})
	assert.ErrorIs(t, err, domain.ErrArchivedContentUnavailable)

	// Metadata stays readable
	versions, err := env.versions.ListVersions(ctx, doc.ID, nil)
	require.NoError(t, err)
	assert.Len(t, versions, 2)
	assert.Equal(t, models.TierArchive, versions[1].Tier)
}

func TestRehydration_Lifecycle(t *testing.T) {
	env := newTestEnv(t)
	doc, v1 := archiveFirstVersion(t, env)
	ctx := context.Background()
	requestedAt := env.clock.Now()

	result, err := env.tiers.RequestRehydration(ctx, doc.ID, 1)
	require.NoError(t, err)
	assert.True(t, result.Accepted)
	assert.False(t, result.AlreadyPending)
	assert.Equal(t, models.RehydrationPending, result.State)
	require.NotNil(t, result.EstimatedWaitRange)
	assert.Equal(t, requestedAt.Add(3*time.Hour), result.EstimatedWaitRange.Earliest)
	assert.Equal(t, requestedAt.Add(5*time.Hour), result.EstimatedWaitRange.Latest)

	again, err := env.tiers.RequestRehydration(ctx, doc.ID, 1)
	require.NoError(t, err)
	assert.True(t, again.AlreadyPending)

	_, err = env.versions.GetVersionContent(ctx, doc.ID, v1.ID)
	var archived *domain.ArchivedContentUnavailableError
	require.True(t, errors.As(err, &archived))
	assert.True(t, archived.RehydrationPending)

	availability, err := env.tiers.Availability(ctx, doc.ID, 1)
	require.NoError(t, err)
	eta, pending := availability.ETA()
	require.True(t, pending)
	assert.Equal(t, requestedAt.Add(3*time.Hour), eta.Earliest)

	env.clock.Advance(4 * time.Hour)
	env.blobs.CompleteRestore(v1.ContentRef)

	content, err := env.versions.GetVersionContent(ctx, doc.ID, v1.ID)
	require.NoError(t, err)
	assert.Equal(t, "privileged memo", content)

	stored, err := env.store.Versions().GetByNumber(ctx, doc.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, models.RehydrationReady, stored.RehydrationState)
	require.NotNil(t, stored.RehydratedAt)
	assert.Equal(t, env.clock.Now(), *stored.RehydratedAt)

	ready, err := env.tiers.RequestRehydration(ctx, doc.ID, 1)
	require.NoError(t, err)
	assert.True(t, ready.Ready)
}

func TestRefreshRehydration_PollsBackend(t *testing.T) {
	env := newTestEnv(t)
	doc, v1 := archiveFirstVersion(t, env)
	ctx := context.Background()

	_, err := env.tiers.RequestRehydration(ctx, doc.ID, 1)
	require.NoError(t, err)

	v, err := env.tiers.RefreshRehydration(ctx, doc.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, models.RehydrationPending, v.RehydrationState)

	env.blobs.CompleteRestore(v1.ContentRef)
	v, err = env.tiers.RefreshRehydration(ctx, doc.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, models.RehydrationReady, v.RehydrationState)

	availability, err := env.tiers.Availability(ctx, doc.ID, 1)
	require.NoError(t, err)
	content, ok := availability.Content()
	require.True(t, ok)
	assert.Equal(t, "privileged memo", content)
}

func TestRestoredCopyExpiry_ResetsHandshake(t *testing.T) {
	env := newTestEnv(t)
	doc, v1 := archiveFirstVersion(t, env)
	ctx := context.Background()

	_, err := env.tiers.RequestRehydration(ctx, doc.ID, 1)
	require.NoError(t, err)
	env.blobs.CompleteRestore(v1.ContentRef)
	_, err = env.tiers.CompleteRehydration(ctx, doc.ID, 1)
	require.NoError(t, err)

	env.blobs.ExpireRestore(v1.ContentRef)

	_, err = env.versions.GetVersionContent(ctx, doc.ID, v1.ID)
	assert.ErrorIs(t, err, domain.ErrArchivedContentUnavailable)

	stored, err := env.store.Versions().GetByNumber(ctx, doc.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, models.RehydrationNone, stored.RehydrationState)

	availability, err := env.tiers.Availability(ctx, doc.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, models.NotRequested, availability.Kind)
}

func TestRequestRehydration_Errors(t *testing.T) {
	env := newTestEnv(t)
	doc := env.createDocument(t, "hot content")
	ctx := context.Background()

	_, err := env.tiers.RequestRehydration(ctx, doc.ID, 1)
	assert.ErrorIs(t, err, domain.ErrNotArchived)

	_, err = env.tiers.RequestRehydration(ctx, doc.ID, 7)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = env.tiers.RequestRehydration(ctx, doc.ID, 0)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = env.tiers.RequestRehydration(ctx, "missing", 1)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestSetTier(t *testing.T) {
	env := newTestEnv(t)
	doc, v1 := archiveFirstVersion(t, env)
	ctx := context.Background()

	_, err := env.tiers.SetTier(ctx, doc.ID, 1, models.Tier("frozen"))
	assert.ErrorIs(t, err, domain.ErrValidation)

	cool, err := env.tiers.SetTier(ctx, doc.ID, 1, models.TierCool)
	require.NoError(t, err)
	assert.False(t, cool.Archived)
	assert.Equal(t, models.RehydrationNone, cool.RehydrationState)
	env.blobs.Unarchive(v1.ContentRef)

	availability, err := env.tiers.Availability(ctx, doc.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, models.Available, availability.Kind)

	_, err = env.tiers.SetTier(ctx, doc.ID, 9, models.TierHot)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCompleteRehydration_RejectsHotVersion(t *testing.T) {
	env := newTestEnv(t)
	doc := env.createDocument(t, "hot")

	_, err := env.tiers.CompleteRehydration(context.Background(), doc.ID, 1)
	assert.ErrorIs(t, err, domain.ErrNotArchived)
}
