package editing

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	models "casefile/internal/domain/models/editing"
	editingSvc "casefile/internal/domain/services/editing"
	"casefile/internal/repository/memory"
	"casefile/internal/storage/blob"

	"github.com/stretchr/testify/require"
)

const testLockTTL = 2 * time.Minute

// fakeClock is a manually advanced coordinator clock
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type testEnv struct {
	clock    *fakeClock
	store    *memory.Store
	blobs    *blob.MemoryStore
	locks    editingSvc.LockService
	versions editingSvc.VersionService
	tiers    editingSvc.TierService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	clock := newFakeClock()
	store := memory.NewStore()
	blobs := blob.NewMemoryStore(3*time.Hour, 5*time.Hour)

	coordinator := NewCoordinator(&Config{
		Documents: store.Documents(),
		Locks:     store.Locks(),
		Versions:  store.Versions(),
		Content:   blobs,
		TxManager: store.TxManager(),
		LockTTL:   testLockTTL,
		Clock:     clock.Now,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	return &testEnv{
		clock:    clock,
		store:    store,
		blobs:    blobs,
		locks:    NewLockService(coordinator),
		versions: NewVersionService(coordinator),
		tiers:    NewTierService(coordinator),
	}
}

func (e *testEnv) createDocument(t *testing.T, content string) *models.Document {
	t.Helper()
	doc, _, err := e.versions.CreateDocument(context.Background(), &editingSvc.CreateDocumentRequest{
		Name:    "Motion to Dismiss",
		Content: content,
		UserID:  "alice",
	})
	require.NoError(t, err)
	return doc
}

func (e *testEnv) acquire(t *testing.T, documentID, holderID, sessionID string) *models.Lock {
	t.Helper()
	lock, err := e.locks.Acquire(context.Background(), &editingSvc.AcquireLockRequest{
		DocumentID: documentID,
		HolderID:   holderID,
		HolderName: holderID,
		SessionID:  sessionID,
	})
	require.NoError(t, err)
	return lock
}

func (e *testEnv) save(documentID, sessionID, userID, content string) (*editingSvc.CreateVersionResult, error) {
	return e.versions.CreateVersion(context.Background(), &editingSvc.CreateVersionRequest{
		DocumentID: documentID,
		SessionID:  sessionID,
		UserID:     userID,
		Content:    content,
	})
}
