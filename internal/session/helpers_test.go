package session

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	models "casefile/internal/domain/models/editing"
	editingSvc "casefile/internal/domain/services/editing"
	"casefile/internal/repository/memory"
	editing "casefile/internal/service/editing"
	"casefile/internal/storage/blob"

	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

const (
	testLockTTL   = 2 * time.Minute
	testHeartbeat = 30 * time.Second
	testAutosave  = 10 * time.Second
)

// fakeTimers is a manual clock with a timer queue. Advance fires due
// callbacks in order, moving the clock to each deadline first.
type fakeTimers struct {
	mu    sync.Mutex
	now   time.Time
	tasks []*fakeTask
}

type fakeTask struct {
	timers  *fakeTimers
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func newFakeTimers() *fakeTimers {
	return &fakeTimers{now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
}

func (ft *fakeTimers) Now() time.Time {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	return ft.now
}

func (ft *fakeTimers) AfterFunc(d time.Duration, f func()) Task {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	task := &fakeTask{timers: ft, at: ft.now.Add(d), f: f}
	ft.tasks = append(ft.tasks, task)
	return task
}

func (t *fakeTask) Stop() bool {
	t.timers.mu.Lock()
	defer t.timers.mu.Unlock()
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

// Advance moves time forward by d, running every callback that falls due
func (ft *fakeTimers) Advance(d time.Duration) {
	ft.mu.Lock()
	target := ft.now.Add(d)
	ft.mu.Unlock()

	for {
		ft.mu.Lock()
		var live []*fakeTask
		for _, t := range ft.tasks {
			if !t.fired && !t.stopped {
				live = append(live, t)
			}
		}
		ft.tasks = live
		sort.SliceStable(live, func(i, j int) bool { return live[i].at.Before(live[j].at) })
		if len(live) == 0 || live[0].at.After(target) {
			ft.now = target
			ft.mu.Unlock()
			return
		}
		next := live[0]
		next.fired = true
		if next.at.After(ft.now) {
			ft.now = next.at
		}
		ft.mu.Unlock()

		next.f()
	}
}

// Skip moves time forward without firing anything, as if the process stalled
func (ft *fakeTimers) Skip(d time.Duration) {
	ft.mu.Lock()
	ft.now = ft.now.Add(d)
	ft.mu.Unlock()
}

// Pending counts live callbacks
func (ft *fakeTimers) Pending() int {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	n := 0
	for _, t := range ft.tasks {
		if !t.fired && !t.stopped {
			n++
		}
	}
	return n
}

type harness struct {
	timers   *fakeTimers
	store    *memory.Store
	locks    editingSvc.LockService
	versions editingSvc.VersionService
	logger   *slog.Logger
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	timers := newFakeTimers()
	store := memory.NewStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	coordinator := editing.NewCoordinator(&editing.Config{
		Documents: store.Documents(),
		Locks:     store.Locks(),
		Versions:  store.Versions(),
		Content:   blob.NewMemoryStore(time.Hour, 2*time.Hour),
		TxManager: store.TxManager(),
		LockTTL:   testLockTTL,
		Clock:     timers.Now,
		Logger:    logger,
	})
	return &harness{
		timers:   timers,
		store:    store,
		locks:    editing.NewLockService(coordinator),
		versions: editing.NewVersionService(coordinator),
		logger:   logger,
	}
}

func (h *harness) createDocument(t *testing.T, content string) *models.Document {
	t.Helper()
	doc, _, err := h.versions.CreateDocument(context.Background(), &editingSvc.CreateDocumentRequest{
		Name:    "Deposition Outline",
		Content: content,
		UserID:  "U1",
	})
	require.NoError(t, err)
	return doc
}

func (h *harness) newSession(documentID, userID, sessionID string, observer func(Snapshot)) *EditSession {
	return New(Config{
		DocumentID:        documentID,
		UserID:            userID,
		SessionID:         sessionID,
		Locks:             h.locks,
		Versions:          h.versions,
		Timers:            h.timers,
		AutosaveDelay:     testAutosave,
		HeartbeatInterval: testHeartbeat,
		RetryLimiter:      rate.NewLimiter(rate.Every(time.Hour), 1),
		Observer:          observer,
		Logger:            h.logger,
	})
}

func (h *harness) versionCount(t *testing.T, documentID string) int {
	t.Helper()
	versions, err := h.versions.ListVersions(context.Background(), documentID, nil)
	require.NoError(t, err)
	return len(versions)
}

// recorder collects observed states
type recorder struct {
	mu     sync.Mutex
	states []State
}

func (r *recorder) observe(s Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n := len(r.states); n == 0 || r.states[n-1] != s.State {
		r.states = append(r.states, s.State)
	}
}

func (r *recorder) seen() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]State(nil), r.states...)
}
