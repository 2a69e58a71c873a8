package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"casefile/internal/domain"
	models "casefile/internal/domain/models/editing"
	editingSvc "casefile/internal/domain/services/editing"

	"golang.org/x/time/rate"
)

// State is the position of an EditSession in its lifecycle
type State string

const (
	StateClosed    State = "closed"
	StateOpening   State = "opening"
	StateReadWrite State = "read_write"
	StateSaving    State = "saving"
	StateReadOnly  State = "read_only"
	StateLockLost  State = "lock_lost"
)

var (
	// ErrNotWritable is returned for edits and saves outside read_write
	ErrNotWritable = errors.New("session is not writable")

	// ErrSessionClosed is returned for any call after Close
	ErrSessionClosed = errors.New("session is closed")

	// ErrRetryTooSoon is returned when RetryAcquire exceeds its rate
	ErrRetryTooSoon = errors.New("lock retry rate exceeded")
)

// Snapshot is the externally visible state of a session
type Snapshot struct {
	DocumentID          string    `json:"document_id"`
	SessionID           string    `json:"session_id"`
	State               State     `json:"state"`
	Dirty               bool      `json:"dirty"`
	NeedsReconciliation bool      `json:"needs_reconciliation"`
	HolderName          string    `json:"holder_name,omitempty"`
	LastSavedVersion    int       `json:"last_saved_version"`
	LastSaveSkipped     bool      `json:"last_save_skipped"`
	LastAutosaveError   string    `json:"last_autosave_error,omitempty"`
	LockExpiresAt       time.Time `json:"lock_expires_at,omitempty"`
}

// Config wires one EditSession
type Config struct {
	DocumentID string
	UserID     string
	UserName   string
	SessionID  string

	Locks    editingSvc.LockService
	Versions editingSvc.VersionService

	Timers            Timers
	AutosaveDelay     time.Duration
	HeartbeatInterval time.Duration
	RetryLimiter      *rate.Limiter   // Nil allows one retry per heartbeat interval
	Observer          func(Snapshot) // Called after every state change
	Logger            *slog.Logger
}

// EditSession ties one client's lock, dirty content and save triggers
// together. Heartbeats and autosaves run on timers and report failures as
// state transitions, never as errors to unrelated callers.
type EditSession struct {
	documentID string
	userID     string
	userName   string
	sessionID  string

	locks    editingSvc.LockService
	versions editingSvc.VersionService

	timers            Timers
	heartbeatInterval time.Duration
	autosave          *AutoSaveScheduler
	retry             *rate.Limiter
	observer          func(Snapshot)
	logger            *slog.Logger

	// Timer-driven calls run under ctx; Close cancels it
	ctx    context.Context
	cancel context.CancelFunc

	saveMu sync.Mutex // single-flight saves

	mu                  sync.Mutex
	state               State
	content             string
	dirty               bool
	editSeq             uint64 // bumped by every Edit
	needsReconciliation bool
	holderName          string
	lastSavedVersion    int
	lastSaveSkipped     bool
	lastAutosaveErr     error
	lockExpiresAt       time.Time
	heartbeat           Task
	heartbeatGen        uint64
}

// New creates a closed session
func New(cfg Config) *EditSession {
	timers := cfg.Timers
	if timers == nil {
		timers = SystemTimers
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	retry := cfg.RetryLimiter
	if retry == nil {
		retry = rate.NewLimiter(rate.Every(cfg.HeartbeatInterval), 1)
	}
	userName := cfg.UserName
	if userName == "" {
		userName = cfg.UserID
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &EditSession{
		documentID:        cfg.DocumentID,
		userID:            cfg.UserID,
		userName:          userName,
		sessionID:         cfg.SessionID,
		locks:             cfg.Locks,
		versions:          cfg.Versions,
		timers:            timers,
		heartbeatInterval: cfg.HeartbeatInterval,
		retry:             retry,
		observer:          cfg.Observer,
		logger:            logger.With("document_id", cfg.DocumentID, "session_id", cfg.SessionID),
		ctx:               ctx,
		cancel:            cancel,
		state:             StateClosed,
	}
	s.autosave = NewAutoSaveScheduler(timers, cfg.AutosaveDelay, s.runAutosave)
	return s
}

// ID returns the session id
func (s *EditSession) ID() string { return s.sessionID }

// DocumentID returns the edited document id
func (s *EditSession) DocumentID() string { return s.documentID }

// UserID returns the editing user
func (s *EditSession) UserID() string { return s.userID }

// Snapshot returns the current state
func (s *EditSession) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Content returns the working copy
func (s *EditSession) Content() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.content
}

func (s *EditSession) snapshotLocked() Snapshot {
	snap := Snapshot{
		DocumentID:          s.documentID,
		SessionID:           s.sessionID,
		State:               s.state,
		Dirty:               s.dirty,
		NeedsReconciliation: s.needsReconciliation,
		HolderName:          s.holderName,
		LastSavedVersion:    s.lastSavedVersion,
		LastSaveSkipped:     s.lastSaveSkipped,
		LockExpiresAt:       s.lockExpiresAt,
	}
	if s.lastAutosaveErr != nil {
		snap.LastAutosaveError = s.lastAutosaveErr.Error()
	}
	return snap
}

// notify pushes the current snapshot to the observer. Never call with mu held.
func (s *EditSession) notify() {
	if s.observer == nil {
		return
	}
	s.observer(s.Snapshot())
}

// Open loads the document and tries to take its lock. A lock held elsewhere
// leaves the session read-only; that is not an error.
func (s *EditSession) Open(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	if state := s.state; state != StateClosed {
		s.mu.Unlock()
		return s.Snapshot(), fmt.Errorf("%w: session already %s", domain.ErrConflict, state)
	}
	if s.ctx.Err() != nil {
		s.mu.Unlock()
		return s.Snapshot(), ErrSessionClosed
	}
	s.state = StateOpening
	s.mu.Unlock()
	s.notify()

	doc, err := s.versions.GetDocument(ctx, s.documentID)
	if err != nil {
		s.setState(StateClosed)
		return s.Snapshot(), err
	}

	s.mu.Lock()
	s.content = doc.Content
	s.lastSavedVersion = doc.CurrentVersionNumber
	s.mu.Unlock()

	if err := s.acquire(ctx); err != nil {
		s.setState(StateClosed)
		return s.Snapshot(), err
	}
	return s.Snapshot(), nil
}

// acquire requests the lock and moves to read_write or read_only
func (s *EditSession) acquire(ctx context.Context) error {
	lock, err := s.locks.Acquire(ctx, &editingSvc.AcquireLockRequest{
		DocumentID: s.documentID,
		HolderID:   s.userID,
		HolderName: s.userName,
		SessionID:  s.sessionID,
	})

	var held *domain.LockHeldByOtherError
	switch {
	case errors.As(err, &held):
		s.mu.Lock()
		s.state = StateReadOnly
		s.holderName = held.CurrentHolderName
		s.mu.Unlock()
		s.logger.Info("document locked elsewhere, opened read-only", "holder", held.CurrentHolderName)
		s.notify()
		return nil
	case err != nil:
		return err
	}

	s.mu.Lock()
	s.state = StateReadWrite
	s.holderName = ""
	s.lockExpiresAt = lock.ExpiresAt
	s.scheduleHeartbeatLocked()
	if s.dirty {
		s.autosave.Schedule()
	}
	s.mu.Unlock()
	s.notify()
	return nil
}

// Edit replaces the working copy and marks the session dirty. Every edit
// counts, even one that restores the saved text; the server skips those.
func (s *EditSession) Edit(content string) error {
	s.mu.Lock()
	switch state := s.state; state {
	case StateReadWrite, StateSaving:
	case StateClosed:
		s.mu.Unlock()
		return ErrSessionClosed
	default:
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotWritable, state)
	}
	s.content = content
	s.editSeq++
	wasDirty := s.dirty
	s.dirty = true
	s.autosave.Schedule()
	s.mu.Unlock()

	if !wasDirty {
		s.notify()
	}
	return nil
}

// Save writes the working copy as an edit version. A save while another is
// in flight waits for it, then returns skipped if nothing changed since.
func (s *EditSession) Save(ctx context.Context) (*editingSvc.CreateVersionResult, error) {
	return s.save(ctx, models.ChangeEdit)
}

func (s *EditSession) runAutosave() {
	result, err := s.save(s.ctx, models.ChangeAutoSave)
	if err != nil {
		if !errors.Is(err, ErrNotWritable) && !errors.Is(err, ErrSessionClosed) {
			s.logger.Warn("autosave failed", "error", err)
		}
		return
	}
	if result.Skipped {
		s.logger.Debug("autosave skipped, content unchanged")
	}
}

func (s *EditSession) save(ctx context.Context, changeType models.ChangeType) (*editingSvc.CreateVersionResult, error) {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.Lock()
	switch state := s.state; state {
	case StateReadWrite:
	case StateClosed:
		s.mu.Unlock()
		return nil, ErrSessionClosed
	default:
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrNotWritable, state)
	}
	if !s.dirty {
		s.lastSaveSkipped = true
		s.mu.Unlock()
		return &editingSvc.CreateVersionResult{Skipped: true}, nil
	}
	content := s.content
	seq := s.editSeq
	s.state = StateSaving
	s.autosave.Cancel()
	s.mu.Unlock()
	s.notify()

	result, err := s.versions.CreateVersion(ctx, &editingSvc.CreateVersionRequest{
		DocumentID: s.documentID,
		SessionID:  s.sessionID,
		UserID:     s.userID,
		Content:    content,
		ChangeType: changeType,
	})

	s.mu.Lock()
	if s.state != StateSaving {
		// Closed or lost the lock while the save was in flight. A committed
		// save still counts; only the state stays where it moved.
		if err != nil {
			s.mu.Unlock()
			return nil, err
		}
		s.recordSaveLocked(result, seq)
		s.mu.Unlock()
		s.notify()
		return result, nil
	}

	switch {
	case errors.Is(err, domain.ErrLockNotHeld) || errors.Is(err, domain.ErrLockHeldByOther):
		s.loseLockLocked(err)
		if changeType == models.ChangeAutoSave {
			s.needsReconciliation = true
			s.lastAutosaveErr = err
		}
		s.mu.Unlock()
		s.notify()
		return nil, err
	case err != nil:
		s.state = StateReadWrite
		if changeType == models.ChangeAutoSave {
			s.lastAutosaveErr = err
		}
		s.autosave.Schedule()
		s.mu.Unlock()
		s.notify()
		return nil, err
	}

	s.state = StateReadWrite
	s.recordSaveLocked(result, seq)
	if changeType == models.ChangeAutoSave {
		s.lastAutosaveErr = nil
	} else {
		s.needsReconciliation = false
	}
	if s.dirty {
		s.autosave.Schedule()
	}
	s.mu.Unlock()
	s.notify()
	return result, nil
}

// recordSaveLocked notes a committed save. Edits made after seq keep the
// session dirty.
func (s *EditSession) recordSaveLocked(result *editingSvc.CreateVersionResult, seq uint64) {
	s.lastSaveSkipped = result.Skipped
	if result.Version != nil {
		s.lastSavedVersion = result.Version.VersionNumber
	}
	if s.editSeq == seq {
		s.dirty = false
	}
}

// loseLockLocked moves to lock_lost and stops background work
func (s *EditSession) loseLockLocked(cause error) {
	s.state = StateLockLost
	s.autosave.Cancel()
	s.stopHeartbeatLocked()

	var notHeld *domain.LockNotHeldError
	if errors.As(cause, &notHeld) {
		s.holderName = notHeld.CurrentHolderName
	}
	s.logger.Warn("lock lost, changes may not save", "error", cause)
}

func (s *EditSession) scheduleHeartbeatLocked() {
	s.stopHeartbeatLocked()
	if s.heartbeatInterval <= 0 {
		return
	}
	gen := s.heartbeatGen
	s.heartbeat = s.timers.AfterFunc(s.heartbeatInterval, func() { s.beat(gen) })
}

func (s *EditSession) stopHeartbeatLocked() {
	s.heartbeatGen++
	if s.heartbeat != nil {
		s.heartbeat.Stop()
		s.heartbeat = nil
	}
}

func (s *EditSession) beat(gen uint64) {
	s.mu.Lock()
	if gen != s.heartbeatGen || (s.state != StateReadWrite && s.state != StateSaving) {
		s.mu.Unlock()
		return
	}
	s.heartbeat = nil
	s.mu.Unlock()

	lock, err := s.locks.Heartbeat(s.ctx, s.documentID, s.userID, s.sessionID)

	s.mu.Lock()
	if gen != s.heartbeatGen {
		s.mu.Unlock()
		return
	}
	switch {
	case errors.Is(err, domain.ErrLockNotHeld):
		s.loseLockLocked(err)
		s.mu.Unlock()
		s.notify()
		return
	case err != nil:
		// Transient; the lock survives until expiry, so keep beating
		s.logger.Warn("heartbeat failed", "error", err)
	default:
		s.lockExpiresAt = lock.ExpiresAt
	}
	s.scheduleHeartbeatLocked()
	s.mu.Unlock()
}

// RetryAcquire tries to take the lock again from read_only or lock_lost.
// It is rate limited; the UI decides when to call it.
func (s *EditSession) RetryAcquire(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	state := s.state
	s.mu.Unlock()

	switch state {
	case StateReadOnly, StateLockLost:
	case StateClosed:
		return s.Snapshot(), ErrSessionClosed
	default:
		return s.Snapshot(), nil
	}
	if !s.retry.Allow() {
		return s.Snapshot(), ErrRetryTooSoon
	}

	doc, err := s.versions.GetDocument(ctx, s.documentID)
	if err != nil {
		return s.Snapshot(), err
	}

	s.mu.Lock()
	if state == StateReadOnly {
		s.content = doc.Content
		s.lastSavedVersion = doc.CurrentVersionNumber
	} else if doc.CurrentVersionNumber != s.lastSavedVersion && s.dirty {
		// Someone else appended while this session held unsaved edits
		s.needsReconciliation = true
	}
	s.mu.Unlock()

	if err := s.acquire(ctx); err != nil {
		return s.Snapshot(), err
	}
	return s.Snapshot(), nil
}

// Close releases the lock with explicit_close and stops all timers
func (s *EditSession) Close(ctx context.Context) error {
	return s.close(ctx, models.ReleaseExplicitClose)
}

// SaveAndClose saves pending edits, then releases with save_completed. The
// release is attempted even when the save fails.
func (s *EditSession) SaveAndClose(ctx context.Context) (*editingSvc.CreateVersionResult, error) {
	result, saveErr := s.Save(ctx)
	reason := models.ReleaseSaveCompleted
	if saveErr != nil {
		reason = models.ReleaseExplicitClose
	}
	if err := s.close(ctx, reason); err != nil && saveErr == nil {
		return result, err
	}
	return result, saveErr
}

// Expire closes a session abandoned by its client
func (s *EditSession) Expire(ctx context.Context) error {
	return s.close(ctx, models.ReleaseTimeout)
}

func (s *EditSession) close(ctx context.Context, reason models.ReleaseReason) error {
	s.mu.Lock()
	if s.state == StateClosed && s.ctx.Err() != nil {
		s.mu.Unlock()
		return nil
	}
	hadLock := s.state == StateReadWrite || s.state == StateSaving || s.state == StateLockLost
	s.state = StateClosed
	s.autosave.Cancel()
	s.stopHeartbeatLocked()
	s.cancel()
	s.mu.Unlock()
	s.notify()

	if !hadLock {
		return nil
	}
	err := s.locks.Release(ctx, s.documentID, s.userID, s.sessionID, reason)
	if errors.Is(err, domain.ErrLockNotHeld) {
		s.logger.Info("lock already taken over at close", "reason", reason)
		return nil
	}
	if err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	s.logger.Debug("session closed", "reason", reason)
	return nil
}

func (s *EditSession) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
	s.notify()
}
