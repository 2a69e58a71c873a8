// Package memory is an in-process backend for the editing repositories. It is
// used by tests and by single-node deployments without Postgres.
package memory

import (
	"context"
	"sync"

	models "casefile/internal/domain/models/editing"
	"casefile/internal/domain/repositories"
	editingRepo "casefile/internal/domain/repositories/editing"
)

// Store holds documents, locks and versions behind one mutex. Every read
// returns a copy so callers can never mutate stored state.
type Store struct {
	mu        sync.RWMutex
	documents map[string]*models.Document
	locks     map[string]*models.Lock
	versions  map[string][]*models.Version // by document, index = number - 1
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		documents: make(map[string]*models.Document),
		locks:     make(map[string]*models.Lock),
		versions:  make(map[string][]*models.Version),
	}
}

// Documents returns the document repository view of the store
func (s *Store) Documents() editingRepo.DocumentRepository { return &documentRepository{s} }

// Locks returns the lock repository view of the store
func (s *Store) Locks() editingRepo.LockRepository { return &lockRepository{s} }

// Versions returns the version repository view of the store
func (s *Store) Versions() editingRepo.VersionRepository { return &versionRepository{s} }

// TxManager returns a transaction manager that undoes a failed unit of work
func (s *Store) TxManager() repositories.TransactionManager { return &txManager{} }

type undoKey struct{}

// undoLog collects compensating actions for the open transaction
type undoLog struct {
	mu    sync.Mutex
	steps []func()
}

func (u *undoLog) push(step func()) {
	u.mu.Lock()
	u.steps = append(u.steps, step)
	u.mu.Unlock()
}

func (u *undoLog) rollback() {
	u.mu.Lock()
	defer u.mu.Unlock()
	for i := len(u.steps) - 1; i >= 0; i-- {
		u.steps[i]()
	}
	u.steps = nil
}

// onRollback registers step to run if the transaction in ctx fails
func onRollback(ctx context.Context, step func()) {
	if log, ok := ctx.Value(undoKey{}).(*undoLog); ok {
		log.push(step)
	}
}

type txManager struct{}

// ExecTx runs fn and reverts its writes if it fails. Isolation between
// concurrent units of work on one document comes from the caller's
// per-document guard.
func (m *txManager) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	if _, ok := ctx.Value(undoKey{}).(*undoLog); ok {
		return fn(ctx)
	}
	log := &undoLog{}
	if err := fn(context.WithValue(ctx, undoKey{}, log)); err != nil {
		log.rollback()
		return err
	}
	return nil
}

func copyDocument(d *models.Document) *models.Document {
	c := *d
	c.ActiveLock = nil
	return &c
}

func copyLock(l *models.Lock) *models.Lock {
	c := *l
	if l.ReleasedAt != nil {
		t := *l.ReleasedAt
		c.ReleasedAt = &t
	}
	if l.ReleaseReason != nil {
		r := *l.ReleaseReason
		c.ReleaseReason = &r
	}
	return &c
}

func copyVersion(v *models.Version) *models.Version {
	c := *v
	if v.Label != nil {
		s := *v.Label
		c.Label = &s
	}
	if v.ChangeSummary != nil {
		s := *v.ChangeSummary
		c.ChangeSummary = &s
	}
	if v.RehydrationRequestedAt != nil {
		t := *v.RehydrationRequestedAt
		c.RehydrationRequestedAt = &t
	}
	if v.RehydratedAt != nil {
		t := *v.RehydratedAt
		c.RehydratedAt = &t
	}
	return &c
}
