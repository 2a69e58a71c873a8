package editing

import "time"

// ReleaseReason records why a lock stopped being held
type ReleaseReason string

const (
	ReleaseExplicitClose ReleaseReason = "explicit_close"
	ReleaseSaveCompleted ReleaseReason = "save_completed"
	ReleaseTimeout       ReleaseReason = "timeout"
)

// ReleaseReasons lists every accepted release reason
var ReleaseReasons = []interface{}{ReleaseExplicitClose, ReleaseSaveCompleted, ReleaseTimeout}

// Lock is the exclusive right for one session to append versions.
// There is at most one row per document; a released or expired row is kept
// for diagnostics until the next acquisition overwrites it.
//
// SessionID is never serialized: the holder already knows it, and anyone
// else holding it could pass as the holder's session.
type Lock struct {
	DocumentID      string         `json:"document_id" db:"document_id"`
	HolderID        string         `json:"holder_id" db:"holder_id"`
	HolderName      string         `json:"holder_name" db:"holder_name"`
	SessionID       string         `json:"-" db:"session_id"`
	AcquiredAt      time.Time      `json:"acquired_at" db:"acquired_at"`
	LastHeartbeatAt time.Time      `json:"last_heartbeat_at" db:"last_heartbeat_at"`
	ExpiresAt       time.Time      `json:"expires_at" db:"expires_at"`
	ReleasedAt      *time.Time     `json:"released_at,omitempty" db:"released_at"`
	ReleaseReason   *ReleaseReason `json:"release_reason,omitempty" db:"release_reason"`
}

// Active reports whether the lock is unreleased and unexpired at now.
// now must come from the coordinator clock.
func (l *Lock) Active(now time.Time) bool {
	if l == nil || l.ReleasedAt != nil {
		return false
	}
	return now.Before(l.ExpiresAt)
}

// HeldBy reports whether holderID, through sessionID, holds the lock at now
func (l *Lock) HeldBy(holderID, sessionID string, now time.Time) bool {
	return l.Active(now) && l.OwnedBy(holderID, sessionID)
}

// OwnedBy reports whether the lock row belongs to holderID's sessionID,
// regardless of expiry
func (l *Lock) OwnedBy(holderID, sessionID string) bool {
	return l != nil && l.HolderID == holderID && l.SessionID == sessionID
}

// Remaining is the TTL left before expiry, zero once inactive
func (l *Lock) Remaining(now time.Time) time.Duration {
	if !l.Active(now) {
		return 0
	}
	return l.ExpiresAt.Sub(now)
}
