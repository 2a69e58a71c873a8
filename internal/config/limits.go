package config

import "time"

const (
	// MaxDocumentNameLength is the maximum length for document names.
	// Limited to 255 to fit in PostgreSQL VARCHAR(255).
	MaxDocumentNameLength = 255

	// MaxVersionLabelLength is the maximum length for version labels
	// ("Sent to opposing counsel", "Signed copy").
	MaxVersionLabelLength = 255

	// MaxContentLength is the maximum document length in characters.
	// Large briefs run to a few hundred thousand characters; 5M leaves
	// headroom while keeping a single save bounded.
	MaxContentLength = 5_000_000

	// MaxVersionPageSize caps one page of version history.
	MaxVersionPageSize = 200
)

const (
	// DefaultLockTTL is how long a lock survives without a heartbeat.
	DefaultLockTTL = 2 * time.Minute

	// MinLockTTL keeps the TTL above realistic network round trips.
	MinLockTTL = 10 * time.Second

	// DefaultHeartbeatInterval leaves room for three missed heartbeats
	// before the default TTL lapses.
	DefaultHeartbeatInterval = 30 * time.Second

	// DefaultAutosaveDelay is the quiet period after an edit before an
	// autosave fires.
	DefaultAutosaveDelay = 10 * time.Second

	// DefaultSessionIdleTTL closes websocket sessions nobody interacted with.
	DefaultSessionIdleTTL = 30 * time.Minute

	// DefaultRestoreDays is how long S3 keeps a restored copy readable.
	DefaultRestoreDays = 7
)
