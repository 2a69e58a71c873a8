package editing

import (
	"encoding/json"
	"time"
)

// AvailabilityKind discriminates ContentAvailability
type AvailabilityKind string

const (
	Available    AvailabilityKind = "available"
	Pending      AvailabilityKind = "pending"
	NotRequested AvailabilityKind = "not_requested"
)

// ContentAvailability is a tagged union: Available(content) | Pending(etaHint) | NotRequested.
// Use the constructors; only the fields of the active variant are meaningful.
type ContentAvailability struct {
	Kind    AvailabilityKind
	content string
	eta     WaitRange
}

// WaitRange is an estimate of when a pending rehydration completes
type WaitRange struct {
	Earliest time.Time `json:"earliest"`
	Latest   time.Time `json:"latest"`
}

// AvailableContent builds the Available variant
func AvailableContent(content string) ContentAvailability {
	return ContentAvailability{Kind: Available, content: content}
}

// PendingContent builds the Pending variant
func PendingContent(eta WaitRange) ContentAvailability {
	return ContentAvailability{Kind: Pending, eta: eta}
}

// NotRequestedContent builds the NotRequested variant
func NotRequestedContent() ContentAvailability {
	return ContentAvailability{Kind: NotRequested}
}

// Content returns the content and true only for the Available variant
func (a ContentAvailability) Content() (string, bool) {
	return a.content, a.Kind == Available
}

// ETA returns the wait estimate and true only for the Pending variant
func (a ContentAvailability) ETA() (WaitRange, bool) {
	return a.eta, a.Kind == Pending
}

// MarshalJSON renders only the fields of the active variant
func (a ContentAvailability) MarshalJSON() ([]byte, error) {
	out := map[string]interface{}{"kind": a.Kind}
	switch a.Kind {
	case Available:
		out["content"] = a.content
	case Pending:
		out["eta"] = a.eta
	}
	return json.Marshal(out)
}
