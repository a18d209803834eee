package kafka

import (
	"encoding/json"
	"time"
)

// SchemaVersion is the current event schema version
const SchemaVersion = "1.0"

// Recovery lifecycle event types
const (
	EventRelapseReported = "relapse.reported"
	EventLinkRequested   = "link.requested"
	EventLinkApproved    = "link.approved"
	EventLinkRejected    = "link.rejected"
	EventLinkRemoved     = "link.removed"
)

// RecoveryEvent is the wire shape for relapse and link lifecycle events.
// SubjectID is always the tracked person the event is about; ObserverID is
// set on link events.
type RecoveryEvent struct {
	EventType  string          `json:"event_type"`
	SubjectID  string          `json:"subject_id"`
	ObserverID string          `json:"observer_id,omitempty"`
	Data       json.RawMessage `json:"data,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
}
