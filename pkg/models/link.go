package models

import "time"

// LinkRequestStatus is the consent state machine for a family link request.
// Terminal states are final; a fresh request must be created to retry.
type LinkRequestStatus string

const (
	LinkRequestPending  LinkRequestStatus = "pending"
	LinkRequestApproved LinkRequestStatus = "approved"
	LinkRequestRejected LinkRequestStatus = "rejected"
)

// RelationshipStatus is the observer→subject relationship as seen by the caller.
type RelationshipStatus string

const (
	RelationshipNone            RelationshipStatus = "none"
	RelationshipPendingIncoming RelationshipStatus = "pending_incoming"
	RelationshipPendingOutgoing RelationshipStatus = "pending_outgoing"
	RelationshipApproved        RelationshipStatus = "approved"
)

// Link is an active observation edge from an observer (clinician or family)
// to a tracked person. Revocation keeps the row for audit; notes and tasks
// stay attributed to the now-former observer.
type Link struct {
	ID           string     `json:"id" db:"id"`
	ObserverID   string     `json:"observer_id" db:"observer_id"`
	SubjectID    string     `json:"subject_id" db:"subject_id"`
	ObserverRole Role       `json:"observer_role" db:"observer_role"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	RevokedAt    *time.Time `json:"revoked_at,omitempty" db:"revoked_at"`
}

// LinkRequest is a pending consent request from a family observer. Only the
// subject's explicit approve/reject transitions it.
type LinkRequest struct {
	ID          string            `json:"id" db:"id"`
	ObserverID  string            `json:"observer_id" db:"observer_id"`
	SubjectID   string            `json:"subject_id" db:"subject_id"`
	Status      LinkRequestStatus `json:"status" db:"status"`
	CreatedAt   time.Time         `json:"created_at" db:"created_at"`
	RespondedAt *time.Time        `json:"responded_at,omitempty" db:"responded_at"`
}

type RequestLinkRequest struct {
	SubjectEmail string `json:"subject_email" validate:"required,email"`
}

type RespondToLinkRequest struct {
	RequestID string `json:"request_id" validate:"required"`
	Approve   bool   `json:"approve"`
}

type CreateDirectLinkRequest struct {
	SubjectEmail string `json:"subject_email" validate:"required,email"`
}

// PendingLinkRequestView is the subject-facing projection of an incoming request.
type PendingLinkRequestView struct {
	RequestID    string    `json:"request_id" db:"request_id"`
	ObserverID   string    `json:"observer_id" db:"observer_id"`
	ObserverName string    `json:"observer_name" db:"observer_name"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
