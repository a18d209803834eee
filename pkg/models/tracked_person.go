package models

import (
	"time"

	"github.com/fernhealth/fern/pkg/database"
)

// Role determines which side of the observation graph a person sits on.
type Role string

const (
	// RolePatient is a person in recovery tracking their own signals.
	RolePatient Role = "patient"
	// RoleActive is a pre-recovery user (still using, working toward quitting).
	RoleActive Role = "active"
	// RoleClinician observes linked patients with the direct-link protocol.
	RoleClinician Role = "clinician"
	// RoleFamily observes a linked relative with the consent-link protocol.
	RoleFamily Role = "family"
)

// IsTrackable reports whether this role's own signals are computed.
func (r Role) IsTrackable() bool {
	return r == RolePatient || r == RoleActive
}

// IsObserver reports whether this role may hold links to tracked persons.
func (r Role) IsObserver() bool {
	return r == RoleClinician || r == RoleFamily
}

// TrackedPerson is the person record. Never hard-deleted; role and
// recovery-start fields are mutated by onboarding and the relapse-report flow.
type TrackedPerson struct {
	ID                string                   `json:"id" db:"id"`
	Name              string                   `json:"name" db:"name"`
	Email             string                   `json:"email" db:"email"`
	Role              Role                     `json:"role" db:"role"`
	CleanSince        *Date                    `json:"clean_since,omitempty" db:"clean_since"`
	AddictionType     *string                  `json:"addiction_type,omitempty" db:"addiction_type"`
	Triggers          database.JSONB[[]string] `json:"triggers" db:"triggers"`
	ProtectiveFactors database.JSONB[[]string] `json:"protective_factors" db:"protective_factors"`
	CreatedAt         time.Time                `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time                `json:"updated_at" db:"updated_at"`
}

// CreateTrackedPersonRequest registers a person.
type CreateTrackedPersonRequest struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
	Role  Role   `json:"role" validate:"required,oneof=patient active clinician family"`
}

// UpdateProfileRequest mutates the onboarding fields.
type UpdateProfileRequest struct {
	CleanSince        *Date    `json:"clean_since,omitempty"`
	AddictionType     *string  `json:"addiction_type,omitempty"`
	Triggers          []string `json:"triggers,omitempty"`
	ProtectiveFactors []string `json:"protective_factors,omitempty"`
}
