package models

import (
	"time"

	"github.com/fernhealth/fern/pkg/database"
)

// ClinicalNote is authored by a clinician about a tracked person. The private
// segment (PrivateNotes, MoodRating) is clinician-only; the subject's view is
// produced by read-time redaction, never by storing a second copy.
type ClinicalNote struct {
	ID             string                   `json:"id" db:"id"`
	ClinicianID    string                   `json:"clinician_id" db:"clinician_id"`
	SubjectID      string                   `json:"subject_id" db:"subject_id"`
	SessionDate    Date                     `json:"session_date" db:"session_date"`
	PrivateNotes   *string                  `json:"private_notes,omitempty" db:"private_notes"`
	Summary        string                   `json:"summary" db:"summary"`
	GoalsDiscussed database.JSONB[[]string] `json:"goals_discussed" db:"goals_discussed"`
	NextFocus      *string                  `json:"next_focus,omitempty" db:"next_focus"`
	MoodRating     *int                     `json:"mood_rating,omitempty" db:"mood_rating"`
	CreatedAt      time.Time                `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time                `json:"updated_at" db:"updated_at"`
}

// SubjectNoteView is the redacted, subject-visible projection of a note.
type SubjectNoteView struct {
	ID             string    `json:"id"`
	ClinicianID    string    `json:"clinician_id"`
	ClinicianName  string    `json:"clinician_name,omitempty"`
	SessionDate    Date      `json:"session_date"`
	Summary        string    `json:"summary"`
	GoalsDiscussed []string  `json:"goals_discussed"`
	NextFocus      *string   `json:"next_focus,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

type CreateClinicalNoteRequest struct {
	SubjectID      string   `json:"subject_id" validate:"required"`
	SessionDate    Date     `json:"session_date" validate:"required"`
	PrivateNotes   *string  `json:"private_notes,omitempty"`
	Summary        string   `json:"summary" validate:"required"`
	GoalsDiscussed []string `json:"goals_discussed,omitempty"`
	NextFocus      *string  `json:"next_focus,omitempty"`
	MoodRating     *int     `json:"mood_rating,omitempty" validate:"omitempty,min=1,max=10"`
}
