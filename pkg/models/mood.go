package models

import (
	"time"

	"github.com/fernhealth/fern/pkg/database"
)

// MoodLog is one mood/emotion record. At most one per (owner, date); a second
// write for the same date replaces the prior one.
type MoodLog struct {
	ID       string                   `json:"id" db:"id"`
	OwnerID  string                   `json:"owner_id" db:"owner_id"`
	LogDate  Date                     `json:"log_date" db:"log_date"`
	Mood     int                      `json:"mood" db:"mood"` // 1..10
	Tags     database.JSONB[[]string] `json:"tags" db:"tags"`
	Note     *string                  `json:"note,omitempty" db:"note"`
	LoggedAt time.Time                `json:"logged_at" db:"logged_at"`
}

type UpsertMoodLogRequest struct {
	LogDate *Date    `json:"log_date,omitempty"` // defaults to today
	Mood    int      `json:"mood" validate:"required,min=1,max=10"`
	Tags    []string `json:"tags,omitempty"`
	Note    *string  `json:"note,omitempty"`
}

// TagCount is one entry of the tag frequency breakdown.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}
