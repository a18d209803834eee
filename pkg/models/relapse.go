package models

import "time"

// Relapse is an append-only relapse report. Reporting one resets the owner's
// clean_since to the reported date; the streak/alert layers treat that as
// ground truth.
type Relapse struct {
	ID          string    `json:"id" db:"id"`
	OwnerID     string    `json:"owner_id" db:"owner_id"`
	RelapseDate Date      `json:"relapse_date" db:"relapse_date"`
	Substance   *string   `json:"substance,omitempty" db:"substance"`
	Trigger     *string   `json:"trigger,omitempty" db:"trigger"`
	Notes       *string   `json:"notes,omitempty" db:"notes"`
	ReportedAt  time.Time `json:"reported_at" db:"reported_at"`
}

type ReportRelapseRequest struct {
	RelapseDate *Date   `json:"relapse_date,omitempty"` // defaults to today
	Substance   *string `json:"substance,omitempty"`
	Trigger     *string `json:"trigger,omitempty"`
	Notes       *string `json:"notes,omitempty"`
}
