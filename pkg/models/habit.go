package models

import "time"

// HabitFrequency is how often a habit is expected to be completed. Only daily
// habits participate in streak computation.
type HabitFrequency string

const (
	FrequencyDaily  HabitFrequency = "daily"
	FrequencyWeekly HabitFrequency = "weekly"
)

// Habit is a habit definition. Deactivation is a soft delete: logs must stay
// attributable, and the last computed streak is frozen rather than zeroed.
type Habit struct {
	ID          string         `json:"id" db:"id"`
	OwnerID     string         `json:"owner_id" db:"owner_id"`
	Name        string         `json:"name" db:"name"`
	Description string         `json:"description" db:"description"`
	Frequency   HabitFrequency `json:"frequency" db:"frequency"`
	Active      bool           `json:"active" db:"active"`
	CreatedAt   time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at" db:"updated_at"`
}

// HabitLog is one completion record. At most one per (habit, date); a second
// write for the same date replaces the prior one.
type HabitLog struct {
	ID        string    `json:"id" db:"id"`
	HabitID   string    `json:"habit_id" db:"habit_id"`
	OwnerID   string    `json:"owner_id" db:"owner_id"`
	LogDate   Date      `json:"log_date" db:"log_date"`
	Completed bool      `json:"completed" db:"completed"`
	Note      *string   `json:"note,omitempty" db:"note"`
	LoggedAt  time.Time `json:"logged_at" db:"logged_at"`
}

type CreateHabitRequest struct {
	Name        string         `json:"name" validate:"required"`
	Description string         `json:"description"`
	Frequency   HabitFrequency `json:"frequency" validate:"omitempty,oneof=daily weekly"`
}

type UpdateHabitRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Active      *bool   `json:"active,omitempty"`
}

// UpsertHabitLogRequest records (or replaces) a day's completion.
type UpsertHabitLogRequest struct {
	LogDate   *Date   `json:"log_date,omitempty"` // defaults to today
	Completed bool    `json:"completed"`
	Note      *string `json:"note,omitempty"`
}

// HabitHistoryEntry aggregates completions per calendar date.
type HabitHistoryEntry struct {
	Date           Date `json:"date" db:"date"`
	CompletedCount int  `json:"completed_count" db:"completed_count"`
	TotalCount     int  `json:"total_count" db:"total_count"`
}
