package models

import "time"

// TrendDirection is the mood trajectory over a window. Insufficient is a
// flagged result state, distinct from stable: fewer than three entries cannot
// support a direction at all.
type TrendDirection string

const (
	TrendImproving    TrendDirection = "improving"
	TrendDeclining    TrendDirection = "declining"
	TrendStable       TrendDirection = "stable"
	TrendInsufficient TrendDirection = "insufficient"
)

// TrendSummary is the Trend Analyzer output for one window.
type TrendSummary struct {
	Entries   int                     `json:"entries"`
	Average   float64                 `json:"average"`
	Lowest    int                     `json:"lowest"`
	Highest   int                     `json:"highest"`
	Direction TrendDirection          `json:"direction"`
	ByWeekday map[time.Weekday]float64 `json:"by_weekday"`
	TopTags   []TagCount              `json:"top_tags"`
}

// HabitStreak pairs a habit with its continuity metrics.
type HabitStreak struct {
	HabitID        string `json:"habit_id"`
	Name           string `json:"name"`
	Streak         int    `json:"streak"`
	CompletedToday bool   `json:"completed_today"`
}

// WellnessScores is the wellness wheel: three sub-scores and a composite,
// each in [0,100]. Presentation aids only; never inputs to alert rules.
type WellnessScores struct {
	Habits    int     `json:"habits"`
	Emotional int     `json:"emotional"`
	Purpose   int     `json:"purpose"`
	Overall   float64 `json:"overall"`
}

// Sobriety is the clean-day counter plus the next milestone.
type Sobriety struct {
	DaysClean       int   `json:"days_clean"`
	CleanSince      *Date `json:"clean_since,omitempty"`
	NextMilestone   *int  `json:"next_milestone,omitempty"`
	DaysToMilestone *int  `json:"days_to_milestone,omitempty"`
}

// Dashboard is the full signal projection for one tracked person and window.
type Dashboard struct {
	SubjectID    string         `json:"subject_id"`
	WindowDays   int            `json:"window_days"`
	Sobriety     Sobriety       `json:"sobriety"`
	Streaks      []HabitStreak  `json:"streaks"`
	LongestStreak int           `json:"longest_streak"`
	DaysInactive *int           `json:"days_inactive,omitempty"` // nil when nothing was ever logged
	Trend        TrendSummary   `json:"trend"`
	Wellness     WellnessScores `json:"wellness"`
	Alerts       []Alert        `json:"alerts"`
	GeneratedAt  time.Time      `json:"generated_at"`
}
