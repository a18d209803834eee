// Package continuity turns completion series into streak and inactivity
// metrics. Everything here is a pure function over already-fetched logs; the
// caller does one range fetch per habit and hands the slice in.
package continuity

import (
	"github.com/fernhealth/fern/pkg/models"
)

// LookbackCap bounds the backward scan so very old accounts never trigger an
// unbounded walk. Callers fetch at most this many days of logs.
const LookbackCap = 365

// Streak counts the consecutive completed days for one habit ending at (or
// immediately before) the reference date.
//
// A missing record for the reference date itself is not a break: the day is
// still in progress. The walk anchors on the most recent completed record at
// or before the reference date and counts backward while every prior day has
// an explicit completed=true record. The first gap or completed=false record
// ends the run. A habit cannot have a streak longer than its age.
func Streak(logs []models.HabitLog, created models.Date, reference models.Date) int {
	if len(logs) == 0 {
		return 0
	}

	completed := make(map[string]bool, len(logs))
	var anchor models.Date
	for _, log := range logs {
		if log.LogDate.After(reference) {
			continue
		}
		completed[log.LogDate.String()] = log.Completed
		if log.Completed && (anchor.IsZero() || log.LogDate.After(anchor)) {
			anchor = log.LogDate
		}
	}
	if anchor.IsZero() {
		return 0
	}

	limit := LookbackCap
	if age := reference.DaysSince(created) + 1; age > 0 && age < limit {
		limit = age
	}

	streak := 0
	for day := anchor; streak < limit; day = day.AddDays(-1) {
		done, ok := completed[day.String()]
		if !ok || !done {
			break
		}
		streak++
	}
	return streak
}

// CompletedOn reports whether the habit has a completed record for the given date.
func CompletedOn(logs []models.HabitLog, date models.Date) bool {
	for _, log := range logs {
		if log.LogDate.Equal(date) && log.Completed {
			return true
		}
	}
	return false
}

// LastActivity returns the most recent calendar date with any positive log
// (habit completion record or mood entry). Relapse reports are not activity.
// Returns nil when the person has never logged anything.
func LastActivity(habitLogs []models.HabitLog, moodLogs []models.MoodLog) *models.Date {
	var last *models.Date
	observe := func(d models.Date) {
		if last == nil || d.After(*last) {
			copied := d
			last = &copied
		}
	}
	for _, log := range habitLogs {
		observe(log.LogDate)
	}
	for _, log := range moodLogs {
		observe(log.LogDate)
	}
	return last
}

// DaysInactive returns whole days between the last activity and the reference
// date, or nil when there is no activity at all (a brand-new account is not
// "inactive").
func DaysInactive(lastActivity *models.Date, reference models.Date) *int {
	if lastActivity == nil {
		return nil
	}
	days := reference.DaysSince(*lastActivity)
	if days < 0 {
		days = 0
	}
	return &days
}
