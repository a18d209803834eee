// Package reports assembles dashboards and observer reports: one bounded
// window of log data fanned through the continuity, trend, signal, and
// wellness engines. Authorization gating happens here, before any data is
// touched.
package reports

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"
	"golang.org/x/sync/errgroup"

	"github.com/fernhealth/fern/pkg/continuity"
	fernerrors "github.com/fernhealth/fern/pkg/errors"
	"github.com/fernhealth/fern/pkg/models"
	"github.com/fernhealth/fern/pkg/signals"
	"github.com/fernhealth/fern/pkg/tracing"
	"github.com/fernhealth/fern/pkg/trend"
	"github.com/fernhealth/fern/pkg/wellness"
)

// Supported dashboard windows, in days.
const (
	WindowWeek  = 7
	WindowMonth = 30
)

// PersonStore is the person lookup surface the service needs.
type PersonStore interface {
	Get(ctx context.Context, id string) (*models.TrackedPerson, error)
}

// HabitStore lists a person's habit definitions.
type HabitStore interface {
	List(ctx context.Context, ownerID string, includeInactive bool) ([]models.Habit, error)
}

// HabitLogStore is the completion-series surface.
type HabitLogStore interface {
	ListRange(ctx context.Context, habitID string, from, to models.Date) ([]models.HabitLog, error)
	LastLogDate(ctx context.Context, ownerID string) (*models.Date, error)
}

// MoodLogStore is the mood-series surface.
type MoodLogStore interface {
	ListRange(ctx context.Context, ownerID string, from, to models.Date) ([]models.MoodLog, error)
	ListRecent(ctx context.Context, ownerID string, limit int) ([]models.MoodLog, error)
	LastLogDate(ctx context.Context, ownerID string) (*models.Date, error)
}

// RelapseStore fetches relapse reports by date range.
type RelapseStore interface {
	ListRange(ctx context.Context, ownerID string, from, to models.Date) ([]models.Relapse, error)
}

// GoalStore reports goal progress for the purpose sub-score.
type GoalStore interface {
	Progress(ctx context.Context, ownerID string) (completed int, total int, err error)
}

// Observers is the relationship surface: the approval gate and the observer's
// linked subjects.
type Observers interface {
	RequireApproved(ctx context.Context, observerID, subjectID string) error
	LinkedSubjects(ctx context.Context, observerID string) ([]models.Link, error)
}

// Cache is the dashboard cache surface. A nil Cache disables caching.
type Cache interface {
	Get(ctx context.Context, subjectID string, windowDays int, reference models.Date) *models.Dashboard
	Set(ctx context.Context, dashboard *models.Dashboard, reference models.Date)
}

// Service computes dashboards and observer reports.
type Service struct {
	persons    PersonStore
	habits     HabitStore
	habitLogs  HabitLogStore
	moodLogs   MoodLogStore
	relapses   RelapseStore
	goals      GoalStore
	observers  Observers
	aggregator *signals.Aggregator
	cache      Cache
	logger     ectologger.Logger
	now        func() time.Time
}

func NewService(
	persons PersonStore,
	habits HabitStore,
	habitLogs HabitLogStore,
	moodLogs MoodLogStore,
	relapses RelapseStore,
	goals GoalStore,
	observers Observers,
	aggregator *signals.Aggregator,
	cache Cache,
	logger ectologger.Logger,
) *Service {
	return &Service{
		persons:    persons,
		habits:     habits,
		habitLogs:  habitLogs,
		moodLogs:   moodLogs,
		relapses:   relapses,
		goals:      goals,
		observers:  observers,
		aggregator: aggregator,
		cache:      cache,
		logger:     logger,
		now:        time.Now,
	}
}

// ValidateWindow checks the requested window. Zero means the default week.
func ValidateWindow(days int) (int, error) {
	switch days {
	case 0:
		return WindowWeek, nil
	case WindowWeek, WindowMonth:
		return days, nil
	default:
		return 0, fernerrors.InvalidWindow("window must be %d or %d days", WindowWeek, WindowMonth)
	}
}

// ComputeDashboard builds the full signal projection for one subject over a
// 7 or 30 day window.
func (s *Service) ComputeDashboard(ctx context.Context, subjectID string, days int) (*models.Dashboard, error) {
	ctx, span := tracing.StartSpan(ctx, "reports.Service.ComputeDashboard")
	defer span.End()

	days, err := ValidateWindow(days)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	reference := models.DateOf(now)

	if s.cache != nil {
		if cached := s.cache.Get(ctx, subjectID, days, reference); cached != nil {
			return cached, nil
		}
	}

	person, err := s.persons.Get(ctx, subjectID)
	if err != nil {
		return nil, err
	}

	windowStart := reference.AddDays(-(days - 1))
	lookbackStart := reference.AddDays(-(continuity.LookbackCap - 1))

	habits, err := s.habits.List(ctx, subjectID, false)
	if err != nil {
		return nil, err
	}

	// Per-habit streaks are independent; compute them concurrently and merge
	// by position, so fan-out order never shows in the output.
	streaks := make([]models.HabitStreak, len(habits))
	completedInWindow := make([]int, len(habits))
	group, groupCtx := errgroup.WithContext(ctx)
	for i, habit := range habits {
		group.Go(func() error {
			logs, err := s.habitLogs.ListRange(groupCtx, habit.ID, lookbackStart, reference)
			if err != nil {
				return err
			}
			streaks[i] = models.HabitStreak{
				HabitID:        habit.ID,
				Name:           habit.Name,
				Streak:         continuity.Streak(logs, models.DateOf(habit.CreatedAt), reference),
				CompletedToday: continuity.CompletedOn(logs, reference),
			}
			for _, log := range logs {
				if log.Completed && !log.LogDate.Before(windowStart) {
					completedInWindow[i]++
				}
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	longestStreak := 0
	completedTotal := 0
	for i, streak := range streaks {
		if streak.Streak > longestStreak {
			longestStreak = streak.Streak
		}
		completedTotal += completedInWindow[i]
	}

	completionRate := 0.0
	if len(habits) > 0 {
		completionRate = float64(completedTotal) / float64(len(habits)*days) * 100
	}

	moodLogs, err := s.moodLogs.ListRange(ctx, subjectID, windowStart, reference)
	if err != nil {
		return nil, err
	}
	trendSummary := trend.Analyze(moodLogs, trend.DefaultTopTags)

	alerts, daysInactive, err := s.computeAlerts(ctx, subjectID, reference)
	if err != nil {
		return nil, err
	}

	goalsCompleted, goalsTotal, err := s.goals.Progress(ctx, subjectID)
	if err != nil {
		return nil, err
	}

	var moodAverage *float64
	if trendSummary.Entries > 0 {
		average := trendSummary.Average
		moodAverage = &average
	}

	scores := wellness.Score(wellness.Inputs{
		CompletionRatePercent: completionRate,
		CurrentStreak:         longestStreak,
		MoodAverage:           moodAverage,
		GoalsTotal:            goalsTotal,
		GoalsCompleted:        goalsCompleted,
	})

	daysClean := wellness.DaysClean(person.CleanSince, reference)
	sobriety := models.Sobriety{
		DaysClean:  daysClean,
		CleanSince: person.CleanSince,
	}
	if milestone, remaining, ok := wellness.NextMilestone(daysClean); ok {
		sobriety.NextMilestone = &milestone
		sobriety.DaysToMilestone = &remaining
	}

	dashboard := &models.Dashboard{
		SubjectID:     subjectID,
		WindowDays:    days,
		Sobriety:      sobriety,
		Streaks:       streaks,
		LongestStreak: longestStreak,
		DaysInactive:  daysInactive,
		Trend:         trendSummary,
		Wellness:      scores,
		Alerts:        alerts,
		GeneratedAt:   now,
	}

	if s.cache != nil {
		s.cache.Set(ctx, dashboard, reference)
	}
	return dashboard, nil
}

// ComputeObserverReport is the observer-facing dashboard. The relationship
// check runs first and NotAuthorized is returned before any subject data is
// read, never partially.
func (s *Service) ComputeObserverReport(ctx context.Context, observerID, subjectID string, days int) (*models.Dashboard, error) {
	ctx, span := tracing.StartSpan(ctx, "reports.Service.ComputeObserverReport")
	defer span.End()

	if err := s.observers.RequireApproved(ctx, observerID, subjectID); err != nil {
		return nil, err
	}

	return s.ComputeDashboard(ctx, subjectID, days)
}

// ObserverAlerts evaluates alerts across every subject linked to the
// observer, in one deterministic combined order.
func (s *Service) ObserverAlerts(ctx context.Context, observerID string) ([]models.Alert, error) {
	ctx, span := tracing.StartSpan(ctx, "reports.Service.ObserverAlerts")
	defer span.End()

	links, err := s.observers.LinkedSubjects(ctx, observerID)
	if err != nil {
		return nil, err
	}

	reference := models.DateOf(s.now().UTC())
	combined := []models.Alert{}
	for _, link := range links {
		alerts, _, err := s.computeAlerts(ctx, link.SubjectID, reference)
		if err != nil {
			return nil, err
		}
		combined = append(combined, alerts...)
	}

	models.SortAlerts(combined)
	return combined, nil
}

// ObserverAlertsSummary is the severity/type count breakdown over
// ObserverAlerts.
func (s *Service) ObserverAlertsSummary(ctx context.Context, observerID string) (*models.AlertSummary, error) {
	ctx, span := tracing.StartSpan(ctx, "reports.Service.ObserverAlertsSummary")
	defer span.End()

	alerts, err := s.ObserverAlerts(ctx, observerID)
	if err != nil {
		return nil, err
	}

	summary := models.SummarizeAlerts(alerts)
	return &summary, nil
}

// computeAlerts gathers the rule inputs and runs the aggregator.
func (s *Service) computeAlerts(ctx context.Context, subjectID string, reference models.Date) ([]models.Alert, *int, error) {
	relapses, err := s.relapses.ListRange(ctx, subjectID, reference.AddDays(-signals.RelapseHorizonDays), reference)
	if err != nil {
		return nil, nil, err
	}

	lastHabit, err := s.habitLogs.LastLogDate(ctx, subjectID)
	if err != nil {
		return nil, nil, err
	}
	lastMood, err := s.moodLogs.LastLogDate(ctx, subjectID)
	if err != nil {
		return nil, nil, err
	}
	lastActivity := lastHabit
	if lastActivity == nil || (lastMood != nil && lastMood.After(*lastActivity)) {
		lastActivity = lastMood
	}
	daysInactive := continuity.DaysInactive(lastActivity, reference)

	recentMoods, err := s.moodLogs.ListRecent(ctx, subjectID, 7)
	if err != nil {
		return nil, nil, err
	}

	alerts := s.aggregator.Evaluate(signals.Input{
		SubjectID:    subjectID,
		Reference:    reference,
		Relapses:     relapses,
		DaysInactive: daysInactive,
		LastActivity: lastActivity,
		MoodLogs:     recentMoods,
	})
	return alerts, daysInactive, nil
}
