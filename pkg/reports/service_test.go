package reports

import (
	"context"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fernhealth/fern/pkg/database"
	fernerrors "github.com/fernhealth/fern/pkg/errors"
	"github.com/fernhealth/fern/pkg/models"
	"github.com/fernhealth/fern/pkg/signals"
)

// fakeData backs every store interface from in-memory maps and counts reads
// so tests can prove the authorization and cache short-circuits.
type fakeData struct {
	persons   map[string]*models.TrackedPerson
	habits    map[string][]models.Habit   // owner -> habits
	habitLogs map[string][]models.HabitLog // habit -> logs
	lastHabit map[string]*models.Date     // owner -> most recent habit log date
	moods     map[string][]models.MoodLog // owner -> logs
	lastMood  map[string]*models.Date
	relapses  map[string][]models.Relapse
	goals     map[string][2]int // owner -> {completed, total}
	reads     int
}

func (f *fakeData) Get(_ context.Context, id string) (*models.TrackedPerson, error) {
	f.reads++
	person, ok := f.persons[id]
	if !ok {
		return nil, fernerrors.NotFound("person %s not found", id)
	}
	return person, nil
}

func (f *fakeData) List(_ context.Context, ownerID string, _ bool) ([]models.Habit, error) {
	f.reads++
	return f.habits[ownerID], nil
}

func (f *fakeData) ListRange(_ context.Context, habitID string, from, to models.Date) ([]models.HabitLog, error) {
	f.reads++
	logs := []models.HabitLog{}
	for _, log := range f.habitLogs[habitID] {
		if !log.LogDate.Before(from) && !log.LogDate.After(to) {
			logs = append(logs, log)
		}
	}
	return logs, nil
}

func (f *fakeData) LastLogDate(_ context.Context, ownerID string) (*models.Date, error) {
	f.reads++
	return f.lastHabit[ownerID], nil
}

func (f *fakeData) Progress(_ context.Context, ownerID string) (int, int, error) {
	f.reads++
	progress := f.goals[ownerID]
	return progress[0], progress[1], nil
}

// moodData splits off the mood store so its LastLogDate does not collide with
// the habit-log method set.
type moodData struct{ data *fakeData }

func (m moodData) ListRange(_ context.Context, ownerID string, from, to models.Date) ([]models.MoodLog, error) {
	m.data.reads++
	logs := []models.MoodLog{}
	for _, log := range m.data.moods[ownerID] {
		if !log.LogDate.Before(from) && !log.LogDate.After(to) {
			logs = append(logs, log)
		}
	}
	return logs, nil
}

func (m moodData) ListRecent(_ context.Context, ownerID string, limit int) ([]models.MoodLog, error) {
	m.data.reads++
	logs := m.data.moods[ownerID]
	if len(logs) > limit {
		logs = logs[len(logs)-limit:]
	}
	return logs, nil
}

func (m moodData) LastLogDate(_ context.Context, ownerID string) (*models.Date, error) {
	m.data.reads++
	return m.data.lastMood[ownerID], nil
}

type relapseData struct{ data *fakeData }

func (r relapseData) ListRange(_ context.Context, ownerID string, from, to models.Date) ([]models.Relapse, error) {
	r.data.reads++
	relapses := []models.Relapse{}
	for _, relapse := range r.data.relapses[ownerID] {
		if !relapse.RelapseDate.Before(from) && !relapse.RelapseDate.After(to) {
			relapses = append(relapses, relapse)
		}
	}
	return relapses, nil
}

type fakeObservers struct {
	approved map[string]bool // observer|subject
	links    []models.Link
}

func (f *fakeObservers) RequireApproved(_ context.Context, observerID, subjectID string) error {
	if f.approved[observerID+"|"+subjectID] {
		return nil
	}
	return fernerrors.NotAuthorized("no approved link between %s and %s", observerID, subjectID)
}

func (f *fakeObservers) LinkedSubjects(_ context.Context, observerID string) ([]models.Link, error) {
	links := []models.Link{}
	for _, link := range f.links {
		if link.ObserverID == observerID {
			links = append(links, link)
		}
	}
	return links, nil
}

type fakeCache struct {
	stored *models.Dashboard
	gets   int
	sets   int
}

func (f *fakeCache) Get(_ context.Context, subjectID string, windowDays int, _ models.Date) *models.Dashboard {
	f.gets++
	if f.stored != nil && f.stored.SubjectID == subjectID && f.stored.WindowDays == windowDays {
		return f.stored
	}
	return nil
}

func (f *fakeCache) Set(_ context.Context, dashboard *models.Dashboard, _ models.Date) {
	f.sets++
	f.stored = dashboard
}

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func march(day int) models.Date {
	return models.NewDate(2026, time.March, day)
}

func marchPtr(day int) *models.Date {
	d := march(day)
	return &d
}

// newReportFixture seeds patient-1 with two habits, a short mood series, a
// recent relapse, and partial goal progress; patient-2 with a ten-day
// activity gap. The clock is pinned to 2026-03-20.
func newReportFixture() (*Service, *fakeData, *fakeObservers, *fakeCache) {
	cleanSince := march(16)
	data := &fakeData{
		persons: map[string]*models.TrackedPerson{
			"patient-1": {ID: "patient-1", Name: "Pat", Role: models.RolePatient, CleanSince: &cleanSince},
			"patient-2": {ID: "patient-2", Name: "Quinn", Role: models.RolePatient},
		},
		habits: map[string][]models.Habit{
			"patient-1": {
				{ID: "habit-1", OwnerID: "patient-1", Name: "Meditation", CreatedAt: march(1).Time()},
				{ID: "habit-2", OwnerID: "patient-1", Name: "Exercise", CreatedAt: march(15).Time()},
			},
		},
		habitLogs: map[string][]models.HabitLog{
			"habit-1": {
				{HabitID: "habit-1", OwnerID: "patient-1", LogDate: march(18), Completed: true},
				{HabitID: "habit-1", OwnerID: "patient-1", LogDate: march(19), Completed: true},
				{HabitID: "habit-1", OwnerID: "patient-1", LogDate: march(20), Completed: true},
			},
			"habit-2": {
				{HabitID: "habit-2", OwnerID: "patient-1", LogDate: march(19), Completed: true},
			},
		},
		lastHabit: map[string]*models.Date{
			"patient-1": marchPtr(20),
			"patient-2": marchPtr(10),
		},
		moods: map[string][]models.MoodLog{
			"patient-1": {
				{OwnerID: "patient-1", LogDate: march(18), Mood: 6, Tags: database.JSONB[[]string]{Data: []string{"calm"}}},
				{OwnerID: "patient-1", LogDate: march(19), Mood: 6, Tags: database.JSONB[[]string]{Data: []string{"calm"}}},
				{OwnerID: "patient-1", LogDate: march(20), Mood: 7, Tags: database.JSONB[[]string]{Data: []string{"hopeful"}}},
			},
		},
		lastMood: map[string]*models.Date{
			"patient-1": marchPtr(20),
		},
		relapses: map[string][]models.Relapse{
			"patient-1": {
				{OwnerID: "patient-1", RelapseDate: march(16), ReportedAt: time.Date(2026, time.March, 16, 9, 0, 0, 0, time.UTC)},
			},
		},
		goals: map[string][2]int{
			"patient-1": {1, 2},
		},
	}

	observers := &fakeObservers{approved: map[string]bool{}}
	cache := &fakeCache{}
	service := NewService(
		data, data, data, moodData{data}, relapseData{data}, data,
		observers,
		signals.NewAggregator(signals.NewTextDescriber()),
		cache,
		testLogger(),
	)
	service.now = func() time.Time {
		return time.Date(2026, time.March, 20, 12, 0, 0, 0, time.UTC)
	}
	return service, data, observers, cache
}

func TestValidateWindow(t *testing.T) {
	tests := []struct {
		name    string
		days    int
		want    int
		wantErr bool
	}{
		{name: "zero defaults to a week", days: 0, want: 7},
		{name: "week", days: 7, want: 7},
		{name: "month", days: 30, want: 30},
		{name: "arbitrary window rejected", days: 14, wantErr: true},
		{name: "negative rejected", days: -1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateWindow(tt.days)
			if tt.wantErr {
				assert.ErrorIs(t, err, fernerrors.ErrInvalidWindow)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestComputeDashboard(t *testing.T) {
	ctx := context.Background()
	service, _, _, _ := newReportFixture()

	dashboard, err := service.ComputeDashboard(ctx, "patient-1", 7)

	require.NoError(t, err)
	assert.Equal(t, "patient-1", dashboard.SubjectID)
	assert.Equal(t, 7, dashboard.WindowDays)

	assert.Equal(t, 4, dashboard.Sobriety.DaysClean)
	require.NotNil(t, dashboard.Sobriety.NextMilestone)
	assert.Equal(t, 7, *dashboard.Sobriety.NextMilestone)
	require.NotNil(t, dashboard.Sobriety.DaysToMilestone)
	assert.Equal(t, 3, *dashboard.Sobriety.DaysToMilestone)

	// streaks come back in habit-list order regardless of fan-out scheduling
	require.Len(t, dashboard.Streaks, 2)
	assert.Equal(t, "habit-1", dashboard.Streaks[0].HabitID)
	assert.Equal(t, 3, dashboard.Streaks[0].Streak)
	assert.True(t, dashboard.Streaks[0].CompletedToday)
	assert.Equal(t, "habit-2", dashboard.Streaks[1].HabitID)
	assert.Equal(t, 1, dashboard.Streaks[1].Streak)
	assert.False(t, dashboard.Streaks[1].CompletedToday)
	assert.Equal(t, 3, dashboard.LongestStreak)

	require.NotNil(t, dashboard.DaysInactive)
	assert.Equal(t, 0, *dashboard.DaysInactive)

	assert.Equal(t, 3, dashboard.Trend.Entries)
	assert.Equal(t, models.TrendStable, dashboard.Trend.Direction)
	assert.InDelta(t, 6.33, dashboard.Trend.Average, 0.001)

	// 4 completed logs over 2 habits x 7 days is a 29% rate; +2 per streak day
	assert.Equal(t, models.WellnessScores{Habits: 35, Emotional: 63, Purpose: 65, Overall: 54.3}, dashboard.Wellness)

	require.Len(t, dashboard.Alerts, 1)
	assert.Equal(t, models.AlertRelapse, dashboard.Alerts[0].Type)
	assert.Equal(t, models.SeverityCritical, dashboard.Alerts[0].Severity)

	assert.Equal(t, time.Date(2026, time.March, 20, 12, 0, 0, 0, time.UTC), dashboard.GeneratedAt)
}

func TestComputeDashboard_InvalidWindow(t *testing.T) {
	ctx := context.Background()
	service, data, _, _ := newReportFixture()

	_, err := service.ComputeDashboard(ctx, "patient-1", 14)

	assert.ErrorIs(t, err, fernerrors.ErrInvalidWindow)
	assert.Zero(t, data.reads)
}

func TestComputeDashboard_NoDataSubject(t *testing.T) {
	ctx := context.Background()
	service, _, _, _ := newReportFixture()

	dashboard, err := service.ComputeDashboard(ctx, "patient-2", 30)

	require.NoError(t, err)
	assert.Equal(t, 0, dashboard.Sobriety.DaysClean)
	assert.Empty(t, dashboard.Streaks)
	assert.Equal(t, models.TrendInsufficient, dashboard.Trend.Direction)
	// no mood data scores a neutral emotional, not a bad one
	assert.Equal(t, 50, dashboard.Wellness.Emotional)
	assert.Equal(t, 30, dashboard.Wellness.Purpose)
	// last habit log was ten days ago
	require.NotNil(t, dashboard.DaysInactive)
	assert.Equal(t, 10, *dashboard.DaysInactive)
	require.Len(t, dashboard.Alerts, 1)
	assert.Equal(t, models.AlertInactivity, dashboard.Alerts[0].Type)
	assert.Equal(t, models.SeverityHigh, dashboard.Alerts[0].Severity)
}

func TestComputeDashboard_CacheHit(t *testing.T) {
	ctx := context.Background()
	service, data, _, cache := newReportFixture()
	cached := &models.Dashboard{SubjectID: "patient-1", WindowDays: 7}
	cache.stored = cached

	dashboard, err := service.ComputeDashboard(ctx, "patient-1", 7)

	require.NoError(t, err)
	assert.Same(t, cached, dashboard)
	assert.Zero(t, data.reads)
}

func TestComputeDashboard_CachesResult(t *testing.T) {
	ctx := context.Background()
	service, _, _, cache := newReportFixture()

	first, err := service.ComputeDashboard(ctx, "patient-1", 7)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.sets)

	second, err := service.ComputeDashboard(ctx, "patient-1", 7)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, cache.sets)
}

func TestComputeObserverReport(t *testing.T) {
	ctx := context.Background()

	t.Run("unlinked observer is rejected before any data is read", func(t *testing.T) {
		service, data, _, cache := newReportFixture()

		_, err := service.ComputeObserverReport(ctx, "family-1", "patient-1", 7)

		assert.ErrorIs(t, err, fernerrors.ErrNotAuthorized)
		assert.Zero(t, data.reads)
		assert.Zero(t, cache.gets)
	})

	t.Run("approved observer sees the subject dashboard", func(t *testing.T) {
		service, _, observers, _ := newReportFixture()
		observers.approved["family-1|patient-1"] = true

		dashboard, err := service.ComputeObserverReport(ctx, "family-1", "patient-1", 7)

		require.NoError(t, err)
		assert.Equal(t, "patient-1", dashboard.SubjectID)
	})
}

func TestObserverAlerts(t *testing.T) {
	ctx := context.Background()
	service, _, observers, _ := newReportFixture()
	observers.links = []models.Link{
		{ObserverID: "clinician-1", SubjectID: "patient-1", ObserverRole: models.RoleClinician},
		{ObserverID: "clinician-1", SubjectID: "patient-2", ObserverRole: models.RoleClinician},
	}

	alerts, err := service.ObserverAlerts(ctx, "clinician-1")

	require.NoError(t, err)
	require.Len(t, alerts, 2)
	assert.Equal(t, models.SeverityCritical, alerts[0].Severity)
	assert.Equal(t, "patient-1", alerts[0].SubjectID)
	assert.Equal(t, models.AlertInactivity, alerts[1].Type)
	assert.Equal(t, "patient-2", alerts[1].SubjectID)

	summary, err := service.ObserverAlertsSummary(ctx, "clinician-1")

	require.NoError(t, err)
	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 1, summary.Critical)
	assert.Equal(t, 1, summary.High)
	assert.Equal(t, map[models.AlertType]int{models.AlertRelapse: 1, models.AlertInactivity: 1}, summary.ByType)
}

func TestObserverAlerts_NoLinks(t *testing.T) {
	ctx := context.Background()
	service, _, _, _ := newReportFixture()

	alerts, err := service.ObserverAlerts(ctx, "clinician-1")

	require.NoError(t, err)
	assert.Empty(t, alerts)
}
