package signals

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fernhealth/fern/pkg/models"
)

var reference = models.NewDate(2026, time.March, 20)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func relapseOn(offset int) models.Relapse {
	date := reference.AddDays(offset)
	return models.Relapse{
		ID:          "relapse-1",
		OwnerID:     "subject-1",
		RelapseDate: date,
		ReportedAt:  date.Time().Add(10 * time.Hour),
	}
}

func moodOn(offset int, mood int) models.MoodLog {
	return models.MoodLog{
		OwnerID: "subject-1",
		LogDate: reference.AddDays(offset),
		Mood:    mood,
	}
}

func newAggregator() *Aggregator {
	return NewAggregator(NewTextDescriber())
}

func TestEvaluate_RelapseRule(t *testing.T) {
	tests := []struct {
		name     string
		relapses []models.Relapse
		expected int
	}{
		{
			name:     "relapse today",
			relapses: []models.Relapse{relapseOn(0)},
			expected: 1,
		},
		{
			name:     "relapse at the horizon",
			relapses: []models.Relapse{relapseOn(-RelapseHorizonDays)},
			expected: 1,
		},
		{
			name:     "relapse past the horizon disappears",
			relapses: []models.Relapse{relapseOn(-RelapseHorizonDays - 1)},
			expected: 0,
		},
		{
			name:     "one alert per event",
			relapses: []models.Relapse{relapseOn(-1), relapseOn(-4)},
			expected: 2,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			alerts := newAggregator().Evaluate(Input{
				SubjectID: "subject-1",
				Reference: reference,
				Relapses:  test.relapses,
			})

			require.Len(t, alerts, test.expected)
			for _, alert := range alerts {
				assert.Equal(t, models.AlertRelapse, alert.Type)
				assert.Equal(t, models.SeverityCritical, alert.Severity)
				assert.Equal(t, "subject-1", alert.SubjectID)
			}
		})
	}
}

func TestEvaluate_RelapseDescriptionIncludesDetails(t *testing.T) {
	relapse := relapseOn(-1)
	relapse.Substance = strPtr("alcohol")
	relapse.Trigger = strPtr("stress")

	alerts := newAggregator().Evaluate(Input{
		SubjectID: "subject-1",
		Reference: reference,
		Relapses:  []models.Relapse{relapse},
	})

	require.Len(t, alerts, 1)
	assert.Contains(t, alerts[0].Description, "alcohol")
	assert.Contains(t, alerts[0].Description, "stress")
	assert.Equal(t, "alcohol", alerts[0].Evidence["substance"])
}

func TestEvaluate_InactivityRule(t *testing.T) {
	lastActivity := func(daysAgo int) *models.Date {
		d := reference.AddDays(-daysAgo)
		return &d
	}

	tests := []struct {
		name         string
		daysInactive *int
		lastActivity *models.Date
		severity     models.Severity
		fires        bool
	}{
		{
			name:         "never logged is suppressed",
			daysInactive: nil,
			lastActivity: nil,
			fires:        false,
		},
		{
			name:         "two days is fine",
			daysInactive: intPtr(2),
			lastActivity: lastActivity(2),
			fires:        false,
		},
		{
			name:         "three days is medium",
			daysInactive: intPtr(3),
			lastActivity: lastActivity(3),
			severity:     models.SeverityMedium,
			fires:        true,
		},
		{
			name:         "six days is medium",
			daysInactive: intPtr(6),
			lastActivity: lastActivity(6),
			severity:     models.SeverityMedium,
			fires:        true,
		},
		{
			name:         "seven days is high",
			daysInactive: intPtr(7),
			lastActivity: lastActivity(7),
			severity:     models.SeverityHigh,
			fires:        true,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			alerts := newAggregator().Evaluate(Input{
				SubjectID:    "subject-1",
				Reference:    reference,
				DaysInactive: test.daysInactive,
				LastActivity: test.lastActivity,
			})

			if !test.fires {
				assert.Empty(t, alerts)
				return
			}
			require.Len(t, alerts, 1)
			assert.Equal(t, models.AlertInactivity, alerts[0].Type)
			assert.Equal(t, test.severity, alerts[0].Severity)
		})
	}
}

func TestEvaluate_NegativeEmotionRule(t *testing.T) {
	tests := []struct {
		name     string
		moods    []int
		severity models.Severity
		fires    bool
	}{
		{
			name:  "no moods",
			moods: nil,
			fires: false,
		},
		{
			name:  "healthy moods",
			moods: []int{6, 7, 8, 7},
			fires: false,
		},
		{
			name:     "single very negative fires high",
			moods:    []int{7, 8, 2, 7},
			severity: models.SeverityHigh,
			fires:    true,
		},
		{
			name:  "two negatives is not enough",
			moods: []int{3, 3, 7, 8},
			fires: false,
		},
		{
			name:     "three negatives fire medium",
			moods:    []int{3, 3, 3, 8},
			severity: models.SeverityMedium,
			fires:    true,
		},
		{
			name: "only the most recent seven entries count",
			// the single very-negative entry is the oldest of eight
			moods: []int{1, 7, 8, 7, 8, 7, 8, 7},
			fires: false,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			logs := make([]models.MoodLog, 0, len(test.moods))
			for i, mood := range test.moods {
				logs = append(logs, moodOn(-len(test.moods)+i+1, mood))
			}

			alerts := newAggregator().Evaluate(Input{
				SubjectID: "subject-1",
				Reference: reference,
				MoodLogs:  logs,
			})

			if !test.fires {
				assert.Empty(t, alerts)
				return
			}
			require.Len(t, alerts, 1)
			assert.Equal(t, models.AlertNegativeEmotion, alerts[0].Type)
			assert.Equal(t, test.severity, alerts[0].Severity)
		})
	}
}

func TestEvaluate_AllRulesEvaluated(t *testing.T) {
	lastActivity := reference.AddDays(-8)

	alerts := newAggregator().Evaluate(Input{
		SubjectID:    "subject-1",
		Reference:    reference,
		Relapses:     []models.Relapse{relapseOn(-2)},
		DaysInactive: intPtr(8),
		LastActivity: &lastActivity,
		MoodLogs: []models.MoodLog{
			moodOn(-10, 2), moodOn(-9, 3), moodOn(-8, 3),
		},
	})

	require.Len(t, alerts, 3)
	assert.Equal(t, models.AlertRelapse, alerts[0].Type)
	assert.Equal(t, models.SeverityCritical, alerts[0].Severity)
	// both remaining alerts are high with the same evidence date, so the tie
	// breaks by type name
	assert.Equal(t, models.SeverityHigh, alerts[1].Severity)
	assert.Equal(t, models.SeverityHigh, alerts[2].Severity)
	assert.Equal(t, models.AlertInactivity, alerts[1].Type)
	assert.Equal(t, models.AlertNegativeEmotion, alerts[2].Type)
}

func TestEvaluate_Deterministic(t *testing.T) {
	lastActivity := reference.AddDays(-4)
	input := Input{
		SubjectID:    "subject-1",
		Reference:    reference,
		Relapses:     []models.Relapse{relapseOn(-1), relapseOn(-3)},
		DaysInactive: intPtr(4),
		LastActivity: &lastActivity,
		MoodLogs: []models.MoodLog{
			moodOn(-3, 2), moodOn(-2, 3), moodOn(-1, 3),
		},
	}

	first := newAggregator().Evaluate(input)
	second := newAggregator().Evaluate(input)

	assert.Equal(t, first, second)
	// relapses sort among themselves by report time ascending
	require.Len(t, first, 4)
	assert.True(t, first[0].EvidenceAt.Before(first[1].EvidenceAt))
}

func TestTextDescriber(t *testing.T) {
	describer := NewTextDescriber()

	t.Run("relapse without details", func(t *testing.T) {
		description := describer.Relapse(relapseOn(0))
		assert.Equal(t, "Relapse reported on 2026-03-20", description)
	})

	t.Run("inactivity pluralization", func(t *testing.T) {
		assert.Equal(t, "No activity logged for 1 day", describer.Inactivity(1))
		assert.Equal(t, "No activity logged for 5 days", describer.Inactivity(5))
	})

	t.Run("negative emotion", func(t *testing.T) {
		assert.Contains(t, describer.NegativeEmotion(2, 4), "2 entries at 2 or below")
		assert.Contains(t, describer.NegativeEmotion(0, 3), "3 entries at 3 or below")
	})
}
