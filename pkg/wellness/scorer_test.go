package wellness

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/fernhealth/fern/pkg/models"
)

func floatPtr(f float64) *float64 { return &f }

func TestScore(t *testing.T) {
	tests := []struct {
		name     string
		inputs   Inputs
		expected models.WellnessScores
	}{
		{
			name:   "brand new account",
			inputs: Inputs{},
			expected: models.WellnessScores{
				Habits:    0,
				Emotional: 50,
				Purpose:   30,
				Overall:   26.7,
			},
		},
		{
			name: "habits score clamps at 100",
			inputs: Inputs{
				CompletionRatePercent: 90,
				CurrentStreak:         20,
				MoodAverage:           floatPtr(7),
			},
			expected: models.WellnessScores{
				Habits:    100,
				Emotional: 70,
				Purpose:   30,
				Overall:   66.7,
			},
		},
		{
			name: "streak boosts habits score",
			inputs: Inputs{
				CompletionRatePercent: 50,
				CurrentStreak:         10,
				MoodAverage:           floatPtr(5),
			},
			expected: models.WellnessScores{
				Habits:    70,
				Emotional: 50,
				Purpose:   30,
				Overall:   50.0,
			},
		},
		{
			name: "no mood data is neutral, not zero",
			inputs: Inputs{
				CompletionRatePercent: 40,
				MoodAverage:           nil,
			},
			expected: models.WellnessScores{
				Habits:    40,
				Emotional: 50,
				Purpose:   30,
				Overall:   40.0,
			},
		},
		{
			name: "goals raise purpose above the baseline",
			inputs: Inputs{
				MoodAverage:    floatPtr(6),
				GoalsTotal:     4,
				GoalsCompleted: 2,
			},
			expected: models.WellnessScores{
				Habits:    0,
				Emotional: 60,
				Purpose:   65,
				Overall:   41.7,
			},
		},
		{
			name: "all goals complete maxes purpose",
			inputs: Inputs{
				MoodAverage:    floatPtr(10),
				GoalsTotal:     3,
				GoalsCompleted: 3,
			},
			expected: models.WellnessScores{
				Habits:    0,
				Emotional: 100,
				Purpose:   100,
				Overall:   66.7,
			},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, Score(test.inputs))
		})
	}
}

func TestDaysClean(t *testing.T) {
	reference := models.NewDate(2026, time.March, 20)

	t.Run("no clean since", func(t *testing.T) {
		assert.Equal(t, 0, DaysClean(nil, reference))
	})

	t.Run("counts whole days", func(t *testing.T) {
		since := reference.AddDays(-90)
		assert.Equal(t, 90, DaysClean(&since, reference))
	})

	t.Run("same day is zero", func(t *testing.T) {
		since := reference
		assert.Equal(t, 0, DaysClean(&since, reference))
	})

	t.Run("future date is zero", func(t *testing.T) {
		since := reference.AddDays(2)
		assert.Equal(t, 0, DaysClean(&since, reference))
	})
}

func TestNextMilestone(t *testing.T) {
	tests := []struct {
		daysClean int
		milestone int
		remaining int
		ok        bool
	}{
		{daysClean: 0, milestone: 7, remaining: 7, ok: true},
		{daysClean: 6, milestone: 7, remaining: 1, ok: true},
		{daysClean: 7, milestone: 14, remaining: 7, ok: true},
		{daysClean: 100, milestone: 180, remaining: 80, ok: true},
		{daysClean: 1824, milestone: 1825, remaining: 1, ok: true},
		{daysClean: 1825, ok: false},
		{daysClean: 4000, ok: false},
	}

	for _, test := range tests {
		milestone, remaining, ok := NextMilestone(test.daysClean)
		assert.Equal(t, test.ok, ok)
		if test.ok {
			assert.Equal(t, test.milestone, milestone)
			assert.Equal(t, test.remaining, remaining)
		}
	}
}
