// Package wellness folds completion rate, streak, mood, and goal progress
// into the wellness wheel, and tracks sobriety milestones. Scores are
// presentation aids and never feed the alert rules.
package wellness

import (
	"math"

	"github.com/fernhealth/fern/pkg/models"
)

// neutralEmotional is the emotional sub-score when no mood data exists.
// Absence of data is not "bad".
const neutralEmotional = 50

// purposeBaseline is the purpose sub-score before any goal exists.
const purposeBaseline = 30

// Milestones are the celebrated clean-day counts, in days.
var Milestones = []int{7, 14, 30, 60, 90, 180, 365, 500, 730, 1000, 1095, 1825}

// Inputs are the already-computed metrics the scorer folds together.
type Inputs struct {
	// CompletionRatePercent is the habit completion rate over the window, 0..100.
	CompletionRatePercent float64
	// CurrentStreak is the longest current streak across active habits.
	CurrentStreak int
	// MoodAverage is the window's mood average on the 1..10 scale, nil when
	// no mood data exists.
	MoodAverage *float64
	GoalsTotal     int
	GoalsCompleted int
}

// Score computes the three sub-scores and the composite.
func Score(in Inputs) models.WellnessScores {
	habits := clamp(int(math.Round(in.CompletionRatePercent)) + 2*in.CurrentStreak)

	emotional := neutralEmotional
	if in.MoodAverage != nil {
		emotional = clamp(int(math.Round(*in.MoodAverage / 10 * 100)))
	}

	purpose := purposeBaseline
	if in.GoalsTotal > 0 {
		ratio := float64(in.GoalsCompleted) / float64(in.GoalsTotal)
		purpose = clamp(purposeBaseline + int(math.Round(70*ratio)))
	}

	overall := math.Round(float64(habits+emotional+purpose)/3*10) / 10

	return models.WellnessScores{
		Habits:    habits,
		Emotional: emotional,
		Purpose:   purpose,
		Overall:   overall,
	}
}

// DaysClean counts whole days from cleanSince to the reference date, or 0
// when no recovery start is set.
func DaysClean(cleanSince *models.Date, reference models.Date) int {
	if cleanSince == nil {
		return 0
	}
	days := reference.DaysSince(*cleanSince)
	if days < 0 {
		return 0
	}
	return days
}

// NextMilestone returns the next milestone after daysClean and the days
// remaining to reach it. ok is false once every milestone has passed.
func NextMilestone(daysClean int) (milestone int, remaining int, ok bool) {
	for _, m := range Milestones {
		if daysClean < m {
			return m, m - daysClean, true
		}
	}
	return 0, 0, false
}

func clamp(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
