// Package trend analyzes a windowed mood series: average, direction, weekday
// breakdown, and tag frequency. Pure functions over already-fetched logs.
package trend

import (
	"math"
	"sort"
	"time"

	"github.com/fernhealth/fern/pkg/models"
)

// Delta is the minimum half-to-half average difference (on the 1..10 scale)
// before the direction is called improving or declining.
const Delta = 0.5

// minEntries is the smallest series that supports a direction at all.
const minEntries = 3

// DefaultTopTags caps the tag frequency breakdown.
const DefaultTopTags = 5

// Analyze computes the full trend summary over one window of mood logs.
// The split rule: the later half is the ceil(n/2) most recent entries, the
// earlier half is the rest. Fewer than minEntries logs yields the
// insufficient direction, which callers must treat as distinct from stable.
func Analyze(logs []models.MoodLog, topTags int) models.TrendSummary {
	ordered := make([]models.MoodLog, len(logs))
	copy(ordered, logs)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].LogDate.Before(ordered[j].LogDate)
	})

	summary := models.TrendSummary{
		Entries:   len(ordered),
		Direction: models.TrendInsufficient,
		ByWeekday: weekdayAverages(ordered),
		TopTags:   TopTags(ordered, topTags),
	}
	if len(ordered) == 0 {
		return summary
	}

	sum := 0
	summary.Lowest = ordered[0].Mood
	summary.Highest = ordered[0].Mood
	for _, log := range ordered {
		sum += log.Mood
		if log.Mood < summary.Lowest {
			summary.Lowest = log.Mood
		}
		if log.Mood > summary.Highest {
			summary.Highest = log.Mood
		}
	}
	summary.Average = round2(float64(sum) / float64(len(ordered)))

	if len(ordered) >= minEntries {
		summary.Direction = direction(ordered)
	}
	return summary
}

func direction(ordered []models.MoodLog) models.TrendDirection {
	later := (len(ordered) + 1) / 2
	split := len(ordered) - later

	earlierAvg := average(ordered[:split])
	laterAvg := average(ordered[split:])

	switch {
	case laterAvg-earlierAvg > Delta:
		return models.TrendImproving
	case earlierAvg-laterAvg > Delta:
		return models.TrendDeclining
	default:
		return models.TrendStable
	}
}

func average(logs []models.MoodLog) float64 {
	if len(logs) == 0 {
		return 0
	}
	sum := 0
	for _, log := range logs {
		sum += log.Mood
	}
	return float64(sum) / float64(len(logs))
}

func weekdayAverages(ordered []models.MoodLog) map[time.Weekday]float64 {
	sums := map[time.Weekday]int{}
	counts := map[time.Weekday]int{}
	for _, log := range ordered {
		weekday := log.LogDate.Weekday()
		sums[weekday] += log.Mood
		counts[weekday]++
	}

	averages := make(map[time.Weekday]float64, len(sums))
	for weekday, sum := range sums {
		averages[weekday] = round2(float64(sum) / float64(counts[weekday]))
	}
	return averages
}

// TopTags counts tag occurrences across the window and returns the top n by
// count. Ties are broken by first-seen order in the date-ordered series.
func TopTags(ordered []models.MoodLog, n int) []models.TagCount {
	if n <= 0 {
		n = DefaultTopTags
	}

	counts := map[string]int{}
	firstSeen := map[string]int{}
	order := 0
	for _, log := range ordered {
		for _, tag := range log.Tags.GetValue() {
			if _, seen := firstSeen[tag]; !seen {
				firstSeen[tag] = order
				order++
			}
			counts[tag]++
		}
	}

	tags := make([]models.TagCount, 0, len(counts))
	for tag, count := range counts {
		tags = append(tags, models.TagCount{Tag: tag, Count: count})
	}
	sort.SliceStable(tags, func(i, j int) bool {
		if tags[i].Count != tags[j].Count {
			return tags[i].Count > tags[j].Count
		}
		return firstSeen[tags[i].Tag] < firstSeen[tags[j].Tag]
	})

	if len(tags) > n {
		tags = tags[:n]
	}
	return tags
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
