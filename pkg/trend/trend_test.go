package trend

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/fernhealth/fern/pkg/database"
	"github.com/fernhealth/fern/pkg/models"
)

func moodLog(offset int, mood int, tags ...string) models.MoodLog {
	return models.MoodLog{
		OwnerID: "owner-1",
		LogDate: models.NewDate(2026, time.March, 2).AddDays(offset), // a Monday
		Mood:    mood,
		Tags:    database.JSONB[[]string]{Data: tags},
	}
}

func moods(values ...int) []models.MoodLog {
	logs := make([]models.MoodLog, 0, len(values))
	for i, v := range values {
		logs = append(logs, moodLog(i, v))
	}
	return logs
}

func TestAnalyze_Direction(t *testing.T) {
	tests := []struct {
		name     string
		logs     []models.MoodLog
		expected models.TrendDirection
	}{
		{
			name:     "empty window",
			logs:     nil,
			expected: models.TrendInsufficient,
		},
		{
			name:     "one entry",
			logs:     moods(8),
			expected: models.TrendInsufficient,
		},
		{
			name:     "two entries",
			logs:     moods(2, 9),
			expected: models.TrendInsufficient,
		},
		{
			name:     "three entries improving",
			logs:     moods(3, 6, 7),
			expected: models.TrendImproving,
		},
		{
			name:     "three entries declining",
			logs:     moods(8, 4, 3),
			expected: models.TrendDeclining,
		},
		{
			name:     "flat is stable",
			logs:     moods(5, 5, 5, 5),
			expected: models.TrendStable,
		},
		{
			name: "difference at the delta is stable",
			// earlier avg 5, later avg 5.5: not strictly above the delta
			logs:     moods(5, 5, 5, 6),
			expected: models.TrendStable,
		},
		{
			name: "difference just past the delta improves",
			// earlier avg 5, later avg 6
			logs:     moods(5, 5, 6, 6),
			expected: models.TrendImproving,
		},
		{
			name: "odd count puts the middle entry in the later half",
			// later half = ceil(5/2) = 3 most recent: [5 9 9] avg 7.67 vs [2 2] avg 2
			logs:     moods(2, 2, 5, 9, 9),
			expected: models.TrendImproving,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, Analyze(test.logs, 0).Direction)
		})
	}
}

func TestAnalyze_SplitIgnoresInputOrder(t *testing.T) {
	logs := []models.MoodLog{
		moodLog(4, 9),
		moodLog(0, 2),
		moodLog(2, 5),
		moodLog(1, 2),
		moodLog(3, 9),
	}

	assert.Equal(t, models.TrendImproving, Analyze(logs, 0).Direction)
}

func TestAnalyze_Summary(t *testing.T) {
	summary := Analyze(moods(4, 7, 10), 0)

	assert.Equal(t, 3, summary.Entries)
	assert.Equal(t, 7.0, summary.Average)
	assert.Equal(t, 4, summary.Lowest)
	assert.Equal(t, 10, summary.Highest)
}

func TestAnalyze_ByWeekday(t *testing.T) {
	logs := []models.MoodLog{
		moodLog(0, 4),  // Monday
		moodLog(7, 8),  // Monday
		moodLog(1, 6),  // Tuesday
	}

	byWeekday := Analyze(logs, 0).ByWeekday

	assert.Equal(t, 6.0, byWeekday[time.Monday])
	assert.Equal(t, 6.0, byWeekday[time.Tuesday])
	assert.NotContains(t, byWeekday, time.Sunday)
}

func TestTopTags(t *testing.T) {
	logs := []models.MoodLog{
		moodLog(0, 5, "stress", "family"),
		moodLog(1, 6, "stress", "work"),
		moodLog(2, 4, "work", "sleep"),
		moodLog(3, 7, "stress"),
	}

	t.Run("counts and order", func(t *testing.T) {
		tags := TopTags(logs, 5)
		assert.Equal(t, []models.TagCount{
			{Tag: "stress", Count: 3},
			{Tag: "work", Count: 2},
			{Tag: "family", Count: 1},
			{Tag: "sleep", Count: 1},
		}, tags)
	})

	t.Run("ties broken by first seen", func(t *testing.T) {
		tags := TopTags(logs, 5)
		// family appears before sleep in the series, so it wins the tie
		assert.Equal(t, "family", tags[2].Tag)
		assert.Equal(t, "sleep", tags[3].Tag)
	})

	t.Run("top n cuts the list", func(t *testing.T) {
		tags := TopTags(logs, 2)
		assert.Len(t, tags, 2)
		assert.Equal(t, "stress", tags[0].Tag)
		assert.Equal(t, "work", tags[1].Tag)
	})

	t.Run("no tags", func(t *testing.T) {
		assert.Empty(t, TopTags(moods(5, 5), 5))
	})
}
