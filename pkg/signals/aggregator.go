// Package signals synthesizes continuity metrics, mood history, and relapse
// events into prioritized alerts. Rule evaluation is pure; the description
// text is produced by a separate Describer so presentation can change without
// touching the rules.
package signals

import (
	"sort"

	"github.com/fernhealth/fern/pkg/models"
)

const (
	// RelapseHorizonDays is how long a relapse event keeps producing an alert.
	RelapseHorizonDays = 7

	// inactivity thresholds in whole days
	inactivityMediumDays = 3
	inactivityHighDays   = 7

	// negative-emotion rule bounds
	recentMoodCount    = 7
	veryNegativeMood   = 2
	negativeMood       = 3
	negativeCountFloor = 3
)

// Input is everything the rules need for one tracked person. DaysInactive is
// nil when the person has never logged anything; the inactivity rule is
// suppressed in that case.
type Input struct {
	SubjectID    string
	Reference    models.Date
	Relapses     []models.Relapse
	DaysInactive *int
	LastActivity *models.Date
	MoodLogs     []models.MoodLog
}

// Describer renders alert description text. Rules decide type and severity;
// the describer only words them.
type Describer interface {
	Relapse(relapse models.Relapse) string
	Inactivity(days int) string
	NegativeEmotion(veryNegative, negative int) string
}

type Aggregator struct {
	describer Describer
}

func NewAggregator(describer Describer) *Aggregator {
	return &Aggregator{describer: describer}
}

// Evaluate runs every rule (no short-circuit) and returns the alerts in
// display order: severity rank, then evidence time ascending, then type name.
// Repeated calls over unchanged input yield an identical list.
func (a *Aggregator) Evaluate(in Input) []models.Alert {
	alerts := []models.Alert{}
	alerts = append(alerts, a.relapseAlerts(in)...)
	if alert := a.inactivityAlert(in); alert != nil {
		alerts = append(alerts, *alert)
	}
	if alert := a.negativeEmotionAlert(in); alert != nil {
		alerts = append(alerts, *alert)
	}

	models.SortAlerts(alerts)
	return alerts
}

// relapseAlerts emits one critical alert per relapse reported within the
// horizon. After the horizon the alert disappears on its own; there is no
// resolve action.
func (a *Aggregator) relapseAlerts(in Input) []models.Alert {
	alerts := []models.Alert{}
	for _, relapse := range in.Relapses {
		days := in.Reference.DaysSince(relapse.RelapseDate)
		if days < 0 || days > RelapseHorizonDays {
			continue
		}

		evidence := map[string]any{"relapse_date": relapse.RelapseDate.String()}
		if relapse.Substance != nil {
			evidence["substance"] = *relapse.Substance
		}
		if relapse.Trigger != nil {
			evidence["trigger"] = *relapse.Trigger
		}

		alerts = append(alerts, models.Alert{
			Type:        models.AlertRelapse,
			Severity:    models.SeverityCritical,
			SubjectID:   in.SubjectID,
			Description: a.describer.Relapse(relapse),
			EvidenceAt:  relapse.ReportedAt,
			Evidence:    evidence,
		})
	}
	return alerts
}

func (a *Aggregator) inactivityAlert(in Input) *models.Alert {
	// never-logged accounts are not inactive
	if in.DaysInactive == nil || in.LastActivity == nil {
		return nil
	}
	days := *in.DaysInactive
	if days < inactivityMediumDays {
		return nil
	}

	severity := models.SeverityMedium
	if days >= inactivityHighDays {
		severity = models.SeverityHigh
	}

	return &models.Alert{
		Type:        models.AlertInactivity,
		Severity:    severity,
		SubjectID:   in.SubjectID,
		Description: a.describer.Inactivity(days),
		EvidenceAt:  in.LastActivity.Time(),
		Evidence: map[string]any{
			"days_inactive": days,
			"last_activity": in.LastActivity.String(),
		},
	}
}

// negativeEmotionAlert scans the most recent mood entries. Any very-negative
// entry fires at high severity; otherwise three or more negative entries fire
// at medium.
func (a *Aggregator) negativeEmotionAlert(in Input) *models.Alert {
	recent := recentMoods(in.MoodLogs, recentMoodCount)
	if len(recent) == 0 {
		return nil
	}

	veryNegative := 0
	negative := 0
	var evidenceAt models.Date
	for _, log := range recent {
		if log.Mood > negativeMood {
			continue
		}
		negative++
		if log.Mood <= veryNegativeMood {
			veryNegative++
		}
		if evidenceAt.IsZero() || log.LogDate.After(evidenceAt) {
			evidenceAt = log.LogDate
		}
	}

	severity := models.Severity("")
	switch {
	case veryNegative > 0:
		severity = models.SeverityHigh
	case negative >= negativeCountFloor:
		severity = models.SeverityMedium
	default:
		return nil
	}

	return &models.Alert{
		Type:        models.AlertNegativeEmotion,
		Severity:    severity,
		SubjectID:   in.SubjectID,
		Description: a.describer.NegativeEmotion(veryNegative, negative),
		EvidenceAt:  evidenceAt.Time(),
		Evidence: map[string]any{
			"entries_scanned": len(recent),
			"negative":        negative,
			"very_negative":   veryNegative,
		},
	}
}

// recentMoods returns the n most recent entries by log date.
func recentMoods(logs []models.MoodLog, n int) []models.MoodLog {
	ordered := make([]models.MoodLog, len(logs))
	copy(ordered, logs)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[j].LogDate.Before(ordered[i].LogDate)
	})
	if len(ordered) > n {
		ordered = ordered[:n]
	}
	return ordered
}
