package models

import (
	"sort"
	"time"
)

// AlertType identifies the rule that produced an alert.
type AlertType string

const (
	AlertRelapse         AlertType = "relapse"
	AlertInactivity      AlertType = "inactivity"
	AlertNegativeEmotion AlertType = "negative_emotion"
)

// Severity is the display ordering of alerts.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

var severityRank = map[Severity]int{
	SeverityCritical: 0,
	SeverityHigh:     1,
	SeverityMedium:   2,
	SeverityLow:      3,
	SeverityInfo:     4,
}

// Rank returns the total-order position of the severity (critical first).
// Unknown severities sort last.
func (s Severity) Rank() int {
	rank, ok := severityRank[s]
	if !ok {
		return len(severityRank)
	}
	return rank
}

// Alert is a derived projection, recomputed per request from current data.
// It carries no read/dismissed state; repeated calls against unchanged data
// must yield an identical ordered list.
type Alert struct {
	Type        AlertType      `json:"type"`
	Severity    Severity       `json:"severity"`
	SubjectID   string         `json:"subject_id"`
	Description string         `json:"description"`
	// EvidenceAt is the timestamp of the observation that triggered the rule.
	EvidenceAt time.Time      `json:"evidence_at"`
	Evidence   map[string]any `json:"evidence,omitempty"`
}

// SortAlerts orders alerts for display: severity rank, then evidence time
// ascending, then type name, then subject ID. The order is total so that
// repeated evaluations are byte-identical, including combined multi-subject
// feeds.
func SortAlerts(alerts []Alert) {
	sort.SliceStable(alerts, func(i, j int) bool {
		if alerts[i].Severity.Rank() != alerts[j].Severity.Rank() {
			return alerts[i].Severity.Rank() < alerts[j].Severity.Rank()
		}
		if !alerts[i].EvidenceAt.Equal(alerts[j].EvidenceAt) {
			return alerts[i].EvidenceAt.Before(alerts[j].EvidenceAt)
		}
		if alerts[i].Type != alerts[j].Type {
			return alerts[i].Type < alerts[j].Type
		}
		return alerts[i].SubjectID < alerts[j].SubjectID
	})
}

// AlertSummary counts alerts by severity and type.
type AlertSummary struct {
	Total    int               `json:"total"`
	Critical int               `json:"critical"`
	High     int               `json:"high"`
	Medium   int               `json:"medium"`
	ByType   map[AlertType]int `json:"by_type"`
}

// SummarizeAlerts builds the count breakdown for a list of alerts.
func SummarizeAlerts(alerts []Alert) AlertSummary {
	summary := AlertSummary{ByType: map[AlertType]int{}}
	summary.Total = len(alerts)
	for _, a := range alerts {
		switch a.Severity {
		case SeverityCritical:
			summary.Critical++
		case SeverityHigh:
			summary.High++
		case SeverityMedium:
			summary.Medium++
		}
		summary.ByType[a.Type]++
	}
	return summary
}
