package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSortAlerts(t *testing.T) {
	at := time.Date(2026, time.March, 20, 9, 0, 0, 0, time.UTC)
	earlier := at.Add(-time.Hour)

	t.Run("severity outranks time and type", func(t *testing.T) {
		alerts := []Alert{
			{Type: AlertInactivity, Severity: SeverityMedium, SubjectID: "a", EvidenceAt: earlier},
			{Type: AlertRelapse, Severity: SeverityCritical, SubjectID: "a", EvidenceAt: at},
			{Type: AlertInactivity, Severity: SeverityHigh, SubjectID: "a", EvidenceAt: at},
		}

		SortAlerts(alerts)

		assert.Equal(t, SeverityCritical, alerts[0].Severity)
		assert.Equal(t, SeverityHigh, alerts[1].Severity)
		assert.Equal(t, SeverityMedium, alerts[2].Severity)
	})

	t.Run("subject ID breaks full ties in one total order", func(t *testing.T) {
		// Two subjects with alerts equal in severity, time, and type must come
		// out in subject order, every time, from a single comparator.
		alerts := []Alert{
			{Type: AlertRelapse, Severity: SeverityCritical, SubjectID: "patient-2", EvidenceAt: at},
			{Type: AlertRelapse, Severity: SeverityCritical, SubjectID: "patient-1", EvidenceAt: at},
			{Type: AlertRelapse, Severity: SeverityCritical, SubjectID: "patient-3", EvidenceAt: at},
		}

		SortAlerts(alerts)

		assert.Equal(t, "patient-1", alerts[0].SubjectID)
		assert.Equal(t, "patient-2", alerts[1].SubjectID)
		assert.Equal(t, "patient-3", alerts[2].SubjectID)

		resorted := make([]Alert, len(alerts))
		copy(resorted, alerts)
		SortAlerts(resorted)
		assert.Equal(t, alerts, resorted)
	})
}
