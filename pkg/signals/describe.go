package signals

import (
	"fmt"
	"strings"

	"github.com/fernhealth/fern/pkg/models"
)

// TextDescriber is the default plain-English Describer.
type TextDescriber struct{}

func NewTextDescriber() TextDescriber {
	return TextDescriber{}
}

func (TextDescriber) Relapse(relapse models.Relapse) string {
	details := []string{}
	if relapse.Substance != nil && *relapse.Substance != "" {
		details = append(details, "substance: "+*relapse.Substance)
	}
	if relapse.Trigger != nil && *relapse.Trigger != "" {
		details = append(details, "trigger: "+*relapse.Trigger)
	}

	description := fmt.Sprintf("Relapse reported on %s", relapse.RelapseDate)
	if len(details) > 0 {
		description += " (" + strings.Join(details, ", ") + ")"
	}
	return description
}

func (TextDescriber) Inactivity(days int) string {
	if days == 1 {
		return "No activity logged for 1 day"
	}
	return fmt.Sprintf("No activity logged for %d days", days)
}

func (TextDescriber) NegativeEmotion(veryNegative, negative int) string {
	if veryNegative > 0 {
		return fmt.Sprintf("Very low mood reported recently (%d entries at 2 or below)", veryNegative)
	}
	return fmt.Sprintf("Low mood pattern in recent entries (%d entries at 3 or below)", negative)
}
