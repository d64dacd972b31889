package clinical

import (
	"encoding/json"
	"fmt"
	"strings"
)

// TriageLevel is the urgency classification of a diagnosis.
type TriageLevel string

const (
	TriageEmergency TriageLevel = "EMERGENCY"
	TriageUrgent    TriageLevel = "URGENT"
	TriageNonUrgent TriageLevel = "NON_URGENT"
	TriageRoutine   TriageLevel = "ROUTINE"
)

// TriageLevels lists levels from most to least severe.
//
//nolint:gochecknoglobals
var TriageLevels = []TriageLevel{TriageEmergency, TriageUrgent, TriageNonUrgent, TriageRoutine}

// ParseTriageLevel accepts the labels the model tends to produce, ignoring
// case and separators: "NON-URGENT", "non urgent" and "NonUrgent" all map to
// TriageNonUrgent. Unknown labels are an error.
func ParseTriageLevel(s string) (TriageLevel, error) {
	key := strings.Map(func(r rune) rune {
		switch r {
		case '-', '_', ' ':
			return -1
		}
		return r
	}, strings.ToUpper(strings.TrimSpace(s)))

	switch key {
	case "EMERGENCY":
		return TriageEmergency, nil
	case "URGENT":
		return TriageUrgent, nil
	case "NONURGENT":
		return TriageNonUrgent, nil
	case "ROUTINE":
		return TriageRoutine, nil
	default:
		return "", fmt.Errorf("unknown triage level %q", s)
	}
}

// Label returns the display form, e.g. "NON-URGENT".
func (t TriageLevel) Label() string {
	return strings.ReplaceAll(string(t), "_", "-")
}

// UnmarshalJSON parses via ParseTriageLevel.
func (t *TriageLevel) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("triage level must be a string: %w", err)
	}
	level, err := ParseTriageLevel(s)
	if err != nil {
		return err
	}
	*t = level
	return nil
}

// Diagnosis is the report returned by the model or synthesized by the
// emergency protocol. It is immutable once produced.
type Diagnosis struct {
	ConditionName        string      `json:"conditionName"`
	ConfidenceScore      float64     `json:"confidenceScore"`
	TriageLevel          TriageLevel `json:"triageLevel"`
	ClinicalReasoning    []string    `json:"clinicalReasoning"`
	SuggestedActions     []string    `json:"suggestedActions"`
	EducationalSummary   string      `json:"educationalSummary"`
	PrescriptionGuidance string      `json:"prescriptionGuidance,omitempty"`
	Disclaimer           string      `json:"disclaimer"`
}

// Validate checks the value ranges the wire schema cannot express alone.
func (d *Diagnosis) Validate() error {
	if strings.TrimSpace(d.ConditionName) == "" {
		return fmt.Errorf("conditionName is empty")
	}
	if d.ConfidenceScore < 0 || d.ConfidenceScore > 1 {
		return fmt.Errorf("confidenceScore %v outside [0,1]", d.ConfidenceScore)
	}
	if _, err := ParseTriageLevel(string(d.TriageLevel)); err != nil {
		return err
	}
	return nil
}

// ConfidencePercent is the confidence rounded to a whole percent.
func (d *Diagnosis) ConfidencePercent() int {
	return int(d.ConfidenceScore*100 + 0.5)
}

// Clone returns a deep copy.
func (d *Diagnosis) Clone() *Diagnosis {
	if d == nil {
		return nil
	}
	out := *d
	out.ClinicalReasoning = append([]string(nil), d.ClinicalReasoning...)
	out.SuggestedActions = append([]string(nil), d.SuggestedActions...)
	return &out
}
