// Package report renders a diagnosis for the patient: a styled terminal
// panel, plain text, JSON and a PDF document.
package report

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"hakim/pkg/clinical"
)

// Titles shared by every format.
const (
	Title           = "Official Clinical Report"
	NotesHeading    = "Doctor's Clinical Notes"
	TreatmentTitle  = "Treatment Path"
	ActionsHeading  = "Immediate Actions"
	SummaryHeading  = "Patient Summary"
	ConfidenceLabel = "AI Confidence"
)

// Meta describes the consultation a report belongs to.
type Meta struct {
	SessionID      string
	ChiefComplaint string
	Samples        int
	Bypassed       bool
	GeneratedAt    time.Time
}

// Theme is the triage colour scheme.
type Theme struct {
	Name     string
	Terminal string // ANSI 256 colour
	RGB      [3]int
}

//nolint:gochecknoglobals
var (
	themeEmergency = Theme{Name: "red", Terminal: "196", RGB: [3]int{220, 38, 38}}
	themeUrgent    = Theme{Name: "orange", Terminal: "208", RGB: [3]int{234, 88, 12}}
	themeStable    = Theme{Name: "green", Terminal: "34", RGB: [3]int{22, 163, 74}}
)

// ThemeFor picks the colour scheme for a triage level.
func ThemeFor(level clinical.TriageLevel) Theme {
	switch level {
	case clinical.TriageEmergency:
		return themeEmergency
	case clinical.TriageUrgent:
		return themeUrgent
	default:
		return themeStable
	}
}

// StatusLine is the triage banner, e.g. "NON-URGENT TRIAGE STATUS".
func StatusLine(d *clinical.Diagnosis) string {
	return d.TriageLevel.Label() + " TRIAGE STATUS"
}

// ConfidenceLine is e.g. "AI Confidence: 78%".
func ConfidenceLine(d *clinical.Diagnosis) string {
	return fmt.Sprintf("%s: %d%%", ConfidenceLabel, d.ConfidencePercent())
}

// LegalNotice joins the report disclaimer with the fixed notice.
func LegalNotice(d *clinical.Diagnosis) string {
	disclaimer := strings.TrimSpace(d.Disclaimer)
	if disclaimer == "" {
		return "Legal Notice: " + clinical.LegalNotice
	}
	return "Legal Notice: " + disclaimer + " " + clinical.LegalNotice
}

// Text renders the report without styling.
func Text(d *clinical.Diagnosis, m Meta) string {
	var b strings.Builder

	b.WriteString(Title + "\n")
	b.WriteString(strings.Repeat("=", len(Title)) + "\n")
	if m.ChiefComplaint != "" {
		fmt.Fprintf(&b, "Chief complaint: %s\n", m.ChiefComplaint)
	}
	if m.Samples > 0 {
		fmt.Fprintf(&b, "Evidence reviewed: %d item(s)\n", m.Samples)
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "%s\n", d.ConditionName)
	fmt.Fprintf(&b, "%s\n", ConfidenceLine(d))
	fmt.Fprintf(&b, "%s\n\n", StatusLine(d))

	b.WriteString(NotesHeading + "\n")
	for i, note := range d.ClinicalReasoning {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, note)
	}

	if g := strings.TrimSpace(d.PrescriptionGuidance); g != "" {
		b.WriteString("\n" + TreatmentTitle + "\n")
		fmt.Fprintf(&b, "  %s\n", g)
	}

	b.WriteString("\n" + ActionsHeading + "\n")
	for _, action := range d.SuggestedActions {
		fmt.Fprintf(&b, "  - %s\n", action)
	}

	if s := strings.TrimSpace(d.EducationalSummary); s != "" {
		b.WriteString("\n" + SummaryHeading + "\n")
		fmt.Fprintf(&b, "  %s\n", s)
	}

	b.WriteString("\n" + LegalNotice(d) + "\n")
	return b.String()
}

// document is the JSON export shape.
type document struct {
	SessionID         string              `json:"sessionId,omitempty"`
	ChiefComplaint    string              `json:"chiefComplaint,omitempty"`
	Samples           int                 `json:"samples"`
	EmergencyBypass   bool                `json:"emergencyBypass"`
	GeneratedAt       time.Time           `json:"generatedAt"`
	ConfidencePercent int                 `json:"confidencePercent"`
	TriageStatus      string              `json:"triageStatus"`
	LegalNotice       string              `json:"legalNotice"`
	Diagnosis         *clinical.Diagnosis `json:"diagnosis"`
}

// JSON renders the report and its metadata as indented JSON.
func JSON(d *clinical.Diagnosis, m Meta) ([]byte, error) {
	doc := document{
		SessionID:         m.SessionID,
		ChiefComplaint:    m.ChiefComplaint,
		Samples:           m.Samples,
		EmergencyBypass:   m.Bypassed,
		GeneratedAt:       m.GeneratedAt.UTC(),
		ConfidencePercent: d.ConfidencePercent(),
		TriageStatus:      StatusLine(d),
		LegalNotice:       LegalNotice(d),
		Diagnosis:         d,
	}
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode report: %w", err)
	}
	return append(out, '\n'), nil
}
