package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"hakim/pkg/clinical"
)

//nolint:gochecknoglobals
var (
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(1, 2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("63")).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244"))

	headingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Bold(true).
			MarginTop(1)

	noticeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244")).
			Italic(true).
			MarginTop(1)
)

// Terminal renders the report as a bordered panel coloured by triage level.
// width <= 0 leaves line wrapping to the terminal.
func Terminal(d *clinical.Diagnosis, m Meta, width int) string {
	theme := ThemeFor(d.TriageLevel)
	accent := lipgloss.Color(theme.Terminal)

	banner := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("231")).
		Background(accent).
		Padding(0, 1).
		Render(StatusLine(d))

	var lines []string
	lines = append(lines, titleStyle.Render(Title))
	if m.ChiefComplaint != "" {
		lines = append(lines, labelStyle.Render("Chief complaint: ")+m.ChiefComplaint)
	}
	lines = append(lines,
		"",
		lipgloss.NewStyle().Bold(true).Foreground(accent).Render(d.ConditionName),
		labelStyle.Render(ConfidenceLabel+": ")+fmt.Sprintf("%d%%", d.ConfidencePercent()),
		banner,
	)

	lines = append(lines, headingStyle.Render(NotesHeading))
	for i, note := range d.ClinicalReasoning {
		lines = append(lines, fmt.Sprintf(" %d. %s", i+1, note))
	}

	if g := strings.TrimSpace(d.PrescriptionGuidance); g != "" {
		lines = append(lines, headingStyle.Render(TreatmentTitle), " "+g)
	}

	lines = append(lines, headingStyle.Render(ActionsHeading))
	for _, action := range d.SuggestedActions {
		lines = append(lines, lipgloss.NewStyle().Foreground(accent).Render(" ▸ ")+action)
	}

	if s := strings.TrimSpace(d.EducationalSummary); s != "" {
		lines = append(lines, headingStyle.Render(SummaryHeading), " "+s)
	}

	notice := noticeStyle
	if width > 8 {
		notice = notice.Width(width - 8)
	}
	lines = append(lines, notice.Render(LegalNotice(d)))

	panel := panelStyle.BorderForeground(accent)
	if width > 0 {
		panel = panel.Width(width - 2)
	}
	return panel.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}
