package report

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"hakim/pkg/clinical"
)

const (
	pdfMargin     = 18.0
	pdfLineHeight = 6.0
)

// WritePDF writes the report as an A4 PDF document.
func WritePDF(w io.Writer, d *clinical.Diagnosis, m Meta) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfMargin)
	pdf.SetTitle("HAKIM "+Title, true)
	pdf.SetCreator("hakim", true)
	if !m.GeneratedAt.IsZero() {
		pdf.SetCreationDate(m.GeneratedAt)
	}
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	theme := ThemeFor(d.TriageLevel)

	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, tr(Title), "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(110, 110, 110)
	generated := m.GeneratedAt
	if generated.IsZero() {
		generated = time.Now()
	}
	pdf.CellFormat(0, 5, tr("Generated "+generated.UTC().Format("2006-01-02 15:04 MST")), "", 1, "L", false, 0, "")
	if m.SessionID != "" {
		pdf.CellFormat(0, 5, tr("Consultation "+m.SessionID), "", 1, "L", false, 0, "")
	}
	pdf.Ln(3)

	if m.ChiefComplaint != "" {
		pdf.SetTextColor(0, 0, 0)
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(0, pdfLineHeight, tr("Chief complaint"), "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, pdfLineHeight, tr(m.ChiefComplaint), "", "L", false)
		pdf.Ln(2)
	}

	pdf.SetTextColor(theme.RGB[0], theme.RGB[1], theme.RGB[2])
	pdf.SetFont("Helvetica", "B", 16)
	pdf.MultiCell(0, 8, tr(d.ConditionName), "", "L", false)

	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 7, tr(ConfidenceLine(d)), "", 1, "L", false, 0, "")

	pdf.SetFillColor(theme.RGB[0], theme.RGB[1], theme.RGB[2])
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(0, 8, tr(StatusLine(d)), "", 1, "C", true, 0, "")
	pdf.SetTextColor(0, 0, 0)

	section := func(heading string) {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(0, 7, tr(heading), "B", 1, "L", false, 0, "")
		pdf.Ln(1)
		pdf.SetFont("Helvetica", "", 10)
	}

	section(NotesHeading)
	for i, note := range d.ClinicalReasoning {
		pdf.MultiCell(0, pdfLineHeight, tr(fmt.Sprintf("%d. %s", i+1, note)), "", "L", false)
	}

	if g := strings.TrimSpace(d.PrescriptionGuidance); g != "" {
		section(TreatmentTitle)
		pdf.MultiCell(0, pdfLineHeight, tr(g), "", "L", false)
	}

	section(ActionsHeading)
	for _, action := range d.SuggestedActions {
		pdf.MultiCell(0, pdfLineHeight, tr("- "+action), "", "L", false)
	}

	if s := strings.TrimSpace(d.EducationalSummary); s != "" {
		section(SummaryHeading)
		pdf.MultiCell(0, pdfLineHeight, tr(s), "", "L", false)
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "I", 8)
	pdf.SetTextColor(110, 110, 110)
	pdf.MultiCell(0, 4.5, tr(LegalNotice(d)), "T", "L", false)

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to render PDF: %w", err)
	}
	return nil
}

// SavePDF writes the report to path.
func SavePDF(path string, d *clinical.Diagnosis, m Meta) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", path, cerr)
		}
	}()
	return WritePDF(f, d, m)
}
