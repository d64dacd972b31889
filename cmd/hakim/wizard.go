package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/huh/spinner"
	"github.com/charmbracelet/lipgloss"

	"hakim/pkg/clinical"
	"hakim/pkg/gateway"
	"hakim/pkg/intake"
	"hakim/pkg/media"
)

const (
	choiceStart     = "start"
	choiceContinue  = "continue"
	choiceEmergency = "emergency"
	choiceAdd       = "add"
	choiceAnalyze   = "analyze"
	choicePDF       = "pdf"
	choiceReset     = "reset"
	choiceQuit      = "quit"
	answerSkip      = ""
)

//nolint:gochecknoglobals
var (
	brandStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244"))

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196"))
)

//nolint:gochecknoglobals
var (
	emergencyOption = huh.NewOption("🚨 EMERGENCY: I need help now", choiceEmergency)
	resetOption     = huh.NewOption("Start over", choiceReset)
)

// wizard walks the patient through consultations with terminal forms until
// they quit.
type wizard struct {
	ctx    context.Context //nolint:containedctx // scoped to one wizard run
	ctrl   *intake.Controller
	loader *media.Loader
	out    io.Writer
	output reportOutput

	shown string // session/generation of the last printed report
}

func newWizard(ctx context.Context, ctrl *intake.Controller, loader *media.Loader, out io.Writer, output reportOutput) *wizard {
	return &wizard{ctx: ctx, ctrl: ctrl, loader: loader, out: out, output: output}
}

func runWizard(ctx context.Context, ctrl *intake.Controller, loader *media.Loader, out io.Writer, output reportOutput) error {
	w := newWizard(ctx, ctrl, loader, out, output)
	fmt.Fprintln(out, brandStyle.Render("HAKIM · Digital Physician"))

	for {
		s := ctrl.Snapshot()
		w.status(s)

		var err error
		switch s.Stage {
		case intake.StageSymptomEntry:
			err = w.symptomEntry(s)
		case intake.StageQuestionnaire:
			err = w.questionnaire(s)
		case intake.StageMediaCapture:
			err = w.mediaCapture(s)
		case intake.StageAnalyzing:
			w.await("Running clinical analysis...")
		case intake.StageReport:
			err = w.reportStep(s)
		}

		if errors.Is(err, huh.ErrUserAborted) || errors.Is(err, errQuit) || errors.Is(err, context.Canceled) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

var errQuit = errors.New("quit")

func (w *wizard) status(s intake.Session) {
	fmt.Fprintln(w.out, statusStyle.Render(s.Summary().String()))
	if s.LastError != nil {
		fmt.Fprintln(w.out, errorStyle.Render("⚠ "+gateway.UserMessage(s.LastError)))
	}
}

func (w *wizard) await(title string) {
	if err := spinner.New().Title(title).Context(w.ctx).Action(w.ctrl.Wait).Run(); err != nil {
		w.ctrl.Wait()
	}
}

// act runs a menu choice shared by every step. Unknown choices are ignored.
func (w *wizard) act(choice string) error {
	switch choice {
	case choiceEmergency:
		w.ctrl.EmergencyBypass()
	case choiceReset:
		w.ctrl.Reset()
		fmt.Fprintln(w.out, statusStyle.Render("↺ New consultation"))
	case choiceQuit:
		return errQuit
	}
	return nil
}

func (w *wizard) symptomEntry(s intake.Session) error {
	var (
		complaint string
		choice    = choiceStart
	)
	options := []huh.Option[string]{
		huh.NewOption("Describe my symptoms", choiceStart),
		emergencyOption,
	}
	if s.ChiefComplaint != "" || s.LastError != nil {
		options = append(options, resetOption)
	}
	options = append(options, huh.NewOption("Quit", choiceQuit))

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("How can HAKIM help?").
				Options(options...).
				Value(&choice),
		),
		huh.NewGroup(
			huh.NewText().
				Title("What are your symptoms?").
				Description("Describe what you feel, where, and since when.").
				CharLimit(2000).
				Value(&complaint).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("please describe your symptoms")
					}
					return nil
				}),
		).WithHideFunc(func() bool { return choice != choiceStart }),
	)
	if err := form.RunWithContext(w.ctx); err != nil {
		return err
	}

	if choice != choiceStart {
		return w.act(choice)
	}

	if err := w.ctrl.SubmitComplaint(complaint); err != nil {
		return ignoreGate(err)
	}
	w.await("Preparing clinical questions...")
	return nil
}

func (w *wizard) questionnaire(s intake.Session) error {
	values := make([]string, len(s.Questions))
	fields := make([]huh.Field, 0, len(s.Questions)+1)

	for i, q := range s.Questions {
		values[i] = s.Answers[q.ID]
		title := fmt.Sprintf("%d. %s", i+1, q.Prompt)

		switch q.Kind {
		case clinical.AnswerBoolean:
			fields = append(fields, huh.NewSelect[string]().
				Title(title).
				Options(
					huh.NewOption("Yes", clinical.AnswerYes),
					huh.NewOption("No", clinical.AnswerNo),
					huh.NewOption("Skip", answerSkip),
				).
				Value(&values[i]))
		case clinical.AnswerScale:
			fields = append(fields, huh.NewInput().
				Title(title).
				Description(fmt.Sprintf("%d (none) to %d (worst)", clinical.ScaleMin, clinical.ScaleMax)).
				Value(&values[i]).
				Validate(func(v string) error {
					if strings.TrimSpace(v) == "" {
						return nil
					}
					_, err := clinical.NormalizeAnswer(clinical.AnswerScale, v)
					return err
				}))
		default:
			fields = append(fields, huh.NewInput().
				Title(title).
				Value(&values[i]))
		}
	}

	next := choiceContinue
	fields = append(fields, huh.NewSelect[string]().
		Title("Next step").
		Options(
			huh.NewOption("Continue to examination", choiceContinue),
			emergencyOption,
			resetOption,
		).
		Value(&next))

	if err := huh.NewForm(huh.NewGroup(fields...).Title("Clinical questions")).RunWithContext(w.ctx); err != nil {
		return err
	}
	if next != choiceContinue {
		return w.act(next)
	}

	for i, q := range s.Questions {
		v := strings.TrimSpace(values[i])
		if v == "" {
			if _, ok := s.Answers[q.ID]; ok && q.Kind != clinical.AnswerText {
				if err := w.ctrl.ClearAnswer(q.ID); err != nil {
					return err
				}
			}
			continue
		}
		if err := w.ctrl.Answer(q.ID, v); err != nil {
			return err
		}
	}
	return w.ctrl.ProceedToCapture()
}

func (w *wizard) mediaCapture(s intake.Session) error {
	choice := choiceAdd
	if len(s.MediaSamples) > 0 {
		choice = choiceAnalyze
	}

	err := huh.NewForm(huh.NewGroup(
		huh.NewSelect[string]().
			Title("Examination evidence").
			Description("Attach photos or audio so HAKIM can examine the affected area.").
			Options(
				huh.NewOption("Attach a photo or recording", choiceAdd),
				huh.NewOption("Run analysis", choiceAnalyze),
				huh.NewOption("🚨 EMERGENCY bypass", choiceEmergency),
				resetOption,
				huh.NewOption("Quit", choiceQuit),
			).
			Value(&choice),
	)).RunWithContext(w.ctx)
	if err != nil {
		return err
	}

	switch choice {
	case choiceAdd:
		return w.addEvidence()
	case choiceAnalyze:
		if err := w.ctrl.ExecuteAnalysis(); err != nil {
			if errors.Is(err, intake.ErrGateClosed) {
				fmt.Fprintln(w.out, errorStyle.Render("Attach at least one photo or recording first."))
				return nil
			}
			return ignoreGate(err)
		}
		w.await("Running clinical analysis...")
		return nil
	default:
		return w.act(choice)
	}
}

func (w *wizard) addEvidence() error {
	var (
		path   string
		preset = string(clinical.RegionGeneral)
	)
	options := make([]huh.Option[string], 0, len(clinical.BodyRegions))
	for _, r := range clinical.BodyRegions {
		options = append(options, huh.NewOption(r.Title(), string(r)))
	}

	err := huh.NewForm(huh.NewGroup(
		huh.NewSelect[string]().
			Title("What are you capturing?").
			Options(options...).
			Value(&preset),
		huh.NewInput().
			Title("File path").
			Placeholder("photo.jpg or cough.webm").
			Value(&path).
			Validate(func(p string) error {
				info, err := os.Stat(strings.TrimSpace(p))
				if err != nil {
					return errors.New("file not found")
				}
				if info.IsDir() {
					return errors.New("that is a directory")
				}
				return nil
			}),
	)).RunWithContext(w.ctx)
	if err != nil {
		return err
	}

	sample, err := w.loader.Load(strings.TrimSpace(path), clinical.BodyRegion(preset))
	if err != nil {
		fmt.Fprintln(w.out, errorStyle.Render("Could not use that file: "+err.Error()))
		return nil
	}
	if err := w.ctrl.AddMedia(sample); err != nil {
		return ignoreGate(err)
	}
	fmt.Fprintln(w.out, statusStyle.Render("✓ "+sample.Describe()))
	return nil
}

// showReport prints the report once per session and generation, saving the
// PDF too when -pdf was given.
func (w *wizard) showReport(s intake.Session) error {
	key := fmt.Sprintf("%s/%d", s.ID, s.Generation)
	if key == w.shown {
		return nil
	}
	if err := w.output.deliver(w.out, s); err != nil {
		return err
	}
	w.shown = key
	return nil
}

func (w *wizard) reportStep(s intake.Session) error {
	if err := w.showReport(s); err != nil {
		return err
	}

	choice := choiceReset
	err := huh.NewForm(huh.NewGroup(
		huh.NewSelect[string]().
			Title("Consultation complete").
			Options(
				huh.NewOption("New consultation", choiceReset),
				huh.NewOption("Save PDF", choicePDF),
				huh.NewOption("Quit", choiceQuit),
			).
			Value(&choice),
	)).RunWithContext(w.ctx)
	if err != nil {
		return err
	}

	if choice != choicePDF {
		return w.act(choice)
	}

	path := defaultPDFPath(w.output.pdfPath, s)
	err = huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title("Save report as").
			Value(&path).
			Validate(func(p string) error {
				if strings.TrimSpace(p) == "" {
					return errors.New("enter a file name")
				}
				return nil
			}),
	)).RunWithContext(w.ctx)
	if err != nil {
		return err
	}
	return w.exportPDF(strings.TrimSpace(path))
}

// exportPDF saves the current report. Failures are shown, not fatal.
func (w *wizard) exportPDF(path string) error {
	s := w.ctrl.Snapshot()
	if err := savePDF(path, s, reportMeta(s)); err != nil {
		fmt.Fprintln(w.out, errorStyle.Render("Could not save the PDF: "+err.Error()))
		return nil
	}
	fmt.Fprintln(w.out, statusStyle.Render("📄 Saved "+path))
	return nil
}

func defaultPDFPath(flagPath string, s intake.Session) string {
	if flagPath != "" {
		return flagPath
	}
	id := s.ID
	if len(id) > 8 {
		id = id[:8]
	}
	return "hakim-report-" + id + ".pdf"
}

// ignoreGate swallows inert precondition failures so the wizard simply
// redraws the current step.
func ignoreGate(err error) error {
	if intake.IsGateError(err) {
		return nil
	}
	return err
}
