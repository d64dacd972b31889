package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"hakim/pkg/clinical"
	"hakim/pkg/gateway"
	"hakim/pkg/intake"
	"hakim/pkg/logx"
	"hakim/pkg/media"
)

// CaseFile is a scripted consultation.
//
//	complaint: sore throat and fever for three days
//	answers: ["yes", "7", "", "started after a cold"]
//	media:
//	  - path: throat.jpg
//	    preset: throat
//	  - inline:
//	      name: cough.ogg
//	      mime_type: audio/ogg
//	      data: T2dnUwACAAAA...
type CaseFile struct {
	Complaint string      `yaml:"complaint"`
	Answers   []string    `yaml:"answers,omitempty"` // by question position; "" leaves a question unanswered
	Media     []CaseMedia `yaml:"media,omitempty"`
	Emergency bool        `yaml:"emergency,omitempty"`
}

// CaseMedia is one evidence file, or inline evidence in transport form.
// Relative paths resolve against the case file's directory.
type CaseMedia struct {
	Path   string         `yaml:"path,omitempty"`
	Preset string         `yaml:"preset,omitempty"`
	Inline *media.Encoded `yaml:"inline,omitempty"`
}

// LoadCaseFile reads and checks a case file.
func LoadCaseFile(path string) (*CaseFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read case file: %w", err)
	}

	var cf CaseFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("failed to parse case file %s: %w", path, err)
	}

	if !cf.Emergency && strings.TrimSpace(cf.Complaint) == "" {
		return nil, fmt.Errorf("case file %s: complaint is required", path)
	}

	base := filepath.Dir(path)
	for i := range cf.Media {
		m := &cf.Media[i]
		switch {
		case m.Path == "" && m.Inline == nil:
			return nil, fmt.Errorf("case file %s: media %d needs a path or inline data", path, i+1)
		case m.Path != "" && m.Inline != nil:
			return nil, fmt.Errorf("case file %s: media %d has both a path and inline data", path, i+1)
		}
		if _, err := clinical.ParseBodyRegion(m.Preset); err != nil {
			return nil, fmt.Errorf("case file %s: media %d: %w", path, i+1, err)
		}
		if m.Path != "" && !filepath.IsAbs(m.Path) {
			m.Path = filepath.Join(base, m.Path)
		}
	}
	return &cf, nil
}

// runCase drives the controller through the scripted consultation and
// returns the final session.
func runCase(ctrl *intake.Controller, cf *CaseFile, loader *media.Loader) (intake.Session, error) {
	logger := logx.NewLogger("case")

	if cf.Emergency {
		logger.Warn("🚨 Emergency flag set, bypassing analysis")
		ctrl.EmergencyBypass()
		return ctrl.Snapshot(), nil
	}

	if err := ctrl.SubmitComplaint(cf.Complaint); err != nil {
		return intake.Session{}, err
	}
	ctrl.Wait()

	s := ctrl.Snapshot()
	if s.Stage != intake.StageQuestionnaire {
		return s, requestError(s)
	}
	logger.Info("Received %d questions", len(s.Questions))

	if len(cf.Answers) > len(s.Questions) {
		logger.Warn("Case file has %d answers for %d questions; extra answers ignored", len(cf.Answers), len(s.Questions))
	}
	for i, q := range s.Questions {
		if i >= len(cf.Answers) || cf.Answers[i] == "" {
			continue
		}
		if err := ctrl.Answer(q.ID, cf.Answers[i]); err != nil {
			return ctrl.Snapshot(), fmt.Errorf("answer %d (%q): %w", i+1, q.Prompt, err)
		}
	}

	if err := ctrl.ProceedToCapture(); err != nil {
		return ctrl.Snapshot(), err
	}

	for _, m := range cf.Media {
		sample, err := loadCaseMedia(loader, m)
		if err != nil {
			return ctrl.Snapshot(), err
		}
		if err := ctrl.AddMedia(sample); err != nil {
			return ctrl.Snapshot(), err
		}
	}

	if err := ctrl.ExecuteAnalysis(); err != nil {
		if errors.Is(err, intake.ErrGateClosed) {
			return ctrl.Snapshot(), errors.New("analysis needs at least one media file in the case")
		}
		return ctrl.Snapshot(), err
	}
	ctrl.Wait()

	s = ctrl.Snapshot()
	if s.Stage != intake.StageReport {
		return s, requestError(s)
	}
	return s, nil
}

func loadCaseMedia(loader *media.Loader, m CaseMedia) (clinical.MediaSample, error) {
	preset, _ := clinical.ParseBodyRegion(m.Preset)
	if m.Inline == nil {
		return loader.Load(m.Path, preset)
	}
	encoded := *m.Inline
	if encoded.Preset == "" {
		encoded.Preset = preset
	}
	return loader.Import(encoded)
}

// requestError turns the session's last error into the patient-facing message.
func requestError(s intake.Session) error {
	if s.LastError == nil {
		return fmt.Errorf("consultation stopped at %s", s.Stage)
	}
	return fmt.Errorf("%s (%w)", gateway.UserMessage(s.LastError), s.LastError)
}
