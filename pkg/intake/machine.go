package intake

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"hakim/pkg/clinical"
)

// Gate errors leave the session untouched and never set LastError.
var (
	// ErrGateClosed indicates a precondition of the action is not met.
	ErrGateClosed = errors.New("action not available yet")

	// ErrBusy indicates a model request is already outstanding.
	ErrBusy = errors.New("a request is already in flight")

	// ErrInvalidTransition indicates the event does not apply to the current stage.
	ErrInvalidTransition = errors.New("invalid stage transition")

	// ErrUnknownQuestion indicates an answer for an id not in the questionnaire.
	ErrUnknownQuestion = errors.New("unknown question")

	// ErrInvalidAnswer indicates an answer of the wrong shape for its question.
	ErrInvalidAnswer = errors.New("invalid answer")

	// ErrInvalidMedia indicates a sample without payload or media type.
	ErrInvalidMedia = errors.New("invalid media sample")

	// ErrStaleResponse indicates a completion for a request that is no
	// longer pending.
	ErrStaleResponse = errors.New("stale response")
)

// errNoQuestions is recorded when a questionnaire completes empty.
var errNoQuestions = errors.New("questionnaire contained no questions")

// TransitionTable lists the stages reachable from each stage. Bypass and
// reset are allowed from everywhere and are not listed.
type TransitionTable map[Stage][]Stage

// ValidTransitions is the consultation flow.
//
//nolint:gochecknoglobals
var ValidTransitions = TransitionTable{
	StageSymptomEntry:  {StageQuestionnaire},
	StageQuestionnaire: {StageMediaCapture},
	StageMediaCapture:  {StageAnalyzing},
	StageAnalyzing:     {StageReport, StageMediaCapture},
	StageReport:        {},
}

// IsValidTransition reports whether from → to is part of the flow. Staying
// in the same stage is always allowed.
func (t TransitionTable) IsValidTransition(from, to Stage) bool {
	if from == to {
		return true
	}
	return slices.Contains(t[from], to)
}

// Apply returns the session that results from ev. It never mutates s. On
// error the returned session is s itself.
func Apply(s Session, ev Event) (Session, error) {
	next, err := apply(s, ev)
	if err != nil {
		return s, err
	}
	if !isAlwaysAllowed(ev) && !ValidTransitions.IsValidTransition(s.Stage, next.Stage) {
		return s, fmt.Errorf("%w: %s → %s on %s", ErrInvalidTransition, s.Stage, next.Stage, ev.Name())
	}
	return next, nil
}

func isAlwaysAllowed(ev Event) bool {
	switch ev.(type) {
	case EmergencyBypass, Reset:
		return true
	}
	return false
}

//nolint:cyclop,gocyclo // one case per event
func apply(s Session, ev Event) (Session, error) {
	switch e := ev.(type) {
	case SubmitComplaint:
		return submitComplaint(s, e)

	case QuestionnaireReady:
		if err := checkToken(s, e, OpQuestionnaire); err != nil {
			return s, err
		}
		next := s.Clone()
		next.Pending = nil
		questions := clinical.MergeQuestions(e.Questions)
		if len(questions) == 0 {
			next.Questions = nil
			next.LastError = errNoQuestions
			return next, nil
		}
		next.Questions = questions
		next.Answers = clinical.Answers{}
		for _, q := range questions {
			if q.Kind == clinical.AnswerText {
				next.Answers[q.ID] = ""
			}
		}
		next.Stage = StageQuestionnaire
		next.LastError = nil
		return next, nil

	case QuestionnaireFailed:
		if err := checkToken(s, e, OpQuestionnaire); err != nil {
			return s, err
		}
		next := s.Clone()
		next.Pending = nil
		next.Questions = nil
		next.LastError = failure(e.Err)
		return next, nil

	case AnswerQuestion:
		if s.Stage != StageQuestionnaire {
			return s, notIn(s, ev)
		}
		q, ok := s.Question(e.ID)
		if !ok {
			return s, fmt.Errorf("%w: %q", ErrUnknownQuestion, e.ID)
		}
		value, err := clinical.NormalizeAnswer(q.Kind, e.Value)
		if err != nil {
			return s, fmt.Errorf("%w: %s: %w", ErrInvalidAnswer, e.ID, err)
		}
		next := s.Clone()
		next.Answers[e.ID] = value
		next.LastError = nil
		return next, nil

	case ClearAnswer:
		if s.Stage != StageQuestionnaire {
			return s, notIn(s, ev)
		}
		if _, ok := s.Question(e.ID); !ok {
			return s, fmt.Errorf("%w: %q", ErrUnknownQuestion, e.ID)
		}
		next := s.Clone()
		delete(next.Answers, e.ID)
		next.LastError = nil
		return next, nil

	case ProceedToCapture:
		if s.Stage != StageQuestionnaire {
			return s, notIn(s, ev)
		}
		next := s.Clone()
		next.Stage = StageMediaCapture
		next.LastError = nil
		return next, nil

	case AddMedia:
		if s.Stage != StageMediaCapture {
			return s, notIn(s, ev)
		}
		if len(e.Sample.Data) == 0 || e.Sample.MIMEType == "" {
			return s, ErrInvalidMedia
		}
		next := s.Clone()
		sample := e.Sample
		if sample.Preset == "" {
			sample.Preset = clinical.RegionGeneral
		}
		if sample.Kind == "" {
			sample.Kind = clinical.KindForMIME(sample.MIMEType)
		}
		next.MediaSamples = append(next.MediaSamples, sample)
		next.LastError = nil
		return next, nil

	case ExecuteAnalysis:
		if s.Stage != StageMediaCapture {
			return s, notIn(s, ev)
		}
		if s.Pending != nil {
			return s, ErrBusy
		}
		if len(s.MediaSamples) == 0 {
			return s, fmt.Errorf("%w: no media captured", ErrGateClosed)
		}
		next := s.Clone()
		next.issue(OpAnalysis)
		next.Stage = StageAnalyzing
		next.LastError = nil
		return next, nil

	case AnalysisReady:
		if err := checkToken(s, e, OpAnalysis); err != nil {
			return s, err
		}
		next := s.Clone()
		next.Pending = nil
		if e.Diagnosis == nil {
			next.Stage = StageMediaCapture
			next.LastError = failure(errors.New("analysis returned no diagnosis"))
			return next, nil
		}
		next.Report = e.Diagnosis.Clone()
		next.Stage = StageReport
		next.LastError = nil
		return next, nil

	case AnalysisFailed:
		if err := checkToken(s, e, OpAnalysis); err != nil {
			return s, err
		}
		next := s.Clone()
		next.Pending = nil
		next.Stage = StageMediaCapture
		next.LastError = failure(e.Err)
		return next, nil

	case EmergencyBypass:
		next := s.Clone()
		next.Generation++
		next.Pending = nil
		next.Report = clinical.EmergencyDiagnosis()
		next.Bypassed = true
		next.Stage = StageReport
		next.LastError = nil
		return next, nil

	case Reset:
		return newSession(s.Generation + 1), nil

	default:
		return s, fmt.Errorf("%w: unsupported event %T", ErrInvalidTransition, ev)
	}
}

func submitComplaint(s Session, e SubmitComplaint) (Session, error) {
	if s.Stage != StageSymptomEntry {
		return s, notIn(s, e)
	}
	if s.Pending != nil {
		return s, ErrBusy
	}
	text := strings.TrimSpace(e.Text)
	if text == "" {
		return s, fmt.Errorf("%w: chief complaint is empty", ErrGateClosed)
	}
	next := s.Clone()
	next.ChiefComplaint = text
	next.issue(OpQuestionnaire)
	next.LastError = nil
	return next, nil
}

// issue bumps the generation and marks a request for op as pending.
func (s *Session) issue(op Operation) {
	s.Generation++
	s.Pending = &RequestToken{Generation: s.Generation, Op: op}
}

func checkToken(s Session, c completion, op Operation) error {
	tok := c.token()
	if s.Pending == nil || *s.Pending != tok || tok.Op != op {
		return fmt.Errorf("%w: %s", ErrStaleResponse, tok)
	}
	return nil
}

func notIn(s Session, ev Event) error {
	return fmt.Errorf("%w: %s not allowed in %s", ErrInvalidTransition, ev.Name(), s.Stage)
}

func failure(err error) error {
	if err == nil {
		return errors.New("request failed")
	}
	return err
}

// IsGateError reports whether err is an inert precondition failure that
// should not be shown as a request error.
func IsGateError(err error) bool {
	return errors.Is(err, ErrGateClosed) || errors.Is(err, ErrBusy) || errors.Is(err, ErrInvalidTransition)
}
