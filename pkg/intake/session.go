// Package intake implements the consultation state machine: a Session value,
// a pure transition function over Events, and a Controller that runs model
// requests for the session and drops responses that arrive too late.
package intake

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"hakim/pkg/clinical"
)

// Stage is the step of the consultation the patient is on.
type Stage string

const (
	StageSymptomEntry  Stage = "SYMPTOM_ENTRY"
	StageQuestionnaire Stage = "QUESTIONNAIRE"
	StageMediaCapture  Stage = "MEDIA_CAPTURE"
	StageAnalyzing     Stage = "ANALYZING"
	StageReport        Stage = "REPORT"
)

func (s Stage) String() string {
	return string(s)
}

// Operation names the model request a token was issued for.
type Operation string

const (
	OpQuestionnaire Operation = "questionnaire"
	OpAnalysis      Operation = "analysis"
)

// RequestToken tags one outstanding model request. A completion is accepted
// only if its token equals the session's pending token.
type RequestToken struct {
	Generation uint64
	Op         Operation
}

func (t RequestToken) String() string {
	return fmt.Sprintf("%s#%d", t.Op, t.Generation)
}

// Session is the complete state of one consultation. Values returned by
// Apply and Controller.Snapshot are independent copies; media payloads are
// shared because samples are never mutated after capture.
type Session struct {
	ID             string
	Stage          Stage
	ChiefComplaint string
	MediaSamples   []clinical.MediaSample
	Questions      []clinical.Question
	Answers        clinical.Answers
	Report         *clinical.Diagnosis
	LastError      error

	Generation uint64
	Pending    *RequestToken
	Bypassed   bool
	CreatedAt  time.Time
}

// NewSession returns a session at symptom entry.
func NewSession() Session {
	return newSession(0)
}

func newSession(generation uint64) Session {
	return Session{
		ID:         uuid.NewString(),
		Stage:      StageSymptomEntry,
		Answers:    clinical.Answers{},
		Generation: generation,
		CreatedAt:  time.Now().UTC(),
	}
}

// Clone returns a deep copy.
func (s Session) Clone() Session {
	out := s
	out.MediaSamples = append([]clinical.MediaSample(nil), s.MediaSamples...)
	out.Questions = append([]clinical.Question(nil), s.Questions...)
	out.Answers = s.Answers.Clone()
	if out.Answers == nil {
		out.Answers = clinical.Answers{}
	}
	out.Report = s.Report.Clone()
	if s.Pending != nil {
		tok := *s.Pending
		out.Pending = &tok
	}
	return out
}

// Busy reports whether a model request is outstanding.
func (s Session) Busy() bool {
	return s.Pending != nil
}

// Question returns the question with id.
func (s Session) Question(id string) (clinical.Question, bool) {
	for _, q := range s.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return clinical.Question{}, false
}

// AnsweredCount counts questions with a non-empty answer.
func (s Session) AnsweredCount() int {
	n := 0
	for _, q := range s.Questions {
		if v, ok := s.Answers[q.ID]; ok && v != "" {
			n++
		}
	}
	return n
}

// Summary is the status line shown under every step.
type Summary struct {
	Stage         Stage
	ContextActive bool
	Samples       int
	Answered      int
	Questions     int
	Busy          bool
}

// Summary reports the session's progress.
func (s Session) Summary() Summary {
	return Summary{
		Stage:         s.Stage,
		ContextActive: s.ChiefComplaint != "",
		Samples:       len(s.MediaSamples),
		Answered:      s.AnsweredCount(),
		Questions:     len(s.Questions),
		Busy:          s.Busy(),
	}
}

func (s Summary) String() string {
	ctx := "EMPTY"
	if s.ContextActive {
		ctx = "ACTIVE"
	}
	line := fmt.Sprintf("Context: %s | Samples: %d", ctx, s.Samples)
	if s.Questions > 0 {
		line += fmt.Sprintf(" | Answers: %d/%d", s.Answered, s.Questions)
	}
	if s.Busy {
		line += " | working..."
	}
	return line
}
