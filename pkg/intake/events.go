package intake

import "hakim/pkg/clinical"

// Event is an input to Apply.
type Event interface {
	Name() string
}

// SubmitComplaint stores the chief complaint and requests the questionnaire.
type SubmitComplaint struct {
	Text string
}

// QuestionnaireReady completes a questionnaire request.
type QuestionnaireReady struct {
	Token     RequestToken
	Questions []clinical.Question
}

// QuestionnaireFailed completes a questionnaire request with an error.
type QuestionnaireFailed struct {
	Token RequestToken
	Err   error
}

// AnswerQuestion records an answer.
type AnswerQuestion struct {
	ID    string
	Value string
}

// ClearAnswer removes an answer.
type ClearAnswer struct {
	ID string
}

// ProceedToCapture leaves the questionnaire. Answers are advisory.
type ProceedToCapture struct{}

// AddMedia appends a captured sample.
type AddMedia struct {
	Sample clinical.MediaSample
}

// ExecuteAnalysis requests the diagnosis.
type ExecuteAnalysis struct{}

// AnalysisReady completes an analysis request.
type AnalysisReady struct {
	Token     RequestToken
	Diagnosis *clinical.Diagnosis
}

// AnalysisFailed completes an analysis request with an error.
type AnalysisFailed struct {
	Token RequestToken
	Err   error
}

// EmergencyBypass jumps to the local emergency report.
type EmergencyBypass struct{}

// Reset starts a new consultation.
type Reset struct{}

func (SubmitComplaint) Name() string     { return "SubmitComplaint" }
func (QuestionnaireReady) Name() string  { return "QuestionnaireReady" }
func (QuestionnaireFailed) Name() string { return "QuestionnaireFailed" }
func (AnswerQuestion) Name() string      { return "AnswerQuestion" }
func (ClearAnswer) Name() string         { return "ClearAnswer" }
func (ProceedToCapture) Name() string    { return "ProceedToCapture" }
func (AddMedia) Name() string            { return "AddMedia" }
func (ExecuteAnalysis) Name() string     { return "ExecuteAnalysis" }
func (AnalysisReady) Name() string       { return "AnalysisReady" }
func (AnalysisFailed) Name() string      { return "AnalysisFailed" }
func (EmergencyBypass) Name() string     { return "EmergencyBypass" }
func (Reset) Name() string               { return "Reset" }

// completion is implemented by events that carry a request token.
type completion interface {
	token() RequestToken
}

func (e QuestionnaireReady) token() RequestToken  { return e.Token }
func (e QuestionnaireFailed) token() RequestToken { return e.Token }
func (e AnalysisReady) token() RequestToken       { return e.Token }
func (e AnalysisFailed) token() RequestToken      { return e.Token }
