package intake

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hakim/pkg/clinical"
)

func sampleQuestions() []clinical.Question {
	return []clinical.Question{
		{ID: "fever", Prompt: "Do you have a fever?", Kind: clinical.AnswerBoolean},
		{ID: "pain", Prompt: "Rate your pain", Kind: clinical.AnswerScale},
		{ID: "travel", Prompt: "Recent travel?", Kind: clinical.AnswerBoolean},
		{ID: "onset", Prompt: "Describe the onset", Kind: clinical.AnswerText},
	}
}

func sampleImage() clinical.MediaSample {
	return clinical.MediaSample{
		ID:       "img-1",
		Kind:     clinical.MediaImage,
		Data:     []byte{0xff, 0xd8, 0xff},
		MIMEType: "image/jpeg",
		Preset:   clinical.RegionThroat,
	}
}

func sampleDiagnosis() *clinical.Diagnosis {
	return &clinical.Diagnosis{
		ConditionName:     "Viral pharyngitis",
		ConfidenceScore:   0.72,
		TriageLevel:       clinical.TriageRoutine,
		ClinicalReasoning: []string{"No exudate"},
		SuggestedActions:  []string{"Rest"},
		Disclaimer:        clinical.StandardDisclaimer,
	}
}

func mustApply(t *testing.T, s Session, ev Event) Session {
	t.Helper()
	next, err := Apply(s, ev)
	require.NoError(t, err, ev.Name())
	return next
}

func atQuestionnaire(t *testing.T) Session {
	t.Helper()
	s := mustApply(t, NewSession(), SubmitComplaint{Text: "sore throat"})
	return mustApply(t, s, QuestionnaireReady{Token: *s.Pending, Questions: sampleQuestions()})
}

func atCapture(t *testing.T) Session {
	t.Helper()
	return mustApply(t, atQuestionnaire(t), ProceedToCapture{})
}

func atAnalyzing(t *testing.T) Session {
	t.Helper()
	s := mustApply(t, atCapture(t), AddMedia{Sample: sampleImage()})
	return mustApply(t, s, ExecuteAnalysis{})
}

func TestNewSession(t *testing.T) {
	s := NewSession()
	assert.Equal(t, StageSymptomEntry, s.Stage)
	assert.NotEmpty(t, s.ID)
	assert.Empty(t, s.ChiefComplaint)
	assert.Empty(t, s.Questions)
	assert.Empty(t, s.Answers)
	assert.Nil(t, s.Report)
	assert.Nil(t, s.Pending)
	assert.False(t, s.CreatedAt.IsZero())
}

func TestSubmitComplaintIssuesToken(t *testing.T) {
	s := mustApply(t, NewSession(), SubmitComplaint{Text: "  sore throat  "})

	assert.Equal(t, StageSymptomEntry, s.Stage, "stage advances only when questions arrive")
	assert.Equal(t, "sore throat", s.ChiefComplaint)
	require.NotNil(t, s.Pending)
	assert.Equal(t, RequestToken{Generation: 1, Op: OpQuestionnaire}, *s.Pending)
	assert.True(t, s.Busy())

	_, err := Apply(s, SubmitComplaint{Text: "again"})
	assert.ErrorIs(t, err, ErrBusy)
}

func TestSubmitEmptyComplaintIsInert(t *testing.T) {
	s := NewSession()
	next, err := Apply(s, SubmitComplaint{Text: " \t\n"})

	assert.ErrorIs(t, err, ErrGateClosed)
	assert.True(t, IsGateError(err))
	assert.Equal(t, s, next)
	assert.Nil(t, next.LastError)
	assert.Nil(t, next.Pending)
}

func TestQuestionnaireReady(t *testing.T) {
	s := atQuestionnaire(t)

	assert.Equal(t, StageQuestionnaire, s.Stage)
	assert.Equal(t, sampleQuestions(), s.Questions)
	assert.Nil(t, s.Pending)
	assert.Nil(t, s.LastError)
	assert.Equal(t, clinical.Answers{"onset": ""}, s.Answers, "only text answers start present")
}

func TestQuestionnaireDuplicateIDsMerge(t *testing.T) {
	s := mustApply(t, NewSession(), SubmitComplaint{Text: "rash"})
	s = mustApply(t, s, QuestionnaireReady{Token: *s.Pending, Questions: []clinical.Question{
		{ID: "a", Prompt: "first", Kind: clinical.AnswerBoolean},
		{ID: "b", Prompt: "second", Kind: clinical.AnswerText},
		{ID: "a", Prompt: "replaced", Kind: clinical.AnswerScale},
	}})

	require.Len(t, s.Questions, 2)
	assert.Equal(t, clinical.Question{ID: "a", Prompt: "replaced", Kind: clinical.AnswerScale}, s.Questions[0])
	assert.Equal(t, "b", s.Questions[1].ID)
}

func TestQuestionnaireEmptyStaysAtSymptomEntry(t *testing.T) {
	s := mustApply(t, NewSession(), SubmitComplaint{Text: "rash"})
	s = mustApply(t, s, QuestionnaireReady{Token: *s.Pending})

	assert.Equal(t, StageSymptomEntry, s.Stage)
	assert.Error(t, s.LastError)
	assert.Nil(t, s.Pending)
}

func TestQuestionnaireFailed(t *testing.T) {
	s := mustApply(t, NewSession(), SubmitComplaint{Text: "sore throat"})
	failure := errors.New("Clinical gateway error.")
	s = mustApply(t, s, QuestionnaireFailed{Token: *s.Pending, Err: failure})

	assert.Equal(t, StageSymptomEntry, s.Stage)
	assert.Equal(t, failure, s.LastError)
	assert.Empty(t, s.Questions)
	assert.Nil(t, s.Pending)
	assert.Equal(t, "sore throat", s.ChiefComplaint, "complaint kept for retry")

	s = mustApply(t, s, SubmitComplaint{Text: "sore throat"})
	assert.Nil(t, s.LastError, "a successful transition clears the error")
}

func TestStaleCompletionsAreDropped(t *testing.T) {
	s := mustApply(t, NewSession(), SubmitComplaint{Text: "cough"})
	tok := *s.Pending

	tests := []struct {
		name string
		ev   Event
	}{
		{"old generation", QuestionnaireReady{Token: RequestToken{Generation: tok.Generation - 1, Op: OpQuestionnaire}}},
		{"wrong operation", AnalysisReady{Token: RequestToken{Generation: tok.Generation, Op: OpAnalysis}, Diagnosis: sampleDiagnosis()}},
		{"mismatched op", AnalysisFailed{Token: tok, Err: errors.New("x")}},
		{"future generation", QuestionnaireFailed{Token: RequestToken{Generation: tok.Generation + 1, Op: OpQuestionnaire}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, err := Apply(s, tt.ev)
			assert.ErrorIs(t, err, ErrStaleResponse)
			assert.Equal(t, s, next)
		})
	}

	t.Run("after reset", func(t *testing.T) {
		reset := mustApply(t, s, Reset{})
		next, err := Apply(reset, QuestionnaireReady{Token: tok, Questions: sampleQuestions()})
		assert.ErrorIs(t, err, ErrStaleResponse)
		assert.Equal(t, reset, next)
		assert.Empty(t, next.Questions)
	})
}

func TestAnswers(t *testing.T) {
	s := atQuestionnaire(t)

	s = mustApply(t, s, AnswerQuestion{ID: "fever", Value: "y"})
	s = mustApply(t, s, AnswerQuestion{ID: "pain", Value: " 7 "})
	s = mustApply(t, s, AnswerQuestion{ID: "onset", Value: "Two days ago"})
	assert.Equal(t, clinical.Answers{"fever": "Yes", "pain": "7", "onset": "Two days ago"}, s.Answers)
	assert.Equal(t, 3, s.AnsweredCount())

	_, err := Apply(s, AnswerQuestion{ID: "missing", Value: "Yes"})
	assert.ErrorIs(t, err, ErrUnknownQuestion)

	_, err = Apply(s, AnswerQuestion{ID: "pain", Value: "11"})
	assert.ErrorIs(t, err, ErrInvalidAnswer)

	_, err = Apply(s, AnswerQuestion{ID: "fever", Value: "maybe"})
	assert.ErrorIs(t, err, ErrInvalidAnswer)

	cleared := mustApply(t, s, ClearAnswer{ID: "fever"})
	_, present := cleared.Answers["fever"]
	assert.False(t, present)
	assert.Equal(t, "Yes", s.Answers["fever"], "Apply never mutates its input")

	_, err = Apply(s, ClearAnswer{ID: "missing"})
	assert.ErrorIs(t, err, ErrUnknownQuestion)
}

func TestProceedWithoutAnswers(t *testing.T) {
	s := mustApply(t, atQuestionnaire(t), ProceedToCapture{})
	assert.Equal(t, StageMediaCapture, s.Stage)
	assert.Equal(t, clinical.Answers{"onset": ""}, s.Answers)
}

func TestExecuteAnalysisRequiresMedia(t *testing.T) {
	s := atCapture(t)

	next, err := Apply(s, ExecuteAnalysis{})
	assert.ErrorIs(t, err, ErrGateClosed)
	assert.Equal(t, s, next)
	assert.Nil(t, next.LastError)

	_, err = Apply(s, AddMedia{Sample: clinical.MediaSample{MIMEType: "image/png"}})
	assert.ErrorIs(t, err, ErrInvalidMedia)
}

func TestAddMediaAppendsInOrder(t *testing.T) {
	s := atCapture(t)
	s = mustApply(t, s, AddMedia{Sample: sampleImage()})
	s = mustApply(t, s, AddMedia{Sample: clinical.MediaSample{ID: "aud", Data: []byte("ogg"), MIMEType: "audio/ogg"}})

	require.Len(t, s.MediaSamples, 2)
	assert.Equal(t, "img-1", s.MediaSamples[0].ID)
	assert.Equal(t, clinical.MediaAudio, s.MediaSamples[1].Kind)
	assert.Equal(t, clinical.RegionGeneral, s.MediaSamples[1].Preset)
}

func TestAnalysisReady(t *testing.T) {
	s := atAnalyzing(t)
	assert.Equal(t, StageAnalyzing, s.Stage)
	require.NotNil(t, s.Pending)
	assert.Equal(t, OpAnalysis, s.Pending.Op)

	s = mustApply(t, s, AnalysisReady{Token: *s.Pending, Diagnosis: sampleDiagnosis()})
	assert.Equal(t, StageReport, s.Stage)
	assert.Equal(t, sampleDiagnosis(), s.Report)
	assert.Nil(t, s.Pending)
	assert.False(t, s.Bypassed)
}

func TestAnalysisFailedRevertsToCapture(t *testing.T) {
	s := atAnalyzing(t)
	s = mustApply(t, s, AnalysisFailed{Token: *s.Pending, Err: errors.New("MD Analysis failed.")})

	assert.Equal(t, StageMediaCapture, s.Stage)
	assert.EqualError(t, s.LastError, "MD Analysis failed.")
	assert.Nil(t, s.Report)
	assert.Len(t, s.MediaSamples, 1, "evidence is kept for retry")

	s = mustApply(t, s, ExecuteAnalysis{})
	assert.Equal(t, StageAnalyzing, s.Stage)
	assert.Nil(t, s.LastError)
}

func TestEmergencyBypassFromAnyStage(t *testing.T) {
	stages := map[string]Session{
		"symptom entry":   NewSession(),
		"awaiting":        mustApply(t, NewSession(), SubmitComplaint{Text: "chest pain"}),
		"questionnaire":   atQuestionnaire(t),
		"media capture":   atCapture(t),
		"analyzing":       atAnalyzing(t),
		"report":          mustApply(t, NewSession(), EmergencyBypass{}),
	}

	for name, s := range stages {
		t.Run(name, func(t *testing.T) {
			next, err := Apply(s, EmergencyBypass{})
			require.NoError(t, err)

			assert.Equal(t, StageReport, next.Stage)
			require.NotNil(t, next.Report)
			assert.Equal(t, clinical.TriageEmergency, next.Report.TriageLevel)
			assert.InDelta(t, 1.0, next.Report.ConfidenceScore, 0)
			assert.True(t, next.Bypassed)
			assert.Nil(t, next.Pending)
			assert.Greater(t, next.Generation, s.Generation)
		})
	}
}

func TestResetFromReport(t *testing.T) {
	s := atAnalyzing(t)
	s = mustApply(t, s, AnalysisReady{Token: *s.Pending, Diagnosis: sampleDiagnosis()})
	oldID := s.ID

	reset := mustApply(t, s, Reset{})

	assert.Equal(t, StageSymptomEntry, reset.Stage)
	assert.Empty(t, reset.ChiefComplaint)
	assert.Empty(t, reset.MediaSamples)
	assert.Empty(t, reset.Questions)
	assert.Empty(t, reset.Answers)
	assert.Nil(t, reset.Report)
	assert.Nil(t, reset.LastError)
	assert.Nil(t, reset.Pending)
	assert.False(t, reset.Bypassed)
	assert.NotEqual(t, oldID, reset.ID)
	assert.Equal(t, s.Generation+1, reset.Generation)
}

func TestEventsOutOfStage(t *testing.T) {
	tests := []struct {
		name  string
		state Session
		ev    Event
	}{
		{"answer before questionnaire", NewSession(), AnswerQuestion{ID: "fever", Value: "Yes"}},
		{"proceed from symptom entry", NewSession(), ProceedToCapture{}},
		{"media before capture", atQuestionnaire(t), AddMedia{Sample: sampleImage()}},
		{"analyze from questionnaire", atQuestionnaire(t), ExecuteAnalysis{}},
		{"submit from capture", atCapture(t), SubmitComplaint{Text: "again"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, err := Apply(tt.state, tt.ev)
			assert.ErrorIs(t, err, ErrInvalidTransition)
			assert.True(t, IsGateError(err))
			assert.Equal(t, tt.state, next)
		})
	}
}

func TestReportInvariant(t *testing.T) {
	s := NewSession()
	steps := []func(Session) Event{
		func(Session) Event { return SubmitComplaint{Text: "fever"} },
		func(s Session) Event { return QuestionnaireReady{Token: *s.Pending, Questions: sampleQuestions()} },
		func(Session) Event { return AnswerQuestion{ID: "fever", Value: "yes"} },
		func(Session) Event { return ProceedToCapture{} },
		func(Session) Event { return AddMedia{Sample: sampleImage()} },
		func(Session) Event { return ExecuteAnalysis{} },
		func(s Session) Event { return AnalysisReady{Token: *s.Pending, Diagnosis: sampleDiagnosis()} },
		func(Session) Event { return Reset{} },
	}
	for _, step := range steps {
		s = mustApply(t, s, step(s))
		assert.Equal(t, s.Report != nil, s.Stage == StageReport, "report present iff stage is report (%s)", s.Stage)
		for id := range s.Answers {
			_, ok := s.Question(id)
			assert.True(t, ok, "answer %q references a known question", id)
		}
	}
}

func TestTransitionTable(t *testing.T) {
	assert.True(t, ValidTransitions.IsValidTransition(StageAnalyzing, StageMediaCapture))
	assert.True(t, ValidTransitions.IsValidTransition(StageReport, StageReport))
	assert.False(t, ValidTransitions.IsValidTransition(StageSymptomEntry, StageAnalyzing))
	assert.False(t, ValidTransitions.IsValidTransition(StageReport, StageSymptomEntry), "only reset leaves the report")
}

func TestSummary(t *testing.T) {
	assert.Equal(t, "Context: EMPTY | Samples: 0", NewSession().Summary().String())

	s := mustApply(t, atQuestionnaire(t), AnswerQuestion{ID: "fever", Value: "no"})
	assert.Equal(t, "Context: ACTIVE | Samples: 0 | Answers: 1/4", s.Summary().String())

	busy := mustApply(t, NewSession(), SubmitComplaint{Text: "x"})
	assert.Contains(t, busy.Summary().String(), "working...")
}
