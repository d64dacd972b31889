package intake

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hakim/pkg/clinical"
)

// fakeGateway answers from fixed values. When hold is non-nil every call
// waits for it to close; honorCancel decides whether ctx cancellation ends
// the wait early.
type fakeGateway struct {
	mu             sync.Mutex
	questions      []clinical.Question
	questionsErr   error
	diagnosis      *clinical.Diagnosis
	analysisErr    error
	hold           chan struct{}
	honorCancel    bool
	questionCalls  int
	analysisCalls  int
	lastComplaint  string
	lastSamples    []clinical.MediaSample
	lastAnswers    clinical.Answers
	cancelObserved bool
}

func (g *fakeGateway) wait(ctx context.Context) error {
	if g.hold == nil {
		return nil
	}
	if g.honorCancel {
		select {
		case <-g.hold:
			return nil
		case <-ctx.Done():
			g.mu.Lock()
			g.cancelObserved = true
			g.mu.Unlock()
			return ctx.Err()
		}
	}
	<-g.hold
	return nil
}

func (g *fakeGateway) GenerateQuestionnaire(ctx context.Context, complaint string) ([]clinical.Question, error) {
	g.mu.Lock()
	g.questionCalls++
	g.lastComplaint = complaint
	g.mu.Unlock()

	if err := g.wait(ctx); err != nil {
		return nil, err
	}
	if g.questionsErr != nil {
		return nil, g.questionsErr
	}
	return g.questions, nil
}

func (g *fakeGateway) AnalyzeMedicalCase(ctx context.Context, samples []clinical.MediaSample, complaint string, answers clinical.Answers) (*clinical.Diagnosis, error) {
	g.mu.Lock()
	g.analysisCalls++
	g.lastSamples = samples
	g.lastAnswers = answers
	g.mu.Unlock()

	if err := g.wait(ctx); err != nil {
		return nil, err
	}
	if g.analysisErr != nil {
		return nil, g.analysisErr
	}
	return g.diagnosis, nil
}

func (g *fakeGateway) calls() (int, int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.questionCalls, g.analysisCalls
}

func TestControllerHappyPath(t *testing.T) {
	gw := &fakeGateway{questions: sampleQuestions(), diagnosis: sampleDiagnosis()}
	c := NewController(gw)

	require.NoError(t, c.SubmitComplaint("sore throat for three days"))
	c.Wait()

	s := c.Snapshot()
	require.Equal(t, StageQuestionnaire, s.Stage)
	assert.Len(t, s.Questions, 4)

	require.NoError(t, c.Answer("fever", "yes"))
	require.NoError(t, c.Answer("pain", "6"))
	require.NoError(t, c.ProceedToCapture())
	require.NoError(t, c.AddMedia(sampleImage()))
	require.NoError(t, c.ExecuteAnalysis())
	c.Wait()

	s = c.Snapshot()
	assert.Equal(t, StageReport, s.Stage)
	assert.Equal(t, "Viral pharyngitis", s.Report.ConditionName)

	assert.Equal(t, "sore throat for three days", gw.lastComplaint)
	assert.Equal(t, clinical.Answers{"fever": "Yes", "pain": "6", "onset": ""}, gw.lastAnswers)
	require.Len(t, gw.lastSamples, 1)
	assert.Equal(t, "img-1", gw.lastSamples[0].ID)

	var stages []Stage
	for _, tr := range c.GetTransitions() {
		if tr.FromState != tr.ToState {
			stages = append(stages, tr.ToState)
		}
	}
	assert.Equal(t, []Stage{StageQuestionnaire, StageMediaCapture, StageAnalyzing, StageReport}, stages)
}

func TestControllerQuestionnaireFailure(t *testing.T) {
	gw := &fakeGateway{questionsErr: errors.New("Clinical gateway error.")}
	c := NewController(gw)

	require.NoError(t, c.SubmitComplaint("headache"))
	c.Wait()

	s := c.Snapshot()
	assert.Equal(t, StageSymptomEntry, s.Stage)
	assert.EqualError(t, s.LastError, "Clinical gateway error.")
	assert.Empty(t, s.Questions)
	assert.False(t, s.Busy())
}

func TestControllerRejectsSecondSubmitWhileBusy(t *testing.T) {
	gw := &fakeGateway{questions: sampleQuestions(), hold: make(chan struct{})}
	c := NewController(gw)

	require.NoError(t, c.SubmitComplaint("cough"))
	assert.ErrorIs(t, c.SubmitComplaint("cough"), ErrBusy)

	close(gw.hold)
	c.Wait()

	q, _ := gw.calls()
	assert.Equal(t, 1, q)
	assert.Equal(t, StageQuestionnaire, c.Snapshot().Stage)
}

func TestControllerDropsLateResponseAfterReset(t *testing.T) {
	gw := &fakeGateway{questions: sampleQuestions(), hold: make(chan struct{})}
	c := NewController(gw)

	require.NoError(t, c.SubmitComplaint("fever"))
	before := c.Snapshot()

	c.Reset()
	close(gw.hold)
	c.Wait()

	s := c.Snapshot()
	assert.Equal(t, StageSymptomEntry, s.Stage)
	assert.Empty(t, s.Questions)
	assert.Empty(t, s.ChiefComplaint)
	assert.Nil(t, s.LastError)
	assert.Nil(t, s.Pending)
	assert.NotEqual(t, before.ID, s.ID)
	assert.Greater(t, s.Generation, before.Generation)
}

func TestControllerBypassCancelsInflightRequest(t *testing.T) {
	gw := &fakeGateway{diagnosis: sampleDiagnosis(), questions: sampleQuestions(), hold: make(chan struct{}), honorCancel: true}
	c := NewController(gw)

	require.NoError(t, c.SubmitComplaint("chest pain"))
	c.EmergencyBypass()
	c.Wait()

	s := c.Snapshot()
	assert.Equal(t, StageReport, s.Stage)
	assert.True(t, s.Bypassed)
	assert.Equal(t, clinical.EmergencyConditionName, s.Report.ConditionName)
	assert.Nil(t, s.LastError, "the cancelled request must not leak an error into the report")

	gw.mu.Lock()
	assert.True(t, gw.cancelObserved)
	gw.mu.Unlock()
}

func TestControllerBypassNeverCallsGateway(t *testing.T) {
	gw := &fakeGateway{}
	c := NewController(gw)

	c.EmergencyBypass()
	c.Wait()

	q, a := gw.calls()
	assert.Zero(t, q)
	assert.Zero(t, a)
	assert.Equal(t, clinical.TriageEmergency, c.Snapshot().Report.TriageLevel)
}

func TestControllerAnalysisFailureAllowsRetry(t *testing.T) {
	gw := &fakeGateway{questions: sampleQuestions(), analysisErr: errors.New("MD Analysis failed.")}
	c := NewController(gw)

	require.NoError(t, c.SubmitComplaint("wound on leg"))
	c.Wait()
	require.NoError(t, c.ProceedToCapture())
	require.NoError(t, c.AddMedia(sampleImage()))
	require.NoError(t, c.ExecuteAnalysis())
	c.Wait()

	s := c.Snapshot()
	assert.Equal(t, StageMediaCapture, s.Stage)
	assert.Error(t, s.LastError)

	gw.mu.Lock()
	gw.analysisErr = nil
	gw.diagnosis = sampleDiagnosis()
	gw.mu.Unlock()

	require.NoError(t, c.ExecuteAnalysis())
	c.Wait()
	assert.Equal(t, StageReport, c.Snapshot().Stage)

	_, a := gw.calls()
	assert.Equal(t, 2, a)
}

func TestControllerPublishesSnapshots(t *testing.T) {
	updates := make(chan Session, 8)
	gw := &fakeGateway{questions: sampleQuestions()}
	c := NewController(gw, WithUpdates(updates))

	require.NoError(t, c.SubmitComplaint("itchy rash"))
	c.Wait()

	var seen []Stage
	timeout := time.After(time.Second)
	for len(seen) < 2 {
		select {
		case s := <-updates:
			seen = append(seen, s.Stage)
		case <-timeout:
			t.Fatalf("only received %v", seen)
		}
	}
	assert.Equal(t, []Stage{StageSymptomEntry, StageQuestionnaire}, seen)
}

func TestControllerFullUpdateChannelDoesNotBlock(t *testing.T) {
	updates := make(chan Session) // unbuffered, never read
	c := NewController(&fakeGateway{}, WithUpdates(updates))

	done := make(chan struct{})
	go func() {
		c.EmergencyBypass()
		c.Reset()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("dispatch blocked on a full update channel")
	}
}

func TestControllerSnapshotIsIndependent(t *testing.T) {
	c := NewController(&fakeGateway{questions: sampleQuestions()})
	require.NoError(t, c.SubmitComplaint("fever"))
	c.Wait()

	snap := c.Snapshot()
	snap.Answers["fever"] = "tampered"
	snap.Questions[0].Prompt = "tampered"

	fresh := c.Snapshot()
	_, ok := fresh.Answers["fever"]
	assert.False(t, ok)
	assert.Equal(t, "Do you have a fever?", fresh.Questions[0].Prompt)
}

func TestControllerParentContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	gw := &fakeGateway{questions: sampleQuestions(), hold: make(chan struct{}), honorCancel: true}
	c := NewController(gw, WithContext(ctx))

	require.NoError(t, c.SubmitComplaint("fever"))
	cancel()
	c.Wait()

	s := c.Snapshot()
	assert.Equal(t, StageSymptomEntry, s.Stage)
	assert.ErrorIs(t, s.LastError, context.Canceled)
}
