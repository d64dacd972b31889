package intake

import (
	"context"
	"errors"
	"sync"
	"time"

	"hakim/pkg/clinical"
	"hakim/pkg/logx"
)

// Gateway is the model service the controller calls.
type Gateway interface {
	GenerateQuestionnaire(ctx context.Context, chiefComplaint string) ([]clinical.Question, error)
	AnalyzeMedicalCase(ctx context.Context, samples []clinical.MediaSample, chiefComplaint string, answers clinical.Answers) (*clinical.Diagnosis, error)
}

// StateTransition records one applied event.
type StateTransition struct {
	FromState Stage
	ToState   Stage
	Event     string
	Timestamp time.Time
}

// Controller owns one Session. Model requests run on their own goroutines;
// their results are applied through the same transition function and are
// dropped when the session has moved on.
type Controller struct {
	gateway Gateway
	logger  *logx.Logger

	mu          sync.Mutex
	session     Session
	transitions []StateTransition
	cancel      context.CancelFunc
	updates     chan<- Session
	baseCtx     context.Context //nolint:containedctx // parent of every request context

	inflight sync.WaitGroup
}

// Option configures a Controller.
type Option func(*Controller)

// WithUpdates publishes a snapshot after every applied event. Sends never
// block; a full channel drops the snapshot.
func WithUpdates(ch chan<- Session) Option {
	return func(c *Controller) { c.updates = ch }
}

// WithContext sets the parent context for model requests.
func WithContext(ctx context.Context) Option {
	return func(c *Controller) { c.baseCtx = ctx }
}

// NewController creates a controller with a fresh session.
func NewController(gateway Gateway, opts ...Option) *Controller {
	c := &Controller{
		gateway: gateway,
		logger:  logx.NewLogger("intake"),
		session: NewSession(),
		baseCtx: context.Background(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Snapshot returns a deep copy of the current session.
func (c *Controller) Snapshot() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.Clone()
}

// GetTransitions returns the transition history.
func (c *Controller) GetTransitions() []StateTransition {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]StateTransition{}, c.transitions...)
}

// Wait blocks until no request goroutine is running.
func (c *Controller) Wait() {
	c.inflight.Wait()
}

// SubmitComplaint stores the complaint and starts the questionnaire request.
func (c *Controller) SubmitComplaint(text string) error {
	return c.Dispatch(SubmitComplaint{Text: text})
}

// Answer records an answer to a question.
func (c *Controller) Answer(id, value string) error {
	return c.Dispatch(AnswerQuestion{ID: id, Value: value})
}

// ClearAnswer removes an answer.
func (c *Controller) ClearAnswer(id string) error {
	return c.Dispatch(ClearAnswer{ID: id})
}

// ProceedToCapture moves from the questionnaire to media capture.
func (c *Controller) ProceedToCapture() error {
	return c.Dispatch(ProceedToCapture{})
}

// AddMedia appends a captured sample.
func (c *Controller) AddMedia(sample clinical.MediaSample) error {
	return c.Dispatch(AddMedia{Sample: sample})
}

// ExecuteAnalysis starts the analysis request.
func (c *Controller) ExecuteAnalysis() error {
	return c.Dispatch(ExecuteAnalysis{})
}

// EmergencyBypass shows the local emergency report. It never fails.
func (c *Controller) EmergencyBypass() {
	_ = c.Dispatch(EmergencyBypass{})
}

// Reset starts a new consultation.
func (c *Controller) Reset() {
	_ = c.Dispatch(Reset{})
}

// Dispatch applies ev and starts a model request if ev issued one.
func (c *Controller) Dispatch(ev Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	prev := c.session
	next, err := Apply(prev, ev)
	if err != nil {
		if errors.Is(err, ErrStaleResponse) {
			c.logger.Debug("Dropping %s: %v", ev.Name(), err)
		} else {
			c.logger.Debug("%s rejected in %s: %v", ev.Name(), prev.Stage, err)
		}
		return err
	}

	c.session = next
	c.record(prev, next, ev)

	if !samePending(prev.Pending, next.Pending) {
		c.cancelInflight()
		if next.Pending != nil {
			c.start(next)
		}
	}

	c.publish()
	return nil
}

func (c *Controller) record(prev, next Session, ev Event) {
	transition := StateTransition{
		FromState: prev.Stage,
		ToState:   next.Stage,
		Event:     ev.Name(),
		Timestamp: time.Now().UTC(),
	}
	c.transitions = append(c.transitions, transition)

	if prev.Stage != next.Stage {
		c.logger.Info("🔄 Intake transition: %s → %s (%s)", prev.Stage, next.Stage, ev.Name())
	}
	if next.LastError != nil && next.LastError != prev.LastError {
		c.logger.Warn("%s: %v", ev.Name(), next.LastError)
	}
}

func (c *Controller) publish() {
	if c.updates == nil {
		return
	}
	select {
	case c.updates <- c.session.Clone():
	default:
		c.logger.Warn("Session update channel full, dropping snapshot at %s", c.session.Stage)
	}
}

func (c *Controller) cancelInflight() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// start launches the request for s.Pending. Called with c.mu held.
func (c *Controller) start(s Session) {
	ctx, cancel := context.WithCancel(c.baseCtx)
	c.cancel = cancel

	tok := *s.Pending
	complaint := s.ChiefComplaint
	samples := append([]clinical.MediaSample(nil), s.MediaSamples...)
	answers := s.Answers.Clone()

	c.logger.Debug("Issuing %s for session %s", tok, s.ID)

	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		defer cancel()

		var ev Event
		switch tok.Op {
		case OpQuestionnaire:
			questions, err := c.gateway.GenerateQuestionnaire(ctx, complaint)
			if err != nil {
				ev = QuestionnaireFailed{Token: tok, Err: err}
			} else {
				ev = QuestionnaireReady{Token: tok, Questions: questions}
			}
		case OpAnalysis:
			diagnosis, err := c.gateway.AnalyzeMedicalCase(ctx, samples, complaint, answers)
			if err != nil {
				ev = AnalysisFailed{Token: tok, Err: err}
			} else {
				ev = AnalysisReady{Token: tok, Diagnosis: diagnosis}
			}
		default:
			return
		}
		_ = c.Dispatch(ev)
	}()
}

func samePending(a, b *RequestToken) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
