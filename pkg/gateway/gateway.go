// Package gateway is the model gateway: it formats the two clinical requests,
// sends them through an llm.LLMClient and validates the structured responses
// against their contracts.
package gateway

import (
	"context"
	"errors"
	"strings"

	"hakim/pkg/agent/llm"
	"hakim/pkg/clinical"
	"hakim/pkg/contract"
	"hakim/pkg/logx"
)

// Defaults used when Options leaves a field zero.
const (
	DefaultQuestionCount  = 4
	DefaultThinkingBudget = 8000
)

// Options tunes the requests.
type Options struct {
	QuestionCount  int
	ThinkingBudget int
}

// Gateway issues questionnaire and analysis requests. It is safe for
// concurrent use; callers serialize requests per session.
type Gateway struct {
	client llm.LLMClient
	opts   Options
	logger *logx.Logger
}

// New creates a gateway over client.
func New(client llm.LLMClient, opts Options) *Gateway {
	if opts.QuestionCount <= 0 {
		opts.QuestionCount = DefaultQuestionCount
	}
	if opts.ThinkingBudget <= 0 {
		opts.ThinkingBudget = DefaultThinkingBudget
	}
	return &Gateway{
		client: client,
		opts:   opts,
		logger: logx.NewLogger("gateway"),
	}
}

// GenerateQuestionnaire asks the model for follow-up questions about the
// complaint. Every failure is reported as ErrClinicalGateway.
func (g *Gateway) GenerateQuestionnaire(ctx context.Context, chiefComplaint string) ([]clinical.Question, error) {
	complaint := strings.TrimSpace(chiefComplaint)
	if complaint == "" {
		return nil, g.fail(OpQuestionnaire, KindInvalidRequest, errors.New("chief complaint is empty"))
	}

	req := llm.NewCompletionRequest([]llm.CompletionMessage{
		llm.NewSystemMessage(SystemInstruction),
		llm.NewUserMessage(questionnairePrompt(complaint, g.opts.QuestionCount)),
	}).WithJSONSchema(contract.Questionnaire.Schema)
	req.Operation = "questionnaire"

	resp, err := g.client.Complete(ctx, req)
	if err != nil {
		return nil, g.fail(OpQuestionnaire, KindTransport, err)
	}

	questions, err := contract.DecodeQuestionnaire([]byte(resp.Content))
	if err != nil {
		return nil, g.fail(OpQuestionnaire, KindSchemaViolation, err)
	}

	g.logger.Info("Generated %d questions for complaint (%d chars)", len(questions), len(complaint))
	return questions, nil
}

// AnalyzeMedicalCase sends the complaint, the interview answers and every
// media sample as an inline part, and returns the validated diagnosis. Every
// failure is reported as ErrAnalysisFailed.
func (g *Gateway) AnalyzeMedicalCase(
	ctx context.Context,
	samples []clinical.MediaSample,
	chiefComplaint string,
	answers clinical.Answers,
) (*clinical.Diagnosis, error) {
	text, err := analysisContext(chiefComplaint, answers, samples)
	if err != nil {
		return nil, g.fail(OpAnalysis, KindInvalidRequest, err)
	}

	attachments := make([]llm.Attachment, 0, len(samples))
	for i := range samples {
		attachments = append(attachments, llm.Attachment{
			MIMEType: samples[i].MIMEType,
			Data:     samples[i].Data,
		})
	}

	req := llm.NewCompletionRequest([]llm.CompletionMessage{
		llm.NewSystemMessage(SystemInstruction),
		llm.NewUserMessage(text, attachments...),
	}).WithJSONSchema(contract.Diagnosis.Schema).WithThinkingBudget(g.opts.ThinkingBudget)
	req.Operation = "analysis"

	resp, err := g.client.Complete(ctx, req)
	if err != nil {
		return nil, g.fail(OpAnalysis, KindTransport, err)
	}

	diagnosis, err := contract.DecodeDiagnosis([]byte(resp.Content))
	if err != nil {
		return nil, g.fail(OpAnalysis, KindSchemaViolation, err)
	}

	g.logger.Info("Analysis complete: triage=%s confidence=%d%% samples=%d",
		diagnosis.TriageLevel.Label(), diagnosis.ConfidencePercent(), len(samples))
	return diagnosis, nil
}

func (g *Gateway) fail(op string, kind Kind, err error) error {
	g.logger.Error("%s failed [%s]: %v", op, kind, err)
	return &Error{Op: op, Kind: kind, Err: err}
}
