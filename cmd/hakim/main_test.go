package main

import (
	"bytes"
	"encoding/json"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hakim/pkg/agent"
	"hakim/pkg/agent/middleware/metrics"
	"hakim/pkg/config"
	"hakim/pkg/gateway"
	"hakim/pkg/intake"
	"hakim/pkg/testkit"
)

const questionsJSON = `[
 {"id":"fever","question":"Do you have a fever?","type":"boolean"},
 {"id":"pain","question":"Rate your pain","type":"scale"},
 {"id":"cough","question":"Are you coughing?","type":"boolean"},
 {"id":"onset","question":"When did it start?","type":"text"}
]`

const diagnosisJSON = `{
 "conditionName":"Streptococcal pharyngitis",
 "confidenceScore":0.78,
 "triageLevel":"URGENT",
 "clinicalReasoning":["Tonsillar exudate on the throat image"],
 "suggestedActions":["See a clinician within 24 hours"],
 "educationalSummary":"A bacterial throat infection.",
 "disclaimer":"Disclaimer: This is an AI assessment."
}`

func stubGateway(t *testing.T, client *testkit.MockLLMClient) {
	t.Helper()
	original := buildGateway
	buildGateway = func(cfg *config.Config, recorder metrics.Recorder) (intake.Gateway, error) {
		wrapped := agent.NewLLMClientFactory(*cfg, recorder).Wrap(client)
		return gateway.New(wrapped, gateway.Options{QuestionCount: cfg.Gateway.QuestionCount}), nil
	}
	t.Cleanup(func() { buildGateway = original })
}

func stubInteractive(t *testing.T, interactive bool) {
	t.Helper()
	original := isInteractive
	isInteractive = func() bool { return interactive }
	t.Cleanup(func() { isInteractive = original })
}

func healthyClient() *testkit.MockLLMClient {
	return testkit.NewMockLLMClient().
		WithModel("gemini-test").
		OnOperation("questionnaire", questionsJSON).
		OnOperation("analysis", diagnosisJSON)
}

func writeCase(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()

	img := image.NewRGBA(image.Rect(0, 0, 8, 6))
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "throat.png"), buf.Bytes(), 0o600))

	path := filepath.Join(dir, "case.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

const throatCase = `
complaint: sore throat and fever for three days
answers: ["yes", "7", "no", "after a cold"]
media:
  - path: throat.png
    preset: throat
`

func TestRunVersion(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"-version"}, &stdout, &stderr)

	assert.Equal(t, exitOK, code)
	assert.Contains(t, stdout.String(), "hakim dev")
}

func TestRunUsageErrors(t *testing.T) {
	stubInteractive(t, false)

	tests := []struct {
		name string
		args []string
		msg  string
	}{
		{"no terminal and no case", nil, "pass -case"},
		{"unknown format", []string{"-format", "xml", "-case", "x.yaml"}, "unknown -format"},
		{"stray argument", []string{"-case", "x.yaml", "extra"}, "unexpected arguments"},
		{"unknown flag", []string{"-nope"}, "flag provided but not defined"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			assert.Equal(t, exitUsage, run(tt.args, &stdout, &stderr))
			assert.Contains(t, stderr.String(), tt.msg)
		})
	}
}

func TestRunCaseFile(t *testing.T) {
	client := healthyClient()
	stubGateway(t, client)

	casePath := writeCase(t, throatCase)
	out := t.TempDir()
	pdfPath := filepath.Join(out, "report.pdf")
	metricsPath := filepath.Join(out, "metrics.prom")

	var stdout, stderr bytes.Buffer
	code := run([]string{
		"-case", casePath,
		"-pdf", pdfPath,
		"-metrics", metricsPath,
		"-log-dir", filepath.Join(out, "logs"),
	}, &stdout, &stderr)
	require.Equal(t, exitOK, code, stderr.String())

	text := stdout.String()
	assert.Contains(t, text, "Official Clinical Report")
	assert.Contains(t, text, "Streptococcal pharyngitis")
	assert.Contains(t, text, "AI Confidence: 78%")
	assert.Contains(t, text, "URGENT TRIAGE STATUS")
	assert.Contains(t, text, "Chief complaint: sore throat and fever for three days")
	assert.Equal(t, []string{"questionnaire", "analysis"}, client.Operations())

	pdf, err := os.ReadFile(pdfPath)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF-")))

	snapshot, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(snapshot), `hakim_llm_requests_total{error_type="",model="gemini-test",operation="analysis",status="success"} 1`)
	assert.Contains(t, string(snapshot), "hakim_llm_request_duration_seconds")
}

func TestRunCaseFileJSON(t *testing.T) {
	stubGateway(t, healthyClient())

	var stdout, stderr bytes.Buffer
	code := run([]string{"-case", writeCase(t, throatCase), "-format", "json", "-log-dir", t.TempDir()}, &stdout, &stderr)
	require.Equal(t, exitOK, code, stderr.String())

	var doc struct {
		Samples           int    `json:"samples"`
		ConfidencePercent int    `json:"confidencePercent"`
		EmergencyBypass   bool   `json:"emergencyBypass"`
		ChiefComplaint    string `json:"chiefComplaint"`
		Diagnosis         struct {
			TriageLevel string `json:"triageLevel"`
		} `json:"diagnosis"`
	}
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &doc))
	assert.Equal(t, 1, doc.Samples)
	assert.Equal(t, 78, doc.ConfidencePercent)
	assert.False(t, doc.EmergencyBypass)
	assert.Equal(t, "URGENT", doc.Diagnosis.TriageLevel)
}

func TestRunEmergencyCase(t *testing.T) {
	client := healthyClient()
	stubGateway(t, client)

	var stdout, stderr bytes.Buffer
	code := run([]string{"-case", writeCase(t, "emergency: true\n"), "-log-dir", t.TempDir()}, &stdout, &stderr)
	require.Equal(t, exitOK, code, stderr.String())

	assert.Contains(t, stdout.String(), "IMMEDIATE LIFE THREAT ASSESSMENT")
	assert.Contains(t, stdout.String(), "AI Confidence: 100%")
	assert.Contains(t, stdout.String(), "EMERGENCY TRIAGE STATUS")
	assert.Empty(t, client.Operations(), "bypass never calls the model")
}

func TestRunReportsGatewayFailures(t *testing.T) {
	tests := []struct {
		name      string
		responses map[string]string
		msg       string
	}{
		{"prose questionnaire", map[string]string{"questionnaire": "Ask about fever."}, "Clinical gateway error."},
		{"bad diagnosis", map[string]string{"questionnaire": questionsJSON, "analysis": `{"conditionName":"x"}`}, "MD Analysis failed."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := testkit.NewMockLLMClient()
			for op, content := range tt.responses {
				client.OnOperation(op, content)
			}
			stubGateway(t, client)

			var stdout, stderr bytes.Buffer
			code := run([]string{"-case", writeCase(t, throatCase), "-log-dir", t.TempDir()}, &stdout, &stderr)
			assert.Equal(t, exitError, code)
			assert.Contains(t, stderr.String(), tt.msg)
			assert.Empty(t, stdout.String())
		})
	}
}

func TestRunCaseWithoutMedia(t *testing.T) {
	stubGateway(t, healthyClient())

	var stdout, stderr bytes.Buffer
	code := run([]string{"-case", writeCase(t, "complaint: rash\n"), "-log-dir", t.TempDir()}, &stdout, &stderr)
	assert.Equal(t, exitError, code)
	assert.Contains(t, stderr.String(), "at least one media file")
}

func TestRunRejectsBadAnswer(t *testing.T) {
	stubGateway(t, healthyClient())

	body := strings.Replace(throatCase, `"7"`, `"eleven"`, 1)
	var stdout, stderr bytes.Buffer
	code := run([]string{"-case", writeCase(t, body), "-log-dir", t.TempDir()}, &stdout, &stderr)
	assert.Equal(t, exitError, code)
	assert.Contains(t, stderr.String(), "answer 2")
}
