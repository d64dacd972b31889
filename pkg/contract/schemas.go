package contract

import (
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"

	"hakim/pkg/clinical"
)

// Version of both contracts.
const Version = "v1"

//nolint:gochecknoglobals // immutable contract definitions
var (
	// Questionnaire is the follow-up question list.
	Questionnaire = &Contract{Name: "questionnaire", Version: Version, Schema: questionnaireSchema()}
	// Diagnosis is the case analysis report.
	Diagnosis = &Contract{Name: "diagnosis", Version: Version, Schema: diagnosisSchema()}
)

func questionnaireSchema() *openapi3.Schema {
	kinds := make([]any, 0, len(clinical.AnswerKinds))
	for _, k := range clinical.AnswerKinds {
		kinds = append(kinds, string(k))
	}

	item := openapi3.NewObjectSchema().
		WithProperty("id", openapi3.NewStringSchema().WithMinLength(1)).
		WithProperty("question", openapi3.NewStringSchema().WithMinLength(1)).
		WithProperty("type", openapi3.NewStringSchema().WithEnum(kinds...))
	item.Required = []string{"id", "question", "type"}

	return openapi3.NewArraySchema().WithItems(item).WithMinItems(1)
}

func diagnosisSchema() *openapi3.Schema {
	levels := ""
	for i, l := range clinical.TriageLevels {
		if i > 0 {
			levels += ", "
		}
		levels += l.Label()
	}

	triage := openapi3.NewStringSchema().WithMinLength(1)
	triage.Description = fmt.Sprintf("One of %s.", levels)

	s := openapi3.NewObjectSchema().
		WithProperty("conditionName", openapi3.NewStringSchema().WithMinLength(1)).
		WithProperty("confidenceScore", openapi3.NewFloat64Schema().WithMin(0).WithMax(1)).
		WithProperty("triageLevel", triage).
		WithProperty("clinicalReasoning", openapi3.NewArraySchema().WithItems(openapi3.NewStringSchema())).
		WithProperty("suggestedActions", openapi3.NewArraySchema().WithItems(openapi3.NewStringSchema())).
		WithProperty("educationalSummary", openapi3.NewStringSchema()).
		WithProperty("prescriptionGuidance", openapi3.NewStringSchema()).
		WithProperty("disclaimer", openapi3.NewStringSchema())
	s.Required = []string{
		"conditionName", "confidenceScore", "triageLevel", "clinicalReasoning",
		"suggestedActions", "educationalSummary", "disclaimer",
	}
	return s
}

// DecodeQuestionnaire validates raw against the questionnaire contract.
// Questions are returned in response order; duplicate ids are left for the
// caller to merge.
func DecodeQuestionnaire(raw []byte) ([]clinical.Question, error) {
	var questions []clinical.Question
	if err := Questionnaire.decodeInto(raw, &questions); err != nil {
		return nil, err
	}
	return questions, nil
}

// DecodeDiagnosis validates raw against the diagnosis contract and normalises
// the triage label. An unknown label is a violation.
func DecodeDiagnosis(raw []byte) (*clinical.Diagnosis, error) {
	var d clinical.Diagnosis
	if err := Diagnosis.decodeInto(raw, &d); err != nil {
		return nil, err
	}
	if err := d.Validate(); err != nil {
		return nil, Diagnosis.violation(err)
	}
	return &d, nil
}
