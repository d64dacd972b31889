// Package clinical defines the domain values exchanged during a triage
// consultation: questions, answers, media evidence and the diagnosis.
package clinical

import (
	"fmt"
	"strconv"
	"strings"
)

// AnswerKind is the expected shape of a question's answer.
type AnswerKind string

const (
	AnswerBoolean AnswerKind = "boolean"
	AnswerScale   AnswerKind = "scale"
	AnswerText    AnswerKind = "text"
)

// Canonical boolean answers.
const (
	AnswerYes = "Yes"
	AnswerNo  = "No"
)

// Scale answers are integers within [ScaleMin, ScaleMax].
const (
	ScaleMin = 0
	ScaleMax = 10
)

// AnswerKinds lists the valid kinds in wire order.
//
//nolint:gochecknoglobals
var AnswerKinds = []AnswerKind{AnswerBoolean, AnswerScale, AnswerText}

// Valid reports whether k is a known kind.
func (k AnswerKind) Valid() bool {
	switch k {
	case AnswerBoolean, AnswerScale, AnswerText:
		return true
	default:
		return false
	}
}

// Question is a follow-up clinical question produced by the model.
type Question struct {
	ID     string     `json:"id"`
	Prompt string     `json:"question"`
	Kind   AnswerKind `json:"type"`
}

// Answers maps question ids to answer strings. A missing key means unanswered.
type Answers map[string]string

// Clone returns an independent copy.
func (a Answers) Clone() Answers {
	if a == nil {
		return nil
	}
	out := make(Answers, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// NormalizeAnswer validates raw against kind and returns the stored form.
//
//	NormalizeAnswer(AnswerBoolean, "y")   // "Yes"
//	NormalizeAnswer(AnswerScale, " 7 ")   // "7"
func NormalizeAnswer(kind AnswerKind, raw string) (string, error) {
	switch kind {
	case AnswerText:
		return raw, nil
	case AnswerBoolean:
		switch strings.ToLower(strings.TrimSpace(raw)) {
		case "yes", "y", "true", "1":
			return AnswerYes, nil
		case "no", "n", "false", "0":
			return AnswerNo, nil
		default:
			return "", fmt.Errorf("boolean answer must be yes or no, got %q", raw)
		}
	case AnswerScale:
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return "", fmt.Errorf("scale answer must be an integer, got %q", raw)
		}
		if n < ScaleMin || n > ScaleMax {
			return "", fmt.Errorf("scale answer must be within %d..%d, got %d", ScaleMin, ScaleMax, n)
		}
		return strconv.Itoa(n), nil
	default:
		return "", fmt.Errorf("unknown answer kind %q", kind)
	}
}

// MergeQuestions collapses duplicate ids: one entry per id, the last
// definition wins, and the position of the first appearance is kept.
func MergeQuestions(in []Question) []Question {
	index := make(map[string]int, len(in))
	out := make([]Question, 0, len(in))
	for _, q := range in {
		if i, ok := index[q.ID]; ok {
			out[i] = q
			continue
		}
		index[q.ID] = len(out)
		out = append(out, q)
	}
	return out
}
