package gateway

import (
	"errors"
	"fmt"
)

// User-facing sentinels, one per operation.
//
//nolint:revive,stylecheck // messages are shown to the patient verbatim
var (
	ErrClinicalGateway = errors.New("Clinical gateway error.")
	ErrAnalysisFailed  = errors.New("MD Analysis failed.")
)

// Operation names.
const (
	OpQuestionnaire = "generateQuestionnaire"
	OpAnalysis      = "analyzeMedicalCase"
)

// Kind separates failures for logs; the patient sees the same message for all.
type Kind int

const (
	// KindTransport is a failure reaching the model service.
	KindTransport Kind = iota
	// KindSchemaViolation is a response that is not JSON or breaks its contract.
	KindSchemaViolation
	// KindInvalidRequest is a caller error caught before any network call.
	KindInvalidRequest
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindSchemaViolation:
		return "schema_violation"
	case KindInvalidRequest:
		return "invalid_request"
	default:
		return "unknown"
	}
}

// Error is returned by every gateway operation. errors.Is matches the
// operation's sentinel and anything in the wrapped chain.
type Error struct {
	Op   string
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for e.Op.
func (e *Error) Is(target error) bool {
	return target == e.sentinel()
}

// UserMessage is the single string shown to the patient.
func (e *Error) UserMessage() string {
	return e.sentinel().Error()
}

func (e *Error) sentinel() error {
	if e.Op == OpAnalysis {
		return ErrAnalysisFailed
	}
	return ErrClinicalGateway
}

// UserMessage returns the patient-facing text for any error.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr.UserMessage()
	}
	return err.Error()
}
