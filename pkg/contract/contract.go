// Package contract holds the versioned structured-output contracts the model
// must satisfy. The same schema is sent with the request and enforced on the
// response, so the two cannot drift apart.
package contract

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

// Sentinel errors.
var (
	// ErrSchemaViolation marks any response that does not satisfy its contract.
	ErrSchemaViolation = errors.New("response violates contract")
	// ErrNotJSON marks a response body that is not a JSON document.
	ErrNotJSON = errors.New("response is not JSON")
)

// Contract is a named, versioned response schema.
type Contract struct {
	Name    string
	Version string
	Schema  *openapi3.Schema
}

// ID returns "name/version".
func (c *Contract) ID() string {
	return c.Name + "/" + c.Version
}

// ViolationError reports why a response failed its contract.
type ViolationError struct {
	Contract string
	Err      error
}

// Error lists each schema failure as "pointer: reason". kin-openapi's own
// message embeds the whole schema and value, which is too noisy for a log line.
func (e *ViolationError) Error() string {
	return fmt.Sprintf("contract %s: %s", e.Contract, describe(e.Err))
}

// Unwrap returns the underlying decode or validation error.
func (e *ViolationError) Unwrap() error {
	return e.Err
}

// Is matches ErrSchemaViolation.
func (e *ViolationError) Is(target error) bool {
	return target == ErrSchemaViolation
}

// Validate decodes raw as JSON and checks it against the schema. The decoded
// document is returned for callers that want to inspect it.
func (c *Contract) Validate(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, c.violation(fmt.Errorf("%w: empty body", ErrNotJSON))
	}

	var doc any
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, c.violation(fmt.Errorf("%w: %v", ErrNotJSON, err))
	}

	if err := c.Schema.VisitJSON(doc, openapi3.MultiErrors()); err != nil {
		return nil, c.violation(err)
	}
	return doc, nil
}

// decodeInto validates raw and unmarshals it into out.
func (c *Contract) decodeInto(raw []byte, out any) error {
	if _, err := c.Validate(raw); err != nil {
		return err
	}
	if err := json.Unmarshal(bytes.TrimSpace(raw), out); err != nil {
		return c.violation(err)
	}
	return nil
}

func describe(err error) string {
	switch e := err.(type) {
	case openapi3.MultiError:
		parts := make([]string, 0, len(e))
		for _, inner := range e {
			parts = append(parts, describe(inner))
		}
		return strings.Join(parts, "; ")
	case *openapi3.SchemaError:
		return "/" + strings.Join(e.JSONPointer(), "/") + ": " + e.Reason
	default:
		return err.Error()
	}
}

func (c *Contract) violation(err error) error {
	return &ViolationError{Contract: c.ID(), Err: err}
}
