package google

import (
	"fmt"
	"sort"

	"github.com/getkin/kin-openapi/openapi3"
	"google.golang.org/genai"
)

// convertSchema translates an OpenAPI schema into the subset Gemini accepts
// for structured output.
func convertSchema(s *openapi3.Schema) (*genai.Schema, error) {
	if s == nil {
		return nil, nil //nolint:nilnil // absent schema is not an error
	}

	out := &genai.Schema{
		Description: s.Description,
		Title:       s.Title,
		Minimum:     s.Min,
		Maximum:     s.Max,
	}
	if s.Nullable {
		nullable := true
		out.Nullable = &nullable
	}

	switch s.Type {
	case openapi3.TypeString:
		out.Type = genai.TypeString
		out.Format = s.Format
		if s.MinLength > 0 {
			minLen := int64(s.MinLength) //nolint:gosec // schema literals are small
			out.MinLength = &minLen
		}
	case openapi3.TypeNumber:
		out.Type = genai.TypeNumber
	case openapi3.TypeInteger:
		out.Type = genai.TypeInteger
	case openapi3.TypeBoolean:
		out.Type = genai.TypeBoolean
	case openapi3.TypeArray:
		out.Type = genai.TypeArray
		if s.Items == nil || s.Items.Value == nil {
			return nil, fmt.Errorf("array schema without items")
		}
		items, err := convertSchema(s.Items.Value)
		if err != nil {
			return nil, fmt.Errorf("items: %w", err)
		}
		out.Items = items
		if s.MinItems > 0 {
			minItems := int64(s.MinItems) //nolint:gosec // schema literals are small
			out.MinItems = &minItems
		}
		if s.MaxItems != nil {
			maxItems := int64(*s.MaxItems) //nolint:gosec // schema literals are small
			out.MaxItems = &maxItems
		}
	case openapi3.TypeObject:
		out.Type = genai.TypeObject
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, ref := range s.Properties {
			if ref == nil || ref.Value == nil {
				return nil, fmt.Errorf("property %q has no schema", name)
			}
			prop, err := convertSchema(ref.Value)
			if err != nil {
				return nil, fmt.Errorf("property %q: %w", name, err)
			}
			out.Properties[name] = prop
		}
		out.Required = append([]string(nil), s.Required...)
		out.PropertyOrdering = propertyOrder(s)
	default:
		return nil, fmt.Errorf("unsupported schema type %q", s.Type)
	}

	for _, v := range s.Enum {
		out.Enum = append(out.Enum, fmt.Sprint(v))
	}

	return out, nil
}

// propertyOrder lists required properties in declaration order, then the rest sorted.
func propertyOrder(s *openapi3.Schema) []string {
	seen := make(map[string]bool, len(s.Properties))
	order := make([]string, 0, len(s.Properties))
	for _, name := range s.Required {
		if _, ok := s.Properties[name]; ok && !seen[name] {
			order = append(order, name)
			seen[name] = true
		}
	}
	rest := make([]string, 0, len(s.Properties))
	for name := range s.Properties {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(order, rest...)
}
