package host

import (
	"fmt"
	"slices"
)

// Primitive type literals accepted by operation input schemas.
const (
	TypeString  = "string"
	TypeNumber  = "number"
	TypeBoolean = "boolean"
)

var validFieldTypes = map[string]struct{}{
	TypeString:  {},
	TypeNumber:  {},
	TypeBoolean: {},
}

// FieldSpec declares one named argument field of an operation.
type FieldSpec struct {
	Type        string `json:"type"`
	Required    bool   `json:"required,omitempty"`
	Description string `json:"description,omitempty"`
	Default     any    `json:"default,omitempty"`
}

// InputSchema declares the argument fields an operation accepts, keyed by
// field name. Fields not declared here are ignored during validation so
// richer clients stay compatible.
type InputSchema map[string]FieldSpec

// Args holds validated, default-applied arguments for one call.
type Args map[string]any

// String returns the named argument as a string, or "" when absent.
func (a Args) String(name string) string {
	v, _ := a[name].(string)
	return v
}

// Int returns the named numeric argument truncated to int, or 0 when absent.
func (a Args) Int(name string) int {
	v, _ := a[name].(float64)
	return int(v)
}

// Float returns the named numeric argument, or 0 when absent.
func (a Args) Float(name string) float64 {
	v, _ := a[name].(float64)
	return v
}

// Bool returns the named boolean argument, or false when absent.
func (a Args) Bool(name string) bool {
	v, _ := a[name].(bool)
	return v
}

// check verifies the schema declaration itself. It runs at registration time
// so a bad field type is a startup error, not a per-call one.
func (s InputSchema) check() error {
	for _, name := range s.fieldNames() {
		spec := s[name]
		if _, ok := validFieldTypes[spec.Type]; !ok {
			return fmt.Errorf("field %q declares unsupported type %q; allowed: string, number, boolean", name, spec.Type)
		}
		if spec.Required && spec.Default != nil {
			return fmt.Errorf("field %q is required and cannot carry a default", name)
		}
	}
	return nil
}

// Validate checks a raw argument payload against the schema and returns the
// validated arguments with defaults applied. Numbers are normalized to
// float64. A present-but-zero optional number is treated as absent and takes
// its default; callers that genuinely mean zero cannot express it, which
// matches the zero-means-unset convention of the wire contract.
func (s InputSchema) Validate(raw map[string]any) (Args, error) {
	args := make(Args, len(s))

	for _, name := range s.fieldNames() {
		spec := s[name]
		value, present := raw[name]

		if !present || value == nil {
			if spec.Required {
				return nil, Failf(CodeInvalidArguments, "missing required field %q", name)
			}
			if spec.Default != nil {
				args[name] = normalizeDefault(spec.Default)
			}
			continue
		}

		coerced, err := coerceField(name, spec.Type, value)
		if err != nil {
			return nil, err
		}

		if spec.Type == TypeNumber && !spec.Required && spec.Default != nil {
			if n, ok := coerced.(float64); ok && n == 0 {
				args[name] = normalizeDefault(spec.Default)
				continue
			}
		}
		args[name] = coerced
	}

	return args, nil
}

// JSONSchema renders the schema as a JSON-Schema object suitable for
// advertising the operation to clients.
func (s InputSchema) JSONSchema() map[string]any {
	properties := make(map[string]any, len(s))
	required := make([]string, 0)

	for _, name := range s.fieldNames() {
		spec := s[name]
		prop := map[string]any{"type": spec.Type}
		if spec.Description != "" {
			prop["description"] = spec.Description
		}
		if spec.Default != nil {
			prop["default"] = normalizeDefault(spec.Default)
		}
		properties[name] = prop
		if spec.Required {
			required = append(required, name)
		}
	}

	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func (s InputSchema) fieldNames() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func coerceField(name, fieldType string, value any) (any, error) {
	switch fieldType {
	case TypeString:
		str, ok := value.(string)
		if !ok {
			return nil, Failf(CodeInvalidArguments, "field %q must be a string, got %T", name, value)
		}
		return str, nil
	case TypeNumber:
		switch n := value.(type) {
		case float64:
			return n, nil
		case int:
			return float64(n), nil
		case int64:
			return float64(n), nil
		}
		return nil, Failf(CodeInvalidArguments, "field %q must be a number, got %T", name, value)
	case TypeBoolean:
		b, ok := value.(bool)
		if !ok {
			return nil, Failf(CodeInvalidArguments, "field %q must be a boolean, got %T", name, value)
		}
		return b, nil
	}
	return nil, Failf(CodeInternal, "field %q declares unknown type %q", name, fieldType)
}

// normalizeDefault keeps declared numeric defaults consistent with decoded
// JSON numbers so Args accessors behave the same for both.
func normalizeDefault(value any) any {
	switch n := value.(type) {
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return value
}
