package bocha

import (
	"encoding/json"
	"fmt"
)

// Validation failure reasons carried by ValidationError.
const (
	ReasonMissingRequiredField = "missing-required-field"
	ReasonTypeMismatch         = "type-mismatch"
)

// ValidationError reports why a raw payload could not be parsed into the
// typed tree. Path names the offending field with wire names and element
// indices, e.g. "webPages.value[3].name", so callers can tell a schema
// change apart from a malformed response.
type ValidationError struct {
	Path   string
	Reason string

	detail string
}

func (e *ValidationError) Error() string {
	if e.detail != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Path, e.Reason, e.detail)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Reason)
}

func newMissingFieldError(path string) *ValidationError {
	return &ValidationError{Path: path, Reason: ReasonMissingRequiredField}
}

func newTypeMismatchError(path, want string, got any) *ValidationError {
	return &ValidationError{
		Path:   path,
		Reason: ReasonTypeMismatch,
		detail: fmt.Sprintf("expected %s, got %s", want, jsonTypeName(got)),
	}
}

// jsonTypeName names a decoded JSON value the way the wire format would.
func jsonTypeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case json.Number, float64, int, int64:
		return "number"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	default:
		return fmt.Sprintf("%T", v)
	}
}
