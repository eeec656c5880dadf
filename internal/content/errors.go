package content

import "fmt"

// Reason classifies why a payload or upload was rejected.
type Reason string

const (
	ReasonFileTooLarge         Reason = "file_too_large"
	ReasonMissingExtension     Reason = "missing_extension"
	ReasonUnsupportedExtension Reason = "unsupported_extension"
	ReasonInvalidField         Reason = "invalid_field"
	ReasonUnknownKind          Reason = "unknown_kind"
)

// ValidationError reports a rejected write with a machine-readable reason.
// Validation runs before any persistence or storage side effect.
type ValidationError struct {
	Reason  Reason
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

func fieldError(field, message string) *ValidationError {
	return &ValidationError{Reason: ReasonInvalidField, Field: field, Message: message}
}
