package tools

import (
	"errors"
	"fmt"

	"spesetools/internal/core"
)

// Error codes returned in tool error payloads.
const (
	CodeValidationFailed = "validation_failed"
	CodeNotFound         = "not_found"
	CodeNoFieldsProvided = "no_fields_provided"
	CodeInternal         = "internal_error"
)

const (
	msgNotFound         = "The specified expense does not exist."
	msgNoFieldsProvided = "No fields provided to update. Please specify at least one field to update."
	msgInternal         = "Something went wrong while processing the request. Please try again."
)

// ErrorPayload is the body of a failed tool call.
type ErrorPayload struct {
	Error   string           `json:"error"`
	Message string           `json:"message"`
	Errors  []core.Violation `json:"errors,omitempty"`
}

// errorPayload maps a handler error to the caller-facing body. Anything
// unrecognised is reported without detail.
func errorPayload(err error) (ErrorPayload, bool) {
	var verr *core.ValidationError
	switch {
	case errors.As(err, &verr):
		return ErrorPayload{
			Error:   CodeValidationFailed,
			Message: summarize(verr),
			Errors:  verr.Violations,
		}, true
	case errors.Is(err, core.ErrNotFound):
		return ErrorPayload{Error: CodeNotFound, Message: msgNotFound}, true
	case errors.Is(err, core.ErrNoFieldsProvided):
		return ErrorPayload{Error: CodeNoFieldsProvided, Message: msgNoFieldsProvided}, true
	default:
		return ErrorPayload{Error: CodeInternal, Message: msgInternal}, false
	}
}

func summarize(verr *core.ValidationError) string {
	switch n := len(verr.Violations); n {
	case 0:
		return "The given data was invalid."
	case 1:
		return verr.Violations[0].Message
	case 2:
		return verr.Violations[0].Message + " (and 1 more error)"
	default:
		return fmt.Sprintf("%s (and %d more errors)", verr.Violations[0].Message, n-1)
	}
}
