package checkout

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyCart          = errors.New("cart is empty")
	ErrPreviewStale       = errors.New("cart changed since the preview, refresh checkout")
	ErrSubmissionInFlight = errors.New("order submission already in progress")
	ErrInvalidPhase       = errors.New("operation not allowed in current checkout phase")
	ErrUnknownOutcome     = errors.New("unknown payment widget outcome")
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// IsRejection reports whether err is a structured refusal from the backend rather than
// a transport or availability failure.
func IsRejection(err error) bool {
	var r interface{ IsRejection() bool }
	return errors.As(err, &r) && r.IsRejection()
}

var ErrAbandoned = errors.New("checkout was abandoned")

// userMessage returns the backend's own wording for rejections, fallback otherwise.
func userMessage(err error, fallback string) string {
	var m interface{ UserMessage() string }
	if IsRejection(err) && errors.As(err, &m) && m.UserMessage() != "" {
		return m.UserMessage()
	}
	return fallback
}
