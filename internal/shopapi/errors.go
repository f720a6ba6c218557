package shopapi

import (
	"errors"
	"fmt"
)

var ErrUnavailable = errors.New("shop api unavailable")

// Error is a failed backend call. Err is set for transport and availability failures;
// otherwise the backend answered with a refusal described by Status and Message.
type Error struct {
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Op, e.Status, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsRejection is true for 4xx answers and success:false envelopes.
func (e *Error) IsRejection() bool {
	return e.Err == nil && e.Status < 500
}

func (e *Error) UserMessage() string {
	return e.Message
}
