package response

import (
	"errors"
)

// Error couples an HTTP-ish status code with a message. Outbound clients wrap
// upstream failures in it so the retry policy can tell transient classes
// (5xx, 429) apart from permanent ones.
type Error struct {
	Code int
	Err  error
}

func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Is(target error) bool {
	var t *Error
	ok := errors.As(target, &t)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Err.Error() == t.Err.Error()
}

func NewError(code int, err string) error {
	return &Error{code, errors.New(err)}
}
