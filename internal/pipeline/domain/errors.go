package domain

import "errors"

var (
	ErrInvalidSelector  = errors.New(`invalid queue parameter, use "managed" or "broker"`)
	ErrDelivery         = errors.New("failed to queue message")
	ErrTransport        = errors.New("queue transport failure")
	ErrPersistence      = errors.New("failed to store metrics")
	ErrMalformedMessage = errors.New("malformed queue message")
)

// ValidationError names the first missing required field of a ride request.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return "missing required field: " + e.Field
}
