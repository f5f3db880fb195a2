package ingest

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidJSON        = errors.New("invalid JSON")
	ErrUnrecognizedFormat = errors.New("unrecognized shipment format")
	ErrEventsNotArray     = errors.New("events is not an array")
)

// InputError reports a document that cannot be loaded. It is recoverable:
// nothing has been written when it is returned.
type InputError struct {
	Kind string
	Err  error
}

const (
	KindInvalidJSON  = "invalid_json"
	KindShape        = "shape"
	KindEventsLayout = "events_not_array"
)

func (e *InputError) Error() string {
	return fmt.Sprintf("ingest: %s", e.Err)
}

func (e *InputError) Unwrap() error { return e.Err }

func invalidJSON(err error) *InputError {
	return &InputError{Kind: KindInvalidJSON, Err: fmt.Errorf("%w: %v", ErrInvalidJSON, err)}
}
