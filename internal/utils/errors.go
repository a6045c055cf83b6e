package utils

import (
	"errors"
	"fmt"
)

// ErrNoBaselineData signals an anomaly injection against an empty buffer:
// there is no sample to mutate from, and no state is touched.
var ErrNoBaselineData = errors.New("no baseline telemetry available to mutate")

// ErrUnknownAnomalyType signals an injection request with an unrecognised
// anomaly kind.
var ErrUnknownAnomalyType = errors.New("unknown anomaly type")

// AppError wraps an operation, human-facing message, and underlying error.
type AppError struct {
	Op  string
	Msg string
	Err error
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(op, msg string, err error) error {
	return &AppError{Op: op, Msg: msg, Err: err}
}
