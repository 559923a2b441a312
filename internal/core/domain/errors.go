package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrNoEpiEvents        = errors.New("at least one epi event is required")
	ErrSubmissionInFlight = errors.New("submission already in flight")
	ErrTemporary          = errors.New("temporary failure")
	ErrUpstream           = errors.New("orchestrator failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
