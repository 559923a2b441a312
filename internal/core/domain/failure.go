package domain

import "errors"

// FailureKind names why a call to the decision service failed.
type FailureKind string

const (
	FailureNone           FailureKind = ""
	FailureNetwork        FailureKind = "network"
	FailureTimeout        FailureKind = "timeout"
	FailureStatus         FailureKind = "status"
	FailureDecode         FailureKind = "decode"
	FailureCircuitOpen    FailureKind = "circuit_open"
	FailureInvalidRequest FailureKind = "invalid_request"
	FailureUnknown        FailureKind = "unknown"
)

type failureKinder interface {
	FailureKind() FailureKind
}

// FailureKindOf walks the error chain for a classified failure.
func FailureKindOf(err error) FailureKind {
	if err == nil {
		return FailureNone
	}
	var kinder failureKinder
	if errors.As(err, &kinder) {
		return kinder.FailureKind()
	}
	if errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrNoEpiEvents) {
		return FailureInvalidRequest
	}
	return FailureUnknown
}
