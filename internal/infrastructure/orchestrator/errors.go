package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/kirillkom/epi-console/internal/core/domain"
	"github.com/kirillkom/epi-console/internal/infrastructure/resilience"
)

const bodyExcerptLimit = 2048

type HTTPStatusError struct {
	Operation  string
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "orchestrator status error"
	}
	if strings.TrimSpace(e.Body) == "" {
		return fmt.Sprintf("orchestrator %s status: %s", e.Operation, e.Status)
	}
	return fmt.Sprintf("orchestrator %s status: %s: %s", e.Operation, e.Status, strings.TrimSpace(e.Body))
}

// ContractError is returned when a request fails local contract validation.
type ContractError struct {
	Err error
}

func (e *ContractError) Error() string {
	return "orchestration request violates contract: " + e.Err.Error()
}

func (e *ContractError) Unwrap() error { return e.Err }

// DecodeError wraps a response body that could not be parsed.
type DecodeError struct {
	Operation string
	Err       error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s response: %v", e.Operation, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// CallError carries the classified failure of one client operation.
type CallError struct {
	Operation string
	Kind      domain.FailureKind
	Err       error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("orchestrator %s (%s): %v", e.Operation, e.Kind, e.Err)
}

func (e *CallError) Unwrap() error { return e.Err }

func (e *CallError) FailureKind() domain.FailureKind { return e.Kind }

func Classify(err error) domain.FailureKind {
	if err == nil {
		return domain.FailureNone
	}
	var callErr *CallError
	if errors.As(err, &callErr) {
		return callErr.Kind
	}

	var contractErr *ContractError
	var statusErr *HTTPStatusError
	var decodeErr *DecodeError
	var netErr net.Error
	switch {
	case errors.As(err, &contractErr):
		return domain.FailureInvalidRequest
	case resilience.IsCircuitOpen(err):
		return domain.FailureCircuitOpen
	case errors.As(err, &statusErr):
		return domain.FailureStatus
	case errors.As(err, &decodeErr):
		return domain.FailureDecode
	case errors.Is(err, context.DeadlineExceeded):
		return domain.FailureTimeout
	case errors.As(err, &netErr):
		if netErr.Timeout() {
			return domain.FailureTimeout
		}
		return domain.FailureNetwork
	default:
		return domain.FailureNetwork
	}
}

// wrapCallError attaches the failure kind and the domain error kind callers
// branch on.
func wrapCallError(operation string, err error) error {
	if err == nil {
		return nil
	}
	kind := Classify(err)
	wrapped := &CallError{Operation: operation, Kind: kind, Err: err}
	switch kind {
	case domain.FailureInvalidRequest:
		return domain.WrapError(domain.ErrInvalidInput, operation, wrapped)
	case domain.FailureNetwork, domain.FailureTimeout, domain.FailureCircuitOpen:
		return domain.WrapError(domain.ErrTemporary, operation, wrapped)
	default:
		return wrapped
	}
}

func classifyForRetry(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) {
		return resilience.ErrorClassification{}
	}

	var contractErr *ContractError
	if errors.As(err, &contractErr) {
		return resilience.ErrorClassification{}
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		retryable := isRetryableHTTPStatus(statusErr.StatusCode)
		return resilience.ErrorClassification{Retryable: retryable, RecordFailure: retryable}
	}

	var decodeErr *DecodeError
	if errors.As(err, &decodeErr) {
		return resilience.ErrorClassification{RecordFailure: true}
	}

	return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
}

func isRetryableHTTPStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests, http.StatusInternalServerError,
		http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
