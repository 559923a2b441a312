package resilience

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
)

var errTransient = errors.New("transient")

func fastConfig(breaker bool) Config {
	return Config{
		RetryMaxAttempts:        3,
		RetryInitialBackoff:     time.Millisecond,
		RetryMaxBackoff:         2 * time.Millisecond,
		RetryMultiplier:         2,
		BreakerEnabled:          breaker,
		BreakerMinRequests:      2,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      time.Minute,
		BreakerHalfOpenMaxCalls: 1,
	}
}

func retryTransient(err error) ErrorClassification {
	return ErrorClassification{Retryable: errors.Is(err, errTransient), RecordFailure: true}
}

func quiet() Option {
	return WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestExecuteRetriesTransientFailure(t *testing.T) {
	exec := NewExecutor(fastConfig(false), quiet())

	attempts := 0
	err := exec.Execute(context.Background(), "get_stats", func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errTransient
		}
		return nil
	}, retryTransient)
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestExecuteDoesNotRetryPermanentFailure(t *testing.T) {
	exec := NewExecutor(fastConfig(false), quiet())

	attempts := 0
	errPermanent := errors.New("permanent")
	err := exec.Execute(context.Background(), "get_stats", func(context.Context) error {
		attempts++
		return errPermanent
	}, retryTransient)
	if !errors.Is(err, errPermanent) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", attempts)
	}
}

func TestExecuteOnceNeverRetries(t *testing.T) {
	exec := NewExecutor(fastConfig(true), quiet())

	attempts := 0
	err := exec.ExecuteOnce(context.Background(), "submit", func(context.Context) error {
		attempts++
		return errTransient
	}, retryTransient)
	if !errors.Is(err, errTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected a single attempt, got %d", attempts)
	}
}

func TestExecuteReturnsLastErrorWhenContextEnds(t *testing.T) {
	exec := NewExecutor(Config{
		RetryMaxAttempts:    5,
		RetryInitialBackoff: time.Second,
		RetryMaxBackoff:     time.Second,
	}, quiet())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := exec.Execute(ctx, "get_stats", func(context.Context) error {
		return errTransient
	}, retryTransient)
	if !errors.Is(err, errTransient) {
		t.Fatalf("expected last attempt error, got %v", err)
	}
}

func TestExecuteOpensCircuitAndNotifiesObserver(t *testing.T) {
	var transitions []gobreaker.State
	exec := NewExecutor(fastConfig(true), quiet(), WithStateObserver(func(_ string, _, to gobreaker.State) {
		transitions = append(transitions, to)
	}))

	classifier := func(error) ErrorClassification { return ErrorClassification{RecordFailure: true} }
	for i := 0; i < 2; i++ {
		err := exec.Execute(context.Background(), "get_decisions", func(context.Context) error {
			return errTransient
		}, classifier)
		if !errors.Is(err, errTransient) {
			t.Fatalf("expected transient error on iteration %d, got %v", i, err)
		}
	}

	err := exec.Execute(context.Background(), "get_decisions", func(context.Context) error {
		t.Fatalf("circuit should be open and must not call operation")
		return nil
	}, classifier)
	if !IsCircuitOpen(err) {
		t.Fatalf("expected open state error, got %v", err)
	}
	if exec.State("get_decisions") != gobreaker.StateOpen {
		t.Fatalf("expected open breaker, got %s", exec.State("get_decisions"))
	}
	if exec.State("get_stats") != gobreaker.StateClosed {
		t.Fatalf("expected untouched operation to report closed")
	}
	if len(transitions) != 1 || transitions[0] != gobreaker.StateOpen {
		t.Fatalf("unexpected transitions: %v", transitions)
	}
}

func TestExecuteIgnoresUnrecordedFailures(t *testing.T) {
	exec := NewExecutor(fastConfig(true), quiet())
	classifier := func(error) ErrorClassification { return ErrorClassification{} }

	for i := 0; i < 5; i++ {
		_ = exec.Execute(context.Background(), "submit", func(context.Context) error {
			return errors.New("bad request")
		}, classifier)
	}
	if exec.State("submit") != gobreaker.StateClosed {
		t.Fatalf("client errors must not trip the breaker")
	}
}
