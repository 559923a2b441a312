package nats

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sony/gobreaker/v2"

	"github.com/kirillkom/epi-console/internal/core/domain"
)

func TestClassifyNATSError(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		retryable bool
		record    bool
	}{
		{name: "nil", err: nil},
		{name: "canceled", err: context.Canceled},
		{name: "no servers", err: fmt.Errorf("publish: %w", nats.ErrNoServers), retryable: true, record: true},
		{name: "reconnecting", err: nats.ErrConnectionReconnecting, retryable: true, record: true},
		{name: "open circuit", err: gobreaker.ErrOpenState, record: true},
		{name: "bad subject", err: nats.ErrBadSubject, record: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			class := classifyNATSError(tc.err)
			if class.Retryable != tc.retryable || class.RecordFailure != tc.record {
				t.Fatalf("unexpected classification %+v", class)
			}
		})
	}
}

func TestWrapTemporaryIfNeeded(t *testing.T) {
	if err := wrapTemporaryIfNeeded(nats.ErrTimeout); !errors.Is(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary wrap, got %v", err)
	}
	if err := wrapTemporaryIfNeeded(gobreaker.ErrOpenState); !errors.Is(err, domain.ErrTemporary) {
		t.Fatalf("expected open circuit to be temporary, got %v", err)
	}
	if err := wrapTemporaryIfNeeded(nats.ErrBadSubject); errors.Is(err, domain.ErrTemporary) {
		t.Fatalf("permanent error must not be wrapped as temporary")
	}
}

func TestCoalescerCollapsesBursts(t *testing.T) {
	c := newCoalescer()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	release := make(chan struct{})
	started := make(chan struct{}, 4)
	go c.run(ctx, func(context.Context) {
		calls.Add(1)
		started <- struct{}{}
		<-release
	})

	c.signal()
	<-started
	for i := 0; i < 10; i++ {
		c.signal()
	}
	close(release)
	<-started

	time.Sleep(20 * time.Millisecond)
	if got := calls.Load(); got != 2 {
		t.Fatalf("expected burst to collapse into one extra call, got %d calls", got)
	}
}
