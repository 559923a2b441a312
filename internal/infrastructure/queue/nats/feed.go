package nats

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/epi-console/internal/infrastructure/resilience"
)

const DefaultSubject = "epi.decisions"

type Options struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
	Logger               *slog.Logger
}

// Feed carries "a decision was recorded" nudges between the decision
// service and consoles.
type Feed struct {
	conn     *nats.Conn
	subject  string
	executor *resilience.Executor
	logger   *slog.Logger
}

func New(url, subject string, options Options) (*Feed, error) {
	if subject == "" {
		subject = DefaultSubject
	}
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects == 0 {
		maxReconnects = -1
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := nats.Connect(
		url,
		nats.Name("epi-console"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Feed{
		conn:     conn,
		subject:  subject,
		executor: options.ResilienceExecutor,
		logger:   logger,
	}, nil
}

func (f *Feed) Close() {
	if f.conn != nil {
		f.conn.Close()
	}
}

// PublishDecision announces a decision this console just obtained so other
// consoles refresh without waiting for their next poll.
func (f *Feed) PublishDecision(ctx context.Context, decisionID string) error {
	call := func(_ context.Context) error {
		if err := f.conn.Publish(f.subject, []byte(decisionID)); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}

	var err error
	if f.executor != nil {
		err = f.executor.Execute(ctx, "nats.publish", call, classifyNATSError)
	} else {
		err = call(ctx)
	}
	return wrapTemporaryIfNeeded(err)
}

// SubscribeDecisions calls handler once per burst of nudges and blocks until
// ctx is done. A nudge that arrives while handler runs schedules exactly one
// more call.
func (f *Feed) SubscribeDecisions(ctx context.Context, handler func(context.Context)) error {
	pending := newCoalescer()
	sub, err := f.conn.Subscribe(f.subject, func(msg *nats.Msg) {
		f.logger.Debug("decision_nudge_received", "subject", msg.Subject, "decision_id", string(msg.Data))
		pending.signal()
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}
	if err := f.conn.Flush(); err != nil {
		_ = sub.Unsubscribe()
		return fmt.Errorf("nats flush: %w", err)
	}

	pending.run(ctx, handler)

	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	return nil
}

type coalescer struct {
	ch chan struct{}
}

func newCoalescer() *coalescer {
	return &coalescer{ch: make(chan struct{}, 1)}
}

func (c *coalescer) signal() {
	select {
	case c.ch <- struct{}{}:
	default:
	}
}

func (c *coalescer) run(ctx context.Context, handler func(context.Context)) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.ch:
			handler(ctx)
		}
	}
}
