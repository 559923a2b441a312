package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kirillkom/epi-console/internal/core/domain"
	"github.com/kirillkom/epi-console/internal/infrastructure/resilience"
)

const (
	opStatus    = "status"
	opStats     = "get_stats"
	opDecisions = "get_decisions"
	opSubmit    = "submit"

	DefaultDecisionsLimit = 10
)

// RequestObserver receives one observation per client operation.
type RequestObserver interface {
	ObserveBackendRequest(operation string, kind domain.FailureKind, duration time.Duration)
}

type Options struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	// Reads share Executor; submissions go through SubmitExecutor with
	// retries disabled. Either may be nil.
	Executor       *resilience.Executor
	SubmitExecutor *resilience.Executor
	Contract       *Contract
	Observer       RequestObserver
	Logger         *slog.Logger
}

// Client talks to the orchestration service under <BaseURL>/api.
type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	reads      *resilience.Executor
	submits    *resilience.Executor
	contract   *Contract
	observer   RequestObserver
	logger     *slog.Logger
}

func New(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/") + "/api",
		timeout:    timeout,
		httpClient: httpClient,
		reads:      opts.Executor,
		submits:    opts.SubmitExecutor,
		contract:   opts.Contract,
		observer:   opts.Observer,
		logger:     logger,
	}
}

// Status returns the service banner.
func (c *Client) Status(ctx context.Context) (domain.ServiceStatus, error) {
	var out domain.ServiceStatus
	err := c.read(ctx, opStatus, func(ctx context.Context) error {
		return c.doJSON(ctx, http.MethodGet, "/", nil, nil, &out, opStatus)
	})
	if err != nil {
		return domain.ServiceStatus{}, err
	}
	return out, nil
}

func (c *Client) GetStats(ctx context.Context) (domain.StatsSnapshot, error) {
	var out domain.StatsSnapshot
	err := c.read(ctx, opStats, func(ctx context.Context) error {
		return c.doJSON(ctx, http.MethodGet, "/stats", nil, nil, &out, opStats)
	})
	if err != nil {
		return domain.StatsSnapshot{}, err
	}
	return out, nil
}

// GetRecentDecisions returns the newest decisions in server order.
func (c *Client) GetRecentDecisions(ctx context.Context, limit int) ([]domain.Decision, error) {
	return c.GetDecisionsByStatus(ctx, limit, "")
}

// GetDecisionsByStatus is GetRecentDecisions filtered server-side by verdict.
func (c *Client) GetDecisionsByStatus(ctx context.Context, limit int, status domain.DecisionStatus) ([]domain.Decision, error) {
	if limit <= 0 {
		limit = DefaultDecisionsLimit
	}
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	if status != "" {
		query.Set("status", string(status))
	}

	var wire []decisionDTO
	err := c.read(ctx, opDecisions, func(ctx context.Context) error {
		wire = nil
		return c.doJSON(ctx, http.MethodGet, "/decisions", query, nil, &wire, opDecisions)
	})
	if err != nil {
		return nil, err
	}

	out := make([]domain.Decision, 0, len(wire))
	for i, dto := range wire {
		decision, err := dto.toDomain()
		if err != nil {
			return nil, wrapCallError(opDecisions, &DecodeError{Operation: opDecisions, Err: fmt.Errorf("decision %d: %w", i, err)})
		}
		out = append(out, decision)
	}
	return out, nil
}

// Submit posts one orchestration request. It is never retried: a timed-out
// submission may still have been recorded by the service.
func (c *Client) Submit(ctx context.Context, req domain.OrchestrationRequest) (domain.Decision, error) {
	if len(req.RequiredEpis) == 0 {
		req.RequiredEpis = []domain.EpiType{domain.EpiHelmet}
	}
	if err := c.contract.ValidateRequest(req); err != nil {
		c.observe(opSubmit, domain.FailureInvalidRequest, 0)
		return domain.Decision{}, wrapCallError(opSubmit, err)
	}

	var dto decisionDTO
	call := func(ctx context.Context) error {
		return c.doJSON(ctx, http.MethodPost, "/orchestrate", nil, req, &dto, opSubmit)
	}

	start := time.Now()
	var err error
	if c.submits != nil {
		err = c.submits.ExecuteOnce(ctx, opSubmit, call, classifyForRetry)
	} else {
		err = call(ctx)
	}
	if err == nil {
		var decision domain.Decision
		decision, err = dto.toDomain()
		if err != nil {
			err = &DecodeError{Operation: opSubmit, Err: err}
		} else {
			c.observe(opSubmit, domain.FailureNone, time.Since(start))
			return decision, nil
		}
	}

	wrapped := wrapCallError(opSubmit, err)
	c.observe(opSubmit, Classify(err), time.Since(start))
	return domain.Decision{}, wrapped
}

func (c *Client) read(ctx context.Context, operation string, call func(context.Context) error) error {
	start := time.Now()
	var err error
	if c.reads != nil {
		err = c.reads.Execute(ctx, operation, call, classifyForRetry)
	} else {
		err = call(ctx)
	}
	c.observe(operation, Classify(err), time.Since(start))
	if err != nil {
		c.logger.Debug("orchestrator_request_failed", "operation", operation, "failure_kind", Classify(err), "error", err)
	}
	return wrapCallError(operation, err)
}

func (c *Client) observe(operation string, kind domain.FailureKind, duration time.Duration) {
	if c.observer != nil {
		c.observer.ObserveBackendRequest(operation, kind, duration)
	}
}
