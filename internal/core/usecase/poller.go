package usecase

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kirillkom/epi-console/internal/core/domain"
	"github.com/kirillkom/epi-console/internal/core/ports"
)

type PollerState string

const (
	PollerIdle    PollerState = "idle"
	PollerPolling PollerState = "polling"
)

// PollObserver receives one observation per completed fetch.
type PollObserver interface {
	ObservePoll(resource, status string, duration time.Duration)
}

type PollerOptions struct {
	Interval       time.Duration
	Jitter         time.Duration
	DecisionsLimit int
	FetchTimeout   time.Duration
	Observer       PollObserver
	Logger         *slog.Logger
}

// Poller refreshes statistics and recent decisions on a fixed cadence.
type Poller struct {
	api   ports.OrchestratorAPI
	board *Dashboard
	opts  PollerOptions

	mu         sync.Mutex
	state      PollerState
	cancel     context.CancelFunc
	done       chan struct{}
	generation atomic.Uint64

	// applyMu makes the generation check and the dashboard write one step,
	// so Stop never interleaves with an apply.
	applyMu sync.Mutex

	statsBusy     atomic.Bool
	decisionsBusy atomic.Bool
}

func NewPoller(api ports.OrchestratorAPI, board *Dashboard, opts PollerOptions) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = 5 * time.Second
	}
	if opts.Jitter < 0 {
		opts.Jitter = 0
	}
	if opts.DecisionsLimit <= 0 {
		opts.DecisionsLimit = 10
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Poller{
		api:   api,
		board: board,
		opts:  opts,
		state: PollerIdle,
	}
}

func (p *Poller) State() PollerState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Start fetches both resources immediately and then on every interval until
// Stop is called or ctx is done. Starting a running poller is a no-op.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == PollerPolling {
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.state = PollerPolling
	gen := p.generation.Add(1)

	go p.run(loopCtx, gen, p.done)
}

// Stop disarms the timer and waits for the loop to exit. Fetches already in
// flight are not aborted, but their results are dropped. An apply already
// underway finishes before Stop returns.
func (p *Poller) Stop() {
	p.mu.Lock()
	if p.state != PollerPolling {
		p.mu.Unlock()
		return
	}
	p.applyMu.Lock()
	p.generation.Add(1)
	p.applyMu.Unlock()
	p.state = PollerIdle
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	cancel()
	<-done
}

// RefreshNow re-reads both resources and waits for the results. Unlike
// scheduled ticks it never skips a resource that is already being fetched.
func (p *Poller) RefreshNow(ctx context.Context) {
	gen := p.generation.Load()
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		p.fetchStats(ctx, gen)
	}()
	go func() {
		defer wg.Done()
		p.fetchDecisions(ctx, gen)
	}()
	wg.Wait()
}

func (p *Poller) run(ctx context.Context, gen uint64, done chan struct{}) {
	defer close(done)

	fetchCtx := context.WithoutCancel(ctx)
	p.tick(fetchCtx, gen)

	timer := time.NewTimer(p.nextDelay())
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			p.tick(fetchCtx, gen)
			timer.Reset(p.nextDelay())
		}
	}
}

func (p *Poller) tick(ctx context.Context, gen uint64) {
	if p.statsBusy.CompareAndSwap(false, true) {
		go func() {
			defer p.statsBusy.Store(false)
			p.fetchStats(ctx, gen)
		}()
	} else {
		p.opts.Logger.Debug("poll_skipped", "resource", ResourceStats)
		p.observe(ResourceStats, "skipped", 0)
	}

	if p.decisionsBusy.CompareAndSwap(false, true) {
		go func() {
			defer p.decisionsBusy.Store(false)
			p.fetchDecisions(ctx, gen)
		}()
	} else {
		p.opts.Logger.Debug("poll_skipped", "resource", ResourceDecisions)
		p.observe(ResourceDecisions, "skipped", 0)
	}
}

func (p *Poller) fetchStats(ctx context.Context, gen uint64) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	stats, err := p.api.GetStats(ctx)

	p.applyMu.Lock()
	defer p.applyMu.Unlock()
	if !p.current(gen) {
		p.observe(ResourceStats, "discarded", time.Since(start))
		return
	}
	if err != nil {
		p.opts.Logger.Warn("poll_failed", "resource", ResourceStats, "error", err)
		p.observe(ResourceStats, "error", time.Since(start))
		p.board.StatsFailed(err)
		return
	}
	p.observe(ResourceStats, "success", time.Since(start))
	p.board.ApplyStats(stats)
}

func (p *Poller) fetchDecisions(ctx context.Context, gen uint64) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	decisions, err := p.api.GetRecentDecisions(ctx, p.opts.DecisionsLimit)

	p.applyMu.Lock()
	defer p.applyMu.Unlock()
	if !p.current(gen) {
		p.observe(ResourceDecisions, "discarded", time.Since(start))
		return
	}
	if err != nil {
		p.opts.Logger.Warn("poll_failed", "resource", ResourceDecisions, "error", err)
		p.observe(ResourceDecisions, "error", time.Since(start))
		p.board.DecisionsFailed(err)
		return
	}
	if decisions == nil {
		decisions = []domain.Decision{}
	}
	p.observe(ResourceDecisions, "success", time.Since(start))
	p.board.ApplyDecisions(decisions)
}

func (p *Poller) current(gen uint64) bool {
	return p.generation.Load() == gen
}

func (p *Poller) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.opts.FetchTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.opts.FetchTimeout)
}

func (p *Poller) nextDelay() time.Duration {
	if p.opts.Jitter <= 0 {
		return p.opts.Interval
	}
	return p.opts.Interval + time.Duration(rand.Int64N(int64(p.opts.Jitter)+1))
}

func (p *Poller) observe(resource, status string, duration time.Duration) {
	if p.opts.Observer != nil {
		p.opts.Observer.ObservePoll(resource, status, duration)
	}
}
