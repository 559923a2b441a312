package usecase

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/epi-console/internal/core/domain"
	"github.com/kirillkom/epi-console/internal/core/ports"
)

const (
	TitleApproved     = "✅ Acesso Aprovado"
	TitleRejected     = "❌ Acesso Negado"
	TitleError        = "Erro"
	DescriptionFailed = "Erro ao processar orquestração"
)

// SubmitObserver receives one observation per submission attempt.
type SubmitObserver interface {
	ObserveSubmission(outcome string, duration time.Duration)
}

// SubmissionError is returned for a failed submission and carries the
// notification raised for it.
type SubmissionError struct {
	Notification domain.Notification
	Err          error
}

func (e *SubmissionError) Error() string { return e.Err.Error() }
func (e *SubmissionError) Unwrap() error { return e.Err }

type SubmitOptions struct {
	Journal   ports.SubmissionJournal
	Publisher ports.DecisionPublisher
	Observer  SubmitObserver
	Logger    *slog.Logger
}

type SubmitUseCase struct {
	composer  *Composer
	api       ports.OrchestratorAPI
	board     *Dashboard
	refresher ports.Refresher
	journal   ports.SubmissionJournal
	publisher ports.DecisionPublisher
	observer  SubmitObserver
	logger    *slog.Logger

	inFlight atomic.Bool
}

func NewSubmitUseCase(
	composer *Composer,
	api ports.OrchestratorAPI,
	board *Dashboard,
	refresher ports.Refresher,
	opts SubmitOptions,
) *SubmitUseCase {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &SubmitUseCase{
		composer:  composer,
		api:       api,
		board:     board,
		refresher: refresher,
		journal:   opts.Journal,
		publisher: opts.Publisher,
		observer:  opts.Observer,
		logger:    logger,
	}
}

// InFlight reports whether a submission is outstanding.
func (uc *SubmitUseCase) InFlight() bool {
	return uc.inFlight.Load()
}

// Submit sends the composed request and reports the verdict as a
// notification. Only one submission may be outstanding at a time.
func (uc *SubmitUseCase) Submit(ctx context.Context) (domain.Decision, error) {
	req, err := uc.composer.Build()
	if err != nil {
		uc.observe("refused", 0)
		return domain.Decision{}, err
	}
	if !uc.inFlight.CompareAndSwap(false, true) {
		uc.observe("busy", 0)
		return domain.Decision{}, domain.ErrSubmissionInFlight
	}
	uc.board.SetSubmitting(true)
	defer func() {
		uc.inFlight.Store(false)
		uc.board.SetSubmitting(false)
	}()

	start := time.Now()
	decision, err := uc.api.Submit(ctx, req)
	duration := time.Since(start)

	entry := domain.JournalEntry{
		ID:          uuid.NewString(),
		RequestID:   domain.RequestIDFromContext(ctx),
		Request:     req,
		SubmittedAt: start.UTC(),
		Duration:    duration,
	}

	if err != nil {
		kind := domain.FailureKindOf(err)
		uc.logger.Error("submission_failed", "failure_kind", kind, "error", err)
		uc.observe("error", duration)
		n := uc.board.Notify(domain.NotificationDestructive, TitleError, failureDescription(kind))
		entry.FailureKind = string(kind)
		entry.Error = err.Error()
		uc.record(ctx, entry)
		return domain.Decision{}, &SubmissionError{
			Notification: n,
			Err:          domain.WrapError(domain.ErrUpstream, "submit orchestration", err),
		}
	}

	uc.logger.Info("submission_completed",
		"decision_id", decision.ID,
		"decision", decision.Decision,
		"duration_ms", duration.Milliseconds(),
	)
	uc.observe(string(decision.Decision), duration)
	if decision.Approved() {
		uc.board.Notify(domain.NotificationSuccess, TitleApproved, decision.Reason)
	} else {
		uc.board.Notify(domain.NotificationDestructive, TitleRejected, decision.Reason)
	}
	entry.Decision = &decision
	uc.record(ctx, entry)
	uc.publish(ctx, decision.ID)

	if uc.refresher != nil {
		uc.refresher.RefreshNow(context.WithoutCancel(ctx))
	}
	return decision, nil
}

func (uc *SubmitUseCase) record(ctx context.Context, entry domain.JournalEntry) {
	if uc.journal == nil {
		return
	}
	if err := uc.journal.Record(context.WithoutCancel(ctx), entry); err != nil {
		uc.logger.Warn("journal_record_failed", "entry_id", entry.ID, "error", err)
	}
}

func (uc *SubmitUseCase) publish(ctx context.Context, decisionID string) {
	if uc.publisher == nil {
		return
	}
	if err := uc.publisher.PublishDecision(context.WithoutCancel(ctx), decisionID); err != nil {
		uc.logger.Warn("decision_publish_failed", "decision_id", decisionID, "error", err)
	}
}

func (uc *SubmitUseCase) observe(outcome string, duration time.Duration) {
	if uc.observer != nil {
		uc.observer.ObserveSubmission(outcome, duration)
	}
}

func failureDescription(kind domain.FailureKind) string {
	if kind == domain.FailureNone || kind == domain.FailureUnknown {
		return DescriptionFailed
	}
	return DescriptionFailed + " (" + string(kind) + ")"
}
