package ports

import (
	"context"

	"github.com/kirillkom/epi-console/internal/core/domain"
)

// OrchestratorAPI is the external decision service.
type OrchestratorAPI interface {
	GetStats(ctx context.Context) (domain.StatsSnapshot, error)
	GetRecentDecisions(ctx context.Context, limit int) ([]domain.Decision, error)
	Submit(ctx context.Context, req domain.OrchestrationRequest) (domain.Decision, error)
}

// DecisionFeed delivers push nudges whenever the service records a decision.
type DecisionFeed interface {
	SubscribeDecisions(ctx context.Context, handler func(context.Context)) error
}

// DecisionPublisher announces a decision recorded through this console so
// other consoles refresh without waiting for their next poll.
type DecisionPublisher interface {
	PublishDecision(ctx context.Context, decisionID string) error
}

// SubmissionJournal keeps an operator-side record of submission attempts.
type SubmissionJournal interface {
	Record(ctx context.Context, entry domain.JournalEntry) error
}

type JournalReader interface {
	Recent(ctx context.Context, limit int) ([]domain.JournalEntry, error)
}

// DecisionExporter renders a decision window into a downloadable document.
type DecisionExporter interface {
	Export(decisions []domain.Decision) ([]byte, error)
}
