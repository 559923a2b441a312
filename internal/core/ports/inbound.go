package ports

import (
	"context"

	"github.com/kirillkom/epi-console/internal/core/domain"
)

// Refresher re-reads statistics and recent decisions out of band.
type Refresher interface {
	RefreshNow(ctx context.Context)
}

// SubmissionService submits the composed request.
type SubmissionService interface {
	Submit(ctx context.Context) (domain.Decision, error)
}
