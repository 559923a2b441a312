package domain

import "time"

type DecisionStatus string

const (
	DecisionApproved DecisionStatus = "approved"
	DecisionRejected DecisionStatus = "rejected"
	DecisionPending  DecisionStatus = "pending"
)

// Decision is produced by the orchestration service. Unknown status values
// are kept verbatim so callers can render them as pending.
type Decision struct {
	ID              string         `json:"id"`
	Decision        DecisionStatus `json:"decision"`
	Reason          string         `json:"reason"`
	ConfidenceScore float64        `json:"confidence_score"`
	PersonID        *string        `json:"person_id,omitempty"`
	Location        *string        `json:"location,omitempty"`
	FaceEventID     *string        `json:"face_event_id,omitempty"`
	EpiEventIDs     []string       `json:"epi_event_ids,omitempty"`
	Timestamp       time.Time      `json:"timestamp"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

func (d Decision) Approved() bool {
	return d.Decision == DecisionApproved
}

type StatsSnapshot struct {
	TotalDecisions    int `json:"total_decisions"`
	ApprovedDecisions int `json:"approved_decisions"`
	RejectedDecisions int `json:"rejected_decisions"`
	PendingDecisions  int `json:"pending_decisions"`
	TotalFaceEvents   int `json:"total_face_events"`
	TotalEpiEvents    int `json:"total_epi_events"`
}

// ServiceStatus is the banner returned by GET /api/.
type ServiceStatus struct {
	Message string `json:"message"`
	Version string `json:"version"`
	Status  string `json:"status"`
}

// JournalEntry records one submission attempt and its outcome.
type JournalEntry struct {
	ID          string               `json:"id"`
	RequestID   string               `json:"request_id,omitempty"`
	Request     OrchestrationRequest `json:"request"`
	Decision    *Decision            `json:"decision,omitempty"`
	FailureKind string               `json:"failure_kind,omitempty"`
	Error       string               `json:"error,omitempty"`
	SubmittedAt time.Time            `json:"submitted_at"`
	Duration    time.Duration        `json:"duration_ns"`
}
