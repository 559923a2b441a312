package orchestrator

import (
	"fmt"
	"strings"
	"time"

	"github.com/kirillkom/epi-console/internal/core/domain"
)

// The service emits ISO-8601 timestamps that may lack a zone offset when the
// database drops it; zone-less values are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

type decisionDTO struct {
	ID              string                `json:"id"`
	Decision        domain.DecisionStatus `json:"decision"`
	Reason          string                `json:"reason"`
	ConfidenceScore float64               `json:"confidence_score"`
	PersonID        *string               `json:"person_id"`
	Location        *string               `json:"location"`
	FaceEventID     *string               `json:"face_event_id"`
	EpiEventIDs     []string              `json:"epi_event_ids"`
	Timestamp       string                `json:"timestamp"`
	Metadata        map[string]any        `json:"metadata"`
}

func (d decisionDTO) toDomain() (domain.Decision, error) {
	ts, err := parseTimestamp(d.Timestamp)
	if err != nil {
		return domain.Decision{}, err
	}
	return domain.Decision{
		ID:              d.ID,
		Decision:        d.Decision,
		Reason:          d.Reason,
		ConfidenceScore: d.ConfidenceScore,
		PersonID:        d.PersonID,
		Location:        d.Location,
		FaceEventID:     d.FaceEventID,
		EpiEventIDs:     d.EpiEventIDs,
		Timestamp:       ts,
		Metadata:        d.Metadata,
	}, nil
}

func parseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", raw)
}
