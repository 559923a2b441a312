package presentation

import (
	"time"

	"github.com/kirillkom/epi-console/internal/core/domain"
	"github.com/kirillkom/epi-console/internal/core/usecase"
)

type NotificationView struct {
	ID          string                  `json:"id"`
	Kind        domain.NotificationKind `json:"kind"`
	Title       string                  `json:"title"`
	Description string                  `json:"description"`
}

type ViewModel struct {
	Title             string             `json:"title"`
	Subtitle          string             `json:"subtitle"`
	Health            string             `json:"health"`
	Healthy           bool               `json:"healthy"`
	ServiceVersion    string             `json:"service_version,omitempty"`
	Cards             []Card             `json:"cards"`
	StatsFreshness    string             `json:"stats_freshness"`
	StatsFreshSince   int64              `json:"stats_fresh_since,omitempty"`
	History           History            `json:"history"`
	HistoryFreshness  string             `json:"history_freshness"`
	HistoryFreshSince int64              `json:"history_fresh_since,omitempty"`
	Simulator         Simulator          `json:"simulator"`
	Notifications     []NotificationView `json:"notifications"`
	GeneratedAt       string             `json:"generated_at"`
}

// Builder turns use case state into the view model shared by every renderer.
type Builder struct {
	Location *time.Location
	Service  domain.ServiceStatus
}

func (b Builder) Build(state usecase.DashboardState, form usecase.ComposerState) ViewModel {
	healthy := state.StatsStatus.LastSuccessAt != nil && !state.StatsStatus.Stale
	health := "Sem conexão"
	if healthy {
		health = "Operacional"
	}

	notifications := make([]NotificationView, 0, len(state.Notifications))
	for _, n := range state.Notifications {
		notifications = append(notifications, NotificationView{
			ID:          n.ID,
			Kind:        n.Kind,
			Title:       n.Title,
			Description: n.Description,
		})
	}

	return ViewModel{
		Title:             "EPI Orchestrator",
		Subtitle:          "Sistema de Orquestração de Segurança",
		Health:            health,
		Healthy:           healthy,
		ServiceVersion:    b.Service.Version,
		Cards:             StatsCards(state.Stats),
		StatsFreshness:    Freshness(state.StatsStatus, state.GeneratedAt, b.Location),
		StatsFreshSince:   freshSince(state.StatsStatus),
		History:           HistoryView(state.Decisions, b.Location),
		HistoryFreshness:  Freshness(state.HistoryStatus, state.GeneratedAt, b.Location),
		HistoryFreshSince: freshSince(state.HistoryStatus),
		Simulator:         SimulatorView(form, state.Submitting),
		Notifications:     notifications,
		GeneratedAt:       FormatTimestamp(state.GeneratedAt, b.Location),
	}
}

// freshSince is the last success in unix milliseconds while the resource is
// fresh, so the page can age the freshness line between pushes. Zero
// otherwise.
func freshSince(status usecase.ResourceStatus) int64 {
	if status.LastSuccessAt == nil || status.Stale {
		return 0
	}
	return status.LastSuccessAt.UnixMilli()
}
