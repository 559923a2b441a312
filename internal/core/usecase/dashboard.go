package usecase

import (
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/epi-console/internal/core/domain"
)

const (
	ResourceStats     = "stats"
	ResourceDecisions = "decisions"

	maxNotifications = 5
)

// ResourceStatus tracks freshness of one polled resource.
type ResourceStatus struct {
	LastSuccessAt *time.Time `json:"last_success_at,omitempty"`
	LastAttemptAt *time.Time `json:"last_attempt_at,omitempty"`
	LastError     string     `json:"last_error,omitempty"`
	Stale         bool       `json:"stale"`
}

// DashboardState is an immutable copy handed to renderers and subscribers.
type DashboardState struct {
	Stats         *domain.StatsSnapshot `json:"stats"`
	Decisions     []domain.Decision     `json:"decisions"`
	Notifications []domain.Notification `json:"notifications"`
	Submitting    bool                  `json:"submitting"`
	StatsStatus   ResourceStatus        `json:"stats_status"`
	HistoryStatus ResourceStatus        `json:"history_status"`
	GeneratedAt   time.Time             `json:"generated_at"`
}

// Dashboard owns the latest server data and notification queue.
type Dashboard struct {
	staleAfter time.Duration
	now        func() time.Time

	mu            sync.Mutex
	stats         *domain.StatsSnapshot
	decisions     []domain.Decision
	notifications []domain.Notification
	submitting    bool
	statsStatus   ResourceStatus
	historyStatus ResourceStatus

	listenersMu sync.Mutex
	listeners   map[int]func()
	nextID      int
}

func NewDashboard(staleAfter time.Duration) *Dashboard {
	if staleAfter <= 0 {
		staleAfter = 15 * time.Second
	}
	return &Dashboard{
		staleAfter: staleAfter,
		now:        time.Now,
		listeners:  make(map[int]func()),
	}
}

// Subscribe registers fn to be called after every change. The returned
// function removes the subscription.
func (d *Dashboard) Subscribe(fn func()) func() {
	d.listenersMu.Lock()
	id := d.nextID
	d.nextID++
	d.listeners[id] = fn
	d.listenersMu.Unlock()

	return func() {
		d.listenersMu.Lock()
		delete(d.listeners, id)
		d.listenersMu.Unlock()
	}
}

func (d *Dashboard) notify() {
	d.listenersMu.Lock()
	listeners := make([]func(), 0, len(d.listeners))
	for _, fn := range d.listeners {
		listeners = append(listeners, fn)
	}
	d.listenersMu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}

// ApplyStats replaces the held snapshot. Subscribers hear about it only when
// the data or the resource's health changed.
func (d *Dashboard) ApplyStats(stats domain.StatsSnapshot) {
	now := d.now()
	d.mu.Lock()
	changed := d.stats == nil || *d.stats != stats || d.recovering(d.statsStatus, now)
	d.stats = &stats
	d.statsStatus = ResourceStatus{LastSuccessAt: &now, LastAttemptAt: &now}
	d.mu.Unlock()
	if changed {
		d.notify()
	}
}

// StatsFailed keeps the previous snapshot and records the failure.
func (d *Dashboard) StatsFailed(err error) {
	now := d.now()
	d.mu.Lock()
	d.statsStatus.LastAttemptAt = &now
	d.statsStatus.LastError = errorText(err)
	d.mu.Unlock()
	d.notify()
}

func (d *Dashboard) ApplyDecisions(decisions []domain.Decision) {
	now := d.now()
	d.mu.Lock()
	changed := d.recovering(d.historyStatus, now) || !sameDecisions(d.decisions, decisions)
	d.decisions = append([]domain.Decision(nil), decisions...)
	d.historyStatus = ResourceStatus{LastSuccessAt: &now, LastAttemptAt: &now}
	d.mu.Unlock()
	if changed {
		d.notify()
	}
}

func (d *Dashboard) DecisionsFailed(err error) {
	now := d.now()
	d.mu.Lock()
	d.historyStatus.LastAttemptAt = &now
	d.historyStatus.LastError = errorText(err)
	d.mu.Unlock()
	d.notify()
}

// Notify queues a notification, keeping only the newest few.
func (d *Dashboard) Notify(kind domain.NotificationKind, title, description string) domain.Notification {
	n := domain.Notification{
		ID:          uuid.NewString(),
		Kind:        kind,
		Title:       title,
		Description: description,
		CreatedAt:   d.now(),
	}
	d.mu.Lock()
	d.notifications = append([]domain.Notification{n}, d.notifications...)
	if len(d.notifications) > maxNotifications {
		d.notifications = d.notifications[:maxNotifications]
	}
	d.mu.Unlock()
	d.notify()
	return n
}

func (d *Dashboard) Dismiss(id string) bool {
	d.mu.Lock()
	found := false
	for i, n := range d.notifications {
		if n.ID == id {
			d.notifications = append(d.notifications[:i:i], d.notifications[i+1:]...)
			found = true
			break
		}
	}
	d.mu.Unlock()
	if found {
		d.notify()
	}
	return found
}

func (d *Dashboard) SetSubmitting(submitting bool) {
	d.mu.Lock()
	d.submitting = submitting
	d.mu.Unlock()
	d.notify()
}

func (d *Dashboard) Snapshot() DashboardState {
	now := d.now()
	d.mu.Lock()
	defer d.mu.Unlock()

	var stats *domain.StatsSnapshot
	if d.stats != nil {
		copyStats := *d.stats
		stats = &copyStats
	}
	state := DashboardState{
		Stats:         stats,
		Decisions:     append([]domain.Decision(nil), d.decisions...),
		Notifications: append([]domain.Notification(nil), d.notifications...),
		Submitting:    d.submitting,
		StatsStatus:   d.statsStatus,
		HistoryStatus: d.historyStatus,
		GeneratedAt:   now,
	}
	state.StatsStatus.Stale = d.isStale(d.statsStatus, now)
	state.HistoryStatus.Stale = d.isStale(d.historyStatus, now)
	return state
}

// recovering reports whether a success on a resource in this status changes
// what the dashboard shows besides the data itself.
func (d *Dashboard) recovering(status ResourceStatus, now time.Time) bool {
	return status.LastSuccessAt == nil || status.LastError != "" || d.isStale(status, now)
}

func (d *Dashboard) isStale(status ResourceStatus, now time.Time) bool {
	if status.LastSuccessAt == nil {
		return status.LastAttemptAt != nil
	}
	return now.Sub(*status.LastSuccessAt) > d.staleAfter
}

func sameDecisions(a, b []domain.Decision) bool {
	if len(a) != len(b) {
		return false
	}
	return len(a) == 0 || reflect.DeepEqual(a, b)
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
