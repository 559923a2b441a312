package httpadapter

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kirillkom/epi-console/internal/config"
	"github.com/kirillkom/epi-console/internal/core/ports"
	"github.com/kirillkom/epi-console/internal/core/usecase"
	"github.com/kirillkom/epi-console/internal/observability/metrics"
	"github.com/kirillkom/epi-console/internal/presentation"
)

const serviceName = "epi-console"

// Dependencies are the collaborators behind the dashboard surface. Journal
// and Metrics are optional.
type Dependencies struct {
	Composer  *usecase.Composer
	Board     *usecase.Dashboard
	Submitter ports.SubmissionService
	Exporter  ports.DecisionExporter
	Journal   ports.JournalReader
	Views     presentation.Builder
	Metrics   *metrics.HTTPServerMetrics
	Logger    *slog.Logger
}

type Router struct {
	cfg  config.Config
	deps Dependencies
	hub  *Hub
}

func NewRouter(cfg config.Config, deps Dependencies) *Router {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	rt := &Router{cfg: cfg, deps: deps}
	hubOpts := HubOptions{Logger: deps.Logger}
	if deps.Metrics != nil {
		hubOpts.Metrics = deps.Metrics
	}
	rt.hub = NewHub(rt.viewModel, hubOpts)
	deps.Board.Subscribe(rt.hub.Notify)
	deps.Composer.OnChange(rt.hub.NotifyComposer)
	return rt
}

// Hub exposes the websocket broadcaster so the caller can run it.
func (rt *Router) Hub() *Hub {
	return rt.hub
}

func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(accessLogMiddleware(rt.deps.Logger))
	if rt.deps.Metrics != nil {
		r.Use(func(next http.Handler) http.Handler {
			return rt.deps.Metrics.Middleware(serviceName, next)
		})
	}
	r.Use(middleware.Recoverer)

	r.Get("/healthz", rt.healthz)
	if rt.deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", rt.deps.Metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		var onLimited func()
		if rt.deps.Metrics != nil {
			onLimited = rt.deps.Metrics.RecordRateLimited
		}
		r.Use(rateLimitMiddleware(rt.cfg.RateLimitRPS, rt.cfg.RateLimitBurst, onLimited))

		r.Get("/", rt.page)
		r.Route("/console", func(r chi.Router) {
			r.Get("/state", rt.state)
			r.Post("/composer/face", rt.updateFace)
			r.Post("/composer/general", rt.updateGeneral)
			r.Post("/composer/epis", rt.addEpi)
			r.Patch("/composer/epis/{index}", rt.updateEpi)
			r.Delete("/composer/epis/{index}", rt.removeEpi)
			r.Post("/composer/reset", rt.resetComposer)
			r.Post("/submit", rt.submit)
			r.Delete("/notifications/{id}", rt.dismissNotification)
			r.Get("/export.xlsx", rt.exportDecisions)
			r.Get("/journal", rt.journal)
			r.Get("/ws", rt.hub.ServeWS)
		})
	})

	return r
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) viewModel() presentation.ViewModel {
	return rt.deps.Views.Build(rt.deps.Board.Snapshot(), rt.deps.Composer.Snapshot())
}

func (rt *Router) page(w http.ResponseWriter, r *http.Request) {
	render := presentation.RenderPage
	if r.URL.Query().Get("fragment") == "1" {
		render = presentation.RenderContent
	}

	var buf bytes.Buffer
	if err := render(&buf, rt.viewModel()); err != nil {
		rt.deps.Logger.Error("render_failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "render failed"})
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(buf.Bytes())
}

type stateResponse struct {
	View      presentation.ViewModel `json:"view"`
	Dashboard usecase.DashboardState `json:"dashboard"`
	Composer  usecase.ComposerState  `json:"composer"`
}

func (rt *Router) state(w http.ResponseWriter, _ *http.Request) {
	dashboard := rt.deps.Board.Snapshot()
	composer := rt.deps.Composer.Snapshot()
	writeJSON(w, http.StatusOK, stateResponse{
		View:      rt.deps.Views.Build(dashboard, composer),
		Dashboard: dashboard,
		Composer:  composer,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}
