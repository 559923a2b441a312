package httpadapter

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kirillkom/epi-console/internal/core/domain"
	"github.com/kirillkom/epi-console/internal/core/usecase"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type submitErrorResponse struct {
	Error        string               `json:"error"`
	FailureKind  domain.FailureKind   `json:"failure_kind,omitempty"`
	Notification *domain.Notification `json:"notification,omitempty"`
}

func (rt *Router) submit(w http.ResponseWriter, r *http.Request) {
	decision, err := rt.deps.Submitter.Submit(r.Context())
	if err == nil {
		writeJSON(w, http.StatusOK, decision)
		return
	}

	resp := submitErrorResponse{Error: err.Error()}
	if errors.Is(err, domain.ErrUpstream) {
		resp.FailureKind = domain.FailureKindOf(err)
		var subErr *usecase.SubmissionError
		if errors.As(err, &subErr) {
			n := subErr.Notification
			resp.Notification = &n
		}
	}
	writeJSON(w, mapErrorToHTTPStatus(err), resp)
}

func (rt *Router) dismissNotification(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !rt.deps.Board.Dismiss(id) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "notification not found"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) exportDecisions(w http.ResponseWriter, _ *http.Request) {
	if rt.deps.Exporter == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "export disabled"})
		return
	}
	data, err := rt.deps.Exporter.Export(rt.deps.Board.Snapshot().Decisions)
	if err != nil {
		rt.deps.Logger.Error("export_failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "export failed"})
		return
	}

	filename := fmt.Sprintf("decisoes-%s.xlsx", time.Now().Format("20060102-150405"))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (rt *Router) journal(w http.ResponseWriter, r *http.Request) {
	if rt.deps.Journal == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "journal disabled"})
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 500 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be between 1 and 500"})
			return
		}
		limit = n
	}

	entries, err := rt.deps.Journal.Recent(r.Context(), limit)
	if err != nil {
		rt.deps.Logger.Error("journal_read_failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "journal unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}
