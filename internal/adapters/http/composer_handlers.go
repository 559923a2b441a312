package httpadapter

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kirillkom/epi-console/internal/core/domain"
	"github.com/kirillkom/epi-console/internal/core/usecase"
)

const maxBodyBytes = 64 << 10

type faceRequest struct {
	Detected     *bool    `json:"detected"`
	Confidence   *float64 `json:"confidence"`
	QualityScore *float64 `json:"quality_score"`
}

type generalRequest struct {
	PersonID     *string  `json:"person_id"`
	Location     *string  `json:"location"`
	RequiredEpis []string `json:"required_epis"`
}

type epiFieldRequest struct {
	Field string `json:"field"`
	Value any    `json:"value"`
}

func (rt *Router) updateFace(w http.ResponseWriter, r *http.Request) {
	var req faceRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	c := rt.deps.Composer
	if req.Detected != nil {
		c.SetFaceDetected(*req.Detected)
	}
	if req.Confidence != nil {
		c.SetFaceConfidence(*req.Confidence)
	}
	if req.QualityScore != nil {
		c.SetFaceQuality(*req.QualityScore)
	}
	writeJSON(w, http.StatusOK, c.Snapshot())
}

func (rt *Router) updateGeneral(w http.ResponseWriter, r *http.Request) {
	var req generalRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	c := rt.deps.Composer
	if req.RequiredEpis != nil {
		required := make([]domain.EpiType, 0, len(req.RequiredEpis))
		for _, raw := range req.RequiredEpis {
			required = append(required, domain.EpiType(raw))
		}
		if err := c.SetRequiredEpis(required); err != nil {
			writeError(w, err)
			return
		}
	}
	if req.PersonID != nil {
		c.SetPersonID(*req.PersonID)
	}
	if req.Location != nil {
		c.SetLocation(*req.Location)
	}
	writeJSON(w, http.StatusOK, c.Snapshot())
}

func (rt *Router) addEpi(w http.ResponseWriter, _ *http.Request) {
	rt.deps.Composer.AddEpi()
	writeJSON(w, http.StatusCreated, rt.deps.Composer.Snapshot())
}

func (rt *Router) updateEpi(w http.ResponseWriter, r *http.Request) {
	index, err := epiIndex(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req epiFieldRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := rt.deps.Composer.UpdateEpi(index, usecase.EpiField(req.Field), req.Value); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rt.deps.Composer.Snapshot())
}

func (rt *Router) removeEpi(w http.ResponseWriter, r *http.Request) {
	index, err := epiIndex(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := rt.deps.Composer.RemoveEpi(index); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rt.deps.Composer.Snapshot())
}

func (rt *Router) resetComposer(w http.ResponseWriter, _ *http.Request) {
	rt.deps.Composer.Reset()
	writeJSON(w, http.StatusOK, rt.deps.Composer.Snapshot())
}

func epiIndex(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "index")
	index, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.WrapError(domain.ErrInvalidInput, "parse epi index", fmt.Errorf("index=%q", raw))
	}
	return index, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, out any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return domain.WrapError(domain.ErrInvalidInput, "decode request body", err)
	}
	return nil
}
