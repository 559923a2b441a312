package domain

import (
	"fmt"
	"strings"
)

type EpiType string

const (
	EpiHelmet        EpiType = "helmet"
	EpiSafetyGlasses EpiType = "safety_glasses"
	EpiGloves        EpiType = "gloves"
	EpiSafetyShoes   EpiType = "safety_shoes"
	EpiVest          EpiType = "vest"
	EpiMask          EpiType = "mask"
)

// EpiTypes lists every equipment kind in display order.
var EpiTypes = []EpiType{
	EpiHelmet,
	EpiSafetyGlasses,
	EpiGloves,
	EpiSafetyShoes,
	EpiVest,
	EpiMask,
}

var epiLabels = map[EpiType]string{
	EpiHelmet:        "Capacete",
	EpiSafetyGlasses: "Óculos de Segurança",
	EpiGloves:        "Luvas",
	EpiSafetyShoes:   "Botas de Segurança",
	EpiVest:          "Colete",
	EpiMask:          "Máscara",
}

func (t EpiType) Valid() bool {
	_, ok := epiLabels[t]
	return ok
}

// Label returns the operator-facing name, or the raw value for unknown kinds.
func (t EpiType) Label() string {
	if label, ok := epiLabels[t]; ok {
		return label
	}
	return string(t)
}

func ParseEpiType(raw string) (EpiType, error) {
	t := EpiType(strings.ToLower(strings.TrimSpace(raw)))
	if !t.Valid() {
		return "", WrapError(ErrInvalidInput, "parse epi type", fmt.Errorf("unknown epi type %q", raw))
	}
	return t, nil
}

type FaceEvent struct {
	Detected     bool    `json:"detected"`
	Confidence   float64 `json:"confidence"`
	QualityScore float64 `json:"quality_score"`
	PersonID     *string `json:"person_id"`
	Location     string  `json:"location"`
}

type EpiEvent struct {
	EpiType      EpiType `json:"epi_type"`
	Detected     bool    `json:"detected"`
	Confidence   float64 `json:"confidence"`
	ProperlyWorn bool    `json:"properly_worn"`
	PersonID     *string `json:"person_id"`
	Location     string  `json:"location"`
}

// OrchestrationRequest is the body of POST /api/orchestrate.
type OrchestrationRequest struct {
	FaceEvent    FaceEvent  `json:"face_event"`
	EpiEvents    []EpiEvent `json:"epi_events"`
	PersonID     *string    `json:"person_id"`
	Location     string     `json:"location"`
	RequiredEpis []EpiType  `json:"required_epis"`
}
