package presentation

import (
	"fmt"
	"time"

	"github.com/kirillkom/epi-console/internal/core/domain"
	"github.com/kirillkom/epi-console/internal/core/usecase"
)

const (
	EmptyHistoryMessage = "Nenhuma decisão registrada ainda"
	EmptyEpisWarning    = "Adicione pelo menos um EPI para processar a orquestração"
	SubmitLabel         = "Processar Orquestração"
	SubmittingLabel     = "Processando..."
)

type Card struct {
	Title  string `json:"title"`
	Value  int    `json:"value"`
	Detail string `json:"detail"`
	Tone   string `json:"tone"`
}

// StatsCards builds the four summary cards. A nil snapshot renders zeros.
func StatsCards(stats *domain.StatsSnapshot) []Card {
	var s domain.StatsSnapshot
	if stats != nil {
		s = *stats
	}
	return []Card{
		{Title: "Total de Decisões", Value: s.TotalDecisions, Detail: fmt.Sprintf("%d eventos faciais", s.TotalFaceEvents)},
		{Title: "Aprovados", Value: s.ApprovedDecisions, Detail: Percent(s.ApprovedDecisions, s.TotalDecisions) + " de aprovação", Tone: "approved"},
		{Title: "Rejeitados", Value: s.RejectedDecisions, Detail: Percent(s.RejectedDecisions, s.TotalDecisions) + " de rejeição", Tone: "rejected"},
		{Title: "Eventos EPI", Value: s.TotalEpiEvents, Detail: "Detecções de equipamentos"},
	}
}

type HistoryRow struct {
	ID         string    `json:"id"`
	Badge      BadgeView `json:"badge"`
	PersonID   string    `json:"person_id,omitempty"`
	Location   string    `json:"location,omitempty"`
	Reason     string    `json:"reason"`
	Confidence string    `json:"confidence"`
	Timestamp  string    `json:"timestamp"`
}

type History struct {
	Rows         []HistoryRow `json:"rows"`
	EmptyMessage string       `json:"empty_message,omitempty"`
}

func HistoryView(decisions []domain.Decision, loc *time.Location) History {
	if len(decisions) == 0 {
		return History{Rows: []HistoryRow{}, EmptyMessage: EmptyHistoryMessage}
	}
	rows := make([]HistoryRow, 0, len(decisions))
	for _, d := range decisions {
		rows = append(rows, HistoryRow{
			ID:         d.ID,
			Badge:      Badge(d.Decision),
			PersonID:   deref(d.PersonID),
			Location:   deref(d.Location),
			Reason:     d.Reason,
			Confidence: ConfidencePercent(d.ConfidenceScore),
			Timestamp:  FormatTimestamp(d.Timestamp, loc),
		})
	}
	return History{Rows: rows}
}

type EpiRow struct {
	Index           int            `json:"index"`
	Type            domain.EpiType `json:"type"`
	Label           string         `json:"label"`
	Detected        bool           `json:"detected"`
	Confidence      float64        `json:"confidence"`
	ConfidenceLabel string         `json:"confidence_label"`
	ProperlyWorn    bool           `json:"properly_worn"`
}

type EpiOption struct {
	Value domain.EpiType `json:"value"`
	Label string         `json:"label"`
}

type Simulator struct {
	FaceDetected    bool        `json:"face_detected"`
	FaceConfidence  float64     `json:"face_confidence"`
	FaceQuality     float64     `json:"face_quality"`
	ConfidenceLabel string      `json:"confidence_label"`
	QualityLabel    string      `json:"quality_label"`
	PersonID        string      `json:"person_id"`
	Location        string      `json:"location"`
	Epis            []EpiRow    `json:"epis"`
	EpiOptions      []EpiOption `json:"epi_options"`
	RequiredEpis    []string    `json:"required_epis"`
	Warning         string      `json:"warning,omitempty"`
	SubmitDisabled  bool        `json:"submit_disabled"`
	SubmitLabel     string      `json:"submit_label"`
}

// SimulatorView disables submission when the EPI list is empty or a
// submission is already outstanding.
func SimulatorView(form usecase.ComposerState, submitting bool) Simulator {
	view := Simulator{
		FaceDetected:    form.FaceDetected,
		FaceConfidence:  form.FaceConfidence,
		FaceQuality:     form.FaceQuality,
		ConfidenceLabel: "Confiança: " + ConfidencePercent(form.FaceConfidence),
		QualityLabel:    "Qualidade: " + ConfidencePercent(form.FaceQuality),
		PersonID:        form.PersonID,
		Location:        form.Location,
		Epis:            make([]EpiRow, 0, len(form.Epis)),
		EpiOptions:      make([]EpiOption, 0, len(domain.EpiTypes)),
		RequiredEpis:    make([]string, 0, len(form.RequiredEpis)),
		SubmitDisabled:  len(form.Epis) == 0 || submitting,
		SubmitLabel:     SubmitLabel,
	}
	if submitting {
		view.SubmitLabel = SubmittingLabel
	}
	if len(form.Epis) == 0 {
		view.Warning = EmptyEpisWarning
	}
	for i, e := range form.Epis {
		view.Epis = append(view.Epis, EpiRow{
			Index:           i,
			Type:            e.Type,
			Label:           e.Type.Label(),
			Detected:        e.Detected,
			Confidence:      e.Confidence,
			ConfidenceLabel: "Confiança: " + ConfidencePercent(e.Confidence),
			ProperlyWorn:    e.ProperlyWorn,
		})
	}
	for _, t := range domain.EpiTypes {
		view.EpiOptions = append(view.EpiOptions, EpiOption{Value: t, Label: t.Label()})
	}
	for _, t := range form.RequiredEpis {
		view.RequiredEpis = append(view.RequiredEpis, t.Label())
	}
	return view
}

// Freshness describes how current one polled resource is.
func Freshness(status usecase.ResourceStatus, now time.Time, loc *time.Location) string {
	switch {
	case status.LastSuccessAt == nil && status.LastAttemptAt == nil:
		return "aguardando primeira leitura"
	case status.LastSuccessAt == nil:
		return "dados indisponíveis"
	case status.Stale:
		return "dados desatualizados desde " + FormatTimestamp(*status.LastSuccessAt, loc)
	default:
		age := max(now.Sub(*status.LastSuccessAt), 0)
		return fmt.Sprintf("atualizado há %ds", int(age.Seconds()))
	}
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
