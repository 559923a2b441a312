package presentation

import "github.com/kirillkom/epi-console/internal/core/domain"

type BadgeVariant string

const (
	VariantDefault     BadgeVariant = "default"
	VariantDestructive BadgeVariant = "destructive"
	VariantSecondary   BadgeVariant = "secondary"
)

type BadgeView struct {
	Icon    string       `json:"icon"`
	Label   string       `json:"label"`
	Variant BadgeVariant `json:"variant"`
}

// Badge maps every verdict, known or not, to one of three badges.
func Badge(status domain.DecisionStatus) BadgeView {
	switch status {
	case domain.DecisionApproved:
		return BadgeView{Icon: "✔", Label: "Aprovado", Variant: VariantDefault}
	case domain.DecisionRejected:
		return BadgeView{Icon: "✖", Label: "Rejeitado", Variant: VariantDestructive}
	default:
		return BadgeView{Icon: "⏱", Label: "Pendente", Variant: VariantSecondary}
	}
}
