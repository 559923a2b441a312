package presentation

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/kirillkom/epi-console/internal/core/domain"
	"github.com/kirillkom/epi-console/internal/core/usecase"
)

func TestPercent(t *testing.T) {
	cases := []struct {
		count, total int
		want         string
	}{
		{0, 0, "0%"},
		{5, 0, "0%"},
		{2, 3, "66.7%"},
		{1, 1, "100.0%"},
		{0, 4, "0.0%"},
	}
	for _, tc := range cases {
		if got := Percent(tc.count, tc.total); got != tc.want {
			t.Fatalf("Percent(%d, %d) = %q, want %q", tc.count, tc.total, got, tc.want)
		}
	}
}

func TestStatsCardsEmptyBackend(t *testing.T) {
	for _, stats := range []*domain.StatsSnapshot{nil, {}} {
		cards := StatsCards(stats)
		if len(cards) != 4 {
			t.Fatalf("expected 4 cards, got %d", len(cards))
		}
		for _, c := range cards {
			if c.Value != 0 {
				t.Fatalf("expected zero counts, got %+v", c)
			}
		}
		if cards[1].Detail != "0% de aprovação" || cards[2].Detail != "0% de rejeição" {
			t.Fatalf("unexpected percentages: %q / %q", cards[1].Detail, cards[2].Detail)
		}
	}
}

func TestStatsCardsRatios(t *testing.T) {
	cards := StatsCards(&domain.StatsSnapshot{TotalDecisions: 3, ApprovedDecisions: 2, RejectedDecisions: 1, TotalFaceEvents: 3, TotalEpiEvents: 7})
	if cards[0].Detail != "3 eventos faciais" {
		t.Fatalf("unexpected total detail %q", cards[0].Detail)
	}
	if cards[1].Detail != "66.7% de aprovação" || cards[2].Detail != "33.3% de rejeição" {
		t.Fatalf("unexpected ratios %q / %q", cards[1].Detail, cards[2].Detail)
	}
	if cards[3].Value != 7 {
		t.Fatalf("unexpected epi events %d", cards[3].Value)
	}
}

func TestBadgeIsTotal(t *testing.T) {
	cases := map[domain.DecisionStatus]BadgeView{
		domain.DecisionApproved: {Icon: "✔", Label: "Aprovado", Variant: VariantDefault},
		domain.DecisionRejected: {Icon: "✖", Label: "Rejeitado", Variant: VariantDestructive},
		domain.DecisionPending:  {Icon: "⏱", Label: "Pendente", Variant: VariantSecondary},
		"escalated":             {Icon: "⏱", Label: "Pendente", Variant: VariantSecondary},
		"":                      {Icon: "⏱", Label: "Pendente", Variant: VariantSecondary},
	}
	for status, want := range cases {
		if got := Badge(status); got != want {
			t.Fatalf("Badge(%q) = %+v, want %+v", status, got, want)
		}
	}
}

func TestFormatTimestamp(t *testing.T) {
	ts := time.Date(2025, 3, 1, 13, 4, 5, 0, time.UTC)
	loc := time.FixedZone("BRT", -3*3600)
	if got := FormatTimestamp(ts, loc); got != "01/03/2025 10:04:05" {
		t.Fatalf("unexpected timestamp %q", got)
	}
	if got := FormatTimestamp(time.Time{}, loc); got != "-" {
		t.Fatalf("expected dash for zero time, got %q", got)
	}
}

func TestHistoryView(t *testing.T) {
	empty := HistoryView(nil, time.UTC)
	if empty.EmptyMessage != EmptyHistoryMessage || len(empty.Rows) != 0 {
		t.Fatalf("unexpected empty history: %+v", empty)
	}

	person := "FUNC-001"
	view := HistoryView([]domain.Decision{
		{ID: "a", Decision: domain.DecisionApproved, Reason: "ok", ConfidenceScore: 0.934, PersonID: &person},
	}, time.UTC)
	if view.EmptyMessage != "" || len(view.Rows) != 1 {
		t.Fatalf("unexpected history: %+v", view)
	}
	row := view.Rows[0]
	if row.Confidence != "93%" || row.PersonID != "FUNC-001" || row.Location != "" || row.Badge.Label != "Aprovado" {
		t.Fatalf("unexpected row: %+v", row)
	}
}

func TestSimulatorViewSubmitGate(t *testing.T) {
	form := usecase.NewComposer(usecase.ComposerOptions{}).Snapshot()

	view := SimulatorView(form, false)
	if view.SubmitDisabled || view.Warning != "" {
		t.Fatalf("expected submit enabled: %+v", view)
	}
	if view.Epis[0].Label != "Capacete" || view.Epis[0].ConfidenceLabel != "Confiança: 92%" {
		t.Fatalf("unexpected epi row: %+v", view.Epis[0])
	}
	if len(view.EpiOptions) != len(domain.EpiTypes) {
		t.Fatalf("expected every epi type offered")
	}

	busy := SimulatorView(form, true)
	if !busy.SubmitDisabled || busy.SubmitLabel != SubmittingLabel {
		t.Fatalf("expected submit disabled while in flight: %+v", busy)
	}

	form.Epis = nil
	form.FaceDetected = true
	empty := SimulatorView(form, false)
	if !empty.SubmitDisabled || empty.Warning != EmptyEpisWarning {
		t.Fatalf("expected submit disabled with warning: %+v", empty)
	}
}

func TestFreshness(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 30, 0, time.UTC)
	success := now.Add(-12 * time.Second)

	if got := Freshness(usecase.ResourceStatus{}, now, time.UTC); got != "aguardando primeira leitura" {
		t.Fatalf("unexpected %q", got)
	}
	if got := Freshness(usecase.ResourceStatus{LastAttemptAt: &now, Stale: true}, now, time.UTC); got != "dados indisponíveis" {
		t.Fatalf("unexpected %q", got)
	}
	if got := Freshness(usecase.ResourceStatus{LastSuccessAt: &success}, now, time.UTC); got != "atualizado há 12s" {
		t.Fatalf("unexpected %q", got)
	}
	got := Freshness(usecase.ResourceStatus{LastSuccessAt: &success, Stale: true}, now, time.UTC)
	if got != "dados desatualizados desde 01/03/2025 10:00:18" {
		t.Fatalf("unexpected %q", got)
	}
}

func sampleViewModel() ViewModel {
	board := usecase.NewDashboard(time.Minute)
	board.ApplyStats(domain.StatsSnapshot{TotalDecisions: 1, ApprovedDecisions: 1, TotalFaceEvents: 1, TotalEpiEvents: 1})
	board.ApplyDecisions([]domain.Decision{{ID: "a", Decision: domain.DecisionRejected, Reason: "Capacete <ausente>", ConfidenceScore: 0.4}})
	board.Notify(domain.NotificationSuccess, "✅ Acesso Aprovado", "ok")
	form := usecase.NewComposer(usecase.ComposerOptions{}).Snapshot()
	return Builder{Location: time.UTC, Service: domain.ServiceStatus{Version: "1.0.0"}}.Build(board.Snapshot(), form)
}

func TestBuilderHealth(t *testing.T) {
	vm := sampleViewModel()
	if !vm.Healthy || vm.Health != "Operacional" {
		t.Fatalf("expected healthy view: %+v", vm)
	}

	stale := Builder{}.Build(usecase.DashboardState{}, usecase.ComposerState{})
	if stale.Healthy {
		t.Fatalf("expected unhealthy view without data")
	}
	if stale.History.EmptyMessage != EmptyHistoryMessage {
		t.Fatalf("expected empty history message")
	}
}

func TestRenderPageEscapesContent(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderPage(&buf, sampleViewModel()); err != nil {
		t.Fatalf("RenderPage() error = %v", err)
	}
	out := buf.String()
	for _, want := range []string{"EPI Orchestrator", "Total de Decisões", "Rejeitado", "Capacete &lt;ausente&gt;", "/console/ws", "v1.0.0"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in page", want)
		}
	}
}

func TestRenderContentEmptyState(t *testing.T) {
	vm := Builder{}.Build(usecase.DashboardState{}, usecase.ComposerState{})
	var buf bytes.Buffer
	if err := RenderContent(&buf, vm); err != nil {
		t.Fatalf("RenderContent() error = %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, EmptyHistoryMessage) || !strings.Contains(out, EmptyEpisWarning) {
		t.Fatalf("expected empty-state messages, got %s", out)
	}
	if strings.Contains(out, "<!DOCTYPE html>") {
		t.Fatalf("content fragment must not include the document shell")
	}
}

func TestRenderTerminal(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderTerminal(&buf, sampleViewModel()); err != nil {
		t.Fatalf("RenderTerminal() error = %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Aprovados", "100.0% de aprovação", "✖ Rejeitado", "40%", "✅ Acesso Aprovado"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in terminal output:\n%s", want, out)
		}
	}
}

func TestRenderPageHasTabs(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderPage(&buf, sampleViewModel()); err != nil {
		t.Fatalf("RenderPage() error = %v", err)
	}
	out := buf.String()
	for _, want := range []string{`data-tab="simulator"`, `data-tab="history" hidden`, `showTab('history')`, `id="composer"`, `id="history"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in page", want)
		}
	}
}

func TestRenderFragments(t *testing.T) {
	vm := sampleViewModel()
	fragments, err := RenderFragments(vm, DataFragments...)
	if err != nil {
		t.Fatalf("RenderFragments() error = %v", err)
	}
	if len(fragments) != len(DataFragments) {
		t.Fatalf("expected %d fragments, got %d", len(DataFragments), len(fragments))
	}
	if _, ok := fragments[FragmentComposer]; ok {
		t.Fatalf("data fragments must not include the composer form")
	}
	if !strings.Contains(fragments[FragmentHistory], "Capacete &lt;ausente&gt;") {
		t.Fatalf("unexpected history fragment: %s", fragments[FragmentHistory])
	}
	if !strings.Contains(fragments[FragmentHealth], "Operacional") {
		t.Fatalf("unexpected health fragment: %s", fragments[FragmentHealth])
	}
	if !strings.Contains(fragments[FragmentSummary], `data-since="`) {
		t.Fatalf("expected fresh resources to carry data-since: %s", fragments[FragmentSummary])
	}

	composer, err := RenderFragments(vm, FragmentComposer)
	if err != nil {
		t.Fatalf("RenderFragments(composer) error = %v", err)
	}
	if !strings.Contains(composer[FragmentComposer], `id="person-id"`) || strings.Contains(composer[FragmentComposer], "<section") {
		t.Fatalf("unexpected composer fragment: %s", composer[FragmentComposer])
	}

	if _, err := RenderFragments(vm, "missing"); err == nil {
		t.Fatalf("expected error for unknown fragment")
	}
}

func TestFreshSince(t *testing.T) {
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	if got := freshSince(usecase.ResourceStatus{LastSuccessAt: &at}); got != at.UnixMilli() {
		t.Fatalf("expected %d, got %d", at.UnixMilli(), got)
	}
	if got := freshSince(usecase.ResourceStatus{LastSuccessAt: &at, Stale: true}); got != 0 {
		t.Fatalf("stale resource must not age client-side, got %d", got)
	}
	if got := freshSince(usecase.ResourceStatus{}); got != 0 {
		t.Fatalf("expected 0 without success, got %d", got)
	}
}
