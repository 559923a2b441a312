package httpadapter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kirillkom/epi-console/internal/config"
	"github.com/kirillkom/epi-console/internal/core/domain"
	"github.com/kirillkom/epi-console/internal/presentation"
)

func TestRateLimitMiddlewareReturns429(t *testing.T) {
	env := newTestEnv(config.Config{RateLimitRPS: 1, RateLimitBurst: 1}, nil)

	res1 := env.do(t, http.MethodGet, "/console/state", nil)
	if res1.Code != http.StatusOK {
		t.Fatalf("first request expected 200, got %d", res1.Code)
	}

	res2 := env.do(t, http.MethodGet, "/console/state", nil)
	if res2.Code != http.StatusTooManyRequests {
		t.Fatalf("second request expected 429, got %d", res2.Code)
	}
	if res2.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header for 429 response")
	}

	if res := env.do(t, http.MethodGet, "/healthz", nil); res.Code != http.StatusOK {
		t.Fatalf("healthz must bypass the limiter, got %d", res.Code)
	}
}

func TestRateLimitDisabledWithoutRPS(t *testing.T) {
	env := newTestEnv(config.Config{}, nil)
	for i := 0; i < 20; i++ {
		if res := env.do(t, http.MethodGet, "/console/state", nil); res.Code != http.StatusOK {
			t.Fatalf("request %d expected 200, got %d", i, res.Code)
		}
	}
}

func TestRequestIDPropagated(t *testing.T) {
	env := newTestEnv(config.Config{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "req-42")
	res := httptest.NewRecorder()
	env.handler.ServeHTTP(res, req)
	if got := res.Header().Get(requestIDHeader); got != "req-42" {
		t.Fatalf("expected request id echoed, got %q", got)
	}

	res = env.do(t, http.MethodGet, "/healthz", nil)
	if res.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected generated request id")
	}
}

func TestRecovererReturns500(t *testing.T) {
	env := newTestEnv(config.Config{}, nil)
	env.submitter.before = func() { panic("boom") }

	res := env.do(t, http.MethodPost, "/console/submit", nil)
	if res.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 after panic, got %d", res.Code)
	}
}

func dialHub(t *testing.T, env testEnv) (*websocket.Conn, func() pushMessage) {
	t.Helper()
	server := httptest.NewServer(env.handler)
	t.Cleanup(server.Close)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go env.router.Hub().Run(ctx)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/console/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial websocket: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	read := func() pushMessage {
		t.Helper()
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var msg pushMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read push: %v", err)
		}
		return msg
	}

	deadline := time.Now().Add(2 * time.Second)
	for env.router.Hub().Clients() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	return conn, read
}

func TestWebsocketPushesOnChange(t *testing.T) {
	env := newTestEnv(config.Config{}, nil)
	_, read := dialHub(t, env)

	initial := read()
	if initial.Type != "state" || initial.View.Simulator.PersonID != "" {
		t.Fatalf("unexpected initial push: %+v", initial)
	}
	if _, ok := initial.Fragments[presentation.FragmentComposer]; !ok {
		t.Fatalf("initial push must carry the composer form")
	}

	env.composer.SetPersonID("FUNC-009")
	for {
		msg := read()
		if msg.View.Simulator.PersonID == "FUNC-009" {
			if !strings.Contains(msg.Fragments[presentation.FragmentComposer], "FUNC-009") {
				t.Fatalf("composer change must re-render the form: %+v", msg.Fragments)
			}
			break
		}
	}
}

func TestWebsocketUnchangedPollKeepsComposer(t *testing.T) {
	env := newTestEnv(config.Config{}, nil)
	conn, read := dialHub(t, env)
	read()

	stats := domain.StatsSnapshot{TotalDecisions: 2, ApprovedDecisions: 1, RejectedDecisions: 1}
	env.board.ApplyStats(stats)
	if msg := read(); msg.View.Cards[0].Value != 2 {
		t.Fatalf("expected first poll pushed, got %+v", msg.View.Cards)
	}

	env.board.ApplyStats(stats)
	_ = conn.SetReadDeadline(time.Now().Add(150 * time.Millisecond))
	var msg pushMessage
	if err := conn.ReadJSON(&msg); err == nil {
		t.Fatalf("unchanged poll must not push, got %+v", msg.Fragments)
	}
}

func TestWebsocketDashboardPushLeavesComposer(t *testing.T) {
	env := newTestEnv(config.Config{}, nil)
	_, read := dialHub(t, env)
	read()

	env.board.ApplyStats(domain.StatsSnapshot{TotalDecisions: 5, ApprovedDecisions: 5})
	msg := read()
	if _, ok := msg.Fragments[presentation.FragmentComposer]; ok {
		t.Fatalf("dashboard change must not re-render the composer form")
	}
	for _, name := range presentation.DataFragments {
		if _, ok := msg.Fragments[name]; !ok {
			t.Fatalf("expected %q fragment in push", name)
		}
	}
	if msg.View.Cards[0].Value != 5 || !strings.Contains(msg.Fragments[presentation.FragmentSummary], "100.0% de aprovação") {
		t.Fatalf("expected refreshed summary: %s", msg.Fragments[presentation.FragmentSummary])
	}
}

func TestPushMessageShape(t *testing.T) {
	env := newTestEnv(config.Config{}, nil)
	raw, err := env.router.Hub().encode(false)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var decoded map[string]json.RawMessage
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"type", "view", "fragments"} {
		if _, ok := decoded[key]; !ok {
			t.Fatalf("expected %s in push message: %s", key, raw)
		}
	}
}
