package httpadapter

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kirillkom/epi-console/internal/presentation"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
	wsSendBuffer = 4
)

// ConnectionObserver counts connected browsers.
type ConnectionObserver interface {
	WebsocketConnected()
	WebsocketDisconnected()
}

type HubOptions struct {
	Metrics ConnectionObserver
	Logger  *slog.Logger
}

// Hub pushes rendered page sections to every connected browser after each
// dashboard or composer change. Bursts of changes collapse into one push. The
// composer form is only included when the composer itself changed.
type Hub struct {
	build    func() presentation.ViewModel
	observer ConnectionObserver
	logger   *slog.Logger
	upgrader websocket.Upgrader

	pending chan struct{}

	dirtyMu       sync.Mutex
	composerDirty bool

	mu      sync.Mutex
	clients map[*wsClient]struct{}
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

type pushMessage struct {
	Type      string                 `json:"type"`
	View      presentation.ViewModel `json:"view"`
	Fragments map[string]string      `json:"fragments"`
}

func NewHub(build func() presentation.ViewModel, opts HubOptions) *Hub {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		build:    build,
		observer: opts.Metrics,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		pending: make(chan struct{}, 1),
		clients: make(map[*wsClient]struct{}),
	}
}

// Notify schedules a push of the dashboard sections. It never blocks.
func (h *Hub) Notify() {
	h.schedule(false)
}

// NotifyComposer schedules a push that also re-renders the composer form.
func (h *Hub) NotifyComposer() {
	h.schedule(true)
}

func (h *Hub) schedule(composer bool) {
	if composer {
		h.dirtyMu.Lock()
		h.composerDirty = true
		h.dirtyMu.Unlock()
	}
	select {
	case h.pending <- struct{}{}:
	default:
	}
}

func (h *Hub) takeComposerDirty() bool {
	h.dirtyMu.Lock()
	defer h.dirtyMu.Unlock()
	dirty := h.composerDirty
	h.composerDirty = false
	return dirty
}

// Run delivers scheduled pushes until ctx ends, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer h.closeAll()
	for {
		select {
		case <-ctx.Done():
			return
		case <-h.pending:
			h.broadcast(h.takeComposerDirty())
		}
	}
}

func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) broadcast(withComposer bool) {
	h.mu.Lock()
	if len(h.clients) == 0 {
		h.mu.Unlock()
		return
	}
	h.mu.Unlock()

	payload, err := h.encode(withComposer)
	if err != nil {
		h.logger.Error("websocket_encode_failed", "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		select {
		case client.send <- payload:
		default:
			// Slow reader. This push is dropped for it.
		}
	}
}

func (h *Hub) encode(withComposer bool) ([]byte, error) {
	vm := h.build()
	names := presentation.DataFragments
	if withComposer {
		names = append([]string{presentation.FragmentComposer}, names...)
	}
	fragments, err := presentation.RenderFragments(vm, names...)
	if err != nil {
		return nil, err
	}
	return json.Marshal(pushMessage{Type: "state", View: vm, Fragments: fragments})
}

func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket_upgrade_failed", "error", err)
		return
	}

	client := &wsClient{conn: conn, send: make(chan []byte, wsSendBuffer)}
	if payload, err := h.encode(true); err == nil {
		client.send <- payload
	} else {
		h.logger.Error("websocket_encode_failed", "error", err)
	}

	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()
	if h.observer != nil {
		h.observer.WebsocketConnected()
	}

	go h.writePump(client)
	h.readPump(client)
}

func (h *Hub) remove(client *wsClient) {
	h.mu.Lock()
	_, ok := h.clients[client]
	if ok {
		delete(h.clients, client)
		close(client.send)
	}
	h.mu.Unlock()
	if ok && h.observer != nil {
		h.observer.WebsocketDisconnected()
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	clients := make([]*wsClient, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.Unlock()
	for _, client := range clients {
		h.remove(client)
	}
}

// readPump only watches for close and pong frames; browsers send nothing.
func (h *Hub) readPump(client *wsClient) {
	defer func() {
		h.remove(client)
		_ = client.conn.Close()
	}()

	client.conn.SetReadLimit(512)
	_ = client.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn("websocket_read_failed", "error", err)
			}
			return
		}
	}
}

func (h *Hub) writePump(client *wsClient) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		_ = client.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-client.send:
			_ = client.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				_ = client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = client.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
