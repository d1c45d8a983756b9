package realtime

import (
	"net/http"
	"sync"

	"golang.org/x/net/websocket"

	"github.com/clearbrook/clinic-ops/internal/observability/metrics"
	"github.com/clearbrook/clinic-ops/pkg/logging"
)

// GlobalRoom is where observers land when they join without a room. Room
// publishers address it explicitly to reach unscoped observers.
const GlobalRoom = "global"

// Envelope is the wire frame delivered to observers: a named event and its payload.
type Envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// inbound frames from observers; only pings are meaningful.
type inbound struct {
	Type string `json:"type"`
}

// Hub tracks connected WebSocket observers and fans out published events.
// It carries no business semantics; callers decide what an event means.
type Hub struct {
	logger  *logging.Logger
	metrics *metrics.RealtimeMetrics

	mu    sync.RWMutex
	conns map[*observer]struct{}
}

type observer struct {
	conn *websocket.Conn
	room string
}

// NewHub creates an empty hub. Metrics may be nil.
func NewHub(logger *logging.Logger, m *metrics.RealtimeMetrics) *Hub {
	if logger == nil {
		logger = logging.Default()
	}
	return &Hub{
		logger:  logger,
		metrics: m,
		conns:   make(map[*observer]struct{}),
	}
}

// HandleWebSocket upgrades the request and keeps the connection registered
// until the peer goes away. Observers may scope themselves to a room with
// ?room=<orgID>; without one they receive only global events.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serve(conn, r)
	}).ServeHTTP(w, r)
}

func (h *Hub) serve(conn *websocket.Conn, r *http.Request) {
	room := r.URL.Query().Get("room")
	if room == "" {
		room = GlobalRoom
	}

	obs := &observer{conn: conn, room: room}
	h.mu.Lock()
	h.conns[obs] = struct{}{}
	h.mu.Unlock()
	h.metrics.ClientConnected(room)
	h.logger.Info("realtime: observer connected", "room", room, "remote", r.RemoteAddr)

	defer func() {
		h.mu.Lock()
		delete(h.conns, obs)
		h.mu.Unlock()
		h.metrics.ClientDisconnected(room)
		h.logger.Info("realtime: observer disconnected", "room", room, "remote", r.RemoteAddr)
	}()

	for {
		var msg inbound
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			h.logger.Debug("realtime: connection closed", "room", room, "error", err)
			return
		}
		if msg.Type == "ping" {
			_ = websocket.JSON.Send(conn, Envelope{Event: "pong"})
		}
	}
}

// Publish delivers an event to every connected observer regardless of room.
// With no observers connected this is a no-op; events are never queued.
func (h *Hub) Publish(event string, data any) {
	h.send(event, data, func(*observer) bool { return true })
}

// PublishToRoom delivers an event only to observers in the given room.
func (h *Hub) PublishToRoom(room, event string, data any) {
	h.send(event, data, func(o *observer) bool { return o.room == room })
}

// ConnectedCount reports current observers, optionally filtered by room.
func (h *Hub) ConnectedCount(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if room == "" {
		return len(h.conns)
	}
	n := 0
	for obs := range h.conns {
		if obs.room == room {
			n++
		}
	}
	return n
}

func (h *Hub) send(event string, data any, match func(*observer) bool) {
	env := Envelope{Event: event, Data: data}

	h.mu.RLock()
	targets := make([]*observer, 0, len(h.conns))
	for obs := range h.conns {
		if match(obs) {
			targets = append(targets, obs)
		}
	}
	h.mu.RUnlock()

	for _, obs := range targets {
		if err := websocket.JSON.Send(obs.conn, env); err != nil {
			// Delivery is best-effort; the read loop will reap dead peers.
			h.logger.Debug("realtime: send failed", "room", obs.room, "event", event, "error", err)
		}
	}
}
