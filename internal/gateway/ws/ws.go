// Package ws serves the floor event stream over websockets. A client
// connects with a staff token and a restaurantId, receives every event on
// the restaurant topic, and can join the kitchen or floor topics.
package ws

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"floorsync-system/internal/domain"
	"floorsync-system/internal/gateway/middleware"
	"floorsync-system/internal/realtime"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// Frame is one message on the wire in either direction.
type Frame struct {
	Event string          `json:"event"`
	Topic domain.Topic    `json:"topic,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type Handler struct {
	registry *realtime.Registry
	upgrader websocket.Upgrader
	log      *slog.Logger
}

// NewHandler builds the websocket endpoint. An empty origins list or "*"
// accepts any origin.
func NewHandler(registry *realtime.Registry, origins []string, log *slog.Logger) *Handler {
	return &Handler{
		registry: registry,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(origins),
		},
		log: log.With("component", "ws"),
	}
}

func originChecker(origins []string) func(r *http.Request) bool {
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		return func(*http.Request) bool { return true }
	}
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[strings.TrimRight(o, "/")] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || allowed[origin]
	}
}

// peer is the bus sink for one socket. Writes are serialized because
// gorilla connections allow one concurrent writer.
type peer struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (p *peer) write(f Frame) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return p.conn.WriteJSON(f)
}

func (p *peer) send(event string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return p.write(Frame{Event: event, Data: raw})
}

func (p *peer) Deliver(ev domain.Event) error {
	raw, err := json.Marshal(ev.Payload)
	if err != nil {
		return err
	}
	return p.write(Frame{Event: ev.Name, Topic: ev.Topic, Data: raw})
}

func reject(c *gin.Context, err error) {
	status := http.StatusUnauthorized
	if errors.Is(err, domain.ErrValidation) {
		status = http.StatusBadRequest
	}
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"message": err.Error(),
		"error":   gin.H{"kind": domain.KindOf(err)},
	})
}

// Serve authenticates before upgrading, so a rejected client never
// joins a topic.
func (h *Handler) Serve(c *gin.Context) {
	identity, err := h.registry.Authenticate(middleware.BearerToken(c), c.Query("restaurantId"))
	if err != nil {
		h.log.Warn("connection rejected", "error", err, "remote_addr", c.ClientIP())
		reject(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("upgrade failed", "error", err)
		return
	}
	p := &peer{conn: conn}
	registered, err := h.registry.Register(identity, p)
	if err != nil {
		h.log.Error("register failed", "error", err)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "unavailable"),
			time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}
	_ = p.send("connected", gin.H{
		"connectionId": registered.ID,
		"restaurantId": registered.RestaurantID,
	})

	done := make(chan struct{})
	go h.keepalive(conn, done)
	h.readLoop(registered, p)
	close(done)
	h.registry.Disconnect(registered.ID)
	_ = conn.Close()
}

func (h *Handler) keepalive(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

// readLoop handles client actions until the socket closes. Actions are
// "kitchen:join", "floor:join", "kitchen:leave", "floor:leave" and "ping".
func (h *Handler) readLoop(conn *realtime.Connection, p *peer) {
	ws := p.conn
	ws.SetReadLimit(maxMessageSize)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg Frame
		if err := ws.ReadJSON(&msg); err != nil {
			var syntax *json.SyntaxError
			var typ *json.UnmarshalTypeError
			if errors.As(err, &syntax) || errors.As(err, &typ) {
				_ = p.send("error", gin.H{"message": "malformed message"})
				continue
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug("read failed", "connection_id", conn.ID, "error", err)
			}
			return
		}
		_ = ws.SetReadDeadline(time.Now().Add(pongWait))
		h.handle(conn, p, msg)
	}
}

func (h *Handler) handle(conn *realtime.Connection, p *peer, msg Frame) {
	if msg.Event == "ping" {
		_ = p.send("pong", gin.H{"at": time.Now().UTC()})
		return
	}
	name, action, ok := strings.Cut(msg.Event, ":")
	if !ok || (action != "join" && action != "leave") {
		_ = p.send("error", gin.H{"message": "unknown action " + msg.Event})
		return
	}
	scope, err := domain.ParseScope(name)
	if err != nil {
		_ = p.send("error", gin.H{"message": err.Error()})
		return
	}
	if action == "join" {
		err = h.registry.Join(conn.ID, scope)
	} else {
		err = h.registry.Leave(conn.ID, scope)
	}
	if err != nil {
		_ = p.send("error", gin.H{"message": err.Error()})
		return
	}
	ack := name + ":joined"
	if action == "leave" {
		ack = name + ":left"
	}
	_ = p.send(ack, gin.H{"scope": scope})
}
