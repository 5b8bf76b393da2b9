// Package ws fans WebSocket messages out to groups of connections.
package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBufferSize = 32
)

// YouTubeGroup is the broadcast group of /ws/youtube-live sockets
const YouTubeGroup = "youtube-live"

// Message types
const (
	TypeTranscriptionUpdate = "transcription_update"
	TypeFactCheckResult     = "fact_check_result"
	TypeVideoChanged        = "video_changed"
	TypeNewTranscript       = "new_transcript"
	TypeNewFactCheck        = "new_fact_check"
	TypePing                = "ping"
	TypePong                = "pong"
	TypeError               = "error"
	TypeGetCurrentSession   = "get_current_session"
	TypeCurrentSession      = "current_session"
)

// Message is the envelope of every frame
type Message struct {
	Type    string `json:"type"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

// Hub tracks connections by group
type Hub struct {
	mu       sync.RWMutex
	groups   map[string]map[*Conn]struct{}
	upgrader websocket.Upgrader
	logger   *zap.Logger
	wg       sync.WaitGroup
}

// NewHub creates an empty hub. Origins are not checked; CORS is open.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		groups: make(map[string]map[*Conn]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger: logger,
	}
}

// Conn is one registered WebSocket with its outbound queue
type Conn struct {
	hub   *Hub
	group string
	ws    *websocket.Conn
	send  chan []byte
}

// Upgrade switches the request to a WebSocket and registers it in group
func (h *Hub) Upgrade(w http.ResponseWriter, r *http.Request, group string) (*Conn, error) {
	wsConn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}
	return h.register(group, wsConn), nil
}

func (h *Hub) register(group string, wsConn *websocket.Conn) *Conn {
	c := &Conn{
		hub:   h,
		group: group,
		ws:    wsConn,
		send:  make(chan []byte, sendBufferSize),
	}

	h.mu.Lock()
	if h.groups[group] == nil {
		h.groups[group] = make(map[*Conn]struct{})
	}
	h.groups[group][c] = struct{}{}
	h.mu.Unlock()

	h.wg.Add(1)
	go c.writePump()

	h.logger.Debug("websocket connected", zap.String("group", group))
	return c
}

// unregister removes c and closes its queue; safe to call more than once
func (h *Hub) unregister(c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns, ok := h.groups[c.group]
	if !ok {
		return
	}
	if _, ok := conns[c]; !ok {
		return
	}
	delete(conns, c)
	if len(conns) == 0 {
		delete(h.groups, c.group)
	}
	close(c.send)
	h.logger.Debug("websocket disconnected", zap.String("group", c.group))
}

// Broadcast sends v to every connection of group and returns how many
// queues accepted it. Connections whose queue is full miss the message.
func (h *Hub) Broadcast(group string, v any) int {
	data, err := json.Marshal(v)
	if err != nil {
		h.logger.Error("encode broadcast", zap.Error(err))
		return 0
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for c := range h.groups[group] {
		select {
		case c.send <- data:
			delivered++
		default:
			h.logger.Warn("dropping message for slow websocket", zap.String("group", group))
		}
	}
	return delivered
}

// Publish broadcasts a typed message to group
func (h *Hub) Publish(group, msgType string, data any) {
	h.Broadcast(group, Message{Type: msgType, Data: data})
}

// Count returns the number of connections in group
func (h *Hub) Count(group string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[group])
}

// Close disconnects every connection and waits for the writers to exit
func (h *Hub) Close() {
	h.mu.Lock()
	for group, conns := range h.groups {
		for c := range conns {
			close(c.send)
		}
		delete(h.groups, group)
	}
	h.mu.Unlock()

	h.wg.Wait()
}

// Send queues a message for this connection only
func (c *Conn) Send(v any) bool {
	data, err := json.Marshal(v)
	if err != nil {
		c.hub.logger.Error("encode message", zap.Error(err))
		return false
	}

	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()

	if _, ok := c.hub.groups[c.group][c]; !ok {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// ReadLoop delivers each inbound frame to handle until the socket closes,
// then unregisters the connection
func (c *Conn) ReadLoop(handle func(data []byte)) {
	defer func() {
		c.hub.unregister(c)
		_ = c.ws.Close()
	}()

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				c.hub.logger.Debug("websocket read error", zap.String("group", c.group), zap.Error(err))
			}
			return
		}
		handle(data)
	}
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
		c.hub.wg.Done()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
