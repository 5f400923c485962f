package main

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"docinsight/internal/pipeline"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 16
)

// The default origin check rejects cross-site handshakes, which would
// otherwise ride the session cookie.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// progressEvent is pushed to every socket subscribed to a session.
type progressEvent struct {
	Type      string    `json:"type"`
	SessionID string    `json:"session_id"`
	Stage     string    `json:"stage"`
	At        time.Time `json:"at"`
}

// eventHub fans pipeline progress out to websocket clients by session.
type eventHub struct {
	mu      sync.RWMutex
	clients map[string]map[*eventClient]struct{}
	logger  *zap.Logger
}

type eventClient struct {
	hub       *eventHub
	conn      *websocket.Conn
	sessionID string
	send      chan []byte
	closeOnce sync.Once
}

func newEventHub(logger *zap.Logger) *eventHub {
	return &eventHub{
		clients: make(map[string]map[*eventClient]struct{}),
		logger:  logger,
	}
}

func (h *eventHub) register(c *eventClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.sessionID]
	if !ok {
		set = make(map[*eventClient]struct{})
		h.clients[c.sessionID] = set
	}
	set[c] = struct{}{}
}

func (h *eventHub) unregister(c *eventClient) {
	h.mu.Lock()
	if set, ok := h.clients[c.sessionID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.clients, c.sessionID)
		}
	}
	h.mu.Unlock()
	c.closeOnce.Do(func() { close(c.send) })
}

// subscribers reports how many sockets follow sessionID.
func (h *eventHub) subscribers(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[sessionID])
}

// publish is the pipeline's ProgressFunc. Slow clients miss events rather
// than stalling the pipeline.
func (h *eventHub) publish(sessionID string, stage pipeline.Stage) {
	data, _ := json.Marshal(progressEvent{
		Type:      "progress",
		SessionID: sessionID,
		Stage:     string(stage),
		At:        time.Now(),
	})

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients[sessionID] {
		select {
		case c.send <- data:
		default:
			h.logger.Warn("event buffer full, dropping progress event",
				zap.String("session", sessionID), zap.String("stage", string(stage)))
		}
	}
}

// handleEvents upgrades to a websocket that streams the caller's progress.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := eventSession(r)
	if !ok {
		jsonErr(w, "Session does not match the caller", http.StatusForbidden)
		return
	}
	if _, ok := s.sessions.Get(sessionID); !ok {
		jsonErr(w, "Unknown session", http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	c := &eventClient{
		hub:       s.events,
		conn:      conn,
		sessionID: sessionID,
		send:      make(chan []byte, sendBuffer),
	}
	s.events.register(c)
	go c.writePump()
	c.readPump()
}

// eventSession resolves the subscriber from the session header or cookie.
// A session query parameter is only accepted when it names that same
// session, so knowing an ID is not enough to watch it.
func eventSession(r *http.Request) (string, bool) {
	id := r.Header.Get(sessionHeader)
	if id == "" {
		if c, err := r.Cookie(sessionCookie); err == nil {
			id = c.Value
		}
	}
	if q := r.URL.Query().Get("session"); q != "" && q != id {
		return "", false
	}
	return id, true
}

// readPump drains client frames so pongs and close frames are processed.
func (c *eventClient) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Debug("websocket closed", zap.String("session", c.sessionID), zap.Error(err))
			}
			return
		}
	}
}

func (c *eventClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
