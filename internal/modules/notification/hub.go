package notification

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"roomclean/internal/domain"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// wsConn is the part of *websocket.Conn the hub needs.
type wsConn interface {
	WriteJSON(v interface{}) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

type client struct {
	actor domain.Actor
	conn  wsConn
	mu    sync.Mutex
}

func (c *client) write(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(v)
}

func (c *client) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// Hub keeps the live websocket connections of signed-in users. A user may
// have several tabs open; admin-pool notifications go to every admin.
type Hub struct {
	mu      sync.RWMutex
	clients map[int64]map[*client]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[int64]map[*client]struct{})}
}

func (h *Hub) Name() string { return "websocket" }

func (h *Hub) register(actor domain.Actor, conn wsConn) *client {
	c := &client{actor: actor, conn: conn}
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[actor.ID]
	if !ok {
		set = make(map[*client]struct{})
		h.clients[actor.ID] = set
	}
	set[c] = struct{}{}
	return c
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	set, ok := h.clients[c.actor.ID]
	if ok {
		if _, exists := set[c]; exists {
			delete(set, c)
			if len(set) == 0 {
				delete(h.clients, c.actor.ID)
			}
		} else {
			ok = false
		}
	}
	h.mu.Unlock()
	if ok {
		_ = c.conn.Close()
	}
}

func (h *Hub) recipients(n domain.Notification) []*client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var out []*client
	if n.RecipientID != 0 {
		for c := range h.clients[n.RecipientID] {
			out = append(out, c)
		}
		return out
	}
	for _, set := range h.clients {
		for c := range set {
			if c.actor.Role == n.RecipientRole {
				out = append(out, c)
			}
		}
	}
	return out
}

// Deliver pushes n to every open connection of its recipient. Nobody being
// online is not an error: the notification stays in the inbox.
func (h *Hub) Deliver(_ context.Context, n domain.Notification) error {
	for _, c := range h.recipients(n) {
		if err := c.write(n); err != nil {
			h.unregister(c)
		}
	}
	return nil
}

func (h *Hub) IsOnline(userID int64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID]) > 0
}

func (h *Hub) OnlineCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, set := range h.clients {
		n += len(set)
	}
	return n
}

// Serve registers conn and blocks until the peer goes away or ctx is done.
// Inbound messages are discarded; the stream is push only.
func (h *Hub) Serve(ctx context.Context, actor domain.Actor, conn *websocket.Conn) {
	c := h.register(actor, conn)
	defer h.unregister(c)

	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-closed:
			return
		case <-ticker.C:
			if err := c.ping(); err != nil {
				return
			}
		}
	}
}

func (h *Hub) Close() {
	h.mu.Lock()
	all := h.clients
	h.clients = make(map[int64]map[*client]struct{})
	h.mu.Unlock()

	for _, set := range all {
		for c := range set {
			_ = c.conn.Close()
		}
	}
}
