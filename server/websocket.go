package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/callebjorkell/ic-card-reader/nfc"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	clientBuffer = 32
	writeWait    = 5 * time.Second
)

// WebsocketMessage represents a message sent to WebSocket clients.
type WebsocketMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type HelloPayload struct {
	ClientID string         `json:"clientId"`
	Status   StatusResponse `json:"status"`
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan WebsocketMessage
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.send)
	})
}

// clientManager fans reader events out to the connected WebSocket clients.
type clientManager struct {
	mu      sync.RWMutex
	clients map[string]*client
}

func newClientManager() *clientManager {
	return &clientManager{clients: make(map[string]*client)}
}

// register adds a client whose first message is the one built by hello.
func (cm *clientManager) register(conn *websocket.Conn, hello func(id string) WebsocketMessage) *client {
	c := &client{
		id:   uuid.New().String(),
		conn: conn,
		send: make(chan WebsocketMessage, clientBuffer),
	}
	c.send <- hello(c.id)
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.clients[c.id] = c
	return c
}

func (cm *clientManager) unregister(c *client) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if _, ok := cm.clients[c.id]; ok {
		delete(cm.clients, c.id)
		c.close()
	}
}

func (cm *clientManager) closeAll() {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	for id, c := range cm.clients {
		delete(cm.clients, id)
		c.close()
	}
}

func (cm *clientManager) count() int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.clients)
}

// broadcast never blocks: a client that is not keeping up loses the event.
func (cm *clientManager) broadcast(e nfc.Event) {
	msg := WebsocketMessage{Type: WSMessageTypeEvent, Payload: e}
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	for _, c := range cm.clients {
		select {
		case c.send <- msg:
		default:
			logrus.Warnf("WebSocket client %v is too slow, dropping %v event", c.id, e.Kind)
		}
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.Warnf("WebSocket upgrade error: %v", err)
		return
	}

	c := s.clients.register(conn, func(id string) WebsocketMessage {
		return WebsocketMessage{
			Type:    WSMessageTypeHello,
			Payload: HelloPayload{ClientID: id, Status: s.status()},
		}
	})
	logrus.Debugf("WebSocket client %v connected from %v", c.id, r.RemoteAddr)

	go s.writePump(c)
	s.readPump(c)
}

func (s *Server) writePump(c *client) {
	defer c.conn.Close()
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteJSON(msg); err != nil {
			logrus.Debugf("WebSocket write error for %v: %v", c.id, err)
			s.clients.unregister(c)
			return
		}
	}
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
}

// readPump only watches for the client going away, clients drive the reader through the HTTP API.
func (s *Server) readPump(c *client) {
	defer func() {
		s.clients.unregister(c)
		logrus.Debugf("WebSocket client %v disconnected", c.id)
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
