package webui

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"interview/pkg/interview"
)

const (
	pingInterval  = 30 * time.Second
	readDeadline  = 60 * time.Second
	writeDeadline = 10 * time.Second
)

//nolint:gochecknoglobals // Upgrader is stateless shared config
var upgrader = websocket.Upgrader{
	CheckOrigin: func(_ *http.Request) bool {
		return true // Localhost deployment; the engine holds no secrets
	},
}

// activeSession is one running interview plus its connected browsers.
type activeSession struct {
	id         string
	controller *interview.Controller
	bridge     *speechBridge
	cancel     context.CancelFunc

	mu      sync.Mutex
	clients map[*client]bool
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// launch starts the controller and the event pump that fans engine events
// out to every connected client.
func (s *Server) launch(controller *interview.Controller, bridge *speechBridge) *activeSession {
	ctx, cancel := context.WithCancel(context.Background())
	active := &activeSession{
		id:         controller.Session().ID(),
		controller: controller,
		bridge:     bridge,
		cancel:     cancel,
	}
	active.clients = make(map[*client]bool)
	bridge.bind(active.broadcast)

	s.mu.Lock()
	s.sessions[active.id] = active
	s.mu.Unlock()

	go func() {
		if err := controller.Run(ctx); err != nil {
			s.logger.Warn("Session %s ended with error: %v", active.id, err)
		}
		cancel()
	}()
	go s.pumpEvents(active)

	return active
}

// pumpEvents forwards engine events to all connected clients. Terminal
// events end the pump and drop the session from the active set.
func (s *Server) pumpEvents(active *activeSession) {
	for event := range active.controller.Events() {
		if s.eventSink != nil {
			s.eventSink(event)
		}
		payload, err := json.Marshal(event)
		if err != nil {
			s.logger.Error("Failed to marshal event: %v", err)
			continue
		}
		active.broadcast(payload)

		if event.Type == interview.EventSessionCompleted || event.Type == interview.EventSessionAborted {
			s.mu.Lock()
			delete(s.sessions, active.id)
			s.mu.Unlock()
			active.closeClients()
			return
		}
	}
}

func (a *activeSession) broadcast(payload []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for c := range a.clients {
		select {
		case c.send <- payload:
		default:
			// Slow client; drop it rather than stall the session.
			delete(a.clients, c)
			close(c.send)
		}
	}
}

func (a *activeSession) closeClients() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for c := range a.clients {
		close(c.send)
	}
	a.clients = make(map[*client]bool)
}

func (a *activeSession) attach(c *client) {
	a.mu.Lock()
	a.clients[c] = true
	a.mu.Unlock()
}

func (a *activeSession) detach(c *client) {
	a.mu.Lock()
	if a.clients[c] {
		delete(a.clients, c)
		close(c.send)
	}
	a.mu.Unlock()
}

// handleWebSocket attaches a browser to a running session: events flow out,
// intents flow in.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	active, ok := s.sessions[r.PathValue("id")]
	s.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("WebSocket upgrade failed: %v", err)
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, 256),
	}
	active.attach(c)
	active.bridge.clientAttached()

	go s.writePump(c)
	s.readPump(active, c)
}

// readPump parses incoming intents and feeds them to the controller. Exits
// on any read error, detaching the client.
func (s *Server) readPump(active *activeSession, c *client) {
	defer func() {
		active.detach(c)
		_ = c.conn.Close()
	}()

	_ = c.conn.SetReadDeadline(time.Now().Add(readDeadline))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(readDeadline))
	})

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var intent interview.Intent
		if err := json.Unmarshal(payload, &intent); err != nil {
			s.logger.Warn("Dropping malformed intent: %v", err)
			continue
		}
		// Speech messages go to the bridge; everything else is a host intent.
		if active.bridge.handleMessage(string(intent.Type), intent.Text) {
			continue
		}
		active.controller.HandleIntent(intent)
	}
}

// writePump delivers outgoing events and keeps the connection alive with
// pings.
func (s *Server) writePump(c *client) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
