package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/avvvet/kpi-services/internal/comm"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const (
	writeWait  = 10 * time.Second
	sendBuffer = 64
)

// client owns one socket. Only its write loop writes to conn, so a slow
// dashboard never blocks the goroutine that publishes an event.
type client struct {
	id   string
	conn *websocket.Conn
	send chan *comm.WSMessage
	done chan struct{}
	once sync.Once
}

func newClient(id string, conn *websocket.Conn) *client {
	return &client{
		id:   id,
		conn: conn,
		send: make(chan *comm.WSMessage, sendBuffer),
		done: make(chan struct{}),
	}
}

// enqueue reports false when the client is closed or its buffer is full.
func (c *client) enqueue(m *comm.WSMessage) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- m:
		return true
	default:
		return false
	}
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		if c.conn != nil {
			c.conn.Close()
		}
	})
}

// Hub pushes card events to every connected dashboard.
type Hub struct {
	upgrader websocket.Upgrader
	connMap  sync.Map // to keep track of socket connection with socketId
}

func NewHub(checkOrigin func(r *http.Request) bool) *Hub {
	if checkOrigin == nil {
		checkOrigin = func(r *http.Request) bool { return true }
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
	}
}

// HandleWebSocket upgrades the request and keeps the connection until the client leaves.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Errorf("Failed to upgrade to WebSocket: %v", err)
		return
	}

	c := newClient(uuid.New().String(), conn)
	h.connMap.Store(c.id, c)

	log.Infof("New WebSocket connection established: %s", c.id)

	go h.writeLoop(c)
	go h.handleConnection(c)
}

func (h *Hub) writeLoop(c *client) {
	for {
		select {
		case m := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(m); err != nil {
				log.Warnf("dropping socket %s: %v", c.id, err)
				h.drop(c)
				return
			}
		case <-c.done:
			return
		}
	}
}

func (h *Hub) drop(c *client) {
	h.connMap.Delete(c.id)
	c.close()
}

func (h *Hub) handleConnection(c *client) {
	socketId := c.id
	defer func() {
		log.Infof("Closing WebSocket connection: %s", socketId)
		h.drop(c)
	}()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Errorf("WebSocket unexpected close error for socket %s: %v", socketId, err)
			}
			return
		}

		message := &comm.WSMessage{}
		if err := json.Unmarshal(raw, message); err != nil {
			log.Errorf("Failed to unmarshal message from socket %s: %v", socketId, err)
			h.sendError(c, "Invalid message format")
			continue
		}

		switch message.Type {
		case "ping":
			if !c.enqueue(&comm.WSMessage{Type: "pong", SocketId: socketId}) {
				log.Errorf("Failed to answer ping on socket %s", socketId)
			}
		default:
			log.Warnf("unknown event received: %s", message.Type)
		}
	}
}

func (h *Hub) sendError(c *client, errorMsg string) {
	data, _ := json.Marshal(map[string]string{"error": errorMsg})
	if !c.enqueue(&comm.WSMessage{Type: "error", Data: data}) {
		log.Errorf("Failed to send error message to socket %s", c.id)
	}
}

// Broadcast queues m for every open connection without waiting on the
// network. A client whose queue is full is dropped.
func (h *Hub) Broadcast(m *comm.WSMessage) {
	h.connMap.Range(func(key, value any) bool {
		c := value.(*client)
		if !c.enqueue(m) {
			log.Warnf("dropping slow socket %s", c.id)
			h.drop(c)
		}
		return true
	})
}

// PublishCardEvent lets the hub stand in as the service's event publisher
// when no NATS connection is configured.
func (h *Hub) PublishCardEvent(ev comm.CardEvent) error {
	msg, err := ev.ToWSMessage()
	if err != nil {
		return err
	}
	h.Broadcast(msg)
	return nil
}

// RelayCardEvent is the NATS subscription callback.
func (h *Hub) RelayCardEvent(ev comm.CardEvent) {
	if err := h.PublishCardEvent(ev); err != nil {
		log.Errorf("Failed to relay %s event: %v", ev.Type, err)
	}
}

// Count returns the number of connected dashboards.
func (h *Hub) Count() int {
	count := 0
	h.connMap.Range(func(key, value any) bool {
		count++
		return true
	})
	return count
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.connMap.Range(func(key, value any) bool {
		c := value.(*client)
		if c.conn == nil {
			h.drop(c)
			return true
		}
		c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		h.drop(c)
		return true
	})
}
