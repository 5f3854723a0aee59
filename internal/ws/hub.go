// Package ws pushes the job queues' status transitions to connected
// clients so they can stop polling get_job_status. The stream is push-only
// and advisory: the core never blocks on it and clients that fall behind
// are dropped.
package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gorilla/websocket"
)

// Hub fans job events out to connected clients. It never blocks the caller:
// slow clients are dropped rather than back-pressuring the core.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	mutex      sync.RWMutex
	logger     *log.Logger
}

func NewHub(logger *log.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 1024),
		register:   make(chan *Client, 128),
		unregister: make(chan *Client, 128),
		logger:     logger,
	}
}

func (h *Hub) Register(c *Client) {
	if c != nil {
		h.register <- c
	}
}

func (h *Hub) Unregister(c *Client) {
	if c != nil {
		h.unregister <- c
	}
}

// Broadcast queues a message for every connected client; dropped when the
// hub's buffer is full.
func (h *Hub) Broadcast(message []byte) {
	select {
	case h.broadcast <- message:
	default:
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			if client == nil {
				continue
			}
			h.mutex.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mutex.Unlock()
			if h.logger != nil {
				h.logger.Printf("WS connected | total_clients=%d", total)
			}

		case client := <-h.unregister:
			if client == nil {
				continue
			}
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			total := len(h.clients)
			h.mutex.Unlock()
			if h.logger != nil {
				h.logger.Printf("WS disconnected | total_clients=%d", total)
			}

		case message := <-h.broadcast:
			h.mutex.RLock()
			snapshot := make([]*Client, 0, len(h.clients))
			for c := range h.clients {
				snapshot = append(snapshot, c)
			}
			h.mutex.RUnlock()

			for _, client := range snapshot {
				select {
				case client.send <- message:
				default:
					h.unregister <- client
				}
			}
		}
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// QueueDepths is the pending backlog of both job queues.
type QueueDepths struct {
	PendingAnalysis   uint64 `json:"pending_analysis"`
	PendingEnrichment uint64 `json:"pending_enrichment"`
}

// queueDepthEvent is the greeting frame sent on connect.
type queueDepthEvent struct {
	Type string `json:"type"`
	QueueDepths
	Timestamp string `json:"timestamp"`
}

// JobsFeed returns the /ws/jobs handler. A new client immediately receives
// a queue_depth snapshot taken from the core, so it can render the current
// backlog without an extra poll; every later frame is a job_status
// transition broadcast by the store's notifier.
func (h *Hub) JobsFeed(depths func() QueueDepths) fiber.Handler {
	return adaptor.HTTPHandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			if h.logger != nil {
				h.logger.Printf("WS upgrade error | error=%v", err)
			}
			return
		}

		client := NewClient(h, conn)
		if depths != nil {
			evt := queueDepthEvent{
				Type:        "queue_depth",
				QueueDepths: depths(),
				Timestamp:   time.Now().UTC().Format(time.RFC3339),
			}
			if b, err := json.Marshal(evt); err == nil {
				client.send <- b
			}
		}
		h.Register(client)
		go client.WritePump()
		go client.ReadPump()
	})
}
