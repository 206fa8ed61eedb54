package server

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/voidshard/tillcounter/pkg/domain"
)

const writeWait = 5 * time.Second

// Hub fans ledger events out to every connected websocket.
type Hub struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	stop       chan struct{}
	done       chan struct{}
	mu         sync.Mutex
	log        zerolog.Logger
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
		log:        log,
	}
}

// Start runs the hub loop until Stop is called.
func (h *Hub) Start() {
	go func() {
		defer close(h.done)
		for {
			select {
			case client := <-h.register:
				h.mu.Lock()
				h.clients[client] = true
				n := len(h.clients)
				h.mu.Unlock()
				h.log.Debug().Int("clients", n).Msg("websocket client connected")
			case client := <-h.unregister:
				h.mu.Lock()
				if _, ok := h.clients[client]; ok {
					delete(h.clients, client)
					client.Close()
				}
				n := len(h.clients)
				h.mu.Unlock()
				h.log.Debug().Int("clients", n).Msg("websocket client disconnected")
			case message := <-h.broadcast:
				h.mu.Lock()
				for client := range h.clients {
					client.SetWriteDeadline(time.Now().Add(writeWait))
					if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
						h.log.Debug().Err(err).Msg("dropping websocket client")
						client.Close()
						delete(h.clients, client)
					}
				}
				h.mu.Unlock()
			case <-h.stop:
				h.mu.Lock()
				for client := range h.clients {
					client.Close()
					delete(h.clients, client)
				}
				h.mu.Unlock()
				return
			}
		}
	}()
}

func (h *Hub) Stop() {
	close(h.stop)
	<-h.done
}

// Publish queues e for every client. Events are dropped rather than
// blocking the ledger when the hub is backed up or stopped.
func (h *Hub) Publish(e domain.Event) {
	data, err := json.Marshal(e)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to marshal event")
		return
	}
	select {
	case h.broadcast <- data:
	default:
		h.log.Warn().Str("kind", string(e.Kind)).Msg("event feed backed up, dropping event")
	}
}

func (h *Hub) Register(conn *websocket.Conn) {
	select {
	case h.register <- conn:
	case <-h.done:
		conn.Close()
	}
}

func (h *Hub) Unregister(conn *websocket.Conn) {
	select {
	case h.unregister <- conn:
	case <-h.done:
	}
}

// Clients is the number of connected websockets.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
