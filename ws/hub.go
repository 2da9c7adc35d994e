package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"fruitRouletteServer/config"
	"fruitRouletteServer/state"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type outbound struct {
	channel string
	message interface{}
}

// Hub is the single websocket fan-out point. Engine events reach it through
// Broadcast; client requests are executed against the engine directly.
type Hub struct {
	engine *state.RoundEngine

	clients      map[*ClientConnection]bool
	clientsMutex sync.RWMutex

	register   chan *ClientConnection
	unregister chan *ClientConnection
	broadcast  chan outbound
	done       chan struct{}

	upgrader websocket.Upgrader
}

func NewHub(engine *state.RoundEngine) *Hub {
	return &Hub{
		engine:     engine,
		clients:    make(map[*ClientConnection]bool),
		register:   make(chan *ClientConnection),
		unregister: make(chan *ClientConnection),
		broadcast:  make(chan outbound, 256),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.WSReadBufferSize,
			WriteBufferSize: config.WSWriteBufferSize,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Run is the central message dispatcher. It returns when ctx is cancelled,
// closing every client's send channel.
func (h *Hub) Run(ctx context.Context) {
	log.Println("🚀 Event hub started")
	defer close(h.done)

	for {
		select {
		case client := <-h.register:
			h.clientsMutex.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.clientsMutex.Unlock()
			log.Printf("✅ Client registered: %s (Total: %d)", client.ID, total)

		case client := <-h.unregister:
			h.clientsMutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
			}
			total := len(h.clients)
			h.clientsMutex.Unlock()
			log.Printf("👋 Client unregistered: %s (Total: %d)", client.ID, total)

		case out := <-h.broadcast:
			h.broadcastToSubscribers(out.channel, out.message)

		case <-ctx.Done():
			h.clientsMutex.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.Send)
			}
			h.clientsMutex.Unlock()
			log.Println("🛑 Event hub stopped")
			return
		}
	}
}

// Broadcast queues a message for every client subscribed to channel
func (h *Hub) Broadcast(channel string, message interface{}) {
	select {
	case h.broadcast <- outbound{channel: channel, message: message}:
	case <-h.done:
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.clientsMutex.RLock()
	defer h.clientsMutex.RUnlock()
	return len(h.clients)
}

// broadcastToSubscribers sends message to all clients subscribed to a channel
func (h *Hub) broadcastToSubscribers(channel string, message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("❌ Failed to marshal message for %s: %v", channel, err)
		return
	}

	h.clientsMutex.RLock()
	defer h.clientsMutex.RUnlock()

	for client := range h.clients {
		if !client.isSubscribed(channel) {
			continue
		}
		select {
		case client.Send <- data:
		default:
			// Client's send channel is full, skip
			log.Printf("⚠️  Client %s send buffer full, skipping message", client.ID)
		}
	}
}

// HandleWS is the single WebSocket endpoint
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	log.Println("📥 WebSocket connection from:", r.RemoteAddr)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("❌ WebSocket upgrade failed:", err)
		return
	}

	client := &ClientConnection{
		ID:            uuid.NewString(),
		Conn:          conn,
		Subscriptions: make(map[string]bool),
		Send:          make(chan []byte, config.WSSendBufferSize),
		hub:           h,
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
