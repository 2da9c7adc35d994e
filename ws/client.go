package ws

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"fruitRouletteServer/config"
	"fruitRouletteServer/state"

	"github.com/gorilla/websocket"
)

// ClientConnection represents a connected client with their subscriptions
type ClientConnection struct {
	ID            string
	Conn          *websocket.Conn
	Subscriptions map[string]bool
	mu            sync.RWMutex
	writeMutex    sync.Mutex // Protects websocket writes
	Send          chan []byte

	hub *Hub
}

// writeJSON safely writes JSON to the websocket with mutex protection
func (c *ClientConnection) writeJSON(v interface{}) error {
	c.writeMutex.Lock()
	defer c.writeMutex.Unlock()
	c.Conn.SetWriteDeadline(time.Now().Add(config.WSWriteDeadline))
	return c.Conn.WriteJSON(v)
}

func (c *ClientConnection) isSubscribed(channel string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Subscriptions[channel]
}

// writePump sends messages from the Send channel to the WebSocket
func (c *ClientConnection) writePump() {
	ticker := time.NewTicker(config.WSPingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.writeMutex.Lock()
			c.Conn.SetWriteDeadline(time.Now().Add(config.WSWriteDeadline))
			if !ok {
				// Hub closed the channel
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				c.writeMutex.Unlock()
				return
			}
			err := c.Conn.WriteMessage(websocket.TextMessage, message)
			c.writeMutex.Unlock()

			if err != nil {
				log.Printf("❌ Write error for client %s: %v", c.ID, err)
				return
			}

		case <-ticker.C:
			c.writeMutex.Lock()
			c.Conn.SetWriteDeadline(time.Now().Add(config.WSWriteDeadline))
			err := c.Conn.WriteMessage(websocket.PingMessage, nil)
			c.writeMutex.Unlock()
			if err != nil {
				return
			}
		}
	}
}

// readPump reads messages from the WebSocket and handles subscriptions/requests
func (c *ClientConnection) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(config.WSReadDeadline))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(config.WSReadDeadline))
	})

	for {
		var msg ClientMessage
		if err := c.Conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("❌ Read error for client %s: %v", c.ID, err)
			}
			return
		}
		c.Conn.SetReadDeadline(time.Now().Add(config.WSReadDeadline))

		c.handleMessage(msg)
	}
}

// handleMessage processes incoming client messages
func (c *ClientConnection) handleMessage(msg ClientMessage) {
	if msg.Data == nil {
		msg.Data = map[string]interface{}{}
	}

	switch msg.Type {
	case "subscribe":
		channel := stringField(msg.Data, "channel")
		if channel == "" {
			channel = config.RoundChannel
		}
		c.mu.Lock()
		c.Subscriptions[channel] = true
		c.mu.Unlock()
		log.Printf("📡 Client %s subscribed to: %s", c.ID, channel)

		c.sendInitialData(channel)

	case "unsubscribe":
		channel := stringField(msg.Data, "channel")
		c.mu.Lock()
		delete(c.Subscriptions, channel)
		c.mu.Unlock()
		log.Printf("📴 Client %s unsubscribed from: %s", c.ID, channel)

	case "place_bet", "place_chip", "adjust_bet", "clear_bets", "double_bets",
		"select_chip", "spin", "new_round":
		snap, err := c.runOperation(msg)
		if err != nil {
			c.sendError(msg.Type, err)
			return
		}
		c.writeJSON(map[string]interface{}{
			"type": MsgAck,
			"op":   msg.Type,
			"data": snap,
		})

	default:
		log.Printf("⚠️  Unknown message type from client %s: %s", c.ID, msg.Type)
		c.sendError(msg.Type, fmt.Errorf("unknown message type %q", msg.Type))
	}
}

func (c *ClientConnection) runOperation(msg ClientMessage) (state.Snapshot, error) {
	engine := c.hub.engine
	segmentID := stringField(msg.Data, "segmentId")

	switch msg.Type {
	case "place_bet":
		amount, present, err := intField(msg.Data, "amount")
		if err != nil {
			return state.Snapshot{}, err
		}
		if !present {
			return engine.PlaceChip(segmentID)
		}
		return engine.PlaceBet(segmentID, amount)

	case "place_chip":
		return engine.PlaceChip(segmentID)

	case "adjust_bet":
		delta, present, err := intField(msg.Data, "delta")
		if err != nil {
			return state.Snapshot{}, err
		}
		if !present {
			return state.Snapshot{}, fmt.Errorf("%w: delta is required", state.ErrInvalidAmount)
		}
		return engine.AdjustBet(segmentID, delta)

	case "clear_bets":
		return engine.ClearBets()

	case "double_bets":
		return engine.DoubleBets()

	case "select_chip":
		switch stringField(msg.Data, "preset") {
		case "max":
			return engine.SelectMaxChip()
		case "min":
			return engine.SelectMinChip()
		}
		value, _, err := intField(msg.Data, "value")
		if err != nil {
			return state.Snapshot{}, err
		}
		return engine.SelectChip(value)

	case "spin":
		return engine.TriggerSpin()

	case "new_round":
		return engine.StartNewRound()
	}
	return state.Snapshot{}, fmt.Errorf("unsupported operation %q", msg.Type)
}

// sendError replies to this client only
func (c *ClientConnection) sendError(op string, err error) {
	code := state.ErrorCode(err)
	if code == "" {
		code = "BAD_REQUEST"
	}
	if werr := c.writeJSON(map[string]interface{}{
		"type":      MsgError,
		"op":        op,
		"code":      code,
		"error":     err.Error(),
		"retryable": errors.Is(err, state.ErrInvalidPhase),
	}); werr != nil {
		log.Printf("⚠️  Failed to send error to client %s: %v", c.ID, werr)
	}
}

// sendInitialData sends the current state when a client subscribes
func (c *ClientConnection) sendInitialData(channel string) {
	if channel != config.RoundChannel {
		return
	}

	engine := c.hub.engine
	snap := engine.Snapshot()
	history := engine.History()

	messages := []interface{}{
		map[string]interface{}{
			"type":  MsgRoundState,
			"event": "snapshot",
			"data":  snap,
		},
		map[string]interface{}{
			"type":       MsgSegments,
			"segments":   engine.Segments(),
			"chipValues": engine.ChipValues(),
		},
		roundHistoryMessage(history),
	}
	for _, m := range messages {
		if err := c.writeJSON(m); err != nil {
			log.Printf("⚠️  Failed to send initial data to client %s: %v", c.ID, err)
			return
		}
	}
	log.Printf("📨 Client %s subscribed to round - sent %d history items", c.ID, len(history))
}
