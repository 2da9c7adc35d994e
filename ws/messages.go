package ws

import (
	"fmt"
	"math"

	"fruitRouletteServer/state"
)

// Message types from client
type ClientMessage struct {
	Type string                 `json:"type"`
	Data map[string]interface{} `json:"data,omitempty"`
}

// Outbound message types
const (
	MsgRoundState   = "round_state"
	MsgRoundResult  = "round_result"
	MsgRoundHistory = "round_history"
	MsgSegments     = "segments"
	MsgAck          = "ack"
	MsgError        = "error"
)

func roundStateMessage(ev state.Event) map[string]interface{} {
	return map[string]interface{}{
		"type":  MsgRoundState,
		"event": ev.Kind,
		"data":  ev.Snapshot,
	}
}

func roundResultMessage(s *state.Settlement) map[string]interface{} {
	return map[string]interface{}{
		"type": MsgRoundResult,
		"data": s,
	}
}

func roundHistoryMessage(history []state.HistoryEntry) map[string]interface{} {
	return map[string]interface{}{
		"type":    MsgRoundHistory,
		"history": history,
	}
}

func stringField(data map[string]interface{}, key string) string {
	v, _ := data[key].(string)
	return v
}

// intField reads a whole-number field. JSON numbers arrive as float64.
func intField(data map[string]interface{}, key string) (int64, bool, error) {
	raw, present := data[key]
	if !present || raw == nil {
		return 0, false, nil
	}
	f, ok := raw.(float64)
	if !ok || f != math.Trunc(f) || math.Abs(f) > math.MaxInt64/2 {
		return 0, true, fmt.Errorf("%w: %s must be a whole number", state.ErrInvalidAmount, key)
	}
	return int64(f), true, nil
}
