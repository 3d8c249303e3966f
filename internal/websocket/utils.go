package websocket

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/stemsi/learning-portal/internal/assessment"
)

const (
	writeWait = 10 * time.Second
	// readWait is generous: a student may think about one question for a long time.
	readWait = 5 * time.Minute
)

// WriteTyped sends a strongly-typed response payload over the WebSocket.
func WriteTyped(conn *websocket.Conn, v interface{}) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(v)
}

// WriteError sends a typed ErrorResponse over the WebSocket.
func WriteError(conn *websocket.Conn, errMsg string) error {
	return WriteTyped(conn, ErrorResponse{
		Event: EventError,
		Error: errMsg,
	})
}

// ─── Attempt events ─────────────────────────────────────────────────

// BuildEvent picks the event for a snapshot: result once submitted, a tick
// when only the clock moved since prev, a full view otherwise.
func BuildEvent(prev *assessment.View, v assessment.View) interface{} {
	if v.State == assessment.StateSubmitted {
		return ResultResponse{Event: EventResult, View: v}
	}
	if prev != nil && sameExceptClock(*prev, v) {
		return TickResponse{Event: EventTick, Remaining: v.Remaining, Clock: v.Clock, Tier: v.Tier}
	}
	return ViewResponse{Event: EventView, View: v}
}

func sameExceptClock(a, b assessment.View) bool {
	if a.State != b.State || a.Index != b.Index || a.Answer != b.Answer ||
		a.SubmitError != b.SubmitError || a.Warning != b.Warning || len(a.Markers) != len(b.Markers) {
		return false
	}
	for i := range a.Markers {
		if a.Markers[i] != b.Markers[i] {
			return false
		}
	}
	return true
}

// ReadJSON reads and decodes a message into the provided structure.
// It sets a read deadline.
func ReadJSON(conn *websocket.Conn, v interface{}) error {
	conn.SetReadDeadline(time.Now().Add(readWait))
	return conn.ReadJSON(v)
}
