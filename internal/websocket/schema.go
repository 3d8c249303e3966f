package websocket

import "github.com/stemsi/learning-portal/internal/assessment"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionNext          Action = "next"
	ActionPrev          Action = "prev"
	ActionJump          Action = "jump"
	ActionAnswer        Action = "answer"
	ActionOpenSubmit    Action = "open_submit"
	ActionCancelSubmit  Action = "cancel_submit"
	ActionConfirmSubmit Action = "confirm_submit"
	ActionRequestExit   Action = "request_exit"
	ActionCancelExit    Action = "cancel_exit"
	ActionConfirmExit   Action = "confirm_exit"
	ActionPing          Action = "ping"
)

// ActionRequest is one attempt command. Index is used by jump, Value by answer.
// The same body is accepted by the REST actions endpoint.
type ActionRequest struct {
	Action Action  `json:"action" validate:"required"`
	Index  *int    `json:"index,omitempty"`
	Value  *string `json:"value,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventView   Event = "view"
	EventTick   Event = "tick"
	EventResult Event = "result"
	EventError  Event = "error"
	EventPong   Event = "pong"
)

// ViewResponse carries a full attempt snapshot, sent on connect and after
// every state change.
type ViewResponse struct {
	Event Event           `json:"event"`
	View  assessment.View `json:"view"`
}

// TickResponse is the light clock update sent once a second.
type TickResponse struct {
	Event     Event           `json:"event"`
	Remaining int             `json:"seconds_remaining"`
	Clock     string          `json:"clock"`
	Tier      assessment.Tier `json:"tier"`
}

// ResultResponse is sent once the attempt has been submitted.
type ResultResponse struct {
	Event Event           `json:"event"`
	View  assessment.View `json:"view"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
