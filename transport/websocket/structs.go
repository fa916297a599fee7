package websocket

import "encoding/json"

// Message represents a WebSocket message with an action type and a payload.
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type CheckURLPayload struct {
	Room string `json:"room"`
}

type TurnDataPayload struct {
	Board    json.RawMessage `json:"board"`
	NextTurn string          `json:"next_turn"`
	WinLine  json.RawMessage `json:"win_line,omitempty"`
}
