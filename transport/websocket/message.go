package websocket

import "encoding/json"

const (
	actionSessionState   = "session:state"
	actionSessionDeleted = "session:deleted"
	actionMoveApply      = "move:apply"
	actionMoveJump       = "move:jump"
	actionOrderSet       = "order:set"
	actionError          = "error"
)

// Message represents a WebSocket message with an action type and a payload.
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Payload is the union of the client request payloads.
type Payload struct {
	Index     *int  `json:"index,omitempty"`
	Step      *int  `json:"step,omitempty"`
	Ascending *bool `json:"ascending,omitempty"`
}

func encodeMessage(action string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return json.Marshal(Message{Action: action, Payload: raw})
}

func encodeError(action, text string) []byte {
	data, _ := json.Marshal(Message{Action: actionError, Error: text, Payload: mustRaw(map[string]string{"request": action})})
	return data
}

func mustRaw(v any) json.RawMessage {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return raw
}
