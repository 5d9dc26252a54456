package models

// NATS request from the game backend.
type DialogueRequest struct {
	SessionID    string       `json:"session_id"`
	Turn         *SpeakerTurn `json:"turn,omitempty"` // omitted on the opening request
	WorldContext WorldContext `json:"world_context"`
	Guidelines   string       `json:"guidelines,omitempty"`
	Strict       bool         `json:"strict,omitempty"`
}

// NATS response to the game backend. Events carry the full ordered
// sequence; Intent is a convenience copy of the intent event payload.
type DialogueResponse struct {
	SessionID    string         `json:"session_id"`
	Status       string         `json:"status"` // "OK", "NO_INTENT", "BLOCKED", "ERROR"
	Events       []Event        `json:"events"`
	Intent       *IntentPayload `json:"intent,omitempty"`
	ErrorCode    *string        `json:"error_code,omitempty"`
	ErrorMessage *string        `json:"error_message,omitempty"`
}

// Status constants
const (
	StatusOK       = "OK"
	StatusNoIntent = "NO_INTENT"
	StatusBlocked  = "BLOCKED"
	StatusError    = "ERROR"
)

// Error codes
const (
	ErrorParseError   = "PARSE_ERROR"
	ErrorStoreFailed  = "STORE_FAILED"
	ErrorStreamFailed = "STREAM_FAILED"
)
