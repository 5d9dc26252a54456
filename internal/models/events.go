package models

import "time"

// Event types streamed to consumers.
const (
	EventSafety   = "safety"
	EventSubtitle = "subtitle"
	EventIntent   = "intent"
	EventAnalysis = "analysis"
)

// Safety severities.
const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// Event is the unit streamed to consumers over a single logical channel.
// One classification pass emits exactly one safety event first, zero or
// more subtitle events ending with exactly one is_final=true, at most one
// intent event, and exactly one trailing analysis event. Events are not
// persisted; they are consumed as they arrive.
type Event struct {
	Type      string    `json:"type"`
	Payload   any       `json:"payload"`
	IsFinal   bool      `json:"is_final,omitempty"` // only meaningful for subtitles
	Timestamp time.Time `json:"timestamp"`
}

// SafetyPayload reports the pre-classification content screen.
// Severity and Reason are null when the content passed.
type SafetyPayload struct {
	IsSafe   bool     `json:"is_safe"`
	Flags    []string `json:"flags"`
	Severity *string  `json:"severity"`
	Reason   *string  `json:"reason"`
}

// SubtitlePayload carries progressive reveal of the input turn text.
// The final subtitle's Text equals the source turn text verbatim.
type SubtitlePayload struct {
	Text      string  `json:"text"`
	SpeakerID string  `json:"speaker_id"`
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
}

// IntentPayload carries the classified intent with its overall confidence
// and a human-readable justification.
type IntentPayload struct {
	Intent        *Intent      `json:"intent"`
	Confidence    float64      `json:"confidence"`
	Justification string       `json:"justification"`
	Scores        *ScoreVector `json:"scores,omitempty"`
}

// AnalysisPayload summarizes a classification pass.
type AnalysisPayload struct {
	Tag    string         `json:"tag"`
	Result map[string]any `json:"result"`
}

// NewEvent builds an event stamped with the current time.
func NewEvent(eventType string, payload any) Event {
	return Event{
		Type:      eventType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}
