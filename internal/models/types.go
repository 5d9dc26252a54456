package models

import "time"

// SpeakerTurn is one utterance in the negotiation transcript.
// Turns are appended to session history and never mutated.
type SpeakerTurn struct {
	SpeakerID  string    `json:"speaker_id"`
	Text       string    `json:"text"`
	Timestamp  time.Time `json:"timestamp"`
	Confidence *float64  `json:"confidence,omitempty"` // STT confidence, 0..1
}

// Faction identifies one side of the negotiation.
type Faction struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Extra map[string]any `json:"extra,omitempty"`
}

// WorldContext is the negotiation scenario state supplied per request.
// Read-only to the classifier.
type WorldContext struct {
	ScenarioTags       []string       `json:"scenario_tags"`
	InitiatorFaction   Faction        `json:"initiator_faction"`
	CounterpartFaction Faction        `json:"counterpart_faction"`
	CurrentState       map[string]any `json:"current_state,omitempty"`
}

// Intent kinds (the "type" discriminant).
const (
	KindProposal     = "proposal"
	KindConcession   = "concession"
	KindCounterOffer = "counter_offer"
	KindUltimatum    = "ultimatum"
	KindSmallTalk    = "small_talk"
)

// Intent is the canonical tagged union of diplomatic speech-acts.
// The Type field selects which variant field group is populated; every
// variant carries SpeakerID, Content and Timestamp.
type Intent struct {
	Type       string    `json:"type"`
	SpeakerID  string    `json:"speaker_id"`
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
	Confidence *float64  `json:"confidence,omitempty"`

	// proposal
	IntentType string         `json:"intent_type,omitempty"`
	Terms      map[string]any `json:"terms,omitempty"`

	// concession
	ConcessionType string   `json:"concession_type,omitempty"`
	Value          *float64 `json:"value,omitempty"` // 0..100

	// counter_offer
	OriginalProposalID string         `json:"original_proposal_id,omitempty"`
	CounterTerms       map[string]any `json:"counter_terms,omitempty"`

	// ultimatum
	Deadline     *time.Time `json:"deadline,omitempty"`
	Consequences []string   `json:"consequences,omitempty"`

	// small_talk
	Topic string `json:"topic,omitempty"`
}

// ScoreVector holds the four negotiation scoring axes, each in [0,1].
type ScoreVector struct {
	Trust      float64 `json:"trust"`
	Leverage   float64 `json:"leverage"`
	FaceSaving float64 `json:"face_saving"`
	Confidence float64 `json:"confidence"`
}

// Map returns the vector in the keyed form OverallScore consumes.
func (v ScoreVector) Map() map[string]float64 {
	return map[string]float64{
		"trust":       v.Trust,
		"leverage":    v.Leverage,
		"face_saving": v.FaceSaving,
		"confidence":  v.Confidence,
	}
}

// Float returns a pointer to f, for optional numeric fields.
func Float(f float64) *float64 {
	return &f
}
