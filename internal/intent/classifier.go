package intent

import (
	"time"

	"github.com/avvvet/diplomat-intent/internal/models"
)

const defaultSpeakerID = "ai_diplomat"

// Classifier maps the last player turn to a diplomatic intent by key-phrase
// priority. It is pure and deterministic: no I/O, no shared mutable state,
// safe for any number of concurrent callers.
type Classifier struct {
	now func() time.Time
}

// NewClassifier returns a classifier using the wall clock.
func NewClassifier() *Classifier {
	return &Classifier{now: time.Now}
}

// NewClassifierWithClock returns a classifier using the given clock,
// so deadlines and timestamps can be pinned in tests.
func NewClassifierWithClock(now func() time.Time) *Classifier {
	return &Classifier{now: now}
}

// Classify inspects the last turn in the history and returns the detected
// intent. Prior turns are context only; they are never reclassified.
//
// Returns (nil, nil) when the last turn belongs to the counterpart (an AI
// turn carries no player intent). Returns (nil, *ClassificationError) with
// ErrUnsafeContent when strict mode flags the turn. Malformed or empty turn
// text never errors; it degrades to the small-talk fallback.
func (c *Classifier) Classify(turns []models.SpeakerTurn, world models.WorldContext, strict bool) (*models.Intent, *ClassificationError) {
	speaker := world.CounterpartFaction.ID
	if speaker == "" {
		speaker = defaultSpeakerID
	}

	if len(turns) == 0 {
		// Initial state: no player turns yet, open with a greeting.
		return &models.Intent{
			Type:       models.KindSmallTalk,
			SpeakerID:  speaker,
			Content:    "Greetings. I understand we have matters to discuss regarding our diplomatic relations.",
			Topic:      "diplomatic_relations",
			Timestamp:  c.now(),
			Confidence: models.Float(1.0),
		}, nil
	}

	last := turns[len(turns)-1]
	if last.SpeakerID != world.InitiatorFaction.ID {
		// Counterpart turn: nothing to classify.
		return nil, nil
	}

	text := last.Text

	if strict && ContainsUnsafeContent(text) {
		return nil, &ClassificationError{
			Kind:   ErrUnsafeContent,
			Detail: "strict mode detected potentially unsafe content",
		}
	}

	return c.detectFromText(text, speaker), nil
}

// detectFromText walks the pattern table in priority order and builds a
// fully-populated intent for the first match. Template content and terms
// are fixed so repeated calls are byte-identical.
func (c *Classifier) detectFromText(text, speaker string) *models.Intent {
	now := c.now()

	switch firstMatch(text) {
	case PatternCounterOffer:
		return &models.Intent{
			Type:               models.KindCounterOffer,
			SpeakerID:          speaker,
			Content:            "We will grant trade access to your merchants if you withdraw your military forces from the disputed territories.",
			OriginalProposalID: "player_trade_proposal_1",
			CounterTerms: map[string]any{
				"trade_access_granted": true,
				"withdrawal_required":  true,
				"territories":          []string{"northern_border", "southern_pass"},
				"duration":             "2_years",
			},
			Timestamp: now,
		}

	case PatternUltimatum:
		deadline := now.Add(time.Hour)
		return &models.Intent{
			Type:      models.KindUltimatum,
			SpeakerID: speaker,
			Content:   "Cease fire immediately or face severe consequences. This is our final warning.",
			Deadline:  &deadline,
			Consequences: []string{
				"Full military mobilization",
				"Trade embargo",
				"Alliance termination",
			},
			Timestamp: now,
		}

	case PatternTrade:
		return &models.Intent{
			Type:       models.KindProposal,
			SpeakerID:  speaker,
			Content:    "I propose we establish a basic trade agreement to improve our economic relations.",
			IntentType: "trade",
			Terms: map[string]any{
				"trade_volume": 500,
				"duration":     "1_year",
				"goods":        []string{"grain", "textiles"},
			},
			Timestamp: now,
		}

	case PatternAggressive:
		deadline := now.Add(2 * time.Hour)
		return &models.Intent{
			Type:         models.KindUltimatum,
			SpeakerID:    speaker,
			Content:      "We cannot tolerate such aggressive rhetoric. Cease immediately or face diplomatic isolation.",
			Deadline:     &deadline,
			Consequences: []string{"Diplomatic isolation", "Economic sanctions"},
			Timestamp:    now,
		}

	case PatternCooperative:
		return &models.Intent{
			Type:           models.KindConcession,
			SpeakerID:      speaker,
			Content:        "I am willing to consider cooperative measures to resolve our differences.",
			ConcessionType: "diplomatic",
			Value:          models.Float(25.0),
			Timestamp:      now,
		}
	}

	// Default: small talk. Empty or garbage text lands here too.
	return &models.Intent{
		Type:      models.KindSmallTalk,
		SpeakerID: speaker,
		Content:   "I understand your position. Perhaps we can discuss this matter further in a more constructive manner.",
		Topic:     "diplomatic_relations",
		Timestamp: now,
	}
}
