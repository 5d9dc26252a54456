// Package provider streams negotiation events for a dialogue turn.
package provider

import (
	"context"
	"strings"
	"time"

	"github.com/avvvet/diplomat-intent/internal/intent"
	"github.com/avvvet/diplomat-intent/internal/models"
	"github.com/avvvet/diplomat-intent/internal/schema"
)

// Backend selects the provider implementation.
type Backend int

const (
	BackendLocal Backend = iota
	BackendGemini
	BackendOpenAI
	BackendGrok
)

// ParseBackend maps a config string to a backend kind. Unknown values
// fall back to the local deterministic backend.
func ParseBackend(s string) Backend {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "gemini":
		return BackendGemini
	case "openai":
		return BackendOpenAI
	case "grok":
		return BackendGrok
	default:
		return BackendLocal
	}
}

func (b Backend) String() string {
	switch b {
	case BackendGemini:
		return "gemini"
	case BackendOpenAI:
		return "openai"
	case BackendGrok:
		return "grok"
	default:
		return "local"
	}
}

// Provider is the single dialogue-processing interface. One classification
// pass yields an ordered, finite event stream: safety, subtitles, at most
// one intent, analysis.
type Provider interface {
	// Stream emits the ordered event sequence for the given turn history.
	// The guidelines document is echoed in the analysis payload; strict
	// enables the safety pre-filter for this call in addition to the
	// provider's configured mode. The returned channel is closed when the
	// sequence completes or ctx is cancelled; it is not restartable.
	Stream(ctx context.Context, turns []models.SpeakerTurn, world models.WorldContext, guidelines string, strict bool) <-chan models.Event

	// Classify maps the last player turn to an intent without streaming.
	Classify(turns []models.SpeakerTurn, world models.WorldContext) (*models.Intent, *intent.ClassificationError)

	// ValidateAndScore schema-validates an intent and attaches a
	// context-aware confidence with a human-readable justification.
	ValidateAndScore(in *models.Intent, world models.WorldContext) (*models.Intent, float64, string)
}

// Options configures provider construction. All fields are explicit; there
// is no process-wide provider registry.
type Options struct {
	Strict    bool
	PaceDelay time.Duration    // delay between streamed events, zero for none
	Validator *schema.Validator
	Clock     func() time.Time // defaults to time.Now
}

// New builds a provider for the requested backend. The enum keeps the wire
// protocol and config stable for when differentiated backends land.
func New(backend Backend, opts Options) Provider {
	switch backend {
	case BackendGemini, BackendOpenAI, BackendGrok:
		// Remote backends carry no differentiated behavior yet; they run
		// the same deterministic engine.
		return NewLocalProvider(opts)
	default:
		return NewLocalProvider(opts)
	}
}
