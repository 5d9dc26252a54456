package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/avvvet/diplomat-intent/internal/intent"
	"github.com/avvvet/diplomat-intent/internal/models"
	"github.com/avvvet/diplomat-intent/internal/schema"
)

// LocalProvider is the deterministic negotiation engine. It translates key
// phrases in the last player turn into diplomatic intents:
//
//   - "We'll grant trade access if you withdraw troops" → counter_offer
//   - "Ceasefire now or else" → ultimatum
//   - otherwise small talk or a low-stakes proposal
//
// Each Stream call is independent and pure apart from timestamps, so the
// provider is safe for concurrent callers without locking.
type LocalProvider struct {
	classifier *intent.Classifier
	validator  *schema.Validator
	strict     bool
	paceDelay  time.Duration
}

// NewLocalProvider builds the deterministic provider.
func NewLocalProvider(opts Options) *LocalProvider {
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	return &LocalProvider{
		classifier: intent.NewClassifierWithClock(clock),
		validator:  opts.Validator,
		strict:     opts.Strict,
		paceDelay:  opts.PaceDelay,
	}
}

// Classify delegates to the deterministic classifier with the provider's
// strict setting.
func (p *LocalProvider) Classify(turns []models.SpeakerTurn, world models.WorldContext) (*models.Intent, *intent.ClassificationError) {
	return p.classifier.Classify(turns, world, p.strict)
}

// Stream emits the ordered event sequence for one classification pass:
// exactly one safety event, zero or more subtitles ending with one final
// subtitle carrying the verbatim turn text, at most one intent event, and
// exactly one trailing analysis event echoing the guidelines document. The
// per-call strict flag is combined with the provider's configured mode, so
// a caller can request the safety pre-filter on a permissive service. The
// channel closes when the sequence completes or ctx is cancelled.
func (p *LocalProvider) Stream(ctx context.Context, turns []models.SpeakerTurn, world models.WorldContext, guidelines string, strict bool) <-chan models.Event {
	out := make(chan models.Event)
	go func() {
		defer close(out)
		p.run(ctx, out, turns, world, guidelines, p.strict || strict)
	}()
	return out
}

func (p *LocalProvider) run(ctx context.Context, out chan<- models.Event, turns []models.SpeakerTurn, world models.WorldContext, guidelines string, strict bool) {
	mode := "permissive"
	if strict {
		mode = "strict"
	}

	var last *models.SpeakerTurn
	if len(turns) > 0 {
		last = &turns[len(turns)-1]
	}
	playerTurn := last != nil && last.SpeakerID == world.InitiatorFaction.ID

	// Safety always comes first: downstream consumers key off it as the
	// "classification started" signal.
	if strict && playerTurn && intent.ContainsUnsafeContent(last.Text) {
		if !p.emit(ctx, out, models.NewEvent(models.EventSafety, unsafePayload())) {
			return
		}
		p.emit(ctx, out, models.NewEvent(models.EventAnalysis, models.AnalysisPayload{
			Tag: "strict_mode_violation",
			Result: analysisResult(map[string]any{
				"blocked_content": truncate(last.Text, 50),
				"violation_type":  "unsafe_content",
				"processing_mode": mode,
			}, guidelines),
		}))
		return
	}

	if !p.emit(ctx, out, models.NewEvent(models.EventSafety, safePayload())) {
		return
	}

	if last == nil {
		// Initial greeting, no subtitles to reveal.
		greeting, _ := p.classifier.Classify(nil, world, strict)
		if !p.emit(ctx, out, models.NewEvent(models.EventIntent, models.IntentPayload{
			Intent:        greeting,
			Confidence:    1.0,
			Justification: "Initial greeting in diplomatic negotiations",
		})) {
			return
		}
		p.emit(ctx, out, models.NewEvent(models.EventAnalysis, models.AnalysisPayload{
			Tag: "deterministic_analysis",
			Result: analysisResult(map[string]any{
				"matched_patterns": []string{},
				"intent_detected":  greeting.Type,
				"processing_mode":  mode,
			}, guidelines),
		}))
		return
	}

	if !playerTurn {
		// Counterpart turn: acknowledge, nothing to classify.
		p.emit(ctx, out, models.NewEvent(models.EventAnalysis, models.AnalysisPayload{
			Tag: "turn_analysis",
			Result: analysisResult(map[string]any{
				"turn_type":      "ai_response",
				"content_length": len(last.Text),
				"sentiment":      "neutral",
			}, guidelines),
		}))
		return
	}

	// Progressive subtitle reveal of the player's own text. The final
	// subtitle must equal the source text verbatim, not a paraphrase.
	if last.Text != "" {
		clauses := splitIntoClauses(last.Text)
		for i, clause := range clauses[:len(clauses)-1] {
			ev := models.NewEvent(models.EventSubtitle, models.SubtitlePayload{
				Text:      clause,
				SpeakerID: last.SpeakerID,
				StartTime: float64(i) * 2.0,
				EndTime:   float64(i+1) * 2.0,
			})
			if !p.emit(ctx, out, ev) {
				return
			}
		}
		final := models.NewEvent(models.EventSubtitle, models.SubtitlePayload{
			Text:      last.Text,
			SpeakerID: last.SpeakerID,
			StartTime: 0,
			EndTime:   float64(len(clauses)) * 2.0,
		})
		final.IsFinal = true
		if !p.emit(ctx, out, final) {
			return
		}
	}

	detected, _ := p.classifier.Classify(turns, world, strict)
	if detected != nil {
		validated, confidence, justification := p.ValidateAndScore(detected, world)
		scores := intent.ScoreIntent(validated, world)
		if !p.emit(ctx, out, models.NewEvent(models.EventIntent, models.IntentPayload{
			Intent:        validated,
			Confidence:    confidence,
			Justification: justification,
			Scores:        &scores,
		})) {
			return
		}
	}

	intentDetected := "none"
	if detected != nil {
		intentDetected = detected.Type
	}
	p.emit(ctx, out, models.NewEvent(models.EventAnalysis, models.AnalysisPayload{
		Tag: "deterministic_analysis",
		Result: analysisResult(map[string]any{
			"matched_patterns": intent.MatchedPatterns(last.Text),
			"intent_detected":  intentDetected,
			"processing_mode":  mode,
		}, guidelines),
	}))
}

// analysisResult tags a result map with the guidelines document the pass
// was briefed with, when one was supplied.
func analysisResult(result map[string]any, guidelines string) map[string]any {
	if guidelines != "" {
		result["guidelines"] = guidelines
	}
	return result
}

// ValidateAndScore schema-validates the intent and computes its
// context-aware confidence. Validation failures are recoverable by design:
// the intent is kept with a 0.1 confidence and the joined violations as
// justification instead of propagating an error.
func (p *LocalProvider) ValidateAndScore(in *models.Intent, world models.WorldContext) (*models.Intent, float64, string) {
	if p.validator != nil {
		if _, err := p.validator.ValidateIntent(in); err != nil {
			return in, 0.1, fmt.Sprintf("Validation failed: %s", err.Error())
		}
	}

	confidence := intent.ConfidenceScore(in, world)

	parts := []string{"Schema validation passed"}
	switch intent.RelevanceBand(confidence) {
	case "high":
		parts = append(parts, "High context relevance")
	case "moderate":
		parts = append(parts, "Moderate context relevance")
	default:
		parts = append(parts, "Low context relevance")
	}
	if matched := intent.MatchedPatterns(in.Content); len(matched) > 0 {
		parts = append(parts, "Matched patterns: "+strings.Join(matched, ", "))
	} else {
		parts = append(parts, "No key-phrase pattern matched")
	}

	return in, confidence, strings.Join(parts, ". ")
}

// emit sends one event, honoring the pacing delay and cancellation. It
// returns false when the stream should stop.
func (p *LocalProvider) emit(ctx context.Context, out chan<- models.Event, ev models.Event) bool {
	if p.paceDelay > 0 {
		select {
		case <-time.After(p.paceDelay):
		case <-ctx.Done():
			return false
		}
	}
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func safePayload() models.SafetyPayload {
	return models.SafetyPayload{IsSafe: true, Flags: []string{}}
}

func unsafePayload() models.SafetyPayload {
	severity := models.SeverityHigh
	reason := "Strict mode detected potentially unsafe content"
	return models.SafetyPayload{
		IsSafe:   false,
		Flags:    []string{"unsafe_content"},
		Severity: &severity,
		Reason:   &reason,
	}
}

// splitIntoClauses breaks text on sentence punctuation, keeping only
// clauses long enough to be worth revealing. Always returns at least one
// element.
func splitIntoClauses(text string) []string {
	var clauses []string
	var current strings.Builder

	for _, r := range text {
		current.WriteRune(r)
		if (r == '.' || r == '!' || r == '?') && len(strings.TrimSpace(current.String())) > 10 {
			clauses = append(clauses, strings.TrimSpace(current.String()))
			current.Reset()
		}
	}
	if rest := strings.TrimSpace(current.String()); rest != "" {
		clauses = append(clauses, rest)
	}
	if len(clauses) == 0 {
		return []string{text}
	}
	return clauses
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
