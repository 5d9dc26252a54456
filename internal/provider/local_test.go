package provider

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/avvvet/diplomat-intent/internal/models"
	"github.com/avvvet/diplomat-intent/internal/schema"
)

func testWorld() models.WorldContext {
	return models.WorldContext{
		ScenarioTags: []string{"colonial frontier", "trade access", "military withdrawal"},
		InitiatorFaction: models.Faction{
			ID:   "player_colony",
			Name: "Colonial Assembly",
		},
		CounterpartFaction: models.Faction{
			ID:   "ai_diplomat",
			Name: "Crown Envoy",
		},
	}
}

func newProvider(t *testing.T, strict bool) *LocalProvider {
	t.Helper()
	v, err := schema.New()
	if err != nil {
		t.Fatalf("schema.New()=%v", err)
	}
	return NewLocalProvider(Options{Strict: strict, Validator: v})
}

func playerTurn(text string) models.SpeakerTurn {
	return models.SpeakerTurn{
		SpeakerID: "player_colony",
		Text:      text,
		Timestamp: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
}

func collect(t *testing.T, p *LocalProvider, turns []models.SpeakerTurn) []models.Event {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var events []models.Event
	for ev := range p.Stream(ctx, turns, testWorld(), "", false) {
		events = append(events, ev)
	}
	return events
}

func eventTypes(events []models.Event) []string {
	types := make([]string, len(events))
	for i, ev := range events {
		types[i] = ev.Type
	}
	return types
}

func TestStream_EventOrderContract(t *testing.T) {
	t.Parallel()

	p := newProvider(t, false)
	events := collect(t, p, []models.SpeakerTurn{playerTurn("We seek a trade deal with your merchants.")})

	if len(events) < 4 {
		t.Fatalf("events=%v, want safety, subtitle(s), intent, analysis", eventTypes(events))
	}
	if events[0].Type != models.EventSafety {
		t.Fatalf("first event=%q, want safety", events[0].Type)
	}
	if events[len(events)-1].Type != models.EventAnalysis {
		t.Fatalf("last event=%q, want analysis", events[len(events)-1].Type)
	}

	// Exactly one safety, one intent, one analysis; the final subtitle
	// must precede the intent event.
	counts := map[string]int{}
	finalSubtitleIdx, intentIdx := -1, -1
	for i, ev := range events {
		counts[ev.Type]++
		if ev.Type == models.EventSubtitle && ev.IsFinal {
			finalSubtitleIdx = i
		}
		if ev.Type == models.EventIntent {
			intentIdx = i
		}
	}
	if counts[models.EventSafety] != 1 {
		t.Fatalf("safety events=%d, want exactly 1", counts[models.EventSafety])
	}
	if counts[models.EventIntent] != 1 {
		t.Fatalf("intent events=%d, want exactly 1", counts[models.EventIntent])
	}
	if counts[models.EventAnalysis] != 1 {
		t.Fatalf("analysis events=%d, want exactly 1", counts[models.EventAnalysis])
	}
	if finalSubtitleIdx == -1 {
		t.Fatal("no final subtitle emitted")
	}
	if intentIdx < finalSubtitleIdx {
		t.Fatalf("intent at %d before final subtitle at %d, order contract broken", intentIdx, finalSubtitleIdx)
	}
}

func TestStream_FinalSubtitleMatchesInputVerbatim(t *testing.T) {
	t.Parallel()

	tests := []string{
		"We seek a trade deal.",
		"We propose an exchange of grain. You withdraw your garrisons from the valley. Then we may speak of peace.",
		"no punctuation at all just words",
	}

	p := newProvider(t, false)
	for _, text := range tests {
		events := collect(t, p, []models.SpeakerTurn{playerTurn(text)})

		var finals []models.SubtitlePayload
		var interim int
		for _, ev := range events {
			if ev.Type != models.EventSubtitle {
				continue
			}
			payload := ev.Payload.(models.SubtitlePayload)
			if ev.IsFinal {
				finals = append(finals, payload)
			} else {
				interim++
			}
		}

		if len(finals) != 1 {
			t.Fatalf("text=%q: final subtitles=%d, want exactly 1", text, len(finals))
		}
		if finals[0].Text != text {
			t.Fatalf("final subtitle=%q, want verbatim %q", finals[0].Text, text)
		}
	}
}

func TestStream_MultiClauseTextYieldsInterimSubtitles(t *testing.T) {
	t.Parallel()

	p := newProvider(t, false)
	text := "We propose an exchange of grain. You withdraw your garrisons from the valley. Then we may speak of peace."
	events := collect(t, p, []models.SpeakerTurn{playerTurn(text)})

	interim := 0
	for _, ev := range events {
		if ev.Type == models.EventSubtitle && !ev.IsFinal {
			interim++
		}
	}
	if interim == 0 {
		t.Fatal("no interim subtitles for multi-clause text")
	}
}

func TestStream_StrictModeSafetyGating(t *testing.T) {
	t.Parallel()

	tests := []string{
		"We will kill every soldier you send.",
		"This means war.",
	}

	p := newProvider(t, true)
	for _, text := range tests {
		events := collect(t, p, []models.SpeakerTurn{playerTurn(text)})

		if events[0].Type != models.EventSafety {
			t.Fatalf("text=%q: first event=%q, want safety", text, events[0].Type)
		}
		safety := events[0].Payload.(models.SafetyPayload)
		if safety.IsSafe {
			t.Fatalf("text=%q: is_safe=true, want flagged", text)
		}
		if safety.Severity == nil || *safety.Severity != models.SeverityHigh {
			t.Fatalf("text=%q: severity=%v, want high", text, safety.Severity)
		}
		for _, ev := range events {
			if ev.Type == models.EventIntent {
				t.Fatalf("text=%q: intent event emitted despite safety gate", text)
			}
		}
		if events[len(events)-1].Type != models.EventAnalysis {
			t.Fatalf("text=%q: last event=%q, want trailing analysis even when gated", text, events[len(events)-1].Type)
		}
	}
}

func TestStream_PerCallStrictFlagGates(t *testing.T) {
	t.Parallel()

	// The provider is built permissive; the caller asks for the safety
	// pre-filter on this one call.
	p := newProvider(t, false)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var events []models.Event
	turns := []models.SpeakerTurn{playerTurn("We will kill every soldier you send.")}
	for ev := range p.Stream(ctx, turns, testWorld(), "", true) {
		events = append(events, ev)
	}

	safety := events[0].Payload.(models.SafetyPayload)
	if safety.IsSafe {
		t.Fatal("is_safe=true, want the per-call strict flag to gate the turn")
	}
	for _, ev := range events {
		if ev.Type == models.EventIntent {
			t.Fatal("intent event emitted despite per-call strict flag")
		}
	}

	// A configured-strict provider stays strict even when the call says no.
	ps := newProvider(t, true)
	for ev := range ps.Stream(ctx, turns, testWorld(), "", false) {
		if ev.Type == models.EventIntent {
			t.Fatal("intent event emitted, want configured strict mode to hold")
		}
	}
}

func TestStream_GuidelinesEchoedInAnalysis(t *testing.T) {
	t.Parallel()

	p := newProvider(t, false)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	guidelines := "system:\n  role: AI Diplomatic Envoy\n"
	var events []models.Event
	turns := []models.SpeakerTurn{playerTurn("We seek a trade deal.")}
	for ev := range p.Stream(ctx, turns, testWorld(), guidelines, false) {
		events = append(events, ev)
	}

	analysis := events[len(events)-1].Payload.(models.AnalysisPayload)
	if analysis.Result["guidelines"] != guidelines {
		t.Fatalf("guidelines=%v, want the document echoed verbatim", analysis.Result["guidelines"])
	}

	// No document supplied, no echo.
	events = collect(t, p, turns)
	analysis = events[len(events)-1].Payload.(models.AnalysisPayload)
	if _, ok := analysis.Result["guidelines"]; ok {
		t.Fatal("guidelines key present for an empty document")
	}
}

func TestStream_SafetyEventAlwaysFirstEvenWhenSafe(t *testing.T) {
	t.Parallel()

	p := newProvider(t, false)
	events := collect(t, p, []models.SpeakerTurn{playerTurn("A fine morning for diplomacy.")})

	if events[0].Type != models.EventSafety {
		t.Fatalf("first event=%q, want unconditional safety event", events[0].Type)
	}
	safety := events[0].Payload.(models.SafetyPayload)
	if !safety.IsSafe {
		t.Fatal("is_safe=false for benign text")
	}
	if safety.Flags == nil {
		t.Fatal("flags=nil, want empty list")
	}
	if safety.Severity != nil || safety.Reason != nil {
		t.Fatalf("severity=%v reason=%v, want null when safe", safety.Severity, safety.Reason)
	}
}

func TestStream_GreetingOnEmptyHistory(t *testing.T) {
	t.Parallel()

	p := newProvider(t, false)
	events := collect(t, p, nil)

	if got := eventTypes(events); len(got) != 3 ||
		got[0] != models.EventSafety || got[1] != models.EventIntent || got[2] != models.EventAnalysis {
		t.Fatalf("events=%v, want [safety intent analysis]", got)
	}

	payload := events[1].Payload.(models.IntentPayload)
	if payload.Intent.Type != models.KindSmallTalk {
		t.Fatalf("greeting type=%q, want small_talk", payload.Intent.Type)
	}
	if payload.Confidence != 1.0 {
		t.Fatalf("greeting confidence=%v, want exactly 1.0", payload.Confidence)
	}
}

func TestStream_CounterpartTurnAnalysisOnly(t *testing.T) {
	t.Parallel()

	p := newProvider(t, false)
	turns := []models.SpeakerTurn{
		playerTurn("We seek a trade deal."),
		{SpeakerID: "ai_diplomat", Text: "I propose a trade agreement.", Timestamp: time.Now()},
	}
	events := collect(t, p, turns)

	if got := eventTypes(events); len(got) != 2 ||
		got[0] != models.EventSafety || got[1] != models.EventAnalysis {
		t.Fatalf("events=%v, want [safety analysis] for a counterpart turn", got)
	}
	analysis := events[1].Payload.(models.AnalysisPayload)
	if analysis.Result["turn_type"] != "ai_response" {
		t.Fatalf("turn_type=%v, want ai_response", analysis.Result["turn_type"])
	}
}

func TestStream_CounterOfferScenario(t *testing.T) {
	t.Parallel()

	p := newProvider(t, false)
	events := collect(t, p, []models.SpeakerTurn{
		playerTurn("We'll grant trade access if you withdraw troops from Ohio Country."),
	})

	var payload *models.IntentPayload
	for _, ev := range events {
		if ev.Type == models.EventIntent {
			got := ev.Payload.(models.IntentPayload)
			payload = &got
		}
	}
	if payload == nil {
		t.Fatal("no intent event emitted")
	}
	if payload.Intent.Type != models.KindCounterOffer {
		t.Fatalf("type=%q, want counter_offer", payload.Intent.Type)
	}
	if !strings.Contains(payload.Intent.Content, "trade access") {
		t.Fatalf("content=%q, want mention of trade access", payload.Intent.Content)
	}
	if payload.Confidence < 0.7 {
		t.Fatalf("confidence=%v, want >= 0.7", payload.Confidence)
	}
	if !strings.Contains(strings.ToLower(payload.Justification), "pattern") {
		t.Fatalf("justification=%q, want the word pattern", payload.Justification)
	}
	if payload.Scores == nil {
		t.Fatal("scores=nil, want the four-axis vector attached")
	}
	for name, val := range payload.Scores.Map() {
		if val < 0 || val > 1 {
			t.Fatalf("score %s=%v, want within [0,1]", name, val)
		}
	}
}

func TestStream_AnalysisSummarizesMatches(t *testing.T) {
	t.Parallel()

	p := newProvider(t, false)
	events := collect(t, p, []models.SpeakerTurn{
		playerTurn("We'll grant trade access if you withdraw troops."),
	})

	analysis := events[len(events)-1].Payload.(models.AnalysisPayload)
	if analysis.Tag != "deterministic_analysis" {
		t.Fatalf("tag=%q, want deterministic_analysis", analysis.Tag)
	}
	matched, ok := analysis.Result["matched_patterns"].([]string)
	if !ok || len(matched) == 0 {
		t.Fatalf("matched_patterns=%v, want non-empty", analysis.Result["matched_patterns"])
	}
	if analysis.Result["intent_detected"] != models.KindCounterOffer {
		t.Fatalf("intent_detected=%v, want counter_offer", analysis.Result["intent_detected"])
	}
}

func TestStream_PacingDelaysFullSequence(t *testing.T) {
	t.Parallel()

	v, err := schema.New()
	if err != nil {
		t.Fatalf("schema.New()=%v", err)
	}
	const pace = 10 * time.Millisecond
	p := NewLocalProvider(Options{Validator: v, PaceDelay: pace})

	start := time.Now()
	events := collect(t, p, []models.SpeakerTurn{playerTurn("We seek a trade deal.")})
	elapsed := time.Since(start)

	if want := time.Duration(len(events)) * pace; elapsed < want {
		t.Fatalf("elapsed=%v for %d events, want at least %v", elapsed, len(events), want)
	}
}

func TestStream_CancellationClosesChannel(t *testing.T) {
	t.Parallel()

	p := newProvider(t, false)
	ctx, cancel := context.WithCancel(context.Background())
	ch := p.Stream(ctx, []models.SpeakerTurn{playerTurn("We seek a trade deal.")}, testWorld(), "", false)

	// Take the first event, then cancel mid-stream.
	<-ch
	cancel()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, open := <-ch:
			if !open {
				return
			}
		case <-deadline:
			t.Fatal("channel did not close after cancellation")
		}
	}
}

func TestValidateAndScore_RecoverableValidationFailure(t *testing.T) {
	t.Parallel()

	p := newProvider(t, false)

	// Empty content violates every intent schema; the provider keeps the
	// intent with a floor confidence instead of propagating the error.
	in := &models.Intent{
		Type:      models.KindSmallTalk,
		SpeakerID: "ai_diplomat",
		Timestamp: time.Now().UTC(),
	}

	got, confidence, justification := p.ValidateAndScore(in, testWorld())
	if got != in {
		t.Fatal("intent was replaced, want it kept")
	}
	if confidence != 0.1 {
		t.Fatalf("confidence=%v, want 0.1 fallback", confidence)
	}
	if !strings.Contains(justification, "Validation failed") {
		t.Fatalf("justification=%q, want validation-failure text", justification)
	}
}

func TestStream_Deterministic(t *testing.T) {
	t.Parallel()

	p := newProvider(t, false)
	turns := []models.SpeakerTurn{playerTurn("Ceasefire now or else.")}

	first := collect(t, p, turns)
	second := collect(t, p, turns)

	if len(first) != len(second) {
		t.Fatalf("event counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Type != second[i].Type || first[i].IsFinal != second[i].IsFinal {
			t.Fatalf("event %d differs: %s/%v vs %s/%v",
				i, first[i].Type, first[i].IsFinal, second[i].Type, second[i].IsFinal)
		}
	}
}
