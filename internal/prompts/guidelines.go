package prompts

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/avvvet/diplomat-intent/internal/models"
)

// allowed intent kinds advertised to the envoy
var allowedKinds = []string{"PROPOSAL", "CONCESSION", "COUNTER_OFFER", "ULTIMATUM", "SMALL_TALK"}

// BuildSystemGuidelines renders the world context and envoy rules as a
// YAML document. The result travels with the dialogue request and is
// echoed in analysis payloads for debugging.
func BuildSystemGuidelines(world models.WorldContext, extra string) (string, error) {
	warScore := 0
	var borders []any
	if world.CurrentState != nil {
		if v, ok := world.CurrentState["war_score"].(int); ok {
			warScore = v
		} else if v, ok := world.CurrentState["war_score"].(float64); ok {
			warScore = int(v)
		}
		if v, ok := world.CurrentState["borders"].([]any); ok {
			borders = v
		}
	}

	doc := map[string]any{
		"system": map[string]any{
			"role":          "AI Diplomatic Envoy",
			"style":         "Formal, period-appropriate (1607-1799), concise",
			"output_format": "Intents conforming to protocol v1",
		},
		"world": map[string]any{
			"counterpart_faction_id": world.CounterpartFaction.ID,
			"player_faction_id":      world.InitiatorFaction.ID,
			"war_score":              warScore,
			"borders":                borders,
		},
		"rules": map[string]any{
			"allowed_kinds": allowedKinds,
			"constraints": []string{
				"Cannot cede land you do not own or occupy.",
				"Ultimatums require leverage or superior war score.",
			},
		},
	}

	if extra != "" {
		doc["system"].(map[string]any)["guidelines"] = extra
	}

	out, err := yaml.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to render guidelines: %w", err)
	}
	return string(out), nil
}

// FormatTranscript renders turn history the way prompts expect it, one
// line per turn attributed to its faction.
func FormatTranscript(turns []models.SpeakerTurn, world models.WorldContext) string {
	if len(turns) == 0 {
		return "No previous conversation."
	}

	var builder strings.Builder
	for _, turn := range turns {
		name := turn.SpeakerID
		switch turn.SpeakerID {
		case world.InitiatorFaction.ID:
			if world.InitiatorFaction.Name != "" {
				name = world.InitiatorFaction.Name
			}
		case world.CounterpartFaction.ID:
			if world.CounterpartFaction.Name != "" {
				name = world.CounterpartFaction.Name
			}
		}
		builder.WriteString(fmt.Sprintf("%s: %s\n", name, turn.Text))
	}
	return builder.String()
}
