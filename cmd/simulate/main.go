// Command simulate runs a scripted negotiation through the deterministic
// provider and prints each streamed event as a JSON line. It needs no NATS
// or Redis, which makes it handy for eyeballing the event contract.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/avvvet/diplomat-intent/internal/models"
	"github.com/avvvet/diplomat-intent/internal/prompts"
	"github.com/avvvet/diplomat-intent/internal/provider"
	"github.com/avvvet/diplomat-intent/internal/schema"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	strict := flag.Bool("strict", false, "enable the strict-mode safety pre-filter")
	pace := flag.Duration("pace", 50*time.Millisecond, "delay between streamed events")
	text := flag.String("text", "", "classify a single utterance instead of the scripted scenario")
	flag.Parse()

	validator, err := schema.New()
	if err != nil {
		log.Fatalf("Failed to load protocol schemas: %v", err)
	}

	p := provider.New(provider.BackendLocal, provider.Options{
		PaceDelay: *pace,
		Validator: validator,
	})

	world := models.WorldContext{
		ScenarioTags: []string{"colonial frontier", "trade access", "military withdrawal"},
		InitiatorFaction: models.Faction{
			ID:   "player_colony",
			Name: "Colonial Assembly",
		},
		CounterpartFaction: models.Faction{
			ID:   "ai_diplomat",
			Name: "Crown Envoy",
		},
		CurrentState: map[string]any{"war_score": 12},
	}

	guidelines, err := prompts.BuildSystemGuidelines(world, "")
	if err != nil {
		log.Fatalf("Failed to build guidelines: %v", err)
	}

	sessionID := uuid.NewString()
	log.Printf("Session: %s (strict=%v)", sessionID, *strict)

	script := []string{
		"Good day to you, envoy.",
		"We seek a trade deal with your merchants.",
		"We'll grant trade access if you withdraw troops from Ohio Country.",
		"Ceasefire now or else.",
	}
	if *text != "" {
		script = []string{*text}
	}

	encoder := json.NewEncoder(os.Stdout)
	var history []models.SpeakerTurn

	for _, line := range script {
		turn := models.SpeakerTurn{
			SpeakerID: world.InitiatorFaction.ID,
			Text:      line,
			Timestamp: time.Now().UTC(),
		}
		history = append(history, turn)

		log.Printf("> %s", line)
		for event := range p.Stream(context.Background(), history, world, guidelines, *strict) {
			if err := encoder.Encode(event); err != nil {
				log.Fatalf("Failed to encode event: %v", err)
			}
			// A counterpart reply joins the transcript like it would in
			// a live session.
			if payload, ok := event.Payload.(models.IntentPayload); ok && payload.Intent.SpeakerID == world.CounterpartFaction.ID {
				history = append(history, models.SpeakerTurn{
					SpeakerID: payload.Intent.SpeakerID,
					Text:      payload.Intent.Content,
					Timestamp: payload.Intent.Timestamp,
				})
			}
		}
	}
}
