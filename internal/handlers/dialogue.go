package handlers

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/avvvet/diplomat-intent/internal/memory"
	"github.com/avvvet/diplomat-intent/internal/models"
	"github.com/avvvet/diplomat-intent/internal/prompts"
	"github.com/avvvet/diplomat-intent/internal/provider"
)

// DialogueHandler processes one negotiation turn: it persists the turn,
// streams the provider's ordered events, and assembles the reply.
type DialogueHandler struct {
	provider provider.Provider
	memory   *memory.Manager

	// OnEvent, when set, observes each event as it is produced, before the
	// reply is assembled. The transport uses it to fan events out to the
	// per-session subject in order.
	OnEvent func(sessionID string, event models.Event)
}

// NewDialogueHandler creates a handler. The memory manager may be nil, in
// which case only the turns carried by the request itself are classified.
func NewDialogueHandler(p provider.Provider, m *memory.Manager) *DialogueHandler {
	return &DialogueHandler{
		provider: p,
		memory:   m,
	}
}

// ProcessDialogue never returns a transport-level failure for bad input;
// malformed requests become error responses so the caller always gets a
// reply on the same subject.
func (h *DialogueHandler) ProcessDialogue(ctx context.Context, request *models.DialogueRequest) (*models.DialogueResponse, error) {
	if err := h.validateRequest(request); err != nil {
		return h.createErrorResponse(request, models.ErrorParseError, err.Error()), nil
	}

	guidelines := request.Guidelines
	if guidelines == "" {
		built, err := prompts.BuildSystemGuidelines(request.WorldContext, "")
		if err != nil {
			log.Printf("Failed to build guidelines for session %s: %v", request.SessionID, err)
		} else {
			guidelines = built
		}
	}

	turns, err := h.recordTurn(ctx, request)
	if err != nil {
		return h.createErrorResponse(request, models.ErrorStoreFailed, err.Error()), nil
	}

	transcript := h.formattedTranscript(ctx, request, turns)

	response := &models.DialogueResponse{
		SessionID: request.SessionID,
		Status:    models.StatusNoIntent,
		Events:    []models.Event{},
	}

	for event := range h.provider.Stream(ctx, turns, request.WorldContext, guidelines, request.Strict) {
		switch payload := event.Payload.(type) {
		case models.SafetyPayload:
			if !payload.IsSafe {
				response.Status = models.StatusBlocked
			}
		case models.IntentPayload:
			response.Status = models.StatusOK
			response.Intent = &payload
		case models.AnalysisPayload:
			if transcript != "" && payload.Result != nil {
				payload.Result["transcript"] = transcript
			}
		}

		response.Events = append(response.Events, event)
		if h.OnEvent != nil {
			h.OnEvent(request.SessionID, event)
		}
	}

	if err := ctx.Err(); err != nil {
		return h.createErrorResponse(request, models.ErrorStreamFailed, err.Error()), nil
	}

	// The counterpart's reply becomes part of the transcript so the next
	// turn classifies against the full history.
	if response.Intent != nil && h.memory != nil {
		reply := models.SpeakerTurn{
			SpeakerID: response.Intent.Intent.SpeakerID,
			Text:      response.Intent.Intent.Content,
			Timestamp: response.Intent.Intent.Timestamp,
		}
		if err := h.memory.AppendTurn(ctx, request.SessionID, reply, request.WorldContext); err != nil {
			log.Printf("Failed to persist counterpart turn for session %s: %v", request.SessionID, err)
		}
	}

	log.Printf("Dialogue processed for session %s: status=%s, events=%d",
		request.SessionID, response.Status, len(response.Events))

	return response, nil
}

// formattedTranscript renders the session history for the analysis
// payload, preferring the conversation buffer over the raw turn list.
func (h *DialogueHandler) formattedTranscript(ctx context.Context, request *models.DialogueRequest, turns []models.SpeakerTurn) string {
	if h.memory != nil {
		formatted, err := h.memory.GetFormattedHistory(ctx, request.SessionID, request.WorldContext)
		if err == nil {
			return formatted
		}
		log.Printf("Failed to format history for session %s: %v", request.SessionID, err)
	}
	return prompts.FormatTranscript(turns, request.WorldContext)
}

// recordTurn appends the incoming player turn (if any) to the session and
// returns the full turn history for classification.
func (h *DialogueHandler) recordTurn(ctx context.Context, request *models.DialogueRequest) ([]models.SpeakerTurn, error) {
	if h.memory == nil {
		if request.Turn == nil {
			return nil, nil
		}
		turn := *request.Turn
		if turn.Timestamp.IsZero() {
			turn.Timestamp = time.Now().UTC()
		}
		return []models.SpeakerTurn{turn}, nil
	}

	if request.Turn != nil {
		turn := *request.Turn
		if turn.Timestamp.IsZero() {
			turn.Timestamp = time.Now().UTC()
		}
		if err := h.memory.AppendTurn(ctx, request.SessionID, turn, request.WorldContext); err != nil {
			return nil, fmt.Errorf("failed to append turn: %w", err)
		}
	}

	turns, err := h.memory.GetTurns(ctx, request.SessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load turns: %w", err)
	}
	return turns, nil
}

func (h *DialogueHandler) validateRequest(request *models.DialogueRequest) error {
	if request.SessionID == "" {
		return fmt.Errorf("session_id is required")
	}
	if request.WorldContext.InitiatorFaction.ID == "" {
		return fmt.Errorf("world_context.initiator_faction.id is required")
	}
	if request.WorldContext.CounterpartFaction.ID == "" {
		return fmt.Errorf("world_context.counterpart_faction.id is required")
	}
	if request.Turn != nil && request.Turn.SpeakerID == "" {
		return fmt.Errorf("turn.speaker_id is required")
	}
	return nil
}

func (h *DialogueHandler) createErrorResponse(request *models.DialogueRequest, errorCode, errorMessage string) *models.DialogueResponse {
	return &models.DialogueResponse{
		SessionID:    request.SessionID,
		Status:       models.StatusError,
		Events:       []models.Event{},
		ErrorCode:    &errorCode,
		ErrorMessage: &errorMessage,
	}
}
