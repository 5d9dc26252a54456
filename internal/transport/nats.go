package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/avvvet/diplomat-intent/internal/config"
	"github.com/avvvet/diplomat-intent/internal/handlers"
	"github.com/avvvet/diplomat-intent/internal/models"
)

// NATSTransport serves dialogue requests over request/reply and fans each
// event out to the per-session events subject in production order. Ordered
// delivery on that single subject is part of the wire contract: a consumer
// must see safety before subtitles and the final subtitle before the intent.
type NATSTransport struct {
	conn    *nats.Conn
	config  *config.Config
	handler *handlers.DialogueHandler
}

func NewNATSTransport(cfg *config.Config, handler *handlers.DialogueHandler) (*NATSTransport, error) {
	conn, err := nats.Connect(cfg.NatsURL,
		nats.Name(cfg.ServiceName),
		nats.Timeout(cfg.NatsTimeout),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1), // Infinite reconnects
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	log.Printf("Connected to NATS server: %s", cfg.NatsURL)

	nt := &NATSTransport{
		conn:    conn,
		config:  cfg,
		handler: handler,
	}
	handler.OnEvent = nt.publishEvent
	return nt, nil
}

func (nt *NATSTransport) Start() error {
	_, err := nt.conn.Subscribe(nt.config.NatsRequestSubject, nt.handleDialogueRequest)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", nt.config.NatsRequestSubject, err)
	}

	log.Printf("Subscribed to subject: %s", nt.config.NatsRequestSubject)
	return nil
}

func (nt *NATSTransport) handleDialogueRequest(msg *nats.Msg) {
	var request models.DialogueRequest
	if err := json.Unmarshal(msg.Data, &request); err != nil {
		log.Printf("Error parsing request: %v", err)
		nt.sendErrorResponse(msg, &request, models.ErrorParseError, "Invalid request format")
		return
	}

	log.Printf("Processing dialogue request for session: %s", request.SessionID)

	ctx, cancel := context.WithTimeout(context.Background(), nt.config.NatsTimeout)
	defer cancel()

	response, err := nt.handler.ProcessDialogue(ctx, &request)
	if err != nil {
		log.Printf("Error processing dialogue: %v", err)
		nt.sendErrorResponse(msg, &request, models.ErrorStreamFailed, err.Error())
		return
	}

	if err := nt.sendResponse(msg, response); err != nil {
		log.Printf("Error sending response: %v", err)
	}
}

// publishEvent mirrors one event onto negotiate.events.<session_id> as it
// is produced. Publish failures are logged, not fatal: the full sequence
// still travels in the reply.
func (nt *NATSTransport) publishEvent(sessionID string, event models.Event) {
	subject := fmt.Sprintf("%s.%s", nt.config.NatsEventsSubject, sessionID)

	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("Failed to marshal event for session %s: %v", sessionID, err)
		return
	}

	if err := nt.conn.Publish(subject, data); err != nil {
		log.Printf("Failed to publish event to %s: %v", subject, err)
	}
}

func (nt *NATSTransport) sendResponse(msg *nats.Msg, response *models.DialogueResponse) error {
	responseData, err := json.Marshal(response)
	if err != nil {
		return fmt.Errorf("failed to marshal response: %w", err)
	}

	if err := msg.Respond(responseData); err != nil {
		return fmt.Errorf("failed to send response: %w", err)
	}

	log.Printf("Response sent for session: %s, status: %s", response.SessionID, response.Status)
	return nil
}

func (nt *NATSTransport) sendErrorResponse(msg *nats.Msg, request *models.DialogueRequest, errorCode, errorMessage string) {
	response := &models.DialogueResponse{
		SessionID:    request.SessionID,
		Status:       models.StatusError,
		Events:       []models.Event{},
		ErrorCode:    &errorCode,
		ErrorMessage: &errorMessage,
	}

	if err := nt.sendResponse(msg, response); err != nil {
		log.Printf("Failed to send error response: %v", err)
	}
}

func (nt *NATSTransport) Close() error {
	if nt.conn != nil {
		nt.conn.Close()
		log.Println("NATS connection closed")
	}
	return nil
}
