package memory

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/tmc/langchaingo/memory"
	"github.com/tmc/langchaingo/schema"

	"github.com/avvvet/diplomat-intent/internal/models"
)

// Manager orchestrates negotiation transcripts: Redis holds the durable
// turn history, LangChainGo conversation buffers cache the chat view used
// for transcript formatting. Initiator turns map to user messages,
// counterpart turns to assistant messages.
type Manager struct {
	store Store

	mu       sync.Mutex
	sessions map[string]*memory.ConversationBuffer
}

// NewManager creates a new memory manager.
func NewManager(store Store) *Manager {
	return &Manager{
		store:    store,
		sessions: make(map[string]*memory.ConversationBuffer),
	}
}

// buffer returns the cached conversation buffer for a session, loading the
// Redis history into it on first use.
func (m *Manager) buffer(ctx context.Context, sessionID string, world models.WorldContext) (*memory.ConversationBuffer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if buf, exists := m.sessions[sessionID]; exists {
		return buf, nil
	}

	buf := memory.NewConversationBuffer()

	session, err := m.store.LoadSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	for _, turn := range session.Turns {
		if err := buf.ChatHistory.AddMessage(ctx, chatMessageFor(turn, world)); err != nil {
			return nil, fmt.Errorf("failed to add turn to memory: %w", err)
		}
	}

	m.sessions[sessionID] = buf
	log.Printf("Loaded session %s with %d turns", sessionID, len(session.Turns))
	return buf, nil
}

func chatMessageFor(turn models.SpeakerTurn, world models.WorldContext) schema.ChatMessage {
	if turn.SpeakerID == world.CounterpartFaction.ID {
		return schema.AIChatMessage{Content: turn.Text}
	}
	return schema.HumanChatMessage{Content: turn.Text}
}

// AppendTurn saves a turn to both Redis and the cached buffer.
func (m *Manager) AppendTurn(ctx context.Context, sessionID string, turn models.SpeakerTurn, world models.WorldContext) error {
	buf, err := m.buffer(ctx, sessionID, world)
	if err != nil {
		return err
	}

	if err := buf.ChatHistory.AddMessage(ctx, chatMessageFor(turn, world)); err != nil {
		return fmt.Errorf("failed to add turn to memory: %w", err)
	}

	if err := m.store.AppendTurn(ctx, sessionID, turn); err != nil {
		return fmt.Errorf("failed to save turn to Redis: %w", err)
	}

	return nil
}

// GetTurns returns the durable turn history for a session.
func (m *Manager) GetTurns(ctx context.Context, sessionID string) ([]models.SpeakerTurn, error) {
	return m.store.GetTurns(ctx, sessionID)
}

// GetFormattedHistory returns the conversation as a transcript string for
// prompt building and analysis payloads.
func (m *Manager) GetFormattedHistory(ctx context.Context, sessionID string, world models.WorldContext) (string, error) {
	buf, err := m.buffer(ctx, sessionID, world)
	if err != nil {
		return "", err
	}

	messages, err := buf.ChatHistory.Messages(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get messages: %w", err)
	}

	if len(messages) == 0 {
		return "No previous conversation.", nil
	}

	var formatted string
	for _, msg := range messages {
		switch m := msg.(type) {
		case schema.HumanChatMessage:
			formatted += fmt.Sprintf("%s: %s\n", world.InitiatorFaction.Name, m.Content)
		case schema.AIChatMessage:
			formatted += fmt.Sprintf("%s: %s\n", world.CounterpartFaction.Name, m.Content)
		case schema.SystemChatMessage:
			formatted += fmt.Sprintf("System: %s\n", m.Content)
		}
	}
	return formatted, nil
}

// ClearSession clears a session from both cache and Redis.
func (m *Manager) ClearSession(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	delete(m.sessions, sessionID)
	m.mu.Unlock()

	if err := m.store.ClearSession(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to clear session from Redis: %w", err)
	}
	return nil
}

// SessionExists checks if a session exists in the store.
func (m *Manager) SessionExists(ctx context.Context, sessionID string) (bool, error) {
	return m.store.SessionExists(ctx, sessionID)
}

// UpdateActivity refreshes the session's activity timestamp.
func (m *Manager) UpdateActivity(ctx context.Context, sessionID string) error {
	return m.store.UpdateActivity(ctx, sessionID)
}

// GetActiveSessionCount returns the number of cached sessions.
func (m *Manager) GetActiveSessionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Close closes the underlying store.
func (m *Manager) Close() error {
	if closer, ok := m.store.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}
