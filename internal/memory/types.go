package memory

import (
	"context"
	"time"

	"github.com/avvvet/diplomat-intent/internal/models"
)

// SessionData holds everything stored for one negotiation session.
type SessionData struct {
	SessionID string               `json:"session_id"`
	Turns     []models.SpeakerTurn `json:"turns"`
	Metadata  Metadata             `json:"metadata"`
}

// Metadata contains session bookkeeping.
type Metadata struct {
	StartedAt    time.Time `json:"started_at"`
	LastActivity time.Time `json:"last_activity"`
	TurnCount    int       `json:"turn_count"`
}

// Store defines the interface for session storage.
// This allows swapping between Redis, in-memory, etc.
type Store interface {
	// LoadSession loads a session from storage
	LoadSession(ctx context.Context, sessionID string) (*SessionData, error)

	// AppendTurn appends a speaker turn to a session
	AppendTurn(ctx context.Context, sessionID string, turn models.SpeakerTurn) error

	// GetTurns retrieves all turns for a session
	GetTurns(ctx context.Context, sessionID string) ([]models.SpeakerTurn, error)

	// ClearSession removes a session from storage
	ClearSession(ctx context.Context, sessionID string) error

	// SessionExists checks if a session exists
	SessionExists(ctx context.Context, sessionID string) (bool, error)

	// UpdateActivity updates the last activity timestamp
	UpdateActivity(ctx context.Context, sessionID string) error
}
