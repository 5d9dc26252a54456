package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/avvvet/diplomat-intent/internal/models"
)

// RedisStore implements Store using Redis. Sessions are stored as JSON
// blobs under a TTL so abandoned negotiations expire on their own.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a new Redis-backed store.
func NewRedisStore(redisURL string, ttl time.Duration) (*RedisStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStore{
		client: client,
		ttl:    ttl,
	}, nil
}

func (r *RedisStore) sessionKey(sessionID string) string {
	return fmt.Sprintf("negotiation:%s", sessionID)
}

// LoadSession loads a session from Redis. A missing session yields an
// empty one rather than an error.
func (r *RedisStore) LoadSession(ctx context.Context, sessionID string) (*SessionData, error) {
	key := r.sessionKey(sessionID)

	data, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return &SessionData{
			SessionID: sessionID,
			Turns:     []models.SpeakerTurn{},
			Metadata: Metadata{
				StartedAt:    time.Now(),
				LastActivity: time.Now(),
			},
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session from Redis: %w", err)
	}

	var session SessionData
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, fmt.Errorf("failed to parse session data: %w", err)
	}

	return &session, nil
}

// AppendTurn appends a speaker turn to a session. Turns are append-only;
// existing entries are never rewritten.
func (r *RedisStore) AppendTurn(ctx context.Context, sessionID string, turn models.SpeakerTurn) error {
	session, err := r.LoadSession(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}

	session.Turns = append(session.Turns, turn)
	session.Metadata.LastActivity = time.Now()
	session.Metadata.TurnCount = len(session.Turns)

	if session.Metadata.TurnCount == 1 {
		session.Metadata.StartedAt = turn.Timestamp
	}

	return r.saveSession(ctx, session)
}

func (r *RedisStore) saveSession(ctx context.Context, session *SessionData) error {
	key := r.sessionKey(session.SessionID)

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session to Redis: %w", err)
	}

	return nil
}

// GetTurns retrieves all turns for a session.
func (r *RedisStore) GetTurns(ctx context.Context, sessionID string) ([]models.SpeakerTurn, error) {
	session, err := r.LoadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return session.Turns, nil
}

// ClearSession removes a session from Redis.
func (r *RedisStore) ClearSession(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, r.sessionKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// SessionExists checks if a session exists in Redis.
func (r *RedisStore) SessionExists(ctx context.Context, sessionID string) (bool, error) {
	exists, err := r.client.Exists(ctx, r.sessionKey(sessionID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check session existence: %w", err)
	}
	return exists > 0, nil
}

// UpdateActivity refreshes the last activity timestamp and the TTL.
func (r *RedisStore) UpdateActivity(ctx context.Context, sessionID string) error {
	session, err := r.LoadSession(ctx, sessionID)
	if err != nil {
		return err
	}

	session.Metadata.LastActivity = time.Now()
	return r.saveSession(ctx, session)
}

// Close closes the Redis connection.
func (r *RedisStore) Close() error {
	return r.client.Close()
}

// Ping verifies the Redis connection is alive.
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
