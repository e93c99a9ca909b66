package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/sagaforge/saga-engine/pkg/session"
	"github.com/sagaforge/saga-engine/pkg/state"
)

const (
	gameStateKeyPrefix = "gamestate:"
	sessionKeyPrefix   = "session:"
	ownerIndexPrefix   = "saves:" // set of game state ids per owner
)

// RedisStorage implements Storage on Redis. Game states expire on a TTL
// so abandoned adventures age out; the owner index is trimmed lazily
// when expired entries are listed.
type RedisStorage struct {
	client *redis.Client
	logger *slog.Logger
	ttl    time.Duration
}

var _ Storage = (*RedisStorage)(nil)

// NewRedisStorage creates a Redis storage instance.
func NewRedisStorage(redisURL string, ttl time.Duration, logger *slog.Logger) *RedisStorage {
	rdb := redis.NewClient(&redis.Options{
		Addr: redisURL,
	})
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisStorage{
		client: rdb,
		logger: logger,
		ttl:    ttl,
	}
}

func (r *RedisStorage) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisStorage) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}
	r.logger.Info("Redis connection closed")
	return nil
}

// WaitForConnection waits for Redis to become available during startup.
func (r *RedisStorage) WaitForConnection(ctx context.Context) error {
	maxRetries := 30
	retryDelay := 2 * time.Second

	for i := 0; i < maxRetries; i++ {
		if err := r.Ping(ctx); err != nil {
			r.logger.Debug("Redis not ready yet", "error", err, "attempt", i+1)

			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled while waiting for redis: %w", ctx.Err())
			case <-time.After(retryDelay):
				continue
			}
		}

		r.logger.Info("Redis connection established")
		return nil
	}

	return fmt.Errorf("redis did not become available after %d attempts", maxRetries)
}

// GetClient exposes the underlying client for queue and pub/sub reuse.
func (r *RedisStorage) GetClient() *redis.Client {
	return r.client
}

// GameState operations

func (r *RedisStorage) SaveGameState(ctx context.Context, id uuid.UUID, gs *state.GameState) error {
	gs.UpdatedAt = time.Now()

	data, err := json.Marshal(gs)
	if err != nil {
		r.logger.Error("Failed to marshal gamestate", "uuid", id, "error", err)
		return fmt.Errorf("failed to marshal gamestate: %w", err)
	}

	key := gameStateKeyPrefix + id.String()
	if err := r.client.Set(ctx, key, string(data), r.ttl).Err(); err != nil {
		r.logger.Error("Failed to save gamestate", "uuid", id, "error", err)
		return fmt.Errorf("failed to save gamestate: %w", err)
	}

	if gs.OwnerID != "" {
		if err := r.client.SAdd(ctx, ownerIndexPrefix+gs.OwnerID, id.String()).Err(); err != nil {
			r.logger.Warn("Failed to index save for owner", "uuid", id, "owner", gs.OwnerID, "error", err)
		}
	}
	return nil
}

func (r *RedisStorage) LoadGameState(ctx context.Context, id uuid.UUID) (*state.GameState, error) {
	key := gameStateKeyPrefix + id.String()
	data, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			r.logger.Warn("Gamestate not found", "uuid", id)
			return nil, nil
		}
		r.logger.Error("Failed to load gamestate", "uuid", id, "error", err)
		return nil, fmt.Errorf("failed to load gamestate: %w", err)
	}

	var gs state.GameState
	if err := json.Unmarshal([]byte(data), &gs); err != nil {
		r.logger.Error("Failed to unmarshal gamestate", "uuid", id, "error", err)
		return nil, fmt.Errorf("failed to unmarshal gamestate: %w", err)
	}
	return &gs, nil
}

func (r *RedisStorage) DeleteGameState(ctx context.Context, id uuid.UUID) error {
	gs, err := r.LoadGameState(ctx, id)
	if err != nil {
		return err
	}

	key := gameStateKeyPrefix + id.String()
	if err := r.client.Del(ctx, key).Err(); err != nil {
		r.logger.Error("Failed to delete gamestate", "uuid", id, "error", err)
		return fmt.Errorf("failed to delete gamestate: %w", err)
	}
	if gs != nil && gs.OwnerID != "" {
		if err := r.client.SRem(ctx, ownerIndexPrefix+gs.OwnerID, id.String()).Err(); err != nil {
			r.logger.Warn("Failed to unindex save", "uuid", id, "owner", gs.OwnerID, "error", err)
		}
	}
	return nil
}

func (r *RedisStorage) ListGameStates(ctx context.Context, ownerID string) ([]SaveSummary, error) {
	ids, err := r.client.SMembers(ctx, ownerIndexPrefix+ownerID).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list saves: %w", err)
	}

	summaries := make([]SaveSummary, 0, len(ids))
	for _, raw := range ids {
		id, err := uuid.Parse(raw)
		if err != nil {
			continue
		}
		gs, err := r.LoadGameState(ctx, id)
		if err != nil {
			return nil, err
		}
		if gs == nil {
			// Expired save; trim the index entry.
			if err := r.client.SRem(ctx, ownerIndexPrefix+ownerID, raw).Err(); err != nil {
				r.logger.Warn("Failed to trim expired save", "uuid", raw, "error", err)
			}
			continue
		}
		summary := SaveSummary{
			ID:            gs.ID,
			Status:        gs.Status,
			TotalSegments: gs.TotalSegments,
			UpdatedAt:     gs.UpdatedAt,
		}
		if gs.Character != nil {
			summary.CharacterName = gs.Character.Name
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// Session operations

func (r *RedisStorage) SaveSession(ctx context.Context, s *session.Session) error {
	s.UpdatedAt = time.Now()

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	key := sessionKeyPrefix + s.ID.String()
	if err := r.client.Set(ctx, key, string(data), r.ttl).Err(); err != nil {
		r.logger.Error("Failed to save session", "uuid", s.ID, "error", err)
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (r *RedisStorage) LoadSession(ctx context.Context, id uuid.UUID) (*session.Session, error) {
	key := sessionKeyPrefix + id.String()
	data, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		r.logger.Error("Failed to load session", "uuid", id, "error", err)
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var s session.Session
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &s, nil
}

func (r *RedisStorage) DeleteSession(ctx context.Context, id uuid.UUID) error {
	if err := r.client.Del(ctx, sessionKeyPrefix+id.String()).Err(); err != nil {
		r.logger.Error("Failed to delete session", "uuid", id, "error", err)
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
