// Package events publishes game events over Redis pub/sub for fan-out
// to websocket subscribers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// EventType represents the type of event being broadcast
type EventType string

const (
	EventTypeTurnResolved      EventType = "turn.resolved"
	EventTypeTurnRejected      EventType = "turn.rejected"
	EventTypeModeChanged       EventType = "game.mode_changed"
	EventTypeIllustrationReady EventType = "game.illustration_ready"
	EventTypeSummaryUpdated    EventType = "game.summary_updated"
	EventTypeSessionUpdated    EventType = "session.updated"
)

// Event is the wire shape pushed to subscribers.
type Event struct {
	Type   EventType      `json:"type"`
	GameID string         `json:"game_id,omitempty"`
	Data   map[string]any `json:"data,omitempty"`
}

// Channel is the pub/sub channel carrying a game's events.
func Channel(gameID uuid.UUID) string {
	return fmt.Sprintf("game-events:%s", gameID.String())
}

// Broadcaster publishes events to Redis pub/sub.
type Broadcaster struct {
	redisClient *redis.Client
	logger      *slog.Logger
}

// NewBroadcaster creates a new event broadcaster
func NewBroadcaster(redisClient *redis.Client, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		redisClient: redisClient,
		logger:      logger,
	}
}

// PublishTurnResolved announces that a player action has produced a new
// state.
func (b *Broadcaster) PublishTurnResolved(ctx context.Context, gameID uuid.UUID, playerID string, mode string, segments int) error {
	return b.publish(ctx, gameID, Event{
		Type:   EventTypeTurnResolved,
		GameID: gameID.String(),
		Data: map[string]any{
			"player_id":      playerID,
			"mode":           mode,
			"total_segments": segments,
		},
	})
}

// PublishTurnRejected announces an out-of-turn or failed submission.
func (b *Broadcaster) PublishTurnRejected(ctx context.Context, gameID uuid.UUID, playerID string, reason string) error {
	return b.publish(ctx, gameID, Event{
		Type:   EventTypeTurnRejected,
		GameID: gameID.String(),
		Data: map[string]any{
			"player_id": playerID,
			"reason":    reason,
		},
	})
}

// PublishModeChanged announces a mode transition.
func (b *Broadcaster) PublishModeChanged(ctx context.Context, gameID uuid.UUID, from, to string) error {
	return b.publish(ctx, gameID, Event{
		Type:   EventTypeModeChanged,
		GameID: gameID.String(),
		Data: map[string]any{
			"from": from,
			"to":   to,
		},
	})
}

// PublishIllustrationReady announces a finished illustration job.
func (b *Broadcaster) PublishIllustrationReady(ctx context.Context, gameID uuid.UUID, segment int, url string) error {
	return b.publish(ctx, gameID, Event{
		Type:   EventTypeIllustrationReady,
		GameID: gameID.String(),
		Data: map[string]any{
			"segment": segment,
			"url":     url,
		},
	})
}

// PublishSummaryUpdated announces a refreshed story summary.
func (b *Broadcaster) PublishSummaryUpdated(ctx context.Context, gameID uuid.UUID) error {
	return b.publish(ctx, gameID, Event{
		Type:   EventTypeSummaryUpdated,
		GameID: gameID.String(),
	})
}

// PublishSessionUpdated announces roster or lifecycle changes.
func (b *Broadcaster) PublishSessionUpdated(ctx context.Context, gameID uuid.UUID, status string, players int) error {
	return b.publish(ctx, gameID, Event{
		Type:   EventTypeSessionUpdated,
		GameID: gameID.String(),
		Data: map[string]any{
			"status":  status,
			"players": players,
		},
	})
}

// Subscribe opens a pub/sub subscription for one game's events.
func (b *Broadcaster) Subscribe(ctx context.Context, gameID uuid.UUID) *redis.PubSub {
	return b.redisClient.Subscribe(ctx, Channel(gameID))
}

func (b *Broadcaster) publish(ctx context.Context, gameID uuid.UUID, event Event) error {
	channel := Channel(gameID)

	data, err := json.Marshal(event)
	if err != nil {
		b.logger.Error("Failed to marshal event", "error", err, "event_type", event.Type)
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.redisClient.Publish(ctx, channel, data).Err(); err != nil {
		b.logger.Error("Failed to publish event", "error", err, "channel", channel)
		return fmt.Errorf("failed to publish event: %w", err)
	}

	b.logger.Debug("Event published", "channel", channel, "event_type", event.Type)
	return nil
}
