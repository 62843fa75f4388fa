package kafka

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	chessgame_out "github.com/coffeechess/coordinator/pkg/domain/chessgame/ports/out"
)

// TopicRoomEvents is the topic room lifecycle transitions are published
// to for downstream analytics/leaderboard consumers (SPEC_FULL.md
// component J), distinct from the in-game websocket stream.
const TopicRoomEvents = "chess.room.events"

// RoomEvent is the wire shape of a published room-lifecycle transition.
type RoomEvent struct {
	EventID   uuid.UUID `json:"event_id"`
	Type      string    `json:"type"`
	RoomID    string    `json:"room_id"`
	GameID    int64     `json:"game_id"`
	Timestamp int64     `json:"timestamp"`
}

// EventPublisher adapts the generic Client to the chessgame EventPublisher
// port: one struct wrapping *Client, narrowed down to the single
// room-lifecycle event this coordinator emits.
type EventPublisher struct {
	client *Client
	topic  string
}

func NewEventPublisher(client *Client, topic string) *EventPublisher {
	if topic == "" {
		topic = TopicRoomEvents
	}
	return &EventPublisher{client: client, topic: topic}
}

// PublishRoomEvent is nil-safe: with no broker configured (client == nil,
// the development-mode default), this is a no-op, matching spec's
// "event stream is best-effort and must never block or fail a room
// operation."
func (p *EventPublisher) PublishRoomEvent(ctx context.Context, event chessgame_out.RoomLifecycleEvent) {
	if p == nil || p.client == nil {
		return
	}

	msg := &Message{
		Key: event.RoomID,
		Value: RoomEvent{
			EventID:   uuid.New(),
			Type:      event.Type,
			RoomID:    event.RoomID,
			GameID:    event.GameID,
			Timestamp: time.Now().UnixMilli(),
		},
		Timestamp: time.Now(),
		Headers:   map[string]string{"event_type": event.Type},
	}

	if err := p.client.Publish(ctx, p.topic, msg); err != nil {
		slog.WarnContext(ctx, "room lifecycle event publish failed", "room_id", event.RoomID, "type", event.Type, "err", err)
	}
}

var _ chessgame_out.EventPublisher = (*EventPublisher)(nil)
