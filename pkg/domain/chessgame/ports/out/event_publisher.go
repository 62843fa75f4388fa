package chessgame_out

import "context"

// RoomLifecycleEvent is the best-effort downstream record published for
// SPEC_FULL.md component J (leaderboards/analytics consumers), distinct
// from the in-game OutboundEvent stream the Gateway fans out to players.
type RoomLifecycleEvent struct {
	Type   string // "RoomCreated", "RoomStarted", "RoomEnded", "RoomCancelled"
	RoomID string
	GameID int64
}

// EventPublisher is the room-lifecycle event stream port. Implementations
// must be nil-safe no-ops when no broker is configured: a publish
// failure never fails the originating room operation.
type EventPublisher interface {
	PublishRoomEvent(ctx context.Context, event RoomLifecycleEvent)
}
