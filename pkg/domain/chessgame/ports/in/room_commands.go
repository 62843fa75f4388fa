package chessgame_in

import (
	"context"

	chessgame_entities "github.com/coffeechess/coordinator/pkg/domain/chessgame/entities"
)

// CreateRoomInput mirrors spec §6's createRoom request.
type CreateRoomInput struct {
	GameID        int64
	Stake         int64
	WalletAddress string
	TimeLimit     int // seconds; 0 means use RoomConfig default
	SubscriberHandle string
}

type JoinRoomInput struct {
	RoomID           string
	GameID           int64
	WalletAddress    string
	SubscriberHandle string
}

type MakeMoveInput struct {
	WalletAddress string
	Move          string
}

type ChatInput struct {
	WalletAddress string
	Message       string
}

type ReconnectInput struct {
	WalletAddress    string
	Signature        string
	SubscriberHandle string
}

// RoomCommands is the inbound port the Event Gateway drives for every
// room-scoped request in spec §6's message catalog. A single interface,
// rather than one per verb, keeps the Gateway's dispatch table to one
// dependency; Coordinator is its sole implementation.
type RoomCommands interface {
	CreateRoom(ctx context.Context, in CreateRoomInput) (*chessgame_entities.Room, []chessgame_entities.OutboundEvent, error)
	JoinRoom(ctx context.Context, in JoinRoomInput) (*chessgame_entities.Room, []chessgame_entities.OutboundEvent, error)
	MakeMove(ctx context.Context, in MakeMoveInput) ([]chessgame_entities.OutboundEvent, error)
	OfferDraw(ctx context.Context, wallet string) ([]chessgame_entities.OutboundEvent, error)
	AcceptDraw(ctx context.Context, wallet string) ([]chessgame_entities.OutboundEvent, error)
	DeclineDraw(ctx context.Context, wallet string) ([]chessgame_entities.OutboundEvent, error)
	Resign(ctx context.Context, wallet string) ([]chessgame_entities.OutboundEvent, error)
	Chat(ctx context.Context, in ChatInput) ([]chessgame_entities.OutboundEvent, error)
	Disconnect(ctx context.Context, wallet string) ([]chessgame_entities.OutboundEvent, error)
	Reconnect(ctx context.Context, in ReconnectInput) ([]chessgame_entities.OutboundEvent, chessgame_entities.RoomSnapshot, error)
}
