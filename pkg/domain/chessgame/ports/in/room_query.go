package chessgame_in

import (
	"context"

	chessgame_entities "github.com/coffeechess/coordinator/pkg/domain/chessgame/entities"
)

// RoomSummary is the listRooms discovery payload: open rooms only,
// nothing sensitive about an in-progress private match.
type RoomSummary struct {
	RoomID string `json:"room_id"`
	GameID int64  `json:"game_id"`
	Stake  int64  `json:"stake"`
	Status string `json:"status"`
}

// RoomQueries is the inbound port backing spec §6's discovery messages
// (listRooms, getRoomInfo, findRoomByGameId) and the REST surface's
// equivalents.
type RoomQueries interface {
	ListOpenRooms(ctx context.Context) []RoomSummary
	GetRoomInfo(ctx context.Context, roomID string) (chessgame_entities.RoomSnapshot, error)
	FindRoomByGameID(ctx context.Context, gameID int64) (string, error)
}

// UsernameCommands is the inbound port backing spec §6's
// checkUsername/setUsername messages (spec §4.H).
type UsernameCommands interface {
	CheckUsername(ctx context.Context, walletAddress string) (handle string, registered bool, err error)
	SetUsername(ctx context.Context, walletAddress, username string) error
}
