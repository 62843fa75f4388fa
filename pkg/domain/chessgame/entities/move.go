package chessgame_entities

import "time"

// Move is one accepted ply in a Room's move log (spec §3 move_log).
// Both SAN and UCI forms are cached so moveAccepted events and reconnect
// snapshots never need to re-derive notation from the board.
type Move struct {
	Ply       int       `json:"ply"`
	SAN       string    `json:"san"`
	UCI       string    `json:"uci"`
	FEN       string    `json:"fen"`
	PlayerNum int       `json:"player_num"`
	AcceptedAt time.Time `json:"accepted_at"`
}
