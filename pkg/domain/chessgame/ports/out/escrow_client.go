package chessgame_out

import "context"

// GameInfo is the escrow contract's getGameInfo(uint256) view-call
// result, per spec §6's consumed surface.
type GameInfo struct {
	Player1       string
	Player2       string
	StakePerPlayer int64
	TotalStaked   int64
	CreatedAt     int64
	Status        uint8 // 0 Pending, 1 Active, 2 Completed, 3 Cancelled
	Winner        string
}

// EscrowClient is the Escrow Verifier's chain RPC port: a view-call
// shape trimmed to the single read this coordinator needs.
// Implementations are expected to rotate across a small list of RPC
// endpoints internally, failing over on transport error (spec §4.B).
type EscrowClient interface {
	GetGameInfo(ctx context.Context, gameID int64) (GameInfo, error)
	TrustedSigner(ctx context.Context) (string, error)
}
