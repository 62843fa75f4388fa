package chessgame_services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	chessgame_out "github.com/coffeechess/coordinator/pkg/domain/chessgame/ports/out"
)

const (
	maxVerifyAttempts = 15
	verifyBackoffUnit = 3 * time.Second
)

// VerificationResult is what EscrowVerifier.Verify resolves to.
type VerificationResult struct {
	OK     bool
	Denied bool
	Reason string
}

// EscrowVerifier is spec §4.B: polls the escrow contract's getGameInfo,
// retrying up to 15 times with linear backoff (attempt × 3s), a bounded
// per-call retry loop rather than a periodic sweep.
type EscrowVerifier struct {
	client chessgame_out.EscrowClient
}

func NewEscrowVerifier(client chessgame_out.EscrowClient) *EscrowVerifier {
	return &EscrowVerifier{client: client}
}

// Verify implements spec §4.B's verify(game_id, wallet, expected_stake).
// RPC failures are retryable; an explicit on-chain denial (status >= 2)
// returns immediately without further attempts.
func (v *EscrowVerifier) Verify(ctx context.Context, gameID int64, wallet string, expectedStake int64) VerificationResult {
	wallet = strings.ToLower(wallet)

	for attempt := 1; attempt <= maxVerifyAttempts; attempt++ {
		info, err := v.client.GetGameInfo(ctx, gameID)
		if err != nil {
			slog.WarnContext(ctx, "escrow verification RPC error, retrying",
				"game_id", gameID, "attempt", attempt, "err", err)
			if !v.sleepOrCancelled(ctx, attempt) {
				return VerificationResult{OK: false, Denied: false, Reason: "verification cancelled"}
			}
			continue
		}

		if info.Status >= 2 {
			slog.InfoContext(ctx, "escrow verification denied: terminal on-chain status",
				"game_id", gameID, "status", info.Status)
			return VerificationResult{OK: false, Denied: true, Reason: "game already completed or cancelled on-chain"}
		}

		if !strings.EqualFold(info.Player1, wallet) && !strings.EqualFold(info.Player2, wallet) {
			slog.WarnContext(ctx, "escrow verification denied: wallet not a participant on-chain",
				"game_id", gameID, "wallet", wallet)
			return VerificationResult{OK: false, Denied: true, Reason: "wallet is not a recorded participant"}
		}

		slog.InfoContext(ctx, "escrow verification succeeded", "game_id", gameID, "wallet", wallet, "attempt", attempt)
		return VerificationResult{OK: true}
	}

	slog.ErrorContext(ctx, "escrow verification exhausted retries", "game_id", gameID, "wallet", wallet)
	return VerificationResult{OK: false, Denied: true, Reason: "stake verification failed after maximum retries"}
}

func (v *EscrowVerifier) sleepOrCancelled(ctx context.Context, attempt int) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(time.Duration(attempt) * verifyBackoffUnit):
		return true
	}
}
