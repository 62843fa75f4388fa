package chessgame_services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	chessgame_out "github.com/coffeechess/coordinator/pkg/domain/chessgame/ports/out"
)

type fakeEscrowClient struct {
	info GameInfoOrErr
}

type GameInfoOrErr struct {
	info chessgame_out.GameInfo
	err  error
}

func (f *fakeEscrowClient) GetGameInfo(ctx context.Context, gameID int64) (chessgame_out.GameInfo, error) {
	return f.info.info, f.info.err
}

func (f *fakeEscrowClient) TrustedSigner(ctx context.Context) (string, error) {
	return "0xTrustedSigner", nil
}

func TestEscrowVerifier_Verify_Success(t *testing.T) {
	client := &fakeEscrowClient{info: GameInfoOrErr{info: chessgame_out.GameInfo{
		Player1: "0xAAA",
		Player2: "0xBBB",
		Status:  1,
	}}}
	v := NewEscrowVerifier(client)

	result := v.Verify(context.Background(), 1, "0xaaa", 100)

	assert.True(t, result.OK)
	assert.False(t, result.Denied)
}

func TestEscrowVerifier_Verify_DeniedTerminalStatus(t *testing.T) {
	client := &fakeEscrowClient{info: GameInfoOrErr{info: chessgame_out.GameInfo{
		Player1: "0xAAA",
		Player2: "0xBBB",
		Status:  2,
	}}}
	v := NewEscrowVerifier(client)

	result := v.Verify(context.Background(), 1, "0xaaa", 100)

	assert.False(t, result.OK)
	assert.True(t, result.Denied)
}

func TestEscrowVerifier_Verify_DeniedNotParticipant(t *testing.T) {
	client := &fakeEscrowClient{info: GameInfoOrErr{info: chessgame_out.GameInfo{
		Player1: "0xAAA",
		Player2: "0xBBB",
		Status:  0,
	}}}
	v := NewEscrowVerifier(client)

	result := v.Verify(context.Background(), 1, "0xccc", 100)

	assert.False(t, result.OK)
	assert.True(t, result.Denied)
}

func TestEscrowVerifier_Verify_CancelledContextStopsRetry(t *testing.T) {
	client := &fakeEscrowClient{info: GameInfoOrErr{err: errors.New("rpc unreachable")}}
	v := NewEscrowVerifier(client)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := v.Verify(ctx, 1, "0xaaa", 100)

	assert.False(t, result.OK)
	assert.False(t, result.Denied)
}
