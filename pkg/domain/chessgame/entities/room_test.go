package chessgame_entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	chessgame_out "github.com/coffeechess/coordinator/pkg/domain/chessgame/ports/out"
	chessgame_vo "github.com/coffeechess/coordinator/pkg/domain/chessgame/value-objects"
)

func mustWallet(t *testing.T, raw string) chessgame_vo.WalletAddress {
	t.Helper()
	w, err := chessgame_vo.NewWalletAddress(raw)
	require.NoError(t, err)
	return w
}

const (
	whiteWallet = "0x00000000000000000000000000000000000000aa"
	blackWallet = "0x00000000000000000000000000000000000000bb"
)

func newTestRoom(t *testing.T, timeBudget time.Duration) (*Room, chessgame_vo.WalletAddress, chessgame_vo.WalletAddress) {
	t.Helper()
	white := mustWallet(t, whiteWallet)
	black := mustWallet(t, blackWallet)

	room := NewRoom(chessgame_vo.NewRoomID(), 1, 100, timeBudget, 0, newFakeEngine(), white, "white-handle")
	_, err := room.Join(black, "black-handle")
	require.NoError(t, err)

	return room, white, black
}

// fakeEngine is a minimal ChessEngine stand-in for entity-level tests
// that don't need real chess legality, only the Room's bookkeeping
// around it.
type fakeEngine struct {
	toMove   string
	terminal chessgame_out.TerminalState
	fen      string
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{toMove: "w", fen: "startpos"}
}

func (e *fakeEngine) TryApply(move string) (chessgame_out.AppliedMove, error) {
	applied := chessgame_out.AppliedMove{SAN: move, UCI: move, FEN: e.fen}
	if e.toMove == "w" {
		e.toMove = "b"
	} else {
		e.toMove = "w"
	}
	return applied, nil
}

func (e *fakeEngine) SideToMove() string                    { return e.toMove }
func (e *fakeEngine) FEN() string                            { return e.fen }
func (e *fakeEngine) PGN() string                            { return "1. e4" }
func (e *fakeEngine) Terminal() chessgame_out.TerminalState { return e.terminal }

var _ chessgame_out.ChessEngine = (*fakeEngine)(nil)

func TestRoom_Join_SecondPlayerBecomesBlackAndStartsGame(t *testing.T) {
	white := mustWallet(t, whiteWallet)
	black := mustWallet(t, blackWallet)

	room := NewRoom(chessgame_vo.NewRoomID(), 1, 100, time.Minute, 0, newFakeEngine(), white, "w")

	events, err := room.Join(black, "b")

	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, EventStartGame, events[0].Type)
	assert.True(t, room.HasPlayer(black))
	assert.Equal(t, StatusActive, room.Status())
}

func TestRoom_Join_SelfPlayRejected(t *testing.T) {
	white := mustWallet(t, whiteWallet)
	room := NewRoom(chessgame_vo.NewRoomID(), 1, 100, time.Minute, 0, newFakeEngine(), white, "w")

	_, err := room.Join(white, "w-again")

	assert.Error(t, err)
}

func TestRoom_Join_RoomFullRejected(t *testing.T) {
	room, _, _ := newTestRoom(t, time.Minute)

	third := mustWallet(t, "0x00000000000000000000000000000000000000cc")
	_, err := room.Join(third, "third")

	assert.Error(t, err)
}

func TestRoom_ApplyMove_RejectsOutOfTurn(t *testing.T) {
	room, _, black := newTestRoom(t, time.Minute)

	_, err := room.ApplyMove(black, "e7e5")

	assert.Error(t, err)
}

func TestRoom_ApplyMove_RejectsNonParticipant(t *testing.T) {
	room, _, _ := newTestRoom(t, time.Minute)
	stranger := mustWallet(t, "0x00000000000000000000000000000000000000cc")

	_, err := room.ApplyMove(stranger, "e2e4")

	assert.Error(t, err)
}

func TestRoom_Resign_OpponentWinsByResignation(t *testing.T) {
	room, white, _ := newTestRoom(t, time.Minute)

	events, err := room.Resign(white)

	require.NoError(t, err)
	assert.Nil(t, events, "gameEnded is held for VerdictEvent, not returned by Resign")
	assert.True(t, room.Status() == StatusEnded)
	assert.Equal(t, OutcomeBlack, room.Verdict.Winner)
	assert.Equal(t, "resignation", room.Verdict.Reason)

	verdictEvents := room.VerdictEvent()
	require.Len(t, verdictEvents, 1)
	assert.Equal(t, EventGameEnded, verdictEvents[0].Type)
}

func TestRoom_Resign_AlreadyEndedRejected(t *testing.T) {
	room, white, _ := newTestRoom(t, time.Minute)
	_, err := room.Resign(white)
	require.NoError(t, err)

	_, err = room.Resign(white)
	assert.Error(t, err)
}

func TestRoom_OfferAndAcceptDraw_EndsInMutualAgreement(t *testing.T) {
	room, white, black := newTestRoom(t, time.Minute)

	offerEvents, err := room.OfferDraw(white)
	require.NoError(t, err)
	require.Len(t, offerEvents, 1)
	assert.Equal(t, EventDrawOffered, offerEvents[0].Type)

	acceptEvents, err := room.AcceptDraw(black)
	require.NoError(t, err)
	assert.Nil(t, acceptEvents, "gameEnded is held for VerdictEvent, not returned by AcceptDraw")
	assert.Equal(t, OutcomeDraw, room.Verdict.Winner)
	assert.Equal(t, "mutual agreement", room.Verdict.Reason)
}

func TestRoom_AcceptDraw_OffererCannotAcceptOwnOffer(t *testing.T) {
	room, white, _ := newTestRoom(t, time.Minute)

	_, err := room.OfferDraw(white)
	require.NoError(t, err)

	events, err := room.AcceptDraw(white)
	require.NoError(t, err)
	assert.Nil(t, events)
	assert.False(t, room.Status() == StatusEnded)
}

func TestRoom_DeclineDraw_ClearsOffer(t *testing.T) {
	room, white, black := newTestRoom(t, time.Minute)

	_, err := room.OfferDraw(white)
	require.NoError(t, err)

	events, err := room.DeclineDraw(black)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, EventDrawDeclined, events[0].Type)

	_, _, pending := room.PendingDrawOffer()
	assert.False(t, pending)
}

func TestRoom_ExpireDrawOffer_NotifiesOfferer(t *testing.T) {
	room, white, _ := newTestRoom(t, time.Minute)

	_, err := room.OfferDraw(white)
	require.NoError(t, err)

	events := room.ExpireDrawOffer(white.Lower())

	require.Len(t, events, 1)
	assert.Equal(t, EventDrawDeclined, events[0].Type)

	_, _, pending := room.PendingDrawOffer()
	assert.False(t, pending)
}

func TestRoom_Disconnect_NotifiesOpponent(t *testing.T) {
	room, white, _ := newTestRoom(t, time.Minute)

	events, err := room.Disconnect(white)

	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, EventOpponentDisconnected, events[0].Type)
}

func TestRoom_ForceEnd_DisconnectForfeitsGame(t *testing.T) {
	room, white, _ := newTestRoom(t, time.Minute)

	_, err := room.Disconnect(white)
	require.NoError(t, err)

	ended := room.ForceEnd(chessgame_vo.Black, "disconnect")

	assert.True(t, ended)
	assert.Equal(t, OutcomeBlack, room.Verdict.Winner)
	assert.Equal(t, "disconnect", room.Verdict.Reason)
}

func TestRoom_ForceEnd_NoOpOnceAlreadyEnded(t *testing.T) {
	room, white, _ := newTestRoom(t, time.Minute)
	_, err := room.Resign(white)
	require.NoError(t, err)

	ended := room.ForceEnd(chessgame_vo.Black, "disconnect")

	assert.False(t, ended)
}

func TestRoom_Tick_FlagsOnTimeout(t *testing.T) {
	room, _, _ := newTestRoom(t, time.Second)

	white := mustWallet(t, whiteWallet)
	_, err := room.ApplyMove(white, "e2e4")
	require.NoError(t, err)

	events := room.Tick()

	require.NotEmpty(t, events, "the flagging tick still emits a timerUpdate")
	assert.Equal(t, StatusEnded, room.Status())
	assert.Equal(t, OutcomeWhite, room.Verdict.Winner)
	assert.Equal(t, "timeout", room.Verdict.Reason)

	verdictEvents := room.VerdictEvent()
	require.Len(t, verdictEvents, 1)
	assert.Equal(t, EventGameEnded, verdictEvents[0].Type)
}

func TestRoom_Tick_NoOpBeforeGameStarted(t *testing.T) {
	white := mustWallet(t, whiteWallet)
	room := NewRoom(chessgame_vo.NewRoomID(), 1, 100, time.Minute, 0, newFakeEngine(), white, "w")

	events := room.Tick()

	assert.Nil(t, events)
}

func TestRoom_AttachVerdictSignatures_DoesNotOverwriteExisting(t *testing.T) {
	room, white, _ := newTestRoom(t, time.Minute)
	_, err := room.Resign(white)
	require.NoError(t, err)

	room.AttachVerdictSignatures("0xWinner", "0xsigWhite", "0xsigBlack")
	room.AttachVerdictSignatures("0xOther", "0xnewWhite", "0xnewBlack")

	assert.Equal(t, "0xWinner", room.Verdict.WinnerAddress)
	assert.Equal(t, "0xsigWhite", room.Verdict.SignatureWhite)
	assert.Equal(t, "0xsigBlack", room.Verdict.SignatureBlack)
}

func TestRoom_VerdictEvent_CarriesSignaturesOnceAttached(t *testing.T) {
	room, white, _ := newTestRoom(t, time.Minute)
	_, err := room.Resign(white)
	require.NoError(t, err)

	before := room.VerdictEvent()[0].Payload.(map[string]interface{})
	assert.Equal(t, "", before["signatureBlack"])

	room.AttachVerdictSignatures("0xWinner", "", "0xsigBlack")

	events := room.VerdictEvent()
	require.Len(t, events, 1)
	assert.Equal(t, EventGameEnded, events[0].Type)
	payload := events[0].Payload.(map[string]interface{})
	assert.Equal(t, "0xWinner", payload["winnerAddress"])
	assert.Equal(t, "0xsigBlack", payload["signatureBlack"])
}

func TestRoom_VerdictEvent_NilBeforeGameEnds(t *testing.T) {
	room, _, _ := newTestRoom(t, time.Minute)
	assert.Nil(t, room.VerdictEvent())
}

func TestRoom_ReadyForGC_WaitsOutPostGameDelay(t *testing.T) {
	room, white, _ := newTestRoom(t, time.Minute)
	_, err := room.Resign(white)
	require.NoError(t, err)

	assert.False(t, room.ReadyForGC())

	past := time.Now().Add(-PostGameGCDelay - time.Second)
	room.EndedAt = &past

	assert.True(t, room.ReadyForGC())
}

func TestRoom_Cancel_MarksRoomCancelled(t *testing.T) {
	room, _, _ := newTestRoom(t, time.Minute)

	events := room.Cancel("stake verification failed")

	require.Len(t, events, 1)
	assert.Equal(t, EventGameCancelled, events[0].Type)
	assert.Equal(t, StatusCancelled, room.Status())
	assert.True(t, room.ReadyForGC())
}
