package websocket

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	common "github.com/coffeechess/coordinator/pkg/domain"
	chessgame_entities "github.com/coffeechess/coordinator/pkg/domain/chessgame/entities"
	chessgame_in "github.com/coffeechess/coordinator/pkg/domain/chessgame/ports/in"
	chessgame_out "github.com/coffeechess/coordinator/pkg/domain/chessgame/ports/out"
	chessgame_services "github.com/coffeechess/coordinator/pkg/domain/chessgame/services"
	chessgame_vo "github.com/coffeechess/coordinator/pkg/domain/chessgame/value-objects"
)

// stubEngineGW is a minimal ChessEngine stand-in; the gateway tests in
// this file exercise message routing, not chess legality.
type stubEngineGW struct{}

func (stubEngineGW) TryApply(move string) (chessgame_out.AppliedMove, error) {
	return chessgame_out.AppliedMove{}, nil
}
func (stubEngineGW) SideToMove() string                    { return "w" }
func (stubEngineGW) FEN() string                            { return "stub" }
func (stubEngineGW) PGN() string                            { return "" }
func (stubEngineGW) Terminal() chessgame_out.TerminalState { return chessgame_out.TerminalState{} }

var _ chessgame_out.ChessEngine = stubEngineGW{}

// fakeCommands is a scripted chessgame_in.RoomCommands stand-in: each
// call records its input and returns whatever the test pre-loaded.
type fakeCommands struct {
	createRoomRoom   *chessgame_entities.Room
	createRoomEvents []chessgame_entities.OutboundEvent
	createRoomErr    error

	joinRoomRoom   *chessgame_entities.Room
	joinRoomEvents []chessgame_entities.OutboundEvent
	joinRoomErr    error

	moveEvents []chessgame_entities.OutboundEvent
	moveErr    error

	resignEvents []chessgame_entities.OutboundEvent
	resignErr    error

	reconnectEvents   []chessgame_entities.OutboundEvent
	reconnectSnapshot chessgame_entities.RoomSnapshot
	reconnectErr      error

	disconnectCalledWith string
}

func (f *fakeCommands) CreateRoom(ctx context.Context, in chessgame_in.CreateRoomInput) (*chessgame_entities.Room, []chessgame_entities.OutboundEvent, error) {
	return f.createRoomRoom, f.createRoomEvents, f.createRoomErr
}

func (f *fakeCommands) JoinRoom(ctx context.Context, in chessgame_in.JoinRoomInput) (*chessgame_entities.Room, []chessgame_entities.OutboundEvent, error) {
	return f.joinRoomRoom, f.joinRoomEvents, f.joinRoomErr
}

func (f *fakeCommands) MakeMove(ctx context.Context, in chessgame_in.MakeMoveInput) ([]chessgame_entities.OutboundEvent, error) {
	return f.moveEvents, f.moveErr
}

func (f *fakeCommands) OfferDraw(ctx context.Context, wallet string) ([]chessgame_entities.OutboundEvent, error) {
	return nil, nil
}

func (f *fakeCommands) AcceptDraw(ctx context.Context, wallet string) ([]chessgame_entities.OutboundEvent, error) {
	return nil, nil
}

func (f *fakeCommands) DeclineDraw(ctx context.Context, wallet string) ([]chessgame_entities.OutboundEvent, error) {
	return nil, nil
}

func (f *fakeCommands) Resign(ctx context.Context, wallet string) ([]chessgame_entities.OutboundEvent, error) {
	return f.resignEvents, f.resignErr
}

func (f *fakeCommands) Chat(ctx context.Context, in chessgame_in.ChatInput) ([]chessgame_entities.OutboundEvent, error) {
	return nil, nil
}

func (f *fakeCommands) Disconnect(ctx context.Context, wallet string) ([]chessgame_entities.OutboundEvent, error) {
	f.disconnectCalledWith = wallet
	return nil, nil
}

func (f *fakeCommands) Reconnect(ctx context.Context, in chessgame_in.ReconnectInput) ([]chessgame_entities.OutboundEvent, chessgame_entities.RoomSnapshot, error) {
	return f.reconnectEvents, f.reconnectSnapshot, f.reconnectErr
}

var _ chessgame_in.RoomCommands = (*fakeCommands)(nil)

type fakeQueries struct {
	rooms []chessgame_in.RoomSummary
}

func (f *fakeQueries) ListOpenRooms(ctx context.Context) []chessgame_in.RoomSummary { return f.rooms }

func (f *fakeQueries) GetRoomInfo(ctx context.Context, roomID string) (chessgame_entities.RoomSnapshot, error) {
	return chessgame_entities.RoomSnapshot{RoomID: roomID}, nil
}

func (f *fakeQueries) FindRoomByGameID(ctx context.Context, gameID int64) (string, error) {
	return "found-room", nil
}

var _ chessgame_in.RoomQueries = (*fakeQueries)(nil)

type fakeUsernames struct{}

func (fakeUsernames) CheckUsername(ctx context.Context, walletAddress string) (string, bool, error) {
	return "Magnus", true, nil
}

func (fakeUsernames) SetUsername(ctx context.Context, walletAddress, username string) error {
	return nil
}

var _ chessgame_in.UsernameCommands = (*fakeUsernames)(nil)

func newTestClient() *Client {
	return &Client{Handle: "conn-1", Send: make(chan *OutboundMessage, 16)}
}

func drain(t *testing.T, c *Client) *OutboundMessage {
	t.Helper()
	select {
	case msg := <-c.Send:
		return msg
	default:
		return nil
	}
}

func TestGateway_Handle_CreateRoomSubscribesClientAndRepliesRoomCreated(t *testing.T) {
	creator, err := chessgame_vo.NewWalletAddress(whiteWalletGW)
	require.NoError(t, err)
	room := chessgame_entities.NewRoom(chessgame_vo.NewRoomID(), 1, 100, 0, 0, stubEngineGW{}, creator, "h")
	commands := &fakeCommands{createRoomRoom: room}
	gw := NewGateway(commands, &fakeQueries{}, fakeUsernames{}, chessgame_services.NewRateLimiter())

	client := newTestClient()
	gw.handle(client, InboundMessage{Type: "create_room", WalletAddress: whiteWalletGW, GameID: 1, Stake: 100})

	msg := drain(t, client)
	require.NotNil(t, msg)
	assert.Equal(t, "roomCreated", msg.Type)
	assert.Equal(t, string(room.ID), client.RoomID)
}

func TestGateway_Handle_MakeMoveDispatchesEventsToRoomSubscribers(t *testing.T) {
	commands := &fakeCommands{
		moveEvents: []chessgame_entities.OutboundEvent{{Type: chessgame_entities.EventMoveAccepted, Payload: "e4"}},
	}
	gw := NewGateway(commands, &fakeQueries{}, fakeUsernames{}, chessgame_services.NewRateLimiter())

	client := newTestClient()
	client.RoomID = "room-1"
	gw.subscribeToRoom(client, "room-1")

	gw.handle(client, InboundMessage{Type: "move", WalletAddress: whiteWalletGW, Move: "e2e4"})

	msg := drain(t, client)
	require.NotNil(t, msg)
	assert.Equal(t, string(chessgame_entities.EventMoveAccepted), msg.Type)
}

func TestGateway_Handle_UnknownMessageTypeRepliesError(t *testing.T) {
	gw := NewGateway(&fakeCommands{}, &fakeQueries{}, fakeUsernames{}, chessgame_services.NewRateLimiter())

	client := newTestClient()
	gw.handle(client, InboundMessage{Type: "not_a_real_verb"})

	msg := drain(t, client)
	require.NotNil(t, msg)
	assert.Equal(t, string(chessgame_entities.EventError), msg.Type)
}

func TestGateway_Handle_CommandErrorRepliesError(t *testing.T) {
	commands := &fakeCommands{resignErr: common.NewGameError(common.ReasonNotParticipant)}
	gw := NewGateway(commands, &fakeQueries{}, fakeUsernames{}, chessgame_services.NewRateLimiter())

	client := newTestClient()
	gw.handle(client, InboundMessage{Type: "resign", WalletAddress: whiteWalletGW})

	msg := drain(t, client)
	require.NotNil(t, msg)
	assert.Equal(t, string(chessgame_entities.EventError), msg.Type)
}

func TestGateway_Handle_RateLimitedMessageRejectedWithoutReachingCommands(t *testing.T) {
	limiter := chessgame_services.NewRateLimiter()
	commands := &fakeCommands{}
	gw := NewGateway(commands, &fakeQueries{}, fakeUsernames{}, limiter)

	client := newTestClient()
	for i := 0; i < 5; i++ {
		gw.handle(client, InboundMessage{Type: "set_username", WalletAddress: whiteWalletGW, Username: "Magnus"})
		drain(t, client)
	}

	gw.handle(client, InboundMessage{Type: "set_username", WalletAddress: whiteWalletGW, Username: "Magnus"})

	msg := drain(t, client)
	require.NotNil(t, msg)
	assert.Equal(t, string(chessgame_entities.EventError), msg.Type)
}

func TestGateway_Handle_ReconnectSubscribesToSnapshotRoom(t *testing.T) {
	commands := &fakeCommands{reconnectSnapshot: chessgame_entities.RoomSnapshot{RoomID: "room-2"}}
	gw := NewGateway(commands, &fakeQueries{}, fakeUsernames{}, chessgame_services.NewRateLimiter())

	client := newTestClient()
	gw.handle(client, InboundMessage{Type: "reconnect", WalletAddress: whiteWalletGW, Signature: "0xsig"})

	assert.Equal(t, "room-2", client.RoomID)
	msg := drain(t, client)
	require.NotNil(t, msg)
	assert.Equal(t, "roomSnapshot", msg.Type)
}

func TestGateway_Dispatch_DirectEventOnlyReachesTargetedClient(t *testing.T) {
	gw := NewGateway(&fakeCommands{}, &fakeQueries{}, fakeUsernames{}, chessgame_services.NewRateLimiter())

	a := newTestClient()
	a.Handle = "a"
	b := &Client{Handle: "b", Send: make(chan *OutboundMessage, 16)}
	gw.mu.Lock()
	gw.clients["a"] = a
	gw.clients["b"] = b
	gw.mu.Unlock()
	gw.subscribeToRoom(a, "room-1")
	gw.subscribeToRoom(b, "room-1")

	gw.Dispatch("room-1", []chessgame_entities.OutboundEvent{{Type: chessgame_entities.EventDrawOffered, To: "a", Payload: "hi"}})

	assert.NotNil(t, drain(t, a))
	assert.Nil(t, drain(t, b))
}

func TestGateway_Dispatch_BroadcastEventReachesAllRoomSubscribers(t *testing.T) {
	gw := NewGateway(&fakeCommands{}, &fakeQueries{}, fakeUsernames{}, chessgame_services.NewRateLimiter())

	a := &Client{Handle: "a", Send: make(chan *OutboundMessage, 16)}
	b := &Client{Handle: "b", Send: make(chan *OutboundMessage, 16)}
	gw.mu.Lock()
	gw.clients["a"] = a
	gw.clients["b"] = b
	gw.mu.Unlock()
	gw.subscribeToRoom(a, "room-1")
	gw.subscribeToRoom(b, "room-1")

	gw.Dispatch("room-1", []chessgame_entities.OutboundEvent{{Type: chessgame_entities.EventChatMessage, Payload: "hi"}})

	assert.NotNil(t, drain(t, a))
	assert.NotNil(t, drain(t, b))
}

func TestGateway_UnregisterClient_NotifiesDisconnectWhenWalletBound(t *testing.T) {
	commands := &fakeCommands{}
	gw := NewGateway(commands, &fakeQueries{}, fakeUsernames{}, chessgame_services.NewRateLimiter())

	client := newTestClient()
	client.Wallet = whiteWalletGW
	gw.registerClient(client)

	gw.unregisterClient(client)

	assert.Equal(t, whiteWalletGW, commands.disconnectCalledWith)
}

func TestGateway_UnregisterClient_IgnoredIfAlreadyUnregistered(t *testing.T) {
	gw := NewGateway(&fakeCommands{}, &fakeQueries{}, fakeUsernames{}, chessgame_services.NewRateLimiter())

	client := newTestClient()
	gw.registerClient(client)
	gw.unregisterClient(client)

	assert.NotPanics(t, func() { gw.unregisterClient(client) })
}

const whiteWalletGW = "0x00000000000000000000000000000000000000aa"
