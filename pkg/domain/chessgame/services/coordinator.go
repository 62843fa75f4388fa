package chessgame_services

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	gcommon "github.com/coffeechess/coordinator/pkg/domain"
	chessgame_entities "github.com/coffeechess/coordinator/pkg/domain/chessgame/entities"
	chessgame_in "github.com/coffeechess/coordinator/pkg/domain/chessgame/ports/in"
	chessgame_out "github.com/coffeechess/coordinator/pkg/domain/chessgame/ports/out"
	chessgame_vo "github.com/coffeechess/coordinator/pkg/domain/chessgame/value-objects"
)

const reconnectChallengeMessage = "Reconnecting to CoffeeChess"

// RoomConfig carries the timing knobs the Coordinator needs at
// construction; mirrors common.RoomConfig but decoupled from the
// ambient Config struct so this package has no import-time dependency
// on the whole process configuration.
type RoomConfig struct {
	DefaultTimeBudget          time.Duration
	DefaultIncrement           time.Duration
	VerdictMaxVerificationWait time.Duration
}

// Coordinator is spec §4.E: the registry of rooms and wallet→session
// bindings, and the only place join/create/reconnect routing decisions
// are made: a single-session guard plus event publish on transition,
// generalized from a one-shot join usecase into a long-lived registry
// holding both rooms and sessions.
type Coordinator struct {
	mu       sync.Mutex
	rooms    map[chessgame_vo.RoomID]*chessgame_entities.Room
	sessions map[string]*chessgame_entities.SessionBinding // wallet.Lower() -> binding

	engineFactory func() chessgame_out.ChessEngine
	verifier      *EscrowVerifier
	signer        *VerdictSigner
	publisher     chessgame_out.EventPublisher
	config        RoomConfig

	// onEvent fans a room's outbound events out to its current
	// subscribers; supplied by the Event Gateway at wiring time. Kept as
	// a callback rather than a port interface to avoid entities<->ports
	// import cycles (OutboundEvent lives in entities).
	onEvent func(roomID chessgame_vo.RoomID, events []chessgame_entities.OutboundEvent)

	stopSweep chan struct{}
}

func NewCoordinator(
	engineFactory func() chessgame_out.ChessEngine,
	verifier *EscrowVerifier,
	signer *VerdictSigner,
	publisher chessgame_out.EventPublisher,
	config RoomConfig,
) *Coordinator {
	c := &Coordinator{
		rooms:         map[chessgame_vo.RoomID]*chessgame_entities.Room{},
		sessions:      map[string]*chessgame_entities.SessionBinding{},
		engineFactory: engineFactory,
		verifier:      verifier,
		signer:        signer,
		publisher:     publisher,
		config:        config,
		stopSweep:     make(chan struct{}),
	}
	go c.tickLoop()
	return c
}

// OnEvent registers the Event Gateway's fan-out callback. Must be called
// before any room-producing operation for async events (clock ticks,
// timeouts, verifier cancellations) to reach subscribers.
func (c *Coordinator) OnEvent(fn func(roomID chessgame_vo.RoomID, events []chessgame_entities.OutboundEvent)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onEvent = fn
}

func (c *Coordinator) emit(roomID chessgame_vo.RoomID, events []chessgame_entities.OutboundEvent) {
	if len(events) == 0 {
		return
	}
	c.mu.Lock()
	fn := c.onEvent
	c.mu.Unlock()
	if fn != nil {
		fn(roomID, events)
	}
}

func (c *Coordinator) Close() {
	close(c.stopSweep)
}

// CreateRoom implements spec §4.E/§6's createRoom: the single-wallet
// rule rejects a wallet already bound to a live room, then seats the
// creator as white and kicks off optimistic admission.
func (c *Coordinator) CreateRoom(ctx context.Context, in chessgame_in.CreateRoomInput) (*chessgame_entities.Room, []chessgame_entities.OutboundEvent, error) {
	wallet, err := chessgame_vo.NewWalletAddress(in.WalletAddress)
	if err != nil {
		return nil, nil, gcommon.NewErrInvalidInput(err.Error())
	}
	walletLower := wallet.Lower()

	c.mu.Lock()
	if existing, ok := c.sessions[walletLower]; ok {
		if room, ok := c.rooms[existing.RoomID]; ok && room.Status() != chessgame_entities.StatusEnded && room.Status() != chessgame_entities.StatusCancelled {
			c.mu.Unlock()
			return nil, nil, gcommon.NewGameError(gcommon.ReasonAlreadyInGame)
		}
	}

	timeBudget := c.config.DefaultTimeBudget
	if in.TimeLimit > 0 {
		timeBudget = time.Duration(in.TimeLimit) * time.Second
	}

	roomID := chessgame_vo.NewRoomID()
	room := chessgame_entities.NewRoom(roomID, in.GameID, in.Stake, timeBudget, c.config.DefaultIncrement, c.engineFactory(), wallet, in.SubscriberHandle)
	c.rooms[roomID] = room
	c.sessions[walletLower] = &chessgame_entities.SessionBinding{
		Wallet:           wallet,
		RoomID:           roomID,
		SubscriberHandle: in.SubscriberHandle,
	}
	c.mu.Unlock()

	slog.InfoContext(ctx, "room created", "room_id", roomID, "game_id", in.GameID, "wallet", walletLower)
	c.publisher.PublishRoomEvent(ctx, chessgame_out.RoomLifecycleEvent{Type: "RoomCreated", RoomID: string(roomID), GameID: in.GameID})

	go c.verifyAdmission(roomID, in.GameID, walletLower, in.Stake)

	return room, nil, nil
}

// JoinRoom implements spec §4.E/§6's joinRoom.
func (c *Coordinator) JoinRoom(ctx context.Context, in chessgame_in.JoinRoomInput) (*chessgame_entities.Room, []chessgame_entities.OutboundEvent, error) {
	wallet, err := chessgame_vo.NewWalletAddress(in.WalletAddress)
	if err != nil {
		return nil, nil, gcommon.NewErrInvalidInput(err.Error())
	}
	walletLower := wallet.Lower()

	c.mu.Lock()
	if existing, ok := c.sessions[walletLower]; ok {
		if room, ok := c.rooms[existing.RoomID]; ok && room.Status() != chessgame_entities.StatusEnded && room.Status() != chessgame_entities.StatusCancelled {
			c.mu.Unlock()
			return nil, nil, gcommon.NewGameError(gcommon.ReasonAlreadyInGame)
		}
	}

	room, ok := c.rooms[chessgame_vo.RoomID(in.RoomID)]
	if !ok {
		c.mu.Unlock()
		return nil, nil, gcommon.NewGameError(gcommon.ReasonRoomNotFound)
	}
	c.mu.Unlock()

	events, err := room.Join(wallet, in.SubscriberHandle)
	if err != nil {
		return nil, nil, err
	}

	c.mu.Lock()
	c.sessions[walletLower] = &chessgame_entities.SessionBinding{
		Wallet:           wallet,
		RoomID:           room.ID,
		SubscriberHandle: in.SubscriberHandle,
	}
	c.mu.Unlock()

	slog.InfoContext(ctx, "player joined room", "room_id", room.ID, "wallet", walletLower)
	c.publisher.PublishRoomEvent(ctx, chessgame_out.RoomLifecycleEvent{Type: "RoomStarted", RoomID: string(room.ID), GameID: room.OnchainGameID})

	go c.verifyAdmission(room.ID, room.OnchainGameID, walletLower, room.Stake)

	return room, events, nil
}

// verifyAdmission runs the Escrow Verifier asynchronously and tears the
// room down with gameCancelled on denial (spec §4.B's admission
// policy). Runs once per (room, joining wallet) — both the creator's
// and the joiner's stake are verified independently, each cancelling
// the room on denial.
func (c *Coordinator) verifyAdmission(roomID chessgame_vo.RoomID, gameID int64, walletLower string, stake int64) {
	ctx := context.Background()
	result := c.verifier.Verify(ctx, gameID, walletLower, stake)

	c.mu.Lock()
	room, ok := c.rooms[roomID]
	c.mu.Unlock()
	if !ok {
		return
	}

	if result.OK {
		room.MarkVerified()
		return
	}

	events := room.Cancel(result.Reason)
	c.emit(roomID, events)
	c.publisher.PublishRoomEvent(ctx, chessgame_out.RoomLifecycleEvent{Type: "RoomCancelled", RoomID: string(roomID), GameID: gameID})
}

func (c *Coordinator) roomForWallet(walletLower string) (*chessgame_entities.Room, error) {
	c.mu.Lock()
	binding, ok := c.sessions[walletLower]
	if !ok {
		c.mu.Unlock()
		return nil, gcommon.NewGameError(gcommon.ReasonNotParticipant)
	}
	room, ok := c.rooms[binding.RoomID]
	c.mu.Unlock()
	if !ok {
		return nil, gcommon.NewGameError(gcommon.ReasonRoomNoLongerExists)
	}
	return room, nil
}

func (c *Coordinator) MakeMove(ctx context.Context, in chessgame_in.MakeMoveInput) ([]chessgame_entities.OutboundEvent, error) {
	wallet, err := chessgame_vo.NewWalletAddress(in.WalletAddress)
	if err != nil {
		return nil, gcommon.NewGameError(gcommon.ReasonInvalidMoveFormat, err.Error())
	}

	room, err := c.roomForWallet(wallet.Lower())
	if err != nil {
		return nil, err
	}

	events, err := room.ApplyMove(wallet, in.Move)
	if err != nil {
		return nil, err
	}

	if room.Status() == chessgame_entities.StatusEnded {
		c.finalizeVerdict(ctx, room)
	}

	return events, nil
}

// finalizeVerdict invokes the Verdict Signer once a room reaches Ended,
// holding the combined gameEnded broadcast until verification resolves
// or the configured maximum wait elapses (spec §9's open-question
// resolution, recorded in SPEC_FULL.md). The broadcast is emitted
// exactly once, here, after signing finishes — never from endLocked —
// so a connected client is never handed a verdict it cannot yet submit
// to the escrow contract, and never misses the signature entirely if
// signing is slow.
func (c *Coordinator) finalizeVerdict(ctx context.Context, room *chessgame_entities.Room) {
	go func() {
		deadline := time.Now().Add(c.config.VerdictMaxVerificationWait)
		for !room.IsVerified() && time.Now().Before(deadline) {
			time.Sleep(500 * time.Millisecond)
		}
		if !room.IsVerified() {
			slog.Warn("signing verdict before escrow verification resolved", "room_id", room.ID)
		}

		players := room.Players()
		snapshot := room.Snapshot()
		if snapshot.Verdict == nil {
			return
		}

		var whiteAddr, blackAddr common.Address
		for _, p := range players {
			if p.Color == chessgame_vo.White {
				whiteAddr = p.Wallet.Common()
			} else {
				blackAddr = p.Wallet.Common()
			}
		}

		var sigWhite, sigBlack, winnerAddr string
		var err error

		switch chessgame_entities.Outcome(snapshot.Verdict.Winner) {
		case chessgame_entities.OutcomeWhite:
			sigWhite, err = c.signer.SignWin(room.OnchainGameID, whiteAddr)
			winnerAddr = whiteAddr.Hex()
		case chessgame_entities.OutcomeBlack:
			sigBlack, err = c.signer.SignWin(room.OnchainGameID, blackAddr)
			winnerAddr = blackAddr.Hex()
		default:
			sigWhite, err = c.signer.SignDraw(room.OnchainGameID, whiteAddr)
			if err == nil {
				sigBlack, err = c.signer.SignDraw(room.OnchainGameID, blackAddr)
			}
		}

		if err != nil {
			// Signing failed: the game is still played and archived, but
			// the gameEnded broadcast below carries empty signature
			// fields, since there is nothing to attach.
			slog.Error("verdict signing failed", "room_id", room.ID, "err", err)
		} else {
			room.AttachVerdictSignatures(winnerAddr, sigWhite, sigBlack)
		}

		c.emit(room.ID, room.VerdictEvent())
		c.publisher.PublishRoomEvent(context.Background(), chessgame_out.RoomLifecycleEvent{Type: "RoomEnded", RoomID: string(room.ID), GameID: room.OnchainGameID})
	}()
}

func (c *Coordinator) OfferDraw(ctx context.Context, wallet string) ([]chessgame_entities.OutboundEvent, error) {
	w, err := chessgame_vo.NewWalletAddress(wallet)
	if err != nil {
		return nil, nil
	}
	room, err := c.roomForWallet(w.Lower())
	if err != nil {
		return nil, err
	}
	return room.OfferDraw(w)
}

func (c *Coordinator) AcceptDraw(ctx context.Context, wallet string) ([]chessgame_entities.OutboundEvent, error) {
	w, err := chessgame_vo.NewWalletAddress(wallet)
	if err != nil {
		return nil, nil
	}
	room, err := c.roomForWallet(w.Lower())
	if err != nil {
		return nil, err
	}
	events, err := room.AcceptDraw(w)
	if err == nil && room.Status() == chessgame_entities.StatusEnded {
		c.finalizeVerdict(ctx, room)
	}
	return events, err
}

func (c *Coordinator) DeclineDraw(ctx context.Context, wallet string) ([]chessgame_entities.OutboundEvent, error) {
	w, err := chessgame_vo.NewWalletAddress(wallet)
	if err != nil {
		return nil, nil
	}
	room, err := c.roomForWallet(w.Lower())
	if err != nil {
		return nil, err
	}
	return room.DeclineDraw(w)
}

func (c *Coordinator) Resign(ctx context.Context, wallet string) ([]chessgame_entities.OutboundEvent, error) {
	w, err := chessgame_vo.NewWalletAddress(wallet)
	if err != nil {
		return nil, gcommon.NewGameError(gcommon.ReasonNotParticipant)
	}
	room, err := c.roomForWallet(w.Lower())
	if err != nil {
		return nil, err
	}
	events, err := room.Resign(w)
	if err == nil {
		c.finalizeVerdict(ctx, room)
	}
	return events, err
}

func (c *Coordinator) Chat(ctx context.Context, in chessgame_in.ChatInput) ([]chessgame_entities.OutboundEvent, error) {
	w, err := chessgame_vo.NewWalletAddress(in.WalletAddress)
	if err != nil {
		return nil, gcommon.NewGameError(gcommon.ReasonNotParticipant)
	}
	room, err := c.roomForWallet(w.Lower())
	if err != nil {
		return nil, err
	}
	return room.Chat(w, in.Message)
}

// Disconnect implements spec §4.D's disconnect: arms the reconnect
// window on both the Room and the SessionBinding, and schedules the
// forfeit timer.
func (c *Coordinator) Disconnect(ctx context.Context, wallet string) ([]chessgame_entities.OutboundEvent, error) {
	w, err := chessgame_vo.NewWalletAddress(wallet)
	if err != nil {
		return nil, nil
	}
	walletLower := w.Lower()

	room, err := c.roomForWallet(walletLower)
	if err != nil {
		return nil, err
	}

	events, err := room.Disconnect(w)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if binding, ok := c.sessions[walletLower]; ok {
		binding.ArmDisconnect(time.Now())
	}
	c.mu.Unlock()

	go c.scheduleForfeit(room.ID, walletLower)

	return events, nil
}

// scheduleForfeit is the Coordinator's side of the 60s reconnect race
// (spec §8 boundary case): both this timer and Reconnect acquire the
// Room's serial executor (its internal mutex) before checking state, so
// whichever gets there first wins and the other is a no-op.
func (c *Coordinator) scheduleForfeit(roomID chessgame_vo.RoomID, walletLower string) {
	time.Sleep(chessgame_entities.ReconnectWindow)

	c.mu.Lock()
	binding, ok := c.sessions[walletLower]
	room, roomOK := c.rooms[roomID]
	c.mu.Unlock()

	if !ok || !roomOK || !binding.Disconnected() {
		return
	}

	players := room.Players()
	var opponentColor chessgame_vo.Color
	for _, p := range players {
		if p.Wallet.Lower() != walletLower {
			opponentColor = p.Color
		}
	}

	if room.ForceEnd(opponentColor, "disconnect") {
		c.finalizeVerdict(context.Background(), room)
	}
}

// Reconnect implements spec §4.E's reconnect authentication: requires
// an ECDSA signature of the constant challenge message recovering to
// the claimed wallet.
func (c *Coordinator) Reconnect(ctx context.Context, in chessgame_in.ReconnectInput) ([]chessgame_entities.OutboundEvent, chessgame_entities.RoomSnapshot, error) {
	w, err := chessgame_vo.NewWalletAddress(in.WalletAddress)
	if err != nil {
		return nil, chessgame_entities.RoomSnapshot{}, gcommon.NewGameError(gcommon.ReasonInvalidSignature)
	}
	walletLower := w.Lower()

	recovered, err := recoverSigner(reconnectChallengeMessage, in.Signature)
	if err != nil {
		return nil, chessgame_entities.RoomSnapshot{}, gcommon.NewGameError(gcommon.ReasonInvalidSignature)
	}
	if !strings.EqualFold(recovered.Hex(), w.Checksum()) {
		return nil, chessgame_entities.RoomSnapshot{}, gcommon.NewGameError(gcommon.ReasonSignatureMismatch)
	}

	c.mu.Lock()
	binding, ok := c.sessions[walletLower]
	c.mu.Unlock()
	if !ok {
		return nil, chessgame_entities.RoomSnapshot{}, gcommon.NewGameError(gcommon.ReasonNoActiveSession)
	}

	room, err := c.roomForWallet(walletLower)
	if err != nil {
		return nil, chessgame_entities.RoomSnapshot{}, err
	}

	events, snapshot, err := room.Reconnect(w, in.SubscriberHandle)
	if err != nil {
		return nil, chessgame_entities.RoomSnapshot{}, err
	}

	c.mu.Lock()
	binding.DisarmReconnect(in.SubscriberHandle)
	c.mu.Unlock()

	return events, snapshot, nil
}

// recoverSigner recovers the address behind a personal-sign signature
// over msg, mirroring the Verdict Signer's envelope convention in
// reverse (spec §9: "Reconnect authentication must be signature-based").
func recoverSigner(msg, signatureHex string) (common.Address, error) {
	sig := common.FromHex(signatureHex)
	if len(sig) != 65 {
		return common.Address{}, gcommon.NewErrInvalidInput("signature must be 65 bytes")
	}

	envelope := crypto.Keccak256(
		[]byte("\x19Ethereum Signed Message:\n32"),
		crypto.Keccak256([]byte(msg)),
	)

	sigCopy := append([]byte{}, sig...)
	if sigCopy[64] >= 27 {
		sigCopy[64] -= 27
	}

	pub, err := crypto.SigToPub(envelope, sigCopy)
	if err != nil {
		return common.Address{}, err
	}

	return crypto.PubkeyToAddress(*pub), nil
}

func (c *Coordinator) ListOpenRooms(ctx context.Context) []chessgame_in.RoomSummary {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := []chessgame_in.RoomSummary{}
	for id, room := range c.rooms {
		if room.Status() != chessgame_entities.StatusPending {
			continue
		}
		out = append(out, chessgame_in.RoomSummary{
			RoomID: string(id),
			GameID: room.OnchainGameID,
			Stake:  room.Stake,
			Status: string(room.Status()),
		})
	}
	return out
}

func (c *Coordinator) GetRoomInfo(ctx context.Context, roomID string) (chessgame_entities.RoomSnapshot, error) {
	c.mu.Lock()
	room, ok := c.rooms[chessgame_vo.RoomID(roomID)]
	c.mu.Unlock()
	if !ok {
		return chessgame_entities.RoomSnapshot{}, gcommon.NewGameError(gcommon.ReasonRoomNotFound)
	}
	return room.Snapshot(), nil
}

func (c *Coordinator) FindRoomByGameID(ctx context.Context, gameID int64) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for id, room := range c.rooms {
		if room.OnchainGameID == gameID && room.PlayerCount() < 2 && room.Status() == chessgame_entities.StatusPending {
			return string(id), nil
		}
	}
	return "", gcommon.NewGameError(gcommon.ReasonRoomNotFound)
}

// tickLoop drives every live room's 1Hz clock and sweeps ended/cancelled
// rooms past their GC delay (spec §4.D, §5, §9: "the room count is
// small (hundreds) ... a single global wheel is acceptable").
func (c *Coordinator) tickLoop() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopSweep:
			return
		case <-ticker.C:
			c.tickOnce()
		}
	}
}

func (c *Coordinator) tickOnce() {
	c.mu.Lock()
	ids := make([]chessgame_vo.RoomID, 0, len(c.rooms))
	for id := range c.rooms {
		ids = append(ids, id)
	}
	c.mu.Unlock()

	for _, id := range ids {
		c.mu.Lock()
		room, ok := c.rooms[id]
		c.mu.Unlock()
		if !ok {
			continue
		}

		if room.ReadyForGC() {
			c.mu.Lock()
			delete(c.rooms, id)
			c.mu.Unlock()
			continue
		}

		events := room.Tick()
		wasEnded := room.Status() == chessgame_entities.StatusEnded
		c.emit(id, events)
		if wasEnded && len(events) > 0 {
			c.finalizeVerdict(context.Background(), room)
		}

		if offererLower, expiresAt, pending := room.PendingDrawOffer(); pending && time.Now().After(expiresAt) {
			c.emit(id, room.ExpireDrawOffer(offererLower))
		}
	}
}

var _ chessgame_in.RoomCommands = (*Coordinator)(nil)
var _ chessgame_in.RoomQueries = (*Coordinator)(nil)
