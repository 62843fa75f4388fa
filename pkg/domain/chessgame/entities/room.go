package chessgame_entities

import (
	"sync"
	"time"

	common "github.com/coffeechess/coordinator/pkg/domain"
	chessgame_out "github.com/coffeechess/coordinator/pkg/domain/chessgame/ports/out"
	chessgame_vo "github.com/coffeechess/coordinator/pkg/domain/chessgame/value-objects"
)

type RoomStatus string

const (
	StatusPending   RoomStatus = "pending"
	StatusActive    RoomStatus = "active"
	StatusEnded     RoomStatus = "ended"
	StatusCancelled RoomStatus = "cancelled"
)

const PostGameGCDelay = 30 * time.Second

// Player is one seat of a Room (spec §3 players[0..2]).
type Player struct {
	Wallet           chessgame_vo.WalletAddress
	Color            chessgame_vo.Color
	SubscriberHandle string
}

// Room is the central aggregate of spec §3/§4.D: one on-chain game id,
// two wallets, a board, clocks, chat, and (once ended) an immutable
// verdict. Every exported method acquires mu, realizing the "single
// serial executor per Room" discipline of spec §5 as a mutex rather
// than a mailbox+goroutine: a behavior-bearing struct, not an actor
// goroutine.
type Room struct {
	mu sync.Mutex

	ID            chessgame_vo.RoomID
	OnchainGameID int64
	Stake         int64
	TimeBudget    time.Duration

	players []Player
	board   chessgame_out.ChessEngine
	moveLog []Move
	clock   *Clock
	chat    *ChatRing

	drawOffer *DrawOffer

	Verified  bool
	Started   bool
	Ended     bool
	Cancelled bool
	Verdict   *Verdict

	CreatedAt time.Time
	EndedAt   *time.Time

	sessions map[string]*SessionBinding // wallet.Lower() -> binding, shared view for snapshot convenience
}

func NewRoom(id chessgame_vo.RoomID, onchainGameID int64, stake int64, timeBudget, increment time.Duration, engine chessgame_out.ChessEngine, creator chessgame_vo.WalletAddress, creatorHandle string) *Room {
	return &Room{
		ID:            id,
		OnchainGameID: onchainGameID,
		Stake:         stake,
		TimeBudget:    timeBudget,
		players: []Player{
			{Wallet: creator, Color: chessgame_vo.White, SubscriberHandle: creatorHandle},
		},
		board:     engine,
		clock:     NewClock(timeBudget, increment),
		chat:      NewChatRing(),
		CreatedAt: time.Now(),
		sessions:  map[string]*SessionBinding{},
	}
}

func (r *Room) PlayerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players)
}

func (r *Room) HasPlayer(wallet chessgame_vo.WalletAddress) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.findPlayer(wallet) != nil
}

func (r *Room) findPlayer(wallet chessgame_vo.WalletAddress) *Player {
	for i := range r.players {
		if r.players[i].Wallet.Equals(wallet) {
			return &r.players[i]
		}
	}
	return nil
}

func (r *Room) opponent(wallet chessgame_vo.WalletAddress) *Player {
	for i := range r.players {
		if !r.players[i].Wallet.Equals(wallet) {
			return &r.players[i]
		}
	}
	return nil
}

// Join seats the second player (spec: "creator is white", joiner is
// black). Fails if the room already has two players or has left Pending.
func (r *Room) Join(wallet chessgame_vo.WalletAddress, handle string) ([]OutboundEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.players) >= 2 {
		return nil, common.NewGameError(common.ReasonRoomFull)
	}
	if r.Started || r.Ended || r.Cancelled {
		return nil, common.NewGameError(common.ReasonAlreadyStarted)
	}
	if r.players[0].Wallet.Equals(wallet) {
		return nil, common.NewGameError(common.ReasonSelfPlay)
	}

	r.players = append(r.players, Player{Wallet: wallet, Color: chessgame_vo.Black, SubscriberHandle: handle})
	r.Started = true

	return []OutboundEvent{broadcast(EventStartGame, r.startGamePayload())}, nil
}

func (r *Room) startGamePayload() map[string]interface{} {
	return map[string]interface{}{
		"gameId":  r.OnchainGameID,
		"players": r.playersSummaryLocked(),
		"timers": map[string]float64{
			"white": r.clock.WhiteRemaining.Seconds(),
			"black": r.clock.BlackRemaining.Seconds(),
		},
	}
}

func (r *Room) playersSummaryLocked() []map[string]string {
	out := make([]map[string]string, 0, len(r.players))
	for _, p := range r.players {
		out = append(out, map[string]string{
			"wallet": p.Wallet.Checksum(),
			"color":  string(p.Color),
		})
	}
	return out
}

// ApplyMove is spec §4.D's apply_move.
func (r *Room) ApplyMove(wallet chessgame_vo.WalletAddress, move string) ([]OutboundEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	player := r.findPlayer(wallet)
	if player == nil {
		return nil, common.NewGameError(common.ReasonNotParticipant)
	}
	if r.Ended || r.Cancelled {
		return nil, common.NewGameError(common.ReasonGameOver)
	}
	if r.board.SideToMove() != colorCode(player.Color) {
		return nil, common.NewGameError(common.ReasonNotYourTurn)
	}

	applied, err := r.board.TryApply(move)
	if err != nil {
		return nil, common.NewGameError(common.ReasonIllegalMove, err.Error())
	}

	firstMove := len(r.moveLog) == 0

	entry := Move{
		Ply:        len(r.moveLog) + 1,
		SAN:        applied.SAN,
		UCI:        applied.UCI,
		FEN:        applied.FEN,
		PlayerNum:  playerNum(player.Color),
		AcceptedAt: time.Now(),
	}
	r.moveLog = append(r.moveLog, entry)
	r.clearDrawOfferLocked()

	nextToMove := player.Color.Opponent()
	r.clock.SetToMove(nextToMove)
	r.clock.ApplyIncrement(player.Color)
	if firstMove {
		r.clock.Start()
	}

	events := []OutboundEvent{broadcast(EventMoveAccepted, map[string]interface{}{
		"move":      entry.SAN,
		"uci":       entry.UCI,
		"fen":       entry.FEN,
		"turn":      string(nextToMove),
		"playerNum": entry.PlayerNum,
	})}

	terminal := r.board.Terminal()
	if terminal.Over {
		reason := terminalReason(terminal)
		var winner chessgame_vo.Color
		if terminal.Checkmate {
			winner = player.Color
		}
		r.endLocked(winner, reason, !terminal.Draw && terminal.Checkmate)
	}

	return events, nil
}

func colorCode(c chessgame_vo.Color) string {
	if c == chessgame_vo.White {
		return "w"
	}
	return "b"
}

func playerNum(c chessgame_vo.Color) int {
	if c == chessgame_vo.White {
		return 1
	}
	return 2
}

func terminalReason(t chessgame_out.TerminalState) string {
	switch {
	case t.Checkmate:
		return "checkmate"
	case t.Stalemate:
		return "stalemate"
	case t.ThreefoldRepetition:
		return "threefold repetition"
	case t.InsufficientMaterial:
		return "insufficient material"
	case t.FiftyMoveRule:
		return "fifty-move rule"
	default:
		return "draw"
	}
}

// OfferDraw is spec §4.D's offer_draw: no-op if already pending.
func (r *Room) OfferDraw(wallet chessgame_vo.WalletAddress) ([]OutboundEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.Ended || r.Cancelled {
		return nil, nil
	}
	if r.drawOffer.Pending() {
		return nil, nil
	}
	player := r.findPlayer(wallet)
	if player == nil {
		return nil, nil
	}

	r.drawOffer = &DrawOffer{
		OffererWallet: wallet.Lower(),
		ExpiresAt:     time.Now().Add(DrawOfferExpiry),
	}

	opp := r.opponent(wallet)
	if opp == nil {
		return nil, nil
	}

	return []OutboundEvent{direct(opp.SubscriberHandle, EventDrawOffered, map[string]interface{}{
		"offerer": wallet.Checksum(),
	})}, nil
}

// AcceptDraw is spec §4.D's accept_draw: only valid from the opposite
// wallet of a pending offer. The gameEnded broadcast is held until the
// Coordinator's verdict signing resolves, so this returns no events of
// its own — callers must check Status() to detect the transition.
func (r *Room) AcceptDraw(wallet chessgame_vo.WalletAddress) ([]OutboundEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.drawOffer.Pending() || r.drawOffer.OffererWallet == wallet.Lower() {
		return nil, nil
	}

	r.endLocked("", "mutual agreement", false)
	return nil, nil
}

// DeclineDraw is spec §4.D's decline_draw: only valid from the
// non-offerer.
func (r *Room) DeclineDraw(wallet chessgame_vo.WalletAddress) ([]OutboundEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.drawOffer.Pending() || r.drawOffer.OffererWallet == wallet.Lower() {
		return nil, nil
	}

	offererHandle := ""
	for _, p := range r.players {
		if p.Wallet.Lower() == r.drawOffer.OffererWallet {
			offererHandle = p.SubscriberHandle
		}
	}
	r.clearDrawOfferLocked()

	if offererHandle == "" {
		return nil, nil
	}
	return []OutboundEvent{direct(offererHandle, EventDrawDeclined, nil)}, nil
}

// ExpireDrawOffer is invoked by the Coordinator's timer when a pending
// offer's 30s window elapses without resolution.
func (r *Room) ExpireDrawOffer(offererWalletLower string) []OutboundEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.drawOffer.Pending() || r.drawOffer.OffererWallet != offererWalletLower {
		return nil
	}

	var offererHandle string
	for _, p := range r.players {
		if p.Wallet.Lower() == offererWalletLower {
			offererHandle = p.SubscriberHandle
		}
	}
	r.clearDrawOfferLocked()

	if offererHandle == "" {
		return nil
	}
	return []OutboundEvent{direct(offererHandle, EventDrawDeclined, nil)}
}

func (r *Room) PendingDrawOffer() (wallet string, expiresAt time.Time, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.drawOffer.Pending() {
		return "", time.Time{}, false
	}
	return r.drawOffer.OffererWallet, r.drawOffer.ExpiresAt, true
}

func (r *Room) clearDrawOfferLocked() {
	r.drawOffer = nil
}

// Resign is spec §4.D's resign. Like AcceptDraw, the gameEnded broadcast
// is held until verdict signing resolves, so no events are returned here.
func (r *Room) Resign(wallet chessgame_vo.WalletAddress) ([]OutboundEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	player := r.findPlayer(wallet)
	if player == nil {
		return nil, common.NewGameError(common.ReasonNotParticipant)
	}
	if r.Ended || r.Cancelled {
		return nil, common.NewGameError(common.ReasonGameOver)
	}

	r.endLocked(player.Color.Opponent(), "resignation", true)
	return nil, nil
}

// Chat is spec §4.D's chat: sanitizes and appends to the bounded ring.
func (r *Room) Chat(wallet chessgame_vo.WalletAddress, text string) ([]OutboundEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.findPlayer(wallet) == nil {
		return nil, common.NewGameError(common.ReasonNotParticipant)
	}

	clean, ok := Sanitize(text)
	if !ok {
		return nil, nil
	}

	entry := r.chat.Append(wallet.Checksum(), clean, time.Now())

	return []OutboundEvent{broadcast(EventChatMessage, map[string]interface{}{
		"sender":      entry.SenderWallet,
		"senderShort": entry.SenderShort,
		"message":     entry.Message,
		"timestamp":   entry.Timestamp,
	})}, nil
}

// Disconnect is spec §4.D's disconnect: arms the 60s reconnect window
// and notifies the opponent. Caller (Coordinator) is responsible for
// scheduling the forfeit timer and invoking ForceEnd on expiry.
func (r *Room) Disconnect(wallet chessgame_vo.WalletAddress) ([]OutboundEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.Ended || r.Cancelled {
		return nil, nil
	}
	if r.findPlayer(wallet) == nil {
		return nil, common.NewGameError(common.ReasonNotParticipant)
	}

	opp := r.opponent(wallet)
	if opp == nil {
		return nil, nil
	}

	return []OutboundEvent{direct(opp.SubscriberHandle, EventOpponentDisconnected, map[string]interface{}{
		"message": "opponent disconnected",
	})}, nil
}

// Reconnect is spec §4.D's reconnect: rebinds the subscriber handle and
// returns a complete snapshot.
func (r *Room) Reconnect(wallet chessgame_vo.WalletAddress, newHandle string) ([]OutboundEvent, RoomSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	player := r.findPlayer(wallet)
	if player == nil {
		return nil, RoomSnapshot{}, common.NewGameError(common.ReasonNotParticipant)
	}

	player.SubscriberHandle = newHandle
	snapshot := r.snapshotLocked()

	opp := r.opponent(wallet)
	var events []OutboundEvent
	if opp != nil {
		events = append(events, direct(opp.SubscriberHandle, EventOpponentReconnected, map[string]interface{}{
			"message": "opponent reconnected",
		}))
	}

	return events, snapshot, nil
}

// ForceEnd is invoked by the Coordinator when the reconnect deadline
// elapses without a reconnect. Escrow Verifier denial does not come
// through here: it calls Cancel, for pending and active rooms alike.
// Reports whether it actually transitioned the room to Ended, since the
// gameEnded broadcast itself is deferred to VerdictEvent once signing
// resolves.
func (r *Room) ForceEnd(winner chessgame_vo.Color, reason string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Ended || r.Cancelled {
		return false
	}
	r.endLocked(winner, reason, true)
	return true
}

// Cancel tears the room down pre-verdict (spec: verifier denial produces
// gameCancelled rather than gameEnded).
func (r *Room) Cancel(reason string) []OutboundEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Ended || r.Cancelled {
		return nil
	}
	r.Cancelled = true
	r.clock.Stop()
	r.clearDrawOfferLocked()

	return []OutboundEvent{broadcast(EventGameCancelled, map[string]interface{}{"reason": reason})}
}

// endLocked implements spec §4.D's end procedure. hasWinner distinguishes
// a decisive result (one signature) from a draw (two signatures).
// endLocked only latches state and computes the score pair; it does not
// itself produce a gameEnded broadcast. Signing is an I/O boundary this
// entity must not perform itself, and spec §9's resolution of the "when
// to emit signatures" open question holds the single combined gameEnded
// event until the Coordinator's Verdict Signer resolves (or times out) —
// see VerdictEvent.
func (r *Room) endLocked(winner chessgame_vo.Color, reason string, hasWinner bool) {
	r.clearDrawOfferLocked()
	r.Ended = true
	r.clock.Stop()
	now := time.Now()
	r.EndedAt = &now

	verdict := &Verdict{Reason: reason}
	if hasWinner && winner.Valid() {
		verdict.Winner = Outcome(winner)
		verdict.Scores = DecisiveScores(winner)
	} else {
		verdict.Winner = OutcomeDraw
		verdict.Scores = DrawScores()
	}
	r.Verdict = verdict
}

// AttachVerdictSignatures is called once by the Coordinator after the
// Verdict Signer produces signatures for an already-ended room; it never
// overwrites an existing signature (spec §8 caching invariant).
func (r *Room) AttachVerdictSignatures(winnerAddr, sigWhite, sigBlack string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Verdict == nil {
		return
	}
	if r.Verdict.SignatureWhite == "" {
		r.Verdict.SignatureWhite = sigWhite
	}
	if r.Verdict.SignatureBlack == "" {
		r.Verdict.SignatureBlack = sigBlack
	}
	if r.Verdict.WinnerAddress == "" {
		r.Verdict.WinnerAddress = winnerAddr
	}
}

// VerdictEvent builds the single gameEnded broadcast spec §6 describes,
// carrying the outcome together with whatever signatures
// AttachVerdictSignatures has attached. The Coordinator calls this once,
// after its verdict-signing goroutine resolves (successfully or via its
// maximum-wait fallback), rather than from endLocked directly — this is
// what keeps a client from ever receiving a verdict it cannot yet submit
// to the escrow contract. Returns nil if the room never reached a
// verdict (e.g. cancelled pre-verdict, which emits gameCancelled
// instead).
func (r *Room) VerdictEvent() []OutboundEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Verdict == nil {
		return nil
	}
	return []OutboundEvent{broadcast(EventGameEnded, map[string]interface{}{
		"winner":         string(r.Verdict.Winner),
		"reason":         r.Verdict.Reason,
		"pgn":            r.board.PGN(),
		"gameId":         r.OnchainGameID,
		"scores":         r.Verdict.Scores,
		"winnerAddress":  r.Verdict.WinnerAddress,
		"signatureWhite": r.Verdict.SignatureWhite,
		"signatureBlack": r.Verdict.SignatureBlack,
	})}
}

// Tick advances the clock by one second (spec §4.D clock semantics) and
// returns a timerUpdate. If a flag is detected, it drives endLocked for
// the opposite color; the gameEnded broadcast is not among the returned
// events, it is built later by VerdictEvent.
func (r *Room) Tick() []OutboundEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.Ended || r.Cancelled || !r.Started {
		return nil
	}

	flagged := r.clock.Tick()
	events := []OutboundEvent{broadcast(EventTimerUpdate, map[string]interface{}{
		"white": r.clock.WhiteRemaining.Seconds(),
		"black": r.clock.BlackRemaining.Seconds(),
	})}

	if flagged != "" {
		r.endLocked(flagged.Opponent(), "timeout", true)
	}

	return events
}

func (r *Room) ReadyForGC() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Cancelled {
		return true
	}
	if !r.Ended || r.EndedAt == nil {
		return false
	}
	return time.Since(*r.EndedAt) >= PostGameGCDelay
}

func (r *Room) Status() RoomStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch {
	case r.Cancelled:
		return StatusCancelled
	case r.Ended:
		return StatusEnded
	case r.Started:
		return StatusActive
	default:
		return StatusPending
	}
}

func (r *Room) Snapshot() RoomSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

// RoomSnapshot is the reconnect/getRoomInfo payload (spec §6, §4.D,
// extended per SPEC_FULL.md's move-log-in-reconnect-snapshot
// supplement).
type RoomSnapshot struct {
	RoomID   string          `json:"room_id"`
	GameID   int64           `json:"game_id"`
	FEN      string          `json:"fen"`
	PGN      string          `json:"pgn"`
	MoveLog  []Move          `json:"move_log"`
	White    float64         `json:"white_remaining_seconds"`
	Black    float64         `json:"black_remaining_seconds"`
	ToMove   string          `json:"to_move"`
	Chat     []ChatEntry     `json:"chat"`
	Status   RoomStatus      `json:"status"`
	Verdict  *Verdict        `json:"verdict,omitempty"`
	Players  []map[string]string `json:"players"`
}

func (r *Room) snapshotLocked() RoomSnapshot {
	status := StatusPending
	switch {
	case r.Cancelled:
		status = StatusCancelled
	case r.Ended:
		status = StatusEnded
	case r.Started:
		status = StatusActive
	}

	return RoomSnapshot{
		RoomID:  string(r.ID),
		GameID:  r.OnchainGameID,
		FEN:     r.board.FEN(),
		PGN:     r.board.PGN(),
		MoveLog: append([]Move{}, r.moveLog...),
		White:   r.clock.WhiteRemaining.Seconds(),
		Black:   r.clock.BlackRemaining.Seconds(),
		ToMove:  string(r.clock.ToMove),
		Chat:    r.chat.Entries(),
		Status:  status,
		Verdict: r.Verdict,
		Players: r.playersSummaryLocked(),
	}
}

func (r *Room) Players() []Player {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Player, len(r.players))
	copy(out, r.players)
	return out
}

func (r *Room) MarkVerified() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Verified = true
}

func (r *Room) IsVerified() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Verified
}
