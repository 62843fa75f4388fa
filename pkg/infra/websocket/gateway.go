package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	gcommon "github.com/coffeechess/coordinator/pkg/domain"
	chessgame_entities "github.com/coffeechess/coordinator/pkg/domain/chessgame/entities"
	chessgame_in "github.com/coffeechess/coordinator/pkg/domain/chessgame/ports/in"
	chessgame_services "github.com/coffeechess/coordinator/pkg/domain/chessgame/services"
	"github.com/coffeechess/coordinator/pkg/infra/metrics"
)

// InboundMessage is the wire shape of every client-to-server message in
// spec §4.G/§6's catalog: a verb plus a verb-specific payload.
type InboundMessage struct {
	Type          string          `json:"type"`
	RoomID        string          `json:"room_id,omitempty"`
	GameID        int64           `json:"game_id,omitempty"`
	Stake         int64           `json:"stake,omitempty"`
	TimeLimit     int             `json:"time_limit,omitempty"`
	WalletAddress string          `json:"wallet_address,omitempty"`
	Move          string          `json:"move,omitempty"`
	Message       string          `json:"message,omitempty"`
	Signature     string          `json:"signature,omitempty"`
	Username      string          `json:"username,omitempty"`
	Payload       json.RawMessage `json:"payload,omitempty"`
}

// OutboundMessage is the wire shape pushed back to clients, mirroring
// chessgame_entities.OutboundEvent minus the internal routing field.
type OutboundMessage struct {
	Type      string      `json:"type"`
	Payload   interface{} `json:"payload"`
	Timestamp int64       `json:"timestamp"`
}

// Client is one connected websocket subscriber. Handle is the identity
// Room.Player.SubscriberHandle and SessionBinding.SubscriberHandle
// carry; it is reassigned on every reconnect (spec §4.D Reconnect).
type Client struct {
	Handle string
	Conn   *websocket.Conn
	Send   chan *OutboundMessage
	RoomID string
	Wallet string
}

// Gateway is spec §4.G's Event Gateway: the sole transport touchpoint,
// translating websocket frames into RoomCommands/RoomQueries/
// UsernameCommands calls and fanning Coordinator-originated events back
// out to subscribers. A register/unregister/broadcast channel loop keyed
// per-Room rather than per-lobby, with room dispatch driven generically
// by chessgame_entities.OutboundEvent.
type Gateway struct {
	mu       sync.RWMutex
	clients  map[string]*Client
	roomSubs map[string]map[string]*Client

	register   chan *Client
	unregister chan *Client

	commands chessgame_in.RoomCommands
	queries  chessgame_in.RoomQueries
	usernames chessgame_in.UsernameCommands
	limiter  *chessgame_services.RateLimiter
}

func NewGateway(commands chessgame_in.RoomCommands, queries chessgame_in.RoomQueries, usernames chessgame_in.UsernameCommands, limiter *chessgame_services.RateLimiter) *Gateway {
	return &Gateway{
		clients:    make(map[string]*Client),
		roomSubs:   make(map[string]map[string]*Client),
		register:   make(chan *Client, 256),
		unregister: make(chan *Client, 256),
		commands:   commands,
		queries:    queries,
		usernames:  usernames,
		limiter:    limiter,
	}
}

func (g *Gateway) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			g.shutdown()
			return
		case c := <-g.register:
			g.registerClient(c)
		case c := <-g.unregister:
			g.unregisterClient(c)
		}
	}
}

func (g *Gateway) registerClient(c *Client) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.clients[c.Handle] = c
	metrics.GatewayConnections.Inc()
	slog.Info("gateway client connected", "handle", c.Handle)
}

func (g *Gateway) unregisterClient(c *Client) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.clients[c.Handle]; !ok {
		return
	}
	delete(g.clients, c.Handle)
	if c.RoomID != "" {
		if subs, ok := g.roomSubs[c.RoomID]; ok {
			delete(subs, c.Handle)
			if len(subs) == 0 {
				delete(g.roomSubs, c.RoomID)
			}
		}
	}
	close(c.Send)
	metrics.GatewayConnections.Dec()
	slog.Info("gateway client disconnected", "handle", c.Handle)

	if c.Wallet != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := g.commands.Disconnect(ctx, c.Wallet); err != nil {
			slog.Warn("disconnect notification failed", "wallet", c.Wallet, "err", err)
		}
	}
}

func (g *Gateway) subscribeToRoom(c *Client, roomID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	c.RoomID = roomID
	if _, ok := g.roomSubs[roomID]; !ok {
		g.roomSubs[roomID] = map[string]*Client{}
	}
	g.roomSubs[roomID][c.Handle] = c
}

// Dispatch fans a Room's outbound events out to current subscribers; it
// is the callback Coordinator.OnEvent is wired to at startup.
func (g *Gateway) Dispatch(roomID string, events []chessgame_entities.OutboundEvent) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	for _, ev := range events {
		msg := &OutboundMessage{Type: string(ev.Type), Payload: ev.Payload, Timestamp: time.Now().Unix()}

		if ev.To != "" {
			if c, ok := g.clients[ev.To]; ok {
				g.deliver(c, msg)
			}
			continue
		}

		for _, c := range g.roomSubs[roomID] {
			g.deliver(c, msg)
		}
	}
}

func (g *Gateway) deliver(c *Client, msg *OutboundMessage) {
	select {
	case c.Send <- msg:
	default:
		slog.Warn("gateway client send buffer full", "handle", c.Handle)
	}
}

func (g *Gateway) shutdown() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, c := range g.clients {
		close(c.Send)
	}
	slog.Info("gateway shut down")
}

// HandleConnection is the http handler's per-connection entrypoint:
// upgrade, register, and run the paired read/write pumps until the
// connection closes.
func (g *Gateway) HandleConnection(conn *websocket.Conn) {
	client := &Client{
		Handle: uuid.NewString(),
		Conn:   conn,
		Send:   make(chan *OutboundMessage, 64),
	}
	g.register <- client

	go client.writePump()
	g.readPump(client)
}

func (c *Client) writePump() {
	defer c.Conn.Close()
	for msg := range c.Send {
		if err := c.Conn.WriteJSON(msg); err != nil {
			slog.Error("gateway write error", "handle", c.Handle, "err", err)
			return
		}
	}
	c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
}

func (g *Gateway) readPump(c *Client) {
	defer func() { g.unregister <- c }()

	c.Conn.SetReadLimit(4096)

	for {
		var in InboundMessage
		if err := c.Conn.ReadJSON(&in); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Error("gateway read error", "handle", c.Handle, "err", err)
			}
			return
		}
		g.handle(c, in)
	}
}

// handle dispatches one inbound message to the matching RoomCommands/
// RoomQueries/UsernameCommands call, rate-limited per spec §4.F, and
// writes back a synchronous error reply on failure. On success the
// events a command returns are fanned out with Dispatch to every
// subscriber of the room, so both players see them from one path;
// create_room, reconnect and the query verbs also reply to the caller
// directly.
func (g *Gateway) handle(c *Client, in InboundMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	subject := in.WalletAddress
	if subject == "" {
		subject = c.Handle
	}

	bucket := chessgame_services.BucketGeneral
	switch in.Type {
	case "move":
		bucket = chessgame_services.BucketMove
	case "chat":
		bucket = chessgame_services.BucketChat
	case "set_username":
		bucket = chessgame_services.BucketSetUsername
	}
	if g.limiter != nil && !g.limiter.Allow(subject, bucket) {
		metrics.RecordRateLimitRejection(bucket)
		g.replyError(c, gcommon.NewGameError(gcommon.ReasonTooManyRequests))
		return
	}

	var err error
	switch in.Type {
	case "create_room":
		c.Wallet = in.WalletAddress
		var room *chessgame_entities.Room
		var events []chessgame_entities.OutboundEvent
		room, events, err = g.commands.CreateRoom(ctx, chessgame_in.CreateRoomInput{
			GameID: in.GameID, Stake: in.Stake, WalletAddress: in.WalletAddress,
			TimeLimit: in.TimeLimit, SubscriberHandle: c.Handle,
		})
		if err == nil {
			g.subscribeToRoom(c, string(room.ID))
			g.deliver(c, &OutboundMessage{Type: "roomCreated", Payload: room.Snapshot(), Timestamp: time.Now().Unix()})
			g.Dispatch(string(room.ID), events)
		}

	case "join_room":
		c.Wallet = in.WalletAddress
		var room *chessgame_entities.Room
		var events []chessgame_entities.OutboundEvent
		room, events, err = g.commands.JoinRoom(ctx, chessgame_in.JoinRoomInput{
			RoomID: in.RoomID, GameID: in.GameID, WalletAddress: in.WalletAddress, SubscriberHandle: c.Handle,
		})
		if err == nil {
			g.subscribeToRoom(c, string(room.ID))
			g.Dispatch(string(room.ID), events)
		}

	case "move":
		var events []chessgame_entities.OutboundEvent
		events, err = g.commands.MakeMove(ctx, chessgame_in.MakeMoveInput{WalletAddress: in.WalletAddress, Move: in.Move})
		if err == nil {
			metrics.MovesAppliedTotal.Inc()
			g.Dispatch(c.RoomID, events)
		}

	case "offer_draw":
		var events []chessgame_entities.OutboundEvent
		events, err = g.commands.OfferDraw(ctx, in.WalletAddress)
		g.Dispatch(c.RoomID, events)

	case "accept_draw":
		var events []chessgame_entities.OutboundEvent
		events, err = g.commands.AcceptDraw(ctx, in.WalletAddress)
		g.Dispatch(c.RoomID, events)

	case "decline_draw":
		var events []chessgame_entities.OutboundEvent
		events, err = g.commands.DeclineDraw(ctx, in.WalletAddress)
		g.Dispatch(c.RoomID, events)

	case "resign":
		var events []chessgame_entities.OutboundEvent
		events, err = g.commands.Resign(ctx, in.WalletAddress)
		g.Dispatch(c.RoomID, events)

	case "chat":
		var events []chessgame_entities.OutboundEvent
		events, err = g.commands.Chat(ctx, chessgame_in.ChatInput{WalletAddress: in.WalletAddress, Message: in.Message})
		g.Dispatch(c.RoomID, events)

	case "reconnect":
		c.Wallet = in.WalletAddress
		var events []chessgame_entities.OutboundEvent
		var snapshot chessgame_entities.RoomSnapshot
		events, snapshot, err = g.commands.Reconnect(ctx, chessgame_in.ReconnectInput{
			WalletAddress: in.WalletAddress, Signature: in.Signature, SubscriberHandle: c.Handle,
		})
		if err == nil {
			g.subscribeToRoom(c, snapshot.RoomID)
			g.deliver(c, &OutboundMessage{Type: "roomSnapshot", Payload: snapshot, Timestamp: time.Now().Unix()})
			g.Dispatch(snapshot.RoomID, events)
		}

	case "list_rooms":
		rooms := g.queries.ListOpenRooms(ctx)
		g.deliver(c, &OutboundMessage{Type: "roomList", Payload: rooms, Timestamp: time.Now().Unix()})

	case "get_room_info":
		var snapshot chessgame_entities.RoomSnapshot
		snapshot, err = g.queries.GetRoomInfo(ctx, in.RoomID)
		if err == nil {
			g.deliver(c, &OutboundMessage{Type: "roomSnapshot", Payload: snapshot, Timestamp: time.Now().Unix()})
		}

	case "find_room_by_game_id":
		var roomID string
		roomID, err = g.queries.FindRoomByGameID(ctx, in.GameID)
		if err == nil {
			g.deliver(c, &OutboundMessage{Type: "roomFound", Payload: map[string]string{"room_id": roomID}, Timestamp: time.Now().Unix()})
		}

	case "check_username":
		var handle string
		var registered bool
		handle, registered, err = g.usernames.CheckUsername(ctx, in.WalletAddress)
		if err == nil {
			g.deliver(c, &OutboundMessage{Type: "usernameStatus", Payload: map[string]interface{}{"handle": handle, "registered": registered}, Timestamp: time.Now().Unix()})
		}

	case "set_username":
		err = g.usernames.SetUsername(ctx, in.WalletAddress, in.Username)
		if err == nil {
			g.deliver(c, &OutboundMessage{Type: "usernameSet", Payload: map[string]string{"handle": in.Username}, Timestamp: time.Now().Unix()})
		}

	default:
		err = gcommon.NewErrInvalidInput("unknown message type: " + in.Type)
	}

	if err != nil {
		g.replyError(c, err)
	}
}

func (g *Gateway) replyError(c *Client, err error) {
	g.deliver(c, &OutboundMessage{
		Type:      string(chessgame_entities.EventError),
		Payload:   map[string]string{"message": err.Error()},
		Timestamp: time.Now().Unix(),
	})
}
