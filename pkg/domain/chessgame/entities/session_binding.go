package chessgame_entities

import (
	"time"

	chessgame_vo "github.com/coffeechess/coordinator/pkg/domain/chessgame/value-objects"
)

const ReconnectWindow = 60 * time.Second

// SessionBinding is the Coordinator-side wallet → {room, transport
// identity} mapping of spec §3. ReconnectDeadline is armed on disconnect
// and disarmed on reconnect.
type SessionBinding struct {
	Wallet            chessgame_vo.WalletAddress
	RoomID            chessgame_vo.RoomID
	SubscriberHandle  string
	ReconnectDeadline *time.Time
}

func (s *SessionBinding) ArmDisconnect(now time.Time) {
	deadline := now.Add(ReconnectWindow)
	s.ReconnectDeadline = &deadline
}

func (s *SessionBinding) DisarmReconnect(newHandle string) {
	s.ReconnectDeadline = nil
	s.SubscriberHandle = newHandle
}

func (s *SessionBinding) Disconnected() bool {
	return s.ReconnectDeadline != nil
}
