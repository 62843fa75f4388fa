package chessgame_vo

import (
	"strconv"
	"sync/atomic"
)

// RoomID is the opaque, monotonically assigned room identifier (spec §3).
// A plain incrementing counter is sufficient at the room counts this
// coordinator is designed for (spec §9: "the room count is small
// (hundreds), not millions") and keeps ids short enough to type into a
// reconnect URL.
type RoomID string

var roomSeq uint64

func NewRoomID() RoomID {
	n := atomic.AddUint64(&roomSeq, 1)
	return RoomID(strconv.FormatUint(n, 36))
}
