package chessgame_entities

import (
	"time"

	chessgame_vo "github.com/coffeechess/coordinator/pkg/domain/chessgame/value-objects"
)

// Clock is the per-room chess clock of spec §3/§4.D. It does not run
// until the first move is accepted, and ticks at 1 Hz decrementing
// whichever side is to move.
type Clock struct {
	WhiteRemaining time.Duration
	BlackRemaining time.Duration
	ToMove         chessgame_vo.Color
	Running        bool
	increment      time.Duration
}

func NewClock(budget, increment time.Duration) *Clock {
	return &Clock{
		WhiteRemaining: budget,
		BlackRemaining: budget,
		ToMove:         chessgame_vo.White,
		Running:        false,
		increment:      increment,
	}
}

// Start arms the clock on the first accepted move (spec §4.D: "the clock
// does not run until the first move is accepted").
func (c *Clock) Start() {
	c.Running = true
}

func (c *Clock) Stop() {
	c.Running = false
}

// SetToMove updates whose clock the next tick decrements; kept in lock
// step with the board's side-to-move per spec §3's invariant.
func (c *Clock) SetToMove(color chessgame_vo.Color) {
	c.ToMove = color
}

// ApplyIncrement adds the configured increment to the player who just
// moved, called by Room.ApplyMove after SetToMove flips sides.
func (c *Clock) ApplyIncrement(mover chessgame_vo.Color) {
	if c.increment <= 0 {
		return
	}
	if mover == chessgame_vo.White {
		c.WhiteRemaining += c.increment
	} else {
		c.BlackRemaining += c.increment
	}
}

// Tick decrements the side-to-move's remaining time by one second if
// the clock is running. It returns the color that has just flagged, or
// empty if nobody did. The tick that detects a flag must not decrement
// further (spec §4.D), which Tick enforces by clamping at zero and
// refusing to re-enter once a flag has fired (callers stop ticking a
// Clock after a flag is returned).
func (c *Clock) Tick() (flagged chessgame_vo.Color) {
	if !c.Running {
		return ""
	}

	switch c.ToMove {
	case chessgame_vo.White:
		c.WhiteRemaining -= time.Second
		if c.WhiteRemaining <= 0 {
			c.WhiteRemaining = 0
			c.Running = false
			return chessgame_vo.White
		}
	case chessgame_vo.Black:
		c.BlackRemaining -= time.Second
		if c.BlackRemaining <= 0 {
			c.BlackRemaining = 0
			c.Running = false
			return chessgame_vo.Black
		}
	}

	return ""
}

func (c *Clock) Remaining(color chessgame_vo.Color) time.Duration {
	if color == chessgame_vo.White {
		return c.WhiteRemaining
	}
	return c.BlackRemaining
}
