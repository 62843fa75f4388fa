package common

import (
	"context"
	"fmt"
)

// errorContextKey is used to store an error on a request context via the
// SetError/GetError pair below. No middleware in this service reads it.
type errorContextKey struct{}

func SetError(ctx context.Context, err error) context.Context {
	return context.WithValue(ctx, errorContextKey{}, err)
}

func GetError(ctx context.Context) error {
	if err, ok := ctx.Value(errorContextKey{}).(error); ok {
		return err
	}
	return nil
}

// Reason is a stable, switchable textual reason code surfaced to clients,
// per spec §7's error taxonomy.
type Reason string

const (
	// Admission
	ReasonRoomNotFound            Reason = "RoomNotFound"
	ReasonRoomFull                Reason = "RoomFull"
	ReasonAlreadyStarted          Reason = "AlreadyStarted"
	ReasonAlreadyInGame           Reason = "AlreadyInGame"
	ReasonSelfPlay                Reason = "SelfPlay"
	ReasonStakeVerificationFailed Reason = "StakeVerificationFailed"

	// Move
	ReasonNotParticipant    Reason = "NotParticipant"
	ReasonNotYourTurn       Reason = "NotYourTurn"
	ReasonIllegalMove       Reason = "IllegalMove"
	ReasonInvalidMoveFormat Reason = "InvalidMoveFormat"
	ReasonGameOver          Reason = "GameOver"

	// Reconnect
	ReasonNoActiveSession    Reason = "NoActiveSession"
	ReasonRoomNoLongerExists Reason = "RoomNoLongerExists"
	ReasonSignatureMismatch  Reason = "SignatureMismatch"
	ReasonInvalidSignature   Reason = "InvalidSignature"

	// Rate
	ReasonTooManyRequests Reason = "TooManyRequests"

	// Username
	ReasonAlreadyRegistered Reason = "AlreadyRegistered"
	ReasonInvalidFormat     Reason = "InvalidFormat"
	ReasonTaken             Reason = "Taken"
)

// GameError is the error type chessgame usecases return; its Reason is
// exactly what the gateway places into a request's ack/error event.
type GameError struct {
	Reason  Reason
	message string
}

func (e *GameError) Error() string {
	if e.message != "" {
		return e.message
	}
	return string(e.Reason)
}

func NewGameError(reason Reason, detail ...string) *GameError {
	msg := ""
	if len(detail) > 0 {
		msg = detail[0]
	}
	return &GameError{Reason: reason, message: msg}
}

// IsReason reports whether err is a *GameError carrying the given reason.
func IsReason(err error, reason Reason) bool {
	ge, ok := err.(*GameError)
	return ok && ge.Reason == reason
}

// Generic error kinds kept for the REST surface (health, list rooms, room
// info) where no chess-specific reason applies.
type ErrNotFound struct{ message string }

func (e *ErrNotFound) Error() string { return e.message }

func NewErrNotFound(resourceType, field string, value interface{}) error {
	return &ErrNotFound{message: fmt.Sprintf("%s with %s %v not found", resourceType, field, value)}
}

type ErrInvalidInput struct{ message string }

func (e *ErrInvalidInput) Error() string { return e.message }

func NewErrInvalidInput(message string) error {
	return &ErrInvalidInput{message: message}
}

func IsNotFoundError(err error) bool {
	_, ok := err.(*ErrNotFound)
	return ok
}

func IsInvalidInputError(err error) bool {
	_, ok := err.(*ErrInvalidInput)
	return ok
}
