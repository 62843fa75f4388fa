package common

import (
	"time"

	"github.com/google/uuid"
)

// BaseEntity is the shared kernel every aggregate in this service embeds,
// trimmed from the multi-tenant visibility model the wider replay-api
// domain carries: a coordinator room has exactly one owner pair (the two
// wallets), so tenant/audience/visibility fields have no referent here.
type BaseEntity struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Entity interface {
	GetID() uuid.UUID
}

func (b BaseEntity) GetID() uuid.UUID {
	return b.ID
}

func NewEntity() BaseEntity {
	now := time.Now()
	return BaseEntity{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}
