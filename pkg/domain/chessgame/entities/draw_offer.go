package chessgame_entities

import "time"

const DrawOfferExpiry = 30 * time.Second

// DrawOffer is the optional pending offer of spec §3. Exactly one of
// accept, decline, expiry, or game end clears it (spec invariant).
type DrawOffer struct {
	OffererWallet string
	ExpiresAt     time.Time
}

func (d *DrawOffer) Pending() bool {
	return d != nil
}
