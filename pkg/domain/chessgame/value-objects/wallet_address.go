package chessgame_vo

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// WalletAddress is the 20-byte account identifier spec §3 names as the
// Room's player identity. It wraps go-ethereum's real common.Address,
// with real EIP-55 checksumming, so the signer and the equality key
// always agree with what the escrow contract recovers.
type WalletAddress struct {
	addr common.Address
}

var hexAddressRegex = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

func NewWalletAddress(raw string) (WalletAddress, error) {
	raw = strings.TrimSpace(raw)
	if !hexAddressRegex.MatchString(raw) {
		return WalletAddress{}, fmt.Errorf("invalid wallet address format: %s (expected 0x + 40 hex characters)", raw)
	}
	return WalletAddress{addr: common.HexToAddress(raw)}, nil
}

// Lower is the equality key used for session bindings and room
// membership checks (spec §3: "normalized to lower-case for equality
// keys").
func (w WalletAddress) Lower() string {
	return strings.ToLower(w.addr.Hex())
}

// Checksum is the EIP-55 checksummed form used when the address is
// embedded into a signed payload (spec §3: "to checksum form for
// signing").
func (w WalletAddress) Checksum() string {
	return w.addr.Hex()
}

func (w WalletAddress) Common() common.Address {
	return w.addr
}

func (w WalletAddress) IsZero() bool {
	return w.addr == common.Address{}
}

func (w WalletAddress) Equals(other WalletAddress) bool {
	return w.addr == other.addr
}

func (w WalletAddress) String() string {
	return w.Checksum()
}

func (w WalletAddress) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf(`"%s"`, w.Checksum())), nil
}

func (w *WalletAddress) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	parsed, err := NewWalletAddress(raw)
	if err != nil {
		return err
	}
	*w = parsed
	return nil
}
