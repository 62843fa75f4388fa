package chessgame_services

import (
	"context"
	"regexp"
	"strings"
	"sync"

	common "github.com/coffeechess/coordinator/pkg/domain"
	chessgame_in "github.com/coffeechess/coordinator/pkg/domain/chessgame/ports/in"
	chessgame_out "github.com/coffeechess/coordinator/pkg/domain/chessgame/ports/out"
	chessgame_vo "github.com/coffeechess/coordinator/pkg/domain/chessgame/value-objects"
)

var handleFormat = regexp.MustCompile(`^[A-Za-z0-9_]{3,15}$`)

// UsernameRegistry is spec §4.H: a wallet_lower → handle map with
// uniqueness and format rules, persisted via the UsernameStore port on
// every mutation. The Event Gateway calls it directly, not through the
// Coordinator, so the mutex here is what serializes mutations and the
// store writes that follow them.
type UsernameRegistry struct {
	mu    sync.Mutex
	store chessgame_out.UsernameStore
	byWallet map[string]string
	handlesLower map[string]bool
}

func NewUsernameRegistry(store chessgame_out.UsernameStore) (*UsernameRegistry, error) {
	loaded, err := store.Load()
	if err != nil {
		return nil, err
	}

	r := &UsernameRegistry{
		store:        store,
		byWallet:     map[string]string{},
		handlesLower: map[string]bool{},
	}
	for wallet, handle := range loaded {
		r.byWallet[strings.ToLower(wallet)] = handle
		r.handlesLower[strings.ToLower(handle)] = true
	}

	return r, nil
}

func (r *UsernameRegistry) Check(walletLower string) (handle string, registered bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	handle, registered = r.byWallet[walletLower]
	return
}

// Set registers handle for walletLower. Per spec §4.H, a handle is
// immutable once set (AlreadyRegistered), must match the format rule
// (InvalidFormat), and must be globally unique case-insensitively
// (Taken).
func (r *UsernameRegistry) Set(walletLower, handle string) error {
	if !handleFormat.MatchString(handle) {
		return common.NewGameError(common.ReasonInvalidFormat)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byWallet[walletLower]; exists {
		return common.NewGameError(common.ReasonAlreadyRegistered)
	}

	handleLower := strings.ToLower(handle)
	if r.handlesLower[handleLower] {
		return common.NewGameError(common.ReasonTaken)
	}

	r.byWallet[walletLower] = handle
	r.handlesLower[handleLower] = true

	return r.store.Save(r.snapshotLocked())
}

func (r *UsernameRegistry) snapshotLocked() map[string]string {
	out := make(map[string]string, len(r.byWallet))
	for k, v := range r.byWallet {
		out[k] = v
	}
	return out
}

// CheckUsername and SetUsername adapt UsernameRegistry to the
// UsernameCommands inbound port, normalizing the raw wallet string the
// Gateway hands in to the lower-case equality key the registry is keyed
// on.
func (r *UsernameRegistry) CheckUsername(ctx context.Context, walletAddress string) (string, bool, error) {
	wallet, err := chessgame_vo.NewWalletAddress(walletAddress)
	if err != nil {
		return "", false, common.NewErrInvalidInput(err.Error())
	}
	handle, registered := r.Check(wallet.Lower())
	return handle, registered, nil
}

func (r *UsernameRegistry) SetUsername(ctx context.Context, walletAddress, username string) error {
	wallet, err := chessgame_vo.NewWalletAddress(walletAddress)
	if err != nil {
		return common.NewErrInvalidInput(err.Error())
	}
	return r.Set(wallet.Lower(), username)
}

var _ chessgame_in.UsernameCommands = (*UsernameRegistry)(nil)
