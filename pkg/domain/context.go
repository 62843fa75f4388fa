package common

// ContextKey namespaces values stored on a context.Context using typed
// string keys rather than bare strings.
type ContextKey string

const (
	// RequestIDKey correlates a gateway message with its log lines.
	RequestIDKey ContextKey = "x-request-id"

	// AuthenticatedKey marks that the caller's wallet has been resolved
	// for this request (gateway-level transport identity, not yet a
	// cryptographic proof — that only applies to reconnect, see
	// pkg/domain/chessgame/services/coordinator.go).
	AuthenticatedKey ContextKey = "authenticated"

	// WalletKey carries the caller's normalized wallet address once the
	// gateway has resolved which session sent a message.
	WalletKey ContextKey = "wallet"
)
