package common

import "time"

// SignerConfig holds the verdict signer's key material. PrivateKeyHex is
// the coordinator's own secp256k1 key (never a player's) used to produce
// the "\x19Ethereum Signed Message:\n32" envelope the escrow contract
// verifies on-chain.
type SignerConfig struct {
	PrivateKeyHex string
}

// EscrowConfig points the Escrow Verifier at the chain holding the stake
// contract. Endpoints is an ordered failover list: the escrow RPC client
// moves to the next endpoint when dialing the current one fails, and
// after a failed getGameInfo call the next attempt starts from the
// following endpoint.
type EscrowConfig struct {
	Endpoints       []string
	ContractAddress string
	ChainID         int64
}

// RoomConfig carries the room timing settings. The Coordinator reads
// DefaultTimeBudget, DefaultIncrement and VerdictMaxVerificationWait;
// ReconnectWindow, DrawOfferExpiry and PostGameGCDelay are loaded from
// the environment but not read, since those windows are fixed constants
// in chessgame_entities.
type RoomConfig struct {
	DefaultTimeBudget          time.Duration
	DefaultIncrement           time.Duration
	ReconnectWindow            time.Duration
	DrawOfferExpiry            time.Duration
	PostGameGCDelay            time.Duration
	VerdictMaxVerificationWait time.Duration
}

// GatewayConfig carries the HTTP-facing knobs for cmd/chess-gateway's
// REST/websocket surface, separate from RoomConfig's gameplay timing.
type GatewayConfig struct {
	// AllowedOrigins is the CORS allowlist for browser clients of the
	// REST surface. The websocket upgrade's origin check accepts every
	// origin and does not consult it.
	AllowedOrigins []string
	// DefaultOrigin is echoed back on Access-Control-Allow-Origin when
	// the request's Origin header is absent or not in AllowedOrigins.
	DefaultOrigin string
}

// Config is a flat struct of named sections, one per ambient or domain
// concern this coordinator actually needs.
type Config struct {
	Signer  SignerConfig
	Escrow  EscrowConfig
	Room    RoomConfig
	Kafka   KafkaConfig
	Gateway GatewayConfig
}

type KafkaConfig struct {
	// Kafka bootstrap brokers to connect to, as a comma separated list (ie: "kafka1:9092,kafka2:9092")
	Brokers string

	// Kafka topic this service publishes room-lifecycle events to (a
	// single topic name; empty means TopicRoomEvents).
	Topics string

	// Kafka consumer group definition, unused by this publish-only client
	// but kept for forward compatibility with a future consumer.
	Group string
}
