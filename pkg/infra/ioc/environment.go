package ioc

import (
	"os"
	"strconv"
	"strings"
	"time"

	common "github.com/coffeechess/coordinator/pkg/domain"
)

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return d
}

func getInt64Env(key string, fallback int64) int64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fallback
	}
	return v
}

func EnvironmentConfig() (common.Config, error) {
	config := common.Config{
		Signer: common.SignerConfig{
			PrivateKeyHex: os.Getenv("VERDICT_SIGNER_PRIVATE_KEY"),
		},
		Escrow: common.EscrowConfig{
			Endpoints:       splitCSVEnv("ESCROW_RPC_ENDPOINTS"),
			ContractAddress: os.Getenv("ESCROW_CONTRACT_ADDRESS"),
			ChainID:         getInt64Env("ESCROW_CHAIN_ID", 1),
		},
		Room: common.RoomConfig{
			DefaultTimeBudget:          getDurationEnv("ROOM_DEFAULT_TIME_BUDGET", 10*time.Minute),
			DefaultIncrement:           getDurationEnv("ROOM_DEFAULT_INCREMENT", 0),
			ReconnectWindow:            getDurationEnv("ROOM_RECONNECT_WINDOW", 60*time.Second),
			DrawOfferExpiry:            getDurationEnv("ROOM_DRAW_OFFER_EXPIRY", 30*time.Second),
			PostGameGCDelay:            getDurationEnv("ROOM_POST_GAME_GC_DELAY", 30*time.Second),
			VerdictMaxVerificationWait: getDurationEnv("VERDICT_MAX_VERIFICATION_WAIT", 45*time.Second),
		},
		Kafka: common.KafkaConfig{
			Brokers: os.Getenv("KAFKA_BOOTSTRAP_SERVERS"),
			Topics:  os.Getenv("KAFKA_ROOM_EVENTS_TOPIC"),
			Group:   os.Getenv("KAFKA_GROUP"),
		},
		Gateway: common.GatewayConfig{
			AllowedOrigins: splitCSVEnv("GATEWAY_CORS_ALLOWED_ORIGINS"),
			DefaultOrigin:  getStringEnv("GATEWAY_CORS_DEFAULT_ORIGIN", "http://localhost:5173"),
		},
	}

	return config, nil
}

func getStringEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitCSVEnv(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	var out []string
	for _, v := range strings.Split(raw, ",") {
		v = strings.TrimSpace(v)
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
