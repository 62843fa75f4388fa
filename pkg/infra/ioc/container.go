package ioc

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	container "github.com/golobby/container/v3"

	common "github.com/coffeechess/coordinator/pkg/domain"
	chessgame_entities "github.com/coffeechess/coordinator/pkg/domain/chessgame/entities"
	chessgame_in "github.com/coffeechess/coordinator/pkg/domain/chessgame/ports/in"
	chessgame_out "github.com/coffeechess/coordinator/pkg/domain/chessgame/ports/out"
	chessgame_services "github.com/coffeechess/coordinator/pkg/domain/chessgame/services"
	chessgame_vo "github.com/coffeechess/coordinator/pkg/domain/chessgame/value-objects"

	"github.com/coffeechess/coordinator/pkg/infra/chainrpc"
	"github.com/coffeechess/coordinator/pkg/infra/kafka"
	"github.com/coffeechess/coordinator/pkg/infra/usernamefile"
	chessws "github.com/coffeechess/coordinator/pkg/infra/websocket"
)

// ContainerBuilder wires the process's singletons via golobby/container:
// a staged With*() builder, each stage registering a zero-arg-factory-
// plus-manual-Resolve closure for one chessgame service.
type ContainerBuilder struct {
	Container container.Container
}

func NewContainerBuilder() *ContainerBuilder {
	c := container.New()

	b := &ContainerBuilder{c}

	err := c.Singleton(func() container.Container {
		return b.Container
	})
	if err != nil {
		slog.Error("Failed to register *container.Container in NewContainerBuilder.")
		panic(err)
	}

	err = c.Singleton(func() *ContainerBuilder {
		return b
	})
	if err != nil {
		slog.Error("Failed to register *ContainerBuilder in NewContainerBuilder.")
		panic(err)
	}

	return b
}

func (b *ContainerBuilder) Build() container.Container {
	return b.Container
}

func (b *ContainerBuilder) WithEnvFile() *ContainerBuilder {
	if os.Getenv("DEV_ENV") == "true" {
		if err := godotenv.Load(); err != nil {
			slog.Warn("No .env file loaded", "err", err)
		}
	}

	err := b.Container.Singleton(func() (common.Config, error) {
		return EnvironmentConfig()
	})
	if err != nil {
		slog.Error("Failed to load EnvironmentConfig.")
		panic(err)
	}

	return b
}

// WithEscrowAdapters binds the Escrow Verifier's chain client (spec
// §4.B) to the go-ethereum-backed JSON-RPC adapter.
func (b *ContainerBuilder) WithEscrowAdapters() *ContainerBuilder {
	c := b.Container

	err := c.Singleton(func() (chessgame_out.EscrowClient, error) {
		var cfg common.Config
		if err := c.Resolve(&cfg); err != nil {
			slog.Error("Failed to resolve Config for EscrowClient.", "err", err)
			return nil, err
		}
		return chainrpc.NewEscrowRPCClient(cfg.Escrow.Endpoints, cfg.Escrow.ContractAddress), nil
	})
	if err != nil {
		slog.Error("Failed to register EscrowClient.")
		panic(err)
	}

	err = c.Singleton(func() (*chessgame_services.EscrowVerifier, error) {
		var client chessgame_out.EscrowClient
		if err := c.Resolve(&client); err != nil {
			slog.Error("Failed to resolve EscrowClient for EscrowVerifier.", "err", err)
			return nil, err
		}
		return chessgame_services.NewEscrowVerifier(client), nil
	})
	if err != nil {
		slog.Error("Failed to register EscrowVerifier.")
		panic(err)
	}

	return b
}

// WithVerdictSigner binds the ECDSA signer spec §4.C requires; fails
// fast at startup (not lazily, mid-game) if the configured key is
// malformed, since a coordinator that cannot sign verdicts cannot
// safely accept stakes.
func (b *ContainerBuilder) WithVerdictSigner() *ContainerBuilder {
	c := b.Container

	err := c.Singleton(func() (*chessgame_services.VerdictSigner, error) {
		var cfg common.Config
		if err := c.Resolve(&cfg); err != nil {
			slog.Error("Failed to resolve Config for VerdictSigner.", "err", err)
			return nil, err
		}
		return chessgame_services.NewVerdictSigner(cfg.Signer.PrivateKeyHex, cfg.Escrow.ChainID, cfg.Escrow.ContractAddress)
	})
	if err != nil {
		slog.Error("Failed to register VerdictSigner.")
		panic(err)
	}

	return b
}

// WithUsernameRegistry binds spec §4.H's file-backed handle registry.
func (b *ContainerBuilder) WithUsernameRegistry(path string) *ContainerBuilder {
	c := b.Container

	err := c.Singleton(func() chessgame_out.UsernameStore {
		return usernamefile.NewStore(path)
	})
	if err != nil {
		slog.Error("Failed to register UsernameStore.")
		panic(err)
	}

	err = c.Singleton(func() (*chessgame_services.UsernameRegistry, error) {
		var store chessgame_out.UsernameStore
		if err := c.Resolve(&store); err != nil {
			slog.Error("Failed to resolve UsernameStore for UsernameRegistry.", "err", err)
			return nil, err
		}
		return chessgame_services.NewUsernameRegistry(store)
	})
	if err != nil {
		slog.Error("Failed to register UsernameRegistry.")
		panic(err)
	}

	return b
}

func (b *ContainerBuilder) WithRateLimiter() *ContainerBuilder {
	err := b.Container.Singleton(func() *chessgame_services.RateLimiter {
		return chessgame_services.NewRateLimiter()
	})
	if err != nil {
		slog.Error("Failed to register RateLimiter.")
		panic(err)
	}
	return b
}

// WithEventPublisher binds the best-effort room-lifecycle publisher;
// with no brokers configured it resolves to a nil-client publisher,
// which PublishRoomEvent treats as a no-op.
func (b *ContainerBuilder) WithEventPublisher() *ContainerBuilder {
	c := b.Container

	err := c.Singleton(func() (chessgame_out.EventPublisher, error) {
		var cfg common.Config
		if err := c.Resolve(&cfg); err != nil {
			slog.Error("Failed to resolve Config for EventPublisher.", "err", err)
			return nil, err
		}

		if cfg.Kafka.Brokers == "" {
			return kafka.NewEventPublisher(nil, cfg.Kafka.Topics), nil
		}

		client, err := kafka.NewClient(&kafka.Config{BootstrapServers: cfg.Kafka.Brokers})
		if err != nil {
			slog.Warn("Kafka client unavailable, room events will not be published.", "err", err)
			return kafka.NewEventPublisher(nil, cfg.Kafka.Topics), nil
		}

		return kafka.NewEventPublisher(client, cfg.Kafka.Topics), nil
	})
	if err != nil {
		slog.Error("Failed to register EventPublisher.")
		panic(err)
	}

	return b
}

// WithCoordinator binds spec §4.E's Coordinator, the sole implementation
// of RoomCommands/RoomQueries.
func (b *ContainerBuilder) WithCoordinator() *ContainerBuilder {
	c := b.Container

	err := c.Singleton(func() (*chessgame_services.Coordinator, error) {
		var cfg common.Config
		if err := c.Resolve(&cfg); err != nil {
			slog.Error("Failed to resolve Config for Coordinator.", "err", err)
			return nil, err
		}

		var verifier *chessgame_services.EscrowVerifier
		if err := c.Resolve(&verifier); err != nil {
			slog.Error("Failed to resolve EscrowVerifier for Coordinator.", "err", err)
			return nil, err
		}

		var signer *chessgame_services.VerdictSigner
		if err := c.Resolve(&signer); err != nil {
			slog.Error("Failed to resolve VerdictSigner for Coordinator.", "err", err)
			return nil, err
		}

		var publisher chessgame_out.EventPublisher
		if err := c.Resolve(&publisher); err != nil {
			slog.Error("Failed to resolve EventPublisher for Coordinator.", "err", err)
			return nil, err
		}

		roomCfg := chessgame_services.RoomConfig{
			DefaultTimeBudget:          cfg.Room.DefaultTimeBudget,
			DefaultIncrement:           cfg.Room.DefaultIncrement,
			VerdictMaxVerificationWait: cfg.Room.VerdictMaxVerificationWait,
		}

		return chessgame_services.NewCoordinator(
			func() chessgame_out.ChessEngine { return chessgame_services.NewNotnilChessEngine() },
			verifier, signer, publisher, roomCfg,
		), nil
	})
	if err != nil {
		slog.Error("Failed to register Coordinator.")
		panic(err)
	}

	err = c.Singleton(func() (chessgame_in.RoomCommands, error) {
		var coord *chessgame_services.Coordinator
		if err := c.Resolve(&coord); err != nil {
			return nil, err
		}
		return coord, nil
	})
	if err != nil {
		slog.Error("Failed to register RoomCommands.")
		panic(err)
	}

	err = c.Singleton(func() (chessgame_in.RoomQueries, error) {
		var coord *chessgame_services.Coordinator
		if err := c.Resolve(&coord); err != nil {
			return nil, err
		}
		return coord, nil
	})
	if err != nil {
		slog.Error("Failed to register RoomQueries.")
		panic(err)
	}

	return b
}

// WithGateway binds the websocket Event Gateway and wires its Dispatch
// method back into the Coordinator as its async event sink, closing the
// loop spec §4.G describes between Coordinator-originated events
// (clock ticks, timeouts, verifier denials) and the transport layer.
func (b *ContainerBuilder) WithGateway() *ContainerBuilder {
	c := b.Container

	err := c.Singleton(func() (*chessws.Gateway, error) {
		var commands chessgame_in.RoomCommands
		if err := c.Resolve(&commands); err != nil {
			return nil, err
		}

		var queries chessgame_in.RoomQueries
		if err := c.Resolve(&queries); err != nil {
			return nil, err
		}

		var usernames *chessgame_services.UsernameRegistry
		if err := c.Resolve(&usernames); err != nil {
			return nil, err
		}

		var limiter *chessgame_services.RateLimiter
		if err := c.Resolve(&limiter); err != nil {
			return nil, err
		}

		var coord *chessgame_services.Coordinator
		if err := c.Resolve(&coord); err != nil {
			return nil, err
		}

		gw := chessws.NewGateway(commands, queries, usernames, limiter)
		coord.OnEvent(func(roomID chessgame_vo.RoomID, events []chessgame_entities.OutboundEvent) {
			gw.Dispatch(string(roomID), events)
		})

		return gw, nil
	})
	if err != nil {
		slog.Error("Failed to register Gateway.")
		panic(err)
	}

	return b
}
