package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/coffeechess/coordinator/cmd/chess-gateway/controllers"
	"github.com/coffeechess/coordinator/cmd/chess-gateway/middlewares"
	common "github.com/coffeechess/coordinator/pkg/domain"
	chessgame_in "github.com/coffeechess/coordinator/pkg/domain/chessgame/ports/in"
	ioc "github.com/coffeechess/coordinator/pkg/infra/ioc"
	"github.com/coffeechess/coordinator/pkg/infra/metrics"
	chessws "github.com/coffeechess/coordinator/pkg/infra/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // TODO: restrict to the configured frontend origin once deployed behind a known host
	},
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	builder := ioc.NewContainerBuilder()

	c := builder.
		WithEnvFile().
		WithEscrowAdapters().
		WithVerdictSigner().
		WithUsernameRegistry(usernameFilePath()).
		WithRateLimiter().
		WithEventPublisher().
		WithCoordinator().
		WithGateway().
		Build()

	var gw *chessws.Gateway
	if err := c.Resolve(&gw); err != nil {
		slog.ErrorContext(ctx, "Failed to resolve Gateway", "error", err)
		panic(err)
	}

	var roomQueries chessgame_in.RoomQueries
	if err := c.Resolve(&roomQueries); err != nil {
		slog.ErrorContext(ctx, "Failed to resolve RoomQueries", "error", err)
		panic(err)
	}

	var cfg common.Config
	if err := c.Resolve(&cfg); err != nil {
		slog.ErrorContext(ctx, "Failed to resolve Config", "error", err)
		panic(err)
	}

	go gw.Run(ctx)
	slog.InfoContext(ctx, "Event gateway started")

	router := mux.NewRouter()

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		common.WriteSuccess(w, map[string]string{"status": "healthy", "service": "coffeechess-coordinator"})
	})

	router.Handle("/metrics", metrics.Handler())

	rooms := controllers.NewRoomController(roomQueries)
	router.HandleFunc("/rooms", rooms.ListRooms).Methods(http.MethodGet)
	router.HandleFunc("/rooms/{room_id}", rooms.RoomInfo).Methods(http.MethodGet)

	router.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.ErrorContext(ctx, "failed to upgrade websocket connection", "error", err)
			return
		}
		gw.HandleConnection(conn)
	})

	cors := middlewares.NewCORSMiddleware(cfg.Gateway)
	handler := metrics.Middleware(cors.Handler(router))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		sig := <-shutdownChan
		slog.InfoContext(ctx, "Received shutdown signal", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(ctx, "Server shutdown error", "error", err)
		}

		cancel()
		slog.InfoContext(ctx, "Server shutdown complete")
	}()

	slog.InfoContext(ctx, "Starting coordinator on port "+port)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.ErrorContext(ctx, "Server error", "err", err)
		os.Exit(1)
	}
}

func usernameFilePath() string {
	if path := os.Getenv("USERNAME_STORE_PATH"); path != "" {
		return path
	}
	return "./data/usernames.json"
}
