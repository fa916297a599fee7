package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/duopair/gameroom-backend/internal/config"
	"github.com/duopair/gameroom-backend/internal/coordinator"
	"github.com/duopair/gameroom-backend/internal/repository"
	"github.com/duopair/gameroom-backend/internal/repository/storage"
	"github.com/duopair/gameroom-backend/transport/rest"
	"github.com/duopair/gameroom-backend/transport/websocket"
)

var ErrUnknownStorage = errors.New("unknown storage type")

// RunApp - runs the application.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Info("Received signal, shutting down", "signal", sig)
		cancel()
	}()

	var roomRepo repository.RoomRepository

	switch conf.Storage.Type {
	case config.StorageRedis:
		redisStorage, err := storage.New(ctx, conf.Storage.Redis.GetRedisAddr())
		if err != nil {
			return fmt.Errorf("could not connect to redis storage: %w", err)
		}

		defer func() {
			if err = redisStorage.Close(); err != nil {
				log.Error("could not close redis storage", "error", err)
			}
		}()

		roomRepo = repository.NewRoomRepository(redisStorage.Connection)
	case config.StorageMemory:
		roomRepo = repository.NewMemoryRoomRepository()
	default:
		return fmt.Errorf("%w: %s", ErrUnknownStorage, conf.Storage.Type)
	}

	wsServer := websocket.New(logger)
	coord := coordinator.New(logger, roomRepo, wsServer, conf.PublicOrigin)
	wsServer.Bind(coord)

	// run HTTP server
	httpErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "port", conf.HTTPPort)
		if httpErr := rest.Start(conf.HTTPPort); httpErr != nil {
			log.Error("HTTP server error", "error", httpErr)
			httpErrCh <- httpErr
		}
	}()

	// run Websocket server
	wsErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting WebSocket server", "port", conf.SocketPort)
		if wsErr := wsServer.Start(ctx, conf.SocketPort); wsErr != nil {
			log.Error("WebSocket server error", "error", wsErr)
			wsErrCh <- wsErr
		}
	}()

	select {
	case err := <-httpErrCh:
		return fmt.Errorf("HTTP server error: %w", err)
	case err := <-wsErrCh:
		return fmt.Errorf("WebSocket server error: %w", err)
	case <-ctx.Done():
		log.Info("Application context canceled, shutting down")
		return nil
	}
}
