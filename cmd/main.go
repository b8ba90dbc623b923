package main

import (
	"context"
	goerrors "errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"dchat/auth"
	"dchat/domain"
	apperrors "dchat/errors"
	"dchat/gateway"
	"dchat/httpapi"
	"dchat/internal"
	"dchat/repositories"
	"dchat/reward"
	"dchat/runtime"
	"dchat/runtime/workers"
	"dchat/services"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and
// centralizes error reporting so deferred cleanup (database close,
// worker drain) always executes before the process exits.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Database (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.INFO))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	userRepo, err := repositories.NewUserRepository(db)
	if err != nil {
		return err
	}
	defer userRepo.Close()
	roomRepo, err := repositories.NewRoomRepository(db)
	if err != nil {
		return err
	}
	defer roomRepo.Close()
	messageRepo, err := repositories.NewMessageRepository(db, log, config.LimitMessages)
	if err != nil {
		return err
	}
	defer messageRepo.Close()

	// 3. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Reward collaborator (Redis stream)
	notifier, err := reward.New(ctx, log, config.RedisAddr, config.RedisPassword, config.RedisDB)
	if err != nil {
		return fmt.Errorf("reward notifier: %w", err)
	}
	defer notifier.Close()

	// 5. Coordination core
	registry := runtime.NewRegistry()
	broadcaster := runtime.NewBroadcaster(log, registry)

	rewardQueue := make(chan domain.MessageID, config.RewardQueueSize)
	presence := services.NewPresenceService(log, registry, broadcaster)
	coordinator := services.NewRoomCoordinator(log, userRepo, roomRepo, registry, broadcaster)
	dispatcher := services.NewMessageDispatcher(log, userRepo, roomRepo, messageRepo, broadcaster)
	validation := services.NewValidationService(log, userRepo, messageRepo, broadcaster, notifier, rewardQueue)

	if err := ensureGlobalRoom(ctx, roomRepo, config.GlobalRoomName); err != nil {
		return err
	}

	// 6. Supervised workers
	sup := workers.NewSupervisor(log, config.RestartInterval)
	sup.Add(workers.NewRewardWorker(log, validation, rewardQueue))
	go sup.Run(ctx)
	defer sup.Stop()

	// 7. Transport
	tokens := auth.NewTokenIssuer(config.JWTSecret, config.AuthTokenDuration)
	gw := gateway.NewGateway(log, tokens, presence, coordinator, dispatcher, validation,
		gateway.NewMetrics(), config.ConnectionBufferSize, config.DeliveryTimeout)
	api := httpapi.NewServer(log, userRepo, tokens, validation, dispatcher)

	router := api.Router()
	router.HandleFunc("/ws", gw.HandleWS)

	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	server := &http.Server{Addr: address, Handler: router}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	log.Info(fmt.Sprintf("Listening on %s", address))
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// ensureGlobalRoom creates the well-known singleton room out-of-band
// of any client flow. Its id is 1 on a fresh database; an existing
// database keeps whatever id it already has.
func ensureGlobalRoom(ctx context.Context, rooms *repositories.RoomRepository, name string) error {
	if _, err := rooms.GetRoomByName(ctx, name); err == nil {
		return nil
	}
	_, err := rooms.CreateIfAbsent(ctx, domain.Room{
		ID:   domain.GlobalRoomID,
		Name: name,
		Kind: domain.RoomGlobal,
	})
	if goerrors.Is(err, apperrors.ErrRoomNameTaken) {
		return nil
	}
	return err
}
