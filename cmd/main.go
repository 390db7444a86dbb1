package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	"github.com/david-camba/kafky-event-driven-chat/domain"
	"github.com/david-camba/kafky-event-driven-chat/gateway"
	"github.com/david-camba/kafky-event-driven-chat/infrastructure/ws"
	"github.com/david-camba/kafky-event-driven-chat/internal"
	"github.com/david-camba/kafky-event-driven-chat/moderation"
	"github.com/david-camba/kafky-event-driven-chat/projection"
	"github.com/david-camba/kafky-event-driven-chat/repositories"
	"github.com/david-camba/kafky-event-driven-chat/runtime"
	"github.com/david-camba/kafky-event-driven-chat/runtime/workers"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and
// centralizes error reporting so every defer executes before exit.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := internal.GetLoggerFromString(config.LogLevel)

	// 2. Database (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Repositories
	eventLog, err := repositories.NewEventLogRepository(db, log)
	if err != nil {
		return fmt.Errorf("event log init failed: %w", err)
	}
	messageRepository := repositories.NewMessageRepository(db, log, config.LimitMessages)
	authRepository := repositories.NewAuthRepository(db, log)
	if err = seedRooms(authRepository, config.RoomsSeed); err != nil {
		return fmt.Errorf("seeding rooms: %w", err)
	}

	// 4. Moderation
	censored, err := moderation.LoadCensoredWords()
	if err != nil {
		return fmt.Errorf("loading censored words: %w", err)
	}
	log.Info(fmt.Sprintf("%d censored files loaded [%s]",
		len(censored.Languages), strings.Join(censored.Languages, ",")))
	replacement, err := internal.CharacterRune(config.CharReplacement)
	if err != nil {
		return err
	}
	moderator, err := moderation.NewModerator(censored.Words, replacement)
	if err != nil {
		return fmt.Errorf("building moderator: %w", err)
	}

	// 5. Bus and its subscribers, in dependency order
	bus := runtime.NewBus(log, eventLog)
	projector := projection.NewProjector(log, eventLog, messageRepository, bus, moderator)
	projector.RegisterHandlers(bus)
	dispatcher := runtime.NewDispatcher(log, bus, messageRepository)
	dispatcher.RegisterHandlers(bus)
	gw := gateway.NewGateway(log, bus, authRepository)

	// 6. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 7. Background workers
	sup := workers.NewSupervisor(log, config.RestartInterval)
	sup.Add(workers.NewBadgerGCWorker(db, log, config.GCInterval))
	go sup.Run(ctx)

	// 8. Websocket endpoint
	wsServer := ws.NewServer(log, gw)
	router := chi.NewRouter()
	router.Get("/ws", wsServer.Handle)

	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	server := &http.Server{Addr: address, Handler: router}

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting websocket server", "address", address, "at", time.Now().UTC())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 9. Wait for Stop or Error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	// 10. Final Cleanup
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
	sup.Stop()
	log.Info("Program stopped cleanly")

	return nil
}

// seedRooms parses "room:user1,user2;room:user1,user2" into
// authorization records.
func seedRooms(repo repositories.AuthRepository, seed string) error {
	if seed == "" {
		return nil
	}
	for _, part := range strings.Split(seed, ";") {
		roomPart, usersPart, ok := strings.Cut(strings.TrimSpace(part), ":")
		if !ok {
			return fmt.Errorf("malformed room seed %q", part)
		}
		roomID, err := strconv.Atoi(roomPart)
		if err != nil {
			return fmt.Errorf("malformed room id %q: %w", roomPart, err)
		}
		users := strings.Split(usersPart, ",")
		if len(users) != 2 {
			return fmt.Errorf("room %d needs exactly two participants", roomID)
		}
		record := domain.RoomRecord{
			ID:           domain.RoomID(roomID),
			Participants: [2]string{strings.TrimSpace(users[0]), strings.TrimSpace(users[1])},
		}
		if err = repo.SaveRoom(record); err != nil {
			return err
		}
	}
	return nil
}
