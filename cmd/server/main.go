package main

import (
	"context"
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

	"roomcast/moderation"
	"roomcast/repositories"
	"roomcast/runtime"
	"roomcast/runtime/workers"
	"roomcast/transport/ws"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and
// centralizes error reporting so deferred cleanup always executes before
// the process exits.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

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

	// 3. Moderation
	var masker runtime.Masker
	if config.EnableModeration {
		mask, err := maskRune(config.ModerationMask)
		if err != nil {
			return err
		}
		dictionary, err := moderation.LoadDictionary(log)
		if err != nil {
			return fmt.Errorf("dictionary loading failed: %w", err)
		}
		moderator, err := moderation.NewModerator(dictionary.Words, mask)
		if err != nil {
			return fmt.Errorf("moderator build failed: %w", err)
		}
		masker = moderator
	}

	// 4. Core wiring
	registry := runtime.NewRegistry()
	broadcaster := runtime.NewBroadcaster(log, registry)
	presence := runtime.NewPresence(log, registry, broadcaster)
	store := repositories.NewMessageRepository(db, log)

	sessionCfg := runtime.SessionConfig{
		JoinTimeout:  config.JoinTimeout,
		SendTimeout:  config.SendTimeout,
		QueueSize:    config.ConnectionBufferSize,
		HistoryLimit: config.HistoryLimit,
	}

	// 5. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 6. Background workers
	sup := workers.NewSupervisor(log, config.RestartInterval)
	sup.Add(workers.NewTelemetryWorker(log, config.MetricInterval, registry))
	supDone := make(chan struct{})
	go func() {
		sup.Run(ctx)
		close(supDone)
	}()

	// 7. HTTP server with the websocket endpoint
	mux := http.NewServeMux()
	mux.Handle("/ws", ws.NewHandler(log, registry, broadcaster, presence, store, masker, sessionCfg))

	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	server := &http.Server{Addr: address, Handler: mux}

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting websocket server", "address", address, "at", time.Now().UTC())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 8. Wait for Stop or Error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	// 9. Final Cleanup
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
	sup.Stop()
	<-supDone
	log.Info("Program stopped cleanly")

	return nil
}

func maskRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf("MODERATION_MASK must be a single character, got %q", str)
	}
	return r[0], nil
}
