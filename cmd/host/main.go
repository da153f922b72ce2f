package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"board-lab/domain"
	"board-lab/infrastructure/ws"
	"board-lab/moderation"
	"board-lab/repositories"
	"board-lab/runtime"
	"board-lab/runtime/workers"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and
// centralizes error reporting so deferred cleanups always execute.
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

	// 3. Session assembly
	moderator, err := moderation.New(splitWords(config.ForbiddenWords), config.ModerationCharReplacement)
	if err != nil {
		return fmt.Errorf("moderation setup failed: %w", err)
	}
	repository := repositories.NewBoardRepository(db, log)
	board := domain.NewBoard()
	managerName := config.ManagerName + " (Manager)"
	registry := runtime.NewRegistry(managerName)
	dispatcher := runtime.NewDispatcher(log, registry)
	surface := runtime.NewSurface(board, consoleMeasurer{})
	service := runtime.NewService(log, board, registry, dispatcher, surface, moderator, repository)

	// 4. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 5. Manager console, admission included
	console := NewConsole(log, service, repository, os.Stdin, os.Stdout)
	go console.Run(ctx, stop)

	// 6. Background workers
	sup := workers.NewSupervisor(log)
	sup.Add(workers.NewHealthMonitoringWorker(log, config.HealthInterval, func() int {
		return len(service.Registry().Names())
	}))
	supDone := make(chan struct{})
	go func() {
		sup.Run(ctx)
		close(supDone)
	}()

	// 7. Websocket endpoint
	server, err := ws.NewServer(log, service, console)
	if err != nil {
		return fmt.Errorf("server setup failed: %w", err)
	}
	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	httpServer := &http.Server{Addr: address, Handler: server}

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting session host", "address", address, "manager", managerName)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	// 8. Wait for Stop or Error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	// 9. Final Cleanup: participants first, then the listener and workers
	service.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)
	sup.Stop()
	<-supDone
	log.Info("Session closed cleanly")

	return nil
}

func splitWords(csv string) []string {
	var words []string
	for _, word := range strings.Split(csv, ",") {
		if trimmed := strings.TrimSpace(word); trimmed != "" {
			words = append(words, trimmed)
		}
	}
	return words
}
