package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"board-lab/client"
)

// Exit codes for the participant application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Participant error: %v\n", err)
	}
	os.Exit(code)
}

// run manages the session lifecycle: configuration, the join handshake
// (which blocks until the manager decides), the interactive console, and
// the teardown on eviction, shutdown or Ctrl+C.
func run() (int, error) {
	// 1. Load configuration from environment variables.
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Setup context to handle termination signals (Ctrl+C).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Join the session. This blocks on the manager's approval.
	color.Info.Println("Joining", config.ServerURL, "as", config.Name, "(waiting for approval)...")
	proxy, err := client.Dial(ctx, log, config.ServerURL, config.Name)
	if err != nil {
		return exitRuntime, fmt.Errorf("could not join session at %s: %w", config.ServerURL, err)
	}
	defer proxy.Close()
	color.Green.Println("Joined! Manager is", proxy.Manager())

	// 4. Interactive console until the session ends one way or another.
	console := NewConsole(proxy, os.Stdin)
	consoleDone := make(chan struct{})
	go func() {
		console.Run(ctx)
		close(consoleDone)
	}()

	select {
	case <-ctx.Done():
		quitCtx := context.Background()
		if err := proxy.Quit(quitCtx); err != nil {
			log.Warn("Goodbye failed", "err", err)
		}
		return exitOK, nil
	case event := <-proxy.Events():
		switch event.Kind {
		case client.EventEvicted:
			color.Red.Println("You have been removed from the session by the manager.")
			return exitOK, nil
		case client.EventShutdown:
			color.Yellow.Println("The session has been closed by the host.")
			return exitOK, nil
		case client.EventQuit:
			return exitOK, nil
		default:
			return exitRuntime, fmt.Errorf("connection lost: %w", event.Err)
		}
	case <-consoleDone:
		// The user typed quit; the console already said goodbye.
		return exitOK, nil
	}
}
