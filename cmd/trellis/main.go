package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/tinytelemetry/trellis/internal/component"
	"github.com/tinytelemetry/trellis/internal/httpserver"
	"github.com/tinytelemetry/trellis/internal/runtime"
	"github.com/tinytelemetry/trellis/internal/trace"
	"github.com/tinytelemetry/trellis/internal/tui"
	"golang.org/x/sync/errgroup"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
	goVersion = "unknown"
)

const catalogLatency = 300 * time.Millisecond

func main() {
	var configPath string
	var initialURL string
	var debug bool
	var showVersion bool

	flag.StringVar(&configPath, "config", "", "config file (default is $HOME/.config/trellis/config.yml)")
	flag.StringVar(&initialURL, "url", "", "URL to open at start")
	flag.BoolVar(&debug, "debug", false, "log every message and state snapshot")
	flag.BoolVar(&showVersion, "version", false, "print version information")
	flag.Parse()

	if showVersion {
		fmt.Printf("Trellis - Terminal App Runtime\n")
		fmt.Printf("  Version:    %s\n", version)
		fmt.Printf("  Commit:     %s\n", commit)
		fmt.Printf("  Built:      %s\n", buildTime)
		fmt.Printf("  Go version: %s\n", goVersion)
		return
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if initialURL != "" {
		cfg.InitialURL = initialURL
	}
	if debug {
		cfg.Debug = true
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg appConfig) error {
	cleanupLogger := configureRuntimeLogger()
	defer cleanupLogger()

	component.SetDevelopment(cfg.Development)

	recorder, err := trace.Open(cfg.TracePath, cfg.TraceBuffer)
	if err != nil {
		return fmt.Errorf("failed to open trace: %w", err)
	}
	defer recorder.Close()

	shell, err := newShell(NewCatalog(catalogLatency), cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	bridge := tui.NewBridge()
	defer bridge.Close()

	proc, err := runtime.Start[Route, tui.Screen](ctx, shell, runtime.Render(shell.View, bridge.Mount), runtime.Options{
		InitialURL:     cfg.InitialURL,
		MsgSubscribers: []runtime.MsgSubscriber{recorder.RecordMsg},
		Debug:          cfg.Debug,
		Logger:         log.Default(),
	})
	if err != nil {
		return fmt.Errorf("failed to start app: %w", err)
	}
	defer proc.Stop()

	if cfg.TracePath != "" {
		proc.SubscribeState(recorder.RecordState)
	}

	if cfg.APIEnabled {
		api := httpserver.NewServer(cfg.APIAddr, proc, recorder)
		if err := api.Start(); err != nil {
			return fmt.Errorf("failed to start HTTP API: %w", err)
		}
		defer api.Stop()
		log.Printf("trellis: HTTP API listening on %s", cfg.APIAddr)
	}

	program := tea.NewProgram(tui.NewModel(bridge, proc, recorder), tea.WithAltScreen())

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer cancel()
		if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			if strings.Contains(err.Error(), "TTY") || strings.Contains(err.Error(), "/dev/tty") {
				return fmt.Errorf("TUI requires a real terminal")
			}
			return fmt.Errorf("error running TUI: %w", err)
		}
		return nil
	})

	// Signals and a failing program both end here.
	g.Go(func() error {
		<-gctx.Done()
		program.Quit()
		return nil
	})

	return g.Wait()
}
