package main

import (
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/MarkusIfquil/hematite/internal/bar"
	"github.com/MarkusIfquil/hematite/internal/config"
	"github.com/MarkusIfquil/hematite/internal/keys"
	"github.com/MarkusIfquil/hematite/internal/manager"
	"github.com/MarkusIfquil/hematite/internal/state"
	"github.com/MarkusIfquil/hematite/internal/x11"
)

const version = "0.1.0"

func main() {
	// No arguments starts the manager so the binary can sit directly
	// in an xinitrc.
	if len(os.Args) < 2 {
		runManager()
		return
	}

	switch os.Args[1] {
	case "run":
		if len(os.Args) > 2 {
			fmt.Fprintln(os.Stderr, "run takes no arguments")
			fmt.Fprintln(os.Stderr, "")
			fmt.Fprintln(os.Stderr, "Usage: hematite run")
			os.Exit(2)
		}
		runManager()
	case "config":
		os.Exit(runConfig(os.Args[2:]))
	case "version":
		fmt.Println("hematite " + version)
	case "help", "-h", "--help":
		printMainUsage(os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printMainUsage(os.Stderr)
		os.Exit(2)
	}
}

func printMainUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: hematite [command]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  run                 Start the window manager (default)")
	fmt.Fprintln(w, "  config validate     Check the config file for errors")
	fmt.Fprintln(w, "  config print        Print the effective configuration")
	fmt.Fprintln(w, "  version             Print the version")
	fmt.Fprintln(w, "  help                Show this help")
}

func runConfig(args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: hematite config <validate|print>")
		return 2
	}
	switch args[0] {
	case "validate":
		path, err := config.DefaultConfigPath()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		if _, err := config.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Invalid config at %s: %v\n", path, err)
			return 1
		}
		fmt.Printf("Config at %s is valid\n", path)
		return 0
	case "print":
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		out, err := yaml.Marshal(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		os.Stdout.Write(out)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown config command: %s\n", args[0])
		return 2
	}
}

func logLevel() slog.Level {
	switch os.Getenv("HEMATITE_LOG") {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func runManager() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(),
	}))

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	conn, err := x11.New(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to connect to X server: %v", err)
	}
	defer conn.Close()

	if err := conn.BecomeWM(); err != nil {
		log.Fatalf("%v", err)
	}
	if err := conn.SetupRoot(); err != nil {
		log.Fatalf("Failed to set up root window properties: %v", err)
	}
	if err := conn.SetCursor(); err != nil {
		logger.Warn("could not set root cursor", "error", err)
	}

	keyHandler, err := keys.New(conn.XU, cfg.Hotkeys)
	if err != nil {
		log.Fatalf("Failed to compile hotkeys: %v", err)
	}
	if err := keyHandler.Grab(conn.XU, conn.Root); err != nil {
		log.Fatalf("Failed to grab hotkeys: %v", err)
	}

	painter, err := bar.New(conn, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to create status bar: %v", err)
	}

	width, height := conn.Geometry()
	st := state.NewHandler(state.Tiling{
		Gap:       cfg.Sizing.Gap,
		Ratio:     cfg.Sizing.Ratio,
		MaxWidth:  width,
		MaxHeight: height,
		BarHeight: painter.Window.Height,
	})

	if err := painter.Repaint(st); err != nil {
		logger.Error("initial bar paint failed", "error", err)
	}
	conn.Sync()

	mgr := manager.New(conn, st, keyHandler, painter, logger)

	// Wake the loop once a second so the bar picks up status text
	// changes even when no events arrive.
	ticks := make(chan struct{}, 1)
	go func() {
		for {
			select {
			case ticks <- struct{}{}:
			default:
			}
			time.Sleep(time.Second)
		}
	}()

	// Closing the connection on a signal unblocks WaitForEvent and
	// ends the loop.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("shutting down", "signal", sig)
		conn.Close()
	}()

	logger.Info("hematite started", "version", version, "screen", fmt.Sprintf("%dx%d", width, height))

	for {
		select {
		case <-ticks:
			if err := painter.Repaint(mgr.State); err != nil {
				logger.Error("repainting bar", "error", err)
			}
		default:
		}

		ev, xerr := conn.WaitForEvent()
		if ev == nil && xerr == nil {
			logger.Info("X connection closed")
			return
		}

		for ev != nil || xerr != nil {
			if xerr != nil {
				logger.Error("x11 error", "error", xerr)
			}
			if ev != nil {
				mgr.HandleEvent(ev)
			}
			ev, xerr = conn.PollForEvent()
		}
	}
}
