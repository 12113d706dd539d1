package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joebot/worldreset/internal/cli"
	"github.com/joebot/worldreset/internal/config"
	"github.com/joebot/worldreset/internal/engine"
	"github.com/joebot/worldreset/internal/logging"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(0)
	}

	switch os.Args[1] {
	case "serve":
		cmdServe(hasFlag("--headless"))
	case "status":
		cli.RunStatus(mustRuntime())
	case "history":
		cmdHistory()
	case "init":
		if err := cli.RunInit(mustRuntime()); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
			os.Exit(1)
		}
	case "version", "--version", "-v":
		fmt.Println(cli.TitleStyle.Render(
			fmt.Sprintf("  %s worldreset v%s", cli.Logo, cli.Version),
		))
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	dim := cli.DimStyle.Render
	fmt.Println()
	fmt.Println(cli.TitleStyle.Render(fmt.Sprintf("  %s worldreset", cli.Logo)) + dim(" · scheduled world region resets"))
	fmt.Println()
	fmt.Println("  " + cli.BoldStyle.Render("Usage"))
	fmt.Println()
	fmt.Printf("    worldreset %-18s %s\n", "serve", dim("Run the scheduler with the interactive console"))
	fmt.Printf("    worldreset %-18s %s\n", "serve --headless", dim("Run the scheduler without a TUI"))
	fmt.Printf("    worldreset %-18s %s\n", "status", dim("Show settings and scheduled resets"))
	fmt.Printf("    worldreset %-18s %s\n", "history [n]", dim("Show the last n resets (default 20)"))
	fmt.Printf("    worldreset %-18s %s\n", "init", dim("Create the data directory and config"))
	fmt.Printf("    worldreset %-18s %s\n", "version", dim("Show version"))
	fmt.Println()
	fmt.Println("  " + cli.BoldStyle.Render("Environment"))
	fmt.Println()
	fmt.Printf("    %-28s %s\n", "WORLDRESET_DATA", dim("data directory (plugins/WorldReset)"))
	fmt.Printf("    %-28s %s\n", "WORLDRESET_WORLDS", dim("directory holding the worlds (.)"))
	fmt.Printf("    %-28s %s\n", "WORLDRESET_LOG_LEVEL", dim("debug, info, warn or error"))
	fmt.Printf("    %-28s %s\n", "WORLDRESET_DISCORD_TOKEN", dim("enables the Discord channel"))
	fmt.Printf("    %-28s %s\n", "WORLDRESET_DISCORD_CHANNEL", dim("channel receiving broadcasts"))
	fmt.Printf("    %-28s %s\n", "WORLDRESET_DISCORD_ALLOW", dim("comma separated user IDs allowed to run commands"))
	fmt.Printf("    %-28s %s\n", "WORLDRESET_FEED_ADDR", dim("host:port of the websocket broadcast feed"))
	fmt.Println()
}

// --- serve command ---

func cmdServe(headless bool) {
	rt := mustRuntime()
	level, _ := logging.ParseLevel(rt.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts := engine.Options{Runtime: rt, Version: cli.Version}
	var out *cli.ConsoleWriter
	if headless {
		slog.SetDefault(slog.New(logging.NewHandler(os.Stderr, &logging.Options{Level: level, Color: true})))
		opts.Console = os.Stdout
		opts.ConsoleColor = true
	} else {
		redirectLogs(rt, level)
		out = cli.NewConsoleWriter()
		opts.Console = out
		opts.ConsoleColor = true
	}

	e := engine.New(opts)
	if err := e.Start(ctx); err != nil {
		fmt.Fprintln(os.Stderr, cli.ErrStyle.Render("  Error: "+err.Error()))
		os.Exit(1)
	}
	go reloadOnHangup(ctx, e)

	if headless {
		fmt.Println()
		fmt.Println(cli.TitleStyle.Render(fmt.Sprintf("  %s WorldReset v%s", cli.Logo, cli.Version)))
		fmt.Println(cli.DimStyle.Render("  Press Ctrl+C to stop"))
		fmt.Println()
		<-ctx.Done()
	} else {
		err := cli.RunConsole(ctx, e, out, cli.ConsoleConfig{Root: "worldreset", WorldDir: rt.WorldDir}, os.Stdout)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
	}

	fmt.Println("\n  Shutting down...")
	e.Shutdown()
}

// reloadOnHangup re-reads config.yml on SIGHUP.
func reloadOnHangup(ctx context.Context, e *engine.Engine) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			if err := e.Reload(); err != nil {
				slog.Error("Config: reload on SIGHUP failed", "err", err)
				continue
			}
			slog.Info("Config: reloaded on SIGHUP")
		}
	}
}

// --- history command ---

func cmdHistory() {
	n := 20
	if len(os.Args) > 2 {
		v, err := strconv.Atoi(os.Args[2])
		if err != nil || v <= 0 {
			fmt.Fprintf(os.Stderr, "Invalid count: %s\n", os.Args[2])
			os.Exit(1)
		}
		n = v
	}
	if err := cli.RunHistory(mustRuntime(), n); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

// --- helpers ---

// redirectLogs keeps log output away from the TUI.
func redirectLogs(rt *config.Runtime, level slog.Level) {
	os.MkdirAll(rt.DataDir, 0o755)
	f, err := os.OpenFile(rt.LogPath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		slog.SetDefault(slog.New(logging.NewHandler(io.Discard, nil)))
		return
	}
	slog.SetDefault(slog.New(logging.NewHandler(f, &logging.Options{Level: level})))
}

func mustRuntime() *config.Runtime {
	rt := config.RuntimeFromEnv()
	if err := rt.Validate(); err != nil {
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, cli.ErrStyle.Render("  Error: "+err.Error()))
		fmt.Fprintln(os.Stderr)
		os.Exit(1)
	}
	return rt
}

func hasFlag(name string) bool {
	for _, arg := range os.Args[2:] {
		if arg == name {
			return true
		}
	}
	return false
}
