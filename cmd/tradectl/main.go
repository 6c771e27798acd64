// Command tradectl operates on paper trading wallets from the shell. It
// reads the same configuration as the server and is meant to be used with
// a persistent STORAGE_DRIVER.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path"

	"github.com/efreitasn/papertrade/internal/app"
	"github.com/efreitasn/papertrade/internal/config"
	"github.com/google/subcommands"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.CommandsCommand(), "")

	commander.Register(&simulateCmd{}, "simulator")
	for _, c := range walletCommands {
		commander.Register(c, "wallets")
	}

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}

// withApp loads the configuration, wires the application and runs fn.
// Logs go to stderr so stdout carries only JSON.
func withApp(ctx context.Context, fn func(*app.App) error) subcommands.ExitStatus {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	level := slog.LevelWarn
	if cfg.LogLevel == "debug" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer a.Close()
	// Trades queue their snapshots; record them before the stores close.
	defer a.Recorder.Flush(ctx)

	if err := fn(a); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
