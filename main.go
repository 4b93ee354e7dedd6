package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dhcgn/mailbox-grant/config"
	"github.com/dhcgn/mailbox-grant/runner"
	"github.com/dhcgn/mailbox-grant/transcript"
)

// Process exit codes.
const (
	exitOK           = 0
	exitFatal        = 1
	exitPartialFails = 2
)

func main() {
	os.Exit(execute(config.NormalizeArgs(os.Args[1:]), os.Stdout, os.Stderr))
}

func execute(args []string, stdout, stderr io.Writer) int {
	rootCmd := &cobra.Command{
		Use:           "mailbox-grant [-dev|-stage|-prod] -grants.csv",
		Short:         "Send mailbox grants from a CSV file to the mailbox service",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, optsErr := config.LoadOptions(cmd, args)

			logger := setupLogger(opts.LogLevel, stderr)
			slog.SetDefault(logger)

			console, err := transcript.New(opts.LogDir, time.Now(), stdout)
			if err != nil {
				return err
			}
			defer func() {
				if err := console.Flush(); err != nil {
					logger.Error("flush grant log", "path", console.Path(), "err", err)
				}
			}()

			r, err := runner.New(opts, runner.Deps{Console: console, Logger: logger})
			if err != nil {
				return fmt.Errorf("runner.New: %w", err)
			}
			if optsErr != nil {
				r.Reporter().Errorf("%v", optsErr)
				return optsErr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger.Info("starting mailbox-grant", "env", opts.Environment, "grants", opts.GrantFile, "dryRun", opts.DryRun, "log", console.Path())
			return r.Run(ctx)
		},
	}
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	if err := config.RegisterFlags(rootCmd); err != nil {
		fmt.Fprintf(stderr, "failed to register CLI flags: %v\n", err)
		return exitFatal
	}

	err := rootCmd.ExecuteContext(context.Background())
	code := exitCode(err)
	if err != nil && code == exitFatal {
		fmt.Fprintf(stderr, "error: %v\n", err)
	}
	return code
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, runner.ErrDeliveryFailures):
		return exitPartialFails
	default:
		return exitFatal
	}
}

func setupLogger(logLevel string, w io.Writer) *slog.Logger {
	level := new(slog.LevelVar)
	level.Set(slog.LevelInfo)

	switch logLevel {
	case "debug":
		level.Set(slog.LevelDebug)
	case "info":
		level.Set(slog.LevelInfo)
	case "warn":
		level.Set(slog.LevelWarn)
	case "error":
		level.Set(slog.LevelError)
	}

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
