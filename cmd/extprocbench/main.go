// Command extprocbench drives an open-loop load test against an Envoy
// external-processing gRPC service, sweeping a range of target stream
// rates and persisting each stage's latency distribution.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"extprocbench/internal/apperr"
	"extprocbench/internal/config"
	"extprocbench/internal/orchestrator"
	"extprocbench/internal/plan"
	"extprocbench/internal/reporter"
	"extprocbench/internal/transport"
)

var rootCmd = &cobra.Command{
	Use:   "extprocbench",
	Short: "open-loop load generator for Envoy ext_proc services",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context())
	},
}

func init() {
	cobra.OnInitialize(config.InitViper)
	config.RegisterFlags(rootCmd)
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		fmt.Println(reporter.Banner())
		cmd.Usage()
	})
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetContext(ctx)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(apperr.ExitCode(err))
	}
}

func run(ctx context.Context) error {
	opts, err := config.Resolve()
	if err != nil {
		return err
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{Level: logLevel(opts.LogLevel)})
	fmt.Println(reporter.Banner())

	stages, err := plan.Build(opts.Plan)
	if err != nil {
		return err
	}

	conn, err := transport.Dial(ctx, opts.Target, opts.ConnectTimeout)
	if err != nil {
		return err
	}
	defer conn.Close()

	logger.Info("sweep starting", "target", opts.Target, "stages", len(stages), "pacing", opts.Pacing)

	runErr := orchestrator.Run(ctx, logger, conn, orchestrator.Options{
		Stages:       stages,
		ResultDir:    opts.ResultDir,
		PacingKind:   opts.Pacing,
		OnStageError: opts.OnStageError,
		GraceCap:     maxGraceCap,
	})
	return runErr
}

const maxGraceCap = 5 * time.Second

func logLevel(name string) log.Level {
	switch name {
	case "debug":
		return log.DebugLevel
	case "warn":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}
