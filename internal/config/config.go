// Package config loads run options from flags, a config file, and
// EXTPROCBENCH_* environment variables, merged with Viper via
// cobra.OnInitialize(InitViper) layered over viper.AutomaticEnv.
package config

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"extprocbench/internal/apperr"
	"extprocbench/internal/orchestrator"
	"extprocbench/internal/plan"
)

// Options is the fully resolved, validated set of run options the
// orchestrator and transport dialer consume.
type Options struct {
	Target         string
	Plan           plan.Config
	ResultDir      string
	ConnectTimeout time.Duration
	Pacing         string
	OnStageError   orchestrator.OnStageError
	LogLevel       string
}

var cfgFile string

// RegisterFlags attaches every option of the external interface to cmd and
// binds each to Viper so flag > env > config-file precedence holds.
func RegisterFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.extprocbench.yaml)")

	flags := cmd.Flags()
	flags.String("target", "", "ext_proc target URI (grpc://, https://, or unix://)")
	flags.Float64("start-throughput", 1, "first-stage rate, in streams/sec")
	flags.Float64("end-throughput", 1, "plan upper-bound rate, in streams/sec")
	flags.Float64("throughput-step", 0, "additive rate increment between stages; 0 selects multiplicative")
	flags.Float64("throughput-multiplier", 1, "geometric rate factor between stages; used only when step is 0")
	flags.Duration("test-duration", 10*time.Second, "how long each stage runs")
	flags.String("result-dir", ".", "directory to write per-stage artifacts into")
	flags.Duration("connect-timeout", 10*time.Second, "time to wait for the channel to become ready")
	flags.String("pacing", "poisson", "pacing discipline: deterministic or poisson")
	flags.String("on-stage-error", "abort", "what to do when a stage fails: abort or continue")
	flags.String("log-level", "info", "log level: debug, info, warn, error")

	for _, name := range []string{
		"target", "start-throughput", "end-throughput", "throughput-step", "throughput-multiplier",
		"test-duration", "result-dir", "connect-timeout", "pacing",
		"on-stage-error", "log-level",
	} {
		_ = viper.BindPFlag(name, flags.Lookup(name))
	}
}

// InitViper wires the three-way merge: an explicit --config file, or
// $HOME/.extprocbench.yaml if absent, then EXTPROCBENCH_* environment
// variables layered on top. Intended for cobra.OnInitialize.
func InitViper() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".extprocbench")
	}
	viper.SetEnvPrefix("EXTPROCBENCH")
	viper.AutomaticEnv()
	_ = viper.ReadInConfig()
}

// Resolve reads the merged Viper state into Options and checks it,
// returning apperr.ErrInvalidPlan (exit code 2) for an empty target, an
// unknown pacing discipline or an unknown on-stage-error value, before any
// network connection is attempted. The rate range itself is checked by
// plan.Build, not here.
func Resolve() (Options, error) {
	opts := Options{
		Target: viper.GetString("target"),
		Plan: plan.Config{
			Start:        viper.GetFloat64("start-throughput"),
			End:          viper.GetFloat64("end-throughput"),
			Step:         viper.GetFloat64("throughput-step"),
			Multiplier:   viper.GetFloat64("throughput-multiplier"),
			StepDuration: viper.GetDuration("test-duration"),
		},
		ResultDir:      viper.GetString("result-dir"),
		ConnectTimeout: viper.GetDuration("connect-timeout"),
		Pacing:         viper.GetString("pacing"),
		LogLevel:       viper.GetString("log-level"),
	}

	switch viper.GetString("on-stage-error") {
	case "continue":
		opts.OnStageError = orchestrator.Continue
	case "abort", "":
		opts.OnStageError = orchestrator.Abort
	default:
		return Options{}, apperr.ErrInvalidPlan
	}

	if opts.Target == "" {
		return Options{}, apperr.ErrInvalidPlan
	}
	if opts.Pacing != "deterministic" && opts.Pacing != "poisson" {
		return Options{}, apperr.ErrInvalidPlan
	}

	return opts, nil
}
