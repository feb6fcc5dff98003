package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/taleyport/internal/backend"
	"github.com/felixgeelhaar/taleyport/internal/config"
	"github.com/felixgeelhaar/taleyport/internal/errors"
	"github.com/felixgeelhaar/taleyport/internal/log"
	"github.com/felixgeelhaar/taleyport/internal/metrics"
	"github.com/felixgeelhaar/taleyport/internal/poller"
	"github.com/felixgeelhaar/taleyport/internal/telemetry"
	"github.com/felixgeelhaar/taleyport/internal/tui"
	"github.com/felixgeelhaar/taleyport/internal/version"
)

// CommandContext holds the loaded configuration and the ambient services a
// command needs. Commands get one through withContext.
type CommandContext struct {
	Config  *config.Config
	Logger  *log.Logger
	Metrics *metrics.Metrics
	Out     io.Writer
	ErrOut  io.Writer

	shutdownTracing func(context.Context) error
}

// NewCommandContext loads configuration for cmd and sets up logging,
// metrics and tracing.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	configFile, _ := cmd.Flags().GetString("config")

	cfg, err := config.Load(config.LoadOptions{
		ConfigFile: configFile,
		Flags:      cmd.Flags(),
	})
	if err != nil {
		return nil, err
	}

	cctx := &CommandContext{
		Config:  cfg,
		Metrics: metrics.GetDefault(),
		Out:     cmd.OutOrStdout(),
		ErrOut:  cmd.ErrOrStderr(),
	}

	logCfg := log.DefaultConfig()
	if level := log.ParseLevel(cfg.Log.Level); level == log.LevelDebug {
		logCfg = log.DevelopmentConfig()
	} else {
		logCfg.Level = level
	}
	logCfg.Format = log.ParseFormat(cfg.Log.Format)
	logCfg.Output = cctx.ErrOut
	cctx.Logger = log.New(logCfg)
	log.SetDefaultLogger(cctx.Logger)

	if !cfg.UI.Color {
		lipgloss.SetColorProfile(termenv.Ascii)
	}

	info := version.GetInfo()
	shutdown, err := telemetry.InitProvider(cmd.Context(), telemetry.Config{
		ServiceName:    "taleyport",
		ServiceVersion: info.Version,
		BackendURL:     cfg.Backend.URL,
		Enabled:        cfg.Telemetry.Enabled,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		// Tracing is optional; the command still runs.
		cctx.Logger.WithError(err).Warn("tracing disabled")
	} else {
		cctx.shutdownTracing = shutdown
	}

	return cctx, nil
}

// Close flushes telemetry.
func (c *CommandContext) Close() {
	if c.shutdownTracing == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.shutdownTracing(ctx); err != nil {
		c.Logger.WithError(err).Debug("telemetry shutdown failed")
	}
}

// Interactive reports whether the bubbletea views should be used.
func (c *CommandContext) Interactive() bool {
	return !c.Config.UI.Plain && tui.ShouldPrompt()
}

// Client builds a backend client from the configuration.
func (c *CommandContext) Client() (*backend.Client, error) {
	opts := []backend.Option{
		backend.WithTimeout(c.Config.Backend.Timeout),
		backend.WithUserAgent(version.GetInfo().UserAgent()),
		backend.WithMetrics(c.Metrics),
		backend.WithLogger(c.Logger),
	}
	if c.Config.Backend.SessionCookie != "" {
		opts = append(opts, backend.WithSessionCookie(c.Config.Backend.SessionCookie))
	}
	if c.Config.Backend.ValidateContract {
		contract, err := backend.DefaultContract()
		if err != nil {
			return nil, fmt.Errorf("failed to load backend contract: %w", err)
		}
		opts = append(opts, backend.WithContractValidation(contract))
	}
	return backend.NewClient(c.Config.Backend.URL, opts...), nil
}

// Poller builds a poller for fetcher from the configuration.
func (c *CommandContext) Poller(fetcher poller.Fetcher) *poller.Poller {
	return poller.New(fetcher,
		poller.WithPolicy(poller.Policy{
			Interval:          c.Config.Poll.Interval,
			MaxAttempts:       c.Config.Poll.MaxAttempts,
			BackoffMultiplier: c.Config.Poll.BackoffMultiplier,
			MaxInterval:       c.Config.Poll.MaxInterval,
		}),
		poller.WithLogger(c.Logger.With("component", "poller")),
		poller.WithMetrics(c.Metrics),
	)
}

// withContext wraps a command body with configuration loading, a command
// span and command metrics.
func withContext(fn func(cctx *CommandContext, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cctx, err := NewCommandContext(cmd)
		if err != nil {
			return err
		}
		defer cctx.Close()

		name := cmd.CommandPath()
		ctx, span := telemetry.StartCommandSpan(cmd.Context(), name)
		defer span.End()
		cmd.SetContext(ctx)

		err = fn(cctx, cmd, args)

		cctx.Metrics.ObserveCommand(name, err)
		if err != nil {
			telemetry.RecordError(span, err)
			if code, ok := errors.CodeOf(err); ok {
				cctx.Metrics.ObserveError(string(code))
			}
			cctx.Logger.WithError(err).Debug("command failed", "command", name)
		} else {
			telemetry.RecordSuccess(span)
		}
		return err
	}
}
