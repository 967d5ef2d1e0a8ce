// Package cli wires configuration, logging and the backends into the
// notioncal commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"notioncal/internal/config"
	"notioncal/internal/exitcode"
	"notioncal/internal/logger"
	"notioncal/internal/output"
	"notioncal/internal/reconcile"
	"notioncal/internal/service"
)

// Version is the application version. Set at build time.
var Version = "0.1.0"

// Backends creates the remote services from config.
// Tests inject fakes here.
type Backends struct {
	Source   func(ctx context.Context, cfg *config.Config) (service.Source, error)
	Calendar func(ctx context.Context, cfg *config.Config) (service.Calendar, error)
}

// Dispatcher handles command-line parsing and dispatch.
type Dispatcher struct {
	backends Backends

	// LoadConfig and NewLogger default to config.Load and logger.New.
	LoadConfig func(dir string) (*config.Config, error)
	NewLogger  func(cfg config.LogConfig) (*zap.Logger, error)

	// Reconcile is passed to every Reconciler; tests use it to stub the clock.
	Reconcile reconcile.Options
}

// NewDispatcher creates a new dispatcher with the given backends.
func NewDispatcher(backends Backends) *Dispatcher {
	return &Dispatcher{
		backends:   backends,
		LoadConfig: config.Load,
		NewLogger:  logger.New,
	}
}

// exitError carries the exit code a command failed with.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func fail(code int, format string, args ...any) error {
	return &exitError{code: code, err: fmt.Errorf(format, args...)}
}

// Run parses arguments and dispatches to the appropriate command.
// Returns the exit code.
func (d *Dispatcher) Run(ctx context.Context, args []string, out, errOut io.Writer) int {
	root := d.rootCommand()
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(errOut)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return exitcode.Success
	}

	fmt.Fprintf(errOut, "error: %s\n", err)
	var exitErr *exitError
	if errors.As(err, &exitErr) {
		return exitErr.code
	}
	return exitcode.UserError
}

type globalFlags struct {
	configDir string
	debug     bool
}

func (d *Dispatcher) rootCommand() *cobra.Command {
	var flags globalFlags

	root := &cobra.Command{
		Use:   "notioncal",
		Short: "Mirror Notion tasks into Google Calendar",
		Long: `notioncal runs one sync: every configured Notion database is mirrored
into the Google Calendar of the same name. Scheduled tasks become events,
tasks marked Done have their event removed, and the event id is stored on
the task so later runs update instead of duplicating.

Configuration is read from the environment and from a .env file.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return d.runSync(cmd, flags)
		},
	}
	root.PersistentFlags().StringVar(&flags.configDir, "config", "", "directory containing a .env file")
	root.PersistentFlags().BoolVar(&flags.debug, "debug", false, "enable debug logging")

	root.AddCommand(
		&cobra.Command{
			Use:   "calendars",
			Short: "Print the destination calendars",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return d.runCalendars(cmd, flags)
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print version",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "notioncal %s\n", Version)
			},
		},
	)
	return root
}

// setup loads configuration and builds the run logger.
func (d *Dispatcher) setup(flags globalFlags) (*config.Config, *zap.Logger, error) {
	cfg, err := d.LoadConfig(flags.configDir)
	if err != nil {
		return nil, nil, fail(exitcode.ConfigError, "config error: %w", err)
	}
	if flags.debug {
		cfg.Log.Level = "debug"
	}

	log, err := d.NewLogger(cfg.Log)
	if err != nil {
		return nil, nil, fail(exitcode.ConfigError, "config error: invalid log settings: %w", err)
	}
	log = logger.WithRunID(log)
	log.Debug("configuration loaded",
		zap.String("config_dir", cfg.Dir),
		zap.Bool("env_file", cfg.HasEnvFile()),
	)
	return cfg, log, nil
}

func (d *Dispatcher) runSync(cmd *cobra.Command, flags globalFlags) error {
	ctx := cmd.Context()

	cfg, log, err := d.setup(flags)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if err := cfg.Validate(); err != nil {
		return fail(exitcode.ConfigError, "config error: %w", err)
	}

	source, err := d.backends.Source(ctx, cfg)
	if err != nil {
		return fail(exitcode.BackendError, "backend error: %w", err)
	}
	calendar, err := d.backends.Calendar(ctx, cfg)
	if err != nil {
		return fail(exitcode.BackendError, "backend error: %w", err)
	}

	opts := d.Reconcile
	opts.TimeZone = cfg.Sync.TimeZone
	opts.DeltaWindow = cfg.Sync.DeltaWindow
	opts.Pace = cfg.Sync.Pace

	report := reconcile.New(source, calendar, cfg.Targets(), opts, log).Run(ctx)
	output.FormatReport(cmd.OutOrStdout(), report)
	return nil
}

func (d *Dispatcher) runCalendars(cmd *cobra.Command, flags globalFlags) error {
	ctx := cmd.Context()

	cfg, log, err := d.setup(flags)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if err := cfg.ValidateGoogle(); err != nil {
		return fail(exitcode.ConfigError, "config error: %w", err)
	}

	calendar, err := d.backends.Calendar(ctx, cfg)
	if err != nil {
		return fail(exitcode.BackendError, "backend error: %w", err)
	}

	calendars, err := calendar.ListCalendars(ctx)
	if err != nil {
		log.Error("failed to list calendars", zap.Error(err), zap.String("details", service.Details(err)))
		return fail(exitcode.BackendError, "backend error: %w", err)
	}
	for _, c := range calendars {
		output.FormatCalendar(cmd.OutOrStdout(), c)
	}
	return nil
}
