package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/openfroyo/recordstore/pkg/config"
	"github.com/openfroyo/recordstore/pkg/stores"
	"github.com/openfroyo/recordstore/pkg/telemetry"
)

// globalOptions holds the persistent flags shared by every subcommand.
type globalOptions struct {
	configPath string
	driver     string
	path       string
	verbose    bool
	jsonOutput bool
}

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	return newRootCommand(version, commit, buildDate).ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "recordctl",
		Short: "Inspect and modify an embedded record store",
		Long: `recordctl operates on an embedded (id, value) record store.

Backends:
  - sqlite (file or private in-memory database)
  - bolt (single-file key/value database)

Without --path the store is an in-memory SQLite database that only lives for
one invocation; use "exec" to run several operations against it.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&opts.driver, "driver", "", "store driver (sqlite, bolt)")
	rootCmd.PersistentFlags().StringVar(&opts.path, "path", "", "database path")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "output in JSON format")

	rootCmd.AddCommand(newInsertCommand(opts))
	rootCmd.AddCommand(newGetCommand(opts))
	rootCmd.AddCommand(newUpdateCommand(opts))
	rootCmd.AddCommand(newDeleteCommand(opts))
	rootCmd.AddCommand(newListCommand(opts))
	rootCmd.AddCommand(newCountCommand(opts))
	rootCmd.AddCommand(newMigrateCommand(opts))
	rootCmd.AddCommand(newExecCommand(opts))
	rootCmd.AddCommand(newShellCommand(opts))

	return rootCmd
}

// loadConfig resolves the config file, environment, and flag overrides in
// that order.
func (o *globalOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.driver != "" {
		cfg.Store.Driver = o.driver
	}
	if o.path != "" {
		cfg.Store.Path = o.path
	}
	if o.verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newTelemetry builds telemetry for one invocation. Logs that would go to
// stderr go to the command's error stream instead.
func newTelemetry(cmd *cobra.Command, cfg *config.Config) (*telemetry.Telemetry, error) {
	tel, err := telemetry.NewTelemetry(&cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	switch cfg.Telemetry.Logging.Output {
	case "", "stderr":
		tel.Logger = telemetry.NewLoggerWithWriter(cfg.Telemetry.Logging, cmd.ErrOrStderr())
	}
	return tel, nil
}

// session is the open store and telemetry handed to a command.
type session struct {
	cfg    *config.Config
	tel    *telemetry.Telemetry
	logger *telemetry.Logger
	store  stores.Store
}

// withSession opens an instrumented store for the duration of fn.
func (o *globalOptions) withSession(cmd *cobra.Command, fn func(ctx context.Context, s *session) error) (err error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return err
	}

	tel, err := newTelemetry(cmd, cfg)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if serr := tel.Shutdown(shutdownCtx); serr != nil {
			tel.Logger.WithError(serr).Warn("telemetry shutdown failed")
		}
	}()
	if err := tel.StartMetricsServer(); err != nil {
		return err
	}

	ctx := tel.WithContext(cmd.Context())
	storeCfg := cfg.Store.StoreOptions()

	raw, err := stores.New(storeCfg)
	if err != nil {
		return err
	}
	store := stores.Instrument(raw, tel, string(storeCfg.Driver))
	if err := stores.Prepare(ctx, store); err != nil {
		return err
	}

	logger := tel.Logger.NewComponentLogger("recordctl")
	logger.WithBackend(store.Backend()).WithField("path", storeCfg.Path).Debug("store opened")

	return stores.Use(ctx, store, func(ctx context.Context, st stores.Store) error {
		return fn(ctx, &session{cfg: cfg, tel: tel, logger: logger, store: st})
	})
}

// runOp executes a single operation in its own session and prints the result.
func (o *globalOptions) runOp(cmd *cobra.Command, op Op) error {
	return o.withSession(cmd, func(ctx context.Context, s *session) error {
		res, err := apply(ctx, s.store, op)
		if err != nil {
			return err
		}
		return printResult(cmd.OutOrStdout(), res, o.jsonOutput)
	})
}
