package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rezonia/invoicer/internal/app"
	"github.com/rezonia/invoicer/internal/config"
	"github.com/rezonia/invoicer/internal/logger"
)

var (
	version = "1.0.0"

	// Global flags
	cfgFile      string
	verbose      bool
	outputFormat string
	outputFile   string
)

var rootCmd = &cobra.Command{
	Use:   "invoicer",
	Short: "Build, check and export invoices",
	Long: `Invoicer edits invoice drafts, keeps their totals consistent and exports
them as paginated A4 PDFs.

Drafts are plain JSON files. Saved invoices live in SQLite or Supabase
and need a signed-in user.

Examples:
  # Start a draft and fill it in
  invoicer new -o draft.json --set invoice_number=INV-001 --set to_name=Globex
  invoicer calc draft.json --in-place --item 0:description=Design --item 0:quantity=40 --item 0:rate=75

  # Check and export it
  invoicer validate draft.json
  invoicer export draft.json -o invoice.pdf

  # Run the HTTP API
  invoicer serve --address :8080`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: ./invoicer.yaml if present)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "format", "f", "json", "Output format (json, table, csv)")
	rootCmd.PersistentFlags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error) (env: INVOICER_LOGGING_LEVEL)")
	rootCmd.PersistentFlags().String("store", "", "Invoice store (sqlite, supabase, none) (env: INVOICER_STORE_DRIVER)")
	rootCmd.PersistentFlags().String("db", "", "SQLite database path (env: INVOICER_STORE_PATH)")
}

// loadConfig reads the config file and environment, with persistent flags
// taking precedence.
func loadConfig(cmd *cobra.Command) (*config.Configuration, error) {
	v, err := config.NewViper(cfgFile)
	if err != nil {
		return nil, err
	}
	bindFlag(v, cmd, "logging.level", "log-level")
	bindFlag(v, cmd, "store.driver", "store")
	bindFlag(v, cmd, "store.path", "db")
	bindFlag(v, cmd, "server.address", "address")
	bindFlag(v, cmd, "server.debug", "debug")
	bindFlag(v, cmd, "server.read_timeout", "read-timeout")
	bindFlag(v, cmd, "server.write_timeout", "write-timeout")
	if verbose && !v.IsSet("logging.level") {
		v.Set("logging.level", "debug")
	}
	return config.FromViper(v)
}

func bindFlag(v *viper.Viper, cmd *cobra.Command, key, flag string) {
	if f := cmd.Flags().Lookup(flag); f != nil && f.Changed {
		v.Set(key, f.Value.String())
	}
}

// newLogger logs to stderr so stdout stays clean for command output
func newLogger(cfg *config.Configuration) (*logger.Logger, error) {
	logCfg := cfg.Logging
	if logCfg.Format == "" || logCfg.Format == "json" {
		logCfg.Format = "console"
	}
	if !verbose && cfg.Logging.Level == "info" {
		logCfg.Level = "warn"
	}
	return logger.New(logCfg)
}

// openApp loads configuration and wires the application
func openApp(cmd *cobra.Command) (*app.App, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return app.New(ctx, cfg, log)
}

func printVerbose(format string, args ...interface{}) {
	if verbose {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}
