package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/getmockd/soapkit/pkg/config"
	"github.com/getmockd/soapkit/pkg/logging"
	"github.com/getmockd/soapkit/pkg/metrics"
)

var (
	// Persistent flags available to all subcommands
	configPath  string
	logLevel    string
	logFormat   string
	logFile     string
	metricsFile string
	jsonOutput  bool

	// Version is injected during build
	Version = "dev"
	// Commit is injected during build
	Commit = "none"
	// BuildDate is injected during build
	BuildDate = "unknown"

	// Set up by the root command before any subcommand runs.
	cfg     *config.Config
	logger  = logging.Nop()
	closers []io.Closer
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "soapkit",
	Short: "soapkit resolves SOAP faults and transforms SOAP payloads",
	Long: `soapkit explains SOAP fault responses, rewrites XML payloads with rules
stylesheets and calls SOAP endpoints.

Configuration can be provided via flags, environment variables (SOAPKIT_*),
or a YAML file given with --config or SOAPKIT_CONFIG.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file (default: $SOAPKIT_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: text, json")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Also write debug logs as JSON to this file")
	rootCmd.PersistentFlags().StringVar(&metricsFile, "metrics-file", "", "Write Prometheus metrics to this file on exit")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output command results in JSON format")
}

// Main runs the CLI and returns the process exit code.
func Main() int {
	defer closeAll()
	err := rootCmd.Execute()
	if werr := writeMetrics(); werr != nil {
		err = errors.Join(err, werr)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}

// Execute runs the CLI and exits the process.
func Execute() {
	os.Exit(Main())
}

func setup(cmd *cobra.Command, _ []string) error {
	path := configPath
	if path == "" {
		path = os.Getenv(config.EnvConfig)
	}

	c, err := config.Load(path)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("log-level") {
		c.Logging.Level = logLevel
		c.Sources["logging"] = config.SourceFlag
	}
	if cmd.Flags().Changed("log-format") {
		c.Logging.Format = logFormat
		c.Sources["logging"] = config.SourceFlag
	}
	level, err := logging.LookupLevel(c.Logging.Level)
	if err != nil {
		return err
	}
	cfg = c

	handler := logging.NewHandler(logging.Config{
		Level:  level,
		Format: logging.ParseFormat(c.Logging.Format),
		Output: cmd.ErrOrStderr(),
	})
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		closers = append(closers, f)
		handler = logging.NewMultiHandler(handler, logging.NewHandler(logging.Config{
			Level:  logging.LevelDebug,
			Format: logging.FormatJSON,
			Output: f,
		}))
	}
	logger = slog.New(handler)

	if metricsFile != "" {
		metrics.Init()
	}
	logger.Debug("configuration loaded", "path", path, "sources", c.Sources)
	return nil
}

func writeMetrics() error {
	registry := metrics.DefaultRegistry()
	if metricsFile == "" || registry == nil {
		return nil
	}
	f, err := os.Create(metricsFile)
	if err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return errors.Join(registry.WriteText(f), f.Close())
}

func closeAll() {
	for _, c := range closers {
		_ = c.Close()
	}
	closers = nil
}
