package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/ppiankov/buybox/internal/model"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// APIKeyEnv names the variable holding the Rainforest credential
const APIKeyEnv = "RAINFOREST_API_KEY"

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "buybox",
	Short: "buybox - Amazon buy box checker backed by the Rainforest API",
	Long: `buybox looks up ASINs through the Rainforest data API and reports who
holds the buy box, at what price, and whether the offer is discounted
against the recommended retail price.

A single ASIN prints an aligned report. A CSV of ASINs produces a CSV of
results in the same row order.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// ExecuteContext runs the root command with ctx available to subcommands
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Display the version number of buybox.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("buybox v0.1.0")
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	defaults := model.DefaultConfig()
	flags := rootCmd.PersistentFlags()

	// Global flags
	flags.StringVar(&cfgFile, "config", "", "config file (default: $HOME/.buybox/config.yaml)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logging)")
	flags.String("log-level", defaults.LogLevel, "log level (debug, info, warn, error)")

	// Provider flags
	flags.String("env-file", defaults.API.EnvFile, "file providing "+APIKeyEnv)
	flags.String("domain", defaults.API.Domain, "Amazon marketplace domain")
	flags.String("api-url", defaults.API.URL, "Rainforest request endpoint")

	// HTTP flags
	flags.Duration("timeout", defaults.HTTP.Timeout, "per-request timeout")
	flags.Int("retries", defaults.HTTP.Retries, "retries after HTTP 429/5xx")
	flags.String("http-proxy", "", "HTTP proxy URL (overrides HTTP_PROXY env var)")
	flags.String("https-proxy", "", "HTTPS proxy URL (overrides HTTPS_PROXY env var)")
	flags.String("metrics-file", "", "write Prometheus metrics to this file on exit")

	// Bind flags to viper
	for key, flag := range map[string]string{
		"output.verbose":      "verbose",
		"log_level":           "log-level",
		"api.url":             "api-url",
		"api.env_file":        "env-file",
		"api.domain":          "domain",
		"http.timeout":        "timeout",
		"http.retries":        "retries",
		"http.http_proxy":     "http-proxy",
		"http.https_proxy":    "https-proxy",
		"output.metrics_file": "metrics-file",
	} {
		_ = viper.BindPFlag(key, flags.Lookup(flag))
	}

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		// Search for config in home directory
		viper.AddConfigPath(home + "/.buybox")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	setDefaults(viper.GetViper(), model.DefaultConfig())

	// Read in environment variables that match BUYBOX_* (BUYBOX_API_DOMAIN, ...)
	viper.SetEnvPrefix("BUYBOX")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

func setDefaults(v *viper.Viper, d *model.Config) {
	v.SetDefault("api.url", d.API.URL)
	v.SetDefault("api.domain", d.API.Domain)
	v.SetDefault("api.env_file", d.API.EnvFile)
	v.SetDefault("http.timeout", d.HTTP.Timeout)
	v.SetDefault("http.retries", d.HTTP.Retries)
	v.SetDefault("http.backoff_base", d.HTTP.BackoffBase)
	v.SetDefault("http.user_agent", d.HTTP.UserAgent)
	v.SetDefault("concurrency.workers", d.Concurrency.Workers)
	v.SetDefault("output.csv_path", d.Output.CSVPath)
	v.SetDefault("output.title_max_term", d.Output.TitleMaxTerm)
	v.SetDefault("output.title_max_csv", d.Output.TitleMaxCSV)
	v.SetDefault("output.verbose", d.Output.Verbose)
	v.SetDefault("log_level", d.LogLevel)
}

// resolveConfig reads every setting from v. The API key is left empty.
func resolveConfig(v *viper.Viper) *model.Config {
	cfg := model.DefaultConfig()

	cfg.API.URL = v.GetString("api.url")
	cfg.API.Domain = strings.TrimSpace(v.GetString("api.domain"))
	cfg.API.EnvFile = v.GetString("api.env_file")
	cfg.HTTP.Timeout = v.GetDuration("http.timeout")
	cfg.HTTP.Retries = v.GetInt("http.retries")
	cfg.HTTP.BackoffBase = v.GetDuration("http.backoff_base")
	cfg.HTTP.UserAgent = v.GetString("http.user_agent")
	cfg.HTTP.HTTPProxy = v.GetString("http.http_proxy")
	cfg.HTTP.HTTPSProxy = v.GetString("http.https_proxy")
	cfg.Concurrency.Workers = v.GetInt("concurrency.workers")
	cfg.Output.CSVPath = v.GetString("output.csv_path")
	cfg.Output.TitleMaxTerm = v.GetInt("output.title_max_term")
	cfg.Output.TitleMaxCSV = v.GetInt("output.title_max_csv")
	cfg.Output.MetricsFile = v.GetString("output.metrics_file")
	cfg.Output.Verbose = v.GetBool("output.verbose")
	cfg.LogLevel = v.GetString("log_level")
	return cfg
}

// buildConfig resolves settings from v, loads the credential env file and
// validates the result. Any error is fatal before network activity starts.
func buildConfig(v *viper.Viper) (*model.Config, error) {
	cfg := resolveConfig(v)

	// Variables already set in the environment take precedence over the file
	if cfg.API.EnvFile != "" {
		if err := godotenv.Load(cfg.API.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, &model.ConfigError{Field: "api.env_file", Err: err}
		}
	}
	cfg.API.Key = os.Getenv(APIKeyEnv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger builds the stderr text logger. Verbose forces debug level.
func newLogger(w io.Writer, cfg *model.Config) *slog.Logger {
	level := parseLevel(cfg.LogLevel)
	if cfg.Output.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// elapsed formats a run duration for summaries
func elapsed(start time.Time) string {
	return time.Since(start).Round(time.Millisecond).String()
}
