package cli

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/buybox/internal/model"
	"github.com/spf13/viper"
)

func newTestViper() *viper.Viper {
	v := viper.New()
	setDefaults(v, model.DefaultConfig())
	return v
}

// unsetAPIKey clears the credential for the test and restores it afterwards
func unsetAPIKey(t *testing.T) {
	t.Helper()
	t.Setenv(APIKeyEnv, "")
	if err := os.Unsetenv(APIKeyEnv); err != nil {
		t.Fatal(err)
	}
}

func TestBuildConfig_MissingKey(t *testing.T) {
	unsetAPIKey(t)
	v := newTestViper()
	v.Set("api.env_file", filepath.Join(t.TempDir(), "missing.env"))

	_, err := buildConfig(v)
	if !errors.Is(err, model.ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
	var cfgErr *model.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Errorf("expected *model.ConfigError, got %T", err)
	}
}

func TestBuildConfig_EnvFile(t *testing.T) {
	unsetAPIKey(t)
	envFile := filepath.Join(t.TempDir(), ".env.rainforest")
	if err := os.WriteFile(envFile, []byte(APIKeyEnv+"=  file-key  \n"), 0600); err != nil {
		t.Fatal(err)
	}

	v := newTestViper()
	v.Set("api.env_file", envFile)

	cfg, err := buildConfig(v)
	if err != nil {
		t.Fatalf("buildConfig failed: %v", err)
	}
	if cfg.API.Key != "file-key" {
		t.Errorf("expected key from env file, got %q", cfg.API.Key)
	}
}

func TestBuildConfig_EnvironmentWinsOverFile(t *testing.T) {
	t.Setenv(APIKeyEnv, "env-key")
	envFile := filepath.Join(t.TempDir(), ".env.rainforest")
	if err := os.WriteFile(envFile, []byte(APIKeyEnv+"=file-key\n"), 0600); err != nil {
		t.Fatal(err)
	}

	v := newTestViper()
	v.Set("api.env_file", envFile)

	cfg, err := buildConfig(v)
	if err != nil {
		t.Fatalf("buildConfig failed: %v", err)
	}
	if cfg.API.Key != "env-key" {
		t.Errorf("expected environment key, got %q", cfg.API.Key)
	}
}

func TestBuildConfig_Settings(t *testing.T) {
	t.Setenv(APIKeyEnv, "env-key")

	v := newTestViper()
	v.Set("api.env_file", "")
	v.Set("api.domain", " amazon.de ")
	v.Set("concurrency.workers", 0)
	v.Set("http.timeout", "5s")
	v.Set("output.csv_path", "out.csv")
	v.Set("api.url", "http://127.0.0.1:8080/request")

	cfg, err := buildConfig(v)
	if err != nil {
		t.Fatalf("buildConfig failed: %v", err)
	}
	if cfg.API.Domain != "amazon.de" {
		t.Errorf("expected trimmed domain, got %q", cfg.API.Domain)
	}
	if cfg.Concurrency.Workers != 1 {
		t.Errorf("expected workers coerced to 1, got %d", cfg.Concurrency.Workers)
	}
	if cfg.HTTP.Timeout != 5*time.Second {
		t.Errorf("expected 5s timeout, got %v", cfg.HTTP.Timeout)
	}
	if cfg.HTTP.Retries != 3 || cfg.HTTP.BackoffBase != time.Second {
		t.Errorf("expected default retry policy, got %d/%v", cfg.HTTP.Retries, cfg.HTTP.BackoffBase)
	}
	if cfg.Output.CSVPath != "out.csv" {
		t.Errorf("unexpected output path %q", cfg.Output.CSVPath)
	}
	if cfg.API.URL != "http://127.0.0.1:8080/request" {
		t.Errorf("unexpected API URL %q", cfg.API.URL)
	}
}

func TestRootFlags_BoundToConfigKeys(t *testing.T) {
	flags := rootCmd.PersistentFlags()
	t.Cleanup(func() {
		_ = flags.Set("api-url", model.DefaultConfig().API.URL)
		_ = flags.Set("verbose", "false")
	})

	if err := flags.Set("api-url", "http://localhost:9999/request"); err != nil {
		t.Fatalf("set api-url: %v", err)
	}
	if err := flags.Set("verbose", "true"); err != nil {
		t.Fatalf("set verbose: %v", err)
	}

	cfg := resolveConfig(viper.GetViper())
	if cfg.API.URL != "http://localhost:9999/request" {
		t.Errorf("expected --api-url to set api.url, got %q", cfg.API.URL)
	}
	if !cfg.Output.Verbose {
		t.Error("expected --verbose to set output.verbose")
	}
}

func TestResolveConfig_VerboseFromConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("output:\n  verbose: true\n"), 0644); err != nil {
		t.Fatal(err)
	}

	v := newTestViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		t.Fatalf("read config: %v", err)
	}

	if cfg := resolveConfig(v); !cfg.Output.Verbose {
		t.Error("expected output.verbose from config file to enable verbose output")
	}
}

func TestBuildConfig_InvalidRetries(t *testing.T) {
	t.Setenv(APIKeyEnv, "env-key")

	v := newTestViper()
	v.Set("api.env_file", "")
	v.Set("http.retries", -1)

	_, err := buildConfig(v)
	var cfgErr *model.ConfigError
	if !errors.As(err, &cfgErr) || cfgErr.Field != "http.retries" {
		t.Errorf("expected http.retries ConfigError, got %v", err)
	}
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		level   string
		verbose bool
		debug   bool
		info    bool
	}{
		{level: "info", debug: false, info: true},
		{level: "debug", debug: true, info: true},
		{level: "warn", debug: false, info: false},
		{level: "ERROR", debug: false, info: false},
		{level: "bogus", debug: false, info: true},
		{level: "error", verbose: true, debug: true, info: true},
	}

	for _, tt := range tests {
		cfg := model.DefaultConfig()
		cfg.LogLevel = tt.level
		cfg.Output.Verbose = tt.verbose

		var buf bytes.Buffer
		logger := newLogger(&buf, cfg)

		if got := logger.Enabled(t.Context(), slog.LevelDebug); got != tt.debug {
			t.Errorf("level %q verbose %v: debug enabled = %v, want %v", tt.level, tt.verbose, got, tt.debug)
		}
		if got := logger.Enabled(t.Context(), slog.LevelInfo); got != tt.info {
			t.Errorf("level %q verbose %v: info enabled = %v, want %v", tt.level, tt.verbose, got, tt.info)
		}
	}
}

func TestWriteDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".buybox", "config.yaml")

	if err := writeDefaultConfig(path); err != nil {
		t.Fatalf("writeDefaultConfig failed: %v", err)
	}
	if err := writeDefaultConfig(path); err == nil {
		t.Error("expected error when config already exists")
	}

	// The written file must round-trip through viper to the defaults
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		t.Fatalf("read config: %v", err)
	}
	got := resolveConfig(v)
	want := model.DefaultConfig()

	if got.API.Domain != want.API.Domain || got.API.URL != want.API.URL {
		t.Errorf("api section mismatch: %+v", got.API)
	}
	if got.HTTP.Timeout != want.HTTP.Timeout || got.HTTP.BackoffBase != want.HTTP.BackoffBase {
		t.Errorf("http durations mismatch: %+v", got.HTTP)
	}
	if got.Concurrency.Workers != 1 || got.Output.CSVPath != want.Output.CSVPath {
		t.Errorf("unexpected values: %+v %+v", got.Concurrency, got.Output)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "key:") {
		t.Errorf("config file must not contain the API key field:\n%s", data)
	}
}

func TestShowConfig(t *testing.T) {
	var buf bytes.Buffer
	if err := showConfig(&buf, model.DefaultConfig(), false); err != nil {
		t.Fatalf("showConfig failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"domain: amazon.co.uk", "timeout: 30s", "workers: 1", APIKeyEnv + ": not set"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
