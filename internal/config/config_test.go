package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

// TestLoadDefaults ensures Load without a file or flags yields the documented defaults.
func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("", nil)
	require.NoError(t, err)
	require.Equal(t, 4, cfg.Crawler.Concurrency)
	require.Equal(t, "sitecrawler", cfg.Crawler.UserAgent)
	require.Equal(t, 30*time.Second, cfg.HTTP.Timeout)
	require.Equal(t, 2, cfg.HTTP.MaxRetries)
	require.Equal(t, "info", cfg.Logging.Level)
	require.False(t, cfg.Progress.Disabled)
}

// TestLoadWithFileOverrides ensures every key can be set from a YAML file.
func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "sitecrawler.yaml")
	configYAML := `
crawler:
  concurrency: 12
  user_agent: TYPO3 sitecrawler
  lenient_robots: true
http:
  timeout: 45s
  max_retries: 0
  max_body_bytes: 52428800
output:
  path: /tmp/urls.json
logging:
  development: false
  level: warn
metrics:
  textfile: /var/lib/node_exporter/sitecrawler.prom
progress:
  disabled: true
`
	require.NoError(t, os.WriteFile(path, []byte(configYAML), 0o600))

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	require.Equal(t, 12, cfg.Crawler.Concurrency)
	require.Equal(t, "TYPO3 sitecrawler", cfg.Crawler.UserAgent)
	require.True(t, cfg.Crawler.LenientRobots)
	require.Equal(t, 45*time.Second, cfg.HTTP.Timeout)
	require.Equal(t, 0, cfg.HTTP.MaxRetries)
	require.Equal(t, 52428800, cfg.HTTP.MaxBodyBytes)
	require.Equal(t, "/tmp/urls.json", cfg.Output.Path)
	require.False(t, cfg.Logging.Development)
	require.Equal(t, "warn", cfg.Logging.Level)
	require.Equal(t, "/var/lib/node_exporter/sitecrawler.prom", cfg.Metrics.Textfile)
	require.True(t, cfg.Progress.Disabled)
}

// TestLoadFlagsOverrideFile ensures changed flags win over file values while unchanged flags do not.
func TestLoadFlagsOverrideFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "sitecrawler.yaml")
	require.NoError(t, os.WriteFile(path, []byte("crawler:\n  concurrency: 12\n  user_agent: from-file\n"), 0o600))

	flags := pflag.NewFlagSet("crawl", pflag.ContinueOnError)
	flags.Int("concurrency", 1, "")
	flags.String("user-agent", "", "")
	flags.Duration("timeout", 0, "")
	require.NoError(t, flags.Parse([]string{"--concurrency=2", "--timeout=5s"}))

	cfg, err := Load(path, flags)
	require.NoError(t, err)
	require.Equal(t, 2, cfg.Crawler.Concurrency)
	require.Equal(t, "from-file", cfg.Crawler.UserAgent)
	require.Equal(t, 5*time.Second, cfg.HTTP.Timeout)
}

// TestLoadEnvOverrides ensures SITECRAWLER_ environment variables map onto nested keys.
func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SITECRAWLER_CRAWLER_CONCURRENCY", "9")
	t.Setenv("SITECRAWLER_LOGGING_LEVEL", "debug")

	cfg, err := Load("", nil)
	require.NoError(t, err)
	require.Equal(t, 9, cfg.Crawler.Concurrency)
	require.Equal(t, "debug", cfg.Logging.Level)
}

// TestLoadMissingFile ensures an explicit but missing config file is an error.
func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "read config")
}

// TestConfigValidateErrors ensures Validate rejects each out-of-range setting.
func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	base := Config{
		Crawler: CrawlerConfig{Concurrency: 1, UserAgent: "sitecrawler"},
		HTTP:    HTTPConfig{Timeout: time.Second},
		Logging: LoggingConfig{Level: "info"},
	}
	require.NoError(t, base.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"invalid concurrency", func(c *Config) { c.Crawler.Concurrency = 0 }, "crawler.concurrency"},
		{"empty user agent", func(c *Config) { c.Crawler.UserAgent = " " }, "crawler.user_agent"},
		{"invalid timeout", func(c *Config) { c.HTTP.Timeout = 0 }, "http.timeout"},
		{"negative retries", func(c *Config) { c.HTTP.MaxRetries = -1 }, "http.max_retries"},
		{"negative body cap", func(c *Config) { c.HTTP.MaxBodyBytes = -1 }, "http.max_body_bytes"},
		{"unknown level", func(c *Config) { c.Logging.Level = "chatty" }, "logging.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
