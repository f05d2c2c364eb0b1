// Package config loads and validates sitecrawler configuration via Viper.
// Values come from defaults, an optional config file, SITECRAWLER_*
// environment variables and command-line flags, in increasing precedence.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Crawler  CrawlerConfig  `mapstructure:"crawler"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Output   OutputConfig   `mapstructure:"output"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Progress ProgressConfig `mapstructure:"progress"`
}

// CrawlerConfig governs discovery and the fetch phase.
type CrawlerConfig struct {
	Concurrency   int    `mapstructure:"concurrency"`
	UserAgent     string `mapstructure:"user_agent"`
	LenientRobots bool   `mapstructure:"lenient_robots"`
}

// HTTPConfig configures the transport.
type HTTPConfig struct {
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxRetries   int           `mapstructure:"max_retries"`
	MaxBodyBytes int           `mapstructure:"max_body_bytes"`
}

// OutputConfig controls where --list output goes. Empty means stdout.
type OutputConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig selects the zap configuration.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// MetricsConfig enables the Prometheus textfile export.
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}

// ProgressConfig toggles the terminal progress bar.
type ProgressConfig struct {
	Disabled bool `mapstructure:"disabled"`
}

// flagKeys maps command-line flag names to configuration keys.
var flagKeys = map[string]string{
	"concurrency":    "crawler.concurrency",
	"user-agent":     "crawler.user_agent",
	"lenient-robots": "crawler.lenient_robots",
	"timeout":        "http.timeout",
	"retries":        "http.max_retries",
	"output":         "output.path",
	"metrics-file":   "metrics.textfile",
	"no-progress":    "progress.disabled",
}

// Load builds a Config from disk, environment and flags. flags may be nil.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SITECRAWLER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			flag := flags.Lookup(name)
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return Config{}, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("crawler.concurrency", 4)
	v.SetDefault("crawler.user_agent", "sitecrawler")
	v.SetDefault("crawler.lenient_robots", false)
	v.SetDefault("http.timeout", 30*time.Second)
	v.SetDefault("http.max_retries", 2)
	v.SetDefault("http.max_body_bytes", 0)
	v.SetDefault("output.path", "")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")
	v.SetDefault("metrics.textfile", "")
	v.SetDefault("progress.disabled", false)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Crawler.Concurrency <= 0 {
		return fmt.Errorf("crawler.concurrency must be > 0")
	}
	if strings.TrimSpace(c.Crawler.UserAgent) == "" {
		return fmt.Errorf("crawler.user_agent must not be empty")
	}
	if c.HTTP.Timeout <= 0 {
		return fmt.Errorf("http.timeout must be > 0")
	}
	if c.HTTP.MaxRetries < 0 {
		return fmt.Errorf("http.max_retries must be >= 0")
	}
	if c.HTTP.MaxBodyBytes < 0 {
		return fmt.Errorf("http.max_body_bytes must be >= 0")
	}
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	return nil
}
