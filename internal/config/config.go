// Package config loads taleyport settings from defaults, the config file,
// .env files, TALEYPORT_* environment variables and command-line flags, in
// increasing order of precedence.
package config

import (
	stderrors "errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/felixgeelhaar/taleyport/internal/errors"
)

// EnvPrefix is the prefix of environment overrides, e.g. TALEYPORT_BACKEND_URL.
const EnvPrefix = "TALEYPORT"

// Config holds the application configuration.
type Config struct {
	Home      string          `mapstructure:"home"`
	Backend   BackendConfig   `mapstructure:"backend"`
	Poll      PollConfig      `mapstructure:"poll"`
	Log       LogConfig       `mapstructure:"log"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	UI        UIConfig        `mapstructure:"ui"`
}

// BackendConfig describes how to reach the story video backend.
type BackendConfig struct {
	URL              string        `mapstructure:"url"`
	Timeout          time.Duration `mapstructure:"timeout"`
	SessionCookie    string        `mapstructure:"session_cookie"`
	ValidateContract bool          `mapstructure:"validate_contract"`
}

// PollConfig tunes the task status poller.
type PollConfig struct {
	Interval          time.Duration `mapstructure:"interval"`
	MaxAttempts       int           `mapstructure:"max_attempts"`
	BackoffMultiplier float64       `mapstructure:"backoff_multiplier"`
	MaxInterval       time.Duration `mapstructure:"max_interval"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TelemetryConfig holds tracing settings.
type TelemetryConfig struct {
	Enabled    bool    `mapstructure:"enabled"`
	Endpoint   string  `mapstructure:"endpoint"`
	Insecure   bool    `mapstructure:"insecure"`
	SampleRate float64 `mapstructure:"sample_rate"`
}

// MetricsConfig holds the Prometheus endpoint address; empty disables it.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// UIConfig holds terminal output settings.
type UIConfig struct {
	Color bool `mapstructure:"color"`
	Plain bool `mapstructure:"plain"`
}

// FlagBindings maps config keys to persistent flag names.
var FlagBindings = map[string]string{
	"home":         "home",
	"backend.url":  "backend-url",
	"log.level":    "log-level",
	"log.format":   "log-format",
	"metrics.addr": "metrics-addr",
	"ui.plain":     "plain",
}

// LoadOptions controls where configuration is read from.
type LoadOptions struct {
	// ConfigFile overrides <home>/config.yaml.
	ConfigFile string
	// Flags are bound on top of every other source.
	Flags *pflag.FlagSet
	// EnvFiles are loaded with godotenv; missing files are ignored.
	// Defaults to ".env" in the working directory and <home>/.env.
	EnvFiles []string
}

// DefaultHome returns ~/.taleyport.
func DefaultHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".taleyport"
	}
	return filepath.Join(home, ".taleyport")
}

// Load reads configuration from all sources.
func Load(opts LoadOptions) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.Flags != nil {
		for key, name := range FlagBindings {
			if f := opts.Flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, errors.Wrap(errors.ErrCodeConfigLoad, "failed to bind flag "+name, err)
				}
			}
		}
		if f := opts.Flags.Lookup("no-color"); f != nil && f.Changed {
			v.Set("ui.color", false)
		}
	}

	home := expandHome(v.GetString("home"))

	envFiles := opts.EnvFiles
	if envFiles == nil {
		envFiles = []string{".env", filepath.Join(home, ".env")}
	}
	if err := loadEnvFiles(envFiles); err != nil {
		return nil, err
	}
	// .env may have set TALEYPORT_HOME.
	home = expandHome(v.GetString("home"))

	configFile := opts.ConfigFile
	if configFile == "" {
		configFile = filepath.Join(home, "config.yaml")
	}
	v.SetConfigFile(configFile)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		missing := isNotExist(err) || stderrors.As(err, &notFound)
		switch {
		case missing && opts.ConfigFile != "":
			return nil, errors.NewFileNotFoundError(configFile)
		case !missing:
			return nil, errors.NewFileUnmarshalError(configFile, "yaml", err).
				WithSuggestion("Run 'taleyport config init --force' to rewrite the file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfigLoad, "failed to decode configuration", err)
	}
	cfg.Home = expandHome(cfg.Home)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	cfg.Home = expandHome(cfg.Home)
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("home", DefaultHome())

	v.SetDefault("backend.url", "http://localhost:5001")
	v.SetDefault("backend.timeout", 60*time.Second)
	v.SetDefault("backend.session_cookie", "")
	v.SetDefault("backend.validate_contract", false)

	v.SetDefault("poll.interval", 10*time.Second)
	v.SetDefault("poll.max_attempts", 0)
	v.SetDefault("poll.backoff_multiplier", 1.0)
	v.SetDefault("poll.max_interval", time.Duration(0))

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.endpoint", "")
	v.SetDefault("telemetry.insecure", false)
	v.SetDefault("telemetry.sample_rate", 1.0)

	v.SetDefault("metrics.addr", "")

	v.SetDefault("ui.color", true)
	v.SetDefault("ui.plain", false)
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Backend.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New(errors.ErrCodeConfigInvalid, fmt.Sprintf("invalid backend url %q", c.Backend.URL)).
			WithSuggestion("Use an absolute http(s) URL, e.g. http://localhost:5001")
	}
	if c.Backend.Timeout <= 0 {
		return errors.New(errors.ErrCodeConfigInvalid, "backend.timeout must be positive")
	}
	if c.Poll.Interval <= 0 {
		return errors.New(errors.ErrCodeConfigInvalid, "poll.interval must be positive")
	}
	if c.Poll.MaxAttempts < 0 {
		return errors.New(errors.ErrCodeConfigInvalid, "poll.max_attempts must not be negative")
	}
	if c.Poll.BackoffMultiplier < 1.0 {
		return errors.New(errors.ErrCodeConfigInvalid, "poll.backoff_multiplier must be at least 1.0")
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return errors.New(errors.ErrCodeConfigInvalid, fmt.Sprintf("unknown log level %q", c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return errors.New(errors.ErrCodeConfigInvalid, fmt.Sprintf("unknown log format %q", c.Log.Format))
	}
	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		return errors.New(errors.ErrCodeConfigInvalid, "telemetry.sample_rate must be between 0 and 1")
	}
	return nil
}

// SessionsDir is where poll checkpoints are stored.
func (c *Config) SessionsDir() string {
	return filepath.Join(c.Home, "sessions")
}

// ConfigPath is the default config file location.
func (c *Config) ConfigPath() string {
	return filepath.Join(c.Home, "config.yaml")
}

func loadEnvFiles(paths []string) error {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return errors.NewFileUnmarshalError(p, "dotenv", err)
		}
	}
	return nil
}

func expandHome(p string) string {
	if p == "" || p[0] != '~' {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, p[1:])
}

func isNotExist(err error) bool {
	var pathErr *os.PathError
	return stderrors.As(err, &pathErr) && os.IsNotExist(pathErr)
}
