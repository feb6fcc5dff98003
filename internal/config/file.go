package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/taleyport/internal/errors"
)

// fileConfig is the on-disk layout. Durations are written as Go duration
// strings ("10s") which viper reads back.
type fileConfig struct {
	Backend struct {
		URL              string `yaml:"url"`
		Timeout          string `yaml:"timeout"`
		SessionCookie    string `yaml:"session_cookie,omitempty"`
		ValidateContract bool   `yaml:"validate_contract"`
	} `yaml:"backend"`
	Poll struct {
		Interval          string  `yaml:"interval"`
		MaxAttempts       int     `yaml:"max_attempts"`
		BackoffMultiplier float64 `yaml:"backoff_multiplier"`
		MaxInterval       string  `yaml:"max_interval"`
	} `yaml:"poll"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Telemetry struct {
		Enabled    bool    `yaml:"enabled"`
		Endpoint   string  `yaml:"endpoint"`
		Insecure   bool    `yaml:"insecure"`
		SampleRate float64 `yaml:"sample_rate"`
	} `yaml:"telemetry"`
	Metrics struct {
		Addr string `yaml:"addr"`
	} `yaml:"metrics"`
	UI struct {
		Color bool `yaml:"color"`
		Plain bool `yaml:"plain"`
	} `yaml:"ui"`
}

func durationString(d time.Duration) string {
	if d == 0 {
		return "0s"
	}
	return d.String()
}

// YAML renders the configuration as the config file would store it.
// The session cookie is redacted unless includeSecrets is set.
func (c *Config) YAML(includeSecrets bool) ([]byte, error) {
	var f fileConfig
	f.Backend.URL = c.Backend.URL
	f.Backend.Timeout = durationString(c.Backend.Timeout)
	f.Backend.SessionCookie = c.Backend.SessionCookie
	if !includeSecrets && f.Backend.SessionCookie != "" {
		f.Backend.SessionCookie = "<redacted>"
	}
	f.Backend.ValidateContract = c.Backend.ValidateContract
	f.Poll.Interval = durationString(c.Poll.Interval)
	f.Poll.MaxAttempts = c.Poll.MaxAttempts
	f.Poll.BackoffMultiplier = c.Poll.BackoffMultiplier
	f.Poll.MaxInterval = durationString(c.Poll.MaxInterval)
	f.Log.Level = c.Log.Level
	f.Log.Format = c.Log.Format
	f.Telemetry.Enabled = c.Telemetry.Enabled
	f.Telemetry.Endpoint = c.Telemetry.Endpoint
	f.Telemetry.Insecure = c.Telemetry.Insecure
	f.Telemetry.SampleRate = c.Telemetry.SampleRate
	f.Metrics.Addr = c.Metrics.Addr
	f.UI.Color = c.UI.Color
	f.UI.Plain = c.UI.Plain

	data, err := yaml.Marshal(&f)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFileMarshal, "failed to marshal configuration", err)
	}
	return data, nil
}

// Save writes the configuration to path, creating parent directories.
// An existing file is only replaced when overwrite is set.
func (c *Config) Save(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return errors.New(errors.ErrCodeFileWriteFailed, "config file already exists: "+path).
				WithSuggestion("Pass --force to overwrite it")
		}
	}

	data, err := c.YAML(true)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(errors.ErrCodeDirectoryFailed, "failed to create config directory", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return errors.Wrap(errors.ErrCodeFileWriteFailed, "failed to write config file", err)
	}
	return nil
}
