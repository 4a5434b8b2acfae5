package svcwrap

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

// Config contains the settings a Controller uses for every call
type Config struct {
	// HelperPath is the executable the service manager launches; it receives
	// the target path and arguments as start arguments
	HelperPath string `env:"SVCWRAP_HELPER_PATH"`

	// StopGrace is the fixed pause after a stop request before deleting.
	// Zero selects DefaultStopGrace; there is no way to skip the pause.
	StopGrace time.Duration `env:"SVCWRAP_STOP_GRACE"`

	// StopTimeout, when positive, replaces the fixed pause with polling until
	// the service reports stopped or the timeout elapses
	StopTimeout time.Duration `env:"SVCWRAP_STOP_TIMEOUT"`

	// StopPollInterval is the query interval used with StopTimeout; zero
	// selects DefaultStopPollInterval
	StopPollInterval time.Duration `env:"SVCWRAP_STOP_POLL_INTERVAL"`
}

// DefaultConfig returns the configuration used when none is supplied
func DefaultConfig() Config {
	return Config{
		HelperPath:       DefaultHelperPath(),
		StopGrace:        DefaultStopGrace,
		StopPollInterval: DefaultStopPollInterval,
	}
}

// DefaultHelperPath returns executables/svcwrap-helper, with the platform's
// executable suffix
func DefaultHelperPath() string {
	name := "svcwrap-helper"
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	return filepath.Join(DefaultHelperDir, name)
}

// LoadConfig returns DefaultConfig overridden by the SVCWRAP_* environment
// variables. Dotenv files, if given, are loaded first; variables already set
// in the environment take precedence over them.
func LoadConfig(files ...string) (Config, error) {
	if len(files) > 0 {
		if err := godotenv.Load(files...); err != nil {
			return Config{}, configError(OpLoadConfig, fmt.Errorf("loading env files: %w", err))
		}
	}

	cfg := DefaultConfig()
	if err := envdecode.StrictDecode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return Config{}, configError(OpLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that the configuration is usable
func (c Config) Validate() error {
	if c.HelperPath == "" {
		return configError(OpLoadConfig, fmt.Errorf("%s: helper path is empty", EnvHelperPath))
	}
	if c.StopGrace < 0 {
		return configError(OpLoadConfig, fmt.Errorf("%s: negative duration %v", EnvStopGrace, c.StopGrace))
	}
	if c.StopTimeout < 0 {
		return configError(OpLoadConfig, fmt.Errorf("%s: negative duration %v", EnvStopTimeout, c.StopTimeout))
	}
	if c.StopTimeout > 0 && c.StopPollInterval <= 0 {
		return configError(OpLoadConfig, fmt.Errorf("%s: must be positive when %s is set", EnvStopPollInterval, EnvStopTimeout))
	}
	return nil
}

// withDefaults fills zero fields from DefaultConfig
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.HelperPath == "" {
		c.HelperPath = def.HelperPath
	}
	if c.StopGrace == 0 {
		c.StopGrace = def.StopGrace
	}
	if c.StopPollInterval == 0 {
		c.StopPollInterval = def.StopPollInterval
	}
	return c
}
