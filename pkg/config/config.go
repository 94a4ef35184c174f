// Package config provides configuration loading and validation utilities.
package config

import "time"

// Config holds runtime configuration for the pollwallet client.
type Config struct {
	AppEnv   string `mapstructure:"app_env"`
	LogLevel string `mapstructure:"log_level"`
	LogFile  string `mapstructure:"log_file"`

	Authority AuthorityConfig `mapstructure:"authority" validate:"required"`
	Redis     RedisConfig     `mapstructure:"redis" validate:"required"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Sentry    SentryConfig    `mapstructure:"sentry"`
	Client    ClientConfig    `mapstructure:"client"`
}

// AuthorityConfig locates the remote authority.
type AuthorityConfig struct {
	BaseURL string        `mapstructure:"base_url" validate:"required,url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// RedisConfig defines the local durable store connection.
type RedisConfig struct {
	Addr         string        `mapstructure:"addr" validate:"required"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	PoolTimeout  time.Duration `mapstructure:"pool_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// HTTPConfig configures the metrics/health listener.
type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// SentryConfig configures error reporting.
type SentryConfig struct {
	DSN     string `mapstructure:"dsn"`
	Enabled bool   `mapstructure:"enabled"`
}

// ClientConfig tunes client-side behavior.
type ClientConfig struct {
	// RegenTickInterval is how often the client asks the authority to
	// regenerate energy while a session is active.
	RegenTickInterval time.Duration `mapstructure:"regen_tick_interval"`
	// PollRefreshInterval is how often the poll list is refreshed.
	PollRefreshInterval time.Duration `mapstructure:"poll_refresh_interval"`
}

func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Authority.Timeout == 0 {
		c.Authority.Timeout = 10 * time.Second
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":9090"
	}
	if c.HTTP.ShutdownTimeout == 0 {
		c.HTTP.ShutdownTimeout = 10 * time.Second
	}
	if c.Client.RegenTickInterval == 0 {
		c.Client.RegenTickInterval = 2 * time.Second
	}
	if c.Client.PollRefreshInterval == 0 {
		c.Client.PollRefreshInterval = 30 * time.Second
	}
}
