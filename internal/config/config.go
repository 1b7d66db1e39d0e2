package config

import "time"

// Config holds client configuration values.
type Config struct {
	ServerURL     string        `mapstructure:"server_url" yaml:"server_url"`
	StatePath     string        `mapstructure:"state_path" yaml:"state_path"`
	LogLevel      string        `mapstructure:"log_level" yaml:"log_level"`
	DialTimeout   time.Duration `mapstructure:"dial_timeout" yaml:"dial_timeout"`
	InvokeTimeout time.Duration `mapstructure:"invoke_timeout" yaml:"invoke_timeout"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		ServerURL:     "ws://localhost:8080/poker",
		StatePath:     "poker-state.db",
		LogLevel:      "info",
		DialTimeout:   10 * time.Second,
		InvokeTimeout: 10 * time.Second,
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.ServerURL != "" {
		c.ServerURL = other.ServerURL
	}
	if other.StatePath != "" {
		c.StatePath = other.StatePath
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.DialTimeout != 0 {
		c.DialTimeout = other.DialTimeout
	}
	if other.InvokeTimeout != 0 {
		c.InvokeTimeout = other.InvokeTimeout
	}
}
