// Package config loads process configuration from defaults, an optional YAML
// file and STUDIO_* environment variables.
package config

import "time"

// Config is the full process configuration.
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Ledger LedgerConfig `mapstructure:"ledger"`
	OpenAI OpenAIConfig `mapstructure:"openai"`
	Chat   ChatConfig   `mapstructure:"chat"`
	Refine RefineConfig `mapstructure:"refine"`
	Image  ImageConfig  `mapstructure:"image"`
	Video  VideoConfig  `mapstructure:"video"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// LedgerConfig locates the usage counter file.
type LedgerConfig struct {
	Path string `mapstructure:"path"`
}

// OpenAIConfig holds provider-level settings shared by chat, refine and image.
type OpenAIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// ChatConfig holds chat completion defaults.
type ChatConfig struct {
	DefaultModel       string  `mapstructure:"default_model"`
	DefaultTemperature float32 `mapstructure:"default_temperature"`
	MaxTokens          int     `mapstructure:"max_tokens"`
}

// RefineConfig holds the model used for stage suggestions and synthesis.
type RefineConfig struct {
	Model string `mapstructure:"model"`
}

// ImageConfig holds image generation settings.
type ImageConfig struct {
	Model string `mapstructure:"model"`
}

// VideoConfig holds video generation settings.
type VideoConfig struct {
	Model        string        `mapstructure:"model"`
	OutputDir    string        `mapstructure:"output_dir"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	MaxPolls     int           `mapstructure:"max_polls"`
}
