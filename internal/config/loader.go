package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. STUDIO_SERVER_PORT.
const EnvPrefix = "STUDIO"

var placeholder = regexp.MustCompile(`\${(\w+)(:([^}]*))?}`)

// Load builds the configuration in priority order: defaults, then the YAML
// file at path (skipped when path is empty or the file is missing and
// optional), then environment variables.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	if path == "" {
		path = os.Getenv(EnvPrefix + "_CONFIG")
	}
	if path != "" {
		if err := loadConfigFile(v, path); err != nil {
			return nil, err
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values the server cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Ledger.Path == "" {
		return fmt.Errorf("ledger.path is required")
	}
	if c.Video.PollInterval <= 0 {
		return fmt.Errorf("video.poll_interval must be positive")
	}
	if c.Video.MaxPolls <= 0 {
		return fmt.Errorf("video.max_polls must be positive")
	}
	return nil
}

func loadConfigFile(v *viper.Viper, path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := v.ReadConfig(strings.NewReader(expandEnv(string(content)))); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// expandEnv replaces ${VAR} and ${VAR:default} placeholders. Undefined
// variables without a default are left as written.
func expandEnv(s string) string {
	return placeholder.ReplaceAllStringFunc(s, func(match string) string {
		sub := placeholder.FindStringSubmatch(match)
		if val, ok := os.LookupEnv(sub[1]); ok {
			return val
		}
		if sub[2] != "" {
			return sub[3]
		}
		return match
	})
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "120s")
	v.SetDefault("server.idle_timeout", "60s")

	v.SetDefault("ledger.path", "global_stats.json")

	v.SetDefault("openai.base_url", "")
	v.SetDefault("openai.timeout", "120s")

	v.SetDefault("chat.default_model", "gpt-3.5-turbo")
	v.SetDefault("chat.default_temperature", 0.7)
	v.SetDefault("chat.max_tokens", 1000)

	v.SetDefault("refine.model", "gpt-4")

	v.SetDefault("image.model", "dall-e-3")

	v.SetDefault("video.model", "veo-2.0-generate-001")
	v.SetDefault("video.output_dir", ".")
	v.SetDefault("video.poll_interval", "20s")
	v.SetDefault("video.max_polls", 60)
}
