package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/ilyakaznacheev/cleanenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	API     APIConfig     `toml:"api"`
	Storage StorageConfig `toml:"storage"`
	IP      IPConfig      `toml:"ip"`
	Reset   ResetConfig   `toml:"reset"`
	Bulk    BulkConfig    `toml:"bulk"`
}

// APIConfig contains backend connection settings.
type APIConfig struct {
	BaseURL        string `toml:"base_url" env:"REELGATE_API_BASE_URL"`
	TimeoutSeconds int    `toml:"timeout_seconds" env:"REELGATE_API_TIMEOUT_SECONDS"`
	UserAgent      string `toml:"user_agent" env:"REELGATE_API_USER_AGENT"`
	ValidateTokens bool   `toml:"validate_tokens" env:"REELGATE_API_VALIDATE_TOKENS"`
}

// StorageConfig contains durable credential storage settings.
type StorageConfig struct {
	Path         string `toml:"path" env:"REELGATE_STORAGE_PATH"`
	MaxOpenConns int    `toml:"max_open_conns" env:"REELGATE_STORAGE_MAX_OPEN_CONNS"`
	MaxIdleConns int    `toml:"max_idle_conns" env:"REELGATE_STORAGE_MAX_IDLE_CONNS"`
}

// IPConfig contains client IP lookup settings.
type IPConfig struct {
	TimeoutSeconds   int         `toml:"timeout_seconds" env:"REELGATE_IP_TIMEOUT_SECONDS"`
	Fallback         string      `toml:"fallback" env:"REELGATE_IP_FALLBACK"`
	LoopbackShortcut bool        `toml:"loopback_shortcut" env:"REELGATE_IP_LOOPBACK_SHORTCUT"`
	Services         []IPService `toml:"services"`
}

// IPService is a public IP lookup endpoint. Format is "json" (an {"ip": ...} object) or "text".
type IPService struct {
	URL    string `toml:"url"`
	Format string `toml:"format"`
}

// ResetConfig contains password reset flow settings.
type ResetConfig struct {
	RedirectDelayMS int `toml:"redirect_delay_ms" env:"REELGATE_RESET_REDIRECT_DELAY_MS"`
}

// BulkConfig contains settings for concurrent catalogue fetches.
type BulkConfig struct {
	Workers   int     `toml:"workers" env:"REELGATE_BULK_WORKERS"`
	RateLimit float64 `toml:"rate_limit" env:"REELGATE_BULK_RATE_LIMIT"`
}

// Timeout returns the per-request backend timeout.
func (c APIConfig) Timeout() time.Duration {
	return seconds(c.TimeoutSeconds, 5)
}

// Timeout returns the per-service IP lookup timeout.
func (c IPConfig) Timeout() time.Duration {
	return seconds(c.TimeoutSeconds, 5)
}

// RedirectDelay returns how long to wait before returning to the login view after a reset.
func (c ResetConfig) RedirectDelay() time.Duration {
	if c.RedirectDelayMS < 0 {
		return 0
	}
	return time.Duration(c.RedirectDelayMS) * time.Millisecond
}

func seconds(n, fallback int) time.Duration {
	if n <= 0 {
		n = fallback
	}
	return time.Duration(n) * time.Second
}

// LoadConfig reads and parses a TOML configuration file from the specified path, then applies environment overrides.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	if err := ApplyEnv(config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// ApplyEnv overwrites config fields with any REELGATE_* environment variables that are set.
func ApplyEnv(config *Config) error {
	if err := cleanenv.ReadEnv(config); err != nil {
		return fmt.Errorf("%w: failed to read environment: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Validate checks required settings.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("%w: api.base_url is required", ErrInvalidConfig)
	}
	if c.Storage.Path == "" {
		return fmt.Errorf("%w: storage.path is required", ErrInvalidConfig)
	}
	for i, svc := range c.IP.Services {
		if svc.URL == "" {
			return fmt.Errorf("%w: ip.services[%d].url is required", ErrInvalidConfig, i)
		}
		if svc.Format != "json" && svc.Format != "text" {
			return fmt.Errorf("%w: ip.services[%d].format must be json or text", ErrInvalidConfig, i)
		}
	}
	return nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
