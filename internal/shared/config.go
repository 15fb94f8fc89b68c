package shared

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Environment variables that override values from the config file.
const (
	EnvClientID    = "YTMIX_CLIENT_ID"
	EnvExchangeURL = "YTMIX_EXCHANGE_URL"
	EnvDBPath      = "YTMIX_DB_PATH"
	EnvServerPort  = "YTMIX_SERVER_PORT"
)

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Exchange    ExchangeConfig    `toml:"exchange"`
	YouTube     YouTubeConfig     `toml:"youtube"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
	Generator   GeneratorConfig   `toml:"generator"`
	Auth        AuthConfig        `toml:"auth"`
}

// CredentialsConfig contains provider-specific credentials.
type CredentialsConfig struct {
	Google GoogleConfig `toml:"google"`
}

// GoogleConfig holds the public half of the OAuth client.
type GoogleConfig struct {
	ClientID    string   `toml:"client_id"`
	RedirectURI string   `toml:"redirect_uri"`
	AuthURL     string   `toml:"auth_url"`
	Scopes      []string `toml:"scopes"`
}

// ExchangeConfig points at the token exchange backend.
type ExchangeConfig struct {
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// YouTubeConfig contains YouTube Data API settings.
type YouTubeConfig struct {
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains settings for the local redirect capture server.
type ServerConfig struct {
	Host                   string `toml:"host"`
	Port                   int    `toml:"port"`
	CallbackTimeoutSeconds int    `toml:"callback_timeout_seconds"`
}

// GeneratorConfig tunes playlist generation.
type GeneratorConfig struct {
	PerChannelLimit    int    `toml:"per_channel_limit"`
	MaxVideos          int    `toml:"max_videos"`
	PageSize           int    `toml:"page_size"`
	BatchSize          int    `toml:"batch_size"`
	ChannelDelayMS     int    `toml:"channel_delay_ms"`
	ChannelJitterMS    int    `toml:"channel_jitter_ms"`
	MinDurationSeconds int    `toml:"min_duration_seconds"`
	MaxDurationSeconds int    `toml:"max_duration_seconds"`
	PlaylistPrivacy    string `toml:"playlist_privacy"`
}

// AuthConfig tunes the token lifecycle manager.
type AuthConfig struct {
	SweepIntervalSeconds int `toml:"sweep_interval_seconds"`
}

// ChannelDelay returns the pause between channel fetches.
func (g GeneratorConfig) ChannelDelay() time.Duration {
	return time.Duration(g.ChannelDelayMS) * time.Millisecond
}

// ChannelJitter returns the maximum random addition to [GeneratorConfig.ChannelDelay].
func (g GeneratorConfig) ChannelJitter() time.Duration {
	return time.Duration(g.ChannelJitterMS) * time.Millisecond
}

// SweepInterval returns the expiry sweep period.
func (a AuthConfig) SweepInterval() time.Duration {
	return time.Duration(a.SweepIntervalSeconds) * time.Second
}

// CallbackTimeout returns how long the redirect server waits for the browser.
func (s ServerConfig) CallbackTimeout() time.Duration {
	return time.Duration(s.CallbackTimeoutSeconds) * time.Second
}

// Addr returns host:port for the redirect server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Validate reports missing values required to authenticate.
func (c *Config) Validate() error {
	if c.Credentials.Google.ClientID == "" {
		return fmt.Errorf("%w: credentials.google.client_id is required", ErrInvalidConfig)
	}
	if c.Exchange.BaseURL == "" {
		return fmt.Errorf("%w: exchange.base_url is required", ErrInvalidConfig)
	}
	if c.Generator.MinDurationSeconds >= c.Generator.MaxDurationSeconds {
		return fmt.Errorf("%w: generator.min_duration_seconds must be below max_duration_seconds", ErrInvalidConfig)
	}
	return nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file keep the embedded defaults, then environment
// overrides (optionally loaded from a .env file) are applied.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.ApplyEnv(); err != nil {
		return nil, err
	}
	return config, nil
}

// ApplyEnv overlays YTMIX_* variables onto the config. A .env file in the
// working directory is loaded first when present; existing variables win.
func (c *Config) ApplyEnv() error {
	_ = godotenv.Load()

	if v := os.Getenv(EnvClientID); v != "" {
		c.Credentials.Google.ClientID = v
	}
	if v := os.Getenv(EnvExchangeURL); v != "" {
		c.Exchange.BaseURL = v
	}
	if v := os.Getenv(EnvDBPath); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv(EnvServerPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q", ErrInvalidConfig, EnvServerPort, v)
		}
		c.Server.Port = port
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

// SaveConfig writes the config as TOML to path, replacing any existing file.
func SaveConfig(path string, c *Config) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}
