package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "./ytmix.db" {
			t.Errorf("expected database path ./ytmix.db, got %s", config.Database.Path)
		}

		if config.Server.Port != 3000 {
			t.Errorf("expected server port 3000, got %d", config.Server.Port)
		}

		if config.Generator.PerChannelLimit != 5 || config.Generator.MaxVideos != 50 {
			t.Errorf("unexpected generator limits %+v", config.Generator)
		}

		if config.Generator.ChannelDelay() != 250*time.Millisecond {
			t.Errorf("expected 250ms channel delay, got %v", config.Generator.ChannelDelay())
		}

		if config.Auth.SweepInterval() != time.Minute {
			t.Errorf("expected 1m sweep interval, got %v", config.Auth.SweepInterval())
		}

		if len(config.Credentials.Google.Scopes) != 2 {
			t.Errorf("expected 2 default scopes, got %d", len(config.Credentials.Google.Scopes))
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		if _, err := os.Stat(configPath); err != nil {
			t.Fatalf("config file should exist: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		if config.YouTube.BaseURL != DefaultConfig().YouTube.BaseURL {
			t.Errorf("created config youtube base URL doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("SaveConfig", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")

		config := DefaultConfig()
		config.Credentials.Google.ClientID = "saved-client"
		config.Generator.MaxVideos = 25

		if err := SaveConfig(configPath, config); err != nil {
			t.Fatalf("failed to save config: %v", err)
		}

		loaded, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load saved config: %v", err)
		}

		if loaded.Generator.MaxVideos != 25 {
			t.Errorf("expected max videos 25, got %d", loaded.Generator.MaxVideos)
		}
		if loaded.Credentials.Google.AuthURL != config.Credentials.Google.AuthURL {
			t.Errorf("auth url not preserved: %q", loaded.Credentials.Google.AuthURL)
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[database]
path = "/custom/path.db"

[server]
host = "0.0.0.0"
port = 8080

[credentials.google]
client_id = "test_client_id"

[generator]
per_channel_limit = 3
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Database.Path != "/custom/path.db" {
			t.Errorf("expected database path /custom/path.db, got %s", config.Database.Path)
		}

		if config.Server.Addr() != "0.0.0.0:8080" {
			t.Errorf("expected addr 0.0.0.0:8080, got %s", config.Server.Addr())
		}

		if config.Generator.PerChannelLimit != 3 {
			t.Errorf("expected per channel limit 3, got %d", config.Generator.PerChannelLimit)
		}

		if config.Generator.MaxVideos != 50 {
			t.Errorf("unset values should keep defaults, got max videos %d", config.Generator.MaxVideos)
		}
	})

	t.Run("Environment Overrides", func(t *testing.T) {
		t.Setenv(EnvClientID, "env_client")
		t.Setenv(EnvExchangeURL, "http://exchange.test")
		t.Setenv(EnvDBPath, ":memory:")

		config := DefaultConfig()
		if err := config.ApplyEnv(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if config.Credentials.Google.ClientID != "env_client" {
			t.Errorf("expected env client id, got %s", config.Credentials.Google.ClientID)
		}
		if config.Exchange.BaseURL != "http://exchange.test" {
			t.Errorf("expected env exchange URL, got %s", config.Exchange.BaseURL)
		}
		if config.Database.Path != ":memory:" {
			t.Errorf("expected env db path, got %s", config.Database.Path)
		}
	})

	t.Run("Invalid Port Override", func(t *testing.T) {
		t.Setenv(EnvServerPort, "abc")
		err := DefaultConfig().ApplyEnv()
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("Validate", func(t *testing.T) {
		config := DefaultConfig()
		if err := config.Validate(); err != nil {
			t.Errorf("default config should validate: %v", err)
		}

		config.Credentials.Google.ClientID = ""
		if err := config.Validate(); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})
}
