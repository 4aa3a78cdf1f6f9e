package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default config should validate, got %v", err)
	}
	if cfg.HTTP.Port != 10000 {
		t.Errorf("Expected default port 10000, got %d", cfg.HTTP.Port)
	}
	if cfg.Timer.DefaultLength != 10 || cfg.Timer.DefaultRevealAt != 3 {
		t.Errorf("Expected timer defaults 10/3, got %d/%d", cfg.Timer.DefaultLength, cfg.Timer.DefaultRevealAt)
	}
	if len(cfg.AllowedOrigins) == 0 {
		t.Error("Expected at least one default allowed origin")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HTTP.Port = 0
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for port 0")
	}

	cfg = DefaultConfig()
	cfg.Timer.DefaultRevealAt = cfg.Timer.DefaultLength
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error when reveal threshold equals timer length")
	}

	cfg = DefaultConfig()
	cfg.AllowedOrigins = nil
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for empty allowed origins")
	}

	cfg = DefaultConfig()
	cfg.Database.Path = ""
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for empty database path")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("CHESSCLUB_ALLOWED_ORIGINS", "http://a.example, https://b.example")
	t.Setenv("CHESSCLUB_TIMER_LENGTH", "20")
	t.Setenv("CHESSCLUB_WEBSOCKET_PING_INTERVAL", "15s")

	cfg := LoadFromEnv()

	if cfg.HTTP.Port != 9000 {
		t.Errorf("Expected port 9000 from PORT, got %d", cfg.HTTP.Port)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example" {
		t.Errorf("Expected two trimmed origins, got %v", cfg.AllowedOrigins)
	}
	if cfg.Timer.DefaultLength != 20 {
		t.Errorf("Expected timer length 20, got %d", cfg.Timer.DefaultLength)
	}
	if cfg.WebSocket.PingInterval != 15*time.Second {
		t.Errorf("Expected ping interval 15s, got %v", cfg.WebSocket.PingInterval)
	}
}

func TestEnvPortPrecedence(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("CHESSCLUB_HTTP_PORT", "9001")

	cfg := LoadFromEnv()
	if cfg.HTTP.Port != 9001 {
		t.Errorf("Expected CHESSCLUB_HTTP_PORT to win, got %d", cfg.HTTP.Port)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	content := `{
		"http": {"port": 8088, "read_timeout": "45s"},
		"timer": {"default_length": 30, "default_reveal_at": 5},
		"allowed_origins": ["https://science.mom"]
	}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("Expected config file to load, got %v", err)
	}
	if cfg.HTTP.Port != 8088 {
		t.Errorf("Expected port 8088, got %d", cfg.HTTP.Port)
	}
	if cfg.HTTP.ReadTimeout != 45*time.Second {
		t.Errorf("Expected read timeout 45s, got %v", cfg.HTTP.ReadTimeout)
	}
	if cfg.Timer.DefaultLength != 30 || cfg.Timer.DefaultRevealAt != 5 {
		t.Errorf("Expected timer 30/5, got %d/%d", cfg.Timer.DefaultLength, cfg.Timer.DefaultRevealAt)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "https://science.mom" {
		t.Errorf("Expected single configured origin, got %v", cfg.AllowedOrigins)
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	if _, err := LoadFromFile("/nonexistent/config.json"); err == nil {
		t.Error("Expected error for missing config file")
	}
}

func TestLoadConfigWithPrecedenceFallsBack(t *testing.T) {
	cfg := LoadConfigWithPrecedence("/nonexistent/config.json")
	if cfg == nil {
		t.Fatal("Expected a config even when file is missing")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Fallback config should validate, got %v", err)
	}
}
