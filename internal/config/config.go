package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the full runtime configuration for the voting server.
type Config struct {
	HTTP           *HTTPConfig      `json:"http"`
	WebSocket      *WebSocketConfig `json:"websocket"`
	Database       *DatabaseConfig  `json:"database"`
	Timer          *TimerConfig     `json:"timer"`
	AllowedOrigins []string         `json:"allowed_origins"`
}

type HTTPConfig struct {
	Host         string        `json:"host"`
	Port         int           `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
}

type WebSocketConfig struct {
	PingInterval time.Duration `json:"ping_interval"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
}

// DatabaseConfig locates the sqlite move archive.
type DatabaseConfig struct {
	Path string `json:"path"`
}

// TimerConfig holds the process-wide countdown defaults used when a room has
// no stored values and the teacher supplies none (or invalid ones).
type TimerConfig struct {
	DefaultLength   int `json:"default_length"`
	DefaultRevealAt int `json:"default_reveal_at"`
}

// DefaultConfig serves a local classroom out of the box: port 10000, the Vite
// dev server as the only allowed origin, 10 second countdown revealing at 3.
func DefaultConfig() *Config {
	return &Config{
		HTTP: &HTTPConfig{
			Host:         "0.0.0.0",
			Port:         10000,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		WebSocket: &WebSocketConfig{
			PingInterval: 30 * time.Second,
			ReadTimeout:  60 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Database: &DatabaseConfig{
			Path: "./chessclub.db",
		},
		Timer: &TimerConfig{
			DefaultLength:   10,
			DefaultRevealAt: 3,
		},
		AllowedOrigins: []string{"http://localhost:5173"},
	}
}

// Validate rejects configurations that cannot produce a working server.
func (c *Config) Validate() error {
	if c.HTTP == nil {
		return fmt.Errorf("HTTP configuration is required")
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("HTTP port must be between 1 and 65535")
	}
	if c.HTTP.Host == "" {
		return fmt.Errorf("HTTP host cannot be empty")
	}
	if c.HTTP.ReadTimeout <= 0 || c.HTTP.WriteTimeout <= 0 {
		return fmt.Errorf("HTTP timeouts must be positive")
	}
	if c.WebSocket == nil {
		return fmt.Errorf("WebSocket configuration is required")
	}
	if c.WebSocket.PingInterval <= 0 || c.WebSocket.ReadTimeout <= 0 || c.WebSocket.WriteTimeout <= 0 {
		return fmt.Errorf("WebSocket intervals must be positive")
	}
	if c.Database == nil || c.Database.Path == "" {
		return fmt.Errorf("database path cannot be empty")
	}
	if c.Timer == nil {
		return fmt.Errorf("timer configuration is required")
	}
	if c.Timer.DefaultLength <= 0 {
		return fmt.Errorf("default timer length must be positive")
	}
	if c.Timer.DefaultRevealAt <= 0 || c.Timer.DefaultRevealAt >= c.Timer.DefaultLength {
		return fmt.Errorf("default reveal threshold must be between 0 and the timer length")
	}
	if len(c.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one allowed origin is required")
	}
	return nil
}

// LoadFromEnv returns the defaults overridden by environment variables.
// PORT is honored alongside CHESSCLUB_HTTP_PORT for platform deployments.
func LoadFromEnv() *Config {
	config := DefaultConfig()

	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.HTTP.Port = p
		}
	}
	if port := os.Getenv("CHESSCLUB_HTTP_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.HTTP.Port = p
		}
	}
	if host := os.Getenv("CHESSCLUB_HTTP_HOST"); host != "" {
		config.HTTP.Host = host
	}
	if origins := os.Getenv("CHESSCLUB_ALLOWED_ORIGINS"); origins != "" {
		parts := strings.Split(origins, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			config.AllowedOrigins = trimmed
		}
	}
	if dbPath := os.Getenv("CHESSCLUB_DATABASE_PATH"); dbPath != "" {
		config.Database.Path = dbPath
	}
	if length := os.Getenv("CHESSCLUB_TIMER_LENGTH"); length != "" {
		if n, err := strconv.Atoi(length); err == nil && n > 0 {
			config.Timer.DefaultLength = n
		}
	}
	if reveal := os.Getenv("CHESSCLUB_TIMER_REVEAL_AT"); reveal != "" {
		if n, err := strconv.Atoi(reveal); err == nil && n > 0 {
			config.Timer.DefaultRevealAt = n
		}
	}
	if readTimeout := os.Getenv("CHESSCLUB_HTTP_READ_TIMEOUT"); readTimeout != "" {
		if timeout, err := time.ParseDuration(readTimeout); err == nil {
			config.HTTP.ReadTimeout = timeout
		}
	}
	if writeTimeout := os.Getenv("CHESSCLUB_HTTP_WRITE_TIMEOUT"); writeTimeout != "" {
		if timeout, err := time.ParseDuration(writeTimeout); err == nil {
			config.HTTP.WriteTimeout = timeout
		}
	}
	if pingInterval := os.Getenv("CHESSCLUB_WEBSOCKET_PING_INTERVAL"); pingInterval != "" {
		if interval, err := time.ParseDuration(pingInterval); err == nil {
			config.WebSocket.PingInterval = interval
		}
	}
	if wsReadTimeout := os.Getenv("CHESSCLUB_WEBSOCKET_READ_TIMEOUT"); wsReadTimeout != "" {
		if timeout, err := time.ParseDuration(wsReadTimeout); err == nil {
			config.WebSocket.ReadTimeout = timeout
		}
	}
	if wsWriteTimeout := os.Getenv("CHESSCLUB_WEBSOCKET_WRITE_TIMEOUT"); wsWriteTimeout != "" {
		if timeout, err := time.ParseDuration(wsWriteTimeout); err == nil {
			config.WebSocket.WriteTimeout = timeout
		}
	}

	return config
}

// ConfigFile is the JSON structure for file-based configuration. Durations
// are strings so files can say "30s" rather than nanosecond counts.
type ConfigFile struct {
	HTTP           *HTTPConfigFile      `json:"http"`
	WebSocket      *WebSocketConfigFile `json:"websocket"`
	Database       *DatabaseConfig      `json:"database"`
	Timer          *TimerConfig         `json:"timer"`
	AllowedOrigins []string             `json:"allowed_origins"`
}

type HTTPConfigFile struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	ReadTimeout  string `json:"read_timeout"`
	WriteTimeout string `json:"write_timeout"`
}

type WebSocketConfigFile struct {
	PingInterval string `json:"ping_interval"`
	ReadTimeout  string `json:"read_timeout"`
	WriteTimeout string `json:"write_timeout"`
}

// LoadFromFile reads a JSON configuration file over the defaults.
func LoadFromFile(filepath string) (*Config, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", filepath, err)
	}

	var configFile ConfigFile
	if err := json.Unmarshal(data, &configFile); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", filepath, err)
	}

	config := DefaultConfig()

	if configFile.HTTP != nil {
		if configFile.HTTP.Port > 0 {
			config.HTTP.Port = configFile.HTTP.Port
		}
		if configFile.HTTP.Host != "" {
			config.HTTP.Host = configFile.HTTP.Host
		}
		if configFile.HTTP.ReadTimeout != "" {
			if timeout, err := time.ParseDuration(configFile.HTTP.ReadTimeout); err == nil {
				config.HTTP.ReadTimeout = timeout
			}
		}
		if configFile.HTTP.WriteTimeout != "" {
			if timeout, err := time.ParseDuration(configFile.HTTP.WriteTimeout); err == nil {
				config.HTTP.WriteTimeout = timeout
			}
		}
	}

	if configFile.WebSocket != nil {
		if configFile.WebSocket.PingInterval != "" {
			if interval, err := time.ParseDuration(configFile.WebSocket.PingInterval); err == nil {
				config.WebSocket.PingInterval = interval
			}
		}
		if configFile.WebSocket.ReadTimeout != "" {
			if timeout, err := time.ParseDuration(configFile.WebSocket.ReadTimeout); err == nil {
				config.WebSocket.ReadTimeout = timeout
			}
		}
		if configFile.WebSocket.WriteTimeout != "" {
			if timeout, err := time.ParseDuration(configFile.WebSocket.WriteTimeout); err == nil {
				config.WebSocket.WriteTimeout = timeout
			}
		}
	}

	if configFile.Database != nil && configFile.Database.Path != "" {
		config.Database.Path = configFile.Database.Path
	}

	if configFile.Timer != nil {
		if configFile.Timer.DefaultLength > 0 {
			config.Timer.DefaultLength = configFile.Timer.DefaultLength
		}
		if configFile.Timer.DefaultRevealAt > 0 {
			config.Timer.DefaultRevealAt = configFile.Timer.DefaultRevealAt
		}
	}

	if len(configFile.AllowedOrigins) > 0 {
		config.AllowedOrigins = configFile.AllowedOrigins
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", filepath, err)
	}

	return config, nil
}

// LoadConfigWithPrecedence resolves configuration as file > environment > defaults.
func LoadConfigWithPrecedence(filepath string) *Config {
	config := LoadFromEnv()

	if filepath != "" {
		if fileConfig, err := LoadFromFile(filepath); err == nil {
			config = fileConfig
		}
		// File errors fall back to environment/defaults.
	}

	return config
}
