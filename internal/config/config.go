// Package config reads bot settings from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Run modes selected by MODE.
const (
	ModeDiscord = "discord"
	ModeStatus  = "status"
)

// Config holds all configuration values for the bot.
type Config struct {
	Mode string

	// Discord
	DiscordToken string
	GuildID      string
	AdminRoleID  string
	WebhookURL   string

	// Game server WebAPI
	APIBaseURL  string
	APIPassword string
	APITimeout  time.Duration

	// Refresh loop
	RefreshInterval time.Duration
	PollRetries     int
	CommandRetries  int

	DatabasePath string
	Language     string
	LogLevel     string
}

// LoadDotenv loads .env from the working directory when one exists.
func LoadDotenv() error {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return nil
}

// Load reads configuration from environment variables. Malformed numbers are
// errors; missing required values are reported by Validate.
func Load() (*Config, error) {
	cfg := &Config{
		Mode:         strings.ToLower(getEnvOrDefault("MODE", ModeDiscord)),
		DiscordToken: os.Getenv("DISCORD_BOT_TOKEN"),
		GuildID:      os.Getenv("GUILD_ID"),
		AdminRoleID:  os.Getenv("ADMIN_ROLE_ID"),
		WebhookURL:   os.Getenv("WEBHOOK_URL"),
		APIBaseURL:   strings.TrimRight(os.Getenv("API_BASE_URL"), "/"),
		APIPassword:  os.Getenv("API_PASSWORD"),
		DatabasePath: getEnvOrDefault("DATABASE_PATH", "./data/mtbot.db"),
		Language:     getEnvOrDefault("LANGUAGE", "en"),
		LogLevel:     getEnvOrDefault("LOG_LEVEL", "info"),
	}

	var err error
	if cfg.RefreshInterval, err = getSeconds("REFRESH_INTERVAL_SECONDS", 30); err != nil {
		return nil, err
	}
	if cfg.APITimeout, err = getSeconds("API_TIMEOUT_SECONDS", 5); err != nil {
		return nil, err
	}
	if cfg.PollRetries, err = getInt("POLL_RETRIES", 3); err != nil {
		return nil, err
	}
	if cfg.CommandRetries, err = getInt("COMMAND_RETRIES", 0); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that everything the selected mode needs is present.
func (c *Config) Validate() error {
	var errs []error

	switch c.Mode {
	case ModeDiscord:
		if c.DiscordToken == "" {
			errs = append(errs, errors.New("DISCORD_BOT_TOKEN is required"))
		}
	case ModeStatus:
	default:
		errs = append(errs, fmt.Errorf("MODE must be %q or %q, got %q", ModeDiscord, ModeStatus, c.Mode))
	}

	if c.APIBaseURL == "" {
		errs = append(errs, errors.New("API_BASE_URL is required"))
	} else if u, err := url.Parse(c.APIBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("API_BASE_URL %q is not an absolute URL", c.APIBaseURL))
	}
	if c.APIPassword == "" {
		errs = append(errs, errors.New("API_PASSWORD is required"))
	}
	if c.RefreshInterval <= 0 {
		errs = append(errs, errors.New("REFRESH_INTERVAL_SECONDS must be positive"))
	}
	if c.APITimeout <= 0 {
		errs = append(errs, errors.New("API_TIMEOUT_SECONDS must be positive"))
	}
	if c.PollRetries < 1 {
		errs = append(errs, errors.New("POLL_RETRIES must be at least 1"))
	}
	if c.CommandRetries < 0 {
		errs = append(errs, errors.New("COMMAND_RETRIES must not be negative"))
	}

	return errors.Join(errs...)
}

// SlogLevel maps LOG_LEVEL to a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getSeconds(key string, defaultValue int) (time.Duration, error) {
	n, err := getInt(key, defaultValue)
	if err != nil {
		return 0, err
	}
	return time.Duration(n) * time.Second, nil
}
