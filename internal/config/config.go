package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type AppConfig struct {
	IrisBaseURL string
	IrisWSURL   string

	BotPrefix string

	XUserID    string
	XUserEmail string
	XSessionID string

	// RedisURL empty → in-process table store.
	RedisURL string
	// DatabaseURL empty → finished duels are not archived.
	DatabaseURL string

	AllowedRooms []string

	CheckClockUnits int
	ClockUnit       time.Duration
	TableTTLSec     int
	MessagesDir     string

	Egress       string
	EgressDryRun bool
	// IrisRetryMax bounds attempts for retryable Iris calls (1 disables retry).
	IrisRetryMax int

	Log LogConfig
}

// LogConfig feeds obslog.
type LogConfig struct {
	Level     string
	Format    string // legacy | json | console
	File      string
	ToConsole bool
	ToFile    bool
	Caller    bool
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		CheckClockUnits: 15,
		ClockUnit:       time.Second,
		TableTTLSec:     86400,
		Egress:          "auto",
		IrisRetryMax:    3,
		Log: LogConfig{
			Level:     "info",
			Format:    "legacy",
			File:      filepath.Join("logs", "duel.log"),
			ToConsole: true,
			ToFile:    true,
		},
	}

	cfg.IrisBaseURL = env("IRIS_BASE_URL")
	cfg.IrisWSURL = env("IRIS_WS_URL")
	cfg.BotPrefix = env("BOT_PREFIX")

	cfg.XUserID = env("X_USER_ID")
	cfg.XUserEmail = env("X_USER_EMAIL")
	cfg.XSessionID = env("X_SESSION_ID")

	cfg.RedisURL = env("REDIS_URL")
	cfg.DatabaseURL = env("DATABASE_URL")
	cfg.MessagesDir = env("DUEL_MESSAGES_DIR")

	if v := env("ALLOWED_ROOMS"); v != "" {
		for _, p := range strings.Split(v, ",") {
			if s := strings.TrimSpace(p); s != "" {
				cfg.AllowedRooms = append(cfg.AllowedRooms, s)
			}
		}
	}

	if v := env("DUEL_CHECK_CLOCK"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("DUEL_CHECK_CLOCK must be a positive integer: %q", v)
		}
		cfg.CheckClockUnits = n
	}
	if v := env("DUEL_CLOCK_UNIT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("DUEL_CLOCK_UNIT must be a positive duration: %q", v)
		}
		cfg.ClockUnit = d
	}
	if v := env("DUEL_TABLE_TTL"); v != "" { // seconds
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.TableTTLSec = n
		}
	}

	if v := strings.ToLower(env("IRIS_EGRESS")); v != "" {
		switch v {
		case "http", "ws", "auto":
			cfg.Egress = v
		default:
			return nil, fmt.Errorf("IRIS_EGRESS must be http, ws or auto: %q", v)
		}
	}
	if v := env("IRIS_EGRESS_DRYRUN"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.EgressDryRun = b
		}
	}

	if v := env("IRIS_RETRY_MAX"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("IRIS_RETRY_MAX must be at least 1: %q", v)
		}
		cfg.IrisRetryMax = n
	}

	if v := env("LOG_LEVEL"); v != "" {
		cfg.Log.Level = strings.ToLower(v)
	}
	if v := strings.ToLower(env("LOG_FORMAT")); v != "" {
		switch v {
		case "legacy", "json", "console":
			cfg.Log.Format = v
		default:
			return nil, fmt.Errorf("LOG_FORMAT must be legacy, json or console: %q", v)
		}
	}
	if v := env("LOG_FILE"); v != "" {
		cfg.Log.File = v
	}
	cfg.Log.ToConsole = envBool("LOG_TO_CONSOLE", cfg.Log.ToConsole)
	cfg.Log.ToFile = envBool("LOG_TO_FILE", cfg.Log.ToFile)
	cfg.Log.Caller = envBool("LOG_CALLER", cfg.Log.Caller)

	if cfg.IrisBaseURL == "" {
		return nil, errors.New("IRIS_BASE_URL is required")
	}
	if cfg.IrisWSURL == "" {
		return nil, errors.New("IRIS_WS_URL is required")
	}
	if cfg.BotPrefix == "" {
		return nil, errors.New("BOT_PREFIX is required")
	}

	return cfg, nil
}

// TableTTL is the Redis expiry of an idle duel table.
func (c *AppConfig) TableTTL() time.Duration {
	return time.Duration(c.TableTTLSec) * time.Second
}

// RoomAllowed reports whether the bot should answer in room. An empty
// allow-list admits every room.
func (c *AppConfig) RoomAllowed(room string) bool {
	if len(c.AllowedRooms) == 0 {
		return true
	}
	for _, r := range c.AllowedRooms {
		if r == room {
			return true
		}
	}
	return false
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

// IrisHeaders returns the auth headers sent on every Iris request and on the
// WebSocket handshake.
func (c *AppConfig) IrisHeaders() map[string]string {
	h := map[string]string{}
	if c.XUserID != "" {
		h["X-User-Id"] = c.XUserID
	}
	if c.XUserEmail != "" {
		h["X-User-Email"] = c.XUserEmail
	}
	if c.XSessionID != "" {
		h["X-Session-Id"] = c.XSessionID
	}
	return h
}

func envBool(key string, def bool) bool {
	if b, err := strconv.ParseBool(env(key)); err == nil {
		return b
	}
	return def
}
