// Package obslog owns the process-wide zap logger.
package obslog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/park285/Cheese-Duel/internal/config"
)

// Service is attached to every line so duel logs can be told apart when
// several bots share a collector.
const Service = "duel-bot"

var globalLogger = zap.NewNop()

// L returns the process logger. It is a no-op logger until Init runs.
func L() *zap.Logger { return globalLogger }

// Init builds the logger from cfg and installs it as L(). The returned
// closer flushes and closes the log file.
func Init(cfg config.LogConfig) (func() error, error) {
	logger, closer, err := New(cfg)
	if err != nil {
		return nil, err
	}
	globalLogger = logger
	return closer, nil
}

// New builds a logger without touching L(). Console and file cores share one
// encoder; a config with neither falls back to a stdout development encoder.
func New(cfg config.LogConfig) (*zap.Logger, func() error, error) {
	level := parseLevel(cfg.Level)
	format := strings.ToLower(strings.TrimSpace(cfg.Format))
	enc := encoderFor(format)

	var (
		cores []zapcore.Core
		file  *os.File
	)
	if cfg.ToConsole {
		cores = append(cores, zapcore.NewCore(enc, zapcore.AddSync(os.Stdout), level))
	}
	if cfg.ToFile && strings.TrimSpace(cfg.File) != "" {
		if err := ensureDir(filepath.Dir(cfg.File)); err != nil {
			return nil, nil, fmt.Errorf("log dir: %w", err)
		}
		f, err := os.OpenFile(cfg.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		file = f
		cores = append(cores, zapcore.NewCore(enc.Clone(), zapcore.AddSync(f), level))
	}
	if len(cores) == 0 {
		dev := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
		cores = append(cores, zapcore.NewCore(dev, zapcore.AddSync(os.Stdout), level))
	}

	opts := []zap.Option{zap.AddStacktrace(zapcore.ErrorLevel)}
	// legacy 포맷은 항상 호출 위치를 찍는다.
	if cfg.Caller || format == "legacy" || format == "" {
		opts = append(opts, zap.AddCaller())
	}
	logger := zap.New(zapcore.NewTee(cores...), opts...).With(zap.String("service", Service))

	closer := func() error {
		_ = logger.Sync()
		if file != nil {
			return file.Close()
		}
		return nil
	}
	return logger, closer, nil
}

// Room scopes a logger to one chat room.
func Room(logger *zap.Logger, room string) *zap.Logger {
	if logger == nil {
		logger = L()
	}
	return logger.With(zap.String("room", room))
}

func encoderFor(format string) zapcore.Encoder {
	switch format {
	case "json":
		cfg := zap.NewProductionEncoderConfig()
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.EncodeLevel = zapcore.LowercaseLevelEncoder
		return zapcore.NewJSONEncoder(cfg)
	case "console":
		cfg := zap.NewProductionEncoderConfig()
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.EncodeLevel = zapcore.CapitalLevelEncoder
		return zapcore.NewConsoleEncoder(cfg)
	default:
		cfg := zap.NewProductionEncoderConfig()
		cfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
		cfg.EncodeLevel = zapcore.CapitalLevelEncoder
		cfg.ConsoleSeparator = " | "
		return zapcore.NewConsoleEncoder(cfg)
	}
}

func ensureDir(dir string) error {
	if strings.TrimSpace(dir) == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func parseLevel(s string) zapcore.Level {
	var lvl zapcore.Level
	switch v := strings.ToLower(strings.TrimSpace(s)); v {
	case "warning":
		return zapcore.WarnLevel
	default:
		if err := lvl.UnmarshalText([]byte(v)); err != nil || v == "" {
			return zapcore.InfoLevel
		}
		return lvl
	}
}
