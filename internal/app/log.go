package app

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ridecare/ridecare/internal/conf"
	"gopkg.in/natefinch/lumberjack.v2"
)

// SetupLog 初始化日志，同时输出到控制台与滚动文件
// 返回的函数用于关闭日志文件
func SetupLog(bc *conf.Bootstrap) (*slog.Logger, func()) {
	cfg := bc.Log
	file := &lumberjack.Logger{
		Filename:   filepath.Join(cfg.Dir, "ridecare.log"),
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
	}

	var w io.Writer = file
	if !cfg.DisableStdout {
		w = io.MultiWriter(os.Stdout, file)
	}

	level := parseLevel(cfg.Level)
	if bc.Debug {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		AddSource: level == slog.LevelDebug,
		Level:     level,
	}))
	slog.SetDefault(log)
	return log, func() { _ = file.Close() }
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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
