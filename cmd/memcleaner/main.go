package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/dreamsxin/memory-cleaner/cleaner"
	"github.com/dreamsxin/memory-cleaner/config"
	"github.com/dreamsxin/memory-cleaner/download"
	"github.com/dreamsxin/memory-cleaner/history"
	"github.com/dreamsxin/memory-cleaner/server"
	"github.com/dreamsxin/memory-cleaner/system"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default: MEMCLEANER_CONFIG env)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	downloader := download.NewDownloader(logger)
	if cfg.AutoDownload {
		if err := downloader.EnsureTool(context.Background(), cfg.ToolPath, cfg.DownloadURL); err != nil {
			// 工具缺失时仪表盘仍可显示内存信息，清理操作会报告工具缺失
			logger.Warn("failed to acquire cleanup tool", "error", err)
		}
	}

	reader := system.NewMemoryReader()

	store := history.NewStore(cfg.HistoryFile, cfg.MaxRows, logger)
	records := store.Load()
	logger.Info("history loaded", "records", len(records), "file", cfg.HistoryFile)

	executor := cleaner.NewExecutor(cfg.ToolPath, cfg.CleanupTimeout, reader, store, logger)

	srv := server.New(cfg, reader, executor, store, downloader, logger)
	if err := srv.ListenAndServe(); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

// newLogger 根据配置创建slog日志器
func newLogger(cfg config.LogConfig) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
