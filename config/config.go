package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// 默认配置值
const (
	DefaultListenAddr     = ":8080"
	DefaultToolName       = "EmptyStandbyList.exe"
	DefaultDownloadURL    = "https://github.com/stefanpejcic/EmptyStandbyList/raw/master/EmptyStandbyList.exe"
	DefaultReleaseAPIURL  = "https://api.github.com/repos/dreamsxin/memory-cleaner/releases/latest"
	DefaultDataDir        = "./data"
	DefaultMaxRows        = 100
	DefaultCleanupTimeout = 30 * time.Second
)

// ConfigError 配置值无效
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid config: %s: %s", e.Field, e.Reason)
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config 应用配置
type Config struct {
	ListenAddr     string        `yaml:"listen_addr"`
	ToolPath       string        `yaml:"tool_path"`
	DownloadURL    string        `yaml:"download_url"`
	AutoDownload   bool          `yaml:"auto_download"`
	ReleaseAPIURL  string        `yaml:"release_api_url"`
	DataDir        string        `yaml:"data_dir"`
	HistoryFile    string        `yaml:"history_file"`
	MaxRows        int           `yaml:"max_rows"`
	CleanupTimeout time.Duration `yaml:"cleanup_timeout"`
	Log            LogConfig     `yaml:"log"`
}

// Default returns the documented default configuration
func Default() *Config {
	return &Config{
		ListenAddr:     DefaultListenAddr,
		ToolPath:       filepath.Join(".", DefaultToolName),
		DownloadURL:    DefaultDownloadURL,
		ReleaseAPIURL:  DefaultReleaseAPIURL,
		DataDir:        DefaultDataDir,
		MaxRows:        DefaultMaxRows,
		CleanupTimeout: DefaultCleanupTimeout,
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load 加载配置。path为空时读取MEMCLEANER_CONFIG环境变量，
// 仍为空则使用默认配置。环境变量覆盖在文件之后应用。
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("MEMCLEANER_CONFIG")
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %v", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %v", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyEnv 应用环境变量覆盖
func (c *Config) applyEnv() {
	if v := os.Getenv("MEMCLEANER_LISTEN_ADDR"); v != "" {
		c.ListenAddr = v
	}
	if v := os.Getenv("MEMCLEANER_TOOL_PATH"); v != "" {
		c.ToolPath = v
	}
	if v := os.Getenv("MEMCLEANER_DATA_DIR"); v != "" {
		c.DataDir = v
	}
}

// Validate 校验配置。无法使用的值返回ConfigError；
// 可恢复的空值替换为默认值并记录警告。
func (c *Config) Validate() error {
	if c.MaxRows <= 0 {
		return &ConfigError{Field: "max_rows", Reason: fmt.Sprintf("must be positive, got %d", c.MaxRows)}
	}
	if c.CleanupTimeout < 0 {
		return &ConfigError{Field: "cleanup_timeout", Reason: fmt.Sprintf("must not be negative, got %s", c.CleanupTimeout)}
	}

	if c.ListenAddr == "" {
		slog.Warn("listen_addr not set, using default", "default", DefaultListenAddr)
		c.ListenAddr = DefaultListenAddr
	}
	if c.ToolPath == "" {
		slog.Warn("tool_path not set, using default", "default", DefaultToolName)
		c.ToolPath = filepath.Join(".", DefaultToolName)
	}
	if c.DataDir == "" {
		c.DataDir = DefaultDataDir
	}
	if c.CleanupTimeout == 0 {
		slog.Warn("cleanup_timeout not set, using default", "default", DefaultCleanupTimeout)
		c.CleanupTimeout = DefaultCleanupTimeout
	}
	if c.HistoryFile == "" {
		c.HistoryFile = filepath.Join(c.DataDir, "history.json")
	}

	return nil
}

// VersionFile 返回本地版本文件路径
func (c *Config) VersionFile() string {
	return filepath.Join(c.DataDir, "version.txt")
}
