package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/1broseidon/xwbridge/internal/compositor"
	"github.com/1broseidon/xwbridge/internal/logging"
	"github.com/1broseidon/xwbridge/internal/output"
)

// EnvConfigPath overrides the default config file location.
const EnvConfigPath = "XWBRIDGE_CONFIG"

// Config is the effective bridge configuration.
type Config struct {
	LogLevel           string                        `yaml:"log_level"`
	DecorationBehavior compositor.DecorationBehavior `yaml:"decoration_behavior"`
	Xwayland           XwaylandConfig                `yaml:"xwayland"`
	Cursor             CursorConfig                  `yaml:"cursor"`
	Pool               PoolConfig                    `yaml:"pool"`
	IPC                IPCConfig                     `yaml:"ipc"`
	HTTP               HTTPConfig                    `yaml:"http"`
	ReconcileInterval  time.Duration                 `yaml:"reconcile_interval"`
	Outputs            []output.Info                 `yaml:"outputs"`
}

// XwaylandConfig describes how the nested X server is started.
type XwaylandConfig struct {
	Command        []string `yaml:"command"`
	ExtraArgs      []string `yaml:"extra_args"`
	WaylandDisplay string   `yaml:"wayland_display"`
}

type CursorConfig struct {
	Theme string `yaml:"theme"`
	Size  int    `yaml:"size"`
}

type PoolConfig struct {
	InitialSize int `yaml:"initial_size"`
}

type IPCConfig struct {
	// Socket defaults to the runtime directory when empty.
	Socket string `yaml:"socket"`
}

type HTTPConfig struct {
	// Listen is empty when the status API is disabled.
	Listen string `yaml:"listen"`
}

const (
	DefaultCursorTheme       = "default"
	DefaultCursorSize        = 24
	DefaultPoolSize          = 4 << 20
	DefaultReconcileInterval = 10 * time.Second
)

func DefaultConfig() *Config {
	return &Config{
		LogLevel:           "info",
		DecorationBehavior: compositor.DecorationAuto,
		Xwayland: XwaylandConfig{
			Command: []string{"Xwayland"},
		},
		Cursor: CursorConfig{
			Theme: DefaultCursorTheme,
			Size:  DefaultCursorSize,
		},
		Pool: PoolConfig{
			InitialSize: DefaultPoolSize,
		},
		ReconcileInterval: DefaultReconcileInterval,
	}
}

// DefaultConfigPath returns $XWBRIDGE_CONFIG or
// ~/.config/xwbridge/config.yaml.
func DefaultConfigPath() (string, error) {
	if path := strings.TrimSpace(os.Getenv(EnvConfigPath)); path != "" {
		return path, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "xwbridge", "config.yaml"), nil
}

func (c *Config) Validate() error {
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return &ValidationError{Path: "log_level", Err: fmt.Errorf("log_level must be one of: debug, info, warn, error")}
	}
	if _, err := c.DecorationBehavior.MarshalText(); err != nil {
		return &ValidationError{Path: "decoration_behavior", Err: err}
	}
	if len(c.Xwayland.Command) == 0 || strings.TrimSpace(c.Xwayland.Command[0]) == "" {
		return &ValidationError{Path: "xwayland.command", Err: fmt.Errorf("xwayland.command must name an executable")}
	}
	if strings.TrimSpace(c.Cursor.Theme) == "" {
		return &ValidationError{Path: "cursor.theme", Err: fmt.Errorf("cursor.theme is required")}
	}
	if c.Cursor.Size <= 0 {
		return &ValidationError{Path: "cursor.size", Err: fmt.Errorf("cursor.size must be > 0")}
	}
	if c.Pool.InitialSize <= 0 {
		return &ValidationError{Path: "pool.initial_size", Err: fmt.Errorf("pool.initial_size must be > 0")}
	}
	if c.ReconcileInterval < 0 {
		return &ValidationError{Path: "reconcile_interval", Err: fmt.Errorf("reconcile_interval must be >= 0")}
	}

	seen := make(map[uint32]struct{}, len(c.Outputs))
	for i, info := range c.Outputs {
		path := fmt.Sprintf("outputs.%d", i)
		if _, dup := seen[info.ID]; dup {
			return &ValidationError{Path: path, Err: fmt.Errorf("duplicate output id %d", info.ID)}
		}
		seen[info.ID] = struct{}{}
		if err := info.Validate(); err != nil {
			return &ValidationError{Path: path, Err: err}
		}
	}
	return nil
}

// SlogLevel returns the parsed log level.
func (c *Config) SlogLevel() slog.Level {
	level, _ := logging.ParseLevel(c.LogLevel)
	return level
}
