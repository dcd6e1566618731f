package config

import (
	"fmt"
	"strings"
)

type ValidationError struct {
	Path   string
	Source Source
	Err    error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Source.Kind == SourceFile && e.Source.File != "" && e.Source.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s: %v", e.Source.File, e.Source.Line, e.Source.Column, e.Path, e.Err)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// BuildEffectiveConfig applies raw on top of the defaults.
func BuildEffectiveConfig(raw RawConfig) (*Config, error) {
	cfg := DefaultConfig()

	if raw.LogLevel != nil {
		cfg.LogLevel = strings.ToLower(strings.TrimSpace(*raw.LogLevel))
	}
	if raw.DecorationBehavior != nil {
		cfg.DecorationBehavior = *raw.DecorationBehavior
	}
	if raw.Xwayland != nil {
		if raw.Xwayland.Command != nil {
			cfg.Xwayland.Command = append([]string(nil), raw.Xwayland.Command...)
		}
		if raw.Xwayland.ExtraArgs != nil {
			cfg.Xwayland.ExtraArgs = append([]string(nil), raw.Xwayland.ExtraArgs...)
		}
		if raw.Xwayland.WaylandDisplay != nil {
			cfg.Xwayland.WaylandDisplay = *raw.Xwayland.WaylandDisplay
		}
	}
	if raw.Cursor != nil {
		if raw.Cursor.Theme != nil {
			cfg.Cursor.Theme = *raw.Cursor.Theme
		}
		if raw.Cursor.Size != nil {
			cfg.Cursor.Size = *raw.Cursor.Size
		}
	}
	if raw.Pool != nil && raw.Pool.InitialSize != nil {
		cfg.Pool.InitialSize = *raw.Pool.InitialSize
	}
	if raw.IPC != nil && raw.IPC.Socket != nil {
		cfg.IPC.Socket = *raw.IPC.Socket
	}
	if raw.HTTP != nil && raw.HTTP.Listen != nil {
		cfg.HTTP.Listen = *raw.HTTP.Listen
	}
	if raw.ReconcileInterval != nil {
		cfg.ReconcileInterval = *raw.ReconcileInterval
	}

	for _, info := range raw.Outputs {
		if info.ScaleFactor == 0 {
			info.ScaleFactor = 1
		}
		cfg.Outputs = append(cfg.Outputs, info)
	}

	return cfg, nil
}
