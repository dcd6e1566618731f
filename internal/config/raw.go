package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/1broseidon/xwbridge/internal/compositor"
	"github.com/1broseidon/xwbridge/internal/output"
)

// IncludeList supports either:
//
//	include: "/path/to/file.yaml"
//
// or:
//
//	include:
//	  - "/path/to/file.yaml"
//	  - "/path/to/dir"
type IncludeList []string

func (l *IncludeList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case 0:
		// Not present.
		*l = nil
		return nil
	case yaml.ScalarNode:
		if value.Tag != "!!str" {
			return fmt.Errorf("include must be a string or list of strings")
		}
		*l = []string{value.Value}
		return nil
	case yaml.SequenceNode:
		out := make([]string, 0, len(value.Content))
		for _, item := range value.Content {
			if item.Kind != yaml.ScalarNode || item.Tag != "!!str" {
				return fmt.Errorf("include entries must be strings")
			}
			out = append(out, item.Value)
		}
		*l = out
		return nil
	default:
		return fmt.Errorf("include must be a string or list of strings")
	}
}

type RawXwayland struct {
	Command        []string `yaml:"command"`
	ExtraArgs      []string `yaml:"extra_args"`
	WaylandDisplay *string  `yaml:"wayland_display"`
}

type RawCursor struct {
	Theme *string `yaml:"theme"`
	Size  *int    `yaml:"size"`
}

type RawPool struct {
	InitialSize *int `yaml:"initial_size"`
}

type RawIPC struct {
	Socket *string `yaml:"socket"`
}

type RawHTTP struct {
	Listen *string `yaml:"listen"`
}

// RawConfig is one config file as written. Nil fields were not set and
// leave the value from earlier files or the defaults in place.
type RawConfig struct {
	Include            IncludeList                    `yaml:"include"`
	LogLevel           *string                        `yaml:"log_level"`
	DecorationBehavior *compositor.DecorationBehavior `yaml:"decoration_behavior"`
	Xwayland           *RawXwayland                   `yaml:"xwayland"`
	Cursor             *RawCursor                     `yaml:"cursor"`
	Pool               *RawPool                       `yaml:"pool"`
	IPC                *RawIPC                        `yaml:"ipc"`
	HTTP               *RawHTTP                       `yaml:"http"`
	ReconcileInterval  *time.Duration                 `yaml:"reconcile_interval"`
	Outputs            []output.Info                  `yaml:"outputs"`
}

func (c RawConfig) merge(overlay RawConfig) RawConfig {
	out := c

	if overlay.LogLevel != nil {
		out.LogLevel = overlay.LogLevel
	}
	if overlay.DecorationBehavior != nil {
		out.DecorationBehavior = overlay.DecorationBehavior
	}
	if overlay.Xwayland != nil {
		merged := RawXwayland{}
		if out.Xwayland != nil {
			merged = *out.Xwayland
		}
		if overlay.Xwayland.Command != nil {
			merged.Command = overlay.Xwayland.Command
		}
		if overlay.Xwayland.ExtraArgs != nil {
			merged.ExtraArgs = overlay.Xwayland.ExtraArgs
		}
		if overlay.Xwayland.WaylandDisplay != nil {
			merged.WaylandDisplay = overlay.Xwayland.WaylandDisplay
		}
		out.Xwayland = &merged
	}
	if overlay.Cursor != nil {
		merged := RawCursor{}
		if out.Cursor != nil {
			merged = *out.Cursor
		}
		if overlay.Cursor.Theme != nil {
			merged.Theme = overlay.Cursor.Theme
		}
		if overlay.Cursor.Size != nil {
			merged.Size = overlay.Cursor.Size
		}
		out.Cursor = &merged
	}
	if overlay.Pool != nil && overlay.Pool.InitialSize != nil {
		out.Pool = &RawPool{InitialSize: overlay.Pool.InitialSize}
	}
	if overlay.IPC != nil && overlay.IPC.Socket != nil {
		out.IPC = &RawIPC{Socket: overlay.IPC.Socket}
	}
	if overlay.HTTP != nil && overlay.HTTP.Listen != nil {
		out.HTTP = &RawHTTP{Listen: overlay.HTTP.Listen}
	}
	if overlay.ReconcileInterval != nil {
		out.ReconcileInterval = overlay.ReconcileInterval
	}
	if overlay.Outputs != nil {
		out.Outputs = mergeOutputs(out.Outputs, overlay.Outputs)
	}

	return out
}

// mergeOutputs replaces descriptors by id and appends new ones.
func mergeOutputs(base, overlay []output.Info) []output.Info {
	out := append([]output.Info(nil), base...)
	for _, info := range overlay {
		replaced := false
		for i := range out {
			if out[i].ID == info.ID {
				out[i] = info
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, info)
		}
	}
	return out
}
