package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// explainable maps each key Explain accepts, apart from outputs.<index>, to
// its effective value.
var explainable = map[string]func(*Config) any{
	"log_level":                func(c *Config) any { return c.LogLevel },
	"decoration_behavior":      func(c *Config) any { return c.DecorationBehavior.String() },
	"reconcile_interval":       func(c *Config) any { return c.ReconcileInterval.String() },
	"xwayland.command":         func(c *Config) any { return c.Xwayland.Command },
	"xwayland.extra_args":      func(c *Config) any { return c.Xwayland.ExtraArgs },
	"xwayland.wayland_display": func(c *Config) any { return c.Xwayland.WaylandDisplay },
	"cursor.theme":             func(c *Config) any { return c.Cursor.Theme },
	"cursor.size":              func(c *Config) any { return c.Cursor.Size },
	"pool.initial_size":        func(c *Config) any { return c.Pool.InitialSize },
	"ipc.socket":               func(c *Config) any { return c.IPC.Socket },
	"http.listen":              func(c *Config) any { return c.HTTP.Listen },
	"outputs":                  func(c *Config) any { return c.Outputs },
}

// Explain returns the effective value at a dotted key path, such as
// "cursor.size" or "outputs.1", and where it was set. Keys no file set
// report the built-in default.
func Explain(res *LoadResult, path string) (any, Source, error) {
	if res == nil || res.Config == nil {
		return nil, Source{}, errors.New("no config loaded")
	}

	value, err := effectiveValue(res.Config, path)
	if err != nil {
		return nil, Source{}, err
	}

	keys := []string{path}
	if strings.HasPrefix(path, "outputs.") {
		// Output entries share the source of the outputs list.
		keys = append(keys, "outputs")
	}
	for _, key := range keys {
		if src, ok := res.Sources[key]; ok {
			return value, src, nil
		}
	}
	return value, Source{Kind: SourceDefault, Name: "defaults"}, nil
}

func effectiveValue(cfg *Config, path string) (any, error) {
	if get, ok := explainable[path]; ok {
		return get(cfg), nil
	}
	idx, ok := strings.CutPrefix(path, "outputs.")
	if !ok {
		return nil, fmt.Errorf("unknown path: %q", path)
	}
	i, err := strconv.Atoi(idx)
	if err != nil || i < 0 || i >= len(cfg.Outputs) {
		return nil, fmt.Errorf("no output at %s", path)
	}
	return cfg.Outputs[i], nil
}
