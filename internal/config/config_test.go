package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/1broseidon/xwbridge/internal/compositor"
	"github.com/1broseidon/xwbridge/internal/output"
)

func writeFile(t *testing.T, path, data string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}
	if cfg.DecorationBehavior != compositor.DecorationAuto {
		t.Fatalf("decoration_behavior = %v, want auto", cfg.DecorationBehavior)
	}
}

func TestLoadFromPath_MissingFileUsesDefaults(t *testing.T) {
	res, err := LoadFromPath(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Config.ReconcileInterval != DefaultReconcileInterval {
		t.Fatalf("reconcile_interval = %v, want %v", res.Config.ReconcileInterval, DefaultReconcileInterval)
	}
	if len(res.Files) != 0 {
		t.Fatalf("files = %v, want none", res.Files)
	}
}

func TestLoadFromPath_AllKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, strings.Join([]string{
		"log_level: debug",
		"decoration_behavior: always-enabled",
		"xwayland:",
		"  command: [\"/usr/bin/Xwayland\"]",
		"  extra_args: [\"-listen\", \"tcp\"]",
		"  wayland_display: wayland-1",
		"cursor:",
		"  theme: Adwaita",
		"  size: 32",
		"pool:",
		"  initial_size: 1024",
		"ipc:",
		"  socket: /tmp/x.sock",
		"http:",
		"  listen: 127.0.0.1:7878",
		"reconcile_interval: 2s",
		"outputs:",
		"  - id: 1",
		"    name: DP-1",
		"    subpixel: horizontal_rgb",
		"    transform: flipped-90",
		"    mode:",
		"      dimensions: {width: 1920, height: 1080}",
		"      refresh_rate: 60000",
		"      preferred: true",
		"",
	}, "\n"))

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg := res.Config
	if cfg.LogLevel != "debug" || cfg.DecorationBehavior != compositor.DecorationAlwaysEnabled {
		t.Fatalf("log_level = %q, decoration_behavior = %v", cfg.LogLevel, cfg.DecorationBehavior)
	}
	if cfg.Xwayland.Command[0] != "/usr/bin/Xwayland" || len(cfg.Xwayland.ExtraArgs) != 2 || cfg.Xwayland.WaylandDisplay != "wayland-1" {
		t.Fatalf("xwayland = %+v", cfg.Xwayland)
	}
	if cfg.Cursor.Theme != "Adwaita" || cfg.Cursor.Size != 32 || cfg.Pool.InitialSize != 1024 {
		t.Fatalf("cursor = %+v, pool = %+v", cfg.Cursor, cfg.Pool)
	}
	if cfg.IPC.Socket != "/tmp/x.sock" || cfg.HTTP.Listen != "127.0.0.1:7878" {
		t.Fatalf("ipc = %+v, http = %+v", cfg.IPC, cfg.HTTP)
	}
	if cfg.ReconcileInterval != 2*time.Second {
		t.Fatalf("reconcile_interval = %v", cfg.ReconcileInterval)
	}
	if len(cfg.Outputs) != 1 {
		t.Fatalf("outputs = %+v", cfg.Outputs)
	}
	out := cfg.Outputs[0]
	if out.OutputName() != "1_DP-1" || out.ScaleFactor != 1 || out.Transform != output.TransformFlipped90 || !out.Mode.Preferred {
		t.Fatalf("output = %+v", out)
	}

	val, src, err := Explain(res, "cursor.size")
	if err != nil {
		t.Fatalf("explain: %v", err)
	}
	if val != 32 || src.Kind != SourceFile || src.Line != 9 {
		t.Fatalf("Explain(cursor.size) = %v, %+v", val, src)
	}
	if _, src, _ := Explain(res, "ipc.socket"); src.File == "" {
		t.Fatalf("Explain(ipc.socket) source = %+v, want file", src)
	}
}

func TestLoadFromPath_UnknownKeyRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "gap_size: 4\n")

	if _, err := LoadFromPath(path); err == nil {
		t.Fatal("expected unknown key to fail")
	}
}

func TestLoadFromPath_ValidationErrorHasSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "log_level: info\ncursor:\n  size: 0\n")

	_, err := LoadFromPath(path)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Path != "cursor.size" || verr.Source.Line != 3 {
		t.Fatalf("ValidationError = %+v", verr)
	}
	if !strings.Contains(err.Error(), "config.yaml:3:") {
		t.Fatalf("error %q lacks file:line", err)
	}
}

func TestLoadFromPath_OutputErrorUsesSequenceSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "outputs:\n  - id: 1\n  - id: 1\n")

	_, err := LoadFromPath(path)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Path != "outputs.1" || verr.Source.Kind != SourceFile {
		t.Fatalf("ValidationError = %+v", verr)
	}
}

func TestLoadFromPath_IncludesMergeBeforeFile(t *testing.T) {
	dir := t.TempDir()
	incDir := filepath.Join(dir, "conf.d")
	if err := os.MkdirAll(incDir, 0755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(incDir, "10-cursor.yaml"), "cursor:\n  theme: Breeze\n  size: 48\n")
	writeFile(t, filepath.Join(incDir, "20-outputs.yaml"), "outputs:\n  - id: 2\n    name: HDMI-1\n")
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, "include: conf.d\ncursor:\n  size: 16\noutputs:\n  - id: 2\n    name: HDMI-2\n")

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Config.Cursor.Theme != "Breeze" || res.Config.Cursor.Size != 16 {
		t.Fatalf("cursor = %+v, want theme from include and size from file", res.Config.Cursor)
	}
	if len(res.Config.Outputs) != 1 || *res.Config.Outputs[0].Name != "HDMI-2" {
		t.Fatalf("outputs = %+v, want the file's descriptor for id 2", res.Config.Outputs)
	}
	if len(res.Files) != 3 {
		t.Fatalf("files = %v, want 3", res.Files)
	}
}

func TestLoadFromPath_IncludeCycle(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.yaml")
	b := filepath.Join(dir, "b.yaml")
	writeFile(t, a, "include: b.yaml\n")
	writeFile(t, b, "include: a.yaml\n")

	_, err := LoadFromPath(a)
	if err == nil || !strings.Contains(err.Error(), "include cycle") {
		t.Fatalf("expected include cycle error, got %v", err)
	}
}

func TestDefaultConfigPath_Env(t *testing.T) {
	t.Setenv(EnvConfigPath, "/etc/xwbridge.yaml")
	got, err := DefaultConfigPath()
	if err != nil {
		t.Fatal(err)
	}
	if got != "/etc/xwbridge.yaml" {
		t.Fatalf("DefaultConfigPath() = %q", got)
	}
}

func TestExplain_DefaultsAndUnknown(t *testing.T) {
	res := &LoadResult{Config: DefaultConfig(), Sources: map[string]Source{}}
	val, src, err := Explain(res, "decoration_behavior")
	if err != nil {
		t.Fatal(err)
	}
	if val != "auto" || src.Kind != SourceDefault {
		t.Fatalf("Explain() = %v, %+v", val, src)
	}
	if _, _, err := Explain(res, "cursor.color"); err == nil {
		t.Fatal("expected unknown path error")
	}
	if _, _, err := Explain(res, "outputs.0"); err == nil {
		t.Fatal("expected missing output error")
	}
}
