package daemon

import (
	"context"
	"errors"
	"image"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/1broseidon/xwbridge/internal/compositor"
	"github.com/1broseidon/xwbridge/internal/config"
	"github.com/1broseidon/xwbridge/internal/eventloop"
	"github.com/1broseidon/xwbridge/internal/headless"
	"github.com/1broseidon/xwbridge/internal/ipc"
	"github.com/1broseidon/xwbridge/internal/output"
	"github.com/1broseidon/xwbridge/internal/surface"
	"github.com/1broseidon/xwbridge/internal/x11"
	"github.com/1broseidon/xwbridge/internal/xwayland"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubWM struct {
	windows []uint32
	panics  bool
}

func (w *stubWM) SessionID() string { return "stub" }
func (w *stubWM) WatchSurface(surface.ID) {}
func (w *stubWM) Close() error { return nil }

func (w *stubWM) Windows() ([]uint32, error) {
	if w.panics {
		panic("x connection gone")
	}
	return w.windows, nil
}

type stubStarter struct {
	wm  *stubWM
	err error
}

func (s stubStarter) Start(string) (compositor.WindowManager, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.wm, nil
}

func newState(t *testing.T, wm *stubWM) *compositor.State {
	t.Helper()
	st := compositor.New(compositor.Options{
		WM:     stubStarter{wm: wm},
		Logger: quietLogger(),
	})
	if err := st.HandleXwaylandEvent(xwayland.Ready{Display: 1}); err != nil {
		t.Fatalf("HandleXwaylandEvent() error: %v", err)
	}
	return st
}

// inline runs posted work immediately.
type inline struct {
	st *compositor.State
}

func (p inline) Send(fn func(*compositor.State)) bool {
	fn(p.st)
	return true
}

func TestReconciler_DropsStaleUnpaired(t *testing.T) {
	wm := &stubWM{windows: []uint32{5}}
	st := newState(t, wm)
	st.AddUnpairedWindow(x11.Window{ID: 5, Surface: 50})
	st.AddUnpairedWindow(x11.Window{ID: 6, Surface: 60})

	r := NewReconciler(ReconcilerConfig{Logger: quietLogger()}, inline{st: st})
	r.ReconcileNow()

	got := st.UnpairedWindows()
	if len(got) != 1 || got[0] != 5 {
		t.Fatalf("UnpairedWindows() = %v, want [5]", got)
	}
}

func TestReconciler_RecoversPanic(t *testing.T) {
	wm := &stubWM{panics: true}
	st := newState(t, wm)
	st.AddUnpairedWindow(x11.Window{ID: 7, Surface: 70})

	r := NewReconciler(ReconcilerConfig{Logger: quietLogger()}, inline{st: st})
	r.ReconcileNow()

	if got := st.UnpairedWindows(); len(got) != 1 {
		t.Fatalf("UnpairedWindows() = %v after a failed pass", got)
	}
}

func TestNewReconciler_DefaultInterval(t *testing.T) {
	r := NewReconciler(ReconcilerConfig{}, inline{})
	if r.interval != 10*time.Second {
		t.Fatalf("interval = %v, want 10s", r.interval)
	}
}

func runLoop(t *testing.T, st *compositor.State) (*eventloop.Loop[*compositor.State], context.CancelFunc) {
	t.Helper()
	loop := eventloop.New[*compositor.State]()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = loop.Run(ctx, st)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return loop, cancel
}

func TestBridge_RunsQueriesOnLoop(t *testing.T) {
	host := headless.New(nil, quietLogger())
	st := compositor.New(compositor.Options{Host: host, Globals: host, Logger: quietLogger()})
	loop, _ := runLoop(t, st)
	b := NewBridge(loop.Sender(), host, nil)
	ctx := context.Background()

	info := output.Info{
		ID:          1,
		Mode:        output.ModeInfo{Dimensions: output.Size{Width: 800, Height: 600}, RefreshRate: 60000},
		ScaleFactor: 1,
	}
	if err := b.ApplyOutput(ctx, info); err != nil {
		t.Fatalf("ApplyOutput() error: %v", err)
	}
	if err := b.ApplyOutput(ctx, output.Info{ID: 2}); err == nil {
		t.Fatal("ApplyOutput() accepted scale factor 0")
	}

	outs, err := b.Outputs(ctx)
	if err != nil {
		t.Fatalf("Outputs() error: %v", err)
	}
	if len(outs) != 1 || outs[0].Name != "1_None" {
		t.Fatalf("Outputs() = %+v", outs)
	}

	status, err := b.Status(ctx)
	if err != nil {
		t.Fatalf("Status() error: %v", err)
	}
	if status.Bridge.Outputs != 1 || status.Bridge.WMRunning {
		t.Fatalf("Status().Bridge = %+v", status.Bridge)
	}
	if status.Host == nil || len(status.Host.Globals) != 1 {
		t.Fatalf("Status().Host = %+v, want one global", status.Host)
	}

	surfaces, err := b.Surfaces(ctx)
	if err != nil {
		t.Fatalf("Surfaces() error: %v", err)
	}
	if len(surfaces) != 0 {
		t.Fatalf("Surfaces() = %+v, want none", surfaces)
	}

	if err := b.Reload(ctx); err == nil {
		t.Fatal("Reload() without a reload hook = nil error")
	}
}

func TestBridge_StoppedLoop(t *testing.T) {
	loop := eventloop.New[*compositor.State]()
	loop.Stop(nil)
	b := NewBridge(loop.Sender(), nil, nil)

	if _, err := b.Status(context.Background()); !errors.Is(err, ErrLoopStopped) {
		t.Fatalf("Status() error = %v, want ErrLoopStopped", err)
	}
}

func TestBridge_WaitsForContext(t *testing.T) {
	// A loop nobody runs never answers.
	loop := eventloop.New[*compositor.State]()
	b := NewBridge(loop.Sender(), nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := b.Surfaces(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Surfaces() error = %v, want deadline exceeded", err)
	}
}

func TestWindowSink_ForwardsToLoop(t *testing.T) {
	wm := &stubWM{}
	st := newState(t, wm)
	sink := windowSink{post: inline{st: st}}

	sink.WindowMapped(x11.Window{ID: 9, Surface: 90, Rect: image.Rect(0, 0, 10, 10)})
	if got := st.UnpairedWindows(); len(got) != 1 || got[0] != 9 {
		t.Fatalf("UnpairedWindows() = %v, want [9]", got)
	}
	sink.WindowConfigured(x11.Window{ID: 9, Surface: 90, Rect: image.Rect(0, 0, 20, 20)})
	sink.WindowDestroyed(9)
	if got := st.UnpairedWindows(); len(got) != 0 {
		t.Fatalf("UnpairedWindows() = %v after destroy", got)
	}
}

func testConfig(t *testing.T, command ...string) *config.Config {
	t.Helper()
	dir, err := os.MkdirTemp("", "xwbd")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	cfg := config.DefaultConfig()
	cfg.IPC.Socket = filepath.Join(dir, "s")
	cfg.Xwayland.Command = command
	cfg.ReconcileInterval = time.Hour
	cfg.Pool.InitialSize = 4096
	return cfg
}

func waitForDaemon(t *testing.T, client *ipc.Client) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		if _, err := client.GetStatus(); err == nil {
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("daemon did not answer on its socket")
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestDaemon_ServesAndReloads(t *testing.T) {
	cfg := testConfig(t, "/bin/sh", "-c", "exec sleep 30", "sh")
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("log_level: info\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	level := new(slog.LevelVar)
	d, err := New(Options{
		Config:     cfg,
		ConfigPath: cfgPath,
		Level:      level,
		Logger:     quietLogger(),
		Version:    "test",
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() { runErr <- d.Run(ctx) }()

	client := ipc.NewClientWithSocket(cfg.IPC.Socket)
	waitForDaemon(t, client)

	status, err := client.GetStatus()
	if err != nil {
		t.Fatalf("GetStatus() error: %v", err)
	}
	if !status.DaemonRunning || status.Bridge.WMRunning {
		t.Fatalf("status = %+v", status)
	}

	yaml := `log_level: debug
outputs:
  - id: 4
    name: DP-1
    mode:
      dimensions: {width: 1920, height: 1080}
      refresh_rate: 60000
      preferred: true
`
	if err := os.WriteFile(cfgPath, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := client.Reload(); err != nil {
		t.Fatalf("Reload() error: %v", err)
	}
	if level.Level() != slog.LevelDebug {
		t.Fatalf("level = %v after reload, want debug", level.Level())
	}
	outs, err := client.ListOutputs()
	if err != nil {
		t.Fatalf("ListOutputs() error: %v", err)
	}
	if len(outs) != 1 || outs[0].Name != "4_DP-1" {
		t.Fatalf("ListOutputs() = %+v", outs)
	}

	cancel()
	select {
	case err := <-runErr:
		if err != nil {
			t.Fatalf("Run() = %v, want nil after cancel", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}

func TestDaemon_FatalWindowManagerError(t *testing.T) {
	cfg := testConfig(t, "/bin/sh", "-c", "echo 97 >&3; exec sleep 30", "sh")
	d, err := New(Options{
		Config: cfg,
		Logger: quietLogger(),
		WM:     stubStarter{err: errors.New("another window manager is running")},
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	runErr := make(chan error, 1)
	go func() { runErr <- d.Run(context.Background()) }()

	select {
	case err := <-runErr:
		var fatal *compositor.FatalError
		if !errors.As(err, &fatal) {
			t.Fatalf("Run() = %v, want *compositor.FatalError", err)
		}
		if fatal.Op != "start window manager" {
			t.Fatalf("Op = %q", fatal.Op)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() kept going after a fatal error")
	}
}

func TestSanitizeError(t *testing.T) {
	ctx := context.Background()
	if err := SanitizeError(ctx, nil); err != nil {
		t.Fatalf("SanitizeError(nil) = %v", err)
	}

	plain := errors.New("boom")
	if err := SanitizeError(ctx, plain); err != plain {
		t.Fatalf("SanitizeError(plain) = %v", err)
	}

	err := SanitizeError(ctx, context.Canceled)
	if errors.Is(err, context.Canceled) {
		t.Fatal("a stray context error was passed through")
	}

	done, cancel := context.WithCancel(ctx)
	cancel()
	if err := SanitizeError(done, plain); !errors.Is(err, context.Canceled) {
		t.Fatalf("SanitizeError(done ctx) = %v, want context.Canceled", err)
	}
}
