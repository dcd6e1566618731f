package ipc

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/1broseidon/xwbridge/internal/compositor"
	"github.com/1broseidon/xwbridge/internal/output"
)

type fakeBackend struct {
	mu       sync.Mutex
	applied  []output.Info
	reloads  int
	applyErr error
}

func (b *fakeBackend) Status(context.Context) (StatusData, error) {
	return StatusData{Bridge: compositor.Status{WMRunning: true, Display: ":1", Surfaces: 2}}, nil
}

func (b *fakeBackend) Surfaces(context.Context) ([]compositor.SurfaceSnapshot, error) {
	return []compositor.SurfaceSnapshot{{ID: 10, Role: "toplevel", State: "committed", Window: 5}}, nil
}

func (b *fakeBackend) Outputs(context.Context) ([]compositor.OutputSnapshot, error) {
	return []compositor.OutputSnapshot{{ID: 1, Name: "1_DP-1", Global: 3, Scale: 1}}, nil
}

func (b *fakeBackend) ApplyOutput(_ context.Context, info output.Info) error {
	if b.applyErr != nil {
		return b.applyErr
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.applied = append(b.applied, info)
	return nil
}

func (b *fakeBackend) Reload(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reloads++
	return nil
}

// shortSocket keeps the path under the sun_path limit.
func shortSocket(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "xwb")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	return filepath.Join(dir, "s.sock")
}

func startServer(t *testing.T, backend Backend) *Client {
	t.Helper()
	socket := shortSocket(t)
	srv := NewServer(socket, backend, nil)
	if err := srv.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	t.Cleanup(srv.Stop)

	info, err := os.Stat(socket)
	if err != nil {
		t.Fatalf("stat socket: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Fatalf("socket mode = %o, want 600", perm)
	}
	return NewClientWithSocket(socket)
}

func TestClientServer_Queries(t *testing.T) {
	client := startServer(t, &fakeBackend{})

	status, err := client.GetStatus()
	if err != nil {
		t.Fatalf("GetStatus() error: %v", err)
	}
	if !status.DaemonRunning || !status.Bridge.WMRunning || status.Bridge.Display != ":1" {
		t.Fatalf("GetStatus() = %+v", status)
	}

	surfaces, err := client.ListSurfaces()
	if err != nil {
		t.Fatalf("ListSurfaces() error: %v", err)
	}
	if len(surfaces) != 1 || surfaces[0].ID != 10 || surfaces[0].Window != 5 {
		t.Fatalf("ListSurfaces() = %+v", surfaces)
	}

	outputs, err := client.ListOutputs()
	if err != nil {
		t.Fatalf("ListOutputs() error: %v", err)
	}
	if len(outputs) != 1 || outputs[0].Name != "1_DP-1" {
		t.Fatalf("ListOutputs() = %+v", outputs)
	}
}

func TestClientServer_Mutations(t *testing.T) {
	backend := &fakeBackend{}
	client := startServer(t, backend)

	name := "DP-2"
	info := output.Info{ID: 2, Name: &name, ScaleFactor: 2, Transform: output.Transform90}
	if err := client.ApplyOutput(info); err != nil {
		t.Fatalf("ApplyOutput() error: %v", err)
	}
	if err := client.Reload(); err != nil {
		t.Fatalf("Reload() error: %v", err)
	}

	backend.mu.Lock()
	defer backend.mu.Unlock()
	if len(backend.applied) != 1 || backend.applied[0].OutputName() != "2_DP-2" || backend.applied[0].Transform != output.Transform90 {
		t.Fatalf("applied = %+v", backend.applied)
	}
	if backend.reloads != 1 {
		t.Fatalf("reloads = %d, want 1", backend.reloads)
	}
}

func TestClientServer_BackendError(t *testing.T) {
	client := startServer(t, &fakeBackend{applyErr: errors.New("scale_factor must be >= 1")})

	err := client.ApplyOutput(output.Info{ID: 1})
	if err == nil || !strings.Contains(err.Error(), "daemon error: scale_factor") {
		t.Fatalf("ApplyOutput() error = %v", err)
	}
}

func TestClient_NoDaemon(t *testing.T) {
	client := NewClientWithSocket(shortSocket(t))
	if _, err := client.GetStatus(); err == nil || !strings.Contains(err.Error(), "is the daemon running?") {
		t.Fatalf("GetStatus() error = %v", err)
	}
}

func TestHandleCommand_Unknown(t *testing.T) {
	srv := NewServer("", &fakeBackend{}, nil)
	resp := srv.handleCommand(context.Background(), &Request{Command: "GET_MONITORS"})
	if resp.Status != "ERROR" || !strings.Contains(resp.Error, "Unknown command") {
		t.Fatalf("handleCommand() = %+v", resp)
	}

	resp = srv.handleCommand(context.Background(), &Request{Command: CommandApplyOutput, Payload: []byte("{")})
	if resp.Status != "ERROR" {
		t.Fatalf("handleCommand(bad payload) = %+v", resp)
	}
}

func TestServer_ServeStopsWithContext(t *testing.T) {
	socket := shortSocket(t)
	srv := NewServer(socket, &fakeBackend{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	client := NewClientWithSocket(socket)
	for i := 0; ; i++ {
		if _, err := client.GetStatus(); err == nil {
			break
		}
		if i > 200 {
			t.Fatal("server never came up")
		}
		waitABit()
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("Serve() = %v, want context.Canceled", err)
	}
	if _, err := os.Stat(socket); !os.IsNotExist(err) {
		t.Fatalf("socket still present after stop: %v", err)
	}
}

func waitABit() {
	<-time.After(10 * time.Millisecond)
}
