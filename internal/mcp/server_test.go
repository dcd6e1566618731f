package mcp

import (
	"context"
	"errors"
	"image"
	"testing"

	"github.com/1broseidon/xwbridge/internal/compositor"
	"github.com/1broseidon/xwbridge/internal/ipc"
	"github.com/1broseidon/xwbridge/internal/output"
)

type fakeDaemon struct {
	status   ipc.StatusData
	surfaces []compositor.SurfaceSnapshot
	outputs  []compositor.OutputSnapshot
	applied  []output.Info
	err      error
}

func (f *fakeDaemon) GetStatus() (*ipc.StatusData, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &f.status, nil
}

func (f *fakeDaemon) ListSurfaces() ([]compositor.SurfaceSnapshot, error) {
	return f.surfaces, f.err
}

func (f *fakeDaemon) ListOutputs() ([]compositor.OutputSnapshot, error) {
	return f.outputs, f.err
}

func (f *fakeDaemon) ApplyOutput(info output.Info) error {
	if f.err != nil {
		return f.err
	}
	f.applied = append(f.applied, info)
	return nil
}

func TestNewServer_RegistersTools(t *testing.T) {
	s := NewServer(&fakeDaemon{})
	if s.mcpServer == nil {
		t.Fatal("mcpServer not created")
	}
}

func TestHandleGetStatus(t *testing.T) {
	d := &fakeDaemon{status: ipc.StatusData{Bridge: compositor.Status{WMRunning: true, Display: ":3"}}}
	s := NewServer(d)

	_, out, err := s.handleGetStatus(context.Background(), nil, GetStatusInput{})
	if err != nil {
		t.Fatalf("handleGetStatus() error: %v", err)
	}
	if !out.Status.Bridge.WMRunning || out.Status.Bridge.Display != ":3" {
		t.Fatalf("status = %+v", out.Status.Bridge)
	}

	d.err = errors.New("daemon not running")
	if _, _, err := s.handleGetStatus(context.Background(), nil, GetStatusInput{}); err == nil {
		t.Fatal("handleGetStatus() = nil error with daemon down")
	}
}

func TestHandleListSurfaces_FiltersUnpaired(t *testing.T) {
	d := &fakeDaemon{surfaces: []compositor.SurfaceSnapshot{
		{ID: 1, Role: "toplevel", State: "committed"},
		{ID: 2, Role: "toplevel", State: "pending_x11_pairing"},
	}}
	s := NewServer(d)

	_, all, err := s.handleListSurfaces(context.Background(), nil, ListSurfacesInput{})
	if err != nil {
		t.Fatalf("handleListSurfaces() error: %v", err)
	}
	if len(all.Surfaces) != 2 {
		t.Fatalf("got %d surfaces, want 2", len(all.Surfaces))
	}

	_, pending, err := s.handleListSurfaces(context.Background(), nil, ListSurfacesInput{Unpaired: true})
	if err != nil {
		t.Fatalf("handleListSurfaces() error: %v", err)
	}
	if len(pending.Surfaces) != 1 || pending.Surfaces[0].ID != 2 {
		t.Fatalf("unpaired = %+v, want only surface 2", pending.Surfaces)
	}
}

func TestHandleListOutputs(t *testing.T) {
	mode := output.Mode{Size: image.Pt(1920, 1080), Refresh: 60000}
	d := &fakeDaemon{outputs: []compositor.OutputSnapshot{
		{ID: 2, Name: "2_HDMI-1", Transform: output.TransformNormal, Scale: 1},
		{
			ID:            1,
			Name:          "1_DP-1",
			CurrentMode:   &mode,
			PreferredMode: &mode,
			Modes:         []output.Mode{mode},
			Transform:     output.TransformFlipped90,
			Scale:         2,
			Location:      output.Point{X: 1920},
		},
	}}
	s := NewServer(d)

	_, out, err := s.handleListOutputs(context.Background(), nil, ListOutputsInput{})
	if err != nil {
		t.Fatalf("handleListOutputs() error: %v", err)
	}
	if len(out.Outputs) != 2 || out.Outputs[0].ID != 1 {
		t.Fatalf("outputs = %+v, want sorted by id", out.Outputs)
	}
	got := out.Outputs[0]
	if got.Width != 1920 || got.Height != 1080 || got.RefreshRate != 60000 || !got.Preferred {
		t.Fatalf("mode fields = %+v", got)
	}
	if got.Transform != "flipped-90" || got.Scale != 2 || got.X != 1920 || got.ModeCount != 1 {
		t.Fatalf("output = %+v", got)
	}
	if out.Outputs[1].Width != 0 {
		t.Fatalf("output without a mode reported width %d", out.Outputs[1].Width)
	}
}

func TestHandleApplyOutput(t *testing.T) {
	d := &fakeDaemon{}
	s := NewServer(d)

	res, out, err := s.handleApplyOutput(context.Background(), nil, ApplyOutputInput{
		ID:          3,
		Name:        "DP-1",
		Width:       2560,
		Height:      1440,
		RefreshRate: 144000,
		Transform:   "90",
		Subpixel:    "horizontal_rgb",
	})
	if err != nil {
		t.Fatalf("handleApplyOutput() error: %v", err)
	}
	if out.Name != "3_DP-1" {
		t.Fatalf("Name = %q, want 3_DP-1", out.Name)
	}
	if res == nil || len(res.Content) != 1 {
		t.Fatal("missing text result")
	}
	if len(d.applied) != 1 {
		t.Fatalf("applied %d outputs, want 1", len(d.applied))
	}
	info := d.applied[0]
	if info.ScaleFactor != 1 || info.Transform != output.Transform90 || info.Subpixel != output.SubpixelHorizontalRGB {
		t.Fatalf("applied = %+v", info)
	}
}

func TestHandleApplyOutput_RejectsBadDescriptor(t *testing.T) {
	d := &fakeDaemon{}
	s := NewServer(d)

	tests := []ApplyOutputInput{
		{ID: 1, Width: 10, Height: 10, Transform: "sideways"},
		{ID: 1, Width: 10, Height: 10, Subpixel: "diagonal"},
		{ID: 1, Width: 10, Height: 10, Scale: -1},
	}
	for _, in := range tests {
		if _, _, err := s.handleApplyOutput(context.Background(), nil, in); err == nil {
			t.Errorf("handleApplyOutput(%+v) = nil error", in)
		}
	}
	if len(d.applied) != 0 {
		t.Fatalf("bad descriptors reached the daemon: %+v", d.applied)
	}
}
