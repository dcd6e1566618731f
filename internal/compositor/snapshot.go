package compositor

import (
	"sort"
	"time"

	"github.com/1broseidon/xwbridge/internal/output"
	"github.com/1broseidon/xwbridge/internal/shm"
)

// Status summarises the bridge for status queries.
type Status struct {
	WMRunning       bool   `json:"wm_running"`
	Display         string `json:"display,omitempty"`
	SessionID       string `json:"session_id,omitempty"`
	Decoration      string `json:"decoration"`
	Surfaces        int    `json:"surfaces"`
	UnpairedWindows int    `json:"unpaired_windows"`
	Outputs         int    `json:"outputs"`
	Uptime          string `json:"uptime"`
}

// Rect is a window rectangle in root coordinates.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// SurfaceSnapshot is a copy of one surface entry.
type SurfaceSnapshot struct {
	ID         uint32    `json:"id"`
	Role       string    `json:"role"`
	State      string    `json:"state"`
	Window     uint32    `json:"window,omitempty"`
	Title      string    `json:"title,omitempty"`
	Geometry   *Rect     `json:"geometry,omitempty"`
	Parent     uint32    `json:"parent,omitempty"`
	Children   []uint32  `json:"children,omitempty"`
	Buffer     *shm.Spec `json:"buffer,omitempty"`
	Commits    uint64    `json:"commits"`
	Configured bool      `json:"configured,omitempty"`
	Decorated  bool      `json:"decorated,omitempty"`
}

// OutputSnapshot is a copy of one output.
type OutputSnapshot struct {
	ID            uint32           `json:"id"`
	Name          string           `json:"name"`
	Global        uint32           `json:"global"`
	Make          string           `json:"make,omitempty"`
	Model         string           `json:"model,omitempty"`
	CurrentMode   *output.Mode     `json:"current_mode,omitempty"`
	PreferredMode *output.Mode     `json:"preferred_mode,omitempty"`
	Modes         []output.Mode    `json:"modes"`
	Transform     output.Transform `json:"transform"`
	Scale         int32            `json:"scale"`
	Location      output.Point     `json:"location"`
}

func (s *State) Status() Status {
	st := Status{
		Decoration:      s.opts.Decoration.String(),
		Surfaces:        s.surfaces.Len(),
		UnpairedWindows: len(s.unpaired),
		Outputs:         len(s.outputs),
		Uptime:          s.elapsed().Truncate(time.Second).String(),
	}
	if s.wm != nil {
		st.WMRunning = true
		st.Display = s.wmDisplay
		st.SessionID = s.wm.SessionID()
	}
	return st
}

func (s *State) SurfaceSnapshots() []SurfaceSnapshot {
	entries := s.surfaces.All()
	out := make([]SurfaceSnapshot, 0, len(entries))
	for _, e := range entries {
		snap := SurfaceSnapshot{
			ID:      uint32(e.ID),
			Role:    e.Role.Kind.String(),
			State:   e.State().String(),
			Commits: e.Commits,
		}
		if e.Window != nil {
			snap.Window = e.Window.WindowID()
			snap.Title = e.Window.Title()
			g := e.Window.Geometry()
			snap.Geometry = &Rect{X: g.Min.X, Y: g.Min.Y, Width: g.Dx(), Height: g.Dy()}
		}
		if parent, ok := s.surfaces.Parent(e.ID); ok {
			snap.Parent = uint32(parent)
		}
		for _, child := range s.surfaces.Children(e.ID) {
			snap.Children = append(snap.Children, uint32(child))
		}
		if e.Buffer != nil {
			spec := e.Buffer.Spec
			snap.Buffer = &spec
		}
		if top := e.Role.Toplevel; top != nil {
			snap.Configured = top.Configured
			snap.Decorated = top.Frame != nil
		}
		out = append(out, snap)
	}
	return out
}

func (s *State) OutputSnapshots() []OutputSnapshot {
	ids := make([]uint32, 0, len(s.outputs))
	for id := range s.outputs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]OutputSnapshot, 0, len(ids))
	for _, id := range ids {
		o := s.outputs[id].output
		global, _ := s.outputGlobal(id)
		phys := o.PhysicalProperties()
		loc := o.Location()
		snap := OutputSnapshot{
			ID:        id,
			Name:      o.Name(),
			Global:    uint32(global),
			Make:      phys.Make,
			Model:     phys.Model,
			Modes:     o.Modes(),
			Transform: o.Transform(),
			Scale:     o.Scale(),
			Location:  output.Point{X: int32(loc.X), Y: int32(loc.Y)},
		}
		if m, ok := o.CurrentMode(); ok {
			snap.CurrentMode = &m
		}
		if m, ok := o.PreferredMode(); ok {
			snap.PreferredMode = &m
		}
		out = append(out, snap)
	}
	return out
}
