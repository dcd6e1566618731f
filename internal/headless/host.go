// Package headless implements the host side of the bridge in process. It
// records what would be forwarded to a host compositor instead of sending
// it anywhere.
package headless

import (
	"fmt"
	"image"
	"log/slog"
	"sync"

	"github.com/1broseidon/xwbridge/internal/compositor"
	"github.com/1broseidon/xwbridge/internal/cursor"
	"github.com/1broseidon/xwbridge/internal/output"
	"github.com/1broseidon/xwbridge/internal/surface"
)

// DefaultFrameOffset is where decorated toplevels place their client area.
var DefaultFrameOffset = image.Pt(0, 24)

var (
	_ compositor.Host           = (*Host)(nil)
	_ compositor.Pointer        = (*Host)(nil)
	_ compositor.GlobalRegistry = (*Host)(nil)
)

// Host is an in-memory host connection.
type Host struct {
	mu sync.Mutex

	// Theme resolves named cursors. Nil accepts every name.
	Theme *cursor.Theme
	// FrameOffset positions the client area of new frames.
	FrameOffset image.Point
	Logger      *slog.Logger

	surfaces map[surface.ID]*Remote
	toplevel int
	popups   int
	frames   int
	globals  map[compositor.GlobalID]string
	nextID   compositor.GlobalID
	cursor   CursorState
}

// New returns an empty host.
func New(theme *cursor.Theme, logger *slog.Logger) *Host {
	if logger == nil {
		logger = slog.Default()
	}
	return &Host{
		Theme:       theme,
		FrameOffset: DefaultFrameOffset,
		Logger:      logger,
		surfaces:    make(map[surface.ID]*Remote),
		globals:     make(map[compositor.GlobalID]string),
	}
}

func (h *Host) NewSurface(id surface.ID) surface.Remote {
	h.mu.Lock()
	defer h.mu.Unlock()
	r := &Remote{id: id, host: h}
	h.surfaces[id] = r
	return r
}

func (h *Host) NewToplevel(remote surface.Remote, parent surface.HostToplevel, title string) (surface.HostToplevel, error) {
	r, err := h.own(remote)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.toplevel++
	t := &Toplevel{remote: r, title: title}
	if p, ok := parent.(*Toplevel); ok {
		t.parent = p
	}
	return t, nil
}

func (h *Host) NewPopup(remote surface.Remote, anchor surface.Anchor, position image.Point) (surface.HostPopup, error) {
	r, err := h.own(remote)
	if err != nil {
		return nil, err
	}
	if anchor == nil || anchor.Surface() == nil {
		return nil, fmt.Errorf("popup for surface %d has no anchor", r.id)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.popups++
	return &Popup{remote: r, anchor: anchor, Position: position}, nil
}

func (h *Host) NewFrame(toplevel surface.HostToplevel) (surface.Frame, error) {
	if _, ok := toplevel.(*Toplevel); !ok {
		return nil, fmt.Errorf("frame for foreign toplevel %T", toplevel)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.frames++
	return &Frame{offset: h.FrameOffset, dirty: true}, nil
}

func (h *Host) own(remote surface.Remote) (*Remote, error) {
	r, ok := remote.(*Remote)
	if !ok || r.host != h {
		return nil, fmt.Errorf("surface %T does not belong to this host", remote)
	}
	return r, nil
}

// CreateGlobal advertises an output and returns its global name.
func (h *Host) CreateGlobal(o *output.Output) compositor.GlobalID {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	h.globals[h.nextID] = o.Name()
	h.Logger.Debug("created output global", "global", h.nextID, "output", o.Name())
	return h.nextID
}

// Surface returns the recorded state of the remote surface for id.
func (h *Host) Surface(id surface.ID) (RemoteState, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.surfaces[id]
	if !ok {
		return RemoteState{}, false
	}
	return r.state, true
}

// Stats summarises what the host has received.
type Stats struct {
	Surfaces  int         `json:"surfaces"`
	Toplevels int         `json:"toplevels"`
	Popups    int         `json:"popups"`
	Frames    int         `json:"frames"`
	Commits   int         `json:"commits"`
	Globals   []string    `json:"globals,omitempty"`
	Cursor    CursorState `json:"cursor"`
}

func (h *Host) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	s := Stats{
		Surfaces:  len(h.surfaces),
		Toplevels: h.toplevel,
		Popups:    h.popups,
		Frames:    h.frames,
		Cursor:    h.cursor,
	}
	for _, r := range h.surfaces {
		s.Commits += r.state.Commits
	}
	for id := compositor.GlobalID(1); id <= h.nextID; id++ {
		if name, ok := h.globals[id]; ok {
			s.Globals = append(s.Globals, name)
		}
	}
	return s
}
