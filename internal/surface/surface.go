// Package surface tracks the reconciled state of every surface the nested X
// server creates, keyed by protocol object id.
package surface

import (
	"fmt"
	"image"

	"github.com/1broseidon/xwbridge/internal/shm"
)

// ID is the protocol object id of a surface.
type ID uint32

// RoleKind tags what a surface is used for.
type RoleKind int

const (
	RoleUnassigned RoleKind = iota
	RoleToplevel
	RolePopup
	RoleCursor
)

func (k RoleKind) String() string {
	switch k {
	case RoleUnassigned:
		return "unassigned"
	case RoleToplevel:
		return "toplevel"
	case RolePopup:
		return "popup"
	case RoleCursor:
		return "cursor"
	default:
		return fmt.Sprintf("role(%d)", int(k))
	}
}

// PairingState is a surface's progress towards being matched with its X11
// window.
type PairingState int

const (
	Uncommitted PairingState = iota
	PendingX11Pairing
	Committed
)

func (s PairingState) String() string {
	switch s {
	case Uncommitted:
		return "uncommitted"
	case PendingX11Pairing:
		return "pending_x11_pairing"
	case Committed:
		return "committed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// X11Window is a window reported by the X11 window manager.
type X11Window interface {
	WindowID() uint32
	// WlSurfaceID is the surface the nested server created for the window.
	WlSurfaceID() ID
	// TransientFor returns the WM_TRANSIENT_FOR target, if any.
	TransientFor() (uint32, bool)
	// Geometry is the window rectangle in root coordinates.
	Geometry() image.Rectangle
	OverrideRedirect() bool
	Title() string
}

// Remote is the host-side surface that commits are forwarded to.
type Remote interface {
	// Attach sets the pending buffer. A nil buffer detaches.
	Attach(buf *shm.Buffer, x, y int32)
	// Frame requests a frame-completion notification for the next commit.
	Frame()
	Commit()
	Destroy()
}

// Anchor is a host object popups can be positioned against.
type Anchor interface {
	Surface() Remote
}

// HostToplevel is the host window created for a toplevel surface.
type HostToplevel interface {
	Anchor
	SetTitle(title string)
}

// HostPopup is the host popup created for a popup surface.
type HostPopup interface {
	Anchor
}

// Frame is a server-side decoration frame.
type Frame interface {
	Dirty() bool
	Draw()
	// Offset is the position of the client area inside the frame.
	Offset() image.Point
}

type Toplevel struct {
	Window     HostToplevel
	Configured bool
	// Frame is nil when no server-side decoration is drawn.
	Frame Frame
}

// FrameOffset returns the frame's client offset, or zero without a frame.
func (t *Toplevel) FrameOffset() image.Point {
	if t == nil || t.Frame == nil {
		return image.Point{}
	}
	return t.Frame.Offset()
}

type Popup struct {
	Popup    HostPopup
	Position image.Point
}

// Role is a RoleKind plus the host objects that belong to it.
type Role struct {
	Kind     RoleKind
	Toplevel *Toplevel
	Popup    *Popup
}

// Entry is the reconciled state of one surface.
type Entry struct {
	ID     ID
	Window X11Window
	Role   Role
	Buffer *shm.Buffer
	Remote Remote
	// Commits counts commits that ran through the pipeline.
	Commits uint64

	children map[ID]struct{}
}

// Paired reports whether an X11 window is bound to the entry.
func (e *Entry) Paired() bool {
	return e.Window != nil
}

// State derives the entry's pairing state.
func (e *Entry) State() PairingState {
	switch {
	case e.Commits == 0:
		return Uncommitted
	case e.Window == nil && e.Role.Kind != RoleCursor:
		return PendingX11Pairing
	default:
		return Committed
	}
}

// Anchor returns the host object the entry's children are anchored to.
func (e *Entry) Anchor() Anchor {
	switch e.Role.Kind {
	case RoleToplevel:
		if e.Role.Toplevel != nil {
			return e.Role.Toplevel.Window
		}
	case RolePopup:
		if e.Role.Popup != nil {
			return e.Role.Popup.Popup
		}
	}
	return nil
}
