package compositor

import (
	"image"
	"time"

	"github.com/1broseidon/xwbridge/internal/output"
	"github.com/1broseidon/xwbridge/internal/shm"
	"github.com/1broseidon/xwbridge/internal/surface"
)

// Surface is the protocol substrate's view of a client surface. The
// substrate has already cached the committed attributes when the compositor
// sees a commit.
type Surface interface {
	ID() surface.ID
	Current() Attributes
	// SendFrames fires the surface's pending frame callbacks.
	SendFrames(elapsed, delay time.Duration)
	// Hotspot is the cursor hotspot recorded for the surface, if any.
	Hotspot() (image.Point, bool)
	// Alive reports whether the protocol object still exists.
	Alive() bool
}

// Attributes are the committed attributes the compositor acts on.
type Attributes struct {
	// Buffer is nil when the commit did not touch the buffer.
	Buffer BufferAssignment
}

// BufferAssignment is either NewBuffer or RemovedBuffer.
type BufferAssignment interface {
	isBufferAssignment()
}

// NewBuffer attaches a client buffer.
type NewBuffer struct {
	Buffer ClientBuffer
}

// RemovedBuffer detaches the current buffer.
type RemovedBuffer struct{}

func (NewBuffer) isBufferAssignment() {}
func (RemovedBuffer) isBufferAssignment() {}

// ClientBuffer gives access to a client's pixel data.
type ClientBuffer interface {
	// WithContents calls fn with the buffer's backing memory and the layout
	// of its pixels. The memory is only valid during fn.
	WithContents(fn func(data []byte, spec shm.Spec) error) error
}

// Pool receives copies of client buffers. *shm.Pool implements it.
type Pool interface {
	Install(spec shm.Spec, data []byte) (*shm.Buffer, error)
}

// Host creates the objects that represent surfaces on the host connection.
type Host interface {
	NewSurface(id surface.ID) surface.Remote
	NewToplevel(remote surface.Remote, parent surface.HostToplevel, title string) (surface.HostToplevel, error)
	NewPopup(remote surface.Remote, anchor surface.Anchor, position image.Point) (surface.HostPopup, error)
	NewFrame(toplevel surface.HostToplevel) (surface.Frame, error)
}

// Pointer is the host seat's pointer.
type Pointer interface {
	HideCursor() error
	SetCursor(serial uint32, remote surface.Remote, hotspot image.Point)
	SetNamedCursor(name string) error
}

// GlobalID identifies a protocol global.
type GlobalID uint32

// GlobalRegistry advertises outputs to X11 clients.
type GlobalRegistry interface {
	CreateGlobal(o *output.Output) GlobalID
}

// WindowManager is a running X11 window manager session.
type WindowManager interface {
	// SessionID identifies the session in logs and status output.
	SessionID() string
	// WatchSurface asks the session to report the window for id as soon as
	// it learns about it.
	WatchSurface(id surface.ID)
	// Windows lists the ids of the windows that currently exist.
	Windows() ([]uint32, error)
	Close() error
}

// WMStarter starts a window manager on an X display such as ":1".
type WMStarter interface {
	Start(display string) (WindowManager, error)
}

// WMNamer sets the window manager name advertised on display.
type WMNamer func(display, name string) error

// Scheduler queues work for the next idle pass of the event loop.
type Scheduler interface {
	InsertIdle(fn func(*State)) error
}
