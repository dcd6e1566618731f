package headless

import (
	"image"

	"github.com/1broseidon/xwbridge/internal/shm"
	"github.com/1broseidon/xwbridge/internal/surface"
)

// RemoteState is what a host surface has received so far.
type RemoteState struct {
	Attached  *shm.Spec `json:"attached,omitempty"`
	Commits   int       `json:"commits"`
	Frames    int       `json:"frames"`
	Destroyed bool      `json:"destroyed"`
}

// Remote is a host surface.
type Remote struct {
	id    surface.ID
	host  *Host
	state RemoteState
}

func (r *Remote) Attach(buf *shm.Buffer, x, y int32) {
	r.host.mu.Lock()
	defer r.host.mu.Unlock()
	if buf == nil {
		r.state.Attached = nil
		return
	}
	spec := buf.Spec
	r.state.Attached = &spec
}

func (r *Remote) Frame() {
	r.host.mu.Lock()
	defer r.host.mu.Unlock()
	r.state.Frames++
}

func (r *Remote) Commit() {
	r.host.mu.Lock()
	defer r.host.mu.Unlock()
	r.state.Commits++
}

func (r *Remote) Destroy() {
	r.host.mu.Lock()
	defer r.host.mu.Unlock()
	r.state.Destroyed = true
	delete(r.host.surfaces, r.id)
}

// Toplevel is a host window.
type Toplevel struct {
	remote *Remote
	parent *Toplevel
	title  string
}

func (t *Toplevel) Surface() surface.Remote { return t.remote }

func (t *Toplevel) SetTitle(title string) {
	t.remote.host.mu.Lock()
	defer t.remote.host.mu.Unlock()
	t.title = title
}

func (t *Toplevel) Title() string {
	t.remote.host.mu.Lock()
	defer t.remote.host.mu.Unlock()
	return t.title
}

// Parent returns the toplevel this one is transient for, or nil.
func (t *Toplevel) Parent() *Toplevel {
	return t.parent
}

// Popup is a host popup.
type Popup struct {
	remote   *Remote
	anchor   surface.Anchor
	Position image.Point
}

func (p *Popup) Surface() surface.Remote { return p.remote }

// Anchor is the object the popup is positioned against.
func (p *Popup) Anchor() surface.Anchor {
	return p.anchor
}

// Frame is a server-side decoration that needs one draw after creation.
type Frame struct {
	offset image.Point
	dirty  bool
	draws  int
}

func (f *Frame) Dirty() bool { return f.dirty }

func (f *Frame) Draw() {
	f.dirty = false
	f.draws++
}

func (f *Frame) Offset() image.Point { return f.offset }

// Draws counts how many times the frame has been drawn.
func (f *Frame) Draws() int {
	return f.draws
}
