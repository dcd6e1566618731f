package compositor

import (
	"errors"
	"image"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/1broseidon/xwbridge/internal/output"
	"github.com/1broseidon/xwbridge/internal/shm"
	"github.com/1broseidon/xwbridge/internal/surface"
	"github.com/1broseidon/xwbridge/internal/xwayland"
)

type fakeWindow struct {
	id        uint32
	surf      surface.ID
	transient uint32
	geo       image.Rectangle
	override  bool
	title     string
}

func (w fakeWindow) WindowID() uint32 { return w.id }
func (w fakeWindow) WlSurfaceID() surface.ID { return w.surf }
func (w fakeWindow) Geometry() image.Rectangle { return w.geo }
func (w fakeWindow) OverrideRedirect() bool { return w.override }
func (w fakeWindow) Title() string { return w.title }

func (w fakeWindow) TransientFor() (uint32, bool) {
	return w.transient, w.transient != 0
}

type fakeRemote struct {
	id       surface.ID
	attached []*shm.Buffer
	frames   int
	commits  int
	destroy  bool
}

func (r *fakeRemote) Attach(buf *shm.Buffer, x, y int32) { r.attached = append(r.attached, buf) }
func (r *fakeRemote) Frame() { r.frames++ }
func (r *fakeRemote) Commit() { r.commits++ }
func (r *fakeRemote) Destroy() { r.destroy = true }

type fakeToplevel struct {
	remote surface.Remote
	parent surface.HostToplevel
	title  string
}

func (t *fakeToplevel) Surface() surface.Remote { return t.remote }
func (t *fakeToplevel) SetTitle(title string) { t.title = title }

type fakePopup struct {
	remote   surface.Remote
	anchor   surface.Anchor
	position image.Point
}

func (p *fakePopup) Surface() surface.Remote { return p.remote }

type fakeFrame struct {
	dirty  bool
	draws  int
	offset image.Point
}

func (f *fakeFrame) Dirty() bool { return f.dirty }
func (f *fakeFrame) Draw() { f.draws++; f.dirty = false }
func (f *fakeFrame) Offset() image.Point { return f.offset }

type fakeHost struct {
	remotes     map[surface.ID]*fakeRemote
	toplevels   []*fakeToplevel
	popups      []*fakePopup
	frames      []*fakeFrame
	frameOffset image.Point
	toplevelErr error
}

func newFakeHost() *fakeHost {
	return &fakeHost{remotes: make(map[surface.ID]*fakeRemote)}
}

func (h *fakeHost) NewSurface(id surface.ID) surface.Remote {
	r := &fakeRemote{id: id}
	h.remotes[id] = r
	return r
}

func (h *fakeHost) NewToplevel(remote surface.Remote, parent surface.HostToplevel, title string) (surface.HostToplevel, error) {
	if h.toplevelErr != nil {
		return nil, h.toplevelErr
	}
	t := &fakeToplevel{remote: remote, parent: parent, title: title}
	h.toplevels = append(h.toplevels, t)
	return t, nil
}

func (h *fakeHost) NewPopup(remote surface.Remote, anchor surface.Anchor, position image.Point) (surface.HostPopup, error) {
	p := &fakePopup{remote: remote, anchor: anchor, position: position}
	h.popups = append(h.popups, p)
	return p, nil
}

func (h *fakeHost) NewFrame(surface.HostToplevel) (surface.Frame, error) {
	f := &fakeFrame{offset: h.frameOffset}
	h.frames = append(h.frames, f)
	return f, nil
}

type fakeSurface struct {
	id         surface.ID
	attrs      Attributes
	sentFrames int
	hotspot    image.Point
	hasHotspot bool
	dead       bool
}

func (s *fakeSurface) ID() surface.ID { return s.id }
func (s *fakeSurface) Current() Attributes { return s.attrs }
func (s *fakeSurface) SendFrames(elapsed, delay time.Duration) { s.sentFrames++ }
func (s *fakeSurface) Hotspot() (image.Point, bool) { return s.hotspot, s.hasHotspot }
func (s *fakeSurface) Alive() bool { return !s.dead }

type fakeBuffer struct {
	spec shm.Spec
	data []byte
}

func (b fakeBuffer) WithContents(fn func([]byte, shm.Spec) error) error {
	return fn(b.data, b.spec)
}

type fakePool struct {
	installs int
	err      error
}

func (p *fakePool) Install(spec shm.Spec, data []byte) (*shm.Buffer, error) {
	if p.err != nil {
		return nil, p.err
	}
	if err := spec.Validate(len(data)); err != nil {
		return nil, err
	}
	p.installs++
	return &shm.Buffer{Spec: spec}, nil
}

type fakeScheduler struct {
	queue []func(*State)
	err   error
}

func (q *fakeScheduler) InsertIdle(fn func(*State)) error {
	if q.err != nil {
		return q.err
	}
	q.queue = append(q.queue, fn)
	return nil
}

// runIdle runs one idle pass.
func (q *fakeScheduler) runIdle(s *State) {
	batch := q.queue
	q.queue = nil
	for _, fn := range batch {
		fn(s)
	}
}

type fakeWM struct {
	id      string
	watched []surface.ID
	windows []uint32
	closed  bool
}

func (w *fakeWM) SessionID() string { return w.id }
func (w *fakeWM) WatchSurface(id surface.ID) { w.watched = append(w.watched, id) }
func (w *fakeWM) Windows() ([]uint32, error) { return w.windows, nil }
func (w *fakeWM) Close() error { w.closed = true; return nil }

type fakeStarter struct {
	wm       *fakeWM
	err      error
	displays []string
}

func (s *fakeStarter) Start(display string) (WindowManager, error) {
	s.displays = append(s.displays, display)
	if s.err != nil {
		return nil, s.err
	}
	return s.wm, nil
}

type fakePointer struct {
	visible  bool
	serial   uint32
	remote   surface.Remote
	hotspot  image.Point
	named    []string
	namedErr error
}

func (p *fakePointer) HideCursor() error {
	p.visible = false
	return nil
}

func (p *fakePointer) SetCursor(serial uint32, remote surface.Remote, hotspot image.Point) {
	p.visible = true
	p.serial = serial
	p.remote = remote
	p.hotspot = hotspot
}

func (p *fakePointer) SetNamedCursor(name string) error {
	if p.namedErr != nil {
		return p.namedErr
	}
	p.visible = true
	p.named = append(p.named, name)
	return nil
}

type fakeGlobals struct {
	created []*output.Output
}

func (g *fakeGlobals) CreateGlobal(o *output.Output) GlobalID {
	g.created = append(g.created, o)
	return GlobalID(len(g.created))
}

type fixture struct {
	state   *State
	host    *fakeHost
	pool    *fakePool
	sched   *fakeScheduler
	wm      *fakeWM
	starter *fakeStarter
	pointer *fakePointer
	globals *fakeGlobals
	names   [][2]string
}

func newFixture(t *testing.T, decoration DecorationBehavior) *fixture {
	t.Helper()
	f := &fixture{
		host:    newFakeHost(),
		pool:    &fakePool{},
		sched:   &fakeScheduler{},
		wm:      &fakeWM{id: "session-1"},
		pointer: &fakePointer{},
		globals: &fakeGlobals{},
	}
	f.starter = &fakeStarter{wm: f.wm}
	namer := func(display, name string) error {
		f.names = append(f.names, [2]string{display, name})
		return nil
	}
	f.state = New(Options{
		Host:       f.host,
		Pool:       f.pool,
		Pointer:    f.pointer,
		Globals:    f.globals,
		WM:         f.starter,
		WMName:     namer,
		Scheduler:  f.sched,
		Decoration: decoration,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return f
}

// ready starts the window manager on display :1.
func (f *fixture) ready(t *testing.T) {
	t.Helper()
	if err := f.state.HandleXwaylandEvent(xwayland.Ready{Display: 1}); err != nil {
		t.Fatalf("HandleXwaylandEvent(Ready) error: %v", err)
	}
}

// commit runs one commit and fails the test on error.
func (f *fixture) commit(t *testing.T, surf *fakeSurface) {
	t.Helper()
	if err := f.state.ExecuteOrDeferCommit(surf); err != nil {
		t.Fatalf("ExecuteOrDeferCommit(%d) error: %v", surf.id, err)
	}
}

// pair reports window w and commits its surface.
func (f *fixture) pair(t *testing.T, w fakeWindow) *surface.Entry {
	t.Helper()
	f.state.AddUnpairedWindow(w)
	f.commit(t, &fakeSurface{id: w.surf})
	e, ok := f.state.Surfaces().Get(w.surf)
	if !ok || !e.Paired() {
		t.Fatalf("surface %d not paired", w.surf)
	}
	return e
}

func newBufferCommit(w, h int32) Attributes {
	spec := shm.Spec{Width: w, Height: h, Stride: w * 4, Format: shm.FormatARGB8888}
	return Attributes{Buffer: NewBuffer{Buffer: fakeBuffer{spec: spec, data: make([]byte, spec.Len())}}}
}

func expectPanic(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	fn()
}

var errBoom = errors.New("boom")
