package x11

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/xevent"
	"github.com/BurntSushi/xgbutil/xprop"
	"github.com/google/uuid"

	"github.com/1broseidon/xwbridge/internal/compositor"
	"github.com/1broseidon/xwbridge/internal/surface"
)

// Sink receives window events. It is called from the X event goroutine and
// must hand work off without touching compositor state.
type Sink interface {
	WindowMapped(w Window)
	WindowConfigured(w Window)
	WindowDestroyed(windowID uint32)
}

// WM is a window manager session on one nested X server.
type WM struct {
	conn        *Connection
	sink        Sink
	logger      *slog.Logger
	session     string
	surfaceAtom xproto.Atom
	tracker     *tracker

	done      chan struct{}
	closeOnce sync.Once
}

// Starter starts WM sessions that report to Sink.
type Starter struct {
	Sink   Sink
	Logger *slog.Logger
}

func (s Starter) Start(display string) (compositor.WindowManager, error) {
	return StartWM(display, s.Sink, s.Logger)
}

// StartWM connects to display and takes over window management.
func StartWM(display string, sink Sink, logger *slog.Logger) (*WM, error) {
	if logger == nil {
		logger = slog.Default()
	}
	conn, err := Dial(display)
	if err != nil {
		return nil, err
	}

	err = xproto.ChangeWindowAttributesChecked(
		conn.conn(),
		conn.Root,
		xproto.CwEventMask,
		[]uint32{xproto.EventMaskSubstructureRedirect | xproto.EventMaskSubstructureNotify},
	).Check()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("another window manager is running on %s: %w", display, err)
	}

	atom, err := xprop.Atm(conn.XUtil, "WL_SURFACE_ID")
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("intern WL_SURFACE_ID: %w", err)
	}

	wm := &WM{
		conn:        conn,
		sink:        sink,
		session:     uuid.NewString(),
		surfaceAtom: atom,
		tracker:     newTracker(),
		done:        make(chan struct{}),
	}
	wm.logger = logger.With("session", wm.session, "display", display)

	wm.connectRoot()
	wm.adoptExisting()

	go func() {
		defer close(wm.done)
		conn.Dispatch()
	}()
	return wm, nil
}

func (wm *WM) SessionID() string {
	return wm.session
}

func (wm *WM) connectRoot() {
	xu := wm.conn.XUtil
	root := wm.conn.Root

	xevent.CreateNotifyFun(func(xu *xgbutil.XUtil, ev xevent.CreateNotifyEvent) {
		wm.track(ev.Window, ev.OverrideRedirect)
	}).Connect(xu, root)

	xevent.MapRequestFun(func(xu *xgbutil.XUtil, ev xevent.MapRequestEvent) {
		if err := xproto.MapWindowChecked(xu.Conn(), ev.Window).Check(); err != nil {
			wm.logger.Warn("map window", "window", uint32(ev.Window), "err", err)
		}
	}).Connect(xu, root)

	xevent.MapNotifyFun(func(xu *xgbutil.XUtil, ev xevent.MapNotifyEvent) {
		if sid, ready := wm.tracker.mapped(uint32(ev.Window), ev.OverrideRedirect); ready {
			wm.report(ev.Window, sid, wm.sink.WindowMapped)
		}
	}).Connect(xu, root)

	xevent.ConfigureRequestFun(func(xu *xgbutil.XUtil, ev xevent.ConfigureRequestEvent) {
		mask, values := configureValues(ev.ConfigureRequestEvent)
		if err := xproto.ConfigureWindowChecked(xu.Conn(), ev.Window, mask, values).Check(); err != nil {
			wm.logger.Warn("configure window", "window", uint32(ev.Window), "err", err)
		}
	}).Connect(xu, root)

}

// track starts following a window, including the WL_SURFACE_ID message the
// nested server sends about it. xgbutil routes unmap, configure and destroy
// notifications by the child window, so those handlers hang off win rather
// than the root.
func (wm *WM) track(win xproto.Window, override bool) {
	wm.tracker.created(uint32(win), override)
	xu := wm.conn.XUtil

	xevent.UnmapNotifyFun(func(xu *xgbutil.XUtil, ev xevent.UnmapNotifyEvent) {
		wm.tracker.unmapped(uint32(ev.Window))
	}).Connect(xu, win)

	xevent.ConfigureNotifyFun(func(xu *xgbutil.XUtil, ev xevent.ConfigureNotifyEvent) {
		if sid, _, ok := wm.tracker.lookup(uint32(ev.Window)); ok {
			wm.report(ev.Window, sid, wm.sink.WindowConfigured)
		}
	}).Connect(xu, win)

	xevent.DestroyNotifyFun(func(xu *xgbutil.XUtil, ev xevent.DestroyNotifyEvent) {
		wm.tracker.destroyed(uint32(ev.Window))
		xevent.Detach(xu, ev.Window)
		wm.sink.WindowDestroyed(uint32(ev.Window))
	}).Connect(xu, win)

	xevent.ClientMessageFun(func(xu *xgbutil.XUtil, ev xevent.ClientMessageEvent) {
		sid, ok := surfaceIDFromMessage(ev.ClientMessageEvent, wm.surfaceAtom)
		if !ok {
			return
		}
		ready, watched := wm.tracker.setSurface(uint32(ev.Window), sid)
		wm.logger.Debug("WL_SURFACE_ID", "window", uint32(ev.Window), "surface", sid, "watched", watched)
		if ready {
			wm.report(ev.Window, sid, wm.sink.WindowMapped)
		}
	}).Connect(xu, win)
}

// adoptExisting tracks windows created before the session started.
func (wm *WM) adoptExisting() {
	tree, err := xproto.QueryTree(wm.conn.conn(), wm.conn.Root).Reply()
	if err != nil {
		wm.logger.Warn("query existing windows", "err", err)
		return
	}
	for _, win := range tree.Children {
		attrs, err := xproto.GetWindowAttributes(wm.conn.conn(), win).Reply()
		if err != nil {
			continue
		}
		wm.track(win, attrs.OverrideRedirect)
		if attrs.MapState != xproto.MapStateUnmapped {
			wm.tracker.mapped(uint32(win), attrs.OverrideRedirect)
		}
	}
}

func (wm *WM) report(win xproto.Window, sid surface.ID, fn func(Window)) {
	_, override, _ := wm.tracker.lookup(uint32(win))
	snap, err := wm.conn.Snapshot(win, sid, override)
	if err != nil {
		wm.logger.Warn("snapshot window", "window", uint32(win), "err", err)
		return
	}
	fn(snap)
}

// WatchSurface registers interest in sid. It runs on the compositor loop,
// so a window already carrying sid is re-reported from another goroutine,
// and only once until it is mapped or paired again.
func (wm *WM) WatchSurface(sid surface.ID) {
	if id, ok := wm.tracker.watch(sid); ok {
		go wm.report(xproto.Window(id), sid, wm.sink.WindowMapped)
	}
}

// Windows lists the top-level windows that currently exist.
func (wm *WM) Windows() ([]uint32, error) {
	return wm.conn.TopLevelWindows()
}

// Close ends the session and waits briefly for the event loop to stop.
func (wm *WM) Close() error {
	wm.closeOnce.Do(func() {
		wm.conn.Close()
		select {
		case <-wm.done:
		case <-time.After(time.Second):
			wm.logger.Warn("X event loop did not stop")
		}
	})
	return nil
}

func surfaceIDFromMessage(ev *xproto.ClientMessageEvent, atom xproto.Atom) (surface.ID, bool) {
	if ev.Type != atom || ev.Format != 32 {
		return 0, false
	}
	data := ev.Data.Data32
	if len(data) == 0 || data[0] == 0 {
		return 0, false
	}
	return surface.ID(data[0]), true
}

// configureValues turns a ConfigureRequest into ConfigureWindow arguments,
// granting exactly what was asked for.
func configureValues(ev *xproto.ConfigureRequestEvent) (uint16, []uint32) {
	var mask uint16
	var values []uint32
	add := func(bit uint16, v uint32) {
		if ev.ValueMask&bit != 0 {
			mask |= bit
			values = append(values, v)
		}
	}
	add(xproto.ConfigWindowX, uint32(int32(ev.X)))
	add(xproto.ConfigWindowY, uint32(int32(ev.Y)))
	add(xproto.ConfigWindowWidth, uint32(ev.Width))
	add(xproto.ConfigWindowHeight, uint32(ev.Height))
	add(xproto.ConfigWindowBorderWidth, uint32(ev.BorderWidth))
	add(xproto.ConfigWindowSibling, uint32(ev.Sibling))
	add(xproto.ConfigWindowStackMode, uint32(ev.StackMode))
	return mask, values
}
