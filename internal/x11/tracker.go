package x11

import (
	"sync"

	"github.com/1broseidon/xwbridge/internal/surface"
)

type tracked struct {
	surface  surface.ID
	mapped   bool
	override bool
	// resent is set once watch has handed the window out for a repeat
	// report.
	resent bool
}

// tracker pairs the two halves of a window's identity: the map event and
// the WL_SURFACE_ID message. They arrive in either order; a window is
// reportable once both are known.
type tracker struct {
	mu        sync.Mutex
	windows   map[uint32]*tracked
	bySurface map[surface.ID]uint32
	watched   map[surface.ID]struct{}
}

func newTracker() *tracker {
	return &tracker{
		windows:   make(map[uint32]*tracked),
		bySurface: make(map[surface.ID]uint32),
		watched:   make(map[surface.ID]struct{}),
	}
}

func (t *tracker) get(id uint32) *tracked {
	w, ok := t.windows[id]
	if !ok {
		w = &tracked{}
		t.windows[id] = w
	}
	return w
}

func (t *tracker) created(id uint32, override bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.get(id).override = override
}

// setSurface records the surface of a window and reports whether the
// window is ready to be reported, plus whether the compositor asked for
// this surface.
func (t *tracker) setSurface(id uint32, sid surface.ID) (ready, watched bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	w := t.get(id)
	if w.surface != 0 && w.surface != sid {
		delete(t.bySurface, w.surface)
	}
	w.surface = sid
	w.resent = false
	t.bySurface[sid] = id
	_, watched = t.watched[sid]
	delete(t.watched, sid)
	return w.mapped, watched
}

// mapped marks a window mapped and reports whether its surface is known.
func (t *tracker) mapped(id uint32, override bool) (sid surface.ID, ready bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	w := t.get(id)
	w.mapped = true
	w.resent = false
	w.override = w.override || override
	return w.surface, w.surface != 0
}

func (t *tracker) unmapped(id uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if w, ok := t.windows[id]; ok {
		w.mapped = false
	}
}

func (t *tracker) destroyed(id uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if w, ok := t.windows[id]; ok {
		delete(t.bySurface, w.surface)
		delete(t.windows, id)
	}
}

// lookup returns the state of a window that is mapped and paired.
func (t *tracker) lookup(id uint32) (surface.ID, bool, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	w, ok := t.windows[id]
	if !ok || !w.mapped || w.surface == 0 {
		return 0, false, false
	}
	return w.surface, w.override, true
}

// watch registers interest in sid. If a mapped window already carries it
// and has not been handed out since it was last mapped or paired, the
// window id is returned so it can be reported again.
func (t *tracker) watch(sid surface.ID) (uint32, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if id, ok := t.bySurface[sid]; ok && t.windows[id].mapped {
		w := t.windows[id]
		fresh := !w.resent
		w.resent = true
		return id, fresh
	}
	t.watched[sid] = struct{}{}
	return 0, false
}

func (t *tracker) count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.windows)
}
