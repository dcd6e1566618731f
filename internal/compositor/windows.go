package compositor

import (
	"github.com/1broseidon/xwbridge/internal/surface"
)

// AddUnpairedWindow records a window the window manager reported together
// with its surface id. The next commit of that surface claims it. A window
// reported twice replaces its earlier record.
func (s *State) AddUnpairedWindow(w surface.X11Window) {
	if s.wm == nil {
		s.logger.Debug("ignoring window without a window manager", "window", w.WindowID())
		return
	}
	if e, ok := s.surfaces.FindByWindow(w.WindowID()); ok {
		if e.ID == w.WlSurfaceID() {
			e.Window = w
			return
		}
		// The window moved to a new surface.
		s.surfaces.BindWindow(e, nil)
	}
	for i, existing := range s.unpaired {
		if existing.WindowID() == w.WindowID() {
			s.unpaired[i] = w
			return
		}
	}
	s.unpaired = append(s.unpaired, w)
	s.logger.Debug("unpaired window", "window", w.WindowID(), "surface", w.WlSurfaceID())
}

// WindowConfigured replaces the stored snapshot of a window after its
// geometry or title changed.
func (s *State) WindowConfigured(w surface.X11Window) {
	for i, existing := range s.unpaired {
		if existing.WindowID() == w.WindowID() {
			s.unpaired[i] = w
			return
		}
	}
	e, ok := s.surfaces.FindByWindow(w.WindowID())
	if !ok {
		return
	}
	e.Window = w
	if e.Role.Kind == surface.RoleToplevel {
		e.Role.Toplevel.Window.SetTitle(w.Title())
	}
}

// WindowDestroyed forgets a window. Its surface stays until the protocol
// object is destroyed.
func (s *State) WindowDestroyed(windowID uint32) {
	s.dropUnpaired(func(w surface.X11Window) bool { return w.WindowID() == windowID })
	if e, ok := s.surfaces.FindByWindow(windowID); ok {
		s.surfaces.BindWindow(e, nil)
	}
}

// UnpairedWindows returns the ids of windows still waiting for a commit.
func (s *State) UnpairedWindows() []uint32 {
	out := make([]uint32, 0, len(s.unpaired))
	for _, w := range s.unpaired {
		out = append(out, w.WindowID())
	}
	return out
}

// PruneUnpaired drops unpaired windows that no longer exist on the X
// server. It returns how many were dropped.
func (s *State) PruneUnpaired() (int, error) {
	if s.wm == nil || len(s.unpaired) == 0 {
		return 0, nil
	}
	ids, err := s.wm.Windows()
	if err != nil {
		return 0, err
	}
	live := make(map[uint32]struct{}, len(ids))
	for _, id := range ids {
		live[id] = struct{}{}
	}
	return s.dropUnpaired(func(w surface.X11Window) bool {
		_, ok := live[w.WindowID()]
		return !ok
	}), nil
}

func (s *State) dropUnpaired(drop func(surface.X11Window) bool) int {
	kept := s.unpaired[:0]
	dropped := 0
	for _, w := range s.unpaired {
		if drop(w) {
			dropped++
			continue
		}
		kept = append(kept, w)
	}
	for i := len(kept); i < len(s.unpaired); i++ {
		s.unpaired[i] = nil
	}
	s.unpaired = kept
	return dropped
}
