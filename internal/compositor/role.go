package compositor

import (
	"errors"
	"fmt"

	"github.com/1broseidon/xwbridge/internal/surface"
)

var errNoHost = errors.New("no host connection")

// decorate reports whether w gets a server-side frame.
func (s *State) decorate(w surface.X11Window) bool {
	switch s.opts.Decoration {
	case DecorationAlwaysEnabled:
		return true
	case DecorationAlwaysDisabled:
		return false
	default:
		return s.opts.AutoDecorate != nil && s.opts.AutoDecorate(w)
	}
}

// assignRole gives a freshly paired entry its host role. Override-redirect
// windows and children of popups become popups; everything else becomes a
// toplevel. An entry that already has a role only picks up the new title.
func (s *State) assignRole(e *surface.Entry, w surface.X11Window, parent *X11Parent) error {
	switch e.Role.Kind {
	case surface.RoleToplevel:
		e.Role.Toplevel.Window.SetTitle(w.Title())
		return nil
	case surface.RoleUnassigned:
	default:
		return nil
	}
	if s.opts.Host == nil {
		return errNoHost
	}

	if parent != nil && (w.OverrideRedirect() || parent.ForToplevel == nil) {
		pos := w.Geometry().Min.Add(parent.ForPopup.Offset)
		popup, err := s.opts.Host.NewPopup(e.Remote, parent.ForPopup.Anchor, pos)
		if err != nil {
			return fmt.Errorf("create popup for surface %d: %w", e.ID, err)
		}
		e.Role = surface.Role{
			Kind:  surface.RolePopup,
			Popup: &surface.Popup{Popup: popup, Position: pos},
		}
		return nil
	}

	var parentToplevel surface.HostToplevel
	if parent != nil {
		parentToplevel = parent.ForToplevel
	}
	window, err := s.opts.Host.NewToplevel(e.Remote, parentToplevel, w.Title())
	if err != nil {
		return fmt.Errorf("create toplevel for surface %d: %w", e.ID, err)
	}
	top := &surface.Toplevel{Window: window}
	if s.decorate(w) {
		frame, err := s.opts.Host.NewFrame(window)
		if err != nil {
			return fmt.Errorf("create frame for surface %d: %w", e.ID, err)
		}
		top.Frame = frame
	}
	e.Role = surface.Role{Kind: surface.RoleToplevel, Toplevel: top}
	return nil
}
