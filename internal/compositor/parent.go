package compositor

import (
	"fmt"
	"image"

	"github.com/1broseidon/xwbridge/internal/surface"
)

// PopupParent is what a popup child is positioned against.
type PopupParent struct {
	SurfaceID surface.ID
	Anchor    surface.Anchor
	// Offset converts root coordinates into the anchor's surface
	// coordinates.
	Offset image.Point
}

// X11Parent is the resolved parent of a transient window.
type X11Parent struct {
	SurfaceID surface.ID
	// ForToplevel is nil when the parent is not a toplevel.
	ForToplevel surface.HostToplevel
	ForPopup    PopupParent
}

// FindX11Parent resolves the surface that w is transient for. It returns nil
// when w declares no transient-for target.
//
// X11 creates a parent window before any child can refer to it, so a target
// that is not paired yet, or is paired with a surface that has no usable
// role, is an ordering bug and panics.
func (s *State) FindX11Parent(w surface.X11Window) *X11Parent {
	if w == nil {
		return nil
	}
	target, ok := w.TransientFor()
	if !ok {
		return nil
	}
	parent, ok := s.surfaces.FindByWindow(target)
	if !ok {
		panic(fmt.Sprintf("window %#x is transient for unpaired window %#x", w.WindowID(), target))
	}
	origin := parent.Window.Geometry().Min

	switch parent.Role.Kind {
	case surface.RoleToplevel:
		top := parent.Role.Toplevel
		return &X11Parent{
			SurfaceID:   parent.ID,
			ForToplevel: top.Window,
			ForPopup: PopupParent{
				SurfaceID: parent.ID,
				Anchor:    top.Window,
				Offset:    top.FrameOffset().Sub(origin),
			},
		}
	case surface.RolePopup:
		return &X11Parent{
			SurfaceID: parent.ID,
			ForPopup: PopupParent{
				SurfaceID: parent.ID,
				Anchor:    parent.Role.Popup.Popup,
				Offset:    image.Point{}.Sub(origin),
			},
		}
	case surface.RoleCursor:
		panic("cursors cannot have child surfaces")
	default:
		panic(fmt.Sprintf("parent surface %d has no role yet", parent.ID))
	}
}

// Ancestors returns the parent chain of id, nearest first.
func (s *State) Ancestors(id surface.ID) ([]surface.ID, error) {
	return s.surfaces.Ancestors(id)
}
