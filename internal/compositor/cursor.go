package compositor

import (
	"errors"
	"image"

	"github.com/1broseidon/xwbridge/internal/surface"
)

var errNoPointer = errors.New("seat has no pointer")

// CursorKind selects how the pointer image is shown.
type CursorKind int

const (
	CursorHidden CursorKind = iota
	CursorSurface
	CursorNamed
)

// CursorImageStatus is the cursor image requested by an X11 client.
type CursorImageStatus struct {
	Kind CursorKind
	// Surface is set for CursorSurface.
	Surface Surface
	// Name is a cursor theme name, set for CursorNamed.
	Name string
}

// PointerEntered records the serial of the host's last pointer enter
// event, which cursor updates have to quote.
func (s *State) PointerEntered(serial uint32) {
	s.lastEnterSerial = serial
}

// CursorImage shows status on the host pointer. Errors are logged and
// otherwise ignored.
func (s *State) CursorImage(status CursorImageStatus) {
	pointer := s.opts.Pointer
	if pointer == nil {
		s.logger.Error("cursor image not set", "err", errNoPointer)
		return
	}

	switch status.Kind {
	case CursorHidden:
		if err := pointer.HideCursor(); err != nil {
			s.logger.Error("hide cursor", "err", err)
		}
	case CursorSurface:
		if status.Surface == nil {
			s.logger.Error("surface cursor without a surface")
			return
		}
		hotspot, ok := status.Surface.Hotspot()
		if !ok {
			hotspot = image.Point{}
		}
		e := s.surfaces.GetOrCreate(status.Surface.ID())
		e.Role = surface.Role{Kind: surface.RoleCursor}
		pointer.SetCursor(s.lastEnterSerial, e.Remote, hotspot)
	case CursorNamed:
		if err := pointer.SetNamedCursor(status.Name); err != nil {
			s.logger.Error("set named cursor", "name", status.Name, "err", err)
		}
	}
}
