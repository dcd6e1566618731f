package x11

import (
	"fmt"
	"image"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"

	"github.com/1broseidon/xwbridge/internal/surface"
)

// Window is a snapshot of a managed window. It implements
// surface.X11Window.
type Window struct {
	ID        uint32
	Surface   surface.ID
	Transient uint32
	Rect      image.Rectangle
	Override  bool
	Name      string
}

func (w Window) WindowID() uint32 { return w.ID }
func (w Window) WlSurfaceID() surface.ID { return w.Surface }
func (w Window) Geometry() image.Rectangle { return w.Rect }
func (w Window) OverrideRedirect() bool { return w.Override }
func (w Window) Title() string { return w.Name }

func (w Window) TransientFor() (uint32, bool) {
	return w.Transient, w.Transient != 0
}

func (w Window) String() string {
	return fmt.Sprintf("window %#x (surface %d) %v", w.ID, w.Surface, w.Rect)
}

// Geometry returns a window's rectangle in root coordinates.
func (c *Connection) Geometry(windowID xproto.Window) (image.Rectangle, error) {
	geom, err := xproto.GetGeometry(c.conn(), xproto.Drawable(windowID)).Reply()
	if err != nil {
		return image.Rectangle{}, fmt.Errorf("get geometry of %#x: %w", windowID, err)
	}

	translate, err := xproto.TranslateCoordinates(
		c.conn(),
		windowID,
		c.Root,
		0, 0,
	).Reply()
	if err != nil {
		return image.Rectangle{}, fmt.Errorf("translate coordinates of %#x: %w", windowID, err)
	}

	x, y := int(translate.DstX), int(translate.DstY)
	return image.Rect(x, y, x+int(geom.Width), y+int(geom.Height)), nil
}

// Title returns _NET_WM_NAME, falling back to WM_NAME.
func (c *Connection) Title(windowID xproto.Window) string {
	if name, err := ewmh.WmNameGet(c.XUtil, windowID); err == nil && name != "" {
		return name
	}
	name, _ := icccm.WmNameGet(c.XUtil, windowID)
	return name
}

// TransientFor returns the WM_TRANSIENT_FOR target, or 0.
func (c *Connection) TransientFor(windowID xproto.Window) uint32 {
	parent, err := icccm.WmTransientForGet(c.XUtil, windowID)
	if err != nil || parent == c.Root {
		return 0
	}
	return uint32(parent)
}

// Snapshot queries everything a Window carries. The override-redirect flag
// and surface id come from the caller, which learns them from events.
func (c *Connection) Snapshot(windowID xproto.Window, sid surface.ID, override bool) (Window, error) {
	rect, err := c.Geometry(windowID)
	if err != nil {
		return Window{}, err
	}
	return Window{
		ID:        uint32(windowID),
		Surface:   sid,
		Transient: c.TransientFor(windowID),
		Rect:      rect,
		Override:  override,
		Name:      c.Title(windowID),
	}, nil
}

// TopLevelWindows lists the children of the root window.
func (c *Connection) TopLevelWindows() ([]uint32, error) {
	tree, err := xproto.QueryTree(c.conn(), c.Root).Reply()
	if err != nil {
		return nil, fmt.Errorf("query tree: %w", err)
	}
	out := make([]uint32, 0, len(tree.Children))
	for _, w := range tree.Children {
		out = append(out, uint32(w))
	}
	return out, nil
}
