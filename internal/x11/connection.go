// Package x11 is the window manager the bridge runs on the nested X server.
// It reports windows and their WL_SURFACE_ID pairing information; it never
// draws anything itself.
package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/xevent"
)

// Connection is one client connection to an X display.
type Connection struct {
	XUtil *xgbutil.XUtil
	Root  xproto.Window
}

// Dial connects to display, e.g. ":1". An empty display uses $DISPLAY.
func Dial(display string) (*Connection, error) {
	xu, err := xgbutil.NewConnDisplay(display)
	if err != nil {
		return nil, fmt.Errorf("x11: dial %q: %w", display, err)
	}
	return &Connection{XUtil: xu, Root: xu.RootWin()}, nil
}

func (c *Connection) conn() *xgb.Conn { return c.XUtil.Conn() }

// Dispatch runs registered event handlers until Close.
func (c *Connection) Dispatch() { xevent.Main(c.XUtil) }

func (c *Connection) Close() {
	xevent.Quit(c.XUtil)
	c.conn().Close()
}
