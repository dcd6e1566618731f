package x11

import (
	"fmt"

	"github.com/BurntSushi/xgbutil/ewmh"
)

// SetWMName advertises name as the running window manager: the root window
// becomes its own _NET_SUPPORTING_WM_CHECK window and carries _NET_WM_NAME.
func (c *Connection) SetWMName(name string) error {
	if err := ewmh.SupportingWmCheckSet(c.XUtil, c.Root, c.Root); err != nil {
		return fmt.Errorf("set _NET_SUPPORTING_WM_CHECK: %w", err)
	}
	if err := ewmh.WmNameSet(c.XUtil, c.Root, name); err != nil {
		return fmt.Errorf("set _NET_WM_NAME: %w", err)
	}
	// Flush with a round trip so the properties exist once we return.
	if _, err := ewmh.WmNameGet(c.XUtil, c.Root); err != nil {
		return fmt.Errorf("read back _NET_WM_NAME: %w", err)
	}
	return nil
}

// SetWMNameStandalone sets the window manager name using a new temporary
// X11 connection to display.
func SetWMNameStandalone(display, name string) error {
	conn, err := Dial(display)
	if err != nil {
		return fmt.Errorf("failed to connect to X11: %w", err)
	}
	defer conn.Close()

	return conn.SetWMName(name)
}
