package headless

import (
	"image"

	"github.com/1broseidon/xwbridge/internal/surface"
)

// CursorState is the cursor the host pointer currently shows.
type CursorState struct {
	Hidden  bool        `json:"hidden"`
	Surface surface.ID  `json:"surface,omitempty"`
	Name    string      `json:"name,omitempty"`
	Serial  uint32      `json:"serial,omitempty"`
	Hotspot image.Point `json:"hotspot"`
}

func (h *Host) HideCursor() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cursor = CursorState{Hidden: true}
	return nil
}

func (h *Host) SetCursor(serial uint32, remote surface.Remote, hotspot image.Point) {
	var id surface.ID
	if r, ok := remote.(*Remote); ok {
		id = r.id
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cursor = CursorState{Surface: id, Serial: serial, Hotspot: hotspot}
}

// SetNamedCursor shows a cursor from the configured theme.
func (h *Host) SetNamedCursor(name string) error {
	var hotspot image.Point
	if h.Theme != nil {
		images, err := h.Theme.Load(name)
		if err != nil {
			return err
		}
		if len(images) > 0 {
			hotspot = images[0].Hotspot
		}
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cursor = CursorState{Name: name, Hotspot: hotspot}
	return nil
}

// Cursor returns the current cursor.
func (h *Host) Cursor() CursorState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cursor
}
