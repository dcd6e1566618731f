package compositor

import (
	"fmt"

	"github.com/1broseidon/xwbridge/internal/xwayland"
)

// FatalError is returned for failures that leave the bridge unable to
// manage any X11 window. The process is expected to exit.
type FatalError struct {
	Op  string
	Err error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// javaCompatWMName is a window manager name the Java AWT toolkit knows as a
// non-reparenting window manager.
const javaCompatWMName = "LG3D"

// SetJavaCompatWMName advertises a window manager name that makes Java
// applications render correctly on a non-reparenting window manager.
func SetJavaCompatWMName(namer WMNamer, display string) error {
	return namer(display, javaCompatWMName)
}

// HandleXwaylandEvent follows the nested X server's lifecycle. It returns a
// *FatalError when the window manager cannot be set up.
func (s *State) HandleXwaylandEvent(ev xwayland.Event) error {
	switch ev := ev.(type) {
	case xwayland.Ready:
		display := ev.DisplayName()
		if s.opts.WM == nil {
			return &FatalError{Op: "start window manager", Err: fmt.Errorf("no window manager for %s", display)}
		}
		wm, err := s.opts.WM.Start(display)
		if err != nil {
			return &FatalError{Op: "start window manager", Err: err}
		}
		if s.wm != nil {
			s.closeWM()
		}
		s.wm = wm
		s.wmDisplay = display

		if s.opts.WMName != nil {
			if err := SetJavaCompatWMName(s.opts.WMName, display); err != nil {
				return &FatalError{Op: "set window manager name", Err: err}
			}
		}
		s.logger.Info("window manager started", "display", display, "session", wm.SessionID())
	case xwayland.Exited:
		if s.wm == nil {
			return nil
		}
		s.logger.Info("nested X server exited", "display", s.wmDisplay, "session", s.wm.SessionID(), "err", ev.Err)
		s.closeWM()
	}
	return nil
}

func (s *State) closeWM() {
	if err := s.wm.Close(); err != nil {
		s.logger.Warn("close window manager", "session", s.wm.SessionID(), "err", err)
	}
	s.wm = nil
	s.wmDisplay = ""
	for i := range s.unpaired {
		s.unpaired[i] = nil
	}
	s.unpaired = s.unpaired[:0]
}
