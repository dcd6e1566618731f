// Package compositor reconciles the surfaces created by the nested X server
// with the X11 windows its window manager reports, and forwards the result
// to the host connection.
//
// A State is owned by a single event loop goroutine. None of its methods
// may be called concurrently.
package compositor

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/1broseidon/xwbridge/internal/output"
	"github.com/1broseidon/xwbridge/internal/surface"
)

// DecorationBehavior controls server-side decoration frames.
type DecorationBehavior int

const (
	// DecorationAuto leaves the decision to Options.AutoDecorate.
	DecorationAuto DecorationBehavior = iota
	DecorationAlwaysEnabled
	DecorationAlwaysDisabled
)

var decorationNames = []string{"auto", "always_enabled", "always_disabled"}

func (d DecorationBehavior) String() string {
	if d >= 0 && int(d) < len(decorationNames) {
		return decorationNames[d]
	}
	return fmt.Sprintf("decoration(%d)", int(d))
}

func (d DecorationBehavior) MarshalText() ([]byte, error) {
	if d < 0 || int(d) >= len(decorationNames) {
		return nil, fmt.Errorf("invalid decoration behavior %d", int(d))
	}
	return []byte(decorationNames[d]), nil
}

func (d *DecorationBehavior) UnmarshalText(text []byte) error {
	v, err := ParseDecorationBehavior(string(text))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// ParseDecorationBehavior accepts auto, always_enabled and always_disabled.
// Dashes are accepted in place of underscores.
func ParseDecorationBehavior(s string) (DecorationBehavior, error) {
	v := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	for i, name := range decorationNames {
		if v == name {
			return DecorationBehavior(i), nil
		}
	}
	return DecorationAuto, fmt.Errorf("unknown decoration behavior %q (expected auto, always_enabled or always_disabled)", s)
}

// Options wires a State to its collaborators. Only Host is required for
// windows to be forwarded; a missing Pool or Pointer makes the operations
// that need it fail with a logged error.
type Options struct {
	Host      Host
	Pool      Pool
	Pointer   Pointer
	Globals   GlobalRegistry
	WM        WMStarter
	WMName    WMNamer
	Scheduler Scheduler

	Decoration DecorationBehavior
	// AutoDecorate decides per window when Decoration is DecorationAuto.
	// A nil policy never decorates.
	AutoDecorate func(w surface.X11Window) bool

	Logger *slog.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

type outputEntry struct {
	output *output.Output
	global GlobalID
}

// State is the compositor's shared state. Every handler receives it
// explicitly.
type State struct {
	opts   Options
	logger *slog.Logger
	start  time.Time

	surfaces *surface.Registry
	// unpaired holds windows the window manager reported that no commit has
	// claimed yet.
	unpaired []surface.X11Window
	outputs  map[uint32]*outputEntry

	wm        WindowManager
	wmDisplay string

	lastEnterSerial uint32
}

func New(opts Options) *State {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	var newRemote func(surface.ID) surface.Remote
	if opts.Host != nil {
		newRemote = opts.Host.NewSurface
	}
	return &State{
		opts:     opts,
		logger:   logger,
		start:    opts.Now(),
		surfaces: surface.NewRegistry(newRemote),
		outputs:  make(map[uint32]*outputEntry),
	}
}

// SetScheduler sets the scheduler used for deferred commits. It exists for
// callers that create the event loop after the State.
func (s *State) SetScheduler(sched Scheduler) {
	s.opts.Scheduler = sched
}

// Surfaces exposes the surface registry.
func (s *State) Surfaces() *surface.Registry {
	return s.surfaces
}

// SurfaceDestroyed drops a surface whose protocol object went away.
func (s *State) SurfaceDestroyed(id surface.ID) {
	s.surfaces.Remove(id)
	s.logger.Debug("surface destroyed", "surface", id)
}

// Configure records that the host has sent the first configure for the
// toplevel of surface id.
func (s *State) Configure(id surface.ID) {
	e, ok := s.surfaces.Get(id)
	if !ok || e.Role.Kind != surface.RoleToplevel || e.Role.Toplevel == nil {
		return
	}
	e.Role.Toplevel.Configured = true
}

// WindowManager returns the running window manager session, if any.
func (s *State) WindowManager() (WindowManager, bool) {
	return s.wm, s.wm != nil
}

func (s *State) elapsed() time.Duration {
	return s.opts.Now().Sub(s.start)
}
