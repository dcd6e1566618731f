package compositor

import (
	"errors"
	"fmt"

	"github.com/1broseidon/xwbridge/internal/shm"
	"github.com/1broseidon/xwbridge/internal/surface"
)

var (
	errNoPool      = errors.New("no pixel pool")
	errNoScheduler = errors.New("no idle scheduler")
)

// Commit handles a surface commit from the protocol substrate. Failures are
// logged and leave the surface to be picked up by its next commit.
func (s *State) Commit(surf Surface) {
	if err := s.ExecuteOrDeferCommit(surf); err != nil {
		s.logger.Error("commit failed", "surface", surf.ID(), "err", err)
	}
}

// ExecuteOrDeferCommit runs the commit pipeline for surf. A surface that is
// neither paired with an X11 window nor used as a cursor is committed again
// on the next idle pass, until its window shows up or the surface dies.
func (s *State) ExecuteOrDeferCommit(surf Surface) error {
	if err := s.commit(surf); err != nil {
		return err
	}

	e, ok := s.surfaces.Get(surf.ID())
	if ok && (e.Paired() || e.Role.Kind == surface.RoleCursor) {
		return nil
	}

	s.logger.Debug("deferring commit", "surface", surf.ID())
	if s.wm != nil {
		s.wm.WatchSurface(surf.ID())
	}
	if s.opts.Scheduler == nil {
		return fmt.Errorf("defer commit of surface %d: %w", surf.ID(), errNoScheduler)
	}
	err := s.opts.Scheduler.InsertIdle(func(st *State) {
		if !surf.Alive() {
			st.logger.Debug("dropping deferred commit of dead surface", "surface", surf.ID())
			return
		}
		if err := st.ExecuteOrDeferCommit(surf); err != nil {
			st.logger.Error("deferred commit failed", "surface", surf.ID(), "err", err)
		}
	})
	if err != nil {
		return fmt.Errorf("defer commit of surface %d: %w", surf.ID(), err)
	}
	return nil
}

func (s *State) commit(surf Surface) error {
	id := surf.ID()
	attrs := surf.Current()

	window := s.claimUnpaired(id)
	var parent *X11Parent
	if window != nil {
		s.logger.Debug("matched x11 window", "surface", id, "window", window.WindowID())
		parent = s.FindX11Parent(window)
		if parent != nil && parent.SurfaceID == id {
			panic(fmt.Sprintf("tried to register surface %d as a child of itself", id))
		}
	}

	e := s.surfaces.GetOrCreate(id)

	if window != nil {
		if err := s.assignRole(e, window, parent); err != nil {
			s.unpaired = append(s.unpaired, window)
			return err
		}
		if parent != nil {
			s.logger.Debug("registering child", "surface", id, "parent", parent.SurfaceID)
			if err := s.surfaces.AddChild(parent.SurfaceID, id); err != nil {
				panic(fmt.Sprintf("register surface %d under %d: %v", id, parent.SurfaceID, err))
			}
		}
		s.surfaces.BindWindow(e, window)
	}

	if err := s.applyBuffer(e, attrs.Buffer); err != nil {
		return fmt.Errorf("surface %d: %w", id, err)
	}

	if e.Role.Kind == surface.RoleToplevel {
		if top := e.Role.Toplevel; top.Configured && top.Frame != nil && top.Frame.Dirty() {
			top.Frame.Draw()
		}
	}

	if e.Remote != nil {
		e.Remote.Frame()
		e.Remote.Commit()
	}
	e.Commits++

	if !e.Paired() || e.Role.Kind == surface.RoleCursor {
		surf.SendFrames(s.elapsed(), 0)
	}
	return nil
}

// claimUnpaired removes and returns the unpaired window whose surface is id.
func (s *State) claimUnpaired(id surface.ID) surface.X11Window {
	for i, w := range s.unpaired {
		if w.WlSurfaceID() != id {
			continue
		}
		last := len(s.unpaired) - 1
		s.unpaired[i] = s.unpaired[last]
		s.unpaired[last] = nil
		s.unpaired = s.unpaired[:last]
		return w
	}
	return nil
}

func (s *State) applyBuffer(e *surface.Entry, assignment BufferAssignment) error {
	switch a := assignment.(type) {
	case NewBuffer:
		if s.opts.Pool == nil {
			return errNoPool
		}
		var installed *shm.Buffer
		err := a.Buffer.WithContents(func(data []byte, spec shm.Spec) error {
			buf, err := s.opts.Pool.Install(spec, data)
			installed = buf
			return err
		})
		if err != nil {
			return fmt.Errorf("install buffer: %w", err)
		}
		if e.Buffer != nil {
			e.Buffer.Release()
		}
		e.Buffer = installed
		if e.Remote != nil {
			e.Remote.Attach(installed, 0, 0)
		}
	case RemovedBuffer:
		if e.Buffer != nil {
			e.Buffer.Release()
			e.Buffer = nil
		}
		if e.Remote != nil {
			e.Remote.Attach(nil, 0, 0)
		}
	}
	return nil
}
