package daemon

import (
	"context"
	"errors"
	"time"

	"github.com/1broseidon/xwbridge/internal/compositor"
	"github.com/1broseidon/xwbridge/internal/headless"
	"github.com/1broseidon/xwbridge/internal/ipc"
	"github.com/1broseidon/xwbridge/internal/output"
	"github.com/1broseidon/xwbridge/internal/x11"
)

// ErrLoopStopped is returned when the compositor loop no longer runs.
var ErrLoopStopped = errors.New("compositor loop stopped")

var _ ipc.Backend = (*Bridge)(nil)

// Bridge answers queries by running them on the compositor loop.
type Bridge struct {
	post   Poster
	host   *headless.Host
	start  time.Time
	reload func(ctx context.Context) error
}

// NewBridge returns a Bridge posting to post. host and reload may be nil.
func NewBridge(post Poster, host *headless.Host, reload func(ctx context.Context) error) *Bridge {
	return &Bridge{
		post:   post,
		host:   host,
		start:  time.Now(),
		reload: reload,
	}
}

// do runs fn on the loop and waits for it to finish or for ctx to end.
func (b *Bridge) do(ctx context.Context, fn func(*compositor.State)) error {
	done := make(chan struct{})
	ok := b.post.Send(func(st *compositor.State) {
		defer close(done)
		fn(st)
	})
	if !ok {
		return ErrLoopStopped
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Bridge) Status(ctx context.Context) (ipc.StatusData, error) {
	var status compositor.Status
	err := b.do(ctx, func(st *compositor.State) {
		status = st.Status()
	})
	if err != nil {
		return ipc.StatusData{}, err
	}

	data := ipc.StatusData{
		Bridge:        status,
		UptimeSeconds: int64(time.Since(b.start).Seconds()),
	}
	if b.host != nil {
		stats := b.host.Stats()
		data.Host = &stats
	}
	return data, nil
}

func (b *Bridge) Surfaces(ctx context.Context) ([]compositor.SurfaceSnapshot, error) {
	var snaps []compositor.SurfaceSnapshot
	err := b.do(ctx, func(st *compositor.State) {
		snaps = st.SurfaceSnapshots()
	})
	return snaps, err
}

func (b *Bridge) Outputs(ctx context.Context) ([]compositor.OutputSnapshot, error) {
	var snaps []compositor.OutputSnapshot
	err := b.do(ctx, func(st *compositor.State) {
		snaps = st.OutputSnapshots()
	})
	return snaps, err
}

func (b *Bridge) ApplyOutput(ctx context.Context, info output.Info) error {
	var applyErr error
	if err := b.do(ctx, func(st *compositor.State) {
		applyErr = st.HandleOutput(info)
	}); err != nil {
		return err
	}
	return applyErr
}

func (b *Bridge) Reload(ctx context.Context) error {
	if b.reload == nil {
		return errors.New("reload not supported")
	}
	return b.reload(ctx)
}

// windowSink forwards window manager events to the loop.
type windowSink struct {
	post Poster
}

var _ x11.Sink = windowSink{}

func (s windowSink) WindowMapped(w x11.Window) {
	s.post.Send(func(st *compositor.State) {
		st.AddUnpairedWindow(w)
	})
}

func (s windowSink) WindowConfigured(w x11.Window) {
	s.post.Send(func(st *compositor.State) {
		st.WindowConfigured(w)
	})
}

func (s windowSink) WindowDestroyed(windowID uint32) {
	s.post.Send(func(st *compositor.State) {
		st.WindowDestroyed(windowID)
	})
}
