// Package daemon runs the bridge and its control surfaces under one suture
// supervisor.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/thejerf/suture/v4"

	"github.com/1broseidon/xwbridge/internal/api"
	"github.com/1broseidon/xwbridge/internal/compositor"
	"github.com/1broseidon/xwbridge/internal/config"
	"github.com/1broseidon/xwbridge/internal/cursor"
	"github.com/1broseidon/xwbridge/internal/eventloop"
	"github.com/1broseidon/xwbridge/internal/headless"
	"github.com/1broseidon/xwbridge/internal/ipc"
	"github.com/1broseidon/xwbridge/internal/output"
	"github.com/1broseidon/xwbridge/internal/runtimepath"
	"github.com/1broseidon/xwbridge/internal/shm"
	"github.com/1broseidon/xwbridge/internal/x11"
	"github.com/1broseidon/xwbridge/internal/xwayland"
)

// Options configures a Daemon.
type Options struct {
	Config *config.Config
	// ConfigPath is re-read on reload. Empty uses the default lookup.
	ConfigPath string
	// Level, when set, follows log_level across reloads.
	Level   *slog.LevelVar
	Logger  *slog.Logger
	Version string

	// WM overrides the X11 window manager. Nil uses x11.Starter.
	WM compositor.WMStarter
	// WMName overrides how the window manager name is advertised.
	WMName compositor.WMNamer
}

// Daemon owns every long-running part of the bridge.
type Daemon struct {
	opts   Options
	logger *slog.Logger

	loop   *eventloop.Loop[*compositor.State]
	state  *compositor.State
	host   *headless.Host
	pool   *shm.Pool
	bridge *Bridge

	launcher   *xwayland.Launcher
	ipc        *ipc.Server
	http       *api.Server
	reconciler *Reconciler

	cfgMu sync.Mutex
	cfg   *config.Config

	fatalMu sync.Mutex
	fatal   error
}

// New builds a daemon from opts. Nothing runs until Run is called.
func New(opts Options) (*Daemon, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	pool, err := shm.NewPool("xwbridge", cfg.Pool.InitialSize)
	if err != nil {
		return nil, fmt.Errorf("create pixel pool: %w", err)
	}

	socketPath := cfg.IPC.Socket
	if socketPath == "" {
		socketPath, err = runtimepath.SocketPath()
		if err != nil {
			pool.Close()
			return nil, err
		}
	}

	d := &Daemon{
		opts:   opts,
		logger: logger,
		loop:   eventloop.New[*compositor.State](),
		host:   headless.New(cursor.NewTheme(cfg.Cursor.Theme, cfg.Cursor.Size), logger.With("component", "host")),
		pool:   pool,
		cfg:    cfg,
	}
	sender := d.loop.Sender()

	wm := opts.WM
	if wm == nil {
		wm = x11.Starter{Sink: windowSink{post: sender}, Logger: logger.With("component", "wm")}
	}
	wmName := opts.WMName
	if wmName == nil {
		wmName = x11.SetWMNameStandalone
	}

	d.state = compositor.New(compositor.Options{
		Host:       d.host,
		Pool:       pool,
		Pointer:    d.host,
		Globals:    d.host,
		WM:         wm,
		WMName:     wmName,
		Scheduler:  d.loop,
		Decoration: cfg.DecorationBehavior,
		Logger:     logger.With("component", "compositor"),
	})

	d.bridge = NewBridge(sender, d.host, d.reload)
	d.launcher = &xwayland.Launcher{
		Command:        cfg.Xwayland.Command,
		ExtraArgs:      cfg.Xwayland.ExtraArgs,
		WaylandDisplay: cfg.Xwayland.WaylandDisplay,
		Logger:         logger.With("component", "xwayland"),
		Events:         d.handleXwayland,
	}
	d.ipc = ipc.NewServer(socketPath, d.bridge, logger.With("component", "ipc"))
	if cfg.HTTP.Listen != "" {
		d.http = &api.Server{
			Addr:    cfg.HTTP.Listen,
			Handler: api.New(d.bridge, opts.Version),
			Logger:  logger.With("component", "http"),
		}
	}
	d.reconciler = NewReconciler(ReconcilerConfig{
		Interval: cfg.ReconcileInterval,
		Logger:   logger.With("component", "reconciler"),
	}, sender)

	d.applyOutputs(cfg.Outputs)
	return d, nil
}

// Bridge returns the query backend served over IPC and HTTP.
func (d *Daemon) Bridge() *Bridge {
	return d.bridge
}

// Run supervises the daemon until ctx is cancelled or the compositor loop
// stops. The error that stopped the loop, usually a
// *compositor.FatalError, is returned as is.
func (d *Daemon) Run(ctx context.Context) error {
	defer d.pool.Close()

	super := NewSupervisor("xwbridge", d.logger)
	Add(super, NewServiceFunc("eventloop", d.serveLoop))
	Add(super, d.launcher)
	Add(super, d.ipc)
	if d.http != nil {
		Add(super, d.http)
	}
	Add(super, d.reconciler)

	d.logger.Info("xwbridge daemon started", "version", d.opts.Version)
	err := super.Serve(ctx)

	if fatal := d.fatalErr(); fatal != nil {
		return fatal
	}
	if err == nil || ctx.Err() != nil {
		d.logger.Info("xwbridge daemon stopped")
		return nil
	}
	return err
}

// serveLoop runs the compositor loop. The loop cannot be restarted once
// stopped, so any exit other than cancellation takes the tree down and is
// what Run reports.
func (d *Daemon) serveLoop(ctx context.Context) error {
	err := d.loop.Run(ctx, d.state)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err == nil {
		err = eventloop.ErrClosed
	}
	d.fatalMu.Lock()
	d.fatal = err
	d.fatalMu.Unlock()
	return suture.ErrTerminateSupervisorTree
}

func (d *Daemon) fatalErr() error {
	d.fatalMu.Lock()
	defer d.fatalMu.Unlock()
	return d.fatal
}

// handleXwayland is called from the launcher goroutine.
func (d *Daemon) handleXwayland(ev xwayland.Event) {
	d.logger.Debug("xwayland event", "event", ev.String())
	d.loop.Sender().Send(func(st *compositor.State) {
		if err := st.HandleXwaylandEvent(ev); err != nil {
			d.logger.Error("fatal bridge error", "err", err)
			d.loop.Stop(err)
		}
	})
}

func (d *Daemon) applyOutputs(outputs []output.Info) {
	for _, info := range outputs {
		d.loop.Sender().Send(func(st *compositor.State) {
			if err := st.HandleOutput(info); err != nil {
				d.logger.Error("apply configured output", "output", info.ID, "err", err)
			}
		})
	}
}

func (d *Daemon) loadConfig() (*config.Config, error) {
	if d.opts.ConfigPath == "" {
		return config.Load()
	}
	res, err := config.LoadFromPath(d.opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	return res.Config, nil
}

// reload re-reads the configuration and applies what can change at run
// time: the log level and the configured outputs.
func (d *Daemon) reload(ctx context.Context) error {
	cfg, err := d.loadConfig()
	if err != nil {
		return fmt.Errorf("reload config: %w", err)
	}

	d.cfgMu.Lock()
	defer d.cfgMu.Unlock()

	if d.opts.Level != nil {
		d.opts.Level.Set(cfg.SlogLevel())
	}
	for _, info := range cfg.Outputs {
		if err := d.bridge.ApplyOutput(ctx, info); err != nil {
			return fmt.Errorf("apply output %d: %w", info.ID, err)
		}
	}
	if cfg.DecorationBehavior != d.cfg.DecorationBehavior {
		d.logger.Warn("decoration_behavior changes apply after restart",
			"running", d.cfg.DecorationBehavior.String(),
			"configured", cfg.DecorationBehavior.String())
	}
	d.cfg = cfg
	d.logger.Info("configuration reloaded", "outputs", len(cfg.Outputs), "log_level", cfg.LogLevel)
	return nil
}
