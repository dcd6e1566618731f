package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/1broseidon/xwbridge/internal/config"
	"github.com/1broseidon/xwbridge/internal/daemon"
	"github.com/1broseidon/xwbridge/internal/ipc"
	"github.com/1broseidon/xwbridge/internal/logging"
	"github.com/1broseidon/xwbridge/internal/runtimepath"
)

var version = "dev"

const mainUsage = `Usage: xwbridge <command> [options]

Commands:
  serve               Start the bridge daemon (foreground)
  status              Show daemon status
  surfaces            List surfaces and their pairing state
  outputs             List advertised outputs
  output apply        Apply output descriptors from a file or stdin
  reload              Reload the daemon configuration

  config validate     Validate configuration
  config print        Print configuration
  config explain      Explain a config value
  config path         Print the config file path

  mcp serve           Start MCP server (stdio transport)
  version             Print the version

Run 'xwbridge <command> --help' for command-specific options.
`

var commands = map[string]func(args []string) int{
	"serve":    runServe,
	"status":   runStatus,
	"surfaces": runSurfaces,
	"outputs":  runOutputs,
	"output":   runOutput,
	"reload":   runReload,
	"config":   runConfig,
	"mcp":      runMCP,
	"version": func([]string) int {
		fmt.Println(version)
		return 0
	},
}

func main() {
	// A .env file may point XWBRIDGE_CONFIG elsewhere.
	_ = godotenv.Load()

	if len(os.Args) < 2 || isHelp(os.Args[1]) {
		fmt.Print(mainUsage)
		return
	}
	run, ok := commands[os.Args[1]]
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n%s", os.Args[1], mainUsage)
		os.Exit(2)
	}
	os.Exit(run(os.Args[2:]))
}

func runServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	path := fs.String("path", "", "Config file path (default: ~/.config/xwbridge/config.yaml)")
	logLevel := fs.String("log-level", "", "Override log_level (debug, info, warn, error)")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: xwbridge serve [--path PATH] [--log-level LEVEL]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Start Xwayland and bridge its windows. SIGHUP reloads the configuration.")
		fmt.Fprintln(os.Stderr, "")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "serve takes no arguments")
		fs.Usage()
		return 2
	}

	res, err := loadConfig(*path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	cfg := res.Config

	level := new(slog.LevelVar)
	level.Set(cfg.SlogLevel())
	if *logLevel != "" {
		lvl, err := logging.ParseLevel(*logLevel)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 2
		}
		level.Set(lvl)
	}
	logger := logging.New(os.Stderr, level, true)
	slog.SetDefault(logger)

	lockPath, err := runtimepath.LockPath()
	if err != nil {
		logger.Error("resolve lock path", "err", err)
		return 1
	}
	lock, err := runtimepath.AcquireLock(lockPath)
	if err != nil {
		if errors.Is(err, runtimepath.ErrLocked) {
			fmt.Fprintln(os.Stderr, "xwbridge daemon is already running")
			return 1
		}
		logger.Error("acquire lock", "err", err)
		return 1
	}
	defer lock.Release()

	d, err := daemon.New(daemon.Options{
		Config:     cfg,
		ConfigPath: *path,
		Level:      level,
		Logger:     logger,
		Version:    version,
	})
	if err != nil {
		logger.Error("create daemon", "err", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				logger.Info("received SIGHUP, reloading config")
				if err := d.Bridge().Reload(ctx); err != nil {
					logger.Error("config reload failed", "err", err)
				}
			}
		}
	}()

	if err := d.Run(ctx); err != nil {
		logger.Error("xwbridge stopped", "err", err)
		return 1
	}
	return 0
}

func runStatus(args []string) int {
	if len(args) > 0 {
		if isHelp(args[0]) {
			fmt.Println("Usage: xwbridge status\n\nShow daemon status via IPC.")
			return 0
		}
		fmt.Fprintln(os.Stderr, "status takes no arguments")
		return 2
	}

	status, err := newClient().GetStatus()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	b := status.Bridge
	rows := []field{
		{"daemon_running", status.DaemonRunning},
		{"wm_running", b.WMRunning},
	}
	if b.WMRunning {
		rows = append(rows, field{"display", b.Display}, field{"session", b.SessionID})
	}
	rows = append(rows,
		field{"decoration", b.Decoration},
		field{"surfaces", b.Surfaces},
		field{"unpaired_windows", b.UnpairedWindows},
		field{"outputs", b.Outputs},
	)
	if status.Host != nil {
		rows = append(rows, field{"host_commits", status.Host.Commits})
	}
	rows = append(rows, field{"uptime_seconds", status.UptimeSeconds})
	for _, r := range rows {
		fmt.Printf("%-17s %v\n", r.name+":", r.value)
	}
	return 0
}

type field struct {
	name  string
	value any
}

func runReload(args []string) int {
	if len(args) > 0 {
		if isHelp(args[0]) {
			fmt.Println("Usage: xwbridge reload\n\nAsk the running daemon to re-read its configuration.")
			return 0
		}
		fmt.Fprintln(os.Stderr, "reload takes no arguments")
		return 2
	}
	if err := newClient().Reload(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Println("config: reloaded")
	return 0
}

func loadConfig(path string) (*config.LoadResult, error) {
	if path == "" {
		return config.LoadWithSources()
	}
	return config.LoadFromPath(path)
}

// newClient connects to the socket the configured daemon listens on.
func newClient() *ipc.Client {
	if cfg, err := config.Load(); err == nil && cfg.IPC.Socket != "" {
		return ipc.NewClientWithSocket(cfg.IPC.Socket)
	}
	return ipc.NewClient()
}
