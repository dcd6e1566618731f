package xwayland

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// ErrNoCommand is returned when the launcher has nothing to run.
var ErrNoCommand = errors.New("xwayland command is empty")

// DefaultCommand is used when Launcher.Command is empty.
var DefaultCommand = []string{"Xwayland"}

// Launcher runs the nested X server as a supervised service. Each Serve
// call starts one server process and returns when it exits.
type Launcher struct {
	Command        []string
	ExtraArgs      []string
	WaylandDisplay string
	Logger         *slog.Logger

	// Events receives Ready and Exited. It is called from the service
	// goroutine.
	Events func(Event)
}

func (l *Launcher) String() string {
	return "xwayland"
}

func (l *Launcher) args() ([]string, error) {
	command := l.Command
	if len(command) == 0 {
		command = DefaultCommand
	}
	if command[0] == "" {
		return nil, ErrNoCommand
	}
	args := append([]string{}, command...)
	args = append(args, l.ExtraArgs...)
	return append(args, "-rootless", "-terminate", "-displayfd", "3"), nil
}

func (l *Launcher) emit(ev Event) {
	if l.Events != nil {
		l.Events(ev)
	}
}

// Serve implements suture.Service.
func (l *Launcher) Serve(ctx context.Context) error {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}

	args, err := l.args()
	if err != nil {
		return err
	}

	r, w, err := os.Pipe()
	if err != nil {
		return fmt.Errorf("displayfd pipe: %w", err)
	}
	defer r.Close()

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.ExtraFiles = []*os.File{w}
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr
	cmd.Env = os.Environ()
	if l.WaylandDisplay != "" {
		cmd.Env = append(cmd.Env, "WAYLAND_DISPLAY="+l.WaylandDisplay)
	}

	if err := cmd.Start(); err != nil {
		w.Close()
		return fmt.Errorf("start %s: %w", args[0], err)
	}
	w.Close()
	logger.Info("xwayland started", "pid", cmd.Process.Pid, "command", strings.Join(args, " "))

	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		display, err := readDisplay(r)
		if err != nil {
			logger.Warn("xwayland did not report a display", "err", err)
			return
		}
		logger.Info("xwayland ready", "display", display)
		l.emit(Ready{Display: display})
	}()

	waitErr := cmd.Wait()
	<-readDone
	l.emit(Exited{Err: waitErr})

	if ctx.Err() != nil {
		return ctx.Err()
	}
	if waitErr != nil {
		return fmt.Errorf("xwayland exited: %w", waitErr)
	}
	return errors.New("xwayland exited")
}

// readDisplay reads the display number written to the displayfd.
func readDisplay(r io.Reader) (int, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return 0, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil {
		return 0, fmt.Errorf("parse display %q: %w", strings.TrimSpace(line), err)
	}
	return n, nil
}
