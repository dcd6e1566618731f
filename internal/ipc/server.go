package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"
)

// DefaultRequestTimeout bounds how long one command may wait on the backend.
const DefaultRequestTimeout = 5 * time.Second

type Server struct {
	socketPath string
	backend    Backend
	logger     *slog.Logger
	timeout    time.Duration

	mu       sync.Mutex
	listener net.Listener
}

func NewServer(socketPath string, backend Backend, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		socketPath: socketPath,
		backend:    backend,
		logger:     logger.With("component", "ipc"),
		timeout:    DefaultRequestTimeout,
	}
}

func (s *Server) String() string { return "ipc" }

// Start binds the socket, replacing a stale one, and accepts connections in
// the background until Stop.
func (s *Server) Start() error {
	if err := os.Remove(s.socketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stale socket: %w", err)
	}
	ln, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.socketPath, err)
	}
	if err := os.Chmod(s.socketPath, 0o600); err != nil {
		ln.Close()
		return fmt.Errorf("chmod %s: %w", s.socketPath, err)
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	s.logger.Info("listening", "socket", s.socketPath)
	go s.accept(ln)
	return nil
}

// Serve runs the server until ctx is done.
func (s *Server) Serve(ctx context.Context) error {
	if err := s.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	s.Stop()
	return ctx.Err()
}

// Stop closes the listener and removes the socket file.
func (s *Server) Stop() {
	s.mu.Lock()
	ln := s.listener
	s.listener = nil
	s.mu.Unlock()

	if ln == nil {
		return
	}
	ln.Close()
	os.Remove(s.socketPath)
}

func (s *Server) accept(ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if errors.Is(err, net.ErrClosed) {
			return
		}
		if err != nil {
			s.logger.Warn("accept failed", "err", err)
			time.Sleep(50 * time.Millisecond)
			continue
		}
		go s.serveConn(conn)
	}
}

func (s *Server) serveConn(conn net.Conn) {
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(2 * s.timeout))

	var resp *Response
	var req Request
	if err := json.NewDecoder(conn).Decode(&req); err != nil {
		resp = errorResponse("invalid request: %v", err)
	} else {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		resp = s.handleCommand(ctx, &req)
		cancel()
	}

	// Encode terminates the line.
	if err := json.NewEncoder(conn).Encode(resp); err != nil {
		s.logger.Warn("write response failed", "err", err)
	}
}

func (s *Server) handleCommand(ctx context.Context, req *Request) *Response {
	s.logger.Debug("command", "command", req.Command)

	var (
		data any
		err  error
	)
	switch req.Command {
	case CommandReload:
		if err = s.backend.Reload(ctx); err != nil {
			err = fmt.Errorf("reload failed: %w", err)
		}
	case CommandGetStatus:
		var status StatusData
		status, err = s.backend.Status(ctx)
		status.DaemonRunning = true
		data = status
	case CommandListSurfaces:
		var surfaces SurfacesData
		surfaces.Surfaces, err = s.backend.Surfaces(ctx)
		data = surfaces
	case CommandListOutputs:
		var outputs OutputsData
		outputs.Outputs, err = s.backend.Outputs(ctx)
		data = outputs
	case CommandApplyOutput:
		var payload ApplyOutputPayload
		if err := json.Unmarshal(req.Payload, &payload); err != nil {
			return errorResponse("invalid payload: %v", err)
		}
		err = s.backend.ApplyOutput(ctx, payload.Output)
	default:
		return errorResponse("Unknown command: %s", req.Command)
	}

	if err != nil {
		return errorResponse("%v", err)
	}
	return okResponse(data)
}

func errorResponse(format string, args ...any) *Response {
	return &Response{Status: statusError, Error: fmt.Sprintf(format, args...)}
}
