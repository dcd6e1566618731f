package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/1broseidon/xwbridge/internal/logging"
	"github.com/1broseidon/xwbridge/internal/mcp"
)

const mcpUsage = `Usage: xwbridge mcp serve

Serve the bridge's tools (get_status, list_surfaces, list_outputs,
apply_output) to an MCP client on stdin/stdout. Every call is relayed to
the running daemon over its control socket, so start 'xwbridge serve'
first.
`

func runMCP(args []string) int {
	var w io.Writer = os.Stderr
	switch {
	case len(args) == 0:
	case isHelp(args[0]):
		fmt.Fprint(os.Stdout, mcpUsage)
		return 0
	case args[0] == "serve":
		if len(args) > 1 && isHelp(args[1]) {
			fmt.Fprint(os.Stdout, mcpUsage)
			return 0
		}
		return serveMCP()
	default:
		fmt.Fprintf(w, "Unknown mcp command: %s\n\n", args[0])
	}
	fmt.Fprint(w, mcpUsage)
	return 2
}

func serveMCP() int {
	// stdout carries the protocol.
	slog.SetDefault(logging.New(os.Stderr, slog.LevelWarn, false))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := mcp.NewServer(newClient()).Run(ctx); err != nil && ctx.Err() == nil {
		slog.Error("mcp server stopped", "err", err)
		return 1
	}
	return 0
}
