// Package ipc is the daemon's control socket: one JSON request line in, one
// JSON response line out, per connection.
package ipc

import (
	"context"
	"encoding/json"

	"github.com/1broseidon/xwbridge/internal/compositor"
	"github.com/1broseidon/xwbridge/internal/headless"
	"github.com/1broseidon/xwbridge/internal/output"
)

type CommandType string

const (
	CommandReload       CommandType = "RELOAD"
	CommandGetStatus    CommandType = "GET_STATUS"
	CommandListSurfaces CommandType = "LIST_SURFACES"
	CommandListOutputs  CommandType = "LIST_OUTPUTS"
	CommandApplyOutput  CommandType = "APPLY_OUTPUT"
)

const (
	statusOK    = "OK"
	statusError = "ERROR"
)

type Request struct {
	Command CommandType     `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response carries Data when Status is OK and Error otherwise.
type Response struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}

func okResponse(data any) *Response {
	if data == nil {
		return &Response{Status: statusOK}
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return errorResponse("encode response: %v", err)
	}
	return &Response{Status: statusOK, Data: raw}
}

// StatusData answers GET_STATUS.
type StatusData struct {
	Bridge        compositor.Status `json:"bridge"`
	Host          *headless.Stats   `json:"host,omitempty"`
	UptimeSeconds int64             `json:"uptime_seconds"`
	DaemonRunning bool              `json:"daemon_running"`
}

type SurfacesData struct {
	Surfaces []compositor.SurfaceSnapshot `json:"surfaces"`
}

type OutputsData struct {
	Outputs []compositor.OutputSnapshot `json:"outputs"`
}

// ApplyOutputPayload is the payload of APPLY_OUTPUT.
type ApplyOutputPayload struct {
	Output output.Info `json:"output"`
}

// Backend answers commands. The daemon implements it on top of the event
// loop.
type Backend interface {
	Status(ctx context.Context) (StatusData, error)
	Surfaces(ctx context.Context) ([]compositor.SurfaceSnapshot, error)
	Outputs(ctx context.Context) ([]compositor.OutputSnapshot, error)
	ApplyOutput(ctx context.Context, info output.Info) error
	Reload(ctx context.Context) error
}
