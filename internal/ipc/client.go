package ipc

import (
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/1broseidon/xwbridge/internal/compositor"
	"github.com/1broseidon/xwbridge/internal/output"
	"github.com/1broseidon/xwbridge/internal/runtimepath"
)

// Client talks to a running daemon. Each call opens its own connection.
type Client struct {
	socketPath string
	timeout    time.Duration
}

// NewClient connects to the default socket. A socket path that cannot be
// resolved surfaces as a connection error on first use.
func NewClient() *Client {
	path, _ := runtimepath.SocketPath()
	return NewClientWithSocket(path)
}

func NewClientWithSocket(socketPath string) *Client {
	return &Client{socketPath: socketPath, timeout: DefaultRequestTimeout}
}

// call sends cmd and decodes the response data into out when out is non-nil.
func (c *Client) call(cmd CommandType, payload, out any) error {
	req := Request{Command: cmd}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode %s payload: %w", cmd, err)
		}
		req.Payload = raw
	}

	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return fmt.Errorf("connect to daemon: %w (is the daemon running?)", err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(2 * c.timeout))

	if err := json.NewEncoder(conn).Encode(&req); err != nil {
		return fmt.Errorf("send %s: %w", cmd, err)
	}
	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return fmt.Errorf("read %s response: %w", cmd, err)
	}
	if resp.Status != statusOK {
		return fmt.Errorf("daemon error: %s", resp.Error)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("decode %s response: %w", cmd, err)
	}
	return nil
}

func (c *Client) Reload() error {
	return c.call(CommandReload, nil, nil)
}

func (c *Client) GetStatus() (*StatusData, error) {
	var status StatusData
	if err := c.call(CommandGetStatus, nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// ListSurfaces returns the daemon's surface registry.
func (c *Client) ListSurfaces() ([]compositor.SurfaceSnapshot, error) {
	var data SurfacesData
	err := c.call(CommandListSurfaces, nil, &data)
	return data.Surfaces, err
}

// ListOutputs returns the advertised outputs.
func (c *Client) ListOutputs() ([]compositor.OutputSnapshot, error) {
	var data OutputsData
	err := c.call(CommandListOutputs, nil, &data)
	return data.Outputs, err
}

func (c *Client) ApplyOutput(info output.Info) error {
	return c.call(CommandApplyOutput, ApplyOutputPayload{Output: info}, nil)
}
