package mcp

import (
	"github.com/1broseidon/xwbridge/internal/compositor"
	"github.com/1broseidon/xwbridge/internal/ipc"
)

// GetStatusInput is the input for the get_status tool.
type GetStatusInput struct{}

// GetStatusOutput is the output for the get_status tool.
type GetStatusOutput struct {
	Status ipc.StatusData `json:"status"`
}

// ListSurfacesInput is the input for the list_surfaces tool.
type ListSurfacesInput struct {
	Unpaired bool `json:"unpaired,omitempty" jsonschema:"When true, only list surfaces still waiting for their X11 window"`
}

// ListSurfacesOutput is the output for the list_surfaces tool.
type ListSurfacesOutput struct {
	Surfaces []compositor.SurfaceSnapshot `json:"surfaces"`
}

// ListOutputsInput is the input for the list_outputs tool.
type ListOutputsInput struct{}

// OutputInfo describes one advertised output.
type OutputInfo struct {
	ID          uint32 `json:"id"`
	Name        string `json:"name"`
	Global      uint32 `json:"global"`
	Make        string `json:"make,omitempty"`
	Model       string `json:"model,omitempty"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	RefreshRate int32  `json:"refresh_rate"`
	Preferred   bool   `json:"preferred"`
	ModeCount   int    `json:"mode_count"`
	Transform   string `json:"transform"`
	Scale       int32  `json:"scale"`
	X           int32  `json:"x"`
	Y           int32  `json:"y"`
}

// ListOutputsOutput is the output for the list_outputs tool.
type ListOutputsOutput struct {
	Outputs []OutputInfo `json:"outputs"`
}

// ApplyOutputInput is the input for the apply_output tool.
type ApplyOutputInput struct {
	ID             uint32 `json:"id" jsonschema:"Output id assigned by the host"`
	Name           string `json:"name,omitempty" jsonschema:"Connector name (e.g. DP-1)"`
	Width          int32  `json:"width" jsonschema:"Mode width in pixels"`
	Height         int32  `json:"height" jsonschema:"Mode height in pixels"`
	RefreshRate    int32  `json:"refresh_rate,omitempty" jsonschema:"Refresh rate in mHz (60000 for 60Hz)"`
	Preferred      bool   `json:"preferred,omitempty" jsonschema:"Mark the mode as the output's preferred mode"`
	Transform      string `json:"transform,omitempty" jsonschema:"normal, 90, 180, 270, flipped, flipped-90, flipped-180 or flipped-270 (default: normal)"`
	Subpixel       string `json:"subpixel,omitempty" jsonschema:"Subpixel layout (default: unknown)"`
	Scale          int32  `json:"scale,omitempty" jsonschema:"Integer scale factor (default: 1)"`
	X              int32  `json:"x,omitempty" jsonschema:"Logical x position"`
	Y              int32  `json:"y,omitempty" jsonschema:"Logical y position"`
	PhysicalWidth  int32  `json:"physical_width,omitempty" jsonschema:"Physical width in millimetres"`
	PhysicalHeight int32  `json:"physical_height,omitempty" jsonschema:"Physical height in millimetres"`
	Make           string `json:"make,omitempty"`
	Model          string `json:"model,omitempty"`
}

// ApplyOutputOutput is the output for the apply_output tool.
type ApplyOutputOutput struct {
	Name string `json:"name"`
}
