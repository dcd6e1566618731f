package mcp

import (
	"context"
	"fmt"
	"sort"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/xwbridge/internal/compositor"
	"github.com/1broseidon/xwbridge/internal/output"
	"github.com/1broseidon/xwbridge/internal/surface"
)

func (s *Server) handleGetStatus(_ context.Context, _ *mcpsdk.CallToolRequest, _ GetStatusInput) (*mcpsdk.CallToolResult, GetStatusOutput, error) {
	status, err := s.daemon.GetStatus()
	if err != nil {
		return nil, GetStatusOutput{}, err
	}
	return nil, GetStatusOutput{Status: *status}, nil
}

func (s *Server) handleListSurfaces(_ context.Context, _ *mcpsdk.CallToolRequest, args ListSurfacesInput) (*mcpsdk.CallToolResult, ListSurfacesOutput, error) {
	surfaces, err := s.daemon.ListSurfaces()
	if err != nil {
		return nil, ListSurfacesOutput{}, err
	}

	out := make([]compositor.SurfaceSnapshot, 0, len(surfaces))
	for _, snap := range surfaces {
		if args.Unpaired && snap.State != surface.PendingX11Pairing.String() {
			continue
		}
		out = append(out, snap)
	}
	return nil, ListSurfacesOutput{Surfaces: out}, nil
}

func (s *Server) handleListOutputs(_ context.Context, _ *mcpsdk.CallToolRequest, _ ListOutputsInput) (*mcpsdk.CallToolResult, ListOutputsOutput, error) {
	outputs, err := s.daemon.ListOutputs()
	if err != nil {
		return nil, ListOutputsOutput{}, err
	}

	infos := make([]OutputInfo, 0, len(outputs))
	for _, o := range outputs {
		info := OutputInfo{
			ID:        o.ID,
			Name:      o.Name,
			Global:    o.Global,
			Make:      o.Make,
			Model:     o.Model,
			ModeCount: len(o.Modes),
			Transform: o.Transform.String(),
			Scale:     o.Scale,
			X:         o.Location.X,
			Y:         o.Location.Y,
		}
		if o.CurrentMode != nil {
			info.Width = o.CurrentMode.Size.X
			info.Height = o.CurrentMode.Size.Y
			info.RefreshRate = o.CurrentMode.Refresh
			info.Preferred = o.PreferredMode != nil && *o.PreferredMode == *o.CurrentMode
		}
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].ID < infos[j].ID
	})
	return nil, ListOutputsOutput{Outputs: infos}, nil
}

func (s *Server) handleApplyOutput(_ context.Context, _ *mcpsdk.CallToolRequest, args ApplyOutputInput) (*mcpsdk.CallToolResult, ApplyOutputOutput, error) {
	info, err := args.descriptor()
	if err != nil {
		return nil, ApplyOutputOutput{}, err
	}
	if err := s.daemon.ApplyOutput(info); err != nil {
		return nil, ApplyOutputOutput{}, err
	}
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: fmt.Sprintf("Applied output %s", info.OutputName())},
		},
	}, ApplyOutputOutput{Name: info.OutputName()}, nil
}

func (args ApplyOutputInput) descriptor() (output.Info, error) {
	info := output.Info{
		ID:           args.ID,
		PhysicalSize: output.Size{Width: args.PhysicalWidth, Height: args.PhysicalHeight},
		Make:         args.Make,
		Model:        args.Model,
		Mode: output.ModeInfo{
			Dimensions:  output.Size{Width: args.Width, Height: args.Height},
			RefreshRate: args.RefreshRate,
			Preferred:   args.Preferred,
		},
		ScaleFactor: args.Scale,
		Location:    output.Point{X: args.X, Y: args.Y},
	}
	if args.Name != "" {
		name := args.Name
		info.Name = &name
	}
	if info.ScaleFactor == 0 {
		info.ScaleFactor = 1
	}
	if args.Transform != "" {
		if err := info.Transform.UnmarshalText([]byte(args.Transform)); err != nil {
			return output.Info{}, err
		}
	}
	if args.Subpixel != "" {
		if err := info.Subpixel.UnmarshalText([]byte(args.Subpixel)); err != nil {
			return output.Info{}, err
		}
	}
	return info, info.Validate()
}
