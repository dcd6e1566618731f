package output

import (
	"fmt"
	"image"
)

// Size is a width/height pair in the wire descriptor.
type Size struct {
	Width  int32 `json:"width" yaml:"width"`
	Height int32 `json:"height" yaml:"height"`
}

// Point is a position in the wire descriptor.
type Point struct {
	X int32 `json:"x" yaml:"x"`
	Y int32 `json:"y" yaml:"y"`
}

// ModeInfo is the mode part of a descriptor.
type ModeInfo struct {
	Dimensions  Size  `json:"dimensions" yaml:"dimensions"`
	RefreshRate int32 `json:"refresh_rate" yaml:"refresh_rate"`
	Preferred   bool  `json:"preferred,omitempty" yaml:"preferred"`
}

// Mode converts the descriptor mode.
func (m ModeInfo) Mode() Mode {
	return Mode{
		Size:    image.Pt(int(m.Dimensions.Width), int(m.Dimensions.Height)),
		Refresh: m.RefreshRate,
	}
}

// Info is an output descriptor supplied by the host side. It is reconciled
// into an Output keyed by ID.
type Info struct {
	ID           uint32    `json:"id" yaml:"id"`
	Name         *string   `json:"name,omitempty" yaml:"name"`
	PhysicalSize Size      `json:"physical_size" yaml:"physical_size"`
	Subpixel     Subpixel  `json:"subpixel" yaml:"subpixel"`
	Make         string    `json:"make" yaml:"make"`
	Model        string    `json:"model" yaml:"model"`
	Mode         ModeInfo  `json:"mode" yaml:"mode"`
	Transform    Transform `json:"transform" yaml:"transform"`
	ScaleFactor  int32     `json:"scale_factor" yaml:"scale_factor"`
	Location     Point     `json:"location" yaml:"location"`
}

// OutputName is the name an Output created from info gets.
func (info Info) OutputName() string {
	name := "None"
	if info.Name != nil {
		name = *info.Name
	}
	return fmt.Sprintf("%d_%s", info.ID, name)
}

func (info Info) Physical() PhysicalProperties {
	return PhysicalProperties{
		Size:     image.Pt(int(info.PhysicalSize.Width), int(info.PhysicalSize.Height)),
		Subpixel: info.Subpixel,
		Make:     info.Make,
		Model:    info.Model,
	}
}

func (info Info) Position() image.Point {
	return image.Pt(int(info.Location.X), int(info.Location.Y))
}

// Validate rejects descriptors that cannot describe a real output.
func (info Info) Validate() error {
	if info.Mode.Dimensions.Width < 0 || info.Mode.Dimensions.Height < 0 {
		return fmt.Errorf("output %d: negative mode dimensions", info.ID)
	}
	if info.ScaleFactor < 1 {
		return fmt.Errorf("output %d: scale_factor must be >= 1, got %d", info.ID, info.ScaleFactor)
	}
	if info.Transform < TransformNormal || info.Transform > TransformFlipped270 {
		return fmt.Errorf("output %d: invalid transform %d", info.ID, int32(info.Transform))
	}
	return nil
}
