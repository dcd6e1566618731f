package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/randr"

	"github.com/1broseidon/xwbridge/internal/output"
)

// Outputs describes the active RandR outputs of the connected display as
// output descriptors, one per enabled CRTC. Descriptor ids are CRTC
// indices.
func (c *Connection) Outputs() ([]output.Info, error) {
	// Initialize RandR if not already done
	if err := randr.Init(c.conn()); err != nil {
		return nil, fmt.Errorf("randr init failed: %w", err)
	}

	resources, err := randr.GetScreenResources(c.conn(), c.Root).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get screen resources: %w", err)
	}
	modes := make(map[randr.Mode]randr.ModeInfo, len(resources.Modes))
	for _, m := range resources.Modes {
		modes[randr.Mode(m.Id)] = m
	}

	var infos []output.Info
	for i, crtc := range resources.Crtcs {
		crtcInfo, err := randr.GetCrtcInfo(c.conn(), crtc, resources.ConfigTimestamp).Reply()
		if err != nil {
			continue
		}

		// Skip disabled CRTCs
		if crtcInfo.Width == 0 || crtcInfo.Height == 0 || len(crtcInfo.Outputs) == 0 {
			continue
		}

		info := output.Info{
			ID:          uint32(i),
			ScaleFactor: 1,
			Transform:   transformFromRotation(crtcInfo.Rotation),
			Location:    output.Point{X: int32(crtcInfo.X), Y: int32(crtcInfo.Y)},
			Mode: output.ModeInfo{
				Dimensions: output.Size{Width: int32(crtcInfo.Width), Height: int32(crtcInfo.Height)},
			},
		}
		if m, ok := modes[crtcInfo.Mode]; ok {
			info.Mode.RefreshRate = refreshMilliHz(m)
		}

		outputInfo, err := randr.GetOutputInfo(c.conn(), crtcInfo.Outputs[0], resources.ConfigTimestamp).Reply()
		if err == nil {
			name := string(outputInfo.Name)
			info.Name = &name
			info.PhysicalSize = output.Size{Width: int32(outputInfo.MmWidth), Height: int32(outputInfo.MmHeight)}
			info.Subpixel = subpixelFromRender(outputInfo.SubPixelOrder)
			info.Mode.Preferred = isPreferred(outputInfo.Modes, int(outputInfo.NumPreferred), crtcInfo.Mode)
		}

		infos = append(infos, info)
	}

	return infos, nil
}

// refreshMilliHz computes a mode's refresh rate in mHz, the unit outputs
// advertise.
func refreshMilliHz(m randr.ModeInfo) int32 {
	if m.Htotal == 0 || m.Vtotal == 0 {
		return 0
	}
	total := uint64(m.Htotal) * uint64(m.Vtotal)
	return int32((uint64(m.DotClock)*1000 + total/2) / total)
}

func transformFromRotation(rotation uint16) output.Transform {
	var t output.Transform
	switch {
	case rotation&randr.RotationRotate90 != 0:
		t = output.Transform90
	case rotation&randr.RotationRotate180 != 0:
		t = output.Transform180
	case rotation&randr.RotationRotate270 != 0:
		t = output.Transform270
	}
	if rotation&(randr.RotationReflectX|randr.RotationReflectY) != 0 {
		t += output.TransformFlipped
	}
	return t
}

// subpixelFromRender maps a RENDER subpixel order to a wl_output subpixel.
func subpixelFromRender(order byte) output.Subpixel {
	switch order {
	case 1:
		return output.SubpixelHorizontalRGB
	case 2:
		return output.SubpixelHorizontalBGR
	case 3:
		return output.SubpixelVerticalRGB
	case 4:
		return output.SubpixelVerticalBGR
	case 5:
		return output.SubpixelNone
	default:
		return output.SubpixelUnknown
	}
}

func isPreferred(modes []randr.Mode, numPreferred int, current randr.Mode) bool {
	for i := 0; i < numPreferred && i < len(modes); i++ {
		if modes[i] == current {
			return true
		}
	}
	return false
}
