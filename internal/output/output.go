// Package output models the display outputs advertised to X11 clients.
package output

import (
	"fmt"
	"image"
	"strings"
)

// Mode is a display mode. The zero Mode stands for "no mode".
type Mode struct {
	Size    image.Point `json:"size"`
	Refresh int32       `json:"refresh"`
}

func (m Mode) String() string {
	return fmt.Sprintf("%dx%d@%d", m.Size.X, m.Size.Y, m.Refresh)
}

// Transform is an output rotation/flip, using wl_output.transform values.
type Transform int32

const (
	TransformNormal Transform = iota
	Transform90
	Transform180
	Transform270
	TransformFlipped
	TransformFlipped90
	TransformFlipped180
	TransformFlipped270
)

var transformNames = []string{"normal", "90", "180", "270", "flipped", "flipped-90", "flipped-180", "flipped-270"}

func (t Transform) String() string {
	if t >= 0 && int(t) < len(transformNames) {
		return transformNames[t]
	}
	return fmt.Sprintf("transform(%d)", int32(t))
}

func (t Transform) MarshalText() ([]byte, error) {
	if t < 0 || int(t) >= len(transformNames) {
		return nil, fmt.Errorf("invalid transform %d", int32(t))
	}
	return []byte(transformNames[t]), nil
}

func (t *Transform) UnmarshalText(text []byte) error {
	s := strings.ToLower(strings.TrimSpace(string(text)))
	for i, name := range transformNames {
		if s == name {
			*t = Transform(i)
			return nil
		}
	}
	return fmt.Errorf("unknown transform %q", s)
}

// Subpixel is the subpixel layout, using wl_output.subpixel values.
type Subpixel int32

const (
	SubpixelUnknown Subpixel = iota
	SubpixelNone
	SubpixelHorizontalRGB
	SubpixelHorizontalBGR
	SubpixelVerticalRGB
	SubpixelVerticalBGR
)

var subpixelNames = []string{"unknown", "none", "horizontal_rgb", "horizontal_bgr", "vertical_rgb", "vertical_bgr"}

func (s Subpixel) String() string {
	if s >= 0 && int(s) < len(subpixelNames) {
		return subpixelNames[s]
	}
	return fmt.Sprintf("subpixel(%d)", int32(s))
}

func (s Subpixel) MarshalText() ([]byte, error) {
	if s < 0 || int(s) >= len(subpixelNames) {
		return nil, fmt.Errorf("invalid subpixel %d", int32(s))
	}
	return []byte(subpixelNames[s]), nil
}

func (s *Subpixel) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	for i, name := range subpixelNames {
		if v == name {
			*s = Subpixel(i)
			return nil
		}
	}
	return fmt.Errorf("unknown subpixel layout %q", v)
}

// PhysicalProperties are fixed when the output is created.
type PhysicalProperties struct {
	Size     image.Point
	Subpixel Subpixel
	Make     string
	Model    string
}

// Output is one advertised output and its mode list.
type Output struct {
	name      string
	physical  PhysicalProperties
	modes     []Mode
	current   *Mode
	preferred *Mode
	transform Transform
	scale     int32
	location  image.Point
}

func New(name string, physical PhysicalProperties) *Output {
	return &Output{
		name:     name,
		physical: physical,
		scale:    1,
	}
}

func (o *Output) Name() string { return o.name }
func (o *Output) PhysicalProperties() PhysicalProperties { return o.physical }
func (o *Output) Transform() Transform { return o.transform }
func (o *Output) Scale() int32 { return o.scale }
func (o *Output) Location() image.Point { return o.location }

// Modes returns a copy of the mode list.
func (o *Output) Modes() []Mode {
	return append([]Mode(nil), o.modes...)
}

func (o *Output) CurrentMode() (Mode, bool) {
	if o.current == nil {
		return Mode{}, false
	}
	return *o.current, true
}

func (o *Output) PreferredMode() (Mode, bool) {
	if o.preferred == nil {
		return Mode{}, false
	}
	return *o.preferred, true
}

func (o *Output) addMode(m Mode) {
	for _, existing := range o.modes {
		if existing == m {
			return
		}
	}
	o.modes = append(o.modes, m)
}

// DeleteMode removes m from the mode list, clearing the current and
// preferred modes if they were m. Unknown modes are ignored.
func (o *Output) DeleteMode(m Mode) {
	for i, existing := range o.modes {
		if existing == m {
			o.modes = append(o.modes[:i], o.modes[i+1:]...)
			break
		}
	}
	if o.current != nil && *o.current == m {
		o.current = nil
	}
	if o.preferred != nil && *o.preferred == m {
		o.preferred = nil
	}
}

// ChangeCurrentState applies every non-nil argument in one step. A new
// current mode is added to the mode list.
func (o *Output) ChangeCurrentState(mode *Mode, transform *Transform, scale *int32, location *image.Point) {
	if mode != nil {
		o.addMode(*mode)
		m := *mode
		o.current = &m
	}
	if transform != nil {
		o.transform = *transform
	}
	if scale != nil {
		o.scale = *scale
	}
	if location != nil {
		o.location = *location
	}
}

// SetPreferred marks m as the preferred mode, adding it if needed.
func (o *Output) SetPreferred(m Mode) {
	o.addMode(m)
	o.preferred = &m
}
