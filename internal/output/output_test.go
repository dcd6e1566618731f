package output

import (
	"encoding/json"
	"image"
	"testing"
)

func TestChangeCurrentState_AddsModeOnce(t *testing.T) {
	o := New("1_test", PhysicalProperties{})
	m := Mode{Size: image.Pt(800, 600), Refresh: 60000}
	tr := Transform90
	scale := int32(2)
	loc := image.Pt(10, 20)

	o.ChangeCurrentState(&m, &tr, &scale, &loc)
	o.ChangeCurrentState(&m, nil, nil, nil)

	if got := o.Modes(); len(got) != 1 || got[0] != m {
		t.Fatalf("Modes() = %v, want [%v]", got, m)
	}
	if cur, ok := o.CurrentMode(); !ok || cur != m {
		t.Fatalf("CurrentMode() = %v, %v", cur, ok)
	}
	if o.Transform() != Transform90 || o.Scale() != 2 || o.Location() != loc {
		t.Fatalf("state = %v/%d/%v", o.Transform(), o.Scale(), o.Location())
	}
}

func TestDeleteMode_ClearsCurrentAndPreferred(t *testing.T) {
	o := New("1_test", PhysicalProperties{})
	m := Mode{Size: image.Pt(640, 480), Refresh: 60}
	o.ChangeCurrentState(&m, nil, nil, nil)
	o.SetPreferred(m)

	o.DeleteMode(m)
	o.DeleteMode(Mode{})

	if len(o.Modes()) != 0 {
		t.Fatalf("Modes() = %v, want empty", o.Modes())
	}
	if _, ok := o.CurrentMode(); ok {
		t.Fatal("current mode should be cleared")
	}
	if _, ok := o.PreferredMode(); ok {
		t.Fatal("preferred mode should be cleared")
	}
}

func TestInfo_OutputName(t *testing.T) {
	name := "DP-1"
	if got := (Info{ID: 3, Name: &name}).OutputName(); got != "3_DP-1" {
		t.Fatalf("OutputName() = %q, want 3_DP-1", got)
	}
	if got := (Info{ID: 4}).OutputName(); got != "4_None" {
		t.Fatalf("OutputName() = %q, want 4_None", got)
	}
}

func TestInfo_JSONUsesNamedEnums(t *testing.T) {
	data := []byte(`{"id":1,"mode":{"dimensions":{"width":1920,"height":1080},"refresh_rate":60,"preferred":true},"transform":"flipped-90","subpixel":"horizontal_rgb","scale_factor":1}`)

	var info Info
	if err := json.Unmarshal(data, &info); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if info.Transform != TransformFlipped90 {
		t.Fatalf("Transform = %v, want flipped-90", info.Transform)
	}
	if info.Subpixel != SubpixelHorizontalRGB {
		t.Fatalf("Subpixel = %v, want horizontal_rgb", info.Subpixel)
	}
	if got := info.Mode.Mode(); got != (Mode{Size: image.Pt(1920, 1080), Refresh: 60}) {
		t.Fatalf("Mode() = %v", got)
	}
	if err := info.Validate(); err != nil {
		t.Fatalf("Validate() error: %v", err)
	}

	if err := json.Unmarshal([]byte(`{"transform":"sideways"}`), &info); err == nil {
		t.Fatal("expected error for unknown transform")
	}
}

func TestInfo_ValidateRejectsZeroScale(t *testing.T) {
	if err := (Info{ID: 1}).Validate(); err == nil {
		t.Fatal("expected error for scale_factor 0")
	}
}
