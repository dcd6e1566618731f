package compositor

import (
	"fmt"

	"github.com/1broseidon/xwbridge/internal/output"
)

// HandleOutput creates or updates the output described by info. The first
// descriptor for an id also advertises the output as a global.
func (s *State) HandleOutput(info output.Info) error {
	if err := info.Validate(); err != nil {
		return err
	}

	entry, ok := s.outputs[info.ID]
	if !ok {
		o := output.New(info.OutputName(), info.Physical())
		entry = &outputEntry{output: o}
		if s.opts.Globals != nil {
			entry.global = s.opts.Globals.CreateGlobal(o)
		}
		s.outputs[info.ID] = entry
		s.logger.Info("output added", "id", info.ID, "name", o.Name(), "global", entry.global)
	}
	o := entry.output

	current, _ := o.CurrentMode()
	received := info.Mode.Mode()
	if current != received {
		o.DeleteMode(current)
	}

	transform := info.Transform
	scale := info.ScaleFactor
	location := info.Position()
	o.ChangeCurrentState(&received, &transform, &scale, &location)

	if info.Mode.Preferred {
		o.SetPreferred(received)
	}
	s.logger.Debug("output updated", "id", info.ID, "mode", received.String(), "scale", scale)
	return nil
}

// Output returns the output with the given id.
func (s *State) Output(id uint32) (*output.Output, bool) {
	entry, ok := s.outputs[id]
	if !ok {
		return nil, false
	}
	return entry.output, true
}

func (s *State) outputGlobal(id uint32) (GlobalID, error) {
	entry, ok := s.outputs[id]
	if !ok {
		return 0, fmt.Errorf("unknown output %d", id)
	}
	return entry.global, nil
}
