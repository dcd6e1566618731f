package compositor

// Every client of the bridge is the nested X server, which never owns a
// protocol selection of its own. These handlers exist for the data device
// and must never run.

// NewSelection is called when a client sets a selection.
func (s *State) NewSelection(target string) {
	s.logger.Error("new_selection called", "target", target)
}

// SendSelection is called when a client asks for selection data.
func (s *State) SendSelection(target, mimeType string) {
	s.logger.Error("send_selection called", "target", target, "mime_type", mimeType)
}
