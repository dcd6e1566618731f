// Package xwayland launches the nested X server and reports its lifecycle.
package xwayland

import "fmt"

// Event is a lifecycle signal of the nested X server.
type Event interface {
	fmt.Stringer
	isEvent()
}

// Ready is sent once the server accepts X11 connections on Display.
type Ready struct {
	Display int
}

// Exited is sent after the server process has terminated.
type Exited struct {
	Err error
}

func (Ready) isEvent() {}
func (Exited) isEvent() {}

// DisplayName returns the X display string, e.g. ":1".
func (r Ready) DisplayName() string {
	return fmt.Sprintf(":%d", r.Display)
}

func (r Ready) String() string {
	return "ready " + r.DisplayName()
}

func (e Exited) String() string {
	if e.Err != nil {
		return "exited: " + e.Err.Error()
	}
	return "exited"
}
