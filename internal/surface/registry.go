package surface

import (
	"errors"
	"sort"
)

var (
	ErrSelfParent = errors.New("surface cannot be its own parent")
	ErrCycle      = errors.New("surface hierarchy contains a cycle")
	ErrNotFound   = errors.New("surface not found")
)

// Registry owns every Entry. Child links are stored as ids and resolved on
// lookup, so entries never reference each other directly.
//
// The registry is only touched from the event loop and has no locking.
type Registry struct {
	entries   map[ID]*Entry
	newRemote func(ID) Remote
}

// NewRegistry creates an empty registry. newRemote creates the host-side
// surface for a new entry and may be nil.
func NewRegistry(newRemote func(ID) Remote) *Registry {
	return &Registry{
		entries:   make(map[ID]*Entry),
		newRemote: newRemote,
	}
}

// GetOrCreate returns the entry for id, creating an unassigned one first if
// needed.
func (r *Registry) GetOrCreate(id ID) *Entry {
	if e, ok := r.entries[id]; ok {
		return e
	}
	e := &Entry{
		ID:       id,
		children: make(map[ID]struct{}),
	}
	if r.newRemote != nil {
		e.Remote = r.newRemote(id)
	}
	r.entries[id] = e
	return e
}

func (r *Registry) Get(id ID) (*Entry, bool) {
	e, ok := r.entries[id]
	return e, ok
}

// Remove drops the entry and releases its buffer and host surface. The id
// is also unlinked from every child set, so a later surface reusing it
// starts with no parent.
func (r *Registry) Remove(id ID) {
	e, ok := r.entries[id]
	if !ok {
		return
	}
	delete(r.entries, id)
	for _, other := range r.entries {
		delete(other.children, id)
	}
	if e.Buffer != nil {
		e.Buffer.Release()
		e.Buffer = nil
	}
	if e.Remote != nil {
		e.Remote.Destroy()
	}
}

func (r *Registry) Len() int {
	return len(r.entries)
}

// All returns every entry ordered by id.
func (r *Registry) All() []*Entry {
	out := make([]*Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Children returns the ids of id's children that still exist.
func (r *Registry) Children(id ID) []ID {
	e, ok := r.entries[id]
	if !ok {
		return nil
	}
	out := make([]ID, 0, len(e.children))
	for child := range e.children {
		if _, live := r.entries[child]; live {
			out = append(out, child)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// AddChild records child under parent. The link is refused, leaving the
// child set untouched, when it would make a surface its own ancestor.
func (r *Registry) AddChild(parent, child ID) error {
	if parent == child {
		return ErrSelfParent
	}
	p, ok := r.entries[parent]
	if !ok {
		return ErrNotFound
	}
	if r.reachable(child, parent) {
		return ErrCycle
	}
	p.children[child] = struct{}{}
	return nil
}

// reachable reports whether to is a descendant of from.
func (r *Registry) reachable(from, to ID) bool {
	visited := map[ID]struct{}{from: {}}
	stack := []ID{from}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, child := range r.Children(id) {
			if child == to {
				return true
			}
			if _, seen := visited[child]; seen {
				continue
			}
			visited[child] = struct{}{}
			stack = append(stack, child)
		}
	}
	return false
}

// Parent returns the live entry whose child set contains id.
func (r *Registry) Parent(id ID) (ID, bool) {
	for pid, e := range r.entries {
		if _, ok := e.children[id]; ok {
			return pid, true
		}
	}
	return 0, false
}

// Ancestors returns id's parent chain, nearest first.
func (r *Registry) Ancestors(id ID) ([]ID, error) {
	visited := map[ID]struct{}{id: {}}
	var chain []ID
	cur := id
	for {
		parent, ok := r.Parent(cur)
		if !ok {
			return chain, nil
		}
		if _, seen := visited[parent]; seen {
			return chain, ErrCycle
		}
		visited[parent] = struct{}{}
		chain = append(chain, parent)
		cur = parent
	}
}

// FindByWindow returns the entry bound to the given X11 window.
func (r *Registry) FindByWindow(windowID uint32) (*Entry, bool) {
	for _, e := range r.entries {
		if e.Window != nil && e.Window.WindowID() == windowID {
			return e, true
		}
	}
	return nil, false
}

// BindWindow binds w to e, unbinding it from any other entry first.
func (r *Registry) BindWindow(e *Entry, w X11Window) {
	if w != nil {
		for _, other := range r.entries {
			if other != e && other.Window != nil && other.Window.WindowID() == w.WindowID() {
				other.Window = nil
			}
		}
	}
	e.Window = w
}
