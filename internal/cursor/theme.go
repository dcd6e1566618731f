// Package cursor resolves named cursors against Xcursor themes.
package cursor

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotFound is returned when no theme in the inheritance chain has the
// requested cursor.
var ErrNotFound = errors.New("cursor not found")

var defaultLibraryPaths = []string{
	"~/.icons",
	"/usr/share/icons",
	"/usr/share/pixmaps",
	"~/.cursors",
	"/usr/share/cursors/xorg-x11",
	"/usr/X11R6/lib/X11/icons",
}

// libraryPaths returns the directories searched for themes, honouring
// XCURSOR_PATH and XDG_DATA_HOME.
func libraryPaths() []string {
	if v, ok := os.LookupEnv("XCURSOR_PATH"); ok {
		return expandHome(filepath.SplitList(v))
	}

	v, ok := os.LookupEnv("XDG_DATA_HOME")
	if !ok || !filepath.IsAbs(v) {
		v = "~/.local/share"
	}
	return expandHome(append([]string{filepath.Join(v, "icons")}, defaultLibraryPaths...))
}

func expandHome(paths []string) []string {
	home, err := os.UserHomeDir()
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if rest, ok := strings.CutPrefix(p, "~/"); ok {
			if err != nil {
				continue
			}
			p = filepath.Join(home, rest)
		}
		out = append(out, p)
	}
	return out
}

// Theme is an Xcursor theme at a nominal cursor size.
type Theme struct {
	Name string
	Size int

	paths []string
}

func NewTheme(name string, size int) *Theme {
	if name == "" {
		name = "default"
	}
	if size <= 0 {
		size = 24
	}
	return &Theme{Name: name, Size: size, paths: libraryPaths()}
}

// Find returns the file of the named cursor, searching the theme and then
// the themes it inherits from.
func (t *Theme) Find(name string) (string, error) {
	if name == "" || strings.ContainsRune(name, filepath.Separator) {
		return "", fmt.Errorf("%w: invalid name %q", ErrNotFound, name)
	}
	visited := make(map[string]struct{})
	if path, ok := t.find(t.Name, name, visited); ok {
		return path, nil
	}
	return "", fmt.Errorf("%w: %q in theme %q", ErrNotFound, name, t.Name)
}

func (t *Theme) find(theme, name string, visited map[string]struct{}) (string, bool) {
	if _, seen := visited[theme]; seen {
		return "", false
	}
	visited[theme] = struct{}{}

	var inherits []string
	for _, lib := range t.paths {
		dir := filepath.Join(lib, theme)
		candidate := filepath.Join(dir, "cursors", name)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
		if inherits == nil {
			if i, err := loadInherits(filepath.Join(dir, "index.theme")); err == nil {
				inherits = i
			}
		}
	}
	for _, parent := range inherits {
		if path, ok := t.find(parent, name, visited); ok {
			return path, true
		}
	}
	return "", false
}

// Load decodes the named cursor at the theme's size.
func (t *Theme) Load(name string) ([]*Image, error) {
	path, err := t.Find(name)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open cursor: %w", err)
	}
	defer file.Close()

	images, err := Decode(file, t.Size)
	if err != nil {
		return nil, fmt.Errorf("decode %q: %w", path, err)
	}
	return images, nil
}

func loadInherits(index string) (inherits []string, err error) {
	file, err := os.Open(index)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	s := bufio.NewScanner(file)
	for s.Scan() {
		line := s.Text()
		if !strings.HasPrefix(line, "Inherits") {
			continue
		}

		_, after, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}

		inherits = strings.FieldsFunc(after, func(c rune) bool {
			return (c == ':') || (c == ',') || (c == ';')
		})
		for i, v := range inherits {
			inherits[i] = strings.TrimSpace(v)
		}

		break
	}
	if err := s.Err(); err != nil {
		return inherits, fmt.Errorf("scan: %w", err)
	}
	if inherits == nil {
		return nil, fs.ErrNotExist
	}

	return inherits, nil
}
