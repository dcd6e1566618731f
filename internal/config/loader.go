package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

type SourceKind string

const (
	SourceDefault SourceKind = "default"
	SourceFile    SourceKind = "file"
)

// Source is where a config value came from.
type Source struct {
	Kind   SourceKind
	Name   string // for defaults
	File   string
	Line   int
	Column int
}

func (s Source) position() string {
	return fmt.Sprintf("%s:%d:%d", s.File, s.Line, s.Column)
}

type LoadResult struct {
	Config  *Config
	Sources map[string]Source // key path -> file position of the last writer
	Files   []string          // every file read, includes before their includer
}

// Load reads the configuration from DefaultConfigPath.
func Load() (*Config, error) {
	res, err := LoadWithSources()
	if err != nil {
		return nil, err
	}
	return res.Config, nil
}

// LoadWithSources is Load keeping per-key sources for Explain.
func LoadWithSources() (*LoadResult, error) {
	path, err := DefaultConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath loads path and its includes. A missing file yields the
// defaults.
func LoadFromPath(path string) (*LoadResult, error) {
	l := &loader{
		done:    make(map[string]bool),
		sources: make(map[string]Source),
	}

	var raw RawConfig
	if _, err := os.Stat(path); err == nil {
		if raw, err = l.load(path); err != nil {
			return nil, err
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	cfg, err := BuildEffectiveConfig(raw)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		return nil, l.locate(err)
	}
	return &LoadResult{Config: cfg, Sources: l.sources, Files: l.files}, nil
}

// loader merges one file tree. Includes apply before the file that names
// them, so the includer wins.
type loader struct {
	done    map[string]bool
	chain   []string
	sources map[string]Source
	files   []string
}

func (l *loader) load(path string) (RawConfig, error) {
	file := resolveFile(path)
	if i := slices.Index(l.chain, file); i >= 0 {
		cycle := append(slices.Clone(l.chain[i:]), file)
		return RawConfig{}, fmt.Errorf("include cycle detected: %s", strings.Join(cycle, " -> "))
	}
	if l.done[file] {
		return RawConfig{}, nil
	}
	l.done[file] = true

	data, err := os.ReadFile(file)
	if err != nil {
		return RawConfig{}, fmt.Errorf("%s: failed to read: %w", file, err)
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return RawConfig{}, fmt.Errorf("%s: failed to parse yaml: %w", file, err)
	}
	var raw RawConfig
	if err := decodeStrict(data, &raw); err != nil {
		return RawConfig{}, fmt.Errorf("%s: %w", file, err)
	}
	own := make(map[string]Source)
	walkKeys(rootMapping(&doc), file, "", own)

	l.chain = append(l.chain, file)
	var merged RawConfig
	for _, inc := range raw.Include {
		paths, err := includeTargets(file, inc)
		if err != nil {
			return RawConfig{}, fmt.Errorf("%s: include %q: %w", own["include"].position(), inc, err)
		}
		for _, p := range paths {
			incRaw, err := l.load(p)
			if err != nil {
				return RawConfig{}, err
			}
			merged = merged.merge(incRaw)
		}
	}
	l.chain = l.chain[:len(l.chain)-1]

	for key, src := range own {
		l.sources[key] = src
	}
	l.files = append(l.files, file)
	return merged.merge(raw), nil
}

// locate attaches the file position of the offending key to a
// ValidationError. Keys without a position of their own, such as sequence
// items, borrow their parent's.
func (l *loader) locate(err error) error {
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Path == "" {
		return err
	}
	for key := verr.Path; ; {
		if src, ok := l.sources[key]; ok {
			verr.Source = src
			return verr
		}
		dot := strings.LastIndexByte(key, '.')
		if dot < 0 {
			return verr
		}
		key = key[:dot]
	}
}

func decodeStrict(data []byte, out any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// resolveFile returns an absolute path with symlinks resolved when
// possible.
func resolveFile(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	if real, err := filepath.EvalSymlinks(path); err == nil {
		return real
	}
	return path
}

// includeTargets resolves an include relative to the including file. A
// directory expands to its *.yaml and *.yml files in name order.
func includeTargets(from, include string) ([]string, error) {
	if include == "" {
		return nil, errors.New("path is empty")
	}
	if include == "~" || strings.HasPrefix(include, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		include = filepath.Join(home, strings.TrimPrefix(include, "~"))
	}
	if !filepath.IsAbs(include) {
		include = filepath.Join(filepath.Dir(from), include)
	}

	info, err := os.Stat(include)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{include}, nil
	}

	var files []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(include, pattern))
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}
	files = slices.DeleteFunc(files, func(p string) bool {
		st, err := os.Stat(p)
		return err != nil || st.IsDir()
	})
	slices.Sort(files)
	return files, nil
}

func rootMapping(doc *yaml.Node) *yaml.Node {
	if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		return doc.Content[0]
	}
	return doc
}

// walkKeys records the position of every mapping value under prefix.
// Sequences are recorded as a whole.
func walkKeys(node *yaml.Node, file, prefix string, out map[string]Source) {
	if node == nil || node.Kind != yaml.MappingNode {
		return
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i].Value, node.Content[i+1]
		if prefix != "" {
			key = prefix + "." + key
		}
		out[key] = Source{Kind: SourceFile, File: file, Line: val.Line, Column: val.Column}
		walkKeys(val, file, key, out)
	}
}
