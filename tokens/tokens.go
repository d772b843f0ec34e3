// Package tokens implements the design token store - the single source of
// every typography, color, spacing and border decision made during a build.
//
// The store is loaded once per build and never mutated. Every accessor
// resolves a dot separated path to a concrete scalar; a missing or mistyped
// token is a hard error, never a silently substituted default. Formatting
// code outside the style registry must not read tokens directly.
package tokens

import (
	"fmt"
	"os"
	"strings"

	yaml "gopkg.in/yaml.v3"
)

// ResolutionError reports a token path which could not be resolved to the
// requested scalar kind. It always aborts the build.
type ResolutionError struct {
	Path   string
	Reason string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("token %q: %s", e.Path, e.Reason)
}

// Set is an immutable, hierarchically namespaced token map.
type Set struct {
	root map[string]any
}

// Load parses a YAML token document into a Set.
func Load(data []byte) (*Set, error) {
	root := make(map[string]any)
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("unable to parse tokens: %w", err)
	}
	return &Set{root: root}, nil
}

// LoadFile reads a YAML token file into a Set.
func LoadFile(fname string) (*Set, error) {
	data, err := os.ReadFile(fname)
	if err != nil {
		return nil, fmt.Errorf("unable to read tokens: %w", err)
	}
	return Load(data)
}

// FromMap wraps an already assembled token map. The caller must not mutate
// the map afterwards.
func FromMap(m map[string]any) *Set {
	return &Set{root: m}
}

// Has reports whether a path resolves to a scalar value. Used for genuinely
// optional tokens (e.g. border presence), never to mask a missing required one.
func (s *Set) Has(path string) bool {
	_, err := s.lookup(path)
	return err == nil
}

func (s *Set) lookup(path string) (any, error) {
	if s == nil || s.root == nil {
		return nil, &ResolutionError{Path: path, Reason: "empty token set"}
	}
	cur := any(s.root)
	for part := range strings.SplitSeq(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, &ResolutionError{Path: path, Reason: fmt.Sprintf("%q is not a namespace", part)}
		}
		cur, ok = m[part]
		if !ok {
			return nil, &ResolutionError{Path: path, Reason: "not present"}
		}
	}
	if _, ok := cur.(map[string]any); ok {
		return nil, &ResolutionError{Path: path, Reason: "names a namespace, not a value"}
	}
	return cur, nil
}

// String resolves a path to a string scalar.
func (s *Set) String(path string) (string, error) {
	v, err := s.lookup(path)
	if err != nil {
		return "", err
	}
	str, ok := v.(string)
	if !ok {
		return "", &ResolutionError{Path: path, Reason: fmt.Sprintf("expected string, found %T", v)}
	}
	return str, nil
}

// Float resolves a path to a numeric scalar.
func (s *Set) Float(path string) (float64, error) {
	v, err := s.lookup(path)
	if err != nil {
		return 0, err
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	}
	return 0, &ResolutionError{Path: path, Reason: fmt.Sprintf("expected number, found %T", v)}
}

// Bool resolves a path to a boolean scalar.
func (s *Set) Bool(path string) (bool, error) {
	v, err := s.lookup(path)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, &ResolutionError{Path: path, Reason: fmt.Sprintf("expected bool, found %T", v)}
	}
	return b, nil
}

// Length resolves a path to a length scalar. Accepts CSS style literals
// ("12pt", "0.23in", "2.5mm") and bare numbers, which are taken as points.
func (s *Set) Length(path string) (Length, error) {
	v, err := s.lookup(path)
	if err != nil {
		return Length{}, err
	}
	switch n := v.(type) {
	case float64:
		return Points(n), nil
	case int:
		return Points(float64(n)), nil
	case string:
		l, err := ParseLength(n)
		if err != nil {
			return Length{}, &ResolutionError{Path: path, Reason: err.Error()}
		}
		return l, nil
	}
	return Length{}, &ResolutionError{Path: path, Reason: fmt.Sprintf("expected length, found %T", v)}
}

// Color resolves a path to an RGB color scalar ("#RRGGBB" or "#RGB").
func (s *Set) Color(path string) (Color, error) {
	v, err := s.lookup(path)
	if err != nil {
		return Color{}, err
	}
	str, ok := v.(string)
	if !ok {
		return Color{}, &ResolutionError{Path: path, Reason: fmt.Sprintf("expected color, found %T", v)}
	}
	c, err := ParseColor(str)
	if err != nil {
		return Color{}, &ResolutionError{Path: path, Reason: err.Error()}
	}
	return c, nil
}

// Casing resolves a path to a text casing transform.
func (s *Set) Casing(path string) (Casing, error) {
	str, err := s.String(path)
	if err != nil {
		return CasingNone, err
	}
	c, err := ParseCasing(str)
	if err != nil {
		return CasingNone, &ResolutionError{Path: path, Reason: err.Error()}
	}
	return c, nil
}
