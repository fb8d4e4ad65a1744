// Package sdfpath implements hierarchical scene paths.
//
// Absolute paths start at the pseudo-root "/" ("/World/Geo"); relative paths
// have no leading separator ("Hips/Spine") and are used for skeleton joints.
package sdfpath

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

// Path is a slash-separated sequence of prim names.
type Path string

const (
	// Root is the pseudo-root every absolute path descends from.
	Root Path = "/"
	// Empty is the invalid zero path.
	Empty Path = ""

	sep = "/"
)

// InvalidPathError reports a string that is not a well-formed path.
type InvalidPathError struct {
	Input  string
	Reason string
}

func (e *InvalidPathError) Error() string {
	return fmt.Sprintf("sdfpath: invalid path %q: %s", e.Input, e.Reason)
}

// Parse validates s and returns it as a Path.
// Every segment must be an identifier: a letter or underscore followed by letters, digits or underscores.
func Parse(s string) (Path, error) {
	if s == "" {
		return Empty, &InvalidPathError{Input: s, Reason: "empty"}
	}
	if s == sep {
		return Root, nil
	}
	body := strings.TrimPrefix(s, sep)
	for _, seg := range strings.Split(body, sep) {
		if !IsValidName(seg) {
			return Empty, &InvalidPathError{Input: s, Reason: fmt.Sprintf("bad segment %q", seg)}
		}
	}
	return Path(s), nil
}

// MustParse is Parse for literals; it panics on malformed input.
func MustParse(s string) Path {
	p, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return p
}

// IsValidName reports whether name can be used as a single path segment.
func IsValidName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

func (p Path) String() string { return string(p) }

func (p Path) IsEmpty() bool { return p == Empty }

func (p Path) IsRoot() bool { return p == Root }

func (p Path) IsAbsolute() bool { return strings.HasPrefix(string(p), sep) }

// IsRootPrim reports whether p is a direct child of the pseudo-root.
func (p Path) IsRootPrim() bool {
	return p.IsAbsolute() && !p.IsRoot() && !strings.Contains(string(p[1:]), sep)
}

// Name returns the last segment. The root and the empty path have no name.
func (p Path) Name() string {
	if p.IsRoot() || p.IsEmpty() {
		return ""
	}
	s := string(p)
	return s[strings.LastIndex(s, sep)+1:]
}

// Parent returns the path with its last segment removed.
// The parent of a root prim is Root; the parent of Root or of a
// single-segment relative path is Empty.
func (p Path) Parent() Path {
	if p.IsRoot() || p.IsEmpty() {
		return Empty
	}
	s := string(p)
	i := strings.LastIndex(s, sep)
	switch {
	case i < 0:
		return Empty
	case i == 0:
		return Root
	default:
		return Path(s[:i])
	}
}

// Append returns p extended by one child segment.
func (p Path) Append(name string) Path {
	switch {
	case p.IsEmpty():
		return Path(name)
	case p.IsRoot():
		return Path(sep + name)
	default:
		return Path(string(p) + sep + name)
	}
}

// AppendPath appends every segment of rel to p. A leading separator on rel is ignored.
func (p Path) AppendPath(rel Path) Path {
	trimmed := strings.Trim(string(rel), sep)
	if trimmed == "" {
		return p
	}
	switch {
	case p.IsEmpty():
		return Path(trimmed)
	case p.IsRoot():
		return Path(sep + trimmed)
	default:
		return Path(string(p) + sep + trimmed)
	}
}

// Segments returns the names from the outermost to the innermost.
func (p Path) Segments() []string {
	s := strings.Trim(string(p), sep)
	if s == "" {
		return nil
	}
	return strings.Split(s, sep)
}

// Depth is the number of segments.
func (p Path) Depth() int {
	s := strings.Trim(string(p), sep)
	if s == "" {
		return 0
	}
	return strings.Count(s, sep) + 1
}

// HasPrefix reports whether prefix is p or one of its ancestors, segment-wise.
func (p Path) HasPrefix(prefix Path) bool {
	if prefix.IsRoot() {
		return p.IsAbsolute()
	}
	if prefix.IsEmpty() {
		return !p.IsAbsolute()
	}
	if p == prefix {
		return true
	}
	return strings.HasPrefix(string(p), string(prefix)+sep)
}

// ReplacePrefix rewrites the old ancestor of p with repl.
// p is returned unchanged when old is not a prefix.
func (p Path) ReplacePrefix(old, repl Path) Path {
	if !p.HasPrefix(old) {
		return p
	}
	if p == old {
		return repl
	}
	rest := strings.TrimPrefix(string(p), string(old))
	return repl.AppendPath(Path(rest))
}

// Ancestors yields the proper ancestors of p, outermost first, excluding Root.
func (p Path) Ancestors() []Path {
	var out []Path
	for a := p.Parent(); !a.IsEmpty() && !a.IsRoot(); a = a.Parent() {
		out = append(out, a)
	}
	slices.Reverse(out)
	return out
}

// Compare orders paths segment by segment, so that an ancestor sorts
// before its descendants and siblings keep their subtrees together.
func Compare(a, b Path) int {
	if a.IsAbsolute() != b.IsAbsolute() {
		if a.IsAbsolute() {
			return -1
		}
		return 1
	}
	as, bs := a.Segments(), b.Segments()
	for i := 0; i < len(as) && i < len(bs); i++ {
		if c := cmp.Compare(as[i], bs[i]); c != 0 {
			return c
		}
	}
	return cmp.Compare(len(as), len(bs))
}

// Sort orders paths in place with Compare.
func Sort(paths []Path) {
	slices.SortFunc(paths, Compare)
}
