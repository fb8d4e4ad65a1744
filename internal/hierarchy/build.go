// Package hierarchy rebuilds the source graph's prim tree as runtime nodes.
package hierarchy

import (
	"fmt"
	"iter"

	"usd-scene-translator/internal/pathindex"
	"usd-scene-translator/internal/scenegraph"
	"usd-scene-translator/internal/sdfpath"
)

// OrderError is returned when a path arrives before its parent was registered.
type OrderError struct {
	Path sdfpath.Path
	Err  error
}

func (e *OrderError) Error() string {
	return fmt.Sprintf("hierarchy: %s arrived before its parent: %v", e.Path, e.Err)
}

func (e *OrderError) Unwrap() error { return e.Err }

// VisitFunc is called for every node placed by Build.
type VisitFunc func(path sdfpath.Path, node *scenegraph.Node) error

// Build creates one node per path under the node registered for its parent
// path, registering each in idx. Paths must arrive parent first; rootPath
// itself is skipped. An existing child with the same name is reused, unless
// rebuild is set and the parent is not the root.
func Build(idx *pathindex.Index, rootPath sdfpath.Path, paths iter.Seq[sdfpath.Path], rebuild bool, visit VisitFunc) error {
	root, err := idx.Get(rootPath)
	if err != nil {
		return err
	}
	for path := range paths {
		if path == rootPath {
			continue
		}
		parent, err := idx.Get(idx.ParentOf(path))
		if err != nil {
			return &OrderError{Path: path, Err: err}
		}
		node := findOrCreate(parent, path.Name(), rebuild && parent != root)
		if err := idx.Put(path, node); err != nil {
			return err
		}
		if visit != nil {
			if err := visit(path, node); err != nil {
				return err
			}
		}
	}
	return nil
}

func findOrCreate(parent *scenegraph.Node, name string, rebuild bool) *scenegraph.Node {
	if n := parent.Find(name); n != nil {
		if !rebuild {
			return n
		}
		n.Destroy()
	}
	return parent.NewChild(name)
}

// ExpandSkeleton creates nodes for resolved joint paths below a skeleton. Joint
// lists need not be contiguous: missing ancestors between the skeleton and a
// joint are created as plain nodes. Paths already registered are reused.
func ExpandSkeleton(idx *pathindex.Index, skelPath sdfpath.Path, joints []sdfpath.Path) error {
	if _, err := idx.Get(skelPath); err != nil {
		return err
	}
	for _, joint := range joints {
		if joint == skelPath {
			continue
		}
		if !joint.HasPrefix(skelPath) {
			return fmt.Errorf("hierarchy: joint %s is not under skeleton %s", joint, skelPath)
		}
		for _, p := range append(joint.Ancestors(), joint) {
			if p.Depth() <= skelPath.Depth() {
				continue
			}
			if _, ok := idx.Lookup(p); ok {
				continue
			}
			parent, err := idx.Get(p.Parent())
			if err != nil {
				return &OrderError{Path: p, Err: err}
			}
			if err := idx.Put(p, findOrCreate(parent, p.Name(), false)); err != nil {
				return err
			}
		}
	}
	return nil
}
