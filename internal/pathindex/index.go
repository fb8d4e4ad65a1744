// Package pathindex maps source paths to the runtime nodes built for them.
//
// An Index is filled parent-before-child during one translation pass and is
// not safe for concurrent use.
package pathindex

import (
	"maps"
	"slices"

	"usd-scene-translator/internal/scenegraph"
	"usd-scene-translator/internal/sdfpath"
)

// Category groups paths by the schema of the prim they came from.
type Category int

const (
	Xforms Category = iota
	Meshes
	Materials
	Cameras
	Skeletons
	SkelRoots
	PointInstancers
	numCategories
)

// InstanceRoot pairs an instance root node with the master it references.
type InstanceRoot struct {
	Path   sdfpath.Path
	Node   *scenegraph.Node
	Master sdfpath.Path
}

// Index is the bidirectional path/node map for one translation pass.
type Index struct {
	nodes   map[sdfpath.Path]*scenegraph.Node
	reverse map[*scenegraph.Node]sdfpath.Path

	masterRoots   map[sdfpath.Path]*scenegraph.Node
	instanceRoots map[sdfpath.Path]InstanceRoot
	instances     map[sdfpath.Path]*scenegraph.Node

	categories [numCategories][]sdfpath.Path

	hasErrors bool
}

func New() *Index {
	idx := &Index{}
	idx.Clear()
	return idx
}

// Put registers node at path.
func (x *Index) Put(path sdfpath.Path, node *scenegraph.Node) error {
	if _, ok := x.nodes[path]; ok {
		return &DuplicatePathError{Path: path}
	}
	x.nodes[path] = node
	if _, ok := x.reverse[node]; !ok {
		x.reverse[node] = path
	}
	return nil
}

// Get returns the node registered at path.
func (x *Index) Get(path sdfpath.Path) (*scenegraph.Node, error) {
	n, ok := x.nodes[path]
	if !ok {
		return nil, &UnresolvedPathError{Path: path}
	}
	return n, nil
}

// Lookup is Get without the error value.
func (x *Index) Lookup(path sdfpath.Path) (*scenegraph.Node, bool) {
	n, ok := x.nodes[path]
	return n, ok
}

// ParentOf returns the parent path. It does not consult the map.
func (x *Index) ParentOf(path sdfpath.Path) sdfpath.Path {
	return path.Parent()
}

// PathOf returns the path a node was first registered under.
func (x *Index) PathOf(node *scenegraph.Node) (sdfpath.Path, bool) {
	p, ok := x.reverse[node]
	return p, ok
}

// Len is the number of registered paths.
func (x *Index) Len() int { return len(x.nodes) }

// Paths returns every registered path in sdfpath order.
func (x *Index) Paths() []sdfpath.Path {
	return sorted(slices.Collect(maps.Keys(x.nodes)))
}

// AddMasterRoot registers the root node built for a master prim.
func (x *Index) AddMasterRoot(path sdfpath.Path, node *scenegraph.Node) error {
	if err := x.Put(path, node); err != nil {
		return err
	}
	x.masterRoots[path] = node
	return nil
}

// MasterRootPaths returns the registered master roots in sdfpath order.
func (x *Index) MasterRootPaths() []sdfpath.Path {
	return sorted(slices.Collect(maps.Keys(x.masterRoots)))
}

// AddInstanceRoot records that the node at path instances master.
// The node itself must already be registered with Put.
func (x *Index) AddInstanceRoot(path sdfpath.Path, node *scenegraph.Node, master sdfpath.Path) {
	x.instanceRoots[path] = InstanceRoot{Path: path, Node: node, Master: master}
}

// InstanceRoots returns the instance roots in sdfpath order.
func (x *Index) InstanceRoots() []InstanceRoot {
	roots := slices.Collect(maps.Values(x.instanceRoots))
	slices.SortFunc(roots, func(a, b InstanceRoot) int { return sdfpath.Compare(a.Path, b.Path) })
	return roots
}

// AddInstance registers a cloned subtree rooted at path. Every descendant is
// registered under path plus its relative name chain; paths that are already
// registered keep their existing node.
func (x *Index) AddInstance(path sdfpath.Path, clone *scenegraph.Node) {
	x.instances[path] = clone
	x.addSubtree(path, clone)
}

func (x *Index) addSubtree(path sdfpath.Path, n *scenegraph.Node) {
	if _, ok := x.nodes[path]; !ok {
		x.nodes[path] = n
		x.reverse[n] = path
	}
	for _, c := range n.Children() {
		x.addSubtree(path.Append(c.Name), c)
	}
}

// Instances returns the instance clone roots in sdfpath order.
func (x *Index) Instances() []sdfpath.Path {
	return sorted(slices.Collect(maps.Keys(x.instances)))
}

// ContainsPointInstances reports whether any point instancer was categorised.
func (x *Index) ContainsPointInstances() bool {
	return len(x.categories[PointInstancers]) > 0
}

// AddCategory files path under c.
func (x *Index) AddCategory(c Category, path sdfpath.Path) {
	x.categories[c] = append(x.categories[c], path)
}

// Category returns the paths filed under c in insertion order.
func (x *Index) Category(c Category) []sdfpath.Path {
	return x.categories[c]
}

// MarkError records that a recoverable error happened during the pass.
func (x *Index) MarkError() { x.hasErrors = true }

// HasErrors reports whether MarkError was called since the last Clear.
func (x *Index) HasErrors() bool { return x.hasErrors }

// Clear forgets every entry without touching the nodes.
func (x *Index) Clear() {
	x.nodes = make(map[sdfpath.Path]*scenegraph.Node)
	x.reverse = make(map[*scenegraph.Node]sdfpath.Path)
	x.masterRoots = make(map[sdfpath.Path]*scenegraph.Node)
	x.instanceRoots = make(map[sdfpath.Path]InstanceRoot)
	x.instances = make(map[sdfpath.Path]*scenegraph.Node)
	x.categories = [numCategories][]sdfpath.Path{}
	x.hasErrors = false
}

// DestroyAll destroys every registered node except keep, then clears the index.
// Used to roll back a failed pass.
func (x *Index) DestroyAll(keep *scenegraph.Node) {
	for _, n := range x.nodes {
		if n != keep {
			n.Destroy()
		}
	}
	x.Clear()
}

func sorted(paths []sdfpath.Path) []sdfpath.Path {
	sdfpath.Sort(paths)
	return paths
}
