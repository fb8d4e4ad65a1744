package scenegraph

import (
	"slices"

	"usd-scene-translator/internal/mathutil"
	"usd-scene-translator/internal/sdfpath"
)

// Kind identifies a component type. A node holds at most one component per kind.
type Kind int

const (
	KindPrimSource Kind = iota
	KindMesh
	KindMaterial
	KindSkin
	KindModelRoot
	KindInstancer
)

var kindNames = [...]string{"prim-source", "mesh", "material", "skin", "model-root", "instancer"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Component is data attached to a node.
type Component interface {
	Kind() Kind
	// Clone returns a deep copy for Node.Clone.
	Clone() Component
}

type nodeRemapper interface {
	remapNodes(copies map[*Node]*Node)
}

// Attach adds c, replacing any component of the same kind.
func (n *Node) Attach(c Component) {
	for i, existing := range n.components {
		if existing.Kind() == c.Kind() {
			n.components[i] = c
			return
		}
	}
	n.components = append(n.components, c)
}

// Component returns the component of the given kind.
func (n *Node) Component(k Kind) (Component, bool) {
	for _, c := range n.components {
		if c.Kind() == k {
			return c, true
		}
	}
	return nil, false
}

// Components returns every attached component. The slice must not be modified.
func (n *Node) Components() []Component { return n.components }

// Remove drops the component of the given kind, if any.
func (n *Node) Remove(k Kind) {
	n.components = slices.DeleteFunc(n.components, func(c Component) bool { return c.Kind() == k })
}

// ComponentOf returns the first component of type T attached to n.
func ComponentOf[T Component](n *Node) (T, bool) {
	for _, c := range n.components {
		if t, ok := c.(T); ok {
			return t, true
		}
	}
	var zero T
	return zero, false
}

// PrimSource records which source prim a node was translated from.
type PrimSource struct {
	Path     sdfpath.Path
	TypeName string
}

func (*PrimSource) Kind() Kind { return KindPrimSource }

func (p *PrimSource) Clone() Component {
	c := *p
	return &c
}

// Mesh holds render geometry in scene space.
type Mesh struct {
	Points    []mathutil.Vec3
	Normals   []mathutil.Vec3
	UVs       [][2]float32
	Indices   []int // triangle list
	Material  sdfpath.Path
	Color     [4]float32
	Batchable bool
}

func (*Mesh) Kind() Kind { return KindMesh }

func (m *Mesh) Clone() Component {
	c := *m
	c.Points = slices.Clone(m.Points)
	c.Normals = slices.Clone(m.Normals)
	c.UVs = slices.Clone(m.UVs)
	c.Indices = slices.Clone(m.Indices)
	return &c
}

// TextureInfo describes a resolved texture.
type TextureInfo struct {
	Path    string
	Width   int
	Height  int
	Average [4]float32
}

// Material holds surface parameters bound to meshes.
type Material struct {
	Path      sdfpath.Path
	Color     [4]float32
	Texture   *TextureInfo
	Batchable bool
}

func (*Material) Kind() Kind { return KindMaterial }

func (m *Material) Clone() Component {
	c := *m
	if m.Texture != nil {
		t := *m.Texture
		c.Texture = &t
	}
	return &c
}

// BoneWeight is a fixed four-influence skin record. Unused slots are zero.
type BoneWeight struct {
	Index  [4]int
	Weight [4]float32
}

// Skin binds a mesh to skeleton joint nodes.
type Skin struct {
	Bones     []*Node // nil where a joint could not be resolved
	BindPoses []mathutil.Mat4
	Weights   []BoneWeight
	RootBone  *Node
}

func (*Skin) Kind() Kind { return KindSkin }

func (s *Skin) Clone() Component {
	c := *s
	c.Bones = slices.Clone(s.Bones)
	c.BindPoses = slices.Clone(s.BindPoses)
	c.Weights = slices.Clone(s.Weights)
	return &c
}

func (s *Skin) remapNodes(copies map[*Node]*Node) {
	for i, b := range s.Bones {
		if nb, ok := copies[b]; ok {
			s.Bones[i] = nb
		}
	}
	if nb, ok := copies[s.RootBone]; ok {
		s.RootBone = nb
	}
}

// ModelRoot marks a node translated from a prim with a model kind.
type ModelRoot struct {
	ModelKind    string
	AssetName    string
	AssetVersion string
}

func (*ModelRoot) Kind() Kind { return KindModelRoot }

func (m *ModelRoot) Clone() Component {
	c := *m
	return &c
}

// Instancer is attached to point-instancer nodes and counts realized instances.
type Instancer struct {
	Realized int
}

func (*Instancer) Kind() Kind { return KindInstancer }

func (i *Instancer) Clone() Component {
	c := *i
	return &c
}
