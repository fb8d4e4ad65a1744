// Package scenegraph is the runtime node tree that translated scenes are built into.
package scenegraph

import (
	"iter"
	"slices"

	"github.com/google/uuid"

	"usd-scene-translator/internal/mathutil"
)

// Node is one element of the runtime tree. A node has at most one parent and
// owns its children; the root is owned by the caller.
type Node struct {
	ID   uuid.UUID
	Name string

	Position mathutil.Vec3
	Rotation mathutil.Quat
	Scale    mathutil.Vec3

	active     bool
	parent     *Node
	children   []*Node
	components []Component
}

// NewNode creates an active, parentless node with an identity transform.
func NewNode(name string) *Node {
	return &Node{
		ID:       uuid.New(),
		Name:     name,
		Rotation: mathutil.QuatIdentity(),
		Scale:    mathutil.Vec3One,
		active:   true,
	}
}

// NewChild creates a node and appends it to n's children.
func (n *Node) NewChild(name string) *Node {
	c := NewNode(name)
	n.AddChild(c)
	return c
}

// AddChild reparents c under n, detaching it from its previous parent.
func (n *Node) AddChild(c *Node) {
	c.Detach()
	c.parent = n
	n.children = append(n.children, c)
}

// Detach removes n from its parent. The subtree below n is untouched.
func (n *Node) Detach() {
	p := n.parent
	if p == nil {
		return
	}
	if i := slices.Index(p.children, n); i >= 0 {
		p.children = slices.Delete(p.children, i, i+1)
	}
	n.parent = nil
}

// Destroy detaches n and releases its subtree and components.
func (n *Node) Destroy() {
	n.Detach()
	for _, c := range n.children {
		c.parent = nil
		c.Destroy()
	}
	n.children = nil
	n.components = nil
}

func (n *Node) Parent() *Node { return n.parent }

// Children returns the direct children in creation order. The slice must not be modified.
func (n *Node) Children() []*Node { return n.children }

// Find returns the first direct child called name.
func (n *Node) Find(name string) *Node {
	for _, c := range n.children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// All yields n and its descendants depth-first, parents before children.
func (n *Node) All() iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		n.walk(yield)
	}
}

func (n *Node) walk(yield func(*Node) bool) bool {
	if !yield(n) {
		return false
	}
	for _, c := range n.children {
		if !c.walk(yield) {
			return false
		}
	}
	return true
}

// IsActive reports the node's own active flag.
func (n *Node) IsActive() bool { return n.active }

func (n *Node) SetActive(active bool) { n.active = active }

// ActiveInHierarchy reports whether n and all of its ancestors are active.
func (n *Node) ActiveInHierarchy() bool {
	for p := n; p != nil; p = p.parent {
		if !p.active {
			return false
		}
	}
	return true
}

// SetLocalTransform replaces the position, rotation and scale relative to the parent.
func (n *Node) SetLocalTransform(pos mathutil.Vec3, rot mathutil.Quat, scale mathutil.Vec3) {
	n.Position = pos
	n.Rotation = rot
	n.Scale = scale
}

// LocalMatrix composes the local TRS.
func (n *Node) LocalMatrix() mathutil.Mat4 {
	return mathutil.Mat4FromTRS(n.Position, n.Rotation, n.Scale)
}

// WorldMatrix chains local matrices from the root down to n.
func (n *Node) WorldMatrix() mathutil.Mat4 {
	m := n.LocalMatrix()
	for p := n.parent; p != nil; p = p.parent {
		m = mathutil.Mat4Mul(p.LocalMatrix(), m)
	}
	return m
}

// Clone deep-copies n and its subtree. The copy is parentless, gets fresh IDs,
// and skin references to nodes inside the subtree are redirected to their copies.
func (n *Node) Clone() *Node {
	copies := make(map[*Node]*Node)
	root := n.cloneTree(copies)
	for _, c := range copies {
		for _, comp := range c.components {
			if r, ok := comp.(nodeRemapper); ok {
				r.remapNodes(copies)
			}
		}
	}
	return root
}

func (n *Node) cloneTree(copies map[*Node]*Node) *Node {
	c := &Node{
		ID:       uuid.New(),
		Name:     n.Name,
		Position: n.Position,
		Rotation: n.Rotation,
		Scale:    n.Scale,
		active:   n.active,
	}
	copies[n] = c
	for _, comp := range n.components {
		c.components = append(c.components, comp.Clone())
	}
	for _, child := range n.children {
		cc := child.cloneTree(copies)
		cc.parent = c
		c.children = append(c.children, cc)
	}
	return c
}
