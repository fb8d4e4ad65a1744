package scenegraph

import (
	"math"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"usd-scene-translator/internal/mathutil"
)

func names(n *Node) []string {
	var out []string
	for c := range n.All() {
		out = append(out, c.Name)
	}
	return out
}

func TestTreeConstruction(t *testing.T) {
	root := NewNode("root")
	a := root.NewChild("a")
	a.NewChild("a1")
	root.NewChild("b")

	assert.Equal(t, []string{"root", "a", "a1", "b"}, names(root))
	assert.Same(t, a, root.Find("a"))
	assert.Nil(t, root.Find("a1"))
	assert.Same(t, root, a.Parent())
}

func TestAddChildReparents(t *testing.T) {
	root := NewNode("root")
	a := root.NewChild("a")
	b := root.NewChild("b")
	x := a.NewChild("x")

	b.AddChild(x)
	assert.Empty(t, a.Children())
	assert.Equal(t, []*Node{x}, b.Children())
	assert.Same(t, b, x.Parent())
}

func TestDestroyDetaches(t *testing.T) {
	root := NewNode("root")
	a := root.NewChild("a")
	child := a.NewChild("x")

	a.Destroy()
	assert.Empty(t, root.Children())
	assert.Nil(t, child.Parent())
	assert.Empty(t, a.Children())
}

func TestActiveInHierarchy(t *testing.T) {
	root := NewNode("root")
	a := root.NewChild("a")
	leaf := a.NewChild("leaf")

	assert.True(t, leaf.ActiveInHierarchy())
	a.SetActive(false)
	assert.True(t, leaf.IsActive())
	assert.False(t, leaf.ActiveInHierarchy())
}

func TestAttachReplacesSameKind(t *testing.T) {
	n := NewNode("n")
	n.Attach(&Mesh{Indices: []int{0, 1, 2}})
	n.Attach(&Mesh{Indices: []int{2, 1, 0}})
	n.Attach(&ModelRoot{ModelKind: "component"})

	require.Len(t, n.Components(), 2)
	m, ok := ComponentOf[*Mesh](n)
	require.True(t, ok)
	assert.Equal(t, []int{2, 1, 0}, m.Indices)

	n.Remove(KindMesh)
	_, ok = n.Component(KindMesh)
	assert.False(t, ok)
}

func TestCloneIsDeepAndRemapsSkin(t *testing.T) {
	root := NewNode("asset")
	hips := root.NewChild("Hips")
	body := root.NewChild("Body")
	outside := NewNode("outside")
	body.Attach(&Mesh{Points: []mathutil.Vec3{{1, 2, 3}}})
	body.Attach(&Skin{Bones: []*Node{hips, outside}, RootBone: hips})
	root.SetActive(false)

	c := root.Clone()

	assert.Nil(t, c.Parent())
	assert.NotEqual(t, root.ID, c.ID)
	assert.False(t, c.IsActive())
	assert.Equal(t, names(root), names(c))

	cbody := c.Find("Body")
	chips := c.Find("Hips")
	skin, ok := ComponentOf[*Skin](cbody)
	require.True(t, ok)
	assert.Same(t, chips, skin.Bones[0])
	assert.Same(t, outside, skin.Bones[1])
	assert.Same(t, chips, skin.RootBone)

	mesh, _ := ComponentOf[*Mesh](cbody)
	mesh.Points[0] = mathutil.Vec3{}
	orig, _ := ComponentOf[*Mesh](body)
	assert.Equal(t, mathutil.Vec3{1, 2, 3}, orig.Points[0])
}

func TestWorldMatrixChainsParents(t *testing.T) {
	root := NewNode("root")
	root.SetLocalTransform(mathutil.Vec3{0, 10, 0}, mathutil.QuatAxisAngle(mathutil.Vec3{0, 1, 0}, math.Pi/2), mathutil.Vec3{2, 2, 2})
	child := root.NewChild("child")
	child.Position = mathutil.Vec3{1, 0, 0}

	got := child.WorldMatrix().Translation()
	assert.True(t, got.ApproxEqual(mathutil.Vec3{0, 10, -2}, 1e-9), "got %v", got)
}

func TestAllStopsEarly(t *testing.T) {
	root := NewNode("root")
	root.NewChild("a").NewChild("a1")
	root.NewChild("b")

	var seen []string
	for n := range root.All() {
		seen = append(seen, n.Name)
		if n.Name == "a" {
			break
		}
	}
	assert.True(t, slices.Equal([]string{"root", "a"}, seen))
}
