package skeleton

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"usd-scene-translator/internal/basis"
	"usd-scene-translator/internal/mathutil"
	"usd-scene-translator/internal/pathindex"
	"usd-scene-translator/internal/scenegraph"
	"usd-scene-translator/internal/sdfpath"
	"usd-scene-translator/internal/stage"
)

func TestResolveJointPaths(t *testing.T) {
	got := ResolveJointPaths(context.Background(), "/Rig/Skel", []string{"/", "Hips", "Hips/Spine", "/Hips/Leg"})
	assert.Equal(t, []sdfpath.Path{"/Rig/Skel", "/Rig/Skel/Hips", "/Rig/Skel/Hips/Spine", "/Rig/Skel/Hips/Leg"}, got)
}

func TestUnpack(t *testing.T) {
	tests := []struct {
		name        string
		binding     stage.SkelBindingSample
		vertexCount int
		want        []scenegraph.BoneWeight
	}{
		{
			name: "four influences keep their order",
			binding: stage.SkelBindingSample{
				JointIndices: []int{3, 1, 2, 0},
				JointWeights: []float32{0.4, 0.3, 0.2, 0.1},
				ElementSize:  4,
			},
			vertexCount: 1,
			want: []scenegraph.BoneWeight{
				{Index: [4]int{3, 1, 2, 0}, Weight: [4]float32{0.4, 0.3, 0.2, 0.1}},
			},
		},
		{
			name: "constant binding shares the first element",
			binding: stage.SkelBindingSample{
				JointIndices:  []int{5},
				JointWeights:  []float32{1},
				ElementSize:   1,
				Interpolation: "constant",
			},
			vertexCount: 3,
			want: []scenegraph.BoneWeight{
				{Index: [4]int{5}, Weight: [4]float32{1}},
				{Index: [4]int{5}, Weight: [4]float32{1}},
				{Index: [4]int{5}, Weight: [4]float32{1}},
			},
		},
		{
			name: "two influences per vertex",
			binding: stage.SkelBindingSample{
				JointIndices: []int{0, 1, 2, 3},
				JointWeights: []float32{0.5, 0.5, 1, 0},
				ElementSize:  2,
			},
			vertexCount: 2,
			want: []scenegraph.BoneWeight{
				{Index: [4]int{0, 1}, Weight: [4]float32{0.5, 0.5}},
				{Index: [4]int{2, 3}, Weight: [4]float32{1, 0}},
			},
		},
		{
			name: "weights below one are renormalized",
			binding: stage.SkelBindingSample{
				JointIndices: []int{0, 1},
				JointWeights: []float32{0.25, 0.25},
				ElementSize:  2,
			},
			vertexCount: 1,
			want: []scenegraph.BoneWeight{
				{Index: [4]int{0, 1}, Weight: [4]float32{0.5, 0.5}},
			},
		},
		{
			name: "influences past four are dropped",
			binding: stage.SkelBindingSample{
				JointIndices: []int{1, 2, 3, 4, 5},
				JointWeights: []float32{0.5, 0.2, 0.1, 0.1, 0.1},
				ElementSize:  5,
			},
			vertexCount: 1,
			want: []scenegraph.BoneWeight{
				{Index: [4]int{1, 2, 3, 4}, Weight: [4]float32{0.5 / 0.9, 0.2 / 0.9, 0.1 / 0.9, 0.1 / 0.9}},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Unpack(&tt.binding, tt.vertexCount)
			require.NoError(t, err)
			require.Len(t, got, len(tt.want))
			for v := range got {
				assert.Equal(t, tt.want[v].Index, got[v].Index, "vertex %d", v)
				for s := range MaxInfluences {
					assert.InDelta(t, tt.want[v].Weight[s], got[v].Weight[s], 1e-5, "vertex %d slot %d", v, s)
				}
			}
		})
	}
}

func TestUnpackConstantTenVertices(t *testing.T) {
	b := &stage.SkelBindingSample{JointIndices: []int{5}, JointWeights: []float32{1}, ElementSize: 1, Interpolation: "constant"}
	got, err := Unpack(b, 10)
	require.NoError(t, err)
	require.Len(t, got, 10)
	for _, bw := range got {
		assert.Equal(t, 5, bw.Index[0])
	}
}

func TestUnpackMalformed(t *testing.T) {
	tests := []struct {
		name    string
		binding stage.SkelBindingSample
		count   int
	}{
		{"zero element size", stage.SkelBindingSample{JointIndices: []int{0}, JointWeights: []float32{1}}, 1},
		{"length mismatch", stage.SkelBindingSample{JointIndices: []int{0, 1}, JointWeights: []float32{1}, ElementSize: 1}, 1},
		{"too short", stage.SkelBindingSample{JointIndices: []int{0}, JointWeights: []float32{1}, ElementSize: 1}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Unpack(&tt.binding, tt.count)
			var mse *MalformedSkinError
			assert.ErrorAs(t, err, &mse)
		})
	}
}

func TestBindTransformsInverts(t *testing.T) {
	bind := mathutil.Mat4Translation(mathutil.Vec3{1, 2, 3})
	skel := &stage.SkeletonSample{BindTransforms: []mathutil.Mat4{bind, {}}}

	got, err := BindTransforms(skel, basis.Exact)
	assert.Error(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].Translation().ApproxEqual(mathutil.Vec3{-1, -2, 3}, 1e-9))
	assert.True(t, got[1].IsIdentity())
}

func skelIndex(t *testing.T) (*pathindex.Index, *scenegraph.Node) {
	t.Helper()
	idx := pathindex.New()
	root := scenegraph.NewNode("scene")
	require.NoError(t, idx.Put(sdfpath.Root, root))
	skel := root.NewChild("Skel")
	require.NoError(t, idx.Put("/Skel", skel))
	hips := skel.NewChild("Hips")
	require.NoError(t, idx.Put("/Skel/Hips", hips))
	require.NoError(t, idx.Put("/Skel/Hips/Spine", hips.NewChild("Spine")))
	require.NoError(t, idx.Put("/Body", root.NewChild("Body")))
	return idx, root
}

func TestBind(t *testing.T) {
	idx, _ := skelIndex(t)
	skelJoints := []string{"Hips", "Hips/Spine"}
	inv := []mathutil.Mat4{
		mathutil.Mat4Translation(mathutil.Vec3{0, -1, 0}),
		mathutil.Mat4Translation(mathutil.Vec3{0, -2, 0}),
	}
	weights := &stage.SkelBindingSample{
		JointIndices: []int{0, 1, 1, 0},
		JointWeights: []float32{1, 0, 1, 0},
		ElementSize:  2,
	}

	t.Run("skeleton joints", func(t *testing.T) {
		b := NewBinder(idx, basis.Exact)
		skin, err := b.Bind(context.Background(), Request{
			MeshPath: "/Body", SkelPath: "/Skel", SkelJoints: skelJoints, InverseBinds: inv,
			Binding: weights, VertexCount: 2,
		})
		require.NoError(t, err)
		hips, _ := idx.Lookup("/Skel/Hips")
		assert.Same(t, hips, skin.Bones[0])
		assert.Equal(t, inv, skin.BindPoses)
		assert.Len(t, skin.Weights, 2)

		body, _ := idx.Lookup("/Body")
		attached, ok := scenegraph.ComponentOf[*scenegraph.Skin](body)
		require.True(t, ok)
		assert.Same(t, skin, attached)
		assert.Equal(t, 0, b.paths.Outstanding())
	})

	t.Run("joint subset remaps bind poses", func(t *testing.T) {
		sub := *weights
		sub.Joints = []string{"Hips/Spine"}
		sub.JointIndices = []int{0, 0, 0, 0}
		skin, err := NewBinder(idx, basis.Exact).Bind(context.Background(), Request{
			MeshPath: "/Body", SkelPath: "/Skel", SkelJoints: skelJoints, InverseBinds: inv,
			Binding: &sub, VertexCount: 2,
		})
		require.NoError(t, err)
		require.Len(t, skin.BindPoses, 1)
		assert.Equal(t, inv[1], skin.BindPoses[0])
	})

	t.Run("geometry bind transform is applied", func(t *testing.T) {
		g := *weights
		g.GeomBindTransform = mathutil.Mat4Translation(mathutil.Vec3{0, 0, 5})
		skin, err := NewBinder(idx, basis.Exact).Bind(context.Background(), Request{
			MeshPath: "/Body", SkelPath: "/Skel", SkelJoints: skelJoints, InverseBinds: inv,
			Binding: &g, VertexCount: 2,
		})
		require.NoError(t, err)
		assert.True(t, skin.BindPoses[0].Translation().ApproxEqual(mathutil.Vec3{0, -1, -5}, 1e-9))
	})

	t.Run("unresolved joint is left nil", func(t *testing.T) {
		idx2, _ := skelIndex(t)
		skin, err := NewBinder(idx2, basis.Exact).Bind(context.Background(), Request{
			MeshPath: "/Body", SkelPath: "/Skel", SkelJoints: []string{"Hips", "Tail"}, InverseBinds: inv,
			Binding: weights, VertexCount: 2,
		})
		require.NoError(t, err)
		assert.NotNil(t, skin.Bones[0])
		assert.Nil(t, skin.Bones[1])
		assert.True(t, idx2.HasErrors())
	})
}

func TestBindDropsOutOfRangeJoints(t *testing.T) {
	skelJoints := []string{"Hips", "Hips/Spine"}
	inv := []mathutil.Mat4{mathutil.Mat4Identity(), mathutil.Mat4Identity()}
	tests := []struct {
		name    string
		indices []int
		weights []float32
		want    scenegraph.BoneWeight
		errs    bool
	}{
		{"in range", []int{0, 1}, []float32{0.5, 0.5},
			scenegraph.BoneWeight{Index: [4]int{0, 1}, Weight: [4]float32{0.5, 0.5}}, false},
		{"negative index", []int{-1, 1}, []float32{0.25, 0.75},
			scenegraph.BoneWeight{Index: [4]int{0, 1}, Weight: [4]float32{0, 1}}, true},
		{"index past joints", []int{0, 2}, []float32{0.5, 0.5},
			scenegraph.BoneWeight{Index: [4]int{0, 0}, Weight: [4]float32{1, 0}}, true},
		{"every influence out of range", []int{7, -3}, []float32{0.5, 0.5},
			scenegraph.BoneWeight{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx, _ := skelIndex(t)
			skin, err := NewBinder(idx, basis.Exact).Bind(context.Background(), Request{
				MeshPath: "/Body", SkelPath: "/Skel", SkelJoints: skelJoints, InverseBinds: inv,
				Binding: &stage.SkelBindingSample{
					JointIndices: tt.indices, JointWeights: tt.weights, ElementSize: 2,
				},
				VertexCount: 1,
			})
			require.NoError(t, err)
			require.Len(t, skin.Weights, 1)
			assert.Equal(t, tt.want, skin.Weights[0])
			for _, i := range skin.Weights[0].Index {
				assert.Less(t, i, len(skin.Bones))
				assert.GreaterOrEqual(t, i, 0)
			}
			assert.Equal(t, tt.errs, idx.HasErrors())
		})
	}
}

func TestPoseBones(t *testing.T) {
	idx, _ := skelIndex(t)
	joints := []sdfpath.Path{"/Skel/Hips", "/Skel/Hips/Spine"}
	skel := &stage.SkeletonSample{RestTransforms: []mathutil.Mat4{
		mathutil.Mat4Translation(mathutil.Vec3{0, 1, 2}),
		mathutil.Mat4Translation(mathutil.Vec3{0, 1, 0}),
	}}

	PoseBones(context.Background(), idx, "/Skel", joints, skel, basis.Exact)
	hips, _ := idx.Lookup("/Skel/Hips")
	assert.True(t, hips.Position.ApproxEqual(mathutil.Vec3{0, 1, -2}, 1e-9))
	assert.False(t, idx.HasErrors())
}
