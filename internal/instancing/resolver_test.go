package instancing

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

type fixture struct {
	idx       *pathindex.Index
	root      *scenegraph.Node
	instancer *scenegraph.Node
}

func newFixture(t *testing.T, protos ...string) fixture {
	t.Helper()
	idx := pathindex.New()
	root := scenegraph.NewNode("scene")
	require.NoError(t, idx.Put(sdfpath.Root, root))
	inst := root.NewChild("Trees")
	require.NoError(t, idx.Put("/Trees", inst))
	protoRoot := inst.NewChild("Protos")
	require.NoError(t, idx.Put("/Trees/Protos", protoRoot))
	for _, p := range protos {
		n := protoRoot.NewChild(p)
		n.Attach(&scenegraph.Mesh{})
		require.NoError(t, idx.Put(sdfpath.Path("/Trees/Protos").Append(p), n))
	}
	return fixture{idx: idx, root: root, instancer: inst}
}

func positions(n int) []mathutil.Vec3 {
	out := make([]mathutil.Vec3, n)
	for i := range out {
		out[i] = mathutil.Vec3{float64(i), 0, 0}
	}
	return out
}

func clones(n *scenegraph.Node) []*scenegraph.Node {
	var out []*scenegraph.Node
	for _, c := range n.Children() {
		if c.Name != "Protos" {
			out = append(out, c)
		}
	}
	return out
}

func TestBuildPointInstances(t *testing.T) {
	tests := []struct {
		name       string
		protos     []string
		indices    []int
		transforms int
		inactive   []int
		want       []string
		exhausted  bool
	}{
		{
			name:       "two prototypes",
			protos:     []string{"A", "B"},
			indices:    []int{0, 1, 0},
			transforms: 3,
			want:       []string{"A_0", "B_1", "A_2"},
		},
		{
			name:       "out of range index is skipped",
			protos:     []string{"A"},
			indices:    []int{0, 99},
			transforms: 2,
			want:       []string{"A_0"},
		},
		{
			name:       "transforms run out",
			protos:     []string{"A"},
			indices:    []int{0, 0, 0, 0, 0},
			transforms: 2,
			want:       []string{"A_0", "A_1"},
			exhausted:  true,
		},
		{
			name:       "inactive entries consume no transform",
			protos:     []string{"A"},
			indices:    []int{0, 0, 0},
			transforms: 2,
			inactive:   []int{1},
			want:       []string{"A_0", "A_2"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.protos...)
			sample := &stage.PointInstancerSample{
				ProtoIndices: tt.indices,
				Positions:    positions(tt.transforms),
				InactiveIDs:  tt.inactive,
			}
			for _, p := range tt.protos {
				sample.Prototypes = append(sample.Prototypes, sdfpath.Path("/Trees/Protos").Append(p))
			}
			r := NewResolver(f.idx, Options{Policy: basis.Exact})

			res := r.BuildPointInstances(context.Background(), "/Trees", f.instancer, sample)

			got := clones(f.instancer)
			var names []string
			for i, c := range got {
				names = append(names, c.Name)
				assert.True(t, c.IsActive(), c.Name)
				assert.Equal(t, float64(i), c.Position[0], c.Name)
			}
			assert.Equal(t, tt.want, names)
			assert.Equal(t, len(tt.want), res.Realized)
			assert.Equal(t, tt.exhausted, res.Exhausted)
			for _, p := range sample.Prototypes {
				n, _ := f.idx.Lookup(p)
				assert.False(t, n.IsActive())
			}
			_, ok := f.idx.Lookup(sdfpath.Path("/Trees").Append(tt.want[0]))
			assert.True(t, ok)
			ic, ok := scenegraph.ComponentOf[*scenegraph.Instancer](f.instancer)
			require.True(t, ok)
			assert.Equal(t, res.Realized, ic.Realized)
			assert.Equal(t, 0, r.candidates.Outstanding())
		})
	}
}

func TestBuildPointInstancesUnresolvedPrototype(t *testing.T) {
	f := newFixture(t, "A")
	sample := &stage.PointInstancerSample{
		Prototypes:   []sdfpath.Path{"/Trees/Protos/A", "/Missing"},
		ProtoIndices: []int{1, 0},
		Positions:    positions(2),
	}
	res := NewResolver(f.idx, Options{}).BuildPointInstances(context.Background(), "/Trees", f.instancer, sample)
	assert.Equal(t, 1, res.Realized)
	assert.Equal(t, 1, res.Skipped)
	assert.True(t, f.idx.HasErrors())
	require.Len(t, clones(f.instancer), 1)
	assert.Equal(t, "A_1", clones(f.instancer)[0].Name)
}

func TestBuildPointInstancesCap(t *testing.T) {
	f := newFixture(t, "A")
	sample := &stage.PointInstancerSample{
		Prototypes:   []sdfpath.Path{"/Trees/Protos/A"},
		ProtoIndices: []int{0, 0, 0, 0},
		Positions:    positions(4),
	}
	res := NewResolver(f.idx, Options{MaxInstances: 3}).BuildPointInstances(context.Background(), "/Trees", f.instancer, sample)
	assert.Equal(t, 3, res.Realized)
	assert.True(t, res.Capped)
	assert.False(t, f.idx.HasErrors())
}

func TestBuildPointInstancesReplacesStaleClones(t *testing.T) {
	f := newFixture(t, "A")
	stale := f.instancer.NewChild("A_0")
	sample := &stage.PointInstancerSample{
		Prototypes:   []sdfpath.Path{"/Trees/Protos/A"},
		ProtoIndices: []int{0},
		Positions:    positions(1),
	}
	NewResolver(f.idx, Options{}).BuildPointInstances(context.Background(), "/Trees", f.instancer, sample)
	got := clones(f.instancer)
	require.Len(t, got, 1)
	assert.NotSame(t, stale, got[0])
	assert.Nil(t, stale.Parent())
}

func TestBuildSceneInstances(t *testing.T) {
	idx := pathindex.New()
	root := scenegraph.NewNode("scene")
	require.NoError(t, idx.Put(sdfpath.Root, root))
	master := root.NewChild("LampMaster")
	master.SetActive(false)
	require.NoError(t, idx.AddMasterRoot("/LampMaster", master))
	bulb := master.NewChild("Bulb")
	bulb.Attach(&scenegraph.Mesh{})
	require.NoError(t, idx.Put("/LampMaster/Bulb", bulb))
	require.NoError(t, idx.Put("/LampMaster/Bulb/Glow", bulb.NewChild("Glow")))

	for _, p := range []string{"LampA", "LampB"} {
		n := root.NewChild(p)
		path := sdfpath.Root.Append(p)
		require.NoError(t, idx.Put(path, n))
		idx.AddInstanceRoot(path, n, "/LampMaster")
	}

	r := NewResolver(idx, Options{Batching: true})
	r.BuildSceneInstances(context.Background())

	lampA, _ := idx.Lookup("/LampA")
	require.Len(t, lampA.Children(), 1)
	clone := lampA.Children()[0]
	assert.NotSame(t, bulb, clone)
	assert.True(t, clone.ActiveInHierarchy())
	glow, ok := idx.Lookup("/LampB/Bulb/Glow")
	require.True(t, ok)
	assert.Equal(t, "Glow", glow.Name)
	assert.Equal(t, []sdfpath.Path{"/LampA/Bulb", "/LampB/Bulb"}, idx.Instances())

	m, ok := scenegraph.ComponentOf[*scenegraph.Mesh](clone)
	require.True(t, ok)
	assert.True(t, m.Batchable)

	t.Run("second call adds nothing", func(t *testing.T) {
		r.BuildSceneInstances(context.Background())
		assert.Len(t, lampA.Children(), 1)
		assert.Same(t, clone, lampA.Children()[0])
	})

	t.Run("fresh index registers existing clones", func(t *testing.T) {
		fresh := pathindex.New()
		require.NoError(t, fresh.Put(sdfpath.Root, root))
		require.NoError(t, fresh.AddMasterRoot("/LampMaster", master))
		require.NoError(t, fresh.Put("/LampMaster/Bulb", bulb))
		require.NoError(t, fresh.Put("/LampA", lampA))
		fresh.AddInstanceRoot("/LampA", lampA, "/LampMaster")

		NewResolver(fresh, Options{}).BuildSceneInstances(context.Background())
		assert.Len(t, lampA.Children(), 1)
		got, ok := fresh.Lookup("/LampA/Bulb/Glow")
		require.True(t, ok)
		assert.Same(t, clone.Children()[0], got)
		assert.Equal(t, []sdfpath.Path{"/LampA/Bulb"}, fresh.Instances())
	})
}
