package hclstage

import (
	"bytes"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"usd-scene-translator/internal/basis"
	"usd-scene-translator/internal/mathutil"
	"usd-scene-translator/internal/sdfpath"
	"usd-scene-translator/internal/stage"
)

const sceneHCL = `
stage {
  up_axis       = "Z"
  interpolation = "linear"
}

master "Xform" "__Master_1" {
  prim "Mesh" "Leaf" {
    attributes = {
      "points"            = [[0, 0, 0], [1, 0, 0], [0, 1, 0]]
      "faceVertexCounts"  = [3]
      "faceVertexIndices" = [0, 1, 2]
    }
  }
}

prim "Xform" "World" {
  attributes = {
    "xformOp:transform" = [1, 0, 0, 5, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1]
    "kind"              = "assembly"
    "custom:weight"     = 2.5
  }

  sample "xformOp:transform" {
    time  = 0
    value = [1, 0, 0, 5, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1]
  }

  sample "xformOp:transform" {
    time  = 10
    value = [1, 0, 0, 15, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1]
  }

  prim "Xform" "Tree" {
    instance = "/__Master_1"
  }

  prim "PointInstancer" "Forest" {
    attributes = {
      "prototypes"   = ["/World/Tree"]
      "protoIndices" = [0, 0]
      "positions"    = [[1, 0, 0], [2, 0, 0]]
    }
  }
}
`

func TestParse(t *testing.T) {
	m, err := Parse([]byte(sceneHCL), "scene.hcl")
	require.NoError(t, err)

	assert.Equal(t, basis.ZUp, m.UpAxis())
	assert.Equal(t, stage.Linear, m.Interpolation())
	assert.Equal(t, []sdfpath.Path{"/__Master_1"}, m.Masters())
	assert.Equal(t,
		[]sdfpath.Path{"/World", "/World/Tree", "/World/Forest"},
		slices.Collect(m.AllPaths(sdfpath.Root)))

	var prim stage.PrimSample
	require.NoError(t, m.Read("/World/Tree", &prim))
	assert.Equal(t, sdfpath.Path("/__Master_1"), prim.Master)

	var leaf stage.MeshSample
	require.NoError(t, m.Read("/__Master_1/Leaf", &leaf))
	assert.Equal(t, []mathutil.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}, leaf.Points)

	var pi stage.PointInstancerSample
	require.NoError(t, m.Read("/World/Forest", &pi))
	assert.Equal(t, []sdfpath.Path{"/World/Tree"}, pi.Prototypes)
	assert.Equal(t, []int{0, 0}, pi.ProtoIndices)

	v, ok := m.Attr("/World", "custom:weight")
	require.True(t, ok)
	assert.Equal(t, 2.5, v)
}

func TestParseTimeSamples(t *testing.T) {
	m, err := Parse([]byte(sceneHCL), "scene.hcl")
	require.NoError(t, err)

	m.SetTime(5)
	var x stage.XformSample
	require.NoError(t, m.Read("/World", &x))
	assert.InDelta(t, 10.0, x.Transform.Translation()[0], 1e-9)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"syntax", `prim "Xform" {`, "parse"},
		{"bad name", `prim "Xform" "1bad" {}`, "invalid prim name"},
		{"bad up axis", `stage { up_axis = "X" }`, "invalid up axis"},
		{"wrong arity", `prim "Xform" "A" { attributes = { "xformOp:transform" = [1, 2] } }`, "want 16 numbers"},
		{"undeclared list", `prim "Xform" "A" { attributes = { "custom:list" = [1, 2] } }`, "scalar"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.src), "bad.hcl")
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestRoundTrip(t *testing.T) {
	m, err := Parse([]byte(sceneHCL), "scene.hcl")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Format{}.Encode(&buf, m))

	again, err := Format{}.Decode(&buf)
	require.NoError(t, err)

	assert.Equal(t, slices.Collect(m.AllPaths(sdfpath.Root)), slices.Collect(again.AllPaths(sdfpath.Root)))
	assert.Equal(t, m.Masters(), again.Masters())
	assert.Equal(t, m.UpAxis(), again.UpAxis())

	for _, path := range []sdfpath.Path{"/World", "/World/Forest", "/__Master_1/Leaf"} {
		p, _ := m.Prim(path)
		q, ok := again.Prim(path)
		require.True(t, ok, path)
		assert.Equal(t, p.TypeName, q.TypeName)
		assert.Equal(t, p.AttrNames(), q.AttrNames())
	}

	var x stage.XformSample
	again.SetTime(10)
	require.NoError(t, again.Read("/World", &x))
	assert.InDelta(t, 15.0, x.Transform.Translation()[0], 1e-9)
}
