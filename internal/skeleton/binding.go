package skeleton

import (
	"context"
	"fmt"
	"slices"

	"usd-scene-translator/internal/basis"
	"usd-scene-translator/internal/ctxlog"
	"usd-scene-translator/internal/mathutil"
	"usd-scene-translator/internal/pathindex"
	"usd-scene-translator/internal/pool"
	"usd-scene-translator/internal/scenegraph"
	"usd-scene-translator/internal/sdfpath"
	"usd-scene-translator/internal/stage"
)

// MaxInfluences is the number of joints that can affect one vertex.
const MaxInfluences = 4

// MalformedSkinError reports skinning data that cannot be unpacked.
type MalformedSkinError struct {
	Reason string
}

func (e *MalformedSkinError) Error() string {
	return "skeleton: malformed skin: " + e.Reason
}

func malformed(format string, args ...any) error {
	return &MalformedSkinError{Reason: fmt.Sprintf(format, args...)}
}

// Unpack expands the joint influences of b into one four-slot record per
// vertex. With constant interpolation every vertex reads the first element.
// Influences past the fourth are dropped, and kept weights summing to less
// than one are renormalized.
func Unpack(b *stage.SkelBindingSample, vertexCount int) ([]scenegraph.BoneWeight, error) {
	es := b.ElementSize
	switch {
	case es <= 0:
		return nil, malformed("element size %d", es)
	case len(b.JointIndices) != len(b.JointWeights):
		return nil, malformed("%d joint indices but %d weights", len(b.JointIndices), len(b.JointWeights))
	case vertexCount < 0:
		return nil, malformed("vertex count %d", vertexCount)
	}
	need := es
	if !b.IsConstant() {
		need = vertexCount * es
	}
	if vertexCount > 0 && len(b.JointIndices) < need {
		return nil, malformed("need %d influences, have %d", need, len(b.JointIndices))
	}

	n := min(es, MaxInfluences)
	out := make([]scenegraph.BoneWeight, vertexCount)
	for v := range out {
		base := 0
		if !b.IsConstant() {
			base = v * es
		}
		bw := &out[v]
		var sum float32
		for s := range n {
			bw.Index[s] = b.JointIndices[base+s]
			bw.Weight[s] = b.JointWeights[base+s]
			sum += bw.Weight[s]
		}
		if sum > 0 && sum < 1 {
			for s := range n {
				bw.Weight[s] /= sum
			}
		}
	}
	return out, nil
}

// Request describes one mesh to bind.
type Request struct {
	MeshPath sdfpath.Path
	SkelPath sdfpath.Path
	// SkelJoints are the skeleton's joint tokens and InverseBinds the
	// matching output of BindTransforms.
	SkelJoints   []string
	InverseBinds []mathutil.Mat4
	Binding      *stage.SkelBindingSample
	VertexCount  int
}

// Binder attaches skin components for one translation pass.
type Binder struct {
	idx    *pathindex.Index
	policy basis.Policy
	paths  *pool.Slices[sdfpath.Path]
}

func NewBinder(idx *pathindex.Index, policy basis.Policy) *Binder {
	return &Binder{idx: idx, policy: policy, paths: pool.NewSlices[sdfpath.Path]()}
}

// Bind builds the skin of the mesh in req and attaches it to the mesh node.
// Joints that do not resolve are logged and left nil in Bones.
func (b *Binder) Bind(ctx context.Context, req Request) (*scenegraph.Skin, error) {
	logger := ctxlog.FromContext(ctx)
	meshNode, err := b.idx.Get(req.MeshPath)
	if err != nil {
		return nil, err
	}

	joints := req.Binding.Joints
	if len(joints) == 0 {
		joints = req.SkelJoints
	}
	if len(joints) == 0 {
		return nil, malformed("%s: no joints on mesh or skeleton", req.MeshPath)
	}

	weights, err := Unpack(req.Binding, req.VertexCount)
	if err != nil {
		return nil, fmt.Errorf("skeleton: bind %s: %w", req.MeshPath, err)
	}

	if dropped := dropOutOfRange(weights, len(joints)); dropped > 0 {
		logger.Warn("Skin influences reference joints out of range; dropped.",
			"mesh", req.MeshPath, "influences", dropped, "joints", len(joints))
		b.idx.MarkError()
	}

	skin := &scenegraph.Skin{
		Bones:     make([]*scenegraph.Node, len(joints)),
		BindPoses: b.bindPoses(ctx, req, joints),
		Weights:   weights,
	}
	skin.RootBone, _ = b.idx.Lookup(req.SkelPath)

	paths := b.paths.Acquire(len(joints))
	defer b.paths.Release(paths)
	for _, j := range joints {
		paths = append(paths, resolveJoint(ctx, req.SkelPath, j))
	}
	for i, p := range paths {
		node, ok := b.idx.Lookup(p)
		if !ok {
			logger.Error("Joint not found.", "mesh", req.MeshPath, "joint", joints[i])
			b.idx.MarkError()
			continue
		}
		skin.Bones[i] = node
	}

	meshNode.Attach(skin)
	return skin, nil
}

// dropOutOfRange zeroes influences whose joint index is outside
// [0, jointCount) and renormalizes what remains of each affected vertex.
// It returns the number of influences dropped.
func dropOutOfRange(weights []scenegraph.BoneWeight, jointCount int) int {
	dropped := 0
	for v := range weights {
		bw := &weights[v]
		hit := false
		for s := range MaxInfluences {
			if bw.Index[s] >= 0 && bw.Index[s] < jointCount {
				continue
			}
			if bw.Weight[s] != 0 || bw.Index[s] != 0 {
				dropped++
				hit = true
			}
			bw.Index[s], bw.Weight[s] = 0, 0
		}
		if !hit {
			continue
		}
		var sum float32
		for s := range MaxInfluences {
			sum += bw.Weight[s]
		}
		if sum > 0 {
			for s := range MaxInfluences {
				bw.Weight[s] /= sum
			}
		}
	}
	return dropped
}

// bindPoses returns the inverse bind pose for each mesh joint. A mesh that
// uses a subset or reordering of the skeleton's joints gets its poses
// remapped by joint name.
func (b *Binder) bindPoses(ctx context.Context, req Request, joints []string) []mathutil.Mat4 {
	var poses []mathutil.Mat4
	if slices.Equal(joints, req.SkelJoints) {
		poses = slices.Clone(req.InverseBinds)
	} else {
		byName := make(map[string]mathutil.Mat4, len(req.SkelJoints))
		for i, j := range req.SkelJoints {
			if i < len(req.InverseBinds) {
				byName[j] = req.InverseBinds[i]
			}
		}
		poses = make([]mathutil.Mat4, len(joints))
		for i, j := range joints {
			m, ok := byName[j]
			if !ok {
				ctxlog.FromContext(ctx).Warn("Mesh joint is not a skeleton joint; using identity bind pose.",
					"mesh", req.MeshPath, "joint", j)
				m = mathutil.Mat4Identity()
			}
			poses[i] = m
		}
	}

	geom := req.Binding.GeomBind()
	if !geom.ApproxEqual(mathutil.Mat4Identity(), mathutil.Epsilon) {
		geom = basis.ConvertBasis(geom, b.policy)
		for i := range poses {
			poses[i] = mathutil.Mat4Mul(poses[i], geom)
		}
	}
	return poses
}
