package skeleton

import (
	"context"
	"fmt"

	"usd-scene-translator/internal/basis"
	"usd-scene-translator/internal/ctxlog"
	"usd-scene-translator/internal/mathutil"
	"usd-scene-translator/internal/pathindex"
	"usd-scene-translator/internal/sdfpath"
	"usd-scene-translator/internal/stage"
)

// BindTransforms converts each world-space bind pose of skel into the scene
// basis and inverts it. A singular pose is replaced with identity and
// reported in the returned error; the other poses are still valid.
func BindTransforms(skel *stage.SkeletonSample, policy basis.Policy) ([]mathutil.Mat4, error) {
	out := make([]mathutil.Mat4, len(skel.BindTransforms))
	var err error
	for i, m := range skel.BindTransforms {
		inv, ok := basis.ConvertBasis(m, policy).Inverse()
		if !ok {
			inv = mathutil.Mat4Identity()
			if err == nil {
				err = fmt.Errorf("skeleton: bind transform %d is singular", i)
			}
		}
		out[i] = inv
	}
	return out, err
}

// PoseBones applies the rest pose of skel to the joint nodes. joints are the
// resolved joint paths, parallel to the skeleton's joint tokens. Joints that
// cannot be posed are logged and flagged on idx.
func PoseBones(ctx context.Context, idx *pathindex.Index, skelPath sdfpath.Path, joints []sdfpath.Path, skel *stage.SkeletonSample, policy basis.Policy) {
	logger := ctxlog.FromContext(ctx)
	rest := skel.RestTransforms
	if len(rest) != len(joints) {
		logger.Warn("Rest pose count does not match joint count.",
			"skeleton", skelPath, "rest", len(rest), "joints", len(joints))
		rest = rest[:min(len(rest), len(joints))]
	}
	for i, m := range rest {
		node, ok := idx.Lookup(joints[i])
		if !ok {
			logger.Error("Joint not found.", "skeleton", skelPath, "joint", joints[i])
			idx.MarkError()
			continue
		}
		pos, rot, scale, ok := basis.Decompose(basis.ConvertBasis(m, policy))
		if !ok {
			logger.Warn("Cannot decompose rest transform.", "joint", joints[i], "index", i)
			idx.MarkError()
			continue
		}
		node.SetLocalTransform(pos, rot, scale)
	}
}
