// Package skeleton binds skinned meshes to joint nodes and poses skeletons.
package skeleton

import (
	"context"
	"strings"

	"usd-scene-translator/internal/ctxlog"
	"usd-scene-translator/internal/sdfpath"
)

// ResolveJointPaths turns joint tokens into absolute paths below skelPath.
// The token "/" names the skeleton itself. Absolute tokens are not expected;
// they are logged and re-rooted under the skeleton.
func ResolveJointPaths(ctx context.Context, skelPath sdfpath.Path, joints []string) []sdfpath.Path {
	out := make([]sdfpath.Path, len(joints))
	for i, j := range joints {
		out[i] = resolveJoint(ctx, skelPath, j)
	}
	return out
}

func resolveJoint(ctx context.Context, skelPath sdfpath.Path, joint string) sdfpath.Path {
	switch {
	case joint == "/":
		return skelPath
	case strings.HasPrefix(joint, "/"):
		ctxlog.FromContext(ctx).Warn("Unexpected absolute joint path; re-rooting under skeleton.",
			"skeleton", skelPath, "joint", joint)
		return skelPath.AppendPath(sdfpath.Path(strings.TrimLeft(joint, "/")))
	default:
		return skelPath.AppendPath(sdfpath.Path(joint))
	}
}
