package basis

import (
	"math"
	"slices"

	"usd-scene-translator/internal/mathutil"
)

// Decompose splits an affine matrix into position, rotation and scale.
//
// Position is the translation column and scale the lengths of the three basis
// columns. Rotation is the look rotation built from the normalized forward
// (third column) and up (second column) vectors, so shear is discarded.
// ok is false when the matrix has a zero basis column, a degenerate forward/up
// pair or a zero homogeneous component.
func Decompose(m mathutil.Mat4) (pos mathutil.Vec3, rot mathutil.Quat, scale mathutil.Vec3, ok bool) {
	if m[15] == 0 {
		return pos, mathutil.QuatIdentity(), scale, false
	}
	pos = m.Translation()

	x, y, z := m.Column(0), m.Column(1), m.Column(2)
	scale = mathutil.Vec3{x.Len(), y.Len(), z.Len()}
	if scale[0] < 1e-12 || scale[1] < 1e-12 || scale[2] < 1e-12 {
		return pos, mathutil.QuatIdentity(), scale, false
	}

	rot, ok = LookRotation(z, y)
	return pos, rot, scale, ok
}

// LookRotation returns the rotation that maps +Z to forward and keeps +Y as
// close to up as possible.
func LookRotation(forward, up mathutil.Vec3) (mathutil.Quat, bool) {
	f, u0 := forward.Normalize(), up.Normalize()
	if f == (mathutil.Vec3{}) || u0 == (mathutil.Vec3{}) || math.Abs(f.Dot(u0)) > 1-1e-12 {
		return mathutil.QuatIdentity(), false
	}
	right := u0.Cross(f).Normalize()
	u := f.Cross(right)
	return mathutil.QuatFromMat3(mathutil.Mat3FromColumns(right, u, f)).Normalize(), true
}

// Compose builds the matrix translation × rotation × scale.
func Compose(pos mathutil.Vec3, rot mathutil.Quat, scale mathutil.Vec3) mathutil.Mat4 {
	return mathutil.Mat4FromTRS(pos, rot, scale)
}

// ConvertBasis maps a matrix from the source frame into the scene frame.
// The conversion is its own inverse, so it also maps scene matrices back.
func ConvertBasis(m mathutil.Mat4, p Policy) mathutil.Mat4 {
	switch p {
	case Exact:
		return mathutil.Mat4Mul(mathutil.Mat4Mul(mathutil.FlipZ, m), mathutil.FlipZ)
	case ExactMirrorX:
		return mathutil.Mat4Mul(mathutil.Mat4Mul(mathutil.FlipX, m), mathutil.FlipX)
	default:
		return m
	}
}

// ConvertPoint mirrors a point or direction for the exact policies.
func ConvertPoint(v mathutil.Vec3, p Policy) mathutil.Vec3 {
	switch p {
	case Exact:
		return mathutil.Vec3{v[0], v[1], -v[2]}
	case ExactMirrorX:
		return mathutil.Vec3{-v[0], v[1], v[2]}
	default:
		return v
	}
}

// ConvertPoints returns a converted copy of pts.
func ConvertPoints(pts []mathutil.Vec3, p Policy) []mathutil.Vec3 {
	if pts == nil {
		return nil
	}
	out := make([]mathutil.Vec3, len(pts))
	for i, v := range pts {
		out[i] = ConvertPoint(v, p)
	}
	return out
}

// FlipWinding reverses the vertex order of every triangle when the policy
// mirrors geometry. A trailing partial triangle is left as is.
func FlipWinding(indices []int, p Policy) []int {
	out := slices.Clone(indices)
	if !p.FlipsHandedness() {
		return out
	}
	for i := 0; i+2 < len(out); i += 3 {
		out[i+1], out[i+2] = out[i+2], out[i+1]
	}
	return out
}

// UpAxisRotation is the rotation that brings the stage's up axis to +Y.
// Under Fast the mirror is applied on the root before rotating, which flips the angle.
func UpAxisRotation(axis UpAxis, p Policy) mathutil.Quat {
	if axis != ZUp {
		return mathutil.QuatIdentity()
	}
	angle := math.Pi / 2
	if p == Fast {
		angle = -angle
	}
	return mathutil.QuatAxisAngle(mathutil.Vec3{1, 0, 0}, angle)
}

// RootCorrection returns the rotation and scale applied to the translation
// root node: up-axis correction, the Fast-policy mirror and a uniform scale.
func RootCorrection(axis UpAxis, p Policy, uniform float64) (mathutil.Quat, mathutil.Vec3) {
	rot := UpAxisRotation(axis, p)
	scale := mathutil.Vec3One
	if p == Fast {
		if axis == ZUp {
			scale = mathutil.Vec3{1, -1, 1}
		} else {
			scale = mathutil.Vec3{1, 1, -1}
		}
	}
	if uniform > 0 && math.Abs(uniform-1) > 1e-4 {
		scale = scale.Scale(uniform)
	}
	return rot, scale
}
