package mathutil

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMat4Inverse(t *testing.T) {
	m := Mat4Mul(Mat4Translation(Vec3{1, -2, 3}), FromMat3Translation(Mat3Mul(QuatToMat3(QuatAxisAngle(Vec3{0, 1, 0}, 0.4)), Mat3Diag(2, 3, 4)), Vec3{}))

	inv, ok := m.Inverse()
	require.True(t, ok)
	assert.True(t, Mat4Mul(m, inv).IsIdentity())
	assert.True(t, Mat4Mul(inv, m).IsIdentity())

	_, ok = Mat4Diag(1, 0, 1, 1).Inverse()
	assert.False(t, ok)
}

func TestMat4Det(t *testing.T) {
	assert.InDelta(t, 24.0, Mat4Diag(2, 3, 4, 1).Det(), 1e-12)
	assert.InDelta(t, -1.0, FlipZ.Det(), 1e-12)
}

func TestQuatFromMat3RoundTrip(t *testing.T) {
	cases := []struct {
		name string
		q    Quat
	}{
		{"identity", QuatIdentity()},
		{"x90", QuatAxisAngle(Vec3{1, 0, 0}, math.Pi/2)},
		{"y180", QuatAxisAngle(Vec3{0, 1, 0}, math.Pi)},
		{"z-135", QuatAxisAngle(Vec3{0, 0, 1}, -3*math.Pi/4)},
		{"oblique", QuatAxisAngle(Vec3{1, 2, 3}, 2.5)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := QuatFromMat3(QuatToMat3(tc.q))
			assert.True(t, got.SameRotation(tc.q, 1e-9), "got %v want %v", got, tc.q)
		})
	}
}

func TestQuatMulComposesRotations(t *testing.T) {
	a := QuatAxisAngle(Vec3{0, 1, 0}, 0.3)
	b := QuatAxisAngle(Vec3{1, 0, 0}, 1.1)
	v := Vec3{0.5, -1, 2}

	want := a.Rotate(b.Rotate(v))
	got := a.Mul(b).Rotate(v)
	assert.True(t, got.ApproxEqual(want, 1e-9), "got %v want %v", got, want)
}
