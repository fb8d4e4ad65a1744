package basis

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"usd-scene-translator/internal/mathutil"
)

func randomTRS(r *rand.Rand) (mathutil.Vec3, mathutil.Quat, mathutil.Vec3) {
	pos := mathutil.Vec3{r.Float64()*200 - 100, r.Float64()*200 - 100, r.Float64()*200 - 100}
	axis := mathutil.Vec3{r.Float64() - 0.5, r.Float64() - 0.5, r.Float64() - 0.5}
	if axis.Len() < 1e-3 {
		axis = mathutil.Vec3{0, 1, 0}
	}
	rot := mathutil.QuatAxisAngle(axis, r.Float64()*2*math.Pi)
	scale := mathutil.Vec3{0.1 + r.Float64()*5, 0.1 + r.Float64()*5, 0.1 + r.Float64()*5}
	return pos, rot, scale
}

func TestDecomposeComposeRoundTrip(t *testing.T) {
	r := rand.New(rand.NewPCG(7, 11))
	for i := 0; i < 500; i++ {
		pos, rot, scale := randomTRS(r)

		gotPos, gotRot, gotScale, ok := Decompose(Compose(pos, rot, scale))
		require.True(t, ok)
		assert.True(t, gotPos.ApproxEqual(pos, 1e-9), "position %v != %v", gotPos, pos)
		assert.True(t, gotScale.ApproxEqual(scale, 1e-9), "scale %v != %v", gotScale, scale)
		assert.True(t, gotRot.SameRotation(rot, 1e-9), "rotation %v != %v", gotRot, rot)
	}
}

func TestDecomposeRejectsSingular(t *testing.T) {
	tests := []struct {
		name string
		m    mathutil.Mat4
	}{
		{"zero scale column", mathutil.Mat4Diag(1, 0, 1, 1)},
		{"zero w", mathutil.Mat4Diag(1, 1, 1, 0)},
		{"forward parallel to up", mathutil.Mat4{
			1, 0, 0, 0,
			0, 1, 1, 0,
			0, 0, 0, 0,
			0, 0, 0, 1,
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, _, ok := Decompose(tt.m)
			assert.False(t, ok)
		})
	}
}

func TestLookRotation(t *testing.T) {
	tests := []struct {
		name        string
		forward, up mathutil.Vec3
		ok          bool
	}{
		{"identity", mathutil.Vec3{0, 0, 1}, mathutil.Vec3{0, 1, 0}, true},
		{"skewed up", mathutil.Vec3{0, 0, 2}, mathutil.Vec3{0, 1, 1}, true},
		{"parallel", mathutil.Vec3{0, 3, 0}, mathutil.Vec3{0, 1, 0}, false},
		{"antiparallel", mathutil.Vec3{0, -1, 0}, mathutil.Vec3{0, 1, 0}, false},
		{"zero forward", mathutil.Vec3{}, mathutil.Vec3{0, 1, 0}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, ok := LookRotation(tt.forward, tt.up)
			assert.Equal(t, tt.ok, ok)
			if !ok {
				assert.Equal(t, mathutil.QuatIdentity(), q)
				return
			}
			got := q.Rotate(mathutil.Vec3{0, 0, 1})
			assert.True(t, got.ApproxEqual(tt.forward.Normalize(), 1e-9), "forward %v", got)
			assert.InDelta(t, 0, q.Rotate(mathutil.Vec3{1, 0, 0}).Dot(tt.up), 1e-9)
		})
	}
}

func TestConvertBasisExact(t *testing.T) {
	m := mathutil.Mat4Translation(mathutil.Vec3{1, 2, 3})
	got := ConvertBasis(m, Exact)
	assert.Equal(t, mathutil.Vec3{1, 2, -3}, got.Translation())
	assert.True(t, ConvertBasis(got, Exact).ApproxEqual(m, 1e-12))

	assert.Equal(t, m, ConvertBasis(m, None))
	assert.Equal(t, m, ConvertBasis(m, Fast))
	assert.Equal(t, mathutil.Vec3{-1, 2, 3}, ConvertBasis(m, ExactMirrorX).Translation())
}

func TestConvertBasisAgreesWithConvertPoint(t *testing.T) {
	r := rand.New(rand.NewPCG(3, 5))
	for _, p := range []Policy{Exact, ExactMirrorX} {
		t.Run(p.String(), func(t *testing.T) {
			for i := 0; i < 50; i++ {
				m := Compose(randomTRS(r))
				v := mathutil.Vec3{r.Float64(), r.Float64(), r.Float64()}

				want := ConvertPoint(m.MulPoint(v), p)
				got := ConvertBasis(m, p).MulPoint(ConvertPoint(v, p))
				assert.True(t, got.ApproxEqual(want, 1e-9))
			}
		})
	}
}

func TestFlipWinding(t *testing.T) {
	in := []int{0, 1, 2, 3, 4, 5}
	assert.Equal(t, []int{0, 2, 1, 3, 5, 4}, FlipWinding(in, Exact))
	assert.Equal(t, in, FlipWinding(in, Fast))
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, in)
}

func TestUpAxisRotation(t *testing.T) {
	assert.Equal(t, mathutil.QuatIdentity(), UpAxisRotation(YUp, Exact))

	// Z-up content mirrored on Z has its up vector at -Z.
	up := UpAxisRotation(ZUp, Exact).Rotate(mathutil.Vec3{0, 0, -1})
	assert.True(t, up.ApproxEqual(mathutil.Vec3{0, 1, 0}, 1e-12), "got %v", up)
}

func TestRootCorrection(t *testing.T) {
	tests := []struct {
		name    string
		axis    UpAxis
		policy  Policy
		uniform float64
		scale   mathutil.Vec3
	}{
		{"exact y", YUp, Exact, 1, mathutil.Vec3{1, 1, 1}},
		{"fast y", YUp, Fast, 1, mathutil.Vec3{1, 1, -1}},
		{"fast z", ZUp, Fast, 1, mathutil.Vec3{1, -1, 1}},
		{"uniform", YUp, None, 0.01, mathutil.Vec3{0.01, 0.01, 0.01}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, scale := RootCorrection(tt.axis, tt.policy, tt.uniform)
			assert.True(t, scale.ApproxEqual(tt.scale, 1e-12), "got %v", scale)
		})
	}

	// Fast: mirror then rotate must still bring +Z up to +Y.
	rot, scale := RootCorrection(ZUp, Fast, 1)
	up := rot.Rotate(mathutil.Vec3{0, 0, 1}.Mul(scale))
	assert.True(t, up.ApproxEqual(mathutil.Vec3{0, 1, 0}, 1e-12), "got %v", up)
}

func TestPolicyText(t *testing.T) {
	for _, p := range []Policy{None, Exact, ExactMirrorX, Fast} {
		b, err := p.MarshalText()
		require.NoError(t, err)
		var got Policy
		require.NoError(t, got.UnmarshalText(b))
		assert.Equal(t, p, got)
	}

	var p Policy
	assert.Error(t, p.UnmarshalText([]byte("slow")))

	var a UpAxis
	require.NoError(t, a.UnmarshalText([]byte("z")))
	assert.Equal(t, ZUp, a)
}
