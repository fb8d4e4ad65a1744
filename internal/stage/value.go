package stage

import (
	"fmt"
	"math"
	"slices"

	"usd-scene-translator/internal/mathutil"
	"usd-scene-translator/internal/sdfpath"
)

// TypeOf returns the ValueType of a Go value, or Invalid when the value has
// no attribute representation.
func TypeOf(v any) ValueType {
	switch v.(type) {
	case bool:
		return Bool
	case int:
		return Int
	case float64:
		return Float
	case string:
		return Token
	case mathutil.Vec3:
		return Vec3
	case mathutil.Quat:
		return Quat
	case mathutil.Mat4:
		return Matrix4
	case sdfpath.Path:
		return PathValue
	case []int:
		return IntArray
	case []float32:
		return FloatArray
	case [][2]float32:
		return Vec2Array
	case []mathutil.Vec3:
		return Vec3Array
	case []mathutil.Quat:
		return QuatArray
	case []mathutil.Mat4:
		return Matrix4Array
	case []string:
		return TokenArray
	case []sdfpath.Path:
		return PathArray
	}
	return Invalid
}

// Field binds an attribute name to the sample member it is read into.
type Field struct {
	Name string
	Ptr  any
}

// FieldType returns the ValueType a field pointer holds.
func FieldType(ptr any) ValueType {
	switch ptr.(type) {
	case *bool:
		return Bool
	case *int:
		return Int
	case *float64:
		return Float
	case *string:
		return Token
	case *mathutil.Vec3:
		return Vec3
	case *mathutil.Quat:
		return Quat
	case *mathutil.Mat4:
		return Matrix4
	case *sdfpath.Path:
		return PathValue
	case *[]int:
		return IntArray
	case *[]float32:
		return FloatArray
	case *[][2]float32:
		return Vec2Array
	case *[]mathutil.Vec3:
		return Vec3Array
	case *[]mathutil.Quat:
		return QuatArray
	case *[]mathutil.Mat4:
		return Matrix4Array
	case *[]string:
		return TokenArray
	case *[]sdfpath.Path:
		return PathArray
	}
	return Invalid
}

func set[T any](dst *T, v any) bool {
	x, ok := v.(T)
	if ok {
		*dst = x
	}
	return ok
}

// Assign stores v into the field pointer. Slices are copied.
func Assign(ptr, v any) error {
	ok := false
	switch p := ptr.(type) {
	case *bool:
		ok = set(p, v)
	case *int:
		ok = set(p, v)
	case *float64:
		ok = set(p, v)
	case *string:
		ok = set(p, v)
	case *mathutil.Vec3:
		ok = set(p, v)
	case *mathutil.Quat:
		ok = set(p, v)
	case *mathutil.Mat4:
		ok = set(p, v)
	case *sdfpath.Path:
		ok = set(p, v)
	case *[]int:
		ok = set(p, v)
		*p = slices.Clone(*p)
	case *[]float32:
		ok = set(p, v)
		*p = slices.Clone(*p)
	case *[][2]float32:
		ok = set(p, v)
		*p = slices.Clone(*p)
	case *[]mathutil.Vec3:
		ok = set(p, v)
		*p = slices.Clone(*p)
	case *[]mathutil.Quat:
		ok = set(p, v)
		*p = slices.Clone(*p)
	case *[]mathutil.Mat4:
		ok = set(p, v)
		*p = slices.Clone(*p)
	case *[]string:
		ok = set(p, v)
		*p = slices.Clone(*p)
	case *[]sdfpath.Path:
		ok = set(p, v)
		*p = slices.Clone(*p)
	}
	if !ok {
		return fmt.Errorf("stage: cannot assign %T to %T", v, ptr)
	}
	return nil
}

// Load returns the value a field pointer currently holds and whether it is
// worth writing: nil slices, empty tokens, empty paths, zero counts and zero
// matrices are not.
func Load(ptr any) (any, bool) {
	switch p := ptr.(type) {
	case *bool:
		return *p, true
	case *int:
		return *p, *p != 0
	case *float64:
		return *p, true
	case *string:
		return *p, *p != ""
	case *mathutil.Vec3:
		return *p, true
	case *mathutil.Quat:
		return *p, true
	case *mathutil.Mat4:
		return *p, *p != mathutil.Mat4{}
	case *sdfpath.Path:
		return *p, !p.IsEmpty()
	case *[]int:
		return slices.Clone(*p), *p != nil
	case *[]float32:
		return slices.Clone(*p), *p != nil
	case *[][2]float32:
		return slices.Clone(*p), *p != nil
	case *[]mathutil.Vec3:
		return slices.Clone(*p), *p != nil
	case *[]mathutil.Quat:
		return slices.Clone(*p), *p != nil
	case *[]mathutil.Mat4:
		return slices.Clone(*p), *p != nil
	case *[]string:
		return slices.Clone(*p), *p != nil
	case *[]sdfpath.Path:
		return slices.Clone(*p), *p != nil
	}
	return nil, false
}

// Interpolation selects how values between time samples are computed.
type Interpolation int

const (
	// Held uses the value of the nearest earlier sample.
	Held Interpolation = iota
	// Linear blends the two bracketing samples for numeric types.
	Linear
)

func (i Interpolation) String() string {
	if i == Linear {
		return "linear"
	}
	return "held"
}

// ParseInterpolation accepts "held" or "linear"; the empty string is held.
func ParseInterpolation(s string) (Interpolation, error) {
	switch s {
	case "", "held":
		return Held, nil
	case "linear":
		return Linear, nil
	}
	return Held, fmt.Errorf("stage: unknown interpolation %q", s)
}

// lerp blends a and b. Types that cannot be blended, and arrays whose
// lengths differ, hold a.
func lerp(a, b any, t float64) any {
	switch av := a.(type) {
	case float64:
		bv := b.(float64)
		return av + (bv-av)*t
	case mathutil.Vec3:
		return lerpVec3(av, b.(mathutil.Vec3), t)
	case mathutil.Quat:
		return nlerp(av, b.(mathutil.Quat), t)
	case mathutil.Mat4:
		bv := b.(mathutil.Mat4)
		var m mathutil.Mat4
		for i := range m {
			m[i] = av[i] + (bv[i]-av[i])*t
		}
		return m
	case []mathutil.Vec3:
		bv := b.([]mathutil.Vec3)
		if len(av) != len(bv) {
			return a
		}
		out := make([]mathutil.Vec3, len(av))
		for i := range av {
			out[i] = lerpVec3(av[i], bv[i], t)
		}
		return out
	case []float32:
		bv := b.([]float32)
		if len(av) != len(bv) {
			return a
		}
		out := make([]float32, len(av))
		for i := range av {
			out[i] = av[i] + (bv[i]-av[i])*float32(t)
		}
		return out
	}
	return a
}

func lerpVec3(a, b mathutil.Vec3, t float64) mathutil.Vec3 {
	return a.Add(b.Sub(a).Scale(t))
}

func nlerp(a, b mathutil.Quat, t float64) mathutil.Quat {
	if a[0]*b[0]+a[1]*b[1]+a[2]*b[2]+a[3]*b[3] < 0 {
		b = mathutil.Quat{-b[0], -b[1], -b[2], -b[3]}
	}
	return mathutil.Quat{
		a[0] + (b[0]-a[0])*t,
		a[1] + (b[1]-a[1])*t,
		a[2] + (b[2]-a[2])*t,
		a[3] + (b[3]-a[3])*t,
	}.Normalize()
}

// TimeCode selects a time sample. The default time code reads default values.
type TimeCode float64

// DefaultTime returns the time code that selects default values.
func DefaultTime() TimeCode { return TimeCode(math.NaN()) }

func (t TimeCode) IsDefault() bool { return math.IsNaN(float64(t)) }
