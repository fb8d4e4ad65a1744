package snapshot

import (
	"fmt"

	"usd-scene-translator/internal/mathutil"
	"usd-scene-translator/internal/sdfpath"
	"usd-scene-translator/internal/stage"
)

func encodeValue(v any) (value, error) {
	switch x := v.(type) {
	case bool:
		return value{Bool: x}, nil
	case int:
		return value{Ints: []int64{int64(x)}}, nil
	case float64:
		return value{Floats: []float64{x}}, nil
	case string:
		return value{Strings: []string{x}}, nil
	case sdfpath.Path:
		return value{Strings: []string{x.String()}}, nil
	case mathutil.Vec3:
		return value{Floats: x[:]}, nil
	case mathutil.Quat:
		return value{Floats: x[:]}, nil
	case mathutil.Mat4:
		return value{Floats: x[:]}, nil
	case []int:
		out := make([]int64, len(x))
		for i, n := range x {
			out[i] = int64(n)
		}
		return value{Ints: out}, nil
	case []float32:
		out := make([]float64, len(x))
		for i, f := range x {
			out[i] = float64(f)
		}
		return value{Floats: out}, nil
	case [][2]float32:
		out := make([]float64, 0, 2*len(x))
		for _, f := range x {
			out = append(out, float64(f[0]), float64(f[1]))
		}
		return value{Floats: out}, nil
	case []mathutil.Vec3:
		return value{Floats: flatten(x, vec3Floats)}, nil
	case []mathutil.Quat:
		return value{Floats: flatten(x, quatFloats)}, nil
	case []mathutil.Mat4:
		return value{Floats: flatten(x, mat4Floats)}, nil
	case []string:
		return value{Strings: x}, nil
	case []sdfpath.Path:
		out := make([]string, len(x))
		for i, p := range x {
			out[i] = p.String()
		}
		return value{Strings: out}, nil
	}
	return value{}, fmt.Errorf("unsupported value %T", v)
}

func vec3Floats(v *mathutil.Vec3) []float64 { return v[:] }
func quatFloats(q *mathutil.Quat) []float64 { return q[:] }
func mat4Floats(m *mathutil.Mat4) []float64 { return m[:] }

func flatten[T any](items []T, floats func(*T) []float64) []float64 {
	var out []float64
	for i := range items {
		out = append(out, floats(&items[i])...)
	}
	return out
}

// chunk splits f into groups of n, one per element of the result.
func chunk[T any](f []float64, n int, floats func(*T) []float64) ([]T, error) {
	if len(f)%n != 0 {
		return nil, fmt.Errorf("%d floats do not split into groups of %d", len(f), n)
	}
	out := make([]T, len(f)/n)
	for i := range out {
		copy(floats(&out[i]), f[i*n:(i+1)*n])
	}
	return out, nil
}

func one[T any](items []T, what string) (T, error) {
	var zero T
	if len(items) != 1 {
		return zero, fmt.Errorf("want one %s, got %d", what, len(items))
	}
	return items[0], nil
}

func decodeValue(vt stage.ValueType, v value) (any, error) {
	switch vt {
	case stage.Bool:
		return v.Bool, nil
	case stage.Int:
		n, err := one(v.Ints, "int")
		return int(n), err
	case stage.Float:
		return one(v.Floats, "float")
	case stage.Token:
		return one(v.Strings, "string")
	case stage.PathValue:
		s, err := one(v.Strings, "path")
		if err != nil {
			return nil, err
		}
		return sdfpath.Parse(s)
	case stage.Vec3:
		c, err := chunk(v.Floats, 3, vec3Floats)
		if err != nil {
			return nil, err
		}
		return one(c, "float3")
	case stage.Quat:
		c, err := chunk(v.Floats, 4, quatFloats)
		if err != nil {
			return nil, err
		}
		return one(c, "quat")
	case stage.Matrix4:
		c, err := chunk(v.Floats, 16, mat4Floats)
		if err != nil {
			return nil, err
		}
		return one(c, "matrix")
	case stage.IntArray:
		out := make([]int, len(v.Ints))
		for i, n := range v.Ints {
			out[i] = int(n)
		}
		return out, nil
	case stage.FloatArray:
		out := make([]float32, len(v.Floats))
		for i, f := range v.Floats {
			out[i] = float32(f)
		}
		return out, nil
	case stage.Vec2Array:
		if len(v.Floats)%2 != 0 {
			return nil, fmt.Errorf("odd float2 array length %d", len(v.Floats))
		}
		out := make([][2]float32, len(v.Floats)/2)
		for i := range out {
			out[i] = [2]float32{float32(v.Floats[2*i]), float32(v.Floats[2*i+1])}
		}
		return out, nil
	case stage.Vec3Array:
		return chunk(v.Floats, 3, vec3Floats)
	case stage.QuatArray:
		return chunk(v.Floats, 4, quatFloats)
	case stage.Matrix4Array:
		return chunk(v.Floats, 16, mat4Floats)
	case stage.TokenArray:
		return append([]string{}, v.Strings...), nil
	case stage.PathArray:
		out := make([]sdfpath.Path, len(v.Strings))
		for i, s := range v.Strings {
			p, err := sdfpath.Parse(s)
			if err != nil {
				return nil, err
			}
			out[i] = p
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported value type %s", vt)
}
