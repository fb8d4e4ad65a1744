package hclstage

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"

	"usd-scene-translator/internal/mathutil"
	"usd-scene-translator/internal/sdfpath"
	"usd-scene-translator/internal/stage"
)

var (
	numberList     = cty.List(cty.Number)
	numberListList = cty.List(cty.List(cty.Number))
	stringList     = cty.List(cty.String)
)

// decodeAs converts v to ty and then into the Go value at target.
func decodeAs(v cty.Value, ty cty.Type, target any) error {
	cv, err := convert.Convert(v, ty)
	if err != nil {
		return err
	}
	return gocty.FromCtyValue(cv, target)
}

func scalar[T any](v cty.Value, ty cty.Type) (any, error) {
	var out T
	if err := decodeAs(v, ty, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func fixed(v cty.Value, n int) ([]float64, error) {
	var nums []float64
	if err := decodeAs(v, numberList, &nums); err != nil {
		return nil, err
	}
	if len(nums) != n {
		return nil, fmt.Errorf("want %d numbers, got %d", n, len(nums))
	}
	return nums, nil
}

func fixedRows(v cty.Value, n int) ([][]float64, error) {
	var rows [][]float64
	if err := decodeAs(v, numberListList, &rows); err != nil {
		return nil, err
	}
	for i, r := range rows {
		if len(r) != n {
			return nil, fmt.Errorf("element %d: want %d numbers, got %d", i, n, len(r))
		}
	}
	return rows, nil
}

func toVec3(f []float64) mathutil.Vec3 { return mathutil.Vec3{f[0], f[1], f[2]} }

func toQuat(f []float64) mathutil.Quat { return mathutil.Quat{f[0], f[1], f[2], f[3]} }

func toMat4(f []float64) mathutil.Mat4 {
	var m mathutil.Mat4
	copy(m[:], f)
	return m
}

// decodeValue converts an HCL value into the Go representation of vt.
func decodeValue(vt stage.ValueType, v cty.Value) (any, error) {
	switch vt {
	case stage.Bool:
		return scalar[bool](v, cty.Bool)
	case stage.Int:
		return scalar[int](v, cty.Number)
	case stage.Float:
		return scalar[float64](v, cty.Number)
	case stage.Token:
		return scalar[string](v, cty.String)
	case stage.PathValue:
		var s string
		if err := decodeAs(v, cty.String, &s); err != nil {
			return nil, err
		}
		return sdfpath.Parse(s)
	case stage.Vec3:
		f, err := fixed(v, 3)
		if err != nil {
			return nil, err
		}
		return toVec3(f), nil
	case stage.Quat:
		f, err := fixed(v, 4)
		if err != nil {
			return nil, err
		}
		return toQuat(f), nil
	case stage.Matrix4:
		f, err := fixed(v, 16)
		if err != nil {
			return nil, err
		}
		return toMat4(f), nil
	case stage.IntArray:
		return scalar[[]int](v, numberList)
	case stage.FloatArray:
		var f []float64
		if err := decodeAs(v, numberList, &f); err != nil {
			return nil, err
		}
		out := make([]float32, len(f))
		for i, x := range f {
			out[i] = float32(x)
		}
		return out, nil
	case stage.Vec2Array:
		rows, err := fixedRows(v, 2)
		if err != nil {
			return nil, err
		}
		out := make([][2]float32, len(rows))
		for i, r := range rows {
			out[i] = [2]float32{float32(r[0]), float32(r[1])}
		}
		return out, nil
	case stage.Vec3Array:
		rows, err := fixedRows(v, 3)
		if err != nil {
			return nil, err
		}
		out := make([]mathutil.Vec3, len(rows))
		for i, r := range rows {
			out[i] = toVec3(r)
		}
		return out, nil
	case stage.QuatArray:
		rows, err := fixedRows(v, 4)
		if err != nil {
			return nil, err
		}
		out := make([]mathutil.Quat, len(rows))
		for i, r := range rows {
			out[i] = toQuat(r)
		}
		return out, nil
	case stage.Matrix4Array:
		rows, err := fixedRows(v, 16)
		if err != nil {
			return nil, err
		}
		out := make([]mathutil.Mat4, len(rows))
		for i, r := range rows {
			out[i] = toMat4(r)
		}
		return out, nil
	case stage.TokenArray:
		return scalar[[]string](v, stringList)
	case stage.PathArray:
		var strs []string
		if err := decodeAs(v, stringList, &strs); err != nil {
			return nil, err
		}
		out := make([]sdfpath.Path, len(strs))
		for i, s := range strs {
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

// inferType picks a type for attributes the schema table does not declare.
// Only scalars can be inferred.
func inferType(v cty.Value) (stage.ValueType, error) {
	switch ty := v.Type(); {
	case ty.Equals(cty.Bool):
		return stage.Bool, nil
	case ty.Equals(cty.Number):
		return stage.Float, nil
	case ty.Equals(cty.String):
		return stage.Token, nil
	}
	return stage.Invalid, fmt.Errorf("undeclared attribute needs a scalar value, got %s", v.Type().FriendlyName())
}

func numbers(f ...float64) cty.Value {
	if len(f) == 0 {
		return cty.ListValEmpty(cty.Number)
	}
	vals := make([]cty.Value, len(f))
	for i, x := range f {
		vals[i] = cty.NumberFloatVal(x)
	}
	return cty.ListVal(vals)
}

func rows[T any](items []T, row func(T) cty.Value, empty cty.Type) cty.Value {
	if len(items) == 0 {
		return cty.ListValEmpty(empty)
	}
	vals := make([]cty.Value, len(items))
	for i, it := range items {
		vals[i] = row(it)
	}
	return cty.ListVal(vals)
}

func vec3Value(v mathutil.Vec3) cty.Value { return numbers(v[:]...) }
func quatValue(q mathutil.Quat) cty.Value { return numbers(q[:]...) }
func mat4Value(m mathutil.Mat4) cty.Value { return numbers(m[:]...) }

// encodeValue converts a stage value into its HCL representation.
func encodeValue(v any) (cty.Value, error) {
	switch x := v.(type) {
	case bool:
		return cty.BoolVal(x), nil
	case int:
		return cty.NumberIntVal(int64(x)), nil
	case float64:
		return cty.NumberFloatVal(x), nil
	case string:
		return cty.StringVal(x), nil
	case sdfpath.Path:
		return cty.StringVal(x.String()), nil
	case mathutil.Vec3:
		return vec3Value(x), nil
	case mathutil.Quat:
		return quatValue(x), nil
	case mathutil.Mat4:
		return mat4Value(x), nil
	case []int:
		return rows(x, func(i int) cty.Value { return cty.NumberIntVal(int64(i)) }, cty.Number), nil
	case []float32:
		return rows(x, func(f float32) cty.Value { return cty.NumberFloatVal(float64(f)) }, cty.Number), nil
	case [][2]float32:
		return rows(x, func(f [2]float32) cty.Value { return numbers(float64(f[0]), float64(f[1])) }, numberList), nil
	case []mathutil.Vec3:
		return rows(x, vec3Value, numberList), nil
	case []mathutil.Quat:
		return rows(x, quatValue, numberList), nil
	case []mathutil.Mat4:
		return rows(x, mat4Value, numberList), nil
	case []string:
		return rows(x, cty.StringVal, cty.String), nil
	case []sdfpath.Path:
		return rows(x, func(p sdfpath.Path) cty.Value { return cty.StringVal(p.String()) }, cty.String), nil
	}
	return cty.NilVal, fmt.Errorf("unsupported value %T", v)
}
