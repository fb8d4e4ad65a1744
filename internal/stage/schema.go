package stage

import (
	"fmt"
	"strings"
)

// ValueType is the type of an attribute value.
type ValueType int

const (
	Invalid ValueType = iota
	Bool
	Int
	Float
	Token
	Vec3
	Quat
	Matrix4
	PathValue
	IntArray
	FloatArray
	Vec2Array
	Vec3Array
	QuatArray
	Matrix4Array
	TokenArray
	PathArray
)

var valueTypeNames = [...]string{
	"invalid", "bool", "int", "float", "token", "float3", "quat", "matrix4d", "path",
	"int[]", "float[]", "float2[]", "float3[]", "quat[]", "matrix4d[]", "token[]", "path[]",
}

func (t ValueType) String() string {
	if int(t) < len(valueTypeNames) {
		return valueTypeNames[t]
	}
	return fmt.Sprintf("ValueType(%d)", int(t))
}

// ParseValueType is the inverse of String.
func ParseValueType(s string) (ValueType, bool) {
	for i, name := range valueTypeNames {
		if name == s && i != int(Invalid) {
			return ValueType(i), true
		}
	}
	return Invalid, false
}

// AttrSpec describes one attribute a schema declares.
type AttrSpec struct {
	Name      string
	Namespace string
	Type      ValueType
	Required  bool
}

// FullName joins namespace and name with ':'.
func (a AttrSpec) FullName() string {
	if a.Namespace == "" {
		return a.Name
	}
	return a.Namespace + ":" + a.Name
}

// Schema is one entry of the schema table.
type Schema struct {
	Name string
	Base string
	// API schemas apply to prims of any type.
	API   bool
	Attrs []AttrSpec
}

// Schemas is the descriptor table every reader and writer of prim data is driven by.
var Schemas = []Schema{
	{Name: "Prim", Attrs: []AttrSpec{
		{Name: "kind", Type: Token},
		{Name: "visibility", Type: Token},
		{Name: "name", Namespace: "assetInfo", Type: Token},
		{Name: "version", Namespace: "assetInfo", Type: Token},
	}},
	{Name: "Scope", Base: "Prim"},
	{Name: "Xformable", Base: "Prim", Attrs: []AttrSpec{
		{Name: "transform", Namespace: "xformOp", Type: Matrix4},
	}},
	{Name: "Xform", Base: "Xformable"},
	{Name: "Boundable", Base: "Xformable", Attrs: []AttrSpec{
		{Name: "extent", Type: Vec3Array},
	}},
	{Name: "Camera", Base: "Xformable", Attrs: []AttrSpec{
		{Name: "focalLength", Type: Float},
	}},
	{Name: "Mesh", Base: "Boundable", Attrs: []AttrSpec{
		{Name: "points", Type: Vec3Array, Required: true},
		{Name: "faceVertexCounts", Type: IntArray, Required: true},
		{Name: "faceVertexIndices", Type: IntArray, Required: true},
		{Name: "normals", Type: Vec3Array},
		{Name: "st", Namespace: "primvars", Type: Vec2Array},
		{Name: "displayColor", Namespace: "primvars", Type: Vec3Array},
		{Name: "binding", Namespace: "material", Type: PathValue},
	}},
	{Name: "Skeleton", Base: "Boundable", Attrs: []AttrSpec{
		{Name: "joints", Type: TokenArray, Required: true},
		{Name: "bindTransforms", Type: Matrix4Array, Required: true},
		{Name: "restTransforms", Type: Matrix4Array},
	}},
	{Name: "SkelRoot", Base: "Boundable"},
	{Name: "PointInstancer", Base: "Boundable", Attrs: []AttrSpec{
		{Name: "prototypes", Type: PathArray, Required: true},
		{Name: "protoIndices", Type: IntArray, Required: true},
		{Name: "positions", Type: Vec3Array, Required: true},
		{Name: "orientations", Type: QuatArray},
		{Name: "scales", Type: Vec3Array},
		{Name: "ids", Type: IntArray},
		{Name: "inactiveIds", Type: IntArray},
	}},
	{Name: "Material", Base: "Prim", Attrs: []AttrSpec{
		{Name: "diffuseColor", Namespace: "inputs", Type: Vec3},
		{Name: "opacity", Namespace: "inputs", Type: Float},
		{Name: "diffuseTexture", Namespace: "inputs", Type: Token},
	}},
	{Name: "SkelBindingAPI", API: true, Attrs: []AttrSpec{
		{Name: "skeleton", Namespace: "skel", Type: PathValue},
		{Name: "joints", Namespace: "skel", Type: TokenArray},
		{Name: "jointIndices", Namespace: "primvars:skel", Type: IntArray},
		{Name: "jointWeights", Namespace: "primvars:skel", Type: FloatArray},
		{Name: "elementSize", Namespace: "primvars:skel", Type: Int},
		{Name: "interpolation", Namespace: "primvars:skel", Type: Token},
		{Name: "geomBindTransform", Namespace: "primvars:skel", Type: Matrix4},
	}},
}

var schemaByName = func() map[string]*Schema {
	m := make(map[string]*Schema, len(Schemas))
	for i := range Schemas {
		m[Schemas[i].Name] = &Schemas[i]
	}
	return m
}()

// LookupSchema returns the table entry for name.
func LookupSchema(name string) (*Schema, bool) {
	s, ok := schemaByName[name]
	return s, ok
}

// IsA reports whether prims of typeName satisfy schema. API schemas apply to everything.
func IsA(typeName, schema string) bool {
	if s, ok := schemaByName[schema]; ok && s.API {
		return true
	}
	if typeName == "" {
		return schema == "Prim"
	}
	for name := typeName; name != ""; {
		if name == schema {
			return true
		}
		s, ok := schemaByName[name]
		if !ok {
			return schema == "Prim"
		}
		name = s.Base
	}
	return false
}

// AttrSpecFor finds the declaration of attr for a prim of typeName, searching
// the type's base chain and then the API schemas.
func AttrSpecFor(typeName, attr string) (AttrSpec, bool) {
	if typeName == "" {
		typeName = "Prim"
	}
	for name := typeName; name != ""; {
		s, ok := schemaByName[name]
		if !ok {
			name = "Prim"
			s = schemaByName[name]
		}
		for _, a := range s.Attrs {
			if a.FullName() == attr {
				return a, true
			}
		}
		name = s.Base
	}
	for _, s := range Schemas {
		if !s.API {
			continue
		}
		for _, a := range s.Attrs {
			if a.FullName() == attr {
				return a, true
			}
		}
	}
	return AttrSpec{}, false
}

// SchemaAttrs returns the attributes schema declares, including its bases.
func SchemaAttrs(schema string) []AttrSpec {
	var out []AttrSpec
	for name := schema; name != ""; {
		s, ok := schemaByName[name]
		if !ok {
			break
		}
		out = append(out, s.Attrs...)
		name = s.Base
	}
	return out
}

// ValidateSchemas checks the table for dangling bases, duplicate schemas and
// attribute names declared twice along one base chain.
func ValidateSchemas(table []Schema) error {
	byName := make(map[string]Schema, len(table))
	for _, s := range table {
		if _, dup := byName[s.Name]; dup {
			return fmt.Errorf("stage: schema %s declared twice", s.Name)
		}
		byName[s.Name] = s
	}
	var problems []string
	for _, s := range table {
		seen := make(map[string]string)
		for name := s.Name; name != ""; {
			b, ok := byName[name]
			if !ok {
				problems = append(problems, fmt.Sprintf("%s: unknown base %s", s.Name, name))
				break
			}
			for _, a := range b.Attrs {
				if a.Type == Invalid {
					problems = append(problems, fmt.Sprintf("%s: attribute %s has no type", b.Name, a.FullName()))
				}
				if owner, dup := seen[a.FullName()]; dup {
					problems = append(problems, fmt.Sprintf("%s: attribute %s redeclared (first in %s)", s.Name, a.FullName(), owner))
				}
				seen[a.FullName()] = b.Name
			}
			name = b.Base
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("stage: invalid schema table: %s", strings.Join(problems, "; "))
	}
	return nil
}
