package stage

import (
	"usd-scene-translator/internal/mathutil"
	"usd-scene-translator/internal/sdfpath"
)

// Sample is a typed view of one prim's attributes at the graph's current time.
type Sample interface {
	// SchemaName is the schema the prim must satisfy to be read into this sample.
	SchemaName() string
	// Fields lists the attributes the sample reads, by full name.
	Fields() []Field
}

// HasTransform is implemented by samples of transformable prims.
type HasTransform interface {
	LocalTransform() mathutil.Mat4
}

// HasBounds is implemented by samples that carry an authored extent.
type HasBounds interface {
	Bounds() (min, max mathutil.Vec3, ok bool)
}

// HasSkin is implemented by samples that may carry a skin binding.
type HasSkin interface {
	SkinBinding() (*SkelBindingSample, bool)
}

// headerSetter receives prim metadata that is not stored as attributes.
type headerSetter interface {
	setHeader(typeName string, master sdfpath.Path)
}

// SampleTypes returns one zero value of every sample type, for table validation.
func SampleTypes() []Sample {
	return []Sample{
		&PrimSample{}, &XformSample{}, &MeshSample{}, &SkeletonSample{},
		&SkelBindingSample{}, &PointInstancerSample{}, &MaterialSample{},
	}
}

// PrimSample reads metadata common to every prim.
type PrimSample struct {
	TypeName string
	// Master is the master root path when the prim is an instance.
	Master       sdfpath.Path
	Kind         string
	Visibility   string
	AssetName    string
	AssetVersion string
}

func (*PrimSample) SchemaName() string { return "Prim" }

func (p *PrimSample) Fields() []Field {
	return []Field{
		{"kind", &p.Kind},
		{"visibility", &p.Visibility},
		{"assetInfo:name", &p.AssetName},
		{"assetInfo:version", &p.AssetVersion},
	}
}

func (p *PrimSample) setHeader(typeName string, master sdfpath.Path) {
	p.TypeName = typeName
	p.Master = master
}

func (p *PrimSample) IsInstance() bool { return !p.Master.IsEmpty() }

func (p *PrimSample) Invisible() bool { return p.Visibility == "invisible" }

// XformSample reads the local transform of any transformable prim.
type XformSample struct {
	Transform mathutil.Mat4
}

func (*XformSample) SchemaName() string { return "Xformable" }

func (x *XformSample) Fields() []Field {
	return []Field{{"xformOp:transform", &x.Transform}}
}

// LocalTransform returns the authored matrix, or identity when none is authored.
func (x *XformSample) LocalTransform() mathutil.Mat4 {
	return transformOrIdentity(x.Transform)
}

func transformOrIdentity(m mathutil.Mat4) mathutil.Mat4 {
	if m == (mathutil.Mat4{}) {
		return mathutil.Mat4Identity()
	}
	return m
}

func extentBounds(extent []mathutil.Vec3) (mathutil.Vec3, mathutil.Vec3, bool) {
	if len(extent) < 2 {
		return mathutil.Vec3{}, mathutil.Vec3{}, false
	}
	return extent[0], extent[1], true
}

// MeshSample reads polygonal geometry and its optional skin binding.
type MeshSample struct {
	Transform         mathutil.Mat4
	Extent            []mathutil.Vec3
	Points            []mathutil.Vec3
	Normals           []mathutil.Vec3
	FaceVertexCounts  []int
	FaceVertexIndices []int
	ST                [][2]float32
	DisplayColor      []mathutil.Vec3
	Material          sdfpath.Path
	Skin              SkelBindingSample
}

func (*MeshSample) SchemaName() string { return "Mesh" }

func (m *MeshSample) Fields() []Field {
	fields := []Field{
		{"xformOp:transform", &m.Transform},
		{"extent", &m.Extent},
		{"points", &m.Points},
		{"normals", &m.Normals},
		{"faceVertexCounts", &m.FaceVertexCounts},
		{"faceVertexIndices", &m.FaceVertexIndices},
		{"primvars:st", &m.ST},
		{"primvars:displayColor", &m.DisplayColor},
		{"material:binding", &m.Material},
	}
	return append(fields, m.Skin.Fields()...)
}

func (m *MeshSample) LocalTransform() mathutil.Mat4 { return transformOrIdentity(m.Transform) }

func (m *MeshSample) Bounds() (mathutil.Vec3, mathutil.Vec3, bool) { return extentBounds(m.Extent) }

func (m *MeshSample) SkinBinding() (*SkelBindingSample, bool) {
	return &m.Skin, len(m.Skin.JointIndices) > 0
}

// Triangulate fans every face into triangles. Faces with fewer than three
// vertices or indices past the end of FaceVertexIndices are dropped.
func (m *MeshSample) Triangulate() []int {
	var tris []int
	start := 0
	for _, n := range m.FaceVertexCounts {
		if n >= 3 && start+n <= len(m.FaceVertexIndices) {
			face := m.FaceVertexIndices[start : start+n]
			for i := 1; i+1 < n; i++ {
				tris = append(tris, face[0], face[i], face[i+1])
			}
		}
		start += n
	}
	return tris
}

// SkeletonSample reads a skeleton's joint topology and poses.
type SkeletonSample struct {
	Transform      mathutil.Mat4
	Extent         []mathutil.Vec3
	Joints         []string
	BindTransforms []mathutil.Mat4
	RestTransforms []mathutil.Mat4
}

func (*SkeletonSample) SchemaName() string { return "Skeleton" }

func (s *SkeletonSample) Fields() []Field {
	return []Field{
		{"xformOp:transform", &s.Transform},
		{"extent", &s.Extent},
		{"joints", &s.Joints},
		{"bindTransforms", &s.BindTransforms},
		{"restTransforms", &s.RestTransforms},
	}
}

func (s *SkeletonSample) LocalTransform() mathutil.Mat4 { return transformOrIdentity(s.Transform) }

func (s *SkeletonSample) Bounds() (mathutil.Vec3, mathutil.Vec3, bool) { return extentBounds(s.Extent) }

// SkelBindingSample reads the skinning attributes of a prim.
type SkelBindingSample struct {
	Skeleton          sdfpath.Path
	Joints            []string
	JointIndices      []int
	JointWeights      []float32
	ElementSize       int
	Interpolation     string
	GeomBindTransform mathutil.Mat4
}

func (*SkelBindingSample) SchemaName() string { return "SkelBindingAPI" }

func (b *SkelBindingSample) Fields() []Field {
	return []Field{
		{"skel:skeleton", &b.Skeleton},
		{"skel:joints", &b.Joints},
		{"primvars:skel:jointIndices", &b.JointIndices},
		{"primvars:skel:jointWeights", &b.JointWeights},
		{"primvars:skel:elementSize", &b.ElementSize},
		{"primvars:skel:interpolation", &b.Interpolation},
		{"primvars:skel:geomBindTransform", &b.GeomBindTransform},
	}
}

// IsConstant reports constant interpolation: every vertex shares one influence set.
func (b *SkelBindingSample) IsConstant() bool { return b.Interpolation == "constant" }

// GeomBind returns the authored geometry bind transform, or identity.
func (b *SkelBindingSample) GeomBind() mathutil.Mat4 { return transformOrIdentity(b.GeomBindTransform) }

// PointInstancerSample reads a point instancer.
type PointInstancerSample struct {
	Transform    mathutil.Mat4
	Extent       []mathutil.Vec3
	Prototypes   []sdfpath.Path
	ProtoIndices []int
	Positions    []mathutil.Vec3
	Orientations []mathutil.Quat
	Scales       []mathutil.Vec3
	IDs          []int
	InactiveIDs  []int
}

func (*PointInstancerSample) SchemaName() string { return "PointInstancer" }

func (p *PointInstancerSample) Fields() []Field {
	return []Field{
		{"xformOp:transform", &p.Transform},
		{"extent", &p.Extent},
		{"prototypes", &p.Prototypes},
		{"protoIndices", &p.ProtoIndices},
		{"positions", &p.Positions},
		{"orientations", &p.Orientations},
		{"scales", &p.Scales},
		{"ids", &p.IDs},
		{"inactiveIds", &p.InactiveIDs},
	}
}

func (p *PointInstancerSample) LocalTransform() mathutil.Mat4 { return transformOrIdentity(p.Transform) }

func (p *PointInstancerSample) Bounds() (mathutil.Vec3, mathutil.Vec3, bool) {
	return extentBounds(p.Extent)
}

// InstanceTransforms composes one matrix per position. Missing orientations
// and scales default to identity.
func (p *PointInstancerSample) InstanceTransforms() []mathutil.Mat4 {
	out := make([]mathutil.Mat4, len(p.Positions))
	for i, pos := range p.Positions {
		rot := mathutil.QuatIdentity()
		if i < len(p.Orientations) {
			rot = p.Orientations[i]
		}
		scale := mathutil.Vec3One
		if i < len(p.Scales) {
			scale = p.Scales[i]
		}
		out[i] = mathutil.Mat4FromTRS(pos, rot, scale)
	}
	return out
}

// InactiveSet returns the inactive ids as a set keyed by instance index.
// When ids are authored, inactive ids name entries of ids.
func (p *PointInstancerSample) InactiveSet() map[int]struct{} {
	if len(p.InactiveIDs) == 0 {
		return nil
	}
	inactive := make(map[int]struct{}, len(p.InactiveIDs))
	for _, id := range p.InactiveIDs {
		inactive[id] = struct{}{}
	}
	if len(p.IDs) == 0 {
		return inactive
	}
	byIndex := make(map[int]struct{}, len(p.InactiveIDs))
	for i, id := range p.IDs {
		if _, ok := inactive[id]; ok {
			byIndex[i] = struct{}{}
		}
	}
	return byIndex
}

// MaterialSample reads a preview surface.
type MaterialSample struct {
	DiffuseColor   mathutil.Vec3
	Opacity        float64
	DiffuseTexture string
}

func (*MaterialSample) SchemaName() string { return "Material" }

func (m *MaterialSample) Fields() []Field {
	return []Field{
		{"inputs:diffuseColor", &m.DiffuseColor},
		{"inputs:opacity", &m.Opacity},
		{"inputs:diffuseTexture", &m.DiffuseTexture},
	}
}
