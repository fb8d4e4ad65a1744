package translate

import (
	"context"
	"fmt"
	"strings"

	"usd-scene-translator/internal/basis"
	"usd-scene-translator/internal/ctxlog"
	"usd-scene-translator/internal/mathutil"
	"usd-scene-translator/internal/pathindex"
	"usd-scene-translator/internal/scenegraph"
	"usd-scene-translator/internal/sdfpath"
	"usd-scene-translator/internal/stage"
)

// ExportScene writes the tree below root to w. Paths come from hint when it
// knows the node, otherwise from the parent path and the node name. hint may
// be nil. The root node itself is not written; its correction is undone by
// the destination's up axis.
func ExportScene(ctx context.Context, root *scenegraph.Node, hint *pathindex.Index, w stage.Writer, opts ExportOptions) error {
	if opts.RootPath.IsEmpty() {
		opts.RootPath = sdfpath.Root
	}
	w.SetUpAxis(opts.UpAxis)
	ex := &exporter{w: w, hint: hint, opts: opts}
	for _, c := range root.Children() {
		if err := ex.export(ctx, c, opts.RootPath); err != nil {
			return err
		}
	}
	return nil
}

type exporter struct {
	w    stage.Writer
	hint *pathindex.Index
	opts ExportOptions
}

func (ex *exporter) export(ctx context.Context, n *scenegraph.Node, parent sdfpath.Path) error {
	path := ex.pathOf(n, parent)
	typeName, samples := ex.samples(n)
	if err := ex.w.Define(path, typeName); err != nil {
		return fmt.Errorf("translate: export %s: %w", path, err)
	}
	for _, s := range samples {
		if err := ex.w.Write(path, s); err != nil {
			return fmt.Errorf("translate: export %s: %w", path, err)
		}
	}
	ctxlog.FromContext(ctx).Debug("Exported node.", "path", path, "type", typeName)
	for _, c := range n.Children() {
		if err := ex.export(ctx, c, path); err != nil {
			return err
		}
	}
	return nil
}

func (ex *exporter) pathOf(n *scenegraph.Node, parent sdfpath.Path) sdfpath.Path {
	if ex.hint != nil {
		if p, ok := ex.hint.PathOf(n); ok && p.Parent() == parent {
			return p
		}
	}
	return parent.Append(sanitizeName(n.Name))
}

// sanitizeName maps a node name onto a valid prim name.
func sanitizeName(name string) string {
	if sdfpath.IsValidName(name) {
		return name
	}
	var b strings.Builder
	for i, r := range name {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "_"
	}
	return b.String()
}

func (ex *exporter) samples(n *scenegraph.Node) (string, []stage.Sample) {
	prim := &stage.PrimSample{}
	if !n.IsActive() {
		prim.Visibility = "invisible"
	}
	if mr, ok := scenegraph.ComponentOf[*scenegraph.ModelRoot](n); ok {
		prim.Kind, prim.AssetName, prim.AssetVersion = mr.ModelKind, mr.AssetName, mr.AssetVersion
	}
	xf := exportTransform(n, ex.opts.Policy)

	if m, ok := scenegraph.ComponentOf[*scenegraph.Mesh](n); ok {
		return "Mesh", []stage.Sample{prim, ex.meshSample(m, xf)}
	}
	if m, ok := scenegraph.ComponentOf[*scenegraph.Material](n); ok {
		ms := &stage.MaterialSample{
			DiffuseColor: mathutil.Vec3{float64(m.Color[0]), float64(m.Color[1]), float64(m.Color[2])},
			Opacity:      float64(m.Color[3]),
		}
		if m.Texture != nil {
			ms.DiffuseTexture = m.Texture.Path
		}
		return "Material", []stage.Sample{prim, ms}
	}
	return "Xform", []stage.Sample{prim, &stage.XformSample{Transform: xf}}
}

// exportTransform composes the node's TRS and converts it back to the
// source basis. Identity transforms are left unauthored.
func exportTransform(n *scenegraph.Node, p basis.Policy) mathutil.Mat4 {
	m := basis.ConvertBasis(n.LocalMatrix(), p)
	if m.ApproxEqual(mathutil.Mat4Identity(), mathutil.Epsilon) {
		return mathutil.Mat4{}
	}
	return m
}

func (ex *exporter) meshSample(m *scenegraph.Mesh, xf mathutil.Mat4) *stage.MeshSample {
	p := ex.opts.Policy
	counts := make([]int, len(m.Indices)/3)
	for i := range counts {
		counts[i] = 3
	}
	ms := &stage.MeshSample{
		Transform:         xf,
		Points:            basis.ConvertPoints(m.Points, p),
		Normals:           basis.ConvertPoints(m.Normals, p),
		FaceVertexCounts:  counts,
		FaceVertexIndices: basis.FlipWinding(m.Indices[:len(counts)*3], p),
		ST:                m.UVs,
		Material:          m.Material,
	}
	if m.Color != [4]float32{1, 1, 1, 1} {
		ms.DisplayColor = []mathutil.Vec3{{float64(m.Color[0]), float64(m.Color[1]), float64(m.Color[2])}}
	}
	if lo, hi, ok := bounds(ms.Points); ok {
		ms.Extent = []mathutil.Vec3{lo, hi}
	}
	return ms
}

func bounds(pts []mathutil.Vec3) (lo, hi mathutil.Vec3, ok bool) {
	if len(pts) == 0 {
		return lo, hi, false
	}
	lo, hi = pts[0], pts[0]
	for _, p := range pts[1:] {
		for a := range 3 {
			lo[a] = min(lo[a], p[a])
			hi[a] = max(hi[a], p[a])
		}
	}
	return lo, hi, true
}

// ExportOverrides writes a sparse layer holding only the transforms of
// translated nodes that moved away from src by more than opts.Tolerance.
// Ancestors of an override are defined with their source type. It returns
// the overridden paths.
func ExportOverrides(ctx context.Context, idx *pathindex.Index, src stage.Graph, w stage.Writer, opts ExportOptions) ([]sdfpath.Path, error) {
	logger := ctxlog.FromContext(ctx)
	w.SetUpAxis(opts.UpAxis)
	defined := map[sdfpath.Path]bool{sdfpath.Root: true}
	var changed []sdfpath.Path

	for _, path := range idx.Category(pathindex.Xforms) {
		node, ok := idx.Lookup(path)
		if !ok || path.IsRoot() {
			continue
		}
		var xs stage.XformSample
		if err := src.Read(path, &xs); err != nil {
			logger.Warn("Cannot read source transform.", "path", path, "error", err)
			continue
		}
		got := basis.ConvertBasis(node.LocalMatrix(), opts.Policy)
		if got.ApproxEqual(xs.LocalTransform(), opts.Tolerance) {
			continue
		}
		for _, p := range append(path.Ancestors(), path) {
			if defined[p] {
				continue
			}
			var prim stage.PrimSample
			if err := src.Read(p, &prim); err != nil {
				return changed, fmt.Errorf("translate: override %s: %w", p, err)
			}
			if err := w.Define(p, prim.TypeName); err != nil {
				return changed, fmt.Errorf("translate: override %s: %w", p, err)
			}
			defined[p] = true
		}
		if err := w.Write(path, &stage.XformSample{Transform: got}); err != nil {
			return changed, fmt.Errorf("translate: override %s: %w", path, err)
		}
		changed = append(changed, path)
	}
	return changed, nil
}
