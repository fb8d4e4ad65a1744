package translate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"usd-scene-translator/internal/basis"
	"usd-scene-translator/internal/ctxlog"
	"usd-scene-translator/internal/hierarchy"
	"usd-scene-translator/internal/instancing"
	"usd-scene-translator/internal/mathutil"
	"usd-scene-translator/internal/pathindex"
	"usd-scene-translator/internal/scenegraph"
	"usd-scene-translator/internal/sdfpath"
	"usd-scene-translator/internal/skeleton"
	"usd-scene-translator/internal/stage"
)

// skelInfo is what the skinning phase needs from each skeleton.
type skelInfo struct {
	sample       stage.SkeletonSample
	joints       []sdfpath.Path
	inverseBinds []mathutil.Mat4
}

type importer struct {
	graph  stage.Graph
	idx    *pathindex.Index
	root   *scenegraph.Node
	opts   Options
	logger *slog.Logger
	skels  map[sdfpath.Path]*skelInfo
}

// BuildScene translates the graph below opts.RootPath onto root and returns
// the index of every node it placed. Structural errors abort the pass and
// remove what it built; problems with individual prims are logged and
// reported through the index's HasErrors.
func BuildScene(ctx context.Context, g stage.Graph, root *scenegraph.Node, opts Options) (*pathindex.Index, error) {
	if opts.RootPath.IsEmpty() {
		opts.RootPath = sdfpath.Root
	}
	logger := ctxlog.FromContext(ctx).With("root", opts.RootPath)
	ctx = ctxlog.WithLogger(ctx, logger)
	g.SetTime(opts.Time)

	im := &importer{
		graph:  g,
		idx:    pathindex.New(),
		root:   root,
		opts:   opts,
		logger: logger,
		skels:  make(map[sdfpath.Path]*skelInfo),
	}
	if err := im.idx.Put(opts.RootPath, root); err != nil {
		return nil, err
	}
	if err := im.buildHierarchy(ctx); err != nil {
		im.idx.DestroyAll(root)
		return nil, fmt.Errorf("translate: build %s: %w", opts.RootPath, err)
	}

	if opts.Transforms {
		im.bindTransforms()
	}
	if opts.Materials {
		im.bindMaterials()
	}
	if opts.Meshes {
		im.bindMeshes()
	}

	resolver := instancing.NewResolver(im.idx, instancing.Options{
		Batching:     opts.Batching,
		Policy:       opts.Policy,
		MaxInstances: opts.MaxInstances,
	})
	if opts.SceneInstances {
		resolver.BuildSceneInstances(ctx)
	}
	if opts.PointInstances {
		im.buildPointInstances(ctx, resolver)
	}

	if opts.Skinning {
		im.bindSkins(ctx)
		for _, path := range im.idx.Category(pathindex.Skeletons) {
			if info, ok := im.skels[path]; ok {
				skeleton.PoseBones(ctx, im.idx, path, info.joints, &info.sample, opts.Policy)
			}
		}
	}

	im.correctRoot()
	logger.Debug("Scene built.", "nodes", im.idx.Len(), "errors", im.idx.HasErrors())
	return im.idx, nil
}

func (im *importer) buildHierarchy(ctx context.Context) error {
	b := hierarchy.NewBuilder(im.graph, im.idx, hierarchy.Options{
		SceneInstances: im.opts.SceneInstances,
		Rebuild:        im.opts.Rebuild,
	})
	if err := b.BuildMasters(ctx, im.root); err != nil {
		return err
	}
	if err := b.Build(ctx, im.opts.RootPath); err != nil {
		return err
	}
	if !im.opts.Skinning {
		return nil
	}
	for _, path := range im.idx.Category(pathindex.Skeletons) {
		info := &skelInfo{}
		if err := im.graph.Read(path, &info.sample); err != nil {
			im.warn("Cannot read skeleton.", path, err)
			continue
		}
		info.joints = skeleton.ResolveJointPaths(ctx, path, info.sample.Joints)
		if err := hierarchy.ExpandSkeleton(im.idx, path, info.joints); err != nil {
			return err
		}
		inv, err := skeleton.BindTransforms(&info.sample, im.opts.Policy)
		if err != nil {
			im.warn("Bad bind pose.", path, err)
		}
		info.inverseBinds = inv
		im.skels[path] = info
	}
	return nil
}

func (im *importer) warn(msg string, path sdfpath.Path, err error) {
	im.logger.Warn(msg, "path", path, "error", err)
	im.idx.MarkError()
}

func (im *importer) bindTransforms() {
	for _, path := range im.idx.Category(pathindex.Xforms) {
		if path == im.opts.RootPath {
			continue
		}
		node, err := im.idx.Get(path)
		if err != nil {
			im.warn("Transform target missing.", path, err)
			continue
		}
		var xs stage.XformSample
		if err := im.graph.Read(path, &xs); err != nil {
			im.warn("Cannot read transform.", path, err)
			continue
		}
		if err := applyTransform(node, stage.HasTransform(&xs), im.opts.Policy); err != nil {
			im.warn("Cannot decompose transform.", path, err)
		}
	}
}

var errNotDecomposable = errors.New("translate: matrix is not decomposable")

func applyTransform(node *scenegraph.Node, src stage.HasTransform, policy basis.Policy) error {
	pos, rot, scale, ok := basis.Decompose(basis.ConvertBasis(src.LocalTransform(), policy))
	if !ok {
		return errNotDecomposable
	}
	node.SetLocalTransform(pos, rot, scale)
	return nil
}

func (im *importer) bindMaterials() {
	for _, path := range im.idx.Category(pathindex.Materials) {
		node, err := im.idx.Get(path)
		if err != nil {
			im.warn("Material target missing.", path, err)
			continue
		}
		ms := stage.MaterialSample{DiffuseColor: mathutil.Vec3One, Opacity: 1}
		if err := im.graph.Read(path, &ms); err != nil {
			im.warn("Cannot read material.", path, err)
			continue
		}
		mat := &scenegraph.Material{
			Path:  path,
			Color: rgba(ms.DiffuseColor, ms.Opacity),
		}
		if ms.DiffuseTexture != "" && im.opts.Textures != nil {
			tex, ok := im.opts.Textures.ResolveTexture(ms.DiffuseTexture)
			if !ok {
				im.logger.Warn("Texture not found.", "path", path, "texture", ms.DiffuseTexture)
				im.idx.MarkError()
			}
			mat.Texture = tex
		}
		node.Attach(mat)
	}
}

func rgba(c mathutil.Vec3, a float64) [4]float32 {
	return [4]float32{float32(c[0]), float32(c[1]), float32(c[2]), float32(a)}
}

func (im *importer) bindMeshes() {
	for _, path := range im.idx.Category(pathindex.Meshes) {
		node, err := im.idx.Get(path)
		if err != nil {
			im.warn("Mesh target missing.", path, err)
			continue
		}
		var ms stage.MeshSample
		if err := im.graph.Read(path, &ms); err != nil {
			im.warn("Cannot read mesh.", path, err)
			continue
		}
		node.Attach(im.meshComponent(path, &ms))
	}
}

func (im *importer) meshComponent(path sdfpath.Path, ms *stage.MeshSample) *scenegraph.Mesh {
	p := im.opts.Policy
	m := &scenegraph.Mesh{
		Points:   basis.ConvertPoints(ms.Points, p),
		Indices:  basis.FlipWinding(ms.Triangulate(), p),
		UVs:      ms.ST,
		Material: ms.Material,
		Color:    [4]float32{1, 1, 1, 1},
	}
	if len(ms.Normals) == len(ms.Points) {
		m.Normals = basis.ConvertPoints(ms.Normals, p)
	} else if len(ms.Normals) > 0 {
		im.logger.Debug("Ignoring non per-vertex normals.", "path", path, "normals", len(ms.Normals))
	}
	if len(ms.DisplayColor) > 0 {
		m.Color = rgba(ms.DisplayColor[0], 1)
	}
	for _, i := range m.Indices {
		if i < 0 || i >= len(m.Points) {
			im.logger.Warn("Face index out of range.", "path", path, "index", i, "points", len(m.Points))
			im.idx.MarkError()
			break
		}
	}
	return m
}

func (im *importer) buildPointInstances(ctx context.Context, r *instancing.Resolver) {
	for _, path := range im.idx.Category(pathindex.PointInstancers) {
		node, err := im.idx.Get(path)
		if err != nil {
			im.warn("Point instancer target missing.", path, err)
			continue
		}
		var ps stage.PointInstancerSample
		if err := im.graph.Read(path, &ps); err != nil {
			im.warn("Cannot read point instancer.", path, err)
			continue
		}
		res := r.BuildPointInstances(ctx, path, node, &ps)
		im.logger.Debug("Point instances built.", "path", path,
			"realized", res.Realized, "skipped", res.Skipped, "exhausted", res.Exhausted, "capped", res.Capped)
	}
}

func (im *importer) bindSkins(ctx context.Context) {
	binder := skeleton.NewBinder(im.idx, im.opts.Policy)
	for _, path := range im.idx.Category(pathindex.Meshes) {
		var ms stage.MeshSample
		if err := im.graph.Read(path, &ms); err != nil {
			continue
		}
		binding, ok := stage.HasSkin(&ms).SkinBinding()
		if !ok {
			continue
		}
		skelPath := im.skeletonFor(path, binding)
		info, ok := im.skels[skelPath]
		if !ok {
			im.logger.Warn("Skinned mesh has no translated skeleton.", "path", path, "skeleton", skelPath)
			im.idx.MarkError()
			continue
		}
		_, err := binder.Bind(ctx, skeleton.Request{
			MeshPath:     path,
			SkelPath:     skelPath,
			SkelJoints:   info.sample.Joints,
			InverseBinds: info.inverseBinds,
			Binding:      binding,
			VertexCount:  len(ms.Points),
		})
		if err != nil {
			im.warn("Cannot bind skin.", path, err)
		}
	}
}

// skeletonFor returns the skeleton bound to the mesh, inheriting the binding
// from the nearest ancestor that authors one.
func (im *importer) skeletonFor(path sdfpath.Path, binding *stage.SkelBindingSample) sdfpath.Path {
	if !binding.Skeleton.IsEmpty() {
		return binding.Skeleton
	}
	for p := path.Parent(); !p.IsEmpty() && !p.IsRoot(); p = p.Parent() {
		var b stage.SkelBindingSample
		if err := im.graph.Read(p, &b); err == nil && !b.Skeleton.IsEmpty() {
			return b.Skeleton
		}
	}
	return sdfpath.Empty
}

func (im *importer) correctRoot() {
	axis := im.graph.UpAxis()
	if im.opts.UpAxis != nil {
		axis = *im.opts.UpAxis
	}
	rot, scale := basis.RootCorrection(axis, im.opts.Policy, im.opts.Scale)
	im.root.Rotation = rot
	im.root.Scale = scale
}
