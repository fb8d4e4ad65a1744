package hierarchy

import (
	"context"

	"usd-scene-translator/internal/ctxlog"
	"usd-scene-translator/internal/pathindex"
	"usd-scene-translator/internal/scenegraph"
	"usd-scene-translator/internal/sdfpath"
	"usd-scene-translator/internal/stage"
)

// Options controls what the Builder adds on top of the bare node tree.
type Options struct {
	// SceneInstances builds masters and registers instance roots.
	SceneInstances bool
	// Rebuild replaces previously translated nodes instead of reusing them.
	Rebuild bool
}

// Builder builds the node tree for one translation pass and decorates each
// node with what the prim says about itself.
type Builder struct {
	graph stage.Graph
	idx   *pathindex.Index
	opts  Options
}

func NewBuilder(graph stage.Graph, idx *pathindex.Index, opts Options) *Builder {
	return &Builder{graph: graph, idx: idx, opts: opts}
}

// Build places every prim below rootPath. The node for rootPath must already
// be registered.
func (b *Builder) Build(ctx context.Context, rootPath sdfpath.Path) error {
	return Build(b.idx, rootPath, b.graph.AllPaths(rootPath), b.opts.Rebuild, b.visitor(ctx))
}

// BuildMasters creates an inactive subtree under root for every master of the
// graph. Graphs without masters are skipped.
func (b *Builder) BuildMasters(ctx context.Context, root *scenegraph.Node) error {
	inst, ok := b.graph.(stage.Instancing)
	if !ok || !b.opts.SceneInstances {
		return nil
	}
	visit := b.visitor(ctx)
	for _, master := range inst.Masters() {
		node := findOrCreate(root, master.Name(), b.opts.Rebuild)
		node.SetActive(false)
		if err := b.idx.AddMasterRoot(master, node); err != nil {
			return err
		}
		if err := visit(master, node); err != nil {
			return err
		}
		if err := Build(b.idx, master, inst.MasterPaths(master), b.opts.Rebuild, visit); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) visitor(ctx context.Context) VisitFunc {
	logger := ctxlog.FromContext(ctx)
	return func(path sdfpath.Path, node *scenegraph.Node) error {
		var prim stage.PrimSample
		if err := b.graph.Read(path, &prim); err != nil {
			logger.Warn("Cannot read prim; node left undecorated.", "path", path, "error", err)
			b.idx.MarkError()
			return nil
		}
		node.Attach(&scenegraph.PrimSource{Path: path, TypeName: prim.TypeName})
		if prim.Invisible() {
			node.SetActive(false)
		}
		addModelRoot(node, &prim)
		if prim.IsInstance() && b.opts.SceneInstances {
			b.idx.AddInstanceRoot(path, node, prim.Master)
		}
		Categorize(b.idx, path, prim.TypeName)
		return nil
	}
}

// addModelRoot tags assemblies and non-group models. Stale tags from a
// previous import are removed.
func addModelRoot(node *scenegraph.Node, prim *stage.PrimSample) {
	switch prim.Kind {
	case "assembly":
		node.Attach(&scenegraph.ModelRoot{ModelKind: prim.Kind})
	case "component", "subcomponent", "model":
		node.Attach(&scenegraph.ModelRoot{
			ModelKind:    prim.Kind,
			AssetName:    prim.AssetName,
			AssetVersion: prim.AssetVersion,
		})
	default:
		node.Remove(scenegraph.KindModelRoot)
	}
}

// Categorize files path under every index category its type belongs to.
// Every transformable prim lands in Xforms as well as in its own category.
func Categorize(idx *pathindex.Index, path sdfpath.Path, typeName string) {
	if stage.IsA(typeName, "Xformable") {
		idx.AddCategory(pathindex.Xforms, path)
	}
	switch {
	case stage.IsA(typeName, "Mesh"):
		idx.AddCategory(pathindex.Meshes, path)
	case stage.IsA(typeName, "Skeleton"):
		idx.AddCategory(pathindex.Skeletons, path)
	case stage.IsA(typeName, "SkelRoot"):
		idx.AddCategory(pathindex.SkelRoots, path)
	case stage.IsA(typeName, "PointInstancer"):
		idx.AddCategory(pathindex.PointInstancers, path)
	case stage.IsA(typeName, "Camera"):
		idx.AddCategory(pathindex.Cameras, path)
	case stage.IsA(typeName, "Material"):
		idx.AddCategory(pathindex.Materials, path)
	}
}
