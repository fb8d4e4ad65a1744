// Package instancing realizes scene instances and point instances as cloned
// node subtrees.
package instancing

import (
	"context"
	"fmt"

	"usd-scene-translator/internal/basis"
	"usd-scene-translator/internal/ctxlog"
	"usd-scene-translator/internal/mathutil"
	"usd-scene-translator/internal/pathindex"
	"usd-scene-translator/internal/pool"
	"usd-scene-translator/internal/scenegraph"
	"usd-scene-translator/internal/sdfpath"
	"usd-scene-translator/internal/stage"
)

// DefaultMaxInstances bounds the clones one point instancer may create.
const DefaultMaxInstances = 1_000_000

type Options struct {
	// Batching marks render components of masters and prototypes as
	// batchable.
	Batching bool
	Policy   basis.Policy
	// MaxInstances caps realized point instances per instancer. Zero means
	// DefaultMaxInstances.
	MaxInstances int
}

// Result summarizes one point instancer.
type Result struct {
	Realized int
	Skipped  int
	// Exhausted is set when instances ran out of transforms.
	Exhausted bool
	// Capped is set when MaxInstances stopped the loop.
	Capped bool
}

type candidate struct {
	index     int
	prototype *scenegraph.Node
	transform mathutil.Mat4
}

// Resolver instantiates masters and prototypes for one translation pass.
type Resolver struct {
	idx        *pathindex.Index
	opts       Options
	candidates *pool.Slices[candidate]
}

func NewResolver(idx *pathindex.Index, opts Options) *Resolver {
	if opts.MaxInstances <= 0 {
		opts.MaxInstances = DefaultMaxInstances
	}
	return &Resolver{idx: idx, opts: opts, candidates: pool.NewSlices[candidate]()}
}

// BuildSceneInstances copies every direct child of each master under its
// instance roots. Children already present by name are left alone, so calling
// it again adds nothing.
func (r *Resolver) BuildSceneInstances(ctx context.Context) {
	logger := ctxlog.FromContext(ctx)
	if r.opts.Batching {
		for _, p := range r.idx.MasterRootPaths() {
			if n, ok := r.idx.Lookup(p); ok {
				markBatchable(n)
			}
		}
	}
	for _, inst := range r.idx.InstanceRoots() {
		master, ok := r.idx.Lookup(inst.Master)
		if !ok {
			logger.Warn("Master not found for instance.", "instance", inst.Path, "master", inst.Master)
			r.idx.MarkError()
			continue
		}
		for _, child := range master.Children() {
			if existing := inst.Node.Find(child.Name); existing != nil {
				r.idx.AddInstance(inst.Path.Append(child.Name), existing)
				continue
			}
			clone := child.Clone()
			inst.Node.AddChild(clone)
			clone.SetActive(true)
			r.idx.AddInstance(inst.Path.Append(child.Name), clone)
		}
	}
}

// BuildPointInstances clones the prototypes of the instancer at path under
// root, one clone per active entry of ProtoIndices. Transforms are consumed
// only by realized instances. Bad entries are logged and skipped.
func (r *Resolver) BuildPointInstances(ctx context.Context, path sdfpath.Path, root *scenegraph.Node, sample *stage.PointInstancerSample) Result {
	logger := ctxlog.FromContext(ctx).With("instancer", path)
	var res Result

	prototypes := make([]*scenegraph.Node, len(sample.Prototypes))
	for i, p := range sample.Prototypes {
		n, ok := r.idx.Lookup(p)
		if !ok {
			logger.Warn("Prototype not found; its instances are skipped.", "prototype", p)
			r.idx.MarkError()
			continue
		}
		n.SetActive(false)
		if r.opts.Batching {
			markBatchable(n)
		}
		prototypes[i] = n
	}

	transforms := sample.InstanceTransforms()
	inactive := sample.InactiveSet()
	todo := r.candidates.Acquire(min(len(sample.ProtoIndices), r.opts.MaxInstances))
	defer r.candidates.Release(todo)

	t := 0
	for i, pi := range sample.ProtoIndices {
		if _, off := inactive[i]; off {
			res.Skipped++
			continue
		}
		if pi < 0 || pi >= len(prototypes) {
			logger.Warn("Prototype index out of range.", "index", i, "protoIndex", pi)
			r.idx.MarkError()
			res.Skipped++
			continue
		}
		if prototypes[pi] == nil {
			res.Skipped++
			continue
		}
		if t >= len(transforms) {
			logger.Warn("No transform left for instance; stopping.", "index", i, "transforms", len(transforms))
			r.idx.MarkError()
			res.Exhausted = true
			break
		}
		if len(todo) >= r.opts.MaxInstances {
			logger.Info("Instance cap reached.", "max", r.opts.MaxInstances)
			res.Capped = true
			break
		}
		todo = append(todo, candidate{index: i, prototype: prototypes[pi], transform: transforms[t]})
		t++
	}

	for _, c := range todo {
		name := fmt.Sprintf("%s_%d", c.prototype.Name, c.index)
		if stale := root.Find(name); stale != nil {
			stale.Destroy()
		}
		clone := c.prototype.Clone()
		clone.Name = name
		root.AddChild(clone)
		clone.SetActive(true)
		pos, rot, scale, ok := basis.Decompose(basis.ConvertBasis(c.transform, r.opts.Policy))
		if ok {
			clone.SetLocalTransform(pos, rot, scale)
		} else {
			logger.Warn("Cannot decompose instance transform; keeping prototype transform.", "index", c.index)
			r.idx.MarkError()
		}
		r.idx.AddInstance(path.Append(name), clone)
	}
	res.Realized = len(todo)
	root.Attach(&scenegraph.Instancer{Realized: res.Realized})
	return res
}

func markBatchable(n *scenegraph.Node) {
	for d := range n.All() {
		if m, ok := scenegraph.ComponentOf[*scenegraph.Mesh](d); ok {
			m.Batchable = true
		}
		if m, ok := scenegraph.ComponentOf[*scenegraph.Material](d); ok {
			m.Batchable = true
		}
	}
}
