// Package translate drives a whole translation pass between a source scene
// graph and a runtime node tree.
package translate

import (
	"usd-scene-translator/internal/basis"
	"usd-scene-translator/internal/instancing"
	"usd-scene-translator/internal/scenegraph"
	"usd-scene-translator/internal/sdfpath"
	"usd-scene-translator/internal/stage"
)

// TextureResolver describes the texture file a material references.
type TextureResolver interface {
	ResolveTexture(ref string) (*scenegraph.TextureInfo, bool)
}

// Options controls an import pass. Start from DefaultOptions.
type Options struct {
	// RootPath is the source path mapped onto the caller's root node.
	RootPath sdfpath.Path
	Policy   basis.Policy
	// UpAxis overrides the graph's own up axis when set.
	UpAxis *basis.UpAxis
	// Scale is applied uniformly to the root node.
	Scale float64
	Time  stage.TimeCode

	Transforms     bool
	Meshes         bool
	Materials      bool
	SceneInstances bool
	PointInstances bool
	Skinning       bool

	// Rebuild replaces nodes left by a previous import onto the same root.
	Rebuild bool
	// Batching marks instanced render components as batchable.
	Batching     bool
	MaxInstances int
	// Textures is optional; without it materials carry no texture info.
	Textures TextureResolver
}

func DefaultOptions() Options {
	return Options{
		RootPath:       sdfpath.Root,
		Policy:         basis.Exact,
		Scale:          1,
		Time:           stage.DefaultTime(),
		Transforms:     true,
		Meshes:         true,
		Materials:      true,
		SceneInstances: true,
		PointInstances: true,
		Skinning:       true,
		MaxInstances:   instancing.DefaultMaxInstances,
	}
}

// ExportOptions controls an export pass.
type ExportOptions struct {
	// RootPath is the destination path of the root node's children.
	RootPath sdfpath.Path
	Policy   basis.Policy
	UpAxis   basis.UpAxis
	// Tolerance is the per-element difference below which ExportOverrides
	// treats a transform as unchanged.
	Tolerance float64
}

func DefaultExportOptions() ExportOptions {
	return ExportOptions{RootPath: sdfpath.Root, Policy: basis.Exact, UpAxis: basis.YUp, Tolerance: 1e-5}
}
