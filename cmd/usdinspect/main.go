package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"usd-scene-translator/internal/ctxlog"
	"usd-scene-translator/internal/scenegraph"
	"usd-scene-translator/internal/sdfpath"
	"usd-scene-translator/internal/stage"
	"usd-scene-translator/internal/stage/hclstage"
	"usd-scene-translator/internal/stage/snapshot"
	"usd-scene-translator/internal/texture"
	"usd-scene-translator/internal/translate"
)

func main() {
	textureDir := flag.String("textures", "", "Directory searched for material textures")
	previews := flag.String("previews", "", "Write a WebP swatch of every resolved material texture to this directory")
	previewSize := flag.Int("preview-size", 128, "Longest side of preview swatches in pixels")
	noImport := flag.Bool("prims-only", false, "List prims without building the node tree")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: usdinspect [flags] scene.hcl")
		os.Exit(2)
	}
	path := flag.Arg(0)

	session, err := stage.NewInitializer(hclstage.Format{}, snapshot.Format{}).Init()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	src, err := session.Open(path)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Stage: %s (up %s, %d prims, %d masters)\n", path, src.UpAxis(), src.Len(), len(src.Masters()))
	for p := range src.AllPaths(sdfpath.Root) {
		printPrim(src, p)
	}
	for _, m := range src.Masters() {
		fmt.Printf("Master %s:\n", m)
		for p := range src.MasterPaths(m) {
			printPrim(src, p)
		}
	}
	if *noImport {
		return
	}

	logger := ctxlog.New("warn", "text", os.Stderr)
	ctx := ctxlog.WithLogger(context.Background(), logger)

	opts := translate.DefaultOptions()
	var cache *texture.Cache
	if *textureDir != "" {
		texIndex, err := texture.BuildIndex(*textureDir)
		if err != nil {
			fmt.Printf("Warning: textures: %v\n", err)
		} else {
			cache = texture.NewCache(texIndex)
			opts.Textures = cache
			fmt.Printf("Textures: %d indexed\n", texIndex.Len())
		}
	}

	root := scenegraph.NewNode(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
	idx, err := translate.BuildScene(ctx, src, root, opts)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("------------------------------------------------------------")
	fmt.Printf("Nodes: %d, instances: %d, errors: %v\n", idx.Len(), len(idx.Instances()), idx.HasErrors())
	printNode(root, 0)

	if *previews != "" && cache != nil {
		writePreviews(root, cache, *previews, *previewSize)
	}
}

func printPrim(src *stage.Memory, p sdfpath.Path) {
	prim, ok := src.Prim(p)
	if !ok || p.IsRoot() {
		return
	}
	line := fmt.Sprintf("  %s [%s]", p, prim.TypeName)
	if !prim.Master.IsEmpty() {
		line += fmt.Sprintf(" instance of %s", prim.Master)
	}
	for _, s := range stage.SampleTypes() {
		b, ok := s.(stage.HasBounds)
		if !ok || !stage.IsA(prim.TypeName, s.SchemaName()) {
			continue
		}
		if err := src.Read(p, s); err != nil {
			line += fmt.Sprintf(" (%v)", err)
			break
		}
		if lo, hi, ok := b.Bounds(); ok {
			line += fmt.Sprintf(" bounds [%.2f %.2f %.2f]..[%.2f %.2f %.2f]", lo[0], lo[1], lo[2], hi[0], hi[1], hi[2])
		}
		break
	}
	fmt.Println(line)
}

func printNode(n *scenegraph.Node, depth int) {
	var kinds []string
	for _, c := range n.Components() {
		kinds = append(kinds, c.Kind().String())
	}
	state := ""
	if !n.IsActive() {
		state = " (inactive)"
	}
	fmt.Printf("%s%s%s pos=[%.2f %.2f %.2f] %s\n", strings.Repeat("  ", depth), n.Name, state,
		n.Position[0], n.Position[1], n.Position[2], strings.Join(kinds, ","))
	for _, c := range n.Children() {
		printNode(c, depth+1)
	}
}

func writePreviews(root *scenegraph.Node, cache *texture.Cache, dir string, size int) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	written := 0
	for n := range root.All() {
		mat, ok := scenegraph.ComponentOf[*scenegraph.Material](n)
		if !ok || mat.Texture == nil {
			continue
		}
		stem := strings.TrimSuffix(filepath.Base(mat.Texture.Path), filepath.Ext(mat.Texture.Path))
		img := cache.Resolve(stem)
		if img == nil {
			continue
		}
		out := filepath.Join(dir, n.Name+"_"+stem+".webp")
		f, err := os.Create(out)
		if err != nil {
			fmt.Printf("  %s: %v\n", out, err)
			continue
		}
		err = texture.EncodePreview(f, img, size)
		f.Close()
		if err != nil {
			fmt.Printf("  %s: %v\n", out, err)
			continue
		}
		written++
	}
	fmt.Printf("Previews: %d written to %s\n", written, dir)
}
