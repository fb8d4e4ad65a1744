package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"usd-scene-translator/internal/batch"
	"usd-scene-translator/internal/config"
	"usd-scene-translator/internal/ctxlog"
	"usd-scene-translator/internal/stage"
	"usd-scene-translator/internal/stage/hclstage"
	"usd-scene-translator/internal/stage/snapshot"
	"usd-scene-translator/internal/texture"
	"usd-scene-translator/internal/translate"
)

func main() {
	// CLI flags
	configFile := flag.String("config", "", "Path to config file (.json, .yaml or .toml)")
	outputDir := flag.String("out", "", "Output directory (default: next to each input)")
	format := flag.String("format", "", "Output extension: .hcl or .usdpack (default: .hcl)")
	basisFlag := flag.String("basis", "", "Basis conversion: none, exact, exact-mirror-x or fast")
	workers := flag.Int("workers", 0, "Number of worker goroutines (default: NumCPU)")
	textureDir := flag.String("textures", "", "Directory searched for material textures")
	logLevel := flag.String("log-level", "", "Log level: debug, info, warn or error")
	logFormat := flag.String("log-format", "", "Log format: text or json")
	manifest := flag.String("manifest", "", "Write a JSON manifest of the run to this path")
	watch := flag.Bool("watch", false, "Keep running and re-translate inputs when they change")

	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Usage: usdtranslate [flags] scene.hcl [scene.usdpack ...]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	// Load config
	cfg := config.Default()
	if *configFile != "" {
		var err error
		cfg, err = config.Load(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}

	// CLI flags override config file
	if err := cfg.Resolve(config.Flags{
		OutputDir:    *outputDir,
		OutputFormat: *format,
		TextureDir:   *textureDir,
		Basis:        *basisFlag,
		Workers:      *workers,
		LogLevel:     *logLevel,
		LogFormat:    *logFormat,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger := ctxlog.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	slog.SetDefault(logger)
	ctx, stop := signal.NotifyContext(ctxlog.WithLogger(context.Background(), logger), os.Interrupt)
	defer stop()

	session, err := stage.NewInitializer(hclstage.Format{}, snapshot.Format{}).Init()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if _, err := session.FormatFor("out" + cfg.OutputFormat); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Build texture index
	var textures translate.TextureResolver
	if cfg.TextureDir != "" {
		texIndex, err := texture.BuildIndex(cfg.TextureDir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: textures: %v\n", err)
		} else {
			textures = texture.NewCache(texIndex)
			fmt.Printf("Textures: %d indexed\n", texIndex.Len())
		}
	}

	inputs := flag.Args()
	batchCfg := batch.Config{
		Session:  session,
		Settings: cfg,
		Textures: textures,
		Progress: os.Stdout,
	}

	fmt.Printf("Scene translation: %d file(s), basis %s, workers %d\n", len(inputs), cfg.Basis, cfg.Workers)
	if cfg.OutputDir != "" {
		fmt.Printf("Output: %s\n", cfg.OutputDir)
	}
	fmt.Println("------------------------------------------------------------")

	start := time.Now()
	results, err := batch.Run(ctx, batchCfg, inputs)
	elapsed := time.Since(start)
	fmt.Println("------------------------------------------------------------")
	fmt.Printf("Done in %.1fs\n", elapsed.Seconds())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Interrupted: %v\n", err)
	}

	ok, partial, failed := batch.Summary(results)
	fmt.Printf("Translated: %d/%d (%d partial)\n", ok+partial, len(inputs), partial)

	if failed > 0 {
		fmt.Printf("\nFailed (%d):\n", failed)
		shown := 0
		for _, r := range results {
			if r.Success || r.Input == "" {
				continue
			}
			fmt.Printf("  %s: %s\n", r.Input, r.Error)
			if shown++; shown == 20 {
				break
			}
		}
	}

	// Write manifest
	if *manifest != "" {
		os.MkdirAll(filepath.Dir(*manifest), 0755)
		if err := batch.WriteManifest(*manifest, results); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: manifest write failed: %v\n", err)
		} else {
			fmt.Printf("Manifest: %s\n", *manifest)
		}
	}

	if *watch && ctx.Err() == nil {
		fmt.Println("Watching for changes (Ctrl+C to stop)...")
		err := batch.Watch(ctx, batchCfg, inputs, batch.DefaultSettle, func(r batch.Result) {
			if r.Success {
				fmt.Printf("  %s -> %s (%d nodes)\n", r.Input, r.Output, r.Nodes)
			} else {
				fmt.Printf("  %s: %s\n", r.Input, r.Error)
			}
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if failed > 0 {
		os.Exit(1)
	}
}
