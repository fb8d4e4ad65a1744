// Package batch translates many independent stage files concurrently.
package batch

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"usd-scene-translator/internal/config"
	"usd-scene-translator/internal/ctxlog"
	"usd-scene-translator/internal/scenegraph"
	"usd-scene-translator/internal/stage"
	"usd-scene-translator/internal/translate"
)

// Config holds all shared resources for a batch run.
type Config struct {
	Session  *stage.Session
	Settings config.Config
	// Textures is shared by every worker and must be safe for concurrent use.
	Textures translate.TextureResolver
	// Progress receives a rate line every ProgressEvery; nil disables it.
	Progress      io.Writer
	ProgressEvery time.Duration
}

// Result holds the outcome of translating one file.
type Result struct {
	Input   string
	Output  string
	Nodes   int
	Partial bool // translated, but some prims were skipped
	Success bool
	Error   string
}

// Run translates every input on at most Settings.Workers goroutines. Per-file
// failures are reported in the results; only cancellation of ctx aborts the
// run.
func Run(ctx context.Context, cfg Config, inputs []string) ([]Result, error) {
	total := len(inputs)
	results := make([]Result, total)
	var processed atomic.Int64

	start := time.Now()

	// Progress reporter
	done := make(chan struct{})
	defer close(done)
	if cfg.Progress != nil {
		every := cfg.ProgressEvery
		if every <= 0 {
			every = 2 * time.Second
		}
		go func() {
			ticker := time.NewTicker(every)
			defer ticker.Stop()
			for {
				select {
				case <-done:
					return
				case <-ticker.C:
					if p := processed.Load(); p > 0 {
						rate := float64(p) / time.Since(start).Seconds()
						fmt.Fprintf(cfg.Progress, "  [%d/%d] %.1f files/sec\n", p, total, rate)
					}
				}
			}
		}()
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(max(1, cfg.Settings.Workers))
	for i, in := range inputs {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = translateFile(ctx, cfg, in)
			processed.Add(1)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// OutputPath is where the translation of input is written.
func OutputPath(settings config.Config, input string) string {
	base := filepath.Base(input)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	dir := settings.OutputDir
	if dir == "" {
		dir = filepath.Dir(input)
	}
	return filepath.Join(dir, stem+settings.OutputFormat)
}

func translateFile(ctx context.Context, cfg Config, input string) Result {
	res := Result{Input: input, Output: OutputPath(cfg.Settings, input)}
	logger := ctxlog.FromContext(ctx).With("file", input)
	ctx = ctxlog.WithLogger(ctx, logger)

	if res.Output == input {
		res.Error = "output would overwrite input"
		return res
	}
	n, partial, err := TranslateFile(ctx, cfg.Session, cfg.Settings, cfg.Textures, input, res.Output)
	if err != nil {
		logger.Error("Translation failed.", "error", err)
		res.Error = err.Error()
		return res
	}
	res.Nodes, res.Partial, res.Success = n, partial, true
	return res
}

// TranslateFile imports input into a fresh node tree, exports the tree and
// saves it to output. It returns the number of translated nodes and whether
// any prim was skipped.
func TranslateFile(ctx context.Context, s *stage.Session, settings config.Config, textures translate.TextureResolver, input, output string) (int, bool, error) {
	src, err := s.Open(input)
	if err != nil {
		return 0, false, err
	}
	src.SetInterpolation(settings.Interpolation())

	base := filepath.Base(input)
	root := scenegraph.NewNode(strings.TrimSuffix(base, filepath.Ext(base)))
	idx, err := translate.BuildScene(ctx, src, root, settings.ImportOptions(textures))
	if err != nil {
		return 0, false, err
	}

	dst := stage.NewMemory()
	if err := translate.ExportScene(ctx, root, idx, dst, settings.ExportOptions(src.UpAxis())); err != nil {
		return 0, false, err
	}
	if err := s.Save(output, dst); err != nil {
		return 0, false, err
	}
	return idx.Len(), idx.HasErrors(), nil
}
