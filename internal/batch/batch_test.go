package batch

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"usd-scene-translator/internal/config"
	"usd-scene-translator/internal/stage"
	"usd-scene-translator/internal/stage/hclstage"
	"usd-scene-translator/internal/stage/snapshot"
)

const cubeHCL = `
prim "Xform" "World" {
  attributes = {
    "xformOp:transform" = [1, 0, 0, 5, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1]
  }

  prim "Mesh" "Cube" {
    attributes = {
      "points"            = [[0, 0, 0], [1, 0, 0], [1, 1, 0], [0, 1, 0]]
      "faceVertexCounts"  = [4]
      "faceVertexIndices" = [0, 1, 2, 3]
    }
  }
}
`

func session(t *testing.T) *stage.Session {
	t.Helper()
	s, err := stage.NewInitializer(hclstage.Format{}, snapshot.Format{}).Init()
	require.NoError(t, err)
	return s
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "cube.hcl")
	require.NoError(t, os.WriteFile(good, []byte(cubeHCL), 0o644))
	bad := filepath.Join(dir, "broken.hcl")
	require.NoError(t, os.WriteFile(bad, []byte(`prim "Xform" {`), 0o644))
	missing := filepath.Join(dir, "missing.hcl")

	settings := config.Default()
	settings.OutputDir = filepath.Join(dir, "out")
	settings.OutputFormat = ".usdpack"
	settings.Workers = 2
	s := session(t)

	var progress bytes.Buffer
	results, err := Run(context.Background(), Config{Session: s, Settings: settings, Progress: &progress, ProgressEvery: time.Hour},
		[]string{good, bad, missing})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.True(t, results[0].Success, results[0].Error)
	assert.Equal(t, filepath.Join(dir, "out", "cube.usdpack"), results[0].Output)
	assert.Equal(t, 3, results[0].Nodes)
	assert.False(t, results[1].Success)
	assert.NotEmpty(t, results[1].Error)
	assert.False(t, results[2].Success)

	out, err := s.Open(results[0].Output)
	require.NoError(t, err)
	cube, ok := out.Prim("/World/Cube")
	require.True(t, ok)
	assert.Equal(t, "Mesh", cube.TypeName)

	ok1, partial, failed := Summary(results)
	assert.Equal(t, [3]int{1, 0, 2}, [3]int{ok1, partial, failed})

	manifest := filepath.Join(dir, "manifest.json")
	require.NoError(t, WriteManifest(manifest, results))
	data, err := os.ReadFile(manifest)
	require.NoError(t, err)
	var entries []ManifestEntry
	require.NoError(t, json.Unmarshal(data, &entries))
	require.Len(t, entries, 3)
	assert.Equal(t, results[0].Output, entries[0].Output)
	assert.Empty(t, entries[1].Output)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	settings := config.Default()
	settings.Workers = 1
	_, err := Run(ctx, Config{Session: session(t), Settings: settings}, []string{"a.hcl"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOutputPath(t *testing.T) {
	settings := config.Default()
	assert.Equal(t, filepath.Join("scenes", "a.hcl"), OutputPath(settings, filepath.Join("scenes", "a.hcl")))
	settings.OutputDir = "out"
	settings.OutputFormat = ".usdpack"
	assert.Equal(t, filepath.Join("out", "a.usdpack"), OutputPath(settings, filepath.Join("scenes", "a.hcl")))
}

func TestRunRefusesToOverwriteInput(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "cube.hcl")
	require.NoError(t, os.WriteFile(in, []byte(cubeHCL), 0o644))
	results, err := Run(context.Background(), Config{Session: session(t), Settings: config.Default()}, []string{in})
	require.NoError(t, err)
	assert.False(t, results[0].Success)
	data, err := os.ReadFile(in)
	require.NoError(t, err)
	assert.Equal(t, cubeHCL, string(data))
}

func TestWatchRetranslatesOnWrite(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "cube.hcl")
	require.NoError(t, os.WriteFile(in, []byte(cubeHCL), 0o644))

	settings := config.Default()
	settings.OutputDir = filepath.Join(dir, "out")
	settings.OutputFormat = ".usdpack"

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	results := make(chan Result, 4)
	errc := make(chan error, 1)
	go func() {
		errc <- Watch(ctx, Config{Session: session(t), Settings: settings}, []string{in}, 20*time.Millisecond,
			func(r Result) { results <- r })
	}()

	// Rewrite until the watcher has registered and reported.
	var got Result
	require.Eventually(t, func() bool {
		select {
		case got = <-results:
			return true
		default:
			_ = os.WriteFile(in, []byte(cubeHCL), 0o644)
			return false
		}
	}, 5*time.Second, 50*time.Millisecond)

	assert.True(t, got.Success, got.Error)
	assert.FileExists(t, filepath.Join(dir, "out", "cube.usdpack"))

	cancel()
	assert.NoError(t, <-errc)
}
