package texture

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/HugoSmits86/nativewebp"
	"github.com/ftrvxmtrx/tga"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	"golang.org/x/image/webp"
)

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func writeJPEG(t *testing.T, path string, img image.Image) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, jpeg.Encode(f, img, nil))
}

func TestIndexPrefersAlphaFormats(t *testing.T) {
	dir := t.TempDir()
	red := solid(4, 4, color.NRGBA{255, 0, 0, 255})
	writeJPEG(t, filepath.Join(dir, "Wood.jpg"), red)
	writePNG(t, filepath.Join(dir, "sub", "wood.png"), red)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	idx, err := BuildIndex(dir)
	require.NoError(t, err)
	assert.Equal(t, 1, idx.Len())

	tests := []struct {
		name string
		ref  string
		ok   bool
	}{
		{"bare stem", "wood", true},
		{"asset path", "textures/WOOD.tga", true},
		{"windows separators", `C:\art\wood.jpg`, true},
		{"unknown", "stone.png", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, ok := idx.ResolvePath(tt.ref)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, filepath.Join(dir, "sub", "wood.png"), path)
			}
		})
	}
}

func TestLoadTextureByExtension(t *testing.T) {
	want := color.NRGBA{0, 0, 255, 255}
	tests := []struct {
		ext    string
		encode func(io.Writer, image.Image) error
	}{
		{".png", png.Encode},
		{".jpg", func(w io.Writer, m image.Image) error { return jpeg.Encode(w, m, nil) }},
		{".jpeg", func(w io.Writer, m image.Image) error { return jpeg.Encode(w, m, nil) }},
		{".tga", tga.Encode},
		{".webp", func(w io.Writer, m image.Image) error { return nativewebp.Encode(w, m, nil) }},
		{".bmp", bmp.Encode},
		{".tif", func(w io.Writer, m image.Image) error { return tiff.Encode(w, m, nil) }},
		{".tiff", func(w io.Writer, m image.Image) error { return tiff.Encode(w, m, nil) }},
	}
	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, tt.encode(&buf, solid(4, 3, want)))
			path := filepath.Join(t.TempDir(), "blue"+tt.ext)
			require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

			img, err := LoadTexture(path)
			require.NoError(t, err)
			assert.Equal(t, image.Rect(0, 0, 4, 3), img.Bounds())
			got := img.NRGBAAt(1, 1)
			assert.InDelta(t, want.R, got.R, 8)
			assert.InDelta(t, want.B, got.B, 8)
			assert.Equal(t, want.A, got.A)
		})
	}
}

func TestLoadTextureRejectsMismatchedContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fake.png")
	require.NoError(t, os.WriteFile(path, []byte("not a png"), 0o644))
	_, err := LoadTexture(path)
	assert.ErrorContains(t, err, "fake.png")
}

func TestBuildIndexMissingDir(t *testing.T) {
	_, err := BuildIndex(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestCacheResolveTexture(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "blue.png"), solid(64, 32, color.NRGBA{0, 0, 255, 255}))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.png"), []byte("not a png"), 0o644))
	idx, err := BuildIndex(dir)
	require.NoError(t, err)
	c := NewCache(idx)

	info, ok := c.ResolveTexture("blue")
	require.True(t, ok)
	assert.Equal(t, 64, info.Width)
	assert.Equal(t, 32, info.Height)
	assert.InDelta(t, 0, info.Average[0], 1e-3)
	assert.InDelta(t, 1, info.Average[2], 1e-3)
	assert.InDelta(t, 1, info.Average[3], 1e-3)
	assert.Same(t, c.Resolve("blue"), c.Resolve("BLUE.png"))

	_, ok = c.ResolveTexture("broken")
	assert.False(t, ok)
	assert.Nil(t, c.Resolve("missing"))
}

func TestAverageColorIgnoresTransparentTexels(t *testing.T) {
	img := solid(2, 1, color.NRGBA{0, 255, 0, 255})
	copy(img.Pix[4:], []uint8{255, 0, 0, 0})

	avg := AverageColor(img)
	assert.InDelta(t, 0, avg[0], 1e-6)
	assert.InDelta(t, 1, avg[1], 1e-6)
	assert.InDelta(t, 0.5, avg[3], 1e-6)
}

func TestDownsampleKeepsAspect(t *testing.T) {
	got := Downsample(solid(200, 100, color.NRGBA{10, 20, 30, 255}), 50)
	assert.Equal(t, image.Rect(0, 0, 50, 25), got.Bounds())
	assert.Equal(t, uint8(20), got.Pix[1])

	small := solid(8, 8, color.NRGBA{})
	assert.Same(t, small, Downsample(small, 50))
}

func TestEncodePreview(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodePreview(&buf, solid(128, 64, color.NRGBA{200, 100, 50, 255}), 32))

	img, err := webp.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 32, 16), img.Bounds())
}
