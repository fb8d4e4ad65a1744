package texture

import (
	"fmt"
	"image"
	"io"

	"github.com/HugoSmits86/nativewebp"
	"golang.org/x/image/draw"
)

// summarySize is the edge of the thumbnail the average colour is taken from.
const summarySize = 16

// Downsample reduces image size with premultiplied-alpha-aware CatmullRom
// filtering so transparent texels do not darken the edges. Images already
// within targetSize are returned as is.
func Downsample(img *image.NRGBA, targetSize int) *image.NRGBA {
	b := img.Bounds()
	if b.Dx() <= targetSize && b.Dy() <= targetSize {
		return img
	}
	w, h := fit(b.Dx(), b.Dy(), targetSize)

	premul := image.NewRGBA(b)
	draw.Draw(premul, b, img, b.Min, draw.Src)

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), premul, premul.Bounds(), draw.Src, nil)

	// Unpremultiply alpha
	result := image.NewNRGBA(dst.Bounds())
	for i := 0; i < len(dst.Pix); i += 4 {
		a := float64(dst.Pix[i+3])
		if a > 1 {
			inv := 255.0 / a
			result.Pix[i] = clamp8(float64(dst.Pix[i]) * inv)
			result.Pix[i+1] = clamp8(float64(dst.Pix[i+1]) * inv)
			result.Pix[i+2] = clamp8(float64(dst.Pix[i+2]) * inv)
		}
		result.Pix[i+3] = dst.Pix[i+3]
	}
	return result
}

// fit scales w×h so the longer edge is size, keeping at least one pixel.
func fit(w, h, size int) (int, int) {
	if w >= h {
		return size, max(1, h*size/w)
	}
	return max(1, w*size/h), size
}

// AverageColor returns the mean non-premultiplied colour of img in [0,1],
// taken from a small downsampled copy. Fully transparent texels are ignored
// for the colour channels.
func AverageColor(img *image.NRGBA) [4]float32 {
	small := Downsample(img, summarySize)
	var sum [4]float64
	var opaque float64
	b := small.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			i := small.PixOffset(x, y)
			a := float64(small.Pix[i+3]) / 255
			sum[3] += a
			if a == 0 {
				continue
			}
			opaque++
			for c := range 3 {
				sum[c] += float64(small.Pix[i+c]) / 255
			}
		}
	}
	n := float64(b.Dx() * b.Dy())
	if n == 0 {
		return [4]float32{}
	}
	var out [4]float32
	if opaque > 0 {
		for c := range 3 {
			out[c] = float32(sum[c] / opaque)
		}
	}
	out[3] = float32(sum[3] / n)
	return out
}

// EncodePreview writes a lossless WebP thumbnail of img no larger than size.
func EncodePreview(w io.Writer, img *image.NRGBA, size int) error {
	if err := nativewebp.Encode(w, Downsample(img, size), nil); err != nil {
		return fmt.Errorf("texture: encode preview: %w", err)
	}
	return nil
}

func clamp8(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}
