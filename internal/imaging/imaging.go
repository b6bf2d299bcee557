// Package imaging turns image files into fixed-size float tensors for the
// linear encoder, and provides the random augmentations used to build
// contrastive views.
package imaging

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
)

const (
	// Side is the edge length images are box-downsampled to.
	Side = 16
	// Channels is RGB.
	Channels = 3
	// FeatureDim is the flattened tensor length: Side·Side·Channels.
	FeatureDim = Side * Side * Channels
)

// LoadTensor decodes an image file and downsamples it to a FeatureDim-length
// tensor of interleaved RGB values in [0,1].
func LoadTensor(path string) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode image %s: %w", path, err)
	}
	return Downsample(img), nil
}

// Downsample box-averages an image onto a Side×Side RGB grid. Source cells
// are computed independently per axis, so non-square inputs keep full
// coverage.
func Downsample(img image.Image) []float32 {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	out := make([]float32, FeatureDim)

	for ty := 0; ty < Side; ty++ {
		sy0 := bounds.Min.Y + ty*h/Side
		sy1 := bounds.Min.Y + (ty+1)*h/Side
		if sy1 <= sy0 {
			sy1 = sy0 + 1
		}
		for tx := 0; tx < Side; tx++ {
			sx0 := bounds.Min.X + tx*w/Side
			sx1 := bounds.Min.X + (tx+1)*w/Side
			if sx1 <= sx0 {
				sx1 = sx0 + 1
			}

			var r, g, b, n uint64
			for y := sy0; y < sy1; y++ {
				for x := sx0; x < sx1; x++ {
					cr, cg, cb, _ := img.At(x, y).RGBA()
					r += uint64(cr >> 8)
					g += uint64(cg >> 8)
					b += uint64(cb >> 8)
					n++
				}
			}

			i := (ty*Side + tx) * Channels
			out[i] = float32(r) / float32(n) / 255
			out[i+1] = float32(g) / float32(n) / 255
			out[i+2] = float32(b) / float32(n) / 255
		}
	}
	return out
}
