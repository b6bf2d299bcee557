package imaging

import "math/rand"

// Augmenter applies the random view transformations used during contrastive
// pretraining: horizontal flip, crop-resize and brightness jitter. It is not
// safe for concurrent use; each trainer owns one.
type Augmenter struct {
	rng *rand.Rand
}

func NewAugmenter(seed int64) *Augmenter {
	return &Augmenter{rng: rand.New(rand.NewSource(seed))}
}

// Apply returns an augmented copy of a FeatureDim tensor. The input is never
// modified.
func (a *Augmenter) Apply(t []float32) []float32 {
	out := make([]float32, len(t))
	copy(out, t)

	if a.rng.Float64() < 0.5 {
		flipHorizontal(out)
	}

	// Crop a sub-square of side 12..16 and resize back by nearest sampling.
	side := 12 + a.rng.Intn(5)
	if side < Side {
		ox := a.rng.Intn(Side - side + 1)
		oy := a.rng.Intn(Side - side + 1)
		out = cropResize(out, ox, oy, side)
	}

	scale := float32(0.6 + a.rng.Float64()*0.8)
	for i := range out {
		v := out[i] * scale
		if v > 1 {
			v = 1
		}
		out[i] = v
	}
	return out
}

func flipHorizontal(t []float32) {
	for y := 0; y < Side; y++ {
		for x := 0; x < Side/2; x++ {
			a := (y*Side + x) * Channels
			b := (y*Side + (Side - 1 - x)) * Channels
			for c := 0; c < Channels; c++ {
				t[a+c], t[b+c] = t[b+c], t[a+c]
			}
		}
	}
}

func cropResize(t []float32, ox, oy, side int) []float32 {
	out := make([]float32, FeatureDim)
	for ty := 0; ty < Side; ty++ {
		sy := oy + ty*side/Side
		for tx := 0; tx < Side; tx++ {
			sx := ox + tx*side/Side
			src := (sy*Side + sx) * Channels
			dst := (ty*Side + tx) * Channels
			copy(out[dst:dst+Channels], t[src:src+Channels])
		}
	}
	return out
}
