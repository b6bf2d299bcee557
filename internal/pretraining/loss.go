package pretraining

import "math"

// NTXent computes the normalized-temperature cross-entropy loss over 2B
// L2-normalized embeddings where rows i and i+B are views of the same image.
// Returns the mean loss and dL/dz for every row.
func NTXent(z [][]float32, tau float64) (float64, [][]float32) {
	n := len(z)
	half := n / 2
	targets := make([][]float64, n)
	for i := range targets {
		row := make([]float64, n)
		row[(i+half)%n] = 1
		targets[i] = row
	}
	return softTargetCE(z, targets, tau)
}

// XCLR computes cross-entropy against label-derived soft targets: pairs that
// share a class get exp(1/tauS) relative weight, everything else weight 1,
// with the diagonal masked. labels must cover both views (length 2B).
func XCLR(z [][]float32, labels []int, tau, tauS float64) (float64, [][]float32) {
	n := len(z)
	hot := math.Exp(1 / tauS)
	targets := make([][]float64, n)
	for i := range targets {
		row := make([]float64, n)
		var sum float64
		for j := 0; j < n; j++ {
			if j == i {
				continue
			}
			w := 1.0
			if labels[i] == labels[j] {
				w = hot
			}
			row[j] = w
			sum += w
		}
		for j := range row {
			row[j] /= sum
		}
		targets[i] = row
	}
	return softTargetCE(z, targets, tau)
}

// softTargetCE evaluates the row-wise cross-entropy between the softmax over
// scaled cosine similarities and the given target rows. The diagonal of the
// similarity matrix is masked out. Returns the mean loss and dL/dz.
func softTargetCE(z [][]float32, targets [][]float64, tau float64) (float64, [][]float32) {
	n := len(z)
	k := len(z[0])

	sims := make([][]float64, n)
	for i := 0; i < n; i++ {
		row := make([]float64, n)
		for j := 0; j < n; j++ {
			if j == i {
				row[j] = math.Inf(-1)
				continue
			}
			var dot float64
			for d := 0; d < k; d++ {
				dot += float64(z[i][d]) * float64(z[j][d])
			}
			row[j] = dot / tau
		}
		sims[i] = row
	}

	var loss float64
	probs := make([][]float64, n)
	for i := 0; i < n; i++ {
		maxv := math.Inf(-1)
		for _, v := range sims[i] {
			if v > maxv {
				maxv = v
			}
		}
		var sum float64
		row := make([]float64, n)
		for j, v := range sims[i] {
			if math.IsInf(v, -1) {
				continue
			}
			e := math.Exp(v - maxv)
			row[j] = e
			sum += e
		}
		logSum := math.Log(sum)
		for j := range row {
			row[j] /= sum
			if targets[i][j] > 0 {
				loss -= targets[i][j] * (sims[i][j] - maxv - logSum)
			}
		}
		probs[i] = row
	}
	loss /= float64(n)

	// dL/ds = (P - Y)/n with a masked diagonal; z appears in s both as a row
	// and as a column, so dL/dz_i sums both contributions.
	grad := make([][]float32, n)
	for i := 0; i < n; i++ {
		g := make([]float64, k)
		for j := 0; j < n; j++ {
			if j == i {
				continue
			}
			c := (probs[i][j] - targets[i][j]) + (probs[j][i] - targets[j][i])
			if c == 0 {
				continue
			}
			c /= float64(n) * tau
			for d := 0; d < k; d++ {
				g[d] += c * float64(z[j][d])
			}
		}
		gf := make([]float32, k)
		for d := range g {
			gf[d] = float32(g[d])
		}
		grad[i] = gf
	}
	return loss, grad
}

// normalizeRows L2-normalizes each row, returning the normalized rows and the
// original norms. Zero rows stay zero and report norm 1 to keep the backward
// pass finite.
func normalizeRows(ys [][]float32) ([][]float32, []float32) {
	zs := make([][]float32, len(ys))
	norms := make([]float32, len(ys))
	for i, y := range ys {
		var sq float64
		for _, v := range y {
			sq += float64(v) * float64(v)
		}
		norm := math.Sqrt(sq)
		if norm == 0 {
			norm = 1
		}
		row := make([]float32, len(y))
		for d, v := range y {
			row[d] = float32(float64(v) / norm)
		}
		zs[i] = row
		norms[i] = float32(norm)
	}
	return zs, norms
}

// rawGrad backpropagates dL/dz through L2 normalization:
// dL/dy_i = (g_i - (g_i . z_i) z_i) / ||y_i||.
func rawGrad(gz, zs [][]float32, norms []float32) [][]float32 {
	out := make([][]float32, len(gz))
	for i, g := range gz {
		var dot float64
		for d, v := range g {
			dot += float64(v) * float64(zs[i][d])
		}
		row := make([]float32, len(g))
		for d, v := range g {
			row[d] = float32((float64(v) - dot*float64(zs[i][d])) / float64(norms[i]))
		}
		out[i] = row
	}
	return out
}
