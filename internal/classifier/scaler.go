package classifier

import "math"

// Scaler standardizes features to zero mean and unit variance. Zero-variance
// features keep Std 1 so Transform never divides by zero.
type Scaler struct {
	Mean []float64 `json:"mean"`
	Std  []float64 `json:"std"`
}

// FitScaler computes per-feature mean and standard deviation over xs.
func FitScaler(xs [][]float32) *Scaler {
	dim := len(xs[0])
	n := float64(len(xs))

	mean := make([]float64, dim)
	for _, x := range xs {
		for d, v := range x {
			mean[d] += float64(v)
		}
	}
	for d := range mean {
		mean[d] /= n
	}

	std := make([]float64, dim)
	for _, x := range xs {
		for d, v := range x {
			diff := float64(v) - mean[d]
			std[d] += diff * diff
		}
	}
	for d := range std {
		std[d] = math.Sqrt(std[d] / n)
		if std[d] == 0 {
			std[d] = 1
		}
	}

	return &Scaler{Mean: mean, Std: std}
}

// Transform standardizes xs using the fitted statistics.
func (s *Scaler) Transform(xs [][]float32) [][]float64 {
	out := make([][]float64, len(xs))
	for i, x := range xs {
		row := make([]float64, len(x))
		for d, v := range x {
			row[d] = (float64(v) - s.Mean[d]) / s.Std[d]
		}
		out[i] = row
	}
	return out
}
