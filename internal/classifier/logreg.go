// Package classifier trains and evaluates multinomial logistic-regression
// probes over encoded datasets, persisting fitted models as gzip-compressed
// JSON under checkpoints/classifiers/.
package classifier

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"training-workspace-service/internal/domain"
)

// ModelFile is the fitted model file inside a classifier directory.
const ModelFile = "model.json.gz"

// TrainConfig controls the gradient-descent fit. Zero fields fall back to
// defaults.
type TrainConfig struct {
	LR      float64
	L2      float64
	MaxIter int
	Tol     float64
}

func (c *TrainConfig) applyDefaults() {
	if c.LR <= 0 {
		c.LR = 0.1
	}
	if c.L2 <= 0 {
		c.L2 = 1e-4
	}
	if c.MaxIter <= 0 {
		c.MaxIter = 1000
	}
	if c.Tol <= 0 {
		c.Tol = 1e-4
	}
}

// Model is a fitted multinomial logistic regression with the feature scaler
// it was trained with.
type Model struct {
	Classes int         `json:"classes"`
	Dim     int         `json:"dim"`
	W       [][]float64 `json:"weights"`
	B       []float64   `json:"bias"`
	Scaler  *Scaler     `json:"scaler"`
	Iters   int         `json:"iterations"`
	Loss    float64     `json:"final_loss"`
}

// Train fits a model by full-batch gradient descent on the softmax
// cross-entropy with L2 regularization. The scaler is fitted on the training
// vectors only.
func Train(vectors [][]float32, labels []int, classes int, cfg TrainConfig) (*Model, error) {
	if len(vectors) == 0 {
		return nil, domain.ErrEmbeddingEmpty
	}
	if len(labels) != len(vectors) {
		return nil, fmt.Errorf("%w: %d vectors, %d labels", domain.ErrEmbeddingCorrupt, len(vectors), len(labels))
	}
	if classes < 2 {
		return nil, fmt.Errorf("%w: need at least 2 classes, got %d", domain.ErrLabelOutOfRange, classes)
	}
	dim := len(vectors[0])
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("%w: row %d has %d features, want %d", domain.ErrEmbeddingDimMismatch, i, len(v), dim)
		}
	}
	for i, l := range labels {
		if l < 0 || l >= classes {
			return nil, fmt.Errorf("%w: row %d label %d outside [0,%d)", domain.ErrLabelOutOfRange, i, l, classes)
		}
	}
	cfg.applyDefaults()

	scaler := FitScaler(vectors)
	xs := scaler.Transform(vectors)
	n := float64(len(xs))

	m := &Model{
		Classes: classes,
		Dim:     dim,
		W:       make([][]float64, classes),
		B:       make([]float64, classes),
		Scaler:  scaler,
	}
	for c := range m.W {
		m.W[c] = make([]float64, dim)
	}

	gw := make([][]float64, classes)
	for c := range gw {
		gw[c] = make([]float64, dim)
	}
	gb := make([]float64, classes)

	prev := math.Inf(1)
	for iter := 0; iter < cfg.MaxIter; iter++ {
		for c := range gw {
			for d := range gw[c] {
				gw[c][d] = 0
			}
			gb[c] = 0
		}

		var loss float64
		probs := make([]float64, classes)
		for i, x := range xs {
			m.logits(x, probs)
			softmaxInPlace(probs)
			loss -= math.Log(math.Max(probs[labels[i]], 1e-12))

			for c := 0; c < classes; c++ {
				diff := probs[c]
				if c == labels[i] {
					diff--
				}
				if diff == 0 {
					continue
				}
				gb[c] += diff
				row := gw[c]
				for d, xv := range x {
					row[d] += diff * xv
				}
			}
		}
		loss /= n

		for c := 0; c < classes; c++ {
			for d := 0; d < dim; d++ {
				w := m.W[c][d]
				loss += 0.5 * cfg.L2 * w * w
				m.W[c][d] = w - cfg.LR*(gw[c][d]/n+cfg.L2*w)
			}
			m.B[c] -= cfg.LR * gb[c] / n
		}

		m.Iters = iter + 1
		m.Loss = loss
		if math.Abs(prev-loss) < cfg.Tol {
			break
		}
		prev = loss
	}

	return m, nil
}

func (m *Model) logits(x []float64, out []float64) {
	for c, row := range m.W {
		sum := m.B[c]
		for d, w := range row {
			sum += w * x[d]
		}
		out[c] = sum
	}
}

func softmaxInPlace(v []float64) {
	maxv := v[0]
	for _, x := range v[1:] {
		if x > maxv {
			maxv = x
		}
	}
	var sum float64
	for i, x := range v {
		e := math.Exp(x - maxv)
		v[i] = e
		sum += e
	}
	for i := range v {
		v[i] /= sum
	}
}

// Predict returns the most likely class for one raw (unscaled) vector.
func (m *Model) Predict(x []float32) (int, error) {
	if len(x) != m.Dim {
		return 0, fmt.Errorf("%w: %d features, want %d", domain.ErrEmbeddingDimMismatch, len(x), m.Dim)
	}
	scaled := m.Scaler.Transform([][]float32{x})[0]
	logits := make([]float64, m.Classes)
	m.logits(scaled, logits)

	best := 0
	for c, v := range logits {
		if v > logits[best] {
			best = c
		}
	}
	return best, nil
}

// Evaluate returns classification accuracy over a labelled set.
func (m *Model) Evaluate(vectors [][]float32, labels []int) (float64, error) {
	if len(vectors) == 0 {
		return 0, domain.ErrEmbeddingEmpty
	}
	if len(labels) != len(vectors) {
		return 0, fmt.Errorf("%w: %d vectors, %d labels", domain.ErrEmbeddingCorrupt, len(vectors), len(labels))
	}

	var correct int
	for i, v := range vectors {
		pred, err := m.Predict(v)
		if err != nil {
			return 0, err
		}
		if pred == labels[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(vectors)), nil
}

// Save writes the model into dir as ModelFile, creating dir if needed.
func (m *Model) Save(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create classifier dir: %w", err)
	}
	path := filepath.Join(dir, ModelFile)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	zw := gzip.NewWriter(f)
	if err := json.NewEncoder(zw).Encode(m); err != nil {
		zw.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("flush %s: %w", path, err)
	}
	return f.Close()
}

// Load reads a fitted model from a classifier directory or file path.
func Load(path string) (*Model, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrCheckpointNotFound, path)
	}
	if info.IsDir() {
		path = filepath.Join(path, ModelFile)
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrCheckpointNotFound, path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrCheckpointCorrupt, path, err)
	}
	defer zr.Close()

	var m Model
	if err := json.NewDecoder(zr).Decode(&m); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrCheckpointCorrupt, path, err)
	}
	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrCheckpointCorrupt, path, err)
	}
	return &m, nil
}

func (m *Model) validate() error {
	if m.Classes < 2 || m.Dim <= 0 {
		return fmt.Errorf("inconsistent dimensions")
	}
	if len(m.W) != m.Classes || len(m.B) != m.Classes {
		return fmt.Errorf("inconsistent dimensions")
	}
	for _, row := range m.W {
		if len(row) != m.Dim {
			return fmt.Errorf("inconsistent dimensions")
		}
	}
	if m.Scaler == nil || len(m.Scaler.Mean) != m.Dim || len(m.Scaler.Std) != m.Dim {
		return fmt.Errorf("missing or inconsistent scaler")
	}
	return nil
}

// IDForData derives a classifier identifier from the encoded-data path it was
// trained on, replacing path separators with dots.
func IDForData(dataPath string) string {
	p := filepath.ToSlash(dataPath)
	p = strings.Trim(p, "/")
	return strings.ReplaceAll(p, "/", ".")
}
