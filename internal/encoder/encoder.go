// Package encoder implements the linear image encoder: a single projection
// from flattened image tensors to embedding space, checkpointed as
// gzip-compressed JSON.
package encoder

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"

	"training-workspace-service/internal/domain"
)

// CheckpointFile is the encoder state file written into a run directory.
const CheckpointFile = "encoder.json.gz"

// Encoder projects InFeatures-length tensors to OutFeatures-length
// embeddings: y = W·x + b.
type Encoder struct {
	Algorithm   string      `json:"algorithm,omitempty"`
	Epoch       int         `json:"epoch,omitempty"`
	InFeatures  int         `json:"in_features"`
	OutFeatures int         `json:"out_features"`
	W           [][]float32 `json:"weights"`
	B           []float32   `json:"bias"`
}

// New initializes weights from a seeded Gaussian scaled by sqrt(2/in).
func New(in, out int, seed int64) *Encoder {
	rng := rand.New(rand.NewSource(seed))
	std := math.Sqrt(2 / float64(in))

	w := make([][]float32, out)
	for i := range w {
		row := make([]float32, in)
		for j := range row {
			row[j] = float32(rng.NormFloat64() * std)
		}
		w[i] = row
	}
	return &Encoder{
		InFeatures:  in,
		OutFeatures: out,
		W:           w,
		B:           make([]float32, out),
	}
}

// Forward computes one projection.
func (e *Encoder) Forward(x []float32) []float32 {
	y := make([]float32, e.OutFeatures)
	for i, row := range e.W {
		sum := e.B[i]
		for j, v := range row {
			sum += v * x[j]
		}
		y[i] = sum
	}
	return y
}

// ForwardBatch projects every row.
func (e *Encoder) ForwardBatch(xs [][]float32) [][]float32 {
	ys := make([][]float32, len(xs))
	for i, x := range xs {
		ys[i] = e.Forward(x)
	}
	return ys
}

// Save writes the encoder into dir as CheckpointFile, creating dir if needed.
func (e *Encoder) Save(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create checkpoint dir: %w", err)
	}
	return writeGzJSON(filepath.Join(dir, CheckpointFile), e)
}

// RunName derives a run identifier from a checkpoint path: the base name of
// the run directory, whether path names the directory or the file inside it.
func RunName(path string) string {
	p := filepath.Clean(path)
	if filepath.Base(p) == CheckpointFile {
		p = filepath.Dir(p)
	}
	return filepath.Base(p)
}

// Load reads an encoder checkpoint. Path may be the checkpoint file itself or
// a run directory containing it.
func Load(path string) (*Encoder, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrCheckpointNotFound, path)
	}
	if info.IsDir() {
		path = filepath.Join(path, CheckpointFile)
	}

	var e Encoder
	if err := readGzJSON(path, &e); err != nil {
		return nil, err
	}

	if e.InFeatures <= 0 || e.OutFeatures <= 0 ||
		len(e.W) != e.OutFeatures || len(e.B) != e.OutFeatures {
		return nil, fmt.Errorf("%w: %s: inconsistent dimensions", domain.ErrCheckpointCorrupt, path)
	}
	for _, row := range e.W {
		if len(row) != e.InFeatures {
			return nil, fmt.Errorf("%w: %s: inconsistent dimensions", domain.ErrCheckpointCorrupt, path)
		}
	}
	return &e, nil
}

func writeGzJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	zw := gzip.NewWriter(f)
	if err := json.NewEncoder(zw).Encode(v); err != nil {
		zw.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("flush %s: %w", path, err)
	}
	return f.Close()
}

func readGzJSON(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", domain.ErrCheckpointNotFound, path)
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrCheckpointCorrupt, path, err)
	}
	defer zr.Close()

	if err := json.NewDecoder(zr).Decode(v); err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrCheckpointCorrupt, path, err)
	}
	return nil
}
