// Package embedding turns datasets into encoded feature sets and persists
// them as gzip-compressed JSON under datasets/encoded/.
package embedding

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"training-workspace-service/internal/dataset"
	"training-workspace-service/internal/domain"
	"training-workspace-service/internal/encoder"
	"training-workspace-service/internal/imaging"
)

const (
	// TrainFile holds the encoded training split inside a set directory.
	TrainFile = "train.json.gz"
	// TestFile holds the encoded test split.
	TestFile = "test.json.gz"
)

// SplitFile maps a split name to its file name inside a set directory.
func SplitFile(split string) string { return split + ".json.gz" }

// Set is one encoded dataset split: raw (un-normalized) encoder projections
// in dataset scan order, with their labels and class names.
type Set struct {
	Model   string      `json:"model"`
	ModelID string      `json:"model_id"`
	Task    string      `json:"task"`
	Split   string      `json:"split"`
	Dim     int         `json:"dim"`
	Classes []string    `json:"classes,omitempty"`
	Vectors [][]float32 `json:"vectors"`
	Labels  []int       `json:"labels"`
}

// Count returns the number of encoded samples.
func (s *Set) Count() int { return len(s.Vectors) }

// Encode projects every sample through enc. Metadata fields (Model, ModelID,
// Task, Split) are left for the caller to fill in.
func Encode(enc *encoder.Encoder, samples []dataset.Sample, classes []string) (*Set, error) {
	if len(samples) == 0 {
		return nil, domain.ErrDatasetEmpty
	}

	vectors := make([][]float32, len(samples))
	labels := make([]int, len(samples))
	for i, s := range samples {
		x, err := imaging.LoadTensor(s.Path)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", s.Path, err)
		}
		vectors[i] = enc.Forward(x)
		labels[i] = s.Label
	}

	return &Set{
		Dim:     enc.OutFeatures,
		Classes: classes,
		Vectors: vectors,
		Labels:  labels,
	}, nil
}

// Validate checks internal consistency of a set.
func (s *Set) Validate() error {
	if len(s.Vectors) == 0 {
		return domain.ErrEmbeddingEmpty
	}
	if s.Dim <= 0 {
		return fmt.Errorf("%w: dim %d", domain.ErrEmbeddingCorrupt, s.Dim)
	}
	if len(s.Labels) != len(s.Vectors) {
		return fmt.Errorf("%w: %d vectors, %d labels", domain.ErrEmbeddingCorrupt, len(s.Vectors), len(s.Labels))
	}
	for i, v := range s.Vectors {
		if len(v) != s.Dim {
			return fmt.Errorf("%w: row %d has %d features, want %d", domain.ErrEmbeddingCorrupt, i, len(v), s.Dim)
		}
	}
	for i, l := range s.Labels {
		if l < 0 || (len(s.Classes) > 0 && l >= len(s.Classes)) {
			return fmt.Errorf("%w: row %d label %d", domain.ErrEmbeddingCorrupt, i, l)
		}
	}
	return nil
}

// Save writes the set to path, creating parent directories.
func (s *Set) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create embedding dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	zw := gzip.NewWriter(f)
	if err := json.NewEncoder(zw).Encode(s); err != nil {
		zw.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("flush %s: %w", path, err)
	}
	return f.Close()
}

// Load reads and validates a set from path.
func Load(path string) (*Set, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrEncodingNotFound, path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrEmbeddingCorrupt, path, err)
	}
	defer zr.Close()

	var s Set
	if err := json.NewDecoder(zr).Decode(&s); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrEmbeddingCorrupt, path, err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &s, nil
}
