// Package workspace owns the on-disk conventions of a training workspace:
// where datasets, encoded embeddings and checkpoints live, and how a tree is
// scaffolded and verified against a manifest.
package workspace

import "path/filepath"

const (
	DatasetsDir              = "datasets"
	EncodedDir               = "datasets/encoded"
	CheckpointsDir           = "checkpoints"
	EncoderCheckpointsDir    = "checkpoints/encoders"
	ClassifierCheckpointsDir = "checkpoints/classifiers"

	// PrimaryDataset is the dataset the workspace is provisioned around.
	PrimaryDataset = "ImageNet-S-50"

	TrainSplit = "train"
	TestSplit  = "test"
)

// Layout resolves the conventional paths beneath a workspace root.
type Layout struct {
	Root string
}

func NewLayout(root string) Layout {
	return Layout{Root: filepath.Clean(root)}
}

func (l Layout) Datasets() string {
	return filepath.Join(l.Root, DatasetsDir)
}

func (l Layout) Encoded() string {
	return filepath.Join(l.Root, EncodedDir)
}

func (l Layout) Checkpoints() string {
	return filepath.Join(l.Root, CheckpointsDir)
}

func (l Layout) EncoderCheckpoints() string {
	return filepath.Join(l.Root, EncoderCheckpointsDir)
}

func (l Layout) ClassifierCheckpoints() string {
	return filepath.Join(l.Root, ClassifierCheckpointsDir)
}

// DatasetDir is the root of one named dataset, e.g. datasets/ImageNet-S-50.
func (l Layout) DatasetDir(name string) string {
	return filepath.Join(l.Datasets(), name)
}

// SplitDir is one split of a named dataset, e.g. datasets/ImageNet-S-50/train.
func (l Layout) SplitDir(name, split string) string {
	return filepath.Join(l.DatasetDir(name), split)
}

// EncoderRunBase is where run directories for one algorithm are created,
// e.g. checkpoints/encoders/simclr.
func (l Layout) EncoderRunBase(algorithm string) string {
	return filepath.Join(l.EncoderCheckpoints(), algorithm)
}

// EncodedSetDir is where one encoded dataset is saved,
// e.g. datasets/encoded/xclr/b256_AdamW_3e-4/imgnet-s.
func (l Layout) EncodedSetDir(model, modelID, dir string) string {
	return filepath.Join(l.Encoded(), model, modelID, dir)
}
