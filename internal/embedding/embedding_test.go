package embedding

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"training-workspace-service/internal/dataset"
	"training-workspace-service/internal/domain"
	"training-workspace-service/internal/encoder"
	"training-workspace-service/internal/imaging"
	"training-workspace-service/internal/testutil"
)

func validSet() *Set {
	return &Set{
		Model:   "xclr",
		ModelID: "Aug21-10:30:00",
		Task:    "imgnet-s",
		Split:   "train",
		Dim:     2,
		Classes: []string{"cat", "dog"},
		Vectors: [][]float32{{1, 2}, {3, 4}, {5, 6}},
		Labels:  []int{0, 1, 1},
	}
}

func TestEncode_ProjectsInScanOrder(t *testing.T) {
	root := t.TempDir()
	testutil.WriteImageTree(t, root, 2, 2)
	tree, err := dataset.Scan(root)
	require.NoError(t, err)
	enc := encoder.New(imaging.FeatureDim, 8, 1)

	set, err := Encode(enc, tree.Samples, tree.ClassNames())

	require.NoError(t, err)
	assert.Equal(t, 4, set.Count())
	assert.Equal(t, 8, set.Dim)
	assert.Equal(t, []string{"class00", "class01"}, set.Classes)
	assert.Equal(t, []int{0, 0, 1, 1}, set.Labels)

	x, err := imaging.LoadTensor(tree.Samples[0].Path)
	require.NoError(t, err)
	assert.Equal(t, enc.Forward(x), set.Vectors[0])
}

func TestEncode_EmptySamples(t *testing.T) {
	enc := encoder.New(imaging.FeatureDim, 8, 1)

	_, err := Encode(enc, nil, nil)

	assert.ErrorIs(t, err, domain.ErrDatasetEmpty)
}

func TestEncode_UnreadableImage(t *testing.T) {
	enc := encoder.New(imaging.FeatureDim, 8, 1)
	samples := []dataset.Sample{{Path: filepath.Join(t.TempDir(), "gone.png"), Label: 0}}

	_, err := Encode(enc, samples, nil)

	assert.Error(t, err)
}

func TestValidate_AcceptsConsistentSet(t *testing.T) {
	assert.NoError(t, validSet().Validate())
}

func TestValidate_EmptyVectors(t *testing.T) {
	s := validSet()
	s.Vectors = nil

	assert.ErrorIs(t, s.Validate(), domain.ErrEmbeddingEmpty)
}

func TestValidate_LabelVectorCountMismatch(t *testing.T) {
	s := validSet()
	s.Labels = s.Labels[:2]

	assert.ErrorIs(t, s.Validate(), domain.ErrEmbeddingCorrupt)
}

func TestValidate_RaggedRow(t *testing.T) {
	s := validSet()
	s.Vectors[1] = []float32{9}

	assert.ErrorIs(t, s.Validate(), domain.ErrEmbeddingCorrupt)
}

func TestValidate_LabelOutsideClasses(t *testing.T) {
	s := validSet()
	s.Labels[2] = 7

	assert.ErrorIs(t, s.Validate(), domain.ErrEmbeddingCorrupt)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "encoded", "xclr", "b256", "imgnet-s", TrainFile)
	s := validSet()

	require.NoError(t, s.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, s, loaded)
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), TestFile))

	assert.ErrorIs(t, err, domain.ErrEncodingNotFound)
}

func TestLoad_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), TrainFile)
	require.NoError(t, os.WriteFile(path, []byte("not gzip"), 0o644))

	_, err := Load(path)

	assert.ErrorIs(t, err, domain.ErrEmbeddingCorrupt)
}

func TestLoad_RejectsInvalidContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), TrainFile)
	s := validSet()
	s.Labels[0] = -1
	require.NoError(t, s.Save(path))

	_, err := Load(path)

	assert.ErrorIs(t, err, domain.ErrEmbeddingCorrupt)
}

func TestSplitFile(t *testing.T) {
	assert.Equal(t, TrainFile, SplitFile("train"))
	assert.Equal(t, TestFile, SplitFile("test"))
}
