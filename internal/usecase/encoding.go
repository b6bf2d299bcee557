package usecase

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"training-workspace-service/internal/dataset"
	"training-workspace-service/internal/domain"
	"training-workspace-service/internal/embedding"
	"training-workspace-service/internal/encoder"
	"training-workspace-service/internal/imaging"
	"training-workspace-service/internal/workspace"
)

// EncodingUseCase projects datasets through trained encoders and registers
// the resulting embedding sets.
type EncodingUseCase struct {
	sets   domain.EmbeddingSetRepository
	runs   domain.TrainingRunRepository
	layout workspace.Layout
}

func NewEncodingUseCase(
	sets domain.EmbeddingSetRepository,
	runs domain.TrainingRunRepository,
	layout workspace.Layout,
) *EncodingUseCase {
	return &EncodingUseCase{sets: sets, runs: runs, layout: layout}
}

// EncodeParams selects the encoder and the dataset to project. The encoder
// comes either from a registered run (RunID) or from an explicit checkpoint
// directory plus its model name. Name overrides the output directory segment,
// which otherwise is the task. When the dataset has no test split and
// TestFraction is positive, the train split is carved deterministically.
type EncodeParams struct {
	RunID          *uuid.UUID
	CheckpointPath string
	Model          string
	Task           string
	Name           string
	TestFraction   float64
	Seed           int64
}

func (uc *EncodingUseCase) Create(ctx context.Context, params EncodeParams) (*domain.EmbeddingSet, error) {
	if params.Task == "" {
		return nil, domain.ErrMissingDataset
	}

	var model domain.Algorithm
	var runID *uuid.UUID
	checkpointPath := params.CheckpointPath

	if params.RunID != nil {
		run, err := uc.runs.GetByID(ctx, *params.RunID)
		if err != nil {
			return nil, err
		}
		if run.CheckpointPath == "" {
			return nil, domain.ErrCheckpointNotFound
		}
		checkpointPath = run.CheckpointPath
		model = run.Algorithm
		runID = params.RunID
	} else {
		if checkpointPath == "" {
			return nil, domain.ErrMissingModelID
		}
		model = domain.Algorithm(params.Model)
		if !domain.ValidAlgorithm(model) {
			return nil, domain.ErrInvalidAlgorithm
		}
	}
	modelID := encoder.RunName(checkpointPath)

	enc, err := encoder.Load(checkpointPath)
	if err != nil {
		return nil, err
	}
	if enc.InFeatures != imaging.FeatureDim {
		return nil, domain.ErrEmbeddingDimMismatch
	}

	trainDir := uc.layout.SplitDir(params.Task, workspace.TrainSplit)
	testDir := uc.layout.SplitDir(params.Task, workspace.TestSplit)
	if _, statErr := os.Stat(trainDir); statErr != nil {
		// A task that is not a named dataset may be a bare image-folder
		// path; it is encoded without a test split.
		if dir, ok := uc.bareTaskDir(params.Task); ok {
			trainDir, testDir = dir, ""
		}
	}

	trainTree, err := dataset.Scan(trainDir)
	if err != nil {
		return nil, err
	}
	classes := trainTree.ClassNames()

	trainSamples := trainTree.Samples
	var testSamples []dataset.Sample

	if info, statErr := os.Stat(testDir); testDir != "" && statErr == nil && info.IsDir() {
		testTree, err := dataset.Scan(testDir)
		if err != nil {
			return nil, err
		}
		testSamples = testTree.Samples
	} else if params.TestFraction > 0 {
		trainSamples, testSamples = dataset.Split(trainTree.Samples, params.TestFraction, params.Seed)
	}

	dir := params.Name
	if dir == "" {
		dir = params.Task
	}
	setDir := uc.layout.EncodedSetDir(string(model), modelID, dir)

	trainSet, err := embedding.Encode(enc, trainSamples, classes)
	if err != nil {
		return nil, err
	}
	trainSet.Model = string(model)
	trainSet.ModelID = modelID
	trainSet.Task = params.Task
	trainSet.Split = workspace.TrainSplit

	trainPath := filepath.Join(setDir, embedding.TrainFile)
	if err := trainSet.Save(trainPath); err != nil {
		return nil, err
	}

	var testPath string
	var testCount int
	if len(testSamples) > 0 {
		testSet, err := embedding.Encode(enc, testSamples, classes)
		if err != nil {
			return nil, err
		}
		testSet.Model = string(model)
		testSet.ModelID = modelID
		testSet.Task = params.Task
		testSet.Split = workspace.TestSplit

		testPath = filepath.Join(setDir, embedding.TestFile)
		if err := testSet.Save(testPath); err != nil {
			return nil, err
		}
		testCount = testSet.Count()
	}

	set := &domain.EmbeddingSet{
		ID:         uuid.New(),
		CreatedAt:  time.Now(),
		RunID:      runID,
		Model:      model,
		ModelID:    modelID,
		Task:       params.Task,
		Name:       params.Name,
		Dim:        enc.OutFeatures,
		TrainPath:  trainPath,
		TestPath:   testPath,
		TrainCount: trainSet.Count(),
		TestCount:  testCount,
	}

	if err := uc.sets.Create(ctx, set); err != nil {
		return nil, err
	}
	return uc.sets.GetByID(ctx, set.ID)
}

// bareTaskDir resolves a task string as a literal image-folder directory,
// relative to the workspace root or absolute.
func (uc *EncodingUseCase) bareTaskDir(task string) (string, bool) {
	candidates := []string{task}
	if !filepath.IsAbs(task) {
		candidates = []string{filepath.Join(uc.layout.Root, task), task}
	}
	for _, dir := range candidates {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir, true
		}
	}
	return "", false
}

func (uc *EncodingUseCase) Get(ctx context.Context, id uuid.UUID) (*domain.EmbeddingSet, error) {
	return uc.sets.GetByID(ctx, id)
}

func (uc *EncodingUseCase) List(ctx context.Context, filter domain.EmbeddingListFilter) ([]*domain.EmbeddingSet, int, error) {
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	if filter.Limit > 100 {
		filter.Limit = 100
	}
	return uc.sets.List(ctx, filter)
}

// Delete removes the registry row and the encoded files on disk. File removal
// is best effort.
func (uc *EncodingUseCase) Delete(ctx context.Context, id uuid.UUID) error {
	set, err := uc.sets.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := uc.sets.Delete(ctx, id); err != nil {
		return err
	}

	if set.TrainPath != "" {
		if err := os.RemoveAll(filepath.Dir(set.TrainPath)); err != nil {
			log.WithError(err).WithField("embedding_set_id", id).Warn("failed to remove encoded files")
		}
	}
	return nil
}
