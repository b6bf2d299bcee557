package usecase

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"training-workspace-service/internal/classifier"
	"training-workspace-service/internal/domain"
	"training-workspace-service/internal/embedding"
	"training-workspace-service/internal/workspace"
)

// ClassifierUseCase trains logistic-regression probes on embedding sets and
// records their test accuracy.
type ClassifierUseCase struct {
	evals  domain.ClassifierEvalRepository
	sets   domain.EmbeddingSetRepository
	layout workspace.Layout
}

func NewClassifierUseCase(
	evals domain.ClassifierEvalRepository,
	sets domain.EmbeddingSetRepository,
	layout workspace.Layout,
) *ClassifierUseCase {
	return &ClassifierUseCase{evals: evals, sets: sets, layout: layout}
}

// EvaluateParams selects the embedding set to probe. MaxIter 0 uses the
// solver default.
type EvaluateParams struct {
	EmbeddingSetID uuid.UUID
	MaxIter        int
}

func (uc *ClassifierUseCase) Evaluate(ctx context.Context, params EvaluateParams) (*domain.ClassifierEval, error) {
	set, err := uc.sets.GetByID(ctx, params.EmbeddingSetID)
	if err != nil {
		return nil, err
	}
	if set.TestPath == "" {
		return nil, fmt.Errorf("%w: embedding set %s has no test split", domain.ErrEmbeddingEmpty, set.ID)
	}

	trainSet, err := embedding.Load(set.TrainPath)
	if err != nil {
		return nil, err
	}
	testSet, err := embedding.Load(set.TestPath)
	if err != nil {
		return nil, err
	}
	if trainSet.Dim != testSet.Dim {
		return nil, fmt.Errorf("%w: train dim %d, test dim %d", domain.ErrEmbeddingDimMismatch, trainSet.Dim, testSet.Dim)
	}

	classes := len(trainSet.Classes)
	if classes == 0 {
		for _, l := range trainSet.Labels {
			if l+1 > classes {
				classes = l + 1
			}
		}
		for _, l := range testSet.Labels {
			if l+1 > classes {
				classes = l + 1
			}
		}
	}

	if params.MaxIter <= 0 {
		params.MaxIter = 1000
	}

	model, err := classifier.Train(trainSet.Vectors, trainSet.Labels, classes, classifier.TrainConfig{
		MaxIter: params.MaxIter,
	})
	if err != nil {
		return nil, err
	}

	accuracy, err := model.Evaluate(testSet.Vectors, testSet.Labels)
	if err != nil {
		return nil, err
	}

	saveDir := filepath.Join(uc.layout.ClassifierCheckpoints(), uc.classifierID(set))
	if err := model.Save(saveDir); err != nil {
		return nil, err
	}

	eval := &domain.ClassifierEval{
		ID:             uuid.New(),
		CreatedAt:      time.Now(),
		EmbeddingSetID: set.ID,
		ClassifierPath: saveDir,
		Accuracy:       accuracy,
		TrainSamples:   trainSet.Count(),
		TestSamples:    testSet.Count(),
		MaxIter:        params.MaxIter,
	}

	if err := uc.evals.Create(ctx, eval); err != nil {
		return nil, err
	}
	return uc.evals.GetByID(ctx, eval.ID)
}

// classifierID names the saved probe after the encoded data it was trained
// on, relative to the workspace root.
func (uc *ClassifierUseCase) classifierID(set *domain.EmbeddingSet) string {
	setDir := filepath.Dir(set.TrainPath)
	if rel, err := filepath.Rel(uc.layout.Root, setDir); err == nil {
		return classifier.IDForData(rel)
	}
	return classifier.IDForData(setDir)
}

func (uc *ClassifierUseCase) Get(ctx context.Context, id uuid.UUID) (*domain.ClassifierEval, error) {
	return uc.evals.GetByID(ctx, id)
}

func (uc *ClassifierUseCase) List(ctx context.Context, filter domain.EvalListFilter) ([]*domain.ClassifierEval, int, error) {
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	if filter.Limit > 100 {
		filter.Limit = 100
	}
	return uc.evals.List(ctx, filter)
}
