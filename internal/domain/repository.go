package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type RunListFilter struct {
	Status    string
	Algorithm string
	Limit     int
	Offset    int
}

type EmbeddingListFilter struct {
	Model   string
	ModelID string
	Task    string
	Limit   int
	Offset  int
}

type EvalListFilter struct {
	EmbeddingSetID *uuid.UUID
	Limit          int
	Offset         int
}

type TrainingRunRepository interface {
	Create(ctx context.Context, run *TrainingRun) error
	GetByID(ctx context.Context, id uuid.UUID) (*TrainingRun, error)
	List(ctx context.Context, filter RunListFilter) ([]*TrainingRun, int, error)
	UpdateCheckpoint(ctx context.Context, id uuid.UUID, checkpointPath string) error
	UpdateProgress(ctx context.Context, id uuid.UUID, epoch int, loss float64) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status RunStatus, errMsg string, finishedAt *time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type EmbeddingSetRepository interface {
	Create(ctx context.Context, set *EmbeddingSet) error
	GetByID(ctx context.Context, id uuid.UUID) (*EmbeddingSet, error)
	List(ctx context.Context, filter EmbeddingListFilter) ([]*EmbeddingSet, int, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type ClassifierEvalRepository interface {
	Create(ctx context.Context, eval *ClassifierEval) error
	GetByID(ctx context.Context, id uuid.UUID) (*ClassifierEval, error)
	List(ctx context.Context, filter EvalListFilter) ([]*ClassifierEval, int, error)
}
