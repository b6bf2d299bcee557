package testutil

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"training-workspace-service/internal/domain"
	"training-workspace-service/internal/kube"
)

// MockTrainingRunRepo is a mock of TrainingRunRepository.
type MockTrainingRunRepo struct {
	mock.Mock
}

func (m *MockTrainingRunRepo) Create(ctx context.Context, run *domain.TrainingRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockTrainingRunRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.TrainingRun, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TrainingRun), args.Error(1)
}

func (m *MockTrainingRunRepo) List(ctx context.Context, filter domain.RunListFilter) ([]*domain.TrainingRun, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*domain.TrainingRun), args.Int(1), args.Error(2)
}

func (m *MockTrainingRunRepo) UpdateCheckpoint(ctx context.Context, id uuid.UUID, checkpointPath string) error {
	args := m.Called(ctx, id, checkpointPath)
	return args.Error(0)
}

func (m *MockTrainingRunRepo) UpdateProgress(ctx context.Context, id uuid.UUID, epoch int, loss float64) error {
	args := m.Called(ctx, id, epoch, loss)
	return args.Error(0)
}

func (m *MockTrainingRunRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.RunStatus, errMsg string, finishedAt *time.Time) error {
	args := m.Called(ctx, id, status, errMsg, finishedAt)
	return args.Error(0)
}

func (m *MockTrainingRunRepo) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockEmbeddingSetRepo is a mock of EmbeddingSetRepository.
type MockEmbeddingSetRepo struct {
	mock.Mock
}

func (m *MockEmbeddingSetRepo) Create(ctx context.Context, set *domain.EmbeddingSet) error {
	args := m.Called(ctx, set)
	return args.Error(0)
}

func (m *MockEmbeddingSetRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.EmbeddingSet, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.EmbeddingSet), args.Error(1)
}

func (m *MockEmbeddingSetRepo) List(ctx context.Context, filter domain.EmbeddingListFilter) ([]*domain.EmbeddingSet, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*domain.EmbeddingSet), args.Int(1), args.Error(2)
}

func (m *MockEmbeddingSetRepo) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockClassifierEvalRepo is a mock of ClassifierEvalRepository.
type MockClassifierEvalRepo struct {
	mock.Mock
}

func (m *MockClassifierEvalRepo) Create(ctx context.Context, eval *domain.ClassifierEval) error {
	args := m.Called(ctx, eval)
	return args.Error(0)
}

func (m *MockClassifierEvalRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.ClassifierEval, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ClassifierEval), args.Error(1)
}

func (m *MockClassifierEvalRepo) List(ctx context.Context, filter domain.EvalListFilter) ([]*domain.ClassifierEval, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*domain.ClassifierEval), args.Int(1), args.Error(2)
}

// MockLauncher is a mock of the Kubernetes training Job launcher.
type MockLauncher struct {
	mock.Mock
}

func (m *MockLauncher) IsAvailable() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockLauncher) Launch(ctx context.Context, run *domain.TrainingRun) (string, error) {
	args := m.Called(ctx, run)
	return args.String(0), args.Error(1)
}

func (m *MockLauncher) Status(ctx context.Context, jobName string) (*kube.JobStatus, error) {
	args := m.Called(ctx, jobName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*kube.JobStatus), args.Error(1)
}

func (m *MockLauncher) Delete(ctx context.Context, jobName string) error {
	args := m.Called(ctx, jobName)
	return args.Error(0)
}
