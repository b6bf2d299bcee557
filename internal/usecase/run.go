package usecase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"training-workspace-service/internal/config"
	"training-workspace-service/internal/domain"
	"training-workspace-service/internal/kube"
	"training-workspace-service/internal/pretraining"
	"training-workspace-service/internal/runner"
	"training-workspace-service/internal/workspace"
)

// RunUseCase owns the lifecycle of training runs: creation, execution (local
// or as a Kubernetes Job), status, cancellation and deletion.
type RunUseCase struct {
	runs     domain.TrainingRunRepository
	runner   *runner.Runner
	launcher kube.Launcher
	layout   workspace.Layout
	defaults config.TrainingConfig
}

func NewRunUseCase(
	runs domain.TrainingRunRepository,
	r *runner.Runner,
	launcher kube.Launcher,
	layout workspace.Layout,
	defaults config.TrainingConfig,
) *RunUseCase {
	return &RunUseCase{
		runs:     runs,
		runner:   r,
		launcher: launcher,
		layout:   layout,
		defaults: defaults,
	}
}

// CreateRunParams carries a run request. Zero numeric fields fall back to the
// configured training defaults.
type CreateRunParams struct {
	Algorithm   string
	Dataset     string
	BatchSize   int
	Epochs      int
	OutFeatures int
	Tau         float64
	TauS        float64
	LabelRange  int
	Seed        int64
	Kubernetes  bool
}

func (uc *RunUseCase) Create(ctx context.Context, params CreateRunParams) (*domain.TrainingRun, error) {
	algorithm := domain.Algorithm(params.Algorithm)
	if !domain.ValidAlgorithm(algorithm) {
		return nil, domain.ErrInvalidAlgorithm
	}
	if params.Dataset == "" {
		return nil, domain.ErrMissingDataset
	}
	if params.BatchSize == 0 {
		params.BatchSize = 256
	}
	if params.BatchSize < 2 {
		return nil, domain.ErrInvalidBatchSize
	}

	datasetPath := uc.layout.SplitDir(params.Dataset, workspace.TrainSplit)
	if info, err := os.Stat(datasetPath); err != nil || !info.IsDir() {
		return nil, domain.ErrDatasetNotFound
	}

	if params.Epochs <= 0 {
		params.Epochs = uc.defaults.Epochs
	}
	if params.OutFeatures <= 0 {
		params.OutFeatures = uc.defaults.OutFeatures
	}
	if params.Tau <= 0 {
		params.Tau = uc.defaults.Tau
	}
	if params.TauS <= 0 {
		params.TauS = uc.defaults.TauS
	}
	if params.LabelRange <= 0 {
		params.LabelRange = uc.defaults.LabelRange
	}
	if params.Seed == 0 {
		params.Seed = time.Now().UnixNano()
	}

	launchMode := domain.LaunchModeLocal
	if params.Kubernetes {
		if !uc.launcher.IsAvailable() {
			return nil, domain.ErrLauncherDisabled
		}
		launchMode = domain.LaunchModeKubernetes
	}

	now := time.Now()
	run := &domain.TrainingRun{
		ID:          uuid.New(),
		CreatedAt:   now,
		UpdatedAt:   now,
		Algorithm:   algorithm,
		DatasetName: params.Dataset,
		DatasetPath: datasetPath,
		BatchSize:   params.BatchSize,
		Epochs:      params.Epochs,
		OutFeatures: params.OutFeatures,
		Tau:         params.Tau,
		TauS:        params.TauS,
		LabelRange:  params.LabelRange,
		Seed:        params.Seed,
		LaunchMode:  launchMode,
		Status:      domain.RunStatusPending,
	}

	if launchMode == domain.LaunchModeKubernetes {
		jobName, err := uc.launcher.Launch(ctx, run)
		if err != nil {
			return nil, err
		}
		run.JobName = jobName
	}

	if err := uc.runs.Create(ctx, run); err != nil {
		return nil, err
	}

	if launchMode == domain.LaunchModeLocal {
		if err := uc.runner.Start(run); err != nil {
			now := time.Now()
			if uerr := uc.runs.UpdateStatus(ctx, run.ID, domain.RunStatusFailed, err.Error(), &now); uerr != nil {
				log.WithError(uerr).WithField("run_id", run.ID).Error("failed to mark run failed")
			}
			return nil, err
		}
	}

	return uc.runs.GetByID(ctx, run.ID)
}

// Get returns a run, refreshing its status from the cluster when it was
// launched as a Kubernetes Job and has not finished yet.
func (uc *RunUseCase) Get(ctx context.Context, id uuid.UUID) (*domain.TrainingRun, error) {
	run, err := uc.runs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if run.LaunchMode == domain.LaunchModeKubernetes && !run.Status.Finished() && uc.launcher.IsAvailable() {
		uc.syncJobStatus(ctx, run)
	}

	return run, nil
}

// syncJobStatus folds the Kubernetes Job state into the stored run status.
// Cluster lookup failures are logged and the stored state returned as-is.
func (uc *RunUseCase) syncJobStatus(ctx context.Context, run *domain.TrainingRun) {
	status, err := uc.launcher.Status(ctx, run.JobName)
	if err != nil {
		log.WithError(err).WithField("run_id", run.ID).Warn("failed to query training job")
		return
	}

	var next domain.RunStatus
	var errMsg string
	var finishedAt *time.Time

	switch {
	case status.Done && status.Error == "":
		next = domain.RunStatusSucceeded
	case status.Done:
		next = domain.RunStatusFailed
		errMsg = status.Error
	case status.Active > 0:
		next = domain.RunStatusRunning
	default:
		return
	}

	if next == run.Status {
		return
	}
	if next.Finished() {
		now := time.Now()
		finishedAt = &now
	}

	if err := uc.runs.UpdateStatus(ctx, run.ID, next, errMsg, finishedAt); err != nil {
		log.WithError(err).WithField("run_id", run.ID).Warn("failed to persist job status")
		return
	}
	run.Status = next
	run.Error = errMsg
	run.FinishedAt = finishedAt
}

func (uc *RunUseCase) List(ctx context.Context, filter domain.RunListFilter) ([]*domain.TrainingRun, int, error) {
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	if filter.Limit > 100 {
		filter.Limit = 100
	}
	return uc.runs.List(ctx, filter)
}

// Cancel stops a pending or running run.
func (uc *RunUseCase) Cancel(ctx context.Context, id uuid.UUID) (*domain.TrainingRun, error) {
	run, err := uc.runs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if run.Status.Finished() {
		return nil, domain.ErrRunNotCancellable
	}

	switch {
	case uc.runner.Cancel(id):
		// terminal status is persisted by the runner goroutine
	case run.LaunchMode == domain.LaunchModeKubernetes && uc.launcher.IsAvailable():
		if err := uc.launcher.Delete(ctx, run.JobName); err != nil {
			return nil, err
		}
		now := time.Now()
		if err := uc.runs.UpdateStatus(ctx, id, domain.RunStatusCancelled, "", &now); err != nil {
			return nil, err
		}
	default:
		now := time.Now()
		if err := uc.runs.UpdateStatus(ctx, id, domain.RunStatusCancelled, "", &now); err != nil {
			return nil, err
		}
	}

	return uc.runs.GetByID(ctx, id)
}

// Delete removes a finished run record. Checkpoints on disk are kept.
func (uc *RunUseCase) Delete(ctx context.Context, id uuid.UUID) error {
	run, err := uc.runs.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !run.Status.Finished() {
		return domain.ErrRunNotFinished
	}
	return uc.runs.Delete(ctx, id)
}

// Losses reads the per-epoch loss log of a completed run.
func (uc *RunUseCase) Losses(ctx context.Context, id uuid.UUID) ([]float64, error) {
	run, err := uc.runs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if run.CheckpointPath == "" {
		return nil, domain.ErrCheckpointNotFound
	}

	losses, err := pretraining.ReadLosses(filepath.Join(run.CheckpointPath, pretraining.LossesFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.ErrCheckpointNotFound
		}
		return nil, err
	}
	return losses, nil
}
