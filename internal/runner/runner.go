// Package runner executes training runs locally in background goroutines,
// persisting progress and terminal status through the run repository.
package runner

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"training-workspace-service/internal/dataset"
	"training-workspace-service/internal/domain"
	"training-workspace-service/internal/pretraining"
	"training-workspace-service/internal/workspace"
)

// persistTimeout bounds status writes that happen after the run context is
// already cancelled.
const persistTimeout = 5 * time.Second

// Runner tracks in-flight local training runs by id.
type Runner struct {
	runs   domain.TrainingRunRepository
	layout workspace.Layout

	mu     sync.Mutex
	active map[uuid.UUID]context.CancelFunc
	wg     sync.WaitGroup
}

func New(runs domain.TrainingRunRepository, layout workspace.Layout) *Runner {
	return &Runner{
		runs:   runs,
		layout: layout,
		active: make(map[uuid.UUID]context.CancelFunc),
	}
}

// Start validates the run configuration and dataset synchronously, then
// trains in the background. The run must already exist in the repository.
func (r *Runner) Start(run *domain.TrainingRun) error {
	trainer, err := pretraining.New(pretraining.Config{
		Algorithm:   run.Algorithm,
		BatchSize:   run.BatchSize,
		Epochs:      run.Epochs,
		OutFeatures: run.OutFeatures,
		Tau:         run.Tau,
		TauS:        run.TauS,
		LabelRange:  run.LabelRange,
		Seed:        run.Seed,
	})
	if err != nil {
		return err
	}

	tree, err := dataset.Scan(run.DatasetPath)
	if err != nil {
		return err
	}

	runDir, err := pretraining.MakeRunDir(r.layout.EncoderRunBase(string(run.Algorithm)))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.mu.Lock()
	r.active[run.ID] = cancel
	r.mu.Unlock()

	r.wg.Add(1)
	go r.execute(ctx, run, trainer, tree, runDir)
	return nil
}

// Cancel stops an in-flight run. It reports false when the run is not
// executing locally.
func (r *Runner) Cancel(id uuid.UUID) bool {
	r.mu.Lock()
	cancel, ok := r.active[id]
	r.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

// Active reports whether the run is currently executing locally.
func (r *Runner) Active(id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.active[id]
	return ok
}

// Shutdown cancels every in-flight run and waits for their goroutines to
// persist terminal status, or until ctx expires.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	for _, cancel := range r.active {
		cancel()
	}
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Runner) execute(ctx context.Context, run *domain.TrainingRun, trainer *pretraining.Trainer, tree *dataset.Tree, runDir string) {
	defer r.wg.Done()
	defer func() {
		r.mu.Lock()
		delete(r.active, run.ID)
		r.mu.Unlock()
	}()

	logger := log.WithFields(log.Fields{
		"run_id":    run.ID,
		"algorithm": run.Algorithm,
		"dataset":   run.DatasetName,
	})

	if err := r.runs.UpdateStatus(ctx, run.ID, domain.RunStatusRunning, "", nil); err != nil {
		logger.WithError(err).Warn("failed to mark run running")
	}
	if err := r.runs.UpdateCheckpoint(ctx, run.ID, runDir); err != nil {
		logger.WithError(err).Warn("failed to record checkpoint path")
	}

	result, err := trainer.Run(ctx, tree, runDir, func(p pretraining.Progress) {
		pctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := r.runs.UpdateProgress(pctx, run.ID, p.Epoch, p.Loss); err != nil {
			logger.WithError(err).Warn("failed to persist progress")
		}
	})

	pctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	now := time.Now()

	switch {
	case errors.Is(err, context.Canceled):
		logger.Info("run cancelled")
		if uerr := r.runs.UpdateStatus(pctx, run.ID, domain.RunStatusCancelled, "", &now); uerr != nil {
			logger.WithError(uerr).Error("failed to mark run cancelled")
		}
	case err != nil:
		logger.WithError(err).Error("run failed")
		if uerr := r.runs.UpdateStatus(pctx, run.ID, domain.RunStatusFailed, err.Error(), &now); uerr != nil {
			logger.WithError(uerr).Error("failed to mark run failed")
		}
	default:
		logger.WithFields(log.Fields{
			"final_loss": result.FinalLoss,
			"run_dir":    result.RunDir,
		}).Info("run succeeded")
		if uerr := r.runs.UpdateStatus(pctx, run.ID, domain.RunStatusSucceeded, "", &now); uerr != nil {
			logger.WithError(uerr).Error("failed to mark run succeeded")
		}
	}
}
