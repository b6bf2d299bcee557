package runner

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"training-workspace-service/internal/domain"
	"training-workspace-service/internal/testutil"
	"training-workspace-service/internal/workspace"
)

func newTestRunner(t *testing.T) (*Runner, *testutil.MockTrainingRunRepo, workspace.Layout) {
	t.Helper()
	layout := workspace.NewLayout(t.TempDir())
	runs := new(testutil.MockTrainingRunRepo)
	r := New(runs, layout)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		require.NoError(t, r.Shutdown(ctx))
	})
	return r, runs, layout
}

func localRun(layout workspace.Layout, dataset string) *domain.TrainingRun {
	return &domain.TrainingRun{
		ID:          uuid.New(),
		Algorithm:   domain.AlgorithmSimCLR,
		DatasetName: dataset,
		DatasetPath: layout.SplitDir(dataset, workspace.TrainSplit),
		BatchSize:   4,
		Epochs:      2,
		OutFeatures: 8,
		Tau:         0.1,
		TauS:        0.1,
		LabelRange:  50,
		Seed:        1,
		LaunchMode:  domain.LaunchModeLocal,
		Status:      domain.RunStatusPending,
	}
}

func TestStart_SuccessPersistsLifecycle(t *testing.T) {
	r, runs, layout := newTestRunner(t)
	testutil.WriteImageTree(t, layout.SplitDir("mini", workspace.TrainSplit), 2, 3)
	run := localRun(layout, "mini")

	var checkpointDir string
	var finishedAt *time.Time
	runs.On("UpdateStatus", mock.Anything, run.ID, domain.RunStatusRunning, "", mock.Anything).Return(nil).Once()
	runs.On("UpdateCheckpoint", mock.Anything, run.ID, mock.AnythingOfType("string")).
		Run(func(args mock.Arguments) {
			checkpointDir = args.Get(2).(string)
		}).Return(nil).Once()
	runs.On("UpdateProgress", mock.Anything, run.ID, mock.Anything, mock.Anything).Return(nil).Times(2)
	runs.On("UpdateStatus", mock.Anything, run.ID, domain.RunStatusSucceeded, "", mock.Anything).
		Run(func(args mock.Arguments) {
			finishedAt = args.Get(4).(*time.Time)
		}).Return(nil).Once()

	require.NoError(t, r.Start(run))

	assert.Eventually(t, func() bool { return !r.Active(run.ID) },
		10*time.Second, 10*time.Millisecond)

	runs.AssertExpectations(t)
	assert.True(t, strings.HasPrefix(checkpointDir, layout.EncoderRunBase("simclr")))
	require.NotNil(t, finishedAt)
	assert.False(t, finishedAt.IsZero())
}

func TestStart_InvalidConfigRejectedSynchronously(t *testing.T) {
	r, runs, layout := newTestRunner(t)
	run := localRun(layout, "mini")
	run.Algorithm = "byol"

	err := r.Start(run)

	assert.ErrorIs(t, err, domain.ErrInvalidAlgorithm)
	assert.False(t, r.Active(run.ID))
	runs.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestStart_MissingDatasetRejectedSynchronously(t *testing.T) {
	r, runs, layout := newTestRunner(t)
	run := localRun(layout, "nowhere")

	err := r.Start(run)

	assert.Error(t, err)
	assert.False(t, r.Active(run.ID))
	runs.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCancel_MarksRunCancelled(t *testing.T) {
	r, runs, layout := newTestRunner(t)
	testutil.WriteImageTree(t, layout.SplitDir("mini", workspace.TrainSplit), 2, 3)
	run := localRun(layout, "mini")
	run.Epochs = 50

	// Block the first progress write until the test has issued the cancel, so
	// the trainer observes the cancelled context on its next epoch.
	firstProgress := make(chan struct{})
	proceed := make(chan struct{})
	var once sync.Once
	runs.On("UpdateStatus", mock.Anything, run.ID, domain.RunStatusRunning, "", mock.Anything).Return(nil).Once()
	runs.On("UpdateCheckpoint", mock.Anything, run.ID, mock.Anything).Return(nil).Once()
	runs.On("UpdateProgress", mock.Anything, run.ID, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			once.Do(func() {
				close(firstProgress)
				<-proceed
			})
		}).Return(nil)
	runs.On("UpdateStatus", mock.Anything, run.ID, domain.RunStatusCancelled, "", mock.Anything).Return(nil).Once()

	require.NoError(t, r.Start(run))
	<-firstProgress
	assert.True(t, r.Active(run.ID))

	assert.True(t, r.Cancel(run.ID))
	close(proceed)

	assert.Eventually(t, func() bool { return !r.Active(run.ID) },
		10*time.Second, 10*time.Millisecond)
	runs.AssertExpectations(t)
}

func TestCancel_UnknownRun(t *testing.T) {
	r, _, _ := newTestRunner(t)

	assert.False(t, r.Cancel(uuid.New()))
}

func TestShutdown_DrainsActiveRuns(t *testing.T) {
	layout := workspace.NewLayout(t.TempDir())
	runs := new(testutil.MockTrainingRunRepo)
	r := New(runs, layout)
	testutil.WriteImageTree(t, layout.SplitDir("mini", workspace.TrainSplit), 2, 3)
	run := localRun(layout, "mini")
	run.Epochs = 50

	// Depending on timing the run finishes cancelled or succeeded.
	runs.On("UpdateStatus", mock.Anything, run.ID, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	runs.On("UpdateCheckpoint", mock.Anything, run.ID, mock.Anything).Return(nil)
	runs.On("UpdateProgress", mock.Anything, run.ID, mock.Anything, mock.Anything).Return(nil).Maybe()

	require.NoError(t, r.Start(run))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, r.Shutdown(ctx))

	assert.False(t, r.Active(run.ID))
}
