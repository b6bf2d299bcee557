package handler

import (
	"context"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"training-workspace-service/internal/config"
	"training-workspace-service/internal/runner"
	"training-workspace-service/internal/testutil"
	"training-workspace-service/internal/usecase"
	"training-workspace-service/internal/workspace"
)

type routerFixture struct {
	engine   *gin.Engine
	runs     *testutil.MockTrainingRunRepo
	sets     *testutil.MockEmbeddingSetRepo
	evals    *testutil.MockClassifierEvalRepo
	launcher *testutil.MockLauncher
	runner   *runner.Runner
	layout   workspace.Layout
}

// setupRouter wires the full handler over mock repositories, a real local
// runner and a temp workspace. The runner is drained on cleanup so background
// training never outlives the test's directories.
func setupRouter(t *testing.T) *routerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	layout := workspace.NewLayout(t.TempDir())
	manifest := workspace.Manifest{
		Version: 1,
		Datasets: []workspace.DatasetSpec{
			{
				Name: "mini",
				Splits: []workspace.SplitSpec{
					{Name: workspace.TrainSplit, Required: true},
					{Name: workspace.TestSplit, Required: false},
				},
			},
		},
	}

	runs := new(testutil.MockTrainingRunRepo)
	sets := new(testutil.MockEmbeddingSetRepo)
	evals := new(testutil.MockClassifierEvalRepo)
	launcher := new(testutil.MockLauncher)

	localRunner := runner.New(runs, layout)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		require.NoError(t, localRunner.Shutdown(ctx))
	})

	defaults := config.TrainingConfig{Epochs: 2, OutFeatures: 8, Tau: 0.1, TauS: 0.1, LabelRange: 50}

	h := New(
		usecase.NewWorkspaceUseCase(layout, manifest),
		usecase.NewRunUseCase(runs, localRunner, launcher, layout, defaults),
		usecase.NewEncodingUseCase(sets, runs, layout),
		usecase.NewClassifierUseCase(evals, sets, layout),
	)

	engine := gin.New()
	api := engine.Group("/api/v1")
	h.RegisterRoutes(api)

	return &routerFixture{
		engine:   engine,
		runs:     runs,
		sets:     sets,
		evals:    evals,
		launcher: launcher,
		runner:   localRunner,
		layout:   layout,
	}
}
