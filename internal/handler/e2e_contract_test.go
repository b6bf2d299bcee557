package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
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

// ---------------------------------------------------------------------------
// Helper: assert JSON field exists and has expected type
// ---------------------------------------------------------------------------

func assertFieldString(t *testing.T, resp map[string]interface{}, key string) {
	t.Helper()
	val, ok := resp[key]
	assert.True(t, ok, "response missing field %q", key)
	if ok {
		_, isStr := val.(string)
		assert.True(t, isStr, "field %q should be string, got %T", key, val)
	}
}

func assertFieldNumber(t *testing.T, resp map[string]interface{}, key string) {
	t.Helper()
	val, ok := resp[key]
	assert.True(t, ok, "response missing field %q", key)
	if ok {
		_, isNum := val.(float64)
		assert.True(t, isNum, "field %q should be number, got %T", key, val)
	}
}

func assertFieldBool(t *testing.T, resp map[string]interface{}, key string) {
	t.Helper()
	val, ok := resp[key]
	assert.True(t, ok, "response missing field %q", key)
	if ok {
		_, isBool := val.(bool)
		assert.True(t, isBool, "field %q should be bool, got %T", key, val)
	}
}

func assertFieldArray(t *testing.T, resp map[string]interface{}, key string) {
	t.Helper()
	val, ok := resp[key]
	assert.True(t, ok, "response missing field %q", key)
	if ok {
		_, isArr := val.([]interface{})
		assert.True(t, isArr, "field %q should be array, got %T", key, val)
	}
}

// assertRunResponseFields checks all fields the CLI table renderer expects.
func assertRunResponseFields(t *testing.T, resp map[string]interface{}) {
	t.Helper()
	assertFieldString(t, resp, "id")
	assertFieldString(t, resp, "created_at")
	assertFieldString(t, resp, "updated_at")
	assertFieldString(t, resp, "algorithm")
	assertFieldString(t, resp, "dataset")
	assertFieldString(t, resp, "dataset_path")
	assertFieldNumber(t, resp, "batch_size")
	assertFieldNumber(t, resp, "epochs")
	assertFieldNumber(t, resp, "out_features")
	assertFieldNumber(t, resp, "tau")
	assertFieldNumber(t, resp, "tau_s")
	assertFieldNumber(t, resp, "label_range")
	assertFieldNumber(t, resp, "seed")
	assertFieldString(t, resp, "launch_mode")
	assertFieldString(t, resp, "status")
	assertFieldNumber(t, resp, "current_epoch")
	assertFieldNumber(t, resp, "last_loss")
}

// assertEmbeddingSetResponseFields checks all fields the CLI expects.
func assertEmbeddingSetResponseFields(t *testing.T, resp map[string]interface{}) {
	t.Helper()
	assertFieldString(t, resp, "id")
	assertFieldString(t, resp, "created_at")
	assertFieldString(t, resp, "model")
	assertFieldString(t, resp, "model_id")
	assertFieldString(t, resp, "task")
	assertFieldNumber(t, resp, "dim")
	assertFieldString(t, resp, "train_path")
	assertFieldNumber(t, resp, "train_count")
	assertFieldNumber(t, resp, "test_count")
}

// assertEvalResponseFields checks all fields the CLI expects.
func assertEvalResponseFields(t *testing.T, resp map[string]interface{}) {
	t.Helper()
	assertFieldString(t, resp, "id")
	assertFieldString(t, resp, "created_at")
	assertFieldString(t, resp, "embedding_set_id")
	assertFieldNumber(t, resp, "accuracy")
	assertFieldNumber(t, resp, "train_samples")
	assertFieldNumber(t, resp, "test_samples")
	assertFieldNumber(t, resp, "max_iter")
}

// assertVerifyResponseFields checks the shape of a verification report.
func assertVerifyResponseFields(t *testing.T, resp map[string]interface{}) {
	t.Helper()
	assertFieldBool(t, resp, "ok")
	assertFieldNumber(t, resp, "failures")
	assertFieldArray(t, resp, "checks")

	checks, _ := resp["checks"].([]interface{})
	for _, c := range checks {
		check, isMap := c.(map[string]interface{})
		require.True(t, isMap, "check entries should be objects")
		assertFieldString(t, check, "name")
		assertFieldString(t, check, "path")
		assertFieldString(t, check, "severity")
	}
}

// assertListResponseFields checks pagination envelope fields.
func assertListResponseFields(t *testing.T, resp map[string]interface{}) {
	t.Helper()
	assertFieldArray(t, resp, "items")
	assertFieldNumber(t, resp, "total")
	assertFieldNumber(t, resp, "page_size")
	assertFieldNumber(t, resp, "next_offset")
}

// ---------------------------------------------------------------------------
// Fixture helpers
// ---------------------------------------------------------------------------

func fixtureRun() *domain.TrainingRun {
	now := time.Now()
	return &domain.TrainingRun{
		ID:             uuid.New(),
		CreatedAt:      now,
		UpdatedAt:      now,
		Algorithm:      domain.AlgorithmSimCLR,
		DatasetName:    "mini",
		DatasetPath:    "/data/datasets/mini/train",
		CheckpointPath: "/data/checkpoints/encoders/simclr/Aug21-10:30:00",
		BatchSize:      256,
		Epochs:         100,
		OutFeatures:    128,
		Tau:            0.1,
		TauS:           0.1,
		LabelRange:     50,
		Seed:           42,
		LaunchMode:     domain.LaunchModeLocal,
		Status:         domain.RunStatusSucceeded,
		CurrentEpoch:   100,
		LastLoss:       2.31,
		FinishedAt:     &now,
	}
}

func fixtureEmbeddingSet() *domain.EmbeddingSet {
	return &domain.EmbeddingSet{
		ID:         uuid.New(),
		CreatedAt:  time.Now(),
		Model:      domain.AlgorithmSimCLR,
		ModelID:    "Aug21-10:30:00",
		Task:       "mini",
		Dim:        128,
		TrainPath:  "/data/datasets/encoded/simclr/Aug21-10:30:00/mini/train.json.gz",
		TestPath:   "/data/datasets/encoded/simclr/Aug21-10:30:00/mini/test.json.gz",
		TrainCount: 1200,
		TestCount:  300,
	}
}

func fixtureEval(setID uuid.UUID) *domain.ClassifierEval {
	return &domain.ClassifierEval{
		ID:             uuid.New(),
		CreatedAt:      time.Now(),
		EmbeddingSetID: setID,
		ClassifierPath: "/data/checkpoints/classifiers/simclr_Aug21-10:30:00_mini.json.gz",
		Accuracy:       0.87,
		TrainSamples:   1200,
		TestSamples:    300,
		MaxIter:        1000,
	}
}

// ===========================================================================
// Workspace E2E contract tests
// ===========================================================================

func TestE2E_InitWorkspace(t *testing.T) {
	f := setupRouter(t)

	req, _ := http.NewRequest("POST", "/api/v1/workspace/init", nil)
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assertFieldString(t, resp, "root")
	assertFieldArray(t, resp, "created")
}

func TestE2E_VerifyWorkspace(t *testing.T) {
	f := setupRouter(t)
	req, _ := http.NewRequest("POST", "/api/v1/workspace/init", nil)
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	testutil.WriteImageTree(t, f.layout.SplitDir("mini", workspace.TrainSplit), 2, 2)

	req, _ = http.NewRequest("GET", "/api/v1/workspace/verify", nil)
	w = httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assertVerifyResponseFields(t, resp)
	assert.Equal(t, true, resp["ok"])
}

func TestE2E_ListDatasets(t *testing.T) {
	f := setupRouter(t)
	testutil.WriteImageTree(t, f.layout.SplitDir("mini", workspace.TrainSplit), 2, 2)

	req, _ := http.NewRequest("GET", "/api/v1/datasets", nil)
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assertFieldArray(t, resp, "items")
	assertFieldNumber(t, resp, "total")

	items := resp["items"].([]interface{})
	require.Len(t, items, 1)
	first := items[0].(map[string]interface{})
	assertFieldString(t, first, "name")
	assertFieldString(t, first, "path")
	assertFieldNumber(t, first, "classes")
	assertFieldNumber(t, first, "images")
}

func TestE2E_GetDataset(t *testing.T) {
	f := setupRouter(t)
	testutil.WriteImageTree(t, f.layout.SplitDir("mini", workspace.TrainSplit), 2, 2)

	req, _ := http.NewRequest("GET", "/api/v1/datasets/mini", nil)
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assertFieldString(t, resp, "name")
	assertFieldString(t, resp, "path")
	assertFieldNumber(t, resp, "classes")
	assertFieldNumber(t, resp, "images")
	assertFieldArray(t, resp, "detail")

	detail := resp["detail"].([]interface{})
	require.NotEmpty(t, detail)
	class := detail[0].(map[string]interface{})
	assertFieldString(t, class, "name")
	assertFieldNumber(t, class, "label")
	assertFieldNumber(t, class, "image_count")
}

// ===========================================================================
// Training run E2E contract tests
// ===========================================================================

func TestE2E_CreateRun(t *testing.T) {
	f := setupRouter(t)
	testutil.WriteImageTree(t, f.layout.SplitDir("mini", workspace.TrainSplit), 2, 3)

	returned := fixtureRun()
	returned.LaunchMode = domain.LaunchModeKubernetes
	returned.JobName = "pretrain-abc"
	returned.Status = domain.RunStatusPending

	f.launcher.On("IsAvailable").Return(true)
	f.launcher.On("Launch", mock.Anything, mock.AnythingOfType("*domain.TrainingRun")).
		Return("pretrain-abc", nil)
	f.runs.On("Create", mock.Anything, mock.AnythingOfType("*domain.TrainingRun")).Return(nil)
	f.runs.On("GetByID", mock.Anything, mock.AnythingOfType("uuid.UUID")).Return(returned, nil)

	body, _ := json.Marshal(map[string]interface{}{
		"algorithm":  "simclr",
		"dataset":    "mini",
		"kubernetes": true,
	})
	req, _ := http.NewRequest("POST", "/api/v1/runs", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assertRunResponseFields(t, resp)

	assert.Equal(t, "KUBERNETES", resp["launch_mode"])
	assert.Equal(t, "pretrain-abc", resp["job_name"])
	assert.Equal(t, "PENDING", resp["status"])
}

func TestE2E_GetRun(t *testing.T) {
	f := setupRouter(t)
	run := fixtureRun()
	f.runs.On("GetByID", mock.Anything, run.ID).Return(run, nil)

	req, _ := http.NewRequest("GET", "/api/v1/runs/"+run.ID.String(), nil)
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assertRunResponseFields(t, resp)
	assertFieldString(t, resp, "checkpoint_path")
	assertFieldString(t, resp, "finished_at")
	assert.Equal(t, run.ID.String(), resp["id"])
	assert.Equal(t, "SUCCEEDED", resp["status"])
}

func TestE2E_ListRuns(t *testing.T) {
	f := setupRouter(t)
	runs := []*domain.TrainingRun{fixtureRun()}
	f.runs.On("List", mock.Anything, mock.AnythingOfType("domain.RunListFilter")).Return(runs, 1, nil)

	req, _ := http.NewRequest("GET", "/api/v1/runs?limit=10&offset=0", nil)
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assertListResponseFields(t, resp)

	items := resp["items"].([]interface{})
	require.Len(t, items, 1)
	assertRunResponseFields(t, items[0].(map[string]interface{}))
	assert.Equal(t, float64(1), resp["total"])
	assert.Equal(t, float64(10), resp["page_size"])
	assert.Equal(t, float64(1), resp["next_offset"])
}

// ===========================================================================
// Embedding set E2E contract tests
// ===========================================================================

func TestE2E_GetEncoding(t *testing.T) {
	f := setupRouter(t)
	set := fixtureEmbeddingSet()
	f.sets.On("GetByID", mock.Anything, set.ID).Return(set, nil)

	req, _ := http.NewRequest("GET", "/api/v1/encodings/"+set.ID.String(), nil)
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assertEmbeddingSetResponseFields(t, resp)
	assertFieldString(t, resp, "test_path")
	assert.Equal(t, set.ID.String(), resp["id"])
}

func TestE2E_ListEncodings(t *testing.T) {
	f := setupRouter(t)
	sets := []*domain.EmbeddingSet{fixtureEmbeddingSet()}
	f.sets.On("List", mock.Anything, mock.AnythingOfType("domain.EmbeddingListFilter")).Return(sets, 1, nil)

	req, _ := http.NewRequest("GET", "/api/v1/encodings?limit=10", nil)
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assertListResponseFields(t, resp)

	items := resp["items"].([]interface{})
	require.Len(t, items, 1)
	assertEmbeddingSetResponseFields(t, items[0].(map[string]interface{}))
}

// ===========================================================================
// Classifier eval E2E contract tests
// ===========================================================================

func TestE2E_GetEval(t *testing.T) {
	f := setupRouter(t)
	eval := fixtureEval(uuid.New())
	f.evals.On("GetByID", mock.Anything, eval.ID).Return(eval, nil)

	req, _ := http.NewRequest("GET", "/api/v1/evals/"+eval.ID.String(), nil)
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assertEvalResponseFields(t, resp)
	assertFieldString(t, resp, "classifier_path")
	assert.Equal(t, eval.ID.String(), resp["id"])
}

func TestE2E_ListEvals(t *testing.T) {
	f := setupRouter(t)
	evals := []*domain.ClassifierEval{fixtureEval(uuid.New())}
	f.evals.On("List", mock.Anything, mock.AnythingOfType("domain.EvalListFilter")).Return(evals, 1, nil)

	req, _ := http.NewRequest("GET", "/api/v1/evals?limit=10", nil)
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assertListResponseFields(t, resp)

	items := resp["items"].([]interface{})
	require.Len(t, items, 1)
	assertEvalResponseFields(t, items[0].(map[string]interface{}))
}
