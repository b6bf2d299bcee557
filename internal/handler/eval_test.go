package handler

import (
	"bytes"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"training-workspace-service/internal/domain"
	"training-workspace-service/internal/embedding"
	"training-workspace-service/internal/workspace"
)

// separableSplit builds a linearly separable two-class embedding split.
func separableSplit(split string, perClass int, seed int64) *embedding.Set {
	rng := rand.New(rand.NewSource(seed))
	s := &embedding.Set{
		Model:   "simclr",
		ModelID: "Aug21-10:30:00",
		Task:    "mini",
		Split:   split,
		Dim:     2,
		Classes: []string{"class00", "class01"},
	}
	centers := [][2]float64{{-3, -3}, {3, 3}}
	for label, c := range centers {
		for i := 0; i < perClass; i++ {
			s.Vectors = append(s.Vectors, []float32{
				float32(c[0] + rng.NormFloat64()*0.4),
				float32(c[1] + rng.NormFloat64()*0.4),
			})
			s.Labels = append(s.Labels, label)
		}
	}
	return s
}

// seedEvalSet writes train and test embedding splits to disk and returns the
// registry record pointing at them.
func seedEvalSet(t *testing.T, f *routerFixture, withTest bool) *domain.EmbeddingSet {
	t.Helper()
	setDir := f.layout.EncodedSetDir("simclr", "Aug21-10:30:00", "mini")

	train := separableSplit(workspace.TrainSplit, 10, 1)
	trainPath := filepath.Join(setDir, embedding.TrainFile)
	require.NoError(t, train.Save(trainPath))

	rec := &domain.EmbeddingSet{
		ID:         uuid.New(),
		Model:      domain.AlgorithmSimCLR,
		ModelID:    "Aug21-10:30:00",
		Task:       "mini",
		Dim:        2,
		TrainPath:  trainPath,
		TrainCount: train.Count(),
	}
	if withTest {
		test := separableSplit(workspace.TestSplit, 4, 2)
		testPath := filepath.Join(setDir, embedding.TestFile)
		require.NoError(t, test.Save(testPath))
		rec.TestPath = testPath
		rec.TestCount = test.Count()
	}
	return rec
}

func TestCreateEval(t *testing.T) {
	f := setupRouter(t)
	rec := seedEvalSet(t, f, true)
	f.sets.On("GetByID", mock.Anything, rec.ID).Return(rec, nil)

	captured := &domain.ClassifierEval{}
	f.evals.On("Create", mock.Anything, mock.AnythingOfType("*domain.ClassifierEval")).
		Run(func(args mock.Arguments) {
			*captured = *args.Get(1).(*domain.ClassifierEval)
		}).Return(nil)
	f.evals.On("GetByID", mock.Anything, mock.Anything).Return(captured, nil)

	body, _ := json.Marshal(map[string]interface{}{
		"embedding_set_id": rec.ID.String(),
	})
	req, _ := http.NewRequest("POST", "/api/v1/evals", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	assert.Equal(t, rec.ID.String(), resp["embedding_set_id"])
	assert.Equal(t, float64(20), resp["train_samples"])
	assert.Equal(t, float64(8), resp["test_samples"])
	assert.Greater(t, resp["accuracy"], 0.9)
}

func TestCreateEval_MissingEmbeddingSetID(t *testing.T) {
	f := setupRouter(t)

	body, _ := json.Marshal(map[string]interface{}{"max_iter": 100})
	req, _ := http.NewRequest("POST", "/api/v1/evals", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	f.evals.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateEval_NoTestSplit(t *testing.T) {
	f := setupRouter(t)
	rec := seedEvalSet(t, f, false)
	f.sets.On("GetByID", mock.Anything, rec.ID).Return(rec, nil)

	body, _ := json.Marshal(map[string]interface{}{
		"embedding_set_id": rec.ID.String(),
	})
	req, _ := http.NewRequest("POST", "/api/v1/evals", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	f.evals.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateEval_SetNotFound(t *testing.T) {
	f := setupRouter(t)
	id := uuid.New()
	f.sets.On("GetByID", mock.Anything, id).Return(nil, domain.ErrEncodingNotFound)

	body, _ := json.Marshal(map[string]interface{}{
		"embedding_set_id": id.String(),
	})
	req, _ := http.NewRequest("POST", "/api/v1/evals", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListEvals(t *testing.T) {
	f := setupRouter(t)
	evals := []*domain.ClassifierEval{
		{ID: uuid.New(), EmbeddingSetID: uuid.New(), Accuracy: 0.93},
	}
	f.evals.On("List", mock.Anything, domain.EvalListFilter{Limit: 20}).Return(evals, 1, nil)

	req, _ := http.NewRequest("GET", "/api/v1/evals", nil)
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	assert.Equal(t, float64(1), resp["total"])

	items := resp["items"].([]interface{})
	require.Len(t, items, 1)
	first := items[0].(map[string]interface{})
	assert.Equal(t, 0.93, first["accuracy"])
}

func TestListEvals_FilterByEmbeddingSet(t *testing.T) {
	f := setupRouter(t)
	setID := uuid.New()
	f.evals.On("List", mock.Anything, domain.EvalListFilter{EmbeddingSetID: &setID, Limit: 20}).
		Return(nil, 0, nil)

	req, _ := http.NewRequest("GET", "/api/v1/evals?embedding_set_id="+setID.String(), nil)
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	f.evals.AssertExpectations(t)
}

func TestListEvals_InvalidEmbeddingSetFilter(t *testing.T) {
	f := setupRouter(t)

	req, _ := http.NewRequest("GET", "/api/v1/evals?embedding_set_id=not-a-uuid", nil)
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	f.evals.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
}

func TestGetEval(t *testing.T) {
	f := setupRouter(t)
	id := uuid.New()
	f.evals.On("GetByID", mock.Anything, id).Return(&domain.ClassifierEval{
		ID:       id,
		Accuracy: 0.88,
	}, nil)

	req, _ := http.NewRequest("GET", "/api/v1/evals/"+id.String(), nil)
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	assert.Equal(t, id.String(), resp["id"])
	assert.Equal(t, 0.88, resp["accuracy"])
}

func TestGetEval_NotFound(t *testing.T) {
	f := setupRouter(t)
	id := uuid.New()
	f.evals.On("GetByID", mock.Anything, id).Return(nil, domain.ErrEvalNotFound)

	req, _ := http.NewRequest("GET", "/api/v1/evals/"+id.String(), nil)
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
