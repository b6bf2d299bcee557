package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"training-workspace-service/internal/testutil"
	"training-workspace-service/internal/workspace"
)

func TestInitWorkspace(t *testing.T) {
	f := setupRouter(t)

	req, _ := http.NewRequest("POST", "/api/v1/workspace/init", nil)
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	assert.Equal(t, f.layout.Root, resp["root"])
	assert.NotEmpty(t, resp["created"])
}

func TestInitWorkspace_Idempotent(t *testing.T) {
	f := setupRouter(t)

	req, _ := http.NewRequest("POST", "/api/v1/workspace/init", nil)
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	req, _ = http.NewRequest("POST", "/api/v1/workspace/init", nil)
	w = httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	assert.Empty(t, resp["created"])
	assert.NotEmpty(t, resp["existing"])
}

func TestVerifyWorkspace_FreshTreeFails(t *testing.T) {
	f := setupRouter(t)

	req, _ := http.NewRequest("GET", "/api/v1/workspace/verify", nil)
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var resp map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	assert.Equal(t, false, resp["ok"])
	assert.Greater(t, resp["failures"], float64(0))
}

func TestVerifyWorkspace_PopulatedTreePasses(t *testing.T) {
	f := setupRouter(t)
	req, _ := http.NewRequest("POST", "/api/v1/workspace/init", nil)
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	testutil.WriteImageTree(t, f.layout.SplitDir("mini", workspace.TrainSplit), 2, 2)
	testutil.WriteImageTree(t, f.layout.SplitDir("mini", workspace.TestSplit), 2, 1)

	req, _ = http.NewRequest("GET", "/api/v1/workspace/verify", nil)
	w = httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	assert.Equal(t, true, resp["ok"])
	assert.Equal(t, float64(0), resp["failures"])
}

func TestListDatasets(t *testing.T) {
	f := setupRouter(t)
	testutil.WriteImageTree(t, f.layout.SplitDir("mini", workspace.TrainSplit), 3, 2)

	req, _ := http.NewRequest("GET", "/api/v1/datasets", nil)
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	assert.Equal(t, float64(1), resp["total"])

	items := resp["items"].([]interface{})
	first := items[0].(map[string]interface{})
	assert.Equal(t, "mini", first["name"])
	assert.Equal(t, float64(3), first["classes"])
	assert.Equal(t, float64(6), first["images"])
}

func TestGetDataset(t *testing.T) {
	f := setupRouter(t)
	testutil.WriteImageTree(t, f.layout.SplitDir("mini", workspace.TrainSplit), 2, 3)

	req, _ := http.NewRequest("GET", "/api/v1/datasets/mini", nil)
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	assert.Equal(t, "mini", resp["name"])
	assert.Equal(t, float64(2), resp["classes"])

	detail := resp["detail"].([]interface{})
	require.Len(t, detail, 2)
	first := detail[0].(map[string]interface{})
	assert.Equal(t, "class00", first["name"])
	assert.Equal(t, float64(3), first["image_count"])
}

func TestGetDataset_NotFound(t *testing.T) {
	f := setupRouter(t)

	req, _ := http.NewRequest("GET", "/api/v1/datasets/unknown", nil)
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetDataset_DeclaredButMissingOnDisk(t *testing.T) {
	f := setupRouter(t)

	req, _ := http.NewRequest("GET", "/api/v1/datasets/mini", nil)
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
