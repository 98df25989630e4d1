package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catherinevee/importmgr/pkg/models"
)

type stubRunner struct {
	mu   sync.Mutex
	job  *models.ImportJob
	done chan struct{}
}

func (r *stubRunner) RunImport(_ context.Context, projectName string, _ []string, _ map[string]string) *models.ImportJob {
	r.mu.Lock()
	defer r.mu.Unlock()
	job := r.job
	if job == nil {
		now := time.Now()
		job = &models.ImportJob{
			ProjectName: projectName,
			Status:      models.JobStatusComplete,
			CreatedAt:   now,
			CompletedAt: &now,
		}
	}
	if r.done != nil {
		defer close(r.done)
	}
	return job
}

func postImport(t *testing.T, srv *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/imports", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestCreateImportRunsJob(t *testing.T) {
	runner := &stubRunner{done: make(chan struct{})}
	srv := NewServer(runner, NewJobStore())

	rec := postImport(t, srv, `{"project_name":"legacy","services":["s3"]}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp["id"])
	assert.Equal(t, "pending", resp["status"])

	select {
	case <-runner.done:
	case <-time.After(2 * time.Second):
		t.Fatal("import job never ran")
	}

	// the finished job is retrievable under the API-assigned ID
	require.Eventually(t, func() bool {
		job, ok := srv.store.Get(resp["id"])
		return ok && job.Status == models.JobStatusComplete
	}, 2*time.Second, 10*time.Millisecond)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/imports/"+resp["id"], nil)
	getRec := httptest.NewRecorder()
	srv.ServeHTTP(getRec, req)
	require.Equal(t, http.StatusOK, getRec.Code)

	var job models.ImportJob
	require.NoError(t, json.Unmarshal(getRec.Body.Bytes(), &job))
	assert.Equal(t, resp["id"], job.ID)
	assert.Equal(t, "legacy", job.ProjectName)
	assert.Equal(t, models.JobStatusComplete, job.Status)
}

func TestCreateImportValidation(t *testing.T) {
	srv := NewServer(&stubRunner{}, NewJobStore())

	rec := postImport(t, srv, `{"services":["s3"]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postImport(t, srv, `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetImportNotFound(t *testing.T) {
	srv := NewServer(&stubRunner{}, NewJobStore())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/imports/missing", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListImportsNewestFirst(t *testing.T) {
	store := NewJobStore()
	older := time.Now().Add(-time.Hour)
	newer := time.Now()
	store.Put("a", &models.ImportJob{ID: "a", ProjectName: "first", Status: models.JobStatusComplete, CreatedAt: older})
	store.Put("b", &models.ImportJob{ID: "b", ProjectName: "second", Status: models.JobStatusComplete, CreatedAt: newer,
		Resources: []models.DiscoveredResource{{Service: "s3", ID: "bucket"}},
		Gaps:      []models.SecurityGap{{Severity: models.SeverityHigh}},
	})

	srv := NewServer(&stubRunner{}, store)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/imports", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var summaries []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summaries))
	require.Len(t, summaries, 2)
	assert.Equal(t, "b", summaries[0]["id"])
	assert.EqualValues(t, 1, summaries[0]["resource_count"])
	assert.EqualValues(t, 1, summaries[0]["gap_count"])
	assert.Equal(t, "a", summaries[1]["id"])
}

func TestHealth(t *testing.T) {
	srv := NewServer(&stubRunner{}, NewJobStore())
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}
