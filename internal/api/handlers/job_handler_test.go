package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/yoralex/video-transcribe/internal/models"
	"github.com/yoralex/video-transcribe/internal/services"
	"github.com/yoralex/video-transcribe/internal/utils"
)

type fakeJobService struct {
	jobs map[string]*models.TranscriptionJob

	createdFor    string
	createdParams services.CreateJobParams
	createErr     error
}

func (f *fakeJobService) Create(_ context.Context, userID string, params services.CreateJobParams) (*models.TranscriptionJob, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.createdFor = userID
	f.createdParams = params
	return &models.TranscriptionJob{
		ID:         "job-1",
		UserID:     userID,
		SourcePath: params.SourcePath,
		Status:     models.JobStatusPending,
		CreatedAt:  time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
	}, nil
}

func (f *fakeJobService) Get(_ context.Context, userID, jobID string) (*models.TranscriptionJob, error) {
	job, ok := f.jobs[jobID]
	if !ok {
		return nil, utils.E(utils.CodeNotFound, "JobService.Get", "job not found", nil)
	}
	if userID != "" && job.UserID != userID {
		return nil, utils.E(utils.CodeForbidden, "JobService.Get", "forbidden", nil)
	}
	return job, nil
}

func (f *fakeJobService) ListByUser(_ context.Context, userID string, _ int) ([]models.TranscriptionJob, error) {
	var rows []models.TranscriptionJob
	for _, job := range f.jobs {
		if job.UserID == userID {
			rows = append(rows, *job)
		}
	}
	return rows, nil
}

func (f *fakeJobService) ListAll(_ context.Context, _ int) ([]models.TranscriptionJob, error) {
	var rows []models.TranscriptionJob
	for _, job := range f.jobs {
		rows = append(rows, *job)
	}
	return rows, nil
}

// asUser stands in for the auth middleware.
func asUser(userID, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID != "" {
			c.Set("user_id", userID)
		}
		if role != "" {
			c.Set("role", role)
		}
	}
}

func newJobRouter(svc *fakeJobService, userID, role string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewJobHandler(svc)

	r := gin.New()
	r.Use(asUser(userID, role))
	r.POST("/jobs", h.Create)
	r.GET("/jobs", h.List)
	r.GET("/jobs/:job_id", h.Get)
	r.GET("/jobs/:job_id/transcript", h.Transcript)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJobHandlerCreate(t *testing.T) {
	svc := &fakeJobService{}
	r := newJobRouter(svc, "u1", "")

	w := doJSON(t, r, http.MethodPost, "/jobs",
		`{"source_path":"/data/call.mp4","model":"gpt-4o-transcribe","postprocess":true}`)

	require.Equal(t, http.StatusAccepted, w.Code)
	var resp CreateJobResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "job-1", resp.JobID)
	assert.Equal(t, models.JobStatusPending, resp.Status)

	assert.Equal(t, "u1", svc.createdFor)
	assert.Equal(t, "/data/call.mp4", svc.createdParams.SourcePath)
	assert.True(t, svc.createdParams.Postprocess)
}

func TestJobHandlerCreateBadBody(t *testing.T) {
	r := newJobRouter(&fakeJobService{}, "u1", "")

	w := doJSON(t, r, http.MethodPost, "/jobs", `{"model":"gpt-4o-transcribe"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var resp APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, utils.CodeInvalidArgument, resp.Code)
}

func TestJobHandlerCreateUnauthenticated(t *testing.T) {
	r := newJobRouter(&fakeJobService{}, "", "")

	w := doJSON(t, r, http.MethodPost, "/jobs", `{"source_path":"/data/a.mp3"}`)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJobHandlerGet(t *testing.T) {
	svc := &fakeJobService{jobs: map[string]*models.TranscriptionJob{
		"j1": {ID: "j1", UserID: "u1", Status: models.JobStatusProcessing},
	}}

	t.Run("owner", func(t *testing.T) {
		w := doJSON(t, newJobRouter(svc, "u1", ""), http.MethodGet, "/jobs/j1", "")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("other user", func(t *testing.T) {
		w := doJSON(t, newJobRouter(svc, "u2", ""), http.MethodGet, "/jobs/j1", "")
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("admin reads any job", func(t *testing.T) {
		w := doJSON(t, newJobRouter(svc, "u2", "admin"), http.MethodGet, "/jobs/j1", "")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("unknown job", func(t *testing.T) {
		w := doJSON(t, newJobRouter(svc, "u1", ""), http.MethodGet, "/jobs/missing", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestJobHandlerTranscript(t *testing.T) {
	resultJSON := `{"text":"hello","model_used":"gpt-4o-transcribe"}`
	svc := &fakeJobService{jobs: map[string]*models.TranscriptionJob{
		"done":    {ID: "done", UserID: "u1", Status: models.JobStatusDone, Result: datatypes.JSON(resultJSON)},
		"pending": {ID: "pending", UserID: "u1", Status: models.JobStatusPending},
		"failed":  {ID: "failed", UserID: "u1", Status: models.JobStatusFailed, Error: "ffmpeg exploded"},
	}}
	r := newJobRouter(svc, "u1", "")

	t.Run("done returns raw result", func(t *testing.T) {
		w := doJSON(t, r, http.MethodGet, "/jobs/done/transcript", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, resultJSON, w.Body.String())
	})

	t.Run("pending conflicts", func(t *testing.T) {
		w := doJSON(t, r, http.MethodGet, "/jobs/pending/transcript", "")
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("failed surfaces the error", func(t *testing.T) {
		w := doJSON(t, r, http.MethodGet, "/jobs/failed/transcript", "")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), "ffmpeg exploded")
	})
}

func TestJobHandlerList(t *testing.T) {
	svc := &fakeJobService{jobs: map[string]*models.TranscriptionJob{
		"j1": {ID: "j1", UserID: "u1"},
		"j2": {ID: "j2", UserID: "u2"},
	}}
	w := doJSON(t, newJobRouter(svc, "u1", ""), http.MethodGet, "/jobs?limit=10", "")

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Jobs []models.TranscriptionJob `json:"jobs"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Jobs, 1)
	assert.Equal(t, "j1", resp.Jobs[0].ID)
}
