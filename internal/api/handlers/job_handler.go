package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yoralex/video-transcribe/internal/models"
	"github.com/yoralex/video-transcribe/internal/services"
	"github.com/yoralex/video-transcribe/internal/utils"
)

type JobHandler struct {
	jobs services.JobService
}

func NewJobHandler(jobs services.JobService) *JobHandler {
	return &JobHandler{jobs: jobs}
}

type CreateJobRequest struct {
	SourcePath        string `json:"source_path" binding:"required"`
	Model             string `json:"model"`
	ResponseFormat    string `json:"response_format"`
	Language          string `json:"language"`
	Prompt            string `json:"prompt"`
	Postprocess       bool   `json:"postprocess"`
	PostprocessPreset string `json:"postprocess_preset"`
	KeepAudio         bool   `json:"keep_audio"`
}

type CreateJobResponse struct {
	JobID     string `json:"job_id"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

func (h *JobHandler) Create(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "JobHandler.Create", "invalid request body", err))
		return
	}

	job, err := h.jobs.Create(c.Request.Context(), userID, services.CreateJobParams{
		SourcePath:        req.SourcePath,
		Model:             models.TranscriptionModel(req.Model),
		ResponseFormat:    models.ResponseFormat(req.ResponseFormat),
		Language:          req.Language,
		Prompt:            req.Prompt,
		Postprocess:       req.Postprocess,
		PostprocessPreset: req.PostprocessPreset,
		KeepAudio:         req.KeepAudio,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, CreateJobResponse{
		JobID:     job.ID,
		Status:    job.Status,
		CreatedAt: job.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	})
}

func (h *JobHandler) Get(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	owner := userID
	if isAdmin(c) {
		owner = "" // admins can read any job
	}

	job, err := h.jobs.Get(c.Request.Context(), owner, c.Param("job_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

// Transcript returns just the transcription result payload of a
// finished job.
func (h *JobHandler) Transcript(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	owner := userID
	if isAdmin(c) {
		owner = ""
	}

	job, err := h.jobs.Get(c.Request.Context(), owner, c.Param("job_id"))
	if err != nil {
		writeError(c, err)
		return
	}

	switch job.Status {
	case models.JobStatusDone:
		c.Data(http.StatusOK, "application/json", job.Result)
	case models.JobStatusFailed:
		writeError(c, utils.E(utils.CodeUnavailable, "JobHandler.Transcript", "job failed: "+job.Error, nil))
	default:
		writeError(c, utils.E(utils.CodeConflict, "JobHandler.Transcript", "job is not finished yet", nil))
	}
}

func (h *JobHandler) List(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))
	rows, err := h.jobs.ListByUser(c.Request.Context(), userID, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": rows})
}

// ListAll is the admin view across users.
func (h *JobHandler) ListAll(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	rows, err := h.jobs.ListAll(c.Request.Context(), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": rows})
}
