package services

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/yoralex/video-transcribe/internal/models"
	"github.com/yoralex/video-transcribe/internal/postprocess"
	pgrepo "github.com/yoralex/video-transcribe/internal/repositories/postgres"
	"github.com/yoralex/video-transcribe/internal/utils"
)

// JobStream is the redis stream transcription jobs are queued on.
const JobStream = "transcribe:jobs"

type CreateJobParams struct {
	SourcePath        string
	Model             models.TranscriptionModel
	ResponseFormat    models.ResponseFormat
	Language          string
	Prompt            string
	Postprocess       bool
	PostprocessPreset string
	KeepAudio         bool
}

type JobService interface {
	Create(ctx context.Context, userID string, params CreateJobParams) (*models.TranscriptionJob, error)
	Get(ctx context.Context, userID, jobID string) (*models.TranscriptionJob, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]models.TranscriptionJob, error)
	ListAll(ctx context.Context, limit int) ([]models.TranscriptionJob, error)
}

type jobService struct {
	jobs  pgrepo.JobRepo
	redis *redis.Client
}

func NewJobService(jobs pgrepo.JobRepo, rdb *redis.Client) JobService {
	return &jobService{jobs: jobs, redis: rdb}
}

func (s *jobService) Create(ctx context.Context, userID string, params CreateJobParams) (*models.TranscriptionJob, error) {
	const op = "JobService.Create"

	if userID == "" || params.SourcePath == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id and source_path are required", nil)
	}
	if _, err := os.Stat(params.SourcePath); err != nil {
		return nil, utils.E(utils.CodeNotFound, op, "source file not found: "+params.SourcePath, err)
	}

	if params.Model == "" {
		params.Model = models.ModelGPT4oTranscribe
	}
	if !params.Model.Valid() {
		return nil, utils.E(utils.CodeInvalidArgument, op, "invalid model "+string(params.Model), nil)
	}
	if params.ResponseFormat == "" {
		params.ResponseFormat = models.FormatJSON
	}
	if !params.ResponseFormat.Valid() {
		return nil, utils.E(utils.CodeInvalidArgument, op, "invalid response format "+string(params.ResponseFormat), nil)
	}
	if params.Model.Diarize() && params.Prompt != "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "prompt is not supported with the diarize model", nil)
	}
	if params.ResponseFormat == models.FormatDiarizedJSON && !params.Model.Diarize() {
		return nil, utils.E(utils.CodeInvalidArgument, op, "diarized_json requires the diarize model", nil)
	}
	if params.Postprocess {
		if params.PostprocessPreset == "" {
			params.PostprocessPreset = string(postprocess.PresetITMeetingSummary)
		}
		if _, err := postprocess.GetPreset(postprocess.Preset(params.PostprocessPreset)); err != nil {
			return nil, utils.E(utils.CodeInvalidArgument, op,
				"unknown preset "+params.PostprocessPreset+", available: "+strings.Join(postprocess.ListPresets(), ", "), err)
		}
	}

	job := &models.TranscriptionJob{
		ID:     uuid.NewString(),
		UserID: userID,

		SourcePath:     params.SourcePath,
		Model:          params.Model,
		ResponseFormat: params.ResponseFormat,
		Language:       params.Language,
		Prompt:         params.Prompt,

		Postprocess:       params.Postprocess,
		PostprocessPreset: params.PostprocessPreset,
		KeepAudio:         params.KeepAudio,

		Status:    models.JobStatusPending,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.jobs.Insert(ctx, job); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to insert job", err)
	}

	if err := s.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: JobStream,
		Values: map[string]any{"job_id": job.ID},
	}).Err(); err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "failed to enqueue job", err)
	}

	return job, nil
}

func (s *jobService) Get(ctx context.Context, userID, jobID string) (*models.TranscriptionJob, error) {
	const op = "JobService.Get"

	if jobID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "job_id is required", nil)
	}
	job, err := s.jobs.GetByID(ctx, jobID)
	if err == utils.ErrNotFound {
		return nil, utils.E(utils.CodeNotFound, op, "job not found", nil)
	}
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to load job", err)
	}
	if userID != "" && job.UserID != userID {
		return nil, utils.E(utils.CodeForbidden, op, "forbidden", nil)
	}
	return job, nil
}

func (s *jobService) ListByUser(ctx context.Context, userID string, limit int) ([]models.TranscriptionJob, error) {
	const op = "JobService.ListByUser"

	if userID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id is required", nil)
	}
	rows, err := s.jobs.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list jobs", err)
	}
	return rows, nil
}

func (s *jobService) ListAll(ctx context.Context, limit int) ([]models.TranscriptionJob, error) {
	const op = "JobService.ListAll"

	rows, err := s.jobs.ListAll(ctx, limit)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list jobs", err)
	}
	return rows, nil
}
