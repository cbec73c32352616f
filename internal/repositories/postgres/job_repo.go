package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/yoralex/video-transcribe/internal/models"
	"github.com/yoralex/video-transcribe/internal/utils"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type JobRepo interface {
	Insert(ctx context.Context, job *models.TranscriptionJob) error
	GetByID(ctx context.Context, id string) (*models.TranscriptionJob, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]models.TranscriptionJob, error)
	ListAll(ctx context.Context, limit int) ([]models.TranscriptionJob, error)
	MarkProcessing(ctx context.Context, id string) error
	MarkDone(ctx context.Context, id string, result, summary datatypes.JSON, artifactURL string, chunkCount int) error
	MarkFailed(ctx context.Context, id string, errMsg string) error
}

type jobRepo struct {
	db *gorm.DB
}

func NewJobRepo(db *gorm.DB) JobRepo {
	return &jobRepo{db: db}
}

func (r *jobRepo) Insert(ctx context.Context, job *models.TranscriptionJob) error {
	return r.db.WithContext(ctx).Create(job).Error
}

func (r *jobRepo) GetByID(ctx context.Context, id string) (*models.TranscriptionJob, error) {
	var row models.TranscriptionJob
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &row, err
}

func (r *jobRepo) ListByUser(ctx context.Context, userID string, limit int) ([]models.TranscriptionJob, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []models.TranscriptionJob
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *jobRepo) ListAll(ctx context.Context, limit int) ([]models.TranscriptionJob, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []models.TranscriptionJob
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *jobRepo) MarkProcessing(ctx context.Context, id string) error {
	now := time.Now().UTC()
	return r.db.WithContext(ctx).
		Model(&models.TranscriptionJob{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     models.JobStatusProcessing,
			"started_at": &now,
		}).Error
}

func (r *jobRepo) MarkDone(ctx context.Context, id string, result, summary datatypes.JSON, artifactURL string, chunkCount int) error {
	now := time.Now().UTC()
	return r.db.WithContext(ctx).
		Model(&models.TranscriptionJob{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":       models.JobStatusDone,
			"result":       result,
			"summary":      summary,
			"artifact_url": artifactURL,
			"chunk_count":  chunkCount,
			"finished_at":  &now,
		}).Error
}

func (r *jobRepo) MarkFailed(ctx context.Context, id string, errMsg string) error {
	now := time.Now().UTC()
	return r.db.WithContext(ctx).
		Model(&models.TranscriptionJob{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":      models.JobStatusFailed,
			"error":       errMsg,
			"finished_at": &now,
		}).Error
}
