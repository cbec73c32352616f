package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusDone       = "done"
	JobStatusFailed     = "failed"
)

// TranscriptionJob is a queued transcription request. The merged result is
// stored as JSONB on the row once the worker finishes.
type TranscriptionJob struct {
	ID     string `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID string `gorm:"column:user_id;type:uuid;index" json:"user_id"`

	SourcePath string `gorm:"column:source_path;type:text" json:"source_path"`

	Model          TranscriptionModel `gorm:"column:model;type:text" json:"model"`
	ResponseFormat ResponseFormat     `gorm:"column:response_format;type:text" json:"response_format"`
	Language       string             `gorm:"column:language;type:text" json:"language,omitempty"`
	Prompt         string             `gorm:"column:prompt;type:text" json:"prompt,omitempty"`

	Postprocess       bool   `gorm:"column:postprocess" json:"postprocess"`
	PostprocessPreset string `gorm:"column:postprocess_preset;type:text" json:"postprocess_preset,omitempty"`
	KeepAudio         bool   `gorm:"column:keep_audio" json:"keep_audio"`

	Status string `gorm:"column:status;type:text;index" json:"status"` // pending|processing|done|failed
	Error  string `gorm:"column:error;type:text" json:"error,omitempty"`

	Result      datatypes.JSON `gorm:"column:result;type:jsonb" json:"result,omitempty"`
	Summary     datatypes.JSON `gorm:"column:summary;type:jsonb" json:"summary,omitempty"`
	ArtifactURL string         `gorm:"column:artifact_url;type:text" json:"artifact_url,omitempty"`

	ChunkCount int `gorm:"column:chunk_count" json:"chunk_count"`

	CreatedAt  time.Time  `gorm:"column:created_at;type:timestamptz" json:"created_at"`
	StartedAt  *time.Time `gorm:"column:started_at;type:timestamptz" json:"started_at,omitempty"`
	FinishedAt *time.Time `gorm:"column:finished_at;type:timestamptz" json:"finished_at,omitempty"`
}

func (TranscriptionJob) TableName() string { return "transcription_jobs" }
