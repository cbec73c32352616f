package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ChunkTrace records the processing of one audio chunk within a job. Traces
// are short-lived diagnostics (TTL-indexed); the durable output lives on the
// job row.
type ChunkTrace struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	JobID      string             `bson:"job_id" json:"job_id"`
	ChunkIndex int                `bson:"chunk_index" json:"chunk_index"`

	StartSec float64 `bson:"start_sec" json:"start_sec"`
	EndSec   float64 `bson:"end_sec" json:"end_sec"`

	Status      string `bson:"status" json:"status"` // pending|processing|done|failed
	TextPreview string `bson:"text_preview,omitempty" json:"text_preview,omitempty"`
	SegmentN    int    `bson:"segment_n,omitempty" json:"segment_n,omitempty"`

	ProcessingTimeMS int64     `bson:"processing_time_ms,omitempty" json:"processing_time_ms,omitempty"`
	Timestamp        time.Time `bson:"timestamp" json:"timestamp"`

	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"` // for TTL index
}
