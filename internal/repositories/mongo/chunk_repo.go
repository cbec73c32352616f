package mongo

import (
	"context"
	"time"

	"github.com/yoralex/video-transcribe/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ChunkTraceRepository interface {
	Insert(ctx context.Context, t *models.ChunkTrace) error
	UpdateStatus(ctx context.Context, jobID string, chunkIndex int, status, textPreview string, segmentN int, processingMS int64) error
	ListByJob(ctx context.Context, jobID string, limit int64) ([]models.ChunkTrace, error)
}

type chunkTraceRepo struct {
	col *mongo.Collection
}

func NewChunkTraceRepo(db *mongo.Database) ChunkTraceRepository {
	return &chunkTraceRepo{col: db.Collection("chunk_traces")}
}

func (r *chunkTraceRepo) Insert(ctx context.Context, t *models.ChunkTrace) error {
	if t.Timestamp.IsZero() {
		t.Timestamp = time.Now().UTC()
	}
	_, err := r.col.InsertOne(ctx, t)
	return err
}

func (r *chunkTraceRepo) UpdateStatus(ctx context.Context, jobID string, chunkIndex int, status, textPreview string, segmentN int, processingMS int64) error {
	set := bson.M{"status": status}
	if textPreview != "" {
		set["text_preview"] = textPreview
	}
	if segmentN > 0 {
		set["segment_n"] = segmentN
	}
	if processingMS > 0 {
		set["processing_time_ms"] = processingMS
	}
	_, err := r.col.UpdateOne(ctx,
		bson.M{"job_id": jobID, "chunk_index": chunkIndex},
		bson.M{"$set": set},
	)
	return err
}

func (r *chunkTraceRepo) ListByJob(ctx context.Context, jobID string, limit int64) ([]models.ChunkTrace, error) {
	if limit <= 0 {
		limit = 500
	}

	cur, err := r.col.Find(ctx,
		bson.M{"job_id": jobID},
		options.Find().
			SetSort(bson.D{{Key: "chunk_index", Value: 1}}).
			SetLimit(limit),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.ChunkTrace
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
