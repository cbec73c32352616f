package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"github.com/yoralex/video-transcribe/internal/audio"
	"github.com/yoralex/video-transcribe/internal/cache"
	"github.com/yoralex/video-transcribe/internal/models"
	"github.com/yoralex/video-transcribe/internal/postprocess"
	mongorepo "github.com/yoralex/video-transcribe/internal/repositories/mongo"
	pgrepo "github.com/yoralex/video-transcribe/internal/repositories/postgres"
	"github.com/yoralex/video-transcribe/internal/storage"
	"github.com/yoralex/video-transcribe/internal/transcribe"
	"github.com/yoralex/video-transcribe/internal/utils"
)

// JobEventChannel is the pub/sub channel progress and status events for
// one job are published on.
func JobEventChannel(jobID string) string {
	return "job:" + jobID + ":events"
}

type TranscriptionService interface {
	// Process runs the whole pipeline for one queued job: optional
	// video-to-audio conversion, chunked transcription, optional LLM
	// post-processing, artifact upload, and final job row update.
	Process(ctx context.Context, jobID string) error
}

type TranscriptionConfig struct {
	ChunkMaxSizeMB  int
	ChunkOverlapSec float64
	ChunkWorkDir    string

	TraceTTL time.Duration
	CacheTTL time.Duration
}

type transcriptionService struct {
	provider transcribe.Provider
	splitter *audio.Splitter

	jobs   pgrepo.JobRepo
	traces mongorepo.ChunkTraceRepository
	cache  cache.Cache
	redis  *redis.Client

	uploader storage.Uploader       // optional
	signer   storage.Signer         // optional
	postproc *postprocess.Processor // optional

	cfg TranscriptionConfig
	log *logrus.Logger
}

type TranscriptionDeps struct {
	Provider transcribe.Provider
	Splitter *audio.Splitter

	Jobs   pgrepo.JobRepo
	Traces mongorepo.ChunkTraceRepository
	Cache  cache.Cache
	Redis  *redis.Client

	Uploader    storage.Uploader
	Signer      storage.Signer
	Postprocess *postprocess.Processor

	Config TranscriptionConfig
	Logger *logrus.Logger
}

func NewTranscriptionService(d TranscriptionDeps) TranscriptionService {
	if d.Splitter == nil {
		d.Splitter = audio.NewSplitter()
	}
	if d.Logger == nil {
		d.Logger = logrus.New()
	}
	if d.Config.TraceTTL <= 0 {
		d.Config.TraceTTL = 24 * time.Hour
	}
	if d.Config.CacheTTL <= 0 {
		d.Config.CacheTTL = 24 * time.Hour
	}
	return &transcriptionService{
		provider: d.Provider,
		splitter: d.Splitter,
		jobs:     d.Jobs,
		traces:   d.Traces,
		cache:    d.Cache,
		redis:    d.Redis,
		uploader: d.Uploader,
		signer:   d.Signer,
		postproc: d.Postprocess,
		cfg:      d.Config,
		log:      d.Logger,
	}
}

func (s *transcriptionService) Process(ctx context.Context, jobID string) error {
	const op = "TranscriptionService.Process"

	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return utils.E(utils.CodeNotFound, op, "job not found: "+jobID, err)
	}

	log := s.log.WithFields(logrus.Fields{"job_id": job.ID, "source": job.SourcePath})

	if err := s.jobs.MarkProcessing(ctx, job.ID); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to mark job processing", err)
	}
	s.publish(ctx, job.ID, map[string]any{"type": "status", "status": models.JobStatusProcessing})

	result, chunkCount, err := s.transcribe(ctx, job, log)
	if err != nil {
		return s.fail(ctx, job.ID, log, err)
	}

	var summary *postprocess.Result
	if job.Postprocess && s.postproc != nil {
		summary, err = s.postproc.Process(ctx, result, postprocess.Preset(job.PostprocessPreset))
		if err != nil {
			// the transcript is already produced; a summary failure
			// should not lose it
			log.WithError(err).Warn("post-processing failed, keeping transcript")
			summary = nil
		}
	}

	artifactURL, err := s.storeArtifacts(ctx, job, result, summary)
	if err != nil {
		return s.fail(ctx, job.ID, log, err)
	}

	resultJSON, err := json.Marshal(result)
	if err != nil {
		return s.fail(ctx, job.ID, log, utils.E(utils.CodeInternal, op, "failed to encode result", err))
	}
	var summaryJSON datatypes.JSON
	if summary != nil {
		b, err := json.Marshal(summary)
		if err != nil {
			return s.fail(ctx, job.ID, log, utils.E(utils.CodeInternal, op, "failed to encode summary", err))
		}
		summaryJSON = datatypes.JSON(b)
	}

	if err := s.jobs.MarkDone(ctx, job.ID, datatypes.JSON(resultJSON), summaryJSON, artifactURL, chunkCount); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to mark job done", err)
	}

	s.publish(ctx, job.ID, map[string]any{"type": "status", "status": models.JobStatusDone, "artifact_url": artifactURL})
	log.WithField("chunks", chunkCount).Info("job done")
	return nil
}

func (s *transcriptionService) transcribe(ctx context.Context, job *models.TranscriptionJob, log *logrus.Entry) (*models.TranscriptionResult, int, error) {
	audioPath := job.SourcePath

	if audio.IsVideoFile(audioPath) {
		converted, err := s.splitter.VideoToAudio(ctx, audioPath, "")
		if err != nil {
			return nil, 0, err
		}
		audioPath = converted
		if !job.KeepAudio {
			defer os.Remove(converted)
		}
		log.WithField("audio", converted).Debug("extracted audio track")
	}

	digest, err := cache.RequestDigest(audioPath,
		string(job.Model), string(job.ResponseFormat), job.Language, job.Prompt)
	if err == nil && s.cache != nil {
		var cached models.TranscriptionResult
		if hit, cerr := s.cache.GetJSON(ctx, cache.TranscriptKey(digest), &cached); cerr == nil && hit {
			log.Debug("transcript cache hit")
			return &cached, 0, nil
		}
	}

	chunkCount := 0
	cfg := transcribe.ChunkedConfig{
		Splitter:   s.splitter,
		MaxSizeMB:  s.cfg.ChunkMaxSizeMB,
		OverlapSec: s.cfg.ChunkOverlapSec,
		WorkDir:    s.cfg.ChunkWorkDir,
		OnChunkStart: func(chunk models.AudioChunk, current, total int) {
			chunkCount = total
			now := time.Now().UTC()
			_ = s.traces.Insert(ctx, &models.ChunkTrace{
				JobID:      job.ID,
				ChunkIndex: chunk.Index,
				StartSec:   chunk.StartSec,
				EndSec:     chunk.EndSec,
				Status:     models.JobStatusProcessing,
				Timestamp:  now,
				ExpiresAt:  now.Add(s.cfg.TraceTTL),
			})
			s.publish(ctx, job.ID, map[string]any{
				"type": "progress", "current": current, "total": total,
			})
		},
		OnChunkDone: func(chunk models.AudioChunk, result *models.TranscriptionResult, elapsed time.Duration) {
			_ = s.traces.UpdateStatus(ctx, job.ID, chunk.Index,
				models.JobStatusDone, textPreview(result.Text), len(result.Segments), elapsed.Milliseconds())
		},
	}

	opts := transcribe.Options{
		Model:          job.Model,
		Prompt:         job.Prompt,
		ResponseFormat: job.ResponseFormat,
		Language:       job.Language,
	}

	result, err := transcribe.TranscribeChunked(ctx, s.provider, audioPath, opts, cfg, nil)
	if err != nil {
		return nil, chunkCount, err
	}

	if digest != "" && s.cache != nil {
		_ = s.cache.SetJSON(ctx, cache.TranscriptKey(digest), result, s.cfg.CacheTTL)
	}
	return result, chunkCount, nil
}

func (s *transcriptionService) storeArtifacts(ctx context.Context, job *models.TranscriptionJob, result *models.TranscriptionResult, summary *postprocess.Result) (string, error) {
	if s.uploader == nil {
		return "", nil
	}

	transcriptObj := fmt.Sprintf("jobs/%s/transcript.txt", job.ID)
	body := RenderTranscript(result)
	if _, err := s.uploader.Upload(ctx, transcriptObj, "text/plain; charset=utf-8", strings.NewReader(body)); err != nil {
		return "", utils.E(utils.CodeUnavailable, "TranscriptionService.storeArtifacts", "failed to upload transcript", err)
	}

	if summary != nil {
		name := postprocess.SanitizeFilename(postprocess.ExtractFilenameFromResponse(summary.RawOutput))
		if name == "" {
			name = "summary" + postprocess.OutputSuffix(postprocess.Preset(summary.PresetName))
		}
		content := postprocess.StripFilenameMarker(summary.RawOutput)
		obj := fmt.Sprintf("jobs/%s/%s", job.ID, name)
		if _, err := s.uploader.Upload(ctx, obj, "text/markdown; charset=utf-8", strings.NewReader(content)); err != nil {
			return "", utils.E(utils.CodeUnavailable, "TranscriptionService.storeArtifacts", "failed to upload summary", err)
		}
	}

	if s.signer != nil {
		url, err := s.signer.SignedGetURL(ctx, transcriptObj, 0)
		if err == nil {
			return url, nil
		}
	}
	return transcriptObj, nil
}

func (s *transcriptionService) fail(ctx context.Context, jobID string, log *logrus.Entry, err error) error {
	log.WithError(err).Error("job failed")
	_ = s.jobs.MarkFailed(ctx, jobID, err.Error())
	s.publish(ctx, jobID, map[string]any{"type": "status", "status": models.JobStatusFailed, "message": err.Error()})
	return err
}

func (s *transcriptionService) publish(ctx context.Context, jobID string, payload map[string]any) {
	if s.redis == nil {
		return
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return
	}
	_ = s.redis.Publish(ctx, JobEventChannel(jobID), string(b)).Err()
}

func textPreview(text string) string {
	const max = 160
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "…"
}

// RenderTranscript produces the plain-text artifact for a result: the
// segment view with timestamps and speakers when segments exist, the
// consolidated text otherwise.
func RenderTranscript(result *models.TranscriptionResult) string {
	if len(result.Segments) > 0 && result.ResponseFormat.HasSegments() {
		return postprocess.FormatSegments(result.Segments)
	}
	return result.Text
}
