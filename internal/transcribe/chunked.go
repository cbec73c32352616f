package transcribe

import (
	"context"
	"os"
	"time"

	"github.com/yoralex/video-transcribe/internal/audio"
	"github.com/yoralex/video-transcribe/internal/models"
	"github.com/yoralex/video-transcribe/internal/utils"
)

// ChunkedConfig controls splitting during chunked transcription.
type ChunkedConfig struct {
	Splitter   *audio.Splitter
	MaxSizeMB  int
	OverlapSec float64
	WorkDir    string // empty for a run-scoped temp directory

	// OnChunkStart and OnChunkDone are best-effort observers invoked
	// around each chunk's transcription. Like the progress callback,
	// panics inside them never abort the run. Neither fires when the
	// file is small enough to skip splitting.
	OnChunkStart func(chunk models.AudioChunk, current, total int)
	OnChunkDone  func(chunk models.AudioChunk, result *models.TranscriptionResult, elapsed time.Duration)
}

func (c ChunkedConfig) withDefaults() ChunkedConfig {
	if c.Splitter == nil {
		c.Splitter = audio.NewSplitter()
	}
	if c.MaxSizeMB <= 0 {
		c.MaxSizeMB = audio.DefaultMaxChunkSizeMB
	}
	if c.OverlapSec <= 0 {
		c.OverlapSec = audio.DefaultOverlapSec
	}
	return c
}

// TranscribeChunked transcribes an audio file of any size with the given
// provider. Files under the size ceiling go through a single Transcribe
// call. Larger files are split, each chunk transcribed sequentially in
// index order, and the chunk results merged; chunk files are cleaned up
// whether or not transcription succeeds.
//
// Chunks are always requested in a segment-bearing format (diarized_json
// when the call diarizes, verbose_json otherwise) regardless of
// opts.ResponseFormat, since only segment-level results can be merged.
// The prompt is never forwarded to individual chunks.
func TranscribeChunked(ctx context.Context, p Provider, audioPath string, opts Options, cfg ChunkedConfig, progress ProgressFunc) (*models.TranscriptionResult, error) {
	const op = "transcribe.TranscribeChunked"

	cfg = cfg.withDefaults()

	info, err := os.Stat(audioPath)
	if err != nil {
		return nil, utils.E(utils.CodeNotFound, op, "audio file not found: "+audioPath, err)
	}

	if opts.Model != "" && opts.Model.Diarize() && opts.Prompt != "" {
		return nil, utils.E(utils.CodeInvalidArgument, op,
			"prompt is not supported with the diarize model", nil)
	}

	fileSizeMB := float64(info.Size()) / (1024 * 1024)
	if fileSizeMB <= float64(cfg.MaxSizeMB) {
		return p.Transcribe(ctx, audioPath, opts)
	}

	chunks, err := cfg.Splitter.SplitAudio(ctx, audioPath, cfg.MaxSizeMB, cfg.OverlapSec, cfg.WorkDir)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to split audio", err)
	}
	defer audio.CleanupChunks(chunks)

	hasDiarization := opts.Model.Diarize() || opts.ResponseFormat == models.FormatDiarizedJSON

	chunkFormat := models.FormatVerboseJSON
	if hasDiarization {
		chunkFormat = models.FormatDiarizedJSON
	}

	results := make([]*models.TranscriptionResult, 0, len(chunks))
	offsets := make([]float64, 0, len(chunks))

	for i, chunk := range chunks {
		notifyProgress(progress, i+1, len(chunks))
		notifyChunkStart(cfg.OnChunkStart, chunk, i+1, len(chunks))

		chunkOpts := opts
		chunkOpts.Prompt = ""
		chunkOpts.ResponseFormat = chunkFormat

		started := time.Now()
		result, err := p.Transcribe(ctx, chunk.Path, chunkOpts)
		if err != nil {
			return nil, err
		}
		notifyChunkDone(cfg.OnChunkDone, chunk, result, time.Since(started))

		results = append(results, result)
		offsets = append(offsets, chunk.StartSec)
	}

	return MergeResults(results, offsets, hasDiarization)
}
