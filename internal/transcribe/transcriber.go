// Package transcribe holds the speech-to-text provider adapters and the
// chunked transcription flow: splitting oversized audio, transcribing the
// chunks sequentially, and merging the per-chunk results back into one
// transcript.
package transcribe

import (
	"context"
	"time"

	"github.com/yoralex/video-transcribe/internal/models"
)

// Options are the per-call transcription parameters. Model and
// ResponseFormat are validated where provider requests are built.
type Options struct {
	Model          models.TranscriptionModel
	Prompt         string
	ResponseFormat models.ResponseFormat
	Language       string
	Temperature    float64
}

// Provider is a speech-to-text backend. Implementations receive a local
// audio file path and return a result whose segment timestamps and speaker
// labels are local to that file.
type Provider interface {
	Transcribe(ctx context.Context, audioPath string, opts Options) (*models.TranscriptionResult, error)
	Name() string
	Close() error
}

// ProgressFunc observes chunked transcription, called once per chunk with
/// the 1-based current chunk and the total count. It is notification only:
// it cannot affect control flow, and a panicking callback does not abort
// the pipeline.
type ProgressFunc func(current, total int)

func notifyProgress(fn ProgressFunc, current, total int) {
	if fn == nil {
		return
	}
	defer func() {
		_ = recover() // observer failures never abort transcription
	}()
	fn(current, total)
}

func notifyChunkStart(fn func(models.AudioChunk, int, int), chunk models.AudioChunk, current, total int) {
	if fn == nil {
		return
	}
	defer func() {
		_ = recover()
	}()
	fn(chunk, current, total)
}

func notifyChunkDone(fn func(models.AudioChunk, *models.TranscriptionResult, time.Duration), chunk models.AudioChunk, result *models.TranscriptionResult, elapsed time.Duration) {
	if fn == nil {
		return
	}
	defer func() {
		_ = recover()
	}()
	fn(chunk, result, elapsed)
}
