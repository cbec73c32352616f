package transcribe

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yoralex/video-transcribe/internal/audio"
	"github.com/yoralex/video-transcribe/internal/models"
)

// fakeProvider records every Transcribe call and returns one canned
// diarized segment per call.
type fakeProvider struct {
	calls []fakeCall
}

type fakeCall struct {
	path string
	opts Options
}

func (f *fakeProvider) Transcribe(_ context.Context, audioPath string, opts Options) (*models.TranscriptionResult, error) {
	f.calls = append(f.calls, fakeCall{path: audioPath, opts: opts})
	n := len(f.calls)
	start, end := 0.0, 5.0
	speaker := "A"
	dur := 10.0
	return &models.TranscriptionResult{
		Text:     fmt.Sprintf("chunk %d", n),
		Duration: &dur,
		Segments: []models.TranscriptionSegment{
			{Speaker: &speaker, Start: &start, End: &end, Text: fmt.Sprintf("chunk %d", n)},
		},
		ModelUsed:      models.ModelGPT4oTranscribeDiarize,
		ResponseFormat: opts.ResponseFormat,
	}, nil
}

func (f *fakeProvider) Name() string { return "fake" }
func (f *fakeProvider) Close() error { return nil }

// chunkerRunner fakes ffprobe/ffmpeg the same way the audio package
// tests do.
type chunkerRunner struct {
	duration float64
}

func (r *chunkerRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	if filepath.Base(name) == "ffprobe" {
		return []byte(fmt.Sprintf("%f\n", r.duration)), nil
	}
	out := args[len(args)-1]
	if err := os.WriteFile(out, []byte("audio"), 0o644); err != nil {
		return nil, err
	}
	return nil, nil
}

func sparseAudioFile(t *testing.T, name string, sizeBytes int64) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, f.Truncate(sizeBytes))
	require.NoError(t, f.Close())
	return path
}

func TestTranscribeChunkedSmallFileSingleCall(t *testing.T) {
	path := sparseAudioFile(t, "small.mp3", 1*1024*1024)
	p := &fakeProvider{}

	cfg := ChunkedConfig{
		Splitter:  audio.NewSplitter(audio.WithRunner(&chunkerRunner{duration: 60})),
		MaxSizeMB: 25,
	}
	got, err := TranscribeChunked(context.Background(), p, path,
		Options{Model: models.ModelGPT4oTranscribe, Prompt: "context", ResponseFormat: models.FormatJSON}, cfg, nil)
	require.NoError(t, err)

	require.Len(t, p.calls, 1)
	assert.Equal(t, path, p.calls[0].path)
	// Small files keep the caller's prompt and format untouched.
	assert.Equal(t, "context", p.calls[0].opts.Prompt)
	assert.Equal(t, models.FormatJSON, p.calls[0].opts.ResponseFormat)
	assert.Equal(t, "chunk 1", got.Text)
}

func TestTranscribeChunkedSplitsAndMerges(t *testing.T) {
	path := sparseAudioFile(t, "big.mp3", 50*1024*1024)
	p := &fakeProvider{}

	var progress [][2]int
	cfg := ChunkedConfig{
		Splitter:   audio.NewSplitter(audio.WithRunner(&chunkerRunner{duration: 100})),
		MaxSizeMB:  25,
		OverlapSec: 2,
		WorkDir:    t.TempDir(),
	}
	got, err := TranscribeChunked(context.Background(), p, path,
		Options{Model: models.ModelGPT4oTranscribe, Prompt: "context", ResponseFormat: models.FormatJSON},
		cfg,
		func(cur, total int) { progress = append(progress, [2]int{cur, total}) })
	require.NoError(t, err)

	// 100s at twice the size threshold splits into two chunks.
	require.Len(t, p.calls, 2)
	assert.Equal(t, [][2]int{{1, 2}, {2, 2}}, progress)

	for _, c := range p.calls {
		assert.Empty(t, c.opts.Prompt, "chunks must never carry the prompt")
		assert.Equal(t, models.FormatVerboseJSON, c.opts.ResponseFormat)
	}

	require.Len(t, got.Segments, 2)
	assert.Equal(t, "chunk 1 chunk 2", got.Text)

	// Chunk files are removed after the merge.
	entries, err := os.ReadDir(cfg.WorkDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestTranscribeChunkedDiarizedFormat(t *testing.T) {
	path := sparseAudioFile(t, "big.mp3", 50*1024*1024)
	p := &fakeProvider{}

	cfg := ChunkedConfig{
		Splitter:  audio.NewSplitter(audio.WithRunner(&chunkerRunner{duration: 100})),
		MaxSizeMB: 25,
		WorkDir:   t.TempDir(),
	}
	got, err := TranscribeChunked(context.Background(), p, path,
		Options{Model: models.ModelGPT4oTranscribeDiarize, ResponseFormat: models.FormatDiarizedJSON}, cfg, nil)
	require.NoError(t, err)

	require.Len(t, p.calls, 2)
	for _, c := range p.calls {
		assert.Equal(t, models.FormatDiarizedJSON, c.opts.ResponseFormat)
	}

	// Both chunks label their speaker "A"; renumbering keeps the first
	// and leaves the second mapped into the same space.
	require.Len(t, got.Segments, 2)
	require.NotNil(t, got.Segments[0].Speaker)
	assert.Equal(t, "A", *got.Segments[0].Speaker)
}

func TestTranscribeChunkedMissingFile(t *testing.T) {
	p := &fakeProvider{}
	_, err := TranscribeChunked(context.Background(), p,
		filepath.Join(t.TempDir(), "absent.mp3"), Options{}, ChunkedConfig{}, nil)
	require.Error(t, err)
	assert.Empty(t, p.calls)
}

func TestTranscribeChunkedProgressPanicIgnored(t *testing.T) {
	path := sparseAudioFile(t, "big.mp3", 50*1024*1024)
	p := &fakeProvider{}

	cfg := ChunkedConfig{
		Splitter:  audio.NewSplitter(audio.WithRunner(&chunkerRunner{duration: 100})),
		MaxSizeMB: 25,
		WorkDir:   t.TempDir(),
	}
	got, err := TranscribeChunked(context.Background(), p, path, Options{}, cfg,
		func(cur, total int) { panic("observer bug") })
	require.NoError(t, err)
	assert.NotNil(t, got)
}
