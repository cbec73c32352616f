package audio

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/yoralex/video-transcribe/internal/models"
	"github.com/yoralex/video-transcribe/internal/utils"
)

// Defaults for chunk planning.
const (
	// DefaultMaxChunkSizeMB matches the 25 MB per-request ceiling of the
	// transcription APIs this service targets.
	DefaultMaxChunkSizeMB = 25

	// DefaultOverlapSec is shared audio between consecutive chunks so words
	// at a boundary land fully inside at least one chunk.
	DefaultOverlapSec = 2.0
)

// Splitter plans and materializes audio chunks. ffmpeg/ffprobe are reached
// through an injectable CommandRunner.
type Splitter struct {
	ffmpegPath  string
	ffprobePath string
	runner      CommandRunner
}

type SplitterOption func(*Splitter)

func WithRunner(r CommandRunner) SplitterOption {
	return func(s *Splitter) { s.runner = r }
}

func WithFFmpegPath(ffmpeg, ffprobe string) SplitterOption {
	return func(s *Splitter) {
		s.ffmpegPath = ffmpeg
		s.ffprobePath = ffprobe
	}
}

func NewSplitter(opts ...SplitterOption) *Splitter {
	s := &Splitter{
		ffmpegPath:  "ffmpeg",
		ffprobePath: "ffprobe",
		runner:      execRunner{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type window struct {
	start float64
	end   float64
}

// splitByTime computes chunk windows over [0, totalSec]. chunkSec is the
// nominal chunk span; overlap is subtracted from it to form the step, so
// consecutive windows share exactly overlapSec at the boundary. The loop
// stops early instead of emitting a tiny final window: when the remaining
// unconsumed duration is under half a step, the previous window's overlap
// tail already covers the end of the file.
func splitByTime(totalSec, chunkSec, overlapSec float64) ([]window, error) {
	step := chunkSec - overlapSec
	if step <= 0 {
		return nil, utils.E(utils.CodeInvalidArgument, "audio.splitByTime",
			fmt.Sprintf("overlap (%.2fs) exceeds chunk duration (%.2fs); use a smaller overlap or a larger max size", overlapSec, chunkSec),
			nil)
	}

	var windows []window
	cursor := 0.0
	for cursor < totalSec {
		end := cursor + chunkSec
		if end > totalSec {
			end = totalSec
		}
		windows = append(windows, window{start: cursor, end: end})

		cursor += step
		if totalSec-cursor < step/2 {
			break
		}
	}
	return windows, nil
}

// SplitAudio splits an audio file into chunks small enough for an API with
// a per-request size limit. Files at or under maxSizeMB are returned as a
// single chunk referencing the original file (IsTemp=false, no I/O beyond
// one duration probe). Larger files are split by size ratio: the chunk
// duration is (maxSizeMB / fileSizeMB) * totalDuration, which assumes a
// roughly constant bitrate.
//
// workDir receives the generated chunk files; when empty, a fresh run-scoped
// directory under the system temp area is used.
func (s *Splitter) SplitAudio(ctx context.Context, audioPath string, maxSizeMB int, overlapSec float64, workDir string) ([]models.AudioChunk, error) {
	const op = "audio.SplitAudio"

	info, err := os.Stat(audioPath)
	if err != nil {
		return nil, utils.E(utils.CodeNotFound, op, "audio file not found: "+audioPath, err)
	}

	fileSizeMB := float64(info.Size()) / (1024 * 1024)
	if fileSizeMB <= float64(maxSizeMB) {
		dur, err := s.ProbeDuration(ctx, audioPath)
		if err != nil {
			return nil, err
		}
		return []models.AudioChunk{{
			Path:                audioPath,
			Index:               0,
			StartSec:            0,
			EndSec:              dur,
			OriginalDurationSec: dur,
			IsTemp:              false, // original file, must never be deleted
		}}, nil
	}

	totalDur, err := s.ProbeDuration(ctx, audioPath)
	if err != nil {
		return nil, err
	}

	chunkDur := (float64(maxSizeMB) / fileSizeMB) * totalDur
	windows, err := splitByTime(totalDur, chunkDur, overlapSec)
	if err != nil {
		return nil, err
	}

	return s.exportChunks(ctx, audioPath, windows, totalDur, workDir)
}

// SplitAudioByDuration splits by an explicit per-chunk duration ceiling
// instead of a size ratio, for providers that cap request duration rather
// than payload size.
func (s *Splitter) SplitAudioByDuration(ctx context.Context, audioPath string, maxDurationSec, overlapSec float64, workDir string) ([]models.AudioChunk, error) {
	const op = "audio.SplitAudioByDuration"

	if maxDurationSec <= 0 {
		return nil, utils.E(utils.CodeInvalidArgument, op,
			fmt.Sprintf("max duration must be positive, got %.2fs", maxDurationSec), nil)
	}
	if overlapSec >= maxDurationSec {
		return nil, utils.E(utils.CodeInvalidArgument, op,
			fmt.Sprintf("overlap (%.2fs) exceeds chunk duration (%.2fs); use a smaller overlap or a larger max size", overlapSec, maxDurationSec),
			nil)
	}

	if _, err := os.Stat(audioPath); err != nil {
		return nil, utils.E(utils.CodeNotFound, op, "audio file not found: "+audioPath, err)
	}

	totalDur, err := s.ProbeDuration(ctx, audioPath)
	if err != nil {
		return nil, err
	}

	if totalDur <= maxDurationSec {
		return []models.AudioChunk{{
			Path:                audioPath,
			Index:               0,
			StartSec:            0,
			EndSec:              totalDur,
			OriginalDurationSec: totalDur,
			IsTemp:              false,
		}}, nil
	}

	windows, err := splitByTime(totalDur, maxDurationSec, overlapSec)
	if err != nil {
		return nil, err
	}

	return s.exportChunks(ctx, audioPath, windows, totalDur, workDir)
}

// exportChunks slices the source into one file per window. A failed export
// rolls back every chunk already written for this call before propagating.
func (s *Splitter) exportChunks(ctx context.Context, audioPath string, windows []window, totalDur float64, workDir string) ([]models.AudioChunk, error) {
	const op = "audio.exportChunks"

	if workDir == "" {
		workDir = filepath.Join(os.TempDir(), "video-transcribe-chunks", uuid.NewString())
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to create chunk directory", err)
	}

	ext := filepath.Ext(audioPath)
	stem := strings.TrimSuffix(filepath.Base(audioPath), ext)

	chunks := make([]models.AudioChunk, 0, len(windows))
	for i, w := range windows {
		chunkPath := filepath.Join(workDir, fmt.Sprintf("%s_chunk_%03d%s", stem, i, ext))

		_, err := s.runner.Run(ctx, s.ffmpegPath,
			"-y", "-v", "error",
			"-i", audioPath,
			"-ss", fmt.Sprintf("%.3f", w.start),
			"-to", fmt.Sprintf("%.3f", w.end),
			"-vn", "-c:a", "copy",
			chunkPath,
		)
		if err != nil {
			for _, existing := range chunks {
				_ = os.Remove(existing.Path)
			}
			return nil, utils.E(utils.CodeUnavailable, op,
				fmt.Sprintf("failed to export chunk %d", i), err)
		}

		chunks = append(chunks, models.AudioChunk{
			Path:                chunkPath,
			Index:               i,
			StartSec:            w.start,
			EndSec:              w.end,
			OriginalDurationSec: totalDur,
			IsTemp:              true,
		})
	}
	return chunks, nil
}

// CleanupChunks deletes generated chunk files. Entries with IsTemp=false
// point at the caller's original audio and are skipped. Deletion is best
// effort: missing files and failed removes are ignored, and calling this
// more than once is safe.
func CleanupChunks(chunks []models.AudioChunk) {
	for _, c := range chunks {
		if !c.IsTemp {
			continue
		}
		_ = os.Remove(c.Path)
	}
}
