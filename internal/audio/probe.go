package audio

import (
	"context"
	"strconv"
	"strings"

	"github.com/yoralex/video-transcribe/internal/utils"
)

// ProbeDuration returns the total duration of a media file in seconds,
// via ffprobe. Probe failure is surfaced, never defaulted to zero.
func (s *Splitter) ProbeDuration(ctx context.Context, path string) (float64, error) {
	const op = "audio.ProbeDuration"

	out, err := s.runner.Run(ctx, s.ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	if err != nil {
		return 0, utils.E(utils.CodeUnavailable, op, "failed to get audio duration", err)
	}

	dur, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, utils.E(utils.CodeUnavailable, op, "unparseable ffprobe duration", err)
	}
	return dur, nil
}
