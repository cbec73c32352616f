package audio

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/yoralex/video-transcribe/internal/utils"
)

// Audio extraction settings: mono 16 kHz mp3 is what the transcription
// providers recommend for speech.
const (
	audioSampleRate = "16000"
	audioCodec      = "libmp3lame"
)

var videoExtensions = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".avi":  true,
	".mkv":  true,
	".webm": true,
}

// IsVideoFile reports whether the path looks like a video container.
func IsVideoFile(path string) bool {
	return videoExtensions[strings.ToLower(filepath.Ext(path))]
}

// VideoToAudio extracts the audio track of a video into an mp3 file. When
// outputPath is empty, the audio lands next to the video with an .mp3
// extension.
func (s *Splitter) VideoToAudio(ctx context.Context, videoPath, outputPath string) (string, error) {
	const op = "audio.VideoToAudio"

	if _, err := os.Stat(videoPath); err != nil {
		return "", utils.E(utils.CodeNotFound, op, "video file not found: "+videoPath, err)
	}

	if outputPath == "" {
		ext := filepath.Ext(videoPath)
		outputPath = strings.TrimSuffix(videoPath, ext) + ".mp3"
	}

	_, err := s.runner.Run(ctx, s.ffmpegPath,
		"-y", "-v", "error",
		"-i", videoPath,
		"-vn",
		"-acodec", audioCodec,
		"-ar", audioSampleRate,
		"-ac", "1",
		outputPath,
	)
	if err != nil {
		return "", utils.E(utils.CodeUnavailable, op, "ffmpeg conversion failed", err)
	}
	return outputPath, nil
}
