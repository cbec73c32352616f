package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/yoralex/video-transcribe/config"
	"github.com/yoralex/video-transcribe/internal/audio"
	"github.com/yoralex/video-transcribe/internal/logger"
	"github.com/yoralex/video-transcribe/internal/models"
	"github.com/yoralex/video-transcribe/internal/postprocess"
	"github.com/yoralex/video-transcribe/internal/transcribe"
)

func main() {
	var (
		providerName = flag.String("provider", "", "speech-to-text provider: openai, zai or google (default from env)")
		model        = flag.String("model", string(models.ModelGPT4oTranscribe), "transcription model")
		format       = flag.String("format", string(models.FormatVerboseJSON), "response format: text, json, verbose_json or diarized_json")
		language     = flag.String("language", "", "source language hint (ISO 639-1)")
		prompt       = flag.String("prompt", "", "guidance prompt passed to the model")
		output       = flag.String("output", "", "transcript output path (default <input>.txt)")
		process      = flag.Bool("postprocess", false, "run LLM post-processing on the transcript")
		preset       = flag.String("preset", string(postprocess.PresetITMeetingSummary), "post-processing preset")
		keepAudio    = flag.Bool("keep-audio", false, "keep the intermediate audio extracted from video input")
		maxSizeMB    = flag.Int("max-size-mb", audio.DefaultMaxChunkSizeMB, "chunk size ceiling in megabytes")
		overlapSec   = flag.Float64("overlap", audio.DefaultOverlapSec, "overlap between adjacent chunks in seconds")
	)
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: transcribe [flags] <audio-or-video-file>")
		flag.PrintDefaults()
		os.Exit(2)
	}
	inputPath := flag.Arg(0)

	_ = godotenv.Load()
	log := logger.New()
	settings := config.LoadSettings()
	if *providerName == "" {
		*providerName = settings.STTProvider
	}

	ctx := context.Background()

	provider, err := transcribe.NewProvider(ctx, *providerName, settings.STTAPIKey, settings.STTBaseURL)
	if err != nil {
		log.WithError(err).Fatal("provider init error")
	}
	defer provider.Close()

	splitter := audio.NewSplitter()

	audioPath := inputPath
	if audio.IsVideoFile(inputPath) {
		log.WithField("file", inputPath).Info("extracting audio from video")
		audioPath, err = splitter.VideoToAudio(ctx, inputPath, "")
		if err != nil {
			log.WithError(err).Fatal("audio extraction error")
		}
		if !*keepAudio {
			defer os.Remove(audioPath)
		}
	}

	opts := transcribe.Options{
		Model:          models.TranscriptionModel(*model),
		ResponseFormat: models.ResponseFormat(*format),
		Language:       *language,
		Prompt:         *prompt,
	}
	cfg := transcribe.ChunkedConfig{
		Splitter:   splitter,
		MaxSizeMB:  *maxSizeMB,
		OverlapSec: *overlapSec,
	}

	result, err := transcribe.TranscribeChunked(ctx, provider, audioPath, opts, cfg, func(current, total int) {
		fmt.Fprintf(os.Stderr, "chunk %d/%d\n", current, total)
	})
	if err != nil {
		log.WithError(err).Fatal("transcription error")
	}

	outPath := *output
	if outPath == "" {
		outPath = strings.TrimSuffix(inputPath, filepath.Ext(inputPath)) + ".txt"
	}
	if err := os.WriteFile(outPath, []byte(renderTranscript(result)), 0o644); err != nil {
		log.WithError(err).Fatal("transcript write error")
	}
	log.WithField("path", outPath).Info("transcript saved")

	if *process {
		if err := runPostprocess(ctx, settings, result, postprocess.Preset(*preset), filepath.Dir(outPath), log); err != nil {
			// transcript is already on disk; report and keep it
			log.WithError(err).Error("post-processing failed")
		}
	}
}

func renderTranscript(r *models.TranscriptionResult) string {
	if len(r.Segments) > 0 && r.ResponseFormat.HasSegments() {
		return postprocess.FormatSegments(r.Segments)
	}
	return r.Text
}

func runPostprocess(ctx context.Context, s config.Settings, result *models.TranscriptionResult, preset postprocess.Preset, outDir string, log *logrus.Logger) error {
	var (
		client postprocess.Client
		err    error
	)
	if s.PostprocessProvider == "vertex" {
		client, err = postprocess.NewVertexGeminiClient(ctx, s.VertexProjectID, s.VertexLocation, s.PostprocessModel)
	} else {
		client, err = postprocess.NewOpenAICompatClient(s.PostprocessAPIKey,
			postprocess.WithChatBaseURL(s.PostprocessBaseURL),
			postprocess.WithChatModel(s.PostprocessModel),
			postprocess.WithChatTemperature(s.PostprocessTemperature),
		)
	}
	if err != nil {
		return err
	}
	defer client.Close()

	proc := postprocess.NewProcessor(client)
	out, err := proc.Process(ctx, result, preset)
	if err != nil {
		return err
	}

	name := postprocess.SanitizeFilename(postprocess.ExtractFilenameFromResponse(out.RawOutput))
	if name == "" {
		name = "summary" + postprocess.OutputSuffix(preset)
	}
	content := postprocess.StripFilenameMarker(out.RawOutput)
	path := postprocess.ResolveCollision(outDir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return err
	}
	log.WithFields(logrus.Fields{"path": path, "preset": string(preset)}).Info("post-processed output saved")
	return nil
}
