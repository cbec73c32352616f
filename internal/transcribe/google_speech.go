package transcribe

import (
	"context"
	"os"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "cloud.google.com/go/speech/apiv1/speechpb"

	"github.com/yoralex/video-transcribe/internal/models"
	"github.com/yoralex/video-transcribe/internal/utils"
)

// GoogleSpeechProvider transcribes audio through the Cloud Speech-to-Text
// synchronous Recognize API. Diarization is mapped onto segments by
// grouping consecutive words that share a speaker tag.
type GoogleSpeechProvider struct {
	c *speech.Client

	Encoding     speechpb.RecognitionConfig_AudioEncoding
	SampleRateHz int32
}

func NewGoogleSpeechProvider(ctx context.Context) (*GoogleSpeechProvider, error) {
	c, err := speech.NewClient(ctx)
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, "transcribe.NewGoogleSpeechProvider",
			"failed to create speech client", err)
	}
	return &GoogleSpeechProvider{
		c:            c,
		Encoding:     speechpb.RecognitionConfig_MP3,
		SampleRateHz: 16000,
	}, nil
}

func (g *GoogleSpeechProvider) Name() string { return "google" }

func (g *GoogleSpeechProvider) Close() error { return g.c.Close() }

func (g *GoogleSpeechProvider) Transcribe(ctx context.Context, audioPath string, opts Options) (*models.TranscriptionResult, error) {
	const op = "transcribe.GoogleSpeechProvider.Transcribe"

	audio, err := os.ReadFile(audioPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, utils.E(utils.CodeNotFound, op, "audio file not found: "+audioPath, err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to read audio file", err)
	}

	language := opts.Language
	if language == "" {
		language = "en-US"
	}

	diarize := opts.ResponseFormat == models.FormatDiarizedJSON

	cfg := &speechpb.RecognitionConfig{
		Encoding:                   g.Encoding,
		SampleRateHertz:            g.SampleRateHz,
		LanguageCode:               language,
		EnableAutomaticPunctuation: true,
		EnableWordTimeOffsets:      true,
	}
	if diarize {
		cfg.DiarizationConfig = &speechpb.SpeakerDiarizationConfig{
			EnableSpeakerDiarization: true,
		}
	}

	resp, err := g.c.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: cfg,
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio},
		},
	})
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "speech recognition failed", err)
	}

	result := &models.TranscriptionResult{
		Segments:       []models.TranscriptionSegment{},
		ModelUsed:      models.ModelGoogleLatestLong,
		ResponseFormat: opts.ResponseFormat,
	}
	if result.ResponseFormat == "" {
		result.ResponseFormat = models.FormatVerboseJSON
	}

	var texts []string
	for _, r := range resp.Results {
		if len(r.Alternatives) == 0 {
			continue
		}
		alt := r.Alternatives[0]
		if alt.Transcript != "" {
			texts = append(texts, strings.TrimSpace(alt.Transcript))
		}
		result.Segments = append(result.Segments, wordsToSegments(alt.Words, diarize)...)
	}
	result.Text = strings.Join(texts, " ")

	if n := len(result.Segments); n > 0 && result.Segments[n-1].End != nil {
		d := *result.Segments[n-1].End
		result.Duration = &d
	}

	return result, nil
}

// wordsToSegments folds word-level results into speaker-contiguous
// segments. Without diarization the whole word list becomes one segment.
func wordsToSegments(words []*speechpb.WordInfo, diarize bool) []models.TranscriptionSegment {
	if len(words) == 0 {
		return nil
	}

	var segments []models.TranscriptionSegment
	var cur *models.TranscriptionSegment
	var curWords []string
	curTag := int32(-1)

	flush := func() {
		if cur == nil {
			return
		}
		cur.Text = strings.Join(curWords, " ")
		segments = append(segments, *cur)
		cur = nil
		curWords = nil
	}

	for _, w := range words {
		tag := w.SpeakerTag
		if cur == nil || (diarize && tag != curTag) {
			flush()
			seg := models.TranscriptionSegment{}
			if start := w.StartTime; start != nil {
				s := start.AsDuration().Seconds()
				seg.Start = &s
			}
			if diarize {
				// Speaker tags are 1-based; an unset tag maps to the first label.
				n := int(tag) - 1
				if n < 0 {
					n = 0
				}
				label := speakerLabel(n)
				seg.Speaker = &label
			}
			cur = &seg
			curTag = tag
		}
		if end := w.EndTime; end != nil {
			e := end.AsDuration().Seconds()
			cur.End = &e
		}
		curWords = append(curWords, w.Word)
	}
	flush()

	return segments
}
