package postprocess

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/yoralex/video-transcribe/internal/models"
	"github.com/yoralex/video-transcribe/internal/utils"
)

// Result is the output of one post-processing run.
type Result struct {
	PresetName string `json:"preset_name"`
	RawOutput  string `json:"raw_output"`
	ModelUsed  string `json:"model_used"`
	OutputPath string `json:"output_path,omitempty"`
}

// Processor reshapes a transcription result through an LLM preset.
type Processor struct {
	client Client
	now    func() time.Time
}

type ProcessorOption func(*Processor)

// WithClock overrides the clock used for the {date} placeholder.
func WithClock(now func() time.Time) ProcessorOption {
	return func(p *Processor) { p.now = now }
}

func NewProcessor(client Client, opts ...ProcessorOption) *Processor {
	p := &Processor{client: client, now: time.Now}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Process renders the preset's user prompt from the transcript and runs
// the completion.
func (p *Processor) Process(ctx context.Context, transcript *models.TranscriptionResult, preset Preset) (*Result, error) {
	const op = "postprocess.Processor.Process"

	if transcript == nil {
		return nil, utils.E(utils.CodeInvalidArgument, op, "transcript is required", nil)
	}

	template, err := GetPreset(preset)
	if err != nil {
		return nil, err
	}

	userPrompt := p.formatPrompt(template.User, transcript)

	raw, err := p.client.Complete(ctx, template.System, userPrompt)
	if err != nil {
		return nil, err
	}

	return &Result{
		PresetName: string(preset),
		RawOutput:  raw,
		ModelUsed:  p.client.Model(),
	}, nil
}

// formatPrompt fills the template's placeholders:
// {transcript}, {segments}, {duration}, {duration_minutes},
// {duration_formatted}, {model}, {date}.
func (p *Processor) formatPrompt(template string, transcript *models.TranscriptionResult) string {
	duration := 0.0
	if transcript.Duration != nil {
		duration = *transcript.Duration
	}

	r := strings.NewReplacer(
		"{transcript}", transcript.Text,
		"{segments}", FormatSegments(transcript.Segments),
		"{duration}", fmt.Sprintf("%.1f", duration),
		"{duration_minutes}", fmt.Sprintf("%.1f", duration/60),
		"{duration_formatted}", formatDuration(transcript.Duration),
		"{model}", string(transcript.ModelUsed),
		"{date}", p.now().Format("2006-01-02"),
	)
	return r.Replace(template)
}

func formatDuration(seconds *float64) string {
	if seconds == nil {
		return "N/A"
	}
	total := int(*seconds)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}

// FormatSegments renders segments one per line with timestamps and
// speaker labels where present.
func FormatSegments(segments []models.TranscriptionSegment) string {
	lines := make([]string, 0, len(segments))
	for _, seg := range segments {
		var sb strings.Builder
		if seg.Start != nil && seg.End != nil {
			fmt.Fprintf(&sb, "(%.1f-%.1f) ", *seg.Start, *seg.End)
		}
		if seg.Speaker != nil {
			fmt.Fprintf(&sb, "[%s] ", *seg.Speaker)
		}
		sb.WriteString(seg.Text)
		lines = append(lines, sb.String())
	}
	return strings.Join(lines, "\n")
}

// OutputSuffix maps a preset to the file suffix its result is saved
// under, appended to the transcript path stem.
func OutputSuffix(preset Preset) string {
	switch preset {
	case PresetITMeetingSummary:
		return ".summary.md"
	case PresetScreencastCleanup:
		return ".screencast.md"
	default:
		return ".processed.md"
	}
}
