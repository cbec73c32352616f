package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/yoralex/video-transcribe/internal/models"
	"github.com/yoralex/video-transcribe/internal/utils"
)

const (
	openAIBaseURL        = "https://api.openai.com/v1"
	openAITranscribePath = "/audio/transcriptions"

	// Per-request upload ceiling enforced by the API.
	openAIMaxFileSizeMB = 25
)

// openAIFormats lists the container formats the API accepts.
var openAIFormats = map[string]bool{
	".mp3": true, ".mp4": true, ".mpeg": true, ".mpga": true,
	".m4a": true, ".wav": true, ".webm": true,
}

// OpenAIProvider calls the OpenAI audio transcription endpoint over
// multipart HTTP. It handles the gpt-4o-transcribe model family,
// including the diarize variant.
type OpenAIProvider struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

type OpenAIOption func(*OpenAIProvider)

func WithOpenAIBaseURL(url string) OpenAIOption {
	return func(p *OpenAIProvider) { p.baseURL = strings.TrimRight(url, "/") }
}

func WithOpenAIHTTPClient(c *http.Client) OpenAIOption {
	return func(p *OpenAIProvider) { p.http = c }
}

func NewOpenAIProvider(apiKey string, opts ...OpenAIOption) (*OpenAIProvider, error) {
	const op = "transcribe.NewOpenAIProvider"
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, utils.E(utils.CodeUnauthorized, op,
			"OpenAI API key not found, set OPENAI_API_KEY or pass it explicitly", nil)
	}
	p := &OpenAIProvider{
		apiKey:  apiKey,
		baseURL: openAIBaseURL,
		http:    &http.Client{Timeout: 10 * time.Minute},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

func (p *OpenAIProvider) Name() string { return "openai" }

func (p *OpenAIProvider) Close() error { return nil }

func (p *OpenAIProvider) Transcribe(ctx context.Context, audioPath string, opts Options) (*models.TranscriptionResult, error) {
	const op = "transcribe.OpenAIProvider.Transcribe"

	model := opts.Model
	if model == "" {
		model = models.ModelGPT4oTranscribe
	}
	format := opts.ResponseFormat
	if format == "" {
		format = models.FormatJSON
	}

	info, err := os.Stat(audioPath)
	if err != nil {
		return nil, utils.E(utils.CodeNotFound, op, "audio file not found: "+audioPath, err)
	}

	ext := strings.ToLower(filepath.Ext(audioPath))
	if !openAIFormats[ext] {
		return nil, utils.E(utils.CodeInvalidArgument, op,
			fmt.Sprintf("unsupported format %q, supported: mp3, mp4, mpeg, mpga, m4a, wav, webm", ext), nil)
	}

	fileSizeMB := float64(info.Size()) / (1024 * 1024)
	if fileSizeMB > openAIMaxFileSizeMB {
		return nil, utils.E(utils.CodeInvalidArgument, op,
			fmt.Sprintf("file size (%.2f MB) exceeds the %d MB limit, use chunked transcription", fileSizeMB, openAIMaxFileSizeMB), nil)
	}

	if model.Diarize() && opts.Prompt != "" {
		return nil, utils.E(utils.CodeInvalidArgument, op,
			"prompt is not supported by "+string(model)+", use "+string(models.ModelGPT4oTranscribe)+" for prompt-based transcription", nil)
	}
	if format == models.FormatDiarizedJSON && !model.Diarize() {
		return nil, utils.E(utils.CodeInvalidArgument, op,
			"response format diarized_json only works with "+string(models.ModelGPT4oTranscribeDiarize), nil)
	}

	body, contentType, err := p.buildRequestBody(audioPath, model, format, opts)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+openAITranscribePath, body)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to build request", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", contentType)

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "OpenAI API request failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "failed to read OpenAI API response", err)
	}

	if resp.StatusCode != http.StatusOK {
		code := utils.CodeUnavailable
		if resp.StatusCode == http.StatusUnauthorized {
			code = utils.CodeUnauthorized
		} else if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			code = utils.CodeInvalidArgument
		}
		return nil, utils.E(code, op,
			fmt.Sprintf("OpenAI API error (%d): %s", resp.StatusCode, strings.TrimSpace(string(raw))), nil)
	}

	return parseOpenAIResponse(raw, model, format)
}

func (p *OpenAIProvider) buildRequestBody(audioPath string, model models.TranscriptionModel, format models.ResponseFormat, opts Options) (*bytes.Buffer, string, error) {
	const op = "transcribe.OpenAIProvider.buildRequestBody"

	f, err := os.Open(audioPath)
	if err != nil {
		return nil, "", utils.E(utils.CodeInternal, op, "failed to open audio file", err)
	}
	defer f.Close()

	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	part, err := w.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, "", utils.E(utils.CodeInternal, op, "failed to build multipart body", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", utils.E(utils.CodeInternal, op, "failed to read audio file", err)
	}

	fields := map[string]string{
		"model":           string(model),
		"response_format": string(format),
	}
	if opts.Prompt != "" && !model.Diarize() {
		fields["prompt"] = opts.Prompt
	}
	if opts.Language != "" {
		fields["language"] = opts.Language
	}
	if opts.Temperature != 0 {
		fields["temperature"] = strconv.FormatFloat(opts.Temperature, 'f', -1, 64)
	}
	if model.Diarize() {
		fields["chunking_strategy"] = "auto"
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", utils.E(utils.CodeInternal, op, "failed to build multipart body", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", utils.E(utils.CodeInternal, op, "failed to build multipart body", err)
	}
	return buf, w.FormDataContentType(), nil
}

type openAISegment struct {
	Speaker *string  `json:"speaker"`
	Start   *float64 `json:"start"`
	End     *float64 `json:"end"`
	Text    string   `json:"text"`
}

type openAIResponse struct {
	Text     string          `json:"text"`
	Duration *float64        `json:"duration"`
	Segments []openAISegment `json:"segments"`
}

func parseOpenAIResponse(raw []byte, model models.TranscriptionModel, format models.ResponseFormat) (*models.TranscriptionResult, error) {
	const op = "transcribe.parseOpenAIResponse"

	if format == models.FormatText {
		zero := 0.0
		return &models.TranscriptionResult{
			Text:           string(raw),
			Duration:       &zero,
			Segments:       []models.TranscriptionSegment{},
			ModelUsed:      model,
			ResponseFormat: format,
		}, nil
	}

	var body openAIResponse
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "failed to parse OpenAI API response", err)
	}

	result := &models.TranscriptionResult{
		Text:           body.Text,
		Duration:       body.Duration,
		Segments:       []models.TranscriptionSegment{},
		ModelUsed:      model,
		ResponseFormat: format,
	}

	if !format.HasSegments() {
		if result.Duration == nil {
			zero := 0.0
			result.Duration = &zero
		}
		return result, nil
	}

	for _, seg := range body.Segments {
		out := models.TranscriptionSegment{
			Start: seg.Start,
			End:   seg.End,
			Text:  seg.Text,
		}
		if format == models.FormatDiarizedJSON {
			out.Speaker = seg.Speaker
		}
		result.Segments = append(result.Segments, out)
	}

	if result.Text == "" && len(result.Segments) > 0 {
		var sb strings.Builder
		for _, s := range result.Segments {
			sb.WriteString(s.Text)
		}
		result.Text = sb.String()
	}
	if result.Duration == nil {
		d := 0.0
		if n := len(result.Segments); n > 0 && result.Segments[n-1].End != nil {
			d = *result.Segments[n-1].End
		}
		result.Duration = &d
	}

	return result, nil
}
