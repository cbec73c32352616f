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
	"strings"
	"time"

	"github.com/yoralex/video-transcribe/internal/models"
	"github.com/yoralex/video-transcribe/internal/utils"
)

const (
	zaiBaseURL        = "https://api.z.ai/api/paas/v4"
	zaiTranscribePath = "/audio/transcriptions"

	zaiMaxFileSize = 25 * 1024 * 1024

	// Transcriptions come back in Chinese without an explicit language hint.
	zaiDefaultPrompt = "IMPORTANT! Target Language is RUSSIAN."
)

var zaiFormats = map[string]bool{".wav": true, ".mp3": true}

// GLMASRProvider transcribes audio through the Z.AI GLM-ASR-2512 API.
// The endpoint is not OpenAI-compatible: it returns plain text with no
// timing or speaker data, so results carry a single synthetic segment.
type GLMASRProvider struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

type GLMASROption func(*GLMASRProvider)

func WithGLMASRBaseURL(url string) GLMASROption {
	return func(p *GLMASRProvider) { p.baseURL = strings.TrimRight(url, "/") }
}

func WithGLMASRHTTPClient(c *http.Client) GLMASROption {
	return func(p *GLMASRProvider) { p.http = c }
}

func NewGLMASRProvider(apiKey string, opts ...GLMASROption) (*GLMASRProvider, error) {
	const op = "transcribe.NewGLMASRProvider"
	if apiKey == "" {
		apiKey = os.Getenv("SPEECH_TO_TEXT_API_KEY")
	}
	if apiKey == "" {
		apiKey = os.Getenv("ZAI_API_KEY")
	}
	if apiKey == "" {
		return nil, utils.E(utils.CodeUnauthorized, op,
			"Z.AI API key not found, set SPEECH_TO_TEXT_API_KEY or ZAI_API_KEY", nil)
	}
	p := &GLMASRProvider{
		apiKey:  apiKey,
		baseURL: zaiBaseURL,
		http:    &http.Client{Timeout: 5 * time.Minute},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

func (p *GLMASRProvider) Name() string { return "zai" }

func (p *GLMASRProvider) Close() error { return nil }

func (p *GLMASRProvider) Transcribe(ctx context.Context, audioPath string, opts Options) (*models.TranscriptionResult, error) {
	const op = "transcribe.GLMASRProvider.Transcribe"

	info, err := os.Stat(audioPath)
	if err != nil {
		return nil, utils.E(utils.CodeNotFound, op, "audio file not found: "+audioPath, err)
	}

	ext := strings.ToLower(filepath.Ext(audioPath))
	if !zaiFormats[ext] {
		return nil, utils.E(utils.CodeInvalidArgument, op,
			fmt.Sprintf("unsupported format %q, supported: wav, mp3", ext), nil)
	}

	if info.Size() > zaiMaxFileSize {
		return nil, utils.E(utils.CodeInvalidArgument, op,
			fmt.Sprintf("file size (%.2f MB) exceeds the %d MB limit",
				float64(info.Size())/(1024*1024), zaiMaxFileSize/(1024*1024)), nil)
	}

	prompt := opts.Prompt
	if prompt == "" {
		prompt = zaiDefaultPrompt
	}

	body, contentType, err := p.buildRequestBody(audioPath, prompt)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+zaiTranscribePath, body)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to build request", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", contentType)

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "Z.AI API request failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "failed to read Z.AI API response", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		return nil, utils.E(utils.CodeUnauthorized, op, "Z.AI API key is invalid: "+strings.TrimSpace(string(raw)), nil)
	case http.StatusRequestEntityTooLarge:
		return nil, utils.E(utils.CodeInvalidArgument, op, "file too large for Z.AI API: "+strings.TrimSpace(string(raw)), nil)
	case http.StatusBadRequest:
		return nil, utils.E(utils.CodeInvalidArgument, op, "invalid audio for Z.AI API: "+strings.TrimSpace(string(raw)), nil)
	default:
		return nil, utils.E(utils.CodeUnavailable, op,
			fmt.Sprintf("Z.AI API error (%d): %s", resp.StatusCode, strings.TrimSpace(string(raw))), nil)
	}

	var parsed struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "failed to parse Z.AI API response", err)
	}

	// One synthetic segment keeps the merge path working even though the
	// API reports neither timing nor duration.
	start := 0.0
	return &models.TranscriptionResult{
		Text:     parsed.Text,
		Duration: nil,
		Segments: []models.TranscriptionSegment{
			{Speaker: nil, Start: &start, End: nil, Text: parsed.Text},
		},
		ModelUsed:      models.ModelGLMASR,
		ResponseFormat: models.FormatJSON,
	}, nil
}

func (p *GLMASRProvider) buildRequestBody(audioPath, prompt string) (*bytes.Buffer, string, error) {
	const op = "transcribe.GLMASRProvider.buildRequestBody"

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
		"model":  string(models.ModelGLMASR),
		"stream": "false",
	}
	if prompt != "" {
		fields["prompt"] = prompt
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
