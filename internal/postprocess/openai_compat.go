package postprocess

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/yoralex/video-transcribe/internal/utils"
)

const (
	defaultChatBaseURL = "https://api.openai.com/v1"
	chatCompletionPath = "/chat/completions"

	DefaultChatModel       = "gpt-4o-mini"
	DefaultChatTemperature = 0.3
)

// OpenAICompatClient talks to any OpenAI-compatible chat completions
// endpoint (OpenAI itself, Z.AI GLM, local gateways) selected by base
// URL and model name.
type OpenAICompatClient struct {
	apiKey      string
	baseURL     string
	model       string
	temperature float64
	http        *http.Client
}

type ChatOption func(*OpenAICompatClient)

func WithChatBaseURL(url string) ChatOption {
	return func(c *OpenAICompatClient) {
		if url != "" {
			c.baseURL = strings.TrimRight(url, "/")
		}
	}
}

func WithChatModel(model string) ChatOption {
	return func(c *OpenAICompatClient) {
		if model != "" {
			c.model = model
		}
	}
}

func WithChatTemperature(t float64) ChatOption {
	return func(c *OpenAICompatClient) { c.temperature = t }
}

func WithChatHTTPClient(h *http.Client) ChatOption {
	return func(c *OpenAICompatClient) { c.http = h }
}

func NewOpenAICompatClient(apiKey string, opts ...ChatOption) (*OpenAICompatClient, error) {
	const op = "postprocess.NewOpenAICompatClient"
	if apiKey == "" {
		apiKey = os.Getenv("POSTPROCESS_API_KEY")
	}
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, utils.E(utils.CodeUnauthorized, op,
			"post-processing API key not found, set POSTPROCESS_API_KEY or OPENAI_API_KEY", nil)
	}
	c := &OpenAICompatClient{
		apiKey:      apiKey,
		baseURL:     defaultChatBaseURL,
		model:       DefaultChatModel,
		temperature: DefaultChatTemperature,
		http:        &http.Client{Timeout: 5 * time.Minute},
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

func (c *OpenAICompatClient) Model() string { return c.model }

func (c *OpenAICompatClient) Close() error { return nil }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (c *OpenAICompatClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	const op = "postprocess.OpenAICompatClient.Complete"

	var messages []chatMessage
	if systemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: userPrompt})

	payload, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
	})
	if err != nil {
		return "", utils.E(utils.CodeInternal, op, "failed to encode request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+chatCompletionPath, bytes.NewReader(payload))
	if err != nil {
		return "", utils.E(utils.CodeInternal, op, "failed to build request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", utils.E(utils.CodeUnavailable, op, "chat completion request failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", utils.E(utils.CodeUnavailable, op, "failed to read chat completion response", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized:
		return "", utils.E(utils.CodeUnauthorized, op, "chat completion API key rejected", nil)
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", utils.E(utils.CodeUnavailable, op, "chat completion rate limit exceeded", nil)
	default:
		return "", utils.E(utils.CodeUnavailable, op,
			fmt.Sprintf("chat completion error (%d): %s", resp.StatusCode, strings.TrimSpace(string(raw))), nil)
	}

	var body chatResponse
	if err := json.Unmarshal(raw, &body); err != nil {
		return "", utils.E(utils.CodeUnavailable, op, "failed to parse chat completion response", err)
	}
	if len(body.Choices) == 0 {
		return "", utils.E(utils.CodeUnavailable, op, "chat completion returned no choices", nil)
	}
	return body.Choices[0].Message.Content, nil
}
