package transcribe

import (
	"context"
	"strings"

	"github.com/yoralex/video-transcribe/internal/utils"
)

// NewProvider builds the configured speech-to-text backend. Supported
// names are "openai", "zai" and "google". baseURL overrides the
// provider's default endpoint when non-empty.
func NewProvider(ctx context.Context, name, apiKey, baseURL string) (Provider, error) {
	const op = "transcribe.NewProvider"

	switch strings.ToLower(name) {
	case "openai":
		var opts []OpenAIOption
		if baseURL != "" {
			opts = append(opts, WithOpenAIBaseURL(baseURL))
		}
		return NewOpenAIProvider(apiKey, opts...)
	case "zai":
		var opts []GLMASROption
		if baseURL != "" {
			opts = append(opts, WithGLMASRBaseURL(baseURL))
		}
		return NewGLMASRProvider(apiKey, opts...)
	case "google":
		return NewGoogleSpeechProvider(ctx)
	default:
		return nil, utils.E(utils.CodeInvalidArgument, op,
			"invalid speech-to-text provider "+name+", supported: openai, zai, google", nil)
	}
}
