package postprocess

import (
	"context"
	"strings"

	vertexgenai "cloud.google.com/go/vertexai/genai"
	"google.golang.org/api/iterator"

	"github.com/yoralex/video-transcribe/internal/utils"
)

// VertexGeminiClient runs post-processing on Vertex AI Gemini. The
// streamed chunks are collected into one document before returning.
type VertexGeminiClient struct {
	client    *vertexgenai.Client
	modelName string
}

func NewVertexGeminiClient(ctx context.Context, projectID, location, modelName string) (*VertexGeminiClient, error) {
	c, err := vertexgenai.NewClient(ctx, projectID, location)
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, "postprocess.NewVertexGeminiClient",
			"failed to create vertex client", err)
	}
	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}
	return &VertexGeminiClient{client: c, modelName: modelName}, nil
}

func (v *VertexGeminiClient) Model() string { return v.modelName }

func (v *VertexGeminiClient) Close() error { return v.client.Close() }

func (v *VertexGeminiClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	const op = "postprocess.VertexGeminiClient.Complete"

	m := v.client.GenerativeModel(v.modelName)
	if systemPrompt != "" {
		m.SystemInstruction = &vertexgenai.Content{
			Parts: []vertexgenai.Part{vertexgenai.Text(systemPrompt)},
		}
	}

	var sb strings.Builder
	it := m.GenerateContentStream(ctx, vertexgenai.Text(userPrompt))
	for {
		resp, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return "", utils.E(utils.CodeUnavailable, op, "generation failed", err)
		}
		for _, cand := range resp.Candidates {
			if cand.Content == nil {
				continue
			}
			for _, part := range cand.Content.Parts {
				if t, ok := part.(vertexgenai.Text); ok {
					sb.WriteString(string(t))
				}
			}
		}
	}
	return sb.String(), nil
}
