// Package postprocess turns raw transcripts into structured documents
// (meeting summaries, tutorials) via an LLM, and derives safe output
// filenames from the model's suggestions.
package postprocess

import "context"

// Client is the chat-completion surface the processor needs. Both the
// OpenAI-compatible backend and Vertex AI Gemini implement it.
type Client interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	Model() string
	Close() error
}
