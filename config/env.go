package config

import (
	"os"
	"strconv"
	"time"
)

// Settings carries the transcription stack knobs read from the
// environment. Connection URIs stay with the Init* functions; this
// struct covers provider selection and pipeline behavior.
type Settings struct {
	// speech-to-text
	STTProvider string // openai | zai | google
	STTAPIKey   string
	STTBaseURL  string

	// post-processing LLM
	PostprocessProvider    string // openai | vertex
	PostprocessAPIKey      string
	PostprocessBaseURL     string
	PostprocessModel       string
	PostprocessTemperature float64

	// vertex
	VertexProjectID string
	VertexLocation  string

	// chunking
	ChunkMaxSizeMB  int
	ChunkOverlapSec float64
	ChunkWorkDir    string

	// artifacts
	GCSBucket string

	// cache
	TranscriptCacheTTL time.Duration
}

func LoadSettings() Settings {
	return Settings{
		STTProvider: envOr("SPEECH_TO_TEXT_PROVIDER", "openai"),
		STTAPIKey:   os.Getenv("SPEECH_TO_TEXT_API_KEY"),
		STTBaseURL:  os.Getenv("SPEECH_TO_TEXT_BASE_URL"),

		PostprocessProvider:    envOr("POSTPROCESS_PROVIDER", "openai"),
		PostprocessAPIKey:      os.Getenv("POSTPROCESS_API_KEY"),
		PostprocessBaseURL:     os.Getenv("POSTPROCESS_BASE_URL"),
		PostprocessModel:       envOr("POSTPROCESS_MODEL", "gpt-4o-mini"),
		PostprocessTemperature: envFloat("POSTPROCESS_TEMPERATURE", 0.3),

		VertexProjectID: os.Getenv("VERTEX_PROJECT_ID"),
		VertexLocation:  envOr("VERTEX_LOCATION", "us-central1"),

		ChunkMaxSizeMB:  envInt("CHUNK_MAX_SIZE_MB", 25),
		ChunkOverlapSec: envFloat("CHUNK_OVERLAP_SEC", 2.0),
		ChunkWorkDir:    os.Getenv("CHUNK_WORK_DIR"),

		GCSBucket: os.Getenv("GCS_BUCKET"),

		TranscriptCacheTTL: envDuration("TRANSCRIPT_CACHE_TTL", 24*time.Hour),
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
