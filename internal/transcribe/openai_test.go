package transcribe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yoralex/video-transcribe/internal/models"
	"github.com/yoralex/video-transcribe/internal/utils"
)

func writeAudioFile(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("fake audio bytes"), 0o644))
	return path
}

func newTestOpenAI(t *testing.T, handler http.HandlerFunc) *OpenAIProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	p, err := NewOpenAIProvider("test-key", WithOpenAIBaseURL(srv.URL), WithOpenAIHTTPClient(srv.Client()))
	require.NoError(t, err)
	return p
}

func TestOpenAIProviderVerboseJSON(t *testing.T) {
	path := writeAudioFile(t, "sample.mp3")

	p := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(32<<20))
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "gpt-4o-transcribe", r.FormValue("model"))
		assert.Equal(t, "verbose_json", r.FormValue("response_format"))
		assert.Equal(t, "meeting notes", r.FormValue("prompt"))
		assert.Equal(t, "ru", r.FormValue("language"))
		assert.Empty(t, r.FormValue("chunking_strategy"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"text": "hello world",
			"duration": 7.5,
			"segments": [
				{"start": 0.0, "end": 3.2, "text": "hello"},
				{"start": 3.2, "end": 7.5, "text": "world"}
			]
		}`))
	})

	got, err := p.Transcribe(context.Background(), path, Options{
		Model:          models.ModelGPT4oTranscribe,
		ResponseFormat: models.FormatVerboseJSON,
		Prompt:         "meeting notes",
		Language:       "ru",
	})
	require.NoError(t, err)

	assert.Equal(t, "hello world", got.Text)
	require.NotNil(t, got.Duration)
	assert.InDelta(t, 7.5, *got.Duration, 0.001)
	require.Len(t, got.Segments, 2)
	assert.Nil(t, got.Segments[0].Speaker)
	assert.Equal(t, "hello", got.Segments[0].Text)
	assert.Equal(t, models.ModelGPT4oTranscribe, got.ModelUsed)
	assert.Equal(t, models.FormatVerboseJSON, got.ResponseFormat)
}

func TestOpenAIProviderDiarizedJSON(t *testing.T) {
	path := writeAudioFile(t, "sample.wav")

	p := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(32<<20))
		assert.Equal(t, "gpt-4o-transcribe-diarize", r.FormValue("model"))
		assert.Equal(t, "auto", r.FormValue("chunking_strategy"))
		assert.Empty(t, r.FormValue("prompt"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"text": "hi there",
			"duration": 4.0,
			"segments": [
				{"speaker": "A", "start": 0.0, "end": 2.0, "text": "hi"},
				{"speaker": "B", "start": 2.0, "end": 4.0, "text": "there"}
			]
		}`))
	})

	got, err := p.Transcribe(context.Background(), path, Options{
		Model:          models.ModelGPT4oTranscribeDiarize,
		ResponseFormat: models.FormatDiarizedJSON,
	})
	require.NoError(t, err)

	require.Len(t, got.Segments, 2)
	require.NotNil(t, got.Segments[0].Speaker)
	assert.Equal(t, "A", *got.Segments[0].Speaker)
	require.NotNil(t, got.Segments[1].Speaker)
	assert.Equal(t, "B", *got.Segments[1].Speaker)
}

func TestOpenAIProviderTextFormat(t *testing.T) {
	path := writeAudioFile(t, "sample.m4a")

	p := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("plain transcript"))
	})

	got, err := p.Transcribe(context.Background(), path, Options{ResponseFormat: models.FormatText})
	require.NoError(t, err)
	assert.Equal(t, "plain transcript", got.Text)
	assert.Empty(t, got.Segments)
}

func TestOpenAIProviderValidation(t *testing.T) {
	p := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := p.Transcribe(context.Background(), filepath.Join(t.TempDir(), "absent.mp3"), Options{})
		require.Error(t, err)
		assert.True(t, utils.IsCode(err, utils.CodeNotFound))
	})

	t.Run("unsupported extension", func(t *testing.T) {
		path := writeAudioFile(t, "sample.flac")
		_, err := p.Transcribe(context.Background(), path, Options{})
		require.Error(t, err)
		assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))
		assert.Contains(t, err.Error(), "unsupported format")
	})

	t.Run("prompt with diarize model", func(t *testing.T) {
		path := writeAudioFile(t, "sample.mp3")
		_, err := p.Transcribe(context.Background(), path, Options{
			Model:  models.ModelGPT4oTranscribeDiarize,
			Prompt: "context",
		})
		require.Error(t, err)
		assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))
		assert.Contains(t, err.Error(), "prompt is not supported")
	})

	t.Run("diarized format without diarize model", func(t *testing.T) {
		path := writeAudioFile(t, "sample.mp3")
		_, err := p.Transcribe(context.Background(), path, Options{
			Model:          models.ModelGPT4oTranscribe,
			ResponseFormat: models.FormatDiarizedJSON,
		})
		require.Error(t, err)
		assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))
	})
}

func TestOpenAIProviderAPIError(t *testing.T) {
	path := writeAudioFile(t, "sample.mp3")

	p := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "invalid api key"}`, http.StatusUnauthorized)
	})

	_, err := p.Transcribe(context.Background(), path, Options{})
	require.Error(t, err)
	assert.True(t, utils.IsCode(err, utils.CodeUnauthorized))
}

func TestNewOpenAIProviderRequiresKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	_, err := NewOpenAIProvider("")
	require.Error(t, err)
	assert.True(t, utils.IsCode(err, utils.CodeUnauthorized))
}
