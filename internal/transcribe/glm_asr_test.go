package transcribe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yoralex/video-transcribe/internal/models"
	"github.com/yoralex/video-transcribe/internal/utils"
)

func newTestGLMASR(t *testing.T, handler http.HandlerFunc) *GLMASRProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	p, err := NewGLMASRProvider("test-key", WithGLMASRBaseURL(srv.URL), WithGLMASRHTTPClient(srv.Client()))
	require.NoError(t, err)
	return p
}

func TestGLMASRProviderTranscribe(t *testing.T) {
	path := writeAudioFile(t, "sample.mp3")

	p := newTestGLMASR(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(32<<20))
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "glm-asr-2512", r.FormValue("model"))
		assert.Equal(t, "false", r.FormValue("stream"))
		assert.Contains(t, r.FormValue("prompt"), "RUSSIAN")

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id": "task-1", "model": "glm-asr-2512", "text": "привет мир"}`))
	})

	got, err := p.Transcribe(context.Background(), path, Options{})
	require.NoError(t, err)

	assert.Equal(t, "привет мир", got.Text)
	assert.Nil(t, got.Duration)
	assert.Equal(t, models.ModelGLMASR, got.ModelUsed)
	assert.Equal(t, models.FormatJSON, got.ResponseFormat)

	// A single synthetic segment keeps downstream merging working.
	require.Len(t, got.Segments, 1)
	assert.Nil(t, got.Segments[0].Speaker)
	require.NotNil(t, got.Segments[0].Start)
	assert.Zero(t, *got.Segments[0].Start)
	assert.Nil(t, got.Segments[0].End)
	assert.Equal(t, "привет мир", got.Segments[0].Text)
}

func TestGLMASRProviderCustomPrompt(t *testing.T) {
	path := writeAudioFile(t, "sample.wav")

	p := newTestGLMASR(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(32<<20))
		assert.Equal(t, "custom hint", r.FormValue("prompt"))
		w.Write([]byte(`{"text": "ok"}`))
	})

	_, err := p.Transcribe(context.Background(), path, Options{Prompt: "custom hint"})
	require.NoError(t, err)
}

func TestGLMASRProviderValidation(t *testing.T) {
	p := newTestGLMASR(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := p.Transcribe(context.Background(), filepath.Join(t.TempDir(), "absent.mp3"), Options{})
		require.Error(t, err)
		assert.True(t, utils.IsCode(err, utils.CodeNotFound))
	})

	t.Run("unsupported extension", func(t *testing.T) {
		path := writeAudioFile(t, "sample.m4a")
		_, err := p.Transcribe(context.Background(), path, Options{})
		require.Error(t, err)
		assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))
	})
}

func TestGLMASRProviderStatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		status int
		code   utils.Code
	}{
		{"unauthorized", http.StatusUnauthorized, utils.CodeUnauthorized},
		{"too large", http.StatusRequestEntityTooLarge, utils.CodeInvalidArgument},
		{"bad request", http.StatusBadRequest, utils.CodeInvalidArgument},
		{"server error", http.StatusInternalServerError, utils.CodeUnavailable},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeAudioFile(t, "sample.mp3")
			p := newTestGLMASR(t, func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "upstream says no", tc.status)
			})
			_, err := p.Transcribe(context.Background(), path, Options{})
			require.Error(t, err)
			assert.True(t, utils.IsCode(err, tc.code), "want %s, got %v", tc.code, err)
		})
	}
}

func TestNewGLMASRProviderRequiresKey(t *testing.T) {
	t.Setenv("SPEECH_TO_TEXT_API_KEY", "")
	t.Setenv("ZAI_API_KEY", "")
	_, err := NewGLMASRProvider("")
	require.Error(t, err)
	assert.True(t, utils.IsCode(err, utils.CodeUnauthorized))
}
