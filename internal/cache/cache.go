// Package cache keys transcription results by a digest of the source
// audio and request parameters, so re-submitting the same file skips
// the provider calls entirely.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"time"
)

type Cache interface {
	GetJSON(ctx context.Context, key string, dst any) (hit bool, err error)
	SetJSON(ctx context.Context, key string, val any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// TranscriptKey builds the cache key for a merged transcription result.
func TranscriptKey(digest string) string {
	return "transcript:" + digest
}

// RequestDigest hashes the audio bytes together with the request
// parameters that change the output (model, format, language, prompt).
func RequestDigest(audioPath string, params ...string) (string, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	for _, p := range params {
		h.Write([]byte{0})
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
