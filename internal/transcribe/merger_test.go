package transcribe

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yoralex/video-transcribe/internal/models"
	"github.com/yoralex/video-transcribe/internal/utils"
)

func fptr(v float64) *float64 { return &v }
func sptr(v string) *string   { return &v }

func diarizedChunk(durSec float64, texts ...string) *models.TranscriptionResult {
	segs := make([]models.TranscriptionSegment, len(texts))
	span := durSec / float64(len(texts))
	labels := []string{"A", "B", "C", "D"}
	for i, text := range texts {
		segs[i] = models.TranscriptionSegment{
			Speaker: sptr(labels[i%len(labels)]),
			Start:   fptr(float64(i) * span),
			End:     fptr(float64(i+1) * span),
			Text:    text,
		}
	}
	return &models.TranscriptionResult{
		Text:           "ignored chunk text",
		Duration:       fptr(durSec),
		Segments:       segs,
		ModelUsed:      models.ModelGPT4oTranscribeDiarize,
		ResponseFormat: models.FormatDiarizedJSON,
	}
}

func TestMergeTimestampShift(t *testing.T) {
	mk := func() *models.TranscriptionResult {
		return &models.TranscriptionResult{
			Duration: fptr(5.0),
			Segments: []models.TranscriptionSegment{
				{Start: fptr(0), End: fptr(5), Text: "hello"},
			},
			ModelUsed:      models.ModelGPT4oTranscribe,
			ResponseFormat: models.FormatVerboseJSON,
		}
	}

	merged, err := MergeResults([]*models.TranscriptionResult{mk(), mk()}, []float64{0, 10}, false)
	require.NoError(t, err)
	require.Len(t, merged.Segments, 2)

	assert.Equal(t, 0.0, *merged.Segments[0].Start)
	assert.Equal(t, 5.0, *merged.Segments[0].End)
	assert.Equal(t, 10.0, *merged.Segments[1].Start)
	assert.Equal(t, 15.0, *merged.Segments[1].End)
}

func TestMergePreservesNilTimestamps(t *testing.T) {
	r := &models.TranscriptionResult{
		Duration: nil,
		Segments: []models.TranscriptionSegment{
			{Start: fptr(0), End: nil, Text: "no end"},
			{Start: nil, End: nil, Text: "no timing"},
		},
		ModelUsed:      models.ModelGLMASR,
		ResponseFormat: models.FormatJSON,
	}

	merged, err := MergeResults([]*models.TranscriptionResult{r}, []float64{42}, false)
	require.NoError(t, err)
	require.Len(t, merged.Segments, 2)

	assert.Equal(t, 42.0, *merged.Segments[0].Start)
	assert.Nil(t, merged.Segments[0].End)
	assert.Nil(t, merged.Segments[1].Start)
	assert.Nil(t, merged.Segments[1].End)
}

func TestMergeSegmentOrderAndCount(t *testing.T) {
	// Overlapping chunks: chunk 1 starts at 28 and its early segments
	// interleave with chunk 0's tail.
	c0 := &models.TranscriptionResult{
		Duration: fptr(30.0),
		Segments: []models.TranscriptionSegment{
			{Start: fptr(0), End: fptr(15), Text: "a"},
			{Start: fptr(27), End: fptr(30), Text: "b"},
		},
		ModelUsed:      models.ModelGPT4oTranscribe,
		ResponseFormat: models.FormatVerboseJSON,
	}
	c1 := &models.TranscriptionResult{
		Duration: fptr(30.0),
		Segments: []models.TranscriptionSegment{
			{Start: fptr(0), End: fptr(3), Text: "c"}, // adjusted start 28
			{Start: fptr(5), End: fptr(9), Text: "d"},
		},
		ModelUsed:      models.ModelGPT4oTranscribe,
		ResponseFormat: models.FormatVerboseJSON,
	}

	merged, err := MergeResults([]*models.TranscriptionResult{c0, c1}, []float64{0, 28}, false)
	require.NoError(t, err)

	require.Len(t, merged.Segments, 4, "merged segment count must equal the sum of inputs")
	var prev float64
	for i, seg := range merged.Segments {
		require.NotNil(t, seg.Start)
		assert.GreaterOrEqual(t, *seg.Start, prev, "segment %d out of order", i)
		prev = *seg.Start
	}
}

func TestSpeakerRenumberingTwoChunks(t *testing.T) {
	c0 := diarizedChunk(10, "hi a", "hi b")
	c1 := diarizedChunk(10, "hello a", "hello b")

	merged, err := MergeResults([]*models.TranscriptionResult{c0, c1}, []float64{0, 10}, true)
	require.NoError(t, err)
	require.Len(t, merged.Segments, 4)

	var got []string
	for _, seg := range merged.Segments {
		got = append(got, *seg.Speaker)
	}
	assert.Equal(t, []string{"A", "B", "C", "D"}, got)
}

func TestSpeakerRenumberingBeyondZ(t *testing.T) {
	var results []*models.TranscriptionResult
	var offsets []float64
	for i := 0; i < 14; i++ {
		results = append(results, diarizedChunk(10, fmt.Sprintf("a%d", i), fmt.Sprintf("b%d", i)))
		offsets = append(offsets, float64(i)*10)
	}

	merged, err := MergeResults(results, offsets, true)
	require.NoError(t, err)
	require.Len(t, merged.Segments, 28)

	var got []string
	for _, seg := range merged.Segments {
		got = append(got, *seg.Speaker)
	}

	want := make([]string, 0, 28)
	for r := 'A'; r <= 'Z'; r++ {
		want = append(want, string(r))
	}
	want = append(want, "AA", "AB")
	assert.Equal(t, want, got)
}

func TestSpeakerRenumberingSameChunkLabelsStable(t *testing.T) {
	// A speaker returning within one chunk keeps one global label.
	r := &models.TranscriptionResult{
		Duration: fptr(20.0),
		Segments: []models.TranscriptionSegment{
			{Speaker: sptr("A"), Start: fptr(0), End: fptr(5), Text: "1"},
			{Speaker: sptr("B"), Start: fptr(5), End: fptr(10), Text: "2"},
			{Speaker: sptr("A"), Start: fptr(10), End: fptr(15), Text: "3"},
			{Speaker: sptr("B"), Start: fptr(15), End: fptr(20), Text: "4"},
		},
		ModelUsed:      models.ModelGPT4oTranscribeDiarize,
		ResponseFormat: models.FormatDiarizedJSON,
	}

	merged, err := MergeResults([]*models.TranscriptionResult{r}, []float64{0}, true)
	require.NoError(t, err)

	var got []string
	for _, seg := range merged.Segments {
		got = append(got, *seg.Speaker)
	}
	assert.Equal(t, []string{"A", "B", "A", "B"}, got)
}

func TestSpeakerRenumberingSkipsNilSpeakers(t *testing.T) {
	r := &models.TranscriptionResult{
		Duration: fptr(10.0),
		Segments: []models.TranscriptionSegment{
			{Speaker: sptr("A"), Start: fptr(0), End: fptr(4), Text: "1"},
			{Speaker: nil, Start: fptr(4), End: fptr(6), Text: "noise"},
			{Speaker: sptr("B"), Start: fptr(6), End: fptr(10), Text: "2"},
		},
		ModelUsed:      models.ModelGPT4oTranscribeDiarize,
		ResponseFormat: models.FormatDiarizedJSON,
	}

	merged, err := MergeResults([]*models.TranscriptionResult{r}, []float64{0}, true)
	require.NoError(t, err)

	assert.Equal(t, "A", *merged.Segments[0].Speaker)
	assert.Nil(t, merged.Segments[1].Speaker)
	assert.Equal(t, "B", *merged.Segments[2].Speaker)
}

func TestMergeValidation(t *testing.T) {
	r := diarizedChunk(10, "x")

	t.Run("length mismatch", func(t *testing.T) {
		_, err := MergeResults([]*models.TranscriptionResult{r}, []float64{0, 10}, false)
		require.Error(t, err)
		assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))
		assert.Contains(t, err.Error(), "must match")
	})

	t.Run("empty input", func(t *testing.T) {
		_, err := MergeResults(nil, nil, false)
		require.Error(t, err)
		assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))
		assert.Contains(t, err.Error(), "at least one result")
	})
}

func TestMergeTextAssembly(t *testing.T) {
	c0 := &models.TranscriptionResult{
		Text:     "provider text zero, discarded",
		Duration: fptr(10.0),
		Segments: []models.TranscriptionSegment{
			{Start: fptr(0), End: fptr(5), Text: "first"},
			{Start: fptr(5), End: fptr(10), Text: "second"},
		},
		ModelUsed:      models.ModelGPT4oTranscribe,
		ResponseFormat: models.FormatVerboseJSON,
	}
	c1 := &models.TranscriptionResult{
		Text:     "provider text one, discarded",
		Duration: fptr(8.0),
		Segments: []models.TranscriptionSegment{
			{Start: fptr(0), End: fptr(8), Text: "third"},
		},
		ModelUsed:      models.ModelGPT4oTranscribe,
		ResponseFormat: models.FormatVerboseJSON,
	}

	merged, err := MergeResults([]*models.TranscriptionResult{c0, c1}, []float64{0, 10}, false)
	require.NoError(t, err)

	assert.Equal(t, "first second third", merged.Text)
	assert.Equal(t, models.ModelGPT4oTranscribe, merged.ModelUsed)
	assert.Equal(t, models.FormatVerboseJSON, merged.ResponseFormat)
	require.NotNil(t, merged.Duration)
	assert.InDelta(t, 18.0, *merged.Duration, 0.001, "duration = last offset + last chunk duration")
}

func TestSpeakerLabelGeneration(t *testing.T) {
	assert.Equal(t, "A", speakerLabel(0))
	assert.Equal(t, "Z", speakerLabel(25))
	assert.Equal(t, "AA", speakerLabel(26))
	assert.Equal(t, "AB", speakerLabel(27))
	assert.Equal(t, "AZ", speakerLabel(51))
	assert.Equal(t, "BA", speakerLabel(52))
}
