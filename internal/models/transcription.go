package models

// TranscriptionModel identifies a speech-to-text model. The set is closed:
// provider request parameters are only built from validated values.
type TranscriptionModel string

const (
	ModelGPT4oTranscribe        TranscriptionModel = "gpt-4o-transcribe"
	ModelGPT4oTranscribeDiarize TranscriptionModel = "gpt-4o-transcribe-diarize"
	ModelGLMASR                 TranscriptionModel = "glm-asr-2512"
	ModelGoogleLatestLong       TranscriptionModel = "latest_long"
)

func (m TranscriptionModel) Valid() bool {
	switch m {
	case ModelGPT4oTranscribe, ModelGPT4oTranscribeDiarize, ModelGLMASR, ModelGoogleLatestLong:
		return true
	}
	return false
}

// Diarize reports whether the model produces speaker labels.
func (m TranscriptionModel) Diarize() bool {
	return m == ModelGPT4oTranscribeDiarize
}

// ResponseFormat selects the shape of a transcription response.
type ResponseFormat string

const (
	FormatText         ResponseFormat = "text"
	FormatJSON         ResponseFormat = "json"
	FormatVerboseJSON  ResponseFormat = "verbose_json"
	FormatDiarizedJSON ResponseFormat = "diarized_json"
)

func (f ResponseFormat) Valid() bool {
	switch f {
	case FormatText, FormatJSON, FormatVerboseJSON, FormatDiarizedJSON:
		return true
	}
	return false
}

// HasSegments reports whether the format carries per-segment timing, which
// chunked transcription depends on for merging.
func (f ResponseFormat) HasSegments() bool {
	return f == FormatVerboseJSON || f == FormatDiarizedJSON
}

// TranscriptionSegment is one span of transcribed speech. Start/End are
// chunk-local seconds before merging and original-timeline seconds after.
// Speaker is nil when diarization was not requested or not supported.
type TranscriptionSegment struct {
	Speaker *string  `json:"speaker,omitempty"`
	Start   *float64 `json:"start,omitempty"`
	End     *float64 `json:"end,omitempty"`
	Text    string   `json:"text"`
}

// TranscriptionResult is the aggregate of one transcription call: a single
// chunk's response, or the merged output of a whole recording.
type TranscriptionResult struct {
	Text           string                 `json:"text"`
	Duration       *float64               `json:"duration,omitempty"`
	Segments       []TranscriptionSegment `json:"segments"`
	ModelUsed      TranscriptionModel     `json:"model_used"`
	ResponseFormat ResponseFormat         `json:"response_format"`
}
