package transcribe

import (
	"fmt"
	"sort"
	"strings"

	"github.com/yoralex/video-transcribe/internal/models"
	"github.com/yoralex/video-transcribe/internal/utils"
)

// MergeResults combines per-chunk transcription results into one result in
// the original recording's timeline. chunkOffsets holds each chunk's start
// second in the original audio, in the same order as results.
//
// Segments from the overlap region of consecutive chunks are kept as-is:
// the provider's own segmentation decides what each chunk contains, and
// duplicated coverage of the overlap is accepted rather than deduplicated.
func MergeResults(results []*models.TranscriptionResult, chunkOffsets []float64, hasDiarization bool) (*models.TranscriptionResult, error) {
	const op = "transcribe.MergeResults"

	if len(results) != len(chunkOffsets) {
		return nil, utils.E(utils.CodeInvalidArgument, op,
			fmt.Sprintf("results count (%d) must match offsets count (%d)", len(results), len(chunkOffsets)), nil)
	}
	if len(results) == 0 {
		return nil, utils.E(utils.CodeInvalidArgument, op, "at least one result required for merging", nil)
	}

	var all []models.TranscriptionSegment
	for i, res := range results {
		offset := chunkOffsets[i]
		for _, seg := range res.Segments {
			adjusted := models.TranscriptionSegment{
				Speaker: seg.Speaker,
				Text:    seg.Text,
			}
			// Absent timestamps stay absent; only present ones shift.
			if seg.Start != nil {
				v := *seg.Start + offset
				adjusted.Start = &v
			}
			if seg.End != nil {
				v := *seg.End + offset
				adjusted.End = &v
			}
			all = append(all, adjusted)
		}
	}

	sort.SliceStable(all, func(i, j int) bool {
		return startOrZero(all[i]) < startOrZero(all[j])
	})

	if hasDiarization {
		renumberSpeakers(all)
	}

	// The merged text is rebuilt from segment texts; the per-chunk Text
	// fields lack the granularity to interleave and are discarded.
	texts := make([]string, len(all))
	for i, seg := range all {
		texts[i] = seg.Text
	}
	text := strings.Join(texts, " ")

	lastDur := 0.0
	if d := results[len(results)-1].Duration; d != nil {
		lastDur = *d
	}
	total := chunkOffsets[len(chunkOffsets)-1] + lastDur

	return &models.TranscriptionResult{
		Text:           text,
		Duration:       &total,
		Segments:       all,
		ModelUsed:      results[0].ModelUsed,
		ResponseFormat: results[0].ResponseFormat,
	}, nil
}

func startOrZero(s models.TranscriptionSegment) float64 {
	if s.Start == nil {
		return 0
	}
	return *s.Start
}

// renumberSpeakers rewrites chunk-local speaker labels into one global
// label space. Every chunk is transcribed independently, so the provider
// restarts labels at "A" per chunk; "A" in one chunk has no relation to
// "A" in another. With no voice identity available, the only signal is
// ordering: seeing "A" again right after some other label is taken as a
// chunk boundary, and the mapping built so far is discarded so the new
// chunk's labels allocate fresh global ones.
//
// The boundary check misfires when a chunk's only speaker is labeled "B"
// throughout: its labels then merge into the previous chunk's mapping.
// That is a known limitation of the heuristic and deliberately kept.
func renumberSpeakers(segments []models.TranscriptionSegment) {
	speakerMap := map[string]string{}
	next := 0 // 0-based allocation index: A..Z, then AA, AB, ...
	lastSpeaker := ""

	for i := range segments {
		if segments[i].Speaker == nil {
			continue
		}
		original := *segments[i].Speaker

		if lastSpeaker != "" && lastSpeaker != "A" && original == "A" {
			// New chunk's label space begins here.
			speakerMap = map[string]string{}
		}

		if _, ok := speakerMap[original]; !ok {
			speakerMap[original] = speakerLabel(next)
			next++
		}

		mapped := speakerMap[original]
		segments[i].Speaker = &mapped
		lastSpeaker = original
	}
}

// speakerLabel generates the nth global label: A..Z for n < 26, then
// two-letter codes AA, AB, ... for the allocations past Z.
func speakerLabel(n int) string {
	if n < 26 {
		return string(rune('A' + n))
	}
	return string(rune('A'+n/26-1)) + string(rune('A'+n%26))
}
