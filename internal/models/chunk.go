package models

// AudioChunk describes one physical audio segment produced by the planner.
// StartSec/EndSec are positions in the original audio's timeline, not the
// chunk's own. IsTemp is false only for the single-chunk no-split case,
// where Path is the original input file and must never be deleted.
type AudioChunk struct {
	Path                string  `json:"path"`
	Index               int     `json:"index"`
	StartSec            float64 `json:"start_sec"`
	EndSec              float64 `json:"end_sec"`
	OriginalDurationSec float64 `json:"original_duration_sec"`
	IsTemp              bool    `json:"is_temp"`
}

// SpanSec returns the chunk's own length in seconds.
func (c AudioChunk) SpanSec() float64 {
	return c.EndSec - c.StartSec
}
