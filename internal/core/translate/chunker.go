package translate

import (
	"github.com/opendub/engine/internal/core/stt"
)

// ChunkerConfig parameterizes the chunk target/ceiling explicitly rather
// than through a hidden global, so a future batch-size knob (e.g. for
// subtitle batching) has somewhere to plug in without a package-level var.
type ChunkerConfig struct {
	TargetChars  int
	CeilingChars int
}

// DefaultChunkerConfig is the 400/800-character policy.
func DefaultChunkerConfig() ChunkerConfig {
	return ChunkerConfig{TargetChars: 400, CeilingChars: 800}
}

// Chunk walks the transcript, accumulating segments until the projected
// joined length reaches TargetChars or the next segment would exceed
// CeilingChars, then emits a chunk and continues. A single segment longer
// than CeilingChars stands alone.
func ChunkSegments(segments []stt.Segment, cfg ChunkerConfig) []*Chunk {
	var chunks []*Chunk
	var cur *Chunk
	var curLen int

	flush := func() {
		if cur != nil {
			chunks = append(chunks, cur)
			cur = nil
			curLen = 0
		}
	}

	for _, seg := range segments {
		segLen := len(seg.Text)

		if cur == nil {
			cur = &Chunk{StartSeconds: seg.StartSeconds}
		}

		projected := curLen
		if len(cur.SourceTexts) > 0 {
			projected++ // account for the joining space
		}
		projected += segLen

		if len(cur.SourceTexts) > 0 && projected > cfg.CeilingChars {
			flush()
			cur = &Chunk{StartSeconds: seg.StartSeconds}
			projected = segLen
		}

		cur.SourceTexts = append(cur.SourceTexts, seg.Text)
		cur.EndSeconds = seg.EndSeconds
		curLen = projected

		if curLen >= cfg.TargetChars {
			flush()
		}
	}
	flush()

	return chunks
}
