package translate

import (
	"strings"
	"testing"

	"github.com/opendub/engine/internal/core/stt"
)

func seg(start, end float64, text string) stt.Segment {
	return stt.Segment{StartSeconds: start, EndSeconds: end, Text: text}
}

func TestChunkSegmentsTargetsFourHundredChars(t *testing.T) {
	segments := []stt.Segment{
		seg(0, 2, strings.Repeat("a", 200)),
		seg(2, 4, strings.Repeat("b", 210)),
		seg(4, 6, strings.Repeat("c", 50)),
	}
	chunks := ChunkSegments(segments, DefaultChunkerConfig())

	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if len(chunks[0].SourceTexts) != 2 {
		t.Errorf("expected first chunk to hold 2 segments once target is reached, got %d", len(chunks[0].SourceTexts))
	}
}

func TestChunkSegmentsOverlongSegmentStandsAlone(t *testing.T) {
	segments := []stt.Segment{
		seg(0, 2, strings.Repeat("x", 900)),
		seg(2, 4, "short"),
	}
	chunks := ChunkSegments(segments, DefaultChunkerConfig())

	if len(chunks) != 2 {
		t.Fatalf("expected the overlong segment to stand alone in its own chunk, got %d chunks", len(chunks))
	}
	if len(chunks[0].SourceTexts) != 1 {
		t.Errorf("expected first chunk to hold exactly the overlong segment, got %d segments", len(chunks[0].SourceTexts))
	}
}

func TestChunkSegmentsRespectsCeiling(t *testing.T) {
	segments := []stt.Segment{
		seg(0, 1, strings.Repeat("a", 390)),
		seg(1, 2, strings.Repeat("b", 500)), // would push projected over 800
	}
	chunks := ChunkSegments(segments, DefaultChunkerConfig())

	if len(chunks) != 2 {
		t.Fatalf("expected ceiling to force a new chunk, got %d chunks", len(chunks))
	}
}

func TestChunkSegmentsEmptyInput(t *testing.T) {
	chunks := ChunkSegments(nil, DefaultChunkerConfig())
	if len(chunks) != 0 {
		t.Errorf("expected no chunks for empty input, got %d", len(chunks))
	}
}
