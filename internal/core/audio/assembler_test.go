package audio

import (
	"bytes"
	"math"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/opendub/engine/internal/core/job"
	"github.com/opendub/engine/internal/core/stt"
	"github.com/opendub/engine/internal/core/tts"
)

// encodeWAV builds a mono 16-bit WAV buffer at the given sample rate from a
// flat tone, for feeding into Assemble's decodeWAV step without involving
// any subprocess.
func encodeWAV(t *testing.T, sampleRate int, numSamples int) []byte {
	t.Helper()
	samples := make([]int, numSamples)
	for i := range samples {
		samples[i] = 1000
	}

	var buf bytes.Buffer
	enc := wav.NewEncoder(&buf, sampleRate, 16, 1, 1)
	if err := enc.Write(&audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           samples,
		SourceBitDepth: 16,
	}); err != nil {
		t.Fatalf("encodeWAV: write: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("encodeWAV: close: %v", err)
	}
	return buf.Bytes()
}

func TestNormalizeRMSScalesTowardTarget(t *testing.T) {
	samples := make([]int, 1000)
	for i := range samples {
		if i%2 == 0 {
			samples[i] = 100
		} else {
			samples[i] = -100
		}
	}
	out := normalizeRMS(samples, 0.1)

	var sumSquares float64
	for _, s := range out {
		v := float64(s)
		sumSquares += v * v
	}
	rms := math.Sqrt(sumSquares / float64(len(out)))
	target := 0.1 * 32768.0
	if math.Abs(rms-target) > target*0.05 {
		t.Errorf("expected normalized RMS near %.1f, got %.1f", target, rms)
	}
}

func TestNormalizeRMSClampsToInt16Range(t *testing.T) {
	samples := []int{1, -1, 1, -1}
	out := normalizeRMS(samples, 0.9)
	for _, s := range out {
		if s > 32767 || s < -32768 {
			t.Errorf("expected sample within int16 range, got %d", s)
		}
	}
}

func TestNormalizeRMSHandlesSilence(t *testing.T) {
	out := normalizeRMS([]int{0, 0, 0}, 0.1)
	for _, s := range out {
		if s != 0 {
			t.Errorf("expected silence to remain silence, got %d", s)
		}
	}
}

func TestStretchFactorComputesRatio(t *testing.T) {
	f := StretchFactor(10, 12)
	if math.Abs(f-1.2) > 1e-9 {
		t.Errorf("expected stretch factor 1.2, got %f", f)
	}
}

func TestStretchFactorGuardsZeroOriginal(t *testing.T) {
	if f := StretchFactor(0, 12); f != 1.0 {
		t.Errorf("expected fallback factor 1.0 for zero original duration, got %f", f)
	}
}

func TestAssembleRejectsEmptySegments(t *testing.T) {
	a := NewAssembler()
	_, err := a.Assemble(nil, nil, "", t.TempDir()+"/out.wav")
	if err == nil {
		t.Fatal("expected an error when no segments are provided")
	}
}

// TestAssembleNaturalModeHonorsOriginalGap confirms a multi-second pause
// between two original segments survives into natural mode instead of
// collapsing to the silence floor: the second segment's silence run must
// be long enough to reach its own original start time, not just 250ms past
// the first segment's synthesized audio.
func TestAssembleNaturalModeHonorsOriginalGap(t *testing.T) {
	a := NewAssembler()
	rate := a.TargetSampleRate

	originals := []stt.Segment{
		{StartSeconds: 0, EndSeconds: 1, Text: "hello"},
		{StartSeconds: 5, EndSeconds: 6, Text: "world"}, // 5s pause after segment 0
	}
	segments := []tts.SynthesizedSegment{
		{SegmentIndex: 0, AudioBytes: encodeWAV(t, rate, rate/4)}, // 0.25s of audio
		{SegmentIndex: 1, AudioBytes: encodeWAV(t, rate, rate/4)},
	}

	outPath := filepath.Join(t.TempDir(), "out.wav")
	duration, err := a.Assemble(segments, originals, job.SyncNatural, outPath)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	// Segment 1's audio must not start before its original 5s mark: total
	// duration is at least 5s (its start) plus its own 0.25s of audio.
	if duration < 5.0+0.25-0.05 {
		t.Errorf("expected assembled duration to honor the 5s original gap, got %.2fs", duration)
	}
}
