// Package tts turns synthesized segments of target-language text into audio,
// behind a single Synthesizer interface with three adapters: a remote OpenAI
// engine, an HTTP-based cloning-capable remote engine, and a local exec-based
// engine gated by the Resource Gate.
package tts

import "context"

// SynthesizedSegment is one segment's synthesized audio, aligned to the
// original transcript segment it came from.
type SynthesizedSegment struct {
	SegmentIndex    int
	AudioBytes      []byte
	DurationSeconds float64
	SampleRate      int
	Channels        int
}

// Locality distinguishes engines the Resource Gate must serialize
// (on-host, GPU-resident) from ones that never touch it.
type Locality int

const (
	LocalityRemote Locality = iota
	LocalityLocal
)

// VoiceSpec selects a voice for synthesis: either a named preset voice or,
// when CloneAudioPath is set, a reference sample the engine should clone.
type VoiceSpec struct {
	Name           string
	CloneAudioPath string
	Language       string
}

// Synthesizer renders one segment of text to audio in the given voice.
// Implementations must be safe for concurrent use; the pipeline synthesizes
// chunks of a job concurrently up to its configured chunk concurrency.
type Synthesizer interface {
	Synthesize(ctx context.Context, segmentIndex int, text string, voice VoiceSpec) (*SynthesizedSegment, error)
	Name() string
	Locality() Locality
	// SupportsCloning reports whether this engine can synthesize from a
	// reference audio sample rather than only a named preset voice.
	SupportsCloning() bool
}
