// Package stt converts extracted audio into a timestamped transcript,
// through either a local whisper.cpp model or a remote API.
package stt

import (
	"context"
	"fmt"
)

// Segment is one timestamped span of recognized speech.
type Segment struct {
	StartSeconds float64
	EndSeconds   float64
	Text         string
	SpeakerLabel string
	Confidence   float64
}

// Transcript is an ordered, non-overlapping sequence of Segments.
// Invariants: segments non-overlapping, start strictly monotonic, end ≥
// start, text non-empty.
type Transcript struct {
	Segments []Segment
	Language string
}

// Validate checks the Transcript's structural invariants: every segment has
// non-empty text, a non-negative duration, and segments are in start order.
func (t *Transcript) Validate() error {
	var prevStart float64 = -1
	for i, seg := range t.Segments {
		if seg.Text == "" {
			return fmt.Errorf("segment %d: empty text", i)
		}
		if seg.EndSeconds < seg.StartSeconds {
			return fmt.Errorf("segment %d: end %.3f before start %.3f", i, seg.EndSeconds, seg.StartSeconds)
		}
		if seg.StartSeconds <= prevStart {
			return fmt.Errorf("segment %d: start %.3f not strictly after previous start %.3f", i, seg.StartSeconds, prevStart)
		}
		prevStart = seg.StartSeconds
	}
	return nil
}

// Transcriber converts an audio file into a Transcript.
type Transcriber interface {
	// Transcribe converts the audio file at path into a Transcript.
	Transcribe(ctx context.Context, path string, language string) (*Transcript, error)

	// Name identifies the engine for dispatcher bookkeeping and logs.
	Name() string

	// Locality reports whether this engine runs on-host (consuming the
	// Resource Gate) or calls out to a remote API.
	Locality() Locality
}

// Locality distinguishes engines that must hold the Resource Gate from
// ones that never touch it.
type Locality string

const (
	LocalityLocal  Locality = "local"
	LocalityRemote Locality = "remote"
)
