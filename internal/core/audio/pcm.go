// Package audio assembles synthesized segments into a single timeline-aligned
// track and muxes it back into the source video.
package audio

import (
	"bytes"
	"fmt"

	"github.com/go-audio/wav"
)

// decodedSegment is a synthesized segment's audio as int16 mono samples at
// its engine's native sample rate.
type decodedSegment struct {
	samples    []int
	sampleRate int
}

// decodeWAV reads a mono or stereo WAV byte slice into int samples,
// downmixing stereo to mono by averaging channels — the assembler's
// timeline is mono throughout, matching whisper.cpp's mono PCM input
// elsewhere in this pipeline.
func decodeWAV(data []byte) (*decodedSegment, error) {
	decoder := wav.NewDecoder(bytes.NewReader(data))
	if !decoder.IsValidFile() {
		return nil, fmt.Errorf("invalid WAV data")
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to decode WAV: %w", err)
	}

	channels := int(decoder.NumChans)
	if channels <= 1 {
		return &decodedSegment{samples: buf.Data, sampleRate: int(decoder.SampleRate)}, nil
	}

	mono := make([]int, len(buf.Data)/channels)
	for i := range mono {
		sum := 0
		for c := 0; c < channels; c++ {
			sum += buf.Data[i*channels+c]
		}
		mono[i] = sum / channels
	}
	return &decodedSegment{samples: mono, sampleRate: int(decoder.SampleRate)}, nil
}

// resample converts samples from srcRate to dstRate via linear
// interpolation. It is not broadcast-quality but is adequate for
// speed-sync/video-stretch alignment of synthesized speech, where the goal
// is matching a target slot duration rather than audiophile fidelity.
func resample(samples []int, srcRate, dstRate int) []int {
	if srcRate == dstRate || len(samples) == 0 {
		return samples
	}
	ratio := float64(dstRate) / float64(srcRate)
	outLen := int(float64(len(samples)) * ratio)
	out := make([]int, outLen)
	for i := range out {
		srcPos := float64(i) / ratio
		lo := int(srcPos)
		if lo >= len(samples)-1 {
			out[i] = samples[len(samples)-1]
			continue
		}
		frac := srcPos - float64(lo)
		out[i] = int(float64(samples[lo])*(1-frac) + float64(samples[lo+1])*frac)
	}
	return out
}

// stretchToLength time-stretches samples to exactly targetLen samples via
// linear resampling of the sample sequence itself (not the sample rate) —
// used by speed-sync mode to fit a segment into its original transcript
// slot.
func stretchToLength(samples []int, targetLen int) []int {
	if len(samples) == 0 || targetLen <= 0 {
		return make([]int, targetLen)
	}
	if len(samples) == targetLen {
		return samples
	}
	out := make([]int, targetLen)
	ratio := float64(len(samples)-1) / float64(targetLen-1)
	if targetLen == 1 {
		out[0] = samples[0]
		return out
	}
	for i := range out {
		srcPos := float64(i) * ratio
		lo := int(srcPos)
		if lo >= len(samples)-1 {
			out[i] = samples[len(samples)-1]
			continue
		}
		frac := srcPos - float64(lo)
		out[i] = int(float64(samples[lo])*(1-frac) + float64(samples[lo+1])*frac)
	}
	return out
}
