package audio

import (
	"fmt"
	"log"
	"math"
	"os"
	"sort"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/opendub/engine/internal/core/job"
	"github.com/opendub/engine/internal/core/stt"
	"github.com/opendub/engine/internal/core/tts"
)

// Assembler turns synthesized segments plus their original-transcript
// timestamps into a single mono audio track aligned to the source video's
// timeline.
type Assembler struct {
	// TargetSampleRate is the sample rate of the assembled output track.
	TargetSampleRate int
	// SilenceFloorMs is the minimum silence inserted between consecutive
	// segments in natural and video_stretch modes, even when their original
	// timestamps would abut or overlap. speed_sync mode does not apply it:
	// each segment starts at its original slot with no added floor.
	SilenceFloorMs int
	// TargetRMS is the normalization target, expressed as a fraction of
	// full scale (0–1).
	TargetRMS float64
}

// NewAssembler returns an Assembler with a 250ms silence floor and
// moderate RMS normalization.
func NewAssembler() *Assembler {
	return &Assembler{
		TargetSampleRate: 24000,
		SilenceFloorMs:   250,
		TargetRMS:        0.1,
	}
}

// Assemble writes a single WAV track to outputPath and returns its
// duration. mode governs how each segment is placed relative to its
// original transcript slot:
//
//   - natural: segments keep their natural synthesized length and are
//     placed at their original start time; when that start is less than
//     the silence floor past the previous segment's end (a prior segment
//     ran long), the segment is pushed to the previous end plus the floor.
//     Drift from the original timeline is accepted in exchange for
//     unforced speech pacing.
//   - speed_sync: each segment is time-stretched to exactly fill its
//     original slot duration, keeping the track frame-accurate to the
//     source video at the cost of altered speech rate.
//   - video_stretch: the first segment starts at its original start time
//     and the rest are laid end to end, each separated by the silence
//     floor, with no per-segment alignment; the caller (Mux) stretches the
//     video itself to the assembled track's total duration instead of
//     stretching the audio.
func (a *Assembler) Assemble(segments []tts.SynthesizedSegment, originals []stt.Segment, mode job.SyncMode, outputPath string) (float64, error) {
	if len(segments) == 0 {
		return 0, fmt.Errorf("audio assembler: no synthesized segments to assemble")
	}

	ordered := append([]tts.SynthesizedSegment(nil), segments...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].SegmentIndex < ordered[j].SegmentIndex })

	floorSamples := int(float64(a.SilenceFloorMs) / 1000 * float64(a.TargetSampleRate))

	var track []int
	cursor := 0

	for _, seg := range ordered {
		if seg.SegmentIndex < 0 || seg.SegmentIndex >= len(originals) {
			return 0, fmt.Errorf("audio assembler: segment index %d out of range for %d original segments", seg.SegmentIndex, len(originals))
		}
		orig := originals[seg.SegmentIndex]

		decoded, err := decodeWAV(seg.AudioBytes)
		if err != nil {
			return 0, fmt.Errorf("audio assembler: segment %d: %w", seg.SegmentIndex, err)
		}
		samples := resample(decoded.samples, decoded.sampleRate, a.TargetSampleRate)

		switch mode {
		case job.SyncSpeedSync:
			startSample := int(orig.StartSeconds * float64(a.TargetSampleRate))
			gap := startSample - cursor
			if gap < 0 {
				log.Printf("[audio] speed_sync: segment %d would start before cursor (overlap %dms), clamping", seg.SegmentIndex, -gap*1000/a.TargetSampleRate)
				gap = 0
			}
			track = appendSilence(track, gap)
			cursor += gap

			slotSamples := int((orig.EndSeconds - orig.StartSeconds) * float64(a.TargetSampleRate))
			if slotSamples <= 0 {
				slotSamples = len(samples)
			}
			stretched := stretchToLength(samples, slotSamples)
			track = append(track, stretched...)
			cursor += len(stretched)

		case job.SyncNatural:
			desiredStart := int(orig.StartSeconds * float64(a.TargetSampleRate))
			var gap int
			if cursor == 0 {
				gap = desiredStart
				if gap < 0 {
					gap = 0
				}
			} else {
				gap = desiredStart - cursor
				if gap < floorSamples {
					// Either the original slot starts before the cursor (a
					// prior segment ran long) or abuts it too closely; push
					// by the silence floor and accept the accumulated drift.
					gap = floorSamples
				}
			}
			track = appendSilence(track, gap)
			cursor += gap
			track = append(track, samples...)
			cursor += len(samples)

		default: // video_stretch: laid end-to-end, no per-segment alignment
			gap := floorSamples
			if cursor == 0 {
				gap = int(orig.StartSeconds * float64(a.TargetSampleRate))
				if gap < 0 {
					gap = 0
				}
			}
			track = appendSilence(track, gap)
			cursor += gap
			track = append(track, samples...)
			cursor += len(samples)
		}
	}

	track = normalizeRMS(track, a.TargetRMS)

	if err := writeWAV(outputPath, track, a.TargetSampleRate); err != nil {
		return 0, err
	}

	return float64(len(track)) / float64(a.TargetSampleRate), nil
}

func appendSilence(track []int, n int) []int {
	if n <= 0 {
		return track
	}
	return append(track, make([]int, n)...)
}

// normalizeRMS scales samples so their RMS level matches targetRMS (a
// fraction of full scale), clamping to int16 range to avoid clipping.
func normalizeRMS(samples []int, targetRMS float64) []int {
	if len(samples) == 0 {
		return samples
	}

	var sumSquares float64
	for _, s := range samples {
		v := float64(s)
		sumSquares += v * v
	}
	rms := math.Sqrt(sumSquares / float64(len(samples)))
	if rms == 0 {
		return samples
	}

	const fullScale = 32768.0
	gain := (targetRMS * fullScale) / rms

	out := make([]int, len(samples))
	for i, s := range samples {
		v := float64(s) * gain
		if v > fullScale-1 {
			v = fullScale - 1
		}
		if v < -fullScale {
			v = -fullScale
		}
		out[i] = int(v)
	}
	return out
}

func writeWAV(path string, samples []int, sampleRate int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("audio assembler: failed to create output file: %w", err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, 16, 1, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           samples,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("audio assembler: failed to write samples: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("audio assembler: failed to finalize WAV: %w", err)
	}
	return nil
}
