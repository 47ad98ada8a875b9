package tts

import (
	"fmt"
	"io"

	"github.com/go-audio/wav"
)

// wavInfo decodes just enough of a WAV stream to report duration, sample
// rate, and channel count, mirroring the decode step the Audio Assembler
// performs when it reads each engine's output back in.
func wavInfo(r io.ReadSeeker) (durationSeconds float64, sampleRate int, channels int, err error) {
	decoder := wav.NewDecoder(r)
	if !decoder.IsValidFile() {
		return 0, 0, 0, fmt.Errorf("invalid WAV stream")
	}

	sampleRate = int(decoder.SampleRate)
	channels = int(decoder.NumChans)
	if sampleRate == 0 || channels == 0 {
		return 0, 0, 0, fmt.Errorf("wav stream missing sample rate or channel count")
	}

	duration, err := decoder.Duration()
	if err != nil {
		return 0, 0, 0, fmt.Errorf("failed to compute wav duration: %w", err)
	}

	return duration.Seconds(), sampleRate, channels, nil
}
