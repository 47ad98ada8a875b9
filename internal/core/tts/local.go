package tts

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/opendub/engine/internal/core/resourcegate"
)

// Local synthesizes speech on-host by shelling out to a local TTS binary
// (e.g. Piper or a Coqui CLI) once per segment, gated by the Resource Gate
// the same way WhisperLocal is — a local synthesis model and a local
// transcription model must never be GPU-resident at the same time.
type Local struct {
	binaryPath string
	modelPath  string
	gate       *resourcegate.Gate
}

// NewLocal builds a local exec-based TTS adapter. binaryPath must be an
// executable TTS CLI that accepts "--model <path> --text <text> --out <wav>".
func NewLocal(binaryPath, modelPath string, gate *resourcegate.Gate) (*Local, error) {
	if binaryPath == "" {
		return nil, fmt.Errorf("local tts: binary path must not be empty")
	}
	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("local tts model not found: %s", modelPath)
	}
	return &Local{binaryPath: binaryPath, modelPath: modelPath, gate: gate}, nil
}

func (l *Local) Name() string          { return "local" }
func (l *Local) Locality() Locality    { return LocalityLocal }
func (l *Local) SupportsCloning() bool { return true }

func (l *Local) Synthesize(ctx context.Context, segmentIndex int, text string, voice VoiceSpec) (*SynthesizedSegment, error) {
	if text == "" {
		return nil, fmt.Errorf("local tts: empty text for segment %d", segmentIndex)
	}

	guard, err := l.gate.Acquire(ctx, "tts:"+l.modelPath, func() {})
	if err != nil {
		return nil, err
	}
	defer guard.Release()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	out, err := os.CreateTemp("", "local-tts-*.wav")
	if err != nil {
		return nil, fmt.Errorf("local tts: failed to create temp file: %w", err)
	}
	outPath := out.Name()
	out.Close()
	defer os.Remove(outPath)

	args := []string{"--model", l.modelPath, "--text", text, "--out", outPath}
	if voice.CloneAudioPath != "" {
		args = append(args, "--speaker-ref", voice.CloneAudioPath)
	} else if voice.Name != "" {
		args = append(args, "--voice", voice.Name)
	}

	cmd := exec.CommandContext(ctx, l.binaryPath, args...)
	if cmdOut, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("local tts: synthesis failed for segment %d: %w\n%s", segmentIndex, err, string(cmdOut))
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("local tts: failed to read synthesized audio: %w", err)
	}

	duration, sampleRate, channels, err := wavInfo(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("local tts: failed to decode synthesized audio: %w", err)
	}

	return &SynthesizedSegment{
		SegmentIndex:    segmentIndex,
		AudioBytes:      data,
		DurationSeconds: duration,
		SampleRate:      sampleRate,
		Channels:        channels,
	}, nil
}
