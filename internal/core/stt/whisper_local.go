package stt

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
	"github.com/go-audio/wav"

	"github.com/opendub/engine/internal/core/resourcegate"
)

// WhisperLocal transcribes audio on-host via whisper.cpp. Every call to
// Transcribe acquires the Resource Gate before the model is used and
// releases it (unloading nothing — the model stays resident, only the
// GPU-exclusive inference section is guarded) before returning.
type WhisperLocal struct {
	model     whisper.Model
	modelPath string
	gate      *resourcegate.Gate
}

// NewWhisperLocal loads a whisper.cpp model from modelPath.
func NewWhisperLocal(modelPath string, gate *resourcegate.Gate) (*WhisperLocal, error) {
	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("whisper model not found: %s", modelPath)
	}
	model, err := whisper.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load whisper model: %w", err)
	}
	return &WhisperLocal{model: model, modelPath: modelPath, gate: gate}, nil
}

func (w *WhisperLocal) Name() string       { return "whisper-local" }
func (w *WhisperLocal) Locality() Locality { return LocalityLocal }

// Close releases the underlying model. Call once at process shutdown.
func (w *WhisperLocal) Close() error {
	if w.model != nil {
		return w.model.Close()
	}
	return nil
}

func (w *WhisperLocal) Transcribe(ctx context.Context, path string, language string) (*Transcript, error) {
	guard, err := w.gate.Acquire(ctx, "stt:"+w.modelPath, func() {})
	if err != nil {
		return nil, err
	}
	defer guard.Release()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	wavPath, cleanup, err := ensureWAV(path)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare audio: %w", err)
	}
	if cleanup != nil {
		defer cleanup()
	}

	samples, err := readPCMFloat32(wavPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio: %w", err)
	}

	whisperCtx, err := w.model.NewContext()
	if err != nil {
		return nil, fmt.Errorf("failed to create whisper context: %w", err)
	}
	if language != "" && language != "auto" {
		if err := whisperCtx.SetLanguage(language); err != nil {
			return nil, fmt.Errorf("failed to set language: %w", err)
		}
	}

	if err := whisperCtx.Process(samples, nil, nil, nil); err != nil {
		return nil, fmt.Errorf("transcription failed: %w", err)
	}

	var segments []Segment
	for {
		seg, err := whisperCtx.NextSegment()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read segment: %w", err)
		}
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		segments = append(segments, Segment{
			StartSeconds: seg.Start.Seconds(),
			EndSeconds:   seg.End.Seconds(),
			Text:         text,
		})
	}

	if len(segments) == 0 {
		return nil, fmt.Errorf("whisper-local: produced empty transcript")
	}

	return &Transcript{Segments: segments, Language: whisperCtx.Language()}, nil
}

// ensureWAV converts to 16kHz mono PCM WAV via ffmpeg when path is not
// already a WAV file.
func ensureWAV(path string) (string, func(), error) {
	if strings.ToLower(filepath.Ext(path)) == ".wav" {
		return path, nil, nil
	}

	tmp, err := os.CreateTemp("", "whisper-*.wav")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()

	cmd := exec.Command("ffmpeg",
		"-i", path,
		"-ar", "16000",
		"-ac", "1",
		"-c:a", "pcm_s16le",
		"-y",
		tmpPath,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		os.Remove(tmpPath)
		return "", nil, fmt.Errorf("ffmpeg conversion failed: %w\n%s", err, string(out))
	}

	return tmpPath, func() { os.Remove(tmpPath) }, nil
}

func readPCMFloat32(wavPath string) ([]float32, error) {
	file, err := os.Open(wavPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open WAV file: %w", err)
	}
	defer file.Close()

	decoder := wav.NewDecoder(file)
	if !decoder.IsValidFile() {
		return nil, fmt.Errorf("invalid WAV file: %s", wavPath)
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to decode WAV: %w", err)
	}

	const maxInt16 = 32768.0
	samples := make([]float32, len(buf.Data))
	for i, s := range buf.Data {
		samples[i] = float32(s) / maxInt16
	}
	return samples, nil
}
