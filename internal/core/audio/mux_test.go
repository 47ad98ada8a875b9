package audio

import (
	"context"
	"path/filepath"
	"testing"
)

func TestMuxRejectsMissingVideoFile(t *testing.T) {
	dir := t.TempDir()
	err := Mux(context.Background(), filepath.Join(dir, "missing.mp4"), filepath.Join(dir, "audio.wav"), filepath.Join(dir, "out.mp4"), 1.0)
	if err == nil {
		t.Fatal("expected an error for a missing video file")
	}
}

func TestMuxRejectsNullByteInVideoPath(t *testing.T) {
	dir := t.TempDir()
	err := Mux(context.Background(), filepath.Join(dir, "video\x00.mp4"), filepath.Join(dir, "audio.wav"), filepath.Join(dir, "out.mp4"), 1.0)
	if err == nil {
		t.Fatal("expected an error for a null byte in the video path")
	}
}

func TestStretchFactorComputesRatioAgain(t *testing.T) {
	if f := StretchFactor(10, 15); f != 1.5 {
		t.Errorf("expected stretch factor 1.5, got %f", f)
	}
}
