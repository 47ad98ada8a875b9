package extract

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestAudioRejectsMissingSourceFile(t *testing.T) {
	dir := t.TempDir()
	err := Audio(context.Background(), filepath.Join(dir, "does-not-exist.mp4"), filepath.Join(dir, "out.wav"))
	if err == nil {
		t.Fatal("expected an error for a missing source video")
	}
}

func TestDurationRejectsMissingSourceFile(t *testing.T) {
	dir := t.TempDir()
	if _, err := Duration(context.Background(), filepath.Join(dir, "does-not-exist.mp4")); err == nil {
		t.Fatal("expected an error for a missing source video")
	}
}

func TestFFmpegAvailableDoesNotPanic(t *testing.T) {
	// Smoke test only: whether ffmpeg is actually installed on the test
	// host is environment-dependent, so this just confirms the lookup
	// completes without panicking.
	_ = FFmpegAvailable()
}

func TestAudioFailsBeforeFFmpegRunsWhenSourceMissing(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.wav")
	_ = Audio(context.Background(), filepath.Join(dir, "missing.mp4"), out)
	if _, err := os.Stat(out); err == nil {
		t.Error("expected no output file to be created when the source video is missing")
	}
}

func TestValidatePathRejectsTraversal(t *testing.T) {
	if err := ValidatePath("/data/uploads/../../etc/passwd"); err == nil {
		t.Error("expected an error for a '..' traversal segment")
	}
}

func TestValidatePathRejectsNullByte(t *testing.T) {
	if err := ValidatePath("/data/uploads/clip\x00.mp4"); err == nil {
		t.Error("expected an error for a path containing a null byte")
	}
}

func TestValidatePathRejectsShellMetacharacters(t *testing.T) {
	if err := ValidatePath("/data/uploads/clip;rm -rf.mp4"); err == nil {
		t.Error("expected an error for a basename containing a shell metacharacter")
	}
}

func TestValidatePathAllowsOrdinaryPath(t *testing.T) {
	if err := ValidatePath("/data/uploads/a1b2c3_clip.mp4"); err != nil {
		t.Errorf("expected an ordinary path to validate cleanly, got %v", err)
	}
}
