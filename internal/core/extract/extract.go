// Package extract pulls a mono 16kHz WAV audio track out of a source video
// via ffmpeg, the first stage of the dubbing pipeline.
package extract

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// subprocessTimeout bounds every ffmpeg/ffprobe invocation in this package:
// a media-processing subprocess that has not finished in 10 minutes is
// treated as hung rather than left to run indefinitely.
const subprocessTimeout = 600 * time.Second

// FFmpegAvailable reports whether ffmpeg is on PATH.
func FFmpegAvailable() bool {
	_, err := exec.LookPath("ffmpeg")
	return err == nil
}

// shellMetacharacters are rejected in a path's basename even though every
// subprocess in this package is invoked with an explicit argument vector,
// never a shell string.
const shellMetacharacters = "|&;$`<>(){}!*?[]~\n"

// ValidatePath rejects a path argument containing a null byte, a ".."
// traversal segment, or a shell metacharacter in its basename, before it is
// ever handed to exec.Command.
func ValidatePath(path string) error {
	if strings.ContainsRune(path, 0) {
		return fmt.Errorf("path contains a null byte")
	}
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == ".." {
			return fmt.Errorf("path contains a '..' traversal segment: %q", path)
		}
	}
	base := filepath.Base(path)
	if strings.ContainsAny(base, shellMetacharacters) {
		return fmt.Errorf("path basename contains a disallowed character: %q", base)
	}
	return nil
}

// Audio extracts the audio track of videoPath into a mono 16kHz PCM WAV file
// at outputPath, logging each ffmpeg invocation step. ctx bounds the ffmpeg
// subprocess to subprocessTimeout on top of whatever deadline ctx already
// carries.
func Audio(ctx context.Context, videoPath, outputPath string) error {
	if !FFmpegAvailable() {
		return fmt.Errorf("ffmpeg not found in PATH")
	}
	if err := ValidatePath(videoPath); err != nil {
		return fmt.Errorf("invalid input path: %w", err)
	}
	if err := ValidatePath(outputPath); err != nil {
		return fmt.Errorf("invalid output path: %w", err)
	}

	videoInfo, err := os.Stat(videoPath)
	if err != nil {
		log.Printf("[extract] ERROR: source video not found: %s", videoPath)
		return fmt.Errorf("source video not found: %w", err)
	}
	log.Printf("[extract] input video: %s (%d bytes)", videoPath, videoInfo.Size())
	log.Printf("[extract] output path: %s", outputPath)

	args := []string{
		"-i", videoPath,
		"-vn",
		"-ar", "16000",
		"-ac", "1",
		"-c:a", "pcm_s16le",
		"-y",
		outputPath,
	}
	log.Printf("[extract] command: ffmpeg %s", strings.Join(args, " "))

	runCtx, cancel := context.WithTimeout(ctx, subprocessTimeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "ffmpeg", args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		log.Printf("[extract] ERROR: extraction failed: %v", err)
		log.Printf("[extract] output:\n%s", string(output))
		return fmt.Errorf("ffmpeg audio extraction failed: %w\noutput: %s", err, string(output))
	}

	outInfo, err := os.Stat(outputPath)
	if err != nil {
		log.Printf("[extract] ERROR: output file not created: %s", outputPath)
		return fmt.Errorf("extracted audio file not created: %w", err)
	}
	if outInfo.Size() == 0 {
		return fmt.Errorf("extracted audio file is empty: %s", outputPath)
	}

	log.Printf("[extract] output file: %s (%d bytes)", outputPath, outInfo.Size())
	return nil
}

// Duration returns the source video's duration in seconds via ffprobe,
// used by the merge stage to compute the video_stretch factor.
func Duration(ctx context.Context, videoPath string) (float64, error) {
	if err := ValidatePath(videoPath); err != nil {
		return 0, fmt.Errorf("invalid input path: %w", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, subprocessTimeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		videoPath,
	)
	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration failed: %w", err)
	}

	var seconds float64
	if _, err := fmt.Sscanf(strings.TrimSpace(string(out)), "%f", &seconds); err != nil {
		return 0, fmt.Errorf("failed to parse ffprobe duration output %q: %w", string(out), err)
	}
	return seconds, nil
}
