package audio

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/opendub/engine/internal/core/extract"
)

// subprocessTimeout bounds the ffmpeg mux invocation below: a media-
// processing subprocess that has not finished in 10 minutes is treated as
// hung rather than left to run indefinitely.
const subprocessTimeout = 600 * time.Second

// Mux merges the assembled audio track into the source video with a
// stream-copy fast path. When stretchFactor is not 1.0 (video_stretch
// mode), the video stream is re-encoded with a setpts filter instead of
// stream-copied, so the video's playback length matches the synthesized
// track's length exactly instead of the other way around. ctx bounds the
// ffmpeg subprocess to subprocessTimeout on top of whatever deadline ctx
// already carries.
func Mux(ctx context.Context, videoPath, audioPath, outputPath string, stretchFactor float64) error {
	if err := extract.ValidatePath(videoPath); err != nil {
		return fmt.Errorf("invalid video path: %w", err)
	}
	if err := extract.ValidatePath(audioPath); err != nil {
		return fmt.Errorf("invalid audio path: %w", err)
	}
	if err := extract.ValidatePath(outputPath); err != nil {
		return fmt.Errorf("invalid output path: %w", err)
	}

	videoInfo, err := os.Stat(videoPath)
	if err != nil {
		log.Printf("[mux] ERROR: video file not found: %s", videoPath)
		return fmt.Errorf("video file not found: %w", err)
	}
	audioInfo, err := os.Stat(audioPath)
	if err != nil {
		log.Printf("[mux] ERROR: audio file not found: %s", audioPath)
		return fmt.Errorf("audio file not found: %w", err)
	}
	log.Printf("[mux] input video: %s (%d bytes)", videoPath, videoInfo.Size())
	log.Printf("[mux] input audio: %s (%d bytes)", audioPath, audioInfo.Size())
	log.Printf("[mux] output path: %s", outputPath)

	var args []string
	if stretchFactor == 0 || stretchFactor == 1.0 {
		args = []string{
			"-i", videoPath,
			"-i", audioPath,
			"-map", "0:v",
			"-map", "1:a",
			"-c", "copy",
			"-f", "mp4",
			"-y",
			outputPath,
		}
	} else {
		log.Printf("[mux] video_stretch: re-encoding video with setpts factor %.4f", stretchFactor)
		args = []string{
			"-i", videoPath,
			"-i", audioPath,
			"-filter:v", fmt.Sprintf("setpts=%.6f*PTS", stretchFactor),
			"-map", "0:v",
			"-map", "1:a",
			"-c:a", "copy",
			"-f", "mp4",
			"-y",
			outputPath,
		}
	}
	log.Printf("[mux] command: ffmpeg %s", strings.Join(args, " "))

	runCtx, cancel := context.WithTimeout(ctx, subprocessTimeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "ffmpeg", args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		log.Printf("[mux] ERROR: merge failed: %v", err)
		log.Printf("[mux] output:\n%s", string(output))
		return fmt.Errorf("ffmpeg mux failed: %w\noutput: %s", err, string(output))
	}

	outInfo, err := os.Stat(outputPath)
	if err != nil {
		log.Printf("[mux] ERROR: output file not created: %s", outputPath)
		return fmt.Errorf("output file not created: %w", err)
	}

	inputTotal := videoInfo.Size() + audioInfo.Size()
	if outInfo.Size() < 1024 || outInfo.Size() < inputTotal/10 {
		log.Printf("[mux] WARNING: output file is suspiciously small (%d bytes from %d bytes input)", outInfo.Size(), inputTotal)
	} else {
		log.Printf("[mux] merge successful: %s (%d bytes)", outputPath, outInfo.Size())
	}

	return nil
}

// StretchFactor computes the video_stretch-mode factor: how much the video
// stream must be slowed (>1) or sped up (<1) to match the assembled audio
// track's duration.
func StretchFactor(originalVideoSeconds, assembledAudioSeconds float64) float64 {
	if originalVideoSeconds <= 0 {
		return 1.0
	}
	return assembledAudioSeconds / originalVideoSeconds
}
