package media

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/google/uuid"
)

// minAudioBytes is the sanity floor below which ffmpeg output is
// treated as "no audio track"
const minAudioBytes = 1000

// AudioExtractor demuxes and resamples a video's audio track with
// ffmpeg: mono, 16kHz, 64kbps MP3, suitable for the transcription API.
type AudioExtractor struct {
	tempDir string
	timeout int
}

// NewAudioExtractor creates an extractor writing scratch files under tempDir
func NewAudioExtractor(tempDir string, timeoutSeconds int) *AudioExtractor {
	return &AudioExtractor{tempDir: tempDir, timeout: timeoutSeconds}
}

// Extract returns the normalized audio bytes, or (nil, nil) when the
// video has no usable audio track. ffmpeg failure, timeout and
// undersized output are all treated identically as "no audio" rather
// than errors. Temp files are removed on every exit path.
func (ae *AudioExtractor) Extract(ctx context.Context, videoBytes []byte) ([]byte, error) {
	id := uuid.New().String()
	videoPath := filepath.Join(ae.tempDir, fmt.Sprintf("%s.mp4", id))
	audioPath := filepath.Join(ae.tempDir, fmt.Sprintf("%s.mp3", id))

	if err := os.WriteFile(videoPath, videoBytes, 0644); err != nil {
		return nil, fmt.Errorf("write temp video: %w", err)
	}
	defer func() {
		os.Remove(videoPath)
		os.Remove(audioPath)
	}()

	ctx, cancel := context.WithTimeout(ctx, secondsOrDefault(ae.timeout, 60))
	defer cancel()

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-y",
		"-i", videoPath,
		"-vn",          // drop video stream
		"-ac", "1",     // mono
		"-ar", "16000", // 16kHz sample rate
		"-b:a", "64k",  // target bitrate
		audioPath,
	)

	if output, err := cmd.CombinedOutput(); err != nil {
		log.Printf("Audio extraction produced no audio: %v (%d bytes of ffmpeg output)", err, len(output))
		return nil, nil
	}

	info, err := os.Stat(audioPath)
	if err != nil || info.Size() <= minAudioBytes {
		return nil, nil
	}

	audio, err := os.ReadFile(audioPath)
	if err != nil {
		return nil, nil
	}

	return audio, nil
}
