package media

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/codebuildervaibhav/video-ingest/internal/types"
)

// defaultFPS is assumed when the decoder reports zero or no frame rate
const defaultFPS = 25.0

// FrameSampler decodes one representative JPEG frame per whole second
// of video duration using ffprobe + ffmpeg.
type FrameSampler struct {
	tempDir string
}

// NewFrameSampler creates a sampler writing scratch files under tempDir
func NewFrameSampler(tempDir string) *FrameSampler {
	return &FrameSampler{tempDir: tempDir}
}

// videoProbe is the subset of ffprobe JSON output we care about
type videoProbe struct {
	Streams []struct {
		NbFrames     string `json:"nb_frames"`
		AvgFrameRate string `json:"avg_frame_rate"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Sample extracts one frame per second of duration. A file that cannot
// be probed as video yields an empty slice, not an error. Seek and
// encode failures skip that second. If the per-second loop produced
// nothing, one frame from the start of the stream is used as a
// fallback. Temp files are removed on every exit path.
func (fs *FrameSampler) Sample(ctx context.Context, videoBytes []byte) ([]types.Frame, error) {
	videoPath := filepath.Join(fs.tempDir, fmt.Sprintf("%s.mp4", uuid.New().String()))
	if err := os.WriteFile(videoPath, videoBytes, 0644); err != nil {
		return nil, fmt.Errorf("write temp video: %w", err)
	}
	defer os.Remove(videoPath)

	probe, err := fs.probe(ctx, videoPath)
	if err != nil {
		log.Printf("Frame sampling skipped, not a decodable video: %v", err)
		return []types.Frame{}, nil
	}

	duration := durationSeconds(probe)

	frames := make([]types.Frame, 0, duration)
	for sec := 0; sec < duration; sec++ {
		jpeg, err := fs.decodeFrame(ctx, videoPath, sec)
		if err != nil {
			continue // seek failure, no frame for this second
		}
		frames = append(frames, types.Frame{TimestampSec: sec, JPEG: jpeg})
	}

	// Short or unseekable video: take the first decodable frame
	if len(frames) == 0 {
		if jpeg, err := fs.decodeFrame(ctx, videoPath, 0); err == nil {
			frames = append(frames, types.Frame{TimestampSec: 0, JPEG: jpeg})
		}
	}

	return frames, nil
}

// probe runs ffprobe against the video's first stream
func (fs *FrameSampler) probe(ctx context.Context, videoPath string) (*videoProbe, error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=nb_frames,avg_frame_rate",
		"-show_entries", "format=duration",
		"-of", "json",
		videoPath,
	)

	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}

	var probe videoProbe
	if err := json.Unmarshal(output, &probe); err != nil {
		return nil, fmt.Errorf("parse ffprobe output: %w", err)
	}
	if len(probe.Streams) == 0 {
		return nil, fmt.Errorf("no video stream")
	}

	return &probe, nil
}

// decodeFrame seeks to the given second and encodes the nearest frame
// to JPEG. The output file is removed before returning.
func (fs *FrameSampler) decodeFrame(ctx context.Context, videoPath string, sec int) ([]byte, error) {
	framePath := filepath.Join(fs.tempDir, fmt.Sprintf("%s_frame.jpg", uuid.New().String()))
	defer os.Remove(framePath)

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-y",
		"-ss", strconv.Itoa(sec),
		"-i", videoPath,
		"-frames:v", "1",
		"-q:v", "2",
		"-f", "image2",
		framePath,
	)

	if _, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("seek to %ds: %w", sec, err)
	}

	jpeg, err := os.ReadFile(framePath)
	if err != nil || len(jpeg) == 0 {
		return nil, fmt.Errorf("no frame at %ds", sec)
	}

	return jpeg, nil
}

// durationSeconds computes floor(frameCount / fps), with fps defaulting
// to 25 when unreported and the container duration as a fallback when
// the stream does not carry a frame count.
func durationSeconds(probe *videoProbe) int {
	fps := parseRate(probe.Streams[0].AvgFrameRate)
	if fps <= 0 {
		fps = defaultFPS
	}

	frames, _ := strconv.Atoi(probe.Streams[0].NbFrames)
	if frames > 0 {
		return int(float64(frames) / fps)
	}

	if dur, err := strconv.ParseFloat(probe.Format.Duration, 64); err == nil {
		return int(dur)
	}

	return 0
}

// parseRate parses ffprobe rational rates like "30000/1001"
func parseRate(rate string) float64 {
	if rate == "" {
		return 0
	}

	parts := strings.SplitN(rate, "/", 2)
	num, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0
	}
	if len(parts) == 1 {
		return num
	}

	den, err := strconv.ParseFloat(parts[1], 64)
	if err != nil || den == 0 {
		return 0
	}

	return num / den
}
