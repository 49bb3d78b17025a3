package transcription

import (
	"fmt"
	"strings"

	"github.com/codebuildervaibhav/video-ingest/internal/types"
)

// FormatTimestamp renders a second offset as H:MM:SS,mmm with
// zero-padded fields. Milliseconds are the truncated fractional
// remainder, not rounded.
func FormatTimestamp(seconds float64) string {
	millis := int((seconds - float64(int(seconds))) * 1000)
	whole := int(seconds)
	return fmt.Sprintf("%02d:%02d:%02d,%03d", whole/3600, (whole/60)%60, whole%60, millis)
}

// RenderTranscript converts timed segments into the canonical
// timestamped transcript, one line per segment in input order. An
// empty segment sequence yields an empty string.
func RenderTranscript(segments []types.Segment) string {
	lines := make([]string, 0, len(segments))
	for _, seg := range segments {
		lines = append(lines, fmt.Sprintf("[%s --> %s] %s",
			FormatTimestamp(seg.Start), FormatTimestamp(seg.End), strings.TrimSpace(seg.Text)))
	}
	return strings.Join(lines, "\n")
}
