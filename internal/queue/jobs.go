package queue

import (
	"time"

	"github.com/codebuildervaibhav/video-ingest/internal/types"
)

// FrameJob is one unit of background work: sample frames from a video,
// upload them, and persist the frame rows for an already-inserted
// transcript. Done is closed when the job reaches a terminal state.
type FrameJob struct {
	ID           string
	TranscriptID int64
	Video        []byte
	Transcript   string
	Submitter    string
	Status       string
	CreatedAt    time.Time
	Done         chan struct{}
}

// NewFrameJob creates a frame job for a persisted transcript
func NewFrameJob(id string, transcriptID int64, video []byte, transcript, submitter string) *FrameJob {
	return &FrameJob{
		ID:           id,
		TranscriptID: transcriptID,
		Video:        video,
		Transcript:   transcript,
		Submitter:    submitter,
		Status:       types.StatusQueued,
		CreatedAt:    time.Now(),
		Done:         make(chan struct{}),
	}
}
