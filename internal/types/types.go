package types

import "time"

// Background job status constants
const (
	StatusQueued     = "QUEUED"
	StatusProcessing = "PROCESSING"
	StatusCompleted  = "COMPLETED"
	StatusFailed     = "FAILED"
)

// Media source constants
const (
	SourceUpload = "upload"
	SourceURL    = "url"
)

// MediaKind distinguishes videos from still images
type MediaKind string

const (
	KindVideo MediaKind = "video"
	KindImage MediaKind = "image"
)

// Sentinel transcripts written when no real transcript exists
const (
	SentinelNoAudio = "[No audio found]"
	SentinelImage   = "[Image uploaded]"
)

// Media is fetched content plus its detected kind
type Media struct {
	Data []byte
	Kind MediaKind
}

// SubmissionItem is one piece of media to ingest, either raw upload
// bytes or a remote URL. Consumed once by the coordinator.
type SubmissionItem struct {
	SourceKind   string
	Data         []byte
	DeclaredType string
	URL          string
}

// Submitter is the identity accompanying one batch of items
type Submitter struct {
	Name    string
	Phone   string
	Address string
}

// TranscriptRecord is one row of the transcript table. ID is assigned
// by the store on insert.
type TranscriptRecord struct {
	ID           int64  `json:"id,omitempty"`
	Name         string `json:"name"`
	PhoneNumber  string `json:"phone_number"`
	Transcript   string `json:"transcript"`
	UploadNumber int64  `json:"upload_number"`
}

// FrameRecord is one row of the frame table. A nil StorageURL means
// the frame image failed to upload; the timestamp slot is kept anyway.
type FrameRecord struct {
	TranscriptID int64   `json:"transcript_id"`
	TimestampSec int     `json:"frame_timestamp"`
	StorageURL   *string `json:"frame_storage_url"`
}

// Segment is a timestamped portion of transcribed speech
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Frame is one sampled video frame, JPEG-encoded
type Frame struct {
	TimestampSec int
	JPEG         []byte
}

// BatchResult is what IngestBatch returns to the HTTP layer
type BatchResult struct {
	UploadNumber  int64   `json:"upload_number"`
	TranscriptIDs []int64 `json:"transcript_ids"`
	FailedCount   int     `json:"failed_count"`
}

// FrameJobStatus is one journal row describing a background frame job
type FrameJobStatus struct {
	JobID          string     `json:"job_id"`
	TranscriptID   int64      `json:"transcript_id"`
	Submitter      string     `json:"submitter"`
	Status         string     `json:"status"`
	FramesSampled  int        `json:"frames_sampled"`
	FramesUploaded int        `json:"frames_uploaded"`
	Error          string     `json:"error,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
}
