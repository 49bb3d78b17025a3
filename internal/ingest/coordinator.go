package ingest

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"github.com/codebuildervaibhav/video-ingest/internal/queue"
	"github.com/codebuildervaibhav/video-ingest/internal/transcription"
	"github.com/codebuildervaibhav/video-ingest/internal/types"
)

// MediaFetcher resolves a submission item into media bytes and a kind
type MediaFetcher interface {
	FetchUpload(data []byte, declaredType string) (*types.Media, error)
	FetchURL(ctx context.Context, url string) (*types.Media, error)
}

// Transcriber turns video bytes into timed segments. A nil segment
// slice with a nil error means the video has no audio track.
type Transcriber interface {
	Transcribe(ctx context.Context, videoBytes []byte) ([]types.Segment, error)
}

// RecordStore is the remote row store plus frame object storage
type RecordStore interface {
	InsertTranscript(ctx context.Context, rec *types.TranscriptRecord) (int64, error)
	InsertFrames(ctx context.Context, rows []types.FrameRecord) error
	MaxUploadNumber(ctx context.Context) (int64, error)
	UploadFrame(ctx context.Context, path string, jpeg []byte) (string, error)
}

// FrameSubmitter accepts background frame jobs
type FrameSubmitter interface {
	Enqueue(job *queue.FrameJob)
}

// Coordinator orchestrates the ingestion pipeline for one batch:
// fetch, transcribe and persist synchronously, then hand frame work to
// the background pool.
type Coordinator struct {
	fetcher     MediaFetcher
	transcriber Transcriber
	store       RecordStore
	frames      FrameSubmitter
}

// NewCoordinator wires the pipeline components together
func NewCoordinator(fetcher MediaFetcher, transcriber Transcriber, store RecordStore, frames FrameSubmitter) *Coordinator {
	return &Coordinator{
		fetcher:     fetcher,
		transcriber: transcriber,
		store:       store,
		frames:      frames,
	}
}

// IngestBatch processes all items of one submission. Item failures are
// isolated: a failed fetch or insert records the failure and moves on.
// The returned result carries the batch's shared upload number, the
// ids of every transcript row created, and the failed item count.
func (c *Coordinator) IngestBatch(ctx context.Context, submitter *types.Submitter, items []*types.SubmissionItem) (*types.BatchResult, error) {
	if err := validate(submitter, items); err != nil {
		return nil, err
	}

	// One upload number per batch, shared by all its items. This is a
	// read-then-write against the store's current maximum and can race
	// with a concurrent batch.
	max, err := c.store.MaxUploadNumber(ctx)
	if err != nil {
		return nil, err
	}
	uploadNumber := max + 1

	result := &types.BatchResult{
		UploadNumber:  uploadNumber,
		TranscriptIDs: make([]int64, 0, len(items)),
	}

	for i, item := range items {
		media, err := c.fetchItem(ctx, item)
		if err != nil {
			log.Printf("Item %d: fetch failed: %v", i, err)
			result.FailedCount++
			continue
		}

		var id int64
		if media.Kind == types.KindImage {
			id, err = c.ingestImage(ctx, submitter, media, uploadNumber)
		} else {
			id, err = c.ingestVideo(ctx, submitter, media, uploadNumber)
		}
		if err != nil {
			log.Printf("Item %d: %v", i, err)
			result.FailedCount++
			continue
		}

		result.TranscriptIDs = append(result.TranscriptIDs, id)
	}

	return result, nil
}

// fetchItem acquires the item's media from its source
func (c *Coordinator) fetchItem(ctx context.Context, item *types.SubmissionItem) (*types.Media, error) {
	if item.SourceKind == types.SourceURL {
		return c.fetcher.FetchURL(ctx, item.URL)
	}
	return c.fetcher.FetchUpload(item.Data, item.DeclaredType)
}

// ingestImage persists the sentinel transcript and one frame row at
// timestamp 0 pointing at the uploaded image itself. No sampling and
// no background work.
func (c *Coordinator) ingestImage(ctx context.Context, submitter *types.Submitter, media *types.Media, uploadNumber int64) (int64, error) {
	id, err := c.store.InsertTranscript(ctx, &types.TranscriptRecord{
		Name:         submitter.Name,
		PhoneNumber:  submitter.Phone,
		Transcript:   types.SentinelImage,
		UploadNumber: uploadNumber,
	})
	if err != nil {
		return 0, err
	}

	frame := types.FrameRecord{TranscriptID: id, TimestampSec: 0}
	path := frameObjectPath(id, 0)
	if url, err := c.store.UploadFrame(ctx, path, media.Data); err != nil {
		log.Printf("Image upload failed for transcript %d, keeping frame row with null URL: %v", id, err)
	} else {
		frame.StorageURL = &url
	}

	if err := c.store.InsertFrames(ctx, []types.FrameRecord{frame}); err != nil {
		// The transcript row already exists; the missing frame row is
		// the acceptable best-effort loss
		log.Printf("Frame row insert failed for transcript %d: %v", id, err)
	}

	return id, nil
}

// ingestVideo transcribes synchronously, persists the transcript row,
// then submits frame extraction as background work keyed by the new
// transcript id. Transcription failures degrade to the sentinel, they
// never fail the item.
func (c *Coordinator) ingestVideo(ctx context.Context, submitter *types.Submitter, media *types.Media, uploadNumber int64) (int64, error) {
	text := ""
	segments, err := c.transcriber.Transcribe(ctx, media.Data)
	if err != nil {
		log.Printf("Transcription degraded to sentinel: %v", err)
	} else {
		text = transcription.RenderTranscript(segments)
	}

	transcript := text
	if transcript == "" {
		transcript = types.SentinelNoAudio
	}

	id, err := c.store.InsertTranscript(ctx, &types.TranscriptRecord{
		Name:         submitter.Name,
		PhoneNumber:  submitter.Phone,
		Transcript:   transcript,
		UploadNumber: uploadNumber,
	})
	if err != nil {
		return 0, err
	}

	// Only real transcripts are worth archiving alongside the frames
	c.frames.Enqueue(queue.NewFrameJob(uuid.New().String(), id, media.Data, text, submitter.Name))

	return id, nil
}

// validate rejects the batch before any network or IO work
func validate(submitter *types.Submitter, items []*types.SubmissionItem) error {
	if submitter == nil || strings.TrimSpace(submitter.Name) == "" {
		return &types.ValidationError{Reason: "submitter name is required"}
	}
	if strings.TrimSpace(submitter.Phone) == "" {
		return &types.ValidationError{Reason: "submitter phone is required"}
	}
	if len(items) == 0 {
		return &types.ValidationError{Reason: "at least one item is required"}
	}
	return nil
}

// frameObjectPath is the deterministic object-storage path for a frame
func frameObjectPath(transcriptID int64, sec int) string {
	return fmt.Sprintf("%d/frame_%d.jpg", transcriptID, sec)
}
