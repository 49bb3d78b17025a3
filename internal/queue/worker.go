package queue

import (
	"context"
	"fmt"
	"log"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/codebuildervaibhav/video-ingest/internal/storage"
	"github.com/codebuildervaibhav/video-ingest/internal/types"
)

// FrameSampler decodes per-second frames out of a video buffer
type FrameSampler interface {
	Sample(ctx context.Context, videoBytes []byte) ([]types.Frame, error)
}

// FrameStore uploads frame images and persists frame rows
type FrameStore interface {
	UploadFrame(ctx context.Context, path string, jpeg []byte) (string, error)
	InsertFrames(ctx context.Context, rows []types.FrameRecord) error
}

// WorkerPool runs frame jobs detached from the request lifecycle. It
// replaces fire-and-forget goroutines with a bounded pool whose
// completion is observable through the journal and each job's Done
// channel.
type WorkerPool struct {
	jobQueue    chan *FrameJob
	workerCount int
	sampler     FrameSampler
	store       FrameStore
	journal     *storage.Journal
	archive     *storage.DriveArchive
	wg          sync.WaitGroup
}

// NewWorkerPool creates a pool with the given number of workers.
// journal and archive may be nil.
func NewWorkerPool(
	workerCount int,
	sampler FrameSampler,
	store FrameStore,
	journal *storage.Journal,
	archive *storage.DriveArchive,
) *WorkerPool {
	if workerCount <= 0 {
		workerCount = 2
	}
	return &WorkerPool{
		jobQueue:    make(chan *FrameJob, 100), // Buffer of 100 jobs
		workerCount: workerCount,
		sampler:     sampler,
		store:       store,
		journal:     journal,
		archive:     archive,
	}
}

// Start launches all workers
func (wp *WorkerPool) Start() {
	log.Printf("Starting frame worker pool with %d workers", wp.workerCount)
	for i := 0; i < wp.workerCount; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Stop closes the intake and waits for in-flight jobs to finish.
// Queued jobs still run; nothing in flight is cancelled.
func (wp *WorkerPool) Stop() {
	close(wp.jobQueue)
	wp.wg.Wait()
	log.Println("Frame worker pool stopped")
}

// Enqueue adds a job to the queue and journals it
func (wp *WorkerPool) Enqueue(job *FrameJob) {
	job.Status = types.StatusQueued
	if wp.journal != nil {
		if err := wp.journal.CreateJob(job.ID, job.TranscriptID, job.Submitter); err != nil {
			log.Printf("Failed to journal frame job %s: %v", job.ID, err)
		}
	}
	wp.jobQueue <- job
	log.Printf("Frame job %s enqueued (transcript: %d)", job.ID, job.TranscriptID)
}

// worker processes jobs from the queue with panic recovery
func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()
	log.Printf("Frame worker %d started", id)

	for job := range wp.jobQueue {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("Frame worker %d: PANIC processing job %s: %v\n%s",
						id, job.ID, r, string(debug.Stack()))
					wp.finish(job, types.StatusFailed, 0, 0, fmt.Sprintf("worker panic: %v", r))
				}
			}()

			wp.processJob(id, job)
		}()
	}
}

// processJob samples frames, uploads each, then batch-inserts the
// frame rows. An upload failure keeps the frame row with a null URL;
// only sampling or row insertion failures fail the job.
func (wp *WorkerPool) processJob(workerID int, job *FrameJob) {
	log.Printf("Frame worker %d: Processing job %s", workerID, job.ID)
	job.Status = types.StatusProcessing
	if wp.journal != nil {
		wp.journal.SetStatus(job.ID, types.StatusProcessing)
	}

	ctx := context.Background()

	frames, err := wp.sampler.Sample(ctx, job.Video)
	if err != nil {
		log.Printf("Frame worker %d: sampling failed for job %s: %v", workerID, job.ID, err)
		wp.finish(job, types.StatusFailed, 0, 0, fmt.Sprintf("sampling failed: %v", err))
		return
	}

	records := make([]types.FrameRecord, 0, len(frames))
	uploaded := 0
	for _, frame := range frames {
		rec := types.FrameRecord{
			TranscriptID: job.TranscriptID,
			TimestampSec: frame.TimestampSec,
		}

		path := fmt.Sprintf("%d/frame_%d.jpg", job.TranscriptID, frame.TimestampSec)
		url, err := wp.store.UploadFrame(ctx, path, frame.JPEG)
		if err != nil {
			// Keep the timestamp slot, just without a URL
			log.Printf("Frame worker %d: upload failed for %s: %v", workerID, path, err)
		} else {
			rec.StorageURL = &url
			uploaded++
		}

		records = append(records, rec)
	}

	if len(records) > 0 {
		if err := wp.store.InsertFrames(ctx, records); err != nil {
			log.Printf("Frame worker %d: frame insert failed for job %s: %v", workerID, job.ID, err)
			wp.finish(job, types.StatusFailed, len(frames), uploaded, fmt.Sprintf("frame insert failed: %v", err))
			return
		}
	}

	wp.archiveTranscript(workerID, job, len(frames))

	wp.finish(job, types.StatusCompleted, len(frames), uploaded, "")
	log.Printf("Frame worker %d: Job %s completed (%d frames, %d uploaded)",
		workerID, job.ID, len(frames), uploaded)
}

// archiveTranscript mirrors the transcript to Drive, retrying a few
// times. Best-effort: failure never affects the persisted rows.
func (wp *WorkerPool) archiveTranscript(workerID int, job *FrameJob, frameCount int) {
	if wp.archive == nil || job.Transcript == "" {
		return
	}

	meta := map[string]interface{}{
		"transcript_id": job.TranscriptID,
		"submitter":     job.Submitter,
		"frame_count":   frameCount,
		"word_count":    len(strings.Fields(job.Transcript)),
		"archived_at":   time.Now(),
	}

	var err error
	for attempt := 1; attempt <= 3; attempt++ {
		if _, err = wp.archive.ArchiveTranscript(job.Submitter, job.TranscriptID, job.Transcript, meta); err == nil {
			return
		}
		log.Printf("Frame worker %d: Drive archive attempt %d/3 failed: %v", workerID, attempt, err)
		if attempt < 3 {
			time.Sleep(time.Duration(attempt*attempt) * time.Second) // Exponential backoff
		}
	}
	log.Printf("Frame worker %d: WARNING - Drive archive failed after 3 attempts, transcript rows are unaffected", workerID)
}

// finish journals the terminal state and releases waiters
func (wp *WorkerPool) finish(job *FrameJob, status string, sampled, uploaded int, errMsg string) {
	job.Status = status
	if wp.journal != nil {
		if err := wp.journal.Finish(job.ID, status, sampled, uploaded, errMsg); err != nil {
			log.Printf("Failed to journal completion of job %s: %v", job.ID, err)
		}
	}
	close(job.Done)
}
