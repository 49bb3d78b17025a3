package ingest

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/codebuildervaibhav/video-ingest/internal/queue"
	"github.com/codebuildervaibhav/video-ingest/internal/types"
)

// fakeFetcher serves canned media and counts calls
type fakeFetcher struct {
	uploadCalls int
	urlCalls    int
	media       map[string]*types.Media // keyed by URL
	uploadKind  types.MediaKind
}

func (f *fakeFetcher) FetchUpload(data []byte, declaredType string) (*types.Media, error) {
	f.uploadCalls++
	kind := f.uploadKind
	if kind == "" {
		kind = types.KindVideo
	}
	return &types.Media{Data: data, Kind: kind}, nil
}

func (f *fakeFetcher) FetchURL(ctx context.Context, url string) (*types.Media, error) {
	f.urlCalls++
	m, ok := f.media[url]
	if !ok {
		return nil, &types.FetchError{Source: url, Err: errors.New("not found")}
	}
	return m, nil
}

// fakeTranscriber returns canned segments
type fakeTranscriber struct {
	calls    int
	segments []types.Segment
	err      error
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, videoBytes []byte) ([]types.Segment, error) {
	f.calls++
	return f.segments, f.err
}

// fakeStore records inserts and counts every call
type fakeStore struct {
	maxCalls        int
	max             int64
	insertCalls     int
	insertErr       error
	transcripts     []*types.TranscriptRecord
	nextID          int64
	frameBatches    [][]types.FrameRecord
	uploadCalls     int
	uploadErr       error
	uploadedPaths   []string
	insertFrameErr  error
	insertFrameHits int
}

func (f *fakeStore) InsertTranscript(ctx context.Context, rec *types.TranscriptRecord) (int64, error) {
	f.insertCalls++
	if f.insertErr != nil {
		return 0, f.insertErr
	}
	f.nextID++
	saved := *rec
	saved.ID = f.nextID
	f.transcripts = append(f.transcripts, &saved)
	return f.nextID, nil
}

func (f *fakeStore) InsertFrames(ctx context.Context, rows []types.FrameRecord) error {
	f.insertFrameHits++
	if f.insertFrameErr != nil {
		return f.insertFrameErr
	}
	f.frameBatches = append(f.frameBatches, rows)
	return nil
}

func (f *fakeStore) MaxUploadNumber(ctx context.Context) (int64, error) {
	f.maxCalls++
	return f.max, nil
}

func (f *fakeStore) UploadFrame(ctx context.Context, path string, jpeg []byte) (string, error) {
	f.uploadCalls++
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	f.uploadedPaths = append(f.uploadedPaths, path)
	return "https://cdn.example.com/" + path, nil
}

// fakeSubmitter collects enqueued frame jobs
type fakeSubmitter struct {
	jobs []*queue.FrameJob
}

func (f *fakeSubmitter) Enqueue(job *queue.FrameJob) {
	f.jobs = append(f.jobs, job)
}

func videoItem(url string) *types.SubmissionItem {
	return &types.SubmissionItem{SourceKind: types.SourceURL, URL: url}
}

func submitter() *types.Submitter {
	return &types.Submitter{Name: "Erica", Phone: "555-0100"}
}

func TestIngestBatchValidation(t *testing.T) {
	tests := []struct {
		name      string
		submitter *types.Submitter
		items     []*types.SubmissionItem
	}{
		{"empty name", &types.Submitter{Name: "", Phone: "555-0100"}, []*types.SubmissionItem{videoItem("http://x/v.mp4")}},
		{"whitespace name", &types.Submitter{Name: "   ", Phone: "555-0100"}, []*types.SubmissionItem{videoItem("http://x/v.mp4")}},
		{"empty phone", &types.Submitter{Name: "Erica", Phone: ""}, []*types.SubmissionItem{videoItem("http://x/v.mp4")}},
		{"no items", submitter(), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher := &fakeFetcher{}
			store := &fakeStore{}
			c := NewCoordinator(fetcher, &fakeTranscriber{}, store, &fakeSubmitter{})

			_, err := c.IngestBatch(context.Background(), tt.submitter, tt.items)

			var ve *types.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if fetcher.uploadCalls+fetcher.urlCalls != 0 {
				t.Error("fetcher was called before validation")
			}
			if store.maxCalls+store.insertCalls != 0 {
				t.Error("store was called before validation")
			}
		})
	}
}

func TestIngestBatchItemIsolation(t *testing.T) {
	fetcher := &fakeFetcher{media: map[string]*types.Media{
		"http://x/1.mp4": {Data: []byte("v1"), Kind: types.KindVideo},
		"http://x/3.mp4": {Data: []byte("v3"), Kind: types.KindVideo},
	}}
	store := &fakeStore{max: 7}
	pool := &fakeSubmitter{}
	c := NewCoordinator(fetcher, &fakeTranscriber{segments: []types.Segment{{Start: 0, End: 1, Text: "hi"}}}, store, pool)

	items := []*types.SubmissionItem{
		videoItem("http://x/1.mp4"),
		videoItem("http://x/2.mp4"), // fetch fails
		videoItem("http://x/3.mp4"),
	}

	result, err := c.IngestBatch(context.Background(), submitter(), items)
	if err != nil {
		t.Fatalf("IngestBatch returned error: %v", err)
	}

	if len(result.TranscriptIDs) != 2 {
		t.Errorf("expected 2 transcript ids, got %v", result.TranscriptIDs)
	}
	if result.FailedCount != 1 {
		t.Errorf("failed count = %d, want 1", result.FailedCount)
	}
	if result.UploadNumber != 8 {
		t.Errorf("upload number = %d, want 8", result.UploadNumber)
	}

	// All items of the batch share the one upload number
	for _, rec := range store.transcripts {
		if rec.UploadNumber != 8 {
			t.Errorf("transcript %d upload number = %d, want 8", rec.ID, rec.UploadNumber)
		}
	}
	if len(pool.jobs) != 2 {
		t.Errorf("expected 2 background jobs, got %d", len(pool.jobs))
	}
}

func TestIngestBatchVideoTranscribed(t *testing.T) {
	fetcher := &fakeFetcher{uploadKind: types.KindVideo}
	store := &fakeStore{}
	pool := &fakeSubmitter{}
	tr := &fakeTranscriber{segments: []types.Segment{
		{Start: 0, End: 2.5, Text: " Hello."},
		{Start: 2.5, End: 4, Text: "Bye."},
	}}
	c := NewCoordinator(fetcher, tr, store, pool)

	item := &types.SubmissionItem{SourceKind: types.SourceUpload, Data: []byte("video")}
	result, err := c.IngestBatch(context.Background(), submitter(), []*types.SubmissionItem{item})
	if err != nil {
		t.Fatalf("IngestBatch returned error: %v", err)
	}

	if len(result.TranscriptIDs) != 1 || result.FailedCount != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}

	want := "[00:00:00,000 --> 00:00:02,500] Hello.\n[00:00:02,500 --> 00:00:04,000] Bye."
	if got := store.transcripts[0].Transcript; got != want {
		t.Errorf("transcript = %q, want %q", got, want)
	}

	if len(pool.jobs) != 1 {
		t.Fatalf("expected 1 background job, got %d", len(pool.jobs))
	}
	job := pool.jobs[0]
	if job.TranscriptID != result.TranscriptIDs[0] {
		t.Errorf("job transcript id = %d, want %d", job.TranscriptID, result.TranscriptIDs[0])
	}
	if string(job.Video) != "video" {
		t.Errorf("job video bytes = %q", job.Video)
	}
	if job.Transcript != want {
		t.Errorf("job transcript = %q", job.Transcript)
	}
}

func TestIngestBatchTranscriptionDegradesToSentinel(t *testing.T) {
	tests := []struct {
		name string
		tr   *fakeTranscriber
	}{
		{"service error", &fakeTranscriber{err: &types.TranscriptionError{Status: 500, Body: "boom"}}},
		{"no audio track", &fakeTranscriber{segments: nil}},
		{"empty segment list", &fakeTranscriber{segments: []types.Segment{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher := &fakeFetcher{uploadKind: types.KindVideo}
			store := &fakeStore{}
			pool := &fakeSubmitter{}
			c := NewCoordinator(fetcher, tt.tr, store, pool)

			item := &types.SubmissionItem{SourceKind: types.SourceUpload, Data: []byte("video")}
			result, err := c.IngestBatch(context.Background(), submitter(), []*types.SubmissionItem{item})
			if err != nil {
				t.Fatalf("IngestBatch returned error: %v", err)
			}

			if result.FailedCount != 0 || len(result.TranscriptIDs) != 1 {
				t.Fatalf("item should succeed with sentinel, got %+v", result)
			}
			if got := store.transcripts[0].Transcript; got != types.SentinelNoAudio {
				t.Errorf("transcript = %q, want %q", got, types.SentinelNoAudio)
			}
			// Frame work still happens; only the archive text is empty
			if len(pool.jobs) != 1 {
				t.Fatalf("expected 1 background job, got %d", len(pool.jobs))
			}
			if pool.jobs[0].Transcript != "" {
				t.Errorf("sentinel transcript should not be archived, job carries %q", pool.jobs[0].Transcript)
			}
		})
	}
}

func TestIngestBatchImage(t *testing.T) {
	fetcher := &fakeFetcher{uploadKind: types.KindImage}
	store := &fakeStore{max: 2}
	pool := &fakeSubmitter{}
	tr := &fakeTranscriber{}
	c := NewCoordinator(fetcher, tr, store, pool)

	item := &types.SubmissionItem{SourceKind: types.SourceUpload, Data: []byte("png-bytes")}
	result, err := c.IngestBatch(context.Background(), submitter(), []*types.SubmissionItem{item})
	if err != nil {
		t.Fatalf("IngestBatch returned error: %v", err)
	}

	if tr.calls != 0 {
		t.Error("images must not be transcribed")
	}
	if got := store.transcripts[0].Transcript; got != types.SentinelImage {
		t.Errorf("transcript = %q, want %q", got, types.SentinelImage)
	}

	// The image itself is persisted as the single frame at second 0
	if len(store.frameBatches) != 1 || len(store.frameBatches[0]) != 1 {
		t.Fatalf("expected one frame row, got %v", store.frameBatches)
	}
	frame := store.frameBatches[0][0]
	if frame.TimestampSec != 0 {
		t.Errorf("frame timestamp = %d, want 0", frame.TimestampSec)
	}
	if frame.TranscriptID != result.TranscriptIDs[0] {
		t.Errorf("frame transcript id = %d", frame.TranscriptID)
	}
	wantPath := fmt.Sprintf("%d/frame_0.jpg", result.TranscriptIDs[0])
	if len(store.uploadedPaths) != 1 || store.uploadedPaths[0] != wantPath {
		t.Errorf("uploaded paths = %v, want [%s]", store.uploadedPaths, wantPath)
	}
	if frame.StorageURL == nil {
		t.Error("frame URL should be set on successful upload")
	}
	if len(pool.jobs) != 0 {
		t.Error("images must not spawn background frame jobs")
	}
}

func TestIngestBatchImageUploadFailureKeepsFrameRow(t *testing.T) {
	fetcher := &fakeFetcher{uploadKind: types.KindImage}
	store := &fakeStore{uploadErr: errors.New("bucket unavailable")}
	c := NewCoordinator(fetcher, &fakeTranscriber{}, store, &fakeSubmitter{})

	item := &types.SubmissionItem{SourceKind: types.SourceUpload, Data: []byte("png-bytes")}
	result, err := c.IngestBatch(context.Background(), submitter(), []*types.SubmissionItem{item})
	if err != nil {
		t.Fatalf("IngestBatch returned error: %v", err)
	}
	if result.FailedCount != 0 {
		t.Fatalf("upload failure must not fail the item: %+v", result)
	}

	if len(store.frameBatches) != 1 || len(store.frameBatches[0]) != 1 {
		t.Fatalf("expected one frame row despite upload failure, got %v", store.frameBatches)
	}
	if store.frameBatches[0][0].StorageURL != nil {
		t.Error("frame URL should be null after upload failure")
	}
}

func TestIngestBatchTranscriptInsertFailure(t *testing.T) {
	fetcher := &fakeFetcher{uploadKind: types.KindVideo}
	store := &fakeStore{insertErr: &types.StoreError{Table: "transcript", Err: errors.New("down")}}
	pool := &fakeSubmitter{}
	c := NewCoordinator(fetcher, &fakeTranscriber{}, store, pool)

	item := &types.SubmissionItem{SourceKind: types.SourceUpload, Data: []byte("video")}
	result, err := c.IngestBatch(context.Background(), submitter(), []*types.SubmissionItem{item})
	if err != nil {
		t.Fatalf("IngestBatch returned error: %v", err)
	}

	if result.FailedCount != 1 || len(result.TranscriptIDs) != 0 {
		t.Fatalf("expected the item to fail, got %+v", result)
	}
	if len(pool.jobs) != 0 {
		t.Error("no frame work may follow a failed transcript insert")
	}
}

func TestIngestBatchFirstUploadNumber(t *testing.T) {
	fetcher := &fakeFetcher{uploadKind: types.KindVideo}
	store := &fakeStore{max: 0}
	c := NewCoordinator(fetcher, &fakeTranscriber{}, store, &fakeSubmitter{})

	item := &types.SubmissionItem{SourceKind: types.SourceUpload, Data: []byte("video")}
	result, err := c.IngestBatch(context.Background(), submitter(), []*types.SubmissionItem{item})
	if err != nil {
		t.Fatalf("IngestBatch returned error: %v", err)
	}
	if result.UploadNumber != 1 {
		t.Errorf("upload number = %d, want 1", result.UploadNumber)
	}
}
