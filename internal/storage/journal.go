package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/codebuildervaibhav/video-ingest/internal/types"
)

// Journal is a local SQLite ledger of background frame jobs. It exists
// so operators can see what happened to work that outlived the HTTP
// response; the remote row store never learns about failed jobs.
type Journal struct {
	db *sql.DB
}

// NewJournal opens (and if needed creates) the journal database
func NewJournal(dbPath string) (*Journal, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal database: %v", err)
	}

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS frame_jobs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		job_id TEXT NOT NULL UNIQUE,
		transcript_id INTEGER NOT NULL,
		submitter TEXT NOT NULL,
		status TEXT NOT NULL,
		frames_sampled INTEGER NOT NULL DEFAULT 0,
		frames_uploaded INTEGER NOT NULL DEFAULT 0,
		error TEXT,
		created_at DATETIME NOT NULL,
		finished_at DATETIME
	);

	CREATE INDEX IF NOT EXISTS idx_frame_jobs_created_at ON frame_jobs(created_at);
	CREATE INDEX IF NOT EXISTS idx_frame_jobs_transcript ON frame_jobs(transcript_id);
	`

	if _, err := db.Exec(createTableSQL); err != nil {
		return nil, fmt.Errorf("failed to create journal table: %v", err)
	}

	return &Journal{db: db}, nil
}

// CreateJob records a newly enqueued frame job
func (j *Journal) CreateJob(jobID string, transcriptID int64, submitter string) error {
	query := `
	INSERT INTO frame_jobs (job_id, transcript_id, submitter, status, created_at)
	VALUES (?, ?, ?, ?, ?)
	`

	_, err := j.db.Exec(query, jobID, transcriptID, submitter, types.StatusQueued, time.Now())
	if err != nil {
		return fmt.Errorf("failed to record frame job: %v", err)
	}

	return nil
}

// SetStatus moves a job to a new non-terminal status
func (j *Journal) SetStatus(jobID, status string) error {
	_, err := j.db.Exec(`UPDATE frame_jobs SET status = ? WHERE job_id = ?`, status, jobID)
	if err != nil {
		return fmt.Errorf("failed to update frame job status: %v", err)
	}
	return nil
}

// Finish records a job's terminal outcome and counters
func (j *Journal) Finish(jobID, status string, framesSampled, framesUploaded int, jobErr string) error {
	query := `
	UPDATE frame_jobs
	SET status = ?, frames_sampled = ?, frames_uploaded = ?, error = ?, finished_at = ?
	WHERE job_id = ?
	`

	_, err := j.db.Exec(query, status, framesSampled, framesUploaded, jobErr, time.Now(), jobID)
	if err != nil {
		return fmt.Errorf("failed to finish frame job: %v", err)
	}

	return nil
}

// GetJob retrieves one job by its id
func (j *Journal) GetJob(jobID string) (*types.FrameJobStatus, error) {
	query := `
	SELECT job_id, transcript_id, submitter, status, frames_sampled, frames_uploaded,
	       COALESCE(error, ''), created_at, finished_at
	FROM frame_jobs WHERE job_id = ?
	`

	return scanJob(j.db.QueryRow(query, jobID))
}

// ListJobs returns the most recent jobs, newest first
func (j *Journal) ListJobs(limit int) ([]*types.FrameJobStatus, error) {
	query := `
	SELECT job_id, transcript_id, submitter, status, frames_sampled, frames_uploaded,
	       COALESCE(error, ''), created_at, finished_at
	FROM frame_jobs ORDER BY created_at DESC LIMIT ?
	`

	rows, err := j.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list frame jobs: %v", err)
	}
	defer rows.Close()

	var jobs []*types.FrameJobStatus
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			continue
		}
		jobs = append(jobs, job)
	}

	return jobs, rows.Err()
}

// Close closes the journal database
func (j *Journal) Close() error {
	return j.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row rowScanner) (*types.FrameJobStatus, error) {
	var (
		job      types.FrameJobStatus
		finished sql.NullTime
	)

	err := row.Scan(&job.JobID, &job.TranscriptID, &job.Submitter, &job.Status,
		&job.FramesSampled, &job.FramesUploaded, &job.Error, &job.CreatedAt, &finished)
	if err != nil {
		return nil, fmt.Errorf("failed to read frame job: %v", err)
	}

	if finished.Valid {
		t := finished.Time
		job.FinishedAt = &t
	}

	return &job, nil
}
