package storage

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	postgrest "github.com/supabase-community/postgrest-go"
	storage_go "github.com/supabase-community/storage-go"
	supabase "github.com/supabase-community/supabase-go"

	"github.com/codebuildervaibhav/video-ingest/internal/types"
)

// Config holds everything needed to reach the Supabase project.
type Config struct {
	// URL is the project URL, e.g. "https://[project-ref].supabase.co"
	URL string
	// Key is the API key (service_role for server-side use)
	Key string
	// ConnectionString is an optional direct Postgres connection
	// string. When absent but Password is set, one is derived from URL.
	ConnectionString string
	// Password is the database password (not the API key)
	Password string

	TranscriptTable string
	FrameTable      string
	FramesBucket    string
}

// Store wraps the Supabase row store and object storage. REST (SDK)
// mode always works; a direct Postgres handle is attached when a
// connection string or password is configured, and is preferred for
// aggregate queries.
type Store struct {
	sdk *supabase.Client
	db  *sql.DB
	cfg Config
}

// NewStore creates the SDK client. Call Connect to optionally attach
// the direct database handle.
func NewStore(cfg Config) (*Store, error) {
	if cfg.TranscriptTable == "" {
		cfg.TranscriptTable = "transcript"
	}
	if cfg.FrameTable == "" {
		cfg.FrameTable = "frame"
	}
	if cfg.FramesBucket == "" {
		cfg.FramesBucket = "video_frames"
	}

	sdk, err := supabase.NewClient(cfg.URL, cfg.Key, nil)
	if err != nil {
		return nil, fmt.Errorf("initialize supabase client: %w", err)
	}

	return &Store{sdk: sdk, cfg: cfg}, nil
}

// Connect attaches the direct Postgres connection when configured.
// REST-only mode is not an error.
func (s *Store) Connect(ctx context.Context) error {
	connStr := s.cfg.ConnectionString
	if connStr == "" && s.cfg.Password != "" {
		built, err := s.buildConnectionString()
		if err != nil {
			return err
		}
		connStr = built
	}
	if connStr == "" {
		log.Println("Supabase: no database password configured, using REST mode only")
		return nil
	}

	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return fmt.Errorf("open supabase postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("ping supabase postgres: %w", err)
	}

	s.db = db
	return nil
}

// Close releases the direct database handle, if any
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// InsertTranscript inserts one transcript row and returns the id the
// store assigned to it.
func (s *Store) InsertTranscript(ctx context.Context, rec *types.TranscriptRecord) (int64, error) {
	data, _, err := s.sdk.From(s.cfg.TranscriptTable).
		Insert(rec, false, "", "representation", "").
		Execute()
	if err != nil {
		return 0, &types.StoreError{Table: s.cfg.TranscriptTable, Err: err}
	}

	var inserted []types.TranscriptRecord
	if err := json.Unmarshal(data, &inserted); err != nil {
		return 0, &types.StoreError{Table: s.cfg.TranscriptTable, Err: fmt.Errorf("parse insert response: %w", err)}
	}
	if len(inserted) == 0 {
		return 0, &types.StoreError{Table: s.cfg.TranscriptTable, Err: fmt.Errorf("insert returned no rows")}
	}

	return inserted[0].ID, nil
}

// InsertFrames batch-inserts frame rows for one transcript
func (s *Store) InsertFrames(ctx context.Context, rows []types.FrameRecord) error {
	if len(rows) == 0 {
		return nil
	}

	_, _, err := s.sdk.From(s.cfg.FrameTable).
		Insert(rows, false, "", "", "").
		Execute()
	if err != nil {
		return &types.StoreError{Table: s.cfg.FrameTable, Err: err}
	}

	return nil
}

// MaxUploadNumber returns the highest upload number assigned so far,
// or 0 when no transcripts exist. The direct database handle is used
// when available; otherwise an order/limit REST query stands in.
func (s *Store) MaxUploadNumber(ctx context.Context) (int64, error) {
	if s.db != nil {
		var max int64
		query := fmt.Sprintf("SELECT COALESCE(MAX(upload_number), 0) FROM %s", s.cfg.TranscriptTable)
		if err := s.db.QueryRowContext(ctx, query).Scan(&max); err != nil {
			return 0, &types.StoreError{Table: s.cfg.TranscriptTable, Err: err}
		}
		return max, nil
	}

	data, _, err := s.sdk.From(s.cfg.TranscriptTable).
		Select("upload_number", "", false).
		Order("upload_number", &postgrest.OrderOpts{Ascending: false}).
		Limit(1, "").
		Execute()
	if err != nil {
		return 0, &types.StoreError{Table: s.cfg.TranscriptTable, Err: err}
	}

	var rows []struct {
		UploadNumber int64 `json:"upload_number"`
	}
	if err := json.Unmarshal(data, &rows); err != nil {
		return 0, &types.StoreError{Table: s.cfg.TranscriptTable, Err: fmt.Errorf("parse select response: %w", err)}
	}
	if len(rows) == 0 {
		return 0, nil
	}

	return rows[0].UploadNumber, nil
}

// UpdateTranscript updates fields of one transcript row in place
func (s *Store) UpdateTranscript(ctx context.Context, id int64, fields map[string]interface{}) error {
	_, _, err := s.sdk.From(s.cfg.TranscriptTable).
		Update(fields, "", "").
		Eq("id", fmt.Sprintf("%d", id)).
		Execute()
	if err != nil {
		return &types.StoreError{Table: s.cfg.TranscriptTable, Err: err}
	}

	return nil
}

// UploadFrame stores one JPEG in the frames bucket and returns its
// public URL
func (s *Store) UploadFrame(ctx context.Context, path string, jpeg []byte) (string, error) {
	contentType := "image/jpeg"
	_, err := s.sdk.Storage.UploadFile(s.cfg.FramesBucket, path, bytes.NewReader(jpeg),
		storage_go.FileOptions{ContentType: &contentType})
	if err != nil {
		return "", &types.StorageError{Path: path, Err: err}
	}

	return s.sdk.Storage.GetPublicUrl(s.cfg.FramesBucket, path).SignedURL, nil
}

// buildConnectionString derives a Postgres connection string from the
// project URL and database password
func (s *Store) buildConnectionString() (string, error) {
	parsed, err := url.Parse(s.cfg.URL)
	if err != nil {
		return "", fmt.Errorf("parse supabase URL: %w", err)
	}

	parts := strings.Split(parsed.Host, ".")
	if len(parts) < 2 {
		return "", fmt.Errorf("invalid supabase URL: expected [project-ref].supabase.co")
	}

	return fmt.Sprintf("postgresql://postgres:%s@db.%s.supabase.co:5432/postgres?sslmode=require",
		url.QueryEscape(s.cfg.Password), parts[0]), nil
}
