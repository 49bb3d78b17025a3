package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"gopkg.in/yaml.v3"

	"github.com/codebuildervaibhav/video-ingest/internal/cleanup"
	"github.com/codebuildervaibhav/video-ingest/internal/handlers"
	"github.com/codebuildervaibhav/video-ingest/internal/ingest"
	"github.com/codebuildervaibhav/video-ingest/internal/media"
	"github.com/codebuildervaibhav/video-ingest/internal/queue"
	"github.com/codebuildervaibhav/video-ingest/internal/storage"
	"github.com/codebuildervaibhav/video-ingest/internal/transcription"
)

// Config represents the application configuration
type Config struct {
	Server struct {
		Port int    `yaml:"port"`
		Host string `yaml:"host"`
	} `yaml:"server"`

	Supabase struct {
		URL              string `yaml:"url"`
		Key              string `yaml:"key"`
		DBPassword       string `yaml:"db_password"`
		ConnectionString string `yaml:"connection_string"`
		TranscriptTable  string `yaml:"transcript_table"`
		FrameTable       string `yaml:"frame_table"`
		FramesBucket     string `yaml:"frames_bucket"`
	} `yaml:"supabase"`

	OpenAI struct {
		APIKey   string `yaml:"api_key"`
		Model    string `yaml:"model"`
		Endpoint string `yaml:"endpoint"`
	} `yaml:"openai"`

	Workers struct {
		Count int `yaml:"count"`
	} `yaml:"workers"`

	Storage struct {
		TempDir   string `yaml:"temp_dir"`
		JournalDB string `yaml:"journal_db"`
	} `yaml:"storage"`

	Cleanup struct {
		IntervalMinutes int `yaml:"interval_minutes"`
		MaxAgeHours     int `yaml:"max_age_hours"`
	} `yaml:"cleanup"`

	GoogleDrive struct {
		CredentialsFile string `yaml:"credentials_file"`
		TokenFile       string `yaml:"token_file"`
		FolderName      string `yaml:"folder_name"`
	} `yaml:"google_drive"`

	Limits struct {
		MaxFileSizeMB         int `yaml:"max_file_size_mb"`
		FetchTimeoutSeconds   int `yaml:"fetch_timeout_seconds"`
		ExtractTimeoutSeconds int `yaml:"extract_timeout_seconds"`
	} `yaml:"limits"`
}

func main() {
	// Load configuration
	config, err := loadConfig("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Ensure scratch directory exists
	if err := cleanup.EnsureTempDirExists(config.Storage.TempDir); err != nil {
		log.Fatalf("Failed to create temp directory: %v", err)
	}

	// Custom logger setup
	logBuffer := &LogBuffer{
		lines: make([]string, 0, 1000),
	}
	multiWriter := io.MultiWriter(os.Stdout, logBuffer)
	log.SetOutput(multiWriter)

	log.Println("Initializing components...")

	// Supabase store (rows + frame objects)
	store, err := storage.NewStore(storage.Config{
		URL:              config.Supabase.URL,
		Key:              config.Supabase.Key,
		ConnectionString: config.Supabase.ConnectionString,
		Password:         config.Supabase.DBPassword,
		TranscriptTable:  config.Supabase.TranscriptTable,
		FrameTable:       config.Supabase.FrameTable,
		FramesBucket:     config.Supabase.FramesBucket,
	})
	if err != nil {
		log.Fatalf("Failed to initialize Supabase store: %v", err)
	}

	connectCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	if err := store.Connect(connectCtx); err != nil {
		log.Printf("WARNING: direct database connection unavailable, continuing in REST mode: %v", err)
	}
	cancel()
	defer store.Close()

	// Local frame-job journal
	journal, err := storage.NewJournal(config.Storage.JournalDB)
	if err != nil {
		log.Fatalf("Failed to initialize job journal: %v", err)
	}
	defer journal.Close()

	// Google Drive archive (optional - may fail if credentials not set up)
	var archive *storage.DriveArchive
	if _, err := os.Stat(config.GoogleDrive.CredentialsFile); err == nil {
		archive, err = storage.NewDriveArchive(
			config.GoogleDrive.CredentialsFile,
			config.GoogleDrive.TokenFile,
			config.GoogleDrive.FolderName,
		)
		if err != nil {
			log.Printf("WARNING: Google Drive archive not available: %v", err)
			archive = nil
		} else {
			log.Println("Google Drive transcript archive enabled")
		}
	} else {
		log.Println("Google Drive credentials not found - transcript archive disabled")
	}

	// Pipeline components
	fetcher := media.NewFetcher(config.Limits.FetchTimeoutSeconds)
	extractor := media.NewAudioExtractor(config.Storage.TempDir, config.Limits.ExtractTimeoutSeconds)
	sampler := media.NewFrameSampler(config.Storage.TempDir)
	transcriber := transcription.NewTranscriber(
		openAIKey(config),
		config.OpenAI.Model,
		config.OpenAI.Endpoint,
		extractor,
	)

	// Background frame worker pool
	workerPool := queue.NewWorkerPool(
		config.Workers.Count,
		sampler,
		store,
		journal,
		archive,
	)
	workerPool.Start()

	// Coordinator ties the pipeline together
	coordinator := ingest.NewCoordinator(fetcher, transcriber, store, workerPool)

	// Cleanup scheduler
	cleanupScheduler := cleanup.NewScheduler(
		config.Storage.TempDir,
		config.Cleanup.IntervalMinutes,
		config.Cleanup.MaxAgeHours,
	)
	cleanupScheduler.Start()
	defer cleanupScheduler.Stop()

	// Create Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit: config.Limits.MaxFileSizeMB * 1024 * 1024,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))

	// Initialize handlers
	ingestHandler := handlers.NewIngestHandler(coordinator, config.Limits.MaxFileSizeMB)
	jobsHandler := handlers.NewJobsHandler(journal)
	progressHandler := handlers.NewProgressHandler(journal)

	// Routes
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

	app.Post("/ingest", ingestHandler.Handle)
	app.Get("/jobs", jobsHandler.List)
	app.Get("/jobs/:id", jobsHandler.Get)

	// WebSocket route
	app.Get("/ws/jobs", websocket.New(progressHandler.Handle))

	// Get server logs
	app.Get("/logs", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"logs": logBuffer.GetLogs(),
		})
	})

	// Start server
	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	log.Printf("Server starting on %s", addr)
	log.Println("Endpoints:")
	log.Println("   POST /ingest     - Submit videos/images for ingestion")
	log.Println("   GET  /jobs       - List background frame jobs")
	log.Println("   GET  /jobs/:id   - Frame job status")
	log.Println("   GET  /ws/jobs    - WebSocket frame job progress")
	log.Println("   GET  /logs       - View server logs")
	log.Println("   GET  /health     - Health check")

	// Graceful shutdown: stop intake first, then drain the frame pool
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		log.Println("Shutting down gracefully...")
		app.Shutdown()
	}()

	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server failed: %v", err)
	}

	workerPool.Stop()
}

// openAIKey prefers the config value, falling back to the environment
func openAIKey(config *Config) string {
	if config.OpenAI.APIKey != "" {
		return config.OpenAI.APIKey
	}
	return os.Getenv("OPENAI_API_KEY")
}

// LogBuffer captures logs in memory
type LogBuffer struct {
	lines []string
	mu    sync.Mutex
}

func (lb *LogBuffer) Write(p []byte) (n int, err error) {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	lb.lines = append(lb.lines, string(p))

	// Keep last 1000 lines
	if len(lb.lines) > 1000 {
		lb.lines = lb.lines[len(lb.lines)-1000:]
	}

	return len(p), nil
}

func (lb *LogBuffer) GetLogs() []string {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	logs := make([]string, len(lb.lines))
	copy(logs, lb.lines)
	return logs
}

// loadConfig loads configuration from YAML file
func loadConfig(path string) (*Config, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := yaml.Unmarshal(file, &config); err != nil {
		return nil, err
	}

	return &config, nil
}
