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

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"github.com/joho/godotenv"

	"github.com/Karmadibsa/VibeSlicer/internal/cleanup"
	"github.com/Karmadibsa/VibeSlicer/internal/config"
	"github.com/Karmadibsa/VibeSlicer/internal/handlers"
	"github.com/Karmadibsa/VibeSlicer/internal/media"
	"github.com/Karmadibsa/VibeSlicer/internal/pipeline"
	"github.com/Karmadibsa/VibeSlicer/internal/storage"
	"github.com/Karmadibsa/VibeSlicer/internal/transcription"
)

func main() {
	// .env is optional; real env vars win either way.
	godotenv.Load()

	cfg, err := config.LoadOrDefault("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Custom logger setup
	logBuffer := &LogBuffer{
		lines: make([]string, 0, 1000),
	}
	multiWriter := io.MultiWriter(os.Stdout, logBuffer)
	log.SetOutput(multiWriter)

	log.Println("Initializing components...")

	scratch, err := storage.NewScratch(cfg.Storage.ScratchDir)
	if err != nil {
		log.Fatalf("Failed to create scratch directory: %v", err)
	}
	uploadDir, err := scratch.ProjectDir("uploads")
	if err != nil {
		log.Fatalf("Failed to create upload directory: %v", err)
	}
	if err := os.MkdirAll(cfg.Storage.OutputDir, 0755); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}

	runner := media.NewRunner(cfg.FFmpeg.FFmpegBin, cfg.FFmpeg.FFprobeBin)

	backend := buildBackend(cfg)

	var drive *storage.DriveUploader
	if _, err := os.Stat(cfg.GoogleDrive.CredentialsFile); err == nil {
		drive, err = storage.NewDriveUploader(
			cfg.GoogleDrive.CredentialsFile,
			cfg.GoogleDrive.TokenFile,
			cfg.GoogleDrive.FolderName,
		)
		if err != nil {
			log.Printf("WARNING: Google Drive not available: %v", err)
			log.Println("Renders will only be saved locally")
			drive = nil
		} else {
			log.Println("Google Drive integration enabled")
		}
	} else {
		log.Println("Google Drive credentials not found - saving locally only")
	}

	store, err := storage.NewProjectStore(cfg.Storage.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	hub := handlers.NewProgressHub()
	sessions := pipeline.NewSessions()
	orch := pipeline.NewOrchestrator(cfg, runner, scratch, store, drive, backend)

	workerPool := pipeline.NewWorkerPool(cfg.Workers.Count, orch, sessions, hub.Notify)
	workerPool.Start()

	restoreSessions(orch, store, sessions)

	cleanupScheduler := cleanup.NewScheduler(
		cfg.Storage.ScratchDir,
		cfg.Cleanup.IntervalMinutes,
		cfg.Cleanup.MaxAgeHours,
	)
	cleanupScheduler.Start()
	defer cleanupScheduler.Stop()

	app := fiber.New(fiber.Config{
		BodyLimit: cfg.Limits.MaxFileSizeMB * 1024 * 1024,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))

	projectHandler := handlers.NewProjectHandler(workerPool, sessions, uploadDir, cfg.Limits.MaxFileSizeMB)
	editHandler := handlers.NewEditHandler(sessions, orch)
	renderHandler := handlers.NewRenderHandler(sessions, orch, hub.Notify)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

	app.Post("/projects", projectHandler.Upload)
	app.Get("/projects", projectHandler.List)
	app.Get("/projects/:id/status", projectHandler.Status)
	app.Post("/projects/:id/cancel", projectHandler.Cancel)
	app.Get("/projects/:id/segments", projectHandler.Segments)

	app.Post("/projects/:id/segments/toggle-range", editHandler.ToggleRange)
	app.Post("/projects/:id/segments/merge", editHandler.Merge)
	app.Post("/projects/:id/segments/:segID/toggle", editHandler.Toggle)
	app.Post("/projects/:id/segments/:segID/split", editHandler.Split)
	app.Put("/projects/:id/segments/:segID/text", editHandler.SetText)

	app.Post("/projects/:id/render", renderHandler.Render)

	// WebSocket route
	app.Get("/ws/progress", websocket.New(hub.Handle))

	app.Get("/logs", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"logs": logBuffer.GetLogs(),
		})
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("Server starting on %s", addr)
	log.Println("Endpoints:")
	log.Println("   POST /projects                    - Upload source media")
	log.Println("   GET  /projects                    - List editing sessions")
	log.Println("   GET  /projects/:id/status         - Preparation status")
	log.Println("   GET  /projects/:id/segments       - Timeline snapshot")
	log.Println("   POST /projects/:id/render         - Compose the output file")
	log.Println("   GET  /ws/progress                 - Pipeline progress stream")
	log.Println("   GET  /logs                        - View server logs")
	log.Println("   GET  /health                      - Health check")

	// Graceful shutdown
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
}

// buildBackend selects the transcription backend from config and env.
func buildBackend(cfg *config.Config) transcription.Backend {
	switch cfg.Transcription.Backend {
	case "openai":
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			log.Println("WARNING: OPENAI_API_KEY not set - transcription disabled")
			return nil
		}
		log.Println("Transcription backend: OpenAI API")
		return transcription.NewOpenAIBackend(apiKey, cfg.Transcription.Model)
	case "none":
		log.Println("Transcription disabled")
		return nil
	default:
		log.Printf("Transcription backend: local whisper (model %s)", cfg.Transcription.Model)
		return transcription.NewWhisperTranscriber(cfg.Transcription.Model, cfg.Transcription.Python, os.TempDir())
	}
}

// restoreSessions revives editing sessions persisted by a previous run.
// Projects whose canonical media was cleaned up are skipped.
func restoreSessions(orch *pipeline.Orchestrator, store *storage.ProjectStore, sessions *pipeline.Sessions) {
	projects, err := store.ListProjects(50)
	if err != nil {
		log.Printf("Failed to list persisted projects: %v", err)
		return
	}
	restored := 0
	for _, p := range projects {
		sess, err := orch.Restore(context.Background(), p.ID)
		if err != nil {
			continue
		}
		sessions.Put(sess)
		restored++
	}
	if restored > 0 {
		log.Printf("Restored %d editing session(s)", restored)
	}
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
