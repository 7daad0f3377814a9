package handlers

import (
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/Karmadibsa/VibeSlicer/internal/pipeline"
)

// supportedExtensions are the container formats accepted for upload. The
// sanitize stage converts all of them to the canonical intermediate.
var supportedExtensions = map[string]bool{
	".mp4": true, ".mov": true, ".mkv": true, ".avi": true, ".webm": true,
	".mp3": true, ".wav": true, ".m4a": true, ".flac": true, ".ogg": true,
}

// ProjectHandler handles project creation and inspection.
type ProjectHandler struct {
	pool      *pipeline.WorkerPool
	sessions  *pipeline.Sessions
	uploadDir string
	maxSizeMB int
}

// NewProjectHandler creates a new project handler.
func NewProjectHandler(pool *pipeline.WorkerPool, sessions *pipeline.Sessions, uploadDir string, maxSizeMB int) *ProjectHandler {
	return &ProjectHandler{
		pool:      pool,
		sessions:  sessions,
		uploadDir: uploadDir,
		maxSizeMB: maxSizeMB,
	}
}

// Upload accepts a source file and enqueues the preparation pipeline.
func (h *ProjectHandler) Upload(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": "No file uploaded",
			"code":  "ERR_NO_FILE",
		})
	}

	name := c.FormValue("name")
	if name == "" {
		name = strings.TrimSuffix(file.Filename, filepath.Ext(file.Filename))
	}

	maxSize := int64(h.maxSizeMB) * 1024 * 1024
	if file.Size > maxSize {
		return c.Status(400).JSON(fiber.Map{
			"error": fmt.Sprintf("File too large (max %dMB)", h.maxSizeMB),
			"code":  "ERR_FILE_TOO_LARGE",
		})
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !supportedExtensions[ext] {
		return c.Status(400).JSON(fiber.Map{
			"error": "Unsupported media format",
			"code":  "ERR_INVALID_FORMAT",
		})
	}

	projectID := uuid.New().String()
	srcPath := filepath.Join(h.uploadDir, fmt.Sprintf("%s%s", projectID, ext))

	if err := c.SaveFile(file, srcPath); err != nil {
		log.Printf("Failed to save uploaded file: %v", err)
		return c.Status(500).JSON(fiber.Map{
			"error": "Failed to save file",
			"code":  "ERR_SAVE_FAILED",
		})
	}

	h.pool.Enqueue(pipeline.NewJob(projectID, name, srcPath))

	return c.JSON(fiber.Map{
		"project_id": projectID,
		"status":     "queued",
		"message":    "File uploaded, preparation started",
	})
}

// Status reports the preparation state of one project.
func (h *ProjectHandler) Status(c *fiber.Ctx) error {
	id := c.Params("id")
	job := h.pool.Get(id)
	if job == nil {
		return c.Status(404).JSON(fiber.Map{
			"error": "Unknown project",
			"code":  "ERR_NOT_FOUND",
		})
	}
	status, jobErr := job.Status()
	resp := fiber.Map{"project_id": id, "status": status}
	if jobErr != nil {
		resp["error"] = jobErr.Error()
	}
	return c.JSON(resp)
}

// List returns the project ids with live editing sessions.
func (h *ProjectHandler) List(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"projects": h.sessions.IDs()})
}

// Segments returns the ordered segment snapshot of a project's timeline.
func (h *ProjectHandler) Segments(c *fiber.Ctx) error {
	sess := h.sessions.Get(c.Params("id"))
	if sess == nil {
		return c.Status(404).JSON(fiber.Map{
			"error": "No editing session for project",
			"code":  "ERR_NOT_FOUND",
		})
	}
	return c.JSON(fiber.Map{
		"project_id":      sess.ProjectID,
		"frame_rate":      sess.Media.FrameRate,
		"duration_frames": sess.Media.DurationFrames,
		"segments":        sess.Timeline.Segments(),
	})
}

// Cancel requests cancellation of a running preparation job.
func (h *ProjectHandler) Cancel(c *fiber.Ctx) error {
	id := c.Params("id")
	if !h.pool.Cancel(id) {
		return c.Status(404).JSON(fiber.Map{
			"error": "Unknown project",
			"code":  "ERR_NOT_FOUND",
		})
	}
	return c.JSON(fiber.Map{"project_id": id, "status": "cancelling"})
}
