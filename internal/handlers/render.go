package handlers

import (
	"context"
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/Karmadibsa/VibeSlicer/internal/pipeline"
	"github.com/Karmadibsa/VibeSlicer/internal/types"
)

// RenderHandler triggers renders. The render itself runs in the background;
// completion and failure arrive over the progress websocket.
type RenderHandler struct {
	sessions *pipeline.Sessions
	orch     *pipeline.Orchestrator
	notify   pipeline.Notifier
}

// NewRenderHandler creates a new render handler.
func NewRenderHandler(sessions *pipeline.Sessions, orch *pipeline.Orchestrator, notify pipeline.Notifier) *RenderHandler {
	return &RenderHandler{sessions: sessions, orch: orch, notify: notify}
}

// Render starts composing the project's active segments into the output
// file and returns immediately.
func (h *RenderHandler) Render(c *fiber.Ctx) error {
	sess := h.sessions.Get(c.Params("id"))
	if sess == nil {
		return c.Status(404).JSON(fiber.Map{
			"error": "No editing session for project",
			"code":  "ERR_NOT_FOUND",
		})
	}

	var req struct {
		MusicPath  string `json:"music_path"`
		IntroTitle string `json:"intro_title"`
		OutputPath string `json:"output_path"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "Invalid request body", "code": "ERR_BAD_REQUEST"})
		}
	}

	go func() {
		h.emit(pipeline.Event{JobID: sess.ProjectID, Stage: types.StageRender, Status: types.StatusProcessing})
		res, err := h.orch.Render(context.Background(), sess, pipeline.RenderOptions{
			MusicPath:  req.MusicPath,
			IntroTitle: req.IntroTitle,
			OutputPath: req.OutputPath,
		})
		if err != nil {
			log.Printf("Render failed for project %s: %v", sess.ProjectID, err)
			h.emit(pipeline.Event{JobID: sess.ProjectID, Stage: types.StageRender,
				Status: types.StatusFailed, Message: err.Error()})
			return
		}
		log.Printf("Render complete for project %s: %s (%.1fs, %d cues)",
			sess.ProjectID, res.OutputPath, res.DurationSeconds, res.CueCount)
		h.emit(pipeline.Event{JobID: sess.ProjectID, Stage: types.StageRender,
			Status: types.StatusCompleted, Message: res.OutputPath})
	}()

	return c.Status(202).JSON(fiber.Map{
		"project_id": sess.ProjectID,
		"status":     "rendering",
	})
}

func (h *RenderHandler) emit(ev pipeline.Event) {
	if h.notify != nil {
		h.notify(ev)
	}
}
