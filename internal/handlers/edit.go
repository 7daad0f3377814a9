package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/Karmadibsa/VibeSlicer/internal/pipeline"
	"github.com/Karmadibsa/VibeSlicer/internal/types"
)

// EditHandler translates HTTP requests into timeline transactions. All
// validation lives in the timeline itself; this layer only maps errors to
// status codes and persists the snapshot after each successful edit.
type EditHandler struct {
	sessions *pipeline.Sessions
	orch     *pipeline.Orchestrator
}

// NewEditHandler creates a new edit handler.
func NewEditHandler(sessions *pipeline.Sessions, orch *pipeline.Orchestrator) *EditHandler {
	return &EditHandler{sessions: sessions, orch: orch}
}

func (h *EditHandler) session(c *fiber.Ctx) (*pipeline.Session, error) {
	sess := h.sessions.Get(c.Params("id"))
	if sess == nil {
		return nil, c.Status(404).JSON(fiber.Map{
			"error": "No editing session for project",
			"code":  "ERR_NOT_FOUND",
		})
	}
	return sess, nil
}

// editError maps timeline validation errors to HTTP responses.
func editError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, types.ErrUnknownSegment):
		return c.Status(404).JSON(fiber.Map{"error": err.Error(), "code": "ERR_UNKNOWN_SEGMENT"})
	case errors.Is(err, types.ErrInvalidSplitPoint),
		errors.Is(err, types.ErrInvalidRange),
		errors.Is(err, types.ErrNotAdjacent):
		return c.Status(400).JSON(fiber.Map{"error": err.Error(), "code": "ERR_INVALID_EDIT"})
	default:
		return c.Status(500).JSON(fiber.Map{"error": err.Error(), "code": "ERR_INTERNAL"})
	}
}

// segments responds with the fresh snapshot after a successful transaction.
func (h *EditHandler) segments(c *fiber.Ctx, sess *pipeline.Session) error {
	h.orch.SaveSnapshot(sess)
	return c.JSON(fiber.Map{"segments": sess.Timeline.Segments()})
}

// Toggle flips one segment's active flag.
func (h *EditHandler) Toggle(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if sess == nil {
		return err
	}
	if err := sess.Timeline.Toggle(c.Params("segID")); err != nil {
		return editError(c, err)
	}
	return h.segments(c, sess)
}

// ToggleRange flips every segment between two ids inclusive.
func (h *EditHandler) ToggleRange(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if sess == nil {
		return err
	}
	var req struct {
		From string `json:"from"`
		To   string `json:"to"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid request body", "code": "ERR_BAD_REQUEST"})
	}
	if err := sess.Timeline.ToggleRange(req.From, req.To); err != nil {
		return editError(c, err)
	}
	return h.segments(c, sess)
}

// Split divides a segment at a source-time instant.
func (h *EditHandler) Split(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if sess == nil {
		return err
	}
	var req struct {
		AtSeconds float64 `json:"at_seconds"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid request body", "code": "ERR_BAD_REQUEST"})
	}
	newID, err := sess.Timeline.Split(c.Params("segID"), req.AtSeconds)
	if err != nil {
		return editError(c, err)
	}
	h.orch.SaveSnapshot(sess)
	return c.JSON(fiber.Map{
		"new_segment_id": newID,
		"segments":       sess.Timeline.Segments(),
	})
}

// SetText replaces a speech segment's transcribed text.
func (h *EditHandler) SetText(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if sess == nil {
		return err
	}
	var req struct {
		Text string `json:"text"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid request body", "code": "ERR_BAD_REQUEST"})
	}
	if err := sess.Timeline.SetText(c.Params("segID"), req.Text); err != nil {
		return editError(c, err)
	}
	return h.segments(c, sess)
}

// Merge combines two adjacent segments of the same kind.
func (h *EditHandler) Merge(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if sess == nil {
		return err
	}
	var req struct {
		Left  string `json:"left"`
		Right string `json:"right"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid request body", "code": "ERR_BAD_REQUEST"})
	}
	if err := sess.Timeline.Merge(req.Left, req.Right); err != nil {
		return editError(c, err)
	}
	return h.segments(c, sess)
}
