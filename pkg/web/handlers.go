package web

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/posekit/posecam/pkg/session"
)

// transitionError maps state machine misuse to 409 and everything else to
// 500, with the error text in the body either way.
func transitionError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	if errors.Is(err, session.ErrInvalidTransition) {
		status = fiber.StatusConflict
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

func (s *Server) handleStart(c *fiber.Ctx) error {
	annotator := c.Query("annotator")
	if err := s.ctrl.Start(annotator); err != nil {
		return transitionError(c, err)
	}
	return c.JSON(s.ctrl.Status())
}

func (s *Server) handleStop(c *fiber.Ctx) error {
	if err := s.ctrl.Stop(); err != nil {
		return transitionError(c, err)
	}
	return c.JSON(s.ctrl.Status())
}

// StartRecordingRequest is the body for POST /api/recording/start.
type StartRecordingRequest struct {
	Path string `json:"path"`
}

func (s *Server) handleStartRecording(c *fiber.Ctx) error {
	var req StartRecordingRequest
	if err := c.BodyParser(&req); err != nil || req.Path == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "path is required"})
	}

	job, err := s.ctrl.StartRecording(req.Path)
	if err != nil {
		return transitionError(c, err)
	}
	return c.JSON(fiber.Map{
		"job_id": job.ID.String(),
		"path":   job.Path,
	})
}

func (s *Server) handleStopRecording(c *fiber.Ctx) error {
	job, err := s.ctrl.StopRecording()
	if err != nil {
		return transitionError(c, err)
	}

	resp := fiber.Map{"state": s.ctrl.State().String()}
	if job != nil {
		resp["job_id"] = job.ID.String()
		resp["frames"] = job.Frames()
		resp["actual_fps"] = job.ActualFPS()
		resp["write_failed"] = job.WriteFailed()
	}
	return c.JSON(resp)
}

// ExportRequest is the body for POST /api/export: re-trigger the
// conversion+upload for an existing recording.
type ExportRequest struct {
	Path string `json:"path"`
}

func (s *Server) handleExport(c *fiber.Ctx) error {
	var req ExportRequest
	if err := c.BodyParser(&req); err != nil || req.Path == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "path is required"})
	}

	if err := s.ctrl.ExportRecording(req.Path); err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}
	return c.SendStatus(fiber.StatusAccepted)
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.ctrl.Status())
}

// handleFrame serves the newest annotated frame, or 204 before the first
// frame of a session arrives.
func (s *Server) handleFrame(c *fiber.Ctx) error {
	af, ok := s.ctrl.LatestFrame()
	if !ok {
		return c.SendStatus(fiber.StatusNoContent)
	}

	c.Set("Content-Type", "image/jpeg")
	c.Set("X-Frame-Seq", strconv.FormatUint(af.Seq, 10))
	c.Set("X-Frame-Degraded", strconv.FormatBool(af.Degraded))
	return c.Send(af.Data)
}
