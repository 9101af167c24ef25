package web

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/carl0967/vrm-chat-space/pkg/behavior"
	"github.com/carl0967/vrm-chat-space/pkg/hub"
)

// actionIDs is the REST-triggerable action surface.
var actionIDs = []string{
	behavior.ActionComeHere,
	behavior.ActionComeHereFront,
	behavior.ActionIdle,
	behavior.ActionLookAt,
	behavior.ActionLookAtNeck,
	behavior.ActionGesture,
	behavior.ActionBlink,
}

// handleState returns the current engine snapshot.
func (s *Server) handleState(c *fiber.Ctx) error {
	return c.JSON(s.engine.State())
}

// handleStatusLog returns the buffered status lines.
func (s *Server) handleStatusLog(c *fiber.Ctx) error {
	s.linesMu.RLock()
	defer s.linesMu.RUnlock()
	return c.JSON(fiber.Map{"lines": s.lines})
}

// handleListActions lists the triggerable action ids.
func (s *Server) handleListActions(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"actions": actionIDs})
}

// handleAction triggers a discrete action.
func (s *Server) handleAction(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := s.engine.ExecuteAction(id); err != nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(fiber.Map{"action": id, "accepted": true})
}

type neckRequest struct {
	Degrees float64 `json:"degrees"`
}

// handleNeck sets the manual neck tilt angle. The response carries the
// angle actually applied after clamping.
func (s *Server) handleNeck(c *fiber.Ctx) error {
	var req neckRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "body must be JSON with a degrees field",
		})
	}
	applied := s.engine.ExecuteNeck(req.Degrees)
	return c.JSON(fiber.Map{"requested": req.Degrees, "applied": applied})
}

// handleMode switches the primary behavior mode.
func (s *Server) handleMode(c *fiber.Ctx) error {
	mode := c.Params("mode")
	switch mode {
	case "wander":
		s.engine.StartWander()
	case "idle":
		s.engine.StartIdle()
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "mode must be wander or idle",
		})
	}
	return c.JSON(fiber.Map{"mode": mode})
}

// handleStatusWS subscribes a websocket client to the status stream.
func (s *Server) handleStatusWS(conn *websocket.Conn) {
	client := hub.NewClient(s.statusHub, conn)
	client.Run()
}
