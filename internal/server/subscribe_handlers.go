package server

import (
	"inkwell/internal/service"

	"github.com/gofiber/fiber/v2"
)

type subscribeRequest struct {
	Email string `json:"email" form:"email"`
}

// Subscribe handles POST /api/subscribe
// @Summary Subscribe to channel announcements
// @Description Records the email and sends a confirmation. Failures are reported in the body with HTTP 200.
// @Tags subscribe
// @Accept x-www-form-urlencoded,json
// @Produce json
// @Param email formData string true "Email address"
// @Success 200 {object} object{status=string,message=string}
// @Router /subscribe [post]
func (s *Server) Subscribe(c *fiber.Ctx) error {
	var req subscribeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.JSON(fiber.Map{"status": "error", "message": "Invalid request body"})
	}

	if _, err := s.subscriptionService.Subscribe(c.UserContext(), req.Email); err != nil {
		return c.JSON(fiber.Map{"status": "error", "message": errorMessage(err)})
	}

	return c.JSON(fiber.Map{
		"status":  "success",
		"message": service.SubscribeSuccessMessage,
	})
}
