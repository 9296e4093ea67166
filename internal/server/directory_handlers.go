// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"gatekeeper/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetMyProfile handles GET /api/users/me
// @Summary Get the authenticated user's profile
// @Tags users
// @Produce json
// @Success 200 {object} models.User
// @Failure 404 {object} object{error=string}
// @Router /users/me [get]
// @Security BearerAuth
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	user, err := s.userRepo.GetByID(c.Context(), currentUserID(c))
	if err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(user)
}

// ListUsers handles GET /api/users
// @Summary List users, optionally filtered by role
// @Tags users
// @Produce json
// @Param role query string false "Filter by role"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {array} models.User
// @Failure 400 {object} object{error=string}
// @Router /users [get]
// @Security BearerAuth
func (s *Server) ListUsers(c *fiber.Ctx) error {
	p := parsePagination(c, 20)

	role := models.Role(c.Query("role"))
	if role != "" && !role.Valid() {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Unknown role"))
	}

	users, err := s.userRepo.List(c.Context(), role, p.Limit, p.Offset)
	if err != nil {
		return respondAppError(c, err)
	}

	return c.JSON(fiber.Map{
		"users":  users,
		"limit":  p.Limit,
		"offset": p.Offset,
	})
}

// AssignMentor handles PUT /api/users/:id/mentor
// @Summary Assign an approver to a student
// @Description Directory maintenance; only admins may change assignments
// @Tags users
// @Accept json
// @Produce json
// @Param id path int true "Student user ID"
// @Param request body object{mentor_id=int} true "Mentor assignment"
// @Success 200 {object} object{message=string}
// @Failure 400 {object} object{error=string}
// @Failure 404 {object} object{error=string}
// @Router /users/{id}/mentor [put]
// @Security BearerAuth
func (s *Server) AssignMentor(c *fiber.Ctx) error {
	studentID, err := s.parseUserID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		MentorID uint `json:"mentor_id"`
	}
	if err := c.BodyParser(&req); err != nil || req.MentorID == 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("mentor_id is required"))
	}

	// The assignee must actually hold the mentor role.
	mentor, err := s.userRepo.GetByID(c.Context(), req.MentorID)
	if err != nil {
		return respondAppError(c, err)
	}
	if mentor.Role != models.RoleMentor {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Assigned user is not a mentor"))
	}

	if err := s.userRepo.AssignMentor(c.Context(), studentID, req.MentorID); err != nil {
		return respondAppError(c, err)
	}

	return c.JSON(fiber.Map{
		"message":   "Mentor assigned",
		"mentor_id": req.MentorID,
	})
}
