// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"gatekeeper/internal/models"
	"gatekeeper/internal/repository"
	"gatekeeper/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ApplyForPass handles POST /api/passes
// @Summary Apply for a gate pass
// @Description Create a PENDING pass routed to the student's assigned mentor
// @Tags passes
// @Accept json
// @Produce json
// @Param request body object{reason=string} true "Application"
// @Success 201 {object} models.GatePass
// @Failure 400 {object} object{error=string}
// @Router /passes [post]
// @Security BearerAuth
func (s *Server) ApplyForPass(c *fiber.Ctx) error {
	var req struct {
		Reason string `json:"reason"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	pass, err := s.passService.Apply(c.Context(), currentUserID(c), req.Reason)
	if err != nil {
		return respondAppError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(pass)
}

// ListPasses handles GET /api/passes
// @Summary List gate passes
// @Description Students see their own passes, mentors their approval queue, admins everything
// @Tags passes
// @Produce json
// @Param status query string false "Filter by status"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {array} models.GatePass
// @Failure 403 {object} object{error=string}
// @Router /passes [get]
// @Security BearerAuth
func (s *Server) ListPasses(c *fiber.Ctx) error {
	p := parsePagination(c, 20)
	filter := repository.PassFilter{
		Limit:  p.Limit,
		Offset: p.Offset,
	}

	if status := c.Query("status"); status != "" {
		st := models.PassStatus(status)
		if !st.Known() {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Unknown pass status"))
		}
		filter.Status = st
	}

	// Visibility is scoped by role, never by query parameters alone.
	switch currentRole(c) {
	case models.RoleStudent:
		filter.StudentID = currentUserID(c)
	case models.RoleMentor:
		filter.MentorID = currentUserID(c)
	case models.RoleAdmin:
		if id := c.QueryInt("student_id", 0); id > 0 {
			filter.StudentID = uint(id)
		}
		if id := c.QueryInt("mentor_id", 0); id > 0 {
			filter.MentorID = uint(id)
		}
	default:
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewUnauthorizedError("Insufficient permissions"))
	}

	passes, err := s.passRepo.List(c.Context(), filter)
	if err != nil {
		return respondAppError(c, err)
	}

	return c.JSON(fiber.Map{
		"passes": passes,
		"limit":  p.Limit,
		"offset": p.Offset,
	})
}

// GetPass handles GET /api/passes/:id
// @Summary Get a single gate pass
// @Tags passes
// @Produce json
// @Param id path string true "Pass ID"
// @Success 200 {object} models.GatePass
// @Failure 403 {object} object{error=string}
// @Failure 404 {object} object{error=string}
// @Router /passes/{id} [get]
// @Security BearerAuth
func (s *Server) GetPass(c *fiber.Ctx) error {
	passID, err := s.parsePassID(c)
	if err != nil {
		return nil
	}

	pass, err := s.passRepo.GetByID(c.Context(), passID)
	if err != nil {
		return respondAppError(c, err)
	}

	// Only the parties to the pass (and admins) may read it.
	userID := currentUserID(c)
	switch currentRole(c) {
	case models.RoleAdmin:
	case models.RoleStudent:
		if pass.StudentID != userID {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewUnauthorizedError("Pass belongs to another student"))
		}
	case models.RoleMentor:
		if pass.MentorID != userID {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewUnauthorizedError("Pass is assigned to another mentor"))
		}
	default:
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewUnauthorizedError("Insufficient permissions"))
	}

	return c.JSON(pass)
}

// DecidePass handles POST /api/passes/:id/decision
// @Summary Approve or reject a pending pass
// @Description Only the assigned mentor can decide; the decision is final
// @Tags passes
// @Accept json
// @Produce json
// @Param id path string true "Pass ID"
// @Param request body object{decision=string} true "APPROVE or REJECT"
// @Success 200 {object} models.GatePass
// @Failure 400 {object} object{error=string}
// @Failure 403 {object} object{error=string}
// @Failure 409 {object} object{error=string}
// @Router /passes/{id}/decision [post]
// @Security BearerAuth
func (s *Server) DecidePass(c *fiber.Ctx) error {
	passID, err := s.parsePassID(c)
	if err != nil {
		return nil
	}

	var req struct {
		Decision service.Decision `json:"decision"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	pass, err := s.passService.Decide(c.Context(), passID, currentUserID(c), req.Decision)
	if err != nil {
		return respondAppError(c, err)
	}

	return c.JSON(pass)
}

// GetPassCredential handles GET /api/passes/:id/credential
// @Summary Fetch the one-time credential for an approved pass
// @Description Owner-only. Returns the QR payload the checkpoint scans.
// @Tags passes
// @Produce json
// @Param id path string true "Pass ID"
// @Success 200 {object} object{pass_id=string,token=string,qr_payload=string}
// @Failure 403 {object} object{error=string}
// @Failure 409 {object} object{error=string}
// @Router /passes/{id}/credential [get]
// @Security BearerAuth
func (s *Server) GetPassCredential(c *fiber.Ctx) error {
	passID, err := s.parsePassID(c)
	if err != nil {
		return nil
	}

	ref, err := s.passService.RedemptionRefFor(c.Context(), passID, currentUserID(c))
	if err != nil {
		return respondAppError(c, err)
	}

	return c.JSON(fiber.Map{
		"pass_id":    ref.PassID,
		"token":      ref.Token,
		"qr_payload": ref.QRPayload(),
	})
}
