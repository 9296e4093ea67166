// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"gatekeeper/internal/models"
	"gatekeeper/internal/service"
	"gatekeeper/internal/token"

	"github.com/gofiber/fiber/v2"
)

// RedeemCredential handles POST /api/gate/redemptions
// @Summary Redeem a scanned credential at the checkpoint
// @Description Admits at most once per credential. The response distinguishes
// @Description only ADMITTED, DENIED_INVALID and DENIED_ALREADY_USED.
// @Tags gate
// @Accept json
// @Produce json
// @Param request body object{qr_payload=string} true "Scanned QR payload, or pass_id+token"
// @Success 200 {object} object{outcome=string}
// @Failure 400 {object} object{error=string}
// @Router /gate/redemptions [post]
// @Security BearerAuth
func (s *Server) RedeemCredential(c *fiber.Ctx) error {
	var req struct {
		QRPayload string `json:"qr_payload"`
		PassID    string `json:"pass_id"`
		Token     string `json:"token"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	var ref token.RedemptionRef
	switch {
	case req.QRPayload != "":
		parsed, ok := token.ParseQRPayload(req.QRPayload)
		if !ok {
			// A garbled scan is indistinguishable from a forged one.
			return c.JSON(fiber.Map{"outcome": service.OutcomeDeniedInvalid})
		}
		ref = parsed
	case req.PassID != "" && req.Token != "":
		ref = token.RedemptionRef{PassID: req.PassID, Token: req.Token}
	default:
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("qr_payload or pass_id+token is required"))
	}

	result, err := s.passService.Redeem(c.Context(), ref)
	if err != nil {
		return respondAppError(c, err)
	}

	resp := fiber.Map{"outcome": result.Outcome}
	if result.Outcome == service.OutcomeAdmitted {
		// Audit display for the gate operator. Denials carry nothing extra.
		resp["pass"] = result.Pass
	}
	return c.JSON(resp)
}
