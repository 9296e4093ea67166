package server

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"gatekeeper/internal/models"
	"gatekeeper/internal/service"

	"github.com/gofiber/fiber/v2"
)

func TestRedeemCredentialAdmitsOnce(t *testing.T) {
	t.Parallel()

	db := setupPassHandlerTestDB(t)
	s := newTestServer(t, db)
	student, mentor := seedStudentWithMentor(t, db)
	checkpoint := models.User{Username: "gate", Email: "gate@example.com", Password: "pw", Role: models.RoleCheckpoint}
	if err := db.Create(&checkpoint).Error; err != nil {
		t.Fatalf("create checkpoint: %v", err)
	}

	pass, err := s.passService.Apply(context.Background(), student.ID, "family event")
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if _, err := s.passService.Decide(context.Background(), pass.ID, mentor.ID, service.DecisionApprove); err != nil {
		t.Fatalf("decide: %v", err)
	}
	ref, err := s.passService.RedemptionRefFor(context.Background(), pass.ID, student.ID)
	if err != nil {
		t.Fatalf("credential: %v", err)
	}

	app := fiber.New()
	actAs(app, checkpoint.ID, models.RoleCheckpoint)
	app.Post("/gate/redemptions", s.RedeemCredential)

	redeem := func(payload string) (int, string) {
		resp, raw := doJSON(t, app, http.MethodPost, "/gate/redemptions", fiber.Map{"qr_payload": payload})
		var body struct {
			Outcome string `json:"outcome"`
		}
		if err := json.Unmarshal(raw, &body); err != nil {
			t.Fatalf("unmarshal outcome: %v", err)
		}
		return resp.StatusCode, body.Outcome
	}

	status, outcome := redeem(ref.QRPayload())
	if status != http.StatusOK || outcome != string(service.OutcomeAdmitted) {
		t.Fatalf("first scan: status %d outcome %s", status, outcome)
	}

	// The same QR image scanned again must deny, stably.
	for i := 0; i < 3; i++ {
		status, outcome = redeem(ref.QRPayload())
		if status != http.StatusOK || outcome != string(service.OutcomeDeniedUsed) {
			t.Fatalf("rescan %d: status %d outcome %s", i, status, outcome)
		}
	}

	var reloaded models.GatePass
	if err := db.First(&reloaded, "id = ?", pass.ID).Error; err != nil {
		t.Fatalf("reload pass: %v", err)
	}
	if reloaded.Status != models.PassStatusUtilized || reloaded.TokenActive {
		t.Fatalf("expected retired UTILIZED pass, got %+v", reloaded)
	}
	if err := reloaded.CheckInvariants(); err != nil {
		t.Fatalf("invariants violated: %v", err)
	}
}

func TestRedeemCredentialDeniesGarbage(t *testing.T) {
	t.Parallel()

	db := setupPassHandlerTestDB(t)
	s := newTestServer(t, db)
	checkpoint := models.User{Username: "gate2", Email: "gate2@example.com", Password: "pw", Role: models.RoleCheckpoint}
	if err := db.Create(&checkpoint).Error; err != nil {
		t.Fatalf("create checkpoint: %v", err)
	}

	app := fiber.New()
	actAs(app, checkpoint.ID, models.RoleCheckpoint)
	app.Post("/gate/redemptions", s.RedeemCredential)

	cases := []fiber.Map{
		{"qr_payload": "not-a-credential"},
		{"qr_payload": "some-uuid.lowertoken"},
		{"pass_id": "11111111-2222-3333-4444-555555555555", "token": "AAAABBBB00"},
	}
	for _, body := range cases {
		resp, raw := doJSON(t, app, http.MethodPost, "/gate/redemptions", body)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", resp.StatusCode, raw)
		}
		var out struct {
			Outcome string `json:"outcome"`
		}
		if err := json.Unmarshal(raw, &out); err != nil {
			t.Fatalf("unmarshal outcome: %v", err)
		}
		if out.Outcome != string(service.OutcomeDeniedInvalid) {
			t.Fatalf("expected DENIED_INVALID for %v, got %s", body, out.Outcome)
		}
	}

	// A request carrying neither form is a client error, not a denial.
	resp, _ := doJSON(t, app, http.MethodPost, "/gate/redemptions", fiber.Map{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty body, got %d", resp.StatusCode)
	}
}
