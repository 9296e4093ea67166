package server

import (
	"encoding/json"
	"net/http"
	"testing"

	"gatekeeper/internal/config"
	"gatekeeper/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

func newAuthTestServer(t *testing.T) *Server {
	t.Helper()
	s := newTestServer(t, setupPassHandlerTestDB(t))
	s.config = &config.Config{JWTSecret: "unit-test-secret-not-for-production"}
	return s
}

func TestSignupLoginRoundTrip(t *testing.T) {
	t.Parallel()

	s := newAuthTestServer(t)
	app := fiber.New()
	app.Post("/auth/signup", s.Signup)
	app.Post("/auth/login", s.Login)

	resp, raw := doJSON(t, app, http.MethodPost, "/auth/signup", fiber.Map{
		"username": "freshstudent",
		"email":    "fresh@example.com",
		"password": "Sup3r-Secure-Pass!",
		"role":     "student",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.StatusCode, raw)
	}

	var signup struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}
	if err := json.Unmarshal(raw, &signup); err != nil {
		t.Fatalf("unmarshal signup: %v", err)
	}
	if signup.User.Role != models.RoleStudent {
		t.Fatalf("expected student role, got %s", signup.User.Role)
	}
	if signup.Token == "" {
		t.Fatal("expected a session token")
	}

	// Role rides in the token so middleware can authorize without a DB hit.
	parsed, err := jwt.Parse(signup.Token, func(tok *jwt.Token) (any, error) {
		return []byte(s.config.JWTSecret), nil
	})
	if err != nil || !parsed.Valid {
		t.Fatalf("issued token does not verify: %v", err)
	}
	claims := parsed.Claims.(jwt.MapClaims)
	if claims["role"] != "student" {
		t.Fatalf("expected role claim, got %v", claims["role"])
	}

	// The password hash never leaves the server.
	if signup.User.Password != "" {
		t.Fatal("password leaked in signup response")
	}

	resp, raw = doJSON(t, app, http.MethodPost, "/auth/login", fiber.Map{
		"email":    "fresh@example.com",
		"password": "Sup3r-Secure-Pass!",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 login, got %d: %s", resp.StatusCode, raw)
	}

	resp, _ = doJSON(t, app, http.MethodPost, "/auth/login", fiber.Map{
		"email":    "fresh@example.com",
		"password": "wrong-password-entirely",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad password, got %d", resp.StatusCode)
	}
}

func TestSignupRejectsAdminRole(t *testing.T) {
	t.Parallel()

	s := newAuthTestServer(t)
	app := fiber.New()
	app.Post("/auth/signup", s.Signup)

	for _, role := range []string{"admin", "superuser", ""} {
		resp, raw := doJSON(t, app, http.MethodPost, "/auth/signup", fiber.Map{
			"username": "wannabe",
			"email":    "wannabe@example.com",
			"password": "Sup3r-Secure-Pass!",
			"role":     role,
		})
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("expected 400 for role %q, got %d: %s", role, resp.StatusCode, raw)
		}
	}
}

func TestSignupDuplicateEmailConflicts(t *testing.T) {
	t.Parallel()

	s := newAuthTestServer(t)
	app := fiber.New()
	app.Post("/auth/signup", s.Signup)

	body := fiber.Map{
		"username": "original",
		"email":    "dup@example.com",
		"password": "Sup3r-Secure-Pass!",
		"role":     "mentor",
	}
	if resp, raw := doJSON(t, app, http.MethodPost, "/auth/signup", body); resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.StatusCode, raw)
	}

	body["username"] = "copycat"
	resp, raw := doJSON(t, app, http.MethodPost, "/auth/signup", body)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", resp.StatusCode, raw)
	}
}
