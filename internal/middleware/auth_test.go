package middleware

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/arcade/backend/pkg/logger"
	"github.com/arcade/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

func newTestTokens(t *testing.T) *utils.TokenManager {
	t.Helper()
	logger.SetOutput(io.Discard)
	tokens, err := utils.NewTokenManager("middleware-test-secret", time.Hour)
	if err != nil {
		t.Fatalf("failed creating token manager: %v", err)
	}
	return tokens
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("failed decoding body: %v body=%q", err, string(raw))
	}
	return body
}

func newProtectedApp(auth *AuthMiddleware) *fiber.App {
	app := fiber.New()
	app.Get("/protected", auth.RequireAuth, func(c *fiber.Ctx) error {
		id, ok := GetCurrentUserID(c)
		if !ok {
			return c.SendStatus(fiber.StatusTeapot)
		}
		return c.JSON(fiber.Map{"userId": id.String(), "logged": logger.GetUserIDFromContext(c) != nil})
	})
	return app
}

func TestRequireAuth(t *testing.T) {
	tokens := newTestTokens(t)
	app := newProtectedApp(NewAuthMiddleware(tokens))

	userID := uuid.New()
	validToken, err := tokens.GenerateToken(userID)
	if err != nil {
		t.Fatalf("failed generating token: %v", err)
	}

	otherTokens, err := utils.NewTokenManager("another-secret", time.Hour)
	if err != nil {
		t.Fatalf("failed creating token manager: %v", err)
	}
	foreignToken, err := otherTokens.GenerateToken(userID)
	if err != nil {
		t.Fatalf("failed generating token: %v", err)
	}

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"userId": userID.String()}).
		SignedString([]byte("middleware-test-secret"))
	if err != nil {
		t.Fatalf("failed signing token: %v", err)
	}

	testCases := []struct {
		name            string
		authorization   string
		expectedStatus  int
		expectedMessage string
	}{
		{"missing header", "", http.StatusUnauthorized, MessageAuthRequired},
		{"wrong scheme", "Token abc", http.StatusUnauthorized, MessageAuthRequired},
		{"lowercase scheme", "bearer " + validToken, http.StatusUnauthorized, MessageAuthRequired},
		{"bearer without token", "Bearer ", http.StatusUnauthorized, MessageAuthRequired},
		{"bare token", validToken, http.StatusUnauthorized, MessageAuthRequired},
		{"malformed token", "Bearer not-a-valid-jwt", http.StatusForbidden, MessageInvalidToken},
		{"wrong signature", "Bearer " + foreignToken, http.StatusForbidden, MessageInvalidToken},
		{"token without expiry", "Bearer " + noExpiry, http.StatusForbidden, MessageInvalidToken},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tc.authorization != "" {
				req.Header.Set("Authorization", tc.authorization)
			}
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			body := decodeBody(t, resp)

			if resp.StatusCode != tc.expectedStatus {
				t.Fatalf("expected status %d, got %d", tc.expectedStatus, resp.StatusCode)
			}
			if body["message"] != tc.expectedMessage {
				t.Fatalf("expected message %q, got %v", tc.expectedMessage, body["message"])
			}
		})
	}

	t.Run("valid token exposes user id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+validToken)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		body := decodeBody(t, resp)

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected status 200, got %d", resp.StatusCode)
		}
		if body["userId"] != userID.String() {
			t.Fatalf("expected userId %s, got %v", userID, body["userId"])
		}
		if body["logged"] != true {
			t.Fatal("expected user id to be visible to the request logger")
		}
	})
}

func TestGetCurrentUserIDWithoutAuth(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		if _, ok := GetCurrentUserID(c); ok {
			return c.SendStatus(fiber.StatusInternalServerError)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name        string
		origins     string
		wantOrigin  string
		credentials bool
	}{
		{"explicit origin", "http://localhost:3000", "http://localhost:3000", true},
		{"wildcard", "*", "*", false},
		{"empty", "", "*", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			app := fiber.New()
			app.Use(CORS(tc.origins))
			app.Get("/ping", func(c *fiber.Ctx) error {
				return c.SendStatus(fiber.StatusOK)
			})

			req := httptest.NewRequest(http.MethodOptions, "/ping", nil)
			req.Header.Set("Origin", "http://localhost:3000")
			req.Header.Set("Access-Control-Request-Method", http.MethodGet)
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("preflight failed: %v", err)
			}
			defer resp.Body.Close()

			if got := resp.Header.Get("Access-Control-Allow-Origin"); got != tc.wantOrigin {
				t.Fatalf("expected allow-origin %q, got %q", tc.wantOrigin, got)
			}
			gotCredentials := resp.Header.Get("Access-Control-Allow-Credentials") == "true"
			if gotCredentials != tc.credentials {
				t.Fatalf("expected credentials=%v, got %v", tc.credentials, gotCredentials)
			}
		})
	}
}
