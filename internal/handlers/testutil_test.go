package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/arcade/backend/internal/config"
	"github.com/arcade/backend/internal/database"
	"github.com/arcade/backend/internal/models"
	"github.com/arcade/backend/internal/services"
	"github.com/arcade/backend/pkg/logger"
	"github.com/arcade/backend/pkg/utils"
	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const testJWTSecret = "test-secret"

type testEnv struct {
	app     *fiber.App
	db      *gorm.DB
	storage *fakeStorage
	tokens  *utils.TokenManager
}

var testSetupOnce sync.Once

func setupTestEnv(t *testing.T) *testEnv {
	return setupTestEnvWithLimit(t, 1000)
}

func setupTestEnvWithLimit(t *testing.T, authMax int) *testEnv {
	t.Helper()

	testSetupOnce.Do(func() {
		logger.Init("debug")
		logger.SetOutput(io.Discard)
	})

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("failed opening in-memory sqlite database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed getting sql.DB from gorm: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed automigrating models: %v", err)
	}

	tokens, err := utils.NewTokenManager(testJWTSecret, 24*time.Hour)
	if err != nil {
		t.Fatalf("failed creating token manager: %v", err)
	}

	store := newFakeStorage()

	app := NewApp(config.ServerConfig{FrontendURL: "http://localhost:3000", BodyLimitMB: 5})
	RegisterRoutes(app, Dependencies{
		Users:   services.NewUserService(db),
		Demos:   services.NewDemoService(db),
		Storage: store,
		Tokens:  tokens,
		RateLimit: config.RateLimitConfig{
			AuthMax:    authMax,
			AuthWindow: time.Minute,
		},
	})

	return &testEnv{app: app, db: db, storage: store, tokens: tokens}
}

func createTestUser(t *testing.T, env *testEnv, email, password string) (*models.User, string) {
	t.Helper()

	hash, err := utils.HashPassword(password)
	if err != nil {
		t.Fatalf("failed hashing password: %v", err)
	}

	user := &models.User{
		Email:        email,
		PasswordHash: hash,
	}
	if err := env.db.Create(user).Error; err != nil {
		t.Fatalf("failed creating test user: %v", err)
	}

	token, err := env.tokens.GenerateToken(user.ID)
	if err != nil {
		t.Fatalf("failed generating auth token: %v", err)
	}

	return user, token
}

func authHeaders(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func performRequest(t *testing.T, app *fiber.App, method, path string, body io.Reader, headers map[string]string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(method, path, body)
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := app.Test(req, int((10 * time.Second).Milliseconds()))
	if err != nil {
		t.Fatalf("request %s %s failed: %v", method, path, err)
	}

	return resp
}

func performJSONRequest(t *testing.T, app *fiber.App, method, path string, payload any, headers map[string]string) *http.Response {
	t.Helper()

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("failed to marshal payload: %v", err)
		}
		body = bytes.NewReader(encoded)
	}

	requestHeaders := map[string]string{}
	for key, value := range headers {
		requestHeaders[key] = value
	}
	if payload != nil {
		requestHeaders["Content-Type"] = "application/json"
	}

	return performRequest(t, app, method, path, body, requestHeaders)
}

func performRawJSONRequest(t *testing.T, app *fiber.App, method, path, raw string, headers map[string]string) *http.Response {
	t.Helper()

	requestHeaders := map[string]string{"Content-Type": "application/json"}
	for key, value := range headers {
		requestHeaders[key] = value
	}
	return performRequest(t, app, method, path, bytes.NewBufferString(raw), requestHeaders)
}

// performMultipartRequest sends one file part plus optional form values.
func performMultipartRequest(t *testing.T, app *fiber.App, path, field, filename string, content []byte, values map[string]string, headers map[string]string) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for key, value := range values {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatalf("failed writing form field: %v", err)
		}
	}
	if field != "" {
		part, err := writer.CreateFormFile(field, filename)
		if err != nil {
			t.Fatalf("failed creating form file: %v", err)
		}
		if _, err := part.Write(content); err != nil {
			t.Fatalf("failed writing form file: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed closing multipart writer: %v", err)
	}

	requestHeaders := map[string]string{"Content-Type": writer.FormDataContentType()}
	for key, value := range headers {
		requestHeaders[key] = value
	}
	return performRequest(t, app, http.MethodPost, path, &buf, requestHeaders)
}

func decodeJSONMap(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed reading response body: %v", err)
	}

	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("failed decoding JSON response: %v body=%q", err, string(raw))
	}

	return payload
}

func decodeJSONArray(t *testing.T, resp *http.Response) []map[string]any {
	t.Helper()
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed reading response body: %v", err)
	}

	var payload []map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("failed decoding JSON array: %v body=%q", err, string(raw))
	}

	return payload
}

func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Fatalf("expected status %d, got %d", expected, resp.StatusCode)
	}
}

func assertMessage(t *testing.T, body map[string]any, expected string) {
	t.Helper()
	if got, _ := body["message"].(string); got != expected {
		t.Fatalf("expected message %q, got %+v", expected, body)
	}
}

func assertErrorResponse(t *testing.T, resp *http.Response, expectedStatus int, expectedMessage string) {
	t.Helper()
	body := decodeJSONMap(t, resp)
	if resp.StatusCode != expectedStatus {
		t.Fatalf("expected status %d, got %d body=%+v", expectedStatus, resp.StatusCode, body)
	}
	assertMessage(t, body, expectedMessage)
	if len(body) != 1 {
		t.Fatalf("expected only a message field, got %+v", body)
	}
}

type storedObject struct {
	data        []byte
	contentType string
}

// fakeStorage records objects in memory and signs URLs deterministically.
type fakeStorage struct {
	mu         sync.Mutex
	objects    map[string]storedObject
	uploadErr  error
	presignErr error
	probeErr   error
	probes     int
	lastExpiry time.Duration
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: map[string]storedObject{}}
}

func (f *fakeStorage) Upload(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error {
	if f.uploadErr != nil {
		return f.uploadErr
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	if int64(len(data)) != size {
		return fmt.Errorf("size mismatch: read %d, declared %d", len(data), size)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[objectName] = storedObject{data: data, contentType: contentType}
	return nil
}

func (f *fakeStorage) PresignedPutURL(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	return f.sign("PUT", objectName, expiry)
}

func (f *fakeStorage) PresignedGetURL(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	return f.sign("GET", objectName, expiry)
}

func (f *fakeStorage) sign(method, objectName string, expiry time.Duration) (string, error) {
	if f.presignErr != nil {
		return "", f.presignErr
	}
	f.mu.Lock()
	f.lastExpiry = expiry
	f.mu.Unlock()
	return fmt.Sprintf("https://signed.test/%s/%s?X-Amz-Expires=%d", method, objectName, int(expiry.Seconds())), nil
}

func (f *fakeStorage) PublicURL(objectName string) string {
	return "https://cdn.test/" + objectName
}

func (f *fakeStorage) Probe(ctx context.Context, objectName string) error {
	f.mu.Lock()
	f.probes++
	f.mu.Unlock()
	return f.probeErr
}

func (f *fakeStorage) object(key string) (storedObject, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.objects[key]
	return obj, ok
}

func (f *fakeStorage) keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make([]string, 0, len(f.objects))
	for key := range f.objects {
		keys = append(keys, key)
	}
	return keys
}

var errStorageDown = errors.New("storage unavailable")

func demoPayload(title string) map[string]any {
	return map[string]any{
		"title":       title,
		"description": "A walkthrough",
		"type":        "interactive",
		"content":     `[{"step":1}]`,
	}
}

func createDemoViaAPI(t *testing.T, env *testEnv, token string, payload map[string]any) map[string]any {
	t.Helper()
	resp := performJSONRequest(t, env.app, http.MethodPost, "/api/demos", payload, authHeaders(token))
	body := decodeJSONMap(t, resp)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 creating demo, got %d body=%+v", resp.StatusCode, body)
	}
	return body
}

func otherUserID() string {
	return uuid.NewString()
}

func newRequest(method, path, token string) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}
