package middleware

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/soltixdb/unitmetrics/internal/logging"
	"github.com/soltixdb/unitmetrics/internal/models"
)

var (
	primaryKey   = strings.Repeat("a", MinAPIKeyLength)
	secondaryKey = strings.Repeat("b", MinAPIKeyLength) + "-rotated"
)

// newV1App mounts the metrics routes behind the same middleware chain the
// router uses
func newV1App(keys []string, enabled bool) *fiber.App {
	logger := logging.NewDevelopment()

	app := fiber.New()
	v1 := app.Group("/v1", APIKeyAuth(logger, keys, enabled), RequireUserID(logger))
	v1.Post("/metrics", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusCreated).SendString(UserID(c))
	})
	v1.Get("/metrics", func(c *fiber.Ctx) error {
		return c.SendString(UserID(c))
	})
	v1.Post("/metrics/query", func(c *fiber.Ctx) error {
		return c.SendString(UserID(c))
	})
	return app
}

func decodeError(t *testing.T, body io.Reader) models.ErrorDetail {
	t.Helper()
	var errResp models.ErrorResponse
	if err := json.NewDecoder(body).Decode(&errResp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return errResp.Error
}

func TestKnownKey(t *testing.T) {
	keys := [][]byte{[]byte(primaryKey), []byte(secondaryKey)}

	tests := []struct {
		name      string
		candidate string
		want      bool
	}{
		{"first key", primaryKey, true},
		{"second key", secondaryKey, true},
		{"prefix of a key", primaryKey[:MinAPIKeyLength-1], false},
		{"key with suffix", primaryKey + "x", false},
		{"unknown", strings.Repeat("c", MinAPIKeyLength), false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := knownKey(keys, tt.candidate); got != tt.want {
				t.Errorf("knownKey(%q) = %v, want %v", tt.candidate, got, tt.want)
			}
		})
	}

	if knownKey(nil, primaryKey) {
		t.Error("no configured keys should match nothing")
	}
}

func TestAPIKeyAuth_MetricsRoutes(t *testing.T) {
	app := newV1App([]string{primaryKey, secondaryKey}, true)

	tests := []struct {
		name       string
		method     string
		path       string
		headers    map[string]string
		wantStatus int
		wantCode   string
	}{
		{
			name:       "write with X-API-Key",
			method:     "POST",
			path:       "/v1/metrics",
			headers:    map[string]string{"X-API-Key": primaryKey, "user-id": "u1"},
			wantStatus: fiber.StatusCreated,
		},
		{
			name:       "query with rotated key as bearer token",
			method:     "GET",
			path:       "/v1/metrics?type=DISTANCE",
			headers:    map[string]string{"Authorization": "Bearer " + secondaryKey, "user-id": "u1"},
			wantStatus: fiber.StatusOK,
		},
		{
			name:       "query post with raw Authorization",
			method:     "POST",
			path:       "/v1/metrics/query",
			headers:    map[string]string{"Authorization": primaryKey, "userid": "u2"},
			wantStatus: fiber.StatusOK,
		},
		{
			name:       "missing key",
			method:     "GET",
			path:       "/v1/metrics",
			headers:    map[string]string{"user-id": "u1"},
			wantStatus: fiber.StatusUnauthorized,
			wantCode:   "UNAUTHORIZED",
		},
		{
			name:       "wrong key",
			method:     "POST",
			path:       "/v1/metrics",
			headers:    map[string]string{"X-API-Key": primaryKey + "x", "user-id": "u1"},
			wantStatus: fiber.StatusUnauthorized,
			wantCode:   "UNAUTHORIZED",
		},
		{
			name:       "auth runs before the owner check",
			method:     "GET",
			path:       "/v1/metrics",
			headers:    map[string]string{"X-API-Key": "nope"},
			wantStatus: fiber.StatusUnauthorized,
			wantCode:   "UNAUTHORIZED",
		},
		{
			name:       "valid key without owner",
			method:     "POST",
			path:       "/v1/metrics",
			headers:    map[string]string{"X-API-Key": secondaryKey},
			wantStatus: fiber.StatusBadRequest,
			wantCode:   "MISSING_USER_ID",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}

			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("Failed to test request: %v", err)
			}
			defer func() { _ = resp.Body.Close() }()

			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("Expected status %d, got %d", tt.wantStatus, resp.StatusCode)
			}

			if tt.wantCode != "" {
				detail := decodeError(t, resp.Body)
				if detail.Code != tt.wantCode {
					t.Errorf("Expected code %s, got %s", tt.wantCode, detail.Code)
				}
				if detail.Path != strings.SplitN(tt.path, "?", 2)[0] {
					t.Errorf("Expected path %s, got %s", tt.path, detail.Path)
				}
			}
		})
	}
}

func TestAPIKeyAuth_Disabled(t *testing.T) {
	app := newV1App(nil, false)

	req := httptest.NewRequest("GET", "/v1/metrics", nil)
	req.Header.Set("user-id", "u1")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Failed to test request: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("Expected status 200 with auth disabled, got %d", resp.StatusCode)
	}

	// the owner header is still required
	req = httptest.NewRequest("GET", "/v1/metrics", nil)
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("Failed to test request: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("Expected status 400 without owner, got %d", resp.StatusCode)
	}
}

func TestAPIKeyAuth_WeakKeysSkipped(t *testing.T) {
	weak := "short-key"
	app := newV1App([]string{weak, "", primaryKey}, true)

	tests := []struct {
		key        string
		wantStatus int
	}{
		{weak, fiber.StatusUnauthorized},
		{primaryKey, fiber.StatusOK},
	}

	for _, tt := range tests {
		req := httptest.NewRequest("GET", "/v1/metrics", nil)
		req.Header.Set("X-API-Key", tt.key)
		req.Header.Set("user-id", "u1")

		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("Failed to test request: %v", err)
		}
		_ = resp.Body.Close()

		if resp.StatusCode != tt.wantStatus {
			t.Errorf("key %s: expected status %d, got %d", maskAPIKey(tt.key), tt.wantStatus, resp.StatusCode)
		}
	}
}

func TestAPIKeyAuth_NoUsableKeysRejectsAll(t *testing.T) {
	app := newV1App([]string{"short"}, true)

	req := httptest.NewRequest("GET", "/v1/metrics", nil)
	req.Header.Set("X-API-Key", "short")
	req.Header.Set("user-id", "u1")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Failed to test request: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", resp.StatusCode)
	}
}

func TestRequestAPIKey(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"x-api-key", map[string]string{"X-API-Key": "k1"}, "k1"},
		{"x-api-key wins", map[string]string{"X-API-Key": "k1", "Authorization": "Bearer k2"}, "k1"},
		{"bearer", map[string]string{"Authorization": "Bearer k2"}, "k2"},
		{"raw authorization", map[string]string{"Authorization": "k3"}, "k3"},
		{"none", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/", func(c *fiber.Ctx) error {
				return c.SendString(requestAPIKey(c))
			})

			req := httptest.NewRequest("GET", "/", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("Failed to test request: %v", err)
			}
			defer func() { _ = resp.Body.Close() }()

			buf := new(strings.Builder)
			if _, err := io.Copy(buf, resp.Body); err != nil {
				t.Fatalf("Failed to read body: %v", err)
			}
			if buf.String() != tt.want {
				t.Errorf("requestAPIKey() = %q, want %q", buf.String(), tt.want)
			}
		})
	}
}

func TestValidateAPIKey(t *testing.T) {
	if ValidateAPIKey(primaryKey[:MinAPIKeyLength-1]) {
		t.Error("key shorter than the minimum should be rejected")
	}
	if !ValidateAPIKey(primaryKey) {
		t.Error("key at the minimum length should be accepted")
	}
	if ValidateAPIKey(strings.Repeat(" ", MinAPIKeyLength)) {
		t.Error("blank key should be rejected")
	}
}

func TestMaskAPIKey(t *testing.T) {
	if got := maskAPIKey("abc"); got != "****" {
		t.Errorf("maskAPIKey(short) = %q", got)
	}
	if got := maskAPIKey(primaryKey); got != "aaaa****" {
		t.Errorf("maskAPIKey() = %q", got)
	}
}
