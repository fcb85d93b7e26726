package handler_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/biobank/internal/server"
)

const (
	testJWTSecret = "handler-test-secret-0123456789ab"
	testPassword  = "Val1d!Pass"
)

// newTestAPI stands up the whole application over an in-memory database and
// returns its router. Requests traverse the real middleware chain, handlers,
// services, and store.
func newTestAPI(t *testing.T) http.Handler {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	srv, err := server.New(server.Config{
		DBPath:       ":memory:",
		JWTSecret:    testJWTSecret,
		PasswordCost: bcrypt.MinCost,
	}, logger)
	if err != nil {
		t.Fatalf("server.New() error = %v", err)
	}
	t.Cleanup(func() { srv.Close() })

	return srv.Handler()
}

// doJSON performs one request against the API. A non-empty token is sent as
// a bearer credential; a non-nil body is JSON-encoded.
func doJSON(t *testing.T, api http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding request body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	api.ServeHTTP(rr, req)
	return rr
}

// registerAndLogin creates an account and returns a live access token.
func registerAndLogin(t *testing.T, api http.Handler, email, username string) string {
	t.Helper()

	rr := doJSON(t, api, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email":    email,
		"username": username,
		"password": testPassword,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("register %s: status = %d, body = %s", email, rr.Code, rr.Body.String())
	}

	rr = doJSON(t, api, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    email,
		"password": testPassword,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("login %s: status = %d, body = %s", email, rr.Code, rr.Body.String())
	}

	var tok struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&tok); err != nil {
		t.Fatalf("decoding token response: %v", err)
	}
	return tok.AccessToken
}

// createSample posts a sample and returns the decoded response body.
func createSample(t *testing.T, api http.Handler, token string, body map[string]any) map[string]any {
	t.Helper()

	rr := doJSON(t, api, http.MethodPost, "/api/v1/samples", token, body)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create sample: status = %d, body = %s", rr.Code, rr.Body.String())
	}

	var sample map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&sample); err != nil {
		t.Fatalf("decoding sample response: %v", err)
	}
	return sample
}

// validSampleBody returns a create body that passes every rule. The
// collection date is computed relative to now so it always falls inside
// the accepted window.
func validSampleBody() map[string]any {
	return map[string]any{
		"sample_type":      "blood",
		"subject_id":       "P001",
		"collection_date":  recentDate(),
		"storage_location": "freezer-1-rowA",
	}
}

func recentDate() string {
	return time.Now().UTC().AddDate(0, 0, -30).Format("2006-01-02")
}

// decodeError parses the standard error body.
func decodeError(t *testing.T, rr *httptest.ResponseRecorder) (kind, message string) {
	t.Helper()

	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decoding error response: %v", err)
	}
	return body.Error, body.Message
}
