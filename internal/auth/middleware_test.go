package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sakif/biobank/internal/model"
)

// fakeResolver maps token strings to users. Unknown tokens fail.
type fakeResolver struct {
	users map[string]*model.User
}

func (f *fakeResolver) Resolve(_ context.Context, token string) (*model.User, error) {
	user, ok := f.users[token]
	if !ok {
		return nil, errors.New("auth: invalid token")
	}
	return user, nil
}

// protectedEcho is a handler that records the identity RequireAuth stored.
func protectedEcho(t *testing.T, gotUser **model.User) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		if !ok {
			t.Error("UserFromContext() returned false inside a protected handler")
		}
		*gotUser = user
		w.WriteHeader(http.StatusOK)
	})
}

// =========================================================================
// RequireAuth TESTS
// =========================================================================

func TestRequireAuth_ValidToken(t *testing.T) {
	alice := &model.User{ID: "user-1", Username: "alice", IsActive: true}
	resolver := &fakeResolver{users: map[string]*model.User{"good-token": alice}}

	var gotUser *model.User
	handler := RequireAuth(resolver)(protectedEcho(t, &gotUser))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/samples", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if gotUser == nil || gotUser.ID != "user-1" {
		t.Errorf("handler saw user %+v, want user-1", gotUser)
	}
}

func TestRequireAuth_MissingHeader(t *testing.T) {
	resolver := &fakeResolver{users: map[string]*model.User{}}
	handler := RequireAuth(resolver)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run without a token")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/samples", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	if got := rec.Header().Get("WWW-Authenticate"); got != "Bearer" {
		t.Errorf("WWW-Authenticate = %q, want %q", got, "Bearer")
	}
}

func TestRequireAuth_InvalidToken(t *testing.T) {
	resolver := &fakeResolver{users: map[string]*model.User{}}
	handler := RequireAuth(resolver)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run with an invalid token")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/samples", nil)
	req.Header.Set("Authorization", "Bearer bad-token")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestRequireAuth_WrongScheme(t *testing.T) {
	alice := &model.User{ID: "user-1", IsActive: true}
	resolver := &fakeResolver{users: map[string]*model.User{"good-token": alice}}
	handler := RequireAuth(resolver)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run with a non-bearer scheme")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/samples", nil)
	req.Header.Set("Authorization", "Basic good-token")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestRequireAuth_SchemeCaseInsensitive(t *testing.T) {
	alice := &model.User{ID: "user-1", IsActive: true}
	resolver := &fakeResolver{users: map[string]*model.User{"good-token": alice}}

	var gotUser *model.User
	handler := RequireAuth(resolver)(protectedEcho(t, &gotUser))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/samples", nil)
	req.Header.Set("Authorization", "bearer good-token")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

// =========================================================================
// UserFromContext TESTS
// =========================================================================

func TestUserFromContext_Empty(t *testing.T) {
	if _, ok := UserFromContext(context.Background()); ok {
		t.Error("UserFromContext() on a bare context should return ok=false")
	}
}
