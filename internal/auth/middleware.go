package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/sakif/biobank/internal/model"
)

// Resolver turns a bearer token into a live user record. Implemented by the
// auth service; resolution re-checks account state on every call, so a
// deactivated user is rejected even while their token is still unexpired.
type Resolver interface {
	Resolve(ctx context.Context, token string) (*model.User, error)
}

// contextKey is unexported so only this package can read or write the
// identity stored in a request context.
type contextKey string

const userKey contextKey = "user"

// RequireAuth enforces authentication on protected routes. It extracts the
// Authorization bearer token, resolves it to a user, and stores the user in
// the request context. Any failure ends the request with a uniform 401;
// no partially-resolved identity ever reaches a handler.
func RequireAuth(resolver Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				unauthorized(w, "no authorization token provided")
				return
			}

			user, err := resolver.Resolve(r.Context(), token)
			if err != nil {
				unauthorized(w, "could not validate credentials")
				return
			}

			ctx := context.WithValue(r.Context(), userKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFromContext retrieves the authenticated user set by RequireAuth.
// Returns (nil, false) on an unauthenticated request.
func UserFromContext(ctx context.Context) (*model.User, bool) {
	user, ok := ctx.Value(userKey).(*model.User)
	return user, ok && user != nil
}

// bearerToken extracts the token from an "Authorization: Bearer <token>"
// header. The scheme is matched case-insensitively.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}

	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}

	token = strings.TrimSpace(token)
	return token, token != ""
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"unauthorized","message":"` + message + `"}`))
}
