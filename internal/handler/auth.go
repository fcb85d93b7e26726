package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/biobank/internal/apperror"
	"github.com/sakif/biobank/internal/auth"
	"github.com/sakif/biobank/internal/service"
)

// TokenResponse carries an issued access token. Clients send it back on
// every request as "Authorization: Bearer <token>".
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// loginRequest is the login body. Credentials are passed through to the
// auth service untouched.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthHandler exposes account registration, login, token refresh, and the
// current-user endpoint.
type AuthHandler struct {
	auth   *service.AuthService
	logger *slog.Logger
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(authService *service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		auth:   authService,
		logger: logger,
	}
}

// HandleRegister creates a new account.
//
// HTTP: POST /api/v1/auth/register
// BODY: {"email": "...", "username": "...", "password": "..."}
//
// Responds 201 with the new user. The password hash never appears in the
// response body.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var in service.RegisterInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.auth.Register(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

// HandleLogin exchanges credentials for an access token.
//
// HTTP: POST /api/v1/auth/login
// BODY: {"email": "...", "password": "..."}
//
// Every failure mode responds with the same 401, so callers cannot probe
// which accounts exist.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.auth.Login(r.Context(), in.Email, in.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, TokenResponse{
		AccessToken: result.Token,
		TokenType:   "bearer",
	})
}

// HandleRefresh issues a fresh token for the authenticated user.
//
// HTTP: POST /api/v1/auth/refresh
// Auth: required
//
// The old token is not revoked; it simply expires on its own schedule.
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("could not validate credentials"))
		return
	}

	token, err := h.auth.Refresh(user)
	if err != nil {
		h.logger.Error("token refresh failed",
			slog.String("userID", user.ID),
			slog.String("error", err.Error()),
		)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
	})
}

// HandleMe returns the authenticated user's profile.
//
// HTTP: GET /api/v1/auth/me
// Auth: required
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("could not validate credentials"))
		return
	}

	writeJSON(w, http.StatusOK, user)
}
