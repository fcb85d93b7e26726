package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"unicode"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/sakif/biobank/internal/apperror"
	"github.com/sakif/biobank/internal/auth"
	"github.com/sakif/biobank/internal/model"
	"github.com/sakif/biobank/internal/repository"
)

// Account field constraints, enforced at the service boundary before any
// store call.
const (
	MinUsernameLength = 3
	MaxUsernameLength = 50
	MinPasswordLength = 8
	MaxPasswordLength = 100
	MaxEmailLength    = 255
)

// RegisterInput carries the fields needed to create an account. The handler
// decodes the request body straight into it.
type RegisterInput struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// Validate checks RegisterInput against the account constraints. Each field
// is mapped to its rule set here rather than scattered through the flow.
func (in RegisterInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Email,
			validation.Required,
			validation.Length(0, MaxEmailLength),
			is.Email,
		),
		validation.Field(&in.Username,
			validation.Required,
			validation.Length(MinUsernameLength, MaxUsernameLength),
		),
		validation.Field(&in.Password,
			validation.Required,
			validation.Length(MinPasswordLength, MaxPasswordLength),
			validation.By(passwordComplexity),
		),
	)
}

// passwordComplexity requires at least one uppercase letter, one lowercase
// letter, and one digit.
func passwordComplexity(value interface{}) error {
	s, _ := value.(string)
	var upper, lower, digit bool
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !upper || !lower || !digit {
		return errors.New("must contain an uppercase letter, a lowercase letter, and a digit")
	}
	return nil
}

// validationError converts an ozzo-validation error into the domain
// validation error the handlers map to 400. The field name recorded is the
// first failing field in sorted order, so messages are deterministic.
func validationError(err error) error {
	var fields validation.Errors
	if errors.As(err, &fields) && len(fields) > 0 {
		names := make([]string, 0, len(fields))
		for name := range fields {
			names = append(names, name)
		}
		sort.Strings(names)
		return apperror.ValidationFailed(names[0], err.Error())
	}
	return apperror.ValidationFailed("", err.Error())
}

// AuthService handles registration, login, and token-based identity
// resolution. It sits between the HTTP handlers and the user repository:
//
//	AuthHandler (HTTP) → AuthService (business rules) → UserRepository (DB)
//	                   ↘ TokenService (JWT) / PasswordService (bcrypt)
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

// NewAuthService creates an AuthService with all required dependencies.
// Call this in server.go when wiring the dependency graph.
func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// AuthResult bundles the authenticated user and the issued token so the
// handler can respond in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

// Register creates a new account.
//
// Email and username uniqueness is checked case-insensitively up front so
// the caller gets a precise conflict message. The pre-check is only an
// optimization: two concurrent registrations can both pass it, and the
// store's unique constraint is the authoritative guard. A constraint
// violation surfacing from CreateUser is returned as the same Conflict
// error.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.Username = strings.TrimSpace(in.Username)

	if err := in.Validate(); err != nil {
		return nil, validationError(err)
	}

	if _, err := s.users.GetUserByEmail(ctx, in.Email); err == nil {
		return nil, apperror.Conflict("user", "email already registered")
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("checking email uniqueness: %w", err)
	}

	if _, err := s.users.GetUserByUsername(ctx, in.Username); err == nil {
		return nil, apperror.Conflict("user", "username already taken")
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("checking username uniqueness: %w", err)
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return nil, apperror.ValidationFailed("password", "password must be 72 bytes or fewer")
		}
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	user := &model.User{
		Email:        in.Email,
		Username:     in.Username,
		PasswordHash: hash,
		IsActive:     true,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		// Conflict here means we lost a race with another registration.
		return nil, err
	}

	s.logger.Info("user registered",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
	)

	return user, nil
}

// Login verifies credentials and issues an access token.
//
// Every failure path returns the same InvalidCredentials error: unknown
// email, wrong password, and deactivated account are indistinguishable to
// the caller. Internal logs may say more; the response never does.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, apperror.InvalidCredentials()
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.InvalidCredentials()
		}
		return nil, fmt.Errorf("looking up user by email: %w", err)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		s.logger.Debug("login failed", slog.String("userID", user.ID))
		return nil, apperror.InvalidCredentials()
	}

	if !user.IsActive {
		s.logger.Debug("login attempt on inactive account", slog.String("userID", user.ID))
		return nil, apperror.InvalidCredentials()
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("generating token for user %s: %w", user.ID, err)
	}

	s.logger.Info("user logged in", slog.String("userID", user.ID))

	return &AuthResult{User: user, Token: token}, nil
}

// Resolve validates a bearer token and loads the user it identifies. It
// satisfies the auth middleware's Resolver interface.
//
// The active flag is re-checked on every call, so deactivating an account
// immediately invalidates all previously issued tokens for it. Expired,
// malformed, and tampered tokens, unknown subjects, and inactive accounts
// all produce the same Unauthorized error.
func (s *AuthService) Resolve(ctx context.Context, token string) (*model.User, error) {
	userID, err := s.tokens.Validate(token)
	if err != nil {
		return nil, apperror.Unauthorized("could not validate credentials")
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized("could not validate credentials")
		}
		return nil, fmt.Errorf("resolving token subject %s: %w", userID, err)
	}

	if !user.IsActive {
		return nil, apperror.Unauthorized("could not validate credentials")
	}

	return user, nil
}

// Refresh issues a new access token for an already-resolved user. The old
// token stays valid until its own expiry; there is no revocation list.
func (s *AuthService) Refresh(user *model.User) (string, error) {
	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return "", fmt.Errorf("refreshing token for user %s: %w", user.ID, err)
	}
	return token, nil
}
