package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spec-kit/issue-tracker/internal/auth"
	"github.com/spec-kit/issue-tracker/internal/config"
	"github.com/spec-kit/issue-tracker/internal/domain"
	"github.com/spec-kit/issue-tracker/internal/repository"
	apperrors "github.com/spec-kit/issue-tracker/pkg/util"
)

const invalidCredentials = "invalid email or password"

// AuthService coordinates registration, login and token verification.
type AuthService struct {
	users       repository.UserRepository
	tokenMgr    *auth.TokenManager
	revocations *auth.RevocationStore
	passwords   auth.PasswordHasher
}

// AuthDependencies encapsulates collaborators for the auth service.
type AuthDependencies struct {
	UserRepo    repository.UserRepository
	Revocations *auth.RevocationStore
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) *AuthService {
	return &AuthService{
		users:       deps.UserRepo,
		tokenMgr:    auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes),
		revocations: deps.Revocations,
		passwords:   auth.NewPasswordHasher(cfg.BcryptCost),
	}
}

// Register creates a new account. Only the bcrypt hash of the password is stored.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*domain.User, string, time.Time, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if name == "" || email == "" || password == "" {
		return nil, "", time.Time{}, apperrors.NewValidationError("name, email and password are required", nil)
	}

	exists, err := s.users.EmailExists(ctx, email)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	if exists {
		return nil, "", time.Time{}, apperrors.NewConflict("email already registered", map[string]any{"email": email})
	}

	hash, err := s.passwords.Hash(password)
	if errors.Is(err, auth.ErrPasswordTooLong) {
		return nil, "", time.Time{}, apperrors.NewValidationError("validation failed", map[string]any{
			"password": fmt.Sprintf("must be at most %d bytes", auth.MaxPasswordBytes),
		})
	}
	if err != nil {
		return nil, "", time.Time{}, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, "", time.Time{}, apperrors.NewConflict("email already registered", map[string]any{"email": email})
		}
		return nil, "", time.Time{}, err
	}

	token, exp, err := s.tokenMgr.GenerateToken(user)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return user, token, exp, nil
}

// Login authenticates an enabled user and issues a token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, string, time.Time, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, "", time.Time{}, err
	}
	if user == nil {
		return nil, "", time.Time{}, apperrors.NewUnauthorized(invalidCredentials)
	}
	if !s.passwords.Matches(user.PasswordHash, password) {
		return nil, "", time.Time{}, apperrors.NewUnauthorized(invalidCredentials)
	}
	token, exp, err := s.tokenMgr.GenerateToken(user)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return user, token, exp, nil
}

// VerifyToken checks signature, expiry and revocation, then confirms the user is still enabled.
func (s *AuthService) VerifyToken(ctx context.Context, token string) (*domain.Identity, error) {
	claims, err := s.tokenMgr.ParseToken(token)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			return nil, apperrors.NewUnauthorizedCode(apperrors.CodeTokenExpired, "token expired")
		}
		return nil, apperrors.NewUnauthorizedCode(apperrors.CodeTokenInvalid, "invalid token")
	}
	if s.revocations.IsRevoked(ctx, claims.ID) {
		return nil, apperrors.NewUnauthorizedCode(apperrors.CodeTokenRevoked, "token revoked")
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperrors.NewUnauthorizedCode(apperrors.CodeUserDisabled, "user not found or disabled")
	}

	return &domain.Identity{UserID: user.ID, Email: user.Email, Name: user.Name, TokenID: claims.ID}, nil
}

// DecodeWithoutVerification exposes unverified claims for diagnostics only.
func (s *AuthService) DecodeWithoutVerification(token string) *auth.Claims {
	return s.tokenMgr.DecodeWithoutVerification(token)
}

// Logout revokes the caller's current token for the remainder of its lifetime.
func (s *AuthService) Logout(ctx context.Context, identity *domain.Identity) {
	s.revocations.Revoke(ctx, identity.TokenID, s.tokenMgr.TTL())
}

// Me returns the caller's account.
func (s *AuthService) Me(ctx context.Context, identity *domain.Identity) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, identity.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperrors.NewNotFound("user", nil)
	}
	return user, nil
}

// ListUsers returns enabled users.
func (s *AuthService) ListUsers(ctx context.Context) ([]domain.User, error) {
	return s.users.ListEnabled(ctx)
}

// DisableAccount soft-deletes the caller and revokes the current token.
func (s *AuthService) DisableAccount(ctx context.Context, identity *domain.Identity) error {
	affected, err := s.users.Disable(ctx, identity.UserID)
	if err != nil {
		return err
	}
	if affected == 0 {
		return apperrors.NewNotFound("user", nil)
	}
	s.Logout(ctx, identity)
	return nil
}

// PurgeAccount hard-deletes the caller. Refused while the caller has created issues.
func (s *AuthService) PurgeAccount(ctx context.Context, identity *domain.Identity) error {
	affected, err := s.users.Delete(ctx, identity.UserID)
	if errors.Is(err, repository.ErrUserReferenced) {
		return apperrors.NewConflict("user has created issues and cannot be deleted; disable the account instead", nil)
	}
	if err != nil {
		return err
	}
	if affected == 0 {
		return apperrors.NewNotFound("user", nil)
	}
	s.Logout(ctx, identity)
	return nil
}

// TokenManager exposes the underlying token manager.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
