package auth

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/issue-tracker/internal/domain"
	apperrors "github.com/spec-kit/issue-tracker/pkg/util"
)

const identityKey = "auth_identity"

// Verifier resolves a bearer token into an identity.
type Verifier interface {
	VerifyToken(ctx context.Context, token string) (*domain.Identity, error)
	DecodeWithoutVerification(token string) *Claims
}

// AuthMiddleware validates bearer tokens and binds the caller identity.
type AuthMiddleware struct {
	verifier Verifier
	logger   *zap.Logger
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(verifier Verifier, logger *zap.Logger) *AuthMiddleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthMiddleware{verifier: verifier, logger: logger}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return apperrors.NewUnauthorizedCode(apperrors.CodeAuthHeaderMissing, "missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return apperrors.NewUnauthorizedCode(apperrors.CodeAuthHeaderMalformed, "authorization header must be 'Bearer <token>'")
	}
	token := strings.TrimSpace(parts[1])

	identity, err := m.verifier.VerifyToken(c.UserContext(), token)
	if err != nil {
		fields := []zap.Field{zap.String("path", c.Path()), zap.Error(err)}
		if claims := m.verifier.DecodeWithoutVerification(token); claims != nil {
			fields = append(fields, zap.Int64("claimed_user_id", claims.UserID))
			if claims.ExpiresAt != nil {
				fields = append(fields, zap.Time("claimed_expiry", claims.ExpiresAt.Time))
			}
		}
		m.logger.Debug("token rejected", fields...)
		return err
	}

	c.Locals(identityKey, identity)
	return c.Next()
}

// IdentityFromContext retrieves the authenticated caller.
func IdentityFromContext(c *fiber.Ctx) (*domain.Identity, bool) {
	identity, ok := c.Locals(identityKey).(*domain.Identity)
	return identity, ok && identity != nil
}

// RequireIdentity returns the caller or an unauthorized error.
func RequireIdentity(c *fiber.Ctx) (*domain.Identity, error) {
	identity, ok := IdentityFromContext(c)
	if !ok {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return identity, nil
}
