package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/issue-tracker/internal/api/dto"
	"github.com/spec-kit/issue-tracker/internal/auth"
	"github.com/spec-kit/issue-tracker/internal/domain"
	apperrors "github.com/spec-kit/issue-tracker/pkg/util"
)

// AccountService is the subset of account workflows the HTTP layer drives.
type AccountService interface {
	Register(ctx context.Context, name, email, password string) (*domain.User, string, time.Time, error)
	Login(ctx context.Context, email, password string) (*domain.User, string, time.Time, error)
	Logout(ctx context.Context, identity *domain.Identity)
	Me(ctx context.Context, identity *domain.Identity) (*domain.User, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
	DisableAccount(ctx context.Context, identity *domain.Identity) error
	PurgeAccount(ctx context.Context, identity *domain.Identity) error
}

// AuthHandler exposes credential endpoints.
type AuthHandler struct {
	accounts AccountService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(accounts AccountService) *AuthHandler {
	return &AuthHandler{accounts: accounts}
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.UserRegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	user, token, exp, err := h.accounts.Register(c.UserContext(), req.Name, req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    dto.AuthResponse{User: dto.NewUserResponse(user), Token: token, ExpiresAt: exp},
	})
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.UserLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	user, token, exp, err := h.accounts.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    dto.AuthResponse{User: dto.NewUserResponse(user), Token: token, ExpiresAt: exp},
	})
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	identity, err := auth.RequireIdentity(c)
	if err != nil {
		return err
	}
	user, err := h.accounts.Me(c.UserContext(), identity)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": dto.NewUserResponse(user)})
}

// Logout handles POST /api/auth/logout.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	identity, err := auth.RequireIdentity(c)
	if err != nil {
		return err
	}
	h.accounts.Logout(c.UserContext(), identity)
	return c.JSON(fiber.Map{"success": true, "message": "logged out"})
}
