package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/issue-tracker/internal/api/dto"
	"github.com/spec-kit/issue-tracker/internal/auth"
)

// UsersHandler exposes account directory endpoints.
type UsersHandler struct {
	accounts AccountService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(accounts AccountService) *UsersHandler {
	return &UsersHandler{accounts: accounts}
}

// ListUsers handles GET /api/users. Disabled accounts are omitted.
func (h *UsersHandler) ListUsers(c *fiber.Ctx) error {
	users, err := h.accounts.ListUsers(c.UserContext())
	if err != nil {
		return err
	}
	data := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		data = append(data, dto.NewUserResponse(&users[i]))
	}
	return c.JSON(fiber.Map{"success": true, "data": data})
}

// DeleteMe handles DELETE /api/users/me. The account is disabled unless purge=true.
func (h *UsersHandler) DeleteMe(c *fiber.Ctx) error {
	identity, err := auth.RequireIdentity(c)
	if err != nil {
		return err
	}
	if c.QueryBool("purge", false) {
		if err := h.accounts.PurgeAccount(c.UserContext(), identity); err != nil {
			return err
		}
		return c.JSON(fiber.Map{"success": true, "message": "account deleted"})
	}
	if err := h.accounts.DisableAccount(c.UserContext(), identity); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "account disabled"})
}
