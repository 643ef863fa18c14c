package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/issue-tracker/internal/api/http/handlers"
	"github.com/spec-kit/issue-tracker/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Users          *handlers.UsersHandler
	Issues         *handlers.IssuesHandler
	Activity       *handlers.ActivityHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	api := app.Group("/api")

	api.Get("/health", cfg.Health.Live)
	api.Get("/health/ready", cfg.Health.Ready)
	api.Get("/metrics", cfg.Health.Metrics)

	authGroup := api.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Get("/me", cfg.AuthMiddleware.Handle, cfg.Auth.Me)
	authGroup.Post("/logout", cfg.AuthMiddleware.Handle, cfg.Auth.Logout)

	users := api.Group("/users", cfg.AuthMiddleware.Handle)
	users.Get("/", cfg.Users.ListUsers)
	users.Delete("/me", cfg.Users.DeleteMe)

	issues := api.Group("/issues", cfg.AuthMiddleware.Handle)
	// Static paths go first so they are not captured by /:id.
	issues.Get("/stats/counts", cfg.Issues.StatusCounts)
	issues.Get("/export/csv", cfg.Issues.ExportCSV)
	issues.Get("/export/json", cfg.Issues.ExportJSON)
	issues.Get("/my-issues", cfg.Issues.ListMyIssues)
	issues.Get("/", cfg.Issues.ListIssues)
	issues.Post("/", cfg.Issues.CreateIssue)
	issues.Get("/:id", cfg.Issues.GetIssue)
	issues.Put("/:id", cfg.Issues.UpdateIssue)
	issues.Patch("/:id/status", cfg.Issues.UpdateIssueStatus)
	issues.Get("/:id/activity", cfg.Activity.ListActivity)
	issues.Delete("/:id", cfg.Issues.DeleteIssue)
}
