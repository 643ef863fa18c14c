package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/issue-tracker/internal/api/dto"
	"github.com/spec-kit/issue-tracker/internal/auth"
	"github.com/spec-kit/issue-tracker/internal/domain"
	"github.com/spec-kit/issue-tracker/internal/repository"
	"github.com/spec-kit/issue-tracker/internal/service"
	apperrors "github.com/spec-kit/issue-tracker/pkg/util"
)

// IssueService is the subset of the issue workflows the HTTP layer drives.
type IssueService interface {
	ListIssues(ctx context.Context, filter repository.IssueFilter, page repository.Page, sort repository.Sort) (*repository.IssueList, error)
	ListMyIssues(ctx context.Context, identity *domain.Identity, filter repository.IssueFilter, page repository.Page, sort repository.Sort) (*repository.IssueList, error)
	GetIssue(ctx context.Context, id int64) (*domain.Issue, error)
	CreateIssue(ctx context.Context, identity *domain.Identity, input service.IssueCreateInput) (*domain.Issue, error)
	UpdateIssue(ctx context.Context, identity *domain.Identity, id int64, update repository.IssueUpdate) (*domain.Issue, error)
	UpdateIssueStatus(ctx context.Context, identity *domain.Identity, id int64, status domain.IssueStatus) (*domain.Issue, error)
	DeleteIssue(ctx context.Context, identity *domain.Identity, id int64) error
	StatusCounts(ctx context.Context) (domain.StatusCounts, error)
	ExportIssues(ctx context.Context, filter repository.IssueFilter) ([]domain.Issue, error)
}

// IssuesHandler manages issue endpoints.
type IssuesHandler struct {
	service IssueService
}

// NewIssuesHandler constructs handler.
func NewIssuesHandler(issueService IssueService) *IssuesHandler {
	return &IssuesHandler{service: issueService}
}

// ListIssues GET /api/issues.
func (h *IssuesHandler) ListIssues(c *fiber.Ctx) error {
	filter, err := parseIssueFilter(c, true)
	if err != nil {
		return err
	}
	page, sort := parsePageAndSort(c)
	list, err := h.service.ListIssues(c.UserContext(), filter, page, sort)
	if err != nil {
		return err
	}
	return c.JSON(issueList(list))
}

// ListMyIssues GET /api/issues/my-issues.
func (h *IssuesHandler) ListMyIssues(c *fiber.Ctx) error {
	identity, err := auth.RequireIdentity(c)
	if err != nil {
		return err
	}
	filter, err := parseIssueFilter(c, false)
	if err != nil {
		return err
	}
	page, sort := parsePageAndSort(c)
	list, err := h.service.ListMyIssues(c.UserContext(), identity, filter, page, sort)
	if err != nil {
		return err
	}
	return c.JSON(issueList(list))
}

// GetIssue GET /api/issues/:id.
func (h *IssuesHandler) GetIssue(c *fiber.Ctx) error {
	id, err := issueID(c)
	if err != nil {
		return err
	}
	issue, err := h.service.GetIssue(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": dto.NewIssueResponse(issue)})
}

// CreateIssue POST /api/issues.
func (h *IssuesHandler) CreateIssue(c *fiber.Ctx) error {
	identity, err := auth.RequireIdentity(c)
	if err != nil {
		return err
	}
	var req dto.CreateIssueRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	input := service.IssueCreateInput{
		Title:       req.Title,
		Description: req.Description,
		AssignedTo:  req.AssignedTo,
	}
	if input.Status, err = optionalEnum(req.Status, "status", domain.ParseIssueStatus); err != nil {
		return err
	}
	if input.Priority, err = optionalEnum(req.Priority, "priority", domain.ParseIssuePriority); err != nil {
		return err
	}
	if input.Severity, err = optionalEnum(req.Severity, "severity", domain.ParseIssueSeverity); err != nil {
		return err
	}

	issue, err := h.service.CreateIssue(c.UserContext(), identity, input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"success": true, "data": dto.NewIssueResponse(issue)})
}

// UpdateIssue PUT /api/issues/:id.
func (h *IssuesHandler) UpdateIssue(c *fiber.Ctx) error {
	identity, err := auth.RequireIdentity(c)
	if err != nil {
		return err
	}
	id, err := issueID(c)
	if err != nil {
		return err
	}
	var req dto.UpdateIssueRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	update := repository.IssueUpdate{
		Title:       req.Title,
		Description: req.Description,
	}
	if update.Status, err = optionalEnum(req.Status, "status", domain.ParseIssueStatus); err != nil {
		return err
	}
	if update.Priority, err = optionalEnum(req.Priority, "priority", domain.ParseIssuePriority); err != nil {
		return err
	}
	if update.Severity, err = optionalEnum(req.Severity, "severity", domain.ParseIssueSeverity); err != nil {
		return err
	}
	if req.AssignedTo.Set {
		if req.AssignedTo.Value == nil {
			update.ClearAssignee = true
		} else if *req.AssignedTo.Value <= 0 {
			return apperrors.NewValidationError("validation failed", map[string]any{"assigned_to": "must be greater than 0"})
		} else {
			update.AssignedTo = req.AssignedTo.Value
		}
	}

	issue, err := h.service.UpdateIssue(c.UserContext(), identity, id, update)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": dto.NewIssueResponse(issue)})
}

// UpdateIssueStatus PATCH /api/issues/:id/status.
func (h *IssuesHandler) UpdateIssueStatus(c *fiber.Ctx) error {
	identity, err := auth.RequireIdentity(c)
	if err != nil {
		return err
	}
	id, err := issueID(c)
	if err != nil {
		return err
	}
	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}
	status, err := domain.ParseIssueStatus(req.Status)
	if err != nil {
		return invalidEnum("status", req.Status)
	}

	issue, err := h.service.UpdateIssueStatus(c.UserContext(), identity, id, status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": dto.NewIssueResponse(issue)})
}

// DeleteIssue DELETE /api/issues/:id.
func (h *IssuesHandler) DeleteIssue(c *fiber.Ctx) error {
	identity, err := auth.RequireIdentity(c)
	if err != nil {
		return err
	}
	id, err := issueID(c)
	if err != nil {
		return err
	}
	if err := h.service.DeleteIssue(c.UserContext(), identity, id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "issue deleted"})
}

// StatusCounts GET /api/issues/stats/counts.
func (h *IssuesHandler) StatusCounts(c *fiber.Ctx) error {
	counts, err := h.service.StatusCounts(c.UserContext())
	if err != nil {
		return err
	}
	data := make(fiber.Map, len(counts.ByStatus)+1)
	for status, n := range counts.ByStatus {
		data[string(status)] = n
	}
	data["total"] = counts.Total
	return c.JSON(fiber.Map{"success": true, "data": data})
}

func issueList(list *repository.IssueList) dto.IssueListResponse {
	return dto.IssueListResponse{
		Success: true,
		Data:    dto.NewIssueResponses(list.Issues),
		Pagination: dto.PaginationResponse{
			CurrentPage: list.Page.Number,
			PerPage:     list.Page.Size,
			TotalItems:  list.Total,
			TotalPages:  list.TotalPages,
		},
	}
}

func issueID(c *fiber.Ctx) (int64, error) {
	raw := c.Params("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("issue id must be a positive integer", map[string]any{"id": raw})
	}
	return id, nil
}

// parseIssueFilter reads the listing filters. createdBy is honoured only when allowCreator is set.
func parseIssueFilter(c *fiber.Ctx, allowCreator bool) (repository.IssueFilter, error) {
	filter := repository.IssueFilter{Search: strings.TrimSpace(c.Query("search"))}
	var err error
	if filter.Status, err = optionalEnum(queryPtr(c, "status"), "status", domain.ParseIssueStatus); err != nil {
		return filter, err
	}
	if filter.Priority, err = optionalEnum(queryPtr(c, "priority"), "priority", domain.ParseIssuePriority); err != nil {
		return filter, err
	}
	if filter.Severity, err = optionalEnum(queryPtr(c, "severity"), "severity", domain.ParseIssueSeverity); err != nil {
		return filter, err
	}
	if raw := c.Query("createdBy"); raw != "" && allowCreator {
		creator, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || creator <= 0 {
			return filter, apperrors.NewValidationError("createdBy must be a positive integer", map[string]any{"createdBy": raw})
		}
		filter.CreatedBy = &creator
	}
	return filter, nil
}

func parsePageAndSort(c *fiber.Ctx) (repository.Page, repository.Sort) {
	page := repository.Page{
		Number: c.QueryInt("page", 1),
		Size:   c.QueryInt("limit", repository.DefaultPageSize),
	}.Normalize()
	return page, repository.ParseSort(c.Query("sortBy"), c.Query("sortOrder"))
}

func queryPtr(c *fiber.Ctx, key string) *string {
	raw := c.Query(key)
	if raw == "" {
		return nil
	}
	return &raw
}

func optionalEnum[T ~string](raw *string, field string, parse func(string) (T, error)) (*T, error) {
	if raw == nil {
		return nil, nil
	}
	v, err := parse(*raw)
	if err != nil {
		return nil, invalidEnum(field, *raw)
	}
	return &v, nil
}

func invalidEnum(field, value string) error {
	return apperrors.NewValidationError("invalid "+field, map[string]any{field: value})
}
