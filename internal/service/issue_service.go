package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/issue-tracker/internal/domain"
	"github.com/spec-kit/issue-tracker/internal/events"
	"github.com/spec-kit/issue-tracker/internal/repository"
	apperrors "github.com/spec-kit/issue-tracker/pkg/util"
)

const maxTitleLength = 255

// IssueService coordinates issue workflows. Every response is re-read from storage.
type IssueService struct {
	issues     repository.IssueRepository
	users      repository.UserRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// IssueDependencies bundles collaborators for the issue service.
type IssueDependencies struct {
	IssueRepo  repository.IssueRepository
	UserRepo   repository.UserRepository
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// IssueCreateInput describes issue creation payload.
type IssueCreateInput struct {
	Title       string
	Description *string
	Status      *domain.IssueStatus
	Priority    *domain.IssuePriority
	Severity    *domain.IssueSeverity
	AssignedTo  *int64
}

// NewIssueService constructs the service.
func NewIssueService(deps IssueDependencies) *IssueService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IssueService{
		issues:     deps.IssueRepo,
		users:      deps.UserRepo,
		dispatcher: deps.Dispatcher,
		logger:     logger,
	}
}

// ListIssues returns one page of issues matching filter.
func (s *IssueService) ListIssues(ctx context.Context, filter repository.IssueFilter, page repository.Page, sort repository.Sort) (*repository.IssueList, error) {
	return s.issues.List(ctx, filter, page, sort)
}

// ListMyIssues is ListIssues restricted to issues the caller created.
func (s *IssueService) ListMyIssues(ctx context.Context, identity *domain.Identity, filter repository.IssueFilter, page repository.Page, sort repository.Sort) (*repository.IssueList, error) {
	creator := identity.UserID
	filter.CreatedBy = &creator
	return s.issues.List(ctx, filter, page, sort)
}

// GetIssue fetches a single issue or reports not found.
func (s *IssueService) GetIssue(ctx context.Context, id int64) (*domain.Issue, error) {
	issue, err := s.issues.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if issue == nil {
		return nil, apperrors.NewNotFound("issue", map[string]any{"id": id})
	}
	return issue, nil
}

// CreateIssue inserts an issue owned by the caller and returns the stored record.
func (s *IssueService) CreateIssue(ctx context.Context, identity *domain.Identity, input IssueCreateInput) (*domain.Issue, error) {
	title, err := validateTitle(input.Title)
	if err != nil {
		return nil, err
	}
	if err := s.validateAssignee(ctx, input.AssignedTo); err != nil {
		return nil, err
	}

	id, err := s.issues.Create(ctx, repository.NewIssue{
		Title:       title,
		Description: trimOptional(input.Description),
		Status:      input.Status,
		Priority:    input.Priority,
		Severity:    input.Severity,
		CreatedBy:   identity.UserID,
		AssignedTo:  input.AssignedTo,
	})
	if err != nil {
		return nil, err
	}

	issue, err := s.GetIssue(ctx, id)
	if err != nil {
		return nil, err
	}
	s.publishEvent(ctx, identity, events.EventIssueCreated, issue.ID, events.IssueCreatedPayload{
		Title:      issue.Title,
		Priority:   issue.Priority,
		Severity:   issue.Severity,
		AssignedTo: input.AssignedTo,
	})
	return issue, nil
}

// UpdateIssue applies a partial update and returns the committed record.
func (s *IssueService) UpdateIssue(ctx context.Context, identity *domain.Identity, id int64, update repository.IssueUpdate) (*domain.Issue, error) {
	current, err := s.GetIssue(ctx, id)
	if err != nil {
		return nil, err
	}
	if update.Title != nil {
		title, err := validateTitle(*update.Title)
		if err != nil {
			return nil, err
		}
		update.Title = &title
	}
	if !update.ClearAssignee {
		if err := s.validateAssignee(ctx, update.AssignedTo); err != nil {
			return nil, err
		}
	}

	affected, err := s.issues.Update(ctx, id, update)
	if err != nil {
		return nil, err
	}

	updated, err := s.GetIssue(ctx, id)
	if err != nil {
		return nil, err
	}
	if affected > 0 {
		s.publishEvent(ctx, identity, events.EventIssueUpdated, id, events.IssueUpdatedPayload{Fields: changedFields(update)})
		if update.Status != nil && current.Status != updated.Status {
			s.publishEvent(ctx, identity, events.EventIssueStatusChanged, id, events.IssueStatusChangedPayload{
				OldStatus: current.Status,
				NewStatus: updated.Status,
			})
		}
	}
	return updated, nil
}

// UpdateIssueStatus changes only the status and returns the committed record.
func (s *IssueService) UpdateIssueStatus(ctx context.Context, identity *domain.Identity, id int64, status domain.IssueStatus) (*domain.Issue, error) {
	if !status.Valid() {
		return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": status})
	}
	current, err := s.GetIssue(ctx, id)
	if err != nil {
		return nil, err
	}

	affected, err := s.issues.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}

	updated, err := s.GetIssue(ctx, id)
	if err != nil {
		return nil, err
	}
	if affected > 0 && current.Status != updated.Status {
		s.publishEvent(ctx, identity, events.EventIssueStatusChanged, id, events.IssueStatusChangedPayload{
			OldStatus: current.Status,
			NewStatus: updated.Status,
		})
	}
	return updated, nil
}

// DeleteIssue hard-deletes an existing issue.
func (s *IssueService) DeleteIssue(ctx context.Context, identity *domain.Identity, id int64) error {
	current, err := s.GetIssue(ctx, id)
	if err != nil {
		return err
	}
	affected, err := s.issues.Delete(ctx, id)
	if err != nil {
		return err
	}
	if affected == 0 {
		return apperrors.NewNotFound("issue", map[string]any{"id": id})
	}
	s.publishEvent(ctx, identity, events.EventIssueDeleted, id, events.IssueDeletedPayload{Title: current.Title})
	return nil
}

// StatusCounts returns per-status counts read straight from storage.
func (s *IssueService) StatusCounts(ctx context.Context) (domain.StatusCounts, error) {
	return s.issues.StatusCounts(ctx)
}

// ExportIssues returns every issue matching filter, newest first.
func (s *IssueService) ExportIssues(ctx context.Context, filter repository.IssueFilter) ([]domain.Issue, error) {
	return s.issues.ListForExport(ctx, filter)
}

func (s *IssueService) validateAssignee(ctx context.Context, assignee *int64) error {
	if assignee == nil {
		return nil
	}
	user, err := s.users.GetByID(ctx, *assignee)
	if err != nil {
		return err
	}
	if user == nil {
		return apperrors.NewValidationError("assigned_to must reference an enabled user", map[string]any{"assigned_to": *assignee})
	}
	return nil
}

func (s *IssueService) publishEvent(ctx context.Context, identity *domain.Identity, eventType events.EventType, issueID int64, payload any) {
	if s.dispatcher == nil {
		return
	}
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		IssueID:   issueID,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
	if identity != nil {
		event.Actor = events.Actor{UserID: identity.UserID, Email: identity.Email}
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("publish issue event failed",
			zap.String("event_type", string(eventType)),
			zap.Int64("issue_id", issueID),
			zap.Error(err))
	}
}

func validateTitle(raw string) (string, error) {
	title := strings.TrimSpace(raw)
	if title == "" {
		return "", apperrors.NewValidationError("title is required", nil)
	}
	if len([]rune(title)) > maxTitleLength {
		return "", apperrors.NewValidationError("title must be at most 255 characters", nil)
	}
	return title, nil
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func changedFields(update repository.IssueUpdate) []string {
	fields := []string{}
	if update.Title != nil {
		fields = append(fields, "title")
	}
	if update.Description != nil {
		fields = append(fields, "description")
	}
	if update.Status != nil {
		fields = append(fields, "status")
	}
	if update.Priority != nil {
		fields = append(fields, "priority")
	}
	if update.Severity != nil {
		fields = append(fields, "severity")
	}
	if update.AssignedTo != nil || update.ClearAssignee {
		fields = append(fields, "assigned_to")
	}
	return fields
}
