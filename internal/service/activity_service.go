package service

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/issue-tracker/internal/domain"
	"github.com/spec-kit/issue-tracker/internal/events"
	"github.com/spec-kit/issue-tracker/internal/repository"
)

// ActivityService keeps the audit trail of issue events.
// Entries are always logged and persisted when a repository is configured.
type ActivityService struct {
	dispatcher events.Dispatcher
	repo       repository.ActivityRepository
	logger     *zap.Logger
}

// NewActivityService creates the service. repo may be nil.
func NewActivityService(dispatcher events.Dispatcher, repo repository.ActivityRepository, logger *zap.Logger) *ActivityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivityService{
		dispatcher: dispatcher,
		repo:       repo,
		logger:     logger.Named("activity"),
	}
}

// RegisterHandlers subscribes to issue events.
func (a *ActivityService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventIssueCreated, a.record)
	a.dispatcher.Subscribe(events.EventIssueUpdated, a.record)
	a.dispatcher.Subscribe(events.EventIssueStatusChanged, a.record)
	a.dispatcher.Subscribe(events.EventIssueDeleted, a.record)
}

// ListForIssue returns the trail for one issue, oldest first.
func (a *ActivityService) ListForIssue(ctx context.Context, issueID int64) ([]domain.IssueActivity, error) {
	if a.repo == nil {
		return []domain.IssueActivity{}, nil
	}
	return a.repo.ListByIssue(ctx, issueID)
}

func (a *ActivityService) record(ctx context.Context, event events.Event) error {
	a.logger.Info(string(event.Type),
		zap.String("event_id", event.ID),
		zap.Int64("issue_id", event.IssueID),
		zap.Int64("actor_id", event.Actor.UserID),
		zap.String("actor_email", event.Actor.Email),
		zap.Time("at", event.Timestamp),
		zap.Any("payload", event.Payload),
	)
	if a.repo == nil {
		return nil
	}

	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("encode activity payload: %w", err)
	}
	entry := &domain.IssueActivity{
		IssueID:   event.IssueID,
		EventType: string(event.Type),
		Payload:   payload,
	}
	if event.Actor.UserID > 0 {
		actor := event.Actor.UserID
		entry.ActorID = &actor
	}
	return a.repo.Create(ctx, entry)
}
