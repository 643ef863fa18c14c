package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/issue-tracker/internal/domain"
)

// ActivityRepository stores issue audit entries.
type ActivityRepository interface {
	Create(ctx context.Context, activity *domain.IssueActivity) error
	ListByIssue(ctx context.Context, issueID int64) ([]domain.IssueActivity, error)
}

type activityRepository struct {
	db DBTX
}

// NewActivityRepository builds repository.
func NewActivityRepository(db DBTX) ActivityRepository {
	return &activityRepository{db: db}
}

func (r *activityRepository) Create(ctx context.Context, activity *domain.IssueActivity) error {
	const query = `
        INSERT INTO issue_activity (issue_id, actor_id, event_type, payload)
        VALUES ($1, $2, $3, $4)
        RETURNING activity_id, created_at`
	payload := activity.Payload
	if len(payload) == 0 {
		payload = []byte("{}")
	}
	err := r.db.QueryRow(ctx, query,
		activity.IssueID,
		activity.ActorID,
		activity.EventType,
		[]byte(payload),
	).Scan(&activity.ID, &activity.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert issue activity: %w", err)
	}
	return nil
}

func (r *activityRepository) ListByIssue(ctx context.Context, issueID int64) ([]domain.IssueActivity, error) {
	const query = `
        SELECT activity_id, issue_id, actor_id, event_type, payload, created_at
        FROM issue_activity WHERE issue_id = $1 ORDER BY created_at ASC, activity_id ASC`
	rows, err := r.db.Query(ctx, query, issueID)
	if err != nil {
		return nil, fmt.Errorf("list issue activity: %w", err)
	}
	result, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.IssueActivity, error) {
		var a domain.IssueActivity
		var payload []byte
		err := row.Scan(&a.ID, &a.IssueID, &a.ActorID, &a.EventType, &payload, &a.CreatedAt)
		a.Payload = payload
		return a, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan issue activity: %w", err)
	}
	return result, nil
}
