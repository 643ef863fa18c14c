package handlers

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/issue-tracker/internal/domain"
)

// ActivityReader lists the audit trail of an issue.
type ActivityReader interface {
	ListForIssue(ctx context.Context, issueID int64) ([]domain.IssueActivity, error)
}

type activityResponse struct {
	ID        int64           `json:"id"`
	EventType string          `json:"event_type"`
	ActorID   *int64          `json:"actor_id"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// ActivityHandler exposes the issue audit trail.
type ActivityHandler struct {
	issues   IssueService
	activity ActivityReader
}

// NewActivityHandler constructs handler.
func NewActivityHandler(issues IssueService, activity ActivityReader) *ActivityHandler {
	return &ActivityHandler{issues: issues, activity: activity}
}

// ListActivity GET /api/issues/:id/activity.
func (h *ActivityHandler) ListActivity(c *fiber.Ctx) error {
	id, err := issueID(c)
	if err != nil {
		return err
	}
	if _, err := h.issues.GetIssue(c.UserContext(), id); err != nil {
		return err
	}
	entries, err := h.activity.ListForIssue(c.UserContext(), id)
	if err != nil {
		return err
	}
	data := make([]activityResponse, 0, len(entries))
	for _, e := range entries {
		payload := e.Payload
		if len(payload) == 0 {
			payload = json.RawMessage("{}")
		}
		data = append(data, activityResponse{
			ID:        e.ID,
			EventType: e.EventType,
			ActorID:   e.ActorID,
			Payload:   payload,
			CreatedAt: e.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"success": true, "data": data})
}
