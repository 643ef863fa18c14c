package domain

import (
	"encoding/json"
	"time"
)

// IssueActivity is an immutable audit trail entry for an issue.
type IssueActivity struct {
	ID        int64
	IssueID   int64
	ActorID   *int64
	EventType string
	Payload   json.RawMessage
	CreatedAt time.Time
}
