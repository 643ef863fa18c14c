package domain

import (
	"fmt"
	"time"
)

// IssueStatus enumerates lifecycle states for issues.
type IssueStatus string

const (
	IssueStatusOpen       IssueStatus = "Open"
	IssueStatusInProgress IssueStatus = "In Progress"
	IssueStatusResolved   IssueStatus = "Resolved"
	IssueStatusClosed     IssueStatus = "Closed"
)

// IssueStatuses lists every status in declaration order.
var IssueStatuses = []IssueStatus{
	IssueStatusOpen,
	IssueStatusInProgress,
	IssueStatusResolved,
	IssueStatusClosed,
}

// IssuePriority enumerates urgency.
type IssuePriority string

const (
	IssuePriorityLow      IssuePriority = "Low"
	IssuePriorityMedium   IssuePriority = "Medium"
	IssuePriorityHigh     IssuePriority = "High"
	IssuePriorityCritical IssuePriority = "Critical"
)

var IssuePriorities = []IssuePriority{
	IssuePriorityLow,
	IssuePriorityMedium,
	IssuePriorityHigh,
	IssuePriorityCritical,
}

// IssueSeverity enumerates impact.
type IssueSeverity string

const (
	IssueSeverityMinor    IssueSeverity = "Minor"
	IssueSeverityMajor    IssueSeverity = "Major"
	IssueSeverityCritical IssueSeverity = "Critical"
)

var IssueSeverities = []IssueSeverity{
	IssueSeverityMinor,
	IssueSeverityMajor,
	IssueSeverityCritical,
}

// Valid reports whether s is a known status.
func (s IssueStatus) Valid() bool {
	for _, known := range IssueStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status carries a resolved_at stamp.
func (s IssueStatus) IsTerminal() bool {
	return s == IssueStatusResolved || s == IssueStatusClosed
}

func (p IssuePriority) Valid() bool {
	for _, known := range IssuePriorities {
		if p == known {
			return true
		}
	}
	return false
}

func (s IssueSeverity) Valid() bool {
	for _, known := range IssueSeverities {
		if s == known {
			return true
		}
	}
	return false
}

// ParseIssueStatus converts raw input into a status.
func ParseIssueStatus(raw string) (IssueStatus, error) {
	s := IssueStatus(raw)
	if !s.Valid() {
		return "", fmt.Errorf("invalid status %q", raw)
	}
	return s, nil
}

// ParseIssuePriority converts raw input into a priority.
func ParseIssuePriority(raw string) (IssuePriority, error) {
	p := IssuePriority(raw)
	if !p.Valid() {
		return "", fmt.Errorf("invalid priority %q", raw)
	}
	return p, nil
}

// ParseIssueSeverity converts raw input into a severity.
func ParseIssueSeverity(raw string) (IssueSeverity, error) {
	s := IssueSeverity(raw)
	if !s.Valid() {
		return "", fmt.Errorf("invalid severity %q", raw)
	}
	return s, nil
}

// UserRef is the display projection of a user attached to an issue.
type UserRef struct {
	ID    int64
	Name  string
	Email string
}

// Issue is a tracked work item.
type Issue struct {
	ID          int64
	Title       string
	Description *string
	Status      IssueStatus
	Priority    IssuePriority
	Severity    IssueSeverity
	CreatedBy   UserRef
	AssignedTo  *UserRef
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ResolvedAt  *time.Time
}

// StatusCounts maps each known status to its issue count.
type StatusCounts struct {
	ByStatus map[IssueStatus]int64
	Total    int64
}

// NewStatusCounts returns counts with every status present at zero.
func NewStatusCounts() StatusCounts {
	counts := StatusCounts{ByStatus: make(map[IssueStatus]int64, len(IssueStatuses))}
	for _, s := range IssueStatuses {
		counts.ByStatus[s] = 0
	}
	return counts
}
