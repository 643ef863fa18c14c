package dto

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/spec-kit/issue-tracker/internal/domain"
)

// UserRefResponse nests a creator or assignee inside an issue payload.
type UserRefResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// IssueResponse is the API shape of an issue.
type IssueResponse struct {
	ID          int64            `json:"id"`
	Title       string           `json:"title"`
	Description *string          `json:"description"`
	Status      string           `json:"status"`
	Priority    string           `json:"priority"`
	Severity    string           `json:"severity"`
	CreatedBy   UserRefResponse  `json:"created_by"`
	AssignedTo  *UserRefResponse `json:"assigned_to"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	ResolvedAt  *time.Time       `json:"resolved_at"`
}

// PaginationResponse describes the page returned by list endpoints.
type PaginationResponse struct {
	CurrentPage int   `json:"current_page"`
	PerPage     int   `json:"per_page"`
	TotalItems  int64 `json:"total_items"`
	TotalPages  int   `json:"total_pages"`
}

// IssueListResponse is the list envelope.
type IssueListResponse struct {
	Success    bool               `json:"success"`
	Data       []IssueResponse    `json:"data"`
	Pagination PaginationResponse `json:"pagination"`
}

// IssueExportResponse is the JSON export document.
type IssueExportResponse struct {
	ExportedAt time.Time       `json:"exported_at"`
	Count      int             `json:"count"`
	Issues     []IssueResponse `json:"issues"`
}

// CreateIssueRequest payload.
type CreateIssueRequest struct {
	Title       string  `json:"title" validate:"required,max=255"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
	Priority    *string `json:"priority"`
	Severity    *string `json:"severity"`
	AssignedTo  *int64  `json:"assigned_to" validate:"omitempty,gt=0"`
}

// UpdateIssueRequest payload. Absent fields are left untouched.
type UpdateIssueRequest struct {
	Title       *string       `json:"title" validate:"omitempty,max=255"`
	Description *string       `json:"description"`
	Status      *string       `json:"status"`
	Priority    *string       `json:"priority"`
	Severity    *string       `json:"severity"`
	AssignedTo  NullableInt64 `json:"assigned_to"`
}

// UpdateStatusRequest payload.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// NullableInt64 distinguishes an absent field from an explicit null.
type NullableInt64 struct {
	Set   bool
	Value *int64
}

// UnmarshalJSON records that the field was present.
func (n *NullableInt64) UnmarshalJSON(data []byte) error {
	n.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		n.Value = nil
		return nil
	}
	var v int64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	n.Value = &v
	return nil
}

// NewIssueResponse shapes a domain issue for the API.
func NewIssueResponse(issue *domain.Issue) IssueResponse {
	resp := IssueResponse{
		ID:          issue.ID,
		Title:       issue.Title,
		Description: issue.Description,
		Status:      string(issue.Status),
		Priority:    string(issue.Priority),
		Severity:    string(issue.Severity),
		CreatedBy:   userRef(issue.CreatedBy),
		CreatedAt:   issue.CreatedAt,
		UpdatedAt:   issue.UpdatedAt,
		ResolvedAt:  issue.ResolvedAt,
	}
	if issue.AssignedTo != nil {
		ref := userRef(*issue.AssignedTo)
		resp.AssignedTo = &ref
	}
	return resp
}

// NewIssueResponses shapes a slice of issues.
func NewIssueResponses(issues []domain.Issue) []IssueResponse {
	out := make([]IssueResponse, 0, len(issues))
	for i := range issues {
		out = append(out, NewIssueResponse(&issues[i]))
	}
	return out
}

func userRef(ref domain.UserRef) UserRefResponse {
	return UserRefResponse{ID: ref.ID, Name: ref.Name, Email: ref.Email}
}
