package handlers

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/issue-tracker/internal/api/dto"
	"github.com/spec-kit/issue-tracker/internal/domain"
)

var csvHeader = []string{
	"ID", "Title", "Description", "Status", "Priority", "Severity",
	"Created By", "Creator Email", "Assigned To", "Assignee Email",
	"Created At", "Updated At", "Resolved At",
}

// ExportCSV GET /api/issues/export/csv.
func (h *IssuesHandler) ExportCSV(c *fiber.Ctx) error {
	issues, err := h.exportRows(c)
	if err != nil {
		return err
	}
	body, err := renderCSV(issues)
	if err != nil {
		return err
	}
	c.Attachment(exportFilename(time.Now(), "csv"))
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	return c.Send(body)
}

// ExportJSON GET /api/issues/export/json.
func (h *IssuesHandler) ExportJSON(c *fiber.Ctx) error {
	issues, err := h.exportRows(c)
	if err != nil {
		return err
	}
	body, err := json.MarshalIndent(dto.IssueExportResponse{
		ExportedAt: time.Now().UTC(),
		Count:      len(issues),
		Issues:     dto.NewIssueResponses(issues),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode export: %w", err)
	}
	c.Attachment(exportFilename(time.Now(), "json"))
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSONCharsetUTF8)
	return c.Send(body)
}

func (h *IssuesHandler) exportRows(c *fiber.Ctx) ([]domain.Issue, error) {
	filter, err := parseIssueFilter(c, true)
	if err != nil {
		return nil, err
	}
	return h.service.ExportIssues(c.UserContext(), filter)
}

func renderCSV(issues []domain.Issue) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for i := range issues {
		if err := w.Write(csvRecord(&issues[i])); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

func csvRecord(issue *domain.Issue) []string {
	var description, assignee, assigneeEmail, resolved string
	if issue.Description != nil {
		description = *issue.Description
	}
	if issue.AssignedTo != nil {
		assignee = issue.AssignedTo.Name
		assigneeEmail = issue.AssignedTo.Email
	}
	if issue.ResolvedAt != nil {
		resolved = formatTimestamp(*issue.ResolvedAt)
	}
	return []string{
		strconv.FormatInt(issue.ID, 10),
		issue.Title,
		description,
		string(issue.Status),
		string(issue.Priority),
		string(issue.Severity),
		issue.CreatedBy.Name,
		issue.CreatedBy.Email,
		assignee,
		assigneeEmail,
		formatTimestamp(issue.CreatedAt),
		formatTimestamp(issue.UpdatedAt),
		resolved,
	}
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func exportFilename(now time.Time, ext string) string {
	return fmt.Sprintf("issues-export-%s.%s", now.UTC().Format("20060102-150405"), ext)
}
