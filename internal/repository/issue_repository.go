package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/issue-tracker/internal/domain"
)

// IssueFilter captures optional, AND-combined listing filters.
type IssueFilter struct {
	Status    *domain.IssueStatus
	Priority  *domain.IssuePriority
	Severity  *domain.IssueSeverity
	CreatedBy *int64
	Search    string
}

// IssueList is one page of issues plus totals over the whole filter.
type IssueList struct {
	Issues     []domain.Issue
	Total      int64
	TotalPages int
	Page       Page
}

// NewIssue holds insert values. Nil enum fields take column defaults.
type NewIssue struct {
	Title       string
	Description *string
	Status      *domain.IssueStatus
	Priority    *domain.IssuePriority
	Severity    *domain.IssueSeverity
	CreatedBy   int64
	AssignedTo  *int64
}

// IssueUpdate lists the fields to change; nil fields are left untouched.
type IssueUpdate struct {
	Title         *string
	Description   *string
	Status        *domain.IssueStatus
	Priority      *domain.IssuePriority
	Severity      *domain.IssueSeverity
	AssignedTo    *int64
	ClearAssignee bool
}

// IsEmpty reports whether the update changes nothing.
func (u IssueUpdate) IsEmpty() bool {
	return u.Title == nil && u.Description == nil && u.Status == nil &&
		u.Priority == nil && u.Severity == nil && u.AssignedTo == nil && !u.ClearAssignee
}

// IssueRepository encapsulates issue persistence.
type IssueRepository interface {
	List(ctx context.Context, filter IssueFilter, page Page, sort Sort) (*IssueList, error)
	GetByID(ctx context.Context, id int64) (*domain.Issue, error)
	Create(ctx context.Context, issue NewIssue) (int64, error)
	Update(ctx context.Context, id int64, update IssueUpdate) (int64, error)
	UpdateStatus(ctx context.Context, id int64, status domain.IssueStatus) (int64, error)
	Delete(ctx context.Context, id int64) (int64, error)
	StatusCounts(ctx context.Context) (domain.StatusCounts, error)
	ListForExport(ctx context.Context, filter IssueFilter) ([]domain.Issue, error)
}

type issueRepository struct {
	db DBTX
}

// NewIssueRepository instantiates repository.
func NewIssueRepository(db DBTX) IssueRepository {
	return &issueRepository{db: db}
}

const issueSelect = `
        SELECT i.issue_id, i.title, i.description, i.status::text, i.priority::text, i.severity::text,
               c.user_id, c.name, c.email,
               a.user_id, a.name, a.email,
               i.created_at, i.updated_at, i.resolved_at
        FROM issues i
        JOIN users c ON c.user_id = i.created_by
        LEFT JOIN users a ON a.user_id = i.assigned_to`

func (r *issueRepository) List(ctx context.Context, filter IssueFilter, page Page, sort Sort) (*IssueList, error) {
	page = page.Normalize()

	countSQL, countArgs := buildCountQuery(filter)
	var total int64
	if err := r.db.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count issues: %w", err)
	}

	listSQL, listArgs := buildListQuery(filter, &page, sort)
	issues, err := r.query(ctx, listSQL, listArgs...)
	if err != nil {
		return nil, fmt.Errorf("list issues: %w", err)
	}

	return &IssueList{
		Issues:     issues,
		Total:      total,
		TotalPages: TotalPages(total, page.Size),
		Page:       page,
	}, nil
}

func (r *issueRepository) GetByID(ctx context.Context, id int64) (*domain.Issue, error) {
	rows, err := r.db.Query(ctx, issueSelect+` WHERE i.issue_id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("get issue: %w", err)
	}
	issue, err := pgx.CollectOneRow(rows, scanIssue)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get issue: %w", err)
	}
	return &issue, nil
}

func (r *issueRepository) Create(ctx context.Context, issue NewIssue) (int64, error) {
	query, args := buildInsert(issue)
	var id int64
	if err := r.db.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert issue: %w", err)
	}
	return id, nil
}

func (r *issueRepository) Update(ctx context.Context, id int64, update IssueUpdate) (int64, error) {
	query, args, ok := buildUpdate(id, update)
	if !ok {
		return 0, nil
	}
	cmd, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("update issue: %w", err)
	}
	return cmd.RowsAffected(), nil
}

func (r *issueRepository) UpdateStatus(ctx context.Context, id int64, status domain.IssueStatus) (int64, error) {
	query, args, _ := buildUpdate(id, IssueUpdate{Status: &status})
	cmd, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("update issue status: %w", err)
	}
	return cmd.RowsAffected(), nil
}

func (r *issueRepository) Delete(ctx context.Context, id int64) (int64, error) {
	cmd, err := r.db.Exec(ctx, `DELETE FROM issues WHERE issue_id = $1`, id)
	if err != nil {
		return 0, fmt.Errorf("delete issue: %w", err)
	}
	return cmd.RowsAffected(), nil
}

func (r *issueRepository) StatusCounts(ctx context.Context) (domain.StatusCounts, error) {
	counts := domain.NewStatusCounts()
	rows, err := r.db.Query(ctx, `SELECT status::text, COUNT(*) FROM issues GROUP BY status`)
	if err != nil {
		return counts, fmt.Errorf("count by status: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status domain.IssueStatus
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return counts, fmt.Errorf("count by status: %w", err)
		}
		counts.ByStatus[status] = n
		counts.Total += n
	}
	if err := rows.Err(); err != nil {
		return counts, fmt.Errorf("count by status: %w", err)
	}
	return counts, nil
}

func (r *issueRepository) ListForExport(ctx context.Context, filter IssueFilter) ([]domain.Issue, error) {
	query, args := buildListQuery(filter, nil, Sort{Field: SortByCreatedAt, Order: SortDesc})
	issues, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("export issues: %w", err)
	}
	return issues, nil
}

func (r *issueRepository) query(ctx context.Context, query string, args ...any) ([]domain.Issue, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	issues, err := pgx.CollectRows(rows, scanIssue)
	if err != nil {
		return nil, err
	}
	if issues == nil {
		issues = []domain.Issue{}
	}
	return issues, nil
}

// filterPredicate only references columns of the issues table so the same
// predicate serves both the joined listing and the un-joined count.
func filterPredicate(filter IssueFilter) *predicate {
	p := &predicate{}
	if filter.Status != nil {
		p.and("i.status = " + p.bind(string(*filter.Status)))
	}
	if filter.Priority != nil {
		p.and("i.priority = " + p.bind(string(*filter.Priority)))
	}
	if filter.Severity != nil {
		p.and("i.severity = " + p.bind(string(*filter.Severity)))
	}
	if filter.CreatedBy != nil {
		p.and("i.created_by = " + p.bind(*filter.CreatedBy))
	}
	if term := strings.TrimSpace(filter.Search); term != "" {
		ph := p.bind(containsPattern(term))
		p.and(fmt.Sprintf("(i.title ILIKE %s OR i.description ILIKE %s)", ph, ph))
	}
	return p
}

func buildCountQuery(filter IssueFilter) (string, []any) {
	p := filterPredicate(filter)
	return `SELECT COUNT(*) FROM issues i` + p.where(), p.args
}

// buildListQuery renders the joined select. A nil page means unpaginated.
func buildListQuery(filter IssueFilter, page *Page, sort Sort) (string, []any) {
	p := filterPredicate(filter)
	query := issueSelect + p.where() + sort.orderBy()
	if page != nil {
		n := page.Normalize()
		query += " LIMIT " + p.bind(n.Size) + " OFFSET " + p.bind(n.Offset())
	}
	return query, p.args
}

func buildInsert(issue NewIssue) (string, []any) {
	p := &predicate{}
	columns := []string{"title", "description", "created_by", "assigned_to"}
	values := []string{
		p.bind(issue.Title),
		p.bind(issue.Description),
		p.bind(issue.CreatedBy),
		p.bind(issue.AssignedTo),
	}
	if issue.Status != nil {
		columns = append(columns, "status")
		values = append(values, p.bind(string(*issue.Status)))
		if issue.Status.IsTerminal() {
			columns = append(columns, "resolved_at")
			values = append(values, "NOW()")
		}
	}
	if issue.Priority != nil {
		columns = append(columns, "priority")
		values = append(values, p.bind(string(*issue.Priority)))
	}
	if issue.Severity != nil {
		columns = append(columns, "severity")
		values = append(values, p.bind(string(*issue.Severity)))
	}
	query := fmt.Sprintf(`INSERT INTO issues (%s) VALUES (%s) RETURNING issue_id`,
		strings.Join(columns, ", "), strings.Join(values, ", "))
	return query, p.args
}

// buildUpdate renders a partial update. ok is false when nothing would change.
// resolved_at is stamped whenever the status changes to Resolved or Closed, kept
// when the status is re-set to its current value, and cleared for any other status.
func buildUpdate(id int64, update IssueUpdate) (query string, args []any, ok bool) {
	if update.IsEmpty() {
		return "", nil, false
	}
	p := &predicate{}
	sets := []string{}
	if update.Title != nil {
		sets = append(sets, "title = "+p.bind(*update.Title))
	}
	if update.Description != nil {
		sets = append(sets, "description = "+p.bind(nullIfEmpty(*update.Description)))
	}
	if update.Status != nil {
		ph := p.bind(string(*update.Status))
		sets = append(sets, "status = "+ph)
		if update.Status.IsTerminal() {
			sets = append(sets, fmt.Sprintf("resolved_at = CASE WHEN status = %s THEN COALESCE(resolved_at, NOW()) ELSE NOW() END", ph))
		} else {
			sets = append(sets, "resolved_at = NULL")
		}
	}
	if update.Priority != nil {
		sets = append(sets, "priority = "+p.bind(string(*update.Priority)))
	}
	if update.Severity != nil {
		sets = append(sets, "severity = "+p.bind(string(*update.Severity)))
	}
	if update.ClearAssignee {
		sets = append(sets, "assigned_to = NULL")
	} else if update.AssignedTo != nil {
		sets = append(sets, "assigned_to = "+p.bind(*update.AssignedTo))
	}
	sets = append(sets, "updated_at = NOW()")

	query = fmt.Sprintf(`UPDATE issues SET %s WHERE issue_id = %s`, strings.Join(sets, ", "), p.bind(id))
	return query, p.args, true
}

func nullIfEmpty(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

func scanIssue(row pgx.CollectableRow) (domain.Issue, error) {
	var (
		issue         domain.Issue
		assigneeID    *int64
		assigneeName  *string
		assigneeEmail *string
	)
	err := row.Scan(
		&issue.ID,
		&issue.Title,
		&issue.Description,
		&issue.Status,
		&issue.Priority,
		&issue.Severity,
		&issue.CreatedBy.ID,
		&issue.CreatedBy.Name,
		&issue.CreatedBy.Email,
		&assigneeID,
		&assigneeName,
		&assigneeEmail,
		&issue.CreatedAt,
		&issue.UpdatedAt,
		&issue.ResolvedAt,
	)
	if err != nil {
		return issue, err
	}
	if assigneeID != nil {
		issue.AssignedTo = &domain.UserRef{ID: *assigneeID}
		if assigneeName != nil {
			issue.AssignedTo.Name = *assigneeName
		}
		if assigneeEmail != nil {
			issue.AssignedTo.Email = *assigneeEmail
		}
	}
	return issue, nil
}
