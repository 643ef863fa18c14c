package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/issue-tracker/internal/domain"
)

var issueRowColumns = []string{
	"issue_id", "title", "description", "status", "priority", "severity",
	"creator_id", "creator_name", "creator_email",
	"assignee_id", "assignee_name", "assignee_email",
	"created_at", "updated_at", "resolved_at",
}

var fixedTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func addIssueRow(rows *pgxmock.Rows, id int64, assignee *int64) *pgxmock.Rows {
	var name, email *string
	if assignee != nil {
		name, email = ptr("Bo"), ptr("bo@example.com")
	}
	return rows.AddRow(
		id, "Issue", (*string)(nil), domain.IssueStatusOpen, domain.IssuePriorityMedium, domain.IssueSeverityMinor,
		int64(1), "Ada", "ada@example.com",
		assignee, name, email,
		fixedTime, fixedTime, (*time.Time)(nil),
	)
}

func TestIssueRepository_GetByIDMapsAssignee(t *testing.T) {
	db := newMockDB(t)
	repo := NewIssueRepository(db)

	db.ExpectQuery(regexp.QuoteMeta("WHERE i.issue_id = $1")).
		WithArgs(int64(3)).
		WillReturnRows(addIssueRow(pgxmock.NewRows(issueRowColumns), 3, ptr(int64(8))))

	issue, err := repo.GetByID(context.Background(), 3)
	require.NoError(t, err)
	require.NotNil(t, issue)
	assert.Equal(t, int64(3), issue.ID)
	assert.Equal(t, domain.UserRef{ID: 1, Name: "Ada", Email: "ada@example.com"}, issue.CreatedBy)
	require.NotNil(t, issue.AssignedTo)
	assert.Equal(t, domain.UserRef{ID: 8, Name: "Bo", Email: "bo@example.com"}, *issue.AssignedTo)
	assert.Nil(t, issue.Description)
	assert.Nil(t, issue.ResolvedAt)
}

func TestIssueRepository_GetByIDNullAssignee(t *testing.T) {
	db := newMockDB(t)
	repo := NewIssueRepository(db)

	db.ExpectQuery(regexp.QuoteMeta("WHERE i.issue_id = $1")).
		WithArgs(int64(4)).
		WillReturnRows(addIssueRow(pgxmock.NewRows(issueRowColumns), 4, nil))

	issue, err := repo.GetByID(context.Background(), 4)
	require.NoError(t, err)
	require.NotNil(t, issue)
	assert.Nil(t, issue.AssignedTo)
}

func TestIssueRepository_GetByIDMissingReturnsNil(t *testing.T) {
	db := newMockDB(t)
	repo := NewIssueRepository(db)

	db.ExpectQuery(regexp.QuoteMeta("WHERE i.issue_id = $1")).
		WithArgs(int64(99)).
		WillReturnRows(pgxmock.NewRows(issueRowColumns))

	issue, err := repo.GetByID(context.Background(), 99)
	require.NoError(t, err)
	assert.Nil(t, issue)
}

func TestIssueRepository_GetByIDWrapsQueryError(t *testing.T) {
	db := newMockDB(t)
	repo := NewIssueRepository(db)
	boom := errors.New("connection reset")

	db.ExpectQuery(regexp.QuoteMeta("WHERE i.issue_id = $1")).
		WithArgs(int64(1)).
		WillReturnError(boom)

	_, err := repo.GetByID(context.Background(), 1)
	assert.ErrorIs(t, err, boom)
}

func TestIssueRepository_ListSecondPage(t *testing.T) {
	db := newMockDB(t)
	repo := NewIssueRepository(db)

	db.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM issues i")).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(12)))
	rows := pgxmock.NewRows(issueRowColumns)
	for id := int64(6); id <= 10; id++ {
		addIssueRow(rows, id, nil)
	}
	db.ExpectQuery(regexp.QuoteMeta("LIMIT $1 OFFSET $2")).
		WithArgs(5, 5).
		WillReturnRows(rows)

	list, err := repo.List(context.Background(), IssueFilter{}, Page{Number: 2, Size: 5}, Sort{})
	require.NoError(t, err)
	assert.Equal(t, int64(12), list.Total)
	assert.Equal(t, 3, list.TotalPages)
	assert.Equal(t, Page{Number: 2, Size: 5}, list.Page)
	require.Len(t, list.Issues, 5)
	for i, issue := range list.Issues {
		assert.Equal(t, int64(6+i), issue.ID)
	}
}

func TestIssueRepository_ListTotalCountsAllMatchingRows(t *testing.T) {
	db := newMockDB(t)
	repo := NewIssueRepository(db)
	status := domain.IssueStatusOpen

	db.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM issues i WHERE i.status = $1")).
		WithArgs("Open").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(3)))
	db.ExpectQuery(regexp.QuoteMeta("WHERE i.status = $1 ORDER BY i.created_at DESC, i.issue_id DESC LIMIT $2 OFFSET $3")).
		WithArgs("Open", 1, 0).
		WillReturnRows(addIssueRow(pgxmock.NewRows(issueRowColumns), 1, nil))

	list, err := repo.List(context.Background(), IssueFilter{Status: &status}, Page{Number: 1, Size: 1}, Sort{})
	require.NoError(t, err)
	assert.Len(t, list.Issues, 1)
	assert.Equal(t, int64(3), list.Total)
	assert.Equal(t, 3, list.TotalPages)
}

func TestIssueRepository_ListEmptyIsNonNil(t *testing.T) {
	db := newMockDB(t)
	repo := NewIssueRepository(db)

	db.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM issues i")).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(0)))
	db.ExpectQuery(regexp.QuoteMeta("LIMIT $1 OFFSET $2")).
		WithArgs(DefaultPageSize, 0).
		WillReturnRows(pgxmock.NewRows(issueRowColumns))

	list, err := repo.List(context.Background(), IssueFilter{}, Page{}, Sort{})
	require.NoError(t, err)
	assert.NotNil(t, list.Issues)
	assert.Empty(t, list.Issues)
	assert.Equal(t, 0, list.TotalPages)
}

func TestIssueRepository_CreateReturnsID(t *testing.T) {
	db := newMockDB(t)
	repo := NewIssueRepository(db)

	db.ExpectQuery(regexp.QuoteMeta("INSERT INTO issues (title, description, created_by, assigned_to) VALUES ($1, $2, $3, $4) RETURNING issue_id")).
		WithArgs("Bug A", (*string)(nil), int64(3), ptr(int64(8))).
		WillReturnRows(pgxmock.NewRows([]string{"issue_id"}).AddRow(int64(21)))

	id, err := repo.Create(context.Background(), NewIssue{Title: "Bug A", CreatedBy: 3, AssignedTo: ptr(int64(8))})
	require.NoError(t, err)
	assert.Equal(t, int64(21), id)
}

func TestIssueRepository_UpdateRowsAffected(t *testing.T) {
	db := newMockDB(t)
	repo := NewIssueRepository(db)

	db.ExpectExec(regexp.QuoteMeta("UPDATE issues SET title = $1, updated_at = NOW() WHERE issue_id = $2")).
		WithArgs("New", int64(5)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	db.ExpectExec(regexp.QuoteMeta("UPDATE issues SET title = $1, updated_at = NOW() WHERE issue_id = $2")).
		WithArgs("New", int64(6)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	affected, err := repo.Update(context.Background(), 5, IssueUpdate{Title: ptr("New")})
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	affected, err = repo.Update(context.Background(), 6, IssueUpdate{Title: ptr("New")})
	require.NoError(t, err)
	assert.Equal(t, int64(0), affected)
}

func TestIssueRepository_EmptyUpdateSkipsDatabase(t *testing.T) {
	db := newMockDB(t)
	repo := NewIssueRepository(db)

	affected, err := repo.Update(context.Background(), 5, IssueUpdate{})
	require.NoError(t, err)
	assert.Equal(t, int64(0), affected)
}

func TestIssueRepository_UpdateStatusRestampsResolvedAt(t *testing.T) {
	db := newMockDB(t)
	repo := NewIssueRepository(db)

	db.ExpectExec(regexp.QuoteMeta("status = $1, resolved_at = CASE WHEN status = $1 THEN COALESCE(resolved_at, NOW()) ELSE NOW() END")).
		WithArgs("Closed", int64(2)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	affected, err := repo.UpdateStatus(context.Background(), 2, domain.IssueStatusClosed)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)
}

func TestIssueRepository_Delete(t *testing.T) {
	db := newMockDB(t)
	repo := NewIssueRepository(db)

	db.ExpectExec(regexp.QuoteMeta("DELETE FROM issues WHERE issue_id = $1")).
		WithArgs(int64(7)).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	affected, err := repo.Delete(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(0), affected)
}

func TestIssueRepository_StatusCountsZeroFillsMissingStatuses(t *testing.T) {
	db := newMockDB(t)
	repo := NewIssueRepository(db)

	db.ExpectQuery(regexp.QuoteMeta("SELECT status::text, COUNT(*) FROM issues GROUP BY status")).
		WillReturnRows(pgxmock.NewRows([]string{"status", "count"}).
			AddRow(domain.IssueStatusOpen, int64(3)).
			AddRow(domain.IssueStatusClosed, int64(2)))

	counts, err := repo.StatusCounts(context.Background())
	require.NoError(t, err)
	assert.Len(t, counts.ByStatus, len(domain.IssueStatuses))
	assert.Equal(t, int64(3), counts.ByStatus[domain.IssueStatusOpen])
	assert.Equal(t, int64(0), counts.ByStatus[domain.IssueStatusInProgress])
	assert.Equal(t, int64(0), counts.ByStatus[domain.IssueStatusResolved])
	assert.Equal(t, int64(2), counts.ByStatus[domain.IssueStatusClosed])
	assert.Equal(t, int64(5), counts.Total)
}

func TestIssueRepository_ListForExportIsUnpaginated(t *testing.T) {
	db := newMockDB(t)
	repo := NewIssueRepository(db)

	db.ExpectQuery(regexp.QuoteMeta("(i.title ILIKE $1 OR i.description ILIKE $1) ORDER BY i.created_at DESC, i.issue_id DESC")).
		WithArgs("%crash%").
		WillReturnRows(pgxmock.NewRows(issueRowColumns))

	issues, err := repo.ListForExport(context.Background(), IssueFilter{Search: "crash"})
	require.NoError(t, err)
	assert.NotNil(t, issues)
	assert.Empty(t, issues)
}
