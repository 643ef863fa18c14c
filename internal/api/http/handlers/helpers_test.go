package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/issue-tracker/internal/api/http"
	"github.com/spec-kit/issue-tracker/internal/api/http/handlers"
	"github.com/spec-kit/issue-tracker/internal/auth"
	"github.com/spec-kit/issue-tracker/internal/domain"
	"github.com/spec-kit/issue-tracker/internal/observability"
	"github.com/spec-kit/issue-tracker/internal/repository"
	"github.com/spec-kit/issue-tracker/internal/service"
	apperrors "github.com/spec-kit/issue-tracker/pkg/util"
)

const validToken = "valid-token"

var testIdentity = &domain.Identity{UserID: 1, Email: "ada@example.com", Name: "Ada", TokenID: "jti-1"}

type stubVerifier struct{}

func (stubVerifier) VerifyToken(_ context.Context, token string) (*domain.Identity, error) {
	if token == validToken {
		return testIdentity, nil
	}
	return nil, apperrors.NewUnauthorizedCode(apperrors.CodeTokenInvalid, "invalid token")
}

func (stubVerifier) DecodeWithoutVerification(string) *auth.Claims { return nil }

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

type MockIssueService struct {
	mock.Mock
}

func (m *MockIssueService) ListIssues(ctx context.Context, filter repository.IssueFilter, page repository.Page, sort repository.Sort) (*repository.IssueList, error) {
	args := m.Called(ctx, filter, page, sort)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.IssueList), args.Error(1)
}

func (m *MockIssueService) ListMyIssues(ctx context.Context, identity *domain.Identity, filter repository.IssueFilter, page repository.Page, sort repository.Sort) (*repository.IssueList, error) {
	args := m.Called(ctx, identity, filter, page, sort)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.IssueList), args.Error(1)
}

func (m *MockIssueService) GetIssue(ctx context.Context, id int64) (*domain.Issue, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Issue), args.Error(1)
}

func (m *MockIssueService) CreateIssue(ctx context.Context, identity *domain.Identity, input service.IssueCreateInput) (*domain.Issue, error) {
	args := m.Called(ctx, identity, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Issue), args.Error(1)
}

func (m *MockIssueService) UpdateIssue(ctx context.Context, identity *domain.Identity, id int64, update repository.IssueUpdate) (*domain.Issue, error) {
	args := m.Called(ctx, identity, id, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Issue), args.Error(1)
}

func (m *MockIssueService) UpdateIssueStatus(ctx context.Context, identity *domain.Identity, id int64, status domain.IssueStatus) (*domain.Issue, error) {
	args := m.Called(ctx, identity, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Issue), args.Error(1)
}

func (m *MockIssueService) DeleteIssue(ctx context.Context, identity *domain.Identity, id int64) error {
	return m.Called(ctx, identity, id).Error(0)
}

func (m *MockIssueService) StatusCounts(ctx context.Context) (domain.StatusCounts, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.StatusCounts), args.Error(1)
}

func (m *MockIssueService) ExportIssues(ctx context.Context, filter repository.IssueFilter) ([]domain.Issue, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Issue), args.Error(1)
}

type MockAccountService struct {
	mock.Mock
}

func (m *MockAccountService) Register(ctx context.Context, name, email, password string) (*domain.User, string, time.Time, error) {
	args := m.Called(ctx, name, email, password)
	if args.Get(0) == nil {
		return nil, "", time.Time{}, args.Error(3)
	}
	return args.Get(0).(*domain.User), args.String(1), args.Get(2).(time.Time), args.Error(3)
}

func (m *MockAccountService) Login(ctx context.Context, email, password string) (*domain.User, string, time.Time, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, "", time.Time{}, args.Error(3)
	}
	return args.Get(0).(*domain.User), args.String(1), args.Get(2).(time.Time), args.Error(3)
}

func (m *MockAccountService) Logout(ctx context.Context, identity *domain.Identity) {
	m.Called(ctx, identity)
}

func (m *MockAccountService) Me(ctx context.Context, identity *domain.Identity) (*domain.User, error) {
	args := m.Called(ctx, identity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockAccountService) ListUsers(ctx context.Context) ([]domain.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.User), args.Error(1)
}

func (m *MockAccountService) DisableAccount(ctx context.Context, identity *domain.Identity) error {
	return m.Called(ctx, identity).Error(0)
}

func (m *MockAccountService) PurgeAccount(ctx context.Context, identity *domain.Identity) error {
	return m.Called(ctx, identity).Error(0)
}

type MockActivityReader struct {
	mock.Mock
}

func (m *MockActivityReader) ListForIssue(ctx context.Context, issueID int64) ([]domain.IssueActivity, error) {
	args := m.Called(ctx, issueID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.IssueActivity), args.Error(1)
}

type testServer struct {
	app      *fiber.App
	issues   *MockIssueService
	accounts *MockAccountService
	activity *MockActivityReader
}

func newTestServer(t *testing.T, readiness ...error) *testServer {
	t.Helper()
	var pgErr, redisErr error
	if len(readiness) == 2 {
		pgErr, redisErr = readiness[0], readiness[1]
	}

	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	app := httptransport.NewApp("issue-tracker-test", 1<<20, logger)
	httptransport.RegisterMiddlewares(app, logger, metrics, 5*time.Second)

	issues := new(MockIssueService)
	accounts := new(MockAccountService)
	activity := new(MockActivityReader)
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler("issue-tracker", "test", stubPinger{pgErr}, stubPinger{redisErr}, metrics),
		Auth:           handlers.NewAuthHandler(accounts),
		Users:          handlers.NewUsersHandler(accounts),
		Issues:         handlers.NewIssuesHandler(issues),
		Activity:       handlers.NewActivityHandler(issues, activity),
		AuthMiddleware: auth.NewAuthMiddleware(stubVerifier{}, logger),
	})
	return &testServer{app: app, issues: issues, accounts: accounts, activity: activity}
}

func (s *testServer) do(t *testing.T, method, target string, body any, authenticated bool) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = bytes.NewBufferString(b)
		default:
			raw, err := json.Marshal(b)
			require.NoError(t, err)
			reader = bytes.NewReader(raw)
		}
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authenticated {
		req.Header.Set("Authorization", "Bearer "+validToken)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func ptr[T any](v T) *T { return &v }

func sampleIssue(id int64) *domain.Issue {
	ts := time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)
	return &domain.Issue{
		ID:        id,
		Title:     "Login fails",
		Status:    domain.IssueStatusOpen,
		Priority:  domain.IssuePriorityMedium,
		Severity:  domain.IssueSeverityMinor,
		CreatedBy: domain.UserRef{ID: 1, Name: "Ada", Email: "ada@example.com"},
		CreatedAt: ts,
		UpdatedAt: ts,
	}
}
