package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/grievance-service/internal/api/http/handlers"
	"github.com/spec-kit/grievance-service/internal/auth"
	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/observability"
	"github.com/spec-kit/grievance-service/internal/service"
	"github.com/spec-kit/grievance-service/internal/trajectory"
	apperrors "github.com/spec-kit/grievance-service/pkg/util"
)

type stubGrievances struct {
	commits   []service.CommitInput
	commitErr error
	getErr    error
}

func (s *stubGrievances) Commit(_ context.Context, _ *auth.Principal, input service.CommitInput) (*domain.Grievance, error) {
	s.commits = append(s.commits, input)
	if s.commitErr != nil {
		return nil, s.commitErr
	}
	id := input.GrievanceID
	if id == "" {
		id = "g-new"
	}
	return &domain.Grievance{ID: id, Title: input.Title, StatusID: domain.StatusNew, Round: 1, AssignedUserCode: "N1"}, nil
}

func (s *stubGrievances) Get(_ context.Context, _ *auth.Principal, id string) (*domain.Grievance, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return &domain.Grievance{ID: id, Round: 1}, nil
}

func (s *stubGrievances) History(context.Context, *auth.Principal, string) ([]domain.HistoryEntry, error) {
	return []domain.HistoryEntry{{ID: "h-2"}, {ID: "h-1"}}, nil
}

func (s *stubGrievances) Trajectory(context.Context, *auth.Principal, string) ([]trajectory.Node, error) {
	return nil, nil
}

func (s *stubGrievances) AllowedActions(context.Context, *auth.Principal, string) (*service.AllowedActions, error) {
	return &service.AllowedActions{Role: domain.RoleNodal}, nil
}

func (s *stubGrievances) ListAssigned(context.Context, *auth.Principal, service.ListFilter) ([]domain.Grievance, error) {
	return nil, nil
}

func (s *stubGrievances) ListCreated(context.Context, *auth.Principal, service.ListFilter) ([]domain.Grievance, error) {
	return []domain.Grievance{{ID: "g-1"}}, nil
}

func (s *stubGrievances) VerifyResolution(_ context.Context, token, _ string) (*domain.Grievance, service.Decision, error) {
	if token != "good" {
		return nil, "", apperrors.NewValidationError("invalid or expired resolution link", nil)
	}
	return &domain.Grievance{ID: "g-1", Round: 1, ResolutionAccepted: true}, service.DecisionAccept, nil
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

// fakeAuth authenticates "Bearer admin" and "Bearer user" without tokens.
func fakeAuth(c *fiber.Ctx) error {
	switch c.Get(fiber.HeaderAuthorization) {
	case "Bearer admin":
		auth.WithPrincipal(c, &auth.Principal{Employee: &domain.Employee{UserCode: "A1"}, UnitID: "HQ", IsAdmin: true})
	case "Bearer user":
		auth.WithPrincipal(c, &auth.Principal{Employee: &domain.Employee{UserCode: "E1"}, UnitID: "U1"})
	default:
		return apperrors.NewUnauthorized("missing bearer token")
	}
	return c.Next()
}

func newTestApp(t *testing.T, grievances *stubGrievances, ready error) *fiber.App {
	t.Helper()
	app := fiber.New()
	metrics := observability.NewMetrics()
	RegisterMiddlewares(app, zap.NewNop(), metrics, 0)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("grievance-service", "test", map[string]handlers.Pinger{"postgres": stubPinger{err: ready}}),
		Auth:           handlers.NewAuthHandler(nil),
		Grievances:     handlers.NewGrievanceHandler(grievances),
		Admin:          handlers.NewAdminHandler(nil, nil),
		AuthMiddleware: fakeAuth,
		Metrics:        metrics.Handler(),
	})
	return app
}

func multipartRequest(t *testing.T, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())
	req := httptest.NewRequest(http.MethodPost, "/Grievance/AddUpdateGrievance", &body)
	req.Header.Set(fiber.HeaderContentType, w.FormDataContentType())
	req.Header.Set(fiber.HeaderAuthorization, "Bearer user")
	return req
}

type errorBody struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, v), string(raw))
}

func TestCommitWithoutCommentIsRejectedBeforeService(t *testing.T) {
	grievances := &stubGrievances{}
	app := newTestApp(t, grievances, nil)

	resp, err := app.Test(multipartRequest(t, map[string]string{
		"grievanceId":      "g-1",
		"transitionKind":   "TO_NODAL_OFFICER",
		"assignedUserCode": "N1",
		"CommentText":      "   ",
	}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body errorBody
	decode(t, resp, &body)
	assert.Equal(t, "VALIDATION_FAILED", body.Error.Code)
	assert.Empty(t, grievances.commits)
}

func TestCommitParsesMultipartForm(t *testing.T) {
	grievances := &stubGrievances{}
	app := newTestApp(t, grievances, nil)

	resp, err := app.Test(multipartRequest(t, map[string]string{
		"grievanceId":         "g-9",
		"transitionKind":      "TO_HQ_GROUP",
		"assignedUserCode":    " H1 ",
		"assignedUserDetails": "Hana (HOD)",
		"TGroupId":            "g-hod",
		"TUnitId":             "HQ",
		"TDepartment":         "Finance",
		"CommentText":         "escalating",
		"statusId":            "2",
	}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.Len(t, grievances.commits, 1)
	got := grievances.commits[0]
	assert.Equal(t, service.CommitInput{
		GrievanceID:         "g-9",
		Kind:                "TO_HQ_GROUP",
		AssignedUserCode:    "H1",
		AssignedUserDetails: "Hana (HOD)",
		TGroupID:            "g-hod",
		TUnitID:             "HQ",
		TDepartment:         "Finance",
		CommentText:         "escalating",
		StatusID:            2,
	}, got)

	var body struct {
		Data struct {
			ID       string `json:"id"`
			StatusID int    `json:"statusId"`
		} `json:"data"`
	}
	decode(t, resp, &body)
	assert.Equal(t, "g-9", body.Data.ID)
}

func TestCommitCreatesWithStatusCreated(t *testing.T) {
	grievances := &stubGrievances{}
	app := newTestApp(t, grievances, nil)

	resp, err := app.Test(multipartRequest(t, map[string]string{"title": "Broken cooler"}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Len(t, grievances.commits, 1)
	assert.Equal(t, "Broken cooler", grievances.commits[0].Title)
}

func TestCommitRejectsNonNumericStatus(t *testing.T) {
	grievances := &stubGrievances{}
	app := newTestApp(t, grievances, nil)

	resp, err := app.Test(multipartRequest(t, map[string]string{
		"grievanceId": "g-1",
		"CommentText": "closing",
		"statusId":    "closed",
	}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, grievances.commits)
}

func TestServiceErrorsRenderAsEnvelope(t *testing.T) {
	grievances := &stubGrievances{getErr: apperrors.NewForbidden("access denied")}
	app := newTestApp(t, grievances, nil)

	req := httptest.NewRequest(http.MethodGet, "/Grievance/GetGrievance?grievanceId=g-1", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer user")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	var body errorBody
	decode(t, resp, &body)
	assert.Equal(t, "FORBIDDEN", body.Error.Code)
	assert.Equal(t, "access denied", body.Error.Message)

	grievances.getErr = errors.New("database exploded")
	resp, err = app.Test(req.Clone(context.Background()))
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	decode(t, resp, &body)
	assert.Equal(t, "internal server error", body.Error.Message)
}

func TestRouteProtection(t *testing.T) {
	app := newTestApp(t, &stubGrievances{}, nil)
	cases := []struct {
		name   string
		method string
		path   string
		token  string
		status int
	}{
		{"grievance needs auth", http.MethodGet, "/Grievance/MyGrievances", "", http.StatusUnauthorized},
		{"grievance with auth", http.MethodGet, "/Grievance/MyGrievances", "user", http.StatusOK},
		{"history needs id", http.MethodGet, "/Grievance/GrievanceHistory", "user", http.StatusBadRequest},
		{"verify is public", http.MethodGet, "/Grievance/VerifyResolution?token=good", "", http.StatusOK},
		{"verify bad token", http.MethodGet, "/Grievance/VerifyResolution?token=bad", "", http.StatusBadRequest},
		{"admin write needs admin", http.MethodPost, "/Admin/MapUser", "user", http.StatusForbidden},
		{"unknown route", http.MethodGet, "/nope", "", http.StatusNotFound},
		{"liveness", http.MethodGet, "/health/live", "", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			if tc.token != "" {
				req.Header.Set(fiber.HeaderAuthorization, "Bearer "+tc.token)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tc.status, resp.StatusCode)
			assert.NotEmpty(t, resp.Header.Get(fiber.HeaderXRequestID))
		})
	}
}

func TestReadinessReportsDependencies(t *testing.T) {
	app := newTestApp(t, &stubGrievances{}, errors.New("connection refused"))
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	var body errorBody
	decode(t, resp, &body)
	assert.Equal(t, "DEPENDENCY_UNAVAILABLE", body.Error.Code)
	assert.Equal(t, "connection refused", body.Error.Details["postgres"])
}

func TestMetricsEndpoint(t *testing.T) {
	app := newTestApp(t, &stubGrievances{}, nil)
	_, err := app.Test(httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.NoError(t, err)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "http_requests_total")
	assert.Contains(t, string(raw), `path="/health/live"`)
}
