package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/grievance-service/internal/api/dto"
	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/routing"
	"github.com/spec-kit/grievance-service/internal/trajectory"
)

const defaultTimeout = 10 * time.Second

// Config configures a Client.
type Config struct {
	BaseURL string
	Timeout time.Duration
	// OnUnauthorized runs after any 401 response, once the stored token is cleared.
	OnUnauthorized func()
}

// Client talks to the grievance service over HTTP.
type Client struct {
	baseURL        string
	timeout        time.Duration
	onUnauthorized func()

	mu    sync.RWMutex
	token string
}

// APIError is a non-2xx response rendered in the service's error envelope.
type APIError struct {
	Status  int
	Code    string
	Message string
	Details map[string]any
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("grievance api: status %d", e.Status)
	}
	return fmt.Sprintf("grievance api: %s: %s", e.Code, e.Message)
}

// IsUnauthorized reports whether err is a 401 from the service.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == fiber.StatusUnauthorized
}

// AllowedActions mirrors GET /Grievance/AllowedActions.
type AllowedActions struct {
	Role        domain.Role              `json:"role"`
	Gates       routing.Gates            `json:"gates"`
	Transitions []routing.TransitionKind `json:"transitions"`
}

// ListQuery filters the dashboard listings.
type ListQuery struct {
	Statuses []domain.GrievanceStatus
	Search   string
	Page     int
	PageSize int
}

// New builds a client.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		timeout:        timeout,
		onUnauthorized: cfg.OnUnauthorized,
	}
}

// Token returns the bearer token in use.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// SetToken replaces the bearer token.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Logout drops the session token.
func (c *Client) Logout() {
	c.SetToken("")
}

// Login authenticates and stores the issued token.
func (c *Client) Login(ctx context.Context, userCode, password string) (*dto.AuthResponse, error) {
	var out dto.AuthResponse
	agent := fiber.Post(c.url("/Auth/Login", nil)).JSON(dto.LoginRequest{UserCode: userCode, Password: password})
	if err := c.do(ctx, agent, &out); err != nil {
		return nil, err
	}
	c.SetToken(out.Token)
	return &out, nil
}

// SwitchUnit re-scopes the session to unitID and stores the new token.
func (c *Client) SwitchUnit(ctx context.Context, unitID string) (*dto.AuthResponse, error) {
	var out dto.AuthResponse
	agent := fiber.Post(c.url("/Auth/SwitchUnit", nil)).JSON(dto.SwitchUnitRequest{UnitID: unitID})
	if err := c.do(ctx, agent, &out); err != nil {
		return nil, err
	}
	c.SetToken(out.Token)
	return &out, nil
}

// Commit posts the multipart AddUpdateGrievance form.
func (c *Client) Commit(ctx context.Context, req dto.CommitGrievanceRequest) (*dto.GrievanceResponse, error) {
	args := fiber.AcquireArgs()
	defer fiber.ReleaseArgs(args)
	fields := []struct{ name, value string }{
		{dto.FormGrievanceID, req.GrievanceID},
		{dto.FormTransitionKind, req.TransitionKind},
		{dto.FormTitle, req.Title},
		{dto.FormDescription, req.Description},
		{dto.FormAssignedUserCode, req.AssignedUserCode},
		{dto.FormAssignedUserDetails, req.AssignedUserDetails},
		{dto.FormTGroupID, req.TGroupID},
		{dto.FormTUnitID, req.TUnitID},
		{dto.FormTDepartment, req.TDepartment},
		{dto.FormCommentText, req.CommentText},
	}
	for _, f := range fields {
		if f.value != "" {
			args.Set(f.name, f.value)
		}
	}
	if req.StatusID != 0 {
		args.Set(dto.FormStatusID, strconv.Itoa(req.StatusID))
	}

	var out dto.GrievanceResponse
	agent := fiber.Post(c.url("/Grievance/AddUpdateGrievance", nil)).MultipartForm(args)
	if err := c.do(ctx, agent, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetGrievance fetches one record.
func (c *Client) GetGrievance(ctx context.Context, grievanceID string) (*dto.GrievanceResponse, error) {
	var out dto.GrievanceResponse
	if err := c.get(ctx, "/Grievance/GetGrievance", url.Values{"grievanceId": {grievanceID}}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// History fetches the change log, newest first.
func (c *Client) History(ctx context.Context, grievanceID string) ([]dto.HistoryEntryResponse, error) {
	var out []dto.HistoryEntryResponse
	if err := c.get(ctx, "/Grievance/GrievanceHistory", url.Values{"grievanceId": {grievanceID}}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Trajectory fetches the projected holder path.
func (c *Client) Trajectory(ctx context.Context, grievanceID string) ([]trajectory.Node, error) {
	var out []trajectory.Node
	if err := c.get(ctx, "/Grievance/Trajectory", url.Values{"grievanceId": {grievanceID}}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AllowedActions fetches the caller's gates for a grievance.
func (c *Client) AllowedActions(ctx context.Context, grievanceID string) (*AllowedActions, error) {
	var out AllowedActions
	if err := c.get(ctx, "/Grievance/AllowedActions", url.Values{"grievanceId": {grievanceID}}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MyGrievances lists grievances the caller filed.
func (c *Client) MyGrievances(ctx context.Context, q ListQuery) ([]dto.GrievanceResponse, error) {
	var out []dto.GrievanceResponse
	if err := c.get(ctx, "/Grievance/MyGrievances", q.values(), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AssignedGrievances lists grievances the caller holds.
func (c *Client) AssignedGrievances(ctx context.Context, q ListQuery) ([]dto.GrievanceResponse, error) {
	var out []dto.GrievanceResponse
	if err := c.get(ctx, "/Grievance/AssignedGrievances", q.values(), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FollowResolutionLink calls an accept or reject link as issued. A non-empty comment is
// appended as an escaped query parameter.
func (c *Client) FollowResolutionLink(ctx context.Context, link, comment string) (*dto.VerifyResolutionResponse, error) {
	if strings.TrimSpace(link) == "" {
		return nil, errors.New("client: empty resolution link")
	}
	target := link
	if comment != "" {
		sep := "?"
		if strings.Contains(link, "?") {
			sep = "&"
		}
		target += sep + "comment=" + url.QueryEscape(comment)
	}
	var out dto.VerifyResolutionResponse
	if err := c.do(ctx, fiber.Get(target), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GroupDetail fetches a group and its ordered mappings.
func (c *Client) GroupDetail(ctx context.Context, groupID string) (*dto.GroupDetailResponse, error) {
	var out dto.GroupDetailResponse
	if err := c.get(ctx, "/Admin/GetGroupDetail", url.Values{"groupId": {groupID}}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// OrgChart fetches the flattened org chart.
func (c *Client) OrgChart(ctx context.Context) ([]dto.OrgChartRow, error) {
	var out []dto.OrgChartRow
	if err := c.get(ctx, "/Admin/GetOrgChart", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Units lists units.
func (c *Client) Units(ctx context.Context) ([]dto.UnitResponse, error) {
	var out []dto.UnitResponse
	if err := c.get(ctx, "/Admin/GetUnits", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Employees lists active employees, optionally for one unit.
func (c *Client) Employees(ctx context.Context, unitID string) ([]dto.EmployeeResponse, error) {
	var q url.Values
	if unitID != "" {
		q = url.Values{"unitId": {unitID}}
	}
	var out []dto.EmployeeResponse
	if err := c.get(ctx, "/Admin/GetEmployees", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpsertGroup creates or updates a group.
func (c *Client) UpsertGroup(ctx context.Context, req dto.UpsertGroupRequest) (*dto.GroupResponse, error) {
	var out dto.GroupResponse
	if err := c.do(ctx, fiber.Post(c.url("/Admin/AddUpdateGroup", nil)).JSON(req), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MapUser adds a user to a group's mapping list.
func (c *Client) MapUser(ctx context.Context, req dto.MapUserRequest) (*dto.GroupDetailResponse, error) {
	var out dto.GroupDetailResponse
	if err := c.do(ctx, fiber.Post(c.url("/Admin/MapUser", nil)).JSON(req), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UnmapUser removes a user from a group's mapping list.
func (c *Client) UnmapUser(ctx context.Context, req dto.MapUserRequest) (*dto.GroupDetailResponse, error) {
	var out dto.GroupDetailResponse
	if err := c.do(ctx, fiber.Post(c.url("/Admin/UnmapUser", nil)).JSON(req), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AddEmployee registers an employee account.
func (c *Client) AddEmployee(ctx context.Context, req dto.CreateEmployeeRequest) (*dto.EmployeeResponse, error) {
	var out dto.EmployeeResponse
	if err := c.do(ctx, fiber.Post(c.url("/Admin/AddEmployee", nil)).JSON(req), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (q ListQuery) values() url.Values {
	v := url.Values{}
	if len(q.Statuses) > 0 {
		parts := make([]string, 0, len(q.Statuses))
		for _, s := range q.Statuses {
			parts = append(parts, strconv.Itoa(int(s)))
		}
		v.Set("status", strings.Join(parts, ","))
	}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.PageSize > 0 {
		v.Set("page_size", strconv.Itoa(q.PageSize))
	}
	return v
}

func (c *Client) url(path string, query url.Values) string {
	if len(query) == 0 {
		return c.baseURL + path
	}
	return c.baseURL + path + "?" + query.Encode()
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, fiber.Get(c.url(path, query)), out)
}

// do sends the request and decodes the {"data": ...} envelope into out.
func (c *Client) do(ctx context.Context, agent *fiber.Agent, out any) error {
	if err := ctx.Err(); err != nil {
		fiber.ReleaseAgent(agent)
		return err
	}
	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	agent.Timeout(timeout)
	if token := c.Token(); token != "" {
		agent.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}

	status, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("grievance api: %w", errors.Join(errs...))
	}
	if status == fiber.StatusUnauthorized {
		c.teardown()
	}
	if status < fiber.StatusOK || status >= fiber.StatusMultipleChoices {
		return decodeError(status, body)
	}
	if out == nil {
		return nil
	}
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("grievance api: decode response: %w", err)
	}
	if len(envelope.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("grievance api: decode data: %w", err)
	}
	return nil
}

func (c *Client) teardown() {
	c.Logout()
	if c.onUnauthorized != nil {
		c.onUnauthorized()
	}
}

func decodeError(status int, body []byte) error {
	apiErr := &APIError{Status: status}
	var envelope struct {
		Error struct {
			Code    string         `json:"code"`
			Message string         `json:"message"`
			Details map[string]any `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		apiErr.Code = envelope.Error.Code
		apiErr.Message = envelope.Error.Message
		apiErr.Details = envelope.Error.Details
	}
	return apiErr
}
