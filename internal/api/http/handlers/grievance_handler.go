package handlers

import (
	"context"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/grievance-service/internal/api/dto"
	"github.com/spec-kit/grievance-service/internal/auth"
	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/service"
	"github.com/spec-kit/grievance-service/internal/trajectory"
	apperrors "github.com/spec-kit/grievance-service/pkg/util"
)

// Grievances is the grievance workflow the handler drives.
type Grievances interface {
	Commit(ctx context.Context, p *auth.Principal, input service.CommitInput) (*domain.Grievance, error)
	Get(ctx context.Context, p *auth.Principal, grievanceID string) (*domain.Grievance, error)
	History(ctx context.Context, p *auth.Principal, grievanceID string) ([]domain.HistoryEntry, error)
	Trajectory(ctx context.Context, p *auth.Principal, grievanceID string) ([]trajectory.Node, error)
	AllowedActions(ctx context.Context, p *auth.Principal, grievanceID string) (*service.AllowedActions, error)
	ListAssigned(ctx context.Context, p *auth.Principal, filter service.ListFilter) ([]domain.Grievance, error)
	ListCreated(ctx context.Context, p *auth.Principal, filter service.ListFilter) ([]domain.Grievance, error)
	VerifyResolution(ctx context.Context, token, comment string) (*domain.Grievance, service.Decision, error)
}

// GrievanceHandler manages grievance endpoints.
type GrievanceHandler struct {
	service Grievances
}

// NewGrievanceHandler constructs handler.
func NewGrievanceHandler(grievances Grievances) *GrievanceHandler {
	return &GrievanceHandler{service: grievances}
}

// AddUpdateGrievance POST /Grievance/AddUpdateGrievance (multipart form).
func (h *GrievanceHandler) AddUpdateGrievance(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	req, err := parseCommitForm(c)
	if err != nil {
		return err
	}
	if req.GrievanceID != "" && strings.TrimSpace(req.CommentText) == "" {
		return apperrors.NewValidationError("CommentText required", map[string]any{"field": dto.FormCommentText})
	}

	g, err := h.service.Commit(c.UserContext(), principal, service.CommitInput{
		GrievanceID:         req.GrievanceID,
		Kind:                req.TransitionKind,
		Title:               req.Title,
		Description:         req.Description,
		AssignedUserCode:    req.AssignedUserCode,
		AssignedUserDetails: req.AssignedUserDetails,
		TGroupID:            req.TGroupID,
		TUnitID:             req.TUnitID,
		TDepartment:         req.TDepartment,
		CommentText:         req.CommentText,
		StatusID:            req.StatusID,
	})
	if err != nil {
		return err
	}
	status := fiber.StatusOK
	if req.GrievanceID == "" {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(fiber.Map{"data": dto.NewGrievanceResponse(g)})
}

// GetGrievance GET /Grievance/GetGrievance?grievanceId=.
func (h *GrievanceHandler) GetGrievance(c *fiber.Ctx) error {
	principal, id, err := principalAndID(c)
	if err != nil {
		return err
	}
	g, err := h.service.Get(c.UserContext(), principal, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewGrievanceResponse(g)})
}

// GrievanceHistory GET /Grievance/GrievanceHistory?grievanceId=. Entries are newest first.
func (h *GrievanceHandler) GrievanceHistory(c *fiber.Ctx) error {
	principal, id, err := principalAndID(c)
	if err != nil {
		return err
	}
	entries, err := h.service.History(c.UserContext(), principal, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewHistoryResponse(entries)})
}

// Trajectory GET /Grievance/Trajectory?grievanceId=.
func (h *GrievanceHandler) Trajectory(c *fiber.Ctx) error {
	principal, id, err := principalAndID(c)
	if err != nil {
		return err
	}
	nodes, err := h.service.Trajectory(c.UserContext(), principal, id)
	if err != nil {
		return err
	}
	if nodes == nil {
		nodes = []trajectory.Node{}
	}
	return c.JSON(fiber.Map{"data": nodes})
}

// AllowedActions GET /Grievance/AllowedActions?grievanceId=.
func (h *GrievanceHandler) AllowedActions(c *fiber.Ctx) error {
	principal, id, err := principalAndID(c)
	if err != nil {
		return err
	}
	actions, err := h.service.AllowedActions(c.UserContext(), principal, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": actions})
}

// MyGrievances GET /Grievance/MyGrievances.
func (h *GrievanceHandler) MyGrievances(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	items, err := h.service.ListCreated(c.UserContext(), principal, parseListFilter(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewGrievanceList(items)})
}

// AssignedGrievances GET /Grievance/AssignedGrievances.
func (h *GrievanceHandler) AssignedGrievances(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	items, err := h.service.ListAssigned(c.UserContext(), principal, parseListFilter(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewGrievanceList(items)})
}

// VerifyResolution GET /Grievance/VerifyResolution?token=&comment=. Public; the signed
// token identifies the grievance, round and decision.
func (h *GrievanceHandler) VerifyResolution(c *fiber.Ctx) error {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		return apperrors.NewValidationError("token required", nil)
	}
	g, decision, err := h.service.VerifyResolution(c.UserContext(), token, c.Query("comment"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.VerifyResolutionResponse{
		Accepted:  decision == service.DecisionAccept,
		Grievance: dto.NewGrievanceResponse(g),
	}})
}

func principalAndID(c *fiber.Ctx) (*auth.Principal, string, error) {
	principal, err := requirePrincipal(c)
	if err != nil {
		return nil, "", err
	}
	id := strings.TrimSpace(c.Query("grievanceId"))
	if id == "" {
		return nil, "", apperrors.NewValidationError("grievanceId required", nil)
	}
	return principal, id, nil
}

func parseCommitForm(c *fiber.Ctx) (dto.CommitGrievanceRequest, error) {
	req := dto.CommitGrievanceRequest{
		GrievanceID:         strings.TrimSpace(c.FormValue(dto.FormGrievanceID)),
		TransitionKind:      strings.TrimSpace(c.FormValue(dto.FormTransitionKind)),
		Title:               c.FormValue(dto.FormTitle),
		Description:         c.FormValue(dto.FormDescription),
		AssignedUserCode:    strings.TrimSpace(c.FormValue(dto.FormAssignedUserCode)),
		AssignedUserDetails: c.FormValue(dto.FormAssignedUserDetails),
		TGroupID:            strings.TrimSpace(c.FormValue(dto.FormTGroupID)),
		TUnitID:             strings.TrimSpace(c.FormValue(dto.FormTUnitID)),
		TDepartment:         c.FormValue(dto.FormTDepartment),
		CommentText:         c.FormValue(dto.FormCommentText),
	}
	if raw := strings.TrimSpace(c.FormValue(dto.FormStatusID)); raw != "" {
		status, err := strconv.Atoi(raw)
		if err != nil {
			return req, apperrors.NewValidationError("statusId must be numeric", map[string]any{"statusId": raw})
		}
		req.StatusID = status
	}
	return req, nil
}

func parseListFilter(c *fiber.Ctx) service.ListFilter {
	filter := service.ListFilter{}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			if n, err := strconv.Atoi(strings.TrimSpace(part)); err == nil {
				filter.Statuses = append(filter.Statuses, domain.GrievanceStatus(n))
			}
		}
	}
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		filter.SearchTerm = &search
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
