package handlers

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/grievance-service/internal/api/dto"
	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/service"
	apperrors "github.com/spec-kit/grievance-service/pkg/util"
)

// Organisation is the org-chart surface the admin handler drives.
type Organisation interface {
	GroupDetail(ctx context.Context, groupID string) (domain.GroupDetail, error)
	OrgChart(ctx context.Context) ([]domain.OrgChartNode, error)
	Units(ctx context.Context) ([]domain.Unit, error)
	Employees(ctx context.Context, unitID string) ([]domain.Employee, error)
	UpsertGroup(ctx context.Context, input service.GroupInput) (*domain.Group, error)
	MapUser(ctx context.Context, groupID, unitID, userCode string, position int) error
	UnmapUser(ctx context.Context, groupID, unitID, userCode string) error
}

// EmployeeRegistrar creates employee accounts.
type EmployeeRegistrar interface {
	RegisterEmployee(ctx context.Context, employee domain.Employee, password string) (*domain.Employee, error)
}

// AdminHandler serves org-chart reads to employees and writes to admins.
type AdminHandler struct {
	org       Organisation
	registrar EmployeeRegistrar
}

// NewAdminHandler constructs handler.
func NewAdminHandler(org Organisation, registrar EmployeeRegistrar) *AdminHandler {
	return &AdminHandler{org: org, registrar: registrar}
}

// GetGroupDetail GET /Admin/GetGroupDetail?groupId=.
func (h *AdminHandler) GetGroupDetail(c *fiber.Ctx) error {
	groupID := strings.TrimSpace(c.Query("groupId"))
	if groupID == "" {
		return apperrors.NewValidationError("groupId required", nil)
	}
	detail, err := h.org.GroupDetail(c.UserContext(), groupID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewGroupDetailResponse(detail)})
}

// GetOrgChart GET /Admin/GetOrgChart.
func (h *AdminHandler) GetOrgChart(c *fiber.Ctx) error {
	nodes, err := h.org.OrgChart(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewOrgChart(nodes)})
}

// GetUnits GET /Admin/GetUnits.
func (h *AdminHandler) GetUnits(c *fiber.Ctx) error {
	units, err := h.org.Units(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUnitList(units)})
}

// GetEmployees GET /Admin/GetEmployees?unitId=. Without unitId every active employee is listed.
func (h *AdminHandler) GetEmployees(c *fiber.Ctx) error {
	employees, err := h.org.Employees(c.UserContext(), strings.TrimSpace(c.Query("unitId")))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewEmployeeList(employees)})
}

// AddUpdateGroup POST /Admin/AddUpdateGroup.
func (h *AdminHandler) AddUpdateGroup(c *fiber.Ctx) error {
	var req dto.UpsertGroupRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	group, err := h.org.UpsertGroup(c.UserContext(), service.GroupInput{
		ID:         strings.TrimSpace(req.ID),
		ParentID:   req.ParentID,
		Name:       req.Name,
		Kind:       domain.GroupKind(strings.ToUpper(strings.TrimSpace(string(req.Kind)))),
		Department: req.Department,
		IsActive:   active,
	})
	if err != nil {
		return err
	}
	status := fiber.StatusOK
	if req.ID == "" {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(fiber.Map{"data": dto.NewGroupResponse(group)})
}

// MapUser POST /Admin/MapUser.
func (h *AdminHandler) MapUser(c *fiber.Ctx) error {
	var req dto.MapUserRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := h.org.MapUser(c.UserContext(), req.GroupID, req.UnitID, req.UserCode, req.Position); err != nil {
		return err
	}
	return h.detail(c, req.GroupID)
}

// UnmapUser POST /Admin/UnmapUser.
func (h *AdminHandler) UnmapUser(c *fiber.Ctx) error {
	var req dto.MapUserRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := h.org.UnmapUser(c.UserContext(), req.GroupID, req.UnitID, req.UserCode); err != nil {
		return err
	}
	return h.detail(c, req.GroupID)
}

// AddEmployee POST /Admin/AddEmployee.
func (h *AdminHandler) AddEmployee(c *fiber.Ctx) error {
	var req dto.CreateEmployeeRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	employee, err := h.registrar.RegisterEmployee(c.UserContext(), domain.Employee{
		UserCode:    req.UserCode,
		Name:        req.Name,
		Email:       req.Email,
		UnitID:      req.UnitID,
		Department:  req.Department,
		Designation: req.Designation,
		IsAdmin:     req.IsAdmin,
	}, req.Password)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewEmployeeResponse(employee)})
}

func (h *AdminHandler) detail(c *fiber.Ctx, groupID string) error {
	detail, err := h.org.GroupDetail(c.UserContext(), groupID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewGroupDetailResponse(detail)})
}
