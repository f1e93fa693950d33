package dto

import (
	"time"

	"github.com/spec-kit/grievance-service/internal/domain"
)

// UpsertGroupRequest payload for POST /Admin/AddUpdateGroup. An empty ID creates.
type UpsertGroupRequest struct {
	ID         string           `json:"id"`
	ParentID   *string          `json:"parentId"`
	Name       string           `json:"name"`
	Kind       domain.GroupKind `json:"kind"`
	Department string           `json:"department"`
	IsActive   *bool            `json:"isActive"`
}

// MapUserRequest payload for POST /Admin/MapUser and /Admin/UnmapUser.
type MapUserRequest struct {
	GroupID  string `json:"groupId"`
	UnitID   string `json:"unitId"`
	UserCode string `json:"userCode"`
	Position int    `json:"position"`
}

// CreateEmployeeRequest payload for POST /Admin/AddEmployee.
type CreateEmployeeRequest struct {
	UserCode    string `json:"userCode"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	UnitID      string `json:"unitId"`
	Department  string `json:"department"`
	Designation string `json:"designation"`
	IsAdmin     bool   `json:"isAdmin"`
}

// UnitResponse is the wire form of a unit.
type UnitResponse struct {
	ID   string `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
	IsHQ bool   `json:"isHq"`
}

// EmployeeResponse is the wire form of an employee. Password hashes never leave the service.
type EmployeeResponse struct {
	UserCode    string `json:"userCode"`
	Name        string `json:"name"`
	Email       string `json:"email,omitempty"`
	UnitID      string `json:"unitId"`
	Department  string `json:"department,omitempty"`
	Designation string `json:"designation,omitempty"`
	Details     string `json:"details"`
	IsAdmin     bool   `json:"isAdmin"`
	Active      bool   `json:"active"`
}

// GroupResponse is the wire form of a group.
type GroupResponse struct {
	ID         string           `json:"id"`
	ParentID   *string          `json:"parentId"`
	Name       string           `json:"name"`
	Kind       domain.GroupKind `json:"kind"`
	Department string           `json:"department,omitempty"`
	IsActive   bool             `json:"isActive"`
	UpdatedAt  time.Time        `json:"updatedAt"`
}

// GroupMemberResponse is one mapping row.
type GroupMemberResponse struct {
	UnitID      string `json:"unitId"`
	UserCode    string `json:"userCode"`
	UserDetails string `json:"userDetails"`
	Position    int    `json:"position"`
}

// GroupDetailResponse bundles a group with its ordered mappings.
type GroupDetailResponse struct {
	Group   GroupResponse         `json:"group"`
	Members []GroupMemberResponse `json:"members"`
}

// OrgChartRow is a flattened org-chart entry.
type OrgChartRow struct {
	GroupResponse
	Depth int `json:"depth"`
}

// NewUnitList maps units.
func NewUnitList(units []domain.Unit) []UnitResponse {
	out := make([]UnitResponse, 0, len(units))
	for _, u := range units {
		out = append(out, UnitResponse{ID: u.ID, Code: u.Code, Name: u.Name, IsHQ: u.IsHQ})
	}
	return out
}

// NewEmployeeResponse maps an employee.
func NewEmployeeResponse(e *domain.Employee) EmployeeResponse {
	return EmployeeResponse{
		UserCode:    e.UserCode,
		Name:        e.Name,
		Email:       e.Email,
		UnitID:      e.UnitID,
		Department:  e.Department,
		Designation: e.Designation,
		Details:     e.Details(),
		IsAdmin:     e.IsAdmin,
		Active:      e.Active,
	}
}

// NewEmployeeList maps employees.
func NewEmployeeList(employees []domain.Employee) []EmployeeResponse {
	out := make([]EmployeeResponse, 0, len(employees))
	for i := range employees {
		out = append(out, NewEmployeeResponse(&employees[i]))
	}
	return out
}

// NewGroupResponse maps a group.
func NewGroupResponse(g *domain.Group) GroupResponse {
	return GroupResponse{
		ID:         g.ID,
		ParentID:   g.ParentID,
		Name:       g.Name,
		Kind:       g.Kind,
		Department: g.Department,
		IsActive:   g.IsActive,
		UpdatedAt:  g.UpdatedAt,
	}
}

// NewGroupDetailResponse maps a group detail.
func NewGroupDetailResponse(detail domain.GroupDetail) GroupDetailResponse {
	members := make([]GroupMemberResponse, 0, len(detail.Members))
	for _, m := range detail.Members {
		members = append(members, GroupMemberResponse{
			UnitID:      m.UnitID,
			UserCode:    m.UserCode,
			UserDetails: m.UserDetails,
			Position:    m.Position,
		})
	}
	return GroupDetailResponse{Group: NewGroupResponse(&detail.Group), Members: members}
}

// NewOrgChart maps flattened org-chart rows.
func NewOrgChart(nodes []domain.OrgChartNode) []OrgChartRow {
	out := make([]OrgChartRow, 0, len(nodes))
	for i := range nodes {
		out = append(out, OrgChartRow{GroupResponse: NewGroupResponse(&nodes[i].Group), Depth: nodes[i].Depth})
	}
	return out
}

// Domain converts a wire group detail; every member inherits the group's id and kind.
func (r GroupDetailResponse) Domain() domain.GroupDetail {
	detail := domain.GroupDetail{
		Group: domain.Group{
			ID:         r.Group.ID,
			ParentID:   r.Group.ParentID,
			Name:       r.Group.Name,
			Kind:       r.Group.Kind,
			Department: r.Group.Department,
			IsActive:   r.Group.IsActive,
			UpdatedAt:  r.Group.UpdatedAt,
		},
		Members: make([]domain.GroupMember, 0, len(r.Members)),
	}
	for _, m := range r.Members {
		detail.Members = append(detail.Members, domain.GroupMember{
			GroupID:     r.Group.ID,
			GroupKind:   r.Group.Kind,
			UnitID:      m.UnitID,
			UserCode:    m.UserCode,
			UserDetails: m.UserDetails,
			Position:    m.Position,
		})
	}
	return detail
}
