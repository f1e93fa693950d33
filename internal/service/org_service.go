package service

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"golang.org/x/sync/errgroup"

	"github.com/spec-kit/grievance-service/internal/cache"
	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/repository"
	"github.com/spec-kit/grievance-service/internal/routing"
	apperrors "github.com/spec-kit/grievance-service/pkg/util"
)

// OrgService answers org-chart questions: who holds which role, which users a group
// resolves to and the cached reference lists.
type OrgService struct {
	units     repository.UnitRepository
	groups    repository.GroupRepository
	employees repository.EmployeeRepository
	cache     *cache.ReferenceCache
}

// OrgDependencies bundles repositories for the org service.
type OrgDependencies struct {
	UnitRepo     repository.UnitRepository
	GroupRepo    repository.GroupRepository
	EmployeeRepo repository.EmployeeRepository
	Cache        *cache.ReferenceCache
}

// NewOrgService constructs the service.
func NewOrgService(deps OrgDependencies) *OrgService {
	return &OrgService{
		units:     deps.UnitRepo,
		groups:    deps.GroupRepo,
		employees: deps.EmployeeRepo,
		cache:     deps.Cache,
	}
}

// Actor derives the routing identity of employee acting for unitID.
func (s *OrgService) Actor(ctx context.Context, employee *domain.Employee, unitID string) (routing.Actor, error) {
	if employee == nil {
		return routing.Actor{}, apperrors.NewUnauthorized("employee required")
	}
	if unitID == "" {
		unitID = employee.UnitID
	}

	var (
		unit        *domain.Unit
		memberships []domain.GroupMember
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		unit, err = s.units.GetByID(gctx, unitID)
		return err
	})
	g.Go(func() error {
		var err error
		memberships, err = s.groups.MembershipsByUser(gctx, employee.UserCode)
		return err
	})
	if err := g.Wait(); err != nil {
		return routing.Actor{}, notFound(err, "unit", map[string]any{"unit_id": unitID})
	}

	role, groupID := routing.RoleOf(unit.ID, memberships)
	return routing.Actor{
		UserCode:    employee.UserCode,
		UserDetails: employee.Details(),
		Role:        role,
		UnitID:      unit.ID,
		UnitIsHQ:    unit.IsHQ,
		Department:  employee.Department,
		RoleGroupID: groupID,
	}, nil
}

// GroupDetail loads a group together with its mapping list.
func (s *OrgService) GroupDetail(ctx context.Context, groupID string) (domain.GroupDetail, error) {
	var detail domain.GroupDetail
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		group, err := s.groups.GetByID(gctx, groupID)
		if err != nil {
			return err
		}
		detail.Group = *group
		return nil
	})
	g.Go(func() error {
		members, err := s.groups.Members(gctx, groupID)
		detail.Members = members
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.GroupDetail{}, notFound(err, "group", map[string]any{"group_id": groupID})
	}
	return detail, nil
}

// DetailForPlan loads the group a routing plan targets. Kind-addressed plans resolve to
// the group of that kind mapped in the plan's scope unit.
func (s *OrgService) DetailForPlan(ctx context.Context, plan routing.Plan) (domain.GroupDetail, error) {
	if plan.GroupID != "" {
		return s.GroupDetail(ctx, plan.GroupID)
	}
	group, err := s.groups.FindByKindForUnit(ctx, plan.GroupKind, plan.ScopeUnitID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.GroupDetail{}, routing.ErrNoMappedUsers
		}
		return domain.GroupDetail{}, apperrors.MapError(err)
	}
	return s.GroupDetail(ctx, group.ID)
}

// NodalOfficer returns the first Nodal Officer mapped in unitID other than exclude.
func (s *OrgService) NodalOfficer(ctx context.Context, unitID, exclude string) (domain.GroupMember, error) {
	detail, err := s.DetailForPlan(ctx, routing.Plan{GroupKind: domain.GroupKindNodal, ScopeUnitID: unitID})
	if err != nil {
		return domain.GroupMember{}, err
	}
	for _, m := range sortedMembers(detail.Members) {
		if m.UnitID == unitID && m.UserCode != "" && m.UserCode != exclude {
			return m, nil
		}
	}
	return domain.GroupMember{}, routing.ErrNoMappedUsers
}

// OrgChart flattens the group forest into pre-order rows annotated with depth. Children
// are ordered by name; groups whose parent is missing are treated as roots.
func (s *OrgService) OrgChart(ctx context.Context) ([]domain.OrgChartNode, error) {
	groups, err := s.groups.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return FlattenOrgChart(groups), nil
}

// FlattenOrgChart is the pure tree-to-list transform behind OrgChart.
func FlattenOrgChart(groups []domain.Group) []domain.OrgChartNode {
	byID := make(map[string]bool, len(groups))
	for _, g := range groups {
		byID[g.ID] = true
	}
	children := make(map[string][]domain.Group)
	var roots []domain.Group
	for _, g := range groups {
		if g.ParentID == nil || *g.ParentID == "" || !byID[*g.ParentID] {
			roots = append(roots, g)
			continue
		}
		children[*g.ParentID] = append(children[*g.ParentID], g)
	}
	byName := func(list []domain.Group) {
		sort.SliceStable(list, func(i, j int) bool {
			return strings.ToLower(list[i].Name) < strings.ToLower(list[j].Name)
		})
	}
	byName(roots)

	out := make([]domain.OrgChartNode, 0, len(groups))
	visited := make(map[string]bool, len(groups))
	var walk func(g domain.Group, depth int)
	walk = func(g domain.Group, depth int) {
		if visited[g.ID] {
			return
		}
		visited[g.ID] = true
		out = append(out, domain.OrgChartNode{Group: g, Depth: depth})
		kids := children[g.ID]
		byName(kids)
		for _, child := range kids {
			walk(child, depth+1)
		}
	}
	for _, root := range roots {
		walk(root, 0)
	}

	// Groups left unvisited sit on a parent cycle; each cycle is listed from its first
	// member by name.
	var rest []domain.Group
	for _, g := range groups {
		if !visited[g.ID] {
			rest = append(rest, g)
		}
	}
	byName(rest)
	for _, g := range rest {
		walk(g, 0)
	}
	return out
}

// Units returns all units through the reference cache.
func (s *OrgService) Units(ctx context.Context) ([]domain.Unit, error) {
	units, err := s.cache.Units(ctx, s.units.List)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return units, nil
}

// Employees returns the active employees of unitID through the reference cache.
func (s *OrgService) Employees(ctx context.Context, unitID string) ([]domain.Employee, error) {
	employees, err := s.cache.Employees(ctx, unitID, func(ctx context.Context) ([]domain.Employee, error) {
		filter := repository.EmployeeFilter{ActiveOnly: true}
		if unitID != "" {
			filter.UnitID = &unitID
		}
		return s.employees.List(ctx, filter)
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return employees, nil
}

// GroupInput describes an admin group upsert.
type GroupInput struct {
	ID         string
	ParentID   *string
	Name       string
	Kind       domain.GroupKind
	Department string
	IsActive   bool
}

// UpsertGroup creates the group when ID is empty and updates it otherwise.
func (s *OrgService) UpsertGroup(ctx context.Context, input GroupInput) (*domain.Group, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewValidationError("group name required", nil)
	}
	if !input.Kind.Valid() {
		return nil, apperrors.NewValidationError("invalid group kind", map[string]any{"kind": input.Kind})
	}
	if input.ParentID != nil && *input.ParentID != "" {
		if *input.ParentID == input.ID {
			return nil, apperrors.NewValidationError("group cannot be its own parent", nil)
		}
		if err := s.checkParent(ctx, input.ID, *input.ParentID); err != nil {
			return nil, err
		}
	} else {
		input.ParentID = nil
	}

	group := &domain.Group{
		ID:         input.ID,
		ParentID:   input.ParentID,
		Name:       name,
		Kind:       input.Kind,
		Department: strings.TrimSpace(input.Department),
		IsActive:   input.IsActive,
	}
	if group.ID == "" {
		if err := s.groups.Create(ctx, group); err != nil {
			return nil, apperrors.MapError(err)
		}
		return group, nil
	}
	if err := s.groups.Update(ctx, group); err != nil {
		return nil, notFound(err, "group", map[string]any{"group_id": group.ID})
	}
	return group, nil
}

// checkParent requires parentID to exist and, for an existing group, not to descend from it.
func (s *OrgService) checkParent(ctx context.Context, groupID, parentID string) error {
	seen := make(map[string]bool)
	for id := parentID; id != "" && !seen[id]; {
		if id == groupID {
			return apperrors.NewValidationError("parent would create a cycle", map[string]any{
				"group_id":  groupID,
				"parent_id": parentID,
			})
		}
		seen[id] = true
		group, err := s.groups.GetByID(ctx, id)
		if err != nil {
			if id == parentID {
				return notFound(err, "parent group", map[string]any{"group_id": parentID})
			}
			if errors.Is(err, pgx.ErrNoRows) {
				return nil
			}
			return apperrors.MapError(err)
		}
		if groupID == "" || group.ParentID == nil {
			return nil
		}
		id = *group.ParentID
	}
	return nil
}

// MapUser adds or repositions userCode in a group for unitID.
func (s *OrgService) MapUser(ctx context.Context, groupID, unitID, userCode string, position int) error {
	if groupID == "" || unitID == "" || userCode == "" {
		return apperrors.NewValidationError("groupId, unitId and userCode are required", nil)
	}
	employee, err := s.employees.GetByUserCode(ctx, userCode)
	if err != nil {
		return notFound(err, "employee", map[string]any{"user_code": userCode})
	}
	if !employee.Active {
		return apperrors.NewConflict("employee inactive", map[string]any{"user_code": userCode})
	}
	if _, err := s.units.GetByID(ctx, unitID); err != nil {
		return notFound(err, "unit", map[string]any{"unit_id": unitID})
	}
	if _, err := s.groups.GetByID(ctx, groupID); err != nil {
		return notFound(err, "group", map[string]any{"group_id": groupID})
	}
	return apperrors.MapError(s.groups.MapUser(ctx, domain.GroupMember{
		GroupID:  groupID,
		UnitID:   unitID,
		UserCode: userCode,
		Position: position,
	}))
}

// UnmapUser removes a mapping.
func (s *OrgService) UnmapUser(ctx context.Context, groupID, unitID, userCode string) error {
	if err := s.groups.UnmapUser(ctx, groupID, unitID, userCode); err != nil {
		return notFound(err, "group mapping", map[string]any{"group_id": groupID, "user_code": userCode})
	}
	return nil
}

// HQUnitID returns the headquarters unit id, or ErrNoHQUnit when none is flagged.
func (s *OrgService) HQUnitID(ctx context.Context) (string, error) {
	unit, err := s.units.GetHQ(ctx)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNoHQUnit
		}
		return "", err
	}
	if unit.ID == "" {
		return "", ErrNoHQUnit
	}
	return unit.ID, nil
}

func sortedMembers(members []domain.GroupMember) []domain.GroupMember {
	out := append([]domain.GroupMember(nil), members...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}
