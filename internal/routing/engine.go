package routing

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spec-kit/grievance-service/internal/domain"
)

// Engine evaluates routing decisions. It performs no I/O and never mutates its inputs.
type Engine struct {
	hqUnitID string
}

// NewEngine builds an engine. hqUnitID scopes resolution into HOD groups.
func NewEngine(hqUnitID string) *Engine {
	return &Engine{hqUnitID: hqUnitID}
}

// Gates are the pre-computed booleans a caller consults before offering an action.
type Gates struct {
	ToNodalOfficer     bool `json:"toNodalOfficer"`
	ToUnitCGM          bool `json:"toUnitCgm"`
	ToHODGroup         bool `json:"toHodGroup"`
	ToChildGroupMember bool `json:"toChildGroupMember"`
	ToHQGroup          bool `json:"toHqGroup"`
	Assign             bool `json:"assign"`
	Close              bool `json:"close"`
	Accept             bool `json:"accept"`
	Appeal             bool `json:"appeal"`
}

// Allows reports whether the gate for kind is open.
func (g Gates) Allows(kind TransitionKind) bool {
	switch kind {
	case ToNodalOfficer:
		return g.ToNodalOfficer
	case ToUnitCGM:
		return g.ToUnitCGM
	case ToHODGroup:
		return g.ToHODGroup
	case ToChildGroupMember:
		return g.ToChildGroupMember
	case ToHQGroup:
		return g.ToHQGroup
	case Assign:
		return g.Assign
	case Close:
		return g.Close
	}
	return false
}

func (g *Gates) open(kind TransitionKind) {
	switch kind {
	case ToNodalOfficer:
		g.ToNodalOfficer = true
	case ToUnitCGM:
		g.ToUnitCGM = true
	case ToHODGroup:
		g.ToHODGroup = true
	case ToChildGroupMember:
		g.ToChildGroupMember = true
	case ToHQGroup:
		g.ToHQGroup = true
	case Assign:
		g.Assign = true
	case Close:
		g.Close = true
	}
}

// Gates computes every gate for actor against g.
func (e *Engine) Gates(actor Actor, g *domain.Grievance) Gates {
	var gates Gates
	if g == nil {
		return gates
	}
	if g.HeldBy(actor.UserCode) {
		for _, kind := range forwardMoves(actor.Role, actor.UnitIsHQ) {
			if guard(kind, actor, g) {
				gates.open(kind)
			}
		}
		if canAssign(actor.Role) && guard(Assign, actor, g) {
			gates.open(Assign)
		}
		if guard(Close, actor, g) {
			gates.open(Close)
		}
	}
	if actor.UserCode != "" && actor.UserCode == g.CreatedBy && g.IsClosed() && !g.ResolutionAccepted {
		gates.Accept = true
		gates.Appeal = g.Round < domain.FinalRound
	}
	return gates
}

// Allowed lists the open routing transitions in table order.
func (e *Engine) Allowed(actor Actor, g *domain.Grievance) []TransitionKind {
	gates := e.Gates(actor, g)
	kinds := []TransitionKind{ToNodalOfficer, ToUnitCGM, ToHODGroup, ToChildGroupMember, ToHQGroup, Assign, Close}
	allowed := make([]TransitionKind, 0, len(kinds))
	for _, kind := range kinds {
		if gates.Allows(kind) {
			allowed = append(allowed, kind)
		}
	}
	return allowed
}

// Action is a requested transfer.
type Action struct {
	Kind           TransitionKind
	Comment        string
	TargetGroupID  string
	TargetUserCode string
}

// Plan is a validated transfer that still needs its target group resolved. Creator is
// excluded from resolution.
type Plan struct {
	Kind        TransitionKind
	Actor       Actor
	Comment     string
	GroupKind   domain.GroupKind
	GroupID     string
	UserCode    string
	ScopeUnitID string
	Creator     string
}

// Plan validates a transfer request. Callers must not perform any I/O when Plan fails.
func (e *Engine) Plan(actor Actor, g *domain.Grievance, action Action) (Plan, error) {
	comment := strings.TrimSpace(action.Comment)
	if comment == "" {
		return Plan{}, ErrCommentRequired
	}
	if g == nil || !action.Kind.IsTransfer() {
		return Plan{}, ErrTransitionNotAllowed
	}
	if !g.HeldBy(actor.UserCode) {
		return Plan{}, ErrNotHolder
	}
	if !e.Gates(actor, g).Allows(action.Kind) {
		return Plan{}, fmt.Errorf("%w: %s as %s", ErrTransitionNotAllowed, action.Kind, actor.Role)
	}

	plan := Plan{
		Kind:     action.Kind,
		Actor:    actor,
		Comment:  comment,
		UserCode: strings.TrimSpace(action.TargetUserCode),
		Creator:  g.CreatedBy,
	}
	switch action.Kind {
	case ToNodalOfficer:
		plan.GroupKind = domain.GroupKindNodal
		plan.ScopeUnitID = actor.UnitID
	case ToUnitCGM:
		plan.GroupKind = domain.GroupKindCGM
		plan.ScopeUnitID = actor.UnitID
	default:
		plan.GroupID = strings.TrimSpace(action.TargetGroupID)
		if plan.GroupID == "" {
			return Plan{}, ErrTargetRequired
		}
	}
	return plan, nil
}

// Assignment is the resolved holder tuple a transition produces.
type Assignment struct {
	Kind        TransitionKind
	UserCode    string
	UserDetails string
	GroupID     string
	UnitID      string
	Department  string
	Comment     string
}

// Resolve picks the concrete holder from the target group's mapping list: the first
// member by position, scoped to the acting unit when that unit is not headquarters. The
// grievance's creator is never picked.
func (e *Engine) Resolve(plan Plan, detail domain.GroupDetail) (Assignment, error) {
	group := detail.Group
	if !group.IsActive || !e.targetMatches(plan, group) {
		return Assignment{}, ErrInvalidTarget
	}

	if plan.UserCode != "" && plan.UserCode == plan.Creator {
		return Assignment{}, ErrInvalidTarget
	}
	members := withoutUser(scopedMembers(detail.Members, e.scopeFor(plan, group)), plan.Creator)
	if len(members) == 0 {
		return Assignment{}, ErrNoMappedUsers
	}
	chosen := members[0]
	if plan.UserCode != "" {
		found := false
		for _, m := range members {
			if m.UserCode == plan.UserCode {
				chosen, found = m, true
				break
			}
		}
		if !found {
			return Assignment{}, ErrTargetNotMapped
		}
	}
	if chosen.UserCode == "" {
		return Assignment{}, ErrNoMappedUsers
	}

	return Assignment{
		Kind:        plan.Kind,
		UserCode:    chosen.UserCode,
		UserDetails: chosen.UserDetails,
		GroupID:     group.ID,
		UnitID:      chosen.UnitID,
		Department:  group.Department,
		Comment:     plan.Comment,
	}, nil
}

func (e *Engine) targetMatches(plan Plan, group domain.Group) bool {
	switch plan.Kind {
	case ToNodalOfficer, ToUnitCGM:
		return group.Kind == plan.GroupKind
	case ToHODGroup:
		return group.ID == plan.GroupID && group.Kind == domain.GroupKindHOD
	case ToChildGroupMember:
		return group.ID == plan.GroupID && group.ParentID != nil &&
			plan.Actor.RoleGroupID != "" && *group.ParentID == plan.Actor.RoleGroupID
	case ToHQGroup:
		if group.ID != plan.GroupID {
			return false
		}
		if group.Kind == domain.GroupKindHOD {
			return true
		}
		return group.Department != "" && !strings.EqualFold(group.Department, plan.Actor.Department)
	}
	return false
}

func (e *Engine) scopeFor(plan Plan, group domain.Group) string {
	if plan.ScopeUnitID != "" {
		return plan.ScopeUnitID
	}
	if group.Kind == domain.GroupKindHOD && e.hqUnitID != "" {
		return e.hqUnitID
	}
	if !plan.Actor.UnitIsHQ {
		return plan.Actor.UnitID
	}
	return ""
}

func scopedMembers(members []domain.GroupMember, unitID string) []domain.GroupMember {
	out := make([]domain.GroupMember, 0, len(members))
	for _, m := range members {
		if unitID != "" && m.UnitID != unitID {
			continue
		}
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Position < out[j].Position
	})
	return out
}

func withoutUser(members []domain.GroupMember, userCode string) []domain.GroupMember {
	if userCode == "" {
		return members
	}
	out := members[:0]
	for _, m := range members {
		if m.UserCode != userCode {
			out = append(out, m)
		}
	}
	return out
}

// PlanAssign validates a fresh manual assignment to target.
func (e *Engine) PlanAssign(actor Actor, g *domain.Grievance, target domain.Employee, comment string) (Assignment, error) {
	comment = strings.TrimSpace(comment)
	if comment == "" {
		return Assignment{}, ErrCommentRequired
	}
	if g == nil {
		return Assignment{}, ErrTransitionNotAllowed
	}
	if !g.HeldBy(actor.UserCode) {
		return Assignment{}, ErrNotHolder
	}
	if !e.Gates(actor, g).Assign {
		return Assignment{}, fmt.Errorf("%w: %s as %s", ErrTransitionNotAllowed, Assign, actor.Role)
	}
	if !target.Active || target.UserCode == "" || target.UserCode == actor.UserCode || target.UserCode == g.CreatedBy {
		return Assignment{}, ErrInvalidTarget
	}
	if !actor.UnitIsHQ && target.UnitID != actor.UnitID {
		return Assignment{}, ErrInvalidTarget
	}
	return Assignment{
		Kind:        Assign,
		UserCode:    target.UserCode,
		UserDetails: target.Details(),
		GroupID:     g.TGroupID,
		UnitID:      target.UnitID,
		Department:  target.Department,
		Comment:     comment,
	}, nil
}

// Apply returns the record that results from a. The input is left untouched.
func (e *Engine) Apply(g domain.Grievance, a Assignment) domain.Grievance {
	next := g
	next.AssignedUserCode = a.UserCode
	next.AssignedUserDetails = a.UserDetails
	next.TGroupID = a.GroupID
	next.TUnitID = a.UnitID
	next.TDepartment = a.Department
	next.IsTransferred = a.Kind != Assign
	return next
}

// PlanStatus validates a status change by the current holder. Status only moves forward:
// New -> InProgress, and New/InProgress/Reopened -> Closed.
func (e *Engine) PlanStatus(actor Actor, g *domain.Grievance, next domain.GrievanceStatus, comment string) error {
	if strings.TrimSpace(comment) == "" {
		return ErrCommentRequired
	}
	if g == nil {
		return ErrTransitionNotAllowed
	}
	if !g.HeldBy(actor.UserCode) {
		return ErrNotHolder
	}
	switch next {
	case domain.StatusClosed:
		if !e.Gates(actor, g).Close {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidStatus, g.StatusID, next)
		}
		return nil
	case domain.StatusInProgress:
		if g.StatusID != domain.StatusNew {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidStatus, g.StatusID, next)
		}
		return nil
	default:
		return fmt.Errorf("%w: %s -> %s", ErrInvalidStatus, g.StatusID, next)
	}
}

// ApplyStatus returns g with its status replaced.
func (e *Engine) ApplyStatus(g domain.Grievance, next domain.GrievanceStatus) domain.Grievance {
	out := g
	out.StatusID = next
	if next == domain.StatusClosed {
		out.ResolutionAccepted = false
	}
	return out
}

// PlanAccept validates the creator accepting a closed grievance's resolution.
func (e *Engine) PlanAccept(actor Actor, g *domain.Grievance) error {
	if g == nil || !e.Gates(actor, g).Accept {
		return ErrTransitionNotAllowed
	}
	return nil
}

// PlanAppeal validates the creator rejecting a resolution.
func (e *Engine) PlanAppeal(actor Actor, g *domain.Grievance, reason string) error {
	if strings.TrimSpace(reason) == "" {
		return ErrReasonRequired
	}
	if g == nil {
		return ErrTransitionNotAllowed
	}
	gates := e.Gates(actor, g)
	if gates.Accept && !gates.Appeal {
		return ErrAppealLimit
	}
	if !gates.Appeal {
		return ErrTransitionNotAllowed
	}
	return nil
}

// ApplyAccept marks the resolution accepted; the round is unchanged.
func (e *Engine) ApplyAccept(g domain.Grievance) domain.Grievance {
	out := g
	out.ResolutionAccepted = true
	out.AcceptLink = ""
	out.RejectLink = ""
	return out
}

// ApplyAppeal reopens the grievance into the next round with the same holder.
func (e *Engine) ApplyAppeal(g domain.Grievance) domain.Grievance {
	out := g
	out.Round = g.Round + 1
	out.StatusID = domain.StatusInProgress
	out.ResolutionAccepted = false
	out.AcceptLink = ""
	out.RejectLink = ""
	return out
}

// Verify checks the record invariants between two consecutive states.
func Verify(prev, next domain.Grievance) error {
	if strings.TrimSpace(next.AssignedUserCode) == "" {
		return fmt.Errorf("routing: grievance %s has no holder", next.ID)
	}
	if next.Round < prev.Round {
		return fmt.Errorf("routing: round decreased from %d to %d", prev.Round, next.Round)
	}
	if next.Round < 1 {
		return fmt.Errorf("routing: round %d below 1", next.Round)
	}
	return nil
}
