package workflow

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/spec-kit/grievance-service/internal/api/dto"
	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/routing"
)

// ErrNoResolutionLink is returned when a closed grievance carries no link for the decision.
var ErrNoResolutionLink = errors.New("grievance has no resolution link")

// API is the part of the grievance client the desk drives.
type API interface {
	Commit(ctx context.Context, req dto.CommitGrievanceRequest) (*dto.GrievanceResponse, error)
	GetGrievance(ctx context.Context, grievanceID string) (*dto.GrievanceResponse, error)
	GroupDetail(ctx context.Context, groupID string) (*dto.GroupDetailResponse, error)
	FollowResolutionLink(ctx context.Context, link, comment string) (*dto.VerifyResolutionResponse, error)
}

// Notifier surfaces a failed action to the user.
type Notifier func(message string, err error)

// ResolutionHandler runs after an accept or appeal was recorded.
type ResolutionHandler func(accepted bool, reason string)

// DeskDependencies bundles the desk collaborators.
type DeskDependencies struct {
	API                   API
	Engine                *routing.Engine
	Notify                Notifier
	OnResolutionSubmitted ResolutionHandler
	Logger                *zap.Logger
}

// Desk runs routing actions for one user. Every action is gated locally before any request
// is sent, the caller's record is never mutated, and a successful action returns the
// re-fetched server state. A failed request is reported through Notify and the original
// record is returned with the error.
type Desk struct {
	api        API
	engine     *routing.Engine
	notify     Notifier
	onResolved ResolutionHandler
	logger     *zap.Logger
}

// NewDesk builds a desk.
func NewDesk(deps DeskDependencies) *Desk {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	notify := deps.Notify
	if notify == nil {
		notify = func(string, error) {}
	}
	onResolved := deps.OnResolutionSubmitted
	if onResolved == nil {
		onResolved = func(bool, string) {}
	}
	return &Desk{
		api:        deps.API,
		engine:     deps.Engine,
		notify:     notify,
		onResolved: onResolved,
		logger:     logger,
	}
}

// Gates exposes the engine's gates for enabling actions.
func (d *Desk) Gates(actor routing.Actor, g domain.Grievance) routing.Gates {
	return d.engine.Gates(actor, &g)
}

// Transfer routes g to the next holder. Manual targets are resolved against the target
// group's mapping list before the commit is sent. Nodal Officer and Unit CGM transfers
// leave the assignee fields empty: the server picks the unit's group of that kind and
// fills them, and the refetched record carries the result.
func (d *Desk) Transfer(ctx context.Context, actor routing.Actor, g domain.Grievance, action routing.Action) (domain.Grievance, error) {
	plan, err := d.engine.Plan(actor, &g, action)
	if err != nil {
		return g, err
	}

	req := dto.CommitGrievanceRequest{
		GrievanceID:    g.ID,
		TransitionKind: string(plan.Kind),
		CommentText:    plan.Comment,
		StatusID:       int(g.StatusID),
	}
	if plan.GroupID != "" {
		detail, err := d.api.GroupDetail(ctx, plan.GroupID)
		if err != nil {
			return d.fail(g, "could not load the target group", err)
		}
		assignment, err := d.engine.Resolve(plan, detail.Domain())
		if err != nil {
			return d.fail(g, "no user can receive this grievance", err)
		}
		req.AssignedUserCode = assignment.UserCode
		req.AssignedUserDetails = assignment.UserDetails
		req.TGroupID = assignment.GroupID
		req.TUnitID = assignment.UnitID
		req.TDepartment = assignment.Department
	}

	if _, err := d.api.Commit(ctx, req); err != nil {
		return d.fail(g, "transfer failed", err)
	}
	return d.refetch(ctx, g)
}

// ChangeStatus moves g to next. The holder fields are sent unchanged.
func (d *Desk) ChangeStatus(ctx context.Context, actor routing.Actor, g domain.Grievance, next domain.GrievanceStatus, comment string) (domain.Grievance, error) {
	if err := d.engine.PlanStatus(actor, &g, next, comment); err != nil {
		return g, err
	}
	req := dto.CommitGrievanceRequest{
		GrievanceID:         g.ID,
		AssignedUserCode:    g.AssignedUserCode,
		AssignedUserDetails: g.AssignedUserDetails,
		TGroupID:            g.TGroupID,
		TUnitID:             g.TUnitID,
		TDepartment:         g.TDepartment,
		CommentText:         comment,
		StatusID:            int(next),
	}
	if _, err := d.api.Commit(ctx, req); err != nil {
		return d.fail(g, "status change failed", err)
	}
	return d.refetch(ctx, g)
}

// Accept follows g's accept link on behalf of its creator.
func (d *Desk) Accept(ctx context.Context, actor routing.Actor, g domain.Grievance) (domain.Grievance, error) {
	if err := d.engine.PlanAccept(actor, &g); err != nil {
		return g, err
	}
	if g.AcceptLink == "" {
		return g, ErrNoResolutionLink
	}
	if _, err := d.api.FollowResolutionLink(ctx, g.AcceptLink, ""); err != nil {
		return d.fail(g, "could not accept the resolution", err)
	}
	d.onResolved(true, "")
	return d.refetch(ctx, g)
}

// Appeal follows g's reject link with reason, reopening it into the next round.
func (d *Desk) Appeal(ctx context.Context, actor routing.Actor, g domain.Grievance, reason string) (domain.Grievance, error) {
	if err := d.engine.PlanAppeal(actor, &g, reason); err != nil {
		return g, err
	}
	if g.RejectLink == "" {
		return g, ErrNoResolutionLink
	}
	if _, err := d.api.FollowResolutionLink(ctx, g.RejectLink, reason); err != nil {
		return d.fail(g, "could not submit the appeal", err)
	}
	d.onResolved(false, reason)
	return d.refetch(ctx, g)
}

func (d *Desk) fail(g domain.Grievance, message string, err error) (domain.Grievance, error) {
	d.logger.Warn(message, zap.String("grievance_id", g.ID), zap.Error(err))
	d.notify(message, err)
	return g, err
}

// refetch loads the authoritative record after a successful action. A failed reload is
// reported but does not undo the action, so the error is not returned.
func (d *Desk) refetch(ctx context.Context, g domain.Grievance) (domain.Grievance, error) {
	fresh, err := d.api.GetGrievance(ctx, g.ID)
	if err != nil {
		d.logger.Warn("reload after action failed", zap.String("grievance_id", g.ID), zap.Error(err))
		d.notify("saved, but the grievance could not be reloaded", err)
		return g, nil
	}
	return fresh.Domain(), nil
}
