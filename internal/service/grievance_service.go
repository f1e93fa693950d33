package service

import (
	"context"
	"errors"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spec-kit/grievance-service/internal/auth"
	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/events"
	"github.com/spec-kit/grievance-service/internal/ids"
	"github.com/spec-kit/grievance-service/internal/repository"
	"github.com/spec-kit/grievance-service/internal/routing"
	"github.com/spec-kit/grievance-service/internal/trajectory"
	apperrors "github.com/spec-kit/grievance-service/pkg/util"
)

// TransitionRecorder counts routing attempts.
type TransitionRecorder interface {
	RecordTransition(kind, outcome string)
}

// GrievanceService coordinates grievance workflows. Every mutation is validated by the
// routing engine and persisted together with its history entry.
type GrievanceService struct {
	grievances repository.GrievanceRepository
	history    repository.HistoryRepository
	employees  repository.EmployeeRepository
	org        *OrgService
	engine     *routing.Engine
	projector  *trajectory.Projector
	links      *ResolutionLinks
	dispatcher events.Dispatcher
	metrics    TransitionRecorder
	logger     *zap.Logger
	now        func() time.Time
	reference  func() string
}

// GrievanceDependencies bundles collaborators for the grievance service.
type GrievanceDependencies struct {
	GrievanceRepo repository.GrievanceRepository
	HistoryRepo   repository.HistoryRepository
	EmployeeRepo  repository.EmployeeRepository
	Org           *OrgService
	Engine        *routing.Engine
	Projector     *trajectory.Projector
	Links         *ResolutionLinks
	Dispatcher    events.Dispatcher
	Metrics       TransitionRecorder
	Logger        *zap.Logger
}

// NewGrievanceService constructs the service.
func NewGrievanceService(deps GrievanceDependencies) *GrievanceService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	projector := deps.Projector
	if projector == nil {
		projector = trajectory.NewProjector(trajectory.DedupLegacy)
	}
	return &GrievanceService{
		grievances: deps.GrievanceRepo,
		history:    deps.HistoryRepo,
		employees:  deps.EmployeeRepo,
		org:        deps.Org,
		engine:     deps.Engine,
		projector:  projector,
		links:      deps.Links,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger,
		now:        time.Now,
		reference:  ids.NewReference,
	}
}

// CreateInput describes a new grievance.
type CreateInput struct {
	Title            string
	Description      string
	AssignedUserCode string
	CommentText      string
}

// TransferInput describes a routed hand-off.
type TransferInput struct {
	Kind           routing.TransitionKind
	Comment        string
	TargetGroupID  string
	TargetUserCode string
}

// CommitInput mirrors the AddUpdateGrievance form. An empty GrievanceID creates a
// grievance; otherwise Kind selects the transition, falling back to a status change when
// only StatusID is given.
type CommitInput struct {
	GrievanceID         string
	Kind                string
	Title               string
	Description         string
	AssignedUserCode    string
	AssignedUserDetails string
	TGroupID            string
	TUnitID             string
	TDepartment         string
	CommentText         string
	StatusID            int
}

// ListFilter narrows dashboard listings.
type ListFilter struct {
	Statuses   []domain.GrievanceStatus
	SearchTerm *string
	Limit      int
	Offset     int
}

// AllowedActions is what the caller may do next with a grievance.
type AllowedActions struct {
	Role        domain.Role              `json:"role"`
	Gates       routing.Gates            `json:"gates"`
	Transitions []routing.TransitionKind `json:"transitions"`
}

// Create files a grievance. It is assigned to the requested employee or, by default, to
// the Nodal Officer of the creator's unit.
func (s *GrievanceService) Create(ctx context.Context, p *auth.Principal, input CreateInput) (*domain.Grievance, error) {
	if p == nil || p.Employee == nil {
		return nil, apperrors.NewUnauthorized("employee required")
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewValidationError("title required", nil)
	}
	creator := p.Employee
	unitID := p.UnitID
	if unitID == "" {
		unitID = creator.UnitID
	}

	g := domain.Grievance{
		ReferenceNo:    s.reference(),
		Title:          title,
		Description:    strings.TrimSpace(input.Description),
		StatusID:       domain.StatusNew,
		Round:          1,
		CreatedBy:      creator.UserCode,
		CreatorDetails: creator.Details(),
		CreatorUnitID:  unitID,
	}

	if code := strings.TrimSpace(input.AssignedUserCode); code != "" {
		holder, err := s.employees.GetByUserCode(ctx, code)
		if err != nil {
			return nil, notFound(err, "employee", map[string]any{"user_code": code})
		}
		if !holder.Active || holder.UserCode == creator.UserCode {
			return nil, routingError(routing.ErrInvalidTarget)
		}
		g.AssignedUserCode = holder.UserCode
		g.AssignedUserDetails = holder.Details()
		g.TUnitID = holder.UnitID
		g.TDepartment = holder.Department
	} else {
		nodal, err := s.org.NodalOfficer(ctx, unitID, creator.UserCode)
		if err != nil {
			return nil, routingError(err)
		}
		g.AssignedUserCode = nodal.UserCode
		g.AssignedUserDetails = nodal.UserDetails
		g.TGroupID = nodal.GroupID
		g.TUnitID = nodal.UnitID
	}

	if err := routing.Verify(domain.Grievance{Round: 1}, g); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	changes := s.changeList(domain.Grievance{}, g, input.CommentText)
	if err := s.grievances.Create(ctx, &g, creator.UserCode, changes); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:        events.EventGrievanceCreated,
		GrievanceID: g.ID,
		ReferenceNo: g.ReferenceNo,
		Actor:       events.Actor{UserCode: creator.UserCode, UnitID: unitID},
		Payload: events.GrievanceCreatedPayload{
			Title:            g.Title,
			AssignedUserCode: g.AssignedUserCode,
			UnitID:           unitID,
		},
	})
	return &g, nil
}

// Transfer routes the grievance to the holder the engine resolves for input.Kind.
func (s *GrievanceService) Transfer(ctx context.Context, p *auth.Principal, grievanceID string, input TransferInput) (*domain.Grievance, error) {
	kind := string(input.Kind)
	if strings.TrimSpace(input.Comment) == "" {
		return nil, s.fail(kind, routing.ErrCommentRequired)
	}
	actor, err := s.actorFor(ctx, p)
	if err != nil {
		return nil, err
	}
	current, err := s.grievances.GetByID(ctx, grievanceID)
	if err != nil {
		return nil, notFound(err, "grievance", map[string]any{"grievance_id": grievanceID})
	}

	action := routing.Action{
		Kind:           input.Kind,
		Comment:        input.Comment,
		TargetGroupID:  input.TargetGroupID,
		TargetUserCode: input.TargetUserCode,
	}
	plan, err := s.engine.Plan(actor, current, action)
	if err != nil {
		return nil, s.fail(kind, err)
	}
	detail, err := s.org.DetailForPlan(ctx, plan)
	if err != nil {
		return nil, s.fail(kind, err)
	}
	assignment, err := s.engine.Resolve(plan, detail)
	if err != nil {
		return nil, s.fail(kind, err)
	}

	updated, err := s.grievances.Mutate(ctx, grievanceID, actor.UserCode, func(locked domain.Grievance) (domain.Grievance, []domain.FieldChange, error) {
		if _, err := s.engine.Plan(actor, &locked, action); err != nil {
			return domain.Grievance{}, nil, err
		}
		next := s.engine.Apply(locked, assignment)
		if err := routing.Verify(locked, next); err != nil {
			return domain.Grievance{}, nil, err
		}
		return next, s.changeList(locked, next, plan.Comment), nil
	})
	if err != nil {
		return nil, s.fail(kind, s.missing(err, grievanceID))
	}
	s.record(kind, nil)

	s.publishEvent(ctx, events.Event{
		Type:        events.EventGrievanceTransferred,
		GrievanceID: updated.ID,
		ReferenceNo: updated.ReferenceNo,
		Actor:       events.Actor{UserCode: actor.UserCode, UnitID: actor.UnitID},
		Payload: events.HandoffPayload{
			Kind:         kind,
			FromUserCode: current.AssignedUserCode,
			ToUserCode:   updated.AssignedUserCode,
			ToGroupID:    updated.TGroupID,
			ToUnitID:     updated.TUnitID,
			Comment:      plan.Comment,
			Round:        updated.Round,
		},
	})
	return updated, nil
}

// Assign hands the grievance directly to an employee without group resolution.
func (s *GrievanceService) Assign(ctx context.Context, p *auth.Principal, grievanceID, userCode, comment string) (*domain.Grievance, error) {
	kind := string(routing.Assign)
	actor, err := s.actorFor(ctx, p)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(comment) == "" {
		return nil, s.fail(kind, routing.ErrCommentRequired)
	}
	target, err := s.employees.GetByUserCode(ctx, strings.TrimSpace(userCode))
	if err != nil {
		return nil, notFound(err, "employee", map[string]any{"user_code": userCode})
	}

	var previous string
	updated, err := s.grievances.Mutate(ctx, grievanceID, actor.UserCode, func(locked domain.Grievance) (domain.Grievance, []domain.FieldChange, error) {
		assignment, err := s.engine.PlanAssign(actor, &locked, *target, comment)
		if err != nil {
			return domain.Grievance{}, nil, err
		}
		previous = locked.AssignedUserCode
		next := s.engine.Apply(locked, assignment)
		if err := routing.Verify(locked, next); err != nil {
			return domain.Grievance{}, nil, err
		}
		return next, s.changeList(locked, next, assignment.Comment), nil
	})
	if err != nil {
		return nil, s.fail(kind, s.missing(err, grievanceID))
	}
	s.record(kind, nil)

	s.publishEvent(ctx, events.Event{
		Type:        events.EventGrievanceAssigned,
		GrievanceID: updated.ID,
		ReferenceNo: updated.ReferenceNo,
		Actor:       events.Actor{UserCode: actor.UserCode, UnitID: actor.UnitID},
		Payload: events.HandoffPayload{
			Kind:         kind,
			FromUserCode: previous,
			ToUserCode:   updated.AssignedUserCode,
			ToUnitID:     updated.TUnitID,
			Comment:      strings.TrimSpace(comment),
			Round:        updated.Round,
		},
	})
	return updated, nil
}

// ChangeStatus moves the grievance forward. Closing issues fresh resolution links for the
// creator.
func (s *GrievanceService) ChangeStatus(ctx context.Context, p *auth.Principal, grievanceID string, status domain.GrievanceStatus, comment string) (*domain.Grievance, error) {
	kind := "STATUS_" + status.String()
	if !status.Valid() {
		return nil, apperrors.NewValidationError("invalid status", map[string]any{"status_id": int(status)})
	}
	if strings.TrimSpace(comment) == "" {
		return nil, s.fail(kind, routing.ErrCommentRequired)
	}
	actor, err := s.actorFor(ctx, p)
	if err != nil {
		return nil, err
	}

	var previous domain.GrievanceStatus
	updated, err := s.grievances.Mutate(ctx, grievanceID, actor.UserCode, func(locked domain.Grievance) (domain.Grievance, []domain.FieldChange, error) {
		if err := s.engine.PlanStatus(actor, &locked, status, comment); err != nil {
			return domain.Grievance{}, nil, err
		}
		previous = locked.StatusID
		next := s.engine.ApplyStatus(locked, status)
		if status == domain.StatusClosed && s.links != nil {
			accept, reject, err := s.links.Issue(next)
			if err != nil {
				return domain.Grievance{}, nil, err
			}
			next.AcceptLink, next.RejectLink = accept, reject
		}
		if err := routing.Verify(locked, next); err != nil {
			return domain.Grievance{}, nil, err
		}
		return next, s.changeList(locked, next, strings.TrimSpace(comment)), nil
	})
	if err != nil {
		return nil, s.fail(kind, s.missing(err, grievanceID))
	}
	s.record(kind, nil)

	s.publishEvent(ctx, events.Event{
		Type:        events.EventStatusChanged,
		GrievanceID: updated.ID,
		ReferenceNo: updated.ReferenceNo,
		Actor:       events.Actor{UserCode: actor.UserCode, UnitID: actor.UnitID},
		Payload: events.StatusChangedPayload{
			OldStatus: previous,
			NewStatus: updated.StatusID,
			Comment:   strings.TrimSpace(comment),
			CreatedBy: updated.CreatedBy,
		},
	})
	return updated, nil
}

// Commit applies an AddUpdateGrievance submission.
func (s *GrievanceService) Commit(ctx context.Context, p *auth.Principal, input CommitInput) (*domain.Grievance, error) {
	if strings.TrimSpace(input.GrievanceID) == "" {
		return s.Create(ctx, p, CreateInput{
			Title:            input.Title,
			Description:      input.Description,
			AssignedUserCode: input.AssignedUserCode,
			CommentText:      input.CommentText,
		})
	}

	kind := routing.TransitionKind(strings.ToUpper(strings.TrimSpace(input.Kind)))
	switch {
	case kind.IsTransfer():
		return s.Transfer(ctx, p, input.GrievanceID, TransferInput{
			Kind:           kind,
			Comment:        input.CommentText,
			TargetGroupID:  input.TGroupID,
			TargetUserCode: input.AssignedUserCode,
		})
	case kind == routing.Assign:
		return s.Assign(ctx, p, input.GrievanceID, input.AssignedUserCode, input.CommentText)
	case kind == routing.Close:
		return s.ChangeStatus(ctx, p, input.GrievanceID, domain.StatusClosed, input.CommentText)
	case kind == "" && input.StatusID != 0:
		return s.ChangeStatus(ctx, p, input.GrievanceID, domain.GrievanceStatus(input.StatusID), input.CommentText)
	}
	return nil, apperrors.NewValidationError("unknown transition", map[string]any{"transitionKind": input.Kind})
}

// VerifyResolution records the creator's verdict delivered through a resolution link.
// Accepting leaves the round unchanged; rejecting appeals into the next round.
func (s *GrievanceService) VerifyResolution(ctx context.Context, token, comment string) (*domain.Grievance, Decision, error) {
	if s.links == nil {
		return nil, "", apperrors.NewInternalError(errors.New("resolution links not configured"))
	}
	claims, err := s.links.Parse(token)
	if err != nil {
		return nil, "", apperrors.NewValidationError("invalid or expired resolution link", nil)
	}
	kind := string(claims.Decision)

	updated, err := s.grievances.Mutate(ctx, claims.GrievanceID, claims.Subject, func(locked domain.Grievance) (domain.Grievance, []domain.FieldChange, error) {
		if locked.Round != claims.Round || locked.CreatedBy != claims.Subject {
			return domain.Grievance{}, nil, apperrors.NewConflict("resolution link no longer valid", map[string]any{"round": locked.Round})
		}
		creator := routing.Actor{UserCode: locked.CreatedBy, UserDetails: locked.CreatorDetails}
		var next domain.Grievance
		switch claims.Decision {
		case DecisionAccept:
			if err := s.engine.PlanAccept(creator, &locked); err != nil {
				return domain.Grievance{}, nil, err
			}
			next = s.engine.ApplyAccept(locked)
		default:
			if err := s.engine.PlanAppeal(creator, &locked, comment); err != nil {
				return domain.Grievance{}, nil, err
			}
			next = s.engine.ApplyAppeal(locked)
		}
		if err := routing.Verify(locked, next); err != nil {
			return domain.Grievance{}, nil, err
		}
		return next, s.changeList(locked, next, strings.TrimSpace(comment)), nil
	})
	if err != nil {
		return nil, "", s.fail(kind, s.missing(err, claims.GrievanceID))
	}
	s.record(kind, nil)

	eventType := events.EventResolutionAccepted
	if claims.Decision == DecisionReject {
		eventType = events.EventGrievanceAppealed
	}
	s.publishEvent(ctx, events.Event{
		Type:        eventType,
		GrievanceID: updated.ID,
		ReferenceNo: updated.ReferenceNo,
		Actor:       events.Actor{UserCode: updated.CreatedBy, UnitID: updated.CreatorUnitID},
		Payload: events.ResolutionPayload{
			Accepted: claims.Decision == DecisionAccept,
			Reason:   strings.TrimSpace(comment),
			Round:    updated.Round,
		},
	})
	return updated, claims.Decision, nil
}

// Get returns a grievance the caller may see.
func (s *GrievanceService) Get(ctx context.Context, p *auth.Principal, grievanceID string) (*domain.Grievance, error) {
	g, entries, err := s.load(ctx, grievanceID)
	if err != nil {
		return nil, err
	}
	if !canView(p, g, entries) {
		return nil, apperrors.NewForbidden("access denied")
	}
	return g, nil
}

// History returns the change log newest first.
func (s *GrievanceService) History(ctx context.Context, p *auth.Principal, grievanceID string) ([]domain.HistoryEntry, error) {
	g, entries, err := s.load(ctx, grievanceID)
	if err != nil {
		return nil, err
	}
	if !canView(p, g, entries) {
		return nil, apperrors.NewForbidden("access denied")
	}
	return entries, nil
}

// Trajectory projects the change log into display-ready hand-off nodes.
func (s *GrievanceService) Trajectory(ctx context.Context, p *auth.Principal, grievanceID string) ([]trajectory.Node, error) {
	g, entries, err := s.load(ctx, grievanceID)
	if err != nil {
		return nil, err
	}
	if !canView(p, g, entries) {
		return nil, apperrors.NewForbidden("access denied")
	}
	nodes := s.projector.Project(entries, trajectory.Creator{UserCode: g.CreatedBy, UserDetails: g.CreatorDetails})
	return trajectory.Colorize(nodes, rand.New(rand.NewSource(s.now().UnixNano()))), nil
}

// AllowedActions reports the gates open to the caller.
func (s *GrievanceService) AllowedActions(ctx context.Context, p *auth.Principal, grievanceID string) (*AllowedActions, error) {
	actor, err := s.actorFor(ctx, p)
	if err != nil {
		return nil, err
	}
	g, err := s.grievances.GetByID(ctx, grievanceID)
	if err != nil {
		return nil, notFound(err, "grievance", map[string]any{"grievance_id": grievanceID})
	}
	transitions := s.engine.Allowed(actor, g)
	if transitions == nil {
		transitions = []routing.TransitionKind{}
	}
	return &AllowedActions{
		Role:        actor.Role,
		Gates:       s.engine.Gates(actor, g),
		Transitions: transitions,
	}, nil
}

// ListAssigned returns grievances currently with the caller.
func (s *GrievanceService) ListAssigned(ctx context.Context, p *auth.Principal, filter ListFilter) ([]domain.Grievance, error) {
	code := p.UserCode()
	return s.list(ctx, repository.GrievanceFilter{AssignedUserCode: &code}, filter)
}

// ListCreated returns grievances the caller filed.
func (s *GrievanceService) ListCreated(ctx context.Context, p *auth.Principal, filter ListFilter) ([]domain.Grievance, error) {
	code := p.UserCode()
	return s.list(ctx, repository.GrievanceFilter{CreatedBy: &code}, filter)
}

func (s *GrievanceService) list(ctx context.Context, base repository.GrievanceFilter, filter ListFilter) ([]domain.Grievance, error) {
	base.Statuses = filter.Statuses
	base.SearchTerm = filter.SearchTerm
	base.Limit = filter.Limit
	base.Offset = filter.Offset
	result, err := s.grievances.ListWithFilter(ctx, base)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if result == nil {
		result = []domain.Grievance{}
	}
	return result, nil
}

func (s *GrievanceService) load(ctx context.Context, grievanceID string) (*domain.Grievance, []domain.HistoryEntry, error) {
	var (
		g       *domain.Grievance
		entries []domain.HistoryEntry
	)
	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		g, err = s.grievances.GetByID(gctx, grievanceID)
		return err
	})
	group.Go(func() error {
		var err error
		entries, err = s.history.ListByGrievance(gctx, grievanceID)
		return err
	})
	if err := group.Wait(); err != nil {
		return nil, nil, notFound(err, "grievance", map[string]any{"grievance_id": grievanceID})
	}
	if entries == nil {
		entries = []domain.HistoryEntry{}
	}
	return g, entries, nil
}

func (s *GrievanceService) actorFor(ctx context.Context, p *auth.Principal) (routing.Actor, error) {
	if p == nil || p.Employee == nil {
		return routing.Actor{}, apperrors.NewUnauthorized("employee required")
	}
	return s.org.Actor(ctx, p.Employee, p.UnitID)
}

// changeList records the holder tuple and status on every entry so each entry describes
// a complete trajectory node. Round, IsTransferred and CommentText appear only when set.
func (s *GrievanceService) changeList(prev, next domain.Grievance, comment string) []domain.FieldChange {
	changes := []domain.FieldChange{
		{Field: domain.FieldAssignedUserCode, OldValue: prev.AssignedUserCode, NewValue: next.AssignedUserCode},
		{Field: domain.FieldAssignedUserDetails, OldValue: prev.AssignedUserDetails, NewValue: next.AssignedUserDetails},
		{Field: domain.FieldTGroupID, OldValue: prev.TGroupID, NewValue: next.TGroupID},
		{Field: domain.FieldTUnitID, OldValue: prev.TUnitID, NewValue: next.TUnitID},
		{Field: domain.FieldTDepartment, OldValue: prev.TDepartment, NewValue: next.TDepartment},
		{Field: domain.FieldStatusID, OldValue: statusValue(prev.StatusID), NewValue: statusValue(next.StatusID)},
	}
	if prev.Round != next.Round {
		changes = append(changes, domain.FieldChange{
			Field:    domain.FieldRound,
			OldValue: roundValue(prev.Round),
			NewValue: roundValue(next.Round),
		})
	}
	if prev.IsTransferred != next.IsTransferred {
		changes = append(changes, domain.FieldChange{
			Field:    domain.FieldIsTransferred,
			OldValue: strconv.FormatBool(prev.IsTransferred),
			NewValue: strconv.FormatBool(next.IsTransferred),
		})
	}
	if comment = strings.TrimSpace(comment); comment != "" {
		changes = append(changes, domain.FieldChange{Field: domain.FieldCommentText, NewValue: comment})
	}
	return append(changes, domain.FieldChange{
		Field:    domain.FieldCreatedDate,
		NewValue: s.now().UTC().Format(time.RFC3339Nano),
	})
}

func statusValue(status domain.GrievanceStatus) string {
	if status == 0 {
		return ""
	}
	return strconv.Itoa(int(status))
}

func roundValue(round int) string {
	if round == 0 {
		return ""
	}
	return strconv.Itoa(round)
}

func canView(p *auth.Principal, g *domain.Grievance, entries []domain.HistoryEntry) bool {
	if p == nil || p.Employee == nil {
		return false
	}
	code := p.Employee.UserCode
	if p.IsAdmin || g.CreatedBy == code || g.AssignedUserCode == code {
		return true
	}
	for _, entry := range entries {
		if entry.ChangedBy == code {
			return true
		}
		if c, ok := entry.Change(domain.FieldAssignedUserCode); ok && c.NewValue == code {
			return true
		}
	}
	return false
}

func (s *GrievanceService) missing(err error, grievanceID string) error {
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound("grievance", map[string]any{"grievance_id": grievanceID})
	}
	return err
}

func (s *GrievanceService) fail(kind string, err error) error {
	s.record(kind, err)
	return routingError(err)
}

func (s *GrievanceService) record(kind string, err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordTransition(kind, outcome(err))
}

func (s *GrievanceService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = ids.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now().UTC()
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handlers failed",
			zap.String("event_type", string(event.Type)),
			zap.String("grievance_id", event.GrievanceID),
			zap.Error(err))
	}
}
