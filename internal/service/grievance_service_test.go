package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/events"
	"github.com/spec-kit/grievance-service/internal/routing"
	"github.com/spec-kit/grievance-service/internal/trajectory"
)

func (f *fixture) create(t *testing.T) *domain.Grievance {
	t.Helper()
	g, err := f.svc.Create(context.Background(), f.principal(t, "E1"), CreateInput{
		Title:       "Canteen water cooler broken",
		Description: "Third week without drinking water on shift B",
		CommentText: "please fix",
	})
	require.NoError(t, err)
	return g
}

func (f *fixture) transfer(t *testing.T, by, id string, kind routing.TransitionKind, groupID string) *domain.Grievance {
	t.Helper()
	g, err := f.svc.Transfer(context.Background(), f.principal(t, by), id, TransferInput{
		Kind:          kind,
		Comment:       "forwarding for action",
		TargetGroupID: groupID,
	})
	require.NoError(t, err)
	return g
}

// walkToChild moves a fresh grievance N1 -> C1 -> H1 -> D1.
func (f *fixture) walkToChild(t *testing.T) *domain.Grievance {
	t.Helper()
	g := f.create(t)
	f.transfer(t, "N1", g.ID, routing.ToUnitCGM, "")
	f.transfer(t, "C1", g.ID, routing.ToHQGroup, "g-hod")
	return f.transfer(t, "H1", g.ID, routing.ToChildGroupMember, "g-child")
}

func TestCreateAssignsUnitNodalOfficer(t *testing.T) {
	f := newFixture(t)
	g := f.create(t)

	assert.Equal(t, "GRV-TEST-1", g.ReferenceNo)
	assert.Equal(t, domain.StatusNew, g.StatusID)
	assert.Equal(t, 1, g.Round)
	assert.Equal(t, "N1", g.AssignedUserCode)
	assert.Equal(t, "g-nodal", g.TGroupID)
	assert.Equal(t, "U1", g.TUnitID)
	assert.Equal(t, "Ravi (Fitter)", g.CreatorDetails)

	entries := f.history(g.ID)
	require.Len(t, entries, 1)
	round, ok := entries[0].Change(domain.FieldRound)
	require.True(t, ok)
	assert.Equal(t, "", round.OldValue)
	assert.Equal(t, "1", round.NewValue)
	comment, ok := entries[0].Change(domain.FieldCommentText)
	require.True(t, ok)
	assert.Equal(t, "please fix", comment.NewValue)
	_, ok = entries[0].Change(domain.FieldIsTransferred)
	assert.False(t, ok)

	require.Len(t, f.published, 1)
	assert.Equal(t, events.EventGrievanceCreated, f.published[0].Type)
}

func TestCreateWithRequestedAssignee(t *testing.T) {
	f := newFixture(t)
	g, err := f.svc.Create(context.Background(), f.principal(t, "E1"), CreateInput{
		Title:            "Overtime not paid",
		AssignedUserCode: "R2",
	})
	require.NoError(t, err)
	assert.Equal(t, "R2", g.AssignedUserCode)
	assert.Equal(t, "Asha (Clerk)", g.AssignedUserDetails)
	assert.Empty(t, g.TGroupID)
}

func TestCreateRejectsInvalidAssignee(t *testing.T) {
	tests := []struct {
		name     string
		input    CreateInput
		wantCode string
	}{
		{"missing title", CreateInput{Title: "  "}, "VALIDATION_FAILED"},
		{"self assignment", CreateInput{Title: "t", AssignedUserCode: "E1"}, "VALIDATION_FAILED"},
		{"inactive assignee", CreateInput{Title: "t", AssignedUserCode: "X9"}, "VALIDATION_FAILED"},
		{"unknown assignee", CreateInput{Title: "t", AssignedUserCode: "ZZ"}, "NOT_FOUND"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.svc.Create(context.Background(), f.principal(t, "E1"), tt.input)
			requireCode(t, err, tt.wantCode)
			assert.Empty(t, f.grievances.items)
		})
	}
}

func TestCreateWithoutNodalOfficerConflicts(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Create(context.Background(), f.principal(t, "N1"), CreateInput{Title: "self filed"})
	requireCode(t, err, "CONFLICT")
}

func TestTransferEmptyCommentPerformsNoMutation(t *testing.T) {
	f := newFixture(t)
	g := f.create(t)

	_, err := f.svc.Transfer(context.Background(), f.principal(t, "N1"), g.ID, TransferInput{
		Kind:    routing.ToUnitCGM,
		Comment: "   ",
	})
	requireCode(t, err, "VALIDATION_FAILED")
	assert.Equal(t, 0, f.grievances.mutationCount())
	assert.Len(t, f.history(g.ID), 1)
	assert.Equal(t, recordedTransition{kind: "TO_UNIT_CGM", outcome: "VALIDATION_FAILED"}, f.recorder.last())
}

func TestTransferByNonHolderIsForbidden(t *testing.T) {
	f := newFixture(t)
	g := f.create(t)

	_, err := f.svc.Transfer(context.Background(), f.principal(t, "E1"), g.ID, TransferInput{
		Kind:    routing.ToNodalOfficer,
		Comment: "chasing",
	})
	requireCode(t, err, "FORBIDDEN")
	assert.Equal(t, 0, f.grievances.mutationCount())
}

func TestTransferRejectsUnmappedTargetUser(t *testing.T) {
	f := newFixture(t)
	g := f.create(t)
	f.transfer(t, "N1", g.ID, routing.ToUnitCGM, "")

	_, err := f.svc.Transfer(context.Background(), f.principal(t, "C1"), g.ID, TransferInput{
		Kind:           routing.ToHQGroup,
		Comment:        "to finance",
		TargetGroupID:  "g-hod",
		TargetUserCode: "D1",
	})
	requireCode(t, err, "VALIDATION_FAILED")
	current, err := f.grievances.GetByID(context.Background(), g.ID)
	require.NoError(t, err)
	assert.Equal(t, "C1", current.AssignedUserCode)
}

func TestTransferWalksTheOrgChart(t *testing.T) {
	f := newFixture(t)
	g := f.create(t)

	atCGM := f.transfer(t, "N1", g.ID, routing.ToUnitCGM, "")
	assert.Equal(t, "C1", atCGM.AssignedUserCode)
	assert.Equal(t, "g-cgm", atCGM.TGroupID)
	assert.True(t, atCGM.IsTransferred)
	assert.Equal(t, recordedTransition{kind: "TO_UNIT_CGM", outcome: "ok"}, f.recorder.last())

	atHOD := f.transfer(t, "C1", g.ID, routing.ToHQGroup, "g-hod")
	assert.Equal(t, "H1", atHOD.AssignedUserCode)
	assert.Equal(t, "HQ", atHOD.TUnitID)
	assert.Equal(t, "Finance", atHOD.TDepartment)

	atChild := f.transfer(t, "H1", g.ID, routing.ToChildGroupMember, "g-child")
	assert.Equal(t, "D1", atChild.AssignedUserCode)
	assert.Equal(t, 1, atChild.Round)

	entries := f.history(g.ID)
	require.Len(t, entries, 4)
	holder, ok := entries[0].Change(domain.FieldAssignedUserCode)
	require.True(t, ok)
	assert.Equal(t, "H1", holder.OldValue)
	assert.Equal(t, "D1", holder.NewValue)
	assert.Equal(t, "H1", entries[0].ChangedBy)

	last := f.published[len(f.published)-1]
	assert.Equal(t, events.EventGrievanceTransferred, last.Type)
	payload, ok := last.Payload.(events.HandoffPayload)
	require.True(t, ok)
	assert.Equal(t, "H1", payload.FromUserCode)
	assert.Equal(t, "D1", payload.ToUserCode)
}

func TestAssignKeepsGroupAndClearsTransferFlag(t *testing.T) {
	f := newFixture(t)
	g := f.create(t)

	assigned, err := f.svc.Assign(context.Background(), f.principal(t, "N1"), g.ID, "R2", "stores issue")
	require.NoError(t, err)
	assert.Equal(t, "R2", assigned.AssignedUserCode)
	assert.Equal(t, "g-nodal", assigned.TGroupID)
	assert.False(t, assigned.IsTransferred)

	_, err = f.svc.Assign(context.Background(), f.principal(t, "R2"), g.ID, "N1", "back to you")
	requireCode(t, err, "FORBIDDEN")
}

func TestChangeStatusMovesForwardOnly(t *testing.T) {
	f := newFixture(t)
	g := f.create(t)
	nodal := f.principal(t, "N1")

	_, err := f.svc.ChangeStatus(context.Background(), nodal, g.ID, domain.StatusInProgress, "")
	requireCode(t, err, "VALIDATION_FAILED")

	started, err := f.svc.ChangeStatus(context.Background(), nodal, g.ID, domain.StatusInProgress, "looking into it")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, started.StatusID)

	_, err = f.svc.ChangeStatus(context.Background(), nodal, g.ID, domain.StatusInProgress, "again")
	requireCode(t, err, "FORBIDDEN")
	_, err = f.svc.ChangeStatus(context.Background(), nodal, g.ID, domain.GrievanceStatus(9), "bad")
	requireCode(t, err, "VALIDATION_FAILED")
}

func TestCloseIssuesResolutionLinks(t *testing.T) {
	f := newFixture(t)
	g := f.walkToChild(t)

	closed, err := f.svc.ChangeStatus(context.Background(), f.principal(t, "D1"), g.ID, domain.StatusClosed, "cooler replaced")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusClosed, closed.StatusID)
	assert.Equal(t, "D1", closed.AssignedUserCode)

	claims, err := f.links.Parse(linkToken(t, closed.AcceptLink))
	require.NoError(t, err)
	assert.Equal(t, DecisionAccept, claims.Decision)
	assert.Equal(t, g.ID, claims.GrievanceID)
	assert.Equal(t, "E1", claims.Subject)
	assert.Equal(t, 1, claims.Round)

	claims, err = f.links.Parse(linkToken(t, closed.RejectLink))
	require.NoError(t, err)
	assert.Equal(t, DecisionReject, claims.Decision)
}

func TestVerifyResolutionAccept(t *testing.T) {
	f := newFixture(t)
	g := f.walkToChild(t)
	closed, err := f.svc.ChangeStatus(context.Background(), f.principal(t, "D1"), g.ID, domain.StatusClosed, "done")
	require.NoError(t, err)
	token := linkToken(t, closed.AcceptLink)

	accepted, decision, err := f.svc.VerifyResolution(context.Background(), token, "")
	require.NoError(t, err)
	assert.Equal(t, DecisionAccept, decision)
	assert.True(t, accepted.ResolutionAccepted)
	assert.Equal(t, 1, accepted.Round)
	assert.Empty(t, accepted.AcceptLink)

	_, _, err = f.svc.VerifyResolution(context.Background(), token, "")
	requireCode(t, err, "FORBIDDEN")
}

func TestVerifyResolutionAppealStartsNextRound(t *testing.T) {
	f := newFixture(t)
	g := f.walkToChild(t)
	closed, err := f.svc.ChangeStatus(context.Background(), f.principal(t, "D1"), g.ID, domain.StatusClosed, "done")
	require.NoError(t, err)
	token := linkToken(t, closed.RejectLink)

	_, _, err = f.svc.VerifyResolution(context.Background(), token, " ")
	requireCode(t, err, "VALIDATION_FAILED")

	appealed, decision, err := f.svc.VerifyResolution(context.Background(), token, "still no water")
	require.NoError(t, err)
	assert.Equal(t, DecisionReject, decision)
	assert.Equal(t, 2, appealed.Round)
	assert.Equal(t, domain.StatusInProgress, appealed.StatusID)
	assert.Equal(t, "D1", appealed.AssignedUserCode)

	round, ok := f.history(g.ID)[0].Change(domain.FieldRound)
	require.True(t, ok)
	assert.Equal(t, "1", round.OldValue)
	assert.Equal(t, "2", round.NewValue)
	assert.Equal(t, events.EventGrievanceAppealed, f.published[len(f.published)-1].Type)

	_, _, err = f.svc.VerifyResolution(context.Background(), token, "again")
	requireCode(t, err, "CONFLICT")
}

func TestVerifyResolutionRejectsFinalRoundAppeal(t *testing.T) {
	f := newFixture(t)
	g := domain.Grievance{
		ID:               "g-final",
		Title:            "final",
		StatusID:         domain.StatusClosed,
		Round:            domain.FinalRound,
		CreatedBy:        "E1",
		AssignedUserCode: "D1",
	}
	f.grievances.put(g)
	_, reject, err := f.links.Issue(g)
	require.NoError(t, err)

	_, _, err = f.svc.VerifyResolution(context.Background(), linkToken(t, reject), "not satisfied")
	requireCode(t, err, "CONFLICT")
	assert.Equal(t, 0, f.grievances.mutationCount())
}

func TestVerifyResolutionRejectsGarbageToken(t *testing.T) {
	f := newFixture(t)
	_, _, err := f.svc.VerifyResolution(context.Background(), "not-a-token", "x")
	requireCode(t, err, "VALIDATION_FAILED")
}

func TestTrajectoryAcrossAppeal(t *testing.T) {
	f := newFixture(t)
	g := f.walkToChild(t)
	closed, err := f.svc.ChangeStatus(context.Background(), f.principal(t, "D1"), g.ID, domain.StatusClosed, "done")
	require.NoError(t, err)
	_, _, err = f.svc.VerifyResolution(context.Background(), linkToken(t, closed.RejectLink), "still broken")
	require.NoError(t, err)

	nodes, err := f.svc.Trajectory(context.Background(), f.principal(t, "E1"), g.ID)
	require.NoError(t, err)

	var got []string
	for _, n := range nodes {
		got = append(got, string(n.Kind)+":"+n.UserCode)
		assert.NotEmpty(t, n.Color)
	}
	assert.Equal(t, []string{
		"CREATOR:E1", "HANDOFF:N1", "HANDOFF:C1", "HANDOFF:H1", "CREATOR:E1", "HANDOFF:D1",
	}, got)
	assert.Equal(t, trajectory.CreatorColor, nodes[0].Color)
	assert.Equal(t, 2, nodes[4].Round)
}

func TestGetEnforcesVisibility(t *testing.T) {
	f := newFixture(t)
	g := f.create(t)
	f.transfer(t, "N1", g.ID, routing.ToUnitCGM, "")

	for _, who := range []string{"E1", "N1", "C1", "A1"} {
		_, err := f.svc.Get(context.Background(), f.principal(t, who), g.ID)
		assert.NoError(t, err, who)
	}
	_, err := f.svc.Get(context.Background(), f.principal(t, "R2"), g.ID)
	requireCode(t, err, "FORBIDDEN")
	_, err = f.svc.Get(context.Background(), f.principal(t, "E1"), "missing")
	requireCode(t, err, "NOT_FOUND")
}

func TestAllowedActionsForNodalOfficer(t *testing.T) {
	f := newFixture(t)
	g := f.create(t)

	actions, err := f.svc.AllowedActions(context.Background(), f.principal(t, "N1"), g.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleNodal, actions.Role)
	assert.Equal(t, []routing.TransitionKind{routing.ToUnitCGM, routing.Assign, routing.Close}, actions.Transitions)
	assert.True(t, actions.Gates.ToUnitCGM)
	assert.False(t, actions.Gates.Accept)

	creator, err := f.svc.AllowedActions(context.Background(), f.principal(t, "E1"), g.ID)
	require.NoError(t, err)
	assert.Empty(t, creator.Transitions)
}

func TestCommitDispatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Commit(ctx, f.principal(t, "E1"), CommitInput{Title: "Leave not credited"})
	require.NoError(t, err)
	assert.Equal(t, "N1", created.AssignedUserCode)

	moved, err := f.svc.Commit(ctx, f.principal(t, "N1"), CommitInput{
		GrievanceID: created.ID,
		Kind:        "to_unit_cgm",
		CommentText: "needs CGM approval",
	})
	require.NoError(t, err)
	assert.Equal(t, "C1", moved.AssignedUserCode)

	started, err := f.svc.Commit(ctx, f.principal(t, "C1"), CommitInput{
		GrievanceID: created.ID,
		StatusID:    int(domain.StatusInProgress),
		CommentText: "on it",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, started.StatusID)

	_, err = f.svc.Commit(ctx, f.principal(t, "C1"), CommitInput{GrievanceID: created.ID, Kind: "BOGUS", CommentText: "x"})
	requireCode(t, err, "VALIDATION_FAILED")
}

func TestListings(t *testing.T) {
	f := newFixture(t)
	f.create(t)
	f.create(t)

	mine, err := f.svc.ListCreated(context.Background(), f.principal(t, "E1"), ListFilter{})
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	assigned, err := f.svc.ListAssigned(context.Background(), f.principal(t, "N1"), ListFilter{})
	require.NoError(t, err)
	assert.Len(t, assigned, 2)

	none, err := f.svc.ListAssigned(context.Background(), f.principal(t, "C1"), ListFilter{})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}
