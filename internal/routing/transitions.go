package routing

import (
	"errors"

	"github.com/spec-kit/grievance-service/internal/domain"
)

// TransitionKind tags every legal hand-off of a grievance.
type TransitionKind string

const (
	ToNodalOfficer     TransitionKind = "TO_NODAL_OFFICER"
	ToUnitCGM          TransitionKind = "TO_UNIT_CGM"
	ToHODGroup         TransitionKind = "TO_HOD_GROUP"
	ToChildGroupMember TransitionKind = "TO_CHILD_GROUP_MEMBER"
	ToHQGroup          TransitionKind = "TO_HQ_GROUP"
	Assign             TransitionKind = "ASSIGN"
	Close              TransitionKind = "CLOSE"
)

// Manual reports whether the acting user must pick the target group.
func (k TransitionKind) Manual() bool {
	switch k {
	case ToHODGroup, ToChildGroupMember, ToHQGroup:
		return true
	}
	return false
}

// IsTransfer reports whether k moves the grievance to another holder through group resolution.
func (k TransitionKind) IsTransfer() bool {
	switch k {
	case ToNodalOfficer, ToUnitCGM, ToHODGroup, ToChildGroupMember, ToHQGroup:
		return true
	}
	return false
}

var (
	ErrCommentRequired      = errors.New("comment required")
	ErrReasonRequired       = errors.New("appeal reason required")
	ErrNotHolder            = errors.New("grievance is not with the acting user")
	ErrTransitionNotAllowed = errors.New("transition not allowed")
	ErrTargetRequired       = errors.New("transfer target required")
	ErrInvalidTarget        = errors.New("transfer target not valid for this transition")
	ErrNoMappedUsers        = errors.New("target group has no mapped users")
	ErrTargetNotMapped      = errors.New("selected user is not mapped to the target group")
	ErrInvalidStatus        = errors.New("invalid status transition")
	ErrAppealLimit          = errors.New("final round reached; appeal not allowed")
)

// forwardMoves is the role-ordered routing table. Each role has at most one forward move
// per unit context; Assign and Close are handled separately.
func forwardMoves(role domain.Role, unitIsHQ bool) []TransitionKind {
	switch role {
	case domain.RoleRegular:
		return []TransitionKind{ToNodalOfficer}
	case domain.RoleNodal:
		if unitIsHQ {
			return []TransitionKind{ToHODGroup}
		}
		return []TransitionKind{ToUnitCGM}
	case domain.RoleHOD:
		if unitIsHQ {
			return []TransitionKind{ToChildGroupMember}
		}
		return nil
	case domain.RoleUnitCGM:
		return []TransitionKind{ToHQGroup}
	case domain.RoleCommittee:
		return nil
	default:
		return nil
	}
}

// canAssign lists roles allowed to make a fresh manual assignment.
func canAssign(role domain.Role) bool {
	switch role {
	case domain.RoleNodal, domain.RoleHOD, domain.RoleUnitCGM, domain.RoleCommittee:
		return true
	}
	return false
}

// guard holds the per-kind preconditions beyond holding the grievance.
func guard(kind TransitionKind, actor Actor, g *domain.Grievance) bool {
	creator := actor.UserCode == g.CreatedBy
	switch kind {
	case ToNodalOfficer:
		return g.Round != domain.FinalRound && !creator && !g.IsClosed()
	case ToUnitCGM, ToHODGroup, ToChildGroupMember, Assign:
		return !creator && !g.IsClosed()
	case ToHQGroup, Close:
		return !g.IsClosed()
	default:
		return false
	}
}
