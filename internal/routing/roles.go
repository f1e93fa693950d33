package routing

import "github.com/spec-kit/grievance-service/internal/domain"

// Actor is the user attempting a routing action.
type Actor struct {
	UserCode    string
	UserDetails string
	Role        domain.Role
	UnitID      string
	UnitIsHQ    bool
	Department  string
	// RoleGroupID is the group through which the actor holds Role (the HOD's own group).
	RoleGroupID string
}

// RoleOf derives the routing role of a user from their group mappings. A CGM or Nodal
// mapping only counts inside the user's own unit.
func RoleOf(unitID string, memberships []domain.GroupMember) (domain.Role, string) {
	precedence := []struct {
		kind        domain.GroupKind
		role        domain.Role
		ownUnitOnly bool
	}{
		{domain.GroupKindCGM, domain.RoleUnitCGM, true},
		{domain.GroupKindHOD, domain.RoleHOD, false},
		{domain.GroupKindNodal, domain.RoleNodal, true},
		{domain.GroupKindCommittee, domain.RoleCommittee, false},
	}
	for _, p := range precedence {
		for _, m := range memberships {
			if m.GroupKind != p.kind {
				continue
			}
			if p.ownUnitOnly && m.UnitID != unitID {
				continue
			}
			return p.role, m.GroupID
		}
	}
	return domain.RoleRegular, ""
}
