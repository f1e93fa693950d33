package domain

import "time"

// Unit is an organizational location. Exactly one unit is headquarters.
type Unit struct {
	ID        string
	Code      string
	Name      string
	IsHQ      bool
	CreatedAt time.Time
}

// GroupKind classifies org-chart groups for routing purposes.
type GroupKind string

const (
	GroupKindDepartment GroupKind = "DEPARTMENT"
	GroupKindCommittee  GroupKind = "COMMITTEE"
	GroupKindNodal      GroupKind = "NODAL"
	GroupKindCGM        GroupKind = "CGM"
	GroupKindHOD        GroupKind = "HOD"
)

// Valid reports whether k is a known kind.
func (k GroupKind) Valid() bool {
	switch k {
	case GroupKindDepartment, GroupKindCommittee, GroupKindNodal, GroupKindCGM, GroupKindHOD:
		return true
	}
	return false
}

// Group is a node of the organization chart.
type Group struct {
	ID         string
	ParentID   *string
	Name       string
	Kind       GroupKind
	Department string
	IsActive   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// GroupMember maps a user to a group within a unit. Members are ordered by Position.
type GroupMember struct {
	GroupID     string
	GroupKind   GroupKind
	UnitID      string
	UserCode    string
	UserDetails string
	Position    int
}

// GroupDetail bundles a group with its ordered mapping list.
type GroupDetail struct {
	Group   Group
	Members []GroupMember
}

// OrgChartNode is a flattened org-chart row.
type OrgChartNode struct {
	Group Group
	Depth int
}
