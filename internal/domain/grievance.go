package domain

import "time"

// GrievanceStatus enumerates lifecycle states. Values match the statusId wire field.
type GrievanceStatus int

const (
	StatusNew        GrievanceStatus = 1
	StatusInProgress GrievanceStatus = 2
	StatusClosed     GrievanceStatus = 3
	StatusReopened   GrievanceStatus = 4
)

// FinalRound is the last appeal round. Regular assignees cannot push a final-round
// grievance back to the Nodal Officer and closed final-round grievances cannot be appealed.
const FinalRound = 3

// Valid reports whether s is a known status.
func (s GrievanceStatus) Valid() bool {
	return s >= StatusNew && s <= StatusReopened
}

func (s GrievanceStatus) String() string {
	switch s {
	case StatusNew:
		return "NEW"
	case StatusInProgress:
		return "IN_PROGRESS"
	case StatusClosed:
		return "CLOSED"
	case StatusReopened:
		return "REOPENED"
	default:
		return "UNKNOWN"
	}
}

// Grievance is the aggregate routed between holders. It is always "with" exactly one user.
type Grievance struct {
	ID                  string
	ReferenceNo         string
	Title               string
	Description         string
	StatusID            GrievanceStatus
	Round               int
	CreatedBy           string
	CreatorDetails      string
	CreatorUnitID       string
	AssignedUserCode    string
	AssignedUserDetails string
	TGroupID            string
	TUnitID             string
	TDepartment         string
	IsTransferred       bool
	AcceptLink          string
	RejectLink          string
	ResolutionAccepted  bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// IsClosed reports whether the grievance reached the terminal status.
func (g *Grievance) IsClosed() bool {
	return g.StatusID == StatusClosed
}

// HeldBy reports whether userCode is the current holder.
func (g *Grievance) HeldBy(userCode string) bool {
	return userCode != "" && g.AssignedUserCode == userCode
}
