package domain

import (
	"strings"
	"time"
)

// Role is the routing role a user holds.
type Role string

const (
	RoleRegular   Role = "REGULAR"
	RoleNodal     Role = "NODAL_OFFICER"
	RoleUnitCGM   Role = "UNIT_CGM"
	RoleHOD       Role = "HOD"
	RoleCommittee Role = "COMMITTEE"
)

// Employee is a user who can file, hold and route grievances.
type Employee struct {
	UserCode     string
	Name         string
	Email        string
	PasswordHash string
	UnitID       string
	Department   string
	Designation  string
	IsAdmin      bool
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Details renders the display string stored alongside user codes.
func (e Employee) Details() string {
	if strings.TrimSpace(e.Designation) == "" {
		return e.Name
	}
	return e.Name + " (" + e.Designation + ")"
}
