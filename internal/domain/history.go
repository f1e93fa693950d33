package domain

import "time"

// Field names used in history change lists.
const (
	FieldAssignedUserCode    = "AssignedUserCode"
	FieldAssignedUserDetails = "AssignedUserDetails"
	FieldTGroupID            = "TGroupId"
	FieldTUnitID             = "TUnitId"
	FieldTDepartment         = "TDepartment"
	FieldStatusID            = "StatusId"
	FieldRound               = "Round"
	FieldCommentText         = "CommentText"
	FieldIsTransferred       = "IsTransferred"
	FieldCreatedDate         = "CreatedDate"
)

// FieldChange is a single old/new value pair inside a history entry.
type FieldChange struct {
	Field    string `json:"field"`
	OldValue string `json:"oldValue"`
	NewValue string `json:"newValue"`
}

// HistoryEntry is an immutable change-log record for a grievance.
type HistoryEntry struct {
	ID          string
	GrievanceID string
	ChangedBy   string
	ChangeList  []FieldChange
	CreatedAt   time.Time
}

// Change returns the change recorded for field, if any.
func (h HistoryEntry) Change(field string) (FieldChange, bool) {
	for _, change := range h.ChangeList {
		if change.Field == field {
			return change, true
		}
	}
	return FieldChange{}, false
}
