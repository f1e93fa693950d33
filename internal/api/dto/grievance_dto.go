package dto

import (
	"time"

	"github.com/spec-kit/grievance-service/internal/domain"
)

// Form field names of POST /Grievance/AddUpdateGrievance.
const (
	FormGrievanceID         = "grievanceId"
	FormTransitionKind      = "transitionKind"
	FormTitle               = "title"
	FormDescription         = "description"
	FormAssignedUserCode    = "assignedUserCode"
	FormAssignedUserDetails = "assignedUserDetails"
	FormTGroupID            = "TGroupId"
	FormTUnitID             = "TUnitId"
	FormTDepartment         = "TDepartment"
	FormCommentText         = "CommentText"
	FormStatusID            = "statusId"
)

// CommitGrievanceRequest is the multipart AddUpdateGrievance payload.
type CommitGrievanceRequest struct {
	GrievanceID         string
	TransitionKind      string
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

// GrievanceResponse is the wire form of a grievance record.
type GrievanceResponse struct {
	ID                  string                 `json:"id"`
	ReferenceNo         string                 `json:"referenceNo"`
	Title               string                 `json:"title"`
	Description         string                 `json:"description"`
	StatusID            domain.GrievanceStatus `json:"statusId"`
	Round               int                    `json:"round"`
	CreatedBy           string                 `json:"createdBy"`
	CreatorDetails      string                 `json:"creatorDetails"`
	CreatorUnitID       string                 `json:"creatorUnitId"`
	AssignedUserCode    string                 `json:"assignedUserCode"`
	AssignedUserDetails string                 `json:"assignedUserDetails"`
	TGroupID            string                 `json:"tGroupId"`
	TUnitID             string                 `json:"tUnitId"`
	TDepartment         string                 `json:"tDepartment"`
	IsTransferred       bool                   `json:"isTransferred"`
	AcceptLink          string                 `json:"acceptLink,omitempty"`
	RejectLink          string                 `json:"rejectLink,omitempty"`
	ResolutionAccepted  bool                   `json:"resolutionAccepted"`
	CreatedAt           time.Time              `json:"createdAt"`
	UpdatedAt           time.Time              `json:"updatedAt"`
}

// HistoryEntryResponse is one change-log entry.
type HistoryEntryResponse struct {
	ID          string               `json:"id"`
	GrievanceID string               `json:"grievanceId"`
	ChangedBy   string               `json:"changedBy"`
	ChangeList  []domain.FieldChange `json:"changeList"`
	CreatedAt   time.Time            `json:"createdAt"`
}

// VerifyResolutionResponse reports the outcome of a resolution link.
type VerifyResolutionResponse struct {
	Accepted  bool              `json:"accepted"`
	Grievance GrievanceResponse `json:"grievance"`
}

// NewGrievanceResponse maps a domain record.
func NewGrievanceResponse(g *domain.Grievance) GrievanceResponse {
	return GrievanceResponse{
		ID:                  g.ID,
		ReferenceNo:         g.ReferenceNo,
		Title:               g.Title,
		Description:         g.Description,
		StatusID:            g.StatusID,
		Round:               g.Round,
		CreatedBy:           g.CreatedBy,
		CreatorDetails:      g.CreatorDetails,
		CreatorUnitID:       g.CreatorUnitID,
		AssignedUserCode:    g.AssignedUserCode,
		AssignedUserDetails: g.AssignedUserDetails,
		TGroupID:            g.TGroupID,
		TUnitID:             g.TUnitID,
		TDepartment:         g.TDepartment,
		IsTransferred:       g.IsTransferred,
		AcceptLink:          g.AcceptLink,
		RejectLink:          g.RejectLink,
		ResolutionAccepted:  g.ResolutionAccepted,
		CreatedAt:           g.CreatedAt,
		UpdatedAt:           g.UpdatedAt,
	}
}

// NewGrievanceList maps a listing.
func NewGrievanceList(items []domain.Grievance) []GrievanceResponse {
	out := make([]GrievanceResponse, 0, len(items))
	for i := range items {
		out = append(out, NewGrievanceResponse(&items[i]))
	}
	return out
}

// NewHistoryResponse maps history entries preserving their order.
func NewHistoryResponse(entries []domain.HistoryEntry) []HistoryEntryResponse {
	out := make([]HistoryEntryResponse, 0, len(entries))
	for _, e := range entries {
		changes := e.ChangeList
		if changes == nil {
			changes = []domain.FieldChange{}
		}
		out = append(out, HistoryEntryResponse{
			ID:          e.ID,
			GrievanceID: e.GrievanceID,
			ChangedBy:   e.ChangedBy,
			ChangeList:  changes,
			CreatedAt:   e.CreatedAt,
		})
	}
	return out
}

// Domain converts the wire form back into a record.
func (r GrievanceResponse) Domain() domain.Grievance {
	return domain.Grievance{
		ID:                  r.ID,
		ReferenceNo:         r.ReferenceNo,
		Title:               r.Title,
		Description:         r.Description,
		StatusID:            r.StatusID,
		Round:               r.Round,
		CreatedBy:           r.CreatedBy,
		CreatorDetails:      r.CreatorDetails,
		CreatorUnitID:       r.CreatorUnitID,
		AssignedUserCode:    r.AssignedUserCode,
		AssignedUserDetails: r.AssignedUserDetails,
		TGroupID:            r.TGroupID,
		TUnitID:             r.TUnitID,
		TDepartment:         r.TDepartment,
		IsTransferred:       r.IsTransferred,
		AcceptLink:          r.AcceptLink,
		RejectLink:          r.RejectLink,
		ResolutionAccepted:  r.ResolutionAccepted,
		CreatedAt:           r.CreatedAt,
		UpdatedAt:           r.UpdatedAt,
	}
}

// HistoryEntries converts wire entries into domain entries.
func HistoryEntries(items []HistoryEntryResponse) []domain.HistoryEntry {
	out := make([]domain.HistoryEntry, 0, len(items))
	for _, r := range items {
		out = append(out, domain.HistoryEntry{
			ID:          r.ID,
			GrievanceID: r.GrievanceID,
			ChangedBy:   r.ChangedBy,
			ChangeList:  r.ChangeList,
			CreatedAt:   r.CreatedAt,
		})
	}
	return out
}
