package events

import (
	"time"

	"github.com/spec-kit/grievance-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventGrievanceCreated     EventType = "grievance_created"
	EventGrievanceTransferred EventType = "grievance_transferred"
	EventGrievanceAssigned    EventType = "grievance_assigned"
	EventStatusChanged        EventType = "grievance_status_changed"
	EventResolutionAccepted   EventType = "grievance_resolution_accepted"
	EventGrievanceAppealed    EventType = "grievance_appealed"
)

// AllEventTypes lists every type in publication order.
var AllEventTypes = []EventType{
	EventGrievanceCreated,
	EventGrievanceTransferred,
	EventGrievanceAssigned,
	EventStatusChanged,
	EventResolutionAccepted,
	EventGrievanceAppealed,
}

// Actor encapsulates actor metadata for an event.
type Actor struct {
	UserCode string `json:"user_code"`
	UnitID   string `json:"unit_id,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID          string    `json:"id"`
	Type        EventType `json:"type"`
	GrievanceID string    `json:"grievance_id"`
	ReferenceNo string    `json:"reference_no"`
	Actor       Actor     `json:"actor"`
	Timestamp   time.Time `json:"timestamp"`
	Payload     any       `json:"payload"`
}

// GrievanceCreatedPayload payload.
type GrievanceCreatedPayload struct {
	Title            string `json:"title"`
	AssignedUserCode string `json:"assigned_user_code"`
	UnitID           string `json:"unit_id"`
}

// HandoffPayload describes a holder change, routed or manual.
type HandoffPayload struct {
	Kind         string `json:"kind"`
	FromUserCode string `json:"from_user_code"`
	ToUserCode   string `json:"to_user_code"`
	ToGroupID    string `json:"to_group_id,omitempty"`
	ToUnitID     string `json:"to_unit_id,omitempty"`
	Comment      string `json:"comment"`
	Round        int    `json:"round"`
}

// StatusChangedPayload payload.
type StatusChangedPayload struct {
	OldStatus domain.GrievanceStatus `json:"old_status"`
	NewStatus domain.GrievanceStatus `json:"new_status"`
	Comment   string                 `json:"comment,omitempty"`
	CreatedBy string                 `json:"created_by"`
}

// ResolutionPayload is emitted when the creator accepts or appeals a resolution.
type ResolutionPayload struct {
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason,omitempty"`
	Round    int    `json:"round"`
}
