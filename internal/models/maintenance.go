package models

// Ticket status values owned by the maintenance backend.
const (
	TicketPending    = "Pending"
	TicketInProgress = "In Progress"
	TicketResolved   = "Resolved"
)

// MaintenanceTicket is owned by the maintenance backend; the engine only
// reads tickets, matches them to alerts by AlertID, and requests status
// transitions. Local copies are replaced only by a server-confirmed
// refresh, never mutated in place.
type MaintenanceTicket struct {
	ID                 int64         `json:"id"`
	AlertID            int64         `json:"alert_id"`
	Status             string        `json:"status"`
	AssignedTechnician string        `json:"assigned_technician,omitempty"`
	Notes              string        `json:"notes,omitempty"`
	CreatedAt          FlexibleTime  `json:"created_at"`
	ResolvedAt         *FlexibleTime `json:"resolved_at,omitempty"`
}

// TicketStatusUpdate is the PATCH body for a status-transition request.
type TicketStatusUpdate struct {
	Status string `json:"status"`
	Notes  string `json:"notes,omitempty"`
}
