package models

import (
	"time"

	"prospector/server/internal/apperrors"
)

// Action types the planning process can schedule.
var ActionTypes = []string{
	"First Contact", "Follow-up Call", "Email Campaign",
	"Property Valuation", "Market Update", "Service Offer",
}

// ActionItem statuses. Completed and Skipped are terminal; a terminal item
// only moves again through an explicit reopen, and Rescheduled re-queues
// back to Pending.
const (
	StatusPending     = "Pending"
	StatusInProgress  = "In Progress"
	StatusCompleted   = "Completed"
	StatusSkipped     = "Skipped"
	StatusRescheduled = "Rescheduled"
)

var ActionStatuses = []string{
	StatusPending, StatusInProgress, StatusCompleted, StatusSkipped, StatusRescheduled,
}

// IsTerminalStatus reports whether a status finalizes the action item.
func IsTerminalStatus(status string) bool {
	return status == StatusCompleted || status == StatusSkipped
}

type ActionResult struct {
	Outcome    string      `json:"outcome,omitempty"`
	Notes      string      `json:"notes,omitempty"`
	NextAction *NextAction `json:"nextAction,omitempty"`
}

// ActionItem is a scheduled outbound-contact task linking one owner to one
// property. The JSON field names follow the stored document shape:
// propertyOwner and property hold references, not embedded records.
type ActionItem struct {
	ID                string        `json:"id"`
	PropertyOwnerID   string        `json:"propertyOwner"`
	PropertyID        string        `json:"property"`
	ActionType        string        `json:"actionType"`
	Priority          int           `json:"priority"`
	ScheduledDate     time.Time     `json:"scheduledDate"`
	EstimatedDuration int           `json:"estimatedDuration,omitempty"` // minutes
	Title             string        `json:"title"`
	Description       string        `json:"description,omitempty"`
	CallScript        string        `json:"callScript,omitempty"`
	EmailTemplate     string        `json:"emailTemplate,omitempty"`
	Status            string        `json:"status"`
	CompletedAt       *time.Time    `json:"completedAt,omitempty"`
	Result            *ActionResult `json:"result,omitempty"`
	CreatedAt         time.Time     `json:"createdAt"`
	UpdatedAt         time.Time     `json:"updatedAt"`
}

// ApplyDefaults fills store defaults for fields the caller left unset.
func (a *ActionItem) ApplyDefaults() {
	if a.Priority == 0 {
		a.Priority = 5
	}
	if a.Status == "" {
		a.Status = StatusPending
	}
}

// Validate enforces the schema-level rules checked at write time.
func (a *ActionItem) Validate() error {
	if a.PropertyOwnerID == "" {
		return apperrors.NewValidation("propertyOwner", "is required")
	}
	if a.PropertyID == "" {
		return apperrors.NewValidation("property", "is required")
	}
	if !contains(ActionTypes, a.ActionType) {
		return apperrors.NewValidation("actionType", "%q is not a valid action type", a.ActionType)
	}
	if a.Priority < 1 || a.Priority > 10 {
		return apperrors.NewValidation("priority", "must be between 1 and 10")
	}
	if a.ScheduledDate.IsZero() {
		return apperrors.NewValidation("scheduledDate", "is required")
	}
	if a.EstimatedDuration < 0 {
		return apperrors.NewValidation("estimatedDuration", "must not be negative")
	}
	if a.Title == "" {
		return apperrors.NewValidation("title", "is required")
	}
	if !contains(ActionStatuses, a.Status) {
		return apperrors.NewValidation("status", "%q is not a valid status", a.Status)
	}
	// completedAt is set if and only if the item is Completed.
	if (a.Status == StatusCompleted) != (a.CompletedAt != nil) {
		return apperrors.NewValidation("completedAt", "must be set exactly when status is Completed")
	}
	return nil
}
