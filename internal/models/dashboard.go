package models

import "time"

// TodayAction is an action item in the dashboard snapshot with the owner and
// property summaries embedded, matching what the action cards render.
type TodayAction struct {
	ID                string          `json:"id"`
	Title             string          `json:"title"`
	Priority          int             `json:"priority"`
	ActionType        string          `json:"actionType"`
	PropertyOwner     OwnerSummary    `json:"propertyOwner"`
	Property          PropertySummary `json:"property"`
	CallScript        string          `json:"callScript,omitempty"`
	EstimatedDuration int             `json:"estimatedDuration,omitempty"`
	ScheduledDate     time.Time       `json:"scheduledDate"`
}

type OwnerSummary struct {
	FullName        string           `json:"fullName"`
	Email           *ContactEmail    `json:"email,omitempty"`
	Phone           *ContactPhone    `json:"phone,omitempty"`
	ProspectSegment *ProspectSegment `json:"prospectSegment,omitempty"`
}

type PropertySummary struct {
	Address   Address    `json:"address"`
	Valuation *Valuation `json:"currentValuation,omitempty"`
}

// DashboardMetrics are the headline numbers above the action list.
type DashboardMetrics struct {
	TotalProperties int `json:"totalProperties"`
	TotalOwners     int `json:"totalOwners"`
	TodayTasks      int `json:"todayTasks"`
	WeeklyGoal      int `json:"weeklyGoal"`
	WeeklyProgress  int `json:"weeklyProgress"` // percentage of the weekly goal
}

// SegmentSlice is one wedge of the segment-distribution widget.
type SegmentSlice struct {
	Name       string  `json:"name"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
	Color      string  `json:"color"`
}

// ActivityEvent is a recent-activity feed entry.
type ActivityEvent struct {
	Type        string    `json:"type"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
}

// Dashboard is the single JSON document returned by GET /api/dashboard.
type Dashboard struct {
	TodayActions   []TodayAction    `json:"todayActions"`
	Metrics        DashboardMetrics `json:"metrics"`
	Segments       []SegmentSlice   `json:"segments"`
	RecentActivity []ActivityEvent  `json:"recentActivity"`
	LastUpdated    time.Time        `json:"lastUpdated"`
	UserID         string           `json:"userId"`
}

// SegmentColors maps each prospect segment to its chart color.
var SegmentColors = map[string]string{
	SegmentHotProspect:           "#dc2626",
	SegmentMarketMover:           "#ea580c",
	SegmentInvestmentOpportunity: "#0284c7",
	SegmentServiceNeeds:          "#10b981",
	SegmentLifecycleTrigger:      "#8b5cf6",
}

// SegmentDisplayNames maps a segment category to the plural label used by
// the distribution widget.
var SegmentDisplayNames = map[string]string{
	SegmentHotProspect:           "Hot Prospects",
	SegmentMarketMover:           "Market Movers",
	SegmentInvestmentOpportunity: "Investment Opportunities",
	SegmentServiceNeeds:          "Service Needs",
	SegmentLifecycleTrigger:      "Lifecycle Triggers",
}
