package models

import (
	"time"

	"prospector/server/internal/apperrors"
)

// DailyMetrics are the aggregate counters of a single calendar day.
type DailyMetrics struct {
	TotalCalls     int `json:"totalCalls"`
	ConnectedCalls int `json:"connectedCalls"`
	Appointments   int `json:"appointments"`
	Listings       int `json:"listings"`
	Prospects      int `json:"prospects"`
}

// SegmentPerformance is the per-segment conversion breakdown within a rollup.
type SegmentPerformance struct {
	Segment      string `json:"segment"`
	Contacts     int    `json:"contacts"`
	Responses    int    `json:"responses"`
	Appointments int    `json:"appointments"`
	Conversions  int    `json:"conversions"`
}

// Analytics is the daily rollup snapshot written by the end-of-day job.
// The store enforces at most one record per calendar date.
type Analytics struct {
	ID                 string               `json:"id"`
	Date               time.Time            `json:"date"`
	Metrics            DailyMetrics         `json:"metrics"`
	SegmentPerformance []SegmentPerformance `json:"segmentPerformance,omitempty"`
	PropertiesUpdated  int                  `json:"propertiesUpdated"`
	NewProperties      int                  `json:"newProperties"`
	CreatedAt          time.Time            `json:"createdAt"`
}

// Validate enforces the schema-level rules checked at write time.
func (a *Analytics) Validate() error {
	if a.Date.IsZero() {
		return apperrors.NewValidation("date", "is required")
	}
	return nil
}
