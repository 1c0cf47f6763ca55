package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"prospector/server/internal/apperrors"
)

func TestAddressFormat(t *testing.T) {
	a := Address{Street: "15 Woodland Drive", Suburb: "Merrimac", State: "QLD", Postcode: "4226"}
	assert.Equal(t, "15 Woodland Drive, Merrimac QLD 4226", a.Format())
}

func TestPropertyValidate(t *testing.T) {
	valid := func() *Property {
		return &Property{
			Address:      Address{Street: "1 Test St", Suburb: "Merrimac", State: "QLD", Postcode: "4226"},
			PropertyType: PropertyTypeHouse,
			Coordinates:  &Coordinates{Lat: -28.0, Lng: 153.4},
		}
	}

	assert.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Property)
		field  string
	}{
		{"missing street", func(p *Property) { p.Address.Street = "" }, "address.street"},
		{"missing state", func(p *Property) { p.Address.State = "" }, "address.state"},
		{"bad type", func(p *Property) { p.PropertyType = "Igloo" }, "propertyType"},
		{"negative car spaces", func(p *Property) { p.CarSpaces = -1 }, "carSpaces"},
		{"zero land size", func(p *Property) { v := 0.0; p.LandSize = &v }, "landSize"},
		{"no coordinates", func(p *Property) { p.Coordinates = nil }, "coordinates"},
		{"lng out of range", func(p *Property) { p.Coordinates.Lng = 181 }, "coordinates.lng"},
		{"bad confidence", func(p *Property) {
			p.Valuation = &Valuation{Estimate: 1, Confidence: "Certain"}
		}, "currentValuation.confidence"},
		{"bad market event", func(p *Property) {
			p.MarketHistory = []MarketEvent{{Type: "Demolished", Date: time.Now()}}
		}, "marketHistory[0].type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid()
			tt.mutate(p)
			err := p.Validate()
			var ve *apperrors.ValidationError
			assert.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestOwnerValidateSegmentScorePairing(t *testing.T) {
	score := 85
	o := &PropertyOwner{
		FirstName:       "Sarah",
		LastName:        "Johnson",
		ProspectSegment: &ProspectSegment{Category: SegmentHotProspect, Score: &score},
	}
	assert.NoError(t, o.Validate())

	o.ProspectSegment.Score = nil
	err := o.Validate()
	var ve *apperrors.ValidationError
	assert.ErrorAs(t, err, &ve)
	assert.Equal(t, "prospectSegment.score", ve.Field)

	bad := 101
	o.ProspectSegment.Score = &bad
	assert.Error(t, o.Validate())
}

func TestActionItemDefaults(t *testing.T) {
	a := &ActionItem{}
	a.ApplyDefaults()
	assert.Equal(t, 5, a.Priority)
	assert.Equal(t, StatusPending, a.Status)

	a = &ActionItem{Priority: 8, Status: StatusInProgress}
	a.ApplyDefaults()
	assert.Equal(t, 8, a.Priority)
	assert.Equal(t, StatusInProgress, a.Status)
}

func TestActionItemValidateCompletedAtPairing(t *testing.T) {
	now := time.Now()
	valid := func() *ActionItem {
		return &ActionItem{
			PropertyOwnerID: "o1",
			PropertyID:      "p1",
			ActionType:      "First Contact",
			Priority:        5,
			ScheduledDate:   now,
			Title:           "Call",
			Status:          StatusPending,
		}
	}

	assert.NoError(t, valid().Validate())

	// Completed without a timestamp is invalid.
	a := valid()
	a.Status = StatusCompleted
	assert.Error(t, a.Validate())

	// Timestamp without Completed is invalid.
	a = valid()
	a.CompletedAt = &now
	assert.Error(t, a.Validate())

	// Both together is valid.
	a = valid()
	a.Status = StatusCompleted
	a.CompletedAt = &now
	assert.NoError(t, a.Validate())
}

func TestIsTerminalStatus(t *testing.T) {
	assert.True(t, IsTerminalStatus(StatusCompleted))
	assert.True(t, IsTerminalStatus(StatusSkipped))
	assert.False(t, IsTerminalStatus(StatusPending))
	assert.False(t, IsTerminalStatus(StatusInProgress))
	assert.False(t, IsTerminalStatus(StatusRescheduled))
}

func TestSegmentColorsCoverAllCategories(t *testing.T) {
	for _, category := range SegmentCategories {
		assert.NotEmpty(t, SegmentColors[category], "missing color for %s", category)
		assert.NotEmpty(t, SegmentDisplayNames[category], "missing display name for %s", category)
	}
}
