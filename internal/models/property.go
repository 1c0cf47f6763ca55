package models

import (
	"fmt"
	"time"

	"prospector/server/internal/apperrors"
)

// Property types tracked by the dashboard.
const (
	PropertyTypeHouse     = "House"
	PropertyTypeUnit      = "Unit"
	PropertyTypeTownhouse = "Townhouse"
	PropertyTypeVilla     = "Villa"
	PropertyTypeDuplex    = "Duplex"
	PropertyTypeLand      = "Land"
	PropertyTypeOther     = "Other"
)

var PropertyTypes = []string{
	PropertyTypeHouse, PropertyTypeUnit, PropertyTypeTownhouse,
	PropertyTypeVilla, PropertyTypeDuplex, PropertyTypeLand, PropertyTypeOther,
}

// Valuation confidence tiers.
const (
	ConfidenceHigh   = "High"
	ConfidenceMedium = "Medium"
	ConfidenceLow    = "Low"
)

var ConfidenceTiers = []string{ConfidenceHigh, ConfidenceMedium, ConfidenceLow}

// Market history event types.
var MarketEventTypes = []string{"Sale", "Lease", "Listed", "Withdrawn"}

// Address is the structured postal address of a property. FullAddress is
// derived from the other fields and recomputed by the store on every write.
type Address struct {
	Street      string `json:"street"`
	Suburb      string `json:"suburb"`
	State       string `json:"state"`
	Postcode    string `json:"postcode"`
	FullAddress string `json:"fullAddress"`
}

// Format returns the canonical single-line rendering of the address,
// e.g. "15 Woodland Drive, Merrimac QLD 4226".
func (a Address) Format() string {
	return fmt.Sprintf("%s, %s %s %s", a.Street, a.Suburb, a.State, a.Postcode)
}

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type Valuation struct {
	Estimate    float64   `json:"estimate"`
	Confidence  string    `json:"confidence,omitempty"`
	Source      string    `json:"source,omitempty"`
	LastUpdated time.Time `json:"lastUpdated"`
}

type MarketEvent struct {
	Type   string    `json:"type"`
	Date   time.Time `json:"date"`
	Price  float64   `json:"price,omitempty"`
	Source string    `json:"source,omitempty"`
}

// DataSourceRef links a property to its record in an external feed
// (Domain, RealEstate.com.au, ...).
type DataSourceRef struct {
	Source     string    `json:"source"`
	ExternalID string    `json:"externalId"`
	LastSynced time.Time `json:"lastSynced"`
}

// Property is a physical real-estate asset. Ownership is modelled through
// the property_owners join table; OwnerIDs is populated on read.
type Property struct {
	ID            string          `json:"id"`
	Address       Address         `json:"address"`
	PropertyType  string          `json:"propertyType"`
	Bedrooms      *int            `json:"bedrooms,omitempty"`
	Bathrooms     *int            `json:"bathrooms,omitempty"`
	CarSpaces     int             `json:"carSpaces"`
	LandSize      *float64        `json:"landSize,omitempty"`     // square meters
	BuildingArea  *float64        `json:"buildingArea,omitempty"` // square meters
	YearBuilt     *int            `json:"yearBuilt,omitempty"`
	Coordinates   *Coordinates    `json:"coordinates"`
	Valuation     *Valuation      `json:"currentValuation,omitempty"`
	MarketHistory []MarketEvent   `json:"marketHistory,omitempty"`
	OwnerIDs      []string        `json:"owners"`
	DataSources   []DataSourceRef `json:"dataSources,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// Validate enforces the schema-level rules checked at write time.
func (p *Property) Validate() error {
	if p.Address.Street == "" {
		return apperrors.NewValidation("address.street", "is required")
	}
	if p.Address.Suburb == "" {
		return apperrors.NewValidation("address.suburb", "is required")
	}
	if p.Address.State == "" {
		return apperrors.NewValidation("address.state", "is required")
	}
	if p.Address.Postcode == "" {
		return apperrors.NewValidation("address.postcode", "is required")
	}
	if !contains(PropertyTypes, p.PropertyType) {
		return apperrors.NewValidation("propertyType", "%q is not a valid property type", p.PropertyType)
	}
	if p.Bedrooms != nil && *p.Bedrooms < 0 {
		return apperrors.NewValidation("bedrooms", "must not be negative")
	}
	if p.Bathrooms != nil && *p.Bathrooms < 0 {
		return apperrors.NewValidation("bathrooms", "must not be negative")
	}
	if p.CarSpaces < 0 {
		return apperrors.NewValidation("carSpaces", "must not be negative")
	}
	if p.LandSize != nil && *p.LandSize <= 0 {
		return apperrors.NewValidation("landSize", "must be positive")
	}
	if p.BuildingArea != nil && *p.BuildingArea <= 0 {
		return apperrors.NewValidation("buildingArea", "must be positive")
	}
	if p.Coordinates == nil {
		return apperrors.NewValidation("coordinates", "are required")
	}
	if p.Coordinates.Lat < -90 || p.Coordinates.Lat > 90 {
		return apperrors.NewValidation("coordinates.lat", "must be between -90 and 90")
	}
	if p.Coordinates.Lng < -180 || p.Coordinates.Lng > 180 {
		return apperrors.NewValidation("coordinates.lng", "must be between -180 and 180")
	}
	if p.Valuation != nil && p.Valuation.Confidence != "" && !contains(ConfidenceTiers, p.Valuation.Confidence) {
		return apperrors.NewValidation("currentValuation.confidence", "%q is not a valid confidence tier", p.Valuation.Confidence)
	}
	for i, ev := range p.MarketHistory {
		if !contains(MarketEventTypes, ev.Type) {
			return apperrors.NewValidation(fmt.Sprintf("marketHistory[%d].type", i), "%q is not a valid event type", ev.Type)
		}
	}
	return nil
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
