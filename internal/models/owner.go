package models

import (
	"fmt"
	"time"

	"prospector/server/internal/apperrors"
)

// Prospect segment categories assigned by the external scoring process.
const (
	SegmentHotProspect           = "Hot Prospect"
	SegmentMarketMover           = "Market Mover"
	SegmentInvestmentOpportunity = "Investment Opportunity"
	SegmentServiceNeeds          = "Service Needs"
	SegmentLifecycleTrigger      = "Lifecycle Trigger"
)

var SegmentCategories = []string{
	SegmentHotProspect, SegmentMarketMover, SegmentInvestmentOpportunity,
	SegmentServiceNeeds, SegmentLifecycleTrigger,
}

var (
	IncomeTiers        = []string{"Low", "Medium", "High", "Very High"}
	OwnershipTypes     = []string{"Owner-Occupier", "Investor", "Mixed"}
	InteractionTypes   = []string{"Call", "Email", "SMS", "Letter", "Visit", "Meeting"}
	InteractionResults = []string{"Connected", "No Answer", "Voicemail", "Interested", "Not Interested", "Follow-up Scheduled"}
	ContactChannels    = []string{"Phone", "Email", "SMS", "Letter"}
)

type ContactEmail struct {
	Address          string     `json:"address,omitempty"`
	Verified         bool       `json:"verified"`
	VerificationDate *time.Time `json:"verificationDate,omitempty"`
}

type ContactPhone struct {
	Mobile           string     `json:"mobile,omitempty"`
	Home             string     `json:"home,omitempty"`
	Verified         bool       `json:"verified"`
	VerificationDate *time.Time `json:"verificationDate,omitempty"`
}

// ProspectSegment classifies how valuable an owner is as a sales lead.
// Category and Score are always written together.
type ProspectSegment struct {
	Category     string    `json:"category"`
	Score        *int      `json:"score,omitempty"`
	Reasons      []string  `json:"reasons,omitempty"`
	LastAssessed time.Time `json:"lastAssessed"`
}

type NextAction struct {
	Date   time.Time `json:"date"`
	Action string    `json:"action"`
}

type Interaction struct {
	Date       time.Time   `json:"date"`
	Type       string      `json:"type"`
	Outcome    string      `json:"outcome,omitempty"`
	Notes      string      `json:"notes,omitempty"`
	NextAction *NextAction `json:"nextAction,omitempty"`
}

// PropertyOwner is a natural person owning zero or more tracked properties.
// PropertyIDs is populated from the property_owners join table on read.
type PropertyOwner struct {
	ID               string           `json:"id"`
	FirstName        string           `json:"firstName"`
	LastName         string           `json:"lastName"`
	FullName         string           `json:"fullName"`
	Email            *ContactEmail    `json:"email,omitempty"`
	Phone            *ContactPhone    `json:"phone,omitempty"`
	EstimatedAge     *int             `json:"estimatedAge,omitempty"`
	Occupation       string           `json:"occupation,omitempty"`
	HouseholdIncome  string           `json:"householdIncome,omitempty"`
	PropertyIDs      []string         `json:"properties"`
	OwnershipType    string           `json:"ownershipType,omitempty"`
	ProspectSegment  *ProspectSegment `json:"prospectSegment,omitempty"`
	Interactions     []Interaction    `json:"interactions,omitempty"`
	PreferredContact string           `json:"preferredContact,omitempty"`
	DoNotContact     bool             `json:"doNotContact"`
	Tags             []string         `json:"tags,omitempty"`
	Notes            string           `json:"notes,omitempty"`
	CreatedAt        time.Time        `json:"createdAt"`
	UpdatedAt        time.Time        `json:"updatedAt"`
}

// Validate enforces the schema-level rules checked at write time.
func (o *PropertyOwner) Validate() error {
	if o.FirstName == "" {
		return apperrors.NewValidation("firstName", "is required")
	}
	if o.LastName == "" {
		return apperrors.NewValidation("lastName", "is required")
	}
	if o.HouseholdIncome != "" && !contains(IncomeTiers, o.HouseholdIncome) {
		return apperrors.NewValidation("householdIncome", "%q is not a valid income tier", o.HouseholdIncome)
	}
	if o.OwnershipType != "" && !contains(OwnershipTypes, o.OwnershipType) {
		return apperrors.NewValidation("ownershipType", "%q is not a valid ownership type", o.OwnershipType)
	}
	if o.PreferredContact != "" && !contains(ContactChannels, o.PreferredContact) {
		return apperrors.NewValidation("preferredContact", "%q is not a valid contact channel", o.PreferredContact)
	}
	if seg := o.ProspectSegment; seg != nil {
		if !contains(SegmentCategories, seg.Category) {
			return apperrors.NewValidation("prospectSegment.category", "%q is not a valid segment", seg.Category)
		}
		// Category and score always travel together.
		if seg.Score == nil {
			return apperrors.NewValidation("prospectSegment.score", "is required when a category is assigned")
		}
		if *seg.Score < 0 || *seg.Score > 100 {
			return apperrors.NewValidation("prospectSegment.score", "must be between 0 and 100")
		}
	}
	for i, in := range o.Interactions {
		if !contains(InteractionTypes, in.Type) {
			return apperrors.NewValidation(fmt.Sprintf("interactions[%d].type", i), "%q is not a valid interaction type", in.Type)
		}
		if in.Outcome != "" && !contains(InteractionResults, in.Outcome) {
			return apperrors.NewValidation(fmt.Sprintf("interactions[%d].outcome", i), "%q is not a valid outcome", in.Outcome)
		}
	}
	return nil
}
