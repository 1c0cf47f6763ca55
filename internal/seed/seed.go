// Package seed loads demo records into an empty database so the dashboard
// renders something useful on first run.
package seed

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"prospector/server/internal/database"
	"prospector/server/internal/models"
)

type fixture struct {
	owner    models.PropertyOwner
	property models.Property
	action   models.ActionItem
}

// Run seeds demo owners, properties and action items when the database has
// no properties yet. A non-empty database is left untouched.
func Run(db *database.Database, logger *logrus.Logger) error {
	existing, err := db.ListProperties("", 1)
	if err != nil {
		return fmt.Errorf("failed to check for existing records: %w", err)
	}
	if len(existing) > 0 {
		logger.Debug("Database already populated, skipping seed")
		return nil
	}

	logger.Info("Seeding demo records")
	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 9, 0, 0, 0, now.Location())

	for _, f := range fixtures(today) {
		owner, err := db.CreateOwner(&f.owner)
		if err != nil {
			return fmt.Errorf("failed to seed owner %s: %w", f.owner.FirstName, err)
		}

		prop, err := db.CreateProperty(&f.property)
		if err != nil {
			return fmt.Errorf("failed to seed property %s: %w", f.property.Address.Street, err)
		}

		if err := db.SetOwners(prop.ID, []string{owner.ID}); err != nil {
			return fmt.Errorf("failed to link seed owner: %w", err)
		}

		f.action.PropertyOwnerID = owner.ID
		f.action.PropertyID = prop.ID
		if _, err := db.CreateActionItem(&f.action); err != nil {
			return fmt.Errorf("failed to seed action %q: %w", f.action.Title, err)
		}
	}

	logger.Info("Demo records seeded")
	return nil
}

func fixtures(today time.Time) []fixture {
	return []fixture{
		{
			owner: models.PropertyOwner{
				FirstName: "Sarah",
				LastName:  "Johnson",
				Email:     &models.ContactEmail{Address: "sarah.johnson@email.com", Verified: true},
				Phone:     &models.ContactPhone{Mobile: "0412 345 678", Verified: true},
				ProspectSegment: &models.ProspectSegment{
					Category: models.SegmentHotProspect,
					Score:    intPtr(85),
					Reasons:  []string{"Recent purchase", "High equity growth suburb"},
				},
				OwnershipType:    "Owner-Occupier",
				PreferredContact: "Phone",
			},
			property: models.Property{
				Address:      models.Address{Street: "15 Woodland Drive", Suburb: "Merrimac", State: "QLD", Postcode: "4226"},
				PropertyType: models.PropertyTypeHouse,
				Bedrooms:     intPtr(4),
				Bathrooms:    intPtr(2),
				CarSpaces:    2,
				Coordinates:  &models.Coordinates{Lat: -28.0453, Lng: 153.3644},
				Valuation:    &models.Valuation{Estimate: 750000, Confidence: models.ConfidenceHigh, Source: "CoreLogic", LastUpdated: today},
			},
			action: models.ActionItem{
				Title:             "Initial Contact - New Property Owner",
				ActionType:        "First Contact",
				Priority:          8,
				ScheduledDate:     today,
				EstimatedDuration: 15,
				CallScript:        "Hi Sarah, this is Taya Rich from REMAX Regency. I noticed you recently purchased the beautiful property on Woodland Drive in Merrimac. Congratulations! I specialize in the Merrimac area and wanted to introduce myself as your local real estate expert. I'd love to share some insights about your neighborhood and how I can help with any future property needs. Would you have a few minutes for a quick chat?",
			},
		},
		{
			owner: models.PropertyOwner{
				FirstName: "Michael",
				LastName:  "Chen",
				Phone:     &models.ContactPhone{Mobile: "0423 567 890", Verified: true},
				ProspectSegment: &models.ProspectSegment{
					Category: models.SegmentMarketMover,
					Score:    intPtr(72),
					Reasons:  []string{"Requested appraisal"},
				},
				OwnershipType:    "Owner-Occupier",
				PreferredContact: "Phone",
			},
			property: models.Property{
				Address:      models.Address{Street: "8 Riverside Court", Suburb: "Merrimac", State: "QLD", Postcode: "4226"},
				PropertyType: models.PropertyTypeHouse,
				Bedrooms:     intPtr(3),
				Bathrooms:    intPtr(2),
				CarSpaces:    1,
				Coordinates:  &models.Coordinates{Lat: -28.0487, Lng: 153.3702},
				Valuation:    &models.Valuation{Estimate: 820000, Confidence: models.ConfidenceMedium, Source: "CoreLogic", LastUpdated: today},
			},
			action: models.ActionItem{
				Title:             "Follow-up - Property Valuation Interest",
				ActionType:        "Follow-up Call",
				Priority:          7,
				ScheduledDate:     today.Add(time.Hour),
				EstimatedDuration: 20,
				CallScript:        "Hi Michael, it's Taya from REMAX Regency following up on our conversation about getting a current market appraisal for your property on Riverside Court. I've prepared a comprehensive market analysis that shows some interesting trends in your area. When would be a good time to pop by and discuss this with you?",
			},
		},
		{
			owner: models.PropertyOwner{
				FirstName: "Jennifer",
				LastName:  "Williams",
				Email:     &models.ContactEmail{Address: "j.williams@investments.com", Verified: true},
				Phone:     &models.ContactPhone{Mobile: "0434 678 901", Verified: true},
				ProspectSegment: &models.ProspectSegment{
					Category: models.SegmentInvestmentOpportunity,
					Score:    intPtr(68),
					Reasons:  []string{"Investor with rising rental yields"},
				},
				OwnershipType:    "Investor",
				PreferredContact: "Email",
			},
			property: models.Property{
				Address:      models.Address{Street: "22 Pacific View Street", Suburb: "Merrimac", State: "QLD", Postcode: "4226"},
				PropertyType: models.PropertyTypeTownhouse,
				Bedrooms:     intPtr(3),
				Bathrooms:    intPtr(2),
				CarSpaces:    1,
				Coordinates:  &models.Coordinates{Lat: -28.0521, Lng: 153.3598},
				Valuation:    &models.Valuation{Estimate: 680000, Confidence: models.ConfidenceMedium, Source: "CoreLogic", LastUpdated: today},
			},
			action: models.ActionItem{
				Title:             "Market Update - Investment Property",
				ActionType:        "Market Update",
				Priority:          6,
				ScheduledDate:     today.Add(2 * time.Hour),
				EstimatedDuration: 12,
				CallScript:        "Hi Jennifer, Taya here from REMAX Regency. I have some exciting news about the investment property market in Merrimac. There's been a 12% increase in rental yields in your area over the past quarter. I thought you'd be interested in how this affects your Pacific View property and some new opportunities I'm seeing. Do you have time for a quick update?",
			},
		},
	}
}

func intPtr(v int) *int {
	return &v
}
