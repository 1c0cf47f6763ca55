package database

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"prospector/server/internal/models"
)

func setupTestDB(t *testing.T) *Database {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	db, err := NewDatabase(":memory:", logger)
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())
	t.Cleanup(func() { db.Close() })
	return db
}

func testProperty(street string) *models.Property {
	return &models.Property{
		Address: models.Address{
			Street:   street,
			Suburb:   "Merrimac",
			State:    "QLD",
			Postcode: "4226",
		},
		PropertyType: models.PropertyTypeHouse,
		CarSpaces:    2,
		Coordinates:  &models.Coordinates{Lat: -28.0453, Lng: 153.3644},
	}
}

func testOwner(first, last string) *models.PropertyOwner {
	score := 85
	return &models.PropertyOwner{
		FirstName: first,
		LastName:  last,
		Phone:     &models.ContactPhone{Mobile: "0412 345 678"},
		ProspectSegment: &models.ProspectSegment{
			Category: models.SegmentHotProspect,
			Score:    &score,
		},
	}
}

func createLinkedPair(t *testing.T, db *Database) (*models.PropertyOwner, *models.Property) {
	t.Helper()

	owner, err := db.CreateOwner(testOwner("Sarah", "Johnson"))
	require.NoError(t, err)
	prop, err := db.CreateProperty(testProperty("15 Woodland Drive"))
	require.NoError(t, err)
	require.NoError(t, db.SetOwners(prop.ID, []string{owner.ID}))
	return owner, prop
}

func testAction(ownerID, propertyID string, priority int, scheduled time.Time) *models.ActionItem {
	return &models.ActionItem{
		PropertyOwnerID: ownerID,
		PropertyID:      propertyID,
		ActionType:      "First Contact",
		Priority:        priority,
		ScheduledDate:   scheduled,
		Title:           "Initial Contact",
	}
}
