package geo

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prospector/server/internal/database"
	"prospector/server/internal/models"
)

func setupTestDB(t *testing.T) *database.Database {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	db, err := database.NewDatabase(":memory:", logger)
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())
	t.Cleanup(func() { db.Close() })
	return db
}

func createPropertyAt(t *testing.T, db *database.Database, street, suburb string, lat, lng float64) {
	t.Helper()
	_, err := db.CreateProperty(&models.Property{
		Address: models.Address{
			Street:   street,
			Suburb:   suburb,
			State:    "QLD",
			Postcode: "4226",
		},
		PropertyType: models.PropertyTypeHouse,
		Coordinates:  &models.Coordinates{Lat: lat, Lng: lng},
	})
	require.NoError(t, err)
}

func TestConvexHull(t *testing.T) {
	// A square with an interior point; the hull must drop the interior.
	points := []orb.Point{
		{0, 0}, {2, 0}, {2, 2}, {0, 2}, {1, 1},
	}
	hull := convexHull(points)
	require.NotNil(t, hull)

	// Closed ring: first equals last, interior point excluded.
	assert.Equal(t, hull[0], hull[len(hull)-1])
	assert.Len(t, hull, 5)
	for _, p := range hull {
		assert.NotEqual(t, orb.Point{1, 1}, p)
	}
}

func TestConvexHullCollinear(t *testing.T) {
	points := []orb.Point{{0, 0}, {1, 1}, {2, 2}}
	assert.Nil(t, convexHull(points))
}

func TestSuburbTerritories(t *testing.T) {
	db := setupTestDB(t)
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	tm := NewTerritoryMapper(db, logger)

	createPropertyAt(t, db, "1 First St", "Merrimac", -28.040, 153.360)
	createPropertyAt(t, db, "2 Second St", "Merrimac", -28.050, 153.370)
	createPropertyAt(t, db, "3 Third St", "Merrimac", -28.045, 153.380)
	createPropertyAt(t, db, "4 Fourth St", "Robina", -28.070, 153.390)

	fc, err := tm.SuburbTerritories()
	require.NoError(t, err)

	// Merrimac has three points and gets a hull; Robina with one does not.
	require.Len(t, fc.Features, 1)
	feature := fc.Features[0]
	assert.Equal(t, "Merrimac", feature.Properties["suburb"])
	assert.Equal(t, 3, feature.Properties["point_count"])
	assert.Equal(t, "convex", feature.Properties["hull_type"])
}

func TestSuburbTerritoriesEmpty(t *testing.T) {
	db := setupTestDB(t)
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	tm := NewTerritoryMapper(db, logger)

	fc, err := tm.SuburbTerritories()
	require.NoError(t, err)
	assert.Empty(t, fc.Features)
}
