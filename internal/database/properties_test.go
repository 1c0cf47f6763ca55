package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prospector/server/internal/apperrors"
	"prospector/server/internal/models"
)

func TestCreateAndGetProperty(t *testing.T) {
	db := setupTestDB(t)

	created, err := db.CreateProperty(testProperty("15 Woodland Drive"))
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "15 Woodland Drive, Merrimac QLD 4226", created.Address.FullAddress)
	assert.False(t, created.CreatedAt.IsZero())

	got, err := db.GetProperty(created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, models.PropertyTypeHouse, got.PropertyType)
	assert.Empty(t, got.OwnerIDs)

	_, err = db.GetProperty("missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestCreatePropertyValidation(t *testing.T) {
	db := setupTestDB(t)

	tests := []struct {
		name   string
		mutate func(*models.Property)
	}{
		{"missing street", func(p *models.Property) { p.Address.Street = "" }},
		{"bad property type", func(p *models.Property) { p.PropertyType = "Castle" }},
		{"missing coordinates", func(p *models.Property) { p.Coordinates = nil }},
		{"latitude out of range", func(p *models.Property) { p.Coordinates.Lat = 91 }},
		{"negative bedrooms", func(p *models.Property) { n := -1; p.Bedrooms = &n }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testProperty("1 Test Street")
			tt.mutate(p)
			_, err := db.CreateProperty(p)
			assert.True(t, apperrors.IsValidation(err), "expected validation error, got %v", err)
		})
	}
}

func TestUpdatePropertyRederivesFullAddress(t *testing.T) {
	db := setupTestDB(t)

	created, err := db.CreateProperty(testProperty("15 Woodland Drive"))
	require.NoError(t, err)

	suburb := "Robina"
	updated, err := db.UpdateProperty(created.ID, PropertyPatch{Suburb: &suburb})
	require.NoError(t, err)
	assert.Equal(t, "15 Woodland Drive, Robina QLD 4226", updated.Address.FullAddress)
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt) || updated.UpdatedAt.Equal(created.UpdatedAt))

	_, err = db.UpdateProperty("missing", PropertyPatch{Suburb: &suburb})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestUpdatePropertyValuationLogsActivity(t *testing.T) {
	db := setupTestDB(t)

	created, err := db.CreateProperty(testProperty("15 Woodland Drive"))
	require.NoError(t, err)

	val := &models.Valuation{Estimate: 750000, Confidence: models.ConfidenceHigh, LastUpdated: time.Now().UTC()}
	_, err = db.UpdateProperty(created.ID, PropertyPatch{Valuation: val})
	require.NoError(t, err)

	events, err := db.RecentActivity(10)
	require.NoError(t, err)
	require.NotEmpty(t, events)
	assert.Equal(t, "Valuation Updated", events[0].Type)
}

func TestListPropertiesOrdering(t *testing.T) {
	db := setupTestDB(t)

	cheap := testProperty("1 Cheap Street")
	cheap.Valuation = &models.Valuation{Estimate: 500000, LastUpdated: time.Now().UTC()}
	_, err := db.CreateProperty(cheap)
	require.NoError(t, err)

	dear := testProperty("2 Dear Street")
	dear.Valuation = &models.Valuation{Estimate: 900000, LastUpdated: time.Now().UTC()}
	_, err = db.CreateProperty(dear)
	require.NoError(t, err)

	_, err = db.CreateProperty(testProperty("3 Unvalued Street"))
	require.NoError(t, err)

	props, err := db.ListProperties("", 0)
	require.NoError(t, err)
	require.Len(t, props, 3)
	assert.Equal(t, "2 Dear Street", props[0].Address.Street)
	assert.Equal(t, "1 Cheap Street", props[1].Address.Street)
	assert.Equal(t, "3 Unvalued Street", props[2].Address.Street)
}

func TestFindPropertyByAddress(t *testing.T) {
	db := setupTestDB(t)

	created, err := db.CreateProperty(testProperty("15 Woodland Drive"))
	require.NoError(t, err)

	found, err := db.FindPropertyByAddress("15 Woodland Drive, Merrimac QLD 4226")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	_, err = db.FindPropertyByAddress("1 Nowhere Lane, Merrimac QLD 4226")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestNearbyProperties(t *testing.T) {
	db := setupTestDB(t)

	near := testProperty("15 Woodland Drive")
	near.Coordinates = &models.Coordinates{Lat: -28.0453, Lng: 153.3644}
	_, err := db.CreateProperty(near)
	require.NoError(t, err)

	far := testProperty("99 Distant Road")
	far.Coordinates = &models.Coordinates{Lat: -27.4698, Lng: 153.0251} // Brisbane, ~70km away
	_, err = db.CreateProperty(far)
	require.NoError(t, err)

	props, err := db.NearbyProperties(-28.0453, 153.3644, 2000)
	require.NoError(t, err)
	require.Len(t, props, 1)
	assert.Equal(t, "15 Woodland Drive", props[0].Address.Street)
}

func TestSetOwners(t *testing.T) {
	db := setupTestDB(t)

	owner, prop := createLinkedPair(t, db)

	got, err := db.GetProperty(prop.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{owner.ID}, got.OwnerIDs)

	propIDs, err := db.PropertiesOf(owner.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{prop.ID}, propIDs)

	// Replacing with an empty set unlinks everything.
	require.NoError(t, db.SetOwners(prop.ID, nil))
	got, err = db.GetProperty(prop.ID)
	require.NoError(t, err)
	assert.Empty(t, got.OwnerIDs)

	err = db.SetOwners(prop.ID, []string{"missing-owner"})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestUpdatePropertyStaleWriteRefused(t *testing.T) {
	db := setupTestDB(t)
	created, err := db.CreateProperty(testProperty("15 Woodland Drive"))
	require.NoError(t, err)

	stale, err := db.GetProperty(created.ID)
	require.NoError(t, err)

	suburb := "Robina"
	_, err = db.UpdateProperty(created.ID, PropertyPatch{Suburb: &suburb})
	require.NoError(t, err)

	// A writer merging from the pre-update snapshot misses the guard
	// instead of clobbering the suburb change.
	readAt := stale.UpdatedAt
	stale.CarSpaces = 4
	stale.UpdatedAt = time.Now().UTC()
	written, err := db.writeProperty(stale, readAt, false)
	require.NoError(t, err)
	assert.False(t, written)

	current, err := db.GetProperty(created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Robina", current.Address.Suburb)
	assert.Equal(t, 0, current.CarSpaces)
}

func TestUpdatePropertyMergesOntoLatest(t *testing.T) {
	db := setupTestDB(t)
	created, err := db.CreateProperty(testProperty("15 Woodland Drive"))
	require.NoError(t, err)

	suburb := "Robina"
	_, err = db.UpdateProperty(created.ID, PropertyPatch{Suburb: &suburb})
	require.NoError(t, err)

	spaces := 4
	updated, err := db.UpdateProperty(created.ID, PropertyPatch{CarSpaces: &spaces})
	require.NoError(t, err)

	// Each patch rereads before merging, so neither field is lost.
	assert.Equal(t, "Robina", updated.Address.Suburb)
	assert.Equal(t, 4, updated.CarSpaces)
}
