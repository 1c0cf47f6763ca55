package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"prospector/server/internal/apperrors"
	"prospector/server/internal/models"
)

const propertyColumns = `id, street, suburb, state, postcode, full_address, property_type,
	bedrooms, bathrooms, car_spaces, land_size, building_area, year_built,
	latitude, longitude,
	valuation_estimate, valuation_confidence, valuation_source, valuation_updated_at,
	market_history, data_sources, created_at, updated_at`

// PropertyPatch holds the fields UpdateProperty may merge; nil means "leave
// unchanged".
type PropertyPatch struct {
	Street        *string
	Suburb        *string
	State         *string
	Postcode      *string
	PropertyType  *string
	Bedrooms      *int
	Bathrooms     *int
	CarSpaces     *int
	LandSize      *float64
	BuildingArea  *float64
	YearBuilt     *int
	Coordinates   *models.Coordinates
	Valuation     *models.Valuation
	MarketHistory *[]models.MarketEvent
	DataSources   *[]models.DataSourceRef
}

// CreateProperty validates and persists a property, returning it with the
// generated id, derived full address and timestamps populated.
func (d *Database) CreateProperty(p *models.Property) (*models.Property, error) {
	p.Address.FullAddress = p.Address.Format()
	if err := p.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	p.ID = newID()
	p.CreatedAt = now
	p.UpdatedAt = now

	history, err := marshalJSON(p.MarketHistory)
	if err != nil {
		return nil, err
	}
	sources, err := marshalJSON(p.DataSources)
	if err != nil {
		return nil, err
	}

	tx, err := d.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO properties (`+propertyColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		p.ID, p.Address.Street, p.Address.Suburb, p.Address.State, p.Address.Postcode,
		p.Address.FullAddress, p.PropertyType,
		nullInt(p.Bedrooms), nullInt(p.Bathrooms), p.CarSpaces,
		nullFloat(p.LandSize), nullFloat(p.BuildingArea), nullInt(p.YearBuilt),
		p.Coordinates.Lat, p.Coordinates.Lng,
		valuationEstimate(p.Valuation), valuationConfidence(p.Valuation),
		valuationSource(p.Valuation), valuationUpdated(p.Valuation),
		history, sources, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert property: %w", err)
	}

	if err := logActivityTx(tx, "Property Added",
		fmt.Sprintf("New listing detected at %s", p.Address.Street), now); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return d.GetProperty(p.ID)
}

// GetProperty returns the property with the given id, owners resolved
// through the join table.
func (d *Database) GetProperty(id string) (*models.Property, error) {
	row := d.db.QueryRow(`SELECT `+propertyColumns+` FROM properties WHERE id = ?`, id)
	p, err := scanProperty(row)
	if err != nil {
		return nil, err
	}
	p.OwnerIDs, err = d.OwnersOf(id)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// UpdateProperty merges the patch into the stored record, revalidates, and
// bumps updatedAt. The full address is rederived whenever any address
// component changes. The write is guarded on the updatedAt the record was
// read at; a concurrent writer makes the guard miss, and the merge reruns on
// a fresh read so neither patch is lost.
func (d *Database) UpdateProperty(id string, patch PropertyPatch) (*models.Property, error) {
	for attempt := 0; attempt < updateAttempts; attempt++ {
		p, err := d.GetProperty(id)
		if err != nil {
			return nil, err
		}
		valuationChanged := mergePropertyPatch(p, patch)

		p.Address.FullAddress = p.Address.Format()
		if err := p.Validate(); err != nil {
			return nil, err
		}
		readAt := p.UpdatedAt
		p.UpdatedAt = time.Now().UTC()

		written, err := d.writeProperty(p, readAt, valuationChanged)
		if err != nil {
			return nil, err
		}
		if written {
			return p, nil
		}
	}
	return nil, apperrors.ErrConflict
}

func mergePropertyPatch(p *models.Property, patch PropertyPatch) (valuationChanged bool) {
	if patch.Street != nil {
		p.Address.Street = *patch.Street
	}
	if patch.Suburb != nil {
		p.Address.Suburb = *patch.Suburb
	}
	if patch.State != nil {
		p.Address.State = *patch.State
	}
	if patch.Postcode != nil {
		p.Address.Postcode = *patch.Postcode
	}
	if patch.PropertyType != nil {
		p.PropertyType = *patch.PropertyType
	}
	if patch.Bedrooms != nil {
		p.Bedrooms = patch.Bedrooms
	}
	if patch.Bathrooms != nil {
		p.Bathrooms = patch.Bathrooms
	}
	if patch.CarSpaces != nil {
		p.CarSpaces = *patch.CarSpaces
	}
	if patch.LandSize != nil {
		p.LandSize = patch.LandSize
	}
	if patch.BuildingArea != nil {
		p.BuildingArea = patch.BuildingArea
	}
	if patch.YearBuilt != nil {
		p.YearBuilt = patch.YearBuilt
	}
	if patch.Coordinates != nil {
		p.Coordinates = patch.Coordinates
	}
	if patch.Valuation != nil {
		p.Valuation = patch.Valuation
		valuationChanged = true
	}
	if patch.MarketHistory != nil {
		p.MarketHistory = *patch.MarketHistory
	}
	if patch.DataSources != nil {
		p.DataSources = *patch.DataSources
	}
	return valuationChanged
}

// writeProperty persists the merged record if its updatedAt still matches
// readAt. A guard miss rolls everything back, activity entry included, and
// reports false so the caller can remerge.
func (d *Database) writeProperty(p *models.Property, readAt time.Time, valuationChanged bool) (bool, error) {
	history, err := marshalJSON(p.MarketHistory)
	if err != nil {
		return false, err
	}
	sources, err := marshalJSON(p.DataSources)
	if err != nil {
		return false, err
	}

	tx, err := d.db.Begin()
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		UPDATE properties SET
			street = ?, suburb = ?, state = ?, postcode = ?, full_address = ?,
			property_type = ?, bedrooms = ?, bathrooms = ?, car_spaces = ?,
			land_size = ?, building_area = ?, year_built = ?,
			latitude = ?, longitude = ?,
			valuation_estimate = ?, valuation_confidence = ?, valuation_source = ?, valuation_updated_at = ?,
			market_history = ?, data_sources = ?, updated_at = ?
		WHERE id = ? AND updated_at = ?
	`,
		p.Address.Street, p.Address.Suburb, p.Address.State, p.Address.Postcode, p.Address.FullAddress,
		p.PropertyType, nullInt(p.Bedrooms), nullInt(p.Bathrooms), p.CarSpaces,
		nullFloat(p.LandSize), nullFloat(p.BuildingArea), nullInt(p.YearBuilt),
		p.Coordinates.Lat, p.Coordinates.Lng,
		valuationEstimate(p.Valuation), valuationConfidence(p.Valuation),
		valuationSource(p.Valuation), valuationUpdated(p.Valuation),
		history, sources, p.UpdatedAt, p.ID, readAt.UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("failed to update property: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return false, nil
	}

	if valuationChanged {
		if err := logActivityTx(tx, "Valuation Updated",
			fmt.Sprintf("Property valuation updated for %s", p.Address.Street), p.UpdatedAt); err != nil {
			return false, err
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return true, nil
}

// ListProperties returns properties, optionally filtered by suburb, ordered
// by valuation estimate descending with unvalued properties last.
func (d *Database) ListProperties(suburb string, limit int) ([]models.Property, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := d.db.Query(`
		SELECT `+propertyColumns+`
		FROM properties
		WHERE (? = '' OR LOWER(suburb) = LOWER(?))
		ORDER BY valuation_estimate IS NULL, valuation_estimate DESC
		LIMIT ?
	`, suburb, suburb, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return d.collectProperties(rows)
}

// FindPropertyByAddress looks a property up by its derived full address.
func (d *Database) FindPropertyByAddress(fullAddress string) (*models.Property, error) {
	row := d.db.QueryRow(`SELECT `+propertyColumns+` FROM properties WHERE full_address = ?`, fullAddress)
	p, err := scanProperty(row)
	if err != nil {
		return nil, err
	}
	p.OwnerIDs, err = d.OwnersOf(p.ID)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// NearbyProperties returns properties within radiusMeters of the given
// point. The coordinate index narrows to a bounding box; the exact
// great-circle distance check runs on the candidates.
func (d *Database) NearbyProperties(lat, lng, radiusMeters float64) ([]models.Property, error) {
	// ~1 deg latitude = 111km; longitude shrinks with latitude but the box
	// only has to be conservative.
	latDelta := radiusMeters / 111_000
	lngDelta := radiusMeters / 75_000

	rows, err := d.db.Query(`
		SELECT `+propertyColumns+`
		FROM properties
		WHERE latitude BETWEEN ? AND ?
		  AND longitude BETWEEN ? AND ?
	`, lat-latDelta, lat+latDelta, lng-lngDelta, lng+lngDelta)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	candidates, err := d.collectProperties(rows)
	if err != nil {
		return nil, err
	}

	center := orb.Point{lng, lat}
	var result []models.Property
	for _, p := range candidates {
		pt := orb.Point{p.Coordinates.Lng, p.Coordinates.Lat}
		if geo.Distance(center, pt) <= radiusMeters {
			result = append(result, p)
		}
	}
	return result, nil
}

// SetOwners replaces the owner set of a property. Every owner id must
// resolve; the whole replacement runs in one transaction.
func (d *Database) SetOwners(propertyID string, ownerIDs []string) error {
	if _, err := d.GetProperty(propertyID); err != nil {
		return err
	}
	for _, ownerID := range ownerIDs {
		if _, err := d.GetOwner(ownerID); err != nil {
			return fmt.Errorf("owner %s: %w", ownerID, err)
		}
	}

	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM property_owners WHERE property_id = ?`, propertyID); err != nil {
		return fmt.Errorf("failed to clear owners: %w", err)
	}
	for _, ownerID := range ownerIDs {
		if _, err := tx.Exec(`INSERT INTO property_owners (property_id, owner_id) VALUES (?, ?)`, propertyID, ownerID); err != nil {
			return fmt.Errorf("failed to link owner: %w", err)
		}
	}
	if _, err := tx.Exec(`UPDATE properties SET updated_at = ? WHERE id = ?`, time.Now().UTC(), propertyID); err != nil {
		return fmt.Errorf("failed to bump property: %w", err)
	}

	return tx.Commit()
}

// OwnersOf returns the owner ids linked to a property.
func (d *Database) OwnersOf(propertyID string) ([]string, error) {
	return d.collectIDs(`SELECT owner_id FROM property_owners WHERE property_id = ? ORDER BY owner_id`, propertyID)
}

// PropertiesOf returns the property ids linked to an owner.
func (d *Database) PropertiesOf(ownerID string) ([]string, error) {
	return d.collectIDs(`SELECT property_id FROM property_owners WHERE owner_id = ? ORDER BY property_id`, ownerID)
}

func (d *Database) collectIDs(query string, arg string) ([]string, error) {
	rows, err := d.db.Query(query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (d *Database) collectProperties(rows *sql.Rows) ([]models.Property, error) {
	var properties []models.Property
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, err
		}
		properties = append(properties, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range properties {
		ownerIDs, err := d.OwnersOf(properties[i].ID)
		if err != nil {
			return nil, err
		}
		properties[i].OwnerIDs = ownerIDs
	}
	return properties, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProperty(row rowScanner) (*models.Property, error) {
	var p models.Property
	var bedrooms, bathrooms, yearBuilt sql.NullInt64
	var landSize, buildingArea, valEstimate sql.NullFloat64
	var valConfidence, valSource, history, sources sql.NullString
	var valUpdated sql.NullTime
	var lat, lng float64

	err := row.Scan(
		&p.ID, &p.Address.Street, &p.Address.Suburb, &p.Address.State, &p.Address.Postcode,
		&p.Address.FullAddress, &p.PropertyType,
		&bedrooms, &bathrooms, &p.CarSpaces, &landSize, &buildingArea, &yearBuilt,
		&lat, &lng,
		&valEstimate, &valConfidence, &valSource, &valUpdated,
		&history, &sources, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan property: %w", err)
	}

	p.Bedrooms = intPtr(bedrooms)
	p.Bathrooms = intPtr(bathrooms)
	p.YearBuilt = intPtr(yearBuilt)
	p.LandSize = floatPtr(landSize)
	p.BuildingArea = floatPtr(buildingArea)
	p.Coordinates = &models.Coordinates{Lat: lat, Lng: lng}

	if valEstimate.Valid {
		p.Valuation = &models.Valuation{
			Estimate:   valEstimate.Float64,
			Confidence: valConfidence.String,
			Source:     valSource.String,
		}
		if valUpdated.Valid {
			p.Valuation.LastUpdated = valUpdated.Time
		}
	}
	if err := unmarshalJSON(history, &p.MarketHistory); err != nil {
		return nil, fmt.Errorf("failed to decode market history: %w", err)
	}
	if err := unmarshalJSON(sources, &p.DataSources); err != nil {
		return nil, fmt.Errorf("failed to decode data sources: %w", err)
	}
	p.OwnerIDs = []string{}
	return &p, nil
}

func valuationEstimate(v *models.Valuation) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v.Estimate, Valid: true}
}

func valuationConfidence(v *models.Valuation) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return nullString(v.Confidence)
}

func valuationSource(v *models.Valuation) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return nullString(v.Source)
}

func valuationUpdated(v *models.Valuation) sql.NullTime {
	if v == nil {
		return sql.NullTime{}
	}
	if v.LastUpdated.IsZero() {
		return sql.NullTime{Time: time.Now().UTC(), Valid: true}
	}
	return sql.NullTime{Time: v.LastUpdated.UTC(), Valid: true}
}
