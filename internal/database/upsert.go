package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"prospector/server/internal/models"
)

// UpsertProperties writes a batch of ingested properties inside a gorm
// transaction, keyed on the derived full address: known addresses get their
// details, valuation and data sources refreshed, unknown ones are inserted.
// The batch processor drives this with retry semantics.
func UpsertProperties(tx *gorm.DB, batch []*models.Property) error {
	now := time.Now().UTC()

	for _, p := range batch {
		p.Address.FullAddress = p.Address.Format()
		if err := p.Validate(); err != nil {
			return fmt.Errorf("property %q: %w", p.Address.FullAddress, err)
		}

		history, err := marshalJSON(p.MarketHistory)
		if err != nil {
			return err
		}
		sources, err := marshalJSON(p.DataSources)
		if err != nil {
			return err
		}

		var existingID string
		err = tx.Raw(`SELECT id FROM properties WHERE full_address = ?`, p.Address.FullAddress).
			Row().Scan(&existingID)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			p.ID = newID()
			p.CreatedAt = now
			p.UpdatedAt = now
			res := tx.Exec(`
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
			if res.Error != nil {
				return fmt.Errorf("failed to insert ingested property: %w", res.Error)
			}
			res = tx.Exec(`
				INSERT INTO activity_log (type, description, occurred_at) VALUES (?, ?, ?)
			`, "Property Added", fmt.Sprintf("New listing detected at %s", p.Address.Street), now)
			if res.Error != nil {
				return fmt.Errorf("failed to log ingested property: %w", res.Error)
			}
		case err != nil:
			return fmt.Errorf("failed to look up property by address: %w", err)
		default:
			p.ID = existingID
			p.UpdatedAt = now
			res := tx.Exec(`
				UPDATE properties SET
					property_type = ?, bedrooms = ?, bathrooms = ?, car_spaces = ?,
					land_size = ?, building_area = ?, year_built = ?,
					latitude = ?, longitude = ?,
					valuation_estimate = ?, valuation_confidence = ?, valuation_source = ?, valuation_updated_at = ?,
					market_history = ?, data_sources = ?, updated_at = ?
				WHERE id = ?
			`,
				p.PropertyType, nullInt(p.Bedrooms), nullInt(p.Bathrooms), p.CarSpaces,
				nullFloat(p.LandSize), nullFloat(p.BuildingArea), nullInt(p.YearBuilt),
				p.Coordinates.Lat, p.Coordinates.Lng,
				valuationEstimate(p.Valuation), valuationConfidence(p.Valuation),
				valuationSource(p.Valuation), valuationUpdated(p.Valuation),
				history, sources, p.UpdatedAt, existingID,
			)
			if res.Error != nil {
				return fmt.Errorf("failed to refresh ingested property: %w", res.Error)
			}
		}
	}
	return nil
}
