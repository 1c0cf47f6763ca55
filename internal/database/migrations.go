package database

import "fmt"

// RunMigrations creates the four collections, the ownership join table, the
// activity log, and every secondary index. All statements are idempotent.
func (d *Database) RunMigrations() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS properties (
			id TEXT PRIMARY KEY,
			street TEXT NOT NULL,
			suburb TEXT NOT NULL,
			state TEXT NOT NULL,
			postcode TEXT NOT NULL,
			full_address TEXT NOT NULL,
			property_type TEXT NOT NULL,
			bedrooms INTEGER,
			bathrooms INTEGER,
			car_spaces INTEGER NOT NULL DEFAULT 0,
			land_size REAL,
			building_area REAL,
			year_built INTEGER,
			latitude REAL NOT NULL,
			longitude REAL NOT NULL,
			valuation_estimate REAL,
			valuation_confidence TEXT,
			valuation_source TEXT,
			valuation_updated_at TIMESTAMP,
			market_history TEXT,
			data_sources TEXT,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS owners (
			id TEXT PRIMARY KEY,
			first_name TEXT NOT NULL,
			last_name TEXT NOT NULL,
			full_name TEXT NOT NULL,
			email_address TEXT,
			email_verified INTEGER NOT NULL DEFAULT 0,
			email_verified_at TIMESTAMP,
			phone_mobile TEXT,
			phone_home TEXT,
			phone_verified INTEGER NOT NULL DEFAULT 0,
			phone_verified_at TIMESTAMP,
			estimated_age INTEGER,
			occupation TEXT,
			household_income TEXT,
			ownership_type TEXT,
			segment_category TEXT,
			segment_score INTEGER,
			segment_reasons TEXT,
			segment_assessed_at TIMESTAMP,
			interactions TEXT,
			preferred_contact TEXT,
			do_not_contact INTEGER NOT NULL DEFAULT 0,
			tags TEXT,
			notes TEXT,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		// Single source of truth for the many-to-many; both directions
		// resolve through here rather than duplicated reference arrays.
		`CREATE TABLE IF NOT EXISTS property_owners (
			property_id TEXT NOT NULL REFERENCES properties(id),
			owner_id TEXT NOT NULL REFERENCES owners(id),
			PRIMARY KEY (property_id, owner_id)
		)`,
		`CREATE TABLE IF NOT EXISTS action_items (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL REFERENCES owners(id),
			property_id TEXT NOT NULL REFERENCES properties(id),
			action_type TEXT NOT NULL,
			priority INTEGER NOT NULL DEFAULT 5,
			scheduled_date TIMESTAMP NOT NULL,
			estimated_duration INTEGER,
			title TEXT NOT NULL,
			description TEXT,
			call_script TEXT,
			email_template TEXT,
			status TEXT NOT NULL DEFAULT 'Pending',
			completed_at TIMESTAMP,
			result TEXT,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		// date is stored as YYYY-MM-DD; UNIQUE enforces one rollup per day.
		`CREATE TABLE IF NOT EXISTS analytics (
			id TEXT PRIMARY KEY,
			date TEXT NOT NULL UNIQUE,
			total_calls INTEGER NOT NULL DEFAULT 0,
			connected_calls INTEGER NOT NULL DEFAULT 0,
			appointments INTEGER NOT NULL DEFAULT 0,
			listings INTEGER NOT NULL DEFAULT 0,
			prospects INTEGER NOT NULL DEFAULT 0,
			segment_performance TEXT,
			properties_updated INTEGER NOT NULL DEFAULT 0,
			new_properties INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS activity_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			type TEXT NOT NULL,
			description TEXT NOT NULL,
			occurred_at TIMESTAMP NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_properties_full_address ON properties(full_address)`,
		`CREATE INDEX IF NOT EXISTS idx_properties_coordinates ON properties(latitude, longitude)`,
		`CREATE INDEX IF NOT EXISTS idx_properties_valuation ON properties(valuation_estimate DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_owners_full_name ON owners(full_name)`,
		`CREATE INDEX IF NOT EXISTS idx_owners_email ON owners(email_address)`,
		`CREATE INDEX IF NOT EXISTS idx_owners_mobile ON owners(phone_mobile)`,
		`CREATE INDEX IF NOT EXISTS idx_owners_segment ON owners(segment_category, segment_score DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_property_owners_owner ON property_owners(owner_id)`,
		`CREATE INDEX IF NOT EXISTS idx_actions_schedule ON action_items(scheduled_date, priority DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_actions_status ON action_items(status, scheduled_date)`,
		`CREATE INDEX IF NOT EXISTS idx_analytics_date ON analytics(date DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_activity_occurred ON activity_log(occurred_at DESC)`,
	}

	for _, stmt := range statements {
		if _, err := d.db.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}
