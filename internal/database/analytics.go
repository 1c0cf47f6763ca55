package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"prospector/server/internal/apperrors"
	"prospector/server/internal/models"
)

const analyticsDateLayout = "2006-01-02"

// UpsertAnalytics writes a daily rollup. The UNIQUE constraint on date keeps
// one record per calendar day; writing the same day again replaces it.
func (d *Database) UpsertAnalytics(a *models.Analytics) (*models.Analytics, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}

	day := a.Date.UTC().Format(analyticsDateLayout)
	perf, err := marshalJSON(a.SegmentPerformance)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()

	_, err = d.db.Exec(`
		INSERT INTO analytics
			(id, date, total_calls, connected_calls, appointments, listings, prospects,
			 segment_performance, properties_updated, new_properties, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
			total_calls = excluded.total_calls,
			connected_calls = excluded.connected_calls,
			appointments = excluded.appointments,
			listings = excluded.listings,
			prospects = excluded.prospects,
			segment_performance = excluded.segment_performance,
			properties_updated = excluded.properties_updated,
			new_properties = excluded.new_properties
	`,
		newID(), day, a.Metrics.TotalCalls, a.Metrics.ConnectedCalls,
		a.Metrics.Appointments, a.Metrics.Listings, a.Metrics.Prospects,
		perf, a.PropertiesUpdated, a.NewProperties, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert analytics: %w", err)
	}
	return d.GetAnalyticsByDate(a.Date)
}

// GetAnalyticsByDate returns the rollup for one calendar day.
func (d *Database) GetAnalyticsByDate(date time.Time) (*models.Analytics, error) {
	row := d.db.QueryRow(`
		SELECT id, date, total_calls, connected_calls, appointments, listings, prospects,
		       segment_performance, properties_updated, new_properties, created_at
		FROM analytics WHERE date = ?
	`, date.UTC().Format(analyticsDateLayout))
	return scanAnalytics(row)
}

// AnalyticsRange returns rollups between from and to inclusive, newest
// first.
func (d *Database) AnalyticsRange(from, to time.Time) ([]models.Analytics, error) {
	rows, err := d.db.Query(`
		SELECT id, date, total_calls, connected_calls, appointments, listings, prospects,
		       segment_performance, properties_updated, new_properties, created_at
		FROM analytics
		WHERE date >= ? AND date <= ?
		ORDER BY date DESC
	`, from.UTC().Format(analyticsDateLayout), to.UTC().Format(analyticsDateLayout))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []models.Analytics
	for rows.Next() {
		a, err := scanAnalytics(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	return result, rows.Err()
}

// ComputeDailyRollup aggregates one calendar day's completed work into an
// Analytics record and upserts it: call counts from completed call actions,
// connected calls and appointments from the owners' interaction logs, and
// property churn from created/updated timestamps.
func (d *Database) ComputeDailyRollup(day time.Time) (*models.Analytics, error) {
	start := day.UTC().Truncate(24 * time.Hour)
	end := start.Add(24 * time.Hour)

	a := &models.Analytics{Date: start}

	err := d.db.QueryRow(`
		SELECT
			COUNT(CASE WHEN action_type IN ('First Contact', 'Follow-up Call') THEN 1 END),
			COUNT(*)
		FROM action_items
		WHERE status = ? AND completed_at >= ? AND completed_at < ?
	`, models.StatusCompleted, start, end).Scan(&a.Metrics.TotalCalls, &a.Metrics.Prospects)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate actions: %w", err)
	}

	err = d.db.QueryRow(`
		SELECT
			COUNT(CASE WHEN created_at >= ? AND created_at < ? THEN 1 END),
			COUNT(CASE WHEN created_at < ? AND updated_at >= ? AND updated_at < ? THEN 1 END)
		FROM properties
	`, start, end, start, start, end).Scan(&a.NewProperties, &a.PropertiesUpdated)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate properties: %w", err)
	}

	perf, connected, appointments, err := d.segmentPerformanceFor(start, end)
	if err != nil {
		return nil, err
	}
	a.SegmentPerformance = perf
	a.Metrics.ConnectedCalls = connected
	a.Metrics.Appointments = appointments

	return d.UpsertAnalytics(a)
}

// segmentPerformanceFor walks the day's completed actions grouped by the
// owner's segment and counts responses from the owners' interaction logs.
func (d *Database) segmentPerformanceFor(start, end time.Time) ([]models.SegmentPerformance, int, int, error) {
	rows, err := d.db.Query(`
		SELECT o.segment_category, o.id, COUNT(a.id)
		FROM action_items a
		JOIN owners o ON o.id = a.owner_id
		WHERE a.status = ? AND a.completed_at >= ? AND a.completed_at < ?
		  AND o.segment_category IS NOT NULL
		GROUP BY o.segment_category, o.id
	`, models.StatusCompleted, start, end)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to aggregate segments: %w", err)
	}
	defer rows.Close()

	type ownerContacts struct {
		segment  string
		contacts int
	}
	byOwner := map[string]ownerContacts{}
	for rows.Next() {
		var segment, ownerID string
		var contacts int
		if err := rows.Scan(&segment, &ownerID, &contacts); err != nil {
			return nil, 0, 0, err
		}
		byOwner[ownerID] = ownerContacts{segment: segment, contacts: contacts}
	}
	if err := rows.Err(); err != nil {
		return nil, 0, 0, err
	}

	totals := map[string]*models.SegmentPerformance{}
	connectedTotal, appointmentTotal := 0, 0
	for ownerID, oc := range byOwner {
		perf, ok := totals[oc.segment]
		if !ok {
			perf = &models.SegmentPerformance{Segment: oc.segment}
			totals[oc.segment] = perf
		}
		perf.Contacts += oc.contacts

		owner, err := d.GetOwner(ownerID)
		if err != nil {
			return nil, 0, 0, err
		}
		for _, in := range owner.Interactions {
			if in.Date.Before(start) || !in.Date.Before(end) {
				continue
			}
			switch in.Outcome {
			case "Connected", "Interested":
				perf.Responses++
				connectedTotal++
			case "Follow-up Scheduled":
				perf.Appointments++
				appointmentTotal++
			}
			if in.Outcome == "Interested" {
				perf.Conversions++
			}
		}
	}

	var result []models.SegmentPerformance
	for _, category := range models.SegmentCategories {
		if perf, ok := totals[category]; ok {
			result = append(result, *perf)
		}
	}
	return result, connectedTotal, appointmentTotal, nil
}

func scanAnalytics(row rowScanner) (*models.Analytics, error) {
	var a models.Analytics
	var day string
	var perf sql.NullString

	err := row.Scan(
		&a.ID, &day, &a.Metrics.TotalCalls, &a.Metrics.ConnectedCalls,
		&a.Metrics.Appointments, &a.Metrics.Listings, &a.Metrics.Prospects,
		&perf, &a.PropertiesUpdated, &a.NewProperties, &a.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan analytics: %w", err)
	}

	a.Date, err = time.ParseInLocation(analyticsDateLayout, day, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("failed to parse analytics date: %w", err)
	}
	if err := unmarshalJSON(perf, &a.SegmentPerformance); err != nil {
		return nil, fmt.Errorf("failed to decode segment performance: %w", err)
	}
	return &a, nil
}
