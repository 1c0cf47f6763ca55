package database

import (
	"database/sql"
	"fmt"
	"math"
	"time"

	"prospector/server/internal/models"
)

// TodayActions returns the open action items scheduled within [start, end)
// with owner and property summaries embedded, ordered by priority descending
// then scheduled time ascending. The ordering is deterministic so a polling
// client sees a stable list. Timestamps compare as text in SQLite, so bounds
// arriving in the caller's zone are normalized to the UTC storage form.
func (d *Database) TodayActions(start, end time.Time) ([]models.TodayAction, error) {
	rows, err := d.db.Query(`
		SELECT
			a.id, a.title, a.priority, a.action_type, a.call_script,
			a.estimated_duration, a.scheduled_date,
			o.full_name, o.email_address, o.email_verified,
			o.phone_mobile, o.phone_home, o.phone_verified,
			o.segment_category, o.segment_score,
			p.street, p.suburb, p.state, p.postcode, p.full_address,
			p.valuation_estimate, p.valuation_confidence, p.valuation_source
		FROM action_items a
		JOIN owners o ON o.id = a.owner_id
		JOIN properties p ON p.id = a.property_id
		WHERE a.scheduled_date >= ? AND a.scheduled_date < ?
		  AND a.status IN (?, ?)
		ORDER BY a.priority DESC, a.scheduled_date ASC
	`, start.UTC(), end.UTC(), models.StatusPending, models.StatusInProgress)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	actions := []models.TodayAction{}
	for rows.Next() {
		var ta models.TodayAction
		var callScript, emailAddress, phoneMobile, phoneHome sql.NullString
		var segCategory, valConfidence, valSource sql.NullString
		var duration, segScore sql.NullInt64
		var emailVerified, phoneVerified bool
		var valEstimate sql.NullFloat64

		err := rows.Scan(
			&ta.ID, &ta.Title, &ta.Priority, &ta.ActionType, &callScript,
			&duration, &ta.ScheduledDate,
			&ta.PropertyOwner.FullName, &emailAddress, &emailVerified,
			&phoneMobile, &phoneHome, &phoneVerified,
			&segCategory, &segScore,
			&ta.Property.Address.Street, &ta.Property.Address.Suburb,
			&ta.Property.Address.State, &ta.Property.Address.Postcode,
			&ta.Property.Address.FullAddress,
			&valEstimate, &valConfidence, &valSource,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan today action: %w", err)
		}

		ta.CallScript = callScript.String
		if duration.Valid {
			ta.EstimatedDuration = int(duration.Int64)
		}
		if emailAddress.Valid {
			ta.PropertyOwner.Email = &models.ContactEmail{Address: emailAddress.String, Verified: emailVerified}
		}
		if phoneMobile.Valid || phoneHome.Valid {
			ta.PropertyOwner.Phone = &models.ContactPhone{
				Mobile:   phoneMobile.String,
				Home:     phoneHome.String,
				Verified: phoneVerified,
			}
		}
		if segCategory.Valid {
			ta.PropertyOwner.ProspectSegment = &models.ProspectSegment{
				Category: segCategory.String,
				Score:    intPtr(segScore),
			}
		}
		if valEstimate.Valid {
			ta.Property.Valuation = &models.Valuation{
				Estimate:   valEstimate.Float64,
				Confidence: valConfidence.String,
				Source:     valSource.String,
			}
		}
		actions = append(actions, ta)
	}
	return actions, rows.Err()
}

// DashboardMetrics assembles the headline counters. Weekly progress is the
// share of the weekly goal covered by actions completed since weekStart.
func (d *Database) DashboardMetrics(dayStart, dayEnd, weekStart time.Time, weeklyGoal int) (models.DashboardMetrics, error) {
	var m models.DashboardMetrics
	m.WeeklyGoal = weeklyGoal

	if err := d.db.QueryRow(`SELECT COUNT(*) FROM properties`).Scan(&m.TotalProperties); err != nil {
		return m, fmt.Errorf("failed to count properties: %w", err)
	}
	if err := d.db.QueryRow(`SELECT COUNT(*) FROM owners`).Scan(&m.TotalOwners); err != nil {
		return m, fmt.Errorf("failed to count owners: %w", err)
	}
	if err := d.db.QueryRow(`
		SELECT COUNT(*) FROM action_items
		WHERE scheduled_date >= ? AND scheduled_date < ?
	`, dayStart.UTC(), dayEnd.UTC()).Scan(&m.TodayTasks); err != nil {
		return m, fmt.Errorf("failed to count today's tasks: %w", err)
	}

	var completed int
	if err := d.db.QueryRow(`
		SELECT COUNT(*) FROM action_items
		WHERE status = ? AND completed_at >= ?
	`, models.StatusCompleted, weekStart.UTC()).Scan(&completed); err != nil {
		return m, fmt.Errorf("failed to count completed actions: %w", err)
	}
	if weeklyGoal > 0 {
		m.WeeklyProgress = int(math.Round(float64(completed) / float64(weeklyGoal) * 100))
	}
	return m, nil
}

// SegmentDistribution returns the owner population broken down by prospect
// segment. Percentages are rounded to one decimal and sum to ~100 for any
// non-empty classified population.
func (d *Database) SegmentDistribution() ([]models.SegmentSlice, error) {
	rows, err := d.db.Query(`
		SELECT segment_category, COUNT(*)
		FROM owners
		WHERE segment_category IS NOT NULL
		GROUP BY segment_category
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[string]int{}
	total := 0
	for rows.Next() {
		var category string
		var count int
		if err := rows.Scan(&category, &count); err != nil {
			return nil, err
		}
		counts[category] = count
		total += count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	slices := []models.SegmentSlice{}
	for _, category := range models.SegmentCategories {
		count, ok := counts[category]
		if !ok {
			continue
		}
		pct := 0.0
		if total > 0 {
			pct = math.Round(float64(count)/float64(total)*1000) / 10
		}
		slices = append(slices, models.SegmentSlice{
			Name:       models.SegmentDisplayNames[category],
			Count:      count,
			Percentage: pct,
			Color:      models.SegmentColors[category],
		})
	}
	return slices, nil
}
