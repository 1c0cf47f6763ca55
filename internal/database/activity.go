package database

import (
	"database/sql"
	"fmt"
	"time"

	"prospector/server/internal/models"
)

// LogActivity appends an event to the recent-activity feed.
func (d *Database) LogActivity(eventType, description string) error {
	_, err := d.db.Exec(`
		INSERT INTO activity_log (type, description, occurred_at)
		VALUES (?, ?, ?)
	`, eventType, description, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to log activity: %w", err)
	}
	return nil
}

func logActivityTx(tx *sql.Tx, eventType, description string, at time.Time) error {
	_, err := tx.Exec(`
		INSERT INTO activity_log (type, description, occurred_at)
		VALUES (?, ?, ?)
	`, eventType, description, at)
	if err != nil {
		return fmt.Errorf("failed to log activity: %w", err)
	}
	return nil
}

// RecentActivity returns the latest activity events, most recent first.
func (d *Database) RecentActivity(limit int) ([]models.ActivityEvent, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := d.db.Query(`
		SELECT type, description, occurred_at
		FROM activity_log
		ORDER BY occurred_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []models.ActivityEvent{}
	for rows.Next() {
		var ev models.ActivityEvent
		if err := rows.Scan(&ev.Type, &ev.Description, &ev.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan activity event: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
