package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"prospector/server/internal/apperrors"
	"prospector/server/internal/models"
)

const actionColumns = `id, owner_id, property_id, action_type, priority,
	scheduled_date, estimated_duration, title, description, call_script,
	email_template, status, completed_at, result, created_at, updated_at`

// ActionPatch holds the fields UpdateActionItem may merge; nil means "leave
// unchanged". Status transitions go through the dedicated methods instead.
type ActionPatch struct {
	ActionType        *string
	Priority          *int
	ScheduledDate     *time.Time
	EstimatedDuration *int
	Title             *string
	Description       *string
	CallScript        *string
	EmailTemplate     *string
}

// CreateActionItem validates and persists an action item. Owners flagged
// do-not-contact reject new outbound actions.
func (d *Database) CreateActionItem(a *models.ActionItem) (*models.ActionItem, error) {
	a.ApplyDefaults()
	if err := a.Validate(); err != nil {
		return nil, err
	}

	owner, err := d.GetOwner(a.PropertyOwnerID)
	if err != nil {
		return nil, fmt.Errorf("owner %s: %w", a.PropertyOwnerID, err)
	}
	if owner.DoNotContact {
		return nil, apperrors.ErrDoNotContact
	}
	if _, err := d.GetProperty(a.PropertyID); err != nil {
		return nil, fmt.Errorf("property %s: %w", a.PropertyID, err)
	}

	now := time.Now().UTC()
	a.ID = newID()
	a.CreatedAt = now
	a.UpdatedAt = now
	// Stored as UTC text; zoned values would break lexicographic range scans.
	a.ScheduledDate = a.ScheduledDate.UTC()

	result, err := marshalJSON(a.Result)
	if err != nil {
		return nil, err
	}

	_, err = d.db.Exec(`
		INSERT INTO action_items (`+actionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		a.ID, a.PropertyOwnerID, a.PropertyID, a.ActionType, a.Priority,
		a.ScheduledDate, nullIntValue(a.EstimatedDuration), a.Title,
		nullString(a.Description), nullString(a.CallScript), nullString(a.EmailTemplate),
		a.Status, nullTime(a.CompletedAt), result, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert action item: %w", err)
	}
	return d.GetActionItem(a.ID)
}

// GetActionItem returns the action item with the given id.
func (d *Database) GetActionItem(id string) (*models.ActionItem, error) {
	row := d.db.QueryRow(`SELECT `+actionColumns+` FROM action_items WHERE id = ?`, id)
	return scanActionItem(row)
}

// UpdateActionItem merges the patch, revalidates, and bumps updatedAt. The
// write is guarded on the updatedAt the record was read at, so two writers
// merging from the same snapshot cannot silently drop each other's fields;
// a guard miss rereads and remerges.
func (d *Database) UpdateActionItem(id string, patch ActionPatch) (*models.ActionItem, error) {
	for attempt := 0; attempt < updateAttempts; attempt++ {
		a, err := d.GetActionItem(id)
		if err != nil {
			return nil, err
		}
		mergeActionPatch(a, patch)

		if err := a.Validate(); err != nil {
			return nil, err
		}
		readAt := a.UpdatedAt
		a.UpdatedAt = time.Now().UTC()
		a.ScheduledDate = a.ScheduledDate.UTC()

		written, err := d.writeActionItem(a, readAt)
		if err != nil {
			return nil, err
		}
		if written {
			return a, nil
		}
	}
	return nil, apperrors.ErrConflict
}

func mergeActionPatch(a *models.ActionItem, patch ActionPatch) {
	if patch.ActionType != nil {
		a.ActionType = *patch.ActionType
	}
	if patch.Priority != nil {
		a.Priority = *patch.Priority
	}
	if patch.ScheduledDate != nil {
		a.ScheduledDate = *patch.ScheduledDate
	}
	if patch.EstimatedDuration != nil {
		a.EstimatedDuration = *patch.EstimatedDuration
	}
	if patch.Title != nil {
		a.Title = *patch.Title
	}
	if patch.Description != nil {
		a.Description = *patch.Description
	}
	if patch.CallScript != nil {
		a.CallScript = *patch.CallScript
	}
	if patch.EmailTemplate != nil {
		a.EmailTemplate = *patch.EmailTemplate
	}
}

// writeActionItem persists the merged record if nobody wrote in between.
func (d *Database) writeActionItem(a *models.ActionItem, readAt time.Time) (bool, error) {
	result, err := marshalJSON(a.Result)
	if err != nil {
		return false, err
	}
	res, err := d.db.Exec(`
		UPDATE action_items SET
			action_type = ?, priority = ?, scheduled_date = ?, estimated_duration = ?,
			title = ?, description = ?, call_script = ?, email_template = ?,
			result = ?, updated_at = ?
		WHERE id = ? AND updated_at = ?
	`,
		a.ActionType, a.Priority, a.ScheduledDate, nullIntValue(a.EstimatedDuration),
		a.Title, nullString(a.Description), nullString(a.CallScript), nullString(a.EmailTemplate),
		result, a.UpdatedAt, a.ID, readAt.UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("failed to update action item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected > 0, nil
}

// CompleteAction transitions an action item to Completed and stamps
// completedAt. The guard on non-terminal status runs inside the UPDATE so a
// concurrent completion observes Conflict instead of silently overwriting.
func (d *Database) CompleteAction(id string, result *models.ActionResult) (*models.ActionItem, error) {
	now := time.Now().UTC()
	resultCol, err := marshalJSON(result)
	if err != nil {
		return nil, err
	}

	tx, err := d.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		UPDATE action_items
		SET status = ?, completed_at = ?, result = COALESCE(?, result), updated_at = ?
		WHERE id = ? AND status NOT IN (?, ?)
	`, models.StatusCompleted, now, resultCol, now, id, models.StatusCompleted, models.StatusSkipped)
	if err != nil {
		return nil, fmt.Errorf("failed to complete action item: %w", err)
	}
	if err := d.checkTransition(tx, res, id); err != nil {
		return nil, err
	}

	var title string
	if err := tx.QueryRow(`SELECT title FROM action_items WHERE id = ?`, id).Scan(&title); err != nil {
		return nil, fmt.Errorf("failed to read completed action: %w", err)
	}
	if err := logActivityTx(tx, "Action Completed", fmt.Sprintf("%s completed", title), now); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return d.GetActionItem(id)
}

// SkipAction transitions a non-terminal action item to Skipped.
func (d *Database) SkipAction(id string, result *models.ActionResult) (*models.ActionItem, error) {
	now := time.Now().UTC()
	resultCol, err := marshalJSON(result)
	if err != nil {
		return nil, err
	}

	tx, err := d.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		UPDATE action_items
		SET status = ?, result = COALESCE(?, result), updated_at = ?
		WHERE id = ? AND status NOT IN (?, ?)
	`, models.StatusSkipped, resultCol, now, id, models.StatusCompleted, models.StatusSkipped)
	if err != nil {
		return nil, fmt.Errorf("failed to skip action item: %w", err)
	}
	if err := d.checkTransition(tx, res, id); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return d.GetActionItem(id)
}

// ReopenAction moves a terminal action item back to Pending, clearing
// completedAt. Non-terminal items conflict: there is nothing to reopen.
func (d *Database) ReopenAction(id string) (*models.ActionItem, error) {
	now := time.Now().UTC()

	tx, err := d.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		UPDATE action_items
		SET status = ?, completed_at = NULL, updated_at = ?
		WHERE id = ? AND status IN (?, ?)
	`, models.StatusPending, now, id, models.StatusCompleted, models.StatusSkipped)
	if err != nil {
		return nil, fmt.Errorf("failed to reopen action item: %w", err)
	}
	if err := d.checkTransition(tx, res, id); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return d.GetActionItem(id)
}

// RescheduleAction re-queues a non-terminal action item to Pending on a new
// date.
func (d *Database) RescheduleAction(id string, newDate time.Time) (*models.ActionItem, error) {
	if newDate.IsZero() {
		return nil, apperrors.NewValidation("scheduledDate", "is required")
	}
	now := time.Now().UTC()

	tx, err := d.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		UPDATE action_items
		SET status = ?, scheduled_date = ?, updated_at = ?
		WHERE id = ? AND status NOT IN (?, ?)
	`, models.StatusPending, newDate.UTC(), now, id, models.StatusCompleted, models.StatusSkipped)
	if err != nil {
		return nil, fmt.Errorf("failed to reschedule action item: %w", err)
	}
	if err := d.checkTransition(tx, res, id); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return d.GetActionItem(id)
}

// checkTransition distinguishes "no such item" from "guard refused the
// transition" after a compare-and-set UPDATE matched zero rows.
func (d *Database) checkTransition(tx *sql.Tx, res sql.Result, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}
	var status string
	err = tx.QueryRow(`SELECT status FROM action_items WHERE id = ?`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to check action item: %w", err)
	}
	return apperrors.ErrConflict
}

// ListActionItems returns action items filtered by status and/or scheduled
// day, ordered by scheduled date then priority descending.
func (d *Database) ListActionItems(status string, day *time.Time, limit int) ([]models.ActionItem, error) {
	if limit <= 0 {
		limit = 200
	}
	query := `SELECT ` + actionColumns + ` FROM action_items WHERE (? = '' OR status = ?)`
	args := []interface{}{status, status}
	if day != nil {
		start := day.UTC().Truncate(24 * time.Hour)
		query += ` AND scheduled_date >= ? AND scheduled_date < ?`
		args = append(args, start, start.Add(24*time.Hour))
	}
	query += ` ORDER BY scheduled_date, priority DESC LIMIT ?`
	args = append(args, limit)

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.ActionItem
	for rows.Next() {
		a, err := scanActionItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *a)
	}
	return items, rows.Err()
}

func scanActionItem(row rowScanner) (*models.ActionItem, error) {
	var a models.ActionItem
	var duration sql.NullInt64
	var description, callScript, emailTemplate, result sql.NullString
	var completedAt sql.NullTime

	err := row.Scan(
		&a.ID, &a.PropertyOwnerID, &a.PropertyID, &a.ActionType, &a.Priority,
		&a.ScheduledDate, &duration, &a.Title, &description, &callScript,
		&emailTemplate, &a.Status, &completedAt, &result, &a.CreatedAt, &a.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan action item: %w", err)
	}

	if duration.Valid {
		a.EstimatedDuration = int(duration.Int64)
	}
	a.Description = description.String
	a.CallScript = callScript.String
	a.EmailTemplate = emailTemplate.String
	a.CompletedAt = timePtr(completedAt)
	if err := unmarshalJSON(result, &a.Result); err != nil {
		return nil, fmt.Errorf("failed to decode action result: %w", err)
	}
	return &a, nil
}

func nullIntValue(n int) sql.NullInt64 {
	if n == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(n), Valid: true}
}
