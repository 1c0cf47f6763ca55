package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"prospector/server/internal/apperrors"
	"prospector/server/internal/models"
)

const ownerColumns = `id, first_name, last_name, full_name,
	email_address, email_verified, email_verified_at,
	phone_mobile, phone_home, phone_verified, phone_verified_at,
	estimated_age, occupation, household_income, ownership_type,
	segment_category, segment_score, segment_reasons, segment_assessed_at,
	interactions, preferred_contact, do_not_contact, tags, notes,
	created_at, updated_at`

// OwnerPatch holds the fields UpdateOwner may merge; nil means "leave
// unchanged".
type OwnerPatch struct {
	FirstName        *string
	LastName         *string
	Email            *models.ContactEmail
	Phone            *models.ContactPhone
	EstimatedAge     *int
	Occupation       *string
	HouseholdIncome  *string
	OwnershipType    *string
	ProspectSegment  *models.ProspectSegment
	PreferredContact *string
	DoNotContact     *bool
	Tags             *[]string
	Notes            *string
}

// CreateOwner validates and persists a property owner, returning it with the
// generated id, derived full name and timestamps populated.
func (d *Database) CreateOwner(o *models.PropertyOwner) (*models.PropertyOwner, error) {
	o.FullName = strings.TrimSpace(o.FirstName + " " + o.LastName)
	if err := o.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	o.ID = newID()
	o.CreatedAt = now
	o.UpdatedAt = now
	if o.ProspectSegment != nil && o.ProspectSegment.LastAssessed.IsZero() {
		o.ProspectSegment.LastAssessed = now
	}

	args, err := ownerArgs(o)
	if err != nil {
		return nil, err
	}
	args = append([]interface{}{o.ID}, args...)
	args = append(args, o.CreatedAt, o.UpdatedAt)

	_, err = d.db.Exec(`
		INSERT INTO owners (`+ownerColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to insert owner: %w", err)
	}
	return d.GetOwner(o.ID)
}

// GetOwner returns the owner with the given id, properties resolved through
// the join table.
func (d *Database) GetOwner(id string) (*models.PropertyOwner, error) {
	row := d.db.QueryRow(`SELECT `+ownerColumns+` FROM owners WHERE id = ?`, id)
	o, err := scanOwner(row)
	if err != nil {
		return nil, err
	}
	o.PropertyIDs, err = d.PropertiesOf(id)
	if err != nil {
		return nil, err
	}
	return o, nil
}

// UpdateOwner merges the patch into the stored record, revalidates, and
// bumps updatedAt. A segment patch overwrites the whole classification and
// refreshes lastAssessed when unset. The write is guarded on the updatedAt
// the record was read at; a guard miss remerges onto a fresh read, so two
// patches to different fields both land.
func (d *Database) UpdateOwner(id string, patch OwnerPatch) (*models.PropertyOwner, error) {
	for attempt := 0; attempt < updateAttempts; attempt++ {
		o, err := d.GetOwner(id)
		if err != nil {
			return nil, err
		}
		contactChanged := mergeOwnerPatch(o, patch)

		o.FullName = strings.TrimSpace(o.FirstName + " " + o.LastName)
		if err := o.Validate(); err != nil {
			return nil, err
		}
		readAt := o.UpdatedAt
		o.UpdatedAt = time.Now().UTC()

		written, err := d.writeOwner(o, readAt, contactChanged)
		if err != nil {
			return nil, err
		}
		if written {
			return o, nil
		}
	}
	return nil, apperrors.ErrConflict
}

func mergeOwnerPatch(o *models.PropertyOwner, patch OwnerPatch) (contactChanged bool) {
	if patch.FirstName != nil {
		o.FirstName = *patch.FirstName
	}
	if patch.LastName != nil {
		o.LastName = *patch.LastName
	}
	if patch.Email != nil {
		o.Email = patch.Email
		contactChanged = true
	}
	if patch.Phone != nil {
		o.Phone = patch.Phone
		contactChanged = true
	}
	if patch.EstimatedAge != nil {
		o.EstimatedAge = patch.EstimatedAge
	}
	if patch.Occupation != nil {
		o.Occupation = *patch.Occupation
	}
	if patch.HouseholdIncome != nil {
		o.HouseholdIncome = *patch.HouseholdIncome
	}
	if patch.OwnershipType != nil {
		o.OwnershipType = *patch.OwnershipType
	}
	if patch.ProspectSegment != nil {
		o.ProspectSegment = patch.ProspectSegment
		if o.ProspectSegment.LastAssessed.IsZero() {
			o.ProspectSegment.LastAssessed = time.Now().UTC()
		}
	}
	if patch.PreferredContact != nil {
		o.PreferredContact = *patch.PreferredContact
	}
	if patch.DoNotContact != nil {
		o.DoNotContact = *patch.DoNotContact
	}
	if patch.Tags != nil {
		o.Tags = *patch.Tags
	}
	if patch.Notes != nil {
		o.Notes = *patch.Notes
	}
	return contactChanged
}

// AddInteraction appends an entry to the owner's interaction log, guarded
// the same way as UpdateOwner so a concurrent append is never dropped.
func (d *Database) AddInteraction(id string, in models.Interaction) (*models.PropertyOwner, error) {
	if in.Date.IsZero() {
		in.Date = time.Now().UTC()
	}
	for attempt := 0; attempt < updateAttempts; attempt++ {
		o, err := d.GetOwner(id)
		if err != nil {
			return nil, err
		}
		o.Interactions = append(o.Interactions, in)
		if err := o.Validate(); err != nil {
			return nil, err
		}
		readAt := o.UpdatedAt
		o.UpdatedAt = time.Now().UTC()

		written, err := d.writeOwner(o, readAt, false)
		if err != nil {
			return nil, err
		}
		if written {
			return o, nil
		}
	}
	return nil, apperrors.ErrConflict
}

// ListOwners returns owners, optionally filtered by segment category,
// ordered by segment score descending.
func (d *Database) ListOwners(segment string, limit int) ([]models.PropertyOwner, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := d.db.Query(`
		SELECT `+ownerColumns+`
		FROM owners
		WHERE (? = '' OR segment_category = ?)
		ORDER BY segment_score IS NULL, segment_score DESC, full_name
		LIMIT ?
	`, segment, segment, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var owners []models.PropertyOwner
	for rows.Next() {
		o, err := scanOwner(rows)
		if err != nil {
			return nil, err
		}
		owners = append(owners, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range owners {
		propertyIDs, err := d.PropertiesOf(owners[i].ID)
		if err != nil {
			return nil, err
		}
		owners[i].PropertyIDs = propertyIDs
	}
	return owners, nil
}

// FindOwnerByEmail looks an owner up by email address.
func (d *Database) FindOwnerByEmail(email string) (*models.PropertyOwner, error) {
	row := d.db.QueryRow(`SELECT `+ownerColumns+` FROM owners WHERE email_address = ?`, email)
	o, err := scanOwner(row)
	if err != nil {
		return nil, err
	}
	o.PropertyIDs, err = d.PropertiesOf(o.ID)
	if err != nil {
		return nil, err
	}
	return o, nil
}

// writeOwner persists the merged record if its updatedAt still matches
// readAt. A guard miss rolls back, activity entry included, and reports
// false so the caller can remerge.
func (d *Database) writeOwner(o *models.PropertyOwner, readAt time.Time, contactChanged bool) (bool, error) {
	args, err := ownerArgs(o)
	if err != nil {
		return false, err
	}
	args = append(args, o.UpdatedAt, o.ID, readAt.UTC())

	tx, err := d.db.Begin()
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		UPDATE owners SET
			first_name = ?, last_name = ?, full_name = ?,
			email_address = ?, email_verified = ?, email_verified_at = ?,
			phone_mobile = ?, phone_home = ?, phone_verified = ?, phone_verified_at = ?,
			estimated_age = ?, occupation = ?, household_income = ?, ownership_type = ?,
			segment_category = ?, segment_score = ?, segment_reasons = ?, segment_assessed_at = ?,
			interactions = ?, preferred_contact = ?, do_not_contact = ?, tags = ?, notes = ?,
			updated_at = ?
		WHERE id = ? AND updated_at = ?
	`, args...)
	if err != nil {
		return false, fmt.Errorf("failed to update owner: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return false, nil
	}

	if contactChanged {
		if err := logActivityTx(tx, "Contact Updated",
			fmt.Sprintf("Contact details updated for %s", o.FullName), o.UpdatedAt); err != nil {
			return false, err
		}
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return true, nil
}

// ownerArgs renders the owner's columns between id and the timestamps, in
// ownerColumns order.
func ownerArgs(o *models.PropertyOwner) ([]interface{}, error) {
	reasons := sql.NullString{}
	segCategory := sql.NullString{}
	segScore := sql.NullInt64{}
	segAssessed := sql.NullTime{}
	if seg := o.ProspectSegment; seg != nil {
		var err error
		if reasons, err = marshalJSON(seg.Reasons); err != nil {
			return nil, err
		}
		segCategory = nullString(seg.Category)
		segScore = nullInt(seg.Score)
		segAssessed = sql.NullTime{Time: seg.LastAssessed.UTC(), Valid: true}
	}

	interactions, err := marshalJSON(o.Interactions)
	if err != nil {
		return nil, err
	}
	tags, err := marshalJSON(o.Tags)
	if err != nil {
		return nil, err
	}

	emailAddress, emailVerified := sql.NullString{}, false
	var emailVerifiedAt sql.NullTime
	if o.Email != nil {
		emailAddress = nullString(o.Email.Address)
		emailVerified = o.Email.Verified
		emailVerifiedAt = nullTime(o.Email.VerificationDate)
	}
	phoneMobile, phoneHome, phoneVerified := sql.NullString{}, sql.NullString{}, false
	var phoneVerifiedAt sql.NullTime
	if o.Phone != nil {
		phoneMobile = nullString(o.Phone.Mobile)
		phoneHome = nullString(o.Phone.Home)
		phoneVerified = o.Phone.Verified
		phoneVerifiedAt = nullTime(o.Phone.VerificationDate)
	}

	return []interface{}{
		o.FirstName, o.LastName, o.FullName,
		emailAddress, emailVerified, emailVerifiedAt,
		phoneMobile, phoneHome, phoneVerified, phoneVerifiedAt,
		nullInt(o.EstimatedAge), nullString(o.Occupation), nullString(o.HouseholdIncome), nullString(o.OwnershipType),
		segCategory, segScore, reasons, segAssessed,
		interactions, nullString(o.PreferredContact), o.DoNotContact, tags, nullString(o.Notes),
	}, nil
}

func scanOwner(row rowScanner) (*models.PropertyOwner, error) {
	var o models.PropertyOwner
	var emailAddress, phoneMobile, phoneHome sql.NullString
	var occupation, income, ownershipType, segCategory, reasons sql.NullString
	var interactions, preferred, tags, notes sql.NullString
	var emailVerified, phoneVerified bool
	var emailVerifiedAt, phoneVerifiedAt, segAssessed sql.NullTime
	var estimatedAge, segScore sql.NullInt64

	err := row.Scan(
		&o.ID, &o.FirstName, &o.LastName, &o.FullName,
		&emailAddress, &emailVerified, &emailVerifiedAt,
		&phoneMobile, &phoneHome, &phoneVerified, &phoneVerifiedAt,
		&estimatedAge, &occupation, &income, &ownershipType,
		&segCategory, &segScore, &reasons, &segAssessed,
		&interactions, &preferred, &o.DoNotContact, &tags, &notes,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan owner: %w", err)
	}

	if emailAddress.Valid || emailVerified {
		o.Email = &models.ContactEmail{
			Address:          emailAddress.String,
			Verified:         emailVerified,
			VerificationDate: timePtr(emailVerifiedAt),
		}
	}
	if phoneMobile.Valid || phoneHome.Valid || phoneVerified {
		o.Phone = &models.ContactPhone{
			Mobile:           phoneMobile.String,
			Home:             phoneHome.String,
			Verified:         phoneVerified,
			VerificationDate: timePtr(phoneVerifiedAt),
		}
	}
	o.EstimatedAge = intPtr(estimatedAge)
	o.Occupation = occupation.String
	o.HouseholdIncome = income.String
	o.OwnershipType = ownershipType.String

	if segCategory.Valid {
		seg := &models.ProspectSegment{Category: segCategory.String, Score: intPtr(segScore)}
		if segAssessed.Valid {
			seg.LastAssessed = segAssessed.Time
		}
		if err := unmarshalJSON(reasons, &seg.Reasons); err != nil {
			return nil, fmt.Errorf("failed to decode segment reasons: %w", err)
		}
		o.ProspectSegment = seg
	}
	if err := unmarshalJSON(interactions, &o.Interactions); err != nil {
		return nil, fmt.Errorf("failed to decode interactions: %w", err)
	}
	if err := unmarshalJSON(tags, &o.Tags); err != nil {
		return nil, fmt.Errorf("failed to decode tags: %w", err)
	}
	o.PreferredContact = preferred.String
	o.Notes = notes.String
	o.PropertyIDs = []string{}
	return &o, nil
}
