package database

import (
	"database/sql"
	"fmt"
	"time"
)

// VerificationCode is a persisted code extracted from one email.
type VerificationCode struct {
	ID           int64      `json:"id"`
	OwnerID      string     `json:"owner_id"`
	EmailID      string     `json:"email_id"`
	Code         string     `json:"code"`
	Airline      string     `json:"airline"`
	Sender       string     `json:"sender"`
	Recipient    string     `json:"recipient"`
	Subject      string     `json:"subject"`
	CustomerName string     `json:"customer_name,omitempty"`
	BodyExcerpt  string     `json:"body_excerpt,omitempty"`
	EmailDate    *time.Time `json:"email_date,omitempty"`
	ExtractedAt  time.Time  `json:"extracted_at"`
	Active       bool       `json:"active"`
}

// CodeStore handles verification code database operations
type CodeStore struct {
	db *sql.DB
}

// NewCodeStore creates a new code store
func NewCodeStore(db *sql.DB) *CodeStore {
	return &CodeStore{db: db}
}

// InsertIfAbsent saves a code unless the same (owner, email, code) triple is
// already stored. Returns whether a row was actually inserted; false means
// duplicate, not failure.
func (s *CodeStore) InsertIfAbsent(code *VerificationCode) (bool, error) {
	if code.ExtractedAt.IsZero() {
		code.ExtractedAt = time.Now().UTC()
	}

	result, err := s.db.Exec(`
		INSERT OR IGNORE INTO verification_codes
		(owner_id, email_id, code, airline, sender, recipient, subject, customer_name, body_excerpt, email_date, extracted_at, active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, TRUE)`,
		code.OwnerID, code.EmailID, code.Code, code.Airline,
		code.Sender, code.Recipient, code.Subject, code.CustomerName,
		code.BodyExcerpt, code.EmailDate, code.ExtractedAt)
	if err != nil {
		return false, fmt.Errorf("failed to insert verification code: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check insert result: %w", err)
	}
	if rows == 0 {
		return false, nil
	}

	id, err := result.LastInsertId()
	if err != nil {
		return false, fmt.Errorf("failed to get inserted code ID: %w", err)
	}
	code.ID = id
	code.Active = true

	return true, nil
}

// LastEmailDate returns the most recent processed-message timestamp for an
// owner, falling back to the extraction time for rows without an email date.
// Returns the zero time when the owner has no stored codes.
func (s *CodeStore) LastEmailDate(ownerID string) (time.Time, error) {
	var emailDate sql.NullTime
	var extractedAt time.Time
	err := s.db.QueryRow(`
		SELECT email_date, extracted_at
		FROM verification_codes
		WHERE owner_id = ?
		ORDER BY COALESCE(email_date, extracted_at) DESC
		LIMIT 1`, ownerID).Scan(&emailDate, &extractedAt)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to query last email date: %w", err)
	}
	if emailDate.Valid {
		return emailDate.Time, nil
	}
	return extractedAt, nil
}

// List returns an owner's codes, newest first, optionally filtered by
// airline. A limit of 0 means no limit.
func (s *CodeStore) List(ownerID, airline string, limit, offset int) ([]*VerificationCode, error) {
	query := `
		SELECT id, owner_id, email_id, code, airline, sender, recipient, subject,
		       customer_name, body_excerpt, email_date, extracted_at, active
		FROM verification_codes
		WHERE owner_id = ?`
	args := []interface{}{ownerID}

	if airline != "" {
		query += " AND airline = ?"
		args = append(args, airline)
	}

	query += " ORDER BY COALESCE(email_date, extracted_at) DESC, id DESC"

	if limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, limit, offset)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list verification codes: %w", err)
	}
	defer rows.Close()

	var codes []*VerificationCode
	for rows.Next() {
		code, err := scanCodeFrom(rows)
		if err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}

	return codes, rows.Err()
}

// GetByID retrieves a single code by its row ID.
func (s *CodeStore) GetByID(id int64) (*VerificationCode, error) {
	row := s.db.QueryRow(`
		SELECT id, owner_id, email_id, code, airline, sender, recipient, subject,
		       customer_name, body_excerpt, email_date, extracted_at, active
		FROM verification_codes
		WHERE id = ?`, id)

	code, err := scanCodeFrom(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("verification code not found: %d", id)
	}
	if err != nil {
		return nil, err
	}
	return code, nil
}

// Deactivate marks a code as used/dismissed without deleting its dedup row.
func (s *CodeStore) Deactivate(id int64) error {
	result, err := s.db.Exec("UPDATE verification_codes SET active = FALSE WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to deactivate code: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deactivate result: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("verification code not found: %d", id)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCodeFrom(scanner rowScanner) (*VerificationCode, error) {
	var code VerificationCode
	var customerName sql.NullString
	var bodyExcerpt sql.NullString
	var emailDate sql.NullTime

	err := scanner.Scan(
		&code.ID, &code.OwnerID, &code.EmailID, &code.Code, &code.Airline,
		&code.Sender, &code.Recipient, &code.Subject,
		&customerName, &bodyExcerpt, &emailDate, &code.ExtractedAt, &code.Active)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan verification code: %w", err)
	}

	if customerName.Valid {
		code.CustomerName = customerName.String
	}
	if bodyExcerpt.Valid {
		code.BodyExcerpt = bodyExcerpt.String
	}
	if emailDate.Valid {
		code.EmailDate = &emailDate.Time
	}

	return &code, nil
}
