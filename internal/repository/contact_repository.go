package repository

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/lib/pq"

	"github.com/unclebandit/mailblast-backend/internal/model"
)

// ContactRepositoryInterface defines methods used by services
type ContactRepositoryInterface interface {
	Create(c *model.Contact) error
	GetByID(id int) (*model.Contact, error)
	ListByAccount(accountID string) ([]model.Contact, error)
	FindByEmail(accountID, email string) ([]model.Contact, error)

	// Webhook fan-out. An email may be on several lists of one account;
	// each call updates every matching row in a single statement.
	MarkBouncedByEmail(accountID, email string) (int64, error)
	MarkUnsubscribedByEmail(accountID, email string) (int64, error)
}

// ContactRepository is the concrete implementation
type ContactRepository struct {
	DB *sql.DB
}

const contactColumns = `id, account_id, list_id, email, first_name, last_name, tags, custom_fields, unsubscribed, bounced, created_at`

func scanContact(row rowScanner) (*model.Contact, error) {
	var c model.Contact
	var tags pq.StringArray
	var customFields []byte
	err := row.Scan(
		&c.ID, &c.AccountID, &c.ListID, &c.Email, &c.FirstName, &c.LastName,
		&tags, &customFields, &c.Unsubscribed, &c.Bounced, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.Tags = []string(tags)
	if len(customFields) > 0 {
		if err := json.Unmarshal(customFields, &c.CustomFields); err != nil {
			return nil, err
		}
	}
	return &c, nil
}

func (r *ContactRepository) Create(c *model.Contact) error {
	c.CreatedAt = time.Now()
	fields := c.CustomFields
	if fields == nil {
		fields = map[string]string{}
	}
	customFields, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	query := `
        INSERT INTO contacts (account_id, list_id, email, first_name, last_name, tags, custom_fields, created_at)
        VALUES ($1, $2, LOWER($3), $4, $5, $6, $7, $8)
        RETURNING id
    `
	return r.DB.QueryRow(query,
		c.AccountID, c.ListID, c.Email, c.FirstName, c.LastName, pq.Array(c.Tags), customFields, c.CreatedAt,
	).Scan(&c.ID)
}

func (r *ContactRepository) GetByID(id int) (*model.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts WHERE id=$1`
	c, err := scanContact(r.DB.QueryRow(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // not found
		}
		return nil, err
	}
	return c, nil
}

func (r *ContactRepository) ListByAccount(accountID string) ([]model.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts WHERE account_id=$1 ORDER BY id`
	rows, err := r.DB.Query(query, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	contacts := []model.Contact{}
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, *c)
	}
	return contacts, rows.Err()
}

// FindByEmail returns every contact row for the email across all the
// account's lists. Emails are stored lowercased; the match is
// case-insensitive.
func (r *ContactRepository) FindByEmail(accountID, email string) ([]model.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts WHERE account_id=$1 AND email=LOWER($2)`
	rows, err := r.DB.Query(query, accountID, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	contacts := []model.Contact{}
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, *c)
	}
	return contacts, rows.Err()
}

func (r *ContactRepository) MarkBouncedByEmail(accountID, email string) (int64, error) {
	query := `UPDATE contacts SET bounced=true WHERE account_id=$1 AND email=LOWER($2)`
	res, err := r.DB.Exec(query, accountID, email)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *ContactRepository) MarkUnsubscribedByEmail(accountID, email string) (int64, error) {
	query := `UPDATE contacts SET unsubscribed=true WHERE account_id=$1 AND email=LOWER($2)`
	res, err := r.DB.Exec(query, accountID, email)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

var _ ContactRepositoryInterface = (*ContactRepository)(nil)
