// internal/model/contact.go
package model

import "time"

// Contact belongs to an account and optionally to a named list. The same
// email may appear on several lists of one account; bounce/unsubscribe
// reconciliation flips the flags on every matching row.
type Contact struct {
    ID           int               `db:"id" json:"id"`
    AccountID    string            `db:"account_id" json:"account_id"`
    ListID       string            `db:"list_id" json:"list_id,omitempty"` // empty = not on a named list
    Email        string            `db:"email" json:"email"`
    FirstName    string            `db:"first_name" json:"first_name"`
    LastName     string            `db:"last_name" json:"last_name"`
    Tags         []string          `db:"tags" json:"tags,omitempty"`
    CustomFields map[string]string `db:"custom_fields" json:"custom_fields,omitempty"`
    Unsubscribed bool              `db:"unsubscribed" json:"unsubscribed"`
    Bounced      bool              `db:"bounced" json:"bounced"`
    CreatedAt    time.Time         `db:"created_at" json:"created_at"`
}
