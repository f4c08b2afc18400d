// internal/model/sent_email.go
package model

import "time"

// SentEmail statuses.
const (
    SentStatusSent    = "sent"
    SentStatusFailed  = "failed"
    SentStatusBounced = "bounced"
)

// Bounce severities reported by the provider.
const (
    BouncePermanent = "permanent"
    BounceTemporary = "temporary"
)

// SentEmail is the per-recipient delivery record. One row is created per
// recipient per send attempt; resending a campaign creates a second set of
// rows. Core fields are written once at send time, the event flags and
// counters are mutated only by webhook reconciliation.
type SentEmail struct {
    ID         int       `db:"id" json:"id"`
    AccountID  string    `db:"account_id" json:"account_id"`
    CampaignID int       `db:"campaign_id" json:"campaign_id"`
    Recipient  string    `db:"recipient" json:"recipient"`
    Subject    string    `db:"subject" json:"subject"`
    Status     string    `db:"status" json:"status"` // sent, failed, bounced
    MessageID  string    `db:"message_id" json:"message_id,omitempty"`
    LastError  string    `db:"last_error" json:"last_error,omitempty"`
    SentAt     time.Time `db:"sent_at" json:"sent_at"`

    Delivered   bool       `db:"delivered" json:"delivered"`
    DeliveredAt *time.Time `db:"delivered_at" json:"delivered_at,omitempty"`

    Opened    bool       `db:"opened" json:"opened"`
    OpenedAt  *time.Time `db:"opened_at" json:"opened_at,omitempty"`
    OpenCount int        `db:"open_count" json:"open_count"`

    Clicked        bool       `db:"clicked" json:"clicked"`
    ClickedAt      *time.Time `db:"clicked_at" json:"clicked_at,omitempty"`
    ClickCount     int        `db:"click_count" json:"click_count"`
    LastClickedURL string     `db:"last_clicked_url" json:"last_clicked_url,omitempty"`

    BouncedAt      *time.Time `db:"bounced_at" json:"bounced_at,omitempty"`
    BounceSeverity string     `db:"bounce_severity" json:"bounce_severity,omitempty"`
    BounceMessage  string     `db:"bounce_message" json:"bounce_message,omitempty"`
    BounceReason   string     `db:"bounce_reason" json:"bounce_reason,omitempty"`

    Complained   bool       `db:"complained" json:"complained"`
    ComplainedAt *time.Time `db:"complained_at" json:"complained_at,omitempty"`

    UnsubscribedViaMailgun bool       `db:"unsubscribed_via_mailgun" json:"unsubscribed_via_mailgun"`
    UnsubscribedAt         *time.Time `db:"unsubscribed_at" json:"unsubscribed_at,omitempty"`
}
