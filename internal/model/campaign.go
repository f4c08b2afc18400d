// internal/model/campaign.go
package model

import "time"

// Campaign statuses. Status only moves forward, except scheduled <-> paused.
// "processing" is entered only by the send pipeline and exits to completed
// or failed.
const (
    StatusDraft      = "draft"
    StatusScheduled  = "scheduled"
    StatusProcessing = "processing"
    StatusCompleted  = "completed"
    StatusFailed     = "failed"
    StatusPaused     = "paused"
)

type Attachment struct {
    Name        string `json:"name"`
    Size        int64  `json:"size"`
    StoragePath string `json:"storage_path"`
}

type CampaignStats struct {
    Total   int `db:"stats_total" json:"total"`
    Sent    int `db:"stats_sent" json:"sent"`
    Failed  int `db:"stats_failed" json:"failed"`
    Opened  int `db:"stats_opened" json:"opened"`
    Clicked int `db:"stats_clicked" json:"clicked"`
    Bounced int `db:"stats_bounced" json:"bounced"`
}

type Campaign struct {
    ID             int           `db:"id" json:"id"`
    AccountID      string        `db:"account_id" json:"account_id"`
    Name           string        `db:"name" json:"name"`
    Subject        string        `db:"subject" json:"subject"`
    FromEmail      string        `db:"from_email" json:"from_email"`
    ReplyTo        string        `db:"reply_to" json:"reply_to,omitempty"`
    HTMLBody       string        `db:"html_body" json:"html_body"`
    TextBody       string        `db:"text_body" json:"text_body,omitempty"`
    Recipients     []string      `db:"recipients" json:"recipients"`
    RecipientCount int           `db:"recipient_count" json:"recipient_count"`
    Status         string        `db:"status" json:"status"`
    ScheduledAt    *time.Time    `db:"scheduled_at" json:"scheduled_at,omitempty"`
    SentAt         *time.Time    `db:"sent_at" json:"sent_at,omitempty"`
    CompletedAt    *time.Time    `db:"completed_at" json:"completed_at,omitempty"`
    Attachments    []Attachment  `db:"attachments" json:"attachments,omitempty"`
    Stats          CampaignStats `json:"stats"`
    Error          string        `db:"error" json:"error,omitempty"`
    CreatedAt      time.Time     `db:"created_at" json:"created_at"`
    UpdatedAt      *time.Time    `db:"updated_at" json:"updated_at,omitempty"`
}
