package repository

import (
    "database/sql"
    "time"

    "github.com/unclebandit/mailblast-backend/internal/model"
)

type SentEmailRepositoryInterface interface {
    Create(s *model.SentEmail) error
    GetByID(id int) (*model.SentEmail, error)
    GetByMessageID(messageID string) (*model.SentEmail, error)
    CountByCampaign(campaignID int) (map[string]int, error)

    // Reconciliation writes. Each is a single idempotent UPDATE; the
    // counters use in-database increments because concurrent webhook
    // deliveries for the same record are possible. RecordOpen,
    // RecordClick and MarkBounced report whether this write was the
    // first occurrence, read from the pre-update row in the same
    // statement so two concurrent deliveries cannot both see "first".
    MarkDelivered(id int, ts time.Time) error
    RecordOpen(id int, ts time.Time) (bool, error)
    RecordClick(id int, ts time.Time, url string) (bool, error)
    MarkBounced(id int, ts time.Time, severity, message, reason string) (bool, error)
    MarkComplained(id int, ts time.Time) error
    MarkUnsubscribed(id int, ts time.Time) error
}

type SentEmailRepository struct {
    DB *sql.DB
}

const sentEmailColumns = `id, account_id, campaign_id, recipient, subject, status, message_id,
        last_error, sent_at, delivered, delivered_at, opened, opened_at, open_count,
        clicked, clicked_at, click_count, last_clicked_url,
        bounced_at, bounce_severity, bounce_message, bounce_reason,
        complained, complained_at, unsubscribed_via_mailgun, unsubscribed_at`

func scanSentEmail(row rowScanner) (*model.SentEmail, error) {
    var s model.SentEmail
    err := row.Scan(
        &s.ID, &s.AccountID, &s.CampaignID, &s.Recipient, &s.Subject, &s.Status, &s.MessageID,
        &s.LastError, &s.SentAt, &s.Delivered, &s.DeliveredAt, &s.Opened, &s.OpenedAt, &s.OpenCount,
        &s.Clicked, &s.ClickedAt, &s.ClickCount, &s.LastClickedURL,
        &s.BouncedAt, &s.BounceSeverity, &s.BounceMessage, &s.BounceReason,
        &s.Complained, &s.ComplainedAt, &s.UnsubscribedViaMailgun, &s.UnsubscribedAt,
    )
    if err != nil {
        return nil, err
    }
    return &s, nil
}

func (r *SentEmailRepository) Create(s *model.SentEmail) error {
    if s.SentAt.IsZero() {
        s.SentAt = time.Now()
    }
    query := `
        INSERT INTO sent_emails
        (account_id, campaign_id, recipient, subject, status, message_id, last_error, sent_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING id
    `
    return r.DB.QueryRow(query,
        s.AccountID, s.CampaignID, s.Recipient, s.Subject, s.Status, s.MessageID, s.LastError, s.SentAt,
    ).Scan(&s.ID)
}

func (r *SentEmailRepository) GetByID(id int) (*model.SentEmail, error) {
    query := `SELECT ` + sentEmailColumns + ` FROM sent_emails WHERE id=$1`
    s, err := scanSentEmail(r.DB.QueryRow(query, id))
    if err != nil {
        if err == sql.ErrNoRows {
            return nil, nil
        }
        return nil, err
    }
    return s, nil
}

// GetByMessageID finds a delivery record by provider message ID. The
// webhook payload does not say which campaign the message belonged to, so
// this is a cross-campaign lookup on the indexed message_id column. Returns
// nil, nil when no record matches.
func (r *SentEmailRepository) GetByMessageID(messageID string) (*model.SentEmail, error) {
    query := `SELECT ` + sentEmailColumns + ` FROM sent_emails WHERE message_id=$1 ORDER BY id DESC LIMIT 1`
    s, err := scanSentEmail(r.DB.QueryRow(query, messageID))
    if err != nil {
        if err == sql.ErrNoRows {
            return nil, nil
        }
        return nil, err
    }
    return s, nil
}

func (r *SentEmailRepository) CountByCampaign(campaignID int) (map[string]int, error) {
    query := `SELECT status, COUNT(*) FROM sent_emails WHERE campaign_id=$1 GROUP BY status`
    rows, err := r.DB.Query(query, campaignID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    stats := map[string]int{"sent": 0, "failed": 0, "bounced": 0}
    for rows.Next() {
        var status string
        var count int
        if err := rows.Scan(&status, &count); err != nil {
            return nil, err
        }
        stats[status] = count
    }
    return stats, rows.Err()
}

// ====================== Reconciliation writes ======================

func (r *SentEmailRepository) MarkDelivered(id int, ts time.Time) error {
    query := `
        UPDATE sent_emails
        SET delivered=true, delivered_at=COALESCE(delivered_at, $1)
        WHERE id=$2
    `
    _, err := r.DB.Exec(query, ts, id)
    return err
}

// RecordOpen returns whether this was the record's first open. The
// self-join exposes the pre-update row, so the flag is read and flipped
// in one statement.
func (r *SentEmailRepository) RecordOpen(id int, ts time.Time) (bool, error) {
    query := `
        UPDATE sent_emails s
        SET opened=true, opened_at=COALESCE(s.opened_at, $1), open_count=s.open_count+1
        FROM sent_emails old
        WHERE s.id=$2 AND old.id=s.id
        RETURNING NOT old.opened
    `
    var first bool
    if err := r.DB.QueryRow(query, ts, id).Scan(&first); err != nil {
        if err == sql.ErrNoRows {
            return false, nil
        }
        return false, err
    }
    return first, nil
}

func (r *SentEmailRepository) RecordClick(id int, ts time.Time, url string) (bool, error) {
    query := `
        UPDATE sent_emails s
        SET clicked=true, clicked_at=COALESCE(s.clicked_at, $1), click_count=s.click_count+1,
            last_clicked_url=COALESCE(NULLIF($2, ''), s.last_clicked_url)
        FROM sent_emails old
        WHERE s.id=$3 AND old.id=s.id
        RETURNING NOT old.clicked
    `
    var first bool
    if err := r.DB.QueryRow(query, ts, url, id).Scan(&first); err != nil {
        if err == sql.ErrNoRows {
            return false, nil
        }
        return false, err
    }
    return first, nil
}

func (r *SentEmailRepository) MarkBounced(id int, ts time.Time, severity, message, reason string) (bool, error) {
    query := `
        UPDATE sent_emails s
        SET status='bounced', bounced_at=COALESCE(s.bounced_at, $1),
            bounce_severity=$2, bounce_message=$3, bounce_reason=$4
        FROM sent_emails old
        WHERE s.id=$5 AND old.id=s.id
        RETURNING old.status <> 'bounced'
    `
    var first bool
    if err := r.DB.QueryRow(query, ts, severity, message, reason, id).Scan(&first); err != nil {
        if err == sql.ErrNoRows {
            return false, nil
        }
        return false, err
    }
    return first, nil
}

func (r *SentEmailRepository) MarkComplained(id int, ts time.Time) error {
    query := `
        UPDATE sent_emails
        SET complained=true, complained_at=COALESCE(complained_at, $1)
        WHERE id=$2
    `
    _, err := r.DB.Exec(query, ts, id)
    return err
}

func (r *SentEmailRepository) MarkUnsubscribed(id int, ts time.Time) error {
    query := `
        UPDATE sent_emails
        SET unsubscribed_via_mailgun=true, unsubscribed_at=COALESCE(unsubscribed_at, $1)
        WHERE id=$2
    `
    _, err := r.DB.Exec(query, ts, id)
    return err
}

var _ SentEmailRepositoryInterface = (*SentEmailRepository)(nil)
