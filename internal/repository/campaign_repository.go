package repository

import (
    "database/sql"
    "encoding/json"
    "fmt"
    "time"

    "github.com/lib/pq"

    appErrors "github.com/unclebandit/mailblast-backend/internal/errors"
    "github.com/unclebandit/mailblast-backend/internal/model"
)

type CampaignRepositoryInterface interface {
    Create(c *model.Campaign) error
    GetByID(id int) (*model.Campaign, error)
    ListCampaigns(accountID string, offset, limit int, status string) ([]*model.Campaign, int, error)
    UpdateStatus(campaignID int, status string) error
    UpdateStatusIf(campaignID int, from, to string) error

    // Send pipeline
    ClaimForSending(campaignID int) (*model.Campaign, error)
    MarkFailed(campaignID int, errMsg string) error
    Complete(campaignID int, stats model.CampaignStats, sentAt, completedAt time.Time) error
    IncrementStat(campaignID int, stat string) error
    FindDue(now time.Time) ([]int, error)
}

type CampaignRepository struct {
    DB *sql.DB
}

const campaignColumns = `id, account_id, name, subject, from_email, reply_to, html_body, text_body,
        recipients, recipient_count, status, scheduled_at, sent_at, completed_at, attachments,
        stats_total, stats_sent, stats_failed, stats_opened, stats_clicked, stats_bounced,
        error, created_at, updated_at`

type rowScanner interface {
    Scan(dest ...interface{}) error
}

func scanCampaign(row rowScanner) (*model.Campaign, error) {
    var c model.Campaign
    var recipients pq.StringArray
    var attachments []byte
    err := row.Scan(
        &c.ID, &c.AccountID, &c.Name, &c.Subject, &c.FromEmail, &c.ReplyTo, &c.HTMLBody, &c.TextBody,
        &recipients, &c.RecipientCount, &c.Status, &c.ScheduledAt, &c.SentAt, &c.CompletedAt, &attachments,
        &c.Stats.Total, &c.Stats.Sent, &c.Stats.Failed, &c.Stats.Opened, &c.Stats.Clicked, &c.Stats.Bounced,
        &c.Error, &c.CreatedAt, &c.UpdatedAt,
    )
    if err != nil {
        return nil, err
    }
    c.Recipients = []string(recipients)
    if len(attachments) > 0 {
        if err := json.Unmarshal(attachments, &c.Attachments); err != nil {
            return nil, fmt.Errorf("decode attachments: %w", err)
        }
    }
    return &c, nil
}

// ====================== Campaign CRUD ======================

func (r *CampaignRepository) Create(c *model.Campaign) error {
    c.CreatedAt = time.Now()
    if c.Status == "" {
        c.Status = model.StatusDraft
    }
    c.RecipientCount = len(c.Recipients)

    attachments, err := json.Marshal(c.Attachments)
    if err != nil {
        return fmt.Errorf("encode attachments: %w", err)
    }

    query := `
        INSERT INTO campaigns
        (account_id, name, subject, from_email, reply_to, html_body, text_body,
         recipients, recipient_count, status, scheduled_at, attachments, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
        RETURNING id
    `
    return r.DB.QueryRow(query,
        c.AccountID, c.Name, c.Subject, c.FromEmail, c.ReplyTo, c.HTMLBody, c.TextBody,
        pq.Array(c.Recipients), c.RecipientCount, c.Status, c.ScheduledAt, attachments, c.CreatedAt,
    ).Scan(&c.ID)
}

func (r *CampaignRepository) GetByID(id int) (*model.Campaign, error) {
    query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id=$1`
    c, err := scanCampaign(r.DB.QueryRow(query, id))
    if err != nil {
        if err == sql.ErrNoRows {
            return nil, appErrors.NewCampaignNotFound(id)
        }
        return nil, err
    }
    return c, nil
}

func (r *CampaignRepository) ListCampaigns(accountID string, offset, limit int, status string) ([]*model.Campaign, int, error) {
    campaigns := []*model.Campaign{}
    query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE account_id=$1`
    args := []interface{}{accountID}
    argPos := 2

    if status != "" {
        query += fmt.Sprintf(" AND status=$%d", argPos)
        args = append(args, status)
        argPos++
    }

    query += fmt.Sprintf(" ORDER BY id DESC LIMIT $%d OFFSET $%d", argPos, argPos+1)
    args = append(args, limit, offset)

    rows, err := r.DB.Query(query, args...)
    if err != nil {
        return nil, 0, err
    }
    defer rows.Close()

    for rows.Next() {
        c, err := scanCampaign(rows)
        if err != nil {
            return nil, 0, err
        }
        campaigns = append(campaigns, c)
    }

    countQuery := `SELECT COUNT(*) FROM campaigns WHERE account_id=$1`
    argsCount := []interface{}{accountID}
    if status != "" {
        countQuery += " AND status=$2"
        argsCount = append(argsCount, status)
    }

    var total int
    if err := r.DB.QueryRow(countQuery, argsCount...).Scan(&total); err != nil {
        return nil, 0, err
    }

    return campaigns, total, nil
}

func (r *CampaignRepository) UpdateStatus(campaignID int, status string) error {
    query := `UPDATE campaigns SET status=$1, updated_at=$2 WHERE id=$3`
    _, err := r.DB.Exec(query, status, time.Now(), campaignID)
    return err
}

// UpdateStatusIf transitions status only when the current status matches.
// Used for scheduled <-> paused so a stale client cannot pause a campaign
// that already started processing.
func (r *CampaignRepository) UpdateStatusIf(campaignID int, from, to string) error {
    query := `UPDATE campaigns SET status=$1, updated_at=NOW() WHERE id=$2 AND status=$3`
    res, err := r.DB.Exec(query, to, campaignID, from)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        c, err := r.GetByID(campaignID)
        if err != nil {
            return err
        }
        return appErrors.NewCampaignNotSendable(campaignID, c.Status)
    }
    return nil
}

// ====================== Send pipeline ======================

// ClaimForSending atomically moves a campaign into "processing". Only
// draft, scheduled and failed campaigns are claimable; a concurrent second
// caller sees zero rows updated and gets ErrCampaignNotSendable.
func (r *CampaignRepository) ClaimForSending(campaignID int) (*model.Campaign, error) {
    query := `
        UPDATE campaigns SET status='processing', updated_at=NOW()
        WHERE id=$1 AND status IN ('draft', 'scheduled', 'failed')
        RETURNING ` + campaignColumns
    c, err := scanCampaign(r.DB.QueryRow(query, campaignID))
    if err != nil {
        if err == sql.ErrNoRows {
            existing, getErr := r.GetByID(campaignID)
            if getErr != nil {
                return nil, getErr
            }
            return nil, appErrors.NewCampaignNotSendable(campaignID, existing.Status)
        }
        return nil, err
    }
    return c, nil
}

func (r *CampaignRepository) MarkFailed(campaignID int, errMsg string) error {
    query := `UPDATE campaigns SET status='failed', error=$1, updated_at=NOW() WHERE id=$2`
    _, err := r.DB.Exec(query, errMsg, campaignID)
    return err
}

func (r *CampaignRepository) Complete(campaignID int, stats model.CampaignStats, sentAt, completedAt time.Time) error {
    query := `
        UPDATE campaigns
        SET status='completed', error='',
            stats_total=$1, stats_sent=$2, stats_failed=$3,
            stats_opened=$4, stats_clicked=$5, stats_bounced=$6,
            sent_at=$7, completed_at=$8, updated_at=NOW()
        WHERE id=$9
    `
    _, err := r.DB.Exec(query,
        stats.Total, stats.Sent, stats.Failed,
        stats.Opened, stats.Clicked, stats.Bounced,
        sentAt, completedAt, campaignID,
    )
    return err
}

// IncrementStat bumps one of the reconciler-owned counters. The column name
// is whitelisted, never interpolated from caller input.
func (r *CampaignRepository) IncrementStat(campaignID int, stat string) error {
    var column string
    switch stat {
    case "opened":
        column = "stats_opened"
    case "clicked":
        column = "stats_clicked"
    case "bounced":
        column = "stats_bounced"
    default:
        return fmt.Errorf("unknown campaign stat: %s", stat)
    }
    query := fmt.Sprintf(`UPDATE campaigns SET %s = %s + 1, updated_at=NOW() WHERE id=$1`, column, column)
    _, err := r.DB.Exec(query, campaignID)
    return err
}

// FindDue returns IDs of scheduled campaigns whose scheduled_at has passed.
func (r *CampaignRepository) FindDue(now time.Time) ([]int, error) {
    query := `SELECT id FROM campaigns WHERE status='scheduled' AND scheduled_at IS NOT NULL AND scheduled_at <= $1`
    rows, err := r.DB.Query(query, now)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    ids := []int{}
    for rows.Next() {
        var id int
        if err := rows.Scan(&id); err != nil {
            return nil, err
        }
        ids = append(ids, id)
    }
    return ids, rows.Err()
}

var _ CampaignRepositoryInterface = (*CampaignRepository)(nil)
