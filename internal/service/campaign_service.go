// internal/service/campaign_service.go
package service

import (
    "fmt"
    "log"
    "strings"
    "time"

    "github.com/unclebandit/mailblast-backend/internal/model"
    "github.com/unclebandit/mailblast-backend/internal/repository"
)

// CampaignService covers the data-entry side of campaigns: create, list,
// details with stats, pause/resume, preview. The actual send pipeline
// lives in SendService.
type CampaignService struct {
    CampaignRepo  repository.CampaignRepositoryInterface
    SentEmailRepo repository.SentEmailRepositoryInterface
    ContactRepo   repository.ContactRepositoryInterface
}

type CreateCampaignInput struct {
    AccountID   string             `json:"account_id"`
    Name        string             `json:"name"`
    Subject     string             `json:"subject"`
    FromEmail   string             `json:"from_email"`
    ReplyTo     string             `json:"reply_to"`
    HTMLBody    string             `json:"html_body"`
    TextBody    string             `json:"text_body"`
    Recipients  []string           `json:"recipients"`
    Attachments []model.Attachment `json:"attachments"`
    ScheduledAt *string            `json:"scheduled_at"`
}

type CampaignDetails struct {
    Campaign model.Campaign `json:"campaign"`
    Stats    map[string]int `json:"stats"`
}

func (s *CampaignService) CreateCampaign(in CreateCampaignInput) (*model.Campaign, error) {
    if strings.TrimSpace(in.Name) == "" {
        return nil, fmt.Errorf("campaign name cannot be empty")
    }
    if strings.TrimSpace(in.Subject) == "" {
        return nil, fmt.Errorf("campaign subject cannot be empty")
    }
    if strings.TrimSpace(in.FromEmail) == "" {
        return nil, fmt.Errorf("campaign sender cannot be empty")
    }
    if len(in.Recipients) == 0 {
        return nil, fmt.Errorf("campaign needs at least one recipient")
    }

    c := &model.Campaign{
        AccountID:   in.AccountID,
        Name:        in.Name,
        Subject:     in.Subject,
        FromEmail:   in.FromEmail,
        ReplyTo:     in.ReplyTo,
        HTMLBody:    in.HTMLBody,
        TextBody:    in.TextBody,
        Recipients:  in.Recipients,
        Attachments: in.Attachments,
        Status:      model.StatusDraft,
    }

    if in.ScheduledAt != nil && *in.ScheduledAt != "" {
        t, err := time.Parse(time.RFC3339, *in.ScheduledAt)
        if err != nil {
            return nil, err
        }
        c.ScheduledAt = &t
        c.Status = model.StatusScheduled
    }

    if err := s.CampaignRepo.Create(c); err != nil {
        return nil, err
    }

    return c, nil
}

// ListCampaigns fetches campaigns with pagination
func (s *CampaignService) ListCampaigns(accountID string, page, pageSize int, status string) ([]model.Campaign, map[string]int, error) {
    if page < 1 {
        page = 1
    }
    if pageSize < 1 {
        pageSize = 20
    }
    if pageSize > 100 {
        pageSize = 100
    }
    offset := (page - 1) * pageSize

    ptrs, total, err := s.CampaignRepo.ListCampaigns(accountID, offset, pageSize, status)
    if err != nil {
        return nil, nil, err
    }

    campaigns := make([]model.Campaign, len(ptrs))
    for i, c := range ptrs {
        campaigns[i] = *c
    }

    totalPages := (total + pageSize - 1) / pageSize
    pagination := map[string]int{
        "page":        page,
        "page_size":   pageSize,
        "total_count": total,
        "total_pages": totalPages,
    }

    return campaigns, pagination, nil
}

// GetCampaignDetailsWithStats fetches a campaign plus a live rollup of its
// delivery records (the stored stats columns lag behind reconciliation).
func (s *CampaignService) GetCampaignDetailsWithStats(campaignID int) (*CampaignDetails, error) {
    campaign, err := s.CampaignRepo.GetByID(campaignID)
    if err != nil {
        log.Println("Failed to fetch campaign:", err)
        return nil, err
    }

    counts, err := s.SentEmailRepo.CountByCampaign(campaignID)
    if err != nil {
        log.Println("Failed to count sent emails:", err)
        return nil, err
    }

    stats := map[string]int{
        "total":   campaign.Stats.Total,
        "sent":    counts["sent"],
        "failed":  counts["failed"],
        "bounced": counts["bounced"],
        "opened":  campaign.Stats.Opened,
        "clicked": campaign.Stats.Clicked,
    }

    return &CampaignDetails{Campaign: *campaign, Stats: stats}, nil
}

// PauseCampaign moves scheduled -> paused.
func (s *CampaignService) PauseCampaign(campaignID int) error {
    return s.CampaignRepo.UpdateStatusIf(campaignID, model.StatusScheduled, model.StatusPaused)
}

// ResumeCampaign moves paused -> scheduled.
func (s *CampaignService) ResumeCampaign(campaignID int) error {
    return s.CampaignRepo.UpdateStatusIf(campaignID, model.StatusPaused, model.StatusScheduled)
}

// RenderPreview renders the campaign HTML for one contact.
func (s *CampaignService) RenderPreview(campaignID, contactID int, overrideBody *string) (string, error) {
    campaign, err := s.CampaignRepo.GetByID(campaignID)
    if err != nil {
        return "", err
    }

    contact, err := s.ContactRepo.GetByID(contactID)
    if err != nil {
        return "", err
    }
    if contact == nil {
        return "", fmt.Errorf("contact not found")
    }

    body := campaign.HTMLBody
    if overrideBody != nil && strings.TrimSpace(*overrideBody) != "" {
        body = *overrideBody
    }
    if strings.TrimSpace(body) == "" {
        return "", fmt.Errorf("campaign body cannot be empty")
    }

    data := map[string]string{
        "first_name": contact.FirstName,
        "last_name":  contact.LastName,
        "email":      contact.Email,
    }
    // Custom fields never shadow the built-in placeholders.
    for k, v := range contact.CustomFields {
        if _, ok := data[k]; !ok {
            data[k] = v
        }
    }

    return RenderTemplate(body, data), nil
}
