// internal/service/send_service.go
package service

import (
    "log"
    "time"

    "github.com/unclebandit/mailblast-backend/internal/attachment"
    "github.com/unclebandit/mailblast-backend/internal/mailer"
    "github.com/unclebandit/mailblast-backend/internal/model"
    "github.com/unclebandit/mailblast-backend/internal/repository"
)

// BatchSender is the slice of the provider gateway the pipeline needs.
type BatchSender interface {
    SendMany(recipients []string, shared mailer.Message) []mailer.SendResult
}

// AttachmentFetcher resolves stored attachment references to buffers.
type AttachmentFetcher interface {
    FetchAll(refs []attachment.Ref) ([]attachment.File, error)
}

// SendService runs the campaign send pipeline: claim the campaign, resolve
// attachments, fan out through the provider in batches, record one
// SentEmail per recipient, and complete the campaign with aggregate stats.
type SendService struct {
    CampaignRepo  repository.CampaignRepositoryInterface
    SentEmailRepo repository.SentEmailRepositoryInterface
    Mailer        BatchSender
    Attachments   AttachmentFetcher
}

type SendCampaignResult struct {
    CampaignID int                 `json:"campaign_id"`
    Status     string              `json:"status"`
    Stats      model.CampaignStats `json:"stats"`
}

// CampaignSender is the slice of the pipeline that queue consumers need.
type CampaignSender interface {
    SendCampaign(campaignID int) (*SendCampaignResult, error)
}

// SendCampaign is the single entry point for "send this campaign now".
// Synchronous from the caller's perspective; sends inside a batch run
// concurrently. Partial recipient failure never fails the campaign — only
// a pipeline failure (attachment resolution) does.
func (s *SendService) SendCampaign(campaignID int) (*SendCampaignResult, error) {
    // Claim moves draft/scheduled/failed -> processing atomically, so a
    // concurrent second call is rejected instead of double-sending.
    campaign, err := s.CampaignRepo.ClaimForSending(campaignID)
    if err != nil {
        return nil, err
    }

    var files []mailer.Attachment
    if len(campaign.Attachments) > 0 {
        refs := make([]attachment.Ref, len(campaign.Attachments))
        for i, a := range campaign.Attachments {
            refs[i] = attachment.Ref{Name: a.Name, URL: a.StoragePath}
        }
        fetched, err := s.Attachments.FetchAll(refs)
        if err != nil {
            log.Println("⚠️ attachment fetch failed for campaign", campaignID, ":", err)
            if markErr := s.CampaignRepo.MarkFailed(campaignID, err.Error()); markErr != nil {
                log.Println("⚠️ failed to mark campaign failed:", markErr)
            }
            return nil, err
        }
        files = make([]mailer.Attachment, len(fetched))
        for i, f := range fetched {
            files[i] = mailer.Attachment{Filename: f.Name, Data: f.Data}
        }
    }

    shared := mailer.Message{
        From:        campaign.FromEmail,
        ReplyTo:     campaign.ReplyTo,
        Subject:     campaign.Subject,
        HTML:        campaign.HTMLBody,
        Text:        campaign.TextBody,
        Attachments: files,
    }

    sentAt := time.Now()
    results := s.Mailer.SendMany(campaign.Recipients, shared)

    stats := model.CampaignStats{Total: len(results)}
    lost := 0
    for _, res := range results {
        rec := &model.SentEmail{
            AccountID:  campaign.AccountID,
            CampaignID: campaign.ID,
            Recipient:  res.Recipient,
            Subject:    campaign.Subject,
            SentAt:     sentAt,
        }
        if res.Success {
            rec.Status = model.SentStatusSent
            rec.MessageID = res.MessageID
            stats.Sent++
        } else {
            rec.Status = model.SentStatusFailed
            rec.LastError = res.Error
            stats.Failed++
        }
        if err := s.createSentEmail(rec); err != nil {
            log.Println("⚠️ failed to record sent email for", res.Recipient, ":", err)
            lost++
        }
    }
    if lost > 0 {
        log.Printf("⚠️ campaign %d: %d of %d delivery records could not be written\n",
            campaignID, lost, len(results))
    }

    completedAt := time.Now()
    if err := s.CampaignRepo.Complete(campaignID, stats, sentAt, completedAt); err != nil {
        return nil, err
    }

    log.Printf("✅ campaign %d completed: %d sent, %d failed of %d\n",
        campaignID, stats.Sent, stats.Failed, stats.Total)

    return &SendCampaignResult{
        CampaignID: campaignID,
        Status:     model.StatusCompleted,
        Stats:      stats,
    }, nil
}

// createSentEmail retries transient write failures so the per-recipient
// bookkeeping row is not lost while the provider already accepted the
// message.
func (s *SendService) createSentEmail(rec *model.SentEmail) error {
    var err error
    for attempt := 0; attempt < 3; attempt++ {
        if attempt > 0 {
            time.Sleep(100 * time.Millisecond)
        }
        if err = s.SentEmailRepo.Create(rec); err == nil {
            return nil
        }
    }
    return err
}
