// internal/service/webhook_service.go
package service

import (
    "log"
    "strings"

    "github.com/unclebandit/mailblast-backend/internal/mailer"
    "github.com/unclebandit/mailblast-backend/internal/model"
    "github.com/unclebandit/mailblast-backend/internal/repository"
)

// WebhookService reconciles one provider delivery event onto the matching
// SentEmail record. Mailgun delivers at-least-once, so every write here is
// idempotent: first-occurrence timestamps are set once, only the
// open/click counters move on every redelivery.
type WebhookService struct {
    SentEmailRepo repository.SentEmailRepositoryInterface
    ContactRepo   repository.ContactRepositoryInterface
    CampaignRepo  repository.CampaignRepositoryInterface
}

// ReconcileResult reports what happened to one event. Processed=false is
// not an error: a webhook for a purged or pre-system email is expected.
type ReconcileResult struct {
    Processed bool   `json:"processed"`
    Reason    string `json:"reason,omitempty"`
}

// ProcessEvent applies one webhook event.
func (s *WebhookService) ProcessEvent(event mailer.Event) (*ReconcileResult, error) {
    if event.MessageID() == "" {
        log.Println("⚠️ webhook event without message-id, skipping")
        return &ReconcileResult{Processed: false, Reason: "missing message-id"}, nil
    }

    rec, err := s.findRecord(event.MessageID())
    if err != nil {
        return nil, err
    }
    if rec == nil {
        log.Println("⚠️ no sent email found for message-id", event.MessageID())
        return &ReconcileResult{Processed: false, Reason: "sent email not found"}, nil
    }

    switch e := event.(type) {
    case *mailer.DeliveredEvent:
        if err := s.SentEmailRepo.MarkDelivered(rec.ID, e.OccurredAt()); err != nil {
            return nil, err
        }

    // The campaign stat guards below rely on the repository reporting
    // first occurrence from the row update itself. Checking the record
    // fetched above would race with a concurrent redelivery.
    case *mailer.OpenedEvent:
        first, err := s.SentEmailRepo.RecordOpen(rec.ID, e.OccurredAt())
        if err != nil {
            return nil, err
        }
        if first {
            if err := s.CampaignRepo.IncrementStat(rec.CampaignID, "opened"); err != nil {
                return nil, err
            }
        }

    case *mailer.ClickedEvent:
        first, err := s.SentEmailRepo.RecordClick(rec.ID, e.OccurredAt(), e.URL)
        if err != nil {
            return nil, err
        }
        if first {
            if err := s.CampaignRepo.IncrementStat(rec.CampaignID, "clicked"); err != nil {
                return nil, err
            }
        }

    case *mailer.BouncedEvent:
        first, err := s.SentEmailRepo.MarkBounced(rec.ID, e.OccurredAt(), e.Severity, e.Message, e.Reason)
        if err != nil {
            return nil, err
        }
        if first {
            if err := s.CampaignRepo.IncrementStat(rec.CampaignID, "bounced"); err != nil {
                return nil, err
            }
        }
        if e.Severity == model.BouncePermanent {
            n, err := s.ContactRepo.MarkBouncedByEmail(rec.AccountID, rec.Recipient)
            if err != nil {
                return nil, err
            }
            log.Printf("📛 permanent bounce for %s: flagged %d contact(s)\n", rec.Recipient, n)
        }

    case *mailer.ComplainedEvent:
        if err := s.SentEmailRepo.MarkComplained(rec.ID, e.OccurredAt()); err != nil {
            return nil, err
        }

    case *mailer.UnsubscribedEvent:
        if err := s.SentEmailRepo.MarkUnsubscribed(rec.ID, e.OccurredAt()); err != nil {
            return nil, err
        }
        n, err := s.ContactRepo.MarkUnsubscribedByEmail(rec.AccountID, rec.Recipient)
        if err != nil {
            return nil, err
        }
        log.Printf("🚫 unsubscribe for %s: flagged %d contact(s)\n", rec.Recipient, n)

    default:
        log.Println("⚠️ unhandled webhook event type:", event.Type())
        return &ReconcileResult{Processed: false, Reason: "unhandled event type: " + event.Type()}, nil
    }

    return &ReconcileResult{Processed: true}, nil
}

// findRecord looks the delivery record up by provider message ID. Mailgun
// wraps the ID in angle brackets in the webhook but may or may not have
// echoed them at send time, so try the bracketed form first, then bare.
func (s *WebhookService) findRecord(messageID string) (*model.SentEmail, error) {
    bracketed := messageID
    if !strings.HasPrefix(bracketed, "<") {
        bracketed = "<" + strings.Trim(messageID, "<>") + ">"
    }

    rec, err := s.SentEmailRepo.GetByMessageID(bracketed)
    if err != nil {
        return nil, err
    }
    if rec != nil {
        return rec, nil
    }

    bare := strings.Trim(messageID, "<>")
    return s.SentEmailRepo.GetByMessageID(bare)
}
