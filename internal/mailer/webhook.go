// internal/mailer/webhook.go
package mailer

import (
    "encoding/json"
    "fmt"
    "time"
)

// Signature is the verification block Mailgun attaches to every webhook.
type Signature struct {
    Timestamp string `json:"timestamp"`
    Token     string `json:"token"`
    Signature string `json:"signature"`
}

// Event is one delivery-lifecycle event. The concrete type says which
// event it is; only fields that event actually carries live on the
// variant.
type Event interface {
    Type() string
    Recipient() string
    MessageID() string
    OccurredAt() time.Time
}

type baseEvent struct {
    eventType  string
    recipient  string
    messageID  string
    occurredAt time.Time
}

func (e baseEvent) Type() string          { return e.eventType }
func (e baseEvent) Recipient() string     { return e.recipient }
func (e baseEvent) MessageID() string     { return e.messageID }
func (e baseEvent) OccurredAt() time.Time { return e.occurredAt }

type DeliveredEvent struct{ baseEvent }

type OpenedEvent struct{ baseEvent }

type ClickedEvent struct {
    baseEvent
    URL string
}

type BouncedEvent struct {
    baseEvent
    Severity    string // "permanent" or "temporary"
    Reason      string
    Code        int
    Description string
    Message     string
}

type ComplainedEvent struct{ baseEvent }

type UnsubscribedEvent struct{ baseEvent }

// UnknownEvent covers event types the reconciler does not handle.
type UnknownEvent struct{ baseEvent }

// Webhook is a parsed callback payload.
type Webhook struct {
    Signature Signature
    Event     Event
}

type webhookEnvelope struct {
    Signature Signature `json:"signature"`
    EventData struct {
        Event     string  `json:"event"`
        Timestamp float64 `json:"timestamp"`
        Recipient string  `json:"recipient"`
        Message   struct {
            Headers struct {
                MessageID string `json:"message-id"`
            } `json:"headers"`
        } `json:"message"`
        DeliveryStatus *struct {
            Code        int    `json:"code"`
            Message     string `json:"message"`
            Description string `json:"description"`
        } `json:"delivery-status"`
        URL      string `json:"url"`
        Severity string `json:"severity"`
        Reason   string `json:"reason"`
    } `json:"event-data"`
}

// ParseWebhook decodes a Mailgun webhook body into the typed event union.
// It only errors on malformed JSON; a missing message-id or an unhandled
// event type still parses and is left for the reconciler to report.
func ParseWebhook(body []byte) (*Webhook, error) {
    var env webhookEnvelope
    if err := json.Unmarshal(body, &env); err != nil {
        return nil, fmt.Errorf("decode webhook payload: %w", err)
    }

    occurredAt := time.Now()
    if env.EventData.Timestamp > 0 {
        occurredAt = time.Unix(int64(env.EventData.Timestamp), 0)
    }

    base := baseEvent{
        eventType:  env.EventData.Event,
        recipient:  env.EventData.Recipient,
        messageID:  env.EventData.Message.Headers.MessageID,
        occurredAt: occurredAt,
    }

    var event Event
    switch env.EventData.Event {
    case "delivered":
        event = &DeliveredEvent{base}
    case "opened":
        event = &OpenedEvent{base}
    case "clicked":
        event = &ClickedEvent{baseEvent: base, URL: env.EventData.URL}
    case "bounced", "failed":
        bounced := &BouncedEvent{
            baseEvent: base,
            Severity:  env.EventData.Severity,
            Reason:    env.EventData.Reason,
        }
        if ds := env.EventData.DeliveryStatus; ds != nil {
            bounced.Code = ds.Code
            bounced.Message = ds.Message
            bounced.Description = ds.Description
        }
        event = bounced
    case "complained":
        event = &ComplainedEvent{base}
    case "unsubscribed":
        event = &UnsubscribedEvent{base}
    default:
        event = &UnknownEvent{base}
    }

    return &Webhook{Signature: env.Signature, Event: event}, nil
}
