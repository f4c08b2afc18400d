package main

import (
    "encoding/json"
    "errors"
    "log"

    "github.com/joho/godotenv"
    "github.com/streadway/amqp"

    "github.com/unclebandit/mailblast-backend/internal/attachment"
    "github.com/unclebandit/mailblast-backend/internal/config"
    "github.com/unclebandit/mailblast-backend/internal/db"
    appErrors "github.com/unclebandit/mailblast-backend/internal/errors"
    "github.com/unclebandit/mailblast-backend/internal/mailer"
    "github.com/unclebandit/mailblast-backend/internal/repository"
    "github.com/unclebandit/mailblast-backend/internal/service"
)

type QueueJob struct {
    CampaignID int `json:"campaign_id"`
}

const maxSendRetries = 3

func main() {
    if err := godotenv.Load(); err != nil {
        log.Println("⚠️ No .env file found, relying on OS environment variables")
    }

    cfg, err := config.Load()
    if err != nil {
        log.Fatal("failed to load config:", err)
    }

    db.Init(cfg)

    campaignRepo := &repository.CampaignRepository{DB: db.DB}
    sentEmailRepo := &repository.SentEmailRepository{DB: db.DB}

    sendService := &service.SendService{
        CampaignRepo:  campaignRepo,
        SentEmailRepo: sentEmailRepo,
        Mailer:        mailer.NewClient(cfg.MailgunAPIKey, cfg.MailgunDomain),
        Attachments:   attachment.NewFetcher(),
    }

    // Connect to RabbitMQ
    conn, err := amqp.Dial(cfg.AMQPURL)
    if err != nil {
        log.Fatal("Failed to connect to RabbitMQ:", err)
    }
    defer conn.Close()

    ch, err := conn.Channel()
    if err != nil {
        log.Fatal("Failed to open a channel:", err)
    }
    defer ch.Close()

    q, err := ch.QueueDeclare(
        "campaign_sends", // name
        true,             // durable
        false,            // delete when unused
        false,            // exclusive
        false,            // no-wait
        nil,              // arguments
    )
    if err != nil {
        log.Fatal("Failed to declare queue:", err)
    }

    msgs, err := ch.Consume(
        q.Name,
        "",
        false, // autoAck = false for reliability
        false,
        false,
        false,
        nil,
    )
    if err != nil {
        log.Fatal("Failed to register consumer:", err)
    }

    forever := make(chan bool)

    go func() {
        for d := range msgs {
            handleDelivery(d, sendService)
        }
    }()

    log.Println("Worker running, waiting for messages...")
    <-forever
}

// handleDelivery runs one queued send and acks only after the pipeline
// returns, so a crash mid-send redelivers the job. Failed sends are
// requeued up to maxSendRetries; a campaign already claimed elsewhere is
// dropped, retrying it would never succeed.
func handleDelivery(d amqp.Delivery, sender service.CampaignSender) {
    var job QueueJob
    if err := json.Unmarshal(d.Body, &job); err != nil {
        log.Println("Invalid job:", err)
        d.Ack(false)
        return
    }

    result, err := sender.SendCampaign(job.CampaignID)
    if err != nil {
        var notSendable *appErrors.ErrCampaignNotSendable
        if errors.As(err, &notSendable) {
            log.Println("⚠️ dropping campaign", job.CampaignID, ":", err)
            d.Ack(false)
            return
        }

        log.Println("⚠️ failed to send campaign", job.CampaignID, ":", err)
        if retryCount(d.Headers) < maxSendRetries {
            d.Nack(false, true) // requeue
            return
        }
        log.Println("📛 giving up on campaign", job.CampaignID, "after", maxSendRetries, "retries")
        d.Ack(false)
        return
    }

    log.Printf("✅ campaign %d processed: %+v\n", job.CampaignID, result.Stats)
    d.Ack(false)
}

func retryCount(headers amqp.Table) int {
    switch v := headers["x-retry-count"].(type) {
    case int:
        return v
    case int32:
        return int(v)
    case int64:
        return int(v)
    default:
        return 0
    }
}
