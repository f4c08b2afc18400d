// cmd/server/main.go
package main

import (
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	"github.com/unclebandit/mailblast-backend/internal/attachment"
	"github.com/unclebandit/mailblast-backend/internal/config"
	"github.com/unclebandit/mailblast-backend/internal/controller"
	"github.com/unclebandit/mailblast-backend/internal/db"
	"github.com/unclebandit/mailblast-backend/internal/handler"
	"github.com/unclebandit/mailblast-backend/internal/mailer"
	"github.com/unclebandit/mailblast-backend/internal/queue"
	"github.com/unclebandit/mailblast-backend/internal/repository"
	"github.com/unclebandit/mailblast-backend/internal/service"
)

func main() {
	// Load .env
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ No .env file found, relying on OS environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config:", err)
	}

	// Init DB
	db.Init(cfg)

	campaignRepo := &repository.CampaignRepository{DB: db.DB}
	sentEmailRepo := &repository.SentEmailRepository{DB: db.DB}
	contactRepo := &repository.ContactRepository{DB: db.DB}

	// Provider client: constructed once, reused for every send.
	mailClient := mailer.NewClient(cfg.MailgunAPIKey, cfg.MailgunDomain)

	sendService := &service.SendService{
		CampaignRepo:  campaignRepo,
		SentEmailRepo: sentEmailRepo,
		Mailer:        mailClient,
		Attachments:   attachment.NewFetcher(),
	}

	campaignService := &service.CampaignService{
		CampaignRepo:  campaignRepo,
		SentEmailRepo: sentEmailRepo,
		ContactRepo:   contactRepo,
	}

	webhookService := &service.WebhookService{
		SentEmailRepo: sentEmailRepo,
		ContactRepo:   contactRepo,
		CampaignRepo:  campaignRepo,
	}

	q := queue.NewInMemoryQueue()
	queue.StartCampaignSendSubscriber(q, sendService)
	go scheduleDueCampaigns(campaignRepo, q)

	campaignController := &controller.CampaignController{
		CampaignService: campaignService,
		SendService:     sendService,
	}

	contactController := &controller.ContactController{
		ContactRepo: contactRepo,
	}

	webhookHandler := &handler.WebhookHandler{
		SigningKey:     cfg.MailgunSigningKey,
		WebhookService: webhookService,
	}

	r := chi.NewRouter()

	// Campaign routes
	r.Post("/campaigns", campaignController.CreateCampaign)
	r.Get("/campaigns", campaignController.ListCampaigns)
	r.Get("/campaigns/{id}", campaignController.GetCampaignDetails)
	r.Post("/campaigns/{id}/send", campaignController.SendCampaign)
	r.Post("/campaigns/{id}/pause", campaignController.PauseCampaign)
	r.Post("/campaigns/{id}/resume", campaignController.ResumeCampaign)
	r.Post("/campaigns/{id}/personalized-preview", campaignController.PersonalizedPreview)

	// Contact routes
	r.Get("/contacts", contactController.ListContacts)

	// Mailgun delivery-event callbacks
	r.Post("/webhooks/mailgun", webhookHandler.HandleMailgunEvent)

	log.Println("🚀 Server running on :" + cfg.Port)
	log.Fatal(http.ListenAndServe(":"+cfg.Port, r))
}

// scheduleDueCampaigns polls for scheduled campaigns whose time has come
// and hands them to the send subscriber.
func scheduleDueCampaigns(repo repository.CampaignRepositoryInterface, q queue.Queue) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		ids, err := repo.FindDue(time.Now())
		if err != nil {
			log.Println("⚠️ scheduler poll failed:", err)
			continue
		}
		for _, id := range ids {
			log.Println("⏰ scheduled campaign due:", id)
			if err := q.Publish("campaign_sends", id); err != nil {
				log.Println("⚠️ failed to enqueue campaign", id, ":", err)
			}
		}
	}
}
