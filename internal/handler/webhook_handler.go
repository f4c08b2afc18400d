// internal/handler/webhook_handler.go
package handler

import (
	"encoding/json"
	"io"
	"log"
	"net/http"

	"github.com/unclebandit/mailblast-backend/internal/mailer"
	"github.com/unclebandit/mailblast-backend/internal/service"
)

// WebhookHandler receives Mailgun delivery-event callbacks. Signature
// verification happens before any other work; an unverified payload is
// rejected with 401. A verified event that cannot be matched to a record
// still returns 200 so Mailgun does not redeliver it forever.
type WebhookHandler struct {
	SigningKey     string
	WebhookService *service.WebhookService
}

func (h *WebhookHandler) HandleMailgunEvent(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "cannot read body", http.StatusBadRequest)
		return
	}

	webhook, err := mailer.ParseWebhook(body)
	if err != nil {
		log.Println("⚠️ malformed webhook payload:", err)
		http.Error(w, "malformed payload", http.StatusBadRequest)
		return
	}

	sig := webhook.Signature
	if !mailer.VerifySignature(h.SigningKey, sig.Timestamp, sig.Token, sig.Signature) {
		log.Println("⚠️ webhook signature verification failed")
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	result, err := h.WebhookService.ProcessEvent(webhook.Event)
	if err != nil {
		// Genuine persistence failure: non-2xx so Mailgun redelivers.
		log.Println("⚠️ webhook reconciliation failed:", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(result)
}
