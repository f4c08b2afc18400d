package queue

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	appErrors "github.com/unclebandit/mailblast-backend/internal/errors"
	"github.com/unclebandit/mailblast-backend/internal/service"
)

// Queue interface
type Queue interface {
	Publish(topic string, payload any) error
	Subscribe(topic string, handler func(payload any) error) error
}

// InMemoryQueue is an in-process queue with retry, used by the server's
// scheduler. The RabbitMQ worker binary is the out-of-process variant.
type InMemoryQueue struct {
	mu       sync.Mutex
	handlers map[string][]func(payload any) error
}

// NewInMemoryQueue creates a new queue
func NewInMemoryQueue() *InMemoryQueue {
	return &InMemoryQueue{
		handlers: make(map[string][]func(payload any) error),
	}
}

// JobPayload wraps a message payload with retry info
type JobPayload struct {
	Payload    any
	RetryCount int
	MaxRetries int
}

// Publish sends a message to all subscribers
func (q *InMemoryQueue) Publish(topic string, payload any) error {
	q.mu.Lock()
	handlers := q.handlers[topic]
	q.mu.Unlock()

	if len(handlers) == 0 {
		return fmt.Errorf("no subscribers for topic %s", topic)
	}

	job := JobPayload{
		Payload:    payload,
		RetryCount: 0,
		MaxRetries: 3,
	}

	for _, handler := range handlers {
		go q.processJob(handler, job)
	}

	return nil
}

// processJob handles retries and errors
func (q *InMemoryQueue) processJob(handler func(payload any) error, job JobPayload) {
	for job.RetryCount <= job.MaxRetries {
		err := handler(job.Payload)
		if err == nil {
			return // ACK
		}

		job.RetryCount++
		log.Printf("Job failed (attempt %d/%d): %+v, error: %v\n", job.RetryCount, job.MaxRetries, job.Payload, err)

		if job.RetryCount > job.MaxRetries {
			log.Printf("Job permanently failed after %d attempts: %+v\n", job.MaxRetries, job.Payload)
			return // No requeue
		}

		// Exponential backoff before retry
		time.Sleep(time.Duration(job.RetryCount*500) * time.Millisecond)
	}
}

// Subscribe adds a handler for a topic
func (q *InMemoryQueue) Subscribe(topic string, handler func(payload any) error) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.handlers[topic] = append(q.handlers[topic], handler)
	return nil
}

// StartCampaignSendSubscriber wires the send pipeline to the campaign_sends
// topic. Payloads are campaign IDs published by the scheduler.
func StartCampaignSendSubscriber(q Queue, sender service.CampaignSender) {
	go func() {
		err := q.Subscribe("campaign_sends", func(payload any) error {
			campaignID, ok := payload.(int)
			if !ok {
				log.Println("⚠️ Invalid payload type, expected int")
				return nil // malformed, no retry
			}

			log.Println("📩 Processing queued campaign send:", campaignID)

			result, err := sender.SendCampaign(campaignID)
			if err != nil {
				var notSendable *appErrors.ErrCampaignNotSendable
				if errors.As(err, &notSendable) {
					// Claimed by someone else between scheduling and now.
					log.Println("⚠️ campaign not sendable, dropping job:", err)
					return nil // no retry
				}
				log.Println("⚠️ Failed to send campaign:", err)
				return err // triggers retry in queue
			}

			log.Printf("✅ Queued campaign %d completed: %+v\n", campaignID, result.Stats)
			return nil
		})

		if err != nil {
			log.Println("⚠️ Failed to start subscriber for campaign_sends:", err)
		}
	}()
}
