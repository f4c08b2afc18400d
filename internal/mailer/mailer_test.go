package mailer_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/unclebandit/mailblast-backend/internal/mailer"
)

func newTestClient(serverURL string) *mailer.Client {
	c := mailer.NewClient("test-api-key", "mg.example.com")
	c.BaseURL = serverURL
	c.BatchSize = 2
	c.BatchDelay = 0 // no rate-limit pause in tests
	return c
}

func TestSendOneSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/mg.example.com/messages" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "api" || pass != "test-api-key" {
			t.Error("expected basic auth api:test-api-key")
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatal("expected multipart form:", err)
		}
		if got := r.FormValue("to"); got != "a@x.com" {
			t.Errorf("expected to=a@x.com, got %s", got)
		}
		if got := r.FormValue("h:Reply-To"); got != "replies@x.com" {
			t.Errorf("expected Reply-To header field, got %s", got)
		}
		json.NewEncoder(w).Encode(map[string]string{"id": "<m1@mg.example.com>", "message": "Queued."})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	result := client.SendOne(mailer.Message{
		To:      "a@x.com",
		From:    "hello@mg.example.com",
		ReplyTo: "replies@x.com",
		Subject: "Hi",
		HTML:    "<p>Hi</p>",
	})

	if !result.Success {
		t.Fatal("expected success, got error:", result.Error)
	}
	if result.MessageID != "<m1@mg.example.com>" {
		t.Errorf("expected message ID, got %q", result.MessageID)
	}
}

func TestSendOneAttachment(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatal("expected multipart form:", err)
		}
		files := r.MultipartForm.File["attachment"]
		if len(files) != 1 || files[0].Filename != "report.pdf" {
			t.Errorf("expected one attachment named report.pdf, got %+v", files)
		}
		json.NewEncoder(w).Encode(map[string]string{"id": "<m2@mg.example.com>"})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	result := client.SendOne(mailer.Message{
		To:          "a@x.com",
		From:        "hello@mg.example.com",
		Subject:     "Report",
		Text:        "attached",
		Attachments: []mailer.Attachment{{Filename: "report.pdf", Data: []byte("%PDF-1.4")}},
	})

	if !result.Success {
		t.Fatal("expected success, got error:", result.Error)
	}
}

func TestSendOneProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"message": "Forbidden"})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	result := client.SendOne(mailer.Message{To: "a@x.com", From: "hello@mg.example.com", Subject: "Hi"})

	if result.Success {
		t.Fatal("expected failure")
	}
	if result.Error == "" {
		t.Error("expected error message to be captured")
	}
	if result.Recipient != "a@x.com" {
		t.Errorf("expected recipient on failure result, got %q", result.Recipient)
	}
}

func TestSendManyPreservesOrderAndCapturesFailures(t *testing.T) {
	var calls int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatal("expected multipart form:", err)
		}
		to := r.FormValue("to")
		if to == "bad@x.com" {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"message": "'to' parameter is not a valid address"})
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"id": fmt.Sprintf("<%s@mg.example.com>", to)})
	}))
	defer server.Close()

	recipients := []string{"a@x.com", "bad@x.com", "b@x.com", "c@x.com", "d@x.com"}

	client := newTestClient(server.URL)
	results := client.SendMany(recipients, mailer.Message{From: "hello@mg.example.com", Subject: "Hi", Text: "hi"})

	if len(results) != len(recipients) {
		t.Fatalf("expected %d results, got %d", len(recipients), len(results))
	}
	if got := atomic.LoadInt64(&calls); got != int64(len(recipients)) {
		t.Errorf("expected %d provider calls, got %d", len(recipients), got)
	}
	for i, res := range results {
		if res.Recipient != recipients[i] {
			t.Errorf("result %d out of order: expected %s, got %s", i, recipients[i], res.Recipient)
		}
	}
	if results[1].Success {
		t.Error("expected bad@x.com to fail")
	}
	for _, i := range []int{0, 2, 3, 4} {
		if !results[i].Success {
			t.Errorf("expected %s to succeed, got error: %s", recipients[i], results[i].Error)
		}
	}
}

func TestSendManyEmpty(t *testing.T) {
	client := newTestClient("http://127.0.0.1:0")
	results := client.SendMany(nil, mailer.Message{From: "hello@mg.example.com"})
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}
