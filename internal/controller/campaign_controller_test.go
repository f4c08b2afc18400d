package controller_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/unclebandit/mailblast-backend/internal/controller"
	appErrors "github.com/unclebandit/mailblast-backend/internal/errors"
	"github.com/unclebandit/mailblast-backend/internal/mailer"
	"github.com/unclebandit/mailblast-backend/internal/model"
	"github.com/unclebandit/mailblast-backend/internal/service"
)

// --- Mock repositories ---

type MockCampaignRepo struct {
	campaign *model.Campaign
	created  *model.Campaign
}

func (m *MockCampaignRepo) Create(c *model.Campaign) error {
	c.ID = 7
	c.RecipientCount = len(c.Recipients)
	m.created = c
	return nil
}

func (m *MockCampaignRepo) GetByID(id int) (*model.Campaign, error) {
	if m.campaign == nil {
		return nil, appErrors.NewCampaignNotFound(id)
	}
	return m.campaign, nil
}

func (m *MockCampaignRepo) ListCampaigns(accountID string, offset, limit int, status string) ([]*model.Campaign, int, error) {
	return []*model.Campaign{}, 0, nil
}

func (m *MockCampaignRepo) UpdateStatus(id int, status string) error     { return nil }
func (m *MockCampaignRepo) UpdateStatusIf(id int, from, to string) error { return nil }

func (m *MockCampaignRepo) ClaimForSending(id int) (*model.Campaign, error) {
	if m.campaign == nil {
		return nil, appErrors.NewCampaignNotFound(id)
	}
	if m.campaign.Status == model.StatusProcessing {
		return nil, appErrors.NewCampaignNotSendable(id, m.campaign.Status)
	}
	m.campaign.Status = model.StatusProcessing
	return m.campaign, nil
}

func (m *MockCampaignRepo) MarkFailed(id int, errMsg string) error { return nil }
func (m *MockCampaignRepo) Complete(id int, stats model.CampaignStats, sentAt, completedAt time.Time) error {
	m.campaign.Status = model.StatusCompleted
	return nil
}
func (m *MockCampaignRepo) IncrementStat(id int, stat string) error { return nil }
func (m *MockCampaignRepo) FindDue(now time.Time) ([]int, error)    { return nil, nil }

type MockSentEmailRepo struct{}

func (m *MockSentEmailRepo) Create(s *model.SentEmail) error                    { return nil }
func (m *MockSentEmailRepo) GetByID(id int) (*model.SentEmail, error)           { return nil, nil }
func (m *MockSentEmailRepo) GetByMessageID(id string) (*model.SentEmail, error) { return nil, nil }
func (m *MockSentEmailRepo) CountByCampaign(id int) (map[string]int, error) {
	return map[string]int{"sent": 0, "failed": 0, "bounced": 0}, nil
}
func (m *MockSentEmailRepo) MarkDelivered(id int, ts time.Time) error      { return nil }
func (m *MockSentEmailRepo) RecordOpen(id int, ts time.Time) (bool, error) { return false, nil }
func (m *MockSentEmailRepo) RecordClick(id int, ts time.Time, url string) (bool, error) {
	return false, nil
}
func (m *MockSentEmailRepo) MarkBounced(id int, ts time.Time, severity, message, reason string) (bool, error) {
	return false, nil
}
func (m *MockSentEmailRepo) MarkComplained(id int, ts time.Time) error   { return nil }
func (m *MockSentEmailRepo) MarkUnsubscribed(id int, ts time.Time) error { return nil }

type MockContactRepo struct {
	contacts []model.Contact
}

func (m *MockContactRepo) Create(c *model.Contact) error { return nil }
func (m *MockContactRepo) GetByID(id int) (*model.Contact, error) {
	return &model.Contact{
		ID: id, FirstName: "Alice", LastName: "Smith", Email: "alice@example.com",
		CustomFields: map[string]string{"company": "Acme"},
	}, nil
}
func (m *MockContactRepo) ListByAccount(accountID string) ([]model.Contact, error) {
	out := []model.Contact{}
	for _, c := range m.contacts {
		if c.AccountID == accountID {
			out = append(out, c)
		}
	}
	return out, nil
}
func (m *MockContactRepo) FindByEmail(accountID, email string) ([]model.Contact, error) {
	return nil, nil
}
func (m *MockContactRepo) MarkBouncedByEmail(accountID, email string) (int64, error) {
	return 0, nil
}
func (m *MockContactRepo) MarkUnsubscribedByEmail(accountID, email string) (int64, error) {
	return 0, nil
}

type MockMailer struct{}

func (m *MockMailer) SendMany(recipients []string, shared mailer.Message) []mailer.SendResult {
	results := make([]mailer.SendResult, len(recipients))
	for i, to := range recipients {
		results[i] = mailer.SendResult{Recipient: to, Success: true, MessageID: "<m@mg>"}
	}
	return results
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func newController(campaignRepo *MockCampaignRepo) *controller.CampaignController {
	return &controller.CampaignController{
		CampaignService: &service.CampaignService{
			CampaignRepo:  campaignRepo,
			SentEmailRepo: &MockSentEmailRepo{},
			ContactRepo:   &MockContactRepo{},
		},
		SendService: &service.SendService{
			CampaignRepo:  campaignRepo,
			SentEmailRepo: &MockSentEmailRepo{},
			Mailer:        &MockMailer{},
		},
	}
}

// --- Tests ---

func TestPersonalizedPreviewHandler(t *testing.T) {
	campaignRepo := &MockCampaignRepo{campaign: &model.Campaign{
		ID: 1, HTMLBody: "Hi {first_name} {last_name}!",
	}}
	ctrl := newController(campaignRepo)

	b, _ := json.Marshal(map[string]interface{}{"contact_id": 1})
	req := httptest.NewRequest("POST", "/campaigns/1/personalized-preview", bytes.NewReader(b))
	req = withURLParam(req, "id", "1")
	w := httptest.NewRecorder()

	ctrl.PersonalizedPreview(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "Hi Alice Smith!") {
		t.Errorf("expected rendered body, got %s", w.Body.String())
	}
}

func TestPersonalizedPreviewRendersCustomFields(t *testing.T) {
	campaignRepo := &MockCampaignRepo{campaign: &model.Campaign{
		ID: 1, HTMLBody: "Hi {first_name} from {company}!",
	}}
	ctrl := newController(campaignRepo)

	b, _ := json.Marshal(map[string]interface{}{"contact_id": 1})
	req := httptest.NewRequest("POST", "/campaigns/1/personalized-preview", bytes.NewReader(b))
	req = withURLParam(req, "id", "1")
	w := httptest.NewRecorder()

	ctrl.PersonalizedPreview(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "Hi Alice from Acme!") {
		t.Errorf("expected custom field rendered, got %s", w.Body.String())
	}
}

func TestSendCampaignConflictWhenProcessing(t *testing.T) {
	campaignRepo := &MockCampaignRepo{campaign: &model.Campaign{
		ID: 1, Status: model.StatusProcessing, Recipients: []string{"a@x.com"},
	}}
	ctrl := newController(campaignRepo)

	req := httptest.NewRequest("POST", "/campaigns/1/send", nil)
	req = withURLParam(req, "id", "1")
	w := httptest.NewRecorder()

	ctrl.SendCampaign(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
}

func TestSendCampaignHandler(t *testing.T) {
	campaignRepo := &MockCampaignRepo{campaign: &model.Campaign{
		ID: 1, AccountID: "acct-1", Status: model.StatusDraft,
		Subject: "Hello", FromEmail: "hello@mg.example.com",
		Recipients: []string{"a@x.com", "b@x.com"},
	}}
	ctrl := newController(campaignRepo)

	req := httptest.NewRequest("POST", "/campaigns/1/send", nil)
	req = withURLParam(req, "id", "1")
	w := httptest.NewRecorder()

	ctrl.SendCampaign(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var result service.SendCampaignResult
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if result.Stats.Sent != 2 || result.Status != model.StatusCompleted {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestCreateCampaignValidation(t *testing.T) {
	ctrl := newController(&MockCampaignRepo{})

	b, _ := json.Marshal(map[string]interface{}{"name": "", "subject": "x"})
	req := httptest.NewRequest("POST", "/campaigns", bytes.NewReader(b))
	w := httptest.NewRecorder()

	ctrl.CreateCampaign(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty name, got %d", w.Code)
	}
}

func TestCreateCampaignHandler(t *testing.T) {
	campaignRepo := &MockCampaignRepo{}
	ctrl := newController(campaignRepo)

	b, _ := json.Marshal(map[string]interface{}{
		"account_id": "acct-1",
		"name":       "Launch",
		"subject":    "Big news",
		"from_email": "hello@mg.example.com",
		"html_body":  "<p>news</p>",
		"recipients": []string{"a@x.com", "b@x.com"},
	})
	req := httptest.NewRequest("POST", "/campaigns", bytes.NewReader(b))
	w := httptest.NewRecorder()

	ctrl.CreateCampaign(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if campaignRepo.created == nil || campaignRepo.created.RecipientCount != 2 {
		t.Fatalf("campaign not created as expected: %+v", campaignRepo.created)
	}
	if campaignRepo.created.Status != model.StatusDraft {
		t.Errorf("expected draft status, got %s", campaignRepo.created.Status)
	}
}
