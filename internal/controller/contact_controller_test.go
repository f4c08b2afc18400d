package controller_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/unclebandit/mailblast-backend/internal/controller"
	"github.com/unclebandit/mailblast-backend/internal/model"
)

func TestListContactsHandler(t *testing.T) {
	ctrl := &controller.ContactController{ContactRepo: &MockContactRepo{contacts: []model.Contact{
		{ID: 1, AccountID: "acct-1", ListID: "newsletter", Email: "a@x.com"},
		{ID: 2, AccountID: "acct-1", ListID: "product-updates", Email: "b@x.com"},
		{ID: 3, AccountID: "acct-2", Email: "c@x.com"}, // other tenant
	}}}

	req := httptest.NewRequest("GET", "/contacts?account_id=acct-1", nil)
	w := httptest.NewRecorder()

	ctrl.ListContacts(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Data  []model.Contact `json:"data"`
		Count int             `json:"count"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Count != 2 || len(resp.Data) != 2 {
		t.Fatalf("expected 2 contacts for acct-1, got %+v", resp)
	}
	for _, c := range resp.Data {
		if c.AccountID != "acct-1" {
			t.Errorf("leaked contact from another account: %+v", c)
		}
	}
}

func TestListContactsRequiresAccountID(t *testing.T) {
	ctrl := &controller.ContactController{ContactRepo: &MockContactRepo{}}

	req := httptest.NewRequest("GET", "/contacts", nil)
	w := httptest.NewRecorder()

	ctrl.ListContacts(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without account_id, got %d", w.Code)
	}
}
