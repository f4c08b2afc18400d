// internal/controller/contact_controller.go
package controller

import (
    "encoding/json"
    "net/http"

    "github.com/unclebandit/mailblast-backend/internal/repository"
)

type ContactController struct {
    ContactRepo repository.ContactRepositoryInterface
}

// ListContacts returns every contact of an account across its lists.
func (c *ContactController) ListContacts(w http.ResponseWriter, r *http.Request) {
    accountID := r.URL.Query().Get("account_id")
    if accountID == "" {
        http.Error(w, "account_id is required", http.StatusBadRequest)
        return
    }

    contacts, err := c.ContactRepo.ListByAccount(accountID)
    if err != nil {
        http.Error(w, err.Error(), http.StatusInternalServerError)
        return
    }

    json.NewEncoder(w).Encode(map[string]interface{}{
        "data":  contacts,
        "count": len(contacts),
    })
}
