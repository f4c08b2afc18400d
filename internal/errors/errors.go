// internal/errors/errors.go
package appErrors

import "fmt"

// ErrCampaignNotFound is a sentinel error
type ErrCampaignNotFound struct {
    CampaignID int
}

func (e *ErrCampaignNotFound) Error() string {
    return fmt.Sprintf("campaign with ID %d not found", e.CampaignID)
}

// Helper constructor
func NewCampaignNotFound(id int) error {
    return &ErrCampaignNotFound{CampaignID: id}
}

// ErrCampaignNotSendable is returned when a send is requested for a
// campaign whose status does not allow it (already processing, completed,
// or paused).
type ErrCampaignNotSendable struct {
    CampaignID int
    Status     string
}

func (e *ErrCampaignNotSendable) Error() string {
    return fmt.Sprintf("campaign %d cannot be sent in status: %s", e.CampaignID, e.Status)
}

func NewCampaignNotSendable(id int, status string) error {
    return &ErrCampaignNotSendable{CampaignID: id, Status: status}
}
