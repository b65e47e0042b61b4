package transport

import (
	"github.com/google/uuid"

	"github.com/Skotchmaster/sweet_shop/services/notify/internal/models"
	"github.com/Skotchmaster/sweet_shop/services/notify/internal/service"
)

// SendRequest addresses either one user or, with All set, every user.
type SendRequest struct {
	UserID      *uuid.UUID `json:"user_id"`
	All         bool       `json:"all"`
	Title       string     `json:"title"`
	Message     string     `json:"message"`
	Type        string     `json:"type"`
	ReferenceID *string    `json:"reference_id"`
}

func (r SendRequest) Payload() service.Payload {
	return service.Payload{
		Title:       r.Title,
		Message:     r.Message,
		Type:        r.Type,
		ReferenceID: r.ReferenceID,
	}
}

type FailedRecipient struct {
	UserID uuid.UUID `json:"user_id"`
	Error  string    `json:"error"`
}

type SendResponse struct {
	Message string            `json:"message"`
	Summary service.Summary   `json:"summary"`
	Failed  []FailedRecipient `json:"failed,omitempty"`
}

func NewSendResponse(message string, results []service.RecipientResult) SendResponse {
	resp := SendResponse{Message: message, Summary: service.Summarize(results)}
	for _, r := range results {
		if r.Failed() {
			resp.Failed = append(resp.Failed, FailedRecipient{UserID: r.Recipient.UserID, Error: "not stored"})
		}
	}
	return resp
}

type ListResponse struct {
	Items  []models.Notification `json:"items"`
	Unread int64                 `json:"unread"`
}
