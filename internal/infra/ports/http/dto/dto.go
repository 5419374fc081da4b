package dto

import "github.com/qrave1/eyeson-go/internal/domain/events"

type ErrorResponse struct {
	Error string `json:"error"`
}

type WebhookAck struct {
	Type     string `json:"type"`
	Received bool   `json:"received"`
}

type RoomEvents struct {
	RoomID string                `json:"room_id"`
	Events []events.WebhookEvent `json:"events"`
}
