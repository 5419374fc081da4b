package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/qrave1/eyeson-go/internal/application/constant"
	"github.com/qrave1/eyeson-go/internal/application/metric"
	"github.com/qrave1/eyeson-go/internal/domain/events"
	"github.com/qrave1/eyeson-go/internal/infra/adapters/memory"
	"github.com/qrave1/eyeson-go/internal/infra/ports/http/dto"
)

type WebhookHandler struct {
	eventRepo memory.WebhookEventRepository
	logger    zerolog.Logger
}

func NewWebhookHandler(eventRepo memory.WebhookEventRepository, logger zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{eventRepo: eventRepo, logger: logger}
}

// Receive accepts an eyeson webhook delivery, logs it and keeps it for the room.
func (h *WebhookHandler) Receive(c echo.Context) error {
	var event events.WebhookEvent
	if err := c.Bind(&event); err != nil {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid payload"})
	}

	if event.Type == "" {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "type is required"})
	}

	metric.RecordWebhookReceived(event.Type)

	log := h.logger.Info().Str(constant.EventType, event.Type)

	if roomID := webhookRoomID(event); roomID != "" {
		log = log.Str(constant.RoomID, roomID)
		h.eventRepo.Add(c.Request().Context(), roomID, event)
	}

	log.Msg("webhook received")

	return c.JSON(http.StatusOK, dto.WebhookAck{Type: event.Type, Received: true})
}

// Events lists the webhook events kept for a room.
func (h *WebhookHandler) Events(c echo.Context) error {
	roomID := c.Param("room")

	list := h.eventRepo.List(c.Request().Context(), roomID)

	return c.JSON(http.StatusOK, dto.RoomEvents{RoomID: roomID, Events: list})
}

// Forget drops the webhook events kept for a room.
func (h *WebhookHandler) Forget(c echo.Context) error {
	h.eventRepo.Remove(c.Request().Context(), c.Param("room"))

	return c.NoContent(http.StatusNoContent)
}

// webhookRoomID finds the room an event belongs to. Recording and snapshot
// payloads carry it as room.id nested in the object.
func webhookRoomID(event events.WebhookEvent) string {
	var withRoom struct {
		ID   string `json:"id"`
		Room *struct {
			ID string `json:"id"`
		} `json:"room"`
	}

	if len(event.Room) > 0 && json.Unmarshal(event.Room, &withRoom) == nil && withRoom.ID != "" {
		return withRoom.ID
	}

	for _, raw := range []json.RawMessage{event.Recording, event.Snapshot} {
		withRoom.Room = nil
		if len(raw) > 0 && json.Unmarshal(raw, &withRoom) == nil && withRoom.Room != nil {
			return withRoom.Room.ID
		}
	}

	return ""
}
