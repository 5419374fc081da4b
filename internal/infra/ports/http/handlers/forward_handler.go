package handlers

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	eyeson "github.com/qrave1/eyeson-go"
	"github.com/qrave1/eyeson-go/internal/application/constant"
)

// RoomJoiner is satisfied by *eyeson.Client.
type RoomJoiner interface {
	Join(ctx context.Context, username, roomID string, params *eyeson.JoinParams) (*eyeson.Room, error)
}

type ForwardHandler struct {
	joiner   RoomJoiner
	username string
	logger   zerolog.Logger
}

func NewForwardHandler(joiner RoomJoiner, username string, logger zerolog.Logger) *ForwardHandler {
	return &ForwardHandler{joiner: joiner, username: username, logger: logger}
}

// Forward joins the room named in the path and redirects the browser to the
// meeting GUI.
func (h *ForwardHandler) Forward(c echo.Context) error {
	roomID := c.Param("room")
	if roomID == "favicon.ico" {
		return c.NoContent(http.StatusNoContent)
	}

	h.logger.Info().Str(constant.RoomID, roomID).Msg("forward user to meeting")

	room, err := h.joiner.Join(c.Request().Context(), h.username, roomID, nil)
	if err != nil {
		h.logger.Error().Err(err).Str(constant.RoomID, roomID).Msg("join room")
		return c.String(http.StatusBadGateway, "Could not start a meeting: "+err.Error())
	}

	links := room.Data().Links
	h.logger.Debug().
		Str("gui", links.GUI).
		Str("guest_join", links.GuestJoin).
		Msg("meeting links")

	return c.Redirect(http.StatusFound, links.GUI)
}
