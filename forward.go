package eyeson

import (
	"context"
	"fmt"
	"net/url"

	"github.com/qrave1/eyeson-go/internal/infra/adapters/rest"
)

// ForwardMedia selects the forwarded channels.
type ForwardMedia string

const (
	ForwardAudio      ForwardMedia = "audio"
	ForwardVideo      ForwardMedia = "video"
	ForwardAudioVideo ForwardMedia = "audio,video"
)

// RoomForward relays media of one room to WHIP endpoints.
type RoomForward struct {
	api    *rest.Client
	roomID string
}

type forwardRequest struct {
	ForwardID string       `json:"forward_id"`
	UserID    string       `json:"user_id,omitempty"`
	PlayID    string       `json:"play_id,omitempty"`
	Type      ForwardMedia `json:"type"`
	URL       string       `json:"url"`
}

func (f *RoomForward) RoomID() string {
	return f.roomID
}

// Source forwards the stream of a single participant or video source.
func (f *RoomForward) Source(ctx context.Context, forwardID, userID string, media ForwardMedia, whipURL string) error {
	if err := required("userID", userID, "user id is required"); err != nil {
		return err
	}
	return f.start(ctx, "source", forwardRequest{ForwardID: forwardID, UserID: userID, Type: media, URL: whipURL})
}

// MCU forwards the composed meeting view.
func (f *RoomForward) MCU(ctx context.Context, forwardID string, media ForwardMedia, whipURL string) error {
	return f.start(ctx, "mcu", forwardRequest{ForwardID: forwardID, Type: media, URL: whipURL})
}

func (f *RoomForward) Playback(ctx context.Context, forwardID, playID string, media ForwardMedia, whipURL string) error {
	if err := required("playID", playID, "play id is required"); err != nil {
		return err
	}
	return f.start(ctx, "playback", forwardRequest{ForwardID: forwardID, PlayID: playID, Type: media, URL: whipURL})
}

func (f *RoomForward) Stop(ctx context.Context, forwardID string) error {
	if err := required("forwardID", forwardID, "forward id is required"); err != nil {
		return err
	}

	if err := f.api.Delete(ctx, f.path(forwardID), nil); err != nil {
		return fmt.Errorf("stop forward: %w", err)
	}
	return nil
}

func (f *RoomForward) start(ctx context.Context, kind string, req forwardRequest) error {
	if err := required("forwardID", req.ForwardID, "forward id is required"); err != nil {
		return err
	}
	if err := required("url", req.URL, "forward URL is required"); err != nil {
		return err
	}

	if err := f.api.Post(ctx, f.path(kind), req, nil); err != nil {
		return fmt.Errorf("forward %s: %w", kind, err)
	}
	return nil
}

func (f *RoomForward) path(suffix string) string {
	return "/rooms/" + url.PathEscape(f.roomID) + "/forward/" + url.PathEscape(suffix)
}
