// Package eyeson is a client for the eyeson video conferencing API.
//
// A Client creates and joins rooms, manages permalinks, snapshots,
// recordings and the account webhook, and observes rooms in real time:
//
//	client, err := eyeson.New(eyeson.Config{APIKey: os.Getenv("EYESON_API_KEY")})
//	if err != nil {
//		return err
//	}
//
//	room, err := client.Join(ctx, "alice", "standup", nil)
//	if err != nil {
//		return err
//	}
//	if err := room.WaitReady(ctx); err != nil {
//		return err
//	}
//	err = room.Chat(ctx, "hello")
//
// Room operations are authorised by the room's access key and never send the
// API key.
package eyeson

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/qrave1/eyeson-go/internal/application/constant"
	"github.com/qrave1/eyeson-go/internal/infra/adapters/rest"
)

const DefaultBaseURL = "https://api.eyeson.team"

type Config struct {
	APIKey string
	// BaseURL defaults to DefaultBaseURL. The observer derives its websocket
	// address from it.
	BaseURL string
	// HTTPClient defaults to http.DefaultClient.
	HTTPClient *http.Client
	// Dialer is used for observer connections. Defaults to
	// websocket.DefaultDialer.
	Dialer *websocket.Dialer
	// Logger defaults to a no-op logger.
	Logger *zerolog.Logger
}

// Client is the entry point to the API. It is safe for concurrent use.
type Client struct {
	api    *rest.Client
	rooms  *rest.Client
	logger zerolog.Logger

	Permalinks *PermalinkAPI
	Observer   *Observer
}

func New(cfg Config) (*Client, error) {
	if err := required("APIKey", cfg.APIKey, "API key is required"); err != nil {
		return nil, err
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}

	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}
	logger = logger.With().Str(constant.Component, "eyeson").Logger()

	api, err := rest.New(rest.Config{
		BaseURL:    cfg.BaseURL,
		APIKey:     cfg.APIKey,
		HTTPClient: cfg.HTTPClient,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create api client: %w", err)
	}

	observer, err := newObserver(api.BaseURL(), cfg.APIKey, cfg.Dialer, logger)
	if err != nil {
		return nil, fmt.Errorf("create observer: %w", err)
	}

	rooms := api.WithoutAPIKey()

	return &Client{
		api:        api,
		rooms:      rooms,
		logger:     logger,
		Permalinks: &PermalinkAPI{api: api, guests: rooms, logger: logger},
		Observer:   observer,
	}, nil
}

// Join creates a room, or joins the room roomID when it is not empty, as
// user username.
func (c *Client) Join(ctx context.Context, username, roomID string, params *JoinParams) (*Room, error) {
	if err := required("username", username, "username is required"); err != nil {
		return nil, err
	}
	if params == nil {
		params = &JoinParams{}
	}

	req := joinRequest{
		ID:      roomID,
		Name:    params.Name,
		User:    newUserPayload(username, params.User),
		Options: params.Options,
	}

	var data RoomData
	if err := c.api.Post(ctx, "/rooms", req, &data); err != nil {
		return nil, fmt.Errorf("join room: %w", err)
	}

	c.logger.Debug().
		Str(constant.RoomID, data.Room.ID).
		Bool("ready", data.Ready).
		Msg("joined room")

	return newRoom(data, c.rooms, c.logger), nil
}

// GetUser loads the room user identified by accessKey.
func (c *Client) GetUser(ctx context.Context, accessKey string) (*Room, error) {
	if err := required("accessKey", accessKey, "access key is required"); err != nil {
		return nil, err
	}

	var data RoomData
	if err := c.api.Get(ctx, "/rooms/"+url.PathEscape(accessKey), &data); err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	return newRoom(data, c.rooms, c.logger), nil
}

// RegisterGuest joins a running meeting as guest. See
// PermalinkAPI.RegisterGuest.
func (c *Client) RegisterGuest(ctx context.Context, username, guestToken string, params *GuestParams) (*Room, error) {
	return c.Permalinks.RegisterGuest(ctx, username, guestToken, params)
}

// CreateRoomForward binds forward operations to roomID. No request is made.
func (c *Client) CreateRoomForward(roomID string) *RoomForward {
	return &RoomForward{api: c.api, roomID: roomID}
}
