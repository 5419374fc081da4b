package eyeson

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/qrave1/eyeson-go/internal/infra/adapters/rest"
)

const (
	defaultPermalinkPage  = 1
	defaultPermalinkLimit = 25
)

type PermalinkData struct {
	Permalink PermalinkInfo `json:"permalink"`
	Room      PermalinkRoom `json:"room"`
	Links     Links         `json:"links"`
	Options   *RoomOptions  `json:"options,omitempty"`
}

type PermalinkInfo struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	UserToken  string  `json:"user_token"`
	GuestToken string  `json:"guest_token"`
	CreatedAt  string  `json:"created_at"`
	ExpiresAt  *string `json:"expires_at"`
}

type PermalinkRoom struct {
	GuestToken string  `json:"guest_token"`
	StartedAt  *string `json:"started_at"`
}

// Permalink is a reusable meeting. Every start creates a new room.
type Permalink struct {
	data PermalinkData
}

func (p *Permalink) Data() PermalinkData { return p.data }
func (p *Permalink) ID() string          { return p.data.Permalink.ID }
func (p *Permalink) UserToken() string   { return p.data.Permalink.UserToken }
func (p *Permalink) GuestToken() string  { return p.data.Permalink.GuestToken }

// Started reports whether a meeting is currently running for the permalink.
func (p *Permalink) Started() bool {
	return p.data.Room.StartedAt != nil
}

type PermalinkParams struct {
	Name    string       `json:"name,omitempty"`
	User    *UserParams  `json:"user,omitempty"`
	Options *RoomOptions `json:"options,omitempty"`
	// ExpiresAt is an ISO 8601 timestamp.
	ExpiresAt string `json:"expires_at,omitempty"`
}

type permalinkCreateRequest struct {
	Name      string       `json:"name,omitempty"`
	User      userPayload  `json:"user"`
	Options   *RoomOptions `json:"options,omitempty"`
	ExpiresAt string       `json:"expires_at,omitempty"`
}

type PermalinkListOptions struct {
	// Page defaults to 1.
	Page int
	// Limit defaults to 25.
	Limit int
	// Expired, when set, lists only expired or only active permalinks.
	Expired *bool
}

func (o *PermalinkListOptions) query() string {
	page, limit := defaultPermalinkPage, defaultPermalinkLimit
	q := url.Values{}

	if o != nil {
		if o.Page > 0 {
			page = o.Page
		}
		if o.Limit > 0 {
			limit = o.Limit
		}
		if o.Expired != nil {
			q.Set("expired", strconv.FormatBool(*o.Expired))
		}
	}

	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))

	return "?" + q.Encode()
}

type PermalinkList struct {
	Page  int
	Limit int
	Total int
	Items []*Permalink
}

type permalinkListResponse struct {
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
	Total int             `json:"total"`
	Items []PermalinkData `json:"items"`
}

// PermalinkAPI manages permalinks. Obtain it from Client.Permalinks.
type PermalinkAPI struct {
	api *rest.Client
	// guests is the keyless client used for joins.
	guests *rest.Client
	logger zerolog.Logger
}

func permalinkPath(id string) string {
	return "/permalink/" + url.PathEscape(id)
}

// Create registers a new permalink with username as its first host user.
func (p *PermalinkAPI) Create(ctx context.Context, username string, params *PermalinkParams) (*Permalink, error) {
	if err := required("username", username, "username is required"); err != nil {
		return nil, err
	}
	if params == nil {
		params = &PermalinkParams{}
	}

	req := permalinkCreateRequest{
		Name:      params.Name,
		User:      newUserPayload(username, params.User),
		Options:   params.Options,
		ExpiresAt: params.ExpiresAt,
	}

	var data PermalinkData
	if err := p.api.Post(ctx, "/permalink", req, &data); err != nil {
		return nil, fmt.Errorf("create permalink: %w", err)
	}

	return &Permalink{data: data}, nil
}

func (p *PermalinkAPI) GetAll(ctx context.Context, opts *PermalinkListOptions) (*PermalinkList, error) {
	var resp permalinkListResponse
	if err := p.api.Get(ctx, "/permalink"+opts.query(), &resp); err != nil {
		return nil, fmt.Errorf("list permalinks: %w", err)
	}

	list := &PermalinkList{
		Page:  resp.Page,
		Limit: resp.Limit,
		Total: resp.Total,
		Items: make([]*Permalink, 0, len(resp.Items)),
	}
	for _, item := range resp.Items {
		list.Items = append(list.Items, &Permalink{data: item})
	}

	return list, nil
}

func (p *PermalinkAPI) GetByID(ctx context.Context, id string) (*Permalink, error) {
	if err := required("id", id, "permalink id is required"); err != nil {
		return nil, err
	}

	var data PermalinkData
	if err := p.api.Get(ctx, permalinkPath(id), &data); err != nil {
		return nil, fmt.Errorf("get permalink: %w", err)
	}

	return &Permalink{data: data}, nil
}

func (p *PermalinkAPI) Update(ctx context.Context, id string, params *PermalinkParams) (*Permalink, error) {
	if err := required("id", id, "permalink id is required"); err != nil {
		return nil, err
	}
	if params == nil {
		params = &PermalinkParams{}
	}

	var data PermalinkData
	if err := p.api.Put(ctx, permalinkPath(id), params, &data); err != nil {
		return nil, fmt.Errorf("update permalink: %w", err)
	}

	return &Permalink{data: data}, nil
}

func (p *PermalinkAPI) Delete(ctx context.Context, id string) error {
	if err := required("id", id, "permalink id is required"); err != nil {
		return err
	}

	if err := p.api.Delete(ctx, permalinkPath(id), nil); err != nil {
		return fmt.Errorf("delete permalink: %w", err)
	}
	return nil
}

// AddUser registers another host user, who receives its own user token.
func (p *PermalinkAPI) AddUser(ctx context.Context, id, username string, params *UserParams) (*Permalink, error) {
	if err := required("id", id, "permalink id is required"); err != nil {
		return nil, err
	}
	if err := required("username", username, "username is required"); err != nil {
		return nil, err
	}

	body := map[string]userPayload{"user": newUserPayload(username, params)}

	var data PermalinkData
	if err := p.api.Post(ctx, permalinkPath(id)+"/users", body, &data); err != nil {
		return nil, fmt.Errorf("add permalink user: %w", err)
	}

	return &Permalink{data: data}, nil
}

// RemoveUser invalidates userToken.
func (p *PermalinkAPI) RemoveUser(ctx context.Context, id, userToken string) error {
	if err := required("id", id, "permalink id is required"); err != nil {
		return err
	}
	if err := required("userToken", userToken, "user token is required"); err != nil {
		return err
	}

	if err := p.api.Delete(ctx, permalinkPath(id)+"/users/"+url.PathEscape(userToken), nil); err != nil {
		return fmt.Errorf("remove permalink user: %w", err)
	}
	return nil
}

// JoinMeeting starts the permalink meeting, or joins it when already
// running, as the host user owning userToken.
func (p *PermalinkAPI) JoinMeeting(ctx context.Context, userToken string) (*Room, error) {
	if err := required("userToken", userToken, "user token is required"); err != nil {
		return nil, err
	}

	var data RoomData
	if err := p.guests.Post(ctx, permalinkPath(userToken), nil, &data); err != nil {
		return nil, fmt.Errorf("join permalink meeting: %w", err)
	}

	return newRoom(data, p.guests, p.logger), nil
}

// RegisterGuest joins a running meeting as guest. It fails when no meeting is
// running for guestToken.
func (p *PermalinkAPI) RegisterGuest(ctx context.Context, username, guestToken string, params *GuestParams) (*Room, error) {
	if err := required("username", username, "username is required"); err != nil {
		return nil, err
	}
	if err := required("guestToken", guestToken, "guest token is required"); err != nil {
		return nil, err
	}

	var data RoomData
	if err := p.guests.Post(ctx, "/guests/"+url.PathEscape(guestToken), newUserPayload(username, params), &data); err != nil {
		return nil, fmt.Errorf("register guest: %w", err)
	}

	return newRoom(data, p.guests, p.logger), nil
}
