package eyeson

import (
	"encoding/json"
	"net/url"
	"strconv"
	"strings"

	"github.com/qrave1/eyeson-go/internal/domain/events"
)

// RoomData is the raw response of a room create, join or poll request.
type RoomData struct {
	AccessKey string   `json:"access_key"`
	Ready     bool     `json:"ready"`
	Room      RoomInfo `json:"room"`
	User      UserInfo `json:"user"`
	Links     Links    `json:"links"`
}

type RoomInfo struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Ready      bool    `json:"ready"`
	StartedAt  *string `json:"started_at"`
	Shutdown   bool    `json:"shutdown"`
	GuestToken string  `json:"guest_token,omitempty"`
}

type UserInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Avatar   string `json:"avatar,omitempty"`
	Guest    bool   `json:"guest"`
	Online   bool   `json:"online,omitempty"`
	JoinedAt string `json:"joined_at,omitempty"`
}

type Links struct {
	GUI       string `json:"gui"`
	GuestJoin string `json:"guest_join"`
	Websocket string `json:"websocket"`
}

// UserParams are the optional user attributes sent along with a user name.
type UserParams struct {
	ID           string         `json:"id,omitempty"`
	Avatar       string         `json:"avatar,omitempty"`
	CustomFields map[string]any `json:"custom_fields,omitempty"`
}

// GuestParams carries the same optional attributes as UserParams.
type GuestParams = UserParams

type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// RoomOptions configure a meeting on creation. Nil pointers leave the
// server default in place.
type RoomOptions struct {
	ShowNames           *bool          `json:"show_names,omitempty"`
	ShowLabel           *bool          `json:"show_label,omitempty"`
	ExitURL             string         `json:"exit_url,omitempty"`
	RecordingAvailable  *bool          `json:"recording_available,omitempty"`
	BroadcastAvailable  *bool          `json:"broadcast_available,omitempty"`
	ReactionAvailable   *bool          `json:"reaction_available,omitempty"`
	LayoutAvailable     *bool          `json:"layout_available,omitempty"`
	GuestTokenAvailable *bool          `json:"guest_token_available,omitempty"`
	LockAvailable       *bool          `json:"lock_available,omitempty"`
	KickAvailable       *bool          `json:"kick_available,omitempty"`
	SFUMode             string         `json:"sfu_mode,omitempty"`
	Widescreen          *bool          `json:"widescreen,omitempty"`
	BackgroundColor     string         `json:"background_color,omitempty"`
	AudioInsert         string         `json:"audio_insert,omitempty"`
	AudioInsertPosition *Position      `json:"audio_insert_position,omitempty"`
	CustomFields        map[string]any `json:"custom_fields,omitempty"`
}

type JoinParams struct {
	// Name is the room name. Ignored when joining an existing room.
	Name    string
	User    *UserParams
	Options *RoomOptions
}

type userPayload struct {
	Name string `json:"name"`
	UserParams
}

func newUserPayload(name string, params *UserParams) userPayload {
	u := userPayload{Name: name}
	if params != nil {
		u.UserParams = *params
	}
	return u
}

type joinRequest struct {
	ID      string       `json:"id,omitempty"`
	Name    string       `json:"name,omitempty"`
	User    userPayload  `json:"user"`
	Options *RoomOptions `json:"options,omitempty"`
}

type LayoutOptions struct {
	Layout string `json:"layout,omitempty"`
	Name   string `json:"name,omitempty"`
	// Map is either a predefined map name or a list of position entries.
	Map                 any       `json:"map,omitempty"`
	Users               []string  `json:"users,omitempty"`
	ShowNames           *bool     `json:"show_names,omitempty"`
	VoiceActivation     *bool     `json:"voice_activation,omitempty"`
	AudioInsert         string    `json:"audio_insert,omitempty"`
	AudioInsertPosition *Position `json:"audio_insert_position,omitempty"`
}

type LayerInsert struct {
	Icon    string `json:"icon,omitempty"`
	Title   string `json:"title,omitempty"`
	Content string `json:"content,omitempty"`
}

// LayerParams set a layer from a hosted image URL or a text insert.
type LayerParams struct {
	URL    string       `json:"url,omitempty"`
	Insert *LayerInsert `json:"insert,omitempty"`
	ZIndex ZIndex       `json:"z-index,omitempty"`
}

type PlaybackOptions struct {
	URL           string `json:"url"`
	Audio         bool   `json:"audio,omitempty"`
	PlayID        string `json:"play_id,omitempty"`
	ReplacementID string `json:"replacement_id,omitempty"`
	Name          string `json:"name,omitempty"`
	// LoopCount -1 loops forever.
	LoopCount int `json:"loop_count,omitempty"`
}

// ListOptions filter snapshot and recording listings. Zero fields are not
// sent.
type ListOptions struct {
	Page      int
	StartedAt string
	Since     string
	Until     string
}

// query encodes the set filters in sorted key order, or returns "" when no
// filter is set.
func (o *ListOptions) query() string {
	if o == nil {
		return ""
	}

	q := url.Values{}
	if o.Page > 0 {
		q.Set("page", strconv.Itoa(o.Page))
	}
	if o.StartedAt != "" {
		q.Set("started_at", o.StartedAt)
	}
	if o.Since != "" {
		q.Set("since", o.Since)
	}
	if o.Until != "" {
		q.Set("until", o.Until)
	}

	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

type MediaLinks struct {
	Self     string `json:"self,omitempty"`
	Download string `json:"download"`
}

type Snapshot struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Links     MediaLinks `json:"links"`
	CreatedAt string     `json:"created_at"`
	Creator   *UserInfo  `json:"creator,omitempty"`
	Room      *RoomInfo  `json:"room,omitempty"`
}

type Recording struct {
	ID        string     `json:"id"`
	Duration  *int       `json:"duration"`
	CreatedAt int64      `json:"created_at"`
	Links     MediaLinks `json:"links"`
	User      *UserInfo  `json:"user,omitempty"`
	Room      *RoomInfo  `json:"room,omitempty"`
}

type Webhook struct {
	ID                string       `json:"id"`
	URL               string       `json:"url"`
	Types             WebhookTypes `json:"types"`
	LastRequestSentAt *string      `json:"last_request_sent_at"`
	LastFailedAt      *string      `json:"last_failed_at"`
}

// WebhookTypes decodes from either a JSON list or a comma separated string.
type WebhookTypes []string

func (t *WebhookTypes) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*t = list
		return nil
	}

	var joined string
	if err := json.Unmarshal(data, &joined); err != nil {
		return err
	}

	*t = nil
	for _, s := range strings.Split(joined, ",") {
		if s = strings.TrimSpace(s); s != "" {
			*t = append(*t, s)
		}
	}
	return nil
}

// Message is a message received on an observed room channel.
type Message = events.Message

// Webhook and observer message types.
const (
	TypeRoomUpdate      = events.TypeRoomUpdate
	TypeRecordingUpdate = events.TypeRecordingUpdate
	TypeSnapshotUpdate  = events.TypeSnapshotUpdate
)
