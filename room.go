package eyeson

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/qrave1/eyeson-go/internal/application/constant"
	"github.com/qrave1/eyeson-go/internal/infra/adapters/rest"
)

const (
	readyPollInterval = time.Second
	readyTimeout      = 30 * time.Second
)

// Room is a user's access to a meeting, identified by its access key. Its
// ready state only changes through WaitReady and is independent of any
// observer connection to the same room.
type Room struct {
	api    *rest.Client
	logger zerolog.Logger

	pollInterval time.Duration
	readyTimeout time.Duration

	mu   sync.RWMutex
	data RoomData
}

func newRoom(data RoomData, api *rest.Client, logger zerolog.Logger) *Room {
	return &Room{
		api:          api,
		logger:       logger,
		pollInterval: readyPollInterval,
		readyTimeout: readyTimeout,
		data:         data,
	}
}

// Data returns the room data from the last create, join or poll response.
func (r *Room) Data() RoomData {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.data
}

func (r *Room) AccessKey() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.data.AccessKey
}

func (r *Room) GuestToken() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.data.Room.GuestToken
}

func (r *Room) RoomID() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.data.Room.ID
}

func (r *Room) Ready() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.data.Ready
}

func (r *Room) path(suffix string) string {
	return "/rooms/" + url.PathEscape(r.AccessKey()) + suffix
}

// WaitReady polls the room once right away and then every second until the
// server reports it ready. It gives up with a *TimeoutError after 30 seconds,
// including any poll still in flight. Every poll replaces Data.
func (r *Room) WaitReady(ctx context.Context) error {
	timeout := &TimeoutError{AccessKey: r.AccessKey(), After: r.readyTimeout}

	ctx, cancel := context.WithTimeoutCause(ctx, r.readyTimeout, timeout)
	defer cancel()

	for polls := 1; ; polls++ {
		if err := r.refresh(ctx); err != nil {
			if ctx.Err() != nil {
				return context.Cause(ctx)
			}
			return err
		}

		if r.Ready() {
			r.logger.Debug().Int("polls", polls).Msg("room ready")
			return nil
		}

		timer := time.NewTimer(r.pollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return context.Cause(ctx)
		case <-timer.C:
		}
	}
}

func (r *Room) refresh(ctx context.Context) error {
	var data RoomData
	if err := r.api.Get(ctx, r.path(""), &data); err != nil {
		return fmt.Errorf("poll room: %w", err)
	}

	r.mu.Lock()
	r.data = data
	r.mu.Unlock()

	return nil
}

type message struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

func (r *Room) Chat(ctx context.Context, content string) error {
	return r.post(ctx, "/messages", message{Type: "chat", Content: content})
}

// SendCustomMessage sends a message of type "custom", delivered to clients
// but not shown in the chat.
func (r *Room) SendCustomMessage(ctx context.Context, content string) error {
	return r.post(ctx, "/messages", message{Type: "custom", Content: content})
}

func (r *Room) StartRecording(ctx context.Context) error {
	return r.post(ctx, "/recording", nil)
}

func (r *Room) StopRecording(ctx context.Context) error {
	return r.delete(ctx, "/recording")
}

// StartBroadcast streams the meeting to streamURL, e.g. an RTMP endpoint.
func (r *Room) StartBroadcast(ctx context.Context, streamURL string) error {
	if err := required("url", streamURL, "stream URL is required"); err != nil {
		return err
	}

	return r.post(ctx, "/broadcasts", map[string]string{"stream_url": streamURL})
}

func (r *Room) StopBroadcast(ctx context.Context) error {
	return r.delete(ctx, "/broadcasts")
}

func (r *Room) SetLayout(ctx context.Context, opts LayoutOptions) error {
	return r.post(ctx, "/layout", opts)
}

func (r *Room) SetLayer(ctx context.Context, params LayerParams) error {
	return r.post(ctx, "/layers", params)
}

// SendLayer uploads an image as layer. A zero zIndex means foreground and
// an empty imageType means PNG. id is only sent when set.
func (r *Room) SendLayer(ctx context.Context, src LayerSource, zIndex ZIndex, imageType ImageType, id string) error {
	data, err := src.bytes()
	if err != nil {
		return err
	}

	if zIndex == 0 {
		zIndex = ZIndexForeground
	}
	if imageType == "" {
		imageType = ImagePNG
	}

	form := rest.NewForm().
		File("file", "image."+string(imageType), data).
		Field("z-index", strconv.Itoa(int(zIndex)))
	if id != "" {
		form.Field("id", id)
	}

	return r.post(ctx, "/layers", form)
}

// ClearLayer removes the layer at zIndex. Zero means foreground.
func (r *Room) ClearLayer(ctx context.Context, zIndex ZIndex) error {
	if zIndex == 0 {
		zIndex = ZIndexForeground
	}

	return r.delete(ctx, "/layers/"+strconv.Itoa(int(zIndex)))
}

func (r *Room) StartPlayback(ctx context.Context, opts PlaybackOptions) error {
	return r.post(ctx, "/playbacks", map[string]PlaybackOptions{"playback": opts})
}

func (r *Room) StopPlayback(ctx context.Context, playID string) error {
	if err := required("playID", playID, "play id is required"); err != nil {
		return err
	}

	return r.delete(ctx, "/playbacks/"+url.PathEscape(playID))
}

func (r *Room) Snapshot(ctx context.Context) error {
	return r.post(ctx, "/snapshot", nil)
}

func (r *Room) LockMeeting(ctx context.Context) error {
	return r.post(ctx, "/lock", nil)
}

// StopMeeting ends the meeting for all participants.
func (r *Room) StopMeeting(ctx context.Context) error {
	return r.delete(ctx, "")
}

func (r *Room) post(ctx context.Context, suffix string, body any) error {
	path := r.path(suffix)
	if err := r.api.Post(ctx, path, body, nil); err != nil {
		return fmt.Errorf("room %s: %w", suffixName(suffix), err)
	}

	r.logger.Debug().Str(constant.Path, suffix).Msg("room request sent")
	return nil
}

func (r *Room) delete(ctx context.Context, suffix string) error {
	if err := r.api.Delete(ctx, r.path(suffix), nil); err != nil {
		return fmt.Errorf("room %s: %w", suffixName(suffix), err)
	}
	return nil
}

func suffixName(suffix string) string {
	if suffix == "" {
		return "stop"
	}
	return suffix[1:]
}
