package eyeson

import (
	"context"
	"errors"
	"net/http"
	"testing"
)

func TestRoomForward(t *testing.T) {
	cases := []struct {
		name       string
		call       func(ctx context.Context, f *RoomForward) error
		wantMethod string
		wantPath   string
		wantBody   map[string]any
	}{
		{
			name: "source",
			call: func(ctx context.Context, f *RoomForward) error {
				return f.Source(ctx, "fwd-1", "user-1", ForwardAudioVideo, "https://whip.example.com/1")
			},
			wantMethod: http.MethodPost,
			wantPath:   "/rooms/room-1/forward/source",
			wantBody: map[string]any{
				"forward_id": "fwd-1", "user_id": "user-1", "type": "audio,video", "url": "https://whip.example.com/1",
			},
		},
		{
			name: "mcu",
			call: func(ctx context.Context, f *RoomForward) error {
				return f.MCU(ctx, "fwd-2", ForwardVideo, "https://whip.example.com/2")
			},
			wantMethod: http.MethodPost,
			wantPath:   "/rooms/room-1/forward/mcu",
			wantBody: map[string]any{
				"forward_id": "fwd-2", "type": "video", "url": "https://whip.example.com/2",
			},
		},
		{
			name: "playback",
			call: func(ctx context.Context, f *RoomForward) error {
				return f.Playback(ctx, "fwd-3", "intro", ForwardAudio, "https://whip.example.com/3")
			},
			wantMethod: http.MethodPost,
			wantPath:   "/rooms/room-1/forward/playback",
			wantBody: map[string]any{
				"forward_id": "fwd-3", "play_id": "intro", "type": "audio", "url": "https://whip.example.com/3",
			},
		},
		{
			name:       "stop",
			call:       func(ctx context.Context, f *RoomForward) error { return f.Stop(ctx, "fwd-1") },
			wantMethod: http.MethodDelete,
			wantPath:   "/rooms/room-1/forward/fwd-1",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client, api := newTestClient(t, nil)
			forward := client.CreateRoomForward("room-1")

			if n := len(api.Requests()); n != 0 {
				t.Fatalf("CreateRoomForward sent %d requests", n)
			}

			if err := tc.call(context.Background(), forward); err != nil {
				t.Fatalf("call: %v", err)
			}

			req := api.last(t)
			if req.Method != tc.wantMethod || req.Path != tc.wantPath {
				t.Errorf("request = %s %s, want %s %s", req.Method, req.Path, tc.wantMethod, tc.wantPath)
			}
			if got := req.Header.Get("Authorization"); got != "test-key" {
				t.Errorf("Authorization = %q", got)
			}

			if tc.wantBody == nil {
				return
			}
			body := req.decodeBody(t)
			if !equalJSON(body, tc.wantBody) {
				t.Errorf("body = %v, want %v", body, tc.wantBody)
			}
		})
	}
}

func TestRoomForwardValidation(t *testing.T) {
	client, api := newTestClient(t, nil)
	forward := client.CreateRoomForward("room-1")
	ctx := context.Background()

	errs := []error{
		forward.Source(ctx, "", "user-1", ForwardVideo, "https://whip.example.com"),
		forward.Source(ctx, "fwd", "", ForwardVideo, "https://whip.example.com"),
		forward.MCU(ctx, "fwd", ForwardVideo, ""),
		forward.Playback(ctx, "fwd", "", ForwardVideo, "https://whip.example.com"),
		forward.Stop(ctx, ""),
	}

	for i, err := range errs {
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Errorf("call %d: expected ValidationError, got %v", i, err)
		}
	}
	if n := len(api.Requests()); n != 0 {
		t.Errorf("%d requests sent, want 0", n)
	}
}
