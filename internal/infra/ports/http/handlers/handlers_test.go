package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	eyeson "github.com/qrave1/eyeson-go"
	"github.com/qrave1/eyeson-go/internal/domain/events"
	"github.com/qrave1/eyeson-go/internal/infra/adapters/memory"
	"github.com/qrave1/eyeson-go/internal/infra/ports/http/dto"
)

// fakeEyeson answers POST /rooms with status and, on success, a room whose
// GUI link embeds the requested room id.
func fakeEyeson(t *testing.T, status int) (*eyeson.Client, *[]map[string]any) {
	t.Helper()

	var bodies []map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/rooms" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}

		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		bodies = append(bodies, body)

		if status != http.StatusCreated {
			w.WriteHeader(status)
			return
		}

		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]any{
			"access_key": "access-1",
			"ready":      false,
			"room":       map[string]any{"id": body["id"]},
			"links":      map[string]any{"gui": "https://app.eyeson.team/?" + body["id"].(string)},
		})
	}))
	t.Cleanup(server.Close)

	client, err := eyeson.New(eyeson.Config{APIKey: "key", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("eyeson.New: %v", err)
	}
	return client, &bodies
}

func serveForward(h *ForwardHandler, path string) *httptest.ResponseRecorder {
	e := echo.New()
	e.GET("/:room", h.Forward)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestForwardRedirects(t *testing.T) {
	client, bodies := fakeEyeson(t, http.StatusCreated)
	h := NewForwardHandler(client, "eyeson-go-demo", zerolog.Nop())

	rec := serveForward(h, "/standup")

	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, body %q", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get(echo.HeaderLocation); got != "https://app.eyeson.team/?standup" {
		t.Errorf("Location = %q", got)
	}

	if len(*bodies) != 1 {
		t.Fatalf("%d join requests", len(*bodies))
	}
	user, _ := (*bodies)[0]["user"].(map[string]any)
	if user["name"] != "eyeson-go-demo" {
		t.Errorf("joined as %v", user["name"])
	}
}

func TestForwardJoinFailure(t *testing.T) {
	client, _ := fakeEyeson(t, http.StatusUnauthorized)
	h := NewForwardHandler(client, "eyeson-go-demo", zerolog.Nop())

	rec := serveForward(h, "/standup")

	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d", rec.Code)
	}
	if !strings.HasPrefix(rec.Body.String(), "Could not start a meeting: ") {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestForwardIgnoresFavicon(t *testing.T) {
	client, bodies := fakeEyeson(t, http.StatusCreated)
	h := NewForwardHandler(client, "eyeson-go-demo", zerolog.Nop())

	rec := serveForward(h, "/favicon.ico")

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d", rec.Code)
	}
	if len(*bodies) != 0 {
		t.Errorf("favicon request joined a room")
	}
}

func TestWebhookReceive(t *testing.T) {
	cases := []struct {
		name       string
		body       string
		wantStatus int
		wantRoom   string
	}{
		{"room update", `{"type":"room_update","room":{"id":"room-1","shutdown":true}}`, http.StatusOK, "room-1"},
		{"recording update", `{"type":"recording_update","recording":{"id":"rec-1","room":{"id":"room-2"}}}`, http.StatusOK, "room-2"},
		{"no room", `{"type":"snapshot_update","snapshot":{"id":"snap-1"}}`, http.StatusOK, ""},
		{"missing type", `{"room":{"id":"room-1"}}`, http.StatusBadRequest, ""},
		{"malformed", `{"type":`, http.StatusBadRequest, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := memory.NewWebhookEventRepository(0)
			e := echo.New()
			e.POST("/webhooks", NewWebhookHandler(repo, zerolog.Nop()).Receive)

			req := httptest.NewRequest(http.MethodPost, "/webhooks", strings.NewReader(tc.body))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			rec := httptest.NewRecorder()

			e.ServeHTTP(rec, req)

			if rec.Code != tc.wantStatus {
				t.Errorf("status = %d, want %d (body %q)", rec.Code, tc.wantStatus, rec.Body.String())
			}

			if tc.wantRoom == "" {
				return
			}
			if stored := repo.List(context.Background(), tc.wantRoom); len(stored) != 1 {
				t.Errorf("%d events stored for %s, want 1", len(stored), tc.wantRoom)
			}
		})
	}
}

func TestWebhookEvents(t *testing.T) {
	repo := memory.NewWebhookEventRepository(0)
	repo.Add(context.Background(), "room-1", events.WebhookEvent{Type: events.TypeRoomUpdate})

	e := echo.New()
	e.GET("/webhooks/:room", NewWebhookHandler(repo, zerolog.Nop()).Events)

	for room, wantEvents := range map[string]int{"room-1": 1, "room-9": 0} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/webhooks/"+room, nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status = %d", room, rec.Code)
		}

		var resp dto.RoomEvents
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("%s: decode: %v", room, err)
		}
		if resp.RoomID != room || len(resp.Events) != wantEvents {
			t.Errorf("%s: response = %+v", room, resp)
		}
		if !strings.Contains(rec.Body.String(), `"events":[`) {
			t.Errorf("%s: events not encoded as a list: %s", room, rec.Body.String())
		}
	}
}

func TestWebhookForget(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewWebhookEventRepository(0)
	repo.Add(ctx, "room-1", events.WebhookEvent{Type: events.TypeRoomUpdate})
	repo.Add(ctx, "room-2", events.WebhookEvent{Type: events.TypeRoomUpdate})

	e := echo.New()
	e.DELETE("/webhooks/:room", NewWebhookHandler(repo, zerolog.Nop()).Forget)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/webhooks/room-1", nil))

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d", rec.Code)
	}
	if n := len(repo.List(ctx, "room-1")); n != 0 {
		t.Errorf("%d events left for room-1", n)
	}
	if n := len(repo.List(ctx, "room-2")); n != 1 {
		t.Errorf("%d events left for room-2, want 1", n)
	}
}
