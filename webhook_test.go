package eyeson

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"testing"
)

func TestRegisterWebhook(t *testing.T) {
	client, api := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusCreated)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"id":                   "hook-1",
			"url":                  "https://example.com/hook",
			"types":                []string{"room_update", "recording_update"},
			"last_request_sent_at": nil,
			"last_failed_at":       nil,
		})
	})

	hook, err := client.RegisterWebhook(context.Background(), "https://example.com/hook",
		[]string{TypeRoomUpdate, TypeRecordingUpdate})
	if err != nil {
		t.Fatalf("RegisterWebhook: %v", err)
	}

	reqs := api.Requests()
	if len(reqs) != 2 {
		t.Fatalf("%d requests sent, want 2", len(reqs))
	}
	if reqs[0].Method != http.MethodPost || reqs[0].Path != "/webhooks" {
		t.Errorf("first request = %s %s", reqs[0].Method, reqs[0].Path)
	}
	if reqs[1].Method != http.MethodGet || reqs[1].Path != "/webhooks" {
		t.Errorf("second request = %s %s", reqs[1].Method, reqs[1].Path)
	}

	body := reqs[0].decodeBody(t)
	if body["url"] != "https://example.com/hook" || body["types"] != "room_update,recording_update" {
		t.Errorf("body = %v", body)
	}

	if hook == nil || hook.ID != "hook-1" {
		t.Fatalf("hook = %+v, want the GET result", hook)
	}
}

func TestRegisterWebhookValidation(t *testing.T) {
	client, api := newTestClient(t, nil)

	var vErr *ValidationError
	if _, err := client.RegisterWebhook(context.Background(), "", nil); !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if n := len(api.Requests()); n != 0 {
		t.Errorf("%d requests sent, want 0", n)
	}
}

func TestClearWebhook(t *testing.T) {
	t.Run("none registered", func(t *testing.T) {
		for name, respond := range map[string]func(w http.ResponseWriter){
			"empty body": func(w http.ResponseWriter) { w.WriteHeader(http.StatusOK) },
			"null":       func(w http.ResponseWriter) { w.Write([]byte("null")) },
			"no content": func(w http.ResponseWriter) { w.WriteHeader(http.StatusNoContent) },
		} {
			t.Run(name, func(t *testing.T) {
				client, api := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) { respond(w) })

				if err := client.ClearWebhook(context.Background()); err != nil {
					t.Fatalf("ClearWebhook: %v", err)
				}

				for _, req := range api.Requests() {
					if req.Method == http.MethodDelete {
						t.Errorf("unexpected DELETE %s", req.Path)
					}
				}
			})
		}
	})

	t.Run("registered", func(t *testing.T) {
		client, api := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet {
				writeJSON(w, http.StatusOK, map[string]any{"id": "hook-1", "url": "https://example.com/hook", "types": "room_update"})
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})

		if err := client.ClearWebhook(context.Background()); err != nil {
			t.Fatalf("ClearWebhook: %v", err)
		}

		var deletes []string
		for _, req := range api.Requests() {
			if req.Method == http.MethodDelete {
				deletes = append(deletes, req.Path)
			}
		}
		if !reflect.DeepEqual(deletes, []string{"/webhooks/hook-1"}) {
			t.Errorf("DELETE requests = %v", deletes)
		}
	})
}

func TestWebhookTypesDecoding(t *testing.T) {
	cases := map[string]WebhookTypes{
		`["room_update","recording_update"]`: {"room_update", "recording_update"},
		`"room_update, recording_update"`:    {"room_update", "recording_update"},
		`""`:                                 nil,
	}

	for input, want := range cases {
		var got WebhookTypes
		if err := json.Unmarshal([]byte(input), &got); err != nil {
			t.Fatalf("unmarshal %s: %v", input, err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("unmarshal %s = %v, want %v", input, got, want)
		}
	}
}
