package events

import (
	"encoding/json"
	"fmt"
)

const (
	TypeRoomUpdate         = "room_update"
	TypeRecordingUpdate    = "recording_update"
	TypeSnapshotUpdate     = "snapshot_update"
	TypeBroadcastsUpdate   = "broadcasts_update"
	TypePlaybackUpdate     = "playback_update"
	TypePresentationUpdate = "presentation_update"
	TypeOptionsUpdate      = "options_update"
	TypePodium             = "podium"
	TypeMemberlist         = "memberlist"
	TypeChat               = "chat"
	TypeCustom             = "custom"
	TypeLock               = "lock"
)

// TypeOther labels message types not listed above.
const TypeOther = "other"

var knownTypes = map[string]struct{}{
	TypeRoomUpdate:         {},
	TypeRecordingUpdate:    {},
	TypeSnapshotUpdate:     {},
	TypeBroadcastsUpdate:   {},
	TypePlaybackUpdate:     {},
	TypePresentationUpdate: {},
	TypeOptionsUpdate:      {},
	TypePodium:             {},
	TypeMemberlist:         {},
	TypeChat:               {},
	TypeCustom:             {},
	TypeLock:               {},
}

// KnownType returns t when it is a documented message type and TypeOther
// otherwise. Used where the type ends up as a metric label.
func KnownType(t string) string {
	if _, ok := knownTypes[t]; ok {
		return t
	}
	return TypeOther
}

// Message - a message pushed on the room channel. Raw holds the message
// exactly as received.
type Message struct {
	Type    string          `json:"type"`
	Content json.RawMessage `json:"content,omitempty"`
	Raw     json.RawMessage `json:"-"`
}

// ParseMessage decodes a channel message, keeping the original bytes.
func ParseMessage(data []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Message{}, fmt.Errorf("unmarshal channel message: %w", err)
	}

	msg.Raw = append(json.RawMessage(nil), data...)

	return msg, nil
}

// RoomUpdate - content of a room_update message
type RoomUpdate struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Ready    bool   `json:"ready"`
	Shutdown bool   `json:"shutdown"`
}

// RoomUpdate decodes Content as a room update. Messages without content
// yield a zero RoomUpdate.
func (m Message) RoomUpdate() (RoomUpdate, error) {
	var update RoomUpdate
	if len(m.Content) == 0 || string(m.Content) == "null" {
		return update, nil
	}

	if err := json.Unmarshal(m.Content, &update); err != nil {
		return RoomUpdate{}, fmt.Errorf("unmarshal room update: %w", err)
	}

	return update, nil
}

// WebhookEvent - payload POSTed by eyeson to a registered webhook URL
type WebhookEvent struct {
	Type      string          `json:"type"`
	Room      json.RawMessage `json:"room,omitempty"`
	Recording json.RawMessage `json:"recording,omitempty"`
	Snapshot  json.RawMessage `json:"snapshot,omitempty"`
}
