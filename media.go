package eyeson

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// ListRooms returns the rooms currently running for the account.
func (c *Client) ListRooms(ctx context.Context) ([]RoomInfo, error) {
	var rooms []RoomInfo
	if err := c.api.Get(ctx, "/rooms", &rooms); err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	return rooms, nil
}

// GetRoomUsers lists the participants of a room. A non-nil online filters by
// presence.
func (c *Client) GetRoomUsers(ctx context.Context, roomID string, online *bool) ([]UserInfo, error) {
	if err := required("roomID", roomID, "room id is required"); err != nil {
		return nil, err
	}

	path := "/rooms/" + url.PathEscape(roomID) + "/users"
	if online != nil {
		path += "?online=" + strconv.FormatBool(*online)
	}

	var users []UserInfo
	if err := c.api.Get(ctx, path, &users); err != nil {
		return nil, fmt.Errorf("get room users: %w", err)
	}
	return users, nil
}

func (c *Client) GetSnapshot(ctx context.Context, snapshotID string) (*Snapshot, error) {
	if err := required("snapshotID", snapshotID, "snapshot id is required"); err != nil {
		return nil, err
	}

	var snapshot Snapshot
	if err := c.api.Get(ctx, "/snapshots/"+url.PathEscape(snapshotID), &snapshot); err != nil {
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	return &snapshot, nil
}

// GetRoomSnapshots lists the snapshots of a room, 25 per page.
func (c *Client) GetRoomSnapshots(ctx context.Context, roomID string, opts *ListOptions) ([]Snapshot, error) {
	if err := required("roomID", roomID, "room id is required"); err != nil {
		return nil, err
	}

	var snapshots []Snapshot
	if err := c.api.Get(ctx, "/rooms/"+url.PathEscape(roomID)+"/snapshots"+opts.query(), &snapshots); err != nil {
		return nil, fmt.Errorf("get room snapshots: %w", err)
	}
	return snapshots, nil
}

func (c *Client) DeleteSnapshot(ctx context.Context, snapshotID string) error {
	if err := required("snapshotID", snapshotID, "snapshot id is required"); err != nil {
		return err
	}

	if err := c.api.Delete(ctx, "/snapshots/"+url.PathEscape(snapshotID), nil); err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return nil
}

func (c *Client) GetRecording(ctx context.Context, recordingID string) (*Recording, error) {
	if err := required("recordingID", recordingID, "recording id is required"); err != nil {
		return nil, err
	}

	var recording Recording
	if err := c.api.Get(ctx, "/recordings/"+url.PathEscape(recordingID), &recording); err != nil {
		return nil, fmt.Errorf("get recording: %w", err)
	}
	return &recording, nil
}

// GetRoomRecordings lists the recordings of a room, 25 per page.
func (c *Client) GetRoomRecordings(ctx context.Context, roomID string, opts *ListOptions) ([]Recording, error) {
	if err := required("roomID", roomID, "room id is required"); err != nil {
		return nil, err
	}

	var recordings []Recording
	if err := c.api.Get(ctx, "/rooms/"+url.PathEscape(roomID)+"/recordings"+opts.query(), &recordings); err != nil {
		return nil, fmt.Errorf("get room recordings: %w", err)
	}
	return recordings, nil
}

func (c *Client) DeleteRecording(ctx context.Context, recordingID string) error {
	if err := required("recordingID", recordingID, "recording id is required"); err != nil {
		return err
	}

	if err := c.api.Delete(ctx, "/recordings/"+url.PathEscape(recordingID), nil); err != nil {
		return fmt.Errorf("delete recording: %w", err)
	}
	return nil
}
