package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	eyeson "github.com/qrave1/eyeson-go"
)

var joinCmd = &cobra.Command{
	Use:   "join <username> [room-id]",
	Short: "Create or join a room and print its data as JSON",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runJoin,
}

func init() {
	joinCmd.Flags().Bool("wait", false, "wait until the room is ready")
	joinCmd.Flags().String("name", "", "room name for new rooms")
}

func runJoin(cmd *cobra.Command, args []string) error {
	wait, _ := cmd.Flags().GetBool("wait")
	name, _ := cmd.Flags().GetString("name")

	var roomID string
	if len(args) > 1 {
		roomID = args[1]
	}

	a, err := newApp(os.Stderr)
	if err != nil {
		return err
	}

	room, err := a.client.Join(cmd.Context(), args[0], roomID, &eyeson.JoinParams{Name: name})
	if err != nil {
		return err
	}

	if wait {
		if err := room.WaitReady(cmd.Context()); err != nil {
			return fmt.Errorf("wait for room %s: %w", room.RoomID(), err)
		}
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(room.Data())
}
