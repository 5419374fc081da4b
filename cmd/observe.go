package cmd

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	eyeson "github.com/qrave1/eyeson-go"
	"github.com/qrave1/eyeson-go/internal/application/constant"
)

var observeCmd = &cobra.Command{
	Use:   "observe <room-id>",
	Short: "Print the real-time events of a room as JSON lines",
	Args:  cobra.ExactArgs(1),
	RunE:  runObserve,
}

func runObserve(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := newApp(os.Stderr)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	logger := a.logger.With().Str(constant.RoomID, args[0]).Logger()

	conn := a.client.Observer.Connect(ctx, args[0], eyeson.Handlers{
		Connected: func() {
			logger.Info().Msg("connected")
		},
		Disconnected: func(reason string) {
			logger.Info().Str(constant.Reason, reason).Msg("disconnected")
		},
		Event: func(msg eyeson.Message) {
			if err := enc.Encode(msg.Raw); err != nil {
				logger.Error().Err(err).Msg("write event")
			}
		},
	})

	select {
	case <-ctx.Done():
		conn.Close()
		<-conn.Done()
	case <-conn.Done():
	}

	return nil
}
