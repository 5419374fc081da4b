package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var webhookCmd = &cobra.Command{
	Use:   "webhook",
	Short: "Manage the account webhook",
}

var webhookGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the registered webhook",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(os.Stderr)
		if err != nil {
			return err
		}

		hook, err := a.client.GetWebhook(cmd.Context())
		if err != nil {
			return err
		}
		if hook == nil {
			fmt.Fprintln(cmd.ErrOrStderr(), "no webhook registered")
			return nil
		}

		return json.NewEncoder(cmd.OutOrStdout()).Encode(hook)
	},
}

var webhookSetCmd = &cobra.Command{
	Use:   "set <url>",
	Short: "Register a webhook, replacing the current one",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(os.Stderr)
		if err != nil {
			return err
		}

		types, _ := cmd.Flags().GetStringSlice("types")
		if len(types) == 0 {
			types = a.cfg.Eyeson.WebhookTypes
		}

		hook, err := a.client.RegisterWebhook(cmd.Context(), args[0], types)
		if err != nil {
			return err
		}

		return json.NewEncoder(cmd.OutOrStdout()).Encode(hook)
	},
}

var webhookClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the registered webhook, if any",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(os.Stderr)
		if err != nil {
			return err
		}

		return a.client.ClearWebhook(cmd.Context())
	},
}

func init() {
	webhookSetCmd.Flags().StringSlice("types", nil, "event types, defaults to EYESON_WEBHOOK_TYPES")

	webhookCmd.AddCommand(webhookGetCmd, webhookSetCmd, webhookClearCmd)
}
