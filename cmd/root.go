package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	eyeson "github.com/qrave1/eyeson-go"
	"github.com/qrave1/eyeson-go/internal/application/config"
	"github.com/qrave1/eyeson-go/internal/application/logging"
)

var rootCmd = &cobra.Command{
	Use:           "eyeson",
	Short:         "eyeson is a command line client and demo server for the eyeson video conferencing API.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(serveCmd, joinCmd, observeCmd, webhookCmd)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type app struct {
	cfg    *config.Config
	logger zerolog.Logger
	client *eyeson.Client
}

// newApp loads the environment configuration and builds the API client.
// Logs go to logOut so commands can keep stdout for their own output.
func newApp(logOut io.Writer) (*app, error) {
	cfg, err := config.New()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logCfg := logging.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty}
	if cfg.Debug {
		logCfg.Level = "debug"
	}
	logger := logging.New(logCfg, logOut)

	client, err := eyeson.New(eyeson.Config{
		APIKey:  cfg.Eyeson.APIKey,
		BaseURL: cfg.Eyeson.BaseURL,
		Logger:  &logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create eyeson client: %w", err)
	}

	return &app{cfg: cfg, logger: logger, client: client}, nil
}
