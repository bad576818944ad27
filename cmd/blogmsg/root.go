package main

import (
	"net/http"
	"time"

	"blogmsg/internal/config"
	"blogmsg/internal/models"
	"blogmsg/pkg/messaging"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	logLevel string

	// loaded by the root PersistentPreRunE
	cfg *models.Config
	log *logrus.Logger
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "blogmsg",
		Short: "blogmsg — direct-messaging client for the blog platform",
		Long:  "blogmsg talks to the blog platform's direct-messaging API: browse conversation threads, send, recall and resend messages, and watch the unread badge.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// A missing .env is fine; explicit env always wins.
			_ = godotenv.Load()

			var err error
			cfg, err = config.LoadConfig(cfgFile)
			if err != nil {
				return err
			}

			if logLevel != "" {
				cfg.LogLevel = logLevel
			}

			log = logrus.New()
			level, err := logrus.ParseLevel(cfg.LogLevel)
			if err != nil {
				level = logrus.InfoLevel
			}
			log.SetLevel(level)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "config.json", "config file path")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newThreadCmd())
	cmd.AddCommand(newSendCmd())
	cmd.AddCommand(newRecallCmd())
	cmd.AddCommand(newResendCmd())
	cmd.AddCommand(newUnreadCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}

func newAPIClient() (messaging.Client, error) {
	if err := config.ValidateClient(cfg); err != nil {
		return nil, err
	}

	httpClient := &http.Client{Timeout: time.Duration(cfg.API.TimeoutSec) * time.Second}
	return messaging.NewClientWithLogger(cfg.API.BaseURL, cfg.API.AuthToken, cfg.API.UserID, httpClient, log), nil
}
