package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"blogmsg/internal/service"

	"github.com/spf13/cobra"
)

func newSendCmd() *cobra.Command {
	var attachPath string

	cmd := &cobra.Command{
		Use:   "send <otherUserID> [text...]",
		Short: "Send a message, optionally with an attachment",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newAPIClient()
			if err != nil {
				return err
			}

			view := service.NewThreadView(client, cfg.API.UserID, args[0], service.ThreadViewOptions{}, log)
			ctx := cmd.Context()

			view.Composer.SetDraft(strings.Join(args[1:], " "))

			if attachPath != "" {
				data, err := os.ReadFile(attachPath)
				if err != nil {
					return err
				}
				if _, err := view.Composer.PickFile(ctx, filepath.Base(attachPath), data); err != nil {
					return err
				}
			}

			m, err := view.Composer.Submit(ctx)
			if err != nil {
				return err
			}

			fmt.Printf("Sent %s (%s)\n", m.ID, m.Type)
			return nil
		},
	}

	cmd.Flags().StringVar(&attachPath, "attach", "", "path of a file to attach")
	return cmd
}

func newRecallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recall <otherUserID> <messageID>",
		Short: "Recall a recently sent message",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newAPIClient()
			if err != nil {
				return err
			}

			view := service.NewThreadView(client, cfg.API.UserID, args[0], service.ThreadViewOptions{}, log)
			ctx := cmd.Context()

			if err := view.Store.LoadPage(ctx, 1, cfg.Client.PageSize); err != nil {
				return err
			}

			if err := view.Lifecycle.Recall(ctx, args[1]); err != nil {
				return err
			}

			fmt.Printf("Recalled %s\n", args[1])
			return nil
		},
	}
}

func newResendCmd() *cobra.Command {
	var attachPath string

	cmd := &cobra.Command{
		Use:   "resend <otherUserID> <messageID> [text...]",
		Short: "Edit a recalled message and publish it again",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newAPIClient()
			if err != nil {
				return err
			}

			view := service.NewThreadView(client, cfg.API.UserID, args[0], service.ThreadViewOptions{}, log)
			ctx := cmd.Context()

			if err := view.Store.LoadPage(ctx, 1, cfg.Client.PageSize); err != nil {
				return err
			}

			m, ok := view.Store.Get(args[1])
			if !ok {
				return fmt.Errorf("message %s not in the loaded history", args[1])
			}

			if err := view.Composer.BeginEdit(m); err != nil {
				return err
			}

			if text := strings.Join(args[2:], " "); text != "" {
				view.Composer.SetDraft(text)
			}

			if attachPath != "" {
				data, err := os.ReadFile(attachPath)
				if err != nil {
					return err
				}
				if _, err := view.Composer.PickFile(ctx, filepath.Base(attachPath), data); err != nil {
					return err
				}
			}

			updated, err := view.Composer.Submit(ctx)
			if err != nil {
				return err
			}

			fmt.Printf("Resent %s (%s)\n", updated.ID, updated.Type)
			return nil
		},
	}

	cmd.Flags().StringVar(&attachPath, "attach", "", "path of a file to attach")
	return cmd
}

func newUnreadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unread",
		Short: "Print the unread message count",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newAPIClient()
			if err != nil {
				return err
			}

			count, err := client.GetUnreadCount(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Println(count)
			return nil
		},
	}
}
