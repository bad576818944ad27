package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"blogmsg/internal/models"
	"blogmsg/internal/service"

	"github.com/spf13/cobra"
)

func newThreadCmd() *cobra.Command {
	var (
		pages int
		watch bool
	)

	cmd := &cobra.Command{
		Use:   "thread <otherUserID>",
		Short: "Open a conversation thread and print its history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newAPIClient()
			if err != nil {
				return err
			}

			view := service.NewThreadView(client, cfg.API.UserID, args[0], service.ThreadViewOptions{
				PageSize:           cfg.Client.PageSize,
				UnreadPollInterval: time.Duration(cfg.Client.UnreadPollIntervalSec) * time.Second,
			}, log)
			defer view.Close()

			if watch {
				view.Unread.OnChange(func(count int) {
					fmt.Printf("Unread messages: %d\n", count)
				})
			}

			ctx := cmd.Context()
			if err := view.Open(ctx); err != nil {
				return err
			}

			for p := 1; p < pages && view.Store.HasMore(); p++ {
				if err := view.LoadOlder(ctx); err != nil {
					return err
				}
			}

			thread := view.Store.Thread()
			name := thread.OtherDisplayName
			if name == "" {
				name = thread.OtherUserID
			}
			fmt.Printf("Thread %s with %s\n\n", thread.ID, name)

			for _, m := range view.Store.Messages() {
				printMessage(m, cfg.API.UserID)
			}

			fmt.Printf("\nUnread messages: %d\n", view.Unread.Count())

			if watch {
				fmt.Println("Watching unread badge; press Ctrl+C to stop.")
				sigCh := make(chan os.Signal, 1)
				signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
				<-sigCh
			}

			return nil
		},
	}

	cmd.Flags().IntVar(&pages, "pages", 1, "number of history pages to load")
	cmd.Flags().BoolVar(&watch, "watch", false, "keep polling the unread badge")

	return cmd
}

func printMessage(m *models.Message, currentUserID string) {
	direction := "<-"
	if m.SenderID == currentUserID {
		direction = "->"
	}

	line := fmt.Sprintf("%s %s [%s] %s",
		m.CreatedAt.Format(time.RFC3339), direction, m.ID, m.DisplayContent())
	if !m.IsRecalled && m.Attachment != nil {
		line += fmt.Sprintf(" (%s, %d bytes)", m.Attachment.Filename, m.Attachment.Size)
	}
	fmt.Println(line)
}
