package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"reelsmith/internal/notifications"
)

func newNotifyCommand(ctx *commandContext) *cobra.Command {
	notifyCmd := &cobra.Command{
		Use:   "notify",
		Short: "Notification utilities",
	}
	notifyCmd.AddCommand(&cobra.Command{
		Use:   "test",
		Short: "Send a test notification",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cfg.Notifications.NtfyTopic == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "Notifications disabled (notifications.ntfy_topic is empty)")
				return nil
			}
			service := notifications.NewService(cfg)
			if err := service.Publish(cmd.Context(), notifications.EventTest, notifications.Payload{"message": "reelsmith test notification"}); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Test notification sent")
			return nil
		},
	})
	return notifyCmd
}
