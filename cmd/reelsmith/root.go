package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	var productionFlag string
	var jsonFlag bool

	ctx := newCommandContext(&configFlag, &productionFlag, &jsonFlag)

	rootCmd := &cobra.Command{
		Use:           "reelsmith",
		Short:         "Turn a theme into a published video, one approved stage at a time",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&productionFlag, "production", "", "Production ID or unique prefix (defaults to the current production)")
	rootCmd.PersistentFlags().BoolVar(&jsonFlag, "json", false, "Write machine-readable JSON output")

	rootCmd.AddCommand(newNewCommand(ctx))
	rootCmd.AddCommand(newListCommand(ctx))
	rootCmd.AddCommand(newShowCommand(ctx))
	rootCmd.AddCommand(newUseCommand(ctx))
	rootCmd.AddCommand(newDeleteCommand(ctx))
	rootCmd.AddCommand(newThemeCommand(ctx))
	rootCmd.AddCommand(newAdvanceCommand(ctx))
	rootCmd.AddCommand(newBackCommand(ctx))
	rootCmd.AddCommand(newResearchCommand(ctx))
	rootCmd.AddCommand(newGenerateCommand(ctx))
	rootCmd.AddCommand(newApproveCommand(ctx))
	rootCmd.AddCommand(newRevokeCommand(ctx))
	rootCmd.AddCommand(newEditCommand(ctx))
	rootCmd.AddCommand(newStoryboardCommand(ctx))
	rootCmd.AddCommand(newRenderCommand(ctx))
	rootCmd.AddCommand(newPublishCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))
	rootCmd.AddCommand(newDoctorCommand(ctx))
	rootCmd.AddCommand(newNotifyCommand(ctx))
	rootCmd.AddCommand(newLogsCommand(ctx))

	return rootCmd
}
