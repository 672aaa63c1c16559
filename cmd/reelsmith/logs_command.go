package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"reelsmith/internal/logging"
	"reelsmith/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool
	var level string
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent log lines",
		Long:  "Show recent log lines. With --production only records for that production are shown.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path := filepath.Join(cfg.Paths.LogDir, logging.LogFileName)
			filter := logs.Filter{ProductionID: ctx.productionRef(), MinLevel: level}
			out := cmd.OutOrStdout()
			emit := func(line string) {
				if filter.Match(line) {
					fmt.Fprintln(out, line)
				}
			}

			// Read extra lines when filtering so the tail still has content.
			window := lines
			if filter != (logs.Filter{}) {
				window = lines * 20
			}
			recent, offset, err := logs.Last(path, window)
			if err != nil {
				return err
			}
			matched := make([]string, 0, len(recent))
			for _, line := range recent {
				if filter.Match(line) {
					matched = append(matched, line)
				}
			}
			for _, line := range matched[max(0, len(matched)-lines):] {
				fmt.Fprintln(out, line)
			}
			if !follow {
				return nil
			}
			return logs.Follow(cmd.Context(), path, offset, 0, emit)
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines until interrupted")
	cmd.Flags().StringVar(&level, "level", "", "Minimum level (debug, info, warn, error)")
	return cmd
}
