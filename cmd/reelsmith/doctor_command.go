package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"reelsmith/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check directories, credentials and provider connectivity",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			results := preflight.RunAll(cmd.Context(), cfg)
			if ctx.jsonOutput() {
				if err := writeJSON(cmd, results); err != nil {
					return err
				}
			} else {
				colors := newPalette(cmd.OutOrStdout())
				rows := make([][]string, 0, len(results))
				for _, result := range results {
					state := "pass"
					if !result.Passed {
						state = "fail"
					}
					rows = append(rows, []string{result.Name, colors.status(state), result.Detail})
				}
				printTable(cmd, "No checks ran", []string{"Check", "Result", "Detail"}, rows)
			}
			if !preflight.AllPassed(results) {
				return errors.New("one or more checks failed")
			}
			fmt.Fprintln(cmd.ErrOrStderr(), "All checks passed")
			return nil
		},
	}
}
