package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"reelsmith/internal/pipeline"
	"reelsmith/internal/production"
)

func newAdvanceCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "advance",
		Short: "Move the production to the next stage once its approvals are in place",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.mutate(cmd.Context(), func(a *app, p *production.Production) error {
				from := p.Stage
				_, err := a.orch.Advance(p)
				var blocked *pipeline.BlockedError
				if errors.As(err, &blocked) {
					out := cmd.OutOrStdout()
					if ctx.jsonOutput() {
						_ = writeJSON(cmd, blocked.Missing)
					} else {
						fmt.Fprintf(out, "Cannot leave %s yet:\n", blocked.Stage.Label())
						for _, req := range blocked.Missing {
							fmt.Fprintf(out, "  - %s\n", req)
						}
					}
					return fmt.Errorf("%d requirement(s) unmet: %w", len(blocked.Missing), err)
				}
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, map[string]string{"from": string(from), "to": string(p.Stage)})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", from.Label(), p.Stage.Label())
				return nil
			})
		},
	}
}

func newBackCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "back <stage>",
		Short: "Return to an earlier stage, keeping later work but marking it stale",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			to, err := production.ParseStage(args[0])
			if err != nil {
				return err
			}
			return ctx.mutate(cmd.Context(), func(a *app, p *production.Production) error {
				from := p.Stage
				if err := a.orch.Rewind(p, to); err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s -> %s\n", from.Label(), p.Stage.Label())
				if p.StoryboardStale || p.RenderStale {
					fmt.Fprintln(out, "Storyboard and render are now stale.")
				}
				return nil
			})
		},
	}
}

func newResearchCommand(ctx *commandContext) *cobra.Command {
	var instructions string
	cmd := &cobra.Command{
		Use:   "research",
		Short: "Gather background material for the theme",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.mutate(cmd.Context(), func(a *app, p *production.Production) error {
				research, err := a.orch.Research(cmd.Context(), p, instructions)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, research)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, strings.TrimSpace(research.Summary))
				for _, point := range research.KeyPoints {
					fmt.Fprintf(out, "  - %s\n", point)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&instructions, "instructions", "", "Extra guidance for the research prompt")
	return cmd
}
