package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"reelsmith/internal/ledger"
	"reelsmith/internal/production"
	"reelsmith/internal/render"
	"reelsmith/internal/store"
)

func newNewCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "new [theme]",
		Short: "Start a production and make it current",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			theme := strings.Join(args, " ")
			return ctx.withApp(func(a *app) error {
				p := a.orch.NewProduction(theme)
				if err := a.store.Create(cmd.Context(), p); err != nil {
					return err
				}
				if err := a.store.SetCurrent(cmd.Context(), p.ID); err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, p.Record())
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created production %s (%s)\n", shortID(p.ID), p.Stage.Label())
				if p.Theme == "" {
					fmt.Fprintln(cmd.OutOrStdout(), "Set a theme with `reelsmith theme <text>` before advancing.")
				}
				return nil
			})
		},
	}
}

func newListCommand(ctx *commandContext) *cobra.Command {
	var stageFlags []string
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List productions",
		RunE: func(cmd *cobra.Command, args []string) error {
			stages := make([]production.Stage, 0, len(stageFlags))
			for _, raw := range stageFlags {
				stage, err := production.ParseStage(raw)
				if err != nil {
					return err
				}
				stages = append(stages, stage)
			}
			return ctx.withApp(func(a *app) error {
				summaries, err := a.store.List(cmd.Context(), stages...)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, summaries)
				}
				printTable(cmd, "No productions", []string{"", "ID", "Stage", "Theme", "Updated"}, summaryRows(summaries))
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVar(&stageFlags, "stage", nil, "Only list productions in these stages")
	return cmd
}

func summaryRows(summaries []store.Summary) [][]string {
	rows := make([][]string, 0, len(summaries))
	for _, s := range summaries {
		marker := ""
		if s.Current {
			marker = "*"
		}
		rows = append(rows, []string{marker, shortID(s.ID), s.Stage.Label(), truncate(s.Theme, 48), formatAge(s.UpdatedAt)})
	}
	return rows
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the production's stage, assets, storyboard and render state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.view(cmd.Context(), func(a *app, p *production.Production) error {
				if ctx.jsonOutput() {
					return writeJSON(cmd, struct {
						production.Record
						Missing any `json:"missing"`
					}{p.Record(), a.orch.Missing(p)})
				}
				renderProduction(cmd, a, p)
				return nil
			})
		},
	}
}

func renderProduction(cmd *cobra.Command, a *app, p *production.Production) {
	out := cmd.OutOrStdout()
	colors := newPalette(out)

	fmt.Fprintln(out, colors.head.Sprintf("Production %s", shortID(p.ID)))
	fmt.Fprintf(out, "Stage:    %s\n", p.Stage.Label())
	fmt.Fprintf(out, "Theme:    %s\n", valueOr(p.Theme, "(not set)"))
	fmt.Fprintf(out, "Updated:  %s\n", formatAge(p.UpdatedAt))
	if !p.Research.Empty() {
		fmt.Fprintf(out, "Research: %s\n", truncate(p.Research.Summary, 72))
	}

	if p.Ledger != nil {
		fmt.Fprintln(out)
		printAssets(cmd, p)
	}

	if p.Storyboard != nil {
		bound, total := p.Storyboard.Coverage()
		label := fmt.Sprintf("%d/%d scenes bound", bound, total)
		if p.StoryboardStale {
			label += ", " + colors.status("stale")
		}
		fmt.Fprintf(out, "\nStoryboard: %s\n", label)
	}

	if job := p.RenderJob; job != nil {
		line := fmt.Sprintf("\nRender:   %s", colors.status(string(job.Status)))
		if job.Progress >= 0 && job.Status == render.StatusRendering {
			line += fmt.Sprintf(" (%d%%)", job.Progress)
		}
		if p.RenderStale {
			line += ", " + colors.status("stale")
		}
		fmt.Fprintln(out, line)
		if job.VideoURL != "" {
			fmt.Fprintf(out, "Video:    %s\n", job.VideoURL)
		}
		if job.Error != "" {
			fmt.Fprintf(out, "Error:    %s\n", job.Error)
		}
	}

	if pub := p.Publication; pub != nil {
		fmt.Fprintf(out, "\nPublished: %s (%s)\n", pub.URL, formatAge(pub.PublishedAt))
	}

	if missing := a.orch.Missing(p); len(missing) > 0 {
		fmt.Fprintln(out, "\nBefore advancing:")
		for _, req := range missing {
			fmt.Fprintf(out, "  - %s\n", req)
		}
	}
}

func newUseCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "use <id>",
		Short: "Make a production current",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(func(a *app) error {
				p, err := a.store.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if err := a.store.SetCurrent(cmd.Context(), p.ID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Current production: %s (%s)\n", shortID(p.ID), valueOr(p.Theme, "untitled"))
				return nil
			})
		},
	}
}

func newDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a production",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(func(a *app) error {
				p, err := a.store.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if err := a.acquire(p.ID); err != nil {
					return err
				}
				if err := a.store.Delete(cmd.Context(), p.ID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted production %s\n", shortID(p.ID))
				return nil
			})
		},
	}
}

func newThemeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "theme <text>",
		Short: "Set the production theme",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.mutate(cmd.Context(), func(a *app, p *production.Production) error {
				if err := a.orch.SetTheme(p, strings.Join(args, " ")); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Theme set: %s\n", p.Theme)
				return nil
			})
		},
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func valueOr(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

// contentSummary is a one-line description of an asset payload.
func contentSummary(content ledger.Content) string {
	switch c := content.(type) {
	case ledger.ScriptContent:
		return fmt.Sprintf("%s (%d sections)", c.Title, len(c.Sections))
	case ledger.SoundtrackContent:
		if c.DurationSeconds > 0 {
			return fmt.Sprintf("%s, %.0fs", c.AudioURL, c.DurationSeconds)
		}
		return c.AudioURL
	case ledger.DescriptionContent:
		return c.Text
	case ledger.TagsContent:
		return strings.Join(c.Tags, ", ")
	case ledger.TitlesAndThumbsContent:
		if c.Selected >= 0 && c.Selected < len(c.Options) {
			return c.Options[c.Selected].Title
		}
		return fmt.Sprintf("%d options", len(c.Options))
	}
	return ""
}
