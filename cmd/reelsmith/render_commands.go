package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"reelsmith/internal/logging"
	"reelsmith/internal/production"
	"reelsmith/internal/render"
)

func newRenderCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Submit and track the video render",
	}
	cmd.AddCommand(newRenderSubmitCommand(ctx))
	cmd.AddCommand(newRenderPollCommand(ctx))
	cmd.AddCommand(newRenderWaitCommand(ctx))
	return cmd
}

func newRenderSubmitCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "submit",
		Short: "Submit the storyboard and soundtrack for rendering",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.mutate(cmd.Context(), func(a *app, p *production.Production) error {
				job, err := a.orch.SubmitRender(cmd.Context(), p)
				if job.ID != "" {
					printJob(cmd, ctx, job)
				}
				return err
			})
		},
	}
}

func newRenderPollCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "poll",
		Short: "Refresh the render job status once",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.mutate(cmd.Context(), func(a *app, p *production.Production) error {
				job, err := a.orch.PollRender(cmd.Context(), p)
				if job.ID != "" {
					printJob(cmd, ctx, job)
				}
				return err
			})
		},
	}
}

func newRenderWaitCommand(ctx *commandContext) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "wait",
		Short: "Poll until the render completes or fails",
		RunE: func(cmd *cobra.Command, args []string) error {
			waitCtx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				waitCtx, cancel = context.WithTimeout(waitCtx, timeout)
				defer cancel()
			}
			return ctx.mutate(waitCtx, func(a *app, p *production.Production) error {
				interval, maxInterval := a.cfg.PollInterval()
				bar := newRenderBar(cmd.OutOrStdout(), !ctx.jsonOutput())
				job, err := a.orch.AwaitRender(waitCtx, p, render.AwaitOptions{
					Interval:    interval,
					MaxInterval: maxInterval,
					OnUpdate: func(job render.Job) {
						bar.update(job)
						// Keep progress durable across an interrupted wait.
						if saveErr := a.store.Save(cmd.Context(), p); saveErr != nil {
							a.logger.Warn("render progress not saved", logging.Error(saveErr))
						}
					},
				})
				bar.finish()
				if job.ID != "" {
					printJob(cmd, ctx, job)
				}
				return err
			})
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Stop waiting after this long (0 waits until done)")
	return cmd
}

// renderBar shows render progress on a terminal and stays silent otherwise.
type renderBar struct {
	bar *progressbar.ProgressBar
}

func newRenderBar(out io.Writer, enabled bool) *renderBar {
	if !enabled || !shouldColorize(out) {
		return &renderBar{}
	}
	return &renderBar{bar: progressbar.NewOptions(100,
		progressbar.OptionSetWriter(out),
		progressbar.OptionSetDescription("rendering"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetPredictTime(false),
	)}
}

func (r *renderBar) update(job render.Job) {
	if r.bar == nil {
		return
	}
	r.bar.Describe(string(job.Status))
	if job.Progress >= 0 {
		_ = r.bar.Set(job.Progress)
	}
}

func (r *renderBar) finish() {
	if r.bar != nil {
		_ = r.bar.Finish()
	}
}

func printJob(cmd *cobra.Command, ctx *commandContext, job render.Job) {
	if ctx.jsonOutput() {
		_ = writeJSON(cmd, job)
		return
	}
	out := cmd.OutOrStdout()
	colors := newPalette(out)
	line := fmt.Sprintf("Render %s: %s", shortID(job.ID), colors.status(string(job.Status)))
	if job.Status == render.StatusRendering && job.Progress >= 0 {
		line += fmt.Sprintf(" (%d%%)", job.Progress)
	}
	fmt.Fprintln(out, line)
	if job.VideoURL != "" {
		fmt.Fprintf(out, "Video: %s\n", job.VideoURL)
	}
	if job.Error != "" {
		fmt.Fprintf(out, "Error: %s\n", job.Error)
	}
}

func newPublishCommand(ctx *commandContext) *cobra.Command {
	var privacy string
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Upload the rendered video with the approved metadata",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.mutate(cmd.Context(), func(a *app, p *production.Production) error {
				publishCtx, cancel := context.WithTimeout(cmd.Context(), time.Duration(a.cfg.Publish.TimeoutSeconds)*time.Second)
				defer cancel()
				publication, err := a.orch.Publish(publishCtx, p, privacy)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, publication)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Published %s\n", publication.URL)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&privacy, "privacy", "", "Override publish.privacy_status (private, unlisted or public)")
	return cmd
}
