package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"reelsmith/internal/logging"
	"reelsmith/internal/production"
	"reelsmith/internal/storyboard"
)

func newStoryboardCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "storyboard",
		Aliases: []string{"sb"},
		Short:   "Build the storyboard and bind stock media to scenes",
	}
	cmd.AddCommand(newStoryboardBuildCommand(ctx))
	cmd.AddCommand(newStoryboardShowCommand(ctx))
	cmd.AddCommand(newStoryboardSearchCommand(ctx))
	cmd.AddCommand(newStoryboardBindCommand(ctx))
	cmd.AddCommand(newStoryboardUnbindCommand(ctx))
	cmd.AddCommand(newStoryboardReorderCommand(ctx))
	return cmd
}

func newStoryboardBuildCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "build",
		Short: "Build scenes from the approved script, replacing any existing storyboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.mutate(cmd.Context(), func(a *app, p *production.Production) error {
				board, err := a.orch.BuildStoryboard(p)
				if err != nil {
					return err
				}
				_ = os.Remove(searchCachePath(a, p))
				return printBoard(cmd, ctx, board)
			})
		},
	}
}

func newStoryboardShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "List scenes and their media",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.view(cmd.Context(), func(a *app, p *production.Production) error {
				if p.Storyboard == nil {
					return errors.New("no storyboard; run `reelsmith storyboard build` in the Studio stage")
				}
				return printBoard(cmd, ctx, p.Storyboard)
			})
		},
	}
}

func newStoryboardSearchCommand(ctx *commandContext) *cobra.Command {
	var query string
	var sourceNames []string
	var limit int
	cmd := &cobra.Command{
		Use:   "search <scene-id>",
		Short: "Search stock media for a scene",
		Long:  "Search stock media for a scene. Results are remembered so `storyboard bind` can refer to them by number or media ID.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sources := make([]storyboard.Source, 0, len(sourceNames))
			for _, name := range sourceNames {
				source, err := storyboard.ParseSource(name)
				if err != nil {
					return err
				}
				sources = append(sources, source)
			}
			sceneID := args[0]
			return ctx.view(cmd.Context(), func(a *app, p *production.Production) error {
				candidates, err := a.orch.SearchMedia(cmd.Context(), p, sceneID, query, sources)
				if err != nil {
					return err
				}
				results, err := candidates.Collect(limit)
				if err != nil && len(results) == 0 {
					return err
				}
				if cacheErr := saveSearch(a, p, sceneID, results); cacheErr != nil {
					a.logger.Warn("search results not cached", logging.Error(cacheErr))
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, results)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Query: %s\n", candidates.Query())
				rows := make([][]string, 0, len(results))
				for i, media := range results {
					size := "-"
					if media.Width > 0 && media.Height > 0 {
						size = fmt.Sprintf("%dx%d", media.Width, media.Height)
					}
					rows = append(rows, []string{strconv.Itoa(i + 1), media.ID, string(media.Type), size, truncate(media.Attribution, 32)})
				}
				printTable(cmd, "No media found", []string{"#", "Media", "Type", "Size", "Attribution"}, rows, alignRight)
				return err
			})
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "Search text (defaults to the scene heading)")
	cmd.Flags().StringSliceVar(&sourceNames, "source", nil, "Stock providers to query (defaults to stock.sources)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum results to show")
	return cmd
}

func newStoryboardBindCommand(ctx *commandContext) *cobra.Command {
	var url, mediaType string
	cmd := &cobra.Command{
		Use:   "bind <scene-id> [result]",
		Short: "Bind a search result (number or media ID) or a URL to a scene",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sceneID := args[0]
			return ctx.mutate(cmd.Context(), func(a *app, p *production.Production) error {
				var media storyboard.Media
				switch {
				case url != "" && len(args) == 1:
					media = storyboard.Media{ID: url, URL: url, Type: storyboard.MediaType(mediaType)}
				case url == "" && len(args) == 2:
					found, err := lookupSearch(a, p, sceneID, args[1])
					if err != nil {
						return err
					}
					media = found
				default:
					return errors.New("pass a search result or --url")
				}
				scene, err := a.orch.BindMedia(p, sceneID, media)
				if err != nil {
					return err
				}
				bound, total := p.Storyboard.Coverage()
				fmt.Fprintf(cmd.OutOrStdout(), "Bound %s to %s (%d/%d scenes bound)\n", media.ID, scene.ID, bound, total)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "Bind media at this URL instead of a search result")
	cmd.Flags().StringVar(&mediaType, "type", string(storyboard.MediaVideo), "Media type for --url (image or video)")
	return cmd
}

func newStoryboardUnbindCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "unbind <scene-id>",
		Short: "Clear a scene's media",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.mutate(cmd.Context(), func(a *app, p *production.Production) error {
				scene, err := a.orch.UnbindMedia(p, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared media for %s\n", scene.ID)
				return nil
			})
		},
	}
}

func newStoryboardReorderCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reorder <scene-id>...",
		Short: "Reorder scenes; every scene ID must appear exactly once",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.mutate(cmd.Context(), func(a *app, p *production.Production) error {
				if err := a.orch.ReorderScenes(p, args); err != nil {
					return err
				}
				return printBoard(cmd, ctx, p.Storyboard)
			})
		},
	}
}

func printBoard(cmd *cobra.Command, ctx *commandContext, board *storyboard.Board) error {
	scenes := board.Snapshot()
	if ctx.jsonOutput() {
		return writeJSON(cmd, scenes)
	}
	colors := newPalette(cmd.OutOrStdout())
	rows := make([][]string, 0, len(scenes))
	for _, scene := range scenes {
		media := colors.status("unbound")
		if scene.Media != nil {
			media = fmt.Sprintf("%s (%s)", scene.Media.ID, scene.Media.Type)
		}
		rows = append(rows, []string{
			strconv.Itoa(scene.Order + 1),
			scene.ID,
			truncate(scene.Heading, 32),
			fmt.Sprintf("%.0fs", scene.DurationSeconds),
			media,
		})
	}
	printTable(cmd, "No scenes", []string{"#", "Scene", "Heading", "Length", "Media"}, rows, alignRight, alignLeft, alignLeft, alignRight)
	return nil
}

// searchCache maps scene IDs to their most recent search results.
type searchCache map[string][]storyboard.Media

func searchCachePath(a *app, p *production.Production) string {
	return filepath.Join(a.cfg.Paths.DataDir, "searches", p.ID+".json")
}

func loadSearchCache(path string) (searchCache, error) {
	cache := searchCache{}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cache, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &cache); err != nil {
		return nil, fmt.Errorf("decode search cache: %w", err)
	}
	return cache, nil
}

func saveSearch(a *app, p *production.Production, sceneID string, results []storyboard.Media) error {
	path := searchCachePath(a, p)
	cache, err := loadSearchCache(path)
	if err != nil {
		cache = searchCache{}
	}
	cache[sceneID] = results
	data, err := json.Marshal(cache)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func lookupSearch(a *app, p *production.Production, sceneID, ref string) (storyboard.Media, error) {
	cache, err := loadSearchCache(searchCachePath(a, p))
	if err != nil {
		return storyboard.Media{}, err
	}
	results := cache[sceneID]
	if len(results) == 0 {
		return storyboard.Media{}, fmt.Errorf("no search results for scene %s; run `reelsmith storyboard search %s` first", sceneID, sceneID)
	}
	if n, err := strconv.Atoi(ref); err == nil {
		if n < 1 || n > len(results) {
			return storyboard.Media{}, fmt.Errorf("result %d out of range (1-%d)", n, len(results))
		}
		return results[n-1], nil
	}
	for _, media := range results {
		if strings.EqualFold(media.ID, ref) {
			return media, nil
		}
	}
	return storyboard.Media{}, fmt.Errorf("media %q not among the last results for scene %s", ref, sceneID)
}
