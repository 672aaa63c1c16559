package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"reelsmith/internal/ledger"
	"reelsmith/internal/production"
)

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	var all bool
	var instructions string
	cmd := &cobra.Command{
		Use:   "generate [kind]",
		Short: "Generate one asset, or every unapproved asset with --all",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if all == (len(args) == 1) {
				return errors.New("pass an asset kind or --all")
			}
			var kind ledger.Kind
			if !all {
				parsed, err := ledger.ParseKind(args[0])
				if err != nil {
					return err
				}
				kind = parsed
			}
			return ctx.mutate(cmd.Context(), func(a *app, p *production.Production) error {
				var err error
				if all {
					err = a.orch.GenerateAll(cmd.Context(), p, instructions)
				} else {
					_, err = a.orch.RegenerateAsset(cmd.Context(), p, kind, instructions)
				}
				if ctx.jsonOutput() {
					_ = writeJSON(cmd, p.Ledger.Snapshot())
				} else {
					printAssets(cmd, p)
				}
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Generate every asset that is not approved")
	cmd.Flags().StringVar(&instructions, "instructions", "", "Extra guidance for the generation prompt")
	return cmd
}

func newApproveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "approve <kind>...",
		Short: "Approve generated assets",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kinds, err := parseKinds(args)
			if err != nil {
				return err
			}
			return ctx.mutate(cmd.Context(), func(a *app, p *production.Production) error {
				for _, kind := range kinds {
					if _, err := a.orch.ApproveAsset(p, kind); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Approved %s\n", kind)
				}
				return nil
			})
		},
	}
}

func newRevokeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <kind>...",
		Short: "Withdraw approval so an asset can be edited or regenerated",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kinds, err := parseKinds(args)
			if err != nil {
				return err
			}
			return ctx.mutate(cmd.Context(), func(a *app, p *production.Production) error {
				for _, kind := range kinds {
					if _, err := a.orch.RevokeAsset(p, kind); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Revoked %s\n", kind)
				}
				return nil
			})
		},
	}
}

func newEditCommand(ctx *commandContext) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "edit <kind>",
		Short: "Replace an asset's content with a JSON payload",
		Long:  "Replace an asset's content with a JSON payload read from --file (use - for stdin). Editing an approved asset withdraws its approval.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := ledger.ParseKind(args[0])
			if err != nil {
				return err
			}
			payload, err := readPayload(cmd, file)
			if err != nil {
				return err
			}
			content, err := ledger.DecodeContent(kind, payload)
			if err != nil {
				return err
			}
			return ctx.mutate(cmd.Context(), func(a *app, p *production.Production) error {
				asset, err := a.orch.EditAsset(p, kind, content)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, asset)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Updated %s (%s)\n", kind, asset.Status)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON payload file, or - for stdin")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func readPayload(cmd *cobra.Command, file string) ([]byte, error) {
	if file == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}
	return data, nil
}

func parseKinds(args []string) ([]ledger.Kind, error) {
	kinds := make([]ledger.Kind, 0, len(args))
	for _, arg := range args {
		kind, err := ledger.ParseKind(arg)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, kind)
	}
	return kinds, nil
}

func printAssets(cmd *cobra.Command, p *production.Production) {
	colors := newPalette(cmd.OutOrStdout())
	rows := [][]string{}
	for _, asset := range p.Ledger.Snapshot() {
		detail := asset.FailureReason
		if detail == "" && asset.Content != nil {
			detail = truncate(contentSummary(asset.Content), 56)
		}
		rows = append(rows, []string{asset.Kind.String(), colors.status(string(asset.Status)), detail})
	}
	printTable(cmd, "No assets", []string{"Asset", "Status", "Detail"}, rows)
}
