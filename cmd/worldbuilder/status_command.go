package main

import (
	"errors"

	"github.com/spf13/cobra"

	"worldbuilder/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check local directories and remote service connectivity",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			results := preflight.RunAll(cmd.Context(), cfg)
			if jsonOut {
				if err := writeJSON(cmd, results); err != nil {
					return err
				}
			} else {
				rows := make([][]string, 0, len(results))
				for _, r := range results {
					rows = append(rows, []string{r.Name, checkState(r), r.Detail})
				}
				writeRows(cmd.OutOrStdout(), []string{"Check", "State", "Detail"}, rows, nil)
			}
			if preflight.Failed(results) {
				return errors.New("one or more checks failed")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func checkState(r preflight.Result) string {
	switch {
	case r.Skipped:
		return "skipped"
	case r.Passed:
		return "ok"
	default:
		return "failed"
	}
}
