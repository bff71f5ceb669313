package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"worldbuilder/internal/services/github"
)

func newReleasesCommand(ctx *commandContext) *cobra.Command {
	var perPage int
	var page int
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "releases",
		Short: "List published GitHub releases",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.githubClient()
			if err != nil {
				return err
			}
			releases, err := client.Releases(cmd.Context(), github.ListOptions{PerPage: perPage, Page: page}).Get()
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, releases)
			}
			if len(releases) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No releases published")
				return nil
			}
			rows := make([][]string, 0, len(releases))
			for _, r := range releases {
				latest := ""
				if r.IsLatest {
					latest = "*"
				}
				rows = append(rows, []string{"v" + r.Version, dash(r.Name), dash(r.PublishedAt), latest})
			}
			writeRows(cmd.OutOrStdout(), []string{"Version", "Name", "Published", "Latest"}, rows, nil)
			return nil
		},
	}

	cmd.Flags().IntVar(&perPage, "per-page", 10, "Releases per page (max 100)")
	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}
