package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"worldbuilder/internal/versions"
)

type versionOutput struct {
	Version         string         `json:"version"`
	Commit          string         `json:"commit"`
	BuildDate       string         `json:"build_date"`
	Latest          *versions.Info `json:"latest,omitempty"`
	UpdateAvailable *bool          `json:"update_available,omitempty"`
}

func newVersionCommand(ctx *commandContext) *cobra.Command {
	var check bool
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show the build version and optionally check for updates",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			build := versions.LinkedBuild(cfg.Version.Current)
			out := versionOutput{Version: build.Version, Commit: build.Commit, BuildDate: build.Date}

			if check {
				client, err := ctx.githubClient()
				if err != nil {
					return err
				}
				manager := versions.NewManager(client, build, ctx.loggerValue())
				status := manager.CheckForUpdate(cmd.Context())
				out.Latest = &status.Latest
				out.UpdateAvailable = &status.Available
			}

			if jsonOut {
				return writeJSON(cmd, out)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintln(w, build.BuildString())
			if out.Latest == nil {
				return nil
			}
			if out.Latest.PublishedAt == versions.LocalBuildLabel {
				fmt.Fprintln(w, "Latest release: unavailable (release lookup failed)")
				return nil
			}
			fmt.Fprintf(w, "Latest release: v%s (%s)\n", out.Latest.Version, dash(out.Latest.PublishedAt))
			fmt.Fprintf(w, "Update available: %s\n", yesNo(*out.UpdateAvailable))
			if *out.UpdateAvailable && out.Latest.URL != "" {
				fmt.Fprintf(w, "Download: %s\n", out.Latest.URL)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&check, "check", false, "Look up the latest GitHub release")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}
