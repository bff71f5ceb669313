package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"worldbuilder/internal/issues"
)

func newIssueCommand(ctx *commandContext) *cobra.Command {
	issueCmd := &cobra.Command{
		Use:   "issue",
		Short: "Report problems through the issue relay",
	}
	issueCmd.AddCommand(newIssueSubmitCommand(ctx))
	return issueCmd
}

func newIssueSubmitCommand(ctx *commandContext) *cobra.Command {
	var report issues.Report
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Validate a bug report and file it through the relay",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			submitter, err := issues.NewSubmitterFromConfig(cfg)
			if err != nil {
				return err
			}
			receipt, err := submitter.Submit(cmd.Context(), report).Get()
			if err != nil {
				if fields, ok := issues.FieldErrors(err); ok {
					w := cmd.ErrOrStderr()
					for _, fe := range fields {
						fmt.Fprintf(w, "  %s: %s\n", fe.Field, fe.Message)
					}
					return fmt.Errorf("issue report has %d invalid field(s)", len(fields))
				}
				return fmt.Errorf("submit issue: %w", err)
			}
			if jsonOut {
				return writeJSON(cmd, receipt)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Created issue #%d\n", receipt.IssueNumber)
			if receipt.IssueURL != "" {
				fmt.Fprintln(w, receipt.IssueURL)
			}
			if receipt.RequestID != "" {
				fmt.Fprintf(w, "Request ID: %s\n", receipt.RequestID)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&report.Title, "title", "", "Short summary (5-200 characters)")
	flags.StringVar(&report.Description, "description", "", "What went wrong (10-5000 characters)")
	flags.StringVar(&report.IssueLocation, "location", "", "Where in the app it happened")
	flags.StringVar(&report.ExpectedBehavior, "expected", "", "What you expected to happen")
	flags.StringVar(&report.ActualBehavior, "actual", "", "What actually happened")
	flags.StringVar(&report.StepsToReproduce, "steps", "", "Steps to reproduce")
	flags.StringVar(&report.Category, "category", issues.DefaultCategory, "bug, feature, performance, ui, or other")
	flags.StringVar(&report.Severity, "severity", issues.DefaultSeverity, "low, medium, high, or critical")
	flags.StringVar(&report.Email, "email", "", "Contact address for follow-up")
	flags.BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}
