package main

import (
	"sort"

	"github.com/spf13/cobra"

	"worldbuilder/internal/services/backend"
)

func newRecordsCommand(ctx *commandContext) *cobra.Command {
	var eq []string
	var columns []string
	var order string
	var limit int
	var offset int
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "records <resource>",
		Short: "Query rows from a backend table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filters, err := parsePairs("eq", eq)
			if err != nil {
				return err
			}
			client, err := ctx.backendClient(args[0])
			if err != nil {
				return err
			}
			resource, err := client.Resource(args[0])
			if err != nil {
				return err
			}
			rows, err := backend.Select[map[string]any](cmd.Context(), resource, backend.Query{
				Columns: columns,
				Eq:      filters,
				Order:   order,
				Limit:   limit,
				Offset:  offset,
			}).Get()
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, rows)
			}
			headers := columns
			if len(headers) == 0 {
				headers = unionKeys(rows)
			}
			table := make([][]string, 0, len(rows))
			for _, row := range rows {
				line := make([]string, len(headers))
				for i, h := range headers {
					line[i] = formatCell(row[h])
				}
				table = append(table, line)
			}
			writeRows(cmd.OutOrStdout(), headers, table, nil)
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&eq, "eq", nil, "Equality filter as column=value (repeatable)")
	cmd.Flags().StringSliceVar(&columns, "columns", nil, "Columns to select")
	cmd.Flags().StringVar(&order, "order", "", "Order by column, optionally column.desc")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum rows")
	cmd.Flags().IntVar(&offset, "offset", 0, "Rows to skip")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

// unionKeys lists every column seen in rows, with id first when present.
func unionKeys(rows []map[string]any) []string {
	seen := map[string]bool{}
	var keys []string
	for _, row := range rows {
		for k := range row {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i] == "id" || keys[j] == "id" {
			return keys[i] == "id"
		}
		return keys[i] < keys[j]
	})
	return keys
}
