package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"worldbuilder/internal/eventlog"
)

func newLogCommand(ctx *commandContext) *cobra.Command {
	var eventType string
	var source string
	var meta []string

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Write a structured event to the backend log table",
		RunE: func(cmd *cobra.Command, args []string) error {
			pairs, err := parsePairs("meta", meta)
			if err != nil {
				return err
			}
			ev := eventlog.Event{EventType: eventType, EventSource: source}
			if len(pairs) > 0 {
				ev.Metadata = make(map[string]any, len(pairs))
				for k, v := range pairs {
					ev.Metadata[k] = typedValue(v)
				}
			}
			if res := ev.Validate(); !res.IsValid {
				return res.Err()
			}

			var (
				mu       sync.Mutex
				last     eventlog.Outcome
				attempts int
			)
			capture := func(_ context.Context, o eventlog.Outcome) {
				mu.Lock()
				last = o
				attempts++
				mu.Unlock()
			}
			events, err := ctx.eventLogger(capture)
			defer ctx.close()
			if err != nil {
				return err
			}
			events.Log(cmd.Context(), ev)

			mu.Lock()
			defer mu.Unlock()
			if attempts == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Event logging is disabled; nothing was sent")
				return nil
			}
			if last.Dropped() {
				return fmt.Errorf("event %s not delivered: %w", ev.EventType, last.Err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged %s in %s\n", ev.EventType, last.Duration.Round(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().StringVarP(&eventType, "type", "t", "", "Event type, e.g. scene.saved")
	cmd.Flags().StringVarP(&source, "source", "s", "cli", "Event source")
	cmd.Flags().StringArrayVarP(&meta, "meta", "m", nil, "Metadata as key=value (repeatable)")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}
