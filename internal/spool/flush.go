package spool

import (
	"context"
	"log/slog"
	"time"

	"worldbuilder/internal/apiclient"
	"worldbuilder/internal/eventlog"
	"worldbuilder/internal/logging"
)

const hookTimeout = 5 * time.Second

// FlushResult summarizes a Flush run.
type FlushResult struct {
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
	// Stopped is true when a network failure ended the run early.
	Stopped bool `json:"stopped"`
}

// Flush resends entries oldest first. Delivered entries are deleted. Failed
// entries keep their row with a bumped attempt count. Entries whose last
// failure is not retryable (for example a 400 from the backend) are skipped.
// A network failure stops the run since later entries would fail the same way.
func (s *Store) Flush(ctx context.Context, sink eventlog.Sink) (FlushResult, error) {
	var result FlushResult
	entries, err := s.List(ctx, 0)
	if err != nil {
		return result, err
	}
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if !entry.Retryable() {
			result.Skipped++
			continue
		}
		sendErr := sink.InsertEvent(ctx, entry.Event())
		if sendErr == nil {
			if _, err := s.Delete(ctx, entry.ID); err != nil {
				return result, err
			}
			result.Sent++
			continue
		}
		result.Failed++
		if err := s.markFailed(ctx, entry.ID, sendErr); err != nil {
			return result, err
		}
		if apiclient.Classify(sendErr) == apiclient.CategoryNetwork {
			result.Stopped = true
			break
		}
	}
	return result, nil
}

// Hook spools events the logger failed to deliver. Events rejected by
// validation are not spooled since resending cannot fix them.
func (s *Store) Hook(logger *slog.Logger) eventlog.Hook {
	logger = logging.NewComponentLogger(logger, "spool")
	return func(ctx context.Context, outcome eventlog.Outcome) {
		if !outcome.Dropped() || eventlog.IsInvalid(outcome.Err) {
			return
		}
		if ctx == nil {
			ctx = context.Background()
		}
		recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), hookTimeout)
		defer cancel()
		entry, err := s.Record(recordCtx, outcome.Event, outcome.Err)
		if err != nil {
			logging.WarnWithContext(logger, "spool dropped event failed", "spool_record_failed",
				logging.String("event", outcome.Event.EventType),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the state directory is writable"),
				logging.String(logging.FieldImpact, "event is lost"),
			)
			return
		}
		logger.Debug("spooled dropped event",
			logging.String("id", entry.ID),
			logging.String("event", entry.EventType),
			logging.String("category", entry.Category),
		)
	}
}
