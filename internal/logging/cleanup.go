package logging

import (
	"context"
	"log/slog"
	"time"
)

// StartCleanup runs a daily goroutine that deletes persisted logs older
// than retentionDays.
func StartCleanup(sink Sink, retentionDays int, done chan struct{}) {
	if retentionDays <= 0 {
		retentionDays = 30
	}
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				PruneOnce(context.Background(), sink, retentionDays, time.Now())
			case <-done:
				return
			}
		}
	}()
}

// PruneOnce deletes logs older than retentionDays before now.
func PruneOnce(ctx context.Context, sink Sink, retentionDays int, now time.Time) {
	cutoff := now.AddDate(0, 0, -retentionDays)
	deleted, err := sink.DeleteBefore(ctx, cutoff)
	if err != nil {
		slog.Warn("log cleanup failed", "error", err)
	} else if deleted > 0 {
		slog.Info("log cleanup completed", "deleted", deleted)
	}
}
