package permission

import (
	"context"
	"time"
)

// StartRetentionWorker purges requests older than days once at startup and
// then once per day, until ctx is cancelled. days <= 0 disables it.
func (s *Service) StartRetentionWorker(ctx context.Context, days int) {
	if days <= 0 {
		return
	}
	go func() {
		run := func(stage string) {
			n, err := s.Purge(ctx, days)
			if err != nil {
				s.log.Error().Err(err).Str("stage", stage).Msg("retention cleanup")
				return
			}
			if n > 0 {
				s.log.Info().Int64("deleted", n).Int("retention_days", days).Msg("retention cleanup")
			}
		}
		run("startup")

		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				run("periodic")
			}
		}
	}()
}

// StartSnapshotWorker runs an analytics pass at startup and then every
// interval so the Observer always reflects current counts, even when no one
// opens the analytics page. interval <= 0 disables it.
func (s *Service) StartSnapshotWorker(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		run := func() {
			if _, err := s.Snapshot(ctx); err != nil && ctx.Err() == nil {
				s.log.Error().Err(err).Msg("analytics snapshot")
			}
		}
		run()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				run()
			}
		}
	}()
}
