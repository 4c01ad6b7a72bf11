package syncworker

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"biosync/internal/sqlcgen"
)

const (
	TriggerManual   = "manual"
	TriggerSchedule = "schedule"
)

// ScheduleQueries is what the Scheduler needs to enqueue runs.
type ScheduleQueries interface {
	HasActiveSyncRun(ctx context.Context) (bool, error)
	InsertSyncRun(ctx context.Context, trigger string) (sqlcgen.SyncRun, error)
}

// Scheduler enqueues a scheduled sync run every interval. A tick is skipped
// while another run is still queued or running.
type Scheduler struct {
	log      zerolog.Logger
	q        ScheduleQueries
	interval time.Duration
}

func NewScheduler(log zerolog.Logger, q ScheduleQueries, interval time.Duration) *Scheduler {
	return &Scheduler{log: log, q: q, interval: interval}
}

// Run blocks until ctx is done. A non-positive interval disables scheduling.
func (s *Scheduler) Run(ctx context.Context) {
	if s == nil || s.q == nil || s.interval <= 0 {
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) (bool, error) {
	active, err := s.q.HasActiveSyncRun(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("sync scheduler failed to check active runs")
		return false, err
	}
	if active {
		s.log.Debug().Msg("sync run already active; skipping scheduled run")
		return false, nil
	}
	run, err := s.q.InsertSyncRun(ctx, TriggerSchedule)
	if err != nil {
		s.log.Error().Err(err).Msg("sync scheduler failed to enqueue run")
		return false, err
	}
	s.log.Info().Str("run_id", run.ID).Msg("scheduled sync run queued")
	return true, nil
}
